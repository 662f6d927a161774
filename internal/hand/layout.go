// Package hand reads the cards of a fixed-geometry hand image, slot by slot.
package hand

import (
	"image"

	apperrors "github.com/wetcoding/cardrecognizer/internal/errors"
	"github.com/wetcoding/cardrecognizer/internal/region"
)

// Layout is the fixed geometry of a hand image. Value and Suit are the
// rectangles of slot 0; slot i is shifted right by Spacing*i.
type Layout struct {
	Size    image.Point
	Value   image.Rectangle
	Suit    image.Rectangle
	Spacing int
	Slots   int
	// Card holds the paper colors; a slot whose anchor pixel is not one of them is empty.
	Card region.Palette
}

// DefaultLayout is the 636x1166 table screenshot with up to five cards.
func DefaultLayout() Layout {
	return Layout{
		Size:    image.Pt(636, 1166),
		Value:   image.Rect(147, 590, 147+30, 590+27),
		Suit:    image.Rect(147, 617, 147+25, 617+20),
		Spacing: 72,
		Slots:   5,
		Card:    region.DefaultPalette(),
	}
}

// Anchor is the pixel tested for card presence at slot i: the value rectangle's top-left.
func (l Layout) Anchor(i int) image.Point {
	return l.Value.Min.Add(image.Pt(l.Spacing*i, 0))
}

// ValueRect returns the value rectangle of slot i.
func (l Layout) ValueRect(i int) image.Rectangle {
	return l.Value.Add(image.Pt(l.Spacing*i, 0))
}

// SuitRect returns the suit rectangle of slot i.
func (l Layout) SuitRect(i int) image.Rectangle {
	return l.Suit.Add(image.Pt(l.Spacing*i, 0))
}

// Validate checks that every slot fits inside the image.
func (l Layout) Validate() error {
	if l.Size.X <= 0 || l.Size.Y <= 0 {
		return apperrors.Newf(apperrors.CodeConfigInvalid, "image size %v must be positive", l.Size)
	}
	if l.Slots <= 0 {
		return apperrors.Newf(apperrors.CodeConfigInvalid, "slot count %d must be positive", l.Slots)
	}
	if l.Value.Empty() || l.Suit.Empty() {
		return apperrors.New(apperrors.CodeConfigInvalid, "value and suit rectangles must not be empty")
	}
	if l.Card.Len() == 0 {
		return apperrors.New(apperrors.CodeConfigInvalid, "card palette is empty")
	}
	bounds := image.Rectangle{Max: l.Size}
	for i := 0; i < l.Slots; i++ {
		if !l.ValueRect(i).In(bounds) || !l.SuitRect(i).In(bounds) {
			return apperrors.Newf(apperrors.CodeConfigInvalid, "slot %d lies outside the %dx%d image", i, l.Size.X, l.Size.Y)
		}
	}
	return nil
}
