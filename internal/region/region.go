// Package region provides read-only views over raster images, background
// classification by exact palette match, and tight content cropping.
package region

import (
	"image"
	"image/color"
	"image/draw"

	apperrors "github.com/wetcoding/cardrecognizer/internal/errors"
)

// ErrOutOfBounds is returned when a sub-region does not fit inside its parent.
var ErrOutOfBounds = apperrors.New(apperrors.CodeOutOfBounds, "sub-region exceeds parent bounds")

// Region is a rectangular, read-only view of an image.
// Coordinates are local: (0,0) is the region's top-left corner whatever the
// parent's Bounds().Min is. Region implements image.Image.
type Region struct {
	src  image.Image
	rect image.Rectangle // in src coordinates
}

// New returns a region covering the whole image.
func New(img image.Image) *Region {
	if r, ok := img.(*Region); ok {
		return r
	}
	return &Region{src: img, rect: img.Bounds()}
}

// Width returns the region width in pixels.
func (r *Region) Width() int { return r.rect.Dx() }

// Height returns the region height in pixels.
func (r *Region) Height() int { return r.rect.Dy() }

// Size returns width and height as a point.
func (r *Region) Size() image.Point { return r.rect.Size() }

// Bounds implements image.Image. Always anchored at (0,0).
func (r *Region) Bounds() image.Rectangle {
	return image.Rectangle{Max: r.rect.Size()}
}

// ColorModel implements image.Image.
func (r *Region) ColorModel() color.Model { return r.src.ColorModel() }

// At implements image.Image. Points outside the region are transparent black.
func (r *Region) At(x, y int) color.Color {
	if !image.Pt(x, y).In(r.Bounds()) {
		return color.RGBA{}
	}
	return r.src.At(r.rect.Min.X+x, r.rect.Min.Y+y)
}

// RGB returns the 8-bit color at (x, y) with alpha dropped.
func (r *Region) RGB(x, y int) color.RGBA {
	return RGB8(r.At(x, y))
}

// Sub returns a view of rect, given in region-local coordinates.
func (r *Region) Sub(rect image.Rectangle) (*Region, error) {
	if rect.Empty() || !rect.In(r.Bounds()) {
		return nil, apperrors.Wrapf(ErrOutOfBounds, apperrors.CodeOutOfBounds, "rect %v in %v", rect, r.Bounds())
	}
	return &Region{src: r.src, rect: rect.Add(r.rect.Min)}, nil
}

// Clone copies the region's pixels into a new RGBA image anchored at (0,0).
func (r *Region) Clone() *image.RGBA {
	dst := image.NewRGBA(r.Bounds())
	draw.Draw(dst, dst.Bounds(), r.src, r.rect.Min, draw.Src)
	return dst
}

// RGB8 reduces any color to opaque 8-bit RGB.
func RGB8(c color.Color) color.RGBA {
	red, green, blue, _ := c.RGBA()
	return color.RGBA{R: uint8(red >> 8), G: uint8(green >> 8), B: uint8(blue >> 8), A: 0xff}
}
