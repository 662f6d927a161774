package region

import "image/color"

// Classifier decides whether a color is background.
type Classifier interface {
	IsBackground(c color.Color) bool
}

// Palette is a fixed set of colors matched exactly on 8-bit RGB. Alpha is ignored.
type Palette struct {
	colors []color.RGBA
}

// DefaultPalette holds the card paper colors: white and the grey of a dimmed card.
func DefaultPalette() Palette {
	return NewPalette(
		color.RGBA{R: 255, G: 255, B: 255, A: 255},
		color.RGBA{R: 120, G: 120, B: 120, A: 255},
	)
}

// NewPalette builds a palette from the given colors.
func NewPalette(colors ...color.Color) Palette {
	p := Palette{colors: make([]color.RGBA, 0, len(colors))}
	for _, c := range colors {
		p.colors = append(p.colors, RGB8(c))
	}
	return p
}

// Contains reports whether c equals one of the palette colors.
func (p Palette) Contains(c color.Color) bool {
	rgb := RGB8(c)
	for _, pc := range p.colors {
		if pc == rgb {
			return true
		}
	}
	return false
}

// IsBackground implements Classifier.
func (p Palette) IsBackground(c color.Color) bool { return p.Contains(c) }

// Colors returns a copy of the palette colors.
func (p Palette) Colors() []color.RGBA {
	return append([]color.RGBA(nil), p.colors...)
}

// Len returns the number of colors.
func (p Palette) Len() int { return len(p.colors) }
