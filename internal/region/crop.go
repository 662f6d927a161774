package region

import (
	"image"

	apperrors "github.com/wetcoding/cardrecognizer/internal/errors"
)

// ErrEmptyContent is returned by Crop when every pixel is background.
var ErrEmptyContent = apperrors.New(apperrors.CodeEmptyContent, "region has no non-background pixels")

// Crop returns the tightest view of r containing every non-background pixel.
// The bounding box is the union over the whole scan. r is not modified.
func Crop(r *Region, bg Classifier) (*Region, error) {
	minX, minY := r.Width(), r.Height()
	maxX, maxY := -1, -1

	for y := 0; y < r.Height(); y++ {
		for x := 0; x < r.Width(); x++ {
			if bg.IsBackground(r.At(x, y)) {
				continue
			}
			minX = min(minX, x)
			maxX = max(maxX, x)
			minY = min(minY, y)
			maxY = max(maxY, y)
		}
	}

	if maxX < 0 {
		return nil, ErrEmptyContent
	}
	return r.Sub(image.Rect(minX, minY, maxX+1, maxY+1))
}
