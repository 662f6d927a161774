package phash

import (
	"image"
	"image/color"
)

// DHash is a difference hash over a size×size grayscale grid.
// Each row contributes size-1 bits: 1 when a cell is brighter than its right neighbour.
type DHash struct {
	size      int
	threshold float64
	resample  Resampler
}

// NewDHash returns a difference hasher. A nil resampler selects XDrawResampler.
func NewDHash(size int, threshold float64, resample Resampler) *DHash {
	if resample == nil {
		resample = XDrawResampler
	}
	return &DHash{size: size, threshold: threshold, resample: resample}
}

// Size returns the grid side.
func (h *DHash) Size() int { return h.size }

// Bits returns the fingerprint length, size*(size-1).
func (h *DHash) Bits() int { return h.size * (h.size - 1) }

// Hash implements Hasher.
func (h *DHash) Hash(img image.Image) (Fingerprint, error) {
	if err := checkImage(img); err != nil {
		return Fingerprint{}, err
	}

	grid := h.grayGrid(img)
	bitList := make([]bool, 0, h.Bits())
	for y := 0; y < h.size; y++ {
		row := grid[y*h.size : (y+1)*h.size]
		for x := 0; x < h.size-1; x++ {
			bitList = append(bitList, row[x] > row[x+1])
		}
	}
	return NewFingerprint(bitList), nil
}

// Compare implements Hasher.
func (h *DHash) Compare(a, b Fingerprint) (float64, bool) {
	s, ok := Similarity(a, b)
	return s, ok && s > h.threshold
}

// grayGrid resamples img to size×size and returns row-major 8-bit intensities.
func (h *DHash) grayGrid(img image.Image) []uint8 {
	b := img.Bounds()
	if b.Dx() != h.size || b.Dy() != h.size {
		img = h.resample(img, h.size, h.size)
		b = img.Bounds()
	}

	grid := make([]uint8, h.size*h.size)
	for y := 0; y < h.size; y++ {
		for x := 0; x < h.size; x++ {
			grid[y*h.size+x] = color.GrayModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray).Y
		}
	}
	return grid
}
