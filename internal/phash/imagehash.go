package phash

import (
	"image"

	"github.com/corona10/goimagehash"
)

// ImageHash adapts the 64-bit hashes of goimagehash to the Hasher interface.
type ImageHash struct {
	algorithm string
	threshold float64
}

// NewImageHash returns a hasher for AlgorithmAverage, AlgorithmPerception or AlgorithmDHash64.
func NewImageHash(algorithm string, threshold float64) *ImageHash {
	return &ImageHash{algorithm: algorithm, threshold: threshold}
}

// Hash implements Hasher.
func (h *ImageHash) Hash(img image.Image) (Fingerprint, error) {
	if err := checkImage(img); err != nil {
		return Fingerprint{}, err
	}

	var (
		ih  *goimagehash.ImageHash
		err error
	)
	switch h.algorithm {
	case AlgorithmAverage:
		ih, err = goimagehash.AverageHash(img)
	case AlgorithmPerception:
		ih, err = goimagehash.PerceptionHash(img)
	default:
		ih, err = goimagehash.DifferenceHash(img)
	}
	if err != nil {
		return Fingerprint{}, err
	}
	return FromUint64(ih.GetHash(), ImageHashBits), nil
}

// Compare implements Hasher.
func (h *ImageHash) Compare(a, b Fingerprint) (float64, bool) {
	s, ok := Similarity(a, b)
	return s, ok && s > h.threshold
}
