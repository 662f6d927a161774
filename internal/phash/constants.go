// Package phash computes perceptual fingerprints of image regions and compares them.
package phash

// Hashing defaults
const (
	// Side of the square grid the image is resampled to
	DefaultSize = 16

	// Similarity must be strictly greater than this to match
	DefaultThreshold = 0.845

	// Fingerprint length of the goimagehash-backed algorithms
	ImageHashBits = 64
)

// Algorithm names accepted by New.
const (
	AlgorithmDHash      = "dhash"
	AlgorithmAverage    = "ahash"
	AlgorithmPerception = "phash"
	AlgorithmDHash64    = "dhash64"
)

// Resampler names accepted by New.
const (
	ResamplerXDraw = "xdraw"
	ResamplerNFNT  = "nfnt"
)
