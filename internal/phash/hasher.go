package phash

import (
	"image"

	apperrors "github.com/wetcoding/cardrecognizer/internal/errors"
)

// ErrEmptyImage is returned when hashing an image without pixels.
var ErrEmptyImage = apperrors.New(apperrors.CodeInvalidArgument, "image has no pixels")

// Hasher computes fingerprints and compares them under its own threshold.
// Implementations are safe for concurrent use.
type Hasher interface {
	Hash(img image.Image) (Fingerprint, error)
	Compare(a, b Fingerprint) (similarity float64, similar bool)
}

// Config selects and tunes a Hasher.
type Config struct {
	Algorithm string  `mapstructure:"algorithm"`
	Size      int     `mapstructure:"size"`
	Threshold float64 `mapstructure:"threshold"`
	Resampler string  `mapstructure:"resampler"`
}

// DefaultConfig returns the 16x16 difference hash with the 0.845 threshold.
func DefaultConfig() Config {
	return Config{
		Algorithm: AlgorithmDHash,
		Size:      DefaultSize,
		Threshold: DefaultThreshold,
		Resampler: ResamplerXDraw,
	}
}

// Validate checks the configuration without building a hasher.
func (c Config) Validate() error {
	if c.Threshold < 0 || c.Threshold >= 1 {
		return apperrors.Newf(apperrors.CodeConfigInvalid, "threshold %v outside [0,1)", c.Threshold)
	}
	switch c.Algorithm {
	case AlgorithmDHash:
		if c.Size < 2 {
			return apperrors.Newf(apperrors.CodeConfigInvalid, "hash size %d must be at least 2", c.Size)
		}
		if _, err := resamplerByName(c.Resampler); err != nil {
			return err
		}
	case AlgorithmAverage, AlgorithmPerception, AlgorithmDHash64:
	default:
		return apperrors.Newf(apperrors.CodeConfigInvalid, "unknown hash algorithm %q", c.Algorithm)
	}
	return nil
}

// New builds the hasher described by cfg.
func New(cfg Config) (Hasher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Algorithm == AlgorithmDHash {
		rs, _ := resamplerByName(cfg.Resampler)
		return NewDHash(cfg.Size, cfg.Threshold, rs), nil
	}
	return NewImageHash(cfg.Algorithm, cfg.Threshold), nil
}

func checkImage(img image.Image) error {
	if img == nil || img.Bounds().Empty() {
		return ErrEmptyImage
	}
	return nil
}
