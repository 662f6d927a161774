// Package match recognizes a single image region against a template library.
package match

import (
	"context"

	apperrors "github.com/wetcoding/cardrecognizer/internal/errors"
	"github.com/wetcoding/cardrecognizer/internal/library"
	"github.com/wetcoding/cardrecognizer/internal/phash"
	"github.com/wetcoding/cardrecognizer/internal/region"
	"github.com/wetcoding/cardrecognizer/internal/sink"
	"github.com/wetcoding/cardrecognizer/internal/trace"
)

// Result is the outcome of matching one region.
// Matched is false for the "unrecognized" outcome, which is not an error.
type Result struct {
	Label   string  `json:"label,omitempty"`
	Score   float64 `json:"score"`
	Matched bool    `json:"matched"`
	Saved   string  `json:"saved,omitempty"` // sink key of an unrecognized crop
}

// Matcher runs crop, hash and compare against an immutable library.
type Matcher struct {
	hasher  phash.Hasher
	lib     *library.Library
	palette region.Classifier
	sink    sink.Sink
}

// New creates a matcher. A nil sink discards unrecognized regions.
func New(hasher phash.Hasher, lib *library.Library, palette region.Classifier, s sink.Sink) *Matcher {
	if s == nil {
		s = sink.Discard{}
	}
	return &Matcher{hasher: hasher, lib: lib, palette: palette, sink: s}
}

// Library returns the library the matcher compares against.
func (m *Matcher) Library() *library.Library { return m.lib }

// Match crops r to its content and returns the best matching label.
// The highest similarity above the hasher's threshold wins; equal scores go to
// the lexicographically smaller label. When nothing matches, the cropped region
// is handed to the sink once and Result.Matched is false.
// A region without content yields an EMPTY_CONTENT error.
func (m *Matcher) Match(ctx context.Context, r *region.Region) (Result, error) {
	cropped, err := region.Crop(r, m.palette)
	if err != nil {
		return Result{}, err
	}

	fp, err := m.hasher.Hash(cropped)
	if err != nil {
		return Result{}, apperrors.Wrap(err, apperrors.CodeInternal, "hash region")
	}

	best := m.Best(fp)
	if best.Matched {
		return best, nil
	}

	key, err := m.sink.Store(ctx, cropped)
	if err != nil {
		return best, err
	}
	best.Saved = key
	trace.Logger(ctx).Debug("region unrecognized", "best_score", best.Score, "saved", key)
	return best, nil
}

// Best compares fp with every template. Score is the best similarity seen even
// when nothing passes the threshold.
func (m *Matcher) Best(fp phash.Fingerprint) Result {
	var best Result
	m.lib.Each(func(e library.Entry) bool {
		for _, tmpl := range e.Fingerprints {
			s, ok := m.hasher.Compare(tmpl, fp)
			switch {
			case ok && (!best.Matched || s > best.Score):
				best = Result{Label: e.Label, Score: s, Matched: true}
			case !best.Matched && s > best.Score:
				best.Score = s
			}
		}
		return true
	})
	return best
}
