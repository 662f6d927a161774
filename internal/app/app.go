// Package app assembles the recognition pipeline from a Config.
package app

import (
	"context"

	"github.com/wetcoding/cardrecognizer/internal/config"
	"github.com/wetcoding/cardrecognizer/internal/hand"
	"github.com/wetcoding/cardrecognizer/internal/library"
	"github.com/wetcoding/cardrecognizer/internal/match"
	"github.com/wetcoding/cardrecognizer/internal/phash"
	"github.com/wetcoding/cardrecognizer/internal/sink"
)

// App holds the shared, read-only pipeline used by both commands.
type App struct {
	Hasher     phash.Hasher
	Library    *library.Library
	Matcher    *match.Matcher
	Recognizer *hand.Recognizer
}

// LoadLibrary builds the configured hasher and hashes the template set with it.
// It touches nothing on disk besides reading templates.
func LoadLibrary(ctx context.Context, cfg *config.Config) (phash.Hasher, *library.Library, error) {
	hasher, err := phash.New(cfg.Hash)
	if err != nil {
		return nil, nil, err
	}
	lib, err := library.Load(ctx, cfg.Templates, hasher)
	if err != nil {
		return nil, nil, err
	}
	return hasher, lib, nil
}

// Build loads the template library and wires the pipeline. An empty
// Unrecognized directory discards unmatched regions. The card palette
// serves both the slot anchor test and the cropper's background.
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	layout, err := cfg.Layout.Hand()
	if err != nil {
		return nil, err
	}

	var s sink.Sink = sink.Discard{}
	if cfg.Unrecognized != "" {
		dir, err := sink.NewDir(cfg.Unrecognized)
		if err != nil {
			return nil, err
		}
		s = dir
	}

	hasher, lib, err := LoadLibrary(ctx, cfg)
	if err != nil {
		return nil, err
	}

	m := match.New(hasher, lib, layout.Card, s)
	return &App{
		Hasher:     hasher,
		Library:    lib,
		Matcher:    m,
		Recognizer: hand.NewRecognizer(layout, m),
	}, nil
}
