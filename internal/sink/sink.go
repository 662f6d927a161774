// Package sink persists image regions that could not be recognized, for later review.
package sink

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	apperrors "github.com/wetcoding/cardrecognizer/internal/errors"
	"github.com/wetcoding/cardrecognizer/internal/resilience"
)

// Sink accepts one region and returns the key it was stored under.
type Sink interface {
	Store(ctx context.Context, img image.Image) (string, error)
}

// Dir writes each region as a PNG file named <unix-millis>-<seq>.png.
type Dir struct {
	path  string
	seq   atomic.Uint64
	now   func() time.Time
	retry resilience.RetryConfig
}

// NewDir creates path if needed. Failure to create it is fatal for a run.
func NewDir(path string) (*Dir, error) {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeSinkInit, "create unrecognized directory").WithMetadata("dir", path)
	}
	return &Dir{path: path, now: time.Now, retry: resilience.FileRetryConfig()}, nil
}

// Path returns the directory regions are written to.
func (d *Dir) Path() string { return d.path }

// Store implements Sink. Files are created exclusively; a name collision is retried with a fresh name.
func (d *Dir) Store(ctx context.Context, img image.Image) (string, error) {
	var name string
	err := resilience.Retry(ctx, d.retry, func() error {
		name = fmt.Sprintf("%d-%d.png", d.now().UnixMilli(), d.seq.Add(1))
		return d.write(filepath.Join(d.path, name), img)
	})
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.CodeSinkFailed, "store unrecognized region").WithMetadata("dir", d.path)
	}
	slog.Debug("unrecognized region saved", "file", name, "size", img.Bounds().Size())
	return name, nil
}

func (d *Dir) write(path string, img image.Image) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}

// Discard drops every region.
type Discard struct{}

// Store implements Sink.
func (Discard) Store(context.Context, image.Image) (string, error) { return "", nil }
