// Package batch recognizes every hand image in a directory.
package batch

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	apperrors "github.com/wetcoding/cardrecognizer/internal/errors"
	"github.com/wetcoding/cardrecognizer/internal/hand"
	"github.com/wetcoding/cardrecognizer/internal/region"
	"github.com/wetcoding/cardrecognizer/internal/trace"
)

// ImageReport is the outcome for one file. Err is set when the file was skipped.
type ImageReport struct {
	Path string    `json:"path"`
	Hand hand.Hand `json:"hand"`
	Err  error     `json:"-"`
}

// Skipped reports whether the image was not recognized at all.
func (r ImageReport) Skipped() bool { return r.Err != nil }

// Report summarizes a run in file order.
type Report struct {
	Images       []ImageReport
	Skipped      int
	Unrecognized int
}

// Runner recognizes hand images with a bounded number of workers.
type Runner struct {
	recognizer *hand.Recognizer
	workers    int
}

// NewRunner creates a runner. workers <= 0 means one per CPU.
func NewRunner(r *hand.Recognizer, workers int) *Runner {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Runner{recognizer: r, workers: workers}
}

// Run processes every regular, non-hidden file in dir. Images that fail to
// decode or have the wrong dimensions are logged and skipped. Any other error,
// including cancellation, stops the run.
func (r *Runner) Run(ctx context.Context, dir string) (Report, error) {
	paths, err := listImages(dir)
	if err != nil {
		return Report{}, err
	}

	ctx, span := trace.StartSpan(ctx, "batch_run")
	defer span.End()
	span.SetAttr("dir", dir)
	span.SetAttr("images", len(paths))

	results := make([]ImageReport, len(paths))
	errs := make([]error, len(paths))
	sem := make(chan struct{}, r.workers)
	var wg sync.WaitGroup

schedule:
	for i, p := range paths {
		select {
		case <-ctx.Done():
			break schedule
		case sem <- struct{}{}:
		}
		wg.Add(1)
		go func(i int, p string) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i], errs[i] = r.one(ctx, p)
		}(i, p)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return Report{}, err
	}
	for _, err := range errs {
		if err != nil {
			return Report{}, err
		}
	}

	report := Report{Images: results}
	for _, img := range results {
		if img.Skipped() {
			report.Skipped++
			continue
		}
		report.Unrecognized += img.Hand.Unrecognized()
	}
	span.SetAttr("skipped", report.Skipped)
	span.SetAttr("unrecognized", report.Unrecognized)
	return report, nil
}

func (r *Runner) one(ctx context.Context, path string) (ImageReport, error) {
	ctx, span := trace.StartSpan(ctx, "recognize_image")
	defer span.End()
	span.SetAttr("path", path)

	rep := ImageReport{Path: path}
	img, err := region.DecodeFile(path)
	if err == nil {
		rep.Hand, err = r.recognizer.Recognize(ctx, img)
	}
	switch {
	case err == nil:
		return rep, nil
	case apperrors.IsCode(err, apperrors.CodeDecode), apperrors.IsCode(err, apperrors.CodeDimensionMismatch):
		trace.Logger(ctx).Warn("skipping image", "path", path, "error", err)
		rep.Err = err
		return rep, nil
	default:
		return rep, err
	}
}

func listImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeNotFound, "read input directory").WithMetadata("dir", dir)
	}

	var paths []string
	for _, e := range entries {
		if !e.Type().IsRegular() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	slog.Debug("listed input images", "dir", dir, "count", len(paths))
	return paths, nil
}
