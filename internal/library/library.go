// Package library holds the reference fingerprints every region is matched against.
package library

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	apperrors "github.com/wetcoding/cardrecognizer/internal/errors"
	"github.com/wetcoding/cardrecognizer/internal/phash"
	"github.com/wetcoding/cardrecognizer/internal/region"
)

// Entry is one label with its reference fingerprints.
type Entry struct {
	Label        string
	Fingerprints []phash.Fingerprint
}

// Library maps labels to reference fingerprints. It is immutable once built
// and safe to share between goroutines.
type Library struct {
	entries []Entry // sorted by label
	index   map[string]int
}

// New builds a library from an in-memory map. Labels without fingerprints are dropped.
func New(templates map[string][]phash.Fingerprint) *Library {
	lib := &Library{index: make(map[string]int, len(templates))}
	for label, fps := range templates {
		if len(fps) == 0 {
			continue
		}
		lib.entries = append(lib.entries, Entry{
			Label:        label,
			Fingerprints: append([]phash.Fingerprint(nil), fps...),
		})
	}
	sort.Slice(lib.entries, func(i, j int) bool { return lib.entries[i].Label < lib.entries[j].Label })
	for i, e := range lib.entries {
		lib.index[e.Label] = i
	}
	return lib
}

// Load hashes every sample under dir. Each sub-directory is one label, named verbatim.
// Any sample that cannot be decoded or hashed aborts the load.
func Load(ctx context.Context, dir string, hasher phash.Hasher) (*Library, error) {
	dirs, err := os.ReadDir(dir)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeNotFound, "read template directory").WithMetadata("dir", dir)
	}

	templates := make(map[string][]phash.Fingerprint)
	for _, d := range dirs {
		if !d.IsDir() || hidden(d.Name()) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		label := d.Name()
		fps, err := loadLabel(filepath.Join(dir, label), hasher)
		if err != nil {
			return nil, err
		}
		if len(fps) == 0 {
			slog.Warn("template label has no samples", "label", label)
			continue
		}
		templates[label] = fps
	}

	lib := New(templates)
	slog.Info("templates loaded", "dir", dir, "labels", lib.Len(), "samples", lib.Samples())
	return lib, nil
}

func loadLabel(dir string, hasher phash.Hasher) ([]phash.Fingerprint, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeNotFound, "read label directory").WithMetadata("dir", dir)
	}

	var fps []phash.Fingerprint
	for _, f := range files {
		if !f.Type().IsRegular() || hidden(f.Name()) {
			continue
		}
		path := filepath.Join(dir, f.Name())
		img, err := region.DecodeFile(path)
		if err != nil {
			return nil, err
		}
		fp, err := hasher.Hash(img)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeDecode, "hash template").WithMetadata("path", path)
		}
		fps = append(fps, fp)
	}
	return fps, nil
}

func hidden(name string) bool { return strings.HasPrefix(name, ".") }

// Len returns the number of labels.
func (l *Library) Len() int { return len(l.entries) }

// Samples returns the total number of fingerprints.
func (l *Library) Samples() int {
	n := 0
	for _, e := range l.entries {
		n += len(e.Fingerprints)
	}
	return n
}

// Labels returns the labels in lexicographic order.
func (l *Library) Labels() []string {
	labels := make([]string, len(l.entries))
	for i, e := range l.entries {
		labels[i] = e.Label
	}
	return labels
}

// Fingerprints returns a copy of the fingerprints stored for label.
func (l *Library) Fingerprints(label string) ([]phash.Fingerprint, bool) {
	i, ok := l.index[label]
	if !ok {
		return nil, false
	}
	return append([]phash.Fingerprint(nil), l.entries[i].Fingerprints...), true
}

// Each calls fn for every entry in label order until fn returns false.
// fn must not modify the entry's slice.
func (l *Library) Each(fn func(Entry) bool) {
	for _, e := range l.entries {
		if !fn(e) {
			return
		}
	}
}
