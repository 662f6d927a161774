package library

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	apperrors "github.com/wetcoding/cardrecognizer/internal/errors"
	"github.com/wetcoding/cardrecognizer/internal/phash"
)

func writePNG(t *testing.T, path string, img image.Image) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

func sample(seed int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, 20, 20))
	for y := 0; y < 20; y++ {
		for x := 0; x < 20; x++ {
			img.SetGray(x, y, color.Gray{Y: uint8((x*seed + y*7) % 256)})
		}
	}
	return img
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "10", "a.png"), sample(3))
	writePNG(t, filepath.Join(dir, "10", "b.png"), sample(5))
	writePNG(t, filepath.Join(dir, "Spade", "a.png"), sample(11))
	writePNG(t, filepath.Join(dir, "spade", "a.png"), sample(13))
	writePNG(t, filepath.Join(dir, "loose.png"), sample(2))
	writePNG(t, filepath.Join(dir, "Spade", ".thumb.png"), sample(4))
	if err := os.MkdirAll(filepath.Join(dir, "empty"), 0o755); err != nil {
		t.Fatal(err)
	}

	hasher := phash.NewDHash(phash.DefaultSize, phash.DefaultThreshold, nil)
	lib, err := Load(context.Background(), dir, hasher)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if want := []string{"10", "Spade", "spade"}; !reflect.DeepEqual(lib.Labels(), want) {
		t.Errorf("Labels() = %v, want %v", lib.Labels(), want)
	}
	if lib.Samples() != 4 {
		t.Errorf("Samples() = %d, want 4", lib.Samples())
	}

	fps, ok := lib.Fingerprints("10")
	if !ok || len(fps) != 2 {
		t.Fatalf("Fingerprints(10) = %d, %v; want 2 fingerprints", len(fps), ok)
	}
	want, _ := hasher.Hash(sample(3))
	if !fps[0].Equal(want) && !fps[1].Equal(want) {
		t.Error("Fingerprints(10) does not contain the hash of a.png")
	}
	if _, ok := lib.Fingerprints("empty"); ok {
		t.Error("label without samples should be dropped")
	}
}

func TestLoadCorruptSample(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "K", "a.png"), sample(3))
	if err := os.WriteFile(filepath.Join(dir, "K", "broken.png"), []byte("not a png"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := Load(context.Background(), dir, phash.NewDHash(16, 0.845, nil))
	if !apperrors.IsCode(err, apperrors.CodeDecode) {
		t.Errorf("Load() error = %v, want DECODE_ERROR", err)
	}
}

func TestLoadMissingDir(t *testing.T) {
	_, err := Load(context.Background(), filepath.Join(t.TempDir(), "nope"), phash.NewDHash(16, 0.845, nil))
	if !apperrors.IsCode(err, apperrors.CodeNotFound) {
		t.Errorf("Load() error = %v, want NOT_FOUND", err)
	}
}

func TestLoadCancelled(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "A", "a.png"), sample(3))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := Load(ctx, dir, phash.NewDHash(16, 0.845, nil)); err != context.Canceled {
		t.Errorf("Load() error = %v, want context.Canceled", err)
	}
}

func TestNewIsImmutable(t *testing.T) {
	fp, _ := phash.ParseFingerprint("1010")
	src := map[string][]phash.Fingerprint{"Q": {fp}, "none": nil}
	lib := New(src)

	src["Q"][0], _ = phash.ParseFingerprint("0000")
	src["J"] = []phash.Fingerprint{fp}

	got, _ := lib.Fingerprints("Q")
	if !got[0].Equal(fp) {
		t.Error("library shares storage with its input map")
	}
	got[0] = phash.Fingerprint{}
	again, _ := lib.Fingerprints("Q")
	if !again[0].Equal(fp) {
		t.Error("Fingerprints() exposes internal storage")
	}
	if lib.Len() != 1 {
		t.Errorf("Len() = %d, want 1", lib.Len())
	}
}

func TestEachOrder(t *testing.T) {
	fp, _ := phash.ParseFingerprint("1")
	lib := New(map[string][]phash.Fingerprint{"b": {fp}, "a": {fp}, "c": {fp}})

	var seen []string
	lib.Each(func(e Entry) bool {
		seen = append(seen, e.Label)
		return e.Label != "b"
	})
	if want := []string{"a", "b"}; !reflect.DeepEqual(seen, want) {
		t.Errorf("Each visited %v, want %v", seen, want)
	}
}
