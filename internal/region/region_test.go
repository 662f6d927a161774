package region

import (
	"bytes"
	stderrors "errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	apperrors "github.com/wetcoding/cardrecognizer/internal/errors"
)

var (
	white = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	grey  = color.RGBA{R: 120, G: 120, B: 120, A: 255}
	black = color.RGBA{A: 255}
	red   = color.RGBA{R: 200, A: 255}
)

// filled returns a w×h image painted with bg.
func filled(w, h int, bg color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, bg)
		}
	}
	return img
}

func TestRegionLocalCoordinates(t *testing.T) {
	img := filled(10, 10, white)
	img.Set(5, 6, red)

	// SubImage keeps absolute bounds; the region must not.
	sub := img.SubImage(image.Rect(4, 4, 8, 8))
	r := New(sub)

	if r.Bounds() != image.Rect(0, 0, 4, 4) {
		t.Errorf("Bounds() = %v, want (0,0)-(4,4)", r.Bounds())
	}
	if got := r.RGB(1, 2); got != red {
		t.Errorf("RGB(1,2) = %v, want %v", got, red)
	}
	if got := r.At(4, 0); got != (color.RGBA{}) {
		t.Errorf("At outside = %v, want transparent", got)
	}
}

func TestSubRegion(t *testing.T) {
	img := filled(20, 10, white)
	img.Set(12, 7, black)
	r := New(img)

	sub, err := r.Sub(image.Rect(10, 5, 15, 10))
	if err != nil {
		t.Fatalf("Sub() error: %v", err)
	}
	if sub.Width() != 5 || sub.Height() != 5 {
		t.Errorf("size = %dx%d, want 5x5", sub.Width(), sub.Height())
	}
	if got := sub.RGB(2, 2); got != black {
		t.Errorf("RGB(2,2) = %v, want black", got)
	}

	nested, err := sub.Sub(image.Rect(2, 2, 3, 3))
	if err != nil {
		t.Fatalf("nested Sub() error: %v", err)
	}
	if got := nested.RGB(0, 0); got != black {
		t.Errorf("nested RGB(0,0) = %v, want black", got)
	}
}

func TestSubRegionOutOfBounds(t *testing.T) {
	r := New(filled(10, 10, white))

	for _, rect := range []image.Rectangle{
		image.Rect(5, 5, 11, 8),
		image.Rect(-1, 0, 3, 3),
		image.Rect(2, 2, 2, 5),
	} {
		_, err := r.Sub(rect)
		if !stderrors.Is(err, ErrOutOfBounds) {
			t.Errorf("Sub(%v) error = %v, want ErrOutOfBounds", rect, err)
		}
		if !apperrors.IsCode(err, apperrors.CodeOutOfBounds) {
			t.Errorf("Sub(%v) code = %v, want OUT_OF_BOUNDS", rect, apperrors.CodeOf(err))
		}
	}
}

func TestClone(t *testing.T) {
	img := filled(8, 8, white)
	img.Set(3, 3, red)
	r, _ := New(img).Sub(image.Rect(2, 2, 6, 6))

	c := r.Clone()
	if c.Bounds() != image.Rect(0, 0, 4, 4) {
		t.Errorf("Clone bounds = %v", c.Bounds())
	}
	if got := c.RGBAAt(1, 1); got != red {
		t.Errorf("Clone(1,1) = %v, want red", got)
	}

	c.Set(1, 1, black)
	if got := r.RGB(1, 1); got != red {
		t.Error("Clone must not share pixels with the source")
	}
}

func TestPalette(t *testing.T) {
	p := DefaultPalette()

	if !p.Contains(white) || !p.Contains(grey) {
		t.Error("default palette should contain white and grey")
	}
	if p.Contains(color.RGBA{R: 254, G: 255, B: 255, A: 255}) {
		t.Error("palette match must be exact")
	}
	if !p.IsBackground(color.Gray{Y: 255}) {
		t.Error("grey-model white should match")
	}
	if !p.Contains(color.NRGBA{R: 255, G: 255, B: 255, A: 255}) {
		t.Error("NRGBA white should match")
	}
	if p.Len() != 2 {
		t.Errorf("Len() = %d, want 2", p.Len())
	}
}

func TestDecodeBytes(t *testing.T) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, filled(3, 2, red)); err != nil {
		t.Fatal(err)
	}

	img, err := DecodeBytes(buf.Bytes())
	if err != nil {
		t.Fatalf("DecodeBytes() error: %v", err)
	}
	if img.Bounds().Dx() != 3 || img.Bounds().Dy() != 2 {
		t.Errorf("bounds = %v, want 3x2", img.Bounds())
	}

	if _, err := DecodeBytes([]byte("not an image")); !apperrors.IsCode(err, apperrors.CodeDecode) {
		t.Errorf("garbage error = %v, want DECODE_ERROR", err)
	}
	if _, err := DecodeBytes(nil); !apperrors.IsCode(err, apperrors.CodeDecode) {
		t.Errorf("empty error = %v, want DECODE_ERROR", err)
	}
}

func TestDecodeFileMissing(t *testing.T) {
	_, err := DecodeFile(t.TempDir() + "/missing.png")
	if !apperrors.IsCode(err, apperrors.CodeDecode) {
		t.Errorf("error = %v, want DECODE_ERROR", err)
	}
}

func TestDecodeFileCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hand.png")
	if err := os.WriteFile(path, []byte("truncated"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := DecodeFile(path)
	appErr, ok := apperrors.As(err)
	if !ok || appErr.Code != apperrors.CodeDecode {
		t.Fatalf("error = %v, want DECODE_ERROR", err)
	}
	if appErr.Metadata["path"] != path {
		t.Errorf("Metadata = %v, want path=%s", appErr.Metadata, path)
	}
}
