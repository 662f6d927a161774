package region

import (
	"bytes"
	"image"
	_ "image/gif"  // GIF decoder
	_ "image/jpeg" // JPEG decoder
	_ "image/png"  // PNG decoder
	"io"
	"os"

	_ "golang.org/x/image/bmp"  // BMP decoder
	_ "golang.org/x/image/tiff" // TIFF decoder
	_ "golang.org/x/image/webp" // WebP decoder

	apperrors "github.com/wetcoding/cardrecognizer/internal/errors"
)

// Decode reads any registered raster format. Failures carry CodeDecode.
func Decode(r io.Reader) (image.Image, string, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, "", apperrors.Wrap(err, apperrors.CodeDecode, "decode image")
	}
	return img, format, nil
}

// DecodeBytes decodes an in-memory image.
func DecodeBytes(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, apperrors.New(apperrors.CodeDecode, "empty image data")
	}
	img, _, err := Decode(bytes.NewReader(data))
	return img, err
}

// DecodeFile opens and decodes the image at path.
func DecodeFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDecode, "open image").WithMetadata("path", path)
	}
	defer f.Close()

	img, _, err := Decode(f)
	if appErr, ok := apperrors.As(err); ok {
		appErr.WithMetadata("path", path)
	}
	return img, err
}
