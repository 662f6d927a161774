package phash

import (
	"image"

	"github.com/nfnt/resize"
	xdraw "golang.org/x/image/draw"

	apperrors "github.com/wetcoding/cardrecognizer/internal/errors"
)

// Resampler scales src to exactly w×h pixels.
type Resampler func(src image.Image, w, h int) image.Image

// XDrawResampler uses a bilinear kernel that widens to an area average when downscaling.
func XDrawResampler(src image.Image, w, h int) image.Image {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.BiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Src, nil)
	return dst
}

// NFNTResampler uses Lanczos3 from nfnt/resize.
func NFNTResampler(src image.Image, w, h int) image.Image {
	return resize.Resize(uint(w), uint(h), src, resize.Lanczos3)
}

func resamplerByName(name string) (Resampler, error) {
	switch name {
	case "", ResamplerXDraw:
		return XDrawResampler, nil
	case ResamplerNFNT:
		return NFNTResampler, nil
	default:
		return nil, apperrors.Newf(apperrors.CodeConfigInvalid, "unknown resampler %q", name)
	}
}
