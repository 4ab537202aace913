package qr

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"image/png"

	"github.com/HugoSmits86/nativewebp"
)

const jpegQuality = 92

// EncodeImage encodes a bitmap in a raster format. JPEG has no alpha, so
// the image is flattened onto bg first (white when bg is transparent).
func EncodeImage(img image.Image, f Format, bg color.RGBA) ([]byte, error) {
	var buf bytes.Buffer
	switch f {
	case FormatPNG:
		if err := png.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("encode png: %w", err)
		}
	case FormatJPEG:
		if err := jpeg.Encode(&buf, flatten(img, bg), &jpeg.Options{Quality: jpegQuality}); err != nil {
			return nil, fmt.Errorf("encode jpeg: %w", err)
		}
	case FormatWebP:
		if err := nativewebp.Encode(&buf, img, &nativewebp.Options{}); err != nil {
			return nil, fmt.Errorf("encode webp: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %s is not a raster format", ErrUnsupportedFormat, f)
	}
	return buf.Bytes(), nil
}

func flatten(img image.Image, bg color.RGBA) *image.RGBA {
	opaque := color.RGBA{bg.R, bg.G, bg.B, 255}
	if bg.A == 0 {
		opaque = color.RGBA{255, 255, 255, 255}
	}
	b := img.Bounds()
	out := image.NewRGBA(b)
	draw.Draw(out, b, &image.Uniform{C: opaque}, image.Point{}, draw.Src)
	draw.Draw(out, b, img, b.Min, draw.Over)
	return out
}
