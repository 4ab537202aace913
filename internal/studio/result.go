package studio

import (
	"context"
	"fmt"
	"image"
	"image/color"

	"github.com/cristianadrielbraun/qrstudio/internal/compose"
	"github.com/cristianadrielbraun/qrstudio/internal/qr"
)

const (
	nativeName    = "qrcode"
	compositeName = "qrcode_custom"
)

// Result is the committed output of a regeneration: either the library's
// own instance or a composite surface.
type Result interface {
	// Kind is "native" or "composite".
	Kind() string
	Image() image.Image
	Bounds() image.Rectangle
}

// NativeResult is a library instance displayed as-is.
type NativeResult struct {
	Instance qr.Instance
}

func (r *NativeResult) Kind() string            { return "native" }
func (r *NativeResult) Image() image.Image      { return r.Instance.Image() }
func (r *NativeResult) Bounds() image.Rectangle { return r.Instance.Image().Bounds() }

func (r *NativeResult) download(ctx context.Context, f qr.Format) (qr.File, error) {
	return r.Instance.Download(ctx, nativeName, f)
}

// CompositeResult is a captioned or padded surface. Native is the
// instance it was drawn from, used for vector and webp export.
type CompositeResult struct {
	Surface    *compose.Surface
	Native     qr.Instance
	Background color.RGBA
}

func (r *CompositeResult) Kind() string       { return "composite" }
func (r *CompositeResult) Image() image.Image { return r.Surface.Image }
func (r *CompositeResult) Bounds() image.Rectangle {
	return image.Rect(0, 0, r.Surface.Width(), r.Surface.Height())
}

// download encodes the surface for png and jpeg. Other formats are served
// from the native instance and reported through fellBack.
func (r *CompositeResult) download(ctx context.Context, f qr.Format) (file qr.File, fellBack bool, err error) {
	if f == qr.FormatSVG || f == qr.FormatWebP {
		file, err = r.Native.Download(ctx, nativeName, f)
		return file, true, err
	}
	data, err := qr.EncodeImage(r.Surface.Image, f, r.Background)
	if err != nil {
		return qr.File{}, false, fmt.Errorf("encode composite: %w", err)
	}
	return qr.File{Name: compositeName + "." + f.Ext(), ContentType: f.ContentType(), Data: data}, false, nil
}
