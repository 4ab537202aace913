package studio

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/cristianadrielbraun/qrstudio/internal/async"
	"github.com/cristianadrielbraun/qrstudio/internal/qr"
)

func quietLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

type fakeView struct {
	mu       sync.Mutex
	width    int
	shown    image.Image
	replaces int
	errMsg   string
	warning  string
	alerts   []string
	sizes    []int
	download bool
}

func (v *fakeView) ContainerWidth() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.width
}

func (v *fakeView) Replace(img image.Image) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.shown = img
	v.replaces++
}

func (v *fakeView) ShowError(msg string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.errMsg = msg
}

func (v *fakeView) ShowWarning(msg string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.warning = msg
}

func (v *fakeView) Alert(msg string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.alerts = append(v.alerts, msg)
}

func (v *fakeView) ReflectSize(size int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.sizes = append(v.sizes, size)
}

func (v *fakeView) SetDownloadVisible(visible bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.download = visible
}

func (v *fakeView) snapshot() fakeView {
	v.mu.Lock()
	defer v.mu.Unlock()
	return fakeView{
		width:    v.width,
		shown:    v.shown,
		replaces: v.replaces,
		errMsg:   v.errMsg,
		warning:  v.warning,
		alerts:   append([]string(nil), v.alerts...),
		sizes:    append([]int(nil), v.sizes...),
		download: v.download,
	}
}

// fakeEngine renders a solid square of the requested width. rawData, when
// set, replaces the PNG encoding returned by RawData. panics and fails
// apply to calls after the first okCalls.
type fakeEngine struct {
	mu      sync.Mutex
	calls   []qr.Options
	okCalls int
	panics  bool
	fails   error
	rawData func(call int, img image.Image) ([]byte, error)
}

func (e *fakeEngine) Name() string { return "fake" }

func (e *fakeEngine) Create(opts qr.Options) (qr.Instance, error) {
	e.mu.Lock()
	e.calls = append(e.calls, opts)
	call := len(e.calls)
	e.mu.Unlock()

	if call > e.okCalls {
		if e.panics {
			panic("boom")
		}
		if e.fails != nil {
			return nil, e.fails
		}
	}
	img := image.NewNRGBA(image.Rect(0, 0, opts.Width, opts.Height))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	return &fakeInstance{img: img, call: call, engine: e}, nil
}

func (e *fakeEngine) createCalls() []qr.Options {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]qr.Options(nil), e.calls...)
}

type fakeInstance struct {
	img    *image.NRGBA
	call   int
	engine *fakeEngine
}

func (i *fakeInstance) Image() image.Image { return i.img }

func (i *fakeInstance) Append(c qr.Container) { c.Replace(i.img) }

func (i *fakeInstance) RawData(ctx context.Context, f qr.Format) *async.Future[[]byte] {
	return async.Go(ctx, func(context.Context) ([]byte, error) {
		if i.engine.rawData != nil {
			return i.engine.rawData(i.call, i.img)
		}
		return encodePNG(i.img)
	})
}

func (i *fakeInstance) Download(ctx context.Context, name string, f qr.Format) (qr.File, error) {
	data, err := i.RawData(ctx, f).Await(ctx)
	if err != nil {
		return qr.File{}, err
	}
	return qr.File{Name: name + "." + f.Ext(), ContentType: f.ContentType(), Data: data}, nil
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

type fakeGlyphs struct {
	err error
}

func (g fakeGlyphs) Glyph(glyph string, size int, c color.Color) (image.Image, error) {
	if g.err != nil {
		return nil, g.err
	}
	return image.NewNRGBA(image.Rect(0, 0, size, size)), nil
}

var errFakeEngine = errors.New("engine exploded")
