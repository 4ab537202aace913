package qr

import (
	"context"
	"fmt"
	"image"
	"image/draw"

	"github.com/disintegration/imaging"

	"github.com/cristianadrielbraun/qrstudio/internal/async"
)

// Container is the display area an instance appends itself to.
type Container interface {
	Replace(content image.Image)
}

// Engine creates rendered QR instances.
type Engine interface {
	Name() string
	Create(opts Options) (Instance, error)
}

// Instance is one rendered QR code.
type Instance interface {
	// Image is the rendered bitmap, exactly Width x Height.
	Image() image.Image
	// Append replaces the container's content with this instance.
	Append(c Container)
	// RawData encodes the instance in the background.
	RawData(ctx context.Context, f Format) *async.Future[[]byte]
	// Download encodes the instance as name.<ext>.
	Download(ctx context.Context, name string, f Format) (File, error)
}

// NewEngine returns the engine registered under name.
func NewEngine(name string) (Engine, error) {
	switch name {
	case "", "standard":
		return NewStandardEngine(), nil
	case "basic":
		return NewBasicEngine(), nil
	}
	return nil, fmt.Errorf("unknown qr engine %q", name)
}

type rendered struct {
	opts   Options
	img    *image.NRGBA
	matrix func() ([][]bool, error)
}

func (r *rendered) Image() image.Image { return r.img }

func (r *rendered) Append(c Container) { c.Replace(r.img) }

func (r *rendered) RawData(ctx context.Context, f Format) *async.Future[[]byte] {
	return async.Go(ctx, func(context.Context) ([]byte, error) {
		return r.encode(f)
	})
}

func (r *rendered) Download(ctx context.Context, name string, f Format) (File, error) {
	data, err := r.RawData(ctx, f).Await(ctx)
	if err != nil {
		return File{}, err
	}
	return File{Name: name + "." + f.Ext(), ContentType: f.ContentType(), Data: data}, nil
}

func (r *rendered) encode(f Format) ([]byte, error) {
	if f == FormatSVG {
		m, err := r.matrix()
		if err != nil {
			return nil, fmt.Errorf("extract module matrix: %w", err)
		}
		return renderSVG(m, r.opts)
	}
	return EncodeImage(r.img, f, r.opts.Background)
}

func validateOptions(opts Options) error {
	if opts.Data == "" {
		return fmt.Errorf("qr data must not be empty")
	}
	if opts.Width <= 0 || opts.Height <= 0 {
		return fmt.Errorf("qr dimensions must be positive, got %dx%d", opts.Width, opts.Height)
	}
	if opts.Margin < 0 {
		return fmt.Errorf("qr margin must not be negative, got %d", opts.Margin)
	}
	return nil
}

// moduleSize is the whole-pixel module width that fits dim modules plus
// the margin into width. Writers take a uint8 module width.
func moduleSize(width, margin, dim int) int {
	if dim <= 0 {
		return 1
	}
	m := (width - 2*margin) / dim
	if m < 1 {
		m = 1
	}
	if m > 255 {
		m = 255
	}
	return m
}

// finish brings a writer's output to exactly Width x Height and draws the
// logo on top.
func finish(src image.Image, opts Options) *image.NRGBA {
	return overlayLogo(fitExact(src, opts), opts)
}

func fitExact(src image.Image, opts Options) *image.NRGBA {
	w, h := opts.Width, opts.Height
	b := src.Bounds()
	if b.Dx() > w || b.Dy() > h {
		// Nearest neighbour keeps module edges sharp.
		return imaging.Resize(src, w, h, imaging.NearestNeighbor)
	}
	canvas := imaging.New(w, h, opts.Background)
	return imaging.Paste(canvas, src, image.Pt((w-b.Dx())/2, (h-b.Dy())/2))
}

func overlayLogo(dst *image.NRGBA, opts Options) *image.NRGBA {
	if opts.Image == nil {
		return dst
	}
	b := dst.Bounds()
	lb := opts.Image.Bounds()
	x := (b.Dx() - lb.Dx()) / 2
	y := (b.Dy() - lb.Dy()) / 2

	if opts.ImageOptions.HideBackgroundDots {
		m := opts.ImageOptions.Margin
		clear := image.Rect(x-m, y-m, x+lb.Dx()+m, y+lb.Dy()+m).Intersect(b)
		draw.Draw(dst, clear, &image.Uniform{C: opts.Background}, image.Point{}, draw.Src)
	}
	return imaging.Overlay(dst, opts.Image, image.Pt(x, y), 1.0)
}
