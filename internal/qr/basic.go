package qr

import (
	"fmt"
	"image"
	"image/color"

	"github.com/boombuler/barcode"
	bqr "github.com/boombuler/barcode/qr"
	"github.com/disintegration/imaging"
)

// BasicEngine renders with boombuler/barcode. It draws square modules only;
// DotStyle is ignored.
type BasicEngine struct{}

// NewBasicEngine returns the square-module engine.
func NewBasicEngine() *BasicEngine { return &BasicEngine{} }

func (*BasicEngine) Name() string { return "basic" }

func (e *BasicEngine) Create(opts Options) (Instance, error) {
	if err := validateOptions(opts); err != nil {
		return nil, err
	}

	code, err := bqr.Encode(opts.Data, basicLevel(opts.ErrorCorrection), bqr.Auto)
	if err != nil {
		return nil, fmt.Errorf("encode qr code: %w", err)
	}

	dim := code.Bounds().Dx()
	mod := moduleSize(opts.Width, opts.Margin, dim)
	scaled, err := barcode.Scale(code, dim*mod, dim*mod)
	if err != nil {
		return nil, fmt.Errorf("scale qr code: %w", err)
	}

	side := dim*mod + 2*opts.Margin
	canvas := imaging.New(side, side, opts.Background)
	canvas = imaging.Paste(canvas, recolor(scaled, opts.DotColor, opts.Background), image.Pt(opts.Margin, opts.Margin))

	matrix := matrixFromImage(code)
	return &rendered{
		opts:   opts,
		img:    finish(canvas, opts),
		matrix: func() ([][]bool, error) { return matrix, nil },
	}, nil
}

func basicLevel(ec ErrorCorrection) bqr.ErrorCorrectionLevel {
	switch ec {
	case ECLow:
		return bqr.L
	case ECMedium:
		return bqr.M
	case ECQuartile:
		return bqr.Q
	default:
		return bqr.H
	}
}

// recolor maps the black/white barcode bitmap onto fg/bg.
func recolor(src image.Image, fg, bg color.RGBA) *image.NRGBA {
	b := src.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	dark := color.NRGBAModel.Convert(fg)
	light := color.NRGBAModel.Convert(bg)
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			r, _, _, _ := src.At(b.Min.X+x, b.Min.Y+y).RGBA()
			if r < 0x8000 {
				out.Set(x, y, dark)
			} else {
				out.Set(x, y, light)
			}
		}
	}
	return out
}
