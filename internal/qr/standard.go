package qr

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"

	"github.com/yeqown/go-qrcode/v2"
	"github.com/yeqown/go-qrcode/writer/standard"
	"github.com/yeqown/go-qrcode/writer/standard/shapes"
)

// StandardEngine renders with yeqown/go-qrcode and its standard image
// writer. It supports every DotStyle.
type StandardEngine struct{}

// NewStandardEngine returns the default engine.
func NewStandardEngine() *StandardEngine { return &StandardEngine{} }

func (*StandardEngine) Name() string { return "standard" }

func (e *StandardEngine) Create(opts Options) (Instance, error) {
	if err := validateOptions(opts); err != nil {
		return nil, err
	}

	qrc, err := qrcode.NewWith(opts.Data, standardLevel(opts.ErrorCorrection))
	if err != nil {
		return nil, fmt.Errorf("create qr code: %w", err)
	}

	mod := moduleSize(opts.Width, opts.Margin, qrc.Dimension())
	img, err := writeStandard(qrc, imageOptions(opts, mod)...)
	if err != nil {
		return nil, fmt.Errorf("render qr code: %w", err)
	}

	return &rendered{
		opts:   opts,
		img:    finish(img, opts),
		matrix: func() ([][]bool, error) { return standardMatrix(qrc) },
	}, nil
}

func standardLevel(ec ErrorCorrection) qrcode.EncodeOption {
	switch ec {
	case ECLow:
		return qrcode.WithErrorCorrectionLevel(qrcode.ErrorCorrectionLow)
	case ECMedium:
		return qrcode.WithErrorCorrectionLevel(qrcode.ErrorCorrectionMedium)
	case ECQuartile:
		return qrcode.WithErrorCorrectionLevel(qrcode.ErrorCorrectionQuart)
	default:
		return qrcode.WithErrorCorrectionLevel(qrcode.ErrorCorrectionHighest)
	}
}

func imageOptions(opts Options, mod int) []standard.ImageOption {
	out := []standard.ImageOption{
		standard.WithQRWidth(uint8(mod)),
		standard.WithBorderWidth(opts.Margin),
		standard.WithBuiltinImageEncoder(standard.PNG_FORMAT),
	}

	if opts.Background.A == 0 {
		out = append(out, standard.WithBgTransparent())
	} else {
		out = append(out, standard.WithBgColor(opts.Background))
	}
	out = append(out, standard.WithFgColor(opts.DotColor))

	switch opts.DotStyle {
	case DotDots:
		out = append(out, standard.WithCircleShape())
	case DotRounded:
		out = append(out, standard.WithCustomShape(&customShape{drawFunc: shapes.LiquidBlock()}))
	case DotClassy:
		out = append(out, standard.WithCustomShape(&customShape{drawFunc: shapes.ChainBlock()}))
	case DotHStripe:
		out = append(out, standard.WithCustomShape(&customShape{drawFunc: shapes.HStripeBlock(0.85)}))
	case DotVStripe:
		out = append(out, standard.WithCustomShape(&customShape{drawFunc: shapes.VStripeBlock(0.85)}))
	}
	return out
}

func writeStandard(qrc *qrcode.QRCode, opts ...standard.ImageOption) (image.Image, error) {
	buf := &bufferCloser{}
	if err := qrc.Save(standard.NewWithWriter(buf, opts...)); err != nil {
		return nil, err
	}
	img, err := png.Decode(bytes.NewReader(buf.Bytes()))
	if err != nil {
		return nil, fmt.Errorf("decode writer output: %w", err)
	}
	return img, nil
}

// standardMatrix renders one pixel per module in black and white and reads
// the modules back; the writer does not expose the matrix directly.
func standardMatrix(qrc *qrcode.QRCode) ([][]bool, error) {
	img, err := writeStandard(qrc,
		standard.WithQRWidth(1),
		standard.WithBorderWidth(0),
		standard.WithBgColor(color.RGBA{255, 255, 255, 255}),
		standard.WithFgColor(color.RGBA{0, 0, 0, 255}),
		standard.WithBuiltinImageEncoder(standard.PNG_FORMAT),
	)
	if err != nil {
		return nil, err
	}
	return matrixFromImage(img), nil
}

func matrixFromImage(img image.Image) [][]bool {
	b := img.Bounds()
	m := make([][]bool, b.Dy())
	for y := range m {
		m[y] = make([]bool, b.Dx())
		for x := range m[y] {
			r, _, _, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			m[y][x] = r < 0x8000
		}
	}
	return m
}

type bufferCloser struct {
	bytes.Buffer
}

func (*bufferCloser) Close() error { return nil }

// customShape adapts a shapes draw function to standard.IShape.
type customShape struct {
	drawFunc func(ctx *standard.DrawContext)
}

func (cs *customShape) Draw(ctx *standard.DrawContext) {
	cs.drawFunc(ctx)
}

// DrawFinder uses the block shape for finder patterns too.
func (cs *customShape) DrawFinder(ctx *standard.DrawContext) {
	cs.drawFunc(ctx)
}
