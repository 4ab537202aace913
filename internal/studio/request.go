package studio

import (
	"image"
	"image/color"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/cristianadrielbraun/qrstudio/internal/compose"
	"github.com/cristianadrielbraun/qrstudio/internal/logo"
	"github.com/cristianadrielbraun/qrstudio/internal/qr"
)

var allowedPrefix = regexp.MustCompile(`(?i)^(https?://|www\.)`)

var (
	defaultForeground = color.RGBA{0, 0, 0, 255}
	defaultBackground = color.RGBA{255, 255, 255, 255}
)

// Limits bound the rendered size.
type Limits struct {
	// DefaultSize replaces a missing or non-positive size.
	DefaultSize int
	// MinSize is the floor applied to the available container width.
	MinSize int
	// LogoRatio is the logo edge as a fraction of the QR edge.
	LogoRatio float64
}

// DefaultLimits returns the stock limits.
func DefaultLimits() Limits {
	return Limits{DefaultSize: 256, MinSize: 100, LogoRatio: 0.3}
}

// RenderRequest is a validated snapshot of the form for one attempt.
type RenderRequest struct {
	Text          string
	PixelSize     int
	Foreground    color.RGBA
	Background    color.RGBA
	DotStyle      qr.DotStyle
	Margin        int
	Glyph         string
	Logo          image.Image
	CaptionTop    string
	CaptionBottom string
	Padding       int
}

// NeedsComposite reports whether captions or padding require the
// composite path.
func (r RenderRequest) NeedsComposite() bool {
	return r.CaptionTop != "" || r.CaptionBottom != "" || r.Padding > 0
}

// LogoSize is the edge of the embedded logo in pixels.
func (r RenderRequest) LogoSize(ratio float64) int {
	return max(1, int(math.Round(float64(r.PixelSize)*ratio)))
}

// LogoMargin is the cleared gap around the logo in pixels.
func (r RenderRequest) LogoMargin() int {
	return max(2, r.PixelSize/64)
}

// Options builds library options, embedding img as the logo when set.
func (r RenderRequest) Options(img image.Image) qr.Options {
	opts := qr.Options{
		Data:            r.Text,
		Width:           r.PixelSize,
		Height:          r.PixelSize,
		Margin:          r.Margin,
		DotColor:        r.Foreground,
		DotStyle:        r.DotStyle,
		Background:      r.Background,
		ErrorCorrection: qr.ECHigh,
	}
	if img != nil {
		opts.Image = img
		opts.ImageOptions = qr.ImageOptions{HideBackgroundDots: true, Margin: r.LogoMargin()}
	}
	return opts
}

// CompositeParams are the compositor inputs for this request.
func (r RenderRequest) CompositeParams() compose.Params {
	return compose.Params{
		CaptionTop:    r.CaptionTop,
		CaptionBottom: r.CaptionBottom,
		Padding:       r.Padding,
		Foreground:    r.Foreground,
		Background:    r.Background,
	}
}

// Validate turns form into a RenderRequest. Text is checked first for
// presence, then for an allowed prefix; either failure is returned as a
// *Error. A missing or non-positive size is replaced by lim.DefaultSize
// and reported through sizeCorrected rather than failing.
func Validate(form FormState, lim Limits) (req RenderRequest, sizeCorrected bool, err error) {
	text := strings.TrimSpace(form.Text)
	if text == "" {
		return RenderRequest{}, false, newError(CodeEmptyInput, msgEmptyInput, nil)
	}
	if !allowedPrefix.MatchString(text) {
		return RenderRequest{}, false, newError(CodeInvalidFormat, msgInvalidFormat, nil)
	}

	size, convErr := strconv.Atoi(strings.TrimSpace(form.Size))
	if convErr != nil || size <= 0 {
		size = lim.DefaultSize
		sizeCorrected = true
	}

	dot, dotErr := qr.ParseDotStyle(form.DotStyle)
	if dotErr != nil {
		dot = qr.DotSquare
	}

	return RenderRequest{
		Text:          text,
		PixelSize:     size,
		Foreground:    qr.ParseColor(form.Foreground, defaultForeground),
		Background:    qr.ParseColor(form.Background, defaultBackground),
		DotStyle:      dot,
		Margin:        nonNegative(form.Margin),
		Glyph:         logo.FirstGlyph(strings.TrimSpace(form.Glyph)),
		Logo:          form.Logo,
		CaptionTop:    strings.TrimSpace(form.CaptionTop),
		CaptionBottom: strings.TrimSpace(form.CaptionBottom),
		Padding:       nonNegative(form.Padding),
	}, sizeCorrected, nil
}

// ClampSize limits size to the available width. The available width is
// itself floored at minSize; a non-positive available width means
// unknown and leaves size alone.
func ClampSize(size, available, minSize int) int {
	if available <= 0 {
		return size
	}
	limit := max(available, minSize)
	return min(size, limit)
}

func nonNegative(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return 0
	}
	return n
}
