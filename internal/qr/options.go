// Package qr adapts third-party QR libraries to the narrow contract the
// studio consumes: create an instance from options, append it to a display
// container, retrieve its encoded bytes asynchronously and download it.
package qr

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"strconv"
	"strings"
)

// DotStyle selects how data modules are drawn.
type DotStyle string

const (
	DotSquare  DotStyle = "square"
	DotDots    DotStyle = "dots"
	DotRounded DotStyle = "rounded"
	DotClassy  DotStyle = "classy"
	DotHStripe DotStyle = "hstripe"
	DotVStripe DotStyle = "vstripe"
)

var dotAliases = map[string]DotStyle{
	"square":         DotSquare,
	"rectangle":      DotSquare,
	"dots":           DotDots,
	"circle":         DotDots,
	"rounded":        DotRounded,
	"extra-rounded":  DotRounded,
	"liquid":         DotRounded,
	"classy":         DotClassy,
	"classy-rounded": DotClassy,
	"chain":          DotClassy,
	"hstripe":        DotHStripe,
	"vstripe":        DotVStripe,
}

// ErrUnknownDotStyle is returned by ParseDotStyle for unsupported names.
var ErrUnknownDotStyle = errors.New("unknown dot style")

// ParseDotStyle maps a style name (or one of its aliases) to a DotStyle.
func ParseDotStyle(s string) (DotStyle, error) {
	if s == "" {
		return DotSquare, nil
	}
	if d, ok := dotAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return d, nil
	}
	return DotSquare, fmt.Errorf("%w: %s", ErrUnknownDotStyle, s)
}

// Format is an export format.
type Format string

const (
	FormatPNG  Format = "png"
	FormatJPEG Format = "jpeg"
	FormatSVG  Format = "svg"
	FormatWebP Format = "webp"
)

// ErrUnsupportedFormat is returned by ParseFormat for unknown extensions.
var ErrUnsupportedFormat = errors.New("unsupported format")

// ParseFormat maps an extension to a Format. An empty string means PNG.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ".")) {
	case "", "png":
		return FormatPNG, nil
	case "jpg", "jpeg":
		return FormatJPEG, nil
	case "svg":
		return FormatSVG, nil
	case "webp":
		return FormatWebP, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, s)
}

// Ext is the file extension for f, without the dot.
func (f Format) Ext() string { return string(f) }

// ContentType is the MIME type for f.
func (f Format) ContentType() string {
	switch f {
	case FormatJPEG:
		return "image/jpeg"
	case FormatSVG:
		return "image/svg+xml"
	case FormatWebP:
		return "image/webp"
	default:
		return "image/png"
	}
}

// Raster reports whether f is a bitmap format.
func (f Format) Raster() bool { return f != FormatSVG }

// ErrorCorrection is the QR error-correction level.
type ErrorCorrection int

const (
	ECLow ErrorCorrection = iota
	ECMedium
	ECQuartile
	ECHigh
)

// ImageOptions controls placement of an embedded logo.
type ImageOptions struct {
	// HideBackgroundDots clears the modules under the logo and its margin.
	HideBackgroundDots bool
	// Margin is the gap in pixels kept around the logo.
	Margin int
}

// Options describes one QR rendering.
type Options struct {
	Data       string
	Width      int
	Height     int
	Margin     int
	DotColor   color.RGBA
	DotStyle   DotStyle
	Background color.RGBA
	// Image is drawn centered at its own size when set.
	Image           image.Image
	ImageOptions    ImageOptions
	ErrorCorrection ErrorCorrection
}

// File is a downloadable artifact.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// ParseColor parses #rrggbb, #rgb or "transparent". Anything else yields
// fallback.
func ParseColor(param string, fallback color.RGBA) color.RGBA {
	param = strings.TrimSpace(param)
	if param == "" {
		return fallback
	}
	if strings.EqualFold(param, "transparent") {
		return color.RGBA{}
	}

	param = strings.TrimPrefix(param, "#")
	if len(param) == 3 {
		param = string([]byte{param[0], param[0], param[1], param[1], param[2], param[2]})
	}
	if len(param) != 6 {
		return fallback
	}

	r, err1 := strconv.ParseUint(param[0:2], 16, 8)
	g, err2 := strconv.ParseUint(param[2:4], 16, 8)
	b, err3 := strconv.ParseUint(param[4:6], 16, 8)
	if err1 != nil || err2 != nil || err3 != nil {
		return fallback
	}
	return color.RGBA{uint8(r), uint8(g), uint8(b), 255}
}

// HexColor formats c as #rrggbb, or "transparent" for a zero alpha.
func HexColor(c color.RGBA) string {
	if c.A == 0 {
		return "transparent"
	}
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
