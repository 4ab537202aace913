package qr

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image/png"
	"math"
	"strconv"
	"strings"
)

// renderSVG emits a vector rendering of the module matrix. Dark modules
// become rects or circles depending on the dot style; the logo is embedded
// as a PNG data URI.
func renderSVG(matrix [][]bool, opts Options) ([]byte, error) {
	dim := len(matrix)
	if dim == 0 {
		return nil, fmt.Errorf("invalid QR matrix dimension")
	}

	size := float64(opts.Width)
	margin := float64(opts.Margin)
	if size-2*margin <= 0 {
		margin = 0
	}
	cell := (size - 2*margin) / float64(dim)

	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	fmt.Fprintf(&sb, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %d %d" width="%d" height="%d">`,
		opts.Width, opts.Height, opts.Width, opts.Height)

	if opts.Background.A > 0 {
		fmt.Fprintf(&sb, `<rect width="%d" height="%d" fill="%s"/>`, opts.Width, opts.Height, HexColor(opts.Background))
	}

	fmt.Fprintf(&sb, `<g fill="%s">`, HexColor(opts.DotColor))
	for y, row := range matrix {
		for x, set := range row {
			if !set {
				continue
			}
			writeModule(&sb, opts.DotStyle, margin+float64(x)*cell, margin+float64(y)*cell, cell)
		}
	}
	sb.WriteString(`</g>`)

	if opts.Image != nil {
		if err := writeLogo(&sb, opts); err != nil {
			return nil, err
		}
	}

	sb.WriteString(`</svg>`)
	return []byte(sb.String()), nil
}

func writeModule(sb *strings.Builder, style DotStyle, x, y, cell float64) {
	switch style {
	case DotDots:
		r := cell / 2
		fmt.Fprintf(sb, `<circle cx="%s" cy="%s" r="%s"/>`, num(x+r), num(y+r), num(r))
	case DotRounded, DotClassy:
		fmt.Fprintf(sb, `<rect x="%s" y="%s" width="%s" height="%s" rx="%s"/>`, num(x), num(y), num(cell), num(cell), num(cell*0.35))
	case DotHStripe:
		h := cell * 0.85
		fmt.Fprintf(sb, `<rect x="%s" y="%s" width="%s" height="%s"/>`, num(x), num(y+(cell-h)/2), num(cell), num(h))
	case DotVStripe:
		w := cell * 0.85
		fmt.Fprintf(sb, `<rect x="%s" y="%s" width="%s" height="%s"/>`, num(x+(cell-w)/2), num(y), num(w), num(cell))
	default:
		fmt.Fprintf(sb, `<rect x="%s" y="%s" width="%s" height="%s"/>`, num(x), num(y), num(cell), num(cell))
	}
}

func writeLogo(sb *strings.Builder, opts Options) error {
	var buf bytes.Buffer
	if err := png.Encode(&buf, opts.Image); err != nil {
		return fmt.Errorf("encode logo: %w", err)
	}

	lb := opts.Image.Bounds()
	x := (opts.Width - lb.Dx()) / 2
	y := (opts.Height - lb.Dy()) / 2

	if opts.ImageOptions.HideBackgroundDots {
		m := opts.ImageOptions.Margin
		fill := HexColor(opts.Background)
		if opts.Background.A == 0 {
			fill = "#ffffff"
		}
		fmt.Fprintf(sb, `<rect x="%d" y="%d" width="%d" height="%d" fill="%s"/>`,
			x-m, y-m, lb.Dx()+2*m, lb.Dy()+2*m, fill)
	}
	fmt.Fprintf(sb, `<image x="%d" y="%d" width="%d" height="%d" href="data:image/png;base64,%s"/>`,
		x, y, lb.Dx(), lb.Dy(), base64.StdEncoding.EncodeToString(buf.Bytes()))
	return nil
}

func num(v float64) string {
	return strconv.FormatFloat(math.Round(v*1000)/1000, 'f', -1, 64)
}
