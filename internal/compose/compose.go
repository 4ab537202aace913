// Package compose flattens a rendered QR bitmap, optional captions and
// outer padding into one output surface.
//
// Captions are drawn on a single line and never wrapped or truncated; text
// wider than the surface is clipped at its edges.
package compose

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/fogleman/gg"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/opentype"
)

// Params are the caption and padding inputs for one composite.
type Params struct {
	CaptionTop    string
	CaptionBottom string
	Padding       int
	Foreground    color.Color
	Background    color.Color
}

// Layout is the arithmetic behind a composite.
type Layout struct {
	QRSize     int
	FontSize   int
	LineHeight float64
	CaptionGap int
	Padding    int
	Width      int
	Height     int
	// TopY and BottomY are the vertical centers of the captions; zero
	// when the caption is absent.
	TopY    float64
	QRY     int
	BottomY float64
}

// Measure computes the layout for a QR bitmap qrSize pixels wide.
func Measure(qrSize, padding int, hasTop, hasBottom bool) Layout {
	l := Layout{
		QRSize:     qrSize,
		FontSize:   max(12, int(math.Floor(float64(qrSize)*0.05))),
		CaptionGap: max(5, int(math.Floor(float64(qrSize)*0.03))),
		Padding:    padding,
	}
	l.LineHeight = float64(l.FontSize) * 1.2
	band := l.LineHeight + float64(l.CaptionGap)

	height := float64(2*padding + qrSize)
	cursor := float64(padding)
	if hasTop {
		l.TopY = float64(padding) + l.LineHeight/2
		cursor += band
		height += band
	}
	l.QRY = int(math.Floor(cursor))
	cursor += float64(qrSize)
	if hasBottom {
		cursor += float64(l.CaptionGap)
		l.BottomY = cursor + l.LineHeight/2
		height += band
	}

	l.Width = 2*padding + qrSize
	l.Height = int(math.Ceil(height))
	return l
}

// Surface is a composited output bitmap.
type Surface struct {
	Image  image.Image
	Layout Layout
}

func (s *Surface) Width() int  { return s.Layout.Width }
func (s *Surface) Height() int { return s.Layout.Height }

// Compositor draws composites. It is safe for concurrent use; a face is
// opened per call because font.Face is not.
type Compositor struct {
	font *opentype.Font
}

// New returns a Compositor drawing captions in Go Mono.
func New() (*Compositor, error) {
	f, err := opentype.Parse(gomono.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse caption font: %w", err)
	}
	return &Compositor{font: f}, nil
}

func (c *Compositor) face(size int) (font.Face, error) {
	face, err := opentype.NewFace(c.font, &opentype.FaceOptions{
		Size:    float64(size),
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("create caption face (size=%d): %w", size, err)
	}
	return face, nil
}

// Compose draws qr at its native size inside padding, with the captions
// above and below it. The bitmap's own width is authoritative for the
// layout.
func (c *Compositor) Compose(qr image.Image, p Params) (*Surface, error) {
	if qr == nil {
		return nil, fmt.Errorf("compose: missing qr bitmap")
	}
	b := qr.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, fmt.Errorf("compose: qr bitmap has zero dimensions")
	}
	if p.Padding < 0 {
		return nil, fmt.Errorf("compose: padding must not be negative, got %d", p.Padding)
	}

	l := Measure(b.Dx(), p.Padding, p.CaptionTop != "", p.CaptionBottom != "")

	dc := gg.NewContext(l.Width, l.Height)
	dc.SetColor(p.Background)
	dc.Clear()

	if p.CaptionTop != "" || p.CaptionBottom != "" {
		face, err := c.face(l.FontSize)
		if err != nil {
			return nil, err
		}
		defer face.Close()
		dc.SetFontFace(face)
	}

	center := float64(l.Width) / 2
	if p.CaptionTop != "" {
		dc.SetColor(p.Foreground)
		dc.DrawStringAnchored(p.CaptionTop, center, l.TopY, 0.5, 0.5)
	}

	dc.DrawImage(qr, p.Padding-b.Min.X, l.QRY-b.Min.Y)

	if p.CaptionBottom != "" {
		dc.SetColor(p.Foreground)
		dc.DrawStringAnchored(p.CaptionBottom, center, l.BottomY, 0.5, 0.5)
	}

	return &Surface{Image: dc.Image(), Layout: l}, nil
}
