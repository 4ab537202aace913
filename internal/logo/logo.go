// Package logo turns a glyph or an uploaded image into the square bitmap
// embedded at the center of a QR code.
package logo

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"math"
	"os"
	"unicode"
	"unicode/utf8"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	"github.com/gogpu/gg/text/emoji"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"
)

// ErrMissingGlyph is returned when no configured font can draw a glyph.
var ErrMissingGlyph = errors.New("glyph not available in font")

// EmojiSource draws color emoji sequences.
type EmojiSource interface {
	Render(seq string, ppem int, fg color.Color) (image.Image, error)
}

// Rasterizer draws text glyphs with one outline font and emoji with an
// optional color font. It is safe for concurrent use.
type Rasterizer struct {
	font  *opentype.Font
	emoji EmojiSource
}

// NewRasterizer parses fontData (TTF or OTF). Nil data selects Go Regular.
func NewRasterizer(fontData []byte) (*Rasterizer, error) {
	if fontData == nil {
		fontData = goregular.TTF
	}
	f, err := opentype.Parse(fontData)
	if err != nil {
		return nil, fmt.Errorf("parse glyph font: %w", err)
	}
	return &Rasterizer{font: f}, nil
}

// NewRasterizerFromFile loads the font at path, or Go Regular when path is
// empty.
func NewRasterizerFromFile(path string) (*Rasterizer, error) {
	if path == "" {
		return NewRasterizer(nil)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read glyph font: %w", err)
	}
	return NewRasterizer(data)
}

// WithEmoji returns a copy of r that draws emoji sequences with src. A nil
// src leaves emoji to the outline font.
func (r *Rasterizer) WithEmoji(src EmojiSource) *Rasterizer {
	cp := *r
	cp.emoji = src
	return &cp
}

func (r *Rasterizer) face(size float64) (font.Face, error) {
	face, err := opentype.NewFace(r.font, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("create glyph face (size=%.1f): %w", size, err)
	}
	return face, nil
}

// Glyph draws glyph centered on a transparent size x size square. The glyph
// is 80% of the square and nudged down by 5% so most glyphs look optically
// centered. Emoji sequences use the color font when one is configured.
// Glyphs no font can draw fail with ErrMissingGlyph.
func (r *Rasterizer) Glyph(glyph string, size int, c color.Color) (image.Image, error) {
	if glyph == "" {
		return nil, fmt.Errorf("glyph must not be empty")
	}
	if size <= 0 {
		return nil, fmt.Errorf("glyph size must be positive, got %d", size)
	}

	if r.emoji != nil && startsWithEmoji(glyph) {
		return r.colorGlyph(glyph, size, c)
	}

	base, _ := utf8.DecodeRuneInString(glyph)
	if idx, err := r.font.GlyphIndex(&sfnt.Buffer{}, base); err != nil || idx == 0 {
		return nil, fmt.Errorf("glyph %q: %w", glyph, ErrMissingGlyph)
	}

	face, err := r.face(float64(size) * 0.8)
	if err != nil {
		return nil, err
	}
	defer face.Close()

	dc := gg.NewContext(size, size)
	dc.SetFontFace(face)
	dc.SetColor(c)
	half := float64(size) / 2
	dc.DrawStringAnchored(glyph, half, half+float64(size)*0.05, 0.5, 0.5)
	return dc.Image(), nil
}

func (r *Rasterizer) colorGlyph(glyph string, size int, c color.Color) (image.Image, error) {
	inner := max(1, int(math.Round(float64(size)*0.8)))
	img, err := r.emoji.Render(glyph, inner, c)
	if err != nil {
		return nil, err
	}
	fitted := Fit(img, inner)
	off := (size - inner) / 2
	canvas := imaging.New(size, size, color.NRGBA{})
	return imaging.Paste(canvas, fitted, image.Pt(off, off+int(float64(size)*0.05))), nil
}

// Decode reads a PNG, JPEG or SVG logo and fits it into a size x size
// square, preserving its aspect ratio.
func Decode(r io.Reader, size int) (image.Image, error) {
	if size <= 0 {
		return nil, fmt.Errorf("logo size must be positive, got %d", size)
	}

	br := bufio.NewReader(r)
	if looksLikeSVG(br) {
		return decodeSVG(br, size)
	}

	img, err := imaging.Decode(br, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode logo: %w", err)
	}
	return Fit(img, size), nil
}

func looksLikeSVG(br *bufio.Reader) bool {
	head, _ := br.Peek(512)
	head = bytes.TrimSpace(head)
	return bytes.HasPrefix(head, []byte("<?xml")) || bytes.HasPrefix(head, []byte("<svg")) || bytes.Contains(head, []byte("<svg"))
}

func decodeSVG(r io.Reader, size int) (image.Image, error) {
	icon, err := oksvg.ReadIconStream(r)
	if err != nil {
		return nil, fmt.Errorf("parse svg logo: %w", err)
	}

	w, h := float64(size), float64(size)
	if vw, vh := icon.ViewBox.W, icon.ViewBox.H; vw > 0 && vh > 0 {
		if vw > vh {
			h = w * vh / vw
		} else {
			w = h * vw / vh
		}
	}
	x, y := (float64(size)-w)/2, (float64(size)-h)/2
	icon.SetTarget(x, y, w, h)

	canvas := image.NewRGBA(image.Rect(0, 0, size, size))
	scanner := rasterx.NewScannerGV(size, size, canvas, canvas.Bounds())
	icon.Draw(rasterx.NewDasher(size, size, scanner), 1.0)
	return canvas, nil
}

// Fit scales img down into a size x size transparent square, centered.
func Fit(img image.Image, size int) image.Image {
	fitted := imaging.Fit(img, size, size, imaging.Lanczos)
	b := fitted.Bounds()
	if b.Dx() == size && b.Dy() == size {
		return fitted
	}
	canvas := imaging.New(size, size, color.NRGBA{})
	return imaging.Paste(canvas, fitted, image.Pt((size-b.Dx())/2, (size-b.Dy())/2))
}

// FirstGlyph returns the first user-perceived character of s. Emoji keep
// their whole sequence (flags, keycaps, ZWJ and skin tones); other text
// keeps the first rune with its combining marks.
func FirstGlyph(s string) string {
	runs := emoji.Segment(s)
	if len(runs) == 0 {
		return ""
	}
	if runs[0].IsEmoji {
		if seqs := emoji.ParseString(runs[0].Text); len(seqs) > 0 {
			first := seqs[0].String()
			// Modifiers after bases the segmenter does not know still belong
			// to the preceding emoji.
			if len(seqs) > 1 && seqs[1].Len() == 1 && emoji.IsEmojiModifier(seqs[1].BaseCodepoint) {
				first += seqs[1].String()
			}
			return first
		}
	}

	_, end := utf8.DecodeRuneInString(s)
	for end < len(s) {
		r, n := utf8.DecodeRuneInString(s[end:])
		if !unicode.In(r, unicode.Mn, unicode.Me) && !emoji.IsVariationSelector(r) {
			break
		}
		end += n
	}
	return s[:end]
}

func startsWithEmoji(s string) bool {
	runs := emoji.Segment(s)
	return len(runs) > 0 && runs[0].IsEmoji
}
