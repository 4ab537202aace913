package logo

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/color"
	"os"
	"sync"

	"github.com/go-text/typesetting/di"
	gtfont "github.com/go-text/typesetting/font"
	"github.com/go-text/typesetting/language"
	"github.com/go-text/typesetting/shaping"
	"github.com/gogpu/gg/text/emoji"
	"golang.org/x/image/font"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"
)

// ErrNoColorTables is returned for fonts without CBDT, sbix or COLR data.
var ErrNoColorTables = errors.New("font has no color emoji tables")

// SystemEmojiFonts lists where color emoji fonts are usually installed.
var SystemEmojiFonts = []string{
	"/usr/share/fonts/truetype/noto/NotoColorEmoji.ttf",
	"/usr/share/fonts/noto/NotoColorEmoji.ttf",
	"/usr/share/fonts/google-noto-emoji/NotoColorEmoji.ttf",
	"/usr/share/fonts/truetype/twemoji/TwitterColorEmoji-SVGinOT.ttf",
	"C:/Windows/Fonts/seguiemj.ttf",
}

// EmojiFont draws color emoji from a CBDT/CBLC, sbix or COLR/CPAL font.
// It is safe for concurrent use.
type EmojiFont struct {
	shapeFont *gtfont.Font
	shapers   sync.Pool

	mu       sync.Mutex // the CBDT extractor parses index subtables lazily
	cbdt     *emoji.CBDTExtractor
	sbix     *emoji.SBIXParser
	colr     *emoji.COLRParser
	outlines *sfnt.Font
}

// ParseEmojiFont reads a single-font TTF/OTF file with color tables.
func ParseEmojiFont(data []byte) (*EmojiFont, error) {
	if len(data) < 12 {
		return nil, fmt.Errorf("parse emoji font: %d bytes is too short", len(data))
	}
	if string(data[:4]) == "ttcf" {
		return nil, errors.New("parse emoji font: font collections are not supported")
	}

	face, err := gtfont.ParseTTF(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse emoji font: %w", err)
	}
	f := &EmojiFont{shapeFont: face.Font}
	f.shapers.New = func() any { return &shaping.HarfbuzzShaper{} }

	if cbdt, cblc := table(data, "CBDT"), table(data, "CBLC"); cbdt != nil && cblc != nil {
		if f.cbdt, err = emoji.NewCBDTExtractor(cbdt, cblc); err != nil {
			return nil, fmt.Errorf("parse CBDT: %w", err)
		}
	}
	if sbix, maxp := table(data, "sbix"), table(data, "maxp"); sbix != nil && len(maxp) >= 6 {
		if f.sbix, err = emoji.NewSBIXParser(sbix, binary.BigEndian.Uint16(maxp[4:6])); err != nil {
			return nil, fmt.Errorf("parse sbix: %w", err)
		}
	}
	if colr, cpal := table(data, "COLR"), table(data, "CPAL"); colr != nil && cpal != nil {
		if f.colr, err = emoji.NewCOLRParser(colr, cpal); err != nil {
			return nil, fmt.Errorf("parse COLR: %w", err)
		}
		if f.outlines, err = sfnt.Parse(data); err != nil {
			return nil, fmt.Errorf("parse COLR outlines: %w", err)
		}
	}

	if f.cbdt == nil && f.sbix == nil && f.colr == nil {
		return nil, ErrNoColorTables
	}
	return f, nil
}

// LoadEmojiFont reads the emoji font at path. An empty path tries
// SystemEmojiFonts and returns nil without error when none is installed.
func LoadEmojiFont(path string) (*EmojiFont, error) {
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read emoji font: %w", err)
		}
		return ParseEmojiFont(data)
	}
	for _, p := range SystemEmojiFonts {
		data, err := os.ReadFile(p)
		if err != nil {
			continue
		}
		if f, err := ParseEmojiFont(data); err == nil {
			return f, nil
		}
	}
	return nil, nil
}

// Render draws the emoji sequence seq at roughly ppem pixels. COLR layers
// marked as foreground use fg. The result is cropped to its painted area.
func (f *EmojiFont) Render(seq string, ppem int, fg color.Color) (image.Image, error) {
	gid, err := f.glyphID(seq, ppem)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.colr != nil && f.colr.HasGlyph(gid) {
		return f.renderCOLR(gid, ppem, color.RGBAModel.Convert(fg).(color.RGBA))
	}
	if f.cbdt != nil && f.cbdt.HasGlyph(gid) {
		g, err := f.cbdt.GetGlyph(gid, uint16(ppem))
		if err != nil {
			return nil, fmt.Errorf("emoji %q: %w", seq, err)
		}
		return decodeBitmap(seq, g)
	}
	if f.sbix != nil {
		strike := f.sbix.BestStrikeForPPEM(uint16(ppem))
		if f.sbix.HasGlyph(int(gid), strike) {
			g, err := f.sbix.GetGlyph(int(gid), strike)
			if err != nil {
				return nil, fmt.Errorf("emoji %q: %w", seq, err)
			}
			return decodeBitmap(seq, g)
		}
	}
	return nil, fmt.Errorf("emoji %q: %w", seq, ErrMissingGlyph)
}

// glyphID shapes seq so ZWJ, flag and keycap sequences resolve to the
// font's ligature glyph. Without a ligature the first glyph is used.
func (f *EmojiFont) glyphID(seq string, ppem int) (uint16, error) {
	runes := []rune(seq)
	if len(runes) == 0 {
		return 0, fmt.Errorf("emoji: %w", ErrMissingGlyph)
	}

	hb := f.shapers.Get().(*shaping.HarfbuzzShaper)
	out := hb.Shape(shaping.Input{
		Text:      runes,
		RunStart:  0,
		RunEnd:    len(runes),
		Direction: di.DirectionLTR,
		Face:      gtfont.NewFace(f.shapeFont),
		Size:      fixed.I(ppem),
		Script:    language.LookupScript(runes[0]),
		Language:  language.NewLanguage("en"),
	})
	f.shapers.Put(hb)

	if len(out.Glyphs) == 0 || out.Glyphs[0].GlyphID == 0 {
		return 0, fmt.Errorf("emoji %q: %w", seq, ErrMissingGlyph)
	}
	return uint16(out.Glyphs[0].GlyphID), nil
}

func (f *EmojiFont) renderCOLR(gid uint16, ppem int, fg color.RGBA) (image.Image, error) {
	g, err := f.colr.GetGlyph(gid, 0)
	if err != nil {
		return nil, err
	}

	var buf sfnt.Buffer
	m, err := f.outlines.Metrics(&buf, fixed.I(ppem), font.HintingNone)
	if err != nil {
		return nil, fmt.Errorf("emoji metrics: %w", err)
	}
	// Glyphs can overhang the em box, so draw on a wider canvas and crop.
	side := ppem * 2
	origin := fixed.Point26_6{X: fixed.I(ppem / 2), Y: m.Ascent + fixed.I(ppem/2)}

	layer := func(id uint16) *image.Alpha {
		segs, err := f.outlines.LoadGlyph(&buf, sfnt.GlyphIndex(id), fixed.I(ppem), nil)
		if err != nil {
			return nil
		}
		return rasterize(segs, origin, side)
	}
	img := emoji.RenderCOLRToImage(g, layer, side, side, fg)
	if img == nil {
		return nil, fmt.Errorf("emoji glyph %d: %w", gid, ErrMissingGlyph)
	}
	return crop(img), nil
}

func decodeBitmap(seq string, g *emoji.BitmapGlyph) (image.Image, error) {
	img, err := g.Decode()
	if err != nil {
		return nil, fmt.Errorf("decode emoji %q: %w", seq, err)
	}
	return crop(img), nil
}

func rasterize(segs sfnt.Segments, origin fixed.Point26_6, side int) *image.Alpha {
	pt := func(p fixed.Point26_6) (float32, float32) {
		return float32(p.X+origin.X) / 64, float32(p.Y+origin.Y) / 64
	}
	z := vector.NewRasterizer(side, side)
	for _, s := range segs {
		switch s.Op {
		case sfnt.SegmentOpMoveTo:
			z.MoveTo(pt(s.Args[0]))
		case sfnt.SegmentOpLineTo:
			z.LineTo(pt(s.Args[0]))
		case sfnt.SegmentOpQuadTo:
			x1, y1 := pt(s.Args[0])
			x2, y2 := pt(s.Args[1])
			z.QuadTo(x1, y1, x2, y2)
		case sfnt.SegmentOpCubeTo:
			x1, y1 := pt(s.Args[0])
			x2, y2 := pt(s.Args[1])
			x3, y3 := pt(s.Args[2])
			z.CubeTo(x1, y1, x2, y2, x3, y3)
		}
	}
	z.ClosePath()
	dst := image.NewAlpha(image.Rect(0, 0, side, side))
	z.Draw(dst, dst.Bounds(), image.Opaque, image.Point{})
	return dst
}

// crop trims fully transparent rows and columns.
func crop(img image.Image) image.Image {
	b := img.Bounds()
	ink := image.Rectangle{}
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if _, _, _, a := img.At(x, y).RGBA(); a > 0 {
				ink = ink.Union(image.Rect(x, y, x+1, y+1))
			}
		}
	}
	if ink.Empty() {
		return img
	}
	sub, ok := img.(interface {
		SubImage(image.Rectangle) image.Image
	})
	if !ok {
		return img
	}
	return sub.SubImage(ink)
}

// table returns the raw bytes of an OpenType table, or nil.
func table(data []byte, tag string) []byte {
	numTables := int(binary.BigEndian.Uint16(data[4:6]))
	for i, off := 0, 12; i < numTables && off+16 <= len(data); i, off = i+1, off+16 {
		if string(data[off:off+4]) != tag {
			continue
		}
		start := binary.BigEndian.Uint32(data[off+8 : off+12])
		n := binary.BigEndian.Uint32(data[off+12 : off+16])
		if uint64(start)+uint64(n) > uint64(len(data)) {
			return nil
		}
		return data[start : start+n]
	}
	return nil
}
