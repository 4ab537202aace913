package logo

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"strings"
	"sync"
	"testing"

	"golang.org/x/image/font/gofont/goregular"
)

func TestGlyphDrawsIntoSquare(t *testing.T) {
	t.Parallel()

	r, err := NewRasterizer(nil)
	if err != nil {
		t.Fatalf("NewRasterizer() unexpected error: %v", err)
	}
	img, err := r.Glyph("Q", 64, color.Black)
	if err != nil {
		t.Fatalf("Glyph() unexpected error: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 64 || b.Dy() != 64 {
		t.Fatalf("bounds = %v, want 64x64", b)
	}
	if !hasOpaquePixel(img) {
		t.Fatal("glyph image is fully transparent")
	}
}

func TestGlyphRejectsBadInput(t *testing.T) {
	t.Parallel()

	r, err := NewRasterizer(nil)
	if err != nil {
		t.Fatalf("NewRasterizer() unexpected error: %v", err)
	}
	if _, err := r.Glyph("", 64, color.Black); err == nil {
		t.Fatal("Glyph() expected error for empty glyph")
	}
	if _, err := r.Glyph("A", 0, color.Black); err == nil {
		t.Fatal("Glyph() expected error for zero size")
	}
}

func TestNewRasterizerRejectsGarbageFont(t *testing.T) {
	t.Parallel()

	if _, err := NewRasterizer([]byte("not a font")); err == nil {
		t.Fatal("NewRasterizer() expected error for invalid font data")
	}
}

func TestDecodePNGFitsSquare(t *testing.T) {
	t.Parallel()

	src := image.NewNRGBA(image.Rect(0, 0, 200, 100))
	for y := 0; y < 100; y++ {
		for x := 0; x < 200; x++ {
			src.Set(x, y, color.NRGBA{200, 0, 0, 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, src); err != nil {
		t.Fatal(err)
	}

	img, err := Decode(&buf, 50)
	if err != nil {
		t.Fatalf("Decode() unexpected error: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 50 || b.Dy() != 50 {
		t.Fatalf("bounds = %v, want 50x50", b)
	}
	if _, _, _, a := img.At(25, 2).RGBA(); a != 0 {
		t.Fatal("letterbox area should stay transparent")
	}
	if r, _, _, _ := img.At(25, 25).RGBA(); r == 0 {
		t.Fatal("logo content missing at center")
	}
}

func TestDecodeSVG(t *testing.T) {
	t.Parallel()

	svg := `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 10 10"><rect width="10" height="10" fill="#00ff00"/></svg>`
	img, err := Decode(strings.NewReader(svg), 32)
	if err != nil {
		t.Fatalf("Decode() unexpected error: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 32 || b.Dy() != 32 {
		t.Fatalf("bounds = %v, want 32x32", b)
	}
	if _, g, _, _ := img.At(16, 16).RGBA(); g < 0x8000 {
		t.Fatal("svg fill not rasterized")
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	t.Parallel()

	if _, err := Decode(strings.NewReader("definitely not an image"), 32); err == nil {
		t.Fatal("Decode() expected error")
	}
}

func TestFirstGlyph(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, want string
	}{
		{in: "", want: ""},
		{in: "abc", want: "a"},
		{in: "\u2764\ufe0f rest", want: "\u2764\ufe0f"},
		{in: "\U0001f44d\U0001f3fd!", want: "\U0001f44d\U0001f3fd"},
		{in: "\U0001f469\u200d\U0001f4bb code", want: "\U0001f469\u200d\U0001f4bb"},
		{in: "e\u0301x", want: "e\u0301"},
		{in: "\U0001f1fa\U0001f1f8 usa", want: "\U0001f1fa\U0001f1f8"},
		{in: "1\ufe0f\u20e3!", want: "1\ufe0f\u20e3"},
		{in: "12", want: "1"},
		{in: "\U0001f642\U0001f642", want: "\U0001f642"},
		{in: "\U0001f468\u200d\U0001f469\u200d\U0001f467", want: "\U0001f468\u200d\U0001f469\u200d\U0001f467"},
	}
	for _, tt := range tests {
		if got := FirstGlyph(tt.in); got != tt.want {
			t.Fatalf("FirstGlyph(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

type fakeEmoji struct {
	mu    sync.Mutex
	calls []string
	ppems []int
	err   error
}

func (f *fakeEmoji) Render(seq string, ppem int, fg color.Color) (image.Image, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, seq)
	f.ppems = append(f.ppems, ppem)
	if f.err != nil {
		return nil, f.err
	}
	img := image.NewNRGBA(image.Rect(0, 0, 30, 20))
	for y := 0; y < 20; y++ {
		for x := 0; x < 30; x++ {
			img.Set(x, y, color.NRGBA{R: 0xff, A: 0xff})
		}
	}
	return img, nil
}

func TestGlyphWithoutEmojiFontReportsMissing(t *testing.T) {
	t.Parallel()

	r, err := NewRasterizer(nil)
	if err != nil {
		t.Fatal(err)
	}
	for _, g := range []string{"\U0001f642", "\U0001f1fa\U0001f1f8", "\u6f22"} {
		if _, err := r.Glyph(g, 64, color.Black); !errors.Is(err, ErrMissingGlyph) {
			t.Errorf("Glyph(%q) error = %v, want ErrMissingGlyph", g, err)
		}
	}
}

func TestGlyphDrawsEmojiFromColorSource(t *testing.T) {
	t.Parallel()

	base, err := NewRasterizer(nil)
	if err != nil {
		t.Fatal(err)
	}
	src := &fakeEmoji{}
	r := base.WithEmoji(src)

	img, err := r.Glyph("\U0001f642", 64, color.Black)
	if err != nil {
		t.Fatalf("Glyph() unexpected error: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 64 || b.Dy() != 64 {
		t.Fatalf("bounds = %v, want 64x64", b)
	}
	if n := inkCount(img); n == 0 {
		t.Fatal("emoji glyph is fully transparent")
	}
	if red, _, _, _ := img.At(32, 35).RGBA(); red < 0x8000 {
		t.Fatal("emoji bitmap not drawn at the center")
	}
	if len(src.calls) != 1 || src.calls[0] != "\U0001f642" || src.ppems[0] != 51 {
		t.Fatalf("emoji calls = %v at %v", src.calls, src.ppems)
	}

	if _, err := r.Glyph("A", 64, color.Black); err != nil {
		t.Fatal(err)
	}
	if len(src.calls) != 1 {
		t.Fatal("text glyphs must not use the emoji font")
	}
	if base.emoji != nil {
		t.Fatal("WithEmoji modified the receiver")
	}
}

func TestGlyphEmojiSourceErrorPropagates(t *testing.T) {
	t.Parallel()

	base, err := NewRasterizer(nil)
	if err != nil {
		t.Fatal(err)
	}
	r := base.WithEmoji(&fakeEmoji{err: ErrMissingGlyph})
	if _, err := r.Glyph("\U0001f9ff", 64, color.Black); !errors.Is(err, ErrMissingGlyph) {
		t.Fatalf("error = %v, want ErrMissingGlyph", err)
	}
}

func TestInstalledEmojiFontRendersInk(t *testing.T) {
	t.Parallel()

	ef, err := LoadEmojiFont("")
	if err != nil {
		t.Fatal(err)
	}
	if ef == nil {
		t.Skip("no color emoji font installed")
	}
	for _, g := range []string{"\U0001f642", "\u2764\ufe0f", "\U0001f1fa\U0001f1f8"} {
		img, err := ef.Render(g, 64, color.Black)
		if err != nil {
			t.Fatalf("Render(%q): %v", g, err)
		}
		if inkCount(img) == 0 {
			t.Fatalf("Render(%q) drew nothing", g)
		}
	}
}

func TestParseEmojiFontRejects(t *testing.T) {
	t.Parallel()

	if _, err := ParseEmojiFont([]byte("tiny")); err == nil {
		t.Fatal("expected error for short data")
	}
	if _, err := ParseEmojiFont(append([]byte("ttcf"), make([]byte, 16)...)); err == nil {
		t.Fatal("expected error for a font collection")
	}
	if _, err := ParseEmojiFont(goregular.TTF); !errors.Is(err, ErrNoColorTables) {
		t.Fatalf("error = %v, want ErrNoColorTables", err)
	}
	if _, err := LoadEmojiFont("/does/not/exist.ttf"); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestFontTableLookup(t *testing.T) {
	t.Parallel()

	if table(goregular.TTF, "cmap") == nil {
		t.Fatal("cmap table not found")
	}
	if table(goregular.TTF, "CBDT") != nil {
		t.Fatal("unexpected CBDT table")
	}
}

func TestCropTrimsTransparentBorder(t *testing.T) {
	t.Parallel()

	img := image.NewNRGBA(image.Rect(0, 0, 20, 20))
	img.Set(5, 6, color.NRGBA{A: 0xff})
	img.Set(9, 12, color.NRGBA{A: 0xff})
	if got := crop(img).Bounds(); got != image.Rect(5, 6, 10, 13) {
		t.Fatalf("crop = %v", got)
	}
	empty := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	if got := crop(empty).Bounds(); got != empty.Bounds() {
		t.Fatalf("crop of empty image = %v", got)
	}
}

func inkCount(img image.Image) int {
	n := 0
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if _, _, _, a := img.At(x, y).RGBA(); a > 0 {
				n++
			}
		}
	}
	return n
}

func hasOpaquePixel(img image.Image) bool {
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if _, _, _, a := img.At(x, y).RGBA(); a > 0 {
				return true
			}
		}
	}
	return false
}
