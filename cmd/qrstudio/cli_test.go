package main

import (
	"bytes"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd(&out, &errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestThemeCommand(t *testing.T) {
	t.Setenv("COLORFGBG", "15;0")
	prefsPath := filepath.Join(t.TempDir(), "prefs.json")

	out, err := run(t, "--prefs", prefsPath, "theme")
	if err != nil {
		t.Fatal(err)
	}
	if out != "dark (following system)\n" {
		t.Fatalf("out = %q", out)
	}

	out, err = run(t, "--prefs", prefsPath, "theme", "light")
	if err != nil || out != "light\n" {
		t.Fatalf("out = %q, err = %v", out, err)
	}
	data, err := os.ReadFile(prefsPath)
	if err != nil || !strings.Contains(string(data), `"darkMode": "disabled"`) {
		t.Fatalf("prefs file = %s, %v", data, err)
	}

	out, err = run(t, "--prefs", prefsPath, "theme", "system")
	if err != nil || out != "dark (following system)\n" {
		t.Fatalf("out = %q, err = %v", out, err)
	}

	if _, err := run(t, "--prefs", prefsPath, "theme", "sepia"); err == nil {
		t.Fatal("expected error for unknown theme")
	}
}

func TestRenderCommand(t *testing.T) {
	dir := t.TempDir()
	outPath := filepath.Join(dir, "code.png")

	out, err := run(t, "render", "--text", "https://example.com", "--size", "180", "--caption-top", "Hi", "-o", outPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "wrote "+outPath) || !strings.Contains(out, "composite") {
		t.Fatalf("out = %q", out)
	}

	f, err := os.Open(outPath)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dy() <= b.Dx() {
		t.Fatalf("bounds = %v, want room for the caption", b)
	}

	if _, err := run(t, "render", "--text", "ftp://x", "-o", filepath.Join(dir, "bad.png")); err == nil {
		t.Fatal("expected validation error")
	}
	if _, err := run(t, "render", "--text", "https://example.com", "--format", "gif"); err == nil {
		t.Fatal("expected format error")
	}
}

func TestPreviewCommand(t *testing.T) {
	t.Setenv("COLORFGBG", "0;15")
	prefsPath := filepath.Join(t.TempDir(), "prefs.json")

	light, err := run(t, "--prefs", prefsPath, "preview", "https://example.com")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.ContainsRune(light, '█') {
		t.Fatalf("preview has no blocks:\n%s", light)
	}

	if _, err := run(t, "--prefs", prefsPath, "theme", "dark"); err != nil {
		t.Fatal(err)
	}
	dark, err := run(t, "--prefs", prefsPath, "preview", "https://example.com")
	if err != nil {
		t.Fatal(err)
	}
	if dark == light {
		t.Fatal("dark preview is not inverted")
	}

	if _, err := run(t, "--prefs", prefsPath, "preview", "example.com"); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestHalfBlocks(t *testing.T) {
	t.Parallel()

	bmp := [][]bool{
		{true, false, true},
		{true, true, false},
		{false, true, false},
	}
	got := halfBlocks(bmp, false)
	want := "█▄▀\n ▀ \n"
	if got != want {
		t.Fatalf("halfBlocks = %q, want %q", got, want)
	}
	if inv := halfBlocks(bmp, true); inv != " ▀▄\n█▄█\n" {
		t.Fatalf("inverse = %q", inv)
	}
}

func TestTerminalIsDark(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]bool{
		"15;0":    true,
		"0;15":    false,
		"12;8":    true,
		"15;7":    false,
		"15;":     false,
		"":        false,
		"7;2;0":   true,
		"default": false,
	} {
		if got := terminalIsDark(in); got != want {
			t.Errorf("terminalIsDark(%q) = %v, want %v", in, got, want)
		}
	}
}
