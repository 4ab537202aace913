package components

import (
	"github.com/cristianadrielbraun/qrstudio/internal/prefs"
	"github.com/cristianadrielbraun/qrstudio/internal/studio"
)

// Swatch is a preset foreground/background pair.
type Swatch struct {
	Name string
	Fill string
	Back string
}

// DefaultSwatches are the presets offered next to the color pickers.
var DefaultSwatches = []Swatch{
	{Name: "Classic", Fill: "#000000", Back: "#ffffff"},
	{Name: "Ink", Fill: "#1e3a8a", Back: "#eff6ff"},
	{Name: "Forest", Fill: "#14532d", Back: "#f0fdf4"},
	{Name: "Berry", Fill: "#831843", Back: "#fdf2f8"},
	{Name: "Night", Fill: "#f9fafb", Back: "#111827"},
}

// DotStyles lists the selectable module shapes.
var DotStyles = []string{"square", "dots", "rounded", "classy", "hstripe", "vstripe"}

// Formats lists the download formats.
var Formats = []string{"png", "jpeg", "svg", "webp"}

// PageData feeds the home page.
type PageData struct {
	Theme    prefs.Theme
	Palette  prefs.Palette
	Form     studio.FormState
	Swatches []Swatch
}
