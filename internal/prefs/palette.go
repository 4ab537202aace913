package prefs

// Palette holds the page colors for one theme.
type Palette struct {
	Page    string
	Card    string
	Text    string
	Muted   string
	Border  string
	Accent  string
	Danger  string
	Warning string
}

var palettes = map[Theme]Palette{
	ThemeLight: {
		Page:    "#f3f4f6",
		Card:    "#ffffff",
		Text:    "#1f2937",
		Muted:   "#6b7280",
		Border:  "#d1d5db",
		Accent:  "#2563eb",
		Danger:  "#dc2626",
		Warning: "#b45309",
	},
	ThemeDark: {
		Page:    "#111827",
		Card:    "#1f2937",
		Text:    "#f3f4f6",
		Muted:   "#9ca3af",
		Border:  "#374151",
		Accent:  "#3b82f6",
		Danger:  "#f87171",
		Warning: "#fbbf24",
	},
}

// PaletteFor returns the palette of an effective theme. ThemeUnset gets
// the light palette.
func PaletteFor(t Theme) Palette {
	if p, ok := palettes[t]; ok {
		return p
	}
	return palettes[ThemeLight]
}
