package studio

import (
	"github.com/sirupsen/logrus"

	"github.com/cristianadrielbraun/qrstudio/internal/compose"
	"github.com/cristianadrielbraun/qrstudio/internal/config"
	"github.com/cristianadrielbraun/qrstudio/internal/logo"
	"github.com/cristianadrielbraun/qrstudio/internal/qr"
)

// ConfigFrom builds a controller Config from runtime settings, loading the
// engine, the caption compositor, the glyph font and the color emoji font.
func ConfigFrom(cfg config.Config, log *logrus.Entry) (Config, error) {
	engine, err := qr.NewEngine(cfg.Engine)
	if err != nil {
		return Config{}, err
	}
	comp, err := compose.New()
	if err != nil {
		return Config{}, err
	}
	glyphs, err := logo.NewRasterizerFromFile(cfg.GlyphFont)
	if err != nil {
		return Config{}, err
	}
	emojiFont, err := logo.LoadEmojiFont(cfg.EmojiFont)
	if err != nil {
		return Config{}, err
	}
	if emojiFont != nil {
		glyphs = glyphs.WithEmoji(emojiFont)
	} else {
		log.WithField("event", "emoji_font_missing").Warn("no color emoji font found, emoji glyphs will be skipped")
	}
	return Config{
		Engine:     engine,
		Compositor: comp,
		Glyphs:     glyphs,
		Debounce:   cfg.Debounce,
		Limits: Limits{
			DefaultSize: cfg.DefaultSize,
			MinSize:     cfg.MinSize,
		},
		RenderTimeout: cfg.RenderTimeout,
		VerifyScans:   cfg.VerifyScans,
		Logger:        log,
	}, nil
}
