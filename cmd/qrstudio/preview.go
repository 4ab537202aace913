package main

import (
	"fmt"
	"strings"

	qrcode "github.com/skip2/go-qrcode"
	"github.com/spf13/cobra"

	"github.com/cristianadrielbraun/qrstudio/internal/prefs"
	"github.com/cristianadrielbraun/qrstudio/internal/studio"
)

func newPreviewCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "preview TEXT",
		Short: "Print a QR code to the terminal",
		Long:  "Print a compact QR code using half-block characters. Colors are inverted when the effective theme is dark.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			form := studio.DefaultForm()
			form.Text = args[0]
			req, _, err := studio.Validate(form, studio.DefaultLimits())
			if err != nil {
				return err
			}

			theme, err := a.preference().Effective()
			if err != nil {
				a.log.WithError(err).Warn("theme preference unavailable, using light")
				theme = prefs.ThemeLight
			}

			code, err := qrcode.New(req.Text, qrcode.Highest)
			if err != nil {
				return fmt.Errorf("encode: %w", err)
			}
			fmt.Fprint(a.out, halfBlocks(code.Bitmap(), theme == prefs.ThemeDark))
			return nil
		},
	}
}

// halfBlocks packs two bitmap rows into each text line. Set modules are
// drawn in the terminal's foreground unless inverse is true.
func halfBlocks(bmp [][]bool, inverse bool) string {
	if len(bmp)%2 == 1 {
		width := 0
		if len(bmp) > 0 {
			width = len(bmp[0])
		}
		bmp = append(bmp, make([]bool, width))
	}

	var sb strings.Builder
	for y := 0; y < len(bmp); y += 2 {
		top, bottom := bmp[y], bmp[y+1]
		for x := range top {
			t, b := top[x] != inverse, bottom[x] != inverse
			switch {
			case t && b:
				sb.WriteRune('█')
			case t:
				sb.WriteRune('▀')
			case b:
				sb.WriteRune('▄')
			default:
				sb.WriteRune(' ')
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
