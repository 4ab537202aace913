package main

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/cristianadrielbraun/qrstudio/internal/logo"
	"github.com/cristianadrielbraun/qrstudio/internal/qr"
	"github.com/cristianadrielbraun/qrstudio/internal/studio"
)

// cliView reports controller output on stderr.
type cliView struct {
	width  int
	errMsg string
	log    *logrus.Logger
}

func (v *cliView) ContainerWidth() int     { return v.width }
func (v *cliView) Replace(image.Image)     {}
func (v *cliView) ReflectSize(int)         {}
func (v *cliView) SetDownloadVisible(bool) {}
func (v *cliView) ShowError(msg string)    { v.errMsg = msg }
func (v *cliView) Alert(msg string)        { v.log.Warn(msg) }
func (v *cliView) ShowWarning(msg string) {
	if msg != "" {
		v.log.Warn(msg)
	}
}

type renderFlags struct {
	form     studio.FormState
	logoPath string
	width    int
	output   string
}

func newRenderCmd(a *app) *cobra.Command {
	f := renderFlags{form: studio.DefaultForm()}

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render a QR code to a file",
		Example: `  qrstudio render --text https://example.com --caption-bottom "Scan me" -o code.png
  qrstudio render --text www.example.com --dot-style dots --format svg`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.render(cmd.Context(), f)
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&f.form.Text, "text", "", "URL to encode (http://, https:// or www.)")
	fl.StringVar(&f.form.Size, "size", f.form.Size, "size in pixels")
	fl.StringVar(&f.form.Foreground, "fg", f.form.Foreground, "module color")
	fl.StringVar(&f.form.Background, "bg", f.form.Background, "background color or 'transparent'")
	fl.StringVar(&f.form.DotStyle, "dot-style", f.form.DotStyle, "square, dots, rounded, classy, hstripe or vstripe")
	fl.StringVar(&f.form.Margin, "margin", f.form.Margin, "quiet zone in pixels")
	fl.StringVar(&f.form.Glyph, "glyph", "", "character drawn in the center")
	fl.StringVar(&f.logoPath, "logo", "", "PNG, JPEG or SVG drawn in the center")
	fl.StringVar(&f.form.CaptionTop, "caption-top", "", "text above the code")
	fl.StringVar(&f.form.CaptionBottom, "caption-bottom", "", "text below the code")
	fl.StringVar(&f.form.Padding, "padding", f.form.Padding, "padding around the code and captions")
	fl.StringVar(&f.form.Format, "format", f.form.Format, "png, jpeg, svg or webp")
	fl.IntVar(&f.width, "max-width", 0, "clamp the size to this width (0 disables)")
	fl.StringVarP(&f.output, "output", "o", "", "output file (default: the download name)")
	return cmd
}

func (a *app) render(ctx context.Context, f renderFlags) error {
	format, err := qr.ParseFormat(strings.ToLower(f.form.Format))
	if err != nil {
		return err
	}

	if f.logoPath != "" {
		img, err := loadLogo(f.logoPath)
		if err != nil {
			return err
		}
		f.form.Logo = img
	}

	sc, err := studio.ConfigFrom(a.cfg, logrus.NewEntry(a.log))
	if err != nil {
		return err
	}
	view := &cliView{width: f.width, log: a.log}
	ctrl := studio.New(view, sc)
	defer ctrl.Close()

	ctrl.Load(f.form)
	ctrl.Regenerate()
	ctrl.Wait()

	if view.errMsg != "" {
		return errors.New(view.errMsg)
	}
	if ctrl.Current() == nil {
		return errors.New("failed to generate QR code")
	}

	file, err := ctrl.Download(ctx, format)
	if err != nil {
		return err
	}
	out := f.output
	if out == "" {
		out = file.Name
	}
	if err := os.WriteFile(out, file.Data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}
	b := ctrl.Current().Bounds()
	fmt.Fprintf(a.out, "wrote %s (%dx%d %s)\n", out, b.Dx(), b.Dy(), ctrl.Current().Kind())
	return nil
}

func loadLogo(path string) (image.Image, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open logo: %w", err)
	}
	defer fh.Close()
	return logo.Decode(fh, 512)
}
