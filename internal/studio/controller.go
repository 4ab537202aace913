// Package studio implements the regeneration controller behind the QR
// code editor: it validates the form, renders through a qr.Engine, adds
// captions and padding through the compositor and serves downloads of
// whatever is currently shown.
package studio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/png"
	"strconv"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/cristianadrielbraun/qrstudio/internal/async"
	"github.com/cristianadrielbraun/qrstudio/internal/compose"
	"github.com/cristianadrielbraun/qrstudio/internal/logo"
	"github.com/cristianadrielbraun/qrstudio/internal/qr"
)

const (
	DefaultDebounce      = 300 * time.Millisecond
	DefaultRenderTimeout = 10 * time.Second

	maxWarningLen = 160
)

const (
	warnCompositeFallback = "Captions and padding could not be applied, showing the plain QR code"
	warnGlyphSkipped      = "The center glyph could not be drawn and was left out"
	warnScanMismatch      = "This QR code may not scan reliably, try a larger size or higher contrast"
	warnVectorFallback    = "Captions and padding are only kept in PNG and JPEG downloads, the plain QR code was exported instead"
)

// View receives every visible effect of the controller. Calls are
// serialized and only made on behalf of the latest regeneration.
type View interface {
	qr.Container
	// ContainerWidth is the width available for the code, or <= 0 when
	// unknown.
	ContainerWidth() int
	// ShowError fills the inline error slot; "" clears it.
	ShowError(msg string)
	// ShowWarning shows a non-fatal notice; "" clears it.
	ShowWarning(msg string)
	// Alert raises a blocking notification.
	Alert(msg string)
	// ReflectSize writes a corrected size back into the size input.
	ReflectSize(size int)
	SetDownloadVisible(visible bool)
}

// GlyphRasterizer draws a single glyph into a square bitmap.
type GlyphRasterizer interface {
	Glyph(glyph string, size int, c color.Color) (image.Image, error)
}

// Compositor lays a QR bitmap out with captions and padding.
type Compositor interface {
	Compose(code image.Image, p compose.Params) (*compose.Surface, error)
}

// Config wires a Controller. Zero values select the defaults.
type Config struct {
	Engine        qr.Engine
	Compositor    Compositor
	Glyphs        GlyphRasterizer
	Debounce      time.Duration
	Limits        Limits
	RenderTimeout time.Duration
	// VerifyScans decodes every rendered code and warns when it does not
	// read back as the input text.
	VerifyScans bool
	Logger      *logrus.Entry
}

func (cfg Config) withDefaults() Config {
	if cfg.Logger == nil {
		cfg.Logger = logrus.NewEntry(logrus.StandardLogger())
	}
	if cfg.Engine == nil {
		cfg.Engine = qr.NewStandardEngine()
	}
	if cfg.Compositor == nil {
		if comp, err := compose.New(); err != nil {
			cfg.Logger.WithError(err).WithField("event", "compositor_unavailable").Warn("composite rendering disabled")
		} else {
			cfg.Compositor = comp
		}
	}
	if cfg.Glyphs == nil {
		if r, err := logo.NewRasterizer(nil); err != nil {
			cfg.Logger.WithError(err).WithField("event", "glyphs_unavailable").Warn("glyph logos disabled")
		} else {
			cfg.Glyphs = r
		}
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	def := DefaultLimits()
	if cfg.Limits.DefaultSize <= 0 {
		cfg.Limits.DefaultSize = def.DefaultSize
	}
	if cfg.Limits.MinSize <= 0 {
		cfg.Limits.MinSize = def.MinSize
	}
	if cfg.Limits.LogoRatio <= 0 {
		cfg.Limits.LogoRatio = def.LogoRatio
	}
	if cfg.RenderTimeout <= 0 {
		cfg.RenderTimeout = DefaultRenderTimeout
	}
	return cfg
}

// Controller owns one editing session.
type Controller struct {
	view     View
	cfg      Config
	log      *logrus.Entry
	debounce *async.Debouncer

	ctx      context.Context
	cancel   context.CancelFunc
	inflight sync.WaitGroup

	mu      sync.Mutex
	form    FormState
	seq     uint64
	current Result
	closed  bool
}

// New returns a controller with the default form. Nothing is rendered
// until the first edit or Regenerate call.
func New(view View, cfg Config) *Controller {
	cfg = cfg.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		view:     view,
		cfg:      cfg,
		log:      cfg.Logger,
		debounce: async.NewDebouncer(cfg.Debounce),
		ctx:      ctx,
		cancel:   cancel,
		form:     DefaultForm(),
	}
}

// Edit stores value in field and schedules a regeneration: typed fields
// are debounced, picker fields render at once and the export format only
// applies to the next download.
func (c *Controller) Edit(field Field, value string) error {
	c.mu.Lock()
	err := c.form.Set(field, value)
	c.mu.Unlock()
	if err != nil {
		return err
	}

	switch field.trigger() {
	case triggerImmediate:
		c.Regenerate()
	case triggerDebounced:
		c.RequestRegeneration()
	}
	return nil
}

// Load replaces the whole form without scheduling a regeneration.
func (c *Controller) Load(form FormState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.form = form
}

// ApplySwatch sets both colors and regenerates immediately.
func (c *Controller) ApplySwatch(fg, bg string) {
	c.mu.Lock()
	c.form.Foreground = fg
	c.form.Background = bg
	c.mu.Unlock()
	c.Regenerate()
}

// SetLogo stores an uploaded logo, or removes it when img is nil, and
// regenerates immediately.
func (c *Controller) SetLogo(img image.Image) {
	c.mu.Lock()
	c.form.Logo = img
	c.mu.Unlock()
	c.Regenerate()
}

// RequestRegeneration regenerates once edits have been quiet for the
// debounce delay.
func (c *Controller) RequestRegeneration() {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return
	}
	c.debounce.Schedule(c.Regenerate)
}

// Regenerate renders the current form. The native path completes before
// it returns; the composite path finishes in the background and only
// commits if no newer regeneration has started.
func (c *Controller) Regenerate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}

	c.seq++
	seq := c.seq
	log := c.log.WithField("seq", seq)

	req, corrected, err := Validate(c.form, c.cfg.Limits)
	if err != nil {
		var se *Error
		errors.As(err, &se)
		log.WithFields(logrus.Fields{"event": "validation_failed", "code": se.Code}).Debug("form rejected")
		c.current = nil
		c.view.Replace(nil)
		c.view.ShowError(se.Message)
		c.view.ShowWarning("")
		c.view.SetDownloadVisible(false)
		return
	}
	c.view.ShowError("")
	c.view.ShowWarning("")

	if corrected {
		c.form.Size = strconv.Itoa(req.PixelSize)
		c.view.ReflectSize(req.PixelSize)
		c.view.Alert(msgSizeOutOfRange)
	}
	req.PixelSize = ClampSize(req.PixelSize, c.view.ContainerWidth(), c.cfg.Limits.MinSize)

	inst, err := c.create(req.Options(c.logoFor(req, log)))
	if err != nil {
		log.WithError(err).WithFields(logrus.Fields{
			"event":  "render_failed",
			"engine": c.cfg.Engine.Name(),
			"size":   req.PixelSize,
		}).Error("qr render failed")
		c.current = nil
		c.view.Replace(nil)
		c.view.Alert(msgRenderFailure)
		c.view.SetDownloadVisible(false)
		return
	}

	if c.cfg.VerifyScans {
		if err := qr.Verify(inst.Image(), req.Text); err != nil {
			log.WithError(err).WithField("event", "scan_verify_failed").Warn("rendered code did not scan back")
			c.view.ShowWarning(warnScanMismatch)
		}
	}

	if !req.NeedsComposite() {
		inst.Append(c.view)
		c.current = &NativeResult{Instance: inst}
		c.view.SetDownloadVisible(true)
		log.WithFields(logrus.Fields{"event": "rendered", "kind": "native", "size": req.PixelSize}).Debug("qr rendered")
		return
	}

	// The previous result no longer matches the form.
	c.current = nil
	c.view.SetDownloadVisible(false)
	c.inflight.Add(1)
	go c.composite(seq, req, inst)
}

func (c *Controller) create(opts qr.Options) (inst qr.Instance, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("qr engine panicked: %v", r)
		}
	}()
	return c.cfg.Engine.Create(opts)
}

// logoFor returns the bitmap to embed in the code, or nil. An uploaded
// logo wins over the glyph. A glyph that cannot be drawn only warns.
func (c *Controller) logoFor(req RenderRequest, log *logrus.Entry) image.Image {
	size := req.LogoSize(c.cfg.Limits.LogoRatio)
	if req.Logo != nil {
		return logo.Fit(req.Logo, size)
	}
	if req.Glyph == "" {
		return nil
	}
	if c.cfg.Glyphs == nil {
		c.view.ShowWarning(warnGlyphSkipped)
		return nil
	}
	img, err := c.cfg.Glyphs.Glyph(req.Glyph, size, req.Foreground)
	if err != nil {
		log.WithError(err).WithField("event", "glyph_failed").Warn("glyph rasterization failed")
		c.view.ShowWarning(warnGlyphSkipped)
		return nil
	}
	return img
}

func (c *Controller) composite(seq uint64, req RenderRequest, inst qr.Instance) {
	defer c.inflight.Done()

	ctx, cancel := context.WithTimeout(c.ctx, c.cfg.RenderTimeout)
	defer cancel()
	surface, err := c.buildComposite(ctx, req, inst)

	c.mu.Lock()
	defer c.mu.Unlock()
	log := c.log.WithField("seq", seq)
	if c.closed || seq != c.seq {
		log.WithFields(logrus.Fields{"event": "stale_result", "latest": c.seq}).Debug("discarding superseded composite")
		return
	}

	if err != nil {
		log.WithError(err).WithField("event", "composite_fallback").Warn("composite failed, falling back to native")
		inst.Append(c.view)
		c.current = &NativeResult{Instance: inst}
		c.view.ShowWarning(boundWarning(warnCompositeFallback + ": " + rootCause(err).Error()))
		c.view.SetDownloadVisible(true)
		return
	}

	c.view.Replace(surface.Image)
	c.current = &CompositeResult{Surface: surface, Native: inst, Background: req.Background}
	c.view.SetDownloadVisible(true)
	log.WithFields(logrus.Fields{
		"event":  "rendered",
		"kind":   "composite",
		"width":  surface.Width(),
		"height": surface.Height(),
	}).Debug("qr rendered")
}

func (c *Controller) buildComposite(ctx context.Context, req RenderRequest, inst qr.Instance) (surface *compose.Surface, err error) {
	fail := func(cause error) (*compose.Surface, error) {
		return nil, newError(CodeCompositeFailure, warnCompositeFallback, cause)
	}

	data, err := inst.RawData(ctx, qr.FormatPNG).Await(ctx)
	if err != nil {
		return fail(fmt.Errorf("retrieve raw data: %w", err))
	}
	if len(data) == 0 {
		return fail(errors.New("raw data is empty"))
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return fail(fmt.Errorf("decode raw data: %w", err))
	}
	if b := img.Bounds(); b.Dx() == 0 || b.Dy() == 0 {
		return fail(errors.New("raw data decoded to an empty bitmap"))
	}
	if c.cfg.Compositor == nil {
		return fail(errors.New("no compositor configured"))
	}

	defer func() {
		if r := recover(); r != nil {
			surface, err = fail(fmt.Errorf("compositor panicked: %v", r))
		}
	}()
	surface, err = c.cfg.Compositor.Compose(img, req.CompositeParams())
	if err != nil {
		return fail(err)
	}
	return surface, nil
}

// Download encodes the current result. Composite results keep their
// captions for png and jpeg; svg and webp come from the underlying
// instance. Failures alert the view and leave the render state alone.
func (c *Controller) Download(ctx context.Context, f qr.Format) (qr.File, error) {
	c.mu.Lock()
	cur := c.current
	if cur == nil {
		c.view.Alert(msgNoResult)
		c.mu.Unlock()
		return qr.File{}, newError(CodeNoResult, msgNoResult, nil)
	}
	c.mu.Unlock()

	var (
		file     qr.File
		fellBack bool
		err      error
	)
	switch r := cur.(type) {
	case *NativeResult:
		file, err = r.download(ctx, f)
	case *CompositeResult:
		file, fellBack, err = r.download(ctx, f)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.log.WithError(err).WithFields(logrus.Fields{"event": "download_failed", "format": f}).Error("qr download failed")
		c.view.Alert(msgDownload)
		return qr.File{}, newError(CodeDownloadFailure, msgDownload, err)
	}
	if fellBack && c.current == cur {
		c.view.ShowWarning(warnVectorFallback)
	}
	return file, nil
}

// Form returns a copy of the form.
func (c *Controller) Form() FormState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.form
}

// Current returns the committed result, or nil.
func (c *Controller) Current() Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Seq is the sequence number of the latest regeneration.
func (c *Controller) Seq() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seq
}

// Wait blocks until debounced and background work has finished.
func (c *Controller) Wait() {
	c.debounce.Wait()
	c.inflight.Wait()
}

// Close drops pending work and waits for background renders to stop.
// The controller makes no view calls afterwards.
func (c *Controller) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.debounce.Cancel()
	c.cancel()
	c.Wait()
}

func rootCause(err error) error {
	var se *Error
	if errors.As(err, &se) && se.Cause != nil {
		return se.Cause
	}
	return err
}

func boundWarning(s string) string {
	if utf8.RuneCountInString(s) <= maxWarningLen {
		return s
	}
	r := []rune(s)
	return string(r[:maxWarningLen-3]) + "..."
}
