package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/cristianadrielbraun/qrstudio/internal/config"
	"github.com/cristianadrielbraun/qrstudio/internal/qr"
	"github.com/cristianadrielbraun/qrstudio/internal/studio"
)

// Deps are the collaborators shared by every request.
type Deps struct {
	Config     config.Config
	Log        *logrus.Logger
	Engine     qr.Engine
	Compositor studio.Compositor
	Glyphs     studio.GlyphRasterizer
}

// Handler holds the dependencies of the HTTP handlers.
type Handler struct {
	cfg        config.Config
	log        *logrus.Logger
	engine     qr.Engine
	compositor studio.Compositor
	glyphs     studio.GlyphRasterizer
	sessions   *Sessions
}

// New returns a Handler with an empty session registry.
func New(d Deps) *Handler {
	if d.Log == nil {
		d.Log = logrus.StandardLogger()
	}
	if d.Engine == nil {
		d.Engine = qr.NewStandardEngine()
	}
	h := &Handler{
		cfg:        d.Config,
		log:        d.Log,
		engine:     d.Engine,
		compositor: d.Compositor,
		glyphs:     d.Glyphs,
	}
	h.sessions = NewSessions(d.Config.SessionTTL, d.Config.MaxSessions, h.newController)
	h.sessions.SetLogger(d.Log)
	return h
}

// Sessions exposes the registry, mainly for expiry sweeps.
func (h *Handler) Sessions() *Sessions { return h.sessions }

// Close ends every open session.
func (h *Handler) Close() { h.sessions.Close() }

func (h *Handler) newController(view studio.View, log *logrus.Entry) *studio.Controller {
	return studio.New(view, studio.Config{
		Engine:     h.engine,
		Compositor: h.compositor,
		Glyphs:     h.glyphs,
		Debounce:   h.cfg.Debounce,
		Limits: studio.Limits{
			DefaultSize: h.cfg.DefaultSize,
			MinSize:     h.cfg.MinSize,
		},
		RenderTimeout: h.cfg.RenderTimeout,
		VerifyScans:   h.cfg.VerifyScans,
		Logger:        log,
	})
}

// Routes registers every endpoint on r.
func (h *Handler) Routes(r gin.IRouter) {
	r.GET("/", h.HomePage)
	r.GET("/sitemap.xml", h.SitemapXML)
	r.GET("/healthz", h.Healthz)

	api := r.Group("/api")
	api.Use(RateLimit(h.cfg.RateLimitPerMin, h.cfg.RateLimitBurst, h.log))
	{
		api.GET("/qr", h.QRCodeHandler)
		api.POST("/theme", h.SetTheme)
		api.POST("/htmx/toast", h.GenericToast)

		s := api.Group("/sessions")
		s.POST("", h.CreateSession)
		s.GET("/:id", h.GetSession)
		s.DELETE("/:id", h.DeleteSession)
		s.POST("/:id/edits", h.EditSession)
		s.POST("/:id/swatch", h.SwatchSession)
		s.POST("/:id/logo", h.LogoSession)
		s.GET("/:id/preview", h.PreviewSession)
		s.GET("/:id/download", h.DownloadSession)
	}
}

// Healthz reports liveness and the number of open sessions.
func (h *Handler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"engine":   h.engine.Name(),
		"sessions": h.sessions.Len(),
	})
}

// SitemapXML serves a minimal sitemap for the site.
func (h *Handler) SitemapXML(c *gin.Context) {
	c.Header("Content-Type", "application/xml; charset=utf-8")
	scheme := "https"
	host := c.Request.Host
	if xf := c.Request.Header.Get("X-Forwarded-Proto"); xf != "" {
		scheme = xf
	} else if c.Request.TLS == nil && (host == "localhost:8080" || host == "127.0.0.1:8080") {
		scheme = "http"
	}
	base := scheme + "://" + host
	xml := "" +
		"<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n" +
		"<urlset xmlns=\"http://www.sitemaps.org/schemas/sitemap/0.9\">\n" +
		"  <url>\n" +
		"    <loc>" + base + "/" + "</loc>\n" +
		"    <changefreq>weekly</changefreq>\n" +
		"    <priority>1.0</priority>\n" +
		"  </url>\n" +
		"</urlset>\n"
	c.String(http.StatusOK, xml)
}

func writeError(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"code": code, "error": msg})
}

// writeStudioError maps a studio error onto an HTTP status: validation
// problems are the client's, a missing result is 404, anything else 500.
func writeStudioError(c *gin.Context, err error) {
	code := studio.CodeOf(err)
	status := http.StatusInternalServerError
	switch code {
	case studio.CodeEmptyInput, studio.CodeInvalidFormat, studio.CodeSizeOutOfRange, studio.CodeUnknownField:
		status = http.StatusBadRequest
	case studio.CodeNoResult:
		status = http.StatusNotFound
	case "":
		code = studio.CodeRenderFailure
	}
	_ = c.Error(err)
	writeError(c, status, string(code), err.Error())
}
