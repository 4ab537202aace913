package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cristianadrielbraun/qrstudio/internal/prefs"
	"github.com/cristianadrielbraun/qrstudio/internal/studio"
	"github.com/cristianadrielbraun/qrstudio/web/components"
)

// HomePage renders the editor with the default form. The page opens its
// session through POST /api/sessions, which sits behind the rate limiter.
func (h *Handler) HomePage(c *gin.Context) {
	eff, err := h.preference(c).Effective()
	if err != nil {
		eff = prefs.ThemeLight
	}

	data := components.PageData{
		Theme:    eff,
		Palette:  prefs.PaletteFor(eff),
		Form:     studio.DefaultForm(),
		Swatches: components.DefaultSwatches,
	}
	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Status(http.StatusOK)
	if err := components.HomePage(data).Render(c.Request.Context(), c.Writer); err != nil {
		h.log.WithError(err).WithField("event", "page_render_failed").Error("render home page")
	}
}
