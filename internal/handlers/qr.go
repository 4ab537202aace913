package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/cristianadrielbraun/qrstudio/internal/qr"
	"github.com/cristianadrielbraun/qrstudio/internal/studio"
)

var queryFields = []studio.Field{
	studio.FieldText,
	studio.FieldSize,
	studio.FieldForeground,
	studio.FieldBackground,
	studio.FieldDotStyle,
	studio.FieldMargin,
	studio.FieldGlyph,
	studio.FieldCaptionTop,
	studio.FieldCaptionBottom,
	studio.FieldPadding,
	studio.FieldFormat,
}

// formFromQuery overlays the query parameters on the default form. "url"
// is accepted as an alias for "text".
func formFromQuery(c *gin.Context) (studio.FormState, error) {
	form := studio.DefaultForm()
	if v, ok := c.GetQuery("url"); ok {
		form.Text = v
	}
	for _, f := range queryFields {
		if v, ok := c.GetQuery(string(f)); ok {
			if err := form.Set(f, v); err != nil {
				return form, err
			}
		}
	}
	return form, nil
}

// QRCodeHandler renders one code from query parameters and returns it as
// an attachment, running the same pipeline as an editing session.
func (h *Handler) QRCodeHandler(c *gin.Context) {
	form, err := formFromQuery(c)
	if err != nil {
		writeStudioError(c, err)
		return
	}

	format, err := qr.ParseFormat(strings.ToLower(form.Format))
	if err != nil {
		writeError(c, http.StatusBadRequest, "UNSUPPORTED_FORMAT", err.Error())
		return
	}

	if _, _, err := studio.Validate(form, studio.Limits{DefaultSize: h.cfg.DefaultSize}); err != nil {
		writeStudioError(c, err)
		return
	}

	width := h.cfg.ContainerWidth
	if raw := c.Query("containerWidth"); raw != "" {
		w, err := strconv.Atoi(raw)
		if err != nil || w < 0 {
			writeError(c, http.StatusBadRequest, "INVALID_CONTAINER_WIDTH", "containerWidth must be a non-negative integer")
			return
		}
		width = w
	}

	view := newSessionView(width)
	ctrl := h.newController(view, h.log.WithFields(logrus.Fields{"request": "api_qr"}))
	defer ctrl.Close()

	ctrl.Load(form)
	ctrl.Regenerate()
	ctrl.Wait()

	if ctrl.Current() == nil {
		writeError(c, http.StatusInternalServerError, string(studio.CodeRenderFailure), "failed to generate QR code")
		return
	}

	file, err := ctrl.Download(c.Request.Context(), format)
	if err != nil {
		writeStudioError(c, err)
		return
	}
	if w := view.warningText(); w != "" {
		c.Header("X-QR-Warning", w)
	}
	sendFile(c, file)
}

func sendFile(c *gin.Context, f qr.File) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", f.Name))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, f.ContentType, f.Data)
}
