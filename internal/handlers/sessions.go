package handlers

import (
	"errors"
	"image/color"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cristianadrielbraun/qrstudio/internal/logo"
	"github.com/cristianadrielbraun/qrstudio/internal/qr"
	"github.com/cristianadrielbraun/qrstudio/internal/studio"
)

const (
	maxLogoBytes = 5 << 20
	// logoSourceSize is the square an upload is fitted into; each render
	// scales it down to the logo size of that render.
	logoSourceSize = 512
)

type editRequest struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

type editsRequest struct {
	editRequest
	Edits []editRequest `json:"edits"`
}

type createSessionRequest struct {
	ContainerWidth *int          `json:"containerWidth"`
	Edits          []editRequest `json:"edits"`
}

type swatchRequest struct {
	Foreground string `json:"fg" binding:"required"`
	Background string `json:"bg" binding:"required"`
}

func (h *Handler) session(c *gin.Context) (*Session, bool) {
	s, err := h.sessions.Get(c.Param("id"))
	if err != nil {
		writeError(c, http.StatusNotFound, "SESSION_NOT_FOUND", err.Error())
		return nil, false
	}
	return s, true
}

// CreateSession opens an editing session. Initial edits are applied as one
// form load and rendered at once when they include text.
func (h *Handler) CreateSession(c *gin.Context) {
	var req createSessionRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			writeError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
			return
		}
	}

	width := h.cfg.ContainerWidth
	if req.ContainerWidth != nil {
		if *req.ContainerWidth < 0 {
			writeError(c, http.StatusBadRequest, "INVALID_CONTAINER_WIDTH", "containerWidth must not be negative")
			return
		}
		width = *req.ContainerWidth
	}

	form := studio.DefaultForm()
	for _, e := range req.Edits {
		if err := form.Set(studio.Field(e.Field), e.Value); err != nil {
			writeStudioError(c, err)
			return
		}
	}

	s, err := h.sessions.Create(width)
	if err != nil {
		writeStudioError(c, err)
		return
	}
	ctrl := s.Controller()
	ctrl.Load(form)
	if strings.TrimSpace(form.Text) != "" {
		ctrl.Regenerate()
		ctrl.Wait()
	}
	c.JSON(http.StatusCreated, gin.H{"id": s.ID, "state": s.State()})
}

// GetSession returns the session state.
func (h *Handler) GetSession(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, s.State())
}

// DeleteSession closes a session.
func (h *Handler) DeleteSession(c *gin.Context) {
	if !h.sessions.Delete(c.Param("id")) {
		writeError(c, http.StatusNotFound, "SESSION_NOT_FOUND", ErrSessionNotFound.Error())
		return
	}
	c.Status(http.StatusNoContent)
}

// EditSession applies one edit or a batch. Regeneration follows the
// field's own timing, so the returned state may predate it.
func (h *Handler) EditSession(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var req editsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	edits := req.Edits
	if req.Field != "" {
		edits = append([]editRequest{req.editRequest}, edits...)
	}
	if len(edits) == 0 {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "no edits given")
		return
	}

	for _, e := range edits {
		if err := s.Controller().Edit(studio.Field(e.Field), e.Value); err != nil {
			writeStudioError(c, err)
			return
		}
	}
	c.JSON(http.StatusAccepted, s.State())
}

// SwatchSession applies a preset color pair.
func (h *Handler) SwatchSession(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var req swatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	s.Controller().ApplySwatch(req.Foreground, req.Background)
	c.JSON(http.StatusOK, s.State())
}

// LogoSession stores an uploaded logo from the "logo" multipart field. A
// request without the field removes the logo.
func (h *Handler) LogoSession(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxLogoBytes)

	fh, err := c.FormFile("logo")
	if errors.Is(err, http.ErrMissingFile) {
		s.Controller().SetLogo(nil)
		c.JSON(http.StatusOK, s.State())
		return
	}
	if err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_LOGO", err.Error())
		return
	}
	f, err := fh.Open()
	if err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_LOGO", err.Error())
		return
	}
	defer f.Close()

	img, err := logo.Decode(f, logoSourceSize)
	if err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_LOGO", err.Error())
		return
	}
	s.Controller().SetLogo(img)
	c.JSON(http.StatusOK, s.State())
}

// PreviewSession serves the displayed bitmap as PNG.
func (h *Handler) PreviewSession(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	img := s.view.displayed()
	if img == nil {
		writeError(c, http.StatusNotFound, string(studio.CodeNoResult), "nothing rendered yet")
		return
	}
	data, err := qr.EncodeImage(img, qr.FormatPNG, color.RGBA{})
	if err != nil {
		writeStudioError(c, err)
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, qr.FormatPNG.ContentType(), data)
}

// DownloadSession downloads the current result. The format comes from the
// query, falling back to the form's format field.
func (h *Handler) DownloadSession(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	raw := c.Query("format")
	if raw == "" {
		raw = s.Controller().Form().Format
	}
	format, err := qr.ParseFormat(strings.ToLower(raw))
	if err != nil {
		writeError(c, http.StatusBadRequest, "UNSUPPORTED_FORMAT", err.Error())
		return
	}
	file, err := s.Controller().Download(c.Request.Context(), format)
	if err != nil {
		writeStudioError(c, err)
		return
	}
	sendFile(c, file)
}
