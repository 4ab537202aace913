package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cristianadrielbraun/qrstudio/internal/prefs"
)

const (
	themeCookieMaxAge = 365 * 24 * 60 * 60
	colorSchemeHint   = "Sec-CH-Prefers-Color-Scheme"
)

// cookieStore adapts the request's cookies to prefs.Store.
type cookieStore struct {
	c *gin.Context
}

func (s cookieStore) Get(key string) (string, bool, error) {
	v, err := s.c.Cookie(key)
	if err != nil {
		return "", false, nil
	}
	return v, true, nil
}

func (s cookieStore) Set(key, value string) error {
	s.c.SetSameSite(http.SameSiteLaxMode)
	s.c.SetCookie(key, value, themeCookieMaxAge, "/", "", s.c.Request.TLS != nil, true)
	return nil
}

func (s cookieStore) Delete(key string) error {
	s.c.SetSameSite(http.SameSiteLaxMode)
	s.c.SetCookie(key, "", -1, "/", "", s.c.Request.TLS != nil, true)
	return nil
}

// preference resolves the theme of this request, asking the browser to
// send its color scheme hint on later requests.
func (h *Handler) preference(c *gin.Context) *prefs.Preference {
	c.Header("Accept-CH", colorSchemeHint)
	c.Header("Vary", colorSchemeHint)
	dark := strings.EqualFold(strings.Trim(c.GetHeader(colorSchemeHint), `"`), "dark")
	return prefs.NewPreference(cookieStore{c: c}, dark)
}

// SetTheme stores the theme from the "dark" form value: on, off or
// system. Browsers posting the form are redirected home; other clients
// get JSON.
func (h *Handler) SetTheme(c *gin.Context) {
	t, err := prefs.ParseTheme(c.PostForm("dark"))
	if err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_THEME", err.Error())
		return
	}

	p := h.preference(c)
	if err := p.Apply(t); err != nil {
		writeError(c, http.StatusInternalServerError, "THEME_FAILURE", err.Error())
		return
	}
	eff, err := p.Effective()
	if err != nil {
		writeError(c, http.StatusInternalServerError, "THEME_FAILURE", err.Error())
		return
	}

	if strings.Contains(c.GetHeader("Accept"), "text/html") {
		c.Redirect(http.StatusSeeOther, "/")
		return
	}
	c.JSON(http.StatusOK, gin.H{"stored": string(t), "effective": string(eff)})
}
