package handlers

import (
	"bytes"
	"encoding/json"
	"image"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/cristianadrielbraun/qrstudio/internal/config"
	"github.com/cristianadrielbraun/qrstudio/internal/qr"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newTestServer(t *testing.T) (*Handler, *gin.Engine) {
	t.Helper()
	h := New(Deps{
		Config: config.Config{
			Debounce:        10 * time.Millisecond,
			DefaultSize:     256,
			MinSize:         100,
			RenderTimeout:   5 * time.Second,
			SessionTTL:      time.Minute,
			MaxSessions:     8,
			RateLimitPerMin: 60000,
			RateLimitBurst:  10000,
		},
		Log:    quietLogger(),
		Engine: qr.NewBasicEngine(),
	})
	t.Cleanup(h.Close)
	r := gin.New()
	h.Routes(r)
	return h, r
}

func do(r http.Handler, method, target string, body io.Reader, header ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, body)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeJSON(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %s: %v", w.Body.String(), err)
	}
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Code  string `json:"code"`
		Error string `json:"error"`
	}
	decodeJSON(t, w, &body)
	if body.Error == "" {
		t.Fatalf("error body without message: %s", w.Body.String())
	}
	return body.Code
}

func TestQRCodeHandler(t *testing.T) {
	t.Parallel()
	_, r := newTestServer(t)

	t.Run("png", func(t *testing.T) {
		w := do(r, http.MethodGet, "/api/qr?text="+url.QueryEscape("https://example.com")+"&size=200", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d: %s", w.Code, w.Body.String())
		}
		if cd := w.Header().Get("Content-Disposition"); cd != `attachment; filename="qrcode.png"` {
			t.Fatalf("Content-Disposition = %q", cd)
		}
		img, err := png.Decode(w.Body)
		if err != nil {
			t.Fatal(err)
		}
		if b := img.Bounds(); b.Dx() != 200 || b.Dy() != 200 {
			t.Fatalf("image = %v, want 200x200", b)
		}
	})

	t.Run("url alias and container clamp", func(t *testing.T) {
		w := do(r, http.MethodGet, "/api/qr?url=www.example.com&size=500&containerWidth=150", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d: %s", w.Code, w.Body.String())
		}
		img, err := png.Decode(w.Body)
		if err != nil {
			t.Fatal(err)
		}
		if img.Bounds().Dx() != 150 {
			t.Fatalf("width = %d, want 150", img.Bounds().Dx())
		}
	})

	t.Run("captioned", func(t *testing.T) {
		w := do(r, http.MethodGet, "/api/qr?text=https://example.com&captionTop=Hello&padding=10", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d: %s", w.Code, w.Body.String())
		}
		if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "qrcode_custom.png") {
			t.Fatalf("Content-Disposition = %q", cd)
		}
		img, err := png.Decode(w.Body)
		if err != nil {
			t.Fatal(err)
		}
		if b := img.Bounds(); b.Dx() != 276 || b.Dy() != 298 {
			t.Fatalf("composite = %v, want 276x298", b)
		}
	})

	t.Run("captioned svg falls back", func(t *testing.T) {
		w := do(r, http.MethodGet, "/api/qr?text=https://example.com&captionBottom=Bye&format=svg", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d: %s", w.Code, w.Body.String())
		}
		if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, `"qrcode.svg"`) {
			t.Fatalf("Content-Disposition = %q", cd)
		}
		if w.Header().Get("X-QR-Warning") == "" {
			t.Fatal("missing fallback warning")
		}
		if !strings.Contains(w.Body.String(), "<svg") {
			t.Fatal("body is not svg")
		}
	})

	for name, tc := range map[string]struct {
		query string
		code  string
	}{
		"empty":  {query: "text=", code: "EMPTY_INPUT"},
		"ftp":    {query: "text=ftp://x", code: "INVALID_FORMAT"},
		"format": {query: "text=https://a&format=bmp", code: "UNSUPPORTED_FORMAT"},
		"width":  {query: "text=https://a&containerWidth=-5", code: "INVALID_CONTAINER_WIDTH"},
	} {
		t.Run(name, func(t *testing.T) {
			w := do(r, http.MethodGet, "/api/qr?"+tc.query, nil)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", w.Code)
			}
			if got := errorCode(t, w); got != tc.code {
				t.Fatalf("code = %q, want %q", got, tc.code)
			}
		})
	}
}

type sessionState struct {
	Error           string `json:"error"`
	Warning         string `json:"warning"`
	Alert           string `json:"alert"`
	DownloadVisible bool   `json:"downloadVisible"`
	Size            int    `json:"size"`
	Result          *struct {
		Kind   string `json:"kind"`
		Width  int    `json:"width"`
		Height int    `json:"height"`
	} `json:"result"`
	Seq uint64 `json:"seq"`
}

func jsonBody(v any) io.Reader {
	b, _ := json.Marshal(v)
	return bytes.NewReader(b)
}

func TestSessionLifecycle(t *testing.T) {
	t.Parallel()
	h, r := newTestServer(t)

	w := do(r, http.MethodPost, "/api/sessions", jsonBody(map[string]any{
		"containerWidth": 400,
		"edits":          []map[string]string{{"field": "text", "value": "https://example.com"}},
	}), "Content-Type", "application/json")
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", w.Code, w.Body.String())
	}
	var created struct {
		ID    string       `json:"id"`
		State sessionState `json:"state"`
	}
	decodeJSON(t, w, &created)
	if created.ID == "" || created.State.Result == nil || created.State.Result.Kind != "native" {
		t.Fatalf("created = %+v", created)
	}
	if !created.State.DownloadVisible {
		t.Fatal("download hidden after initial render")
	}
	base := "/api/sessions/" + created.ID

	w = do(r, http.MethodGet, base+"/preview", nil)
	if w.Code != http.StatusOK || w.Header().Get("Content-Type") != "image/png" {
		t.Fatalf("preview = %d %s", w.Code, w.Header().Get("Content-Type"))
	}

	w = do(r, http.MethodPost, base+"/edits", jsonBody(map[string]any{
		"edits": []map[string]string{
			{"field": "captionTop", "value": "Scan me"},
			{"field": "padding", "value": "10"},
		},
	}), "Content-Type", "application/json")
	if w.Code != http.StatusAccepted {
		t.Fatalf("edits status = %d: %s", w.Code, w.Body.String())
	}
	s, err := h.Sessions().Get(created.ID)
	if err != nil {
		t.Fatal(err)
	}
	s.Controller().Wait()

	var st sessionState
	decodeJSON(t, do(r, http.MethodGet, base, nil), &st)
	if st.Result == nil || st.Result.Kind != "composite" || st.Result.Width != 276 {
		t.Fatalf("state = %+v", st)
	}

	w = do(r, http.MethodGet, base+"/download?format=jpg", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("download status = %d: %s", w.Code, w.Body.String())
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "qrcode_custom.jpeg") {
		t.Fatalf("Content-Disposition = %q", cd)
	}

	if w := do(r, http.MethodDelete, base, nil); w.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", w.Code)
	}
	if w := do(r, http.MethodGet, base, nil); w.Code != http.StatusNotFound {
		t.Fatalf("get after delete = %d", w.Code)
	}
}

func TestSessionValidationAndErrors(t *testing.T) {
	t.Parallel()
	h, r := newTestServer(t)

	w := do(r, http.MethodPost, "/api/sessions", nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d", w.Code)
	}
	var created struct {
		ID    string       `json:"id"`
		State sessionState `json:"state"`
	}
	decodeJSON(t, w, &created)
	if created.State.Result != nil {
		t.Fatal("empty session rendered")
	}
	base := "/api/sessions/" + created.ID

	w = do(r, http.MethodGet, base+"/download", nil)
	if w.Code != http.StatusNotFound || errorCode(t, w) != "NO_RESULT" {
		t.Fatalf("download without result = %d %s", w.Code, w.Body.String())
	}
	if w := do(r, http.MethodGet, base+"/preview", nil); w.Code != http.StatusNotFound {
		t.Fatalf("preview without result = %d", w.Code)
	}

	w = do(r, http.MethodPost, base+"/edits", jsonBody(map[string]string{"field": "colour", "value": "red"}), "Content-Type", "application/json")
	if w.Code != http.StatusBadRequest || errorCode(t, w) != "UNKNOWN_FIELD" {
		t.Fatalf("unknown field = %d %s", w.Code, w.Body.String())
	}

	do(r, http.MethodPost, base+"/edits", jsonBody(map[string]string{"field": "text", "value": "ftp://x"}), "Content-Type", "application/json")
	s, _ := h.Sessions().Get(created.ID)
	s.Controller().Wait()
	var st sessionState
	decodeJSON(t, do(r, http.MethodGet, base, nil), &st)
	if !strings.Contains(st.Error, "valid URL") || st.DownloadVisible {
		t.Fatalf("state = %+v", st)
	}

	do(r, http.MethodPost, base+"/edits", jsonBody(map[string]any{"edits": []map[string]string{
		{"field": "text", "value": "https://example.com"},
		{"field": "size", "value": "-1"},
	}}), "Content-Type", "application/json")
	s.Controller().Wait()
	decodeJSON(t, do(r, http.MethodGet, base, nil), &st)
	if st.Size != 256 || st.Alert == "" || st.Error != "" {
		t.Fatalf("state after size correction = %+v", st)
	}
	decodeJSON(t, do(r, http.MethodGet, base, nil), &st)
	if st.Alert != "" || st.Size != 0 {
		t.Fatalf("alert delivered twice: %+v", st)
	}

	w = do(r, http.MethodPost, base+"/swatch", jsonBody(map[string]string{"fg": "#ffffff"}), "Content-Type", "application/json")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("swatch without bg = %d", w.Code)
	}
	w = do(r, http.MethodPost, base+"/swatch", jsonBody(map[string]string{"fg": "#f9fafb", "bg": "#111827"}), "Content-Type", "application/json")
	if w.Code != http.StatusOK {
		t.Fatalf("swatch = %d", w.Code)
	}
	if f := s.Controller().Form(); f.Foreground != "#f9fafb" || f.Background != "#111827" {
		t.Fatalf("form colors = %s/%s", f.Foreground, f.Background)
	}

	if w := do(r, http.MethodGet, "/api/sessions/nope", nil); w.Code != http.StatusNotFound {
		t.Fatalf("unknown session = %d", w.Code)
	}
}

func TestSessionLogoUpload(t *testing.T) {
	t.Parallel()
	h, r := newTestServer(t)

	w := do(r, http.MethodPost, "/api/sessions", jsonBody(map[string]any{
		"edits": []map[string]string{{"field": "text", "value": "https://example.com"}},
	}), "Content-Type", "application/json")
	var created struct {
		ID string `json:"id"`
	}
	decodeJSON(t, w, &created)
	base := "/api/sessions/" + created.ID

	var logoPNG bytes.Buffer
	if err := png.Encode(&logoPNG, image.NewNRGBA(image.Rect(0, 0, 64, 32))); err != nil {
		t.Fatal(err)
	}
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("logo", "logo.png")
	if err != nil {
		t.Fatal(err)
	}
	part.Write(logoPNG.Bytes())
	mw.Close()

	w = do(r, http.MethodPost, base+"/logo", &body, "Content-Type", mw.FormDataContentType())
	if w.Code != http.StatusOK {
		t.Fatalf("logo status = %d: %s", w.Code, w.Body.String())
	}
	s, _ := h.Sessions().Get(created.ID)
	if s.Controller().Form().Logo == nil {
		t.Fatal("logo not stored")
	}

	body.Reset()
	mw = multipart.NewWriter(&body)
	part, _ = mw.CreateFormFile("logo", "logo.png")
	part.Write([]byte("definitely not an image"))
	mw.Close()
	w = do(r, http.MethodPost, base+"/logo", &body, "Content-Type", mw.FormDataContentType())
	if w.Code != http.StatusBadRequest || errorCode(t, w) != "INVALID_LOGO" {
		t.Fatalf("bad logo = %d %s", w.Code, w.Body.String())
	}

	body.Reset()
	mw = multipart.NewWriter(&body)
	mw.Close()
	w = do(r, http.MethodPost, base+"/logo", &body, "Content-Type", mw.FormDataContentType())
	if w.Code != http.StatusOK || s.Controller().Form().Logo != nil {
		t.Fatalf("logo removal = %d", w.Code)
	}
}

func TestThemeCookie(t *testing.T) {
	t.Parallel()
	_, r := newTestServer(t)

	form := func(v string) io.Reader { return strings.NewReader(url.Values{"dark": {v}}.Encode()) }
	ct := "application/x-www-form-urlencoded"

	w := do(r, http.MethodPost, "/api/theme", form("on"), "Content-Type", ct)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if sc := w.Header().Get("Set-Cookie"); !strings.Contains(sc, "darkMode=enabled") {
		t.Fatalf("Set-Cookie = %q", sc)
	}
	var body map[string]string
	decodeJSON(t, w, &body)
	if body["effective"] != "dark" {
		t.Fatalf("body = %v", body)
	}

	w = do(r, http.MethodPost, "/api/theme", form("system"), "Content-Type", ct, "Cookie", "darkMode=enabled")
	if sc := w.Header().Get("Set-Cookie"); !strings.Contains(sc, "darkMode=;") || !strings.Contains(sc, "Max-Age=0") {
		t.Fatalf("reset Set-Cookie = %q", sc)
	}

	w = do(r, http.MethodPost, "/api/theme", form("purple"), "Content-Type", ct)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bad theme = %d", w.Code)
	}

	w = do(r, http.MethodPost, "/api/theme", form("off"), "Content-Type", ct, "Accept", "text/html")
	if w.Code != http.StatusSeeOther {
		t.Fatalf("browser post = %d, want redirect", w.Code)
	}
}

func TestHomePageTheme(t *testing.T) {
	t.Parallel()
	h, r := newTestServer(t)

	tests := []struct {
		name   string
		header []string
		dark   bool
	}{
		{name: "default light"},
		{name: "system dark", header: []string{"Sec-CH-Prefers-Color-Scheme", `"dark"`}, dark: true},
		{name: "stored beats system", header: []string{"Sec-CH-Prefers-Color-Scheme", "dark", "Cookie", "darkMode=disabled"}},
		{name: "stored dark", header: []string{"Cookie", "darkMode=enabled"}, dark: true},
	}
	for _, tt := range tests {
		w := do(r, http.MethodGet, "/", nil, tt.header...)
		if w.Code != http.StatusOK {
			t.Fatalf("%s: status = %d", tt.name, w.Code)
		}
		isDark := strings.Contains(w.Body.String(), `<html lang="en" class="dark">`)
		if isDark != tt.dark {
			t.Errorf("%s: dark = %v, want %v", tt.name, isDark, tt.dark)
		}
		if w.Header().Get("Accept-CH") == "" {
			t.Errorf("%s: missing Accept-CH", tt.name)
		}
	}
	if n := h.Sessions().Len(); n != 0 {
		t.Fatalf("sessions = %d after page views, want 0", n)
	}
}

func TestPageViewsKeepLiveSessions(t *testing.T) {
	t.Parallel()
	h, r := newTestServer(t)

	w := do(r, http.MethodPost, "/api/sessions", jsonBody(map[string]any{"containerWidth": 320}),
		"Content-Type", "application/json")
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", w.Code, w.Body.String())
	}
	var created struct {
		ID string `json:"id"`
	}
	decodeJSON(t, w, &created)

	// More page views than the session cap.
	for i := 0; i < 3*8; i++ {
		if w := do(r, http.MethodGet, "/", nil); w.Code != http.StatusOK {
			t.Fatalf("page status = %d", w.Code)
		}
	}
	if n := h.Sessions().Len(); n != 1 {
		t.Fatalf("sessions = %d, want 1", n)
	}
	if w := do(r, http.MethodGet, "/api/sessions/"+created.ID, nil); w.Code != http.StatusOK {
		t.Fatalf("live session evicted: status = %d", w.Code)
	}
	s, err := h.Sessions().Get(created.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got := s.view.ContainerWidth(); got != 320 {
		t.Errorf("container width = %d, want 320", got)
	}
}

func TestMiscEndpoints(t *testing.T) {
	t.Parallel()
	_, r := newTestServer(t)

	w := do(r, http.MethodGet, "/healthz", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"engine":"basic"`) {
		t.Fatalf("healthz = %d %s", w.Code, w.Body.String())
	}

	w = do(r, http.MethodGet, "/sitemap.xml", nil)
	if !strings.Contains(w.Body.String(), "<loc>http://example.com/</loc>") && !strings.Contains(w.Body.String(), "<loc>https://example.com/</loc>") {
		t.Fatalf("sitemap = %s", w.Body.String())
	}

	w = do(r, http.MethodPost, "/api/htmx/toast", strings.NewReader("title=Copied&variant=warning"), "Content-Type", "application/x-www-form-urlencoded")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `data-variant="warning"`) {
		t.Fatalf("toast = %d %s", w.Code, w.Body.String())
	}
}
