package handlers

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"image"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/cristianadrielbraun/qrstudio/internal/studio"
)

// ErrSessionNotFound is returned for unknown or expired session ids.
var ErrSessionNotFound = errors.New("session not found")

// sessionView is the studio.View of one browser tab. It keeps the latest
// value of every slot so the page can poll it.
type sessionView struct {
	mu       sync.Mutex
	width    int
	image    image.Image
	errMsg   string
	warning  string
	alert    string
	size     int
	download bool
}

func newSessionView(width int) *sessionView {
	return &sessionView{width: width}
}

func (v *sessionView) ContainerWidth() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.width
}

func (v *sessionView) setWidth(w int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.width = w
}

func (v *sessionView) Replace(img image.Image) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.image = img
}

func (v *sessionView) ShowError(msg string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.errMsg = msg
}

func (v *sessionView) ShowWarning(msg string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.warning = msg
}

func (v *sessionView) Alert(msg string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.alert = msg
}

func (v *sessionView) ReflectSize(size int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.size = size
}

func (v *sessionView) SetDownloadVisible(visible bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.download = visible
}

func (v *sessionView) displayed() image.Image {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.image
}

// ResultInfo describes the committed result.
type ResultInfo struct {
	Kind   string `json:"kind"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// State is what a page polls after each edit.
type State struct {
	Error           string           `json:"error"`
	Warning         string           `json:"warning"`
	Alert           string           `json:"alert,omitempty"`
	DownloadVisible bool             `json:"downloadVisible"`
	Size            int              `json:"size,omitempty"`
	Result          *ResultInfo      `json:"result"`
	Seq             uint64           `json:"seq"`
	Form            studio.FormState `json:"form"`
}

// Session pairs a controller with its view.
type Session struct {
	ID   string
	ctrl *studio.Controller
	view *sessionView

	mu       sync.Mutex
	lastSeen time.Time
}

// State snapshots the session. A pending alert is delivered once and then
// cleared, and so is a reflected size.
func (s *Session) State() State {
	st := State{
		Seq:  s.ctrl.Seq(),
		Form: s.ctrl.Form(),
	}
	if r := s.ctrl.Current(); r != nil {
		b := r.Bounds()
		st.Result = &ResultInfo{Kind: r.Kind(), Width: b.Dx(), Height: b.Dy()}
	}

	v := s.view
	v.mu.Lock()
	defer v.mu.Unlock()
	st.Error = v.errMsg
	st.Warning = v.warning
	st.Alert = v.alert
	st.DownloadVisible = v.download
	st.Size = v.size
	v.alert = ""
	v.size = 0
	return st
}

// Controller returns the session's controller.
func (s *Session) Controller() *studio.Controller { return s.ctrl }

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeen = now
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// ControllerFactory builds the controller for a new session.
type ControllerFactory func(view studio.View, log *logrus.Entry) *studio.Controller

// Sessions is a registry of live sessions with idle expiry. When full, the
// least recently used session is evicted to make room.
type Sessions struct {
	ttl     time.Duration
	max     int
	factory ControllerFactory
	log     *logrus.Logger
	now     func() time.Time

	mu    sync.Mutex
	items map[string]*Session
}

// NewSessions returns an empty registry.
func NewSessions(ttl time.Duration, max int, factory ControllerFactory) *Sessions {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	if max <= 0 {
		max = 256
	}
	return &Sessions{
		ttl:     ttl,
		max:     max,
		factory: factory,
		log:     logrus.StandardLogger(),
		now:     time.Now,
		items:   map[string]*Session{},
	}
}

// SetLogger replaces the registry's logger.
func (r *Sessions) SetLogger(l *logrus.Logger) { r.log = l }

// Create opens a session whose view reports width as the container width.
func (r *Sessions) Create(width int) (*Session, error) {
	id, err := newSessionID()
	if err != nil {
		return nil, err
	}
	view := newSessionView(width)
	s := &Session{
		ID:       id,
		view:     view,
		ctrl:     r.factory(view, r.log.WithField("session", id)),
		lastSeen: r.now(),
	}

	var evicted []*Session
	r.mu.Lock()
	evicted = r.expiredLocked(r.now())
	for len(r.items) >= r.max {
		if oldest := r.oldestLocked(); oldest != nil {
			delete(r.items, oldest.ID)
			evicted = append(evicted, oldest)
		}
	}
	r.items[id] = s
	r.mu.Unlock()

	r.closeAll(evicted, "session_evicted")
	r.log.WithFields(logrus.Fields{"event": "session_created", "session": id}).Debug("session opened")
	return s, nil
}

// Get returns a live session and marks it used.
func (r *Sessions) Get(id string) (*Session, error) {
	now := r.now()
	r.mu.Lock()
	s, ok := r.items[id]
	if ok && now.Sub(s.idleSince()) > r.ttl {
		delete(r.items, id)
		r.mu.Unlock()
		r.closeAll([]*Session{s}, "session_expired")
		return nil, ErrSessionNotFound
	}
	r.mu.Unlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	s.touch(now)
	return s, nil
}

// Delete closes and removes a session. It reports whether it existed.
func (r *Sessions) Delete(id string) bool {
	r.mu.Lock()
	s, ok := r.items[id]
	delete(r.items, id)
	r.mu.Unlock()
	if ok {
		r.closeAll([]*Session{s}, "session_deleted")
	}
	return ok
}

// Len is the number of registered sessions.
func (r *Sessions) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

// Sweep closes every expired session and returns how many it closed.
func (r *Sessions) Sweep() int {
	r.mu.Lock()
	expired := r.expiredLocked(r.now())
	r.mu.Unlock()
	r.closeAll(expired, "session_expired")
	return len(expired)
}

// Run sweeps every half TTL until ctx is done.
func (r *Sessions) Run(ctx context.Context) {
	t := time.NewTicker(r.ttl / 2)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			r.Sweep()
		}
	}
}

// Close ends every session.
func (r *Sessions) Close() {
	r.mu.Lock()
	all := make([]*Session, 0, len(r.items))
	for id, s := range r.items {
		all = append(all, s)
		delete(r.items, id)
	}
	r.mu.Unlock()
	r.closeAll(all, "session_closed")
}

func (r *Sessions) expiredLocked(now time.Time) []*Session {
	var out []*Session
	for id, s := range r.items {
		if now.Sub(s.idleSince()) > r.ttl {
			delete(r.items, id)
			out = append(out, s)
		}
	}
	return out
}

func (r *Sessions) oldestLocked() *Session {
	var oldest *Session
	for _, s := range r.items {
		if oldest == nil || s.idleSince().Before(oldest.idleSince()) {
			oldest = s
		}
	}
	return oldest
}

func (r *Sessions) closeAll(sessions []*Session, event string) {
	for _, s := range sessions {
		s.ctrl.Close()
		r.log.WithFields(logrus.Fields{"event": event, "session": s.ID}).Debug("session closed")
	}
}

func newSessionID() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func (v *sessionView) warningText() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.warning
}
