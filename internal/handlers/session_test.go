package handlers

import (
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/cristianadrielbraun/qrstudio/internal/qr"
	"github.com/cristianadrielbraun/qrstudio/internal/studio"
)

func newTestRegistry(ttl time.Duration, max int) (*Sessions, *time.Time) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	r := NewSessions(ttl, max, func(view studio.View, log *logrus.Entry) *studio.Controller {
		return studio.New(view, studio.Config{Engine: qr.NewBasicEngine(), Logger: log})
	})
	r.SetLogger(quietLogger())
	r.now = func() time.Time { return now }
	return r, &now
}

func TestSessionsExpire(t *testing.T) {
	t.Parallel()

	r, now := newTestRegistry(time.Minute, 4)
	t.Cleanup(r.Close)

	a, err := r.Create(0)
	if err != nil {
		t.Fatal(err)
	}
	b, _ := r.Create(0)

	*now = now.Add(45 * time.Second)
	if _, err := r.Get(a.ID); err != nil {
		t.Fatalf("Get(a) = %v", err)
	}

	*now = now.Add(30 * time.Second)
	if _, err := r.Get(b.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("Get(b) = %v, want expired", err)
	}
	if n := r.Sweep(); n != 0 {
		t.Fatalf("Sweep() = %d, want 0", n)
	}

	*now = now.Add(2 * time.Minute)
	if n := r.Sweep(); n != 1 {
		t.Fatalf("Sweep() = %d, want 1", n)
	}
	if r.Len() != 0 {
		t.Fatalf("Len() = %d", r.Len())
	}
}

func TestSessionsEvictLeastRecentlyUsed(t *testing.T) {
	t.Parallel()

	r, now := newTestRegistry(time.Hour, 2)
	t.Cleanup(r.Close)

	a, _ := r.Create(0)
	*now = now.Add(time.Second)
	b, _ := r.Create(0)
	*now = now.Add(time.Second)
	if _, err := r.Get(a.ID); err != nil {
		t.Fatal(err)
	}
	*now = now.Add(time.Second)
	c, _ := r.Create(0)

	if r.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", r.Len())
	}
	if _, err := r.Get(b.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("least recently used session survived: %v", err)
	}
	for _, s := range []*Session{a, c} {
		if _, err := r.Get(s.ID); err != nil {
			t.Fatalf("Get(%s) = %v", s.ID, err)
		}
	}
	if a.ID == c.ID {
		t.Fatal("duplicate session ids")
	}
}

func TestSessionViewStateDeliversAlertOnce(t *testing.T) {
	t.Parallel()

	r, _ := newTestRegistry(time.Hour, 2)
	t.Cleanup(r.Close)
	s, _ := r.Create(0)

	ctrl := s.Controller()
	ctrl.Load(studio.FormState{Text: "https://example.com", Size: "zero"})
	ctrl.Regenerate()

	st := s.State()
	if st.Alert == "" || st.Size != 256 || st.Result == nil || !st.DownloadVisible {
		t.Fatalf("first state = %+v", st)
	}
	st = s.State()
	if st.Alert != "" || st.Size != 0 || st.Result == nil {
		t.Fatalf("second state = %+v", st)
	}
}
