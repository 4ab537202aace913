package async

import (
	"sync"
	"time"
)

// Debouncer runs only the last of a burst of scheduled actions, once the
// burst has been quiet for the configured delay.
type Debouncer struct {
	delay time.Duration

	mu    sync.Mutex
	timer *time.Timer
	wg    sync.WaitGroup
}

// NewDebouncer returns a Debouncer with the given quiet period.
func NewDebouncer(delay time.Duration) *Debouncer {
	return &Debouncer{delay: delay}
}

// Schedule arranges for fn to run after the quiet period. A pending action
// from an earlier call is cancelled.
func (d *Debouncer) Schedule(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil && d.timer.Stop() {
		d.wg.Done()
	}
	d.wg.Add(1)
	d.timer = time.AfterFunc(d.delay, func() {
		defer d.wg.Done()
		fn()
	})
}

// Cancel drops the pending action, if any. It reports whether one was
// dropped.
func (d *Debouncer) Cancel() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer == nil || !d.timer.Stop() {
		return false
	}
	d.timer = nil
	d.wg.Done()
	return true
}

// Wait blocks until no action is pending or running.
func (d *Debouncer) Wait() {
	d.wg.Wait()
}
