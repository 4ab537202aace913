package async

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestDebouncerRunsOnlyLastCallOfBurst(t *testing.T) {
	d := NewDebouncer(40 * time.Millisecond)

	var runs atomic.Int32
	var last atomic.Int32
	for i := 1; i <= 10; i++ {
		i := i
		d.Schedule(func() {
			runs.Add(1)
			last.Store(int32(i))
		})
	}
	d.Wait()

	if got := runs.Load(); got != 1 {
		t.Fatalf("runs = %d, want 1", got)
	}
	if got := last.Load(); got != 10 {
		t.Fatalf("last value = %d, want 10", got)
	}
}

func TestDebouncerSeparateBurstsBothRun(t *testing.T) {
	d := NewDebouncer(10 * time.Millisecond)

	var runs atomic.Int32
	d.Schedule(func() { runs.Add(1) })
	d.Wait()
	d.Schedule(func() { runs.Add(1) })
	d.Wait()

	if got := runs.Load(); got != 2 {
		t.Fatalf("runs = %d, want 2", got)
	}
}

func TestDebouncerCancel(t *testing.T) {
	d := NewDebouncer(time.Hour)

	d.Schedule(func() { t.Error("cancelled action ran") })
	if !d.Cancel() {
		t.Fatal("Cancel() = false, want true for a pending action")
	}
	if d.Cancel() {
		t.Fatal("second Cancel() = true, want false")
	}
	d.Wait()
}

func TestFutureAwait(t *testing.T) {
	t.Parallel()

	f := Go(context.Background(), func(context.Context) ([]byte, error) {
		return []byte("ok"), nil
	})
	got, err := f.Await(context.Background())
	if err != nil {
		t.Fatalf("Await() unexpected error: %v", err)
	}
	if string(got) != "ok" {
		t.Fatalf("Await() = %q, want ok", got)
	}
}

func TestFutureResolvesOnce(t *testing.T) {
	t.Parallel()

	f, resolve := NewFuture[int]()
	resolve(1, nil)
	resolve(2, errors.New("late"))

	got, err := f.Await(context.Background())
	if err != nil || got != 1 {
		t.Fatalf("Await() = %d, %v; want 1, nil", got, err)
	}
}

func TestFutureAwaitHonoursContext(t *testing.T) {
	t.Parallel()

	f, _ := NewFuture[int]()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if _, err := f.Await(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Await() error = %v, want deadline exceeded", err)
	}
}
