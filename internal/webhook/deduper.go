package webhook

import (
	"context"
	"sync"
	"time"
)

// Deduper guarantees at-most-once processing of provider events.
// CheckAndMark is a single atomic check-and-set: the first caller for
// an id gets fresh=true, every later caller gets fresh=false. There is
// no separate check step to race against.
type Deduper interface {
	CheckAndMark(ctx context.Context, eventID string) (fresh bool, err error)
}

// MemoryDeduper tracks seen event ids in process memory for the
// lifetime of the replay window.
type MemoryDeduper struct {
	mu     sync.Mutex
	seen   map[string]time.Time
	window time.Duration
}

// NewMemoryDeduper creates a deduper with the given replay window;
// window <= 0 keeps ids forever.
func NewMemoryDeduper(window time.Duration) *MemoryDeduper {
	return &MemoryDeduper{
		seen:   make(map[string]time.Time),
		window: window,
	}
}

func (d *MemoryDeduper) CheckAndMark(_ context.Context, eventID string) (bool, error) {
	now := time.Now()

	d.mu.Lock()
	defer d.mu.Unlock()

	if seenAt, ok := d.seen[eventID]; ok {
		if d.window <= 0 || now.Sub(seenAt) < d.window {
			return false, nil
		}
	}

	d.seen[eventID] = now
	d.pruneLocked(now)
	return true, nil
}

// pruneLocked drops ids older than the replay window. Called with the
// lock held on every mark, which keeps the map bounded without a
// background goroutine.
func (d *MemoryDeduper) pruneLocked(now time.Time) {
	if d.window <= 0 || len(d.seen) < 4096 {
		return
	}
	for id, seenAt := range d.seen {
		if now.Sub(seenAt) >= d.window {
			delete(d.seen, id)
		}
	}
}
