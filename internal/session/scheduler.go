package session

import (
	"context"
	"sync"
	"time"
)

// DefaultFrameInterval approximates a 60Hz display.
const DefaultFrameInterval = 16 * time.Millisecond

// Scheduler runs a callback once before the next frame.
type Scheduler interface {
	RequestFrame(fn func())
}

// FrameScheduler is a Scheduler driven by a ticker. Every callback runs on
// the goroutine calling Run, one after another, so sessions sharing a
// FrameScheduler never tick concurrently.
type FrameScheduler struct {
	interval time.Duration

	mu      sync.Mutex
	pending []func()
}

func NewFrameScheduler(interval time.Duration) *FrameScheduler {
	if interval <= 0 {
		interval = DefaultFrameInterval
	}
	return &FrameScheduler{interval: interval}
}

// RequestFrame queues fn for the next frame. Safe for concurrent use.
func (f *FrameScheduler) RequestFrame(fn func()) {
	f.mu.Lock()
	f.pending = append(f.pending, fn)
	f.mu.Unlock()
}

// Run dispatches frames until ctx is cancelled. Callbacks requested while a
// frame is running are deferred to the following frame.
func (f *FrameScheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			f.frame()
		}
	}
}

func (f *FrameScheduler) frame() {
	f.mu.Lock()
	batch := f.pending
	f.pending = nil
	f.mu.Unlock()
	for _, fn := range batch {
		fn()
	}
}

// Pending returns the number of callbacks waiting for the next frame.
func (f *FrameScheduler) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pending)
}
