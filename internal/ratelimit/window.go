package ratelimit

import (
	"sync"
	"time"
)

// windowState tracks one key's current window.
type windowState struct {
	start time.Time
	count int
}

// FixedWindow is a keyed fixed-window counter: at most max requests per key
// within any single window. The first request after a window elapses starts a
// fresh window, so a request arriving exactly on the boundary is counted
// against the new window and allowed.
//
// Unlike the token bucket, denial here is a hard quota with a knowable reset
// time, which is what capture clients need to back off politely.
type FixedWindow struct {
	mu     sync.Mutex
	states map[string]*windowState
	window time.Duration
	max    int

	// now is swappable for tests.
	now func() time.Time

	done     chan struct{}
	stopOnce sync.Once
}

// NewFixedWindow creates a fixed-window limiter allowing max requests per
// window duration for each key.
func NewFixedWindow(window time.Duration, max int) *FixedWindow {
	fw := &FixedWindow{
		states: make(map[string]*windowState),
		window: window,
		max:    max,
		now:    time.Now,
		done:   make(chan struct{}),
	}

	go fw.cleanup()

	return fw
}

// Allow records a request for the key and reports whether it fits in the
// current window.
func (fw *FixedWindow) Allow(key string) bool {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	now := fw.now()
	st, ok := fw.states[key]
	if !ok || now.Sub(st.start) >= fw.window {
		fw.states[key] = &windowState{start: now, count: 1}
		return true
	}

	if st.count >= fw.max {
		return false
	}
	st.count++
	return true
}

// RetryAfter returns how long the key must wait until its window resets.
// Zero means a request would be allowed right now.
func (fw *FixedWindow) RetryAfter(key string) time.Duration {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	st, ok := fw.states[key]
	if !ok {
		return 0
	}

	now := fw.now()
	remaining := fw.window - now.Sub(st.start)
	if remaining <= 0 || st.count < fw.max {
		return 0
	}
	return remaining
}

// Stop shuts down the eviction goroutine.
func (fw *FixedWindow) Stop() {
	fw.stopOnce.Do(func() {
		close(fw.done)
	})
}

// cleanup periodically drops entries whose window has long elapsed, so the
// map doesn't grow with every device key ever seen.
func (fw *FixedWindow) cleanup() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-fw.done:
			return
		case <-ticker.C:
			fw.mu.Lock()
			now := fw.now()
			for key, st := range fw.states {
				if now.Sub(st.start) >= 2*fw.window {
					delete(fw.states, key)
				}
			}
			fw.mu.Unlock()
		}
	}
}
