package ratelimit

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

// newTestWindow returns a limiter with a controllable clock.
func newTestWindow(window time.Duration, max int) (*FixedWindow, *time.Time) {
	fw := NewFixedWindow(window, max)
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	fw.now = func() time.Time { return now }
	return fw, &now
}

func TestFixedWindow_AllowUpToMax(t *testing.T) {
	fw, _ := newTestWindow(time.Minute, 3)
	defer fw.Stop()

	for i := 0; i < 3; i++ {
		if !fw.Allow("dev-1") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if fw.Allow("dev-1") {
		t.Error("request beyond max should be denied")
	}
}

func TestFixedWindow_ResetAfterWindow(t *testing.T) {
	fw, now := newTestWindow(time.Minute, 2)
	defer fw.Stop()

	fw.Allow("dev-1")
	fw.Allow("dev-1")
	if fw.Allow("dev-1") {
		t.Fatal("window should be exhausted")
	}

	*now = now.Add(time.Minute)
	if !fw.Allow("dev-1") {
		t.Error("request after window elapsed should be allowed")
	}
}

func TestFixedWindow_BoundaryFavorsCaller(t *testing.T) {
	fw, now := newTestWindow(time.Minute, 1)
	defer fw.Stop()

	fw.Allow("dev-1")

	// Exactly on the boundary: new window, allowed.
	*now = now.Add(time.Minute)
	if !fw.Allow("dev-1") {
		t.Error("request exactly at window boundary should start a new window")
	}
}

func TestFixedWindow_IndependentKeys(t *testing.T) {
	fw, _ := newTestWindow(time.Minute, 1)
	defer fw.Stop()

	fw.Allow("dev-1")
	if fw.Allow("dev-1") {
		t.Error("dev-1 should be exhausted")
	}
	if !fw.Allow("dev-2") {
		t.Error("dev-2 should be independent and allowed")
	}
}

func TestFixedWindow_RetryAfter(t *testing.T) {
	fw, now := newTestWindow(time.Minute, 1)
	defer fw.Stop()

	if got := fw.RetryAfter("dev-1"); got != 0 {
		t.Errorf("RetryAfter for unseen key = %v, want 0", got)
	}

	fw.Allow("dev-1")
	if got := fw.RetryAfter("dev-1"); got != time.Minute {
		t.Errorf("RetryAfter = %v, want %v", got, time.Minute)
	}

	*now = now.Add(40 * time.Second)
	if got := fw.RetryAfter("dev-1"); got != 20*time.Second {
		t.Errorf("RetryAfter = %v, want %v", got, 20*time.Second)
	}

	*now = now.Add(20 * time.Second)
	if got := fw.RetryAfter("dev-1"); got != 0 {
		t.Errorf("RetryAfter after window elapsed = %v, want 0", got)
	}
}

func TestFixedWindow_ConcurrentExactCount(t *testing.T) {
	fw := NewFixedWindow(time.Minute, 50)
	defer fw.Stop()

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if fw.Allow("dev-1") {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if allowed != 50 {
		t.Errorf("allowed %d concurrent requests, want exactly 50", allowed)
	}
}

func TestFixedWindow_ManyKeys(t *testing.T) {
	fw := NewFixedWindow(time.Minute, 1)
	defer fw.Stop()

	for i := 0; i < 100; i++ {
		key := fmt.Sprintf("dev-%d", i)
		if !fw.Allow(key) {
			t.Fatalf("first request for %s should be allowed", key)
		}
	}
}
