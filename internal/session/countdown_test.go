package session

import (
	"sync"
	"testing"
	"time"
)

func TestCountdownTicksDownAndExpiresOnce(t *testing.T) {
	var (
		mu      sync.Mutex
		ticks   []int
		expires int
	)

	c := NewCountdown(3, 10*time.Millisecond, func(remaining int) {
		mu.Lock()
		ticks = append(ticks, remaining)
		mu.Unlock()
	}, func() {
		mu.Lock()
		expires++
		mu.Unlock()
	})
	c.Start()

	deadline := time.Now().Add(time.Second)
	for {
		mu.Lock()
		done := expires > 0
		mu.Unlock()
		if done {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("countdown did not expire")
		}
		time.Sleep(5 * time.Millisecond)
	}

	// Give a wrongly still-running ticker a chance to misbehave.
	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	want := []int{2, 1, 0}
	if len(ticks) != len(want) {
		t.Fatalf("ticks = %v, want %v", ticks, want)
	}
	for i := range want {
		if ticks[i] != want[i] {
			t.Fatalf("ticks = %v, want %v", ticks, want)
		}
	}
	if expires != 1 {
		t.Fatalf("expires = %d, want 1", expires)
	}
}

func TestCountdownStopHaltsTicking(t *testing.T) {
	var (
		mu      sync.Mutex
		ticks   int
		expired bool
	)

	c := NewCountdown(100, 10*time.Millisecond, func(int) {
		mu.Lock()
		ticks++
		mu.Unlock()
	}, func() {
		mu.Lock()
		expired = true
		mu.Unlock()
	})
	c.Start()

	time.Sleep(35 * time.Millisecond)
	c.Stop()
	c.Stop() // must be safe to repeat

	mu.Lock()
	after := ticks
	mu.Unlock()

	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if ticks != after {
		t.Fatalf("ticks kept arriving after Stop: %d -> %d", after, ticks)
	}
	if expired {
		t.Fatal("countdown expired despite Stop")
	}
}
