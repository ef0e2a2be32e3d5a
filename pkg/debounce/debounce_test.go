package debounce

import (
	"sync"
	"testing"
	"time"
)

func TestDebouncerLastTriggerWins(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)

	var mu sync.Mutex
	var fired []uint64
	done := make(chan struct{})

	for i := 0; i < 3; i++ {
		d.Trigger(func(seq uint64) {
			mu.Lock()
			fired = append(fired, seq)
			mu.Unlock()
			close(done)
		})
		time.Sleep(2 * time.Millisecond)
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("debounced callback never fired")
	}
	// Give any erroneously un-cancelled timers a chance to fire.
	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if len(fired) != 1 {
		t.Fatalf("expected exactly one callback, got %v", fired)
	}
	if fired[0] != 3 {
		t.Fatalf("expected latest trigger (seq 3) to fire, got %d", fired[0])
	}
}

func TestDebouncerCancelPreventsFire(t *testing.T) {
	d := NewDebouncer(10 * time.Millisecond)

	fired := make(chan uint64, 1)
	seq := d.Trigger(func(s uint64) { fired <- s })
	d.Cancel()

	select {
	case s := <-fired:
		t.Fatalf("cancelled trigger fired with seq %d", s)
	case <-time.After(50 * time.Millisecond):
	}
	if d.Current() <= seq {
		t.Fatal("cancel should invalidate the outstanding sequence")
	}
}

func TestGuardStalenessCheck(t *testing.T) {
	var g Guard

	first := g.Next()
	second := g.Next()

	if first == g.Current() {
		t.Fatal("first request should be stale after second issue")
	}
	if second != g.Current() {
		t.Fatal("second request should still be current")
	}

	g.Invalidate()
	if second == g.Current() {
		t.Fatal("invalidate should stale every outstanding request")
	}
}
