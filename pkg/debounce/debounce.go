// Package debounce provides the timing and staleness primitives behind the
// composer's background lookups: a restartable timer for search-as-you-type
// and a sequence guard that lets callers discard responses whose triggering
// input is no longer current.
package debounce

import (
	"sync"
	"sync/atomic"
	"time"
)

// Debouncer coalesces rapid triggers into a single callback. Every Trigger
// supersedes the previous one; only the last scheduled callback fires, and
// it receives the sequence number of the trigger that scheduled it. Callers
// must re-check Current before applying results, since a callback can still
// be superseded while its lookup is in flight.
type Debouncer struct {
	mu    sync.Mutex
	delay time.Duration
	timer *time.Timer
	seq   uint64
}

func NewDebouncer(delay time.Duration) *Debouncer {
	return &Debouncer{delay: delay}
}

// Trigger schedules fn after the configured delay, cancelling any pending
// run, and returns the sequence assigned to this trigger.
func (d *Debouncer) Trigger(fn func(seq uint64)) uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.seq++
	seq := d.seq
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, func() { fn(seq) })
	return seq
}

// Cancel invalidates any pending or in-flight trigger. A stopped timer will
// not fire; a callback already past the timer sees a stale sequence.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.seq++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// Current returns the latest issued sequence.
func (d *Debouncer) Current() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.seq
}

// Guard is a bare sequence counter for dependent reloads (address list,
// shipping preview) where no timer is needed: take Next before issuing the
// request, apply the result only while the sequence is still Current.
// The zero value is ready to use.
type Guard struct {
	seq atomic.Uint64
}

// Next issues a new sequence, invalidating all earlier ones.
func (g *Guard) Next() uint64 {
	return g.seq.Add(1)
}

// Current returns the latest issued sequence.
func (g *Guard) Current() uint64 {
	return g.seq.Load()
}

// Invalidate marks every outstanding request stale without issuing a new
// one, for example when the triggering entity is cleared entirely.
func (g *Guard) Invalidate() {
	g.seq.Add(1)
}
