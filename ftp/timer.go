package ftp

import (
	"sync"
	"time"
)

// timer is a single one-shot timer bound to whichever Job is currently at
// the head of the queue. Starting it cancels any previous registration and
// schedules a fresh one. A fire that lost the race against an incoming
// ack carries a stale generation: time.AfterFunc cannot un-run a callback
// that already started, so the dispatcher checks live() under the queue
// guard before acting on a fire.
type timer struct {
	mu       sync.Mutex
	cookie   *time.Timer
	gen      uint64
	duration time.Duration
	onFire   func(gen uint64)
}

func newTimer(duration time.Duration, onFire func(gen uint64)) *timer {
	return &timer{duration: duration, onFire: onFire}
}

// start cancels any previous registration and schedules a fresh one under
// a new generation.
func (t *timer) start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cookie != nil {
		t.cookie.Stop()
	}
	t.gen++
	gen := t.gen
	t.cookie = time.AfterFunc(t.duration, func() { t.onFire(gen) })
}

// stop cancels the current registration, if any, and invalidates any fire
// already in flight.
func (t *timer) stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cookie != nil {
		t.cookie.Stop()
		t.cookie = nil
	}
	t.gen++
}

// live reports whether gen is still the current registration.
func (t *timer) live(gen uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return gen == t.gen
}
