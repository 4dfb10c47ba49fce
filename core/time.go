// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"sync"
	"time"
)

// NewTime creates a new time service
func NewTime(cfg TimeConfiguration) *Time {
	var interval time.Duration
	if cfg.FramesPerSecond == 0 {
		interval = time.Nanosecond
	} else {
		interval = time.Second / (time.Duration)(cfg.FramesPerSecond)
	}
	pollDelay := time.Duration(cfg.EventPollDelay) * time.Millisecond
	if pollDelay <= 0 {
		pollDelay = time.Millisecond
	}

	return &Time{
		fps:            cfg.FramesPerSecond,
		fpsTicker:      time.NewTicker(interval),
		eventPollDelay: cfg.EventPollDelay,
		eventTicker:    time.NewTicker(pollDelay),
	}
}

// Time contains all the time services and tickers
type Time struct {
	fps       int
	fpsTicker *time.Ticker

	eventPollDelay int
	eventTicker    *time.Ticker
}

// Fps gets the set frames per second
func (t *Time) Fps() int {
	return t.fps
}

// FrameTime returns the expected length of a frame in seconds, zero
// when frames are not capped.
func (t *Time) FrameTime() float64 {
	if t.fps == 0 {
		return 0
	}
	return 1 / float64(t.fps)
}

// FpsTicker gets the initialized fps ticker
func (t *Time) FpsTicker() *time.Ticker {
	return t.fpsTicker
}

// EventTicker gets the initialized event ticker for the event loop
func (t *Time) EventTicker() *time.Ticker {
	return t.eventTicker
}

// Stop stops the tickers
func (t *Time) Stop() {
	t.fpsTicker.Stop()
	t.eventTicker.Stop()
}

// NewTimer creates a paused timer at zero. A nil now uses the wall clock.
func NewTimer(now func() time.Time) *Timer {
	if now == nil {
		now = time.Now
	}
	return &Timer{now: now}
}

// Timer is the clock effects are driven by. It can be paused and moved
// in either direction, so effects see time that is not monotonic.
type Timer struct {
	mu      sync.Mutex
	now     func() time.Time
	base    time.Duration
	started time.Time
	running bool
}

// Start resumes the clock.
func (t *Timer) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.running {
		t.started, t.running = t.now(), true
	}
}

// Pause holds the clock at its current time.
func (t *Timer) Pause() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running {
		t.base, t.running = t.elapsed(), false
	}
}

// Toggle pauses a running clock and starts a paused one.
func (t *Timer) Toggle() {
	if t.Running() {
		t.Pause()
	} else {
		t.Start()
	}
}

// Running reports whether the clock runs.
func (t *Timer) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

// Seek moves the clock by d, backwards for negative d. It never goes
// below zero.
func (t *Timer) Seek(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.set(t.elapsed() + d)
}

// SeekTo moves the clock to seconds.
func (t *Timer) SeekTo(seconds float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.set(time.Duration(seconds * float64(time.Second)))
}

// Time returns the clock in seconds.
func (t *Timer) Time() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.elapsed().Seconds()
}

func (t *Timer) set(d time.Duration) {
	if d < 0 {
		d = 0
	}
	t.base = d
	if t.running {
		t.started = t.now()
	}
}

func (t *Timer) elapsed() time.Duration {
	if !t.running {
		return t.base
	}
	return t.base + t.now().Sub(t.started)
}
