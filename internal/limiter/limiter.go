// Package limiter bounds how many multipart bodies are parsed at once.
//
// Every parse holds one slot for its whole lifetime, including the time
// spent copying files to disk. When all slots are taken a request waits up
// to the configured time before failing with ErrBusy. WaitForDrain lets the
// server finish in-flight parses before it exits.
package limiter

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrBusy is returned when no parse slot frees up within the wait time.
// Clients should retry after a short delay.
var ErrBusy = errors.New("too many concurrent uploads, please try again later")

const (
	// DefaultMaxConcurrent is the slot count used when none is configured.
	DefaultMaxConcurrent = 5

	// DefaultMaxWait is how long Acquire waits for a slot by default.
	DefaultMaxWait = 30 * time.Second
)

const drainPoll = 100 * time.Millisecond

// Gauge receives the active slot count after every change.
// prometheus.Gauge satisfies it.
type Gauge interface {
	Set(float64)
}

// Limiter is a counting semaphore over parse slots.
type Limiter struct {
	slots   chan struct{}
	maxWait time.Duration

	mu     sync.RWMutex
	active int
	gauge  Gauge
}

// New returns a Limiter with maxConcurrent slots. Non-positive arguments
// fall back to the defaults.
func New(maxConcurrent int, maxWait time.Duration) *Limiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrent
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWait
	}
	return &Limiter{
		slots:   make(chan struct{}, maxConcurrent),
		maxWait: maxWait,
	}
}

// SetGauge mirrors the active count into g. It is meant to be called once
// during wiring.
func (l *Limiter) SetGauge(g Gauge) {
	l.mu.Lock()
	l.gauge = g
	if g != nil {
		g.Set(float64(l.active))
	}
	l.mu.Unlock()
}

// Acquire takes a slot, waiting at most the configured time. It returns
// ErrBusy on timeout and ctx.Err() when ctx ends first. Every nil return
// must be paired with exactly one Release.
func (l *Limiter) Acquire(ctx context.Context) error {
	timer := time.NewTimer(l.maxWait)
	defer timer.Stop()

	select {
	case l.slots <- struct{}{}:
		l.add(1)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return ErrBusy
	}
}

// TryAcquire takes a slot only if one is free right now.
func (l *Limiter) TryAcquire() bool {
	select {
	case l.slots <- struct{}{}:
		l.add(1)
		return true
	default:
		return false
	}
}

// Release returns a slot taken by Acquire or TryAcquire.
func (l *Limiter) Release() {
	l.add(-1)
	<-l.slots
}

func (l *Limiter) add(delta int) {
	l.mu.Lock()
	l.active += delta
	if l.gauge != nil {
		l.gauge.Set(float64(l.active))
	}
	l.mu.Unlock()
}

// ActiveCount returns the number of parses currently holding a slot.
func (l *Limiter) ActiveCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.active
}

// MaxConcurrent returns the slot count.
func (l *Limiter) MaxConcurrent() int {
	return cap(l.slots)
}

// Available returns the number of free slots.
func (l *Limiter) Available() int {
	return cap(l.slots) - len(l.slots)
}

// WaitForDrain blocks until no slot is held or ctx ends.
func (l *Limiter) WaitForDrain(ctx context.Context) error {
	if l.ActiveCount() == 0 {
		return nil
	}

	ticker := time.NewTicker(drainPoll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if l.ActiveCount() == 0 {
				return nil
			}
		}
	}
}

// Status is a point-in-time view of the limiter, served by /healthz.
type Status struct {
	Active        int `json:"active"`
	Available     int `json:"available"`
	MaxConcurrent int `json:"max_concurrent"`
}

// Status returns the current limiter state.
func (l *Limiter) Status() Status {
	l.mu.RLock()
	active := l.active
	l.mu.RUnlock()

	return Status{
		Active:        active,
		Available:     l.Available(),
		MaxConcurrent: cap(l.slots),
	}
}
