// Package ratelimit provides a sliding-window failure counter used to
// throttle login attempts. It is an injected component with an explicit
// lifecycle: construct at startup, Start the sweeper, Stop at shutdown.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

type entry struct {
	failures []time.Time
}

type SlidingWindow struct {
	mu      sync.Mutex
	entries map[string]*entry

	maxFailures int
	window      time.Duration

	logger *zap.Logger
	now    func() time.Time

	stopOnce sync.Once
	stop     chan struct{}
}

func NewSlidingWindow(maxFailures int, window time.Duration, logger *zap.Logger) *SlidingWindow {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SlidingWindow{
		entries:     make(map[string]*entry),
		maxFailures: maxFailures,
		window:      window,
		logger:      logger,
		now:         time.Now,
		stop:        make(chan struct{}),
	}
}

// Allow reports whether the key is under its failure budget for the window.
func (sw *SlidingWindow) Allow(key string) bool {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	e, ok := sw.entries[key]
	if !ok {
		return true
	}
	return len(sw.trim(e)) < sw.maxFailures
}

// RecordFailure appends a failure at the current time.
func (sw *SlidingWindow) RecordFailure(key string) {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	e, ok := sw.entries[key]
	if !ok {
		e = &entry{}
		sw.entries[key] = e
	}
	e.failures = append(sw.trim(e), sw.now())
}

// Reset clears the key, used after a successful login.
func (sw *SlidingWindow) Reset(key string) {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	delete(sw.entries, key)
}

// trim drops failures older than the window. Caller holds the lock.
func (sw *SlidingWindow) trim(e *entry) []time.Time {
	cutoff := sw.now().Add(-sw.window)
	kept := e.failures[:0]
	for _, t := range e.failures {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	e.failures = kept
	return kept
}

// Start runs the periodic sweep until the context is done or Stop is called.
func (sw *SlidingWindow) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(sw.window)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-sw.stop:
				return
			case <-ticker.C:
				sw.sweep()
			}
		}
	}()
}

func (sw *SlidingWindow) Stop() {
	sw.stopOnce.Do(func() { close(sw.stop) })
}

func (sw *SlidingWindow) sweep() {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	swept := 0
	for key, e := range sw.entries {
		if len(sw.trim(e)) == 0 {
			delete(sw.entries, key)
			swept++
		}
	}
	if swept > 0 {
		sw.logger.Debug("swept idle rate-limit entries", zap.Int("count", swept))
	}
}
