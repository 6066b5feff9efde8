// Package ticks supplies the monotonic timestamp source the buffer cache
// uses for approximate LRU. In the kernel this design descends from, the
// counter is advanced by the timer interrupt handler and read under its own
// spin-lock (tickslock). User-space Go has no equivalent interrupt source,
// so Source simulates one with a single background goroutine advancing a
// counter on a fixed interval.
//
// A buffer is re-identified in place when stolen, never freed, so there is
// no generation or TTL to rotate here, just a plain counter.
//
// © 2025 bufcache authors. MIT License.
package ticks

import (
	"sync/atomic"
	"time"

	"github.com/Voskan/bufcache/internal/synclock"
)

// Source is a monotonic tick counter plus its own lock (Rule D of the
// lock-order protocol: the tick lock is acquired only at leaf positions,
// with no other lock held except a bucket lock).
type Source struct {
	lock synclock.SpinLock
	n    uint64

	interval time.Duration
	stop     chan struct{}
	stopped  atomic.Bool
}

// DefaultInterval mirrors a typical timer-interrupt period closely enough
// for LRU purposes without costing meaningful CPU in the background
// goroutine.
const DefaultInterval = time.Millisecond

// New starts a tick source advancing once per interval. An interval <= 0
// falls back to DefaultInterval.
func New(interval time.Duration) *Source {
	if interval <= 0 {
		interval = DefaultInterval
	}
	s := &Source{interval: interval, stop: make(chan struct{})}
	go s.run()
	return s
}

func (s *Source) run() {
	t := time.NewTicker(s.interval)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			s.lock.Lock()
			s.n++
			s.lock.Unlock()
		case <-s.stop:
			return
		}
	}
}

// Now returns the current tick value, acquiring the source's own lock
// per Rule D.
func (s *Source) Now() uint64 {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.n
}

// Stop halts the background goroutine. Safe to call more than once.
func (s *Source) Stop() {
	if s.stopped.CompareAndSwap(false, true) {
		close(s.stop)
	}
}

// MaxTick is latched into a fresh buffer's ticks field to mean "never
// used". Lower ticks are older and better eviction candidates, so a buffer
// that has never been released must sort as the newest possible value.
const MaxTick = ^uint64(0)
