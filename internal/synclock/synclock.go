// Package synclock provides the two lock primitives the buffer cache is
// built on: a short-critical-section lock guarding bucket and per-buffer
// state, and a blocking, ownership-transferring lock guarding a buffer's
// data page while a caller uses it.
//
// In the kernel this design descends from, these are genuinely distinct
// mechanisms: the spin-lock runs with interrupts disabled on the local CPU
// and never yields, while the sleep-lock may hand the CPU to the scheduler.
// Go has no user-space IRQ control and goroutines are not OS threads, so
// there is no literal equivalent of "spin with interrupts off." Both
// primitives below are implemented on sync.Mutex, kept as distinct named
// types so lock-order assertions in pkg/bufcache read clearly and so
// SleepLock can track whether it is held for the Holding() check.
//
// © 2025 bufcache authors. MIT License.
package synclock

import "sync"

// SpinLock protects a short critical section: a bucket's list, or a single
// buffer's ref_count/ticks pair. Rule D of the lock-order protocol requires
// the tick source's lock to behave identically, so ticks.Source embeds one
// too.
type SpinLock struct {
	mu sync.Mutex
}

// Lock acquires the spin-lock. Critical sections guarded by it must be
// short: no blocking calls, and in particular no SleepLock acquisition,
// may happen while held.
func (s *SpinLock) Lock() { s.mu.Lock() }

// Unlock releases the spin-lock.
func (s *SpinLock) Unlock() { s.mu.Unlock() }

// SleepLock is a blocking, ownership-transferring lock. Exactly one
// acquirer holds it at a time; acquisition may suspend the caller. It is
// the only suspension point in the buffer cache's entry points.
type SleepLock struct {
	mu     sync.Mutex
	held   bool
	holdMu sync.Mutex // guards `held`, independent of mu itself being locked
}

// Acquire blocks until the lock is free, then takes it.
func (l *SleepLock) Acquire() {
	l.mu.Lock()
	l.holdMu.Lock()
	l.held = true
	l.holdMu.Unlock()
}

// Release releases the lock. Panics if the caller does not hold it:
// release-without-holding is a programming error, not a recoverable
// condition.
func (l *SleepLock) Release() {
	l.holdMu.Lock()
	if !l.held {
		l.holdMu.Unlock()
		panic("synclock: release of sleep lock not held")
	}
	l.held = false
	l.holdMu.Unlock()
	l.mu.Unlock()
}

// Holding reports whether the lock is currently held by anyone. It cannot
// distinguish "held by me" from "held by some other goroutine", since Go
// gives up goroutine identity across blocking calls, so callers must only
// use it in contexts where they are the only possible holder (the same
// discipline a kernel's holdingsleep check assumes of its caller).
func (l *SleepLock) Holding() bool {
	l.holdMu.Lock()
	defer l.holdMu.Unlock()
	return l.held
}
