package bufcache

// bucket.go implements one shard of the hash table: a spin-lock plus a
// circular doubly-linked list of the buffers currently hashed to it, and
// the lock-order protocol (spec §4.2, Rules A-D) that lets a thread safely
// hold two bucket locks at once while stealing.
//
// hash(blockNo) = blockNo mod NBUCKET. A small prime bucket count keeps the
// modulus cheap and spreads sequential block numbers; see New's NBUCKET
// validation in config.go.
//
// © 2025 bufcache authors. MIT License.

import (
	"github.com/Voskan/bufcache/internal/synclock"
)

// bucket is one shard: a spin-lock, a sentinel head node for its buffer
// list, and per-bucket counters for introspection.
type bucket struct {
	lock   synclock.SpinLock
	head   Buffer // sentinel; never holds a real block, head.prev/next are the list
	index  int

	hits      uint64
	misses    uint64
	recycles  uint64
	steals    uint64
}

func newBucket(index int) *bucket {
	b := &bucket{index: index}
	b.head.prev = &b.head
	b.head.next = &b.head
	return b
}

// insertFront links buf at the front of this bucket's list and sets its
// home index. Caller must hold b.lock.
func (b *bucket) insertFront(buf *Buffer) {
	buf.next = b.head.next
	buf.prev = &b.head
	b.head.next.prev = buf
	b.head.next = buf
	buf.home = b.index
}

// unlink removes buf from whichever list it is currently in. Caller must
// hold the lock of the bucket that owns buf (buf.home).
func (b *bucket) unlink(buf *Buffer) {
	buf.prev.next = buf.next
	buf.next.prev = buf.prev
	buf.prev, buf.next = nil, nil
}

// findMatch scans this bucket's list for a buffer already identified as
// (device, blockNo). Caller must hold b.lock. Returns nil if absent.
func (b *bucket) findMatch(device, blockNo uint32) *Buffer {
	for buf := b.head.next; buf != &b.head; buf = buf.next {
		if buf.device == device && buf.blockNo == blockNo {
			return buf
		}
	}
	return nil
}

// findBest scans this bucket's list for the unpinned buffer with the
// lowest ticks value, implementing the "best-carries-its-lock" pattern:
// the currently-best candidate's refLock stays held across the scan so its
// refCount==0 observation cannot be invalidated before the caller commits
// to it. best may be nil (and bestTicks meaningless) if the bucket has no
// unpinned buffer. Caller must hold b.lock. On return, if best != nil the
// caller owns best.refLock and must release it.
//
// Tie-break is <=, so the most recently scanned candidate wins ties; two
// unpinned buffers with equal ticks are equally valid eviction victims.
func (b *bucket) findBest(prevBest *Buffer, prevBestTicks uint64) (best *Buffer, bestTicks uint64) {
	best, bestTicks = prevBest, prevBestTicks
	for buf := b.head.next; buf != &b.head; buf = buf.next {
		buf.refLock.Lock()
		if buf.refCount == 0 && (best == nil || buf.ticksVal <= bestTicks) {
			if best != nil {
				best.refLock.Unlock()
			}
			best, bestTicks = buf, buf.ticksVal
			continue // keep buf's refLock held
		}
		buf.refLock.Unlock()
	}
	return best, bestTicks
}

/* -------------------------------------------------------------------------
   Lock-order protocol (Rules A-D)

   Rule A: hold at most two bucket locks at once.
   Rule B: if two, their indices are strictly ordered: lower acquired first.
   Rule C: refLock is taken only while holding the buffer's current home
           bucket lock, and released before any sleep-lock call.
   Rule D: the tick lock is acquired only at leaf positions, with no other
           lock held except a bucket lock (see internal/ticks).
   ------------------------------------------------------------------------- */

// lockPair acquires the locks of buckets a and b in ascending index order,
// satisfying Rule B. a == b is not a valid call (callers never need both
// locks on the same bucket).
func lockPair(a, b *bucket) {
	if a.index < b.index {
		a.lock.Lock()
		b.lock.Lock()
	} else {
		b.lock.Lock()
		a.lock.Lock()
	}
}

// unlockPair releases both locks. No ordering obligation applies to
// release.
func unlockPair(a, b *bucket) {
	a.lock.Unlock()
	b.lock.Unlock()
}

// stealSweepOrder returns the candidate bucket indices to sweep during
// Phase 3, in canonical order: buckets with index < home ascending, then
// buckets with index > home ascending. This keeps Rule B satisfied by
// construction, since whichever of {candidate, home} is lower is always
// acquired first by lockPair.
func stealSweepOrder(home, nbucket int) []int {
	order := make([]int, 0, nbucket-1)
	for i := 0; i < home; i++ {
		order = append(order, i)
	}
	for i := home + 1; i < nbucket; i++ {
		order = append(order, i)
	}
	return order
}
