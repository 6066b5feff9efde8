package bufcache

// buffer.go defines the Buffer record: one per physical slot, NBUF slots
// total, fixed at construction time. It mirrors struct buf from the kernel
// this design descends from, field-for-field:
//
//   device, blockNo   -> identity, meaningful only while pinned or just found
//   valid             -> true iff the data page holds the block's current
//                         contents
//   refCount          -> outstanding holders; >0 means pinned
//   ticksVal          -> LRU timestamp, latched when refCount drops to 0
//   sleepLock         -> caller of Read/get holds this on return
//   refLock           -> guards refCount and ticksVal independently of the
//                         owning bucket's lock
//   prev, next        -> intrusive doubly-linked-list pointers within the
//                         bucket that currently owns this buffer
//
// © 2025 bufcache authors. MIT License.

import (
	"github.com/Voskan/bufcache/internal/synclock"
	"github.com/Voskan/bufcache/internal/ticks"
)

// Buffer is one cached disk block: metadata, a data page, and the locks
// that guard them. The zero value is not usable; buffers are constructed
// by the Cache and never by user code.
type Buffer struct {
	device  uint32
	blockNo uint32
	valid   bool

	refCount uint32
	ticksVal uint64

	sleepLock synclock.SleepLock
	refLock   synclock.SpinLock

	prev, next *Buffer // bucket-local list pointers; guarded by home bucket's lock

	home int    // index of the bucket this buffer is currently linked into
	page []byte // BSIZE-byte data page, owned by the pagepool
}

// Device returns the device identifier of the block this buffer holds.
// Only meaningful while the buffer is pinned or was just resolved by Read.
func (b *Buffer) Device() uint32 { return b.device }

// BlockNo returns the block number of the block this buffer holds.
func (b *Buffer) BlockNo() uint32 { return b.blockNo }

// Valid reports whether the data page currently reflects the block's
// on-disk contents (or dirtier, if the caller has written to it).
func (b *Buffer) Valid() bool { return b.valid }

// Data returns the buffer's BSIZE-byte data page. The caller must hold the
// buffer's sleep-lock (i.e. must be the one who obtained this Buffer from
// Read) for the duration of any access.
func (b *Buffer) Data() []byte { return b.page }

// markValid sets the valid flag once a device read has populated the page.
func (b *Buffer) markValid() { b.valid = true }

// latchTicks records the current tick count as the buffer's LRU timestamp.
// Called only when refCount has just dropped to zero, under refLock.
func (b *Buffer) latchTicks(src *ticks.Source) {
	b.ticksVal = src.Now()
}
