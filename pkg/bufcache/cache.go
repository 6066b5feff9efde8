package bufcache

// cache.go implements the lookup/admit engine (get) and the public
// Read/Write/Release/Pin/Unpin surface described in spec §4.3-§4.5.
//
// get resolves (device, blockNo) to a locked, resident buffer in up to
// three phases, each of which may succeed and short-circuit:
//
//   Phase 1 - hit in home bucket:   scan under the home bucket's lock; on
//             a match, bump refCount under refLock, drop the bucket lock,
//             then block on the sleep-lock (after the bucket lock is
//             dropped, so other threads can still use the bucket while
//             this one waits).
//   Phase 2 - local recycle:        still holding the home bucket's lock,
//             scan for the unpinned buffer with the lowest ticks and
//             re-identify it in place.
//   Phase 3 - cross-bucket steal:   release the home lock, sweep the
//             other buckets in ascending-then-ascending order (Rule B),
//             and move the lowest-ticks unpinned buffer of the first bucket
//             that has one into the home bucket. Under each lock pair the
//             home bucket is re-scanned first, so a block admitted there by
//             another thread after the home lock was dropped is returned
//             instead of being admitted a second time.
//
// Resource exhaustion (no evictable buffer anywhere) halts via panic: the
// spec treats it as a sizing bug in the caller, not a recoverable
// condition (§7).
//
// © 2025 bufcache authors. MIT License.

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/Voskan/bufcache/internal/pagepool"
	"github.com/Voskan/bufcache/internal/ticks"
)

// Cache is a fixed-size, sharded buffer cache. NBUF buffers are
// preallocated at construction and never grown; NBUCKET shards each own a
// disjoint, time-varying subset of those buffers.
type Cache struct {
	buckets []*bucket
	buffers []*Buffer

	nbuf    int
	nbucket int
	bsize   int

	device  BlockDevice
	metrics metricsSink
	logger  *zap.Logger
	ticks   *ticks.Source
	pages   *pagepool.Pool

	sfOnce sync.Once
	sf     *singleflight.Group
}

// New constructs a Cache with nbuf fixed buffer slots of bsize bytes each.
// NBUCKET defaults to DefaultNBUCKET; see WithNBUCKET to override it.
func New(nbuf, bsize int, opts ...Option) (*Cache, error) {
	o, err := applyOptions(nbuf, bsize, opts)
	if err != nil {
		return nil, err
	}
	if o.nbucket%2 == 0 {
		o.logger.Info("NBUCKET is even; sequential block numbers will hash unevenly across buckets",
			zap.Int("nbucket", o.nbucket))
	}

	c := &Cache{
		nbuf:    nbuf,
		bsize:   bsize,
		nbucket: o.nbucket,
		device:  o.device,
		metrics: newMetricsSink(o.registry),
		logger:  o.logger,
		pages:   pagepool.New(nbuf, bsize),
		ticks:   ticks.New(time.Duration(o.tickInterval)),
	}

	c.buckets = make([]*bucket, c.nbucket)
	for i := range c.buckets {
		c.buckets[i] = newBucket(i)
	}

	// Initial lifecycle: refCount=0, ticks=MAX ("never used"), valid=false,
	// blockNo=0, assigned round-robin to buckets.
	c.buffers = make([]*Buffer, nbuf)
	for i := 0; i < nbuf; i++ {
		buf := &Buffer{
			ticksVal: ticks.MaxTick,
			page:     c.pages.Page(i),
		}
		c.buffers[i] = buf
		home := c.buckets[i%c.nbucket]
		home.lock.Lock()
		home.insertFront(buf)
		home.lock.Unlock()
	}
	return c, nil
}

func (c *Cache) hash(blockNo uint32) int {
	return int(blockNo % uint32(c.nbucket))
}

// get resolves (device, blockNo) to a locked, resident buffer. See the
// package doc comment above for the three-phase algorithm. Panics with
// "bufcache: no buffers" if every buffer in the cache is pinned.
func (c *Cache) get(device, blockNo uint32) *Buffer {
	home := c.hash(blockNo)
	hb := c.buckets[home]
	hb.lock.Lock()

	if match := hb.findMatch(device, blockNo); match != nil {
		match.refLock.Lock()
		match.refCount++
		match.refLock.Unlock()
		hb.hits++
		hb.lock.Unlock()
		c.metrics.incHit(home)
		match.sleepLock.Acquire()
		return match
	}
	hb.misses++
	c.metrics.incMiss(home)

	// Phase 2: local recycle, still holding hb.lock from the failed Phase 1
	// scan.
	if best, _ := hb.findBest(nil, 0); best != nil {
		best.device, best.blockNo, best.valid, best.refCount = device, blockNo, false, 1
		best.refLock.Unlock()
		hb.recycles++
		hb.lock.Unlock()
		c.metrics.incRecycle(home)
		best.sleepLock.Acquire()
		return best
	}
	hb.lock.Unlock()

	// Phase 3: cross-bucket steal.
	return c.steal(hb, device, blockNo)
}

func (c *Cache) steal(hb *bucket, device, blockNo uint32) *Buffer {
	for _, ci := range stealSweepOrder(hb.index, c.nbucket) {
		cb := c.buckets[ci]
		lockPair(hb, cb)

		if match := hb.findMatch(device, blockNo); match != nil {
			match.refLock.Lock()
			match.refCount++
			match.refLock.Unlock()
			unlockPair(hb, cb)
			match.sleepLock.Acquire()
			return match
		}

		if best, _ := cb.findBest(nil, 0); best != nil {
			cb.unlink(best)
			hb.insertFront(best)
			best.device, best.blockNo, best.valid, best.refCount = device, blockNo, false, 1
			best.refLock.Unlock()
			hb.steals++
			unlockPair(hb, cb)
			c.metrics.incSteal(hb.index)
			c.logger.Debug("cross-bucket steal", zap.Int("from", ci), zap.Int("to", hb.index))
			best.sleepLock.Acquire()
			return best
		}
		unlockPair(hb, cb)
	}

	c.metrics.incExhausted()
	c.logger.Error("buffer cache exhausted", zap.Uint32("device", device), zap.Uint32("block_no", blockNo))
	panic("bufcache: no buffers")
}

// ErrNoDevice is returned (see device.go) when Read needs to fetch a block
// but no BlockDevice was configured.

// Read resolves (device, blockNo) to a locked buffer, fetching its
// contents from the block device if they are not already valid. Returns
// the buffer still locked; the caller must eventually call Release.
func (c *Cache) Read(ctx context.Context, device, blockNo uint32) (*Buffer, error) {
	buf := c.get(device, blockNo)
	if buf.valid {
		return buf, nil
	}
	if c.device == nil {
		return buf, ErrNoDevice
	}
	if err := c.device.ReadBlock(ctx, device, blockNo, buf.page); err != nil {
		c.logger.Warn("block read failed",
			zap.Uint32("device", device), zap.Uint32("block_no", blockNo), zap.Error(err))
		return buf, err
	}
	buf.markValid()
	return buf, nil
}

// Write issues a synchronous device write of buf's data page. The caller
// must hold buf's sleep-lock (i.e. have obtained it from Read). Does not
// clear valid.
func (c *Cache) Write(ctx context.Context, buf *Buffer) error {
	if !buf.sleepLock.Holding() {
		panic("bufcache: write without sleep lock")
	}
	if c.device == nil {
		return ErrNoDevice
	}
	return c.device.WriteBlock(ctx, buf.device, buf.blockNo, buf.page)
}

// Release releases buf's sleep-lock and decrements its reference count.
// If the count drops to zero, the current tick is latched as the buffer's
// LRU timestamp. Panics if the caller does not hold buf's sleep-lock.
func (c *Cache) Release(buf *Buffer) {
	if !buf.sleepLock.Holding() {
		panic("bufcache: release without sleep lock")
	}
	buf.sleepLock.Release()

	buf.refLock.Lock()
	buf.refCount--
	if buf.refCount == 0 {
		buf.latchTicks(c.ticks)
	}
	buf.refLock.Unlock()
}

// Pin increments buf's reference count without taking its sleep-lock,
// keeping it resident across a logical transaction spanning multiple
// Read/Release pairs.
func (c *Cache) Pin(buf *Buffer) {
	buf.refLock.Lock()
	buf.refCount++
	buf.refLock.Unlock()
}

// Unpin reverses a prior Pin.
func (c *Cache) Unpin(buf *Buffer) {
	buf.refLock.Lock()
	buf.refCount--
	buf.refLock.Unlock()
}

// Close stops the cache's background tick source. The Cache must not be
// used afterward.
func (c *Cache) Close() {
	c.ticks.Stop()
}
