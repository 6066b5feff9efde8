package bufcache

// config.go holds the functional option pattern for Cache: cacheOptions
// bundles every knob that influences cache behaviour, defaultOptions fills
// in sane defaults, and applyOptions copies user-supplied options in and
// validates the result. Sizing is expressed as fixed NBUF/BSIZE/NBUCKET
// values, not a byte budget with time-based rotation, because that is how
// a buffer cache sizes itself.
//
// © 2025 bufcache authors. MIT License.

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// DefaultNBUCKET matches the small prime the kernel this design descends
// from hardcodes.
const DefaultNBUCKET = 13

// Option configures a Cache at construction time.
type Option func(*cacheOptions)

// cacheOptions is the mutable struct Options write into; New validates it
// through applyOptions and then copies the fields it needs into the Cache.
type cacheOptions struct {
	nbucket      int
	device       BlockDevice
	registry     *prometheus.Registry
	logger       *zap.Logger
	tickInterval int64 // nanoseconds; 0 means "use ticks.DefaultInterval"
}

func defaultOptions() *cacheOptions {
	return &cacheOptions{
		nbucket: DefaultNBUCKET,
		logger:  zap.NewNop(),
	}
}

// WithNBUCKET overrides the default shard count. A small prime (e.g. 13)
// is recommended; primality is not enforced (any positive count
// satisfies the invariants), but a configured even count is logged once at
// construction because it visibly skews hashing of sequential block
// numbers: half the buckets absorb all even block numbers, the other
// half all odd ones.
func WithNBUCKET(n int) Option {
	return func(o *cacheOptions) {
		if n > 0 {
			o.nbucket = n
		}
	}
}

// WithDevice plugs the block I/O device. Without one, Read returns
// ErrNoDevice whenever the buffer's contents are not valid; since only a
// device read marks a buffer valid, that is every Read, hits included.
func WithDevice(d BlockDevice) Option {
	return func(o *cacheOptions) { o.device = d }
}

// WithMetrics enables Prometheus metrics collection. Passing nil disables
// metrics (the default).
func WithMetrics(reg *prometheus.Registry) Option {
	return func(o *cacheOptions) { o.registry = reg }
}

// WithLogger plugs an external zap.Logger. The cache never logs on the hot
// path; only cross-shard steals, resource exhaustion, device errors, and
// (once, from New) an even NBUCKET are emitted.
func WithLogger(l *zap.Logger) Option {
	return func(o *cacheOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithTickInterval overrides the simulated timer-interrupt period used for
// LRU timestamps. Tests that need deterministic eviction order typically
// set this very small.
func WithTickInterval(d int64) Option {
	return func(o *cacheOptions) { o.tickInterval = d }
}

var (
	errInvalidNBUF    = errors.New("bufcache: NBUF must be > 0")
	errInvalidBSIZE   = errors.New("bufcache: BSIZE must be > 0")
	errInvalidNBUCKET = errors.New("bufcache: NBUCKET must be > 0")
)

func applyOptions(nbuf, bsize int, opts []Option) (*cacheOptions, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	if nbuf <= 0 {
		return nil, errInvalidNBUF
	}
	if bsize <= 0 {
		return nil, errInvalidBSIZE
	}
	if o.nbucket <= 0 {
		return nil, errInvalidNBUCKET
	}
	return o, nil
}
