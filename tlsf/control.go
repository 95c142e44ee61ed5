// Package tlsf implements a Two-Level Segregated Fit memory allocator: a
// general-purpose dynamic allocator with O(1) worst-case allocate and free,
// low fragmentation, and no internal locking. Callers wanting concurrent
// access must serialize their own calls; see Control's doc comment.
package tlsf

import (
	"fmt"
	"unsafe"
)

// MapFunc requests at least minSize bytes of raw, Align-aligned memory from
// a backing source (an OS mmap region, an arena, a test fixture...). It
// returns the granted pointer and the actual size granted, which must be >=
// minSize. A nil pointer return means allocation failure; the allocator
// treats that as out-of-memory, never as a retryable condition.
type MapFunc func(minSize uintptr, user any) (ptr unsafe.Pointer, actualSize uintptr)

// UnmapFunc releases memory previously returned by a MapFunc call, with
// exactly the pointer and actual size that call reported.
type UnmapFunc func(ptr unsafe.Pointer, size uintptr, user any)

// Control owns the segregated free-list index and the set of pools it
// indexes. It is not goroutine-safe: every operation on spec section 5
// assumes a single logical caller serializing its own calls (the allocator
// neither spawns nor locks internally). Share a *Control across goroutines
// only behind external mutual exclusion.
type Control struct {
	cfg *Config

	mapFn   MapFunc
	unmapFn UnmapFunc
	user    any

	flBitmap uint32
	slBitmap []uint32
	blocks   [][]*header

	pools []*poolInfo

	stats Stats
}

// poolInfo records a live pool's extent and bookkeeping flags. Pools are
// not threaded as a separate list per spec's physical-block chain
// (unnecessary here since every block already reaches the sentinel by
// walking .next()); this slice exists purely to support PoolCount/WalkPools
// and to locate a pool's initial block when it comes time to release it.
type poolInfo struct {
	initial   *header
	size      uintptr // bytes granted by MapFunc, including poolOverhead.
	isInitial bool    // the pool attached by Create; never auto-released.
}

// Config holds the tunables of an allocator instance, set via Option
// functions at Create time. Mirrors the teacher's allocator.Config/Option
// pattern (internal/allocator/allocator.go) rather than a struct literal
// API, so instances stay source-compatible as tunables are added.
type Config struct {
	Name            string
	Alignment       uintptr
	EnableStats     bool
	CheckOnMutation bool
}

// Option configures a Config at Create time.
type Option func(*Config)

func defaultConfig() *Config {
	return &Config{
		Name:        "tlsf",
		Alignment:   Align,
		EnableStats: true,
	}
}

// WithName attaches a label to the control, surfaced in error messages and
// log lines when multiple arenas are in play.
func WithName(name string) Option {
	return func(c *Config) { c.Name = name }
}

// WithAlignment asserts the minimum alignment of user pointers and block
// sizes the caller expects Create to use. Unlike the rest of Config this is
// not actually tunable: spec section 3 fixes Align at compile time (it
// drives the fl/sl mapping tables), so Create only checks the assertion and
// fails loudly if it does not hold, rather than silently reinterpreting the
// index with a different Align per Control instance.
func WithAlignment(alignment uintptr) Option {
	return func(c *Config) { c.Alignment = alignment }
}

// WithStats toggles maintenance of the optional counters (spec section 9).
// Disabling them never changes observable allocation behavior, only
// whether Stats() reports nonzero counts.
func WithStats(enabled bool) Option {
	return func(c *Config) { c.EnableStats = enabled }
}

// WithCheckOnMutation runs Check after every Malloc/Free/Realloc call and
// panics on the first broken invariant. A debug aid; never enable it in a
// latency-sensitive path, since Check walks the entire index.
func WithCheckOnMutation(enabled bool) Option {
	return func(c *Config) { c.CheckOnMutation = enabled }
}

// Create allocates an initial pool via mapFn and returns a ready-to-use
// Control. unmapFn may be nil, in which case pools are retained for the
// life of the Control (spec section 6, "Unmap callback").
//
// Create asks for at least one word-aligned pool big enough to satisfy
// spec section 4.9's minimum; this initial pool is never marked is_pool,
// so it is never released by Free's pool-draining logic. Only Destroy ever
// releases it.
func Create(mapFn MapFunc, unmapFn UnmapFunc, user any, opts ...Option) (*Control, error) {
	if mapFn == nil {
		return nil, newContractError("Create: mapFn must not be nil")
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.Alignment != Align {
		return nil, newContractError(fmt.Sprintf(
			"Create: alignment %d does not match the compile-time Align of %d", cfg.Alignment, Align))
	}

	c := &Control{
		cfg:      cfg,
		mapFn:    mapFn,
		unmapFn:  unmapFn,
		user:     user,
		slBitmap: make([]uint32, flCount),
		blocks:   make([][]*header, flCount),
	}

	for i := range c.blocks {
		c.blocks[i] = make([]*header, slCount)
	}

	minSize := poolOverhead + fullHeader
	if _, err := c.growPool(minSize, false); err != nil {
		return nil, fmt.Errorf("tlsf: Create: %w", err)
	}

	return c, nil
}

// Destroy releases every pool Create/Malloc ever attached, most recent
// first, via unmapFn. It is a no-op for any pool if unmapFn is nil. Spec
// section 4.9 notes that a faithful reimplementation should walk and
// release all remaining live pools rather than asserting only one
// survives; Destroy does that unconditionally, so callers are not
// required to have freed every allocation first.
func (c *Control) Destroy() {
	if c.unmapFn == nil {
		c.pools = nil

		return
	}

	for i := len(c.pools) - 1; i >= 0; i-- {
		p := c.pools[i]
		c.unmapFn(unsafe.Pointer(p.initial), p.size, c.user)
	}

	c.pools = nil
}

// Name returns the label this control was created with.
func (c *Control) Name() string { return c.cfg.Name }
