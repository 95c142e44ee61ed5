package tlsf

import "fmt"

// Stats is a read-only snapshot of allocator counters. Spec section 6
// lists stats as optional; this implementation always maintains the
// operation counters (MallocCount/FreeCount) and derives the size figures
// on demand by walking the pool list (PoolCount/TotalSize/FreeSize/
// UsedSize), so Stats never drifts out of sync with the index the way a
// second set of incrementally-maintained counters could. Call cost is
// O(live blocks), not O(1); this is explicitly not on the allocate/free
// hot path.
type Stats struct {
	MallocCount uint64
	FreeCount   uint64
	PoolCount   int
	TotalSize   uintptr
	FreeSize    uintptr
	UsedSize    uintptr
}

// Stats returns a snapshot of allocation statistics. If WithStats(false)
// was used at Create, the operation counters read zero; the size figures
// are reported regardless, since they are recomputed here from the live
// pools rather than maintained incrementally.
func (c *Control) Stats() Stats {
	s := Stats{PoolCount: len(c.pools)}

	if c.cfg.EnableStats {
		s.MallocCount = c.stats.MallocCount
		s.FreeCount = c.stats.FreeCount
	}

	// Each non-sentinel block counts its header plus its payload toward
	// FreeSize or UsedSize; TotalSize leaves out the sentinel's header
	// (poolOverhead), so a fully drained pool reports zero used bytes.
	for _, p := range c.pools {
		s.TotalSize += p.size - poolOverhead

		for b := p.initial; !b.isLast(); b = b.next() {
			if b.isFree() {
				s.FreeSize += headerSize + b.size()
			} else {
				s.UsedSize += headerSize + b.size()
			}
		}
	}

	return s
}

// Check walks the entire structure looking for broken invariants (spec
// section 3's numbered list) and returns every violation it finds, rather
// than aborting on the first one the way a debug C build would. An empty
// result means the structure is consistent.
func (c *Control) Check() []*InvariantError {
	var errs []*InvariantError

	errs = append(errs, c.checkIndex()...)
	errs = append(errs, c.checkPools()...)

	if c.cfg.EnableStats {
		st := c.Stats()
		if st.FreeSize+st.UsedSize != st.TotalSize {
			errs = append(errs, ErrInvariant("size-accounting",
				fmt.Sprintf("free(%d)+used(%d) != total(%d)", st.FreeSize, st.UsedSize, st.TotalSize)))
		}
	}

	return errs
}

// MustCheck is Check for callers that want the C reference's "debug build
// asserts and aborts" behavior: it panics with the first violation found.
func (c *Control) MustCheck() {
	if errs := c.Check(); len(errs) > 0 {
		panic(errs[0])
	}
}

// checkIndex verifies invariants 4 and 5: bitmap/list consistency, and
// that every enqueued block is filed under the cell mapping_insert would
// compute for its size.
func (c *Control) checkIndex() []*InvariantError {
	var errs []*InvariantError

	for fl := 0; fl < flCount; fl++ {
		flBit := c.flBitmap&(uint32(1)<<uint(fl)) != 0
		slNonZero := c.slBitmap[fl] != 0

		if flBit != slNonZero {
			errs = append(errs, ErrInvariant("bitmap",
				fmt.Sprintf("fl_bitmap bit %d=%v, sl_bitmap[%d]!=0 is %v", fl, flBit, fl, slNonZero)))
		}

		for sl := 0; sl < slCount; sl++ {
			slBit := c.slBitmap[fl]&(uint32(1)<<uint(sl)) != 0
			head := c.blocks[fl][sl]

			if slBit != (head != nil) {
				errs = append(errs, ErrInvariant("bitmap",
					fmt.Sprintf("sl_bitmap[%d] bit %d=%v, blocks[%d][%d] present=%v", fl, sl, slBit, fl, sl, head != nil)))
			}

			for b := head; b != nil; b = b.links().next {
				if !b.isFree() {
					errs = append(errs, ErrInvariant("index", "block enqueued in a free list is not marked free"))
				}

				gotFL, gotSL := mappingInsert(b.size())
				if gotFL != fl || gotSL != sl {
					errs = append(errs, ErrInvariant("index",
						fmt.Sprintf("block of size %d filed at (%d,%d), mapping_insert wants (%d,%d)", b.size(), fl, sl, gotFL, gotSL)))
				}
			}
		}
	}

	return errs
}

// checkPools verifies invariants 1, 2, 3 (partially), and 6 by walking
// every pool's physical block chain from its initial block to its
// sentinel.
func (c *Control) checkPools() []*InvariantError {
	var errs []*InvariantError

	for _, p := range c.pools {
		b := p.initial
		if b.isPrevFree() {
			errs = append(errs, ErrInvariant("prev-free", "pool's initial block claims a physical predecessor"))
		}

		for {
			if !b.isLast() {
				if b.size()%Align != 0 {
					errs = append(errs, ErrInvariant("alignment", "block size is not a multiple of Align"))
				}

				if b.size() < blockSizeMin {
					errs = append(errs, ErrInvariant("min-size", "block smaller than the minimum legal size"))
				}
			}

			if b.isLast() {
				if b.isFree() {
					errs = append(errs, ErrInvariant("sentinel", "sentinel block is marked free"))
				}

				break
			}

			next := b.next()

			if b.isFree() {
				if next.isFree() {
					errs = append(errs, ErrInvariant("coalescing", "two physically adjacent free blocks"))
				}

				if !next.isPrevFree() {
					errs = append(errs, ErrInvariant("prev-free", "free block's successor lacks is_prev_free"))
				}
			} else if next.isPrevFree() {
				errs = append(errs, ErrInvariant("prev-free", "used block's successor claims is_prev_free"))
			}

			b = next
		}
	}

	return errs
}
