package tlsf

import "unsafe"

// adjustSize rounds size up to Align, clamps it to the allocator's minimum
// block size, and rejects anything that could never be satisfied. Spec
// section 9 notes the source's malloc(0) passes through this same path and
// ends up with a real, freeable minimum-size block rather than nil; that
// behavior is preserved deliberately.
func adjustSize(size uintptr) (uintptr, bool) {
	adjusted := alignUp(size, Align)
	if adjusted < blockSizeMin {
		adjusted = blockSizeMin
	}

	if adjusted >= blockSizeMax {
		return 0, false
	}

	return adjusted, true
}

// Malloc allocates size bytes, rounding up to Align and to the minimum
// block size. It grows the backing pool set on demand (spec section 4.5
// step 3) and returns nil only when size can never be satisfied or the
// backing source itself is exhausted.
func (c *Control) Malloc(size uintptr) unsafe.Pointer {
	adjusted, ok := adjustSize(size)
	if !ok {
		return nil
	}

	b := c.blockLocateFree(adjusted)
	if b == nil {
		minSize := poolOverhead + headerSize + adjusted

		initial, err := c.growPool(minSize, true)
		if err != nil {
			return nil
		}

		// growPool filed a new free block of at least adjusted bytes
		// (minSize less the pool's two headers). Take it directly:
		// mappingSearch rounds adjusted up to the next second-level
		// bucket, so a lookup could miss a block granted exactly minSize.
		c.blockRemove(initial)
		b = initial
	}

	b = c.trimFree(b, adjusted)
	b.markUsed()

	if c.cfg.EnableStats {
		c.stats.MallocCount++
	}

	if c.cfg.CheckOnMutation {
		c.MustCheck()
	}

	return b.toPtr()
}

// MustMalloc is Malloc for callers that want a diagnosable panic instead of
// a nil return, mirroring MustCheck's relationship to Check. It panics with
// ErrSizeTooLarge when size could never be satisfied and with a
// CategoryBacking error when Malloc returns nil for it; Malloc itself never
// does either, keeping spec section 7's null-return convention on the hot
// path.
func (c *Control) MustMalloc(size uintptr) unsafe.Pointer {
	if _, ok := adjustSize(size); !ok {
		panic(ErrSizeTooLarge(size))
	}

	ptr := c.Malloc(size)
	if ptr == nil {
		panic(newBackingError("MustMalloc: backing source could not satisfy the request"))
	}

	return ptr
}

// Free releases a pointer previously returned by Malloc, Calloc, or
// Realloc. Freeing nil is a no-op, which is what lets Realloc implement
// realloc(p, 0) by delegating straight to Free.
func (c *Control) Free(ptr unsafe.Pointer) {
	if ptr == nil {
		return
	}

	b := headerFromPtr(ptr)

	if c.cfg.CheckOnMutation && b.isFree() {
		panic(ErrDoubleFree(ptr))
	}

	b.markFree()

	b = c.mergePrev(b)
	b = c.mergeNext(b)

	if b.isPool() && b.next().isLast() && c.unmapFn != nil {
		c.removePool(b)
	} else {
		c.blockInsert(b)
	}

	if c.cfg.EnableStats {
		c.stats.FreeCount++
	}

	if c.cfg.CheckOnMutation {
		c.MustCheck()
	}
}

// Calloc allocates size bytes and zeroes them, matching spec section 6's
// calloc(t, n): this is a single-size byte allocator, not the two-argument
// nmemb*size C calloc.
func (c *Control) Calloc(size uintptr) unsafe.Pointer {
	ptr := c.Malloc(size)
	if ptr == nil {
		return nil
	}

	zeroMemory(ptr, size)

	return ptr
}

// Realloc resizes the allocation at ptr to size bytes, preserving contents
// up to min(old, new) (spec section 4.7). (nil, n) behaves as Malloc(n);
// (p, 0) behaves as Free(p) returning nil. On out-of-memory when growing
// out of place, the original allocation is left untouched and nil is
// returned.
func (c *Control) Realloc(ptr unsafe.Pointer, size uintptr) unsafe.Pointer {
	if ptr == nil {
		return c.Malloc(size)
	}

	if size == 0 {
		c.Free(ptr)

		return nil
	}

	adjusted, ok := adjustSize(size)
	if !ok {
		return nil
	}

	b := headerFromPtr(ptr)
	cur := b.size()

	if adjusted <= cur {
		c.trimUsed(b, adjusted)

		if c.cfg.CheckOnMutation {
			c.MustCheck()
		}

		return ptr
	}

	if next := b.next(); next.isFree() {
		combined := cur + next.size() + headerSize
		if combined >= adjusted {
			c.blockRemove(next)
			b = absorb(b, next)
			b.next().setPrevFree(false) // b stayed used throughout; b's new successor's predecessor is used.
			c.trimUsed(b, adjusted)

			if c.cfg.CheckOnMutation {
				c.MustCheck()
			}

			return ptr
		}
	}

	newPtr := c.Malloc(size)
	if newPtr == nil {
		return nil
	}

	copyMemory(newPtr, ptr, cur)
	c.Free(ptr)

	return newPtr
}

func copyMemory(dst, src unsafe.Pointer, size uintptr) {
	if size == 0 {
		return
	}

	copy(unsafe.Slice((*byte)(dst), size), unsafe.Slice((*byte)(src), size))
}

func zeroMemory(ptr unsafe.Pointer, size uintptr) {
	if size == 0 {
		return
	}

	clear(unsafe.Slice((*byte)(ptr), size))
}
