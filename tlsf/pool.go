package tlsf

import "unsafe"

// addPool lays out a freshly mapped region as one big free block followed
// by a zero-size used sentinel, per spec section 4.8. mem must already be
// Align-aligned; callers (growPool) verify that before calling in.
func addPool(mem unsafe.Pointer, size uintptr) *header {
	initial := (*header)(mem)
	initial.sizeFlags = 0
	initial.setSize(size - 2*headerSize)

	sentinel := (*header)(unsafe.Add(mem, headerSize+initial.size()))
	sentinel.sizeFlags = 0
	sentinel.prevPhys = initial

	initial.markFree() // frees initial; sets sentinel.isPrevFree = true.

	return initial
}

// growPool asks the backing source for at least minSize bytes, lays out a
// new pool in the granted region, and files its initial block into the
// index. markAsPool controls spec section 4.9's asymmetry: the pool
// attached by Create is never flagged is_pool (it outlives every drain and
// is only released by Destroy), while every pool grown on demand by
// Malloc is flagged, so Free can hand it back once it empties.
func (c *Control) growPool(minSize uintptr, markAsPool bool) (*header, error) {
	ptr, actual := c.mapFn(minSize, c.user)
	if ptr == nil {
		return nil, newBackingError("growPool: backing source returned nil")
	}

	if uintptr(ptr)%Align != 0 {
		return nil, newContractError("growPool: backing source returned a misaligned pointer")
	}

	if actual < minSize {
		return nil, newContractError("growPool: backing source granted less than the requested minimum")
	}

	initial := addPool(ptr, actual)
	initial.setPoolFlag(markAsPool)

	c.pools = append(c.pools, &poolInfo{
		initial:   initial,
		size:      actual,
		isInitial: !markAsPool,
	})

	c.blockInsert(initial)

	return initial, nil
}

// removePool detaches the pool whose initial block is b and, if an
// UnmapFunc was provided, releases it back to the backing source. b must
// be entirely free with the sentinel as its immediate physical successor
// (spec section 4.8's remove_pool precondition); callers verify that.
func (c *Control) removePool(b *header) {
	idx := -1

	for i, p := range c.pools {
		if p.initial == b {
			idx = i

			break
		}
	}

	if idx < 0 {
		return
	}

	p := c.pools[idx]
	c.pools = append(c.pools[:idx], c.pools[idx+1:]...)

	if c.unmapFn != nil {
		c.unmapFn(unsafe.Pointer(b), p.size, c.user)
	}
}

// PoolInfo is a read-only snapshot of one live pool, returned by WalkPools.
type PoolInfo struct {
	Size      uintptr
	FreeBytes uintptr
	UsedBytes uintptr
	IsInitial bool
}

// PoolCount returns the number of pools currently attached to c.
func (c *Control) PoolCount() int { return len(c.pools) }

// WalkPools calls fn once per live pool with a read-only snapshot, in
// attachment order. fn's return value controls whether the walk
// continues; returning false stops it early. Grounded in the teacher's
// ArenaAllocatorImpl accessors (Used/Available/Size) generalized to a
// multi-pool allocator: there is no mutation path through this method, so
// it carries no locking requirement beyond the caller's own serialization.
func (c *Control) WalkPools(fn func(PoolInfo) bool) {
	for _, p := range c.pools {
		free, used := poolTotals(p.initial)

		if !fn(PoolInfo{Size: p.size, FreeBytes: free, UsedBytes: used, IsInitial: p.isInitial}) {
			return
		}
	}
}

// poolTotals walks every physical block from a pool's initial block to its
// sentinel, summing free and used bytes. initial's address never changes
// even after repeated splits, so this always sees the whole pool.
func poolTotals(b *header) (free, used uintptr) {
	for {
		if b.isFree() {
			free += b.size()
		} else {
			used += b.size()
		}

		if b.isLast() {
			return free, used
		}

		b = b.next()
	}
}
