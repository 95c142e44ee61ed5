package tlsf

import "unsafe"

// canSplit reports whether b is large enough to carve out a used block of
// size bytes and still leave a legal free block behind.
func canSplit(b *header, size uintptr) bool {
	return b.size() >= fullHeader+size
}

// split carves a used region of size bytes off the front of b and returns
// the free remainder. b is left sized to exactly size (still used; the
// caller marks it used and/or reinserts the remainder). The remainder is
// marked free, which propagates is-prev-free into the block after it; it is
// not inserted into the index here, matching spec section 4.4's
// block_split contract.
func split(b *header, size uintptr) *header {
	total := b.size()
	remainderSize := total - size - headerSize
	wasFree := b.isFree() // b may still carry its pre-split free flag; see trimFree.

	b.setSize(size)

	r := (*header)(unsafe.Add(b.toPtr(), size))
	r.prevPhys = b
	r.sizeFlags = 0
	r.setSize(remainderSize)
	r.setPrevFree(wasFree)
	r.fixNextPrevPhys()
	r.markFree()

	return r
}

// absorb grows p to consume the physically following block b, which must
// not be the sentinel. No free-list bookkeeping happens here; callers
// remove b from the index themselves before absorbing it.
func absorb(p, b *header) *header {
	p.setSize(p.size() + b.size() + headerSize)
	p.fixNextPrevPhys()

	return p
}

// mergePrev merges b into its physically previous block if that block is
// free, returning the merged block (or b unchanged if there was nothing to
// merge).
func (c *Control) mergePrev(b *header) *header {
	if !b.isPrevFree() {
		return b
	}

	prev := b.prevPhys
	c.blockRemove(prev)

	return absorb(prev, b)
}

// mergeNext merges b's physically following block into b if that block is
// free, returning b.
func (c *Control) mergeNext(b *header) *header {
	next := b.next()
	if !next.isFree() {
		return b
	}

	c.blockRemove(next)

	return absorb(b, next)
}

// trimFree splits a free block down to size if there is enough left over
// to form a legal remainder, inserting the remainder back into the index.
// Used on the allocation path after a block has been located but before it
// is handed to the caller.
func (c *Control) trimFree(b *header, size uintptr) *header {
	if !canSplit(b, size) {
		return b
	}

	r := split(b, size)
	c.blockInsert(r)

	return b
}

// trimUsed splits a used block down to size, merging the freed remainder
// with its physical successor if that is also free, and files the result
// into the index. Used by realloc's in-place shrink path.
func (c *Control) trimUsed(b *header, size uintptr) {
	if !canSplit(b, size) {
		return
	}

	r := split(b, size)
	r = c.mergeNext(r)
	c.blockInsert(r)
}
