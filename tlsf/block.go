package tlsf

import "unsafe"

const (
	flagFree     uintptr = 1 << 0
	flagPrevFree uintptr = 1 << 1
	flagPool     uintptr = 1 << 2
	flagMask             = flagFree | flagPrevFree | flagPool
)

// header sits at the start of every physical block inside a pool: used or
// free, sentinel or not. prevPhys is meaningful only while the physically
// previous block is free (mirrors spec section 3's "prev_phys_block is
// conceptually storage that belongs to the previous block").
//
// This is the one deliberate departure from the C reference's byte-exact
// header-overlap trick: rather than overlapping prevPhys with the tail of
// the previous block's payload to shave the header to a single word, each
// block here carries its own two-word header. See DESIGN.md for why: doing
// the overlap with typed Go pointers instead of raw bytes would mean a used
// block's last word aliases a *header the GC could misinterpret, and the
// byte-level trick buys back one word per allocation at the cost of being
// inexpressible without reinterpreting arbitrary payload bytes as pointers.
type header struct {
	prevPhys  *header
	sizeFlags uintptr
}

// freeLinks overlays the payload of a free block. It is never valid to read
// or write while the block is used; those bytes belong to the caller then.
type freeLinks struct {
	next *header
	prev *header
}

var (
	headerSize   = unsafe.Sizeof(header{})
	fullHeader   = headerSize + unsafe.Sizeof(freeLinks{})
	blockSizeMin = unsafe.Sizeof(freeLinks{})

	// poolOverhead is the bookkeeping a pool needs beyond its usable
	// blocks: the sentinel block's header.
	poolOverhead = headerSize
)

func (h *header) size() uintptr { return h.sizeFlags &^ flagMask }

func (h *header) setSize(s uintptr) {
	h.sizeFlags = (s &^ flagMask) | (h.sizeFlags & flagMask)
}

func (h *header) isFree() bool     { return h.sizeFlags&flagFree != 0 }
func (h *header) isPrevFree() bool { return h.sizeFlags&flagPrevFree != 0 }
func (h *header) isPool() bool     { return h.sizeFlags&flagPool != 0 }
func (h *header) isLast() bool     { return h.size() == 0 }

func (h *header) setFreeFlag(v bool) { h.setFlag(flagFree, v) }
func (h *header) setPrevFree(v bool) { h.setFlag(flagPrevFree, v) }
func (h *header) setPoolFlag(v bool) { h.setFlag(flagPool, v) }

func (h *header) setFlag(flag uintptr, v bool) {
	if v {
		h.sizeFlags |= flag
	} else {
		h.sizeFlags &^= flag
	}
}

// toPtr returns the usable payload pointer for this block.
func (h *header) toPtr() unsafe.Pointer {
	return unsafe.Add(unsafe.Pointer(h), headerSize)
}

// headerFromPtr recovers a block header from a pointer previously handed to
// a caller by malloc/calloc/realloc.
func headerFromPtr(p unsafe.Pointer) *header {
	return (*header)(unsafe.Add(p, -int(headerSize)))
}

// next returns the physically next block. Never call on the sentinel.
func (h *header) next() *header {
	return (*header)(unsafe.Add(h.toPtr(), h.size()))
}

// links views this block's payload as free-list link storage. Only valid
// while the block is free.
func (h *header) links() *freeLinks {
	return (*freeLinks)(h.toPtr())
}

// markFree transitions a block to the free state and propagates the
// is-prev-free bit into its physical successor, as spec section 4.6 step 2
// requires.
func (h *header) markFree() {
	h.setFreeFlag(true)
	h.next().setPrevFree(true)
}

// markUsed transitions a block to the used state and propagates the bit
// into its physical successor.
func (h *header) markUsed() {
	h.setFreeFlag(false)
	h.next().setPrevFree(false)
}

// fixNextPrevPhys records h as the physical predecessor of its successor.
// Called whenever a header is (re)placed at a new address: pool creation,
// split, and absorb all shift where one block's successor begins.
func (h *header) fixNextPrevPhys() {
	h.next().prevPhys = h
}
