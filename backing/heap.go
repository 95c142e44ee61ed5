package backing

import (
	"fmt"
	"sync"
	"unsafe"
)

type slab struct {
	bytes     []byte
	grantedAt unsafe.Pointer
}

// HeapSource grants pool memory out of ordinary Go byte slices instead of
// the OS. Grounded in the teacher's Region.backing field
// (internal/runtime/region_alloc.go), which keeps a []byte alive purely so
// the GC cannot reclaim memory a raw *unsafe.Pointer still aliases: every
// slab HeapSource hands out is retained in h.slabs until Unmap releases it,
// since the tlsf core only ever sees the bare unsafe.Pointer and
// has no way to pin it itself.
//
// Intended for tests and for hosts that would rather not touch mmap at all
// (WASM, sandboxes without the syscall). It grants generously (minSize
// rounded up to the next growth step) rather than exactly minSize, the same
// over-allocation tradeoff balloc's buddyInit makes by rounding up to the
// next power of two.
type HeapSource struct {
	mu     sync.Mutex
	log    Logger
	slabs  []slab
	growBy uintptr
}

// NewHeapSource returns a Source that grows by at least growBy bytes per
// call to Map (rounding minSize up to a multiple of growBy), defaulting
// growBy to 1MiB when given 0.
func NewHeapSource(growBy uintptr, log Logger) *HeapSource {
	if growBy == 0 {
		growBy = 1 << 20
	}

	if log == nil {
		log = NopLogger
	}

	return &HeapSource{growBy: growBy, log: log}
}

// mapAlign is the alignment this source guarantees its grants at. Go's
// runtime aligns every heap allocation to at least the platform pointer
// size for GC scanning purposes, which happens to be exactly what
// tlsf.Align requires; mapAlign is a named constant rather than a bare
// reference to tlsf.Align so this package does not need to import tlsf
// just to satisfy its MapFunc contract.
const mapAlign = unsafe.Sizeof(uintptr(0))

func (h *HeapSource) Map(minSize uintptr, user any) (unsafe.Pointer, uintptr) {
	h.mu.Lock()
	defer h.mu.Unlock()

	// Pad for a worst-case alignment correction below, same margin balloc's
	// mmap-based pool reserves implicitly by always granting whole pages.
	size := ((minSize + mapAlign + h.growBy - 1) / h.growBy) * h.growBy

	bytes := make([]byte, size)
	base := uintptr(unsafe.Pointer(&bytes[0]))
	aligned := (base + mapAlign - 1) &^ (mapAlign - 1)
	ptr := unsafe.Pointer(aligned)
	granted := size - (aligned - base)

	h.slabs = append(h.slabs, slab{bytes: bytes, grantedAt: ptr})
	h.log.Printf("backing: HeapSource granted %d bytes (requested %d)", granted, minSize)

	return ptr, granted
}

func (h *HeapSource) Unmap(ptr unsafe.Pointer, size uintptr, user any) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for i, s := range h.slabs {
		if s.grantedAt == ptr {
			h.slabs = append(h.slabs[:i], h.slabs[i+1:]...)
			h.log.Printf("backing: HeapSource released %d bytes", size)

			return
		}
	}

	panic(fmt.Sprintf("backing: HeapSource.Unmap: pointer %p was never granted by this source", ptr))
}

// SlabCount reports how many slabs are currently held alive. Exposed for
// tests that want to assert growth/release behavior without reaching into
// the allocator's own pool bookkeeping.
func (h *HeapSource) SlabCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.slabs)
}
