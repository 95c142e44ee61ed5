//go:build unix

package backing

import (
	"fmt"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"
)

// MmapSource grants pool memory via anonymous, private mmap regions,
// grounded in balloc's buddyInit/buddyDestroy (which call the same
// unix.Mmap/unix.Munmap pair for the same reason: raw pages the Go GC never
// walks). Unlike HeapSource, the returned memory is never backed by a Go
// slice header, so there is nothing for the GC to relocate or scan; the
// page size itself is the alignment guarantee, which always exceeds
// tlsf.Align.
type MmapSource struct {
	mu       sync.Mutex
	log      Logger
	pageSize uintptr
	granted  map[uintptr]uintptr // base address -> length, for Munmap's length argument.
}

// NewMmapSource returns an mmap-backed Source. log may be nil.
func NewMmapSource(log Logger) *MmapSource {
	if log == nil {
		log = NopLogger
	}

	return &MmapSource{
		log:      log,
		pageSize: uintptr(unix.Getpagesize()),
		granted:  make(map[uintptr]uintptr),
	}
}

func (m *MmapSource) Map(minSize uintptr, user any) (unsafe.Pointer, uintptr) {
	m.mu.Lock()
	defer m.mu.Unlock()

	size := ((minSize + m.pageSize - 1) / m.pageSize) * m.pageSize

	data, err := unix.Mmap(-1, 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
	if err != nil {
		m.log.Printf("backing: MmapSource.Map(%d) failed: %v", size, err)

		return nil, 0
	}

	base := uintptr(unsafe.Pointer(&data[0]))
	m.granted[base] = size
	m.log.Printf("backing: MmapSource granted %d bytes at %#x", size, base)

	return unsafe.Pointer(&data[0]), size
}

func (m *MmapSource) Unmap(ptr unsafe.Pointer, size uintptr, user any) {
	m.mu.Lock()
	defer m.mu.Unlock()

	base := uintptr(ptr)

	length, ok := m.granted[base]
	if !ok {
		panic(fmt.Sprintf("backing: MmapSource.Unmap: address %#x was never granted by this source", base))
	}

	delete(m.granted, base)

	if err := unix.Munmap(unsafe.Slice((*byte)(ptr), length)); err != nil {
		m.log.Printf("backing: MmapSource.Unmap(%#x, %d) failed: %v", base, length, err)
	}
}
