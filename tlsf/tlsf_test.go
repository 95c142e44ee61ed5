package tlsf

import "unsafe"

// testSource is a minimal MapFunc/UnmapFunc pair used across this package's
// tests: plain Go byte slices kept alive in heldSlabs, the same technique
// backing.HeapSource uses, written locally here so tlsf's tests do not
// depend on the backing package.
type testSource struct {
	heldSlabs [][]byte
	failNext  bool
}

func (s *testSource) mapFn(minSize uintptr, user any) (unsafe.Pointer, uintptr) {
	if s.failNext {
		s.failNext = false

		return nil, 0
	}

	const grow = 1 << 16

	size := ((minSize + Align + grow - 1) / grow) * grow

	buf := make([]byte, size)
	s.heldSlabs = append(s.heldSlabs, buf)

	base := uintptr(unsafe.Pointer(&buf[0]))
	aligned := (base + Align - 1) &^ (Align - 1)

	return unsafe.Pointer(aligned), size - (aligned - base)
}

func (s *testSource) unmapFn(ptr unsafe.Pointer, size uintptr, user any) {
	for i, buf := range s.heldSlabs {
		base := uintptr(unsafe.Pointer(&buf[0]))
		aligned := (base + Align - 1) &^ (Align - 1)

		if unsafe.Pointer(aligned) == ptr {
			s.heldSlabs = append(s.heldSlabs[:i], s.heldSlabs[i+1:]...)

			return
		}
	}
}

func newTestControl(t interface{ Fatalf(string, ...any) }, opts ...Option) (*Control, *testSource) {
	src := &testSource{}

	c, err := Create(src.mapFn, src.unmapFn, nil, opts...)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	return c, src
}
