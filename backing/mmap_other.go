//go:build !unix

package backing

// NewMmapSource is the non-Unix fallback: platforms without mmap (plan9,
// js/wasm, windows without the unix build tag) get a HeapSource instead, the
// same trade the teacher's zerocopy_generic_file.go makes by falling back to
// io.Copy where sendfile isn't available. Callers that always want an
// mmap-backed source should build with the "unix" tag.
func NewMmapSource(log Logger) *HeapSource {
	return NewHeapSource(0, log)
}
