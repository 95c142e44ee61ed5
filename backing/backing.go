// Package backing provides ready-made MapFunc/UnmapFunc pairs for
// github.com/Mistuke/tlsf, so callers do not each have to write their own
// pool-growth source. Spec section 6 leaves "the backing memory source" as
// an explicit open question the allocator core stays agnostic to; this
// package answers it the way the teacher answers the analogous question for
// its own arena and VM allocators (internal/runtime/region_alloc.go,
// internal/runtime/kernel/vmm.go): a small Source interface plus a couple of
// concrete implementations, rather than baking one choice into the core.
package backing

import "unsafe"

// Logger is the minimal logging surface backing sources write diagnostics
// through, modeled on the teacher's habit of accepting *log.Logger or an
// equivalent narrow interface rather than a full structured-logging
// dependency at every call site (internal/runtime/debug_inspector.go).
// A *log.Logger value satisfies this directly.
type Logger interface {
	Printf(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Printf(string, ...any) {}

// NopLogger discards everything written to it. It is the default Logger for
// every Source constructor in this package.
var NopLogger Logger = nopLogger{}

// Source is something that can grant and release raw, page- or
// Align-aligned memory regions on request. Map/Unmap have exactly the
// signature of tlsf.MapFunc/tlsf.UnmapFunc; Source exists only to bundle
// the pair together with whatever state backs them (an fd, a logger, a
// held Go slice) without making the caller wire up a closure by hand.
type Source interface {
	Map(minSize uintptr, user any) (ptr unsafe.Pointer, actualSize uintptr)
	Unmap(ptr unsafe.Pointer, size uintptr, user any)
}

// Funcs splits a Source into the two plain functions tlsf.Create expects.
func Funcs(s Source) (mapFn func(uintptr, any) (unsafe.Pointer, uintptr), unmapFn func(unsafe.Pointer, uintptr, any)) {
	return s.Map, s.Unmap
}
