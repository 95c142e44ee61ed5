package backing

import (
	"testing"
	"unsafe"
)

func TestHeapSourceMapUnmap(t *testing.T) {
	src := NewHeapSource(4096, nil)

	ptr, size := src.Map(100, nil)
	if ptr == nil {
		t.Fatal("Map returned a nil pointer")
	}

	if size < 100 {
		t.Fatalf("Map granted %d bytes, want at least 100", size)
	}

	if uintptr(ptr)%mapAlign != 0 {
		t.Fatalf("Map returned a pointer misaligned to %d bytes", mapAlign)
	}

	if src.SlabCount() != 1 {
		t.Fatalf("SlabCount() = %d, want 1", src.SlabCount())
	}

	src.Unmap(ptr, size, nil)

	if src.SlabCount() != 0 {
		t.Fatalf("SlabCount() = %d after Unmap, want 0", src.SlabCount())
	}
}

func TestHeapSourceUnmapUnknownPointerPanics(t *testing.T) {
	src := NewHeapSource(0, nil)

	defer func() {
		if recover() == nil {
			t.Fatal("Unmap of a pointer this source never granted should panic")
		}
	}()

	var x byte
	src.Unmap(unsafe.Pointer(&x), 1, nil)
}

func TestHeapSourceGrowsAcrossMultipleGrants(t *testing.T) {
	src := NewHeapSource(8192, nil)

	var ptrs []unsafe.Pointer

	for i := 0; i < 4; i++ {
		p, _ := src.Map(1024, nil)
		if p == nil {
			t.Fatalf("Map %d failed", i)
		}

		ptrs = append(ptrs, p)
	}

	if src.SlabCount() != 4 {
		t.Fatalf("SlabCount() = %d, want 4", src.SlabCount())
	}

	for _, p := range ptrs {
		src.Unmap(p, 8192, nil)
	}

	if src.SlabCount() != 0 {
		t.Fatal("all slabs should be released")
	}
}

func TestFuncsBridgesSourceToPlainFunctions(t *testing.T) {
	src := NewHeapSource(4096, nil)

	mapFn, unmapFn := Funcs(src)

	ptr, size := mapFn(64, nil)
	if ptr == nil {
		t.Fatal("bridged mapFn returned nil")
	}

	unmapFn(ptr, size, nil)

	if src.SlabCount() != 0 {
		t.Fatal("bridged unmapFn did not release the slab")
	}
}

func TestNopLoggerDoesNotPanic(t *testing.T) {
	NopLogger.Printf("ignored: %d", 1)
}
