package tlsf_test

import (
	"math/rand"
	"testing"
	"unsafe"

	"github.com/Mistuke/tlsf/backing"
	"github.com/Mistuke/tlsf/tlsf"
)

// TestAllocatorWithHeapSource exercises the public API end to end against
// the backing package's in-process source, the way a real caller would wire
// the two together, in the teacher's t.Run-per-scenario style
// (internal/allocator/integration_test.go).
func TestAllocatorWithHeapSource(t *testing.T) {
	src := backing.NewHeapSource(1<<16, nil)
	mapFn, unmapFn := backing.Funcs(src)

	c, err := tlsf.Create(mapFn, unmapFn, nil, tlsf.WithName("integration"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	t.Run("BasicAllocFree", func(t *testing.T) {
		ptr := c.Malloc(128)
		if ptr == nil {
			t.Fatal("Malloc failed")
		}

		data := unsafe.Slice((*byte)(ptr), 128)
		for i := range data {
			data[i] = byte(i)
		}

		for i, b := range data {
			if b != byte(i) {
				t.Fatalf("data corruption at %d", i)
			}
		}

		c.Free(ptr)

		if errs := c.Check(); len(errs) != 0 {
			t.Fatalf("Check found violations after a single alloc/free: %v", errs)
		}
	})

	t.Run("FragmentAndCoalesce", func(t *testing.T) {
		var ptrs []unsafe.Pointer
		for i := 0; i < 64; i++ {
			p := c.Malloc(uintptr(32 + i))
			if p == nil {
				t.Fatalf("Malloc %d failed", i)
			}

			ptrs = append(ptrs, p)
		}

		// Free every other allocation, then the rest, and expect the
		// allocator to end up structurally sound either way.
		for i := 0; i < len(ptrs); i += 2 {
			c.Free(ptrs[i])
		}

		if errs := c.Check(); len(errs) != 0 {
			t.Fatalf("Check found violations mid-fragmentation: %v", errs)
		}

		for i := 1; i < len(ptrs); i += 2 {
			c.Free(ptrs[i])
		}

		if errs := c.Check(); len(errs) != 0 {
			t.Fatalf("Check found violations after full coalescing: %v", errs)
		}
	})

	t.Run("RandomizedWorkload", func(t *testing.T) {
		rng := rand.New(rand.NewSource(1))
		live := map[unsafe.Pointer]uintptr{}

		for i := 0; i < 2000; i++ {
			if len(live) > 0 && rng.Intn(3) == 0 {
				for p := range live {
					c.Free(p)
					delete(live, p)

					break
				}

				continue
			}

			size := uintptr(rng.Intn(4096) + 1)

			p := c.Malloc(size)
			if p == nil {
				continue // backing source may legitimately be tapped out.
			}

			live[p] = size
		}

		for p := range live {
			c.Free(p)
		}

		if errs := c.Check(); len(errs) != 0 {
			t.Fatalf("Check found %d violations after a randomized workload: %v", len(errs), errs)
		}

		stats := c.Stats()
		if stats.FreeSize+stats.UsedSize != stats.TotalSize {
			t.Fatalf("size accounting broken after randomized workload: free=%d used=%d total=%d",
				stats.FreeSize, stats.UsedSize, stats.TotalSize)
		}
	})

	c.Destroy()
}
