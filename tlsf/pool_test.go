package tlsf

import "testing"

func TestGrowPoolOnDemand(t *testing.T) {
	c, _ := newTestControl(t)

	before := c.PoolCount()

	// Ask for something far larger than the initial pool so Malloc is
	// forced to grow a new one.
	ptr := c.Malloc(1 << 18)
	if ptr == nil {
		t.Fatal("Malloc should have grown a new pool to satisfy a large request")
	}

	if c.PoolCount() <= before {
		t.Fatalf("PoolCount() = %d, want more than %d after forcing growth", c.PoolCount(), before)
	}
}

func TestPoolAutoReleaseOnFullFree(t *testing.T) {
	src := &testSource{}

	c, err := Create(src.mapFn, src.unmapFn, nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	before := len(src.heldSlabs)

	ptr := c.Malloc(1 << 18)
	if ptr == nil {
		t.Fatal("Malloc failed")
	}

	grown := len(src.heldSlabs)
	if grown <= before {
		t.Fatalf("expected a new pool slab, got %d (was %d)", grown, before)
	}

	c.Free(ptr)

	if len(src.heldSlabs) != before {
		t.Fatalf("freeing the only allocation in a grown pool should release it: slabs = %d, want %d", len(src.heldSlabs), before)
	}
}

func TestInitialPoolNeverAutoReleased(t *testing.T) {
	src := &testSource{}

	c, err := Create(src.mapFn, src.unmapFn, nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	initialSlabCount := len(src.heldSlabs)

	ptr := c.Malloc(Align)
	if ptr == nil {
		t.Fatal("Malloc failed")
	}

	c.Free(ptr)

	if len(src.heldSlabs) != initialSlabCount {
		t.Fatal("freeing an allocation from the initial pool must not release it")
	}

	if c.PoolCount() != 1 {
		t.Fatalf("PoolCount() = %d, want 1 (initial pool retained)", c.PoolCount())
	}
}

func TestWalkPoolsVisitsEveryPool(t *testing.T) {
	c, _ := newTestControl(t)

	c.Malloc(1 << 18) // forces a second pool.

	seen := 0

	var totalSize uintptr

	c.WalkPools(func(p PoolInfo) bool {
		seen++
		totalSize += p.Size

		return true
	})

	if seen != c.PoolCount() {
		t.Fatalf("WalkPools visited %d pools, want %d", seen, c.PoolCount())
	}

	if totalSize == 0 {
		t.Fatal("WalkPools reported zero total size across all pools")
	}
}

func TestWalkPoolsEarlyStop(t *testing.T) {
	c, _ := newTestControl(t)
	c.Malloc(1 << 18)

	seen := 0
	c.WalkPools(func(PoolInfo) bool {
		seen++

		return false
	})

	if seen != 1 {
		t.Fatalf("WalkPools should stop after the first pool when fn returns false, saw %d", seen)
	}
}
