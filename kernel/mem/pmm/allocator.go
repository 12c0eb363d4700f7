package pmm

import (
	"fmt"
	"sync"
	"unsafe"

	"solstice/kernel/mem"
)

// zoneSlot pairs a Zone with the mutex that serialises access to it. The
// Zone itself holds no lock: PhysAllocator is solely responsible for
// mutual exclusion.
type zoneSlot struct {
	mu   sync.Mutex
	zone *Zone
}

// PhysAllocator is the process-wide facade over every Zone: a read-mostly
// slice of zones guarded by an RWMutex (written once during Init, read on
// every Alloc/Free), with each zone additionally guarded by its own
// mutex. Lock order is always the RWMutex (as a reader) first and at
// most one zone mutex second; two zone mutexes are never held at once,
// and the order is never reversed.
type PhysAllocator struct {
	mu    sync.RWMutex
	zones []*zoneSlot
}

// NewPhysAllocator returns an allocator with no zones. Call Init to
// populate it from a firmware-derived MemoryMap before issuing any
// Alloc/Free calls.
func NewPhysAllocator() *PhysAllocator {
	return &PhysAllocator{}
}

// Init consumes mm's regions, turning each large enough one into a Zone,
// and installs the resulting zone set. It is meant to run once, during
// boot, before any other goroutine can reach Alloc or Free; Init itself
// takes the write lock so a racing call would not corrupt state, but the
// kernel never calls it more than once in practice.
func (a *PhysAllocator) Init(mm *mem.MemoryMap) error {
	var zones []*zoneSlot
	it := mm.Regions()
	for {
		rg, ok := it.Next()
		if !ok {
			break
		}

		pagesInRegion := rg.Size / mem.PageSize
		usable := UsablePages(pagesInRegion)
		if usable <= 1 {
			continue
		}

		reservedBytes := (pagesInRegion - usable) * mem.PageSize
		reserved, free := rg.SplitAt(reservedBytes)

		blocks := newBlocksForRegion(reserved, usable)
		zoneSize := free.Size &^ (mem.PageSize - 1)
		zone := NewZone(free.Addr, zoneSize, blocks)

		if len(zones) >= MaxZones {
			return fmt.Errorf("pmm: usable regions exceed MaxZones (%d)", MaxZones)
		}
		zones = append(zones, &zoneSlot{zone: zone})
	}

	a.mu.Lock()
	a.zones = zones
	a.mu.Unlock()
	return nil
}

// newBlocksForRegion carves a freshly zeroed Block slab (all-Used, per
// Block's zero-value convention) for usablePages worth of buddy-tree
// bookkeeping out of region's reserved prefix, using a throwaway bump
// allocator over that prefix. The slab outlives the bump allocator: the
// zone keeps slicing into it for its entire lifetime.
func newBlocksForRegion(region mem.Region, usablePages uint64) []Block {
	count := BlocksInRegion(usablePages)

	bump := mem.NewRegionBumpAllocator(region)
	va, ok := bump.Alloc(count, 1)
	if !ok {
		panic("pmm: failed to allocate Block slab from region's reserved prefix")
	}

	// A freshly returned bump region is not guaranteed zeroed by
	// RegionBumpAllocator, so the slab is zeroed explicitly here -- zero
	// is BlockUsed, the correct initial state for every slot before
	// fillInitial marks the real pages free.
	blocks := blockSlabAt(va, count)
	for i := range blocks {
		blocks[i] = BlockUsed
	}
	return blocks
}

// blockSlabAt reinterprets the count bytes at the kernel-virtual address va
// as a Block slab in place: on real hardware this memory is only reachable
// through its physical address, and the whole point of the bump allocation
// in newBlocksForRegion is to claim it without copying. It is a seam (like
// zone.go's writeBytes) because that address is only valid once the
// kernel's direct map is live; tests substitute a backing Go slice instead.
var blockSlabAt = func(va mem.VirtAddr, count uint64) []Block {
	return unsafe.Slice((*Block)(unsafe.Pointer(uintptr(va))), count)
}

// SetBlockSlabForTest substitutes the routine that turns a bump-allocated
// kernel-virtual address into the zone's Block slab, returning a function
// that restores the previous one. Tests back the slab with a plain Go
// slice since the real address is only valid inside a booted kernel.
func SetBlockSlabForTest(f func(va mem.VirtAddr, count uint64) []Block) (restore func()) {
	prev := blockSlabAt
	blockSlabAt = f
	return func() { blockSlabAt = prev }
}

// Alloc reserves one free block of the given order, trying each zone in
// turn, and panics if every zone is exhausted: physical memory is a
// fixed resource, so out-of-memory at this layer is fatal and the
// layers above must size themselves against the memory map.
func (a *PhysAllocator) Alloc(order uint8) mem.PhysFrameRange {
	if uint(order) > MaxOrder {
		panic("pmm: alloc order exceeds MaxOrder")
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	for _, slot := range a.zones {
		slot.mu.Lock()
		rng, ok := slot.zone.Alloc(order)
		slot.mu.Unlock()
		if ok {
			return rng
		}
	}

	panic(fmt.Sprintf("pmm: out of memory (failed to fulfil order %d allocation)", order))
}

// Free releases a previously allocated range by locating its owning
// zone. It panics if no zone claims the range: freeing memory the PMM
// never handed out is a contract violation, not a runtime condition to
// recover from.
func (a *PhysAllocator) Free(r mem.PhysFrameRange) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	for _, slot := range a.zones {
		// Pages is immutable after NewZone, so the containment check
		// needs no zone lock; only the Free itself does.
		if !r.Within(slot.zone.Pages) {
			continue
		}
		slot.mu.Lock()
		slot.zone.Free(r)
		slot.mu.Unlock()
		return
	}

	panic(fmt.Sprintf("pmm: attempt to free range not managed by any zone: %+v", r))
}

// ZoneCount reports how many zones Init installed, mainly for tests and
// diagnostic printing.
func (a *PhysAllocator) ZoneCount() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.zones)
}
