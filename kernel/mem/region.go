package mem

// Region is a physically contiguous, not necessarily aligned, span of
// RAM: {addr, size}.
type Region struct {
	Addr PhysAddr
	Size uint64
}

// SplitAt splits r into a prefix of length off and a suffix holding the
// remainder. It panics if off >= r.Size: callers only ever split at an
// offset they themselves computed from r.Size, so a violation here is a
// programmer error, not a runtime condition to recover from.
func (r Region) SplitAt(off uint64) (prefix, suffix Region) {
	if off >= r.Size {
		panic("mem: Region.SplitAt offset out of range")
	}
	prefix = Region{Addr: r.Addr, Size: off}
	suffix = Region{Addr: r.Addr + PhysAddr(off), Size: r.Size - off}
	return prefix, suffix
}

// RegionBumpAllocator is an aligned bump cursor over one Region. It is
// created from a single Region, consumed during one bootstrap phase
// (carving the per-zone Block slab out of a region's reserved prefix),
// and then dropped. Bump allocators never free.
type RegionBumpAllocator struct {
	start  PhysAddr
	size   uint64
	offset uint64
}

// NewRegionBumpAllocator returns a bump allocator over r.
func NewRegionBumpAllocator(r Region) *RegionBumpAllocator {
	return &RegionBumpAllocator{start: r.Addr, size: r.Size}
}

// Alloc reserves size bytes aligned to align from the region and
// returns the kernel-virtual pointer to it (the region's physical
// address, offset into the region, plus PhysOffset). It reports false
// if the advanced cursor would exceed the region's size.
//
// The new cursor is align_up(offset+size, align) -- re-aligned on every
// call, not just the returned address, so that repeated allocations of
// differently aligned types compose without the caller tracking
// padding.
func (b *RegionBumpAllocator) Alloc(size, align uint64) (VirtAddr, bool) {
	alignedStart := alignUp64(b.offset, align)
	newOffset := alignUp64(b.offset+size, align)
	if newOffset > b.size {
		return 0, false
	}
	ptr := VirtAddr(b.start) + VirtAddr(alignedStart) + PhysOffset
	b.offset = newOffset
	return ptr, true
}

func alignUp64(v, align uint64) uint64 {
	return (v + align - 1) &^ (align - 1)
}
