// Package mem defines the physical/virtual addressing vocabulary shared
// by the bump bootstrap allocator and the buddy allocator, together with
// the per-page metadata record the rest of the kernel hangs off of.
package mem

import "solstice/kernel/util"

// PageShift is the base-2 exponent of the page size.
const PageShift = 12

// PageSize is the size of a single page in bytes.
const PageSize = 1 << PageShift

// PageOffsetMask masks the in-page offset bits of an address.
const PageOffsetMask PhysAddr = PageSize - 1

// MaxOrder is the largest buddy order the allocator hands out: a block
// of 2^MaxOrder pages (2048 pages, 8 MiB at a 4 KiB page size).
const MaxOrder = 11

// MaxOrderPages is the number of pages in a single MaxOrder block.
const MaxOrderPages = 1 << MaxOrder

// MaxZones bounds the number of physical zones the allocator manages.
const MaxZones = 64

// MaxRegions bounds the number of regions a MemoryMap can track.
const MaxRegions = 64

// PhysOffset is the fixed kernel-virtual base such that phys+PhysOffset
// is a valid readable/writable alias for any physical address, once the
// kernel's own address space is live. Chosen to sit well above any
// userspace or recursive-mapping slot; the exact value is a property of
// the paging layout this subsystem treats as an external collaborator.
const PhysOffset VirtAddr = 0xffff_8000_0000_0000

// PhysAddr is a 64-bit physical address.
type PhysAddr uint64

// VirtAddr is a 64-bit virtual address.
type VirtAddr uint64

// AlignUp rounds a up to the next multiple of align, which must be a
// power of two.
func (a PhysAddr) AlignUp(align PhysAddr) PhysAddr {
	return util.AlignUp(a, align)
}

// AlignDown rounds a down to the previous multiple of align, which must
// be a power of two.
func (a PhysAddr) AlignDown(align PhysAddr) PhysAddr {
	return util.AlignDown(a, align)
}

// PhysFrame is a page-aligned physical address tagged with the 4 KiB
// page size (the only size that appears in this subsystem).
type PhysFrame struct {
	addr PhysAddr
}

// FrameContaining returns the page-aligned frame containing addr.
func FrameContaining(addr PhysAddr) PhysFrame {
	return PhysFrame{addr: addr.AlignDown(PageSize)}
}

// Addr returns the frame's physical address.
func (f PhysFrame) Addr() PhysAddr { return f.addr }

// Add returns the frame n pages after f.
func (f PhysFrame) Add(n uint64) PhysFrame {
	return PhysFrame{addr: f.addr + PhysAddr(n)*PageSize}
}

// Sub returns the number of pages between f and g (f - g).
func (f PhysFrame) Sub(g PhysFrame) uint64 {
	return uint64(f.addr-g.addr) / PageSize
}

// PhysFrameRange is a half-open [Start, End) range of page-aligned
// frames.
type PhysFrameRange struct {
	Start PhysFrame
	End   PhysFrame
}

// NumPages returns the number of pages covered by r.
func (r PhysFrameRange) NumPages() uint64 {
	return r.End.Sub(r.Start)
}

// Within reports whether r is entirely contained in outer.
func (r PhysFrameRange) Within(outer PhysFrameRange) bool {
	return outer.Start.addr <= r.Start.addr && outer.End.addr >= r.End.addr
}

// PageInfo is the per-physical-frame metadata record. Every addressed
// slot must be backed by mapped, zero-initialised memory before the
// PMM is activated; PhysToPageInfo below is the bijection from frame
// to PageInfo virtual address that the bootstrap (MaterializePageInfo in
// mem/pageinfo.go) uses to materialise that backing memory.
type PageInfo struct {
	// RefCount tracks outstanding references to the frame. Owned by
	// layers above the PMM (slab/VMM); the PMM itself only ever writes
	// the zero value during bootstrap.
	RefCount int32
	// Flags carries page-cache/slab bookkeeping bits owned by layers
	// above the PMM.
	Flags uint32
}

// SizeOfPageInfo is the fixed per-page bookkeeping overhead each usable
// page costs; pmm's sizing math charges it against a region's reserved
// prefix.
const SizeOfPageInfo = 8 // unsafe.Sizeof(PageInfo{})

// pageInfoBase is the virtual base address of the PageInfo array. Every
// physical frame maps to exactly one slot via PhysToPageInfo.
const pageInfoBase VirtAddr = 0xffff_a000_0000_0000

// PhysToPageInfo returns the virtual address of the PageInfo slot that
// describes frame. The mapping is a dense array indexed by frame number,
// so any physical frame in the system has a slot, whether or not that
// slot has been mapped yet.
func PhysToPageInfo(frame PhysFrame) VirtAddr {
	idx := VirtAddr(frame.addr) >> PageShift
	return pageInfoBase + idx*SizeOfPageInfo
}

// PhysToKernelVirt returns the kernel-half virtual alias of a physical
// address, valid once the direct map described by PhysOffset is live.
func PhysToKernelVirt(p PhysAddr) VirtAddr {
	return VirtAddr(p) + PhysOffset
}
