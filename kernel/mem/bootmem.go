package mem

import (
	"errors"
	"fmt"
)

// PageFlags mirrors the page-table entry flags this subsystem asks the
// address-space collaborator to apply when mapping a PageInfo page.
type PageFlags uint8

const (
	PagePresent PageFlags = 1 << iota
	PageWritable
	PageGlobal
)

// FlushToken invalidates the TLB entry created by a mapping once its
// caller is done installing it.
type FlushToken interface {
	Flush()
}

// FrameAllocator is the single capability MapToWithAllocator needs: a
// source of fresh physical frames for the intermediate page-table levels
// it may need to allocate. *MemoryMap satisfies this interface, which is
// how the bump allocator gets threaded through the page-table walker
// during PageInfo bootstrap.
type FrameAllocator interface {
	AllocateFrame() (PhysAddr, bool)
}

// AddressSpace is the page-table-walker collaborator this subsystem
// requires but does not implement: something that can report whether a
// virtual address is already mapped, and that can
// map a physical frame into the kernel half of the address space with
// the requested flags, returning a token to flush the TLB once the
// mapping is installed. Defined here (the consumer) rather than in a
// separate vm package precisely so any walker implementation anywhere
// satisfies it structurally, with no import back into this package.
type AddressSpace interface {
	TranslateAddr(VirtAddr) (PhysAddr, bool)
	MapToWithAllocator(va VirtAddr, pa PhysAddr, flags PageFlags, fa FrameAllocator) (FlushToken, error)
}

// ZeroMode selects how AllocateFrame reaches a freshly returned frame
// to zero it. Before the kernel's own address space is live, only the
// bootloader-provided identity map can be used; once it is live the
// PhysOffset direct-map alias is used instead. The switch is an
// explicit phase transition (SetZeroMode) rather than something
// inferred from a build tag.
type ZeroMode uint8

const (
	ZeroIdentity ZeroMode = iota
	ZeroPhysOffset
)

// MemoryMap is the bump frame allocator used to bootstrap the kernel
// before the buddy allocator exists: an ordered sequence of Regions
// (bounded at MaxRegions) plus a running page count. It is built once
// from the firmware memory map and mutated only by AllocateFrame, which
// trims or removes the head of a region.
type MemoryMap struct {
	regions  []Region
	NumPages uint64

	zeroMode ZeroMode
	debug    bool
}

// NewMemoryMap filters firmware down to its Usable/Bootloader entries,
// bounding the result at MaxRegions, and returns a bump allocator ready
// to hand out frames. mode controls how AllocateFrame reaches a frame to
// zero it: kernel.Boot passes ZeroIdentity while only the bootloader's
// identity map is live, then switches to ZeroPhysOffset once the
// kernel's own direct map takes over.
func NewMemoryMap(firmware []MemoryRegion, mode ZeroMode) (*MemoryMap, error) {
	mm := &MemoryMap{zeroMode: mode}

	for _, fw := range firmware {
		if !fw.usable() {
			continue
		}
		if len(mm.regions) >= MaxRegions {
			return nil, ErrTooManyRegions
		}
		mm.push(Region{Addr: fw.Start, Size: fw.Len()})
	}

	if len(mm.regions) == 0 {
		return nil, ErrNoUsableMemory
	}

	return mm, nil
}

// ErrNoUsableMemory and ErrTooManyRegions are the two construction-time
// failures NewMemoryMap can report; kernel.Boot wraps them as a
// *kernel.Error tagged with the "mem" module before propagating them.
var (
	ErrNoUsableMemory = errors.New("no usable physical memory regions in firmware map")
	ErrTooManyRegions = errors.New("firmware memory map exceeds MaxRegions")
)

func (mm *MemoryMap) push(r Region) {
	mm.NumPages += r.Size / PageSize
	mm.regions = append(mm.regions, r)
}

// AllocateFrame scans for the first region with at least one page,
// returns its head page, shrinks or removes the region, and zeroes (or,
// in debug builds, poisons) the returned page before handing it back.
// It satisfies FrameAllocator.
func (mm *MemoryMap) AllocateFrame() (PhysAddr, bool) {
	for i := range mm.regions {
		rg := &mm.regions[i]
		if rg.Size < PageSize {
			continue
		}

		out := rg.Addr
		rg.Addr += PageSize
		rg.Size -= PageSize
		mm.NumPages--

		if rg.Size == 0 {
			mm.regions = append(mm.regions[:i], mm.regions[i+1:]...)
		}

		zeroFrame(out, PageSize, mm.zeroMode, mm.debug)
		return out, true
	}
	return 0, false
}

// SetDebug toggles 0xB8 poisoning instead of zeroing, so debug kernels
// surface uninitialised reads as visible garbage.
func (mm *MemoryMap) SetDebug(debug bool) {
	mm.debug = debug
}

// SetZeroMode switches how AllocateFrame reaches a frame to zero it.
// Called once, by the bring-up path, at the moment the kernel's own
// direct map supersedes the bootloader's identity mapping.
func (mm *MemoryMap) SetZeroMode(mode ZeroMode) {
	mm.zeroMode = mode
}

// Regions returns a snapshot iterator that pops the head region on each
// call to Next. PhysAllocator.Init consumes one to build its zones;
// MaterializePageInfo consumes another to walk every frame the map
// covers.
func (mm *MemoryMap) Regions() *RegionIter {
	// The iterator works on its own copy: AllocateFrame trims and
	// removes regions in place, and MaterializePageInfo allocates while
	// an iteration is in flight.
	snapshot := make([]Region, len(mm.regions))
	copy(snapshot, mm.regions)
	return &RegionIter{regions: snapshot}
}

// RegionIter pops regions off the front of a MemoryMap's region list.
type RegionIter struct {
	regions []Region
}

// Next returns the next region and true, or the zero Region and false
// once exhausted.
func (it *RegionIter) Next() (Region, bool) {
	if len(it.regions) == 0 {
		return Region{}, false
	}
	r := it.regions[0]
	it.regions = it.regions[1:]
	return r, true
}

func zeroFrame(addr PhysAddr, n uint64, mode ZeroMode, poison bool) {
	var va VirtAddr
	switch mode {
	case ZeroIdentity:
		va = VirtAddr(addr)
	default:
		va = PhysToKernelVirt(addr)
	}
	pattern := byte(0x00)
	if poison {
		pattern = debugPoisonByte
	}
	// The actual write goes through memoryMapWriteBytes so tests can
	// substitute a backing buffer; production wiring installs a writer
	// that goes through the real identity/direct map.
	memoryMapWriteBytes(va, pattern, n)
}

// debugPoisonByte matches pmm.Debug's poison pattern: written instead of
// zero so an uninitialised read surfaces as visible garbage.
const debugPoisonByte = 0xB8

var memoryMapWriteBytes = func(addr VirtAddr, val byte, n uint64) {
	panic(fmt.Sprintf("mem: no address space mapped at %#x to zero %d bytes", addr, n))
}

// SetFrameWriterForTest substitutes the raw byte writer AllocateFrame
// zeroes frames through, returning a function that restores the
// previous one. Tests in other packages (the bring-up path) have no
// address space to write through and install a sink instead.
func SetFrameWriterForTest(w func(addr VirtAddr, val byte, n uint64)) (restore func()) {
	prev := memoryMapWriteBytes
	memoryMapWriteBytes = w
	return func() { memoryMapWriteBytes = prev }
}
