package pmm

import (
	"fmt"

	"solstice/kernel/mem"
	"solstice/kernel/util"
)

// debugPoisonByte is written into a freshly allocated block instead of
// zero when Debug is set, so that an uninitialised read shows up as
// visibly garbage data rather than a plausible-looking zero.
const debugPoisonByte = 0xB8

// Debug toggles poison-on-alloc. It is a package variable rather than a
// build tag so tests can exercise both paths.
var Debug = false

// Zone is one contiguous, power-of-two-capped physical range together
// with its buddy tree. OrderList[L] holds the Block slots for level L;
// level MaxOrder has ceil(NumPages / MaxOrderPages) entries (or 1 if the
// zone is smaller than a single MaxOrder block), each level below it
// twice the length of the level above.
type Zone struct {
	Pages     mem.PhysFrameRange
	NumPages  uint64
	OrderList [MaxOrder + 1][]Block
}

// NewZone constructs a Zone over [addr, addr+size) using blocks as the
// backing storage for its buddy tree. addr and size are assumed
// page-aligned; blocks must have length exactly BlocksInRegion(numPages)
// where numPages = size/PageSize, freshly zeroed (all-Used) memory.
func NewZone(addr mem.PhysAddr, size uint64, blocks []Block) *Zone {
	numPages := size / mem.PageSize

	z := &Zone{
		NumPages: numPages,
	}

	splitOrderList(z, numPages, blocks)
	fillInitial(z, numPages)

	start := mem.FrameContaining(addr)
	z.Pages = mem.PhysFrameRange{Start: start, End: start.Add(numPages)}

	return z
}

// splitOrderList slices the single contiguous blocks slab into the
// per-level slices, top-down from MaxOrder to 0, which keeps siblings
// adjacent at every level -- the property update_tree relies on when it
// computes the left sibling index as idx &^ 1.
func splitOrderList(z *Zone, numPages uint64, blocks []Block) {
	maxOrderBlocks := util.CeilDiv(numPages, uint64(MaxOrderPages))

	remaining := blocks
	for order := MaxOrder; order >= 0; order-- {
		blocksInLayer := maxOrderBlocks << uint(MaxOrder-order)
		if uint64(len(remaining)) < blocksInLayer {
			panic("pmm: block slab too small for zone")
		}
		z.OrderList[order] = remaining[:blocksInLayer]
		remaining = remaining[blocksInLayer:]
		if order == 0 {
			break
		}
	}
}

// fillInitial marks every order-0 slot covering a real page as free,
// then derives each level above from its children via ParentState, the
// same rule alloc and free maintain afterwards. Building bottom-up
// keeps the parent invariant true from the start for any zone size,
// including ones spanning several max-order blocks with a ragged tail,
// and makes the aggregate free set exactly [0, numPages): a partial
// tail block never reports a free order larger than the pages actually
// behind it.
func fillInitial(z *Zone, numPages uint64) {
	level0 := z.OrderList[0]
	for i := uint64(0); i < numPages; i++ {
		level0[i] = BlockFromOrder(0)
	}

	for order := 1; order <= MaxOrder; order++ {
		children := z.OrderList[order-1]
		list := z.OrderList[order]
		for i := range list {
			list[i] = ParentState(children[2*i], children[2*i+1])
		}
	}
}

// updateTree recomputes every ancestor of the slot at (startOrder, idx),
// walking from startOrder+1 up to MaxOrder.
func (z *Zone) updateTree(startOrder uint8, idx uint64) {
	for order := startOrder + 1; order <= MaxOrder; order++ {
		leftIdx := idx &^ 1
		left := z.OrderList[order-1][leftIdx]
		right := z.OrderList[order-1][leftIdx+1]
		z.OrderList[order][idx/2] = ParentState(left, right)
		idx /= 2
	}
}

// Alloc reserves one free block of the given order and returns its
// frame range. It returns (range, false) if the zone has no free block
// of that order.
func (z *Zone) Alloc(order uint8) (mem.PhysFrameRange, bool) {
	top := z.OrderList[MaxOrder]
	idx := -1
	for i, b := range top {
		if b.LargerThan(order) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return mem.PhysFrameRange{}, false
	}

	for cur := int(MaxOrder) - 1; cur >= int(order); cur-- {
		idx *= 2
		if z.OrderList[cur][idx].LargerThan(order) {
			// left child, idx already correct
		} else if z.OrderList[cur][idx+1].LargerThan(order) {
			idx++
		} else {
			panic("pmm: buddy tree invariant violated during descent")
		}
	}

	z.OrderList[order][idx] = BlockUsed
	z.updateTree(order, uint64(idx))

	start := z.Pages.Start.Add(uint64(idx) << order)
	end := start.Add(uint64(1) << order)
	rng := mem.PhysFrameRange{Start: start, End: end}

	zeroRange(start, uint64(1)<<order)

	return rng, true
}

// Free releases a previously allocated range, which must have been
// returned by Alloc and not yet freed. It panics if the range does not
// correspond to a currently Used slot at a valid order -- these are
// contract violations; PhysAllocator is responsible for routing each
// free to the zone that owns it.
func (z *Zone) Free(r mem.PhysFrameRange) {
	length := r.NumPages()
	order := util.Log2Floor(length)
	if order > MaxOrder {
		panic("pmm: free of range exceeding MaxOrder")
	}
	if !r.Within(z.Pages) {
		panic("pmm: free of range outside zone bounds")
	}

	idx := r.Start.Sub(z.Pages.Start) / length
	if !z.OrderList[order][idx].IsUsed() {
		panic("pmm: free of range not currently allocated")
	}

	z.OrderList[order][idx] = BlockFromOrder(uint8(order))
	z.updateTree(uint8(order), idx)
}

func zeroRange(start mem.PhysFrame, pages uint64) {
	pattern := byte(0x00)
	if Debug {
		pattern = debugPoisonByte
	}
	va := mem.PhysToKernelVirt(start.Addr())
	writeBytes(va, pattern, pages*mem.PageSize)
}

// writeBytes is overridden in tests, since there is no real kernel
// virtual-memory alias to write through outside a booted kernel.
var writeBytes = func(addr mem.VirtAddr, val byte, n uint64) {
	panic(fmt.Sprintf("pmm: no kernel address space mapped at %#x to zero %d bytes", addr, n))
}

// SetZeroWriterForTest substitutes the raw byte writer Alloc zeroes or
// poisons blocks through, returning a function that restores the
// previous one.
func SetZeroWriterForTest(w func(addr mem.VirtAddr, val byte, n uint64)) (restore func()) {
	prev := writeBytes
	writeBytes = w
	return func() { writeBytes = prev }
}
