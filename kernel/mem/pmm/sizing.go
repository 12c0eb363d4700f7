package pmm

import (
	"solstice/kernel/mem"
	"solstice/kernel/util"
)

// BlocksInRegion returns the number of Block bytes a region's buddy tree
// needs to describe pages usable pages: the geometric series
// maxOrderBlocks * (1 + 2 + 4 + ... + 2^MaxOrder), i.e.
// maxOrderBlocks * (2^(MaxOrder+1) - 1).
func BlocksInRegion(pages uint64) uint64 {
	maxOrderBlocks := util.CeilDiv(pages, uint64(MaxOrderPages))
	return maxOrderBlocks * (uint64(1)<<(MaxOrder+1) - 1)
}

// UsablePages returns a page count N <= total such that N pages of
// PageInfo overhead (mem.SizeOfPageInfo bytes each) plus the Block
// bookkeeping for the region fit inside the reserved (total-N) pages.
//
// The closed form below conservatively uses BlocksInRegion(total) rather
// than BlocksInRegion(N) to keep the equation linear in N; this slightly
// over-reserves bookkeeping space, trading a handful of pages per region
// for a solution that does not require iterating to a fixed point. The
// trailing -2 absorbs alignment padding inside the reserved prefix.
//
// For T small enough that the bookkeeping itself wouldn't fit in T pages
// at all, the closed form's subtraction and trailing -2 would underflow
// uint64 arithmetic; both are guarded here to saturate at 0 instead, which
// PhysAllocator.Init's own usable<=1 check then skips as too small to host
// a zone, rather than this function returning a wrapped, enormous value.
func UsablePages(total uint64) uint64 {
	blocks := BlocksInRegion(total)
	available := uint64(mem.PageSize) * total
	if available < blocks {
		return 0
	}
	denom := uint64(mem.SizeOfPageInfo) + uint64(mem.PageSize)
	quotient := (available - blocks) / denom
	if quotient < 2 {
		return 0
	}
	return quotient - 2
}
