package pmm

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"solstice/kernel/mem"
)

func TestBlocksInRegionGeometricSeries(t *testing.T) {
	// a single max-order block: maxOrderBlocks=1, series sums to 2^12-1.
	assert.EqualValues(t, 1<<(MaxOrder+1)-1, BlocksInRegion(MaxOrderPages))
	// half a max-order block still needs a full max-order-block's worth
	// of bookkeeping, since maxOrderBlocks rounds up.
	assert.EqualValues(t, 1<<(MaxOrder+1)-1, BlocksInRegion(MaxOrderPages/2))
	assert.EqualValues(t, 2*(1<<(MaxOrder+1)-1), BlocksInRegion(MaxOrderPages+1))
}

// The bookkeeping for a region must always fit inside its reserved
// prefix: UsablePages(T)*SizeOfPageInfo + BlocksInRegion(T) <= (T -
// UsablePages(T)) * PageSize. The smallest size checked, 4 pages, is one
// where UsablePages saturates at 0 (PhysAllocator.Init skips such a
// region); the bound must hold there too.
func TestSizingClosure(t *testing.T) {
	for _, total := range []uint64{4, 10, 100, 1000, 1 << 16, 1 << 20} {
		usable := UsablePages(total)
		lhs := usable*mem.SizeOfPageInfo + BlocksInRegion(total)
		rhs := (total - usable) * mem.PageSize
		assert.LessOrEqualf(t, lhs, rhs, "total=%d usable=%d", total, usable)
		assert.Lessf(t, usable, total, "usable pages must leave room for bookkeeping, total=%d", total)
	}
}

func TestUsablePagesMonotonicInTotal(t *testing.T) {
	prev := UsablePages(4)
	for total := uint64(8); total <= 1<<16; total *= 2 {
		cur := UsablePages(total)
		assert.GreaterOrEqualf(t, cur, prev, "usable_pages must not decrease as total grows: total=%d", total)
		prev = cur
	}
}
