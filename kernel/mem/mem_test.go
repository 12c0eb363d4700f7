package mem

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPhysAddrAlign(t *testing.T) {
	assert.EqualValues(t, 0x2000, PhysAddr(0x1001).AlignUp(0x1000))
	assert.EqualValues(t, 0x1000, PhysAddr(0x1fff).AlignDown(0x1000))
}

func TestFrameContainingAndArithmetic(t *testing.T) {
	f := FrameContaining(0x1abc)
	assert.EqualValues(t, 0x1000, f.Addr())

	g := f.Add(3)
	assert.EqualValues(t, 0x1000+3*PageSize, g.Addr())
	assert.EqualValues(t, 3, g.Sub(f))
}

func TestPhysFrameRangeWithin(t *testing.T) {
	outer := PhysFrameRange{Start: FrameContaining(0), End: FrameContaining(0).Add(10)}
	inner := PhysFrameRange{Start: FrameContaining(0).Add(2), End: FrameContaining(0).Add(5)}
	assert.True(t, inner.Within(outer))
	assert.False(t, outer.Within(inner))

	beyond := PhysFrameRange{Start: FrameContaining(0).Add(8), End: FrameContaining(0).Add(12)}
	assert.False(t, beyond.Within(outer))
}

func TestPhysFrameRangeNumPages(t *testing.T) {
	r := PhysFrameRange{Start: FrameContaining(0), End: FrameContaining(0).Add(7)}
	assert.EqualValues(t, 7, r.NumPages())
}

func TestPhysToPageInfoBijection(t *testing.T) {
	a := PhysToPageInfo(FrameContaining(0))
	b := PhysToPageInfo(FrameContaining(PageSize))
	assert.NotEqual(t, a, b)
	assert.EqualValues(t, SizeOfPageInfo, b-a)

	// Revisiting the same frame must yield the same slot.
	assert.Equal(t, a, PhysToPageInfo(FrameContaining(0)))
}

func TestPhysToKernelVirt(t *testing.T) {
	assert.Equal(t, PhysOffset+0x1234, PhysToKernelVirt(0x1234))
}
