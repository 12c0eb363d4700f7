package kernel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solstice/kernel/mem"
	"solstice/kernel/mem/pmm"
	"solstice/kernel/vm"
)

// withMemorySinks installs sinks for every seam that would otherwise
// need a live kernel address space, so the whole bring-up path can run
// hosted.
func withMemorySinks(t *testing.T) {
	t.Helper()
	t.Cleanup(mem.SetFrameWriterForTest(func(mem.VirtAddr, byte, uint64) {}))
	t.Cleanup(mem.SetPageInfoWriterForTest(func(mem.VirtAddr, mem.PageInfo) {}))
	t.Cleanup(pmm.SetBlockSlabForTest(func(va mem.VirtAddr, count uint64) []pmm.Block {
		return make([]pmm.Block, count)
	}))
	t.Cleanup(pmm.SetZeroWriterForTest(func(mem.VirtAddr, byte, uint64) {}))
}

func TestBootBringsUpAllocator(t *testing.T) {
	withMemorySinks(t)

	firmware := []mem.MemoryRegion{
		{Start: 0, End: 0x2000000, Type: mem.RegionUsable},
		{Start: 0x2000000, End: 0x2100000, Type: mem.RegionReserved},
		{Start: 0x2100000, End: 0x4100000, Type: mem.RegionBootloader},
	}

	allocator := Boot(firmware, vm.IdentityAddressSpace{})
	require.NotNil(t, allocator)
	assert.Equal(t, 2, allocator.ZoneCount())

	r := allocator.Alloc(0)
	assert.EqualValues(t, 1, r.NumPages())
	allocator.Free(r)
}

func TestBootPanicsOnFirmwareMapWithNoUsableMemory(t *testing.T) {
	firmware := []mem.MemoryRegion{
		{Start: 0, End: 0x1000, Type: mem.RegionReserved},
		{Start: 0x1000, End: 0x2000, Type: mem.RegionKernel},
	}

	want := &Error{Module: "mem", Message: mem.ErrNoUsableMemory.Error()}
	assert.PanicsWithError(t, want.Error(), func() {
		Boot(firmware, vm.IdentityAddressSpace{})
	})
}
