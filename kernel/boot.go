package kernel

import (
	"fmt"

	"solstice/kernel/mem"
	"solstice/kernel/mem/pmm"
	"solstice/kernel/vm"
)

// Boot sequences the memory subsystem's bring-up: build the bump
// allocator over the firmware-reported map, materialise the PageInfo
// array through the supplied address space, then hand the map to the
// buddy allocator's Init. addrSpace is the kernel's page-table walker;
// during the earliest part of boot, before real page tables exist,
// vm.IdentityAddressSpace stands in for the bootloader's own mapping.
//
// Like Kmain in a hosted bring-up path, Boot does not expect any of
// these steps to fail in a working system; a failure here means the
// firmware handed the kernel a memory map it cannot work with, which is
// unrecoverable, so Boot panics on the first error rather than
// returning one.
func Boot(firmware []mem.MemoryRegion, addrSpace vm.AddressSpace) *pmm.PhysAllocator {
	for _, rg := range firmware {
		fmt.Printf("mem: region %#x-%#x (%v)\n", rg.Start, rg.End, rg.Type)
	}

	mm, err := mem.NewMemoryMap(firmware, mem.ZeroIdentity)
	if err != nil {
		panic(&Error{Module: "mem", Message: err.Error()})
	}
	fmt.Printf("mem: %v pages available (%vMB)\n", mm.NumPages, mm.NumPages>>8)

	if err := mem.MaterializePageInfo(mm, addrSpace); err != nil {
		panic(&Error{Module: "mem", Message: err.Error()})
	}

	// The PageInfo mappings were the last consumers of the bootloader's
	// identity map; from here on every frame is reachable through the
	// kernel's own direct map.
	mm.SetZeroMode(mem.ZeroPhysOffset)

	allocator := pmm.NewPhysAllocator()
	if err := allocator.Init(mm); err != nil {
		panic(&Error{Module: "pmm", Message: err.Error()})
	}
	fmt.Printf("pmm: %v zones online\n", allocator.ZoneCount())

	return allocator
}
