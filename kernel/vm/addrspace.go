// Package vm holds the page-table-walker boundary this subsystem talks
// across but does not implement: mapping a physical frame into the
// kernel's address space, and flushing the TLB entry it creates. The
// real walker (page table allocation, recursive/4-level-paging
// handling) is explicitly out of scope; this package only carries the
// stub used to exercise kernel.Boot before a real walker exists.
package vm

import (
	"solstice/kernel/mem"
)

// AddressSpace, FrameAllocator, and FlushToken are the interfaces
// mem.AddressSpace/mem.FrameAllocator/mem.FlushToken already declare;
// re-exported here under the vm package name so callers outside mem can
// spell them the way biscuit's own vm package names things
// (biscuit/src/vm/as.go's Vm_t playing the same role, collapsed to an
// interface since the walker's internals are out of scope here).
type (
	AddressSpace   = mem.AddressSpace
	FrameAllocator = mem.FrameAllocator
	FlushToken     = mem.FlushToken
)

// IdentityAddressSpace is a minimal AddressSpace that treats every
// virtual address as already mapped to the identical physical address.
// It stands in for the bootloader's identity map during the earliest
// part of boot, before any real page tables exist, and is what
// kernel.Boot uses to satisfy the AddressSpace parameter it is handed
// ahead of a real walker being wired in.
type IdentityAddressSpace struct{}

// TranslateAddr reports va as already mapped to the physical address of
// the same numeric value.
func (IdentityAddressSpace) TranslateAddr(va mem.VirtAddr) (mem.PhysAddr, bool) {
	return mem.PhysAddr(va), true
}

// MapToWithAllocator is a no-op: the identity map already covers every
// address this subsystem touches during bootstrap, so there is nothing
// to install. It returns a flush token whose Flush does nothing, since
// no new translation was created.
func (IdentityAddressSpace) MapToWithAllocator(mem.VirtAddr, mem.PhysAddr, mem.PageFlags, mem.FrameAllocator) (mem.FlushToken, error) {
	return noopFlush{}, nil
}

type noopFlush struct{}

func (noopFlush) Flush() {}
