package mem

import "fmt"

// MaterializePageInfo walks every physical frame mm's regions describe
// and ensures its PageInfo slot is backed by mapped, zero-initialised
// memory. For each frame it computes the slot's virtual address with
// PhysToPageInfo; if that address already translates (the slot shares a
// PageInfo page with a frame already visited), the existing page is
// overwritten with a default PageInfo, otherwise a fresh frame is drawn
// from mm itself, mapped Present|Writable|Global through as, flushed,
// and then written.
//
// This runs after NewMemoryMap, not inside it: AllocateFrame must stay
// unaware of PageInfo, so the frame backing a PageInfo page is never
// blocked on the PageInfo array needing a frame to describe itself.
// Every frame AllocateFrame hands out is zeroed before use, which is
// what makes allocate-before-map safe here.
func MaterializePageInfo(mm *MemoryMap, as AddressSpace) error {
	regions := mm.Regions()

	for {
		rg, ok := regions.Next()
		if !ok {
			break
		}
		pages := rg.Size / PageSize
		for i := uint64(0); i < pages; i++ {
			frame := FrameContaining(rg.Addr + PhysAddr(i*PageSize))
			va := PhysToPageInfo(frame)

			// A real AddressSpace reports this at page granularity, so
			// this also catches the common case where several frames'
			// PageInfo slots share one already-mapped page.
			if _, ok := as.TranslateAddr(va); ok {
				writePageInfo(va, PageInfo{})
				continue
			}

			pa, ok := mm.AllocateFrame()
			if !ok {
				return fmt.Errorf("mem: out of bump frames materialising PageInfo for frame %#x", frame.Addr())
			}
			flush, err := as.MapToWithAllocator(va, pa, PagePresent|PageWritable|PageGlobal, mm)
			if err != nil {
				return fmt.Errorf("mem: mapping PageInfo slot for frame %#x: %w", frame.Addr(), err)
			}
			flush.Flush()

			writePageInfo(va, PageInfo{})
		}
	}

	return nil
}

// writePageInfo is overridden in tests, since there is no real kernel
// address space to write a PageInfo value through outside a booted kernel.
var writePageInfo = func(addr VirtAddr, info PageInfo) {
	panic(fmt.Sprintf("mem: no address space mapped at %#x to write PageInfo", addr))
}

// SetPageInfoWriterForTest substitutes the PageInfo slot writer
// MaterializePageInfo uses, returning a function that restores the
// previous one.
func SetPageInfoWriterForTest(w func(addr VirtAddr, info PageInfo)) (restore func()) {
	prev := writePageInfo
	writePageInfo = w
	return func() { writePageInfo = prev }
}
