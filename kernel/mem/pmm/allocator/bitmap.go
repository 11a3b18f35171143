// Package allocator implements the physical frame allocator: a single
// bit-per-frame bitmap over a contiguous physical range.
package allocator

import (
	"github.com/Jithub-4pf/NanOS/kernel"
	"github.com/Jithub-4pf/NanOS/kernel/mem"
	"github.com/Jithub-4pf/NanOS/kernel/mem/pmm"
)

// MaxPhysBytes caps the range the allocator will ever manage, mirroring the
// original core's fixed ceiling; there is no hard technical reason beyond
// keeping the bitmap itself bounded in size.
const MaxPhysBytes = 32 * mem.Mb

// PhysStart is fixed at 1 MiB, the conventional load address for a Multiboot
// kernel image; everything below it (real-mode IVT, BIOS data area, video
// memory) is never handed out.
const PhysStart uintptr = 0x100000

var (
	errOutOfMemory = &kernel.Error{Module: "pmm", Message: "out of physical memory"}
)

// BitmapAllocator owns a bit-per-frame bitmap over [start, end). A clear bit
// means the frame is free.
type BitmapAllocator struct {
	start, end uintptr
	bitmap     []byte
	totalPages uint32
	freePages  uint32

	// warn receives double-free/out-of-range notices instead of a direct
	// console write, so tests can observe them without a real console.
	warn func(format string, args ...interface{})
}

// Init lays the allocator out over [PhysStart, PhysStart+min(totalBytes,
// MaxPhysBytes)), places the bitmap immediately after kernelEnd (rounded up
// to a page), and marks the kernel image and the bitmap itself as used.
// bitmapBacking must point at zeroed memory at least BitmapBytes(totalBytes)
// long; callers obtain it from the boot-time arena before this allocator (or
// the heap it will back) exists.
func (a *BitmapAllocator) Init(totalBytes mem.Size, kernelStart, kernelEnd uintptr, bitmapBacking []byte) *kernel.Error {
	if totalBytes > MaxPhysBytes {
		totalBytes = MaxPhysBytes
	}

	a.start = PhysStart
	a.end = PhysStart + uintptr(totalBytes)
	a.totalPages = uint32((a.end - a.start) / mem.PageSize)

	need := bitmapBytes(a.totalPages)
	if len(bitmapBacking) < int(need) {
		return &kernel.Error{Module: "pmm", Message: "bitmap backing buffer too small"}
	}
	a.bitmap = bitmapBacking[:need]
	for i := range a.bitmap {
		a.bitmap[i] = 0
	}
	a.freePages = a.totalPages

	bitmapStart := pageRoundUp(kernelEnd)
	a.markUsed(kernelStart, pageRoundUp(kernelEnd))
	a.markUsed(bitmapStart, bitmapStart+uintptr(need))

	return nil
}

// BitmapBytes returns how many bytes of backing storage Init needs for a
// range of the given size, so callers can size the arena before calling
// Init.
func BitmapBytes(totalBytes mem.Size) mem.Size {
	if totalBytes > MaxPhysBytes {
		totalBytes = MaxPhysBytes
	}
	pages := uint32(totalBytes / mem.PageSize)
	return mem.Size(bitmapBytes(pages))
}

func bitmapBytes(pages uint32) uint32 {
	return (pages + 7) / 8
}

func pageRoundUp(addr uintptr) uintptr {
	return (addr + mem.PageSize - 1) &^ (mem.PageSize - 1)
}

func (a *BitmapAllocator) index(addr uintptr) uint32 {
	return uint32((addr - a.start) / mem.PageSize)
}

func (a *BitmapAllocator) testBit(idx uint32) bool {
	return a.bitmap[idx/8]&(1<<(idx%8)) != 0
}

func (a *BitmapAllocator) setBit(idx uint32) {
	a.bitmap[idx/8] |= 1 << (idx % 8)
}

func (a *BitmapAllocator) clearBit(idx uint32) {
	a.bitmap[idx/8] &^= 1 << (idx % 8)
}

// markUsed marks every page overlapping [start, end) as used, clamped to the
// managed range. Used both by Init (kernel image, bitmap) and ReserveRegion.
func (a *BitmapAllocator) markUsed(start, end uintptr) {
	if start < a.start {
		start = a.start
	}
	if end > a.end {
		end = a.end
	}
	if start >= end {
		return
	}
	startIdx := a.index(start)
	endIdx := a.index(pageRoundUp(end))
	for i := startIdx; i < endIdx; i++ {
		if !a.testBit(i) {
			a.setBit(i)
			a.freePages--
		}
	}
}

// ReserveRegion marks an arbitrary physical span as used, for callers (such
// as the boot memory-map walker) that discover reserved spans after Init.
func (a *BitmapAllocator) ReserveRegion(start, end uintptr) {
	a.markUsed(start, end)
}

// AllocPage scans the bitmap first-fit and returns the physical address of a
// free page, or errOutOfMemory if none remain. First-fit is acceptable here:
// fragmentation at page granularity has no cost this core cares about.
func (a *BitmapAllocator) AllocPage() (uintptr, *kernel.Error) {
	for i := uint32(0); i < a.totalPages; i++ {
		if !a.testBit(i) {
			a.setBit(i)
			a.freePages--
			return a.start + uintptr(i)*mem.PageSize, nil
		}
	}
	if a.warn != nil {
		a.warn("[pmm] out of physical memory\n")
	}
	return 0, errOutOfMemory
}

// FreePage releases a previously allocated page. A double-free or an address
// outside the managed range is logged and otherwise ignored, never panics:
// the allocator's correctness must not depend on caller discipline.
func (a *BitmapAllocator) FreePage(addr uintptr) {
	if addr < a.start || addr >= a.end || addr%mem.PageSize != 0 {
		if a.warn != nil {
			a.warn("[pmm] attempt to free invalid address: 0x%x\n", addr)
		}
		return
	}
	idx := a.index(addr)
	if !a.testBit(idx) {
		if a.warn != nil {
			a.warn("[pmm] double free or already-free page: 0x%x\n", addr)
		}
		return
	}
	a.clearBit(idx)
	a.freePages++
}

// SetWarnFunc installs the sink used for double-free/out-of-range/OOM
// notices. Call this before Init in production; tests may substitute their
// own collector.
func (a *BitmapAllocator) SetWarnFunc(fn func(format string, args ...interface{})) {
	a.warn = fn
}

// Stats reports the frame counts; FreeCount is always equal to the number of
// clear bits in the bitmap (the invariant exercised by the unit tests).
func (a *BitmapAllocator) Stats() (total, free uint32) {
	return a.totalPages, a.freePages
}

// Range returns the managed physical address span.
func (a *BitmapAllocator) Range() (start, end uintptr) {
	return a.start, a.end
}

// frameOf converts a physical address to a pmm.Frame, used by callers that
// bridge this allocator to the vmm.FrameSource interface.
func frameOf(addr uintptr) pmm.Frame {
	return pmm.Frame(addr >> mem.PageShift)
}

// AllocFrame is the pmm.Frame-typed equivalent of AllocPage, used to satisfy
// the vmm package's frame-source function signature.
func (a *BitmapAllocator) AllocFrame() (pmm.Frame, *kernel.Error) {
	addr, err := a.AllocPage()
	if err != nil {
		return pmm.InvalidFrame, err
	}
	return frameOf(addr), nil
}

// FreeFrame is the pmm.Frame-typed equivalent of FreePage.
func (a *BitmapAllocator) FreeFrame(f pmm.Frame) {
	a.FreePage(f.Address())
}
