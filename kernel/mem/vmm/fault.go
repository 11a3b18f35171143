package vmm

import (
	"github.com/Jithub-4pf/NanOS/kernel/kfmt"
	"github.com/Jithub-4pf/NanOS/kernel/mem"
)

// FaultOutcome reports what HandleFault decided to do, so the caller (the
// IRQ dispatcher) knows whether to resume the faulting task or halt.
type FaultOutcome int

const (
	// FaultResolved means a frame was mapped in and execution may resume.
	FaultResolved FaultOutcome = iota
	// FaultFatal means the fault was outside the dynamic region.
	FaultFatal
)

// HandleFault implements the page-fault policy from spec.md §4.B: faults at
// or above DynamicBase are resolved by allocating a fresh frame and mapping
// it in; every other fault is fatal. alloc and allocTable back the frame and
// leaf-table allocations respectively; both must remain usable with
// interrupts disabled, since this runs in IRQ context.
func HandleFault(dir *PageDirectory, faultAddr uintptr, errCode uint32, alloc FrameAllocFunc, allocTable TableAllocFunc) FaultOutcome {
	if faultAddr < DynamicBase {
		kfmt.Printf("[vmm] fatal page fault at 0x%x, error code 0x%x\n", faultAddr, errCode)
		return FaultFatal
	}

	phys, err := alloc()
	if err != nil {
		kfmt.Printf("[vmm] out of memory servicing dynamic page fault at 0x%x\n", faultAddr)
		return FaultFatal
	}

	page := faultAddr &^ uintptr(mem.PageSize-1)
	if mapErr := Map(dir, page, phys, FlagPresent|FlagWritable, allocTable); mapErr != nil {
		kfmt.Printf("[vmm] failed to map dynamic page at 0x%x: %s\n", faultAddr, mapErr.Error())
		return FaultFatal
	}

	return FaultResolved
}
