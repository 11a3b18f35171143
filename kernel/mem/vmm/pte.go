package vmm

import (
	"unsafe"

	"github.com/Jithub-4pf/NanOS/kernel/cpu"
)

// tableAddr returns the physical address of a leaf table. Page tables are
// always allocated out of identity-mapped kernel memory, so the virtual
// address the Go heap hands back doubles as the physical address.
func tableAddr(t *PageTable) uintptr {
	return uintptr(unsafe.Pointer(t))
}

// tableFromEntry recovers the *PageTable pointer encoded in a directory
// entry, masking off the flag bits.
func tableFromEntry(entry uint32) *PageTable {
	return (*PageTable)(unsafe.Pointer(uintptr(entry) & uintptr(addrMask)))
}

// invalidateTLBEntryFn is swapped out by tests so that exercising Map/
// IdentityMap/HandleFault on a hosted test binary never issues the
// privileged `invlpg` instruction the real implementation requires ring 0
// for; production code never reassigns it.
var invalidateTLBEntryFn = cpu.FlushTLBEntry

// InvalidateTLBEntry flushes the single TLB entry for virtual address v via
// the `invlpg` instruction.
func InvalidateTLBEntry(v uintptr) {
	invalidateTLBEntryFn(v)
}
