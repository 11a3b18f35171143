// Package vmm implements the two-level x86 paging map: a root page
// directory of 1024 entries, each optionally pointing at a leaf page table
// of 1024 entries, each mapping a 4 KiB page to a physical frame.
package vmm

import (
	"github.com/Jithub-4pf/NanOS/kernel"
	"github.com/Jithub-4pf/NanOS/kernel/mem"
)

// Flag bits for a page directory/table entry, matching the hardware layout.
type Flag uint32

const (
	FlagPresent Flag = 1 << 0
	FlagWritable Flag = 1 << 1
	FlagUser     Flag = 1 << 2
)

const (
	entriesPerTable = 1024
	addrMask        = ^uintptr(mem.PageSize - 1)
)

// DynamicBase is the virtual address at and above which page faults are
// resolved lazily by mapping a freshly allocated frame, rather than being
// treated as fatal.
const DynamicBase uintptr = 0xC0000000

// PageTable is a leaf table: 1024 entries, each a physical frame address
// (page aligned) ORed with its flag bits.
type PageTable struct {
	Entries [entriesPerTable]uint32
}

// PageDirectory is the root table: 1024 entries, each either absent or
// pointing at the physical address of a PageTable.
type PageDirectory struct {
	Entries [entriesPerTable]uint32
}

// FrameAllocFunc allocates a single physical page, used for lazily-faulted-in
// dynamic pages; leaf tables come from a TableAllocFunc instead.
type FrameAllocFunc func() (uintptr, *kernel.Error)

// TableAllocFunc allocates zeroed, page-aligned memory for a new leaf page
// table. In this core that memory comes from the kernel heap (component C),
// which must stay usable with interrupts disabled since the fault handler
// calls this from IRQ context.
type TableAllocFunc func() (*PageTable, *kernel.Error)

// Map installs (or overwrites) a single mapping from virtual page v to
// physical frame p with the given flags, allocating a leaf table via
// allocTable if one is not already present at this directory index, and
// invalidating the TLB entry for v.
func Map(dir *PageDirectory, v, p uintptr, flags Flag, allocTable TableAllocFunc) *kernel.Error {
	dirIdx := (v >> 22) & 0x3FF
	tblIdx := (v >> 12) & 0x3FF

	var table *PageTable
	if dir.Entries[dirIdx]&uint32(FlagPresent) == 0 {
		t, err := allocTable()
		if err != nil {
			return err
		}
		table = t
		dir.Entries[dirIdx] = uint32(tableAddr(table)) | uint32(FlagPresent|FlagWritable)
	} else {
		table = tableFromEntry(dir.Entries[dirIdx])
	}

	table.Entries[tblIdx] = uint32(p&uintptr(addrMask)) | uint32(flags) | uint32(FlagPresent)
	InvalidateTLBEntry(v)
	return nil
}

// IdentityMap maps every 4 KiB page in [0, end) to itself with
// {present, writable}, allocating leaf tables as needed. end is rounded up
// to the nearest page internally by the caller (paging_init computes the
// rounded bound per spec.md §4.B step 1).
func IdentityMap(dir *PageDirectory, end uintptr, allocTable TableAllocFunc) *kernel.Error {
	for addr := uintptr(0); addr < end; addr += mem.PageSize {
		if err := Map(dir, addr, addr, FlagPresent|FlagWritable, allocTable); err != nil {
			return err
		}
	}
	return nil
}

// RoundUp4MiB rounds addr up to the next 4 MiB boundary, the granularity of
// a single page-directory entry's worth of address space.
func RoundUp4MiB(addr uintptr) uintptr {
	const fourMiB = 4 * 1024 * 1024
	if addr&(fourMiB-1) != 0 {
		addr = (addr &^ (fourMiB - 1)) + fourMiB
	}
	return addr
}

// Lookup returns the physical address currently mapped to virtual address v
// and whether a mapping exists at all.
func Lookup(dir *PageDirectory, v uintptr) (phys uintptr, present bool) {
	dirIdx := (v >> 22) & 0x3FF
	tblIdx := (v >> 12) & 0x3FF
	if dir.Entries[dirIdx]&uint32(FlagPresent) == 0 {
		return 0, false
	}
	table := tableFromEntry(dir.Entries[dirIdx])
	entry := table.Entries[tblIdx]
	if entry&uint32(FlagPresent) == 0 {
		return 0, false
	}
	return uintptr(entry) & uintptr(addrMask), true
}
