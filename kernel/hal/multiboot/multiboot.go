// Package multiboot parses the classic (non-tag) Multiboot1 information
// structure a bootloader like GRUB leaves in a register pair at kernel
// entry: a magic value plus a pointer to a fixed-layout info block.
package multiboot

import "unsafe"

// Magic is the value the bootloader must have placed in EAX before jumping
// to the kernel entry point.
const Magic uint32 = 0x2BADB002

// infoMemMap is the bit in info.Flags that says mmapAddr/mmapLength are
// valid.
const infoMemMap uint32 = 0x40

// info mirrors multiboot_info_t, packed, little-endian. Only the fields the
// kernel cares about are declared; the real struct has more trailing data
// that is simply never read.
type info struct {
	flags      uint32
	memLower   uint32
	memUpper   uint32
	bootDevice uint32
	cmdline    uint32
	modsCount  uint32
	modsAddr   uint32
	syms       [4]uint32
	mmapLength uint32
	mmapAddr   uint32
}

// mmapEntry mirrors multiboot_mmap_entry_t. Note size precedes the entry
// itself and is not included when walking to the next entry — entries are
// size+4 bytes apart, not sizeof(mmapEntry) apart, matching the original's
// layout where `size` describes only what follows it.
type mmapEntry struct {
	size uint32
	addr uint64
	len  uint64
	typ  uint32
}

// RegionType classifies a MemRegion the way the BIOS/bootloader reports it.
type RegionType uint32

const (
	RegionAvailable RegionType = 1
	RegionReserved  RegionType = 2
)

// MemRegion describes one entry of the bootloader-provided memory map.
type MemRegion struct {
	Addr   uint64
	Length uint64
	Type   RegionType
}

// MemRegionVisitor is invoked once per MemRegion by VisitMemRegions. Return
// false to stop the scan early.
type MemRegionVisitor func(MemRegion) bool

var infoPtr uintptr

// SetInfoPtr records where the Multiboot info structure lives, as handed to
// the kernel entry point by the bootloader. Must be called before any other
// function in this package.
func SetInfoPtr(ptr uintptr) {
	infoPtr = ptr
}

func infoStruct() *info {
	return (*info)(unsafe.Pointer(infoPtr))
}

// CheckMagic reports whether magic matches the value the bootloader is
// required to pass in EAX. The boot entry point should halt if this fails:
// nothing downstream can be trusted otherwise.
func CheckMagic(magic uint32) bool {
	return magic == Magic
}

// VisitMemRegions walks the bootloader-supplied memory map, if present,
// calling visitor once per region in order. It is a no-op if the bootloader
// did not set the memory-map flag.
func VisitMemRegions(visitor MemRegionVisitor) {
	in := infoStruct()
	if in.flags&infoMemMap == 0 {
		return
	}

	cur := uintptr(in.mmapAddr)
	end := cur + uintptr(in.mmapLength)
	for cur < end {
		e := (*mmapEntry)(unsafe.Pointer(cur))
		typ := RegionType(e.typ)
		if typ != RegionAvailable {
			typ = RegionReserved
		}
		if !visitor(MemRegion{Addr: e.addr, Length: e.len, Type: typ}) {
			return
		}
		// size describes the bytes following the size field itself.
		cur += uintptr(e.size) + 4
	}
}

// LowerMemKiB and UpperMemKiB report the BIOS-probed conventional and
// extended memory sizes, in KiB, as a fallback when no memory map is
// present.
func LowerMemKiB() uint32 { return infoStruct().memLower }
func UpperMemKiB() uint32 { return infoStruct().memUpper }
