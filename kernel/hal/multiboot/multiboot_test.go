package multiboot

import (
	"encoding/binary"
	"testing"
	"unsafe"
)

// buildInfo assembles a synthetic info block plus a trailing memory map in
// a single byte slice, exactly as a bootloader would lay them out in
// physical memory, and points the package at it.
func buildInfo(t *testing.T, regions []MemRegion) []byte {
	t.Helper()

	const infoSize = 4 * 13 // flags..mmapAddr, 13 uint32 fields (syms is 4 words)
	mmap := make([]byte, 0, len(regions)*24)
	for _, r := range regions {
		entry := make([]byte, 24)
		binary.LittleEndian.PutUint32(entry[0:4], 20) // size field excludes itself
		binary.LittleEndian.PutUint64(entry[4:12], r.Addr)
		binary.LittleEndian.PutUint64(entry[12:20], r.Length)
		binary.LittleEndian.PutUint32(entry[20:24], uint32(r.Type))
		mmap = append(mmap, entry...)
	}

	buf := make([]byte, infoSize+len(mmap))
	binary.LittleEndian.PutUint32(buf[0:4], infoMemMap) // flags
	// memLower, memUpper, bootDevice, cmdline, modsCount, modsAddr, syms[4] left zero
	mmapAddrOf := func() uintptr { return uintptr(unsafe.Pointer(&buf[infoSize])) }

	binary.LittleEndian.PutUint32(buf[44:48], uint32(len(mmap))) // mmapLength
	copy(buf[infoSize:], mmap)

	// mmapAddr must be written after we know the final slice address.
	binary.LittleEndian.PutUint32(buf[48:52], uint32(mmapAddrOf()))

	SetInfoPtr(uintptr(unsafe.Pointer(&buf[0])))
	return buf
}

func TestCheckMagic(t *testing.T) {
	if !CheckMagic(Magic) {
		t.Fatal("expected correct magic to be accepted")
	}
	if CheckMagic(0) {
		t.Fatal("expected wrong magic to be rejected")
	}
}

func TestVisitMemRegionsWalksAllEntries(t *testing.T) {
	want := []MemRegion{
		{Addr: 0x0, Length: 0x9FC00, Type: RegionAvailable},
		{Addr: 0x100000, Length: 0x1FF00000, Type: RegionAvailable},
		{Addr: 0xFFFC0000, Length: 0x40000, Type: RegionReserved},
	}
	buf := buildInfo(t, want)
	defer func() { _ = buf }()

	var got []MemRegion
	VisitMemRegions(func(r MemRegion) bool {
		got = append(got, r)
		return true
	})

	if len(got) != len(want) {
		t.Fatalf("got %d regions, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("region %d: got %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestVisitMemRegionsStopsWhenVisitorReturnsFalse(t *testing.T) {
	regions := []MemRegion{
		{Addr: 0, Length: 1, Type: RegionAvailable},
		{Addr: 1, Length: 1, Type: RegionAvailable},
		{Addr: 2, Length: 1, Type: RegionAvailable},
	}
	buf := buildInfo(t, regions)
	defer func() { _ = buf }()

	count := 0
	VisitMemRegions(func(r MemRegion) bool {
		count++
		return false
	})

	if count != 1 {
		t.Fatalf("expected scan to stop after first region, visited %d", count)
	}
}

func TestVisitMemRegionsNoOpWithoutMemMapFlag(t *testing.T) {
	buf := make([]byte, 44)
	// flags left at zero: infoMemMap bit not set.
	SetInfoPtr(uintptr(unsafe.Pointer(&buf[0])))

	called := false
	VisitMemRegions(func(MemRegion) bool {
		called = true
		return true
	})
	if called {
		t.Fatal("expected no-op when memory map flag is unset")
	}
}
