package vmm

import (
	"testing"

	"github.com/Jithub-4pf/NanOS/kernel"
)

func init() {
	// The real invlpg instruction requires ring 0; replace it so these
	// tests can run as an ordinary hosted Go binary.
	invalidateTLBEntryFn = func(uintptr) {}
}

func testTableAlloc() TableAllocFunc {
	return func() (*PageTable, *kernel.Error) {
		return &PageTable{}, nil
	}
}

func TestMapAndLookup(t *testing.T) {
	var dir PageDirectory
	alloc := testTableAlloc()

	if err := Map(&dir, 0x2000, 0x5000, FlagPresent|FlagWritable, alloc); err != nil {
		t.Fatalf("Map failed: %v", err)
	}

	phys, present := Lookup(&dir, 0x2000)
	if !present {
		t.Fatal("expected mapping to be present")
	}
	if phys != 0x5000 {
		t.Fatalf("got phys %#x, want %#x", phys, 0x5000)
	}
}

func TestLookupAbsent(t *testing.T) {
	var dir PageDirectory
	if _, present := Lookup(&dir, 0x1000); present {
		t.Fatal("expected no mapping in a freshly zeroed directory")
	}
}

func TestMapOverwrite(t *testing.T) {
	var dir PageDirectory
	alloc := testTableAlloc()

	if err := Map(&dir, 0x3000, 0x9000, FlagPresent|FlagWritable, alloc); err != nil {
		t.Fatalf("Map failed: %v", err)
	}
	if err := Map(&dir, 0x3000, 0xA000, FlagPresent|FlagWritable, alloc); err != nil {
		t.Fatalf("Map (overwrite) failed: %v", err)
	}

	phys, present := Lookup(&dir, 0x3000)
	if !present || phys != 0xA000 {
		t.Fatalf("expected overwritten mapping to 0xA000, got %#x present=%v", phys, present)
	}
}

func TestIdentityMap(t *testing.T) {
	var dir PageDirectory
	alloc := testTableAlloc()

	const end = 0x400000 // one page-directory entry's worth
	if err := IdentityMap(&dir, end, alloc); err != nil {
		t.Fatalf("IdentityMap failed: %v", err)
	}

	for _, addr := range []uintptr{0, 0x1000, 0x2000, end - 0x1000} {
		phys, present := Lookup(&dir, addr)
		if !present || phys != addr {
			t.Fatalf("identity mapping broken at %#x: phys=%#x present=%v", addr, phys, present)
		}
	}
}

func TestRoundUp4MiB(t *testing.T) {
	cases := map[uintptr]uintptr{
		0:         0,
		1:         0x400000,
		0x400000:  0x400000,
		0x400001:  0x800000,
	}
	for in, want := range cases {
		if got := RoundUp4MiB(in); got != want {
			t.Errorf("RoundUp4MiB(%#x) = %#x, want %#x", in, got, want)
		}
	}
}

func TestHandleFaultBelowDynamicBaseIsFatal(t *testing.T) {
	var dir PageDirectory
	alloc := func() (uintptr, *kernel.Error) { return 0x1000, nil }
	tblAlloc := testTableAlloc()

	outcome := HandleFault(&dir, 0x1000, 0, alloc, tblAlloc)
	if outcome != FaultFatal {
		t.Fatalf("expected fault below DynamicBase to be fatal, got %v", outcome)
	}
}

func TestHandleFaultAboveDynamicBaseResolves(t *testing.T) {
	var dir PageDirectory
	alloc := func() (uintptr, *kernel.Error) { return 0x20000, nil }
	tblAlloc := testTableAlloc()

	faultAddr := DynamicBase + 0x3456
	outcome := HandleFault(&dir, faultAddr, 0, alloc, tblAlloc)
	if outcome != FaultResolved {
		t.Fatalf("expected dynamic-region fault to resolve, got %v", outcome)
	}

	page := faultAddr &^ 0xFFF
	phys, present := Lookup(&dir, page)
	if !present || phys != 0x20000 {
		t.Fatalf("expected page %#x mapped to 0x20000, got phys=%#x present=%v", page, phys, present)
	}
}

func TestHandleFaultOutOfMemoryIsFatal(t *testing.T) {
	var dir PageDirectory
	alloc := func() (uintptr, *kernel.Error) {
		return 0, &kernel.Error{Module: "pmm", Message: "out of physical memory"}
	}
	tblAlloc := testTableAlloc()

	outcome := HandleFault(&dir, DynamicBase+0x1000, 0, alloc, tblAlloc)
	if outcome != FaultFatal {
		t.Fatalf("expected OOM during fault handling to be fatal, got %v", outcome)
	}
}
