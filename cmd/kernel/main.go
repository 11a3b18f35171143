// Command kernel is the freestanding entry point a Multiboot1 bootloader
// jumps to once an rt0 assembly stub has parked the CPU in 32-bit
// protected mode, built a minimal GDT/IDT, and set up a stack. That stub
// — along with the PIC/IDT gate wiring spec's boot contract calls out as
// an external collaborator — is not implemented in this tree; this file
// is what it would call into, mirroring the init order and "trampoline
// arguments as globals" idiom of the teacher's own rt0-to-Kmain split.
package main

import (
	"unsafe"

	"github.com/Jithub-4pf/NanOS/device/console"
	"github.com/Jithub-4pf/NanOS/device/keyboard"
	"github.com/Jithub-4pf/NanOS/kernel"
	"github.com/Jithub-4pf/NanOS/kernel/block"
	"github.com/Jithub-4pf/NanOS/kernel/cpu"
	"github.com/Jithub-4pf/NanOS/kernel/ext2"
	"github.com/Jithub-4pf/NanOS/kernel/hal/multiboot"
	"github.com/Jithub-4pf/NanOS/kernel/irq"
	"github.com/Jithub-4pf/NanOS/kernel/kfmt"
	"github.com/Jithub-4pf/NanOS/kernel/mem"
	"github.com/Jithub-4pf/NanOS/kernel/mem/kheap"
	"github.com/Jithub-4pf/NanOS/kernel/mem/pmm/allocator"
	"github.com/Jithub-4pf/NanOS/kernel/mem/vmm"
	"github.com/Jithub-4pf/NanOS/kernel/proc"
	"github.com/Jithub-4pf/NanOS/kernel/shell"
	"github.com/Jithub-4pf/NanOS/kernel/vfs"
)

// multibootMagic and multibootInfoPtr are the two values the bootloader
// hands off in registers at entry; kernelStart/kernelEnd come from the
// linker script's own symbols. The rt0 stub sets all four before jumping
// here. They are package-level rather than parameters of main (which Go
// requires to take none) for the same reason the teacher's own trampoline
// passes a global to Kmain: it keeps the optimizer from ever concluding
// this file has no caller and discarding it.
var (
	multibootMagic   uint32
	multibootInfoPtr uintptr
	kernelStart      uintptr
	kernelEnd        uintptr
)

// defaultPhysMemBytes is the fallback physical memory size used when the
// bootloader's memory map is absent, matching physmem_init's own fixed
// 32 MiB argument in kernel_main.
const defaultPhysMemBytes = allocator.MaxPhysBytes

// bootHeapBytes sizes the kernel heap arena carved out right after the
// kernel image, matching paging_init's KERNEL_HEAP_SIZE.
const bootHeapBytes = 512 * 1024

// pmmBitmapBytes is exactly the backing size BitmapBytes(defaultPhysMemBytes)
// would compute; it has to be a compile-time constant here since it sizes a
// static array allocated before any allocator exists to hand out memory.
const pmmBitmapBytes = defaultPhysMemBytes / mem.PageSize / 8

var pmmBitmapBacking [pmmBitmapBytes]byte

// bootPageDirectory and bootPageTables are the statically allocated paging
// structures spec.md §4.B calls for ("one root table + 1024 leaf tables
// statically allocated"), mirroring paging.c's own file-scope
// kernel_page_directory/kernel_page_tables arrays — allocated here instead
// of via the heap since paging has to come up before the heap does.
var (
	bootPageDirectory vmm.PageDirectory
	bootPageTables    [1024]vmm.PageTable
	bootTableNext     int
)

func allocBootPageTable() (*vmm.PageTable, *kernel.Error) {
	if bootTableNext >= len(bootPageTables) {
		return nil, &kernel.Error{Module: "boot", Message: "out of static page tables"}
	}
	t := &bootPageTables[bootTableNext]
	bootTableNext++
	return t, nil
}

// pageFaultVector is the CPU exception number for #PF. Registering a
// handler at this vector is within this package's scope even though the
// IDT gate table itself is not: irq.Register only binds a vector number to
// a Go closure, the same registration layer real hardware IRQs go through.
const pageFaultVector = 14

// allocDynamicPageTable backs Map's on-demand leaf table allocation once
// the heap is up, used only for faults above vmm.DynamicBase — the static
// bootPageTables pool is reserved for the one-shot identity map above.
func allocDynamicPageTable() (*vmm.PageTable, *kernel.Error) {
	// heap.Alloc only guarantees 8-byte alignment and does not zero, so
	// over-allocate by a page, round up to a page boundary and clear it.
	size := unsafe.Sizeof(vmm.PageTable{})
	ptr, err := heap.Alloc(size + mem.PageSize)
	if err != nil {
		return nil, err
	}
	addr := (uintptr(ptr) + mem.PageSize - 1) &^ uintptr(mem.PageSize-1)
	mem.Memset(addr, 0, size)
	return (*vmm.PageTable)(unsafe.Pointer(addr)), nil
}

var (
	pmmAlloc allocator.BitmapAllocator
	heap     kheap.Heap
	sched    *proc.Scheduler
)

// main performs the one-time boot sequence described by spec.md §2's
// dependency order (physical memory → paging → heap → block device →
// ext2/VFS → scheduler/tasks → interrupts) and then falls into the idle
// task's own loop. It never returns.
func main() {
	con := console.NewTextConsole()
	kfmt.SetOutputSink(con)

	con.SetColor(0x1, 0xF) // blue on white, matching the original's boot banner
	for i := 0; i < 5; i++ {
		kfmt.Printf("\n")
	}
	kfmt.Printf("              =============================\n")
	kfmt.Printf("                  Welcome to NanOS!        \n")
	kfmt.Printf("              =============================\n")
	for i := 0; i < 3; i++ {
		kfmt.Printf("\n")
	}
	con.SetColor(0x7, 0x0)

	kfmt.Printf("[BOOT] Checking Multiboot magic... ")
	if !multiboot.CheckMagic(multibootMagic) {
		kfmt.Printf("[FAIL]\n[ERROR] Invalid Multiboot magic!\n")
		for {
			cpu.Halt()
		}
	}
	kfmt.Printf("[OK]\n")
	multiboot.SetInfoPtr(multibootInfoPtr)

	kfmt.Printf("[BOOT] BIOS memory map: %d KiB lower, %d KiB upper\n", multiboot.LowerMemKiB(), multiboot.UpperMemKiB())

	physMemBytes := mem.Size(defaultPhysMemBytes)
	if upperKiB := multiboot.UpperMemKiB(); upperKiB > 0 {
		reported := mem.Size(upperKiB) * mem.Kb
		if reported < physMemBytes {
			physMemBytes = reported
		}
	}

	if err := pmmAlloc.Init(physMemBytes, kernelStart, kernelEnd, pmmBitmapBacking[:]); err != nil {
		kernel.Panic(err)
	}
	pmmAlloc.SetWarnFunc(kfmt.Printf)
	multiboot.VisitMemRegions(func(r multiboot.MemRegion) bool {
		if r.Type != multiboot.RegionAvailable {
			pmmAlloc.ReserveRegion(uintptr(r.Addr), uintptr(r.Addr+r.Length))
		}
		return true
	})
	kfmt.Printf("[BOOT] Physical Memory... [OK]\n")

	pagingEnd := vmm.RoundUp4MiB(kernelEnd + bootHeapBytes + uintptr(mem.Mb))
	if err := vmm.IdentityMap(&bootPageDirectory, pagingEnd, allocBootPageTable); err != nil {
		kernel.Panic(err)
	}
	cpu.SwitchPDT(uintptr(unsafe.Pointer(&bootPageDirectory)))
	cpu.EnablePaging()
	kfmt.Printf("[BOOT] Paging... [OK]\n")

	mem.Memset(kernelEnd, 0, uintptr(bootHeapBytes))
	heapArena := mem.BytesAt(kernelEnd, mem.Size(bootHeapBytes))
	if err := heap.Init(heapArena); err != nil {
		kernel.Panic(err)
	}
	total, used, free := heap.Stats()
	kfmt.Printf("[BOOT] Heap: %d KiB total, %d KiB used, %d KiB free\n", total/1024, used/1024, free/1024)

	kbd := keyboard.New(128, keyboard.USQwerty, nil)
	kfmt.Printf("[BOOT] Keyboard... [OK]\n")

	ramdisk := block.NewRamdisk(block.DefaultRamdiskBytes)
	if err := block.Register("ramdisk0", ramdisk); err != nil {
		kernel.Panic(err)
	}
	kfmt.Printf("[BOOT] RAM disk... [OK]\n")

	kfmt.Printf("[BOOT] Formatting ext2 filesystem... ")
	fs, err := ext2.Format(ramdisk)
	if err != nil {
		kfmt.Printf("[FAILED]\n")
		kernel.Panic(err)
	}
	kfmt.Printf("[OK]\n")
	v := vfs.Mount(fs)
	kfmt.Printf("[BOOT] VFS... [OK]\n")

	sched = proc.NewScheduler()
	vfs.SetClock(func() uint32 { return sched.Ticks() / 100 })

	sh := shell.New(v, sched, &heap, con, kbd)

	idleTask, err := proc.Spawn(idleLoop, 4096)
	if err != nil {
		kernel.Panic(err)
	}
	sched.Add(idleTask)

	shellTask, err := proc.Spawn(func() { shellLoop(sh) }, 4096)
	if err != nil {
		kernel.Panic(err)
	}
	sched.Add(shellTask)
	kfmt.Printf("[BOOT] Processes created... [OK]\n")

	irq.Register(pageFaultVector, func(r *irq.Regs) {
		faultAddr := cpu.ReadFaultAddress()
		if vmm.HandleFault(&bootPageDirectory, faultAddr, r.ErrCode, pmmAlloc.AllocPage, allocDynamicPageTable) == vmm.FaultFatal {
			kernel.Panic(&kernel.Error{Module: "vmm", Message: "unrecoverable page fault"})
		}
	})
	irq.RemapPIC()
	irq.InitTimer(sched)
	irq.InitKeyboard(kbd)
	kfmt.Printf("[BOOT] Interrupts configured... [OK]\n")

	cpu.EnableInterrupts()
	kfmt.Printf("[BOOT] Scheduler running.\n")

	idleLoop()
}

// idleLoop is the idle task's entry point: perform any deferred dispatch
// the timer ISR requested and halt until the next interrupt, forever.
// Mirrors idle_process's own scheduler_maybe_resched/hlt loop.
func idleLoop() {
	for {
		sched.MaybeResched()
		cpu.Halt()
	}
}

// shellLoop is the shell task's entry point: print the startup banner once
// and then repeatedly drain whatever keystrokes have queued up, halting
// between polls rather than blocking in the scheduler — mirrors
// shell_process's own "wait for keyboard input without scheduler
// blocking" comment.
func shellLoop(sh *shell.Shell) {
	sh.Banner()
	for {
		sh.Run()
		cpu.Halt()
	}
}
