//go:build !386

package cpu

// This core only ever boots as a 32-bit (386) kernel image, so the real
// bodies of these functions live in cpu_386.go/cpu_386.s. Every other
// GOARCH — in particular the native GOARCH of whatever machine runs
// `go test` against kernel/proc, kernel/irq, kernel/shell, or
// kernel/mem/vmm — gets these panicking stand-ins instead, so the
// packages that import cpu still build and their tests still run: every
// call site reachable by a test already hides the real call behind an
// injectable function variable (activePDTFn, invalidateTLBEntryFn,
// portWriteByteFn, portReadByteFn, cpuHaltFn) and swaps in a fake before
// exercising it, so these stubs are never actually invoked.

func EnableInterrupts() { panic("cpu: EnableInterrupts is only implemented for GOARCH=386") }

func DisableInterrupts() { panic("cpu: DisableInterrupts is only implemented for GOARCH=386") }

func Halt() { panic("cpu: Halt is only implemented for GOARCH=386") }

func FlushTLBEntry(virtAddr uintptr) {
	panic("cpu: FlushTLBEntry is only implemented for GOARCH=386")
}

func SwitchPDT(pdtPhysAddr uintptr) { panic("cpu: SwitchPDT is only implemented for GOARCH=386") }

func EnablePaging() { panic("cpu: EnablePaging is only implemented for GOARCH=386") }

func ActivePDT() uintptr { panic("cpu: ActivePDT is only implemented for GOARCH=386") }

func ReadFaultAddress() uintptr {
	panic("cpu: ReadFaultAddress is only implemented for GOARCH=386")
}

func PortWriteByte(port uint16, val uint8) {
	panic("cpu: PortWriteByte is only implemented for GOARCH=386")
}

func PortReadByte(port uint16) uint8 {
	panic("cpu: PortReadByte is only implemented for GOARCH=386")
}

func PortWriteWord(port uint16, val uint16) {
	panic("cpu: PortWriteWord is only implemented for GOARCH=386")
}

func PortReadWord(port uint16) uint16 {
	panic("cpu: PortReadWord is only implemented for GOARCH=386")
}
