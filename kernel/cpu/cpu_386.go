//go:build 386

package cpu

// EnableInterrupts enables interrupt handling (sti).
func EnableInterrupts()

// DisableInterrupts disables interrupt handling (cli).
func DisableInterrupts()

// Halt stops instruction execution until the next interrupt (hlt).
func Halt()

// FlushTLBEntry flushes a single TLB entry for a virtual address (invlpg).
func FlushTLBEntry(virtAddr uintptr)

// SwitchPDT loads the physical address of a page directory into CR3.
func SwitchPDT(pdtPhysAddr uintptr)

// EnablePaging sets the CR0 PG bit, turning on the MMU for whatever page
// directory is currently loaded in CR3 (set it first via SwitchPDT).
func EnablePaging()

// ActivePDT returns the physical address currently loaded in CR3.
func ActivePDT() uintptr

// ReadFaultAddress returns the value of CR2, the address that caused the
// most recent page fault.
func ReadFaultAddress() uintptr

// PortWriteByte writes a uint8 to the given I/O port (outb).
func PortWriteByte(port uint16, val uint8)

// PortReadByte reads a uint8 from the given I/O port (inb).
func PortReadByte(port uint16) uint8

// PortWriteWord writes a uint16 to the given I/O port (outw).
func PortWriteWord(port uint16, val uint16)

// PortReadWord reads a uint16 from the given I/O port (inw).
func PortReadWord(port uint16) uint16
