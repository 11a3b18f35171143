// Package irq is the handler-registration layer sitting between the
// IDT's 256 gates and the rest of the kernel: a fixed-size table of
// vector-to-handler mappings, PIC initialization/EOI, and the PIT
// programming the scheduler's timer tick depends on. The IDT gate table
// itself and the per-vector assembly trampolines that would call
// Dispatch on a real interrupt are out of scope here — this core never
// boots on real hardware — but the registration API is the one a real
// trampoline would call into, mirroring the teacher's register-by-number
// shape (irq.HandleException) rather than a callback-chain or an
// observer list.
package irq

import "github.com/Jithub-4pf/NanOS/kernel/cpu"

// portWriteByteFn/portReadByteFn are swapped out by tests so that
// RemapPIC/SendEOI/Unmask can be exercised without executing real
// privileged port I/O, the same indirection vmm uses for TLB invalidation.
var (
	portWriteByteFn = cpu.PortWriteByte
	portReadByteFn  = cpu.PortReadByte
)

// Regs is a snapshot of general-purpose registers and the exception
// frame the CPU pushes automatically, matching registers_t.
type Regs struct {
	EDI, ESI, EBP, ESP uint32
	EBX, EDX, ECX, EAX uint32
	IntNo, ErrCode     uint32
	EIP, CS, EFlags    uint32
	UserESP, SS        uint32
}

// Handler is called with the saved register state when its vector fires.
type Handler func(*Regs)

var handlers [256]Handler

// Register installs handler for the given interrupt vector, overwriting
// any previous registration — mirrors register_interrupt_handler.
func Register(vector uint8, handler Handler) {
	handlers[vector] = handler
}

// Dispatch looks up and invokes the handler for vector, if any. A real
// assembly ISR trampoline calls this after saving Regs onto the stack.
func Dispatch(vector uint8, regs *Regs) {
	if h := handlers[vector]; h != nil {
		h(regs)
	}
}

const (
	pic1Command = 0x20
	pic1Data    = 0x21
	pic2Command = 0xA0
	pic2Data    = 0xA1

	icw1Init    = 0x10
	icw1ICW4    = 0x01
	icw4Mode8086 = 0x01

	// pic1VectorOffset/pic2VectorOffset place remapped IRQs 0-15 at
	// interrupt vectors 32-47, past the CPU's reserved exception range.
	pic1VectorOffset = 0x20
	pic2VectorOffset = 0x28
)

// RemapPIC reprograms both 8259 PICs so hardware IRQs land on vectors
// 32-47 instead of colliding with the CPU's own exception vectors 0-15.
func RemapPIC() {
	mask1 := portReadByteFn(pic1Data)
	mask2 := portReadByteFn(pic2Data)

	portWriteByteFn(pic1Command, icw1Init|icw1ICW4)
	portWriteByteFn(pic2Command, icw1Init|icw1ICW4)
	portWriteByteFn(pic1Data, pic1VectorOffset)
	portWriteByteFn(pic2Data, pic2VectorOffset)
	portWriteByteFn(pic1Data, 4) // tell master PIC2 lives on IRQ2
	portWriteByteFn(pic2Data, 2) // tell slave its cascade identity
	portWriteByteFn(pic1Data, icw4Mode8086)
	portWriteByteFn(pic2Data, icw4Mode8086)

	portWriteByteFn(pic1Data, mask1)
	portWriteByteFn(pic2Data, mask2)
}

// SendEOI acknowledges a hardware interrupt on irqLine (0-15) so the PIC
// will deliver further interrupts.
func SendEOI(irqLine uint8) {
	if irqLine >= 8 {
		portWriteByteFn(pic2Command, 0x20)
	}
	portWriteByteFn(pic1Command, 0x20)
}

// Unmask clears irqLine's bit in the owning PIC's mask register,
// allowing that line to raise interrupts.
func Unmask(irqLine uint8) {
	var port uint16 = pic1Data
	line := irqLine
	if irqLine >= 8 {
		port = pic2Data
		line -= 8
	}
	portWriteByteFn(port, portReadByteFn(port)&^(1<<line))
}
