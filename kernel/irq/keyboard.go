package irq

const (
	kbdDataPort   = 0x60
	keyboardIRQ   = 1
	keyboardVector = pic1VectorOffset + keyboardIRQ
)

// ScancodeHandler receives the raw scancode byte read off the
// keyboard's data port on every IRQ1.
type ScancodeHandler interface {
	Handle(scancode uint8)
}

// InitKeyboard unmasks IRQ1 and wires it to kbd.Handle, reading the
// scancode off port 0x60 and sending the EOI itself — mirrors
// keyboard_irq_handler's inb(0x60) read, but leaves scancode decoding to
// the device/keyboard package rather than duplicating its tables here.
func InitKeyboard(kbd ScancodeHandler) {
	Register(keyboardVector, func(r *Regs) {
		scancode := portReadByteFn(kbdDataPort)
		kbd.Handle(scancode)
		SendEOI(keyboardIRQ)
	})
	Unmask(keyboardIRQ)
}
