package irq

const (
	pitBaseFreq = 1193182
	pitFreq     = 100 // ticks/second, matching timer_init's PIT_FREQ
	pitCommand  = 0x43
	pitChannel0 = 0x40
	timerVector = pic1VectorOffset // IRQ0 lands on vector 32
)

// TickNotifier is the scheduler hook invoked on every timer interrupt.
// It must do as little as possible — just record the tick and set a
// resched flag — since it runs with interrupts disabled, the same
// deferred-dispatch split the scheduler's own NotifyTick/MaybeResched
// split exists for.
type TickNotifier interface {
	NotifyTick()
}

// InitTimer programs the PIT for pitFreq ticks/second, unmasks IRQ0, and
// wires its interrupt to sched.NotifyTick, sending the EOI itself so the
// scheduler hook never needs to know about the PIC.
func InitTimer(sched TickNotifier) {
	divisor := uint16(pitBaseFreq / pitFreq)
	portWriteByteFn(pitCommand, 0x36)
	portWriteByteFn(pitChannel0, byte(divisor&0xFF))
	portWriteByteFn(pitChannel0, byte(divisor>>8))

	Register(timerVector, func(r *Regs) {
		sched.NotifyTick()
		SendEOI(0)
	})
	Unmask(0)
}
