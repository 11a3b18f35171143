package irq

import "testing"

func withFakePorts(t *testing.T) map[uint16]uint8 {
	t.Helper()
	ports := make(map[uint16]uint8)
	origWrite, origRead := portWriteByteFn, portReadByteFn
	portWriteByteFn = func(port uint16, val uint8) { ports[port] = val }
	portReadByteFn = func(port uint16) uint8 { return ports[port] }
	t.Cleanup(func() {
		portWriteByteFn, portReadByteFn = origWrite, origRead
	})
	return ports
}

func TestRegisterAndDispatchInvokesHandler(t *testing.T) {
	var got *Regs
	Register(200, func(r *Regs) { got = r })
	defer Register(200, nil)

	want := &Regs{EAX: 42}
	Dispatch(200, want)

	if got != want {
		t.Fatal("expected Dispatch to invoke the registered handler with the same Regs")
	}
}

func TestDispatchWithoutHandlerIsNoOp(t *testing.T) {
	Dispatch(201, &Regs{}) // must not panic
}

func TestRemapPICWritesICW4Mode(t *testing.T) {
	withFakePorts(t)
	writes := make(map[uint16][]uint8)
	portWriteByteFn = func(port uint16, val uint8) { writes[port] = append(writes[port], val) }
	RemapPIC()

	// Each data port receives ICW2, ICW3, ICW4 and then the restored mask,
	// so ICW4 is the third of four writes, not the last.
	if w := writes[pic1Data]; len(w) != 4 || w[2] != icw4Mode8086 {
		t.Fatalf("got master data writes %#v, want ICW4 %#x as third of four", w, icw4Mode8086)
	}
	if w := writes[pic2Data]; len(w) != 4 || w[2] != icw4Mode8086 {
		t.Fatalf("got slave data writes %#v, want ICW4 %#x as third of four", w, icw4Mode8086)
	}
}

func TestSendEOISignalsMasterOnly(t *testing.T) {
	ports := withFakePorts(t)
	SendEOI(3)

	if ports[pic1Command] != 0x20 {
		t.Fatalf("got master command %#x, want 0x20", ports[pic1Command])
	}
	if _, touched := ports[pic2Command]; touched {
		t.Fatal("expected SendEOI on IRQ<8 to leave the slave PIC untouched")
	}
}

func TestSendEOISignalsBothForSlaveIRQ(t *testing.T) {
	ports := withFakePorts(t)
	SendEOI(10)

	if ports[pic1Command] != 0x20 || ports[pic2Command] != 0x20 {
		t.Fatalf("got master=%#x slave=%#x, want both 0x20", ports[pic1Command], ports[pic2Command])
	}
}

func TestUnmaskClearsOnlyTargetBit(t *testing.T) {
	ports := withFakePorts(t)
	ports[pic1Data] = 0xFF

	Unmask(3)

	if ports[pic1Data]&(1<<3) != 0 {
		t.Fatalf("got mask %#x, want bit 3 cleared", ports[pic1Data])
	}
	if ports[pic1Data]&(1<<2) == 0 {
		t.Fatal("expected Unmask to leave other mask bits untouched")
	}
}

func TestInitTimerRegistersVectorAndUnmasksIRQ0(t *testing.T) {
	ports := withFakePorts(t)
	ports[pic1Data] = 0xFF

	called := false
	InitTimer(fakeNotifier{func() { called = true }})
	defer Register(timerVector, nil)

	if handlers[timerVector] == nil {
		t.Fatal("expected InitTimer to register the timer vector")
	}
	handlers[timerVector](&Regs{})
	if !called {
		t.Fatal("expected the timer handler to call NotifyTick")
	}
	if ports[pic1Data]&1 != 0 {
		t.Fatal("expected InitTimer to unmask IRQ0")
	}
}

type fakeNotifier struct{ fn func() }

func (f fakeNotifier) NotifyTick() { f.fn() }

func TestInitKeyboardReadsPortAndDispatches(t *testing.T) {
	ports := withFakePorts(t)
	ports[kbdDataPort] = 0x1E // 'a' make code
	ports[pic1Data] = 0xFF

	var got uint8
	InitKeyboard(fakeScancodeHandler{func(sc uint8) { got = sc }})
	defer Register(keyboardVector, nil)

	handlers[keyboardVector](&Regs{})
	if got != 0x1E {
		t.Fatalf("got scancode %#x, want 0x1E", got)
	}
}

type fakeScancodeHandler struct{ fn func(uint8) }

func (f fakeScancodeHandler) Handle(scancode uint8) { f.fn(scancode) }
