package proc

import "testing"

// newTestScheduler returns a Scheduler whose switchFn is a no-op, so Tick's
// dispatch logic can run on a hosted test binary without executing the
// real assembly context switch.
func newTestScheduler() *Scheduler {
	s := NewScheduler()
	s.switchFn = func(old, new *Context) {}
	return s
}

func noop() {}

func mustSpawn(t *testing.T) *Task {
	t.Helper()
	task, err := Spawn(noop, 4096)
	if err != nil {
		t.Fatalf("Spawn failed: %v", err)
	}
	return task
}

func TestSpawnSynthesizesStackFrame(t *testing.T) {
	task := mustSpawn(t)
	if task.Context.Esp == 0 {
		t.Fatal("expected a non-zero initial stack pointer")
	}
	if task.State != StateReady {
		t.Fatalf("expected new task to be Ready, got %v", task.State)
	}
	if task.TimeSlice != DefaultTimeSlice {
		t.Fatalf("expected default time slice, got %d", task.TimeSlice)
	}
}

func TestAddBuildsCircularRing(t *testing.T) {
	s := newTestScheduler()
	a := mustSpawn(t)
	b := mustSpawn(t)
	c := mustSpawn(t)
	s.Add(a)
	s.Add(b)
	s.Add(c)

	seen := map[uint32]bool{}
	p := s.list
	for i := 0; i < 3; i++ {
		seen[p.PID] = true
		p = p.next
	}
	if p != s.list {
		t.Fatal("expected ring to close back on itself after 3 tasks")
	}
	if len(seen) != 3 {
		t.Fatalf("expected 3 distinct tasks in the ring, saw %d", len(seen))
	}
}

func TestTickPicksFirstTaskOnFirstCall(t *testing.T) {
	s := newTestScheduler()
	a := mustSpawn(t)
	s.Add(a)

	s.Tick()
	if s.Current() != a {
		t.Fatal("expected the sole task to become current on first tick")
	}
	if a.State != StateRunning {
		t.Fatalf("expected running state, got %v", a.State)
	}
}

func TestTickRoundRobinsOnQuantumExhaustion(t *testing.T) {
	s := newTestScheduler()
	a := mustSpawn(t)
	b := mustSpawn(t)
	s.Add(a)
	s.Add(b)

	// The first Tick makes a current and then hands off to b in the same
	// step: pickNext only considers Ready tasks, and a is Running.
	s.Tick()

	ran := map[*Task]bool{s.Current(): true}
	for i := 0; i < DefaultTimeSlice+2; i++ {
		s.Tick()
		ran[s.Current()] = true
	}

	if s.Current() == nil {
		t.Fatal("expected a current task after several ticks")
	}
	if !ran[a] || !ran[b] {
		t.Fatal("expected both tasks to be dispatched over several ticks")
	}
}

func TestReapTerminatedRemovesFromRing(t *testing.T) {
	s := newTestScheduler()
	a := mustSpawn(t)
	b := mustSpawn(t)
	s.Add(a)
	s.Add(b)

	a.State = StateTerminated
	s.Tick()

	p := s.list
	for i := 0; i < 4; i++ {
		if p.PID == a.PID {
			t.Fatal("terminated task should have been reaped from the ring")
		}
		p = p.next
	}
}

func TestWakeSleepersTransitionsBlockedToReady(t *testing.T) {
	s := newTestScheduler()
	a := mustSpawn(t)
	s.Add(a)
	s.Tick() // establish current

	a.State = StateBlocked
	a.SleepUntil = s.Ticks() + 2
	s.NotifyTick()
	s.NotifyTick()
	s.MaybeResched()

	if a.State == StateBlocked {
		t.Fatal("expected sleeper to wake once SleepUntil has passed")
	}
}

func TestSendAndBlockingReceive(t *testing.T) {
	s := newTestScheduler()
	sender := mustSpawn(t)
	receiver := mustSpawn(t)
	s.Add(sender)
	s.Add(receiver)
	s.Tick()

	if err := Send(s, sender, receiver, []byte("hello")); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if !HasMessage(receiver) {
		t.Fatal("expected receiver to have a pending message")
	}

	msg := Receive(s, receiver)
	if string(msg.Data[:msg.Len]) != "hello" {
		t.Fatalf("got message %q, want %q", msg.Data[:msg.Len], "hello")
	}
	if msg.FromPID != sender.PID {
		t.Fatalf("got FromPID %d, want %d", msg.FromPID, sender.PID)
	}
}

func TestSendFullMailboxFails(t *testing.T) {
	s := newTestScheduler()
	sender := mustSpawn(t)
	receiver := mustSpawn(t)
	s.Add(sender)
	s.Add(receiver)
	s.Tick()

	for i := 0; i < QueueCap; i++ {
		if err := Send(s, sender, receiver, []byte("x")); err != nil {
			t.Fatalf("Send %d failed unexpectedly: %v", i, err)
		}
	}
	if err := Send(s, sender, receiver, []byte("x")); err == nil {
		t.Fatal("expected mailbox to report full")
	}
}

func TestSendTruncatesOversizedPayload(t *testing.T) {
	s := newTestScheduler()
	sender := mustSpawn(t)
	receiver := mustSpawn(t)
	s.Add(sender)
	s.Add(receiver)
	s.Tick()

	big := make([]byte, PayloadMax+10)
	for i := range big {
		big[i] = 'a'
	}
	if err := Send(s, sender, receiver, big); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	msg := Receive(s, receiver)
	if msg.Len != PayloadMax {
		t.Fatalf("expected truncation to %d bytes, got %d", PayloadMax, msg.Len)
	}
}
