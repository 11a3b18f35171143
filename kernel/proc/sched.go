package proc

import "github.com/Jithub-4pf/NanOS/kernel/cpu"

// Scheduler holds the circular ready list and drives the dispatch algorithm
// on every timer tick. There is exactly one per kernel instance.
type Scheduler struct {
	list    *Task // any task in the ring; nil if empty
	current *Task
	ticks   uint32

	switchFn func(old, new *Context)
}

// NewScheduler returns an empty scheduler. switchFn performs the actual
// register-level context switch; tests inject a no-op here so the dispatch
// logic can run on a hosted Go binary without touching real ESP/EIP.
func NewScheduler() *Scheduler {
	return &Scheduler{switchFn: contextSwitch}
}

// Ticks reports the number of timer interrupts seen so far.
func (s *Scheduler) Ticks() uint32 {
	return s.ticks
}

// Current returns the task the scheduler believes is running, or nil before
// the first tick.
func (s *Scheduler) Current() *Task {
	return s.current
}

// Tasks returns a snapshot of every task currently in the ring, in ring
// order starting from whichever task happens to be s.list, for callers
// like the shell's "ps" command that need to list them without being
// able to walk the ring themselves.
func (s *Scheduler) Tasks() []*Task {
	if s.list == nil {
		return nil
	}
	var out []*Task
	p := s.list
	for {
		out = append(out, p)
		p = p.next
		if p == s.list {
			break
		}
	}
	return out
}

// Add inserts t into the ready ring and marks it Ready.
func (s *Scheduler) Add(t *Task) {
	if s.list == nil {
		s.list = t
		t.next = t
	} else {
		tail := s.list
		for tail.next != s.list {
			tail = tail.next
		}
		tail.next = t
		t.next = s.list
	}
	t.State = StateReady
}

// find looks a task up by PID by walking the ring.
func (s *Scheduler) find(pid uint32) *Task {
	if s.list == nil {
		return nil
	}
	p := s.list
	for {
		if p.PID == pid {
			return p
		}
		p = p.next
		if p == s.list {
			return nil
		}
	}
}

// reapTerminated removes every StateTerminated task from the ring, fixing
// up list/current if either pointed at a removed task.
func (s *Scheduler) reapTerminated() {
	if s.list == nil {
		return
	}
	prev := s.list
	p := s.list.next
	for {
		if p.State == StateTerminated {
			prev.next = p.next
			if p == s.list {
				s.list = p.next
			}
			if p == s.current {
				s.current = p.next
			}
			if p.next == p {
				// p was the only task in the ring.
				s.list = nil
				s.current = nil
				return
			}
			p = prev.next
		} else {
			prev = p
			p = p.next
		}
		if p == s.list {
			break
		}
	}
	// The walk above starts after s.list and stops on reaching it again, so
	// s.list itself is checked here; prev is now its predecessor.
	if head := s.list; head.State == StateTerminated {
		if head.next == head {
			s.list = nil
			s.current = nil
			return
		}
		prev.next = head.next
		s.list = head.next
		if head == s.current {
			s.current = head.next
		}
	}
}

// wakeSleepers moves every StateBlocked task whose SleepUntil has arrived
// back to StateReady.
func (s *Scheduler) wakeSleepers() {
	if s.list == nil {
		return
	}
	p := s.list
	for {
		if p.State == StateBlocked && p.SleepUntil <= s.ticks {
			p.State = StateReady
		}
		p = p.next
		if p == s.list {
			return
		}
	}
}

// pickNext scans the ring starting from current, in ring order, for the
// highest-priority Ready task with a remaining time slice. Ties go to
// whichever candidate was found first (ring-order-first), matching the
// ">" rather than ">=" comparison in the original.
func (s *Scheduler) pickNext() *Task {
	if s.current == nil {
		return nil
	}
	var best *Task
	p := s.current
	for {
		if p.State == StateReady && p.TimeSlice > 0 {
			if best == nil || p.Priority > best.Priority {
				best = p
			}
		}
		p = p.next
		if p == s.current {
			break
		}
	}
	return best
}

// refreshAndPick resets every Ready task's time slice to DefaultTimeSlice
// and retries pickNext — the original's fallback for "everyone is Ready but
// exhausted their quantum."
func (s *Scheduler) refreshAndPick() *Task {
	p := s.list
	for {
		if p.State == StateReady {
			p.TimeSlice = DefaultTimeSlice
		}
		p = p.next
		if p == s.list {
			break
		}
	}
	return s.pickNext()
}

// Tick runs one full dispatch step: reap terminated tasks, wake sleepers,
// pick the next task to run, and switch to it if it differs from current.
// Called from the timer ISR's bottom half (via MaybeResched) or directly by
// tests, never from inside the ISR itself.
func (s *Scheduler) Tick() {
	s.reapTerminated()
	if s.list == nil {
		return
	}
	if s.current == nil {
		s.current = s.list
		s.current.State = StateRunning
		s.current.TimeSlice = DefaultTimeSlice
	}

	s.wakeSleepers()

	best := s.pickNext()
	if best == nil {
		best = s.refreshAndPick()
	}

	if best == nil {
		return
	}
	if best != s.current {
		old := s.current
		old.State = StateReady
		best.State = StateRunning
		best.TimeSlice--
		s.current = best
		s.switchFn(&old.Context, &best.Context)
	} else {
		best.TimeSlice--
	}
}

// needResched is set by the timer ISR and cleared by MaybeResched; it must
// never be touched directly from interrupt context beyond that one flag
// write, since Tick performs a real context switch and must not run with
// interrupts disabled inside the ISR.
var needResched bool

// NotifyTick is called from the timer interrupt handler. It only advances
// the tick count and raises the resched flag — the actual dispatch happens
// later via MaybeResched, outside interrupt context, exactly like the
// original's split between timer_irq_handler and scheduler_maybe_resched.
func (s *Scheduler) NotifyTick() {
	s.ticks++
	needResched = true
}

// MaybeResched performs the deferred dispatch if the timer ISR requested
// one. Safe to call from task code; a no-op otherwise.
func (s *Scheduler) MaybeResched() {
	if needResched {
		needResched = false
		s.Tick()
	}
}

// Yield forces an immediate dispatch step, used by Exit/Sleep below.
func (s *Scheduler) Yield() {
	s.Tick()
}

// Exit marks the calling task terminated and yields; it never returns.
// Callers are expected to pass the task the scheduler currently considers
// current.
func (s *Scheduler) Exit(t *Task) {
	t.State = StateTerminated
	s.Yield()
	for {
		cpu.Halt()
	}
}

// Sleep blocks t until Ticks() reaches s.Ticks()+ticks, then yields.
func (s *Scheduler) Sleep(t *Task, ticks uint32) {
	t.SleepUntil = s.ticks + ticks
	t.State = StateBlocked
	s.Yield()
}
