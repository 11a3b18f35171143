// Package proc implements tasks, a preemptive round-robin-with-priority
// scheduler, and message-passing IPC between tasks.
package proc

import (
	"unsafe"

	"github.com/Jithub-4pf/NanOS/kernel"
)

// State is a task's scheduling state.
type State int

const (
	StateReady State = iota
	StateRunning
	StateBlocked
	StateTerminated
)

// String renders a State the way the shell's "ps" command prints it.
func (s State) String() string {
	switch s {
	case StateReady:
		return "READY"
	case StateRunning:
		return "RUNNING"
	case StateBlocked:
		return "BLOCKED"
	case StateTerminated:
		return "TERM"
	default:
		return "UNKNOWN"
	}
}

// Context holds the registers contextSwitch saves and restores: EDI, ESI
// and EBP, the stack pointer, and the EIP to resume at. EBX, the fourth
// callee-saved GPR, is not saved or restored. Caller-saved registers,
// flags and FPU state are not part of this primitive's contract either —
// narrower than the original's ten-field context_t.
type Context struct {
	Edi, Esi, Ebp, Esp uint32
	Eip                uint32
}

// DefaultTimeSlice is the number of ticks a task runs before the scheduler
// considers preempting it, matching the original's fixed quantum of 5.
const DefaultTimeSlice = 5

// Task is one schedulable unit of execution.
type Task struct {
	PID       uint32
	Context   Context
	stack     []byte
	Priority  int
	TimeSlice int
	SleepUntil uint32
	State     State
	next      *Task

	mailbox Mailbox
}

var nextPID uint32 = 1

var errAllocFailed = &kernel.Error{Module: "proc", Message: "task allocation failed"}

// Spawn creates a new task that will begin executing at entry once
// scheduled, with a freshly allocated stack of stackSize bytes. The initial
// stack frame is synthesized exactly the way process_create built it: the
// entry point sits where a return address would be, under four zeroed
// callee-saved register slots, so the first context switch into this task
// "returns" straight into entry with Edi/Esi/Ebp all zero.
func Spawn(entry func(), stackSize uint32) (*Task, *kernel.Error) {
	if stackSize < 16 {
		return nil, errAllocFailed
	}
	stack := make([]byte, stackSize)

	entryAddr := funcEntryAddr(entry)

	words := (*[1 << 16]uint32)(unsafe.Pointer(&stack[0]))[: stackSize/4 : stackSize/4]
	top := len(words)

	top--
	words[top] = entryAddr // synthesized return address
	top--
	words[top] = 0 // ebp
	top--
	words[top] = 0 // ebx (not part of Context, but reserved in the frame shape)
	top--
	words[top] = 0 // esi
	top--
	words[top] = 0 // edi

	t := &Task{
		PID:       nextPID,
		stack:     stack,
		Priority:  1,
		TimeSlice: DefaultTimeSlice,
		State:     StateReady,
	}
	nextPID++

	t.Context.Esp = uint32(uintptr(unsafe.Pointer(&words[top])))
	t.Context.Eip = entryAddr
	t.mailbox.init()

	return t, nil
}

// funcEntryAddr recovers the code address a Go func value will jump to.
// Go func values are pointers to a struct whose first word is the code
// pointer; this mirrors how the teacher's own assembly stubs are addressed
// by declaration, not by taking &entry directly.
func funcEntryAddr(entry func()) uint32 {
	type funcval struct {
		fn uintptr
	}
	fv := (*funcval)(unsafe.Pointer(&entry))
	return uint32(fv.fn)
}
