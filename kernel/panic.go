package kernel

import (
	"github.com/Jithub-4pf/NanOS/kernel/cpu"
	"github.com/Jithub-4pf/NanOS/kernel/kfmt"
)

// cpuHaltFn is swapped out by tests so Panic can be exercised without
// looping forever on a real hlt.
var cpuHaltFn = cpu.Halt

// Panic prints err (if not nil) to the registered kfmt sink and halts the
// CPU. It never returns. Boot code calls this instead of the builtin
// panic for unrecoverable setup failures (bad Multiboot magic, physical
// memory exhausted before the heap exists, and so on) where there is no
// runtime panic/recover machinery to unwind into.
func Panic(err *Error) {
	kfmt.Printf("\n-----------------------------------\n")
	if err != nil {
		kfmt.Printf("[%s] unrecoverable error: %s\n", err.Module, err.Message)
	}
	kfmt.Printf("*** kernel panic: system halted ***\n")
	kfmt.Printf("-----------------------------------\n")

	for {
		cpuHaltFn()
	}
}
