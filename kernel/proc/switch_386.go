//go:build 386

package proc

// contextSwitch saves EDI, ESI, EBP and ESP into old (EBX is not saved),
// restores the same from new, and jumps to new.Eip — the body lives in
// switch_386.s, following the same declaration/assembly split the arch
// primitives in kernel/cpu use.
func contextSwitch(old, new *Context)
