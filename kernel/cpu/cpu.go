// Package cpu exposes the small set of privileged x86 operations the rest
// of the kernel needs: interrupt enable/disable, halt, TLB invalidation,
// page-directory switch, port I/O, and CPUID. Each privileged function is
// declared in cpu_386.go and defined in the matching Plan 9 assembly file,
// mirroring the teacher's own kernel/cpu package; cpu_stub.go carries a
// pure-Go fallback for every other GOARCH so that importers still build
// and run as ordinary hosted test binaries off this core's native target.
package cpu

import "github.com/klauspost/cpuid/v2"

// VendorString reports the CPU vendor as detected by cpuid, for the shell's
// cpuinfo command. Unlike the privileged functions in cpu_386.go this one never
// executes a privileged instruction and is safe to call from a hosted test
// binary on any GOARCH.
func VendorString() string {
	return cpuid.CPU.VendorString
}

// Features reports the CPU's feature-flag names, for the same command.
func Features() []string {
	return cpuid.CPU.FeatureSet()
}
