//go:build !386

package proc

// contextSwitch's real body is 386-only assembly (switch_386.s); on every
// other GOARCH — including whatever a hosted `go test` runs as — it panics
// rather than leaving the package uncompilable. NewScheduler wires it in as
// Scheduler.switchFn's default, and every test that exercises the
// scheduler's dispatch path overrides switchFn with a no-op before calling
// Tick, the same way cpu's privileged primitives are swapped out in tests.
func contextSwitch(old, new *Context) {
	panic("proc: contextSwitch is only implemented for GOARCH=386")
}
