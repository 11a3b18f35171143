// Package kernel provides types shared by every other kernel package.
package kernel

// Error describes a kernel-level failure. All kernel errors are defined as
// package-level *Error values rather than created with errors.New, since the
// Go allocator is not guaranteed to be available at the call sites that need
// to report them (early boot, interrupt context).
type Error struct {
	// Module names the subsystem that produced the error.
	Module string

	// Message is a short, human-readable description.
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Module + ": " + e.Message
}
