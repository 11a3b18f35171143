// Package block defines the block-device trait the ext2 driver rides on,
// plus a name registry so the filesystem and the shell can look a device
// up by string ("ramdisk0") instead of holding a reference to it directly.
package block

import "github.com/Jithub-4pf/NanOS/kernel"

// SectorSize is the fixed sector size every device trades in.
const SectorSize = 512

// Device is the trait every block device implements: read/write N sectors
// starting at firstSector, plus its geometry. Kept to four operations on
// purpose (spec.md §9 "Dynamic dispatch") so either a real vtable or, as
// here, a plain Go interface can serve it cheaply.
type Device interface {
	ReadSectors(firstSector, count uint32, out []byte) *kernel.Error
	WriteSectors(firstSector, count uint32, in []byte) *kernel.Error
	SectorCount() uint32
	SectorSize() uint32
}

var (
	errNotFound = &kernel.Error{Module: "block", Message: "no such device"}
	errExists   = &kernel.Error{Module: "block", Message: "device already registered"}
)

// registry is the name -> Device lookup table. Package-level, like the
// teacher's HAL device lists, since there is exactly one of these per
// kernel instance.
var registry = map[string]Device{}

// Register adds dev under name. Re-registering an existing name fails
// rather than silently replacing it, matching blockdev_register's behavior
// of rejecting duplicates.
func Register(name string, dev Device) *kernel.Error {
	if _, exists := registry[name]; exists {
		return errExists
	}
	registry[name] = dev
	return nil
}

// Get looks a device up by name, or returns errNotFound.
func Get(name string) (Device, *kernel.Error) {
	dev, ok := registry[name]
	if !ok {
		return nil, errNotFound
	}
	return dev, nil
}

// Unregister removes a device by name; used by tests and by tools that
// rebuild a fresh registry between runs. A no-op if the name is absent.
func Unregister(name string) {
	delete(registry, name)
}
