package block

import (
	"os"

	"github.com/Jithub-4pf/NanOS/kernel"
)

// FileDevice is a Device backed by a regular file, used only by host-side
// tooling (tools/mkimage, tools/fusedebug) that builds or inspects ext2
// images as an ordinary OS process. It has no place in the freestanding
// binary; anything that runs as a kernel task uses Ramdisk instead.
type FileDevice struct {
	f    *os.File
	size uint32 // sectors
}

// OpenFileDevice opens path and reports its size in sectors, failing if the
// file's length isn't an exact multiple of SectorSize.
func OpenFileDevice(path string) (*FileDevice, *kernel.Error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, &kernel.Error{Module: "hostfile", Message: err.Error()}
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, &kernel.Error{Module: "hostfile", Message: err.Error()}
	}
	if info.Size()%SectorSize != 0 {
		f.Close()
		return nil, &kernel.Error{Module: "hostfile", Message: "file size is not sector-aligned"}
	}
	return &FileDevice{f: f, size: uint32(info.Size() / SectorSize)}, nil
}

// Close releases the underlying file handle.
func (d *FileDevice) Close() error {
	return d.f.Close()
}

func (d *FileDevice) boundsCheck(firstSector, count uint32) *kernel.Error {
	if uint64(firstSector)+uint64(count) > uint64(d.size) {
		return &kernel.Error{Module: "hostfile", Message: "sector range out of bounds"}
	}
	return nil
}

// ReadSectors implements Device.
func (d *FileDevice) ReadSectors(firstSector, count uint32, out []byte) *kernel.Error {
	if err := d.boundsCheck(firstSector, count); err != nil {
		return err
	}
	length := int64(count) * SectorSize
	if int64(len(out)) < length {
		return &kernel.Error{Module: "hostfile", Message: "output buffer too small"}
	}
	if _, err := d.f.ReadAt(out[:length], int64(firstSector)*SectorSize); err != nil {
		return &kernel.Error{Module: "hostfile", Message: err.Error()}
	}
	return nil
}

// WriteSectors implements Device.
func (d *FileDevice) WriteSectors(firstSector, count uint32, in []byte) *kernel.Error {
	if err := d.boundsCheck(firstSector, count); err != nil {
		return err
	}
	length := int64(count) * SectorSize
	if int64(len(in)) < length {
		return &kernel.Error{Module: "hostfile", Message: "input buffer too small"}
	}
	if _, err := d.f.WriteAt(in[:length], int64(firstSector)*SectorSize); err != nil {
		return &kernel.Error{Module: "hostfile", Message: err.Error()}
	}
	return nil
}

// SectorCount implements Device.
func (d *FileDevice) SectorCount() uint32 {
	return d.size
}

// SectorSize implements Device.
func (d *FileDevice) SectorSize() uint32 {
	return SectorSize
}
