package block

import "github.com/Jithub-4pf/NanOS/kernel"

// DefaultRamdiskBytes is the size used when a caller doesn't care, matching
// the original driver's RAMDISK_DEFAULT_SIZE.
const DefaultRamdiskBytes = 256 * 1024

// Ramdisk is a Device backed by a plain byte slice. It exists so the
// filesystem layer has something to mount before a real disk driver is
// written, and so host tooling can operate on an ext2 image without any
// platform-specific I/O at all.
type Ramdisk struct {
	data []byte
}

// NewRamdisk allocates a ramdisk of at least sizeBytes, rounded up to a
// whole number of sectors. A sizeBytes of 0 selects DefaultRamdiskBytes.
func NewRamdisk(sizeBytes uint32) *Ramdisk {
	if sizeBytes == 0 {
		sizeBytes = DefaultRamdiskBytes
	}
	sectors := (sizeBytes + SectorSize - 1) / SectorSize
	return &Ramdisk{data: make([]byte, sectors*SectorSize)}
}

// LoadImage copies blob into the ramdisk starting at sector 0, failing if it
// would overrun the backing buffer. Mirrors ramdisk_load_ext2_image.
func (r *Ramdisk) LoadImage(blob []byte) *kernel.Error {
	if len(blob) > len(r.data) {
		return &kernel.Error{Module: "ramdisk", Message: "image larger than ramdisk"}
	}
	copy(r.data, blob)
	return nil
}

func (r *Ramdisk) boundsCheck(firstSector, count uint32) *kernel.Error {
	start := uint64(firstSector) * SectorSize
	length := uint64(count) * SectorSize
	if start+length > uint64(len(r.data)) {
		return &kernel.Error{Module: "ramdisk", Message: "sector range out of bounds"}
	}
	return nil
}

// ReadSectors implements Device.
func (r *Ramdisk) ReadSectors(firstSector, count uint32, out []byte) *kernel.Error {
	if err := r.boundsCheck(firstSector, count); err != nil {
		return err
	}
	start := uint64(firstSector) * SectorSize
	length := uint64(count) * SectorSize
	if uint64(len(out)) < length {
		return &kernel.Error{Module: "ramdisk", Message: "output buffer too small"}
	}
	copy(out[:length], r.data[start:start+length])
	return nil
}

// WriteSectors implements Device.
func (r *Ramdisk) WriteSectors(firstSector, count uint32, in []byte) *kernel.Error {
	if err := r.boundsCheck(firstSector, count); err != nil {
		return err
	}
	start := uint64(firstSector) * SectorSize
	length := uint64(count) * SectorSize
	if uint64(len(in)) < length {
		return &kernel.Error{Module: "ramdisk", Message: "input buffer too small"}
	}
	copy(r.data[start:start+length], in[:length])
	return nil
}

// SectorCount implements Device.
func (r *Ramdisk) SectorCount() uint32 {
	return uint32(len(r.data)) / SectorSize
}

// SectorSize implements Device.
func (r *Ramdisk) SectorSize() uint32 {
	return SectorSize
}
