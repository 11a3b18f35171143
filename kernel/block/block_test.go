package block

import (
	"testing"

	"go.uber.org/mock/gomock"
)

func TestRegisterAndGet(t *testing.T) {
	defer Unregister("test0")

	ctrl := gomock.NewController(t)
	dev := NewMockDevice(ctrl)

	if err := Register("test0", dev); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	got, err := Get("test0")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != dev {
		t.Fatal("Get returned a different device than was registered")
	}
}

func TestRegisterDuplicateNameFails(t *testing.T) {
	defer Unregister("test1")

	ctrl := gomock.NewController(t)
	dev1 := NewMockDevice(ctrl)
	dev2 := NewMockDevice(ctrl)

	if err := Register("test1", dev1); err != nil {
		t.Fatalf("first Register failed: %v", err)
	}
	if err := Register("test1", dev2); err == nil {
		t.Fatal("expected duplicate registration to fail")
	}
}

func TestGetUnknownDeviceFails(t *testing.T) {
	if _, err := Get("does-not-exist"); err == nil {
		t.Fatal("expected Get of unregistered name to fail")
	}
}

func TestMockDeviceSatisfiesInterfaceViaExpectations(t *testing.T) {
	ctrl := gomock.NewController(t)
	dev := NewMockDevice(ctrl)

	buf := make([]byte, SectorSize)
	dev.EXPECT().ReadSectors(uint32(0), uint32(1), buf).Return(nil)
	dev.EXPECT().SectorCount().Return(uint32(2048))
	dev.EXPECT().SectorSize().Return(uint32(SectorSize))

	if err := dev.ReadSectors(0, 1, buf); err != nil {
		t.Fatalf("ReadSectors failed: %v", err)
	}
	if dev.SectorCount() != 2048 {
		t.Fatal("unexpected sector count")
	}
	if dev.SectorSize() != SectorSize {
		t.Fatal("unexpected sector size")
	}
}

func TestRamdiskReadWriteRoundTrip(t *testing.T) {
	rd := NewRamdisk(4096)

	want := make([]byte, SectorSize)
	for i := range want {
		want[i] = byte(i)
	}

	if err := rd.WriteSectors(1, 1, want); err != nil {
		t.Fatalf("WriteSectors failed: %v", err)
	}

	got := make([]byte, SectorSize)
	if err := rd.ReadSectors(1, 1, got); err != nil {
		t.Fatalf("ReadSectors failed: %v", err)
	}

	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("byte %d: got %#x want %#x", i, got[i], want[i])
		}
	}
}

func TestRamdiskOutOfBoundsFails(t *testing.T) {
	rd := NewRamdisk(1024)
	buf := make([]byte, SectorSize)
	if err := rd.ReadSectors(rd.SectorCount(), 1, buf); err == nil {
		t.Fatal("expected out-of-range read to fail")
	}
	if err := rd.WriteSectors(rd.SectorCount(), 1, buf); err == nil {
		t.Fatal("expected out-of-range write to fail")
	}
}

func TestRamdiskLoadImageRejectsOversizedBlob(t *testing.T) {
	rd := NewRamdisk(SectorSize)
	blob := make([]byte, SectorSize*2)
	if err := rd.LoadImage(blob); err == nil {
		t.Fatal("expected oversized image load to fail")
	}
}

func TestRamdiskLoadImageCopiesFromOffsetZero(t *testing.T) {
	rd := NewRamdisk(SectorSize)
	blob := []byte("ext2-superblock-stand-in")
	if err := rd.LoadImage(blob); err != nil {
		t.Fatalf("LoadImage failed: %v", err)
	}

	sector := make([]byte, SectorSize)
	if err := rd.ReadSectors(0, 1, sector); err != nil {
		t.Fatalf("ReadSectors failed: %v", err)
	}
	if got := sector[:len(blob)]; string(got) != string(blob) {
		t.Fatalf("got %q at offset 0, want %q", got, blob)
	}
}

func TestDefaultRamdiskSizeWhenZeroRequested(t *testing.T) {
	rd := NewRamdisk(0)
	if rd.SectorCount()*SectorSize != DefaultRamdiskBytes {
		t.Fatalf("expected default size %d bytes, got %d", DefaultRamdiskBytes, rd.SectorCount()*SectorSize)
	}
}
