package ext2

import (
	"github.com/Jithub-4pf/NanOS/kernel"
	"github.com/Jithub-4pf/NanOS/kernel/block"
)

// Format writes a fresh, minimal ext2 filesystem to dev and mounts it.
// It always produces a single block group — the bitmap block's 8192-bit
// capacity (at the 1024-byte block size used here) comfortably covers
// every ramdisk size this core actually creates, so multi-group volumes
// are out of scope. tools/mkimage and the vfs and shell tests go through
// this instead of hand-building an image (the ext2 package's own tests
// assemble theirs field by field), the way a real mke2fs would be
// the one place that understands the on-disk layout well enough to lay
// one out from scratch.
func Format(dev block.Device) (*FileSystem, *kernel.Error) {
	const blockSize = MinBlockSize

	totalBytes := uint64(dev.SectorCount()) * uint64(dev.SectorSize())
	totalBlocks := uint32(totalBytes / blockSize)
	if totalBlocks < 16 {
		return nil, &kernel.Error{Module: "ext2", Message: "device too small to format"}
	}
	if totalBlocks > 8*blockSize {
		totalBlocks = 8 * blockSize // stay inside one bitmap block's coverage
	}

	inodesPerGroup := totalBlocks / 4
	if inodesPerGroup < 16 {
		inodesPerGroup = 16
	}
	inodeTableBlocks := (inodesPerGroup*inodeSize + blockSize - 1) / blockSize

	const (
		blockBitmapBlock = 3
		inodeBitmapBlock = 4
		inodeTableStart  = 5
	)
	rootDataBlock := inodeTableStart + inodeTableBlocks
	firstFreeDataBlock := rootDataBlock + 1
	metadataBlocks := firstFreeDataBlock // blocks [0, metadataBlocks) are all spoken for

	sb := Superblock{
		SInodesCount:     inodesPerGroup,
		SBlocksCount:     totalBlocks,
		SFreeBlocksCount: totalBlocks - metadataBlocks,
		SFreeInodesCount: inodesPerGroup - FirstFreeInode + 1,
		SFirstDataBlock:  1,
		SLogBlockSize:    0,
		SBlocksPerGroup:  totalBlocks,
		SFragsPerGroup:   totalBlocks,
		SInodesPerGroup:  inodesPerGroup,
		SMagic:           Magic,
		SState:           1,
		SRevLevel:        0,
	}
	gd := GroupDescriptor{
		BgBlockBitmap:     blockBitmapBlock,
		BgInodeBitmap:     inodeBitmapBlock,
		BgInodeTable:      inodeTableStart,
		BgFreeBlocksCount: uint16(totalBlocks - metadataBlocks),
		BgFreeInodesCount: uint16(inodesPerGroup - FirstFreeInode + 1),
		BgUsedDirsCount:   1,
	}

	sbRaw := make([]byte, 1024)
	if err := writeStructInto(sbRaw, &sb); err != nil {
		return nil, &kernel.Error{Module: "ext2", Message: err.Error()}
	}
	if err := dev.WriteSectors(SuperblockOffset/dev.SectorSize(), 1024/dev.SectorSize(), sbRaw); err != nil {
		return nil, err
	}

	sectorsPerBlock := blockSize / dev.SectorSize()
	writeBlock := func(blockNum uint32, data []byte) *kernel.Error {
		return dev.WriteSectors(blockNum*sectorsPerBlock, sectorsPerBlock, data)
	}

	gdBlock := make([]byte, blockSize)
	if err := writeStructInto(gdBlock, &gd); err != nil {
		return nil, &kernel.Error{Module: "ext2", Message: err.Error()}
	}
	if err := writeBlock(2, gdBlock); err != nil {
		return nil, err
	}

	blockBitmap := make([]byte, blockSize)
	for b := uint32(0); b < metadataBlocks-1; b++ {
		blockBitmap[b/8] |= 1 << (b % 8) // bit i == block i+1 (SFirstDataBlock offset)
	}
	if err := writeBlock(blockBitmapBlock, blockBitmap); err != nil {
		return nil, err
	}

	inodeBitmap := make([]byte, blockSize)
	for i := uint32(0); i < FirstFreeInode-1; i++ {
		inodeBitmap[i/8] |= 1 << (i % 8)
	}
	if err := writeBlock(inodeBitmapBlock, inodeBitmap); err != nil {
		return nil, err
	}

	for b := uint32(0); b < inodeTableBlocks; b++ {
		if err := writeBlock(inodeTableStart+b, make([]byte, blockSize)); err != nil {
			return nil, err
		}
	}

	rootInode := Inode{
		IMode:       ModeDir | 0755,
		ILinksCount: 2,
		ISize:       blockSize,
	}
	rootInode.IBlock[0] = rootDataBlock
	rootRaw := make([]byte, inodeSize)
	if err := writeStructInto(rootRaw, &rootInode); err != nil {
		return nil, &kernel.Error{Module: "ext2", Message: err.Error()}
	}
	inodeTableBlock0 := make([]byte, blockSize)
	copy(inodeTableBlock0[inodeSize:], rootRaw) // RootInode==2 sits in the second slot
	if err := writeBlock(inodeTableStart, inodeTableBlock0); err != nil {
		return nil, err
	}

	dirBlock := make([]byte, blockSize)
	putDirEntry(dirBlock, 0, RootInode, 12, ".", FileTypeDir)
	putDirEntry(dirBlock, 12, RootInode, uint16(blockSize-12), "..", FileTypeDir)
	if err := writeBlock(rootDataBlock, dirBlock); err != nil {
		return nil, err
	}

	return Mount(dev)
}
