package ext2

import (
	"encoding/binary"

	"github.com/Jithub-4pf/NanOS/kernel"
)

// AllocBlock finds and claims the first free data block across all block
// groups, in group order. Every allocation is write-through: the bitmap,
// the owning group descriptor, and the superblock's free-block count are
// all flushed to disk before AllocBlock returns, per this core's resolved
// policy of never deferring metadata updates.
func (fs *FileSystem) AllocBlock() (uint32, *kernel.Error) {
	bitmap := make([]byte, fs.blockSize)
	for group := uint32(0); group < fs.numBlockGroups; group++ {
		if err := fs.readBlocks(fs.groups[group].BgBlockBitmap, 1, bitmap); err != nil {
			continue
		}
		for i := uint32(0); i < fs.blocksPerGroup; i++ {
			byteIdx, bit := i/8, i%8
			if bitmap[byteIdx]&(1<<bit) != 0 {
				continue
			}
			bitmap[byteIdx] |= 1 << bit
			if err := fs.writeBlocks(fs.groups[group].BgBlockBitmap, 1, bitmap); err != nil {
				continue
			}
			fs.groups[group].BgFreeBlocksCount--
			fs.sb.SFreeBlocksCount--
			if err := fs.writeBackGroupDesc(group); err != nil {
				return 0, err
			}
			if err := fs.writeBackSuperblock(); err != nil {
				return 0, err
			}
			return group*fs.blocksPerGroup + i + fs.sb.SFirstDataBlock, nil
		}
	}
	return 0, errNoSpace
}

// FreeBlock releases blockNum back to its group's bitmap, write-through.
func (fs *FileSystem) FreeBlock(blockNum uint32) *kernel.Error {
	if blockNum < fs.sb.SFirstDataBlock {
		return errBadArg
	}
	rel := blockNum - fs.sb.SFirstDataBlock
	group := rel / fs.blocksPerGroup
	index := rel % fs.blocksPerGroup

	bitmap := make([]byte, fs.blockSize)
	if err := fs.readBlocks(fs.groups[group].BgBlockBitmap, 1, bitmap); err != nil {
		return err
	}
	byteIdx, bit := index/8, index%8
	bitmap[byteIdx] &^= 1 << bit
	if err := fs.writeBlocks(fs.groups[group].BgBlockBitmap, 1, bitmap); err != nil {
		return err
	}

	fs.groups[group].BgFreeBlocksCount++
	fs.sb.SFreeBlocksCount++
	if err := fs.writeBackGroupDesc(group); err != nil {
		return err
	}
	return fs.writeBackSuperblock()
}

// AllocInode finds and claims the first free inode across all block
// groups, write-through like AllocBlock.
func (fs *FileSystem) AllocInode() (uint32, *kernel.Error) {
	bitmap := make([]byte, fs.blockSize)
	for group := uint32(0); group < fs.numBlockGroups; group++ {
		if err := fs.readBlocks(fs.groups[group].BgInodeBitmap, 1, bitmap); err != nil {
			continue
		}
		for i := uint32(0); i < fs.inodesPerGroup; i++ {
			byteIdx, bit := i/8, i%8
			if bitmap[byteIdx]&(1<<bit) != 0 {
				continue
			}
			bitmap[byteIdx] |= 1 << bit
			if err := fs.writeBlocks(fs.groups[group].BgInodeBitmap, 1, bitmap); err != nil {
				continue
			}
			fs.groups[group].BgFreeInodesCount--
			fs.sb.SFreeInodesCount--
			if err := fs.writeBackGroupDesc(group); err != nil {
				return 0, err
			}
			if err := fs.writeBackSuperblock(); err != nil {
				return 0, err
			}
			return group*fs.inodesPerGroup + i + 1, nil
		}
	}
	return 0, errNoSpace
}

// FreeInode releases inodeNum back to its group's bitmap, write-through.
func (fs *FileSystem) FreeInode(inodeNum uint32) *kernel.Error {
	if inodeNum == 0 {
		return errBadArg
	}
	group := (inodeNum - 1) / fs.inodesPerGroup
	index := (inodeNum - 1) % fs.inodesPerGroup

	bitmap := make([]byte, fs.blockSize)
	if err := fs.readBlocks(fs.groups[group].BgInodeBitmap, 1, bitmap); err != nil {
		return err
	}
	byteIdx, bit := index/8, index%8
	bitmap[byteIdx] &^= 1 << bit
	if err := fs.writeBlocks(fs.groups[group].BgInodeBitmap, 1, bitmap); err != nil {
		return err
	}

	fs.groups[group].BgFreeInodesCount++
	fs.sb.SFreeInodesCount++
	if err := fs.writeBackGroupDesc(group); err != nil {
		return err
	}
	return fs.writeBackSuperblock()
}

// alignUp4 rounds n up to the next multiple of 4, matching the directory
// entry padding rule.
func alignUp4(n uint32) uint32 {
	return (n + 3) &^ 3
}

func putDirEntry(block []byte, offset uint32, inode uint32, recLen uint16, name string, fileType uint8) {
	binary.LittleEndian.PutUint32(block[offset:offset+4], inode)
	binary.LittleEndian.PutUint16(block[offset+4:offset+6], recLen)
	block[offset+6] = byte(len(name))
	block[offset+7] = fileType
	copy(block[offset+dirEntryHeaderSize:], name)
}

// AddDirEntry inserts a new directory entry for newInodeNum named name
// into dirInode, splitting slack out of an existing entry's record if one
// has room, or allocating a fresh directory block otherwise. dirInode is
// mutated (ISize may grow) and its on-disk copy is rewritten.
func (fs *FileSystem) AddDirEntry(dirInode *Inode, dirInodeNum, newInodeNum uint32, name string, fileType uint8) *kernel.Error {
	nameLen := uint32(len(name))
	if nameLen == 0 || nameLen > 255 {
		return errBadArg
	}

	required := dirEntryHeaderSize + alignUp4(nameLen)
	blockCount := (dirInode.ISize + fs.blockSize - 1) / fs.blockSize
	buf := make([]byte, fs.blockSize)

	for b := uint32(0); b < blockCount; b++ {
		if err := fs.readDataBlock(dirInode, b, buf); err != nil {
			continue
		}
		var offset uint32
		for offset < fs.blockSize {
			recLen := binary.LittleEndian.Uint16(buf[offset+4 : offset+6])
			if recLen == 0 {
				break
			}
			existingNameLen := uint32(buf[offset+6])
			actualLen := dirEntryHeaderSize + alignUp4(existingNameLen)
			if uint32(recLen) >= actualLen+required {
				newRecLen := uint16(uint32(recLen) - actualLen)
				binary.LittleEndian.PutUint16(buf[offset+4:offset+6], uint16(actualLen))
				putDirEntry(buf, offset+actualLen, newInodeNum, newRecLen, name, fileType)

				blockNum, derr := fs.dataBlockNum(dirInode, b)
				if derr != nil {
					return derr
				}
				return fs.writeBlocks(blockNum, 1, buf)
			}
			offset += uint32(recLen)
		}
	}

	newBlock, err := fs.AllocBlock()
	if err != nil {
		return err
	}
	for i := range buf {
		buf[i] = 0
	}
	putDirEntry(buf, 0, newInodeNum, uint16(fs.blockSize), name, fileType)

	slot := -1
	for i := 0; i < 12; i++ {
		if dirInode.IBlock[i] == 0 {
			slot = i
			break
		}
	}
	if slot < 0 {
		return errIndirectOnly
	}
	dirInode.IBlock[slot] = newBlock
	dirInode.ISize += fs.blockSize

	if err := fs.writeBlocks(newBlock, 1, buf); err != nil {
		return err
	}
	return fs.WriteInode(dirInodeNum, dirInode)
}

// RemoveDirEntry deletes the entry named name from dirInode. If it is not
// the first entry in its block, its record length is folded into the
// preceding entry's; otherwise the slot's inode field is simply zeroed,
// matching the original driver (the leading entry's record length is
// reused by a later AddDirEntry's slack-splitting logic).
func (fs *FileSystem) RemoveDirEntry(dirInode *Inode, dirInodeNum uint32, name string) *kernel.Error {
	nameLen := len(name)
	if nameLen == 0 || nameLen > 255 {
		return errBadArg
	}

	blockCount := (dirInode.ISize + fs.blockSize - 1) / fs.blockSize
	buf := make([]byte, fs.blockSize)

	for b := uint32(0); b < blockCount; b++ {
		if err := fs.readDataBlock(dirInode, b, buf); err != nil {
			continue
		}
		var offset uint32
		var prevOffset uint32
		havePrev := false
		for offset < fs.blockSize {
			recLen := binary.LittleEndian.Uint16(buf[offset+4 : offset+6])
			if recLen == 0 {
				break
			}
			inode := binary.LittleEndian.Uint32(buf[offset : offset+4])
			entryNameLen := buf[offset+6]
			entryName := string(buf[offset+dirEntryHeaderSize : offset+dirEntryHeaderSize+uint32(entryNameLen)])

			if inode != 0 && int(entryNameLen) == nameLen && entryName == name {
				if havePrev {
					prevRecLen := binary.LittleEndian.Uint16(buf[prevOffset+4 : prevOffset+6])
					binary.LittleEndian.PutUint16(buf[prevOffset+4:prevOffset+6], prevRecLen+recLen)
				} else {
					binary.LittleEndian.PutUint32(buf[offset:offset+4], 0)
				}
				blockNum, derr := fs.dataBlockNum(dirInode, b)
				if derr != nil {
					return derr
				}
				return fs.writeBlocks(blockNum, 1, buf)
			}
			prevOffset = offset
			havePrev = true
			offset += uint32(recLen)
		}
	}
	return errNotFound
}
