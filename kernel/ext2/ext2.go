package ext2

import (
	"bytes"
	"encoding/binary"

	"github.com/Jithub-4pf/NanOS/kernel"
	"github.com/Jithub-4pf/NanOS/kernel/block"
)

var (
	errNotMounted    = &kernel.Error{Module: "ext2", Message: "filesystem not mounted"}
	errBadMagic      = &kernel.Error{Module: "ext2", Message: "bad superblock magic"}
	errNoSpace       = &kernel.Error{Module: "ext2", Message: "no free blocks or inodes"}
	errNotFound      = &kernel.Error{Module: "ext2", Message: "no such directory entry"}
	errNotDir        = &kernel.Error{Module: "ext2", Message: "not a directory"}
	errNotSymlink    = &kernel.Error{Module: "ext2", Message: "not a symbolic link"}
	errBadArg        = &kernel.Error{Module: "ext2", Message: "invalid argument"}
	errIndirectOnly  = &kernel.Error{Module: "ext2", Message: "double-indirect blocks are not supported"}
)

// FileSystem is a mounted ext2 volume over a block.Device.
type FileSystem struct {
	dev             block.Device
	sb              Superblock
	groups          []GroupDescriptor
	blockSize       uint32
	blocksPerGroup  uint32
	inodesPerGroup  uint32
	numBlockGroups  uint32
}

const inodeSize = 128 // revision-0 fixed inode size

// Mount reads the superblock and group descriptor table off dev and
// returns a ready-to-use FileSystem.
func Mount(dev block.Device) (*FileSystem, *kernel.Error) {
	fs := &FileSystem{dev: dev}

	sbBlock := SuperblockOffset / dev.SectorSize()
	raw := make([]byte, 1024)
	if err := dev.ReadSectors(sbBlock, 1024/dev.SectorSize(), raw); err != nil {
		return nil, err
	}
	if err := readStruct(raw, &fs.sb); err != nil {
		return nil, &kernel.Error{Module: "ext2", Message: err.Error()}
	}
	if fs.sb.SMagic != Magic {
		return nil, errBadMagic
	}

	fs.blockSize = fs.sb.BlockSize()
	fs.blocksPerGroup = fs.sb.SBlocksPerGroup
	fs.inodesPerGroup = fs.sb.SInodesPerGroup
	fs.numBlockGroups = (fs.sb.SBlocksCount + fs.blocksPerGroup - 1) / fs.blocksPerGroup

	const groupDescSize = 32
	bgdBytes := fs.numBlockGroups * groupDescSize
	bgdBlocks := (bgdBytes + fs.blockSize - 1) / fs.blockSize
	buf := make([]byte, bgdBlocks*fs.blockSize)
	if err := fs.readBlocks(fs.sb.SFirstDataBlock+1, bgdBlocks, buf); err != nil {
		return nil, err
	}

	fs.groups = make([]GroupDescriptor, fs.numBlockGroups)
	for g := uint32(0); g < fs.numBlockGroups; g++ {
		if err := readStruct(buf[g*groupDescSize:(g+1)*groupDescSize], &fs.groups[g]); err != nil {
			return nil, &kernel.Error{Module: "ext2", Message: err.Error()}
		}
	}

	return fs, nil
}

func readStruct(raw []byte, v interface{}) error {
	return binary.Read(bytes.NewReader(raw), binary.LittleEndian, v)
}

func writeStructInto(dst []byte, v interface{}) error {
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, v); err != nil {
		return err
	}
	copy(dst, buf.Bytes())
	return nil
}

// readBlocks reads count filesystem blocks starting at block into buffer,
// converting to the underlying device's sector size.
func (fs *FileSystem) readBlocks(blockNum, count uint32, buffer []byte) *kernel.Error {
	sectorsPerBlock := fs.blockSize / fs.dev.SectorSize()
	return fs.dev.ReadSectors(blockNum*sectorsPerBlock, count*sectorsPerBlock, buffer)
}

// writeBlocks writes count filesystem blocks starting at block from buffer.
func (fs *FileSystem) writeBlocks(blockNum, count uint32, buffer []byte) *kernel.Error {
	sectorsPerBlock := fs.blockSize / fs.dev.SectorSize()
	return fs.dev.WriteSectors(blockNum*sectorsPerBlock, count*sectorsPerBlock, buffer)
}

// writeBackSuperblock flushes the in-memory superblock to disk. Every
// allocator call below does this immediately rather than deferring it —
// write-through superblock updates, since this core has no unmount/flush
// lifecycle hook to defer to.
func (fs *FileSystem) writeBackSuperblock() *kernel.Error {
	raw := make([]byte, 1024)
	if err := writeStructInto(raw, &fs.sb); err != nil {
		return &kernel.Error{Module: "ext2", Message: err.Error()}
	}
	sbBlock := SuperblockOffset / fs.dev.SectorSize()
	return fs.dev.WriteSectors(sbBlock, 1024/fs.dev.SectorSize(), raw)
}

// writeBackGroupDesc flushes group g's descriptor to disk, write-through.
func (fs *FileSystem) writeBackGroupDesc(g uint32) *kernel.Error {
	const groupDescSize = 32
	bgdBlocks := (fs.numBlockGroups*groupDescSize + fs.blockSize - 1) / fs.blockSize
	buf := make([]byte, bgdBlocks*fs.blockSize)
	if err := fs.readBlocks(fs.sb.SFirstDataBlock+1, bgdBlocks, buf); err != nil {
		return err
	}
	if err := writeStructInto(buf[g*groupDescSize:(g+1)*groupDescSize], &fs.groups[g]); err != nil {
		return &kernel.Error{Module: "ext2", Message: err.Error()}
	}
	return fs.writeBlocks(fs.sb.SFirstDataBlock+1, bgdBlocks, buf)
}

// ReadInode loads inode inodeNum (1-based) from the inode table.
func (fs *FileSystem) ReadInode(inodeNum uint32) (*Inode, *kernel.Error) {
	if inodeNum == 0 {
		return nil, errBadArg
	}
	group := (inodeNum - 1) / fs.inodesPerGroup
	offset := (inodeNum - 1) % fs.inodesPerGroup
	if group >= fs.numBlockGroups {
		return nil, errBadArg
	}

	inodesPerBlock := fs.blockSize / inodeSize
	blockOffset := offset / inodesPerBlock
	inodeOffset := offset % inodesPerBlock

	buf := make([]byte, fs.blockSize)
	if err := fs.readBlocks(fs.groups[group].BgInodeTable+blockOffset, 1, buf); err != nil {
		return nil, err
	}

	var ino Inode
	start := inodeOffset * inodeSize
	if err := readStruct(buf[start:start+inodeSize], &ino); err != nil {
		return nil, &kernel.Error{Module: "ext2", Message: err.Error()}
	}
	return &ino, nil
}

// WriteInode stores inode back to the inode table at inodeNum.
func (fs *FileSystem) WriteInode(inodeNum uint32, ino *Inode) *kernel.Error {
	if inodeNum == 0 {
		return errBadArg
	}
	group := (inodeNum - 1) / fs.inodesPerGroup
	offset := (inodeNum - 1) % fs.inodesPerGroup
	if group >= fs.numBlockGroups {
		return errBadArg
	}

	inodesPerBlock := fs.blockSize / inodeSize
	blockOffset := offset / inodesPerBlock
	inodeOffset := offset % inodesPerBlock

	buf := make([]byte, fs.blockSize)
	tableBlock := fs.groups[group].BgInodeTable + blockOffset
	if err := fs.readBlocks(tableBlock, 1, buf); err != nil {
		return err
	}

	start := inodeOffset * inodeSize
	if err := writeStructInto(buf[start:start+inodeSize], ino); err != nil {
		return &kernel.Error{Module: "ext2", Message: err.Error()}
	}
	return fs.writeBlocks(tableBlock, 1, buf)
}

// dataBlockNum resolves logical block blockIndex of inode to a physical
// block number, following direct pointers and, for block indices beyond
// the 12 direct slots, the single indirect block. Double-indirect blocks
// are not implemented, matching the original driver.
func (fs *FileSystem) dataBlockNum(ino *Inode, blockIndex uint32) (uint32, *kernel.Error) {
	if blockIndex < 12 {
		return ino.IBlock[blockIndex], nil
	}

	addrPerBlock := fs.blockSize / 4
	if blockIndex < 12+addrPerBlock {
		indirect := ino.IBlock[12]
		if indirect == 0 {
			return 0, errNotFound
		}
		buf := make([]byte, fs.blockSize)
		if err := fs.readBlocks(indirect, 1, buf); err != nil {
			return 0, err
		}
		idx := blockIndex - 12
		return binary.LittleEndian.Uint32(buf[idx*4 : idx*4+4]), nil
	}

	return 0, errIndirectOnly
}

// BlockSize returns the filesystem's block size, for callers (the VFS
// facade) that need to size their own buffers.
func (fs *FileSystem) BlockSize() uint32 {
	return fs.blockSize
}

// ReadDataBlockRaw reads one physical block by number, bypassing inode
// indirection — for callers that already hold a resolved block number.
func (fs *FileSystem) ReadDataBlockRaw(blockNum uint32, buffer []byte) *kernel.Error {
	return fs.readBlocks(blockNum, 1, buffer)
}

// WriteDataBlockRaw writes one physical block by number.
func (fs *FileSystem) WriteDataBlockRaw(blockNum uint32, buffer []byte) *kernel.Error {
	return fs.writeBlocks(blockNum, 1, buffer)
}

func (fs *FileSystem) readDataBlock(ino *Inode, blockIndex uint32, buffer []byte) *kernel.Error {
	blockNum, err := fs.dataBlockNum(ino, blockIndex)
	if err != nil {
		return err
	}
	if blockNum == 0 {
		return errNotFound
	}
	return fs.readBlocks(blockNum, 1, buffer)
}

// ReadFile reads up to len(buffer) bytes of ino's data starting at offset,
// clamped to the inode's recorded size, and returns the number of bytes
// actually read.
func (fs *FileSystem) ReadFile(ino *Inode, offset uint32, buffer []byte) (int, *kernel.Error) {
	if offset >= ino.ISize {
		return 0, nil
	}
	size := uint32(len(buffer))
	if offset+size > ino.ISize {
		size = ino.ISize - offset
	}

	var read uint32
	blockBuf := make([]byte, fs.blockSize)
	for read < size {
		blockIndex := (offset + read) / fs.blockSize
		blockOffset := (offset + read) % fs.blockSize
		toRead := fs.blockSize - blockOffset
		if toRead > size-read {
			toRead = size - read
		}

		if err := fs.readDataBlock(ino, blockIndex, blockBuf); err != nil {
			return int(read), err
		}
		copy(buffer[read:read+toRead], blockBuf[blockOffset:blockOffset+toRead])
		read += toRead
	}
	return int(read), nil
}

func parseDirEntries(buf []byte, size uint32) []DirEntry {
	var entries []DirEntry
	var offset uint32
	for offset < size {
		header := buf[offset : offset+dirEntryHeaderSize]
		recLen := binary.LittleEndian.Uint16(header[4:6])
		if recLen == 0 {
			break
		}
		inode := binary.LittleEndian.Uint32(header[0:4])
		nameLen := header[6]
		fileType := header[7]
		name := string(buf[offset+dirEntryHeaderSize : offset+dirEntryHeaderSize+uint32(nameLen)])
		entries = append(entries, DirEntry{
			Inode:    inode,
			RecLen:   recLen,
			NameLen:  nameLen,
			FileType: fileType,
			Name:     name,
		})
		offset += uint32(recLen)
	}
	return entries
}

// ListDir returns every non-empty directory entry in dirInode.
func (fs *FileSystem) ListDir(dirInode *Inode) ([]DirEntry, *kernel.Error) {
	if !dirInode.IsDir() {
		return nil, errNotDir
	}
	buf := make([]byte, dirInode.ISize)
	n, err := fs.ReadFile(dirInode, 0, buf)
	if err != nil {
		return nil, err
	}
	if uint32(n) != dirInode.ISize {
		return nil, &kernel.Error{Module: "ext2", Message: "short read of directory block"}
	}

	var out []DirEntry
	for _, e := range parseDirEntries(buf, dirInode.ISize) {
		if e.Inode != 0 {
			out = append(out, e)
		}
	}
	return out, nil
}

// FindDirEntry looks up name inside dirInode.
func (fs *FileSystem) FindDirEntry(dirInode *Inode, name string) (uint32, *kernel.Error) {
	entries, err := fs.ListDir(dirInode)
	if err != nil {
		return 0, err
	}
	for _, e := range entries {
		if e.Name == name {
			return e.Inode, nil
		}
	}
	return 0, errNotFound
}

// IsDirEmpty reports whether dirInode has no entries other than "." and
// "..".
func (fs *FileSystem) IsDirEmpty(dirInode *Inode) (bool, *kernel.Error) {
	entries, err := fs.ListDir(dirInode)
	if err != nil {
		return false, err
	}
	for _, e := range entries {
		if e.Name != "." && e.Name != ".." {
			return false, nil
		}
	}
	return true, nil
}

// ReadSymlink returns the target path stored in a symlink inode. Short
// targets (<=60 bytes) are stored inline in IBlock; longer ones spill into
// regular data blocks.
func (fs *FileSystem) ReadSymlink(ino *Inode) (string, *kernel.Error) {
	if !ino.IsSymlink() {
		return "", errNotSymlink
	}
	linkLen := ino.ISize
	if linkLen <= 60 {
		raw := make([]byte, 60)
		if err := writeStructInto(raw, &ino.IBlock); err != nil {
			return "", &kernel.Error{Module: "ext2", Message: err.Error()}
		}
		return string(raw[:linkLen]), nil
	}
	buf := make([]byte, linkLen)
	n, err := fs.ReadFile(ino, 0, buf)
	if err != nil {
		return "", err
	}
	return string(buf[:n]), nil
}

// PathToInode resolves an absolute path to its inode number, walking one
// component at a time from the root. It does not follow symlinks — that
// policy lives in the VFS facade.
func (fs *FileSystem) PathToInode(path string) (uint32, *kernel.Error) {
	if path == "/" || path == "" {
		return RootInode, nil
	}
	if path[0] == '/' {
		path = path[1:]
	}

	current := uint32(RootInode)
	start := 0
	for i := 0; i <= len(path); i++ {
		if i == len(path) || path[i] == '/' {
			if i > start {
				component := path[start:i]
				dirInode, err := fs.ReadInode(current)
				if err != nil {
					return 0, err
				}
				next, err := fs.FindDirEntry(dirInode, component)
				if err != nil {
					return 0, err
				}
				current = next
			}
			start = i + 1
		}
	}
	return current, nil
}

// ModeToString renders mode the way `ls -l`/`stat` would: a type character
// followed by nine rwx permission characters.
func ModeToString(mode uint16) string {
	out := make([]byte, 10)
	switch {
	case mode&ModeTypeMask == ModeDir:
		out[0] = 'd'
	case mode&ModeTypeMask == ModeSymlink:
		out[0] = 'l'
	default:
		out[0] = '-'
	}
	bits := []struct {
		mask uint16
		ch   byte
	}{
		{0400, 'r'}, {0200, 'w'}, {0100, 'x'},
		{040, 'r'}, {020, 'w'}, {010, 'x'},
		{04, 'r'}, {02, 'w'}, {01, 'x'},
	}
	for i, b := range bits {
		if mode&b.mask != 0 {
			out[i+1] = b.ch
		} else {
			out[i+1] = '-'
		}
	}
	return string(out)
}

// FormatUptime renders a Unix-epoch-style tick/second count as
// "[Nd ]HH:MM:SS", matching ext2_format_time's layout.
func FormatUptime(totalSeconds uint32) string {
	seconds := totalSeconds % 60
	minutes := (totalSeconds / 60) % 60
	hours := (totalSeconds / 3600) % 24
	days := totalSeconds / 86400

	digits := func(n uint32) string {
		s := ""
		if n == 0 {
			return "0"
		}
		for n > 0 {
			s = string(byte('0'+n%10)) + s
			n /= 10
		}
		return s
	}
	pad2 := func(n uint32) string {
		s := digits(n)
		if len(s) < 2 {
			s = "0" + s
		}
		return s
	}

	prefix := ""
	if days > 0 {
		prefix = digits(days) + "d "
	}
	return prefix + pad2(hours) + ":" + pad2(minutes) + ":" + pad2(seconds)
}
