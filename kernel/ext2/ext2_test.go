package ext2

import (
	"testing"

	"github.com/Jithub-4pf/NanOS/kernel/block"
)

// buildMinimalImage hand-assembles a tiny but structurally real ext2
// image: one block group, 1024-byte blocks, 64 total blocks, 16 inodes.
// Layout: block 0 boot, block 1 superblock, block 2 group descriptor
// table, block 3 block bitmap, block 4 inode bitmap, blocks 5-6 inode
// table, block 7 root directory data, blocks 8-63 free.
func buildMinimalImage(t *testing.T) *block.Ramdisk {
	t.Helper()
	const (
		blockSize      = 1024
		totalBlocks    = 64
		inodesPerGroup = 16
	)

	rd := block.NewRamdisk(totalBlocks * blockSize)

	sb := Superblock{
		SInodesCount:     inodesPerGroup,
		SBlocksCount:     totalBlocks,
		SFreeBlocksCount: 56,
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
	sbRaw := make([]byte, 1024)
	if err := writeStructInto(sbRaw, &sb); err != nil {
		t.Fatalf("encode superblock: %v", err)
	}
	if err := rd.WriteSectors(1024/rd.SectorSize(), 1024/rd.SectorSize(), sbRaw); err != nil {
		t.Fatalf("write superblock: %v", err)
	}

	gd := GroupDescriptor{
		BgBlockBitmap:     3,
		BgInodeBitmap:     4,
		BgInodeTable:      5,
		BgFreeBlocksCount: 56,
		BgFreeInodesCount: inodesPerGroup - FirstFreeInode + 1,
		BgUsedDirsCount:   1,
	}
	gdBlock := make([]byte, blockSize)
	if err := writeStructInto(gdBlock, &gd); err != nil {
		t.Fatalf("encode group descriptor: %v", err)
	}
	writeBlockRaw(t, rd, 2, gdBlock)

	blockBitmap := make([]byte, blockSize)
	for b := 0; b <= 6; b++ {
		blockBitmap[b/8] |= 1 << (b % 8) // blocks 1..7 used (bit i = block i+1)
	}
	writeBlockRaw(t, rd, 3, blockBitmap)

	inodeBitmap := make([]byte, blockSize)
	for i := 0; i < FirstFreeInode-1; i++ {
		inodeBitmap[i/8] |= 1 << (i % 8) // inodes 1..10 reserved
	}
	writeBlockRaw(t, rd, 4, inodeBitmap)

	rootInode := Inode{
		IMode:       ModeDir | 0755,
		ILinksCount: 2,
		ISize:       blockSize,
	}
	rootInode.IBlock[0] = 7
	inodeTableBlock := make([]byte, blockSize)
	ino2Raw := make([]byte, inodeSize)
	if err := writeStructInto(ino2Raw, &rootInode); err != nil {
		t.Fatalf("encode root inode: %v", err)
	}
	copy(inodeTableBlock[inodeSize:], ino2Raw) // inode 2 is the second slot in block 5
	writeBlockRaw(t, rd, 5, inodeTableBlock)
	writeBlockRaw(t, rd, 6, make([]byte, blockSize))

	dirBlock := make([]byte, blockSize)
	putDirEntry(dirBlock, 0, RootInode, 12, ".", FileTypeDir)
	putDirEntry(dirBlock, 12, RootInode, uint16(blockSize-12), "..", FileTypeDir)
	writeBlockRaw(t, rd, 7, dirBlock)

	return rd
}

func writeBlockRaw(t *testing.T, rd *block.Ramdisk, blockNum uint32, data []byte) {
	t.Helper()
	sectorsPerBlock := uint32(len(data)) / rd.SectorSize()
	if err := rd.WriteSectors(blockNum*sectorsPerBlock, sectorsPerBlock, data); err != nil {
		t.Fatalf("write block %d: %v", blockNum, err)
	}
}

func mustMount(t *testing.T, rd *block.Ramdisk) *FileSystem {
	t.Helper()
	fs, err := Mount(rd)
	if err != nil {
		t.Fatalf("Mount: %v", err)
	}
	return fs
}

func TestMountParsesSuperblockAndGroupDescriptor(t *testing.T) {
	fs := mustMount(t, buildMinimalImage(t))
	if fs.sb.SMagic != Magic {
		t.Fatalf("got magic %#x, want %#x", fs.sb.SMagic, Magic)
	}
	if fs.numBlockGroups != 1 {
		t.Fatalf("got %d block groups, want 1", fs.numBlockGroups)
	}
	if fs.groups[0].BgInodeTable != 5 {
		t.Fatalf("got inode table block %d, want 5", fs.groups[0].BgInodeTable)
	}
}

func TestMountRejectsBadMagic(t *testing.T) {
	rd := buildMinimalImage(t)
	raw := make([]byte, 1024)
	rd.ReadSectors(1024/rd.SectorSize(), 1024/rd.SectorSize(), raw)
	raw[0x38] = 0 // clobber s_magic
	raw[0x39] = 0
	rd.WriteSectors(1024/rd.SectorSize(), 1024/rd.SectorSize(), raw)

	if _, err := Mount(rd); err == nil {
		t.Fatal("expected mount to fail on bad magic")
	}
}

func TestReadInodeRoot(t *testing.T) {
	fs := mustMount(t, buildMinimalImage(t))
	ino, err := fs.ReadInode(RootInode)
	if err != nil {
		t.Fatalf("ReadInode: %v", err)
	}
	if !ino.IsDir() {
		t.Fatal("expected root inode to be a directory")
	}
	if ino.IBlock[0] != 7 {
		t.Fatalf("got root data block %d, want 7", ino.IBlock[0])
	}
}

func TestListDirRoot(t *testing.T) {
	fs := mustMount(t, buildMinimalImage(t))
	ino, err := fs.ReadInode(RootInode)
	if err != nil {
		t.Fatalf("ReadInode: %v", err)
	}
	entries, err := fs.ListDir(ino)
	if err != nil {
		t.Fatalf("ListDir: %v", err)
	}
	if len(entries) != 2 || entries[0].Name != "." || entries[1].Name != ".." {
		t.Fatalf("got entries %+v, want [. ..]", entries)
	}
}

func TestPathToInodeRoot(t *testing.T) {
	fs := mustMount(t, buildMinimalImage(t))
	num, err := fs.PathToInode("/")
	if err != nil {
		t.Fatalf("PathToInode: %v", err)
	}
	if num != RootInode {
		t.Fatalf("got %d, want %d", num, RootInode)
	}
}

func TestAllocBlockClaimsFirstFreeAndPersistsCounts(t *testing.T) {
	fs := mustMount(t, buildMinimalImage(t))
	before := fs.sb.SFreeBlocksCount

	got, err := fs.AllocBlock()
	if err != nil {
		t.Fatalf("AllocBlock: %v", err)
	}
	if got != 8 {
		t.Fatalf("got block %d, want 8 (first free data block)", got)
	}
	if fs.sb.SFreeBlocksCount != before-1 {
		t.Fatalf("got free count %d, want %d", fs.sb.SFreeBlocksCount, before-1)
	}

	reread, err := Mount(fs.dev)
	if err != nil {
		t.Fatalf("remount: %v", err)
	}
	if reread.sb.SFreeBlocksCount != before-1 {
		t.Fatalf("write-through failed: reread free count %d, want %d", reread.sb.SFreeBlocksCount, before-1)
	}
}

func TestFreeBlockReleasesBitAndPersistsCounts(t *testing.T) {
	fs := mustMount(t, buildMinimalImage(t))
	blockNum, err := fs.AllocBlock()
	if err != nil {
		t.Fatalf("AllocBlock: %v", err)
	}
	before := fs.sb.SFreeBlocksCount

	if err := fs.FreeBlock(blockNum); err != nil {
		t.Fatalf("FreeBlock: %v", err)
	}
	if fs.sb.SFreeBlocksCount != before+1 {
		t.Fatalf("got free count %d, want %d", fs.sb.SFreeBlocksCount, before+1)
	}

	again, err := fs.AllocBlock()
	if err != nil {
		t.Fatalf("AllocBlock after free: %v", err)
	}
	if again != blockNum {
		t.Fatalf("got reallocated block %d, want freed block %d back", again, blockNum)
	}
}

func TestAllocInodeSkipsReservedRange(t *testing.T) {
	fs := mustMount(t, buildMinimalImage(t))
	got, err := fs.AllocInode()
	if err != nil {
		t.Fatalf("AllocInode: %v", err)
	}
	if got < FirstFreeInode {
		t.Fatalf("got inode %d, want >= %d (reserved range already marked used)", got, FirstFreeInode)
	}
}

func TestAddAndFindDirEntry(t *testing.T) {
	fs := mustMount(t, buildMinimalImage(t))
	rootIno, err := fs.ReadInode(RootInode)
	if err != nil {
		t.Fatalf("ReadInode: %v", err)
	}

	childInodeNum, err := fs.AllocInode()
	if err != nil {
		t.Fatalf("AllocInode: %v", err)
	}
	child := Inode{IMode: ModeRegular | 0644, ILinksCount: 1}
	if err := fs.WriteInode(childInodeNum, &child); err != nil {
		t.Fatalf("WriteInode: %v", err)
	}

	if err := fs.AddDirEntry(rootIno, RootInode, childInodeNum, "hello.txt", FileTypeRegular); err != nil {
		t.Fatalf("AddDirEntry: %v", err)
	}

	found, err := fs.FindDirEntry(rootIno, "hello.txt")
	if err != nil {
		t.Fatalf("FindDirEntry: %v", err)
	}
	if found != childInodeNum {
		t.Fatalf("got inode %d, want %d", found, childInodeNum)
	}
}

func TestRemoveDirEntry(t *testing.T) {
	fs := mustMount(t, buildMinimalImage(t))
	rootIno, err := fs.ReadInode(RootInode)
	if err != nil {
		t.Fatalf("ReadInode: %v", err)
	}
	childInodeNum, err := fs.AllocInode()
	if err != nil {
		t.Fatalf("AllocInode: %v", err)
	}
	child := Inode{IMode: ModeRegular | 0644, ILinksCount: 1}
	fs.WriteInode(childInodeNum, &child)
	if err := fs.AddDirEntry(rootIno, RootInode, childInodeNum, "gone.txt", FileTypeRegular); err != nil {
		t.Fatalf("AddDirEntry: %v", err)
	}

	if err := fs.RemoveDirEntry(rootIno, RootInode, "gone.txt"); err != nil {
		t.Fatalf("RemoveDirEntry: %v", err)
	}
	if _, err := fs.FindDirEntry(rootIno, "gone.txt"); err == nil {
		t.Fatal("expected entry to be gone after RemoveDirEntry")
	}
}

func TestReadSymlinkInline(t *testing.T) {
	fs := mustMount(t, buildMinimalImage(t))
	target := "/tmp"
	raw := make([]byte, 60)
	copy(raw, target)

	var ino Inode
	ino.IMode = ModeSymlink | 0777
	ino.ISize = uint32(len(target))
	if err := readStruct(raw, &ino.IBlock); err != nil {
		t.Fatalf("encode inline symlink target: %v", err)
	}

	got, err := fs.ReadSymlink(&ino)
	if err != nil {
		t.Fatalf("ReadSymlink: %v", err)
	}
	if got != target {
		t.Fatalf("got target %q, want %q", got, target)
	}
}
