// Package vfs is the facade between the shell and the ext2 driver: path
// resolution, symlink following, open file handles, and the directory
// mutation calls (create/unlink/symlink/chmod/chown) that orchestrate
// several kernel/ext2 primitives per operation. The ext2 layer itself
// knows nothing about paths or open-file state; that lives here.
package vfs

import (
	"strings"

	"github.com/Jithub-4pf/NanOS/kernel"
	"github.com/Jithub-4pf/NanOS/kernel/ext2"
)

// maxSymlinkDepth bounds symlink chains the way any real resolver must.
const maxSymlinkDepth = 8

// nowFn returns the current "uptime second" stamped onto inode
// atime/mtime/ctime fields. vfs has no scheduler of its own to read a
// tick count from, so it defaults to a zero clock and relies on a
// caller with boot-time visibility into the real clock (cmd/kernel's
// scheduler) to install the real one via SetClock — the same
// injectable-function idiom used for cpu.ActivePDT and
// invalidateTLBEntryFn.
var nowFn = func() uint32 { return 0 }

// SetClock installs the function VFS uses to stamp inode timestamps.
func SetClock(fn func() uint32) {
	nowFn = fn
}

// Type identifies what kind of node a File or Dirent names.
type Type uint32

const (
	TypeFile Type = iota + 1
	TypeDir
	TypeSymlink
)

func typeFromMode(mode uint16) Type {
	switch {
	case mode&ext2.ModeTypeMask == ext2.ModeDir:
		return TypeDir
	case mode&ext2.ModeTypeMask == ext2.ModeSymlink:
		return TypeSymlink
	default:
		return TypeFile
	}
}

// File is an open file handle: an inode plus a read/write cursor.
type File struct {
	inode    uint32
	size     uint32
	position uint32
	isOpen   bool
}

// Dirent describes one named entry as returned by Stat or ListDirectory.
type Dirent struct {
	Inode uint32
	Name  string
	Type  Type
	Size  uint32
	Mode  uint16
	Mtime uint32
	Atime uint32
	Ctime uint32
	Uid   uint16
	Gid   uint16
	Links uint16
}

var (
	errNoFS     = &kernel.Error{Module: "vfs", Message: "no filesystem mounted"}
	errBadPath  = &kernel.Error{Module: "vfs", Message: "invalid path"}
	errNotOpen  = &kernel.Error{Module: "vfs", Message: "file not open"}
	errIsDir    = &kernel.Error{Module: "vfs", Message: "is a directory"}
	errNotDir   = &kernel.Error{Module: "vfs", Message: "not a directory"}
	errNotEmpty = &kernel.Error{Module: "vfs", Message: "directory not empty"}
	errTooDeep  = &kernel.Error{Module: "vfs", Message: "too many levels of symbolic links"}
)

// VFS wraps a single mounted ext2 filesystem. NanOS has one root volume;
// there is no mount table.
type VFS struct {
	fs *ext2.FileSystem
}

// Mount wraps an already-mounted ext2 filesystem as the VFS root.
func Mount(fs *ext2.FileSystem) *VFS {
	return &VFS{fs: fs}
}

func splitParentName(path string) (parent, name string, err *kernel.Error) {
	if len(path) == 0 || len(path) > 255 {
		return "", "", errBadPath
	}
	lastSlash := strings.LastIndexByte(path, '/')
	if lastSlash < 0 {
		return "", "", errBadPath
	}
	if lastSlash == 0 {
		parent = "/"
	} else {
		parent = path[:lastSlash]
	}
	name = path[lastSlash+1:]
	if name == "" {
		return "", "", errBadPath
	}
	return parent, name, nil
}

// resolvePath walks path to its inode number without following a
// trailing symlink.
func (v *VFS) resolvePath(path string) (uint32, *kernel.Error) {
	if v.fs == nil {
		return 0, errNoFS
	}
	return v.fs.PathToInode(path)
}

// resolveFollowingSymlinks walks path to its inode, following up to
// maxSymlinkDepth symlinks along the way — mirroring vfs_open's loop.
func (v *VFS) resolveFollowingSymlinks(path string) (uint32, *ext2.Inode, *kernel.Error) {
	inodeNum, err := v.resolvePath(path)
	if err != nil {
		return 0, nil, err
	}
	ino, err := v.fs.ReadInode(inodeNum)
	if err != nil {
		return 0, nil, err
	}
	for depth := 0; ino.IsSymlink(); depth++ {
		if depth >= maxSymlinkDepth {
			return 0, nil, errTooDeep
		}
		target, terr := v.fs.ReadSymlink(ino)
		if terr != nil {
			return 0, nil, terr
		}
		inodeNum, err = v.resolvePath(target)
		if err != nil {
			return 0, nil, err
		}
		ino, err = v.fs.ReadInode(inodeNum)
		if err != nil {
			return 0, nil, err
		}
	}
	return inodeNum, ino, nil
}

// Open opens path for reading and writing, following symlinks but
// refusing directories.
func (v *VFS) Open(path string) (*File, *kernel.Error) {
	inodeNum, ino, err := v.resolveFollowingSymlinks(path)
	if err != nil {
		return nil, err
	}
	if ino.IsDir() {
		return nil, errIsDir
	}
	return &File{inode: inodeNum, size: ino.ISize, isOpen: true}, nil
}

// Close invalidates f. Further use of f is an error.
func (v *VFS) Close(f *File) *kernel.Error {
	if f == nil || !f.isOpen {
		return errNotOpen
	}
	f.isOpen = false
	return nil
}

// Read reads up to len(buffer) bytes from f's current position and
// advances it, touching the inode's access time.
func (v *VFS) Read(f *File, buffer []byte) (int, *kernel.Error) {
	if f == nil || !f.isOpen {
		return 0, errNotOpen
	}
	ino, err := v.fs.ReadInode(f.inode)
	if err != nil {
		return 0, err
	}
	n, err := v.fs.ReadFile(ino, f.position, buffer)
	if err != nil {
		return n, err
	}
	f.position += uint32(n)

	if n > 0 {
		ino.IAtime = nowFn()
		if werr := v.fs.WriteInode(f.inode, ino); werr != nil {
			return n, werr
		}
	}
	return n, nil
}

// Seek repositions f, clamped to the file's recorded size.
func (v *VFS) Seek(f *File, offset uint32) *kernel.Error {
	if f == nil || !f.isOpen {
		return errNotOpen
	}
	if offset > f.size {
		f.position = f.size
	} else {
		f.position = offset
	}
	return nil
}

// Write writes buffer at f's current position, allocating direct blocks
// on demand (block index 12 and beyond is unsupported for writes, though
// the read side follows the single-indirect block), growing the inode's
// size, and advancing f.
func (v *VFS) Write(f *File, buffer []byte) (int, *kernel.Error) {
	if f == nil || !f.isOpen {
		return 0, errNotOpen
	}
	ino, err := v.fs.ReadInode(f.inode)
	if err != nil {
		return 0, err
	}

	var written uint32
	blockBuf := make([]byte, v.fsBlockSize())
	for written < uint32(len(buffer)) {
		blockIndex := (f.position + written) / v.fsBlockSize()
		blockOffset := (f.position + written) % v.fsBlockSize()
		toWrite := v.fsBlockSize() - blockOffset
		if toWrite > uint32(len(buffer))-written {
			toWrite = uint32(len(buffer)) - written
		}

		if blockIndex >= 12 {
			break
		}
		if ino.IBlock[blockIndex] == 0 {
			newBlock, aerr := v.fs.AllocBlock()
			if aerr != nil {
				break
			}
			ino.IBlock[blockIndex] = newBlock
		}

		if err := v.fs.ReadDataBlockRaw(ino.IBlock[blockIndex], blockBuf); err != nil {
			break
		}
		copy(blockBuf[blockOffset:blockOffset+toWrite], buffer[written:written+toWrite])
		if err := v.fs.WriteDataBlockRaw(ino.IBlock[blockIndex], blockBuf); err != nil {
			break
		}
		written += toWrite
	}

	if f.position+written > ino.ISize {
		ino.ISize = f.position + written
	}
	f.position += written
	f.size = ino.ISize
	if written > 0 {
		ino.IMtime = nowFn()
	}

	if err := v.fs.WriteInode(f.inode, ino); err != nil {
		return int(written), err
	}
	return int(written), nil
}

func (v *VFS) fsBlockSize() uint32 {
	return v.fs.BlockSize()
}

// Truncate shrinks f to newSize, freeing any direct blocks beyond it.
// Growing a file is not supported, matching the original driver.
func (v *VFS) Truncate(f *File, newSize uint32) *kernel.Error {
	if f == nil || !f.isOpen {
		return errNotOpen
	}
	ino, err := v.fs.ReadInode(f.inode)
	if err != nil {
		return err
	}
	if newSize >= ino.ISize {
		return nil
	}
	blockSize := v.fsBlockSize()
	oldBlocks := (ino.ISize + blockSize - 1) / blockSize
	newBlocks := (newSize + blockSize - 1) / blockSize
	for i := newBlocks; i < oldBlocks && i < 12; i++ {
		if ino.IBlock[i] != 0 {
			if err := v.fs.FreeBlock(ino.IBlock[i]); err != nil {
				return err
			}
			ino.IBlock[i] = 0
		}
	}
	ino.ISize = newSize
	f.size = newSize
	if f.position > newSize {
		f.position = newSize
	}
	return v.fs.WriteInode(f.inode, ino)
}

// Stat returns metadata for path without opening it.
func (v *VFS) Stat(path string) (*Dirent, *kernel.Error) {
	inodeNum, err := v.resolvePath(path)
	if err != nil {
		return nil, err
	}
	ino, err := v.fs.ReadInode(inodeNum)
	if err != nil {
		return nil, err
	}
	name := path
	if idx := strings.LastIndexByte(path, '/'); idx >= 0 && idx+1 < len(path) {
		name = path[idx+1:]
	}
	return &Dirent{
		Inode: inodeNum, Name: name, Type: typeFromMode(ino.IMode), Size: ino.ISize,
		Mode: ino.IMode, Mtime: ino.IMtime, Atime: ino.IAtime, Ctime: ino.ICtime,
		Uid: ino.IUid, Gid: ino.IGid, Links: ino.ILinksCount,
	}, nil
}

// ReadSymlinkTarget returns the stored target of the symlink at path,
// without following it — used by commands like stat that want to show
// where a link points rather than what it points to.
func (v *VFS) ReadSymlinkTarget(path string) (string, *kernel.Error) {
	inodeNum, err := v.resolvePath(path)
	if err != nil {
		return "", err
	}
	ino, err := v.fs.ReadInode(inodeNum)
	if err != nil {
		return "", err
	}
	if !ino.IsSymlink() {
		return "", errBadPath
	}
	return v.fs.ReadSymlink(ino)
}

// Exists reports whether path resolves to anything.
func (v *VFS) Exists(path string) bool {
	_, err := v.resolvePath(path)
	return err == nil
}

// ListDirectory returns every entry in the directory at path, including
// "." and ".." — mirroring ext2_list_dir, which never special-cases them
// either.
func (v *VFS) ListDirectory(path string) ([]Dirent, *kernel.Error) {
	inodeNum, err := v.resolvePath(path)
	if err != nil {
		return nil, err
	}
	ino, err := v.fs.ReadInode(inodeNum)
	if err != nil {
		return nil, err
	}
	if !ino.IsDir() {
		return nil, errNotDir
	}
	entries, err := v.fs.ListDir(ino)
	if err != nil {
		return nil, err
	}
	out := make([]Dirent, 0, len(entries))
	for _, e := range entries {
		childIno, ierr := v.fs.ReadInode(e.Inode)
		if ierr != nil {
			continue
		}
		out = append(out, Dirent{
			Inode: e.Inode, Name: e.Name, Type: typeFromMode(childIno.IMode), Size: childIno.ISize,
			Mode: childIno.IMode, Mtime: childIno.IMtime, Atime: childIno.IAtime, Ctime: childIno.ICtime,
			Uid: childIno.IUid, Gid: childIno.IGid, Links: childIno.ILinksCount,
		})
	}
	return out, nil
}

// Create makes a new regular file or directory at path, wiring together
// AllocInode/AddDirEntry/WriteInode the way vfs_create does, including
// synthesizing "." and ".." for a new directory.
func (v *VFS) Create(path string, t Type) *kernel.Error {
	parentPath, name, err := splitParentName(path)
	if err != nil {
		return err
	}
	parentInodeNum, err := v.resolvePath(parentPath)
	if err != nil {
		return err
	}
	parentIno, err := v.fs.ReadInode(parentInodeNum)
	if err != nil {
		return err
	}

	newInodeNum, err := v.fs.AllocInode()
	if err != nil {
		return err
	}

	var newIno ext2.Inode
	var fileType uint8
	switch t {
	case TypeFile:
		newIno.IMode = ext2.ModeRegular | 0644
		newIno.ILinksCount = 1
		fileType = ext2.FileTypeRegular
	case TypeDir:
		newIno.IMode = ext2.ModeDir | 0755
		newIno.ILinksCount = 2
		fileType = ext2.FileTypeDir
	default:
		return errBadPath
	}
	now := nowFn()
	newIno.IAtime, newIno.IMtime, newIno.ICtime = now, now, now

	if err := v.fs.WriteInode(newInodeNum, &newIno); err != nil {
		return err
	}
	if err := v.fs.AddDirEntry(parentIno, parentInodeNum, newInodeNum, name, fileType); err != nil {
		return err
	}
	if t == TypeDir {
		parentIno.ILinksCount++
	}
	if err := v.fs.WriteInode(parentInodeNum, parentIno); err != nil {
		return err
	}

	if t == TypeDir {
		dirIno, err := v.fs.ReadInode(newInodeNum)
		if err != nil {
			return err
		}
		if err := v.fs.AddDirEntry(dirIno, newInodeNum, newInodeNum, ".", ext2.FileTypeDir); err != nil {
			return err
		}
		dirIno, err = v.fs.ReadInode(newInodeNum)
		if err != nil {
			return err
		}
		if err := v.fs.AddDirEntry(dirIno, newInodeNum, parentInodeNum, "..", ext2.FileTypeDir); err != nil {
			return err
		}
	}
	return nil
}

// Unlink removes path's directory entry and, once its link count drops
// to zero, frees its direct blocks and its inode. Directories must be
// empty. Leaves any single-indirect block unreclaimed, the same gap the
// original driver has — this layer detaches names, it does not walk the
// full block graph of what it deletes.
func (v *VFS) Unlink(path string) *kernel.Error {
	parentPath, name, err := splitParentName(path)
	if err != nil {
		return err
	}
	parentInodeNum, err := v.resolvePath(parentPath)
	if err != nil {
		return err
	}
	parentIno, err := v.fs.ReadInode(parentInodeNum)
	if err != nil {
		return err
	}
	inodeNum, err := v.fs.FindDirEntry(parentIno, name)
	if err != nil {
		return err
	}
	ino, err := v.fs.ReadInode(inodeNum)
	if err != nil {
		return err
	}

	if ino.IsDir() {
		empty, err := v.fs.IsDirEmpty(ino)
		if err != nil {
			return err
		}
		if !empty {
			return errNotEmpty
		}
		parentIno.ILinksCount--
	}

	if err := v.fs.RemoveDirEntry(parentIno, parentInodeNum, name); err != nil {
		return err
	}
	if err := v.fs.WriteInode(parentInodeNum, parentIno); err != nil {
		return err
	}

	ino.ILinksCount--
	if ino.ILinksCount == 0 {
		for i := 0; i < 12; i++ {
			if ino.IBlock[i] != 0 {
				if err := v.fs.FreeBlock(ino.IBlock[i]); err != nil {
					return err
				}
			}
		}
		return v.fs.FreeInode(inodeNum)
	}
	return v.fs.WriteInode(inodeNum, ino)
}

// CreateSymlink creates a symlink at path pointing at target, storing
// the target inline when it fits (<=60 bytes) or in a single spilled
// data block otherwise.
func (v *VFS) CreateSymlink(path, target string) *kernel.Error {
	parentPath, name, err := splitParentName(path)
	if err != nil {
		return err
	}
	parentInodeNum, err := v.resolvePath(parentPath)
	if err != nil {
		return err
	}
	parentIno, err := v.fs.ReadInode(parentInodeNum)
	if err != nil {
		return err
	}

	newInodeNum, err := v.fs.AllocInode()
	if err != nil {
		return err
	}

	var newIno ext2.Inode
	newIno.IMode = ext2.ModeSymlink | 0777
	newIno.ILinksCount = 1
	newIno.ISize = uint32(len(target))
	now := nowFn()
	newIno.IAtime, newIno.IMtime, newIno.ICtime = now, now, now

	if len(target) <= 60 {
		raw := make([]byte, 60)
		copy(raw, target)
		for i := 0; i < 15; i++ {
			newIno.IBlock[i] = uint32(raw[i*4]) | uint32(raw[i*4+1])<<8 | uint32(raw[i*4+2])<<16 | uint32(raw[i*4+3])<<24
		}
	} else {
		block, err := v.fs.AllocBlock()
		if err != nil {
			return err
		}
		newIno.IBlock[0] = block
		buf := make([]byte, v.fsBlockSize())
		copy(buf, target)
		if err := v.fs.WriteDataBlockRaw(block, buf); err != nil {
			v.fs.FreeInode(newInodeNum)
			return err
		}
	}

	if err := v.fs.WriteInode(newInodeNum, &newIno); err != nil {
		v.fs.FreeInode(newInodeNum)
		return err
	}
	if err := v.fs.AddDirEntry(parentIno, parentInodeNum, newInodeNum, name, ext2.FileTypeSymlink); err != nil {
		v.fs.FreeInode(newInodeNum)
		return err
	}
	return v.fs.WriteInode(parentInodeNum, parentIno)
}

// Chmod updates path's permission bits, preserving its file-type bits.
func (v *VFS) Chmod(path string, mode uint16) *kernel.Error {
	inodeNum, err := v.resolvePath(path)
	if err != nil {
		return err
	}
	ino, err := v.fs.ReadInode(inodeNum)
	if err != nil {
		return err
	}
	fileType := ino.IMode & ext2.ModeTypeMask
	ino.IMode = fileType | (mode & 0777)
	ino.ICtime = nowFn()
	return v.fs.WriteInode(inodeNum, ino)
}

// Chown updates path's owning uid/gid.
func (v *VFS) Chown(path string, uid, gid uint16) *kernel.Error {
	inodeNum, err := v.resolvePath(path)
	if err != nil {
		return err
	}
	ino, err := v.fs.ReadInode(inodeNum)
	if err != nil {
		return err
	}
	ino.IUid = uid
	ino.IGid = gid
	ino.ICtime = nowFn()
	return v.fs.WriteInode(inodeNum, ino)
}

// Size reports f's current byte length.
func (f *File) Size() uint32 { return f.size }

// Position reports f's current cursor.
func (f *File) Position() uint32 { return f.position }
