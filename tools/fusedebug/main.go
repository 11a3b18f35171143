// Command fusedebug mounts an ext2 image built by tools/mkimage (or dumped
// from a running kernel's ramdisk) as a real, read-only FUSE filesystem, so
// its contents can be poked at with ordinary host tools (ls, cat, diff)
// instead of a serial console. It delegates every read to this tree's own
// kernel/ext2 and kernel/vfs packages rather than re-implementing ext2
// parsing, following the hanwen/go-fuse/v2 usage pattern of a root fs.Inode
// populated via NodeOnAdder and leaf nodes implementing NodeOpener,
// NodeGetattrer, NodeReader, and (for symlinks) NodeReadlinker.
package main

import (
	"context"
	"flag"
	"log"
	"path"
	"syscall"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/Jithub-4pf/NanOS/kernel/block"
	"github.com/Jithub-4pf/NanOS/kernel/ext2"
	"github.com/Jithub-4pf/NanOS/kernel/vfs"
)

func main() {
	image := flag.String("image", "disk.img", "ext2 image to mount")
	mountDir := flag.String("mount", "", "mountpoint (must already exist)")
	debug := flag.Bool("debug", false, "log every FUSE request")
	flag.Parse()

	if *mountDir == "" {
		log.Fatal("fusedebug: -mount is required")
	}

	dev, kerr := block.OpenFileDevice(*image)
	if kerr != nil {
		log.Fatalf("fusedebug: open %s: %v", *image, kerr)
	}
	defer dev.Close()

	fsys, kerr := ext2.Mount(dev)
	if kerr != nil {
		log.Fatalf("fusedebug: mount %s: %v", *image, kerr)
	}
	v := vfs.Mount(fsys)

	root := &dirNode{v: v, path: "/"}
	server, err := fs.Mount(*mountDir, root, &fs.Options{
		MountOptions: fuse.MountOptions{Debug: *debug, FsName: "nanos-ext2", Name: "ext2ro"},
	})
	if err != nil {
		log.Fatalf("fusedebug: mount FUSE: %v", err)
	}

	log.Printf("fusedebug: %s mounted read-only at %s", *image, *mountDir)
	server.Wait()
}

// dirNode is a directory: its children are populated once, eagerly, when
// the kernel first looks at it. Good enough for an image small enough to
// be built by tools/mkimage in the first place.
type dirNode struct {
	fs.Inode
	v    *vfs.VFS
	path string
}

var _ fs.NodeOnAdder = (*dirNode)(nil)

func (d *dirNode) OnAdd(ctx context.Context) {
	entries, err := d.v.ListDirectory(d.path)
	if err != nil {
		log.Printf("fusedebug: list %s: %v", d.path, err)
		return
	}
	for _, e := range entries {
		if e.Name == "." || e.Name == ".." {
			continue
		}
		childPath := path.Join(d.path, e.Name)

		switch e.Type {
		case vfs.TypeDir:
			child := &dirNode{v: d.v, path: childPath}
			inode := d.NewPersistentInode(ctx, child, fs.StableAttr{Mode: syscall.S_IFDIR, Ino: uint64(e.Inode)})
			d.AddChild(e.Name, inode, true)
		case vfs.TypeSymlink:
			child := &linkNode{v: d.v, path: childPath}
			inode := d.NewPersistentInode(ctx, child, fs.StableAttr{Mode: syscall.S_IFLNK, Ino: uint64(e.Inode)})
			d.AddChild(e.Name, inode, false)
		default:
			child := &fileNode{v: d.v, path: childPath, size: e.Size}
			inode := d.NewPersistentInode(ctx, child, fs.StableAttr{Mode: syscall.S_IFREG, Ino: uint64(e.Inode)})
			d.AddChild(e.Name, inode, false)
		}
	}
}

func (d *dirNode) Getattr(ctx context.Context, f fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	out.Attr.Mode = syscall.S_IFDIR | 0555
	return 0
}

var _ fs.NodeGetattrer = (*dirNode)(nil)

// fileNode is a regular file. Reads are served by reopening the path
// through the VFS on every call rather than caching a handle, since the
// underlying vfs.File cursor isn't safe to share across concurrent FUSE
// requests.
type fileNode struct {
	fs.Inode
	v    *vfs.VFS
	path string
	size uint32
}

var (
	_ fs.NodeOpener    = (*fileNode)(nil)
	_ fs.NodeGetattrer = (*fileNode)(nil)
	_ fs.NodeReader    = (*fileNode)(nil)
)

func (n *fileNode) Open(ctx context.Context, flags uint32) (fs.FileHandle, uint32, syscall.Errno) {
	if flags&(syscall.O_WRONLY|syscall.O_RDWR) != 0 {
		return nil, 0, syscall.EROFS
	}
	return nil, fuse.FOPEN_KEEP_CACHE, 0
}

func (n *fileNode) Getattr(ctx context.Context, f fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	out.Attr.Mode = syscall.S_IFREG | 0444
	out.Attr.Size = uint64(n.size)
	return 0
}

func (n *fileNode) Read(ctx context.Context, f fs.FileHandle, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	file, err := n.v.Open(n.path)
	if err != nil {
		log.Printf("fusedebug: open %s: %v", n.path, err)
		return nil, syscall.EIO
	}
	defer n.v.Close(file)

	if err := n.v.Seek(file, uint32(off)); err != nil {
		log.Printf("fusedebug: seek %s: %v", n.path, err)
		return nil, syscall.EIO
	}
	got, err := n.v.Read(file, dest)
	if err != nil {
		log.Printf("fusedebug: read %s: %v", n.path, err)
		return nil, syscall.EIO
	}
	return fuse.ReadResultData(dest[:got]), 0
}

// linkNode is a symbolic link: its only content is the stored target
// string, read without following it via vfs.ReadSymlinkTarget.
type linkNode struct {
	fs.Inode
	v    *vfs.VFS
	path string
}

var (
	_ fs.NodeReadlinker = (*linkNode)(nil)
	_ fs.NodeGetattrer  = (*linkNode)(nil)
)

func (n *linkNode) Readlink(ctx context.Context) ([]byte, syscall.Errno) {
	target, err := n.v.ReadSymlinkTarget(n.path)
	if err != nil {
		log.Printf("fusedebug: readlink %s: %v", n.path, err)
		return nil, syscall.EIO
	}
	return []byte(target), 0
}

func (n *linkNode) Getattr(ctx context.Context, f fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	out.Attr.Mode = syscall.S_IFLNK | 0777
	return 0
}
