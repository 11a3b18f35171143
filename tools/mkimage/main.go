// Command mkimage builds a raw ext2-shaped disk image from a directory
// tree on the host, for loading into the kernel's ramdisk at boot or for
// poking at with tools/fusedebug. It is host-side tooling, grounded on
// the teacher's own convention of shipping small Go utilities alongside
// the kernel under tools/ (its makelogo command is the closest analogue,
// trading a font atlas for an ext2 image as the generated artifact).
package main

import (
	"flag"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"lukechampine.com/blake3"

	"github.com/Jithub-4pf/NanOS/kernel/block"
	"github.com/Jithub-4pf/NanOS/kernel/ext2"
	"github.com/Jithub-4pf/NanOS/kernel/vfs"
)

func main() {
	src := flag.String("src", "", "directory tree to seed the image from")
	out := flag.String("out", "disk.img", "output image path")
	sizeKiB := flag.Uint("size", 256, "image size in KiB")
	watch := flag.Bool("watch", false, "rebuild on every change under -src")
	flag.Parse()

	if *src == "" {
		log.Fatal("mkimage: -src is required")
	}
	sizeBytes := uint32(*sizeKiB) * 1024

	if err := build(*src, *out, sizeBytes); err != nil {
		log.Fatalf("mkimage: %v", err)
	}
	printFingerprint(*out)

	if !*watch {
		return
	}
	if err := watchAndRebuild(*src, *out, sizeBytes); err != nil {
		log.Fatalf("mkimage: %v", err)
	}
}

// build formats a fresh ext2 image at outPath of sizeBytes and copies
// every file and directory under srcDir into it, in WalkDir order so
// every parent directory exists before its children are created —
// vfs.Create has no mkdir -p behavior, matching vfs_create's own
// single-component-at-a-time contract.
func build(srcDir, outPath string, sizeBytes uint32) error {
	if err := truncateNewFile(outPath, sizeBytes); err != nil {
		return fmt.Errorf("allocate image: %w", err)
	}

	dev, kerr := block.OpenFileDevice(outPath)
	if kerr != nil {
		return fmt.Errorf("open image: %w", kerr)
	}
	defer dev.Close()

	fsys, kerr := ext2.Format(dev)
	if kerr != nil {
		return fmt.Errorf("format: %w", kerr)
	}
	v := vfs.Mount(fsys)

	return filepath.WalkDir(srcDir, func(hostPath string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(srcDir, hostPath)
		if err != nil || rel == "." {
			return err
		}
		vfsPath := "/" + filepath.ToSlash(rel)

		if d.IsDir() {
			if kerr := v.Create(vfsPath, vfs.TypeDir); kerr != nil {
				return fmt.Errorf("mkdir %s: %w", vfsPath, kerr)
			}
			return nil
		}

		data, err := os.ReadFile(hostPath)
		if err != nil {
			return err
		}
		if kerr := v.Create(vfsPath, vfs.TypeFile); kerr != nil {
			return fmt.Errorf("create %s: %w", vfsPath, kerr)
		}
		f, kerr := v.Open(vfsPath)
		if kerr != nil {
			return fmt.Errorf("open %s: %w", vfsPath, kerr)
		}
		if _, kerr := v.Write(f, data); kerr != nil {
			v.Close(f)
			return fmt.Errorf("write %s: %w", vfsPath, kerr)
		}
		return v.Close(f)
	})
}

func truncateNewFile(path string, sizeBytes uint32) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Truncate(int64(sizeBytes))
}

func printFingerprint(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		log.Printf("mkimage: could not fingerprint %s: %v", path, err)
		return
	}
	sum := blake3.Sum256(data)
	fmt.Printf("%s  %x\n", path, sum)
}

// watchAndRebuild rebuilds the image every time a file under srcDir
// changes, printing a fresh fingerprint after each rebuild, until the
// process is killed.
func watchAndRebuild(srcDir, outPath string, sizeBytes uint32) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	err = filepath.WalkDir(srcDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
	if err != nil {
		return err
	}

	log.Printf("mkimage: watching %s for changes", srcDir)
	for {
		select {
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			log.Printf("mkimage: rebuilding after %s", ev)
			if err := build(srcDir, outPath, sizeBytes); err != nil {
				log.Printf("mkimage: rebuild failed: %v", err)
				continue
			}
			printFingerprint(outPath)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Printf("mkimage: watcher error: %v", err)
		}
	}
}
