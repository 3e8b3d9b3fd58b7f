package prodos

import (
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/zellyn/prodos8/blockdev"
	"github.com/zellyn/prodos8/prodoserr"
)

// bitMapPointer is the block at which the volume bitmap conventionally
// starts: right after the two loader blocks and the four-block volume
// directory.
const bitMapPointer = 6

// loaderBlocks is the number of blocks (0 and 1) reserved for the
// boot loader.
const loaderBlocks = 2

// RootEntry is the synthetic entry returned by PathEntry for the
// empty (root) path: it isn't a real directory-entry slot, just a
// pointer at the volume's key block.
var RootEntry = Entry{StorageType: StorageVolumeHdr, KeyPointer: volumeKeyBlock}

// Volume is the facade over a block device and its volume directory:
// the entry point glue code (the CLI, tests) uses to open, create,
// and navigate a ProDOS 8 image.
type Volume struct {
	dev  *blockdev.Device
	root *Directory
}

// OpenVolume opens an existing disk image, validates its volume
// header against the device's own block count, and primes the
// in-memory free bitmap from it.
func OpenVolume(path string, mode blockdev.Mode) (*Volume, error) {
	dev, err := blockdev.Open(path, mode)
	if err != nil {
		return nil, err
	}
	root, err := readDirectory(dev, volumeKeyBlock)
	if err != nil {
		dev.Close()
		return nil, err
	}
	if root.header.StorageType != StorageVolumeHdr {
		dev.Close()
		return nil, prodoserr.FormatErrorf("block %d header is not a volume header", volumeKeyBlock)
	}
	if root.header.TotalBlocks != dev.TotalBlocks() {
		dev.Close()
		return nil, prodoserr.FormatErrorf("volume header total_blocks %d != device total_blocks %d",
			root.header.TotalBlocks, dev.TotalBlocks())
	}
	if err := dev.ResetFreeMap(root.header.BitMapPointer); err != nil {
		dev.Close()
		return nil, err
	}
	return &Volume{dev: dev, root: root}, nil
}

// CreateVolume creates a brand-new image at path (refusing to
// overwrite an existing file unless force is set), lays down an empty
// volume directory, flushes the initial bitmap, and optionally
// installs a boot loader.
func CreateVolume(path, name string, totalBlocks uint16, format blockdev.Format, force bool, loader []byte) (*Volume, error) {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return nil, prodoserr.FileExistsf("%q already exists", path)
		}
	}

	dev, err := blockdev.Create(path, totalBlocks, format)
	if err != nil {
		return nil, err
	}

	for i := 0; i < loaderBlocks; i++ {
		if _, err := dev.AllocateBlock(); err != nil {
			dev.Close()
			return nil, err
		}
	}

	now := nowDateTime()
	header := Entry{
		StorageType:     StorageVolumeHdr,
		Name:            LegalPath(name),
		Created:         now,
		Access:          FullAccess,
		EntryLength:     EntryLength,
		EntriesPerBlock: EntriesPerBlock,
		FileCount:       0,
		BitMapPointer:   bitMapPointer,
		TotalBlocks:     totalBlocks,
	}
	dirBlocks := make([]uint16, rootBlocks)
	for i := range dirBlocks {
		b, err := dev.AllocateBlock()
		if err != nil {
			dev.Close()
			return nil, err
		}
		dirBlocks[i] = b
	}
	if dirBlocks[0] != volumeKeyBlock {
		dev.Close()
		return nil, prodoserr.InvariantViolationf("volume directory key block allocated as %d, want %d", dirBlocks[0], volumeKeyBlock)
	}

	root := &Directory{
		dev:      dev,
		keyBlock: volumeKeyBlock,
		header:   header,
		entries:  make([]Entry, rootBlocks*EntriesPerBlock-1),
		blocks:   dirBlocks,
	}
	if err := root.Write(); err != nil {
		dev.Close()
		return nil, err
	}
	if err := dev.WriteFreeMap(bitMapPointer); err != nil {
		dev.Close()
		return nil, err
	}

	v := &Volume{dev: dev, root: root}
	if loader != nil {
		if err := v.WriteLoader(loader); err != nil {
			dev.Close()
			return nil, err
		}
	}
	return v, nil
}

// Close flushes and unmaps the underlying device.
func (v *Volume) Close() error {
	return v.dev.Close()
}

// Device returns the volume's underlying block device.
func (v *Volume) Device() *blockdev.Device {
	return v.dev
}

// Root returns the volume's root directory.
func (v *Volume) Root() *Directory {
	return v.root
}

// Info renders a one-line-plus-details summary of the volume, in the
// style of the reference implementation's repr: name, creation time,
// and total block count.
func (v *Volume) Info() string {
	h := v.root.header
	return fmt.Sprintf("Volume %s created %02d-%02d-%02d %02d:%02d, %d blocks (%d free)",
		h.Name, h.Created.Year, h.Created.Month, h.Created.Day, h.Created.Hour, h.Created.Minute,
		h.TotalBlocks, v.freeBlockCount())
}

func (v *Volume) freeBlockCount() int {
	n := 0
	for b := uint16(0); b < v.dev.TotalBlocks(); b++ {
		if v.dev.IsFree(b) {
			n++
		}
	}
	return n
}

// WriteLoader installs data as the two-block boot loader (blocks 0
// and 1), truncating data longer than 1024 bytes and zero-padding
// data shorter than that.
func (v *Volume) WriteLoader(data []byte) error {
	const loaderSize = loaderBlocks * blockdev.BlockSize
	if len(data) > loaderSize {
		logrus.Warnf("loader is %d bytes, truncating to %d", len(data), loaderSize)
		data = data[:loaderSize]
	}
	buf := make([]byte, loaderSize)
	copy(buf, data)
	var b0, b1 blockdev.Block
	copy(b0[:], buf[:blockdev.BlockSize])
	copy(b1[:], buf[blockdev.BlockSize:])
	if err := v.dev.WriteBlock(0, b0); err != nil {
		return err
	}
	return v.dev.WriteBlock(1, b1)
}

// PathEntry resolves a single `/`-separated path (no glob ambiguity
// allowed) to its entry. The empty path resolves to RootEntry.
func (v *Volume) PathEntry(path string) (Entry, error) {
	entries, err := v.GlobPaths([]string{path})
	if err != nil {
		return Entry{}, err
	}
	switch len(entries) {
	case 0:
		return Entry{}, prodoserr.NotFoundf("no entry matches %q", path)
	case 1:
		return entries[0], nil
	default:
		return Entry{}, prodoserr.Ambiguousf("%q matches %d entries", path, len(entries))
	}
}

// GlobPaths resolves a set of `/`-separated, possibly-globbed paths
// against the root directory, deduplicating identical inputs. An
// empty (root) path yields RootEntry.
func (v *Volume) GlobPaths(paths []string) ([]Entry, error) {
	seen := make(map[string]bool, len(paths))
	var entries []Entry
	for _, p := range paths {
		trimmed := strings.Trim(p, "/")
		if seen[trimmed] {
			continue
		}
		seen[trimmed] = true
		if trimmed == "" {
			entries = append(entries, RootEntry)
			continue
		}
		matches, err := v.root.GlobPath(strings.Split(trimmed, "/"))
		if err != nil {
			return nil, err
		}
		entries = append(entries, matches...)
	}
	return entries, nil
}

// ReadDirectory reads the subdirectory (or root) e refers to.
func (v *Volume) ReadDirectory(e Entry) (*Directory, error) {
	if !e.IsDir() {
		return nil, prodoserr.TypeMismatchf("%q is not a directory", e.Name)
	}
	key := e.KeyPointer
	if e.StorageType == StorageVolumeHdr {
		key = volumeKeyBlock
	}
	return readDirectory(v.dev, key)
}

// ReadSimpleFile reads the full contents of the standard file e
// refers to.
func (v *Volume) ReadSimpleFile(e Entry) ([]byte, error) {
	return ReadStandardFile(v.dev, e)
}
