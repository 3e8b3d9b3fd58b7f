// Copyright © 2016 Zellyn Hunter <zellyn@gmail.com>

// Package blockdev implements the block-device layer a ProDOS 8
// volume sits on: memory-mapped random-access I/O over a disk-image
// file (with an optional `.2mg` container prefix), a free-block
// bitmap, allocation/deallocation with access auditing, and the
// flush-on-close protocol that persists the bitmap back to the
// image.
package blockdev

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/exp/mmap"
	"golang.org/x/sys/unix"

	"github.com/zellyn/prodos8/prodoserr"
)

// BlockSize is the size in bytes of a ProDOS block.
const BlockSize = 512

// Block is the raw content of one 512-byte block.
type Block [BlockSize]byte

// BlockSource marshals a Go value to a Block.
type BlockSource interface {
	ToBlock() (Block, error)
}

// BlockSink unmarshals a Block into a Go value.
type BlockSink interface {
	FromBlock(Block) error
}

// Mode selects whether a Device is opened for reading only or for
// reading and writing.
type Mode int

// Modes a Device can be opened in.
const (
	ModeRO Mode = iota
	ModeRW
)

// Format selects the on-disk container a Device is created in.
type Format int

// Formats a Device can be created in.
const (
	FormatRaw Format = iota
	Format2mg
)

// AccessKind tags one entry of a Device's access log.
type AccessKind byte

// Kinds of block access logged by a Device.
const (
	AccessRead  AccessKind = 'R'
	AccessWrite AccessKind = 'W'
	AccessAlloc AccessKind = 'A'
	AccessFree  AccessKind = 'F'
)

// AccessEntry is one (kind, block) tape entry in a Device's access
// log.
type AccessEntry struct {
	Kind  AccessKind
	Block uint16
}

const (
	twoImgMagic    = "2IMG"
	twoImgCreator  = "PYP8"
	twoImgHeaderSz = 64
	bitsPerBitmapBlock = BlockSize * 8   // 4096
)

// twoImgHeader is the 64-byte .2mg container header. Only the first
// 16 bytes carry fields this library understands; the rest of the
// 64-byte prefix is reserved and ignored on read, zeroed on write.
type twoImgHeader struct {
	Magic      [4]byte
	Creator    [4]byte
	PrefixSize uint16
	Version    uint16
	Format     uint32
}

// Device is a memory-mapped ProDOS block device: an image file, its
// free-block bitmap, and an access log.
type Device struct {
	file        *os.File
	mode        Mode
	format      Format
	skip        int64 // bytes of .2mg container prefix before block 0
	totalBlocks uint16

	rwFull []byte      // raw mmap'd region (ModeRW), starting at file offset 0
	rw     []byte      // rwFull[skip:] — the block-addressable region
	ro     *mmap.ReaderAt // read-only mapping (ModeRO)

	freeMap       []byte // bit-packed free bitmap, MSB-first per byte, 1=free
	bitMapPointer uint16 // set by ResetFreeMap / WriteFreeMap; used by Close to auto-flush
	dirty         bool   // true once an ALLOC or FREE has happened

	log []AccessEntry
}

// TotalBlocks returns the number of 512-byte blocks addressable on
// the device.
func (d *Device) TotalBlocks() uint16 {
	return d.totalBlocks
}

// Mode returns the mode the device was opened in.
func (d *Device) Mode() Mode {
	return d.mode
}

// formatFromExt returns Format2mg if path's extension is ".2mg"
// (case-insensitive), else FormatRaw.
func formatFromExt(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".2mg") {
		return Format2mg
	}
	return FormatRaw
}

// Open opens an existing disk image as a block device.
func Open(path string, mode Mode) (*Device, error) {
	flag := os.O_RDONLY
	if mode == ModeRW {
		flag = os.O_RDWR
	}
	f, err := os.OpenFile(path, flag, 0)
	if err != nil {
		return nil, err
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	size := info.Size()

	d := &Device{file: f, mode: mode, format: formatFromExt(path)}

	if d.format == Format2mg {
		var hdr [twoImgHeaderSz]byte
		if _, err := f.ReadAt(hdr[:], 0); err != nil {
			f.Close()
			return nil, prodoserr.FormatErrorf("reading .2mg header of %q: %v", path, err)
		}
		var h twoImgHeader
		copy(h.Magic[:], hdr[0:4])
		copy(h.Creator[:], hdr[4:8])
		h.PrefixSize = binary.LittleEndian.Uint16(hdr[8:10])
		h.Version = binary.LittleEndian.Uint16(hdr[10:12])
		h.Format = binary.LittleEndian.Uint32(hdr[12:16])
		if string(h.Magic[:]) != twoImgMagic {
			f.Close()
			return nil, prodoserr.FormatErrorf(".2mg file %q has bad magic %q", path, h.Magic)
		}
		if h.Format != 1 {
			f.Close()
			return nil, prodoserr.FormatErrorf(".2mg file %q has format %d, want 1 (ProDOS order)", path, h.Format)
		}
		d.skip = int64(h.PrefixSize)
	}

	if (size-d.skip)%BlockSize != 0 {
		f.Close()
		return nil, prodoserr.FormatErrorf("image %q size %d (less %d-byte prefix) is not a multiple of %d bytes", path, size, d.skip, BlockSize)
	}
	d.totalBlocks = uint16((size - d.skip) / BlockSize)

	if err := d.mapExisting(size); err != nil {
		f.Close()
		return nil, err
	}

	// Per spec: the in-memory bitmap starts all-used (all zero) and
	// is populated later by ResetFreeMap.
	d.freeMap = make([]byte, bitmapBytes(d.totalBlocks))

	return d, nil
}

// mapExisting memory-maps the already-open, already-sized file.
func (d *Device) mapExisting(size int64) error {
	if d.mode == ModeRO {
		r, err := mmap.Open(d.file.Name())
		if err != nil {
			return err
		}
		d.ro = r
		return nil
	}
	data, err := unix.Mmap(int(d.file.Fd()), 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return err
	}
	d.rwFull = data
	d.rw = data[d.skip:]
	return nil
}

// Create creates a brand-new disk image of totalBlocks blocks in the
// given container format, and opens it read/write. The caller (the
// volume facade) is responsible for refusing to overwrite an
// existing file when the user didn't ask for --force.
func Create(path string, totalBlocks uint16, format Format) (*Device, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0666)
	if err != nil {
		return nil, err
	}

	d := &Device{file: f, mode: ModeRW, format: format, totalBlocks: totalBlocks}

	var size int64
	if format == Format2mg {
		d.skip = twoImgHeaderSz
		size = twoImgHeaderSz + int64(totalBlocks)*BlockSize
		if err := f.Truncate(size); err != nil {
			f.Close()
			return nil, err
		}
		var hdr [twoImgHeaderSz]byte
		copy(hdr[0:4], twoImgMagic)
		copy(hdr[4:8], twoImgCreator)
		binary.LittleEndian.PutUint16(hdr[8:10], twoImgHeaderSz)
		binary.LittleEndian.PutUint16(hdr[10:12], 1)
		binary.LittleEndian.PutUint32(hdr[12:16], 1)
		if _, err := f.WriteAt(hdr[:], 0); err != nil {
			f.Close()
			return nil, err
		}
	} else {
		size = int64(totalBlocks) * BlockSize
		if err := f.Truncate(size); err != nil {
			f.Close()
			return nil, err
		}
	}

	if err := d.mapExisting(size); err != nil {
		f.Close()
		return nil, err
	}

	// A fresh volume starts entirely free except where the caller
	// (the volume facade) allocates blocks 0/1/2..5/bitmap.
	d.freeMap = make([]byte, bitmapBytes(totalBlocks))
	for i := range d.freeMap {
		d.freeMap[i] = 0xFF
	}
	n := bitmapBlocks(totalBlocks)
	for b := int(totalBlocks); b < int(n)*bitsPerBitmapBlock; b++ {
		clearBit(d.freeMap, uint16(b))
	}

	return d, nil
}

// bitmapBlocks returns the number of 512-byte bitmap blocks needed to
// cover totalBlocks blocks (one bit per block).
func bitmapBlocks(totalBlocks uint16) uint16 {
	return uint16((int(totalBlocks) + bitsPerBitmapBlock - 1) / bitsPerBitmapBlock)
}

// bitmapBytes returns the size in bytes of the in-memory free bitmap
// buffer for totalBlocks blocks.
func bitmapBytes(totalBlocks uint16) int {
	return int(bitmapBlocks(totalBlocks)) * BlockSize
}

func bitPosition(block uint16) (byteIndex int, mask byte) {
	return int(block >> 3), byte(1 << (7 - (block & 7)))
}

func setBit(freeMap []byte, block uint16) {
	i, mask := bitPosition(block)
	freeMap[i] |= mask
}

func clearBit(freeMap []byte, block uint16) {
	i, mask := bitPosition(block)
	freeMap[i] &^= mask
}

func testBit(freeMap []byte, block uint16) bool {
	i, mask := bitPosition(block)
	return freeMap[i]&mask != 0
}

// IsFree reports whether block is currently marked free in the
// in-memory bitmap.
func (d *Device) IsFree(block uint16) bool {
	return testBit(d.freeMap, block)
}

func (d *Device) readRaw(block uint16) (Block, error) {
	var b Block
	offset := int64(block) * BlockSize
	if d.mode == ModeRO {
		if _, err := d.ro.ReadAt(b[:], d.skip+offset); err != nil {
			return b, err
		}
		return b, nil
	}
	copy(b[:], d.rw[offset:offset+BlockSize])
	return b, nil
}

// ReadBlock returns the content of block i and logs an AccessRead
// entry.
func (d *Device) ReadBlock(i uint16) (Block, error) {
	if i >= d.totalBlocks {
		return Block{}, prodoserr.FormatErrorf("block %d is out of range (total blocks %d)", i, d.totalBlocks)
	}
	b, err := d.readRaw(i)
	if err != nil {
		return b, err
	}
	d.log = append(d.log, AccessEntry{AccessRead, i})
	return b, nil
}

// WriteBlock writes 512 bytes to block i and logs an AccessWrite
// entry. It does not touch the free bitmap; callers that allocate a
// block separately clear its free bit via AllocateBlock.
func (d *Device) WriteBlock(i uint16, data Block) error {
	if d.mode != ModeRW {
		return prodoserr.FormatErrorf("device is read-only; cannot write block %d", i)
	}
	if i >= d.totalBlocks {
		return prodoserr.FormatErrorf("block %d is out of range (total blocks %d)", i, d.totalBlocks)
	}
	offset := int64(i) * BlockSize
	copy(d.rw[offset:offset+BlockSize], data[:])
	d.log = append(d.log, AccessEntry{AccessWrite, i})
	return nil
}

// AllocateBlock finds the lowest-index free block, marks it used,
// and returns its index.
func (d *Device) AllocateBlock() (uint16, error) {
	for i := uint16(0); i < d.totalBlocks; i++ {
		if testBit(d.freeMap, i) {
			clearBit(d.freeMap, i)
			d.dirty = true
			d.log = append(d.log, AccessEntry{AccessAlloc, i})
			return i, nil
		}
	}
	return 0, prodoserr.CapacityExceededf("volume full: no free blocks among %d", d.totalBlocks)
}

// FreeBlock zero-fills block i and marks it free. It is an invariant
// violation to free a block that is already marked free (a double
// free).
func (d *Device) FreeBlock(i uint16) error {
	if testBit(d.freeMap, i) {
		return prodoserr.InvariantViolationf("double free: block %d is already marked free", i)
	}
	if err := d.WriteBlock(i, Block{}); err != nil {
		return err
	}
	setBit(d.freeMap, i)
	d.dirty = true
	d.log = append(d.log, AccessEntry{AccessFree, i})
	return nil
}

// ResetFreeMap reads the on-disk bitmap blocks starting at
// bitMapPointer and replaces the in-memory free bitmap with their
// content. It logs (does not fail on) two conditions: any prologue
// block before the first data block being marked free, and any block
// at or beyond totalBlocks being marked free.
func (d *Device) ResetFreeMap(bitMapPointer uint16) error {
	n := bitmapBlocks(d.totalBlocks)
	buf := make([]byte, int(n)*BlockSize)
	for i := uint16(0); i < n; i++ {
		block, err := d.ReadBlock(bitMapPointer + i)
		if err != nil {
			return fmt.Errorf("reading bitmap block %d of %d: %w", i, n, err)
		}
		copy(buf[int(i)*BlockSize:], block[:])
	}
	d.freeMap = buf
	d.bitMapPointer = bitMapPointer

	for b := uint16(0); b < bitMapPointer+n; b++ {
		if testBit(d.freeMap, b) {
			logrus.Warnf("block %d is in the reserved prologue (< %d) but is marked free", b, bitMapPointer+n)
		}
	}
	for b := int(d.totalBlocks); b < int(n)*bitsPerBitmapBlock; b++ {
		if testBit(d.freeMap, uint16(b)) {
			logrus.Warnf("block %d is beyond total_blocks (%d) but is marked free", b, d.totalBlocks)
		}
	}
	return nil
}

// WriteFreeMap marks the bitmap's own blocks used within the bitmap
// data, then writes every bitmap block back to the device. Call this
// after any ALLOC/FREE activity, before the device is closed.
func (d *Device) WriteFreeMap(bitMapPointer uint16) error {
	n := bitmapBlocks(d.totalBlocks)
	for b := bitMapPointer; b < bitMapPointer+n; b++ {
		clearBit(d.freeMap, b)
	}
	d.bitMapPointer = bitMapPointer
	for i := uint16(0); i < n; i++ {
		var block Block
		copy(block[:], d.freeMap[int(i)*BlockSize:(int(i)+1)*BlockSize])
		if err := d.WriteBlock(bitMapPointer+i, block); err != nil {
			return fmt.Errorf("writing bitmap block %d of %d: %w", i, n, err)
		}
	}
	d.dirty = false
	return nil
}

// MarkSession returns a mark usable with AccessSince to learn which
// blocks a subsequent logical operation touches.
func (d *Device) MarkSession() int {
	return len(d.log)
}

// AccessSince returns the blocks touched by access-log entries of any
// of the given kinds since mark, in the order they occurred
// (duplicates included).
func (d *Device) AccessSince(mark int, kinds ...AccessKind) []uint16 {
	want := make(map[AccessKind]bool, len(kinds))
	for _, k := range kinds {
		want[k] = true
	}
	var blocks []uint16
	for _, e := range d.log[mark:] {
		if want[e.Kind] {
			blocks = append(blocks, e.Block)
		}
	}
	return blocks
}

// Close flushes the free bitmap (if any ALLOC/FREE happened since the
// last flush) and unmaps the device. This does not sync/fsync the
// file before unmapping; atomicity on crash is out of scope (see
// DESIGN.md).
func (d *Device) Close() error {
	var flushErr error
	if d.dirty && d.mode == ModeRW {
		flushErr = d.WriteFreeMap(d.bitMapPointer)
	}
	var unmapErr error
	if d.mode == ModeRW && d.rwFull != nil {
		unmapErr = unix.Munmap(d.rwFull)
	} else if d.ro != nil {
		unmapErr = d.ro.Close()
	}
	closeErr := d.file.Close()
	if flushErr != nil {
		return flushErr
	}
	if unmapErr != nil {
		return unmapErr
	}
	return closeErr
}
