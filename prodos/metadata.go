// Copyright © 2016 Zellyn Hunter <zellyn@gmail.com>

// Package prodos implements the ProDOS 8 on-disk format: the
// metadata codec (directory entries, packed timestamps), the block
// codec (directory, index and bitmap blocks), the standard-file
// seedling/sapling/tree codec, the linked-block directory file, and
// the volume facade tying them together over a blockdev.Device.
package prodos

import (
	"encoding/binary"
	"fmt"
	"strings"
	"time"

	"github.com/zellyn/prodos8/blockdev"
	"github.com/zellyn/prodos8/prodoserr"
	"github.com/zellyn/prodos8/types"
)

// StorageType is the 4-bit entry kind packed into the high nibble of
// an entry's first byte.
type StorageType byte

// Storage types. 0x4, 0x5 and any other value are read-only: callers
// should log and leave such entries untouched.
const (
	StorageEmpty             StorageType = 0x0
	StorageSeedling          StorageType = 0x1
	StorageSapling           StorageType = 0x2
	StorageTree              StorageType = 0x3
	StoragePascalArea        StorageType = 0x4 // out of scope; read-only passthrough
	StorageExtended          StorageType = 0x5 // out of scope; read-only passthrough
	StorageSubdirectory      StorageType = 0xD
	StorageSubdirectoryHdr   StorageType = 0xE
	StorageVolumeHdr         StorageType = 0xF
)

// EntryLength is the fixed size in bytes of every directory entry.
const EntryLength = 39

// EntriesPerBlock is the number of 39-byte entry slots in a
// non-key directory block. The key block has one fewer, since its
// first slot holds the directory header.
const EntriesPerBlock = 13

// Access is the file/directory permission bitmask.
type Access byte

// Access bits.
const (
	AccessReadable           Access = 0x01
	AccessWritable           Access = 0x02
	AccessInvisible          Access = 0x04
	AccessChangedSinceBackup Access = 0x20
	AccessRenamable          Access = 0x40
	AccessDestroyable        Access = 0x80
)

// FullAccess is the access mask written for a freshly created volume
// or file: readable, writable, renamable, destroyable, and marked
// changed-since-backup.
const FullAccess = AccessReadable | AccessWritable | AccessChangedSinceBackup | AccessRenamable | AccessDestroyable

// DateTime is the 4-byte packed ProDOS y/m/d h/m timestamp.
type DateTime struct {
	Year, Month, Day, Hour, Minute int
}

// EmptyDateTime is the all-zero sentinel meaning "no time".
var EmptyDateTime = DateTime{}

// Now returns the current local time as a DateTime, for callers
// building new file/directory entries.
func Now() DateTime {
	return nowDateTime()
}

// nowDateTime returns the current local time packed as a DateTime.
func nowDateTime() DateTime {
	t := time.Now()
	return DateTime{
		Year:   t.Year() % 100,
		Month:  int(t.Month()),
		Day:    t.Day(),
		Hour:   t.Hour(),
		Minute: t.Minute(),
	}
}

// pack encodes a DateTime into its 4-byte on-disk form.
func (dt DateTime) pack() [4]byte {
	var b [4]byte
	year := dt.Year % 100
	b[0] = byte(dt.Month&0b111)<<5 | byte(dt.Day&0b11111)
	b[1] = byte(year&0b1111111)<<1 | byte((dt.Month>>3)&1)
	b[2] = byte(dt.Minute)
	b[3] = byte(dt.Hour)
	return b
}

// unpackDateTime decodes a 4-byte packed timestamp.
func unpackDateTime(b []byte) DateTime {
	if b[0] == 0 && b[1] == 0 && b[2] == 0 && b[3] == 0 {
		return EmptyDateTime
	}
	month := int(b[0]>>5) | (int(b[1]&1) << 3)
	day := int(b[0] & 0b11111)
	year := int(b[1] >> 1)
	minute := int(b[2])
	hour := int(b[3])
	return DateTime{Year: year, Month: month, Day: day, Hour: hour, Minute: minute}
}

// Validate reports problems with a DateTime's hour/minute fields.
func (dt DateTime) Validate(fieldDescription string) (errs []error) {
	if dt.Hour >= 24 {
		errs = append(errs, fmt.Errorf("%s expects hour<24; got %d", fieldDescription, dt.Hour))
	}
	if dt.Minute >= 60 {
		errs = append(errs, fmt.Errorf("%s expects minute<60; got %d", fieldDescription, dt.Minute))
	}
	return errs
}

// Entry is the tagged union of every ProDOS directory-entry kind:
// file entries (seedling/sapling/tree/subdirectory-as-seen-by-parent)
// and the two header-entry flavors (volume and subdirectory). The
// StorageType field selects which fields are meaningful, matching the
// on-disk format's closed tagged union keyed by the 4-bit storage
// type (see pack and unpackEntry below).
type Entry struct {
	StorageType StorageType
	Name        string // upper-case, <= 15 chars

	// File-entry fields (Seedling/Sapling/Tree/Subdirectory-as-entry).
	FileType      byte
	KeyPointer    uint16
	BlocksUsed    uint16
	EOF           uint32 // 24-bit value on disk
	Created       DateTime
	Version       byte
	MinVersion    byte
	Access        Access
	AuxType       uint16
	LastMod       DateTime
	HeaderPointer uint16

	// Header-entry fields (VolumeHdr/SubdirectoryHdr).
	EntryLength     byte
	EntriesPerBlock byte
	FileCount       uint16

	// Volume header only.
	BitMapPointer uint16
	TotalBlocks   uint16

	// Subdirectory header only.
	ParentPointer     uint16
	ParentEntryNumber byte
	ParentEntryLength byte
}

// IsDir reports whether the entry denotes a directory: as seen from
// its parent (Subdirectory), or as the directory's own key-block
// header (SubdirectoryHdr, VolumeHdr).
func (e Entry) IsDir() bool {
	switch e.StorageType {
	case StorageSubdirectory, StorageSubdirectoryHdr, StorageVolumeHdr:
		return true
	}
	return false
}

// IsSimpleFile reports whether the entry denotes a standard
// (seedling/sapling/tree) file.
func (e Entry) IsSimpleFile() bool {
	switch e.StorageType {
	case StorageSeedling, StorageSapling, StorageTree:
		return true
	}
	return false
}

// IsHeader reports whether the entry is a directory header entry
// (occupies slot 0 of a key block).
func (e Entry) IsHeader() bool {
	return e.StorageType == StorageSubdirectoryHdr || e.StorageType == StorageVolumeHdr
}

// IsActive reports whether the entry's slot is occupied (any storage
// type other than Empty).
func (e Entry) IsActive() bool {
	return e.StorageType != StorageEmpty
}

// Depth returns the standard-file tree depth (seedling=1, sapling=2,
// tree=3) implied by the entry's storage type. It panics if the
// entry is not a simple file; callers must check IsSimpleFile first.
func (e Entry) Depth() int {
	switch e.StorageType {
	case StorageSeedling:
		return 1
	case StorageSapling:
		return 2
	case StorageTree:
		return 3
	}
	panic(fmt.Sprintf("Depth called on non-file entry with storage type %#x", e.StorageType))
}

// nameByte packs the storage type and name length into the entry's
// first byte.
func (e Entry) nameByte() byte {
	return byte(e.StorageType)<<4 | byte(len(e.Name)&0xf)
}

// pack encodes the entry to its 39-byte on-disk form.
func (e Entry) pack() []byte {
	buf := make([]byte, EntryLength)
	buf[0] = e.nameByte()
	copy(buf[1:16], []byte(e.Name))

	switch {
	case e.StorageType == StorageVolumeHdr:
		dt := e.Created.pack()
		copy(buf[24:28], dt[:])
		buf[28] = e.Version
		buf[29] = e.MinVersion
		buf[30] = byte(e.Access)
		buf[31] = e.EntryLength
		buf[32] = e.EntriesPerBlock
		binary.LittleEndian.PutUint16(buf[33:35], e.FileCount)
		binary.LittleEndian.PutUint16(buf[35:37], e.BitMapPointer)
		binary.LittleEndian.PutUint16(buf[37:39], e.TotalBlocks)
	case e.StorageType == StorageSubdirectoryHdr:
		buf[16] = 0x75 // magic byte the technote requires here
		dt := e.Created.pack()
		copy(buf[24:28], dt[:])
		buf[28] = e.Version
		buf[29] = e.MinVersion
		buf[30] = byte(e.Access)
		buf[31] = e.EntryLength
		buf[32] = e.EntriesPerBlock
		binary.LittleEndian.PutUint16(buf[33:35], e.FileCount)
		binary.LittleEndian.PutUint16(buf[35:37], e.ParentPointer)
		buf[37] = e.ParentEntryNumber
		buf[38] = e.ParentEntryLength
	default:
		// File entry: Seedling/Sapling/Tree/Subdirectory-as-seen, or
		// an opaque/unknown/Empty slot — still packs its 23-byte tail
		// so round-tripping an unknown entry is lossless.
		buf[16] = e.FileType
		binary.LittleEndian.PutUint16(buf[17:19], e.KeyPointer)
		binary.LittleEndian.PutUint16(buf[19:21], e.BlocksUsed)
		buf[21] = byte(e.EOF)
		buf[22] = byte(e.EOF >> 8)
		buf[23] = byte(e.EOF >> 16)
		dt := e.Created.pack()
		copy(buf[24:28], dt[:])
		buf[28] = e.Version
		buf[29] = e.MinVersion
		buf[30] = byte(e.Access)
		binary.LittleEndian.PutUint16(buf[31:33], e.AuxType)
		lm := e.LastMod.pack()
		copy(buf[33:37], lm[:])
		binary.LittleEndian.PutUint16(buf[37:39], e.HeaderPointer)
	}
	return buf
}

// unpackEntry decodes a 39-byte directory entry.
func unpackEntry(buf []byte) Entry {
	if len(buf) != EntryLength {
		panic(fmt.Sprintf("entry must be %d bytes; got %d", EntryLength, len(buf)))
	}
	var e Entry
	e.StorageType = StorageType(buf[0] >> 4)
	nameLen := int(buf[0] & 0xf)
	e.Name = strings.ToUpper(string(buf[1 : 1+nameLen]))

	switch e.StorageType {
	case StorageVolumeHdr:
		e.Created = unpackDateTime(buf[24:28])
		e.Version = buf[28]
		e.MinVersion = buf[29]
		e.Access = Access(buf[30])
		e.EntryLength = buf[31]
		e.EntriesPerBlock = buf[32]
		e.FileCount = binary.LittleEndian.Uint16(buf[33:35])
		e.BitMapPointer = binary.LittleEndian.Uint16(buf[35:37])
		e.TotalBlocks = binary.LittleEndian.Uint16(buf[37:39])
	case StorageSubdirectoryHdr:
		e.Created = unpackDateTime(buf[24:28])
		e.Version = buf[28]
		e.MinVersion = buf[29]
		e.Access = Access(buf[30])
		e.EntryLength = buf[31]
		e.EntriesPerBlock = buf[32]
		e.FileCount = binary.LittleEndian.Uint16(buf[33:35])
		e.ParentPointer = binary.LittleEndian.Uint16(buf[35:37])
		e.ParentEntryNumber = buf[37]
		e.ParentEntryLength = buf[38]
	default:
		e.FileType = buf[16]
		e.KeyPointer = binary.LittleEndian.Uint16(buf[17:19])
		e.BlocksUsed = binary.LittleEndian.Uint16(buf[19:21])
		e.EOF = uint32(buf[21]) | uint32(buf[22])<<8 | uint32(buf[23])<<16
		e.Created = unpackDateTime(buf[24:28])
		e.Version = buf[28]
		e.MinVersion = buf[29]
		e.Access = Access(buf[30])
		e.AuxType = binary.LittleEndian.Uint16(buf[31:33])
		e.LastMod = unpackDateTime(buf[33:37])
		e.HeaderPointer = binary.LittleEndian.Uint16(buf[37:39])
	}
	return e
}

// Validate reports problems with the fields of a file entry.
func (e Entry) Validate() (errs []error) {
	if len(e.Name) > 15 {
		errs = append(errs, prodoserr.CapacityExceededf("name %q is %d characters, max 15", e.Name, len(e.Name)))
	}
	errs = append(errs, e.Created.Validate(fmt.Sprintf("creation date/time of entry %q", e.Name))...)
	if !e.IsHeader() {
		errs = append(errs, e.LastMod.Validate(fmt.Sprintf("last-modified date/time of entry %q", e.Name))...)
	}
	return errs
}

// String renders a directory header the way the reference
// implementation's repr does, e.g. "14 files in PRODOS". Any other
// entry renders as its name, file type, blocks used and EOF.
func (e Entry) String() string {
	if !e.IsHeader() {
		return fmt.Sprintf("%s (%s, %d blocks, %d bytes)", e.Name, types.Filetype(e.FileType), e.BlocksUsed, e.EOF)
	}
	return fmt.Sprintf("%d files in %s", e.FileCount, e.Name)
}

// IndexBlock is a 512-byte block of 256 split low/high block
// pointers; pointer 0 means "sparse" (an all-zero chunk that was
// never allocated).
type IndexBlock blockdev.Block

// Get returns the n'th block pointer from an index block.
func (ib IndexBlock) Get(n byte) uint16 {
	return uint16(ib[n]) | uint16(ib[256+int(n)])<<8
}

// Set sets the n'th block pointer in an index block.
func (ib *IndexBlock) Set(n byte, block uint16) {
	ib[n] = byte(block)
	ib[256+int(n)] = byte(block >> 8)
}
