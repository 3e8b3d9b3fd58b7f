package prodos

import (
	"encoding/binary"

	"github.com/sirupsen/logrus"
	"github.com/zellyn/prodos8/blockdev"
)

// directoryBlock is the decoded form of one 512-byte block of a
// directory file: a prev/next link, an optional header entry (only
// present in a key block), and its file entries.
type directoryBlock struct {
	prev, next uint16
	header     *Entry // non-nil only for a key block
	entries    []Entry
}

// packDirectoryBlock encodes a directoryBlock to its on-disk form.
// The trailing byte is always written zero.
func packDirectoryBlock(db directoryBlock) blockdev.Block {
	var block blockdev.Block
	binary.LittleEndian.PutUint16(block[0:2], db.prev)
	binary.LittleEndian.PutUint16(block[2:4], db.next)
	offset := 4
	if db.header != nil {
		copy(block[offset:offset+EntryLength], db.header.pack())
		offset += EntryLength
	}
	for _, e := range db.entries {
		copy(block[offset:offset+EntryLength], e.pack())
		offset += EntryLength
	}
	// Remaining bytes (including the trailing padding byte) stay zero.
	return block
}

// unpackDirectoryBlock decodes a directory block. isKeyBlock selects
// whether the first entry slot is a header (volume/subdirectory) or
// an ordinary file entry.
func unpackDirectoryBlock(block blockdev.Block, isKeyBlock bool) directoryBlock {
	var db directoryBlock
	db.prev = binary.LittleEndian.Uint16(block[0:2])
	db.next = binary.LittleEndian.Uint16(block[2:4])
	offset := 4
	if isKeyBlock {
		h := unpackEntry(block[offset : offset+EntryLength])
		db.header = &h
		offset += EntryLength
	}
	for offset+EntryLength <= blockdev.BlockSize-1 {
		e := unpackEntry(block[offset : offset+EntryLength])
		if e.IsActive() && !e.IsSimpleFile() && e.StorageType != StorageSubdirectory {
			logrus.Warnf("directory entry %q has unsupported storage type %#x", e.Name, e.StorageType)
		}
		db.entries = append(db.entries, e)
		offset += EntryLength
	}
	if block[blockdev.BlockSize-1] != 0 {
		logrus.Warnf("directory block has non-zero padding byte %#x", block[blockdev.BlockSize-1])
	}
	return db
}
