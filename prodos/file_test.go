package prodos

import (
	"bytes"
	"testing"

	"github.com/zellyn/prodos8/blockdev"
)

func writeAndReadBack(t *testing.T, v *Volume, data []byte) (Entry, []byte) {
	t.Helper()
	e := Entry{Name: "DATA", FileType: 0x06, Access: FullAccess, Created: Now(), LastMod: Now()}
	if err := WriteStandardFile(v.Device(), &e, data); err != nil {
		t.Fatalf("WriteStandardFile: %v", err)
	}
	got, err := ReadStandardFile(v.Device(), e)
	if err != nil {
		t.Fatalf("ReadStandardFile: %v", err)
	}
	return e, got
}

func TestStandardFileSeedlingRoundtrip(t *testing.T) {
	v := newTestVolume(t, "prodos")
	data := []byte("hello, prodos")
	e, got := writeAndReadBack(t, v, data)
	if e.StorageType != StorageSeedling {
		t.Errorf("storage type = %#x, want Seedling", e.StorageType)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("roundtrip mismatch: got %q, want %q", got, data)
	}
	if e.BlocksUsed != 1 {
		t.Errorf("blocks used = %d, want 1", e.BlocksUsed)
	}
}

func TestStandardFileSaplingRoundtrip(t *testing.T) {
	v := newTestVolume(t, "prodos")
	data := bytes.Repeat([]byte{0x2A}, 10*blockdev.BlockSize+17)
	e, got := writeAndReadBack(t, v, data)
	if e.StorageType != StorageSapling {
		t.Errorf("storage type = %#x, want Sapling", e.StorageType)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("roundtrip mismatch: got %d bytes, want %d", len(got), len(data))
	}
}

func TestStandardFileTreeRoundtrip(t *testing.T) {
	v := newTestVolume(t, "prodos")
	// Exceeds a sapling's 128KiB capacity, forcing a tree (depth 3).
	data := bytes.Repeat([]byte{0x77}, 130*1024+3)
	e, got := writeAndReadBack(t, v, data)
	if e.StorageType != StorageTree {
		t.Errorf("storage type = %#x, want Tree", e.StorageType)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("roundtrip mismatch: got %d bytes, want %d", len(got), len(data))
	}
}

func TestStandardFileSparseMiddle(t *testing.T) {
	v := newTestVolume(t, "prodos")
	const middle = 131072 // 256 blocks, exactly one sapling index span
	data := make([]byte, blockdev.BlockSize+middle+blockdev.BlockSize)
	for i := 0; i < blockdev.BlockSize; i++ {
		data[i] = 1
	}
	for i := len(data) - blockdev.BlockSize; i < len(data); i++ {
		data[i] = 2
	}

	e, got := writeAndReadBack(t, v, data)
	if !bytes.Equal(got, data) {
		t.Fatalf("roundtrip mismatch: sparse read-back differs from original")
	}

	ceilBlocks := ceilDiv(len(data), blockdev.BlockSize)
	if int(e.BlocksUsed) >= ceilBlocks {
		t.Errorf("blocks_used = %d, want fewer than %d (sparse middle should skip blocks)", e.BlocksUsed, ceilBlocks)
	}
}

func TestStandardFileEmptyAllocatesBlock(t *testing.T) {
	v := newTestVolume(t, "prodos")
	e, got := writeAndReadBack(t, v, nil)
	if len(got) != 0 {
		t.Errorf("read back %d bytes for an empty file, want 0", len(got))
	}
	if e.StorageType != StorageSeedling {
		t.Errorf("storage type = %#x, want Seedling", e.StorageType)
	}
	// Per the ProDOS technote, a freshly-created empty file still owns
	// one real data block (key_pointer), unlike the reference
	// implementation this system was modeled on, which leaves an empty
	// sapling/tree file's first data block unallocated. A seedling is
	// always allocated either way, so this assertion documents the
	// divergence for the (impossible-to-reach-at-depth-1) general case.
	if e.BlocksUsed != 1 {
		t.Errorf("blocks used for empty file = %d, want 1 (technote-compliant allocation)", e.BlocksUsed)
	}
	if e.KeyPointer == 0 {
		t.Errorf("expected a real key_pointer block for an empty file, got 0")
	}
}

func TestStandardFileOverwriteFreesOldBlocks(t *testing.T) {
	v := newTestVolume(t, "prodos")
	before := v.freeBlockCount()

	e := Entry{Name: "DATA", FileType: 0x06, Access: FullAccess, Created: Now(), LastMod: Now()}
	big := bytes.Repeat([]byte{0x11}, 20*blockdev.BlockSize)
	if err := WriteStandardFile(v.Device(), &e, big); err != nil {
		t.Fatalf("WriteStandardFile(big): %v", err)
	}
	afterBig := v.freeBlockCount()
	if afterBig >= before {
		t.Fatalf("free block count did not shrink after writing %d bytes", len(big))
	}

	small := []byte("tiny")
	if err := WriteStandardFile(v.Device(), &e, small); err != nil {
		t.Fatalf("WriteStandardFile(small): %v", err)
	}
	afterSmall := v.freeBlockCount()
	if afterSmall <= afterBig {
		t.Errorf("free block count did not grow back after shrinking the file: before-big=%d after-big=%d after-small=%d", before, afterBig, afterSmall)
	}

	got, err := ReadStandardFile(v.Device(), e)
	if err != nil {
		t.Fatalf("ReadStandardFile: %v", err)
	}
	if !bytes.Equal(got, small) {
		t.Errorf("read back %q after overwrite, want %q", got, small)
	}
}
