package blockdev

import (
	"os"
	"path/filepath"
	"testing"
)

func newRawDevice(t *testing.T, blocks uint16) (*Device, string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "test.po")
	d, err := Create(path, blocks, FormatRaw)
	if err != nil {
		t.Fatal(err)
	}
	return d, path
}

func TestCreateRawSize(t *testing.T) {
	d, path := newRawDevice(t, 140)
	defer d.Close()
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Size() != 140*BlockSize {
		t.Errorf("got size %d, want %d", info.Size(), 140*BlockSize)
	}
}

func TestCreate2mgSize(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.2mg")
	d, err := Create(path, 140, Format2mg)
	if err != nil {
		t.Fatal(err)
	}
	defer d.Close()
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	want := int64(140*BlockSize + twoImgHeaderSz)
	if info.Size() != want {
		t.Errorf("got size %d, want %d", info.Size(), want)
	}
}

func TestAllocateFreeLowestIndex(t *testing.T) {
	d, _ := newRawDevice(t, 16)
	defer d.Close()

	var got []uint16
	for i := 0; i < 16; i++ {
		b, err := d.AllocateBlock()
		if err != nil {
			t.Fatal(err)
		}
		got = append(got, b)
	}
	for i, b := range got {
		if b != uint16(i) {
			t.Errorf("allocation %d: got block %d, want %d", i, b, i)
		}
	}
	if _, err := d.AllocateBlock(); err == nil {
		t.Error("expected volume-full error, got nil")
	}

	if err := d.FreeBlock(3); err != nil {
		t.Fatal(err)
	}
	if err := d.FreeBlock(3); err == nil {
		t.Error("expected double-free error, got nil")
	}
	b, err := d.AllocateBlock()
	if err != nil {
		t.Fatal(err)
	}
	if b != 3 {
		t.Errorf("got block %d after free, want 3 (lowest-free policy)", b)
	}
}

func TestWriteReadBlockRoundtrip(t *testing.T) {
	d, _ := newRawDevice(t, 4)
	defer d.Close()

	var want Block
	for i := range want {
		want[i] = byte(i)
	}
	if err := d.WriteBlock(2, want); err != nil {
		t.Fatal(err)
	}
	got, err := d.ReadBlock(2)
	if err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Errorf("block content differs after roundtrip")
	}
}

func TestAccessLog(t *testing.T) {
	d, _ := newRawDevice(t, 8)
	defer d.Close()

	mark := d.MarkSession()
	if _, err := d.AllocateBlock(); err != nil {
		t.Fatal(err)
	}
	if err := d.WriteBlock(0, Block{}); err != nil {
		t.Fatal(err)
	}
	blocks := d.AccessSince(mark, AccessWrite)
	if len(blocks) != 1 || blocks[0] != 0 {
		t.Errorf("got %v, want [0]", blocks)
	}
}

func TestWriteFreeMapReservesOwnBlocks(t *testing.T) {
	d, _ := newRawDevice(t, 4096+16)
	defer d.Close()

	const bitMapPointer = 6
	for i := uint16(0); i < bitMapPointer; i++ {
		if _, err := d.AllocateBlock(); err != nil {
			t.Fatal(err)
		}
	}
	if err := d.WriteFreeMap(bitMapPointer); err != nil {
		t.Fatal(err)
	}
	if d.IsFree(bitMapPointer) {
		t.Error("bitmap's own first block should be marked used after WriteFreeMap")
	}
}
