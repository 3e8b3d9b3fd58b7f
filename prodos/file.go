package prodos

import (
	"github.com/zellyn/prodos8/blockdev"
	"github.com/zellyn/prodos8/prodoserr"
)

// depthToStorageType maps a standard-file tree depth to its storage
// type.
func depthToStorageType(depth int) StorageType {
	switch depth {
	case 1:
		return StorageSeedling
	case 2:
		return StorageSapling
	case 3:
		return StorageTree
	}
	panic("depth must be 1, 2 or 3")
}

// chunkSizeForDepth returns the number of bytes addressed by one
// pointer slot at the given depth (the size of the subtree below an
// index block entry at this level).
func chunkSizeForDepth(depth int) int {
	return 1 << (9 + 8*(depth-2))
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}

func isAllZero(b []byte) bool {
	for _, c := range b {
		if c != 0 {
			return false
		}
	}
	return true
}

// ReadStandardFile reads the full contents of a seedling/sapling/tree
// file described by e.
func ReadStandardFile(dev *blockdev.Device, e Entry) ([]byte, error) {
	if !e.IsSimpleFile() {
		return nil, prodoserr.TypeMismatchf("%q is not a standard file", e.Name)
	}
	return readLevel(dev, e.KeyPointer, e.Depth(), int(e.EOF))
}

func readLevel(dev *blockdev.Device, key uint16, depth int, eof int) ([]byte, error) {
	if key == 0 {
		return make([]byte, eof), nil
	}
	if depth == 1 {
		blk, err := dev.ReadBlock(key)
		if err != nil {
			return nil, err
		}
		if eof > blockdev.BlockSize {
			eof = blockdev.BlockSize
		}
		return append([]byte(nil), blk[:eof]...), nil
	}
	blk, err := dev.ReadBlock(key)
	if err != nil {
		return nil, err
	}
	ib := IndexBlock(blk)
	chunkSize := chunkSizeForDepth(depth)
	n := ceilDiv(eof, chunkSize)
	out := make([]byte, 0, eof)
	for j := 0; j < n; j++ {
		remain := eof - j*chunkSize
		sub := chunkSize
		if remain < sub {
			sub = remain
		}
		child, err := readLevel(dev, ib.Get(byte(j)), depth-1, sub)
		if err != nil {
			return nil, err
		}
		out = append(out, child...)
	}
	return out, nil
}

// WriteStandardFile overwrites e's file content with data, computing
// the minimal tree depth, freeing any previously-allocated blocks,
// and recursively allocating and writing the new tree. It always
// allocates a first data block even for an empty file, per the
// ProDOS technote (the reference implementation this system was
// modeled on skips that allocation for empty sapling/tree files; this
// is a deliberate divergence — see file_test.go).
func WriteStandardFile(dev *blockdev.Device, e *Entry, data []byte) error {
	if e.IsSimpleFile() {
		if err := freeStandardFile(dev, *e); err != nil {
			return err
		}
	}

	depth := 1
	chunk := blockdev.BlockSize
	for chunk < len(data) {
		chunk <<= 8
		depth++
	}

	root, blocksUsed, err := writeLevel(dev, data, depth)
	if err != nil {
		return err
	}

	e.StorageType = depthToStorageType(depth)
	e.KeyPointer = root
	e.BlocksUsed = uint16(blocksUsed)
	e.EOF = uint32(len(data))
	return nil
}

func writeLevel(dev *blockdev.Device, data []byte, depth int) (uint16, int, error) {
	if depth == 1 {
		block, err := dev.AllocateBlock()
		if err != nil {
			return 0, 0, err
		}
		var buf blockdev.Block
		copy(buf[:], data)
		if err := dev.WriteBlock(block, buf); err != nil {
			return 0, 0, err
		}
		return block, 1, nil
	}

	chunkSize := chunkSizeForDepth(depth)
	n := ceilDiv(len(data), chunkSize)

	idxBlock, err := dev.AllocateBlock()
	if err != nil {
		return 0, 0, err
	}
	var ib IndexBlock
	count := 1
	for j := 0; j < n; j++ {
		start := j * chunkSize
		end := start + chunkSize
		if end > len(data) {
			end = len(data)
		}
		chunkData := data[start:end]
		if isAllZero(chunkData) {
			ib.Set(byte(j), 0)
			continue
		}
		childRoot, childCount, err := writeLevel(dev, chunkData, depth-1)
		if err != nil {
			return 0, 0, err
		}
		ib.Set(byte(j), childRoot)
		count += childCount
	}
	if err := dev.WriteBlock(idxBlock, blockdev.Block(ib)); err != nil {
		return 0, 0, err
	}
	return idxBlock, count, nil
}

// freeStandardFile frees every block (data, index and master-index)
// belonging to e's file tree, honoring sparse (zero) pointers.
func freeStandardFile(dev *blockdev.Device, e Entry) error {
	return freeLevel(dev, e.KeyPointer, e.Depth())
}

func freeLevel(dev *blockdev.Device, key uint16, depth int) error {
	if key == 0 {
		return nil
	}
	if depth > 1 {
		blk, err := dev.ReadBlock(key)
		if err != nil {
			return err
		}
		ib := IndexBlock(blk)
		for j := 0; j < 256; j++ {
			child := ib.Get(byte(j))
			if child == 0 {
				continue
			}
			if err := freeLevel(dev, child, depth-1); err != nil {
				return err
			}
		}
	}
	return dev.FreeBlock(key)
}
