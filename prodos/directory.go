package prodos

import (
	"fmt"
	"strings"

	"github.com/gobwas/glob"
	"github.com/sirupsen/logrus"

	"github.com/zellyn/prodos8/blockdev"
	"github.com/zellyn/prodos8/prodoserr"
)

// volumeKeyBlock is the block number of the volume directory's key
// block (block 2, right after the two boot-loader blocks).
const volumeKeyBlock = 2

// rootBlocks is the fixed block count (and therefore fixed 51-entry
// capacity) of the volume directory.
const rootBlocks = 4

// Directory is the in-memory, mutable representation of a linked
// directory file: a key block holding a header entry, followed by
// zero or more continuation blocks, together holding a logical array
// of file entries that is kept compacted and padded to a multiple of
// 13 slots less one.
type Directory struct {
	dev      *blockdev.Device
	keyBlock uint16
	header   Entry
	entries  []Entry  // does not include the header entry
	blocks   []uint16 // blocks[0] == keyBlock
}

// IsRoot reports whether this is the volume's root directory, whose
// block count (and therefore entry capacity) never changes.
func (d *Directory) IsRoot() bool {
	return d.keyBlock == volumeKeyBlock
}

// KeyBlock returns the directory's key block number.
func (d *Directory) KeyBlock() uint16 {
	return d.keyBlock
}

// Header returns the directory's header entry (a copy).
func (d *Directory) Header() Entry {
	return d.header
}

// String renders a directory listing the way the reference
// implementation's repr does: one line per active entry, followed by
// the header's "N files in NAME" summary.
func (d *Directory) String() string {
	var b strings.Builder
	for _, e := range d.activeEntries() {
		name := e.Name
		if e.IsDir() {
			name += "/"
		}
		fmt.Fprintf(&b, "%-18s %8d %s\n", name, e.EOF, e.String())
	}
	b.WriteString(d.header.String())
	return b.String()
}

// readDirectory reads a directory (volume root or subdirectory)
// starting at keyBlock, following the next_pointer chain.
func readDirectory(dev *blockdev.Device, keyBlock uint16) (*Directory, error) {
	blk, err := dev.ReadBlock(keyBlock)
	if err != nil {
		return nil, err
	}
	db := unpackDirectoryBlock(blk, true)
	if db.header == nil || !db.header.IsHeader() {
		return nil, prodoserr.FormatErrorf("block %d has no directory header entry", keyBlock)
	}

	d := &Directory{dev: dev, keyBlock: keyBlock, header: *db.header}
	d.blocks = append(d.blocks, keyBlock)
	d.entries = append(d.entries, db.entries...)

	prev := keyBlock
	next := db.next
	for next != 0 {
		nblk, err := dev.ReadBlock(next)
		if err != nil {
			return nil, err
		}
		ndb := unpackDirectoryBlock(nblk, false)
		if ndb.prev != prev {
			logrus.Warnf("directory block %d has prev_pointer %d, expected %d", next, ndb.prev, prev)
		}
		d.entries = append(d.entries, ndb.entries...)
		d.blocks = append(d.blocks, next)
		prev = next
		next = ndb.next
	}
	return d, nil
}

// activeEntries returns the subset of d.entries that are occupied.
func (d *Directory) activeEntries() []Entry {
	var active []Entry
	for _, e := range d.entries {
		if e.IsActive() {
			active = append(active, e)
		}
	}
	return active
}

// Entries returns a copy of the directory's active entries, in
// on-disk order.
func (d *Directory) Entries() []Entry {
	return append([]Entry(nil), d.activeEntries()...)
}

// Write compacts the entries array, grows or shrinks the directory's
// block chain to fit, and rewrites every block plus the header's
// file_count.
func (d *Directory) Write() error {
	active := d.activeEntries()

	k := 1
	for k*EntriesPerBlock-1 < len(active) {
		k++
	}
	if d.IsRoot() {
		k = rootBlocks
		if len(active) > k*EntriesPerBlock-1 {
			return prodoserr.CapacityExceededf("volume directory is full: %d entries don't fit in %d fixed blocks", len(active), k)
		}
	}

	padded := make([]Entry, k*EntriesPerBlock-1)
	copy(padded, active)
	for i := len(active); i < len(padded); i++ {
		padded[i] = Entry{StorageType: StorageEmpty}
	}
	d.entries = padded

	if err := d.resizeBlocks(k); err != nil {
		return err
	}

	d.header.FileCount = uint16(len(active))

	offset := 0
	for j, blockNum := range d.blocks {
		count := EntriesPerBlock
		if j == 0 {
			count = EntriesPerBlock - 1
		}
		db := directoryBlock{entries: append([]Entry(nil), d.entries[offset:offset+count]...)}
		offset += count
		if j > 0 {
			db.prev = d.blocks[j-1]
		}
		if j < len(d.blocks)-1 {
			db.next = d.blocks[j+1]
		}
		if j == 0 {
			h := d.header
			db.header = &h
		}
		if err := d.dev.WriteBlock(blockNum, packDirectoryBlock(db)); err != nil {
			return err
		}
	}
	return nil
}

// resizeBlocks grows or shrinks d.blocks to exactly k blocks,
// allocating or freeing blocks on the device as needed.
func (d *Directory) resizeBlocks(k int) error {
	for len(d.blocks) < k {
		b, err := d.dev.AllocateBlock()
		if err != nil {
			return err
		}
		d.blocks = append(d.blocks, b)
	}
	for len(d.blocks) > k {
		last := d.blocks[len(d.blocks)-1]
		if err := d.dev.FreeBlock(last); err != nil {
			return err
		}
		d.blocks = d.blocks[:len(d.blocks)-1]
	}
	return nil
}

// compileGlob compiles a shell glob pattern (`*`, `?`, `[...]`),
// case-insensitively, against upper-cased names.
func compileGlob(pattern string) (glob.Glob, error) {
	return glob.Compile(strings.ToUpper(pattern))
}

// GlobFile returns every active entry whose name matches pattern
// (`*`, `?`, `[...]`), case-insensitively.
func (d *Directory) GlobFile(pattern string) ([]Entry, error) {
	g, err := compileGlob(pattern)
	if err != nil {
		return nil, prodoserr.NotFoundf("bad glob pattern %q: %v", pattern, err)
	}
	var matches []Entry
	for _, e := range d.activeEntries() {
		if g.Match(e.Name) {
			matches = append(matches, e)
		}
	}
	return matches, nil
}

// GlobPath resolves a `/`-separated sequence of glob patterns,
// recursing into matching subdirectories for each remaining part.
func (d *Directory) GlobPath(parts []string) ([]Entry, error) {
	if len(parts) == 0 {
		return nil, nil
	}
	matches, err := d.GlobFile(parts[0])
	if err != nil {
		return nil, err
	}
	if len(parts) == 1 {
		return matches, nil
	}
	var result []Entry
	for _, m := range matches {
		if !m.IsDir() {
			continue
		}
		child, err := readDirectory(d.dev, m.KeyPointer)
		if err != nil {
			return nil, err
		}
		sub, err := child.GlobPath(parts[1:])
		if err != nil {
			return nil, err
		}
		result = append(result, sub...)
	}
	return result, nil
}

// FileEntry does an exact-name lookup, returning an ambiguous error
// if more than one active entry has that name (which should not
// normally happen) and a not-found error if none do.
func (d *Directory) FileEntry(name string) (Entry, error) {
	name = strings.ToUpper(name)
	var matches []Entry
	for _, e := range d.activeEntries() {
		if e.Name == name {
			matches = append(matches, e)
		}
	}
	switch len(matches) {
	case 0:
		return Entry{}, prodoserr.NotFoundf("no entry named %q", name)
	case 1:
		return matches[0], nil
	default:
		return Entry{}, prodoserr.Ambiguousf("%d entries named %q", len(matches), name)
	}
}

// freeSlot returns the index of the first Empty slot in d.entries,
// growing the entries array by one block's worth of slots if none is
// free. The root directory never grows past its fixed size.
func (d *Directory) freeSlot() (int, error) {
	for i, e := range d.entries {
		if e.StorageType == StorageEmpty {
			return i, nil
		}
	}
	if d.IsRoot() {
		return 0, prodoserr.CapacityExceededf("volume directory is full")
	}
	start := len(d.entries)
	for i := 0; i < EntriesPerBlock; i++ {
		d.entries = append(d.entries, Entry{StorageType: StorageEmpty})
	}
	return start, nil
}

// indexOf returns the index in d.entries of the active entry whose
// KeyPointer and Name both match e's, or -1.
func (d *Directory) indexOf(e Entry) int {
	for i, cur := range d.entries {
		if cur.IsActive() && cur.KeyPointer == e.KeyPointer && cur.Name == e.Name {
			return i
		}
	}
	return -1
}

// AddSimpleFile writes f's key entry into this directory. If an
// active entry already exists under f.Name, it is removed (and its
// blocks freed) first.
func (d *Directory) AddSimpleFile(f Entry) error {
	if existing, err := d.FileEntry(f.Name); err == nil {
		if !existing.IsSimpleFile() {
			return prodoserr.TypeMismatchf("%q is not a simple file", f.Name)
		}
		if err := d.RemoveSimpleFile(existing); err != nil {
			return err
		}
	}
	slot, err := d.freeSlot()
	if err != nil {
		return err
	}
	f.HeaderPointer = d.keyBlock
	d.entries[slot] = f
	return d.Write()
}

// RemoveSimpleFile removes e's entry from this directory and frees
// all of the file's data/index blocks.
func (d *Directory) RemoveSimpleFile(e Entry) error {
	if !e.IsSimpleFile() {
		return prodoserr.TypeMismatchf("%q is not a simple file", e.Name)
	}
	idx := d.indexOf(e)
	if idx < 0 {
		return prodoserr.NotFoundf("entry %q not found in directory", e.Name)
	}
	if err := freeStandardFile(d.dev, e); err != nil {
		return err
	}
	d.entries[idx] = Entry{StorageType: StorageEmpty}
	return d.Write()
}

// AddDirectory creates a new, empty subdirectory named name inside
// this directory and returns it.
func (d *Directory) AddDirectory(name string) (*Directory, error) {
	name = LegalPath(name)
	if _, err := d.FileEntry(name); err == nil {
		return nil, prodoserr.FileExistsf("entry %q already exists", name)
	}
	slot, err := d.freeSlot()
	if err != nil {
		return nil, err
	}

	childKey, err := d.dev.AllocateBlock()
	if err != nil {
		return nil, err
	}

	childHeader := Entry{
		StorageType:     StorageSubdirectoryHdr,
		Name:            name,
		Created:         nowDateTime(),
		Version:         0,
		MinVersion:      0,
		Access:          FullAccess,
		EntryLength:     EntryLength,
		EntriesPerBlock: EntriesPerBlock,
		FileCount:       0,
		ParentPointer:   d.keyBlock,
		ParentEntryNumber: byte(slot + 1),
		ParentEntryLength: EntryLength,
	}
	child := &Directory{
		dev:      d.dev,
		keyBlock: childKey,
		header:   childHeader,
		entries:  make([]Entry, EntriesPerBlock-1),
		blocks:   []uint16{childKey},
	}
	if err := child.Write(); err != nil {
		return nil, err
	}

	d.entries[slot] = Entry{
		StorageType:   StorageSubdirectory,
		Name:          name,
		FileType:      0x0F,
		KeyPointer:    childKey,
		BlocksUsed:    1,
		EOF:           blockdev.BlockSize,
		Created:       childHeader.Created,
		Access:        FullAccess,
		LastMod:       childHeader.Created,
		HeaderPointer: d.keyBlock,
	}
	if err := d.Write(); err != nil {
		return nil, err
	}
	return child, nil
}

// RemoveDirectory removes e's entry from this directory. e's
// subdirectory must be empty, and must not be the volume root.
func (d *Directory) RemoveDirectory(e Entry) error {
	if e.KeyPointer == volumeKeyBlock {
		return prodoserr.InvariantViolationf("cannot remove the volume root directory")
	}
	child, err := readDirectory(d.dev, e.KeyPointer)
	if err != nil {
		return err
	}
	if len(child.activeEntries()) != 0 {
		return prodoserr.InvariantViolationf("directory %q is not empty", e.Name)
	}
	idx := d.indexOf(e)
	if idx < 0 {
		return prodoserr.NotFoundf("entry %q not found in directory", e.Name)
	}
	for _, b := range child.blocks {
		if err := d.dev.FreeBlock(b); err != nil {
			return err
		}
	}
	d.entries[idx] = Entry{StorageType: StorageEmpty}
	return d.Write()
}

// MoveSimpleFile moves or renames e (a simple file in this
// directory) to dstDir under newName. Same-directory moves are a
// rename in place; cross-directory moves relocate the entry without
// touching the file's data blocks.
func (d *Directory) MoveSimpleFile(e Entry, dstDir *Directory, newName string) error {
	if !e.IsSimpleFile() {
		return prodoserr.TypeMismatchf("%q is not a simple file", e.Name)
	}
	newName = LegalPath(newName)
	idx := d.indexOf(e)
	if idx < 0 {
		return prodoserr.NotFoundf("entry %q not found in directory", e.Name)
	}

	if dstDir.keyBlock == d.keyBlock {
		e.Name = newName
		d.entries[idx] = e
		return d.Write()
	}

	slot, err := dstDir.freeSlot()
	if err != nil {
		return err
	}
	e.Name = newName
	e.HeaderPointer = dstDir.keyBlock
	dstDir.entries[slot] = e
	d.entries[idx] = Entry{StorageType: StorageEmpty}

	if err := dstDir.Write(); err != nil {
		return err
	}
	return d.Write()
}

// MoveDirectory moves or renames e (a subdirectory entry in this
// directory) to dstDir under newName, updating the child's own
// subdirectory header to point at its new parent. Moving the volume
// root is forbidden.
func (d *Directory) MoveDirectory(e Entry, dstDir *Directory, newName string) error {
	if !e.IsDir() || e.StorageType != StorageSubdirectory {
		return prodoserr.TypeMismatchf("%q is not a subdirectory entry", e.Name)
	}
	if e.KeyPointer == volumeKeyBlock {
		return prodoserr.InvariantViolationf("cannot move the volume root directory")
	}
	newName = LegalPath(newName)
	idx := d.indexOf(e)
	if idx < 0 {
		return prodoserr.NotFoundf("entry %q not found in directory", e.Name)
	}

	child, err := readDirectory(d.dev, e.KeyPointer)
	if err != nil {
		return err
	}

	if dstDir.keyBlock == d.keyBlock {
		e.Name = newName
		d.entries[idx] = e
		child.header.Name = newName
		if err := child.Write(); err != nil {
			return err
		}
		return d.Write()
	}

	slot, err := dstDir.freeSlot()
	if err != nil {
		return err
	}
	e.Name = newName
	e.HeaderPointer = dstDir.keyBlock
	dstDir.entries[slot] = e
	d.entries[idx] = Entry{StorageType: StorageEmpty}

	child.header.Name = newName
	child.header.ParentPointer = dstDir.keyBlock
	child.header.ParentEntryNumber = byte(slot + 1)
	if err := child.Write(); err != nil {
		return err
	}
	if err := dstDir.Write(); err != nil {
		return err
	}
	return d.Write()
}
