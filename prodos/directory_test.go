package prodos

import (
	"testing"
)

func addFile(t *testing.T, d *Directory, name string, size int) Entry {
	t.Helper()
	f := Entry{Name: name, FileType: 0x06, Access: FullAccess, Created: Now(), LastMod: Now()}
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i)
	}
	if err := WriteStandardFile(d.dev, &f, data); err != nil {
		t.Fatalf("WriteStandardFile(%s): %v", name, err)
	}
	if err := d.AddSimpleFile(f); err != nil {
		t.Fatalf("AddSimpleFile(%s): %v", name, err)
	}
	got, err := d.FileEntry(name)
	if err != nil {
		t.Fatalf("FileEntry(%s) after add: %v", name, err)
	}
	return got
}

func TestDirectoryAddAndFindFile(t *testing.T) {
	v := newTestVolume(t, "prodos")
	root := v.Root()
	addFile(t, root, "ONE", 10)
	addFile(t, root, "TWO", 20)

	if _, err := root.FileEntry("one"); err != nil {
		t.Errorf("case-insensitive lookup failed: %v", err)
	}
	if _, err := root.FileEntry("THREE"); err == nil {
		t.Error("expected not-found error for missing entry")
	}
	if got := len(root.Entries()); got != 2 {
		t.Errorf("Entries() returned %d, want 2", got)
	}
}

func TestDirectoryAddSimpleFileReplacesExisting(t *testing.T) {
	v := newTestVolume(t, "prodos")
	root := v.Root()
	addFile(t, root, "ONE", 10)
	before := v.freeBlockCount()
	addFile(t, root, "ONE", 2000) // replaces, should free the old blocks
	if got := len(root.Entries()); got != 1 {
		t.Errorf("Entries() = %d after replace, want 1", got)
	}
	e, err := root.FileEntry("ONE")
	if err != nil {
		t.Fatalf("FileEntry(ONE): %v", err)
	}
	if e.EOF != 2000 {
		t.Errorf("replaced entry EOF = %d, want 2000", e.EOF)
	}
	_ = before
}

func TestDirectoryRemoveSimpleFile(t *testing.T) {
	v := newTestVolume(t, "prodos")
	root := v.Root()
	before := v.freeBlockCount()
	e := addFile(t, root, "ONE", 5000)
	afterAdd := v.freeBlockCount()
	if afterAdd >= before {
		t.Fatalf("free block count did not shrink after adding a file")
	}
	if err := root.RemoveSimpleFile(e); err != nil {
		t.Fatalf("RemoveSimpleFile: %v", err)
	}
	if _, err := root.FileEntry("ONE"); err == nil {
		t.Error("expected not-found after removal")
	}
	if got := v.freeBlockCount(); got != before {
		t.Errorf("free block count = %d after remove, want back to %d", got, before)
	}
}

func TestDirectoryAddDirectoryAndNest(t *testing.T) {
	v := newTestVolume(t, "prodos")
	root := v.Root()
	sub, err := root.AddDirectory("games")
	if err != nil {
		t.Fatalf("AddDirectory: %v", err)
	}
	if sub.Header().Name != "GAMES" {
		t.Errorf("subdirectory name = %q, want GAMES", sub.Header().Name)
	}
	addFile(t, sub, "LODE.RUNNER", 1500)

	reread, err := v.ReadDirectory(mustEntry(t, root, "GAMES"))
	if err != nil {
		t.Fatalf("ReadDirectory: %v", err)
	}
	if _, err := reread.FileEntry("LODE.RUNNER"); err != nil {
		t.Errorf("file not found in re-read subdirectory: %v", err)
	}
}

func mustEntry(t *testing.T, d *Directory, name string) Entry {
	t.Helper()
	e, err := d.FileEntry(name)
	if err != nil {
		t.Fatalf("FileEntry(%s): %v", name, err)
	}
	return e
}

func TestDirectoryRemoveDirectoryRequiresEmpty(t *testing.T) {
	v := newTestVolume(t, "prodos")
	root := v.Root()
	sub, err := root.AddDirectory("games")
	if err != nil {
		t.Fatalf("AddDirectory: %v", err)
	}
	addFile(t, sub, "LODE.RUNNER", 100)

	e := mustEntry(t, root, "GAMES")
	if err := root.RemoveDirectory(e); err == nil {
		t.Error("expected error removing a non-empty subdirectory")
	}

	sub2, err := v.ReadDirectory(e)
	if err != nil {
		t.Fatalf("ReadDirectory: %v", err)
	}
	lr := mustEntry(t, sub2, "LODE.RUNNER")
	if err := sub2.RemoveSimpleFile(lr); err != nil {
		t.Fatalf("RemoveSimpleFile: %v", err)
	}
	if err := root.RemoveDirectory(e); err != nil {
		t.Errorf("RemoveDirectory on now-empty subdirectory: %v", err)
	}
}

func TestDirectoryRemoveDirectoryForbidsRoot(t *testing.T) {
	v := newTestVolume(t, "prodos")
	if err := v.Root().RemoveDirectory(RootEntry); err == nil {
		t.Error("expected error removing the volume root directory")
	}
}

func TestDirectoryMoveSimpleFileSameDir(t *testing.T) {
	v := newTestVolume(t, "prodos")
	root := v.Root()
	e := addFile(t, root, "ONE", 10)
	if err := root.MoveSimpleFile(e, root, "TWO"); err != nil {
		t.Fatalf("MoveSimpleFile (rename): %v", err)
	}
	if _, err := root.FileEntry("ONE"); err == nil {
		t.Error("old name still present after rename")
	}
	if _, err := root.FileEntry("TWO"); err != nil {
		t.Errorf("new name missing after rename: %v", err)
	}
}

func TestDirectoryMoveSimpleFileAcrossDirs(t *testing.T) {
	v := newTestVolume(t, "prodos")
	root := v.Root()
	sub, err := root.AddDirectory("games")
	if err != nil {
		t.Fatalf("AddDirectory: %v", err)
	}
	e := addFile(t, root, "ONE", 10)

	if err := root.MoveSimpleFile(e, sub, "ONE"); err != nil {
		t.Fatalf("MoveSimpleFile (cross-dir): %v", err)
	}
	if _, err := root.FileEntry("ONE"); err == nil {
		t.Error("file still present in source directory after move")
	}
	if _, err := sub.FileEntry("ONE"); err != nil {
		t.Errorf("file missing from destination directory: %v", err)
	}
}

func TestDirectoryMoveDirectoryForbidsRoot(t *testing.T) {
	v := newTestVolume(t, "prodos")
	root := v.Root()
	sub, err := root.AddDirectory("games")
	if err != nil {
		t.Fatalf("AddDirectory: %v", err)
	}
	if err := root.MoveDirectory(RootEntry, sub, "NOPE"); err == nil {
		t.Error("expected error moving the volume root directory")
	}
}

func TestDirectoryMoveDirectoryUpdatesParentPointer(t *testing.T) {
	v := newTestVolume(t, "prodos")
	root := v.Root()
	a, err := root.AddDirectory("A")
	if err != nil {
		t.Fatalf("AddDirectory(A): %v", err)
	}
	b, err := root.AddDirectory("B")
	if err != nil {
		t.Fatalf("AddDirectory(B): %v", err)
	}
	addFile(t, a, "INNER", 10)

	aEntry := mustEntry(t, root, "A")
	if err := root.MoveDirectory(aEntry, b, "MOVED"); err != nil {
		t.Fatalf("MoveDirectory: %v", err)
	}

	if _, err := root.FileEntry("A"); err == nil {
		t.Error("source directory entry still present in root after move")
	}
	moved := mustEntry(t, b, "MOVED")

	child, err := v.ReadDirectory(moved)
	if err != nil {
		t.Fatalf("ReadDirectory(moved): %v", err)
	}
	if child.Header().Name != "MOVED" {
		t.Errorf("moved subdirectory header name = %q, want MOVED", child.Header().Name)
	}
	if child.Header().ParentPointer != b.KeyBlock() {
		t.Errorf("moved subdirectory parent pointer = %d, want %d", child.Header().ParentPointer, b.KeyBlock())
	}
	if _, err := child.FileEntry("INNER"); err != nil {
		t.Errorf("moved subdirectory lost its contents: %v", err)
	}
}

func TestDirectoryGlobFile(t *testing.T) {
	v := newTestVolume(t, "prodos")
	root := v.Root()
	addFile(t, root, "README", 10)
	addFile(t, root, "README.TXT", 10)
	addFile(t, root, "PRODOS.SYSTEM", 10)

	matches, err := root.GlobFile("README*")
	if err != nil {
		t.Fatalf("GlobFile: %v", err)
	}
	if len(matches) != 2 {
		t.Errorf("GlobFile(README*) matched %d entries, want 2", len(matches))
	}

	matches, err = root.GlobFile("*.SYSTEM")
	if err != nil {
		t.Fatalf("GlobFile: %v", err)
	}
	if len(matches) != 1 {
		t.Errorf("GlobFile(*.SYSTEM) matched %d entries, want 1", len(matches))
	}
}

func TestDirectoryRootFixedSize(t *testing.T) {
	v := newTestVolume(t, "prodos")
	root := v.Root()
	if !root.IsRoot() {
		t.Fatal("volume root directory reports IsRoot() == false")
	}

	// Root capacity is fixed at rootBlocks*EntriesPerBlock-1 entries
	// (51), regardless of how many are actually occupied.
	capacity := rootBlocks*EntriesPerBlock - 1
	for i := 0; i < capacity; i++ {
		addFile(t, root, nameFor(i), 1)
	}
	if len(root.blocks) != rootBlocks {
		t.Errorf("root directory grew past its fixed %d blocks: now %d", rootBlocks, len(root.blocks))
	}

	// One more entry should fail: the root directory never grows.
	over := Entry{Name: "OVERFLOW", FileType: 0x06, Access: FullAccess, Created: Now(), LastMod: Now()}
	if err := WriteStandardFile(v.Device(), &over, []byte("x")); err != nil {
		t.Fatalf("WriteStandardFile: %v", err)
	}
	if err := root.AddSimpleFile(over); err == nil {
		t.Error("expected capacity-exceeded error adding past the root's fixed capacity")
	}
}

func nameFor(i int) string {
	const letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	return "F" + string(letters[i%26]) + string(letters[(i/26)%26])
}
