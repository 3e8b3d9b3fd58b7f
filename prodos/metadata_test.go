package prodos

import (
	"testing"

	"github.com/kr/pretty"
)

func TestDateTimeRoundtrip(t *testing.T) {
	dt := DateTime{Year: 24, Month: 7, Day: 29, Hour: 13, Minute: 45}
	b := dt.pack()
	got := unpackDateTime(b[:])
	if got != dt {
		t.Errorf("roundtrip mismatch:\n%s", pretty.Diff(dt, got))
	}
}

func TestEmptyDateTimeRoundtrip(t *testing.T) {
	b := EmptyDateTime.pack()
	got := unpackDateTime(b[:])
	if got != EmptyDateTime {
		t.Errorf("roundtrip mismatch:\n%s", pretty.Diff(EmptyDateTime, got))
	}
}

func TestEntryRoundtripFile(t *testing.T) {
	e := Entry{
		StorageType:   StorageSapling,
		Name:          "HELLO.BAS",
		FileType:      0xFC,
		KeyPointer:    17,
		BlocksUsed:    3,
		EOF:           1024,
		Created:       DateTime{Year: 20, Month: 1, Day: 2, Hour: 3, Minute: 4},
		Version:       0,
		MinVersion:    0,
		Access:        FullAccess,
		AuxType:       0x0803,
		LastMod:       DateTime{Year: 21, Month: 5, Day: 6, Hour: 7, Minute: 8},
		HeaderPointer: 2,
	}
	got := unpackEntry(e.pack())
	if got != e {
		t.Errorf("roundtrip mismatch:\n%s", pretty.Diff(e, got))
	}
}

func TestEntryRoundtripVolumeHeader(t *testing.T) {
	e := Entry{
		StorageType:     StorageVolumeHdr,
		Name:            "PRODOS",
		Created:         DateTime{Year: 24, Month: 7, Day: 29, Hour: 12, Minute: 0},
		Version:         0,
		MinVersion:      0,
		Access:          FullAccess,
		EntryLength:     EntryLength,
		EntriesPerBlock: EntriesPerBlock,
		FileCount:       14,
		BitMapPointer:   6,
		TotalBlocks:     280,
	}
	got := unpackEntry(e.pack())
	if got != e {
		t.Errorf("roundtrip mismatch:\n%s", pretty.Diff(e, got))
	}
}

func TestEntryRoundtripSubdirectoryHeader(t *testing.T) {
	e := Entry{
		StorageType:       StorageSubdirectoryHdr,
		Name:              "GAMES",
		Created:           DateTime{Year: 24, Month: 3, Day: 4, Hour: 9, Minute: 30},
		Version:           0,
		MinVersion:        0,
		Access:            FullAccess,
		EntryLength:       EntryLength,
		EntriesPerBlock:   EntriesPerBlock,
		FileCount:         3,
		ParentPointer:     2,
		ParentEntryNumber: 5,
		ParentEntryLength: EntryLength,
	}
	got := unpackEntry(e.pack())
	if got != e {
		t.Errorf("roundtrip mismatch:\n%s", pretty.Diff(e, got))
	}
}

func TestEntryEmptySlotRoundtrip(t *testing.T) {
	e := Entry{StorageType: StorageEmpty}
	got := unpackEntry(e.pack())
	if got.StorageType != StorageEmpty {
		t.Errorf("got storage type %#x, want Empty", got.StorageType)
	}
}

func TestIndexBlockGetSet(t *testing.T) {
	var ib IndexBlock
	ib.Set(0, 0x1234)
	ib.Set(255, 0xABCD)
	if got := ib.Get(0); got != 0x1234 {
		t.Errorf("slot 0: got %#x, want %#x", got, 0x1234)
	}
	if got := ib.Get(255); got != 0xABCD {
		t.Errorf("slot 255: got %#x, want %#x", got, 0xABCD)
	}
	// Low/high bytes are split across the block's two halves.
	if ib[0] != 0x34 || ib[256] != 0x12 {
		t.Errorf("slot 0 not split low/high as expected: %#x %#x", ib[0], ib[256])
	}
}

func TestEntryValidateLongName(t *testing.T) {
	e := Entry{StorageType: StorageSeedling, Name: "THIS.NAME.IS.WAY.TOO.LONG"}
	errs := e.Validate()
	if len(errs) == 0 {
		t.Error("expected a validation error for an over-long name")
	}
}

func TestEntryDepth(t *testing.T) {
	cases := []struct {
		st   StorageType
		want int
	}{
		{StorageSeedling, 1},
		{StorageSapling, 2},
		{StorageTree, 3},
	}
	for _, c := range cases {
		e := Entry{StorageType: c.st}
		if got := e.Depth(); got != c.want {
			t.Errorf("storage type %#x: got depth %d, want %d", c.st, got, c.want)
		}
	}
}
