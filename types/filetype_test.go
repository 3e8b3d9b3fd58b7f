package types

import "testing"

func TestFiletypeForNameByFullThreeAndOneLetter(t *testing.T) {
	cases := []struct {
		name string
		want Filetype
	}{
		{"ASCIIText", FiletypeASCIIText},
		{"TXT", FiletypeASCIIText},
		{"T", FiletypeASCIIText},
		{"System", FiletypeSystem},
		{"SYS", FiletypeSystem},
		{"Directory", FiletypeDirectory},
		{"DIR", FiletypeDirectory},
		{"D", FiletypeDirectory},
	}
	for _, c := range cases {
		got, err := FiletypeForName(c.name)
		if err != nil {
			t.Errorf("FiletypeForName(%q): %v", c.name, err)
			continue
		}
		if got != c.want {
			t.Errorf("FiletypeForName(%q) = %#x, want %#x", c.name, int(got), int(c.want))
		}
	}
}

func TestFiletypeForNameUnknown(t *testing.T) {
	if _, err := FiletypeForName("NoSuchType"); err == nil {
		t.Error("FiletypeForName(\"NoSuchType\") returned nil error, want an error")
	}
}

func TestFiletypeStringKnownAndUnknown(t *testing.T) {
	if got := FiletypeSystem.String(); got == "" {
		t.Error("FiletypeSystem.String() is empty")
	}
	reserved := Filetype(0xC5)
	if got := reserved.String(); got == "" {
		t.Errorf("reserved filetype %#x stringified to empty", int(reserved))
	}

	bogus := Filetype(0x100)
	got := bogus.String()
	if got == "" {
		t.Errorf("Filetype(%#x).String() is empty", int(bogus))
	}
}

func TestFiletypeInfosExcludesExtraUnlessAll(t *testing.T) {
	all := FiletypeInfos(true)
	normal := FiletypeInfos(false)
	if len(normal) >= len(all) {
		t.Errorf("FiletypeInfos(false) returned %d entries, want fewer than FiletypeInfos(true)'s %d", len(normal), len(all))
	}
	for _, info := range normal {
		if info.Extra {
			t.Errorf("FiletypeInfos(false) included Extra entry %q", info.Name)
		}
	}

	foundASCII := false
	for _, info := range all {
		if info.Type == FiletypeASCIIText {
			foundASCII = true
			if info.ThreeLetter != "TXT" {
				t.Errorf("ASCIIText ThreeLetter = %q, want TXT", info.ThreeLetter)
			}
		}
	}
	if !foundASCII {
		t.Error("FiletypeInfos(true) missing ASCIIText entry")
	}
}
