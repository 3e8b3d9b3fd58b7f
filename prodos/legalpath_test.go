package prodos

import "testing"

func TestLegalPath(t *testing.T) {
	cases := []struct{ in, want string }{
		{"hello", "HELLO"},
		{"9file", "A9FILE"},
		{"my file!", "MY0FILE0"},
		{"a/b/c", "A/B/C"},
		{"/a/9b", "/A/A9B"},
		{"GOOD.NAME", "GOOD.NAME"},
		{"", ""},
	}
	for _, c := range cases {
		if got := LegalPath(c.in); got != c.want {
			t.Errorf("LegalPath(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestLegalPathIdempotent(t *testing.T) {
	inputs := []string{"hello world", "9abc/def!!", "a.b.c", "WEIRD//PATH"}
	for _, in := range inputs {
		once := LegalPath(in)
		twice := LegalPath(once)
		if once != twice {
			t.Errorf("LegalPath not idempotent for %q: %q != %q", in, once, twice)
		}
	}
}
