package prodos

import "strings"

// LegalPath normalizes a path for storage: it upper-cases the input,
// then for each `/`-separated part prepends 'A' if the part's first
// character isn't an uppercase letter, then replaces any character
// outside [A-Z0-9./] with '0'.
func LegalPath(s string) string {
	s = strings.ToUpper(s)
	parts := strings.Split(s, "/")
	for i, part := range parts {
		if part == "" {
			continue
		}
		if part[0] < 'A' || part[0] > 'Z' {
			part = "A" + part
		}
		parts[i] = part
	}
	s = strings.Join(parts, "/")

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '.' || r == '/' {
			b.WriteRune(r)
		} else {
			b.WriteRune('0')
		}
	}
	return b.String()
}
