// Package sign provides sign identifier normalization and reference asset lookup.
package sign

import "strings"

// Normalize converts a sign name into its canonical identifier.
// The result is lowercase and contains only ASCII letters and digits, so
// "Letter A", "letter-a" and "LETTERA" all normalize to "lettera".
func Normalize(name string) string {
	var b strings.Builder
	b.Grow(len(name))

	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}

	return b.String()
}

// Match reports whether a predicted label refers to the target sign.
// An empty identifier never matches.
func Match(label, target string) bool {
	l := Normalize(label)
	if l == "" {
		return false
	}
	return l == Normalize(target)
}
