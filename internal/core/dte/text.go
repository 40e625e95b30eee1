package dte

import "golang.org/x/text/unicode/norm"

// Truncate limits s to max characters. Input is NFC-normalised first so a
// combining accent never counts as a separate character.
func Truncate(s string, max int) string {
	if max <= 0 || s == "" {
		return ""
	}
	s = norm.NFC.String(s)

	count := 0
	for i := range s {
		if count == max {
			return s[:i]
		}
		count++
	}
	return s
}

// firstNonEmpty returns the first argument that is not the empty string.
func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
