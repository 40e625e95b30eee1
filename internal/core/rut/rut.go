package rut

import "strings"

// minLength is the shortest cleaned RUT (body plus check character) accepted.
const minLength = 7

// Clean removes every character that is not a digit or k/K.
// The case of the check character is preserved as typed.
func Clean(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if (r >= '0' && r <= '9') || r == 'k' || r == 'K' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// CheckDigit computes the modulus-11 check character for a digit body.
// It returns false when body contains anything but ASCII digits.
func CheckDigit(body string) (byte, bool) {
	if body == "" {
		return 0, false
	}

	sum := 0
	weight := 2
	for i := len(body) - 1; i >= 0; i-- {
		c := body[i]
		if c < '0' || c > '9' {
			return 0, false
		}
		sum += int(c-'0') * weight
		if weight == 7 {
			weight = 2
		} else {
			weight++
		}
	}

	switch v := 11 - sum%11; v {
	case 11:
		return '0', true
	case 10:
		return 'K', true
	default:
		return byte('0' + v), true
	}
}

// Validate reports whether raw is a well-formed Chilean RUT.
// Separators (dots, dash, spaces) are ignored.
func Validate(raw string) bool {
	cleaned := strings.ToUpper(Clean(raw))
	if len(cleaned) < minLength {
		return false
	}

	body, check := cleaned[:len(cleaned)-1], cleaned[len(cleaned)-1]
	expected, ok := CheckDigit(body)
	if !ok {
		return false
	}
	return expected == check
}

// Format renders a RUT as 12.345.678-5. Invalid input is returned cleaned but unformatted.
func Format(raw string) string {
	cleaned := strings.ToUpper(Clean(raw))
	if len(cleaned) < 2 {
		return cleaned
	}

	body, check := cleaned[:len(cleaned)-1], cleaned[len(cleaned)-1:]
	var b strings.Builder
	for i, r := range body {
		if i > 0 && (len(body)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	b.WriteByte('-')
	b.WriteString(check)
	return b.String()
}
