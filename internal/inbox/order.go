package inbox

import (
	"cmp"
	"path/filepath"
	"strings"
)

// compareNames orders inbox files the way an operator numbers them, so
// "lista 2.pdf" is submitted before "lista 10.pdf". Case is ignored except
// to break exact ties.
func compareNames(a, b string) int {
	a, b = filepath.Base(a), filepath.Base(b)
	if c := compareChunks(strings.ToLower(a), strings.ToLower(b)); c != 0 {
		return c
	}
	return strings.Compare(a, b)
}

// compareChunks walks both names in runs of digits and non-digits. A digit
// run sorts before text at the same position.
func compareChunks(a, b string) int {
	for a != "" && b != "" {
		ca, restA := nextChunk(a)
		cb, restB := nextChunk(b)
		numA, numB := isDigit(ca[0]), isDigit(cb[0])
		var c int
		switch {
		case numA && !numB:
			return -1
		case !numA && numB:
			return 1
		case numA:
			c = compareNumbers(ca, cb)
		default:
			c = strings.Compare(ca, cb)
		}
		if c != 0 {
			return c
		}
		a, b = restA, restB
	}
	return cmp.Compare(len(a), len(b))
}

func nextChunk(s string) (chunk, rest string) {
	digits := isDigit(s[0])
	i := 1
	for i < len(s) && isDigit(s[i]) == digits {
		i++
	}
	return s[:i], s[i:]
}

// compareNumbers compares digit runs by value without parsing, so long
// runs cannot overflow.
func compareNumbers(a, b string) int {
	a = strings.TrimLeft(a, "0")
	b = strings.TrimLeft(b, "0")
	if c := cmp.Compare(len(a), len(b)); c != 0 {
		return c
	}
	return strings.Compare(a, b)
}

func isDigit(c byte) bool { return '0' <= c && c <= '9' }
