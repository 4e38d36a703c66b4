// Package natsort orders strings so that embedded digit runs compare as
// numbers: "n2" sorts before "n10", and "ab5cd2" before "ab5cd10".
//
// A string is split into alternating text and number runs with [Tokenize].
// [Compare] walks two token sequences element by element:
//
//   - number vs number compares numerically (any length, leading zeros ignored)
//   - text vs text compares bytewise
//   - a number sorts before text
//   - if one sequence is a prefix of the other, the shorter sorts first
//
// Strings that compare equal under these rules but differ in bytes (for
// example "n02" and "n2") are ordered bytewise so [Sort] is deterministic.
package natsort

import (
	"slices"
	"strings"
)

// Token is one run of a tokenized string.
type Token struct {
	Text    string // raw run
	Numeric bool   // run consists only of ASCII digits
}

// Tokenize splits s into maximal runs of ASCII digits and non-digits.
// The empty string yields no tokens.
func Tokenize(s string) []Token {
	var out []Token
	start := 0
	for i := 1; i <= len(s); i++ {
		if i == len(s) || isDigit(s[i]) != isDigit(s[start]) {
			out = append(out, Token{Text: s[start:i], Numeric: isDigit(s[start])})
			start = i
		}
	}
	return out
}

// Compare returns -1, 0 or +1 depending on the natural order of a and b.
// Compare returns 0 only when a == b.
func Compare(a, b string) int {
	if c := compareTokens(Tokenize(a), Tokenize(b)); c != 0 {
		return c
	}
	return strings.Compare(a, b)
}

// Less reports whether a sorts before b in natural order.
func Less(a, b string) bool { return Compare(a, b) < 0 }

// Sort sorts keys in place in natural order.
func Sort(keys []string) { slices.SortFunc(keys, Compare) }

// Sorted returns a naturally ordered copy of keys.
func Sorted(keys []string) []string {
	out := slices.Clone(keys)
	Sort(out)
	return out
}

func compareTokens(a, b []Token) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if c := compareToken(a[i], b[i]); c != 0 {
			return c
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	}
	return 0
}

func compareToken(a, b Token) int {
	switch {
	case a.Numeric && b.Numeric:
		return compareNumbers(a.Text, b.Text)
	case a.Numeric:
		return -1
	case b.Numeric:
		return 1
	}
	return strings.Compare(a.Text, b.Text)
}

// compareNumbers compares two digit strings by value without converting them,
// so arbitrarily long runs never overflow.
func compareNumbers(a, b string) int {
	a = strings.TrimLeft(a, "0")
	b = strings.TrimLeft(b, "0")
	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}
		return 1
	}
	return strings.Compare(a, b)
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
