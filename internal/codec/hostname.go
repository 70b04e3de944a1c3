// Package codec implements the hostname codec used to carry an opaque
// backend target id (typically "host:port") inside a single DNS label.
package codec

import (
	"regexp"
	"strconv"
	"strings"
)

// safeLabelChar reports whether r can appear unescaped in an encoded label.
func safeLabelChar(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z':
		return true
	case r >= 'A' && r <= 'Z':
		return true
	case r >= '0' && r <= '9':
		return true
	case r == '_' || r == '.' || r == '-':
		return true
	default:
		return false
	}
}

// escapePattern matches one escape sequence emitted by Encode: ".e" followed
// by one or more decimal digits, followed by ".". Widths beyond 3 digits are
// accepted on decode so codepoints above 999 round-trip too.
var escapePattern = regexp.MustCompile(`\.e(\d+)\.`)

// Encode turns an arbitrary string into a DNS-label-safe string. Every rune
// outside [A-Za-z0-9_.-] is replaced by ".e<codepoint>." with the codepoint
// zero-padded to 3 digits when it fits, so that common host:port strings
// stay legible (e.g. "127.0.0.1:3000" -> "127.0.0.1.e058.3000").
func Encode(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if safeLabelChar(r) {
			b.WriteRune(r)
			continue
		}
		b.WriteString(".e")
		if r < 1000 {
			b.WriteString(pad3(int(r)))
		} else {
			b.WriteString(strconv.Itoa(int(r)))
		}
		b.WriteByte('.')
	}
	return b.String()
}

func pad3(n int) string {
	s := strconv.Itoa(n)
	for len(s) < 3 {
		s = "0" + s
	}
	return s
}

// Decode reverses Encode: every ".e<digits>." sequence is replaced by the
// rune whose codepoint the digits encode. Decode(Encode(s)) == s for every s
// that does not itself contain ".e" followed by digits: such literal text is
// indistinguishable from an escape and is decoded as one.
func Decode(s string) string {
	return escapePattern.ReplaceAllStringFunc(s, func(match string) string {
		digits := escapePattern.FindStringSubmatch(match)[1]
		n, err := strconv.Atoi(digits)
		if err != nil {
			return match
		}
		return string(rune(n))
	})
}
