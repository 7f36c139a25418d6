package recovery

import (
	"regexp"
	"strings"
)

// maxSpans bounds how many top-level spans are tried per stage.
const maxSpans = 8

var fenceRe = regexp.MustCompile("(?s)```[ \t]*(?i:json)[ \t]*\\r?\\n?(.*?)(?:```|$)")

// fencedBlock returns the body of the first ```json fence. An unterminated fence
// (truncated output) runs to the end of the text.
func fencedBlock(s string) (string, bool) {
	m := fenceRe.FindStringSubmatch(s)
	if m == nil {
		return "", false
	}
	body := strings.TrimSpace(m[1])
	return body, body != ""
}

// matchBracket returns the index of the bracket closing the one at s[start], or -1.
// It counts depth only, skipping brackets inside string literals.
func matchBracket(s string, start int) int {
	depth := 0
	inStr, esc := false, false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inStr {
			switch {
			case esc:
				esc = false
			case c == '\\':
				esc = true
			case c == '"':
				inStr = false
			}
			continue
		}
		switch c {
		case '"':
			inStr = true
		case '{', '[':
			depth++
		case '}', ']':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// spans returns up to maxSpans top-level bracket-delimited spans in order.
// A trailing unbalanced span is returned as the rest of the text.
func spans(s string) []string {
	var out []string
	i := 0
	for len(out) < maxSpans && i < len(s) {
		off := strings.IndexAny(s[i:], "{[")
		if off < 0 {
			break
		}
		start := i + off
		end := matchBracket(s, start)
		if end < 0 {
			out = append(out, s[start:])
			break
		}
		out = append(out, s[start:end+1])
		i = end + 1
	}
	return out
}

// objectsIn returns every balanced {...} found at the top level of s.
// Used to rescue individual elements from a broken array.
func objectsIn(s string) []string {
	var out []string
	for i := 0; i < len(s); {
		off := strings.IndexByte(s[i:], '{')
		if off < 0 {
			break
		}
		start := i + off
		end := matchBracket(s, start)
		if end < 0 {
			break
		}
		out = append(out, s[start:end+1])
		i = end + 1
	}
	return out
}
