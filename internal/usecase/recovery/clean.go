package recovery

import (
	"encoding/json"
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	trailingCommaRe = regexp.MustCompile(`,(\s*[}\]])`)
	spaceRunRe      = regexp.MustCompile(` {2,}`)
)

// cleanup strips trailing commas, drops control characters other than tab/newline,
// escapes raw line breaks inside string literals and undoes common over-escaping.
func cleanup(s string) string {
	s = unescapeCommon(strings.TrimSpace(s))
	s = stripControl(s)
	s = escapeBreaksInStrings(s)
	return trailingCommaRe.ReplaceAllString(s, "$1")
}

// aggressive keeps printable ASCII only and collapses whitespace.
// It destroys non-ASCII text, so it only runs after cleanup failed.
func aggressive(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '\n' || r == '\r' || r == '\t':
			b.WriteByte(' ')
		case r >= 0x20 && r <= 0x7e:
			b.WriteRune(r)
		}
	}
	out := spaceRunRe.ReplaceAllString(b.String(), " ")
	return trailingCommaRe.ReplaceAllString(strings.TrimSpace(out), "$1")
}

func stripControl(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\t' || r == '\n' || r == '\r' {
			return r
		}
		if r < 0x20 || r == 0x7f || r == utf8.RuneError {
			return -1
		}
		return r
	}, s)
}

// escapeBreaksInStrings rewrites raw tab/newline characters inside string literals
// as JSON escapes, leaving those between tokens untouched.
func escapeBreaksInStrings(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inStr, esc := false, false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !inStr {
			if c == '"' {
				inStr = true
			}
			b.WriteByte(c)
			continue
		}
		switch {
		case esc:
			esc = false
			b.WriteByte(c)
		case c == '\\':
			esc = true
			b.WriteByte(c)
		case c == '"':
			inStr = false
			b.WriteByte(c)
		case c == '\n':
			b.WriteString(`\n`)
		case c == '\r':
			b.WriteString(`\r`)
		case c == '\t':
			b.WriteString(`\t`)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// unescapeCommon undoes double-encoded JSON and invalid \' escapes.
func unescapeCommon(s string) string {
	if strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`) {
		var inner string
		if json.Unmarshal([]byte(s), &inner) == nil {
			s = strings.TrimSpace(inner)
		}
	}
	if strings.HasPrefix(s, `{\"`) || strings.HasPrefix(s, `[{\"`) || strings.HasPrefix(s, `[\"`) {
		s = strings.ReplaceAll(s, `\\`, "\x00")
		s = strings.ReplaceAll(s, `\"`, `"`)
		s = strings.ReplaceAll(s, "\x00", `\`)
	}
	return strings.ReplaceAll(s, `\'`, `'`)
}
