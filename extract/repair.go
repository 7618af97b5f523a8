package extract

import (
	"strings"
	"unicode"
)

// Rule is one textual repair applied to a captured structured block.
// Apply must be pure and idempotent, and must leave valid JSON untouched.
type Rule struct {
	Name  string
	Apply func(string) string
}

// DefaultRules returns the repair chain in the order it is applied.
func DefaultRules() []Rule {
	return []Rule{
		{Name: "normalize-quotes", Apply: NormalizeQuotes},
		{Name: "strip-line-comments", Apply: StripLineComments},
		{Name: "remove-trailing-commas", Apply: RemoveTrailingCommas},
		{Name: "neutralize-stray-quotes", Apply: NeutralizeStrayQuotes},
	}
}

// closesString reports whether the quote at index i ends a string literal:
// in valid JSON a closing quote is always followed, after optional
// whitespace, by one of , : } ] or the end of input. A quote followed by
// anything else is treated as content, which keeps literal tracking stable
// across stray mid-word quotes. '/' is accepted so a comment may follow.
func closesString(s string, i int) bool {
	for j := i + 1; j < len(s); j++ {
		switch s[j] {
		case ' ', '\t', '\n', '\r':
			continue
		case ',', ':', '}', ']', '/':
			return true
		default:
			return false
		}
	}
	return true
}

func isOpenDouble(r rune) bool {
	switch r {
	case '“', '”', '„', '‟', '″':
		return true
	}
	return false
}

func isTypographicSingle(r rune) bool {
	switch r {
	case '‘', '’', '‚', '‛', '′':
		return true
	}
	return false
}

// NormalizeQuotes turns typographic quotation marks used as JSON delimiters
// into ASCII double quotes, and stray typographic apostrophes outside string
// literals into ASCII apostrophes. Characters inside string literals are
// content and are preserved.
func NormalizeQuotes(s string) string {
	if !strings.ContainsFunc(s, func(r rune) bool { return isOpenDouble(r) || isTypographicSingle(r) }) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))

	inString := false
	typographic := false // literal was opened by a typographic quote
	escaped := false
	for i, r := range s {
		if inString {
			switch {
			case escaped:
				escaped = false
				b.WriteRune(r)
			case r == '\\':
				escaped = true
				b.WriteRune(r)
			case r == '"' && closesString(s, i):
				b.WriteRune(r)
				inString = false
			case typographic && isOpenDouble(r):
				b.WriteByte('"')
				inString = false
			default:
				b.WriteRune(r)
			}
			continue
		}
		switch {
		case r == '"':
			inString, typographic = true, false
			b.WriteRune(r)
		case isOpenDouble(r):
			inString, typographic = true, true
			b.WriteByte('"')
		case isTypographicSingle(r):
			b.WriteByte('\'')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// StripLineComments removes "//" comments running to the end of a line.
// Sequences such as "http://" inside string literals are kept.
func StripLineComments(s string) string {
	if !strings.Contains(s, "//") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))

	inString := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			b.WriteByte(c)
			if c == '\\' && i+1 < len(s) {
				i++
				b.WriteByte(s[i])
			} else if c == '"' && closesString(s, i) {
				inString = false
			}
			continue
		}
		if c == '/' && i+1 < len(s) && s[i+1] == '/' {
			for i < len(s) && s[i] != '\n' {
				i++
			}
			if i < len(s) {
				b.WriteByte('\n')
			}
			continue
		}
		if c == '"' {
			inString = true
		}
		b.WriteByte(c)
	}
	return b.String()
}

// RemoveTrailingCommas drops commas that are followed, after optional
// whitespace and further commas, by a closing '}' or ']'.
func RemoveTrailingCommas(s string) string {
	if !strings.Contains(s, ",") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))

	inString := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			b.WriteByte(c)
			if c == '\\' && i+1 < len(s) {
				i++
				b.WriteByte(s[i])
			} else if c == '"' && closesString(s, i) {
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case ',':
			if closesAfter(s, i+1) {
				continue
			}
		}
		b.WriteByte(c)
	}
	return b.String()
}

func closesAfter(s string, from int) bool {
	for j := from; j < len(s); j++ {
		switch s[j] {
		case ' ', '\t', '\n', '\r', ',':
			continue
		case '}', ']':
			return true
		default:
			return false
		}
	}
	return false
}

func isWord(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// NeutralizeStrayQuotes converts a double quote sitting between a word
// character and a space followed by another word character (`said" hello`)
// into an apostrophe. Valid JSON never has that shape around a delimiter.
func NeutralizeStrayQuotes(s string) string {
	if !strings.Contains(s, `" `) {
		return s
	}
	rs := []rune(s)
	out := make([]rune, len(rs))
	copy(out, rs)
	for i := 1; i+2 < len(rs); i++ {
		if rs[i] == '"' && isWord(rs[i-1]) && rs[i+1] == ' ' && isWord(rs[i+2]) {
			out[i] = '\''
		}
	}
	return string(out)
}
