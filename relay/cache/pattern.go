package cache

import (
	"regexp"
	"strings"
)

// compilePattern translates a glob into an anchored regular expression.
// An unterminated '[' is taken literally.
func compilePattern(glob string) (*regexp.Regexp, error) {
	var b strings.Builder
	b.WriteString(`(?s)^`)

	runes := []rune(glob)
	for i := 0; i < len(runes); i++ {
		switch c := runes[i]; c {
		case '*':
			b.WriteString(`.*`)
		case '?':
			b.WriteString(`.`)
		case '\\':
			if i+1 < len(runes) {
				i++
				b.WriteString(regexp.QuoteMeta(string(runes[i])))
			} else {
				b.WriteString(`\\`)
			}
		case '[':
			class, next, ok := bracketClass(runes, i)
			if !ok {
				b.WriteString(`\[`)
				continue
			}
			b.WriteString(class)
			i = next
		default:
			b.WriteString(regexp.QuoteMeta(string(c)))
		}
	}

	b.WriteString(`$`)
	return regexp.Compile(b.String())
}

// bracketClass parses runes[open:] as a [...] class and returns the regexp
// class plus the index of the closing bracket.
func bracketClass(runes []rune, open int) (string, int, bool) {
	var b strings.Builder
	b.WriteByte('[')

	i := open + 1
	if i < len(runes) && (runes[i] == '^' || runes[i] == '!') {
		b.WriteByte('^')
		i++
	}

	empty := true
	for ; i < len(runes); i++ {
		c := runes[i]
		switch {
		case c == ']' && !empty:
			b.WriteByte(']')
			return b.String(), i, true
		case c == '\\' && i+1 < len(runes):
			i++
			b.WriteString(regexp.QuoteMeta(string(runes[i])))
		case c == '-' && !empty && i+1 < len(runes) && runes[i+1] != ']':
			b.WriteByte('-')
		case c == '[' || c == ']' || c == '^' || c == '-':
			b.WriteByte('\\')
			b.WriteRune(c)
		default:
			b.WriteString(regexp.QuoteMeta(string(c)))
		}
		empty = false
	}
	return "", open, false
}

// matchKeys filters keys by glob.
func matchKeys(keys []string, glob string) ([]string, error) {
	re, err := compilePattern(glob)
	if err != nil {
		return nil, err
	}
	matched := make([]string, 0, len(keys))
	for _, k := range keys {
		if re.MatchString(k) {
			matched = append(matched, k)
		}
	}
	return matched, nil
}
