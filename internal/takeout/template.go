package takeout

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// MergeTemplate interleaves fragments with resolved interpolations and dedents the result.
// Only references the resolver knows are allowed; nothing is evaluated.
func MergeTemplate(tmpl Template, r Resolver) (string, error) {
	if len(tmpl.Quasis) != len(tmpl.Exprs)+1 {
		return "", fmt.Errorf("malformed template: %d fragments for %d interpolations",
			len(tmpl.Quasis), len(tmpl.Exprs))
	}

	var b strings.Builder
	for i, expr := range tmpl.Exprs {
		b.WriteString(tmpl.Quasis[i])

		text, err := r.ResolveReference(expr)
		if err != nil {
			return "", fmt.Errorf("%w: ${%s}: %w", ErrUnresolvedInterpolation, describe(expr), err)
		}
		b.WriteString(text)
	}
	b.WriteString(tmpl.Quasis[len(tmpl.Quasis)-1])

	return Dedent(b.String()), nil
}

// Dedent removes the smallest indentation found on non-blank lines from every line
func Dedent(s string) string {
	lines := strings.Split(s, "\n")

	indent := -1
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		n := leadingWhitespace(line)
		if indent == -1 || n < indent {
			indent = n
		}
	}
	if indent <= 0 {
		return s
	}

	for i, line := range lines {
		n := leadingWhitespace(line)
		if n > indent {
			n = indent
		}
		lines[i] = line[n:]
	}
	return strings.Join(lines, "\n")
}

func leadingWhitespace(line string) int {
	n := 0
	for n < len(line) && (line[n] == ' ' || line[n] == '\t') {
		n++
	}
	return n
}

// escapeTemplateRaw makes s safe to splice into the raw text of a template literal
func escapeTemplateRaw(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '\\' || c == '`':
			b.WriteByte('\\')
			b.WriteByte(c)
		case c == '$' && i+1 < len(s) && s[i+1] == '{':
			b.WriteString(`\$`)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// CookTemplateRaw converts raw template text into the string value it denotes
func CookTemplateRaw(raw string) string {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")

	var b strings.Builder
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if c != '\\' || i+1 >= len(raw) {
			b.WriteByte(c)
			continue
		}

		i++
		switch e := raw[i]; e {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case 'b':
			b.WriteByte('\b')
		case 'f':
			b.WriteByte('\f')
		case 'v':
			b.WriteByte('\v')
		case '0':
			b.WriteByte(0)
		case '\n':
			// line continuation
		case 'x':
			if i+2 < len(raw) {
				if v, err := strconv.ParseUint(raw[i+1:i+3], 16, 8); err == nil {
					b.WriteRune(rune(v))
					i += 2
					continue
				}
			}
			b.WriteByte(e)
		case 'u':
			r, n := cookUnicodeEscape(raw[i+1:])
			if n == 0 {
				b.WriteByte(e)
				continue
			}
			b.WriteRune(r)
			i += n
		default:
			b.WriteByte(e)
		}
	}
	return b.String()
}

// cookUnicodeEscape parses the part after \u: either XXXX or {X...}
func cookUnicodeEscape(s string) (rune, int) {
	if strings.HasPrefix(s, "{") {
		end := strings.IndexByte(s, '}')
		if end < 2 {
			return 0, 0
		}
		v, err := strconv.ParseUint(s[1:end], 16, 32)
		if err != nil || !utf8.ValidRune(rune(v)) {
			return 0, 0
		}
		return rune(v), end + 1
	}
	if len(s) < 4 {
		return 0, 0
	}
	v, err := strconv.ParseUint(s[:4], 16, 16)
	if err != nil {
		return 0, 0
	}
	return rune(v), 4
}
