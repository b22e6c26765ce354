package csscompile

import (
	"strings"

	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
)

// Brace placement styles
const (
	OpenBraceEndOfLine    = "end-of-line"
	OpenBraceSeparateLine = "separate-line"
)

// Options controls Beautify output
type Options struct {
	Indent        string // "  "
	OpenBrace     string // end-of-line or separate-line
	AutoSemicolon bool   // Add a missing ";" before "}"
}

// DefaultOptions returns two-space indentation, braces at end of line and auto semicolons
func DefaultOptions() Options {
	return Options{
		Indent:        "  ",
		OpenBrace:     OpenBraceEndOfLine,
		AutoSemicolon: true,
	}
}

type beautifier struct {
	opts  Options
	out   strings.Builder
	line  strings.Builder
	space bool
	depth int
}

// Beautify re-indents CSS: one declaration per line, blocks indented, a blank
// line after every top level block
func Beautify(src string, opts Options) string {
	if opts.OpenBrace == "" {
		opts.OpenBrace = OpenBraceEndOfLine
	}

	b := &beautifier{opts: opts}
	lexer := css.NewLexer(parse.NewInputString(src))
	parens := 0
	for {
		tt, text := lexer.Next()
		switch tt {
		case css.ErrorToken:
			b.endStatement(false)
			return b.out.String()
		case css.WhitespaceToken:
			b.space = true
		case css.CommentToken:
			b.endStatement(false)
			b.writeLine(string(text))
		case css.LeftParenthesisToken, css.FunctionToken:
			parens++
			b.write(text)
		case css.RightParenthesisToken:
			if parens > 0 {
				parens--
			}
			b.write(text)
		case css.SemicolonToken:
			if parens > 0 {
				b.write(text)
				continue
			}
			b.write(text)
			b.endStatement(false)
		case css.LeftBraceToken:
			b.openBlock()
		case css.RightBraceToken:
			b.closeBlock()
		default:
			b.write(text)
		}
	}
}

func (b *beautifier) write(text []byte) {
	if b.space && b.line.Len() > 0 {
		b.line.WriteByte(' ')
	}
	b.space = false
	b.line.Write(text)
}

func (b *beautifier) indent() string {
	return strings.Repeat(b.opts.Indent, b.depth)
}

func (b *beautifier) writeLine(text string) {
	b.out.WriteString(b.indent())
	b.out.WriteString(text)
	b.out.WriteByte('\n')
}

// endStatement emits the buffered declaration, if any
func (b *beautifier) endStatement(closing bool) {
	text := strings.TrimSpace(b.line.String())
	b.line.Reset()
	b.space = false
	if text == "" {
		return
	}
	if closing && b.opts.AutoSemicolon && !strings.HasSuffix(text, ";") {
		text += ";"
	}
	b.writeLine(formatDecl(text))
}

func (b *beautifier) openBlock() {
	selector := strings.TrimSpace(b.line.String())
	b.line.Reset()
	b.space = false

	if b.opts.OpenBrace == OpenBraceSeparateLine {
		b.writeLine(selector)
		b.writeLine("{")
	} else {
		b.writeLine(selector + " {")
	}
	b.depth++
}

func (b *beautifier) closeBlock() {
	b.endStatement(true)
	if b.depth > 0 {
		b.depth--
	}
	b.writeLine("}")
	if b.depth == 0 {
		b.out.WriteByte('\n')
	}
}

// formatDecl puts one space after the property colon: "color:red;" -> "color: red;"
func formatDecl(text string) string {
	if strings.HasPrefix(text, "@") {
		return text
	}
	prop, value, ok := strings.Cut(text, ":")
	if !ok {
		return text
	}
	return strings.TrimSpace(prop) + ": " + strings.TrimSpace(value)
}
