// Package csscompile flattens nested style text into plain CSS and pretty-prints it.
package csscompile

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
)

// Errors returned for malformed style text
var (
	ErrUnclosedBlock   = errors.New("unclosed block")
	ErrUnexpectedBrace = errors.New("unexpected }")
	ErrBadToken        = errors.New("malformed token")
)

// conditionalAtRules wrap the rules nested in them and are hoisted outside the
// current selector. Every other at-rule with a block is emitted as written.
var conditionalAtRules = map[string]bool{
	"@media":     true,
	"@supports":  true,
	"@container": true,
	"@layer":     true,
	"@document":  true,
}

type itemKind int

const (
	itemDecl      itemKind = iota // color:red
	itemStatement                 // @import url(x)
	itemRule                      // prelude { ... }
)

// item is one entry of a parsed block
type item struct {
	kind     itemKind
	text     string // itemDecl, itemStatement
	prelude  string // itemRule
	children []item // itemRule
}

func (it item) atRule() string {
	if !strings.HasPrefix(it.prelude, "@") {
		return ""
	}
	name, _, _ := strings.Cut(it.prelude, " ")
	return strings.ToLower(name)
}

// Compile flattens raw into compact CSS scoped to selector.
//
// Nested rules are resolved against their parent: "&" is replaced by the
// parent selector, anything else becomes a descendant. Comma separated
// selector lists expand to every combination. @media and friends are hoisted
// around the rule they appear in. An empty selector compiles global style
// text, where top level declarations stay bare.
func Compile(selector, raw string) (string, error) {
	items, err := parseStyle(raw)
	if err != nil {
		return "", err
	}

	var parents []string
	if selector = strings.TrimSpace(selector); selector != "" {
		parents = []string{selector}
	}

	var b strings.Builder
	emitBlock(&b, items, parents, nil)
	return b.String(), nil
}

// parseStyle tokenizes raw and builds the block tree
func parseStyle(raw string) ([]item, error) {
	p := &styleParser{lexer: css.NewLexer(parse.NewInputString(raw))}
	items, closed, err := p.block()
	if err != nil {
		return nil, err
	}
	if closed {
		return nil, ErrUnexpectedBrace
	}
	return items, nil
}

type styleParser struct {
	lexer *css.Lexer
	buf   strings.Builder
	space bool // whitespace seen since the last token written to buf
	depth int  // parentheses and brackets
}

func (p *styleParser) write(text []byte) {
	if p.space && p.buf.Len() > 0 {
		p.buf.WriteByte(' ')
	}
	p.space = false
	p.buf.Write(text)
}

func (p *styleParser) take() string {
	s := strings.TrimSpace(p.buf.String())
	p.buf.Reset()
	p.space = false
	return s
}

// flushStatement turns the buffered text into a declaration or an at-rule statement
func (p *styleParser) flushStatement(items []item) []item {
	text := p.take()
	switch {
	case text == "":
		return items
	case strings.HasPrefix(text, "@"):
		return append(items, item{kind: itemStatement, text: text})
	default:
		return append(items, item{kind: itemDecl, text: compactDecl(text)})
	}
}

// block reads items until the closing brace (closed == true) or end of input
func (p *styleParser) block() (items []item, closed bool, err error) {
	for {
		tt, text := p.lexer.Next()
		switch tt {
		case css.ErrorToken:
			if lexErr := p.lexer.Err(); lexErr != nil && lexErr != io.EOF {
				return nil, false, fmt.Errorf("failed to tokenize style text: %w", lexErr)
			}
			return p.flushStatement(items), false, nil
		case css.BadStringToken, css.BadURLToken:
			return nil, false, fmt.Errorf("%w: %q", ErrBadToken, text)
		case css.CommentToken:
			continue
		case css.WhitespaceToken:
			p.space = true
		case css.LeftParenthesisToken, css.LeftBracketToken, css.FunctionToken:
			p.depth++
			p.write(text)
		case css.RightParenthesisToken, css.RightBracketToken:
			if p.depth > 0 {
				p.depth--
			}
			p.write(text)
		case css.SemicolonToken:
			if p.depth > 0 {
				p.write(text)
				continue
			}
			items = p.flushStatement(items)
		case css.LeftBraceToken:
			prelude := p.take()
			children, childClosed, err := p.block()
			if err != nil {
				return nil, false, err
			}
			if !childClosed {
				return nil, false, fmt.Errorf("%w: %s", ErrUnclosedBlock, prelude)
			}
			items = append(items, item{kind: itemRule, prelude: prelude, children: children})
		case css.RightBraceToken:
			return p.flushStatement(items), true, nil
		default:
			p.write(text)
		}
	}
}

// compactDecl removes the whitespace around the first colon: "color : red" -> "color:red"
func compactDecl(text string) string {
	prop, value, ok := strings.Cut(text, ":")
	if !ok {
		return text
	}
	return strings.TrimSpace(prop) + ":" + strings.TrimSpace(value)
}

// emitBlock writes the flattened form of items. parents is the resolved
// selector list, wrappers the enclosing conditional at-rule preludes.
func emitBlock(b *strings.Builder, items []item, parents []string, wrappers []string) {
	var decls []string
	for _, it := range items {
		if it.kind == itemDecl {
			decls = append(decls, it.text)
		}
	}
	if len(decls) > 0 {
		var body strings.Builder
		if len(parents) > 0 {
			body.WriteString(strings.Join(parents, ","))
			body.WriteByte('{')
		}
		for _, d := range decls {
			body.WriteString(d)
			body.WriteByte(';')
		}
		if len(parents) > 0 {
			body.WriteByte('}')
		}
		writeWrapped(b, wrappers, body.String())
	}

	for _, it := range items {
		switch it.kind {
		case itemStatement:
			writeWrapped(b, wrappers, it.text+";")
		case itemRule:
			name := it.atRule()
			switch {
			case name == "":
				emitBlock(b, it.children, combineSelectors(parents, splitSelectors(it.prelude)), wrappers)
			case conditionalAtRules[name]:
				nested := append(wrappers[:len(wrappers):len(wrappers)], it.prelude)
				emitBlock(b, it.children, parents, nested)
			default:
				var body strings.Builder
				writeVerbatim(&body, it)
				writeWrapped(b, wrappers, body.String())
			}
		}
	}
}

func writeWrapped(b *strings.Builder, wrappers []string, body string) {
	for _, w := range wrappers {
		b.WriteString(w)
		b.WriteByte('{')
	}
	b.WriteString(body)
	for range wrappers {
		b.WriteByte('}')
	}
}

// writeVerbatim serializes a rule without resolving nesting, for @keyframes and the like
func writeVerbatim(b *strings.Builder, it item) {
	b.WriteString(it.prelude)
	b.WriteByte('{')
	for _, child := range it.children {
		switch child.kind {
		case itemRule:
			writeVerbatim(b, child)
		default:
			b.WriteString(child.text)
			b.WriteByte(';')
		}
	}
	b.WriteByte('}')
}

// combineSelectors resolves child selectors against every parent selector
func combineSelectors(parents, children []string) []string {
	if len(parents) == 0 {
		out := make([]string, 0, len(children))
		for _, c := range children {
			if c = strings.TrimSpace(strings.ReplaceAll(c, "&", "")); c != "" {
				out = append(out, c)
			}
		}
		return out
	}

	out := make([]string, 0, len(parents)*len(children))
	for _, p := range parents {
		for _, c := range children {
			if strings.Contains(c, "&") {
				out = append(out, strings.ReplaceAll(c, "&", p))
				continue
			}
			out = append(out, p+" "+c)
		}
	}
	return out
}

// splitSelectors splits a selector list at commas outside parentheses, brackets and strings
func splitSelectors(prelude string) []string {
	var (
		out   []string
		depth int
		quote byte
		start int
	)
	for i := 0; i < len(prelude); i++ {
		c := prelude[i]
		switch {
		case quote != 0:
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
		case c == '\\':
			i++
		case c == '"' || c == '\'':
			quote = c
		case c == '(' || c == '[':
			depth++
		case c == ')' || c == ']':
			if depth > 0 {
				depth--
			}
		case c == ',' && depth == 0:
			out = appendSelector(out, prelude[start:i])
			start = i + 1
		}
	}
	return appendSelector(out, prelude[start:])
}

func appendSelector(out []string, s string) []string {
	if s = strings.TrimSpace(s); s != "" {
		out = append(out, s)
	}
	return out
}
