package source

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/nettybun/styletakeout/internal/takeout"
)

// siteEdit precomputes what removing or replacing a site touches
func (x *extractor) siteEdit(call *sitter.Node, site takeout.Site) siteEdit {
	edit := siteEdit{call: nodeSpan(call), remove: nodeSpan(call), replacement: "undefined"}

	_, parent := outerExpression(call)
	if parent == nil {
		return edit
	}

	switch parent.Kind() {
	case "expression_statement":
		edit.remove, edit.replacement = x.lineSpan(nodeSpan(parent)), ""
	case "variable_declarator":
		if site.Binding.Form == takeout.BindingVariable {
			edit.remove, edit.replacement = x.declaratorSpan(parent), ""
		}
	case "pair":
		if site.Binding.Form == takeout.BindingProperty {
			edit.remove, edit.replacement = x.listItemSpan(parent), ""
		}
	case "assignment_expression":
		if stmt := parent.Parent(); stmt != nil && stmt.Kind() == "expression_statement" {
			edit.remove, edit.replacement = x.lineSpan(nodeSpan(stmt)), ""
		}
	}
	return edit
}

// declaratorSpan removes the whole declaration when the declarator is alone in it
func (x *extractor) declaratorSpan(declarator *sitter.Node) span {
	decl := declarator.Parent()
	if decl == nil {
		return nodeSpan(declarator)
	}

	count := 0
	for i := 0; i < int(decl.NamedChildCount()); i++ {
		if decl.NamedChild(uint(i)).Kind() == "variable_declarator" {
			count++
		}
	}
	if count > 1 {
		return x.listItemSpan(declarator)
	}

	stmt := decl
	if p := decl.Parent(); p != nil && p.Kind() == "export_statement" {
		stmt = p
	}
	return x.lineSpan(nodeSpan(stmt))
}

// listItemSpan covers a comma separated item together with one adjacent comma
func (x *extractor) listItemSpan(n *sitter.Node) span {
	s := nodeSpan(n)
	if next := n.NextSibling(); next != nil && next.Kind() == "," {
		s.end = int(next.EndByte())
		if full := x.lineSpan(s); full != s {
			return full
		}
		for s.end < len(x.src) && (x.src[s.end] == ' ' || x.src[s.end] == '\t') {
			s.end++
		}
		return s
	}
	if prev := n.PrevSibling(); prev != nil && prev.Kind() == "," {
		s.start = int(prev.StartByte())
	}
	return s
}

// lineSpan grows s to whole lines when nothing else shares them
func (x *extractor) lineSpan(s span) span {
	start := s.start
	for start > 0 && (x.src[start-1] == ' ' || x.src[start-1] == '\t') {
		start--
	}
	end := s.end
	for end < len(x.src) && (x.src[end] == ' ' || x.src[end] == '\t') {
		end++
	}

	if start > 0 && x.src[start-1] != '\n' {
		return s
	}
	if end < len(x.src) && x.src[end] != '\n' && x.src[end] != '\r' {
		return s
	}
	if end < len(x.src) && x.src[end] == '\r' {
		end++
	}
	if end < len(x.src) && x.src[end] == '\n' {
		end++
	}
	return span{start: start, end: end}
}

type edit struct {
	span
	text string
}

// Rewrite applies instructions to the source of f and drops imports of the
// tag module. Edits that fall inside another edit are dropped; partially
// overlapping edits are an error.
func Rewrite(f *File, instructions []takeout.Instruction) ([]byte, error) {
	edits := make([]edit, 0, len(instructions)+len(f.imports))
	for _, s := range f.imports {
		edits = append(edits, edit{span: s})
	}
	for _, in := range instructions {
		e, err := f.edit(in)
		if err != nil {
			return nil, err
		}
		edits = append(edits, e)
	}

	sort.SliceStable(edits, func(i, j int) bool {
		if edits[i].start != edits[j].start {
			return edits[i].start < edits[j].start
		}
		return edits[i].end > edits[j].end
	})

	var (
		out    bytes.Buffer
		cursor int
	)
	for _, e := range edits {
		if e.end <= cursor && e.start < cursor {
			continue // nested in the previous edit
		}
		if e.start < cursor {
			return nil, fmt.Errorf("%s: overlapping edits at byte %d", f.Path, e.start)
		}
		out.Write(f.Source[cursor:e.start])
		out.WriteString(e.text)
		cursor = e.end
	}
	out.Write(f.Source[cursor:])
	return out.Bytes(), nil
}

func (f *File) edit(in takeout.Instruction) (edit, error) {
	switch {
	case in.Site >= 0:
		if in.Site >= len(f.sites) {
			return edit{}, fmt.Errorf("%s: no site %d", f.Path, in.Site)
		}
		site := f.sites[in.Site]
		switch in.Op {
		case takeout.OpRemove:
			return edit{span: site.remove, text: site.replacement}, nil
		case takeout.OpReplaceString:
			return edit{span: site.call, text: QuoteJS(in.Value)}, nil
		}
	case in.Container >= 0:
		if in.Container >= len(f.containers) {
			return edit{}, fmt.Errorf("%s: no container %d", f.Path, in.Container)
		}
		s := f.containers[in.Container]
		switch in.Op {
		case takeout.OpReplaceString:
			return edit{span: s, text: QuoteJS(in.Value)}, nil
		case takeout.OpReplaceTemplate:
			return edit{span: s, text: RenderTemplate(in.Template)}, nil
		}
	}
	return edit{}, fmt.Errorf("%s: unsupported instruction %+v", f.Path, in)
}

// RenderTemplate prints a template literal from raw fragments and expression source
func RenderTemplate(tmpl takeout.Template) string {
	var b strings.Builder
	b.WriteByte('`')
	for i, q := range tmpl.Quasis {
		b.WriteString(q)
		if i < len(tmpl.Exprs) {
			b.WriteString("${")
			b.WriteString(tmpl.Exprs[i].Text)
			b.WriteByte('}')
		}
	}
	b.WriteByte('`')
	return b.String()
}

// QuoteJS renders s as a double quoted JS string literal
func QuoteJS(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		case '\u2028', '\u2029':
			fmt.Fprintf(&b, `\u%04x`, r)
		default:
			if r < 0x20 {
				fmt.Fprintf(&b, `\x%02x`, r)
				continue
			}
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}
