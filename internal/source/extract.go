package source

import (
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/nettybun/styletakeout/internal/takeout"
)

// extractor walks one syntax tree
type extractor struct {
	path   string
	src    []byte
	tags   Tags
	module string

	calls []*sitter.Node
	index map[span]int // call span -> site index

	sites          []takeout.Site
	edits          []siteEdit
	containers     []takeout.Container
	containerSpans []span
	imports        []span
}

func (x *extractor) collect(root *sitter.Node) {
	// Sites are numbered first so interpolations can point at sites that
	// appear later in document order
	walkTree(root, func(n *sitter.Node) bool {
		if n.Kind() == "import_statement" {
			x.addImport(n)
			return false
		}
		if n.Kind() == "call_expression" {
			if _, ok := x.siteKind(n); ok {
				x.index[nodeSpan(n)] = len(x.calls)
				x.calls = append(x.calls, n)
			}
		}
		return true
	})

	for _, call := range x.calls {
		x.addSite(call)
	}

	walkTree(root, func(n *sitter.Node) bool {
		if n.Kind() == "template_string" && !isTagged(n) {
			x.addContainer(n)
		}
		return true
	})
}

// siteKind classifies a call_expression: css`...`, injectGlobal`...`, decl`...`, decl.name`...`
func (x *extractor) siteKind(call *sitter.Node) (takeout.SiteKind, bool) {
	args := call.ChildByFieldName("arguments")
	if args == nil || args.Kind() != "template_string" {
		return 0, false
	}

	fn := call.ChildByFieldName("function")
	if fn == nil {
		return 0, false
	}

	switch fn.Kind() {
	case "identifier":
		kind, ok := x.tags[nodeText(fn, x.src)]
		return kind, ok
	case "member_expression":
		obj := fn.ChildByFieldName("object")
		if obj == nil || obj.Kind() != "identifier" {
			return 0, false
		}
		if kind, ok := x.tags[nodeText(obj, x.src)]; ok && kind == takeout.SiteDecl {
			return takeout.SiteDecl, true
		}
	}
	return 0, false
}

func (x *extractor) addImport(stmt *sitter.Node) {
	src := stmt.ChildByFieldName("source")
	if src == nil || x.module == "" {
		return
	}
	raw := nodeText(src, x.src)
	if len(raw) < 2 {
		return
	}
	path := raw[1 : len(raw)-1]
	if path == x.module || strings.HasSuffix(path, "/"+x.module) {
		x.imports = append(x.imports, x.lineSpan(nodeSpan(stmt)))
	}
}

func (x *extractor) addSite(call *sitter.Node) {
	kind, _ := x.siteKind(call)
	tmpl := call.ChildByFieldName("arguments")
	pos := call.StartPosition()

	site := takeout.Site{
		Kind: kind,
		Loc: takeout.SourceLocation{
			File:   x.path,
			Line:   int(pos.Row) + 1,
			Column: x.column(call),
		},
		Template: x.template(tmpl),
	}
	if kind == takeout.SiteDecl {
		site.Binding = x.binding(call)
	}

	x.sites = append(x.sites, site)
	x.edits = append(x.edits, x.siteEdit(call, site))
}

func (x *extractor) addContainer(tmpl *sitter.Node) {
	interpolatesSite := false
	for i := 0; i < int(tmpl.NamedChildCount()); i++ {
		sub := tmpl.NamedChild(uint(i))
		if sub.Kind() != "template_substitution" {
			continue
		}
		if _, ok := x.index[nodeSpan(unwrap(sub.NamedChild(0)))]; ok {
			interpolatesSite = true
			break
		}
	}
	if !interpolatesSite {
		return
	}

	pos := tmpl.StartPosition()
	x.containers = append(x.containers, takeout.Container{
		Loc: takeout.SourceLocation{
			File:   x.path,
			Line:   int(pos.Row) + 1,
			Column: x.column(tmpl),
		},
		Template: x.template(tmpl),
	})
	x.containerSpans = append(x.containerSpans, nodeSpan(tmpl))
}

// column counts UTF-16 code units from the start of n's line, the way
// JavaScript tooling reports columns. Tree-sitter columns are bytes.
func (x *extractor) column(n *sitter.Node) int {
	end := int(n.StartByte())
	start := end - int(n.StartPosition().Column)
	col := 0
	for line := x.src[start:end]; len(line) > 0; {
		r, size := utf8.DecodeRune(line)
		line = line[size:]
		col += utf16.RuneLen(r)
	}
	return col
}

// template slices raw fragments between substitutions
func (x *extractor) template(tmpl *sitter.Node) takeout.Template {
	var out takeout.Template
	cursor := int(tmpl.StartByte()) + 1 // opening backtick
	for i := 0; i < int(tmpl.NamedChildCount()); i++ {
		sub := tmpl.NamedChild(uint(i))
		if sub.Kind() != "template_substitution" {
			continue
		}
		out.Quasis = append(out.Quasis, string(x.src[cursor:sub.StartByte()]))
		out.Exprs = append(out.Exprs, x.expr(sub.NamedChild(0)))
		cursor = int(sub.EndByte())
	}
	out.Quasis = append(out.Quasis, string(x.src[cursor:int(tmpl.EndByte())-1]))
	return out
}

// expr classifies an interpolated expression
func (x *extractor) expr(n *sitter.Node) takeout.Expr {
	text := strings.TrimSpace(nodeText(n, x.src))
	n = unwrap(n)
	if n == nil {
		return takeout.Expr{Kind: takeout.ExprOther, Text: text}
	}

	if idx, ok := x.index[nodeSpan(n)]; ok {
		return takeout.Expr{Kind: takeout.ExprSite, Site: idx, Text: text}
	}

	switch n.Kind() {
	case "identifier", "member_expression":
		if path, ok := x.memberPath(n); ok {
			return takeout.Expr{Kind: takeout.ExprRef, Path: path, Text: text}
		}
	case "string":
		raw := nodeText(n, x.src)
		return takeout.Expr{Kind: takeout.ExprString, Value: takeout.CookTemplateRaw(raw[1 : len(raw)-1]), Text: text}
	}
	return takeout.Expr{Kind: takeout.ExprOther, Text: text, Nested: x.nestedSites(n)}
}

// nestedSites lists the sites anywhere inside n, e.g. both arms of a ternary
func (x *extractor) nestedSites(n *sitter.Node) []int {
	var nested []int
	walkTree(n, func(c *sitter.Node) bool {
		if c.Kind() == "call_expression" {
			if idx, ok := x.index[nodeSpan(c)]; ok {
				nested = append(nested, idx)
			}
		}
		return true
	})
	return nested
}

// memberPath flattens a.b.c into ["a", "b", "c"]. Computed and optional
// access is rejected.
func (x *extractor) memberPath(n *sitter.Node) ([]string, bool) {
	switch n.Kind() {
	case "identifier":
		return []string{nodeText(n, x.src)}, true
	case "member_expression":
		for i := 0; i < int(n.ChildCount()); i++ {
			if n.Child(uint(i)).Kind() == "optional_chain" {
				return nil, false
			}
		}
		obj := n.ChildByFieldName("object")
		prop := n.ChildByFieldName("property")
		if obj == nil || prop == nil || prop.Kind() != "property_identifier" {
			return nil, false
		}
		path, ok := x.memberPath(obj)
		if !ok {
			return nil, false
		}
		return append(path, nodeText(prop, x.src)), true
	}
	return nil, false
}

// binding works out the name a decl site is bound to
func (x *extractor) binding(call *sitter.Node) takeout.Binding {
	if fn := call.ChildByFieldName("function"); fn != nil && fn.Kind() == "member_expression" {
		if prop := fn.ChildByFieldName("property"); prop != nil {
			return takeout.Binding{Form: takeout.BindingTag, Name: nodeText(prop, x.src)}
		}
	}

	node, parent := outerExpression(call)
	if parent == nil {
		return takeout.Binding{}
	}

	switch parent.Kind() {
	case "variable_declarator":
		name := parent.ChildByFieldName("name")
		if isField(parent, "value", node) && name != nil && name.Kind() == "identifier" {
			return takeout.Binding{Form: takeout.BindingVariable, Name: nodeText(name, x.src)}
		}
	case "pair":
		if key := parent.ChildByFieldName("key"); key != nil && isField(parent, "value", node) {
			if name, ok := x.propertyKey(key); ok {
				return takeout.Binding{Form: takeout.BindingProperty, Name: name}
			}
		}
	case "assignment_expression":
		left := parent.ChildByFieldName("left")
		if left == nil || !isField(parent, "right", node) {
			break
		}
		switch left.Kind() {
		case "member_expression":
			if prop := left.ChildByFieldName("property"); prop != nil && prop.Kind() == "property_identifier" {
				return takeout.Binding{Form: takeout.BindingMember, Name: nodeText(prop, x.src)}
			}
		case "identifier":
			return takeout.Binding{Form: takeout.BindingVariable, Name: nodeText(left, x.src)}
		}
	}
	return takeout.Binding{}
}

func (x *extractor) propertyKey(key *sitter.Node) (string, bool) {
	switch key.Kind() {
	case "property_identifier", "identifier":
		return nodeText(key, x.src), true
	case "string":
		raw := nodeText(key, x.src)
		return takeout.CookTemplateRaw(raw[1 : len(raw)-1]), true
	}
	return "", false
}

// unwrap strips parentheses and TypeScript-only wrappers around an expression
func unwrap(n *sitter.Node) *sitter.Node {
	for n != nil {
		switch n.Kind() {
		case "parenthesized_expression", "as_expression", "satisfies_expression", "non_null_expression":
			n = n.NamedChild(0)
		default:
			return n
		}
	}
	return nil
}

// outerExpression climbs out of wrappers; it returns the outermost wrapper and its parent
func outerExpression(n *sitter.Node) (*sitter.Node, *sitter.Node) {
	parent := n.Parent()
	for parent != nil {
		switch parent.Kind() {
		case "parenthesized_expression", "as_expression", "satisfies_expression", "non_null_expression":
			n, parent = parent, parent.Parent()
		default:
			return n, parent
		}
	}
	return n, nil
}

func isField(parent *sitter.Node, field string, child *sitter.Node) bool {
	f := parent.ChildByFieldName(field)
	return f != nil && nodeSpan(f) == nodeSpan(child) && f.Kind() == child.Kind()
}

// isTagged reports whether a template string is the argument of a tagged call
func isTagged(tmpl *sitter.Node) bool {
	parent := tmpl.Parent()
	return parent != nil && parent.Kind() == "call_expression" && isField(parent, "arguments", tmpl)
}
