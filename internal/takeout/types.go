package takeout

import "fmt"

// SourceLocation identifies where an extraction site starts in a source file
type SourceLocation struct {
	File   string // Path as handed over by the host
	Line   int    // 1-based
	Column int    // 0-based
}

func (l SourceLocation) String() string {
	return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
}

// SiteKind is the kind of tagged template recognized by the host
type SiteKind int

const (
	// SiteDecl binds a named value: decl`...`, d`...`, decl.name`...`
	SiteDecl SiteKind = iota
	// SiteGlobal is injectGlobal`...`; the call site is removed
	SiteGlobal
	// SiteScoped is css`...`; the call site becomes a class name string
	SiteScoped
)

func (k SiteKind) String() string {
	switch k {
	case SiteDecl:
		return "decl"
	case SiteGlobal:
		return "injectGlobal"
	case SiteScoped:
		return "css"
	}
	return "unknown"
}

// BindingForm is the syntactic shape that names a decl site
type BindingForm int

const (
	BindingNone     BindingForm = iota // Not recognized by the host
	BindingVariable                    // const name = decl`...`
	BindingProperty                    // { name: decl`...` }
	BindingMember                      // decl.name = d`...`
	BindingTag                         // decl.name`...`
)

// Binding carries the declaration name of a decl site
type Binding struct {
	Form BindingForm
	Name string
}

// ExprKind classifies a template interpolation
type ExprKind int

const (
	ExprOther  ExprKind = iota // Arbitrary expression, never evaluated
	ExprRef                    // Identifier or non-computed member chain
	ExprSite                   // Another extraction site, e.g. ${css`...`}
	ExprString                 // String literal
)

// Expr is one interpolation of a template literal
type Expr struct {
	Kind   ExprKind
	Path   []string // ExprRef: ["x"] or ["obj", "x"] or ["decl", "color", "blue"]
	Site   int      // ExprSite: index into FileInput.Sites
	Value  string   // ExprString: cooked literal value
	Text   string   // Original source text, used when re-rendering a template
	Nested []int    // Sites somewhere inside an expression that is not itself a site
}

// Template is a template literal: len(Quasis) == len(Exprs)+1.
// Quasis hold raw text as written between the backticks.
type Template struct {
	Quasis []string
	Exprs  []Expr
}

// Site is one extraction site found by the host in a file
type Site struct {
	Kind     SiteKind
	Loc      SourceLocation
	Template Template
	Binding  Binding // SiteDecl only
}

// Container is an untagged template literal in the same file whose
// interpolations may reference extraction sites
type Container struct {
	Loc      SourceLocation
	Template Template
}

// FileInput is everything the host hands over for one file
type FileInput struct {
	Path       string
	Sites      []Site
	Containers []Container
}

// Op is the kind of source edit the host must apply
type Op int

const (
	// OpRemove deletes the site (or its enclosing statement)
	OpRemove Op = iota
	// OpReplaceString replaces the node with a string literal holding Value
	OpReplaceString
	// OpReplaceTemplate replaces a container with the rewritten Template
	OpReplaceTemplate
)

// Instruction is a single replacement the host applies after Process.
// Exactly one of Site and Container is >= 0.
type Instruction struct {
	Op        Op
	Site      int
	Container int
	Value     string
	Template  Template
}
