// Package source parses JS/TS files with tree-sitter, finds style extraction
// sites for the takeout engine and applies the engine's instructions back to
// the source text.
package source

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
	typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"

	"github.com/nettybun/styletakeout/internal/takeout"
)

var (
	// ErrUnsupportedFile is returned for extensions without a grammar
	ErrUnsupportedFile = errors.New("unsupported file type")
	// ErrSyntax is returned when the file does not parse cleanly
	ErrSyntax = errors.New("syntax error")
)

// Tags maps tag identifiers to the kind of site they start
type Tags map[string]takeout.SiteKind

// DefaultTags returns css, injectGlobal, decl and its d shorthand
func DefaultTags() Tags {
	return Tags{
		"css":          takeout.SiteScoped,
		"injectGlobal": takeout.SiteGlobal,
		"decl":         takeout.SiteDecl,
		"d":            takeout.SiteDecl,
	}
}

// Extensions handled by LanguageFor
var Extensions = []string{".js", ".jsx", ".mjs", ".cjs", ".ts", ".tsx", ".mts", ".cts"}

// LanguageFor picks the grammar for path. Plain JS goes through the TSX
// grammar, which also accepts JSX.
func LanguageFor(path string) (*sitter.Language, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ts", ".mts", ".cts":
		return sitter.NewLanguage(typescript.LanguageTypescript()), nil
	case ".js", ".jsx", ".mjs", ".cjs", ".tsx":
		return sitter.NewLanguage(typescript.LanguageTSX()), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedFile, path)
}

// Supported reports whether path has a grammar
func Supported(path string) bool {
	_, err := LanguageFor(path)
	return err == nil
}

// DefaultModule is the import path whose import statements are removed on rewrite
const DefaultModule = "styletakeout.macro"

// Parser finds extraction sites. It is safe for concurrent use.
type Parser struct {
	tags   Tags
	module string
}

// NewParser creates a parser recognizing tags; nil means DefaultTags
func NewParser(tags Tags) *Parser {
	if len(tags) == 0 {
		tags = DefaultTags()
	}
	return &Parser{tags: tags, module: DefaultModule}
}

// WithModule changes the import path stripped from rewritten files
func (p *Parser) WithModule(module string) *Parser {
	return &Parser{tags: p.tags, module: module}
}

// MayContainSites is a cheap pre-check: false means the file mentions no tag at all
func (p *Parser) MayContainSites(src []byte) bool {
	for tag := range p.tags {
		if bytes.Contains(src, []byte(tag)) {
			return true
		}
	}
	return false
}

// span is a half-open byte range of the source
type span struct {
	start, end int
}

// siteEdit holds the byte ranges Rewrite needs for one site
type siteEdit struct {
	call        span   // The tagged template call
	remove      span   // What OpRemove deletes
	replacement string // What OpRemove leaves behind: "" or "undefined"
}

// File is a parsed source file. The syntax tree is released after Parse;
// everything Rewrite needs is kept as byte ranges.
type File struct {
	Path       string
	Source     []byte
	Input      takeout.FileInput
	sites      []siteEdit
	containers []span
	imports    []span // Imports of the tag module, removed by Rewrite
}

// Parse parses src and collects its extraction sites and containers
func (p *Parser) Parse(path string, src []byte) (*File, error) {
	lang, err := LanguageFor(path)
	if err != nil {
		return nil, err
	}

	parser := sitter.NewParser()
	defer parser.Close()

	if err := parser.SetLanguage(lang); err != nil {
		return nil, fmt.Errorf("failed to load grammar for %s: %w", path, err)
	}

	tree := parser.Parse(src, nil)
	if tree == nil {
		return nil, fmt.Errorf("failed to parse %s", path)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		return nil, syntaxError(path, root)
	}

	x := &extractor{path: path, src: src, tags: p.tags, module: p.module, index: make(map[span]int)}
	x.collect(root)

	return &File{
		Path:   path,
		Source: src,
		Input: takeout.FileInput{
			Path:       path,
			Sites:      x.sites,
			Containers: x.containers,
		},
		sites:      x.edits,
		containers: x.containerSpans,
		imports:    x.imports,
	}, nil
}

// SyntaxError locates the first error or missing node of a file that failed to parse
type SyntaxError struct {
	Path   string
	Line   int // 1-based
	Column int // 0-based
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%v: %s:%d:%d", ErrSyntax, e.Path, e.Line, e.Column)
}

func (e *SyntaxError) Unwrap() error {
	return ErrSyntax
}

// syntaxError reports the first error or missing node
func syntaxError(path string, root *sitter.Node) error {
	var found *sitter.Node
	walkTree(root, func(n *sitter.Node) bool {
		if found != nil {
			return false
		}
		if n.IsError() || n.IsMissing() {
			found = n
			return false
		}
		return n.HasError()
	})
	if found == nil {
		return &SyntaxError{Path: path, Line: 1}
	}
	pos := found.StartPosition()
	return &SyntaxError{Path: path, Line: int(pos.Row) + 1, Column: int(pos.Column)}
}

// walkTree recursively walks a tree-sitter tree and calls the visitor for each node
func walkTree(node *sitter.Node, visitor func(*sitter.Node) bool) {
	if node == nil {
		return
	}

	if !visitor(node) {
		return
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		walkTree(node.Child(uint(i)), visitor)
	}
}

func nodeText(node *sitter.Node, src []byte) string {
	if node == nil {
		return ""
	}
	return string(src[node.StartByte():node.EndByte()])
}

func nodeSpan(node *sitter.Node) span {
	return span{start: int(node.StartByte()), end: int(node.EndByte())}
}
