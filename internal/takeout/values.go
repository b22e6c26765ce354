package takeout

import (
	"fmt"
	"strings"
)

// DefaultVariablesRoot is the identifier that roots variable tree references: ${decl.colors.blue}
const DefaultVariablesRoot = "decl"

// Resolver turns an interpolation into literal text
type Resolver interface {
	ResolveReference(expr Expr) (string, error)
}

// ValueStore holds decl bindings and the configured variable tree.
// Bindings are write-once per site; re-extracting the same file overwrites them.
type ValueStore struct {
	values   map[string]string
	vars     *VariableTree
	varsRoot string
}

// NewValueStore creates a store resolving root-prefixed member chains through vars
func NewValueStore(vars *VariableTree, varsRoot string) *ValueStore {
	if vars == nil {
		vars = NewVariableTree(nil)
	}
	if varsRoot == "" {
		varsRoot = DefaultVariablesRoot
	}
	return &ValueStore{
		values:   make(map[string]string),
		vars:     vars,
		varsRoot: varsRoot,
	}
}

// Define reconstructs tmpl and binds the result to name
func (s *ValueStore) Define(name string, tmpl Template) (string, error) {
	text, err := MergeTemplate(tmpl, s)
	if err != nil {
		return "", err
	}
	s.values[name] = text
	return text, nil
}

// Lookup returns the text bound to name
func (s *ValueStore) Lookup(name string) (string, bool) {
	v, ok := s.values[name]
	return v, ok
}

// Len returns the number of bindings
func (s *ValueStore) Len() int {
	return len(s.values)
}

// ResolveReference resolves x, obj.x, or a variable tree path such as decl.colors.blue
func (s *ValueStore) ResolveReference(expr Expr) (string, error) {
	if expr.Kind != ExprRef || len(expr.Path) == 0 {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedReference, describe(expr))
	}

	path := expr.Path
	if len(path) >= 2 && path[0] == s.varsRoot && (len(path) > 2 || s.vars.Has(path[1])) {
		return s.vars.Resolve(path[1:])
	}

	var name string
	switch len(path) {
	case 1:
		name = path[0]
	case 2:
		name = path[1]
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedReference, describe(expr))
	}

	v, ok := s.values[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUndefinedBinding, strings.Join(path, "."))
	}
	return v, nil
}

func describe(expr Expr) string {
	if expr.Text != "" {
		return expr.Text
	}
	if len(expr.Path) > 0 {
		return strings.Join(expr.Path, ".")
	}
	return "expression"
}
