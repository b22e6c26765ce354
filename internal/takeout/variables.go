package takeout

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// aliasSentinel marks a string value that points at another path in the tree
const aliasSentinel = "$"

// VariableTree is an externally supplied nested mapping of variables.
//
// A string value beginning with "$" is an alias: "$colors.blue" resolves to
// whatever colors.blue resolves to. Resolved aliases are written back into
// the tree, so the chain is only walked once.
type VariableTree struct {
	root map[string]any
}

// NewVariableTree wraps root. The tree is mutated in place: YAML-shaped
// map[any]any subtrees are replaced by map[string]any copies up front, and
// alias memoization writes resolved leaves back.
func NewVariableTree(root map[string]any) *VariableTree {
	if root == nil {
		root = make(map[string]any)
	}
	normalize(root)
	return &VariableTree{root: root}
}

// normalize converts every nested map to map[string]any, in place where it can
func normalize(v any) any {
	switch node := v.(type) {
	case map[string]any:
		for k, val := range node {
			node[k] = normalize(val)
		}
		return node
	case map[any]any:
		out := make(map[string]any, len(node))
		for k, val := range node {
			out[fmt.Sprint(k)] = normalize(val)
		}
		return out
	case []any:
		for i, val := range node {
			node[i] = normalize(val)
		}
		return node
	}
	return v
}

// Has reports whether key exists at the top level of the tree
func (t *VariableTree) Has(key string) bool {
	_, ok := t.root[key]
	return ok
}

// Resolve returns the leaf text at path
func (t *VariableTree) Resolve(path []string) (string, error) {
	if len(path) == 0 {
		return "", fmt.Errorf("%w: empty path", ErrMissingKey)
	}

	node, err := t.walk(path, nil)
	if err != nil {
		return "", err
	}

	text, ok := leafText(node)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNotALeaf, strings.Join(path, "."))
	}
	return text, nil
}

// walk follows path from the root, resolving aliases met on the way.
// stack holds the alias paths currently being resolved.
func (t *VariableTree) walk(path []string, stack []string) (any, error) {
	key := strings.Join(path, ".")
	if slices.Contains(stack, key) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrCircularAlias, strings.Join(stack, " -> "), key)
	}
	stack = append(stack, key)

	var node any = t.root
	for i, k := range path {
		m, ok := node.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingKey, strings.Join(path[:i+1], "."))
		}

		v, ok := m[k]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingKey, strings.Join(path[:i+1], "."))
		}

		if target, isAlias := aliasPath(v); isAlias {
			resolved, err := t.walk(target, stack)
			if err != nil {
				return nil, err
			}
			if _, leaf := leafText(resolved); leaf {
				m[k] = resolved
			}
			v = resolved
		}

		node = v
	}

	return node, nil
}

// aliasPath splits "$a.b" into ["a", "b"]
func aliasPath(v any) ([]string, bool) {
	s, ok := v.(string)
	if !ok || !strings.HasPrefix(s, aliasSentinel) {
		return nil, false
	}
	return strings.Split(strings.TrimPrefix(s, aliasSentinel), "."), true
}

// leafText renders a terminal value. Maps are not leaves.
func leafText(v any) (string, bool) {
	switch val := v.(type) {
	case nil:
		return "", true
	case string:
		return val, true
	case bool:
		return strconv.FormatBool(val), true
	case int:
		return strconv.Itoa(val), true
	case int64:
		return strconv.FormatInt(val, 10), true
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32), true
	case map[string]any:
		return "", false
	}
	return fmt.Sprint(v), true
}
