package takeout

import (
	"fmt"
	"path"
	"strconv"
	"strings"
)

// ShortPath pairs a short name with the file it was assigned to
type ShortPath struct {
	Name string // "header+0"
	Path string // "src/components/header.tsx"
}

// PathNamer assigns each source file a short name of the form base+counter.
//
// The base is the file name without its extension. Index files use the name
// of their enclosing folder instead when useFolder is set, so that
// components/button/index.tsx becomes button+0. Files that reduce to the same
// base share a counter; a path never gets a second name.
type PathNamer struct {
	useFolder bool
	counters  map[string]int    // base -> next counter
	names     map[string]string // cleaned path -> short name
	owners    map[string]string // short name -> cleaned path
	order     []ShortPath
	written   int // len(order) at the last side-car write
}

// NewPathNamer creates an empty namer
func NewPathNamer(useFolder bool) *PathNamer {
	return &PathNamer{
		useFolder: useFolder,
		counters:  make(map[string]int),
		names:     make(map[string]string),
		owners:    make(map[string]string),
	}
}

// ShortName returns the memoized short name for fullPath, assigning one on first sight
func (n *PathNamer) ShortName(fullPath string) (string, error) {
	key := cleanPath(fullPath)
	if name, ok := n.names[key]; ok {
		return name, nil
	}

	base := n.base(key)
	counter := n.counters[base]
	name := base + "+" + strconv.Itoa(counter)

	// base is everything before the last '+', so two different bases can't
	// produce the same name; this guards the invariant anyway
	if owner, taken := n.owners[name]; taken && owner != key {
		return "", fmt.Errorf("%w: %q wanted by %s and %s", ErrUnresolvedShortNameConflict, name, owner, key)
	}

	n.counters[base] = counter + 1
	n.names[key] = name
	n.owners[name] = key
	n.order = append(n.order, ShortPath{Name: name, Path: key})

	return name, nil
}

// base derives the pre-counter part of a short name
func (n *PathNamer) base(cleaned string) string {
	file := path.Base(cleaned)
	stem := strings.TrimSuffix(file, path.Ext(file))
	if stem == "" {
		stem = file
	}

	if n.useFolder && stem == "index" {
		dir := path.Base(path.Dir(cleaned))
		if dir != "." && dir != "/" && dir != "" {
			return dir
		}
	}

	return stem
}

// Entries returns every assignment in first-seen order
func (n *PathNamer) Entries() []ShortPath {
	out := make([]ShortPath, len(n.order))
	copy(out, n.order)
	return out
}

// Len returns the number of named paths
func (n *PathNamer) Len() int {
	return len(n.order)
}

// Pending reports whether paths were named since the last MarkWritten
func (n *PathNamer) Pending() bool {
	return len(n.order) > n.written
}

// MarkWritten records that the current assignments were persisted
func (n *PathNamer) MarkWritten() {
	n.written = len(n.order)
}

// cleanPath normalizes separators so one file always maps to one key
func cleanPath(p string) string {
	return path.Clean(strings.ReplaceAll(p, "\\", "/"))
}
