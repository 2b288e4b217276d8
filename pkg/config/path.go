package config

import (
	"fmt"
	"strconv"
	"strings"
)

// WholeTree is the path that selects the entire configuration tree.
const WholeTree = "*"

// Path is a configuration path split into segments.
type Path []string

// ParsePath splits a dot-separated path. "*" and "" select the whole tree
// and parse to an empty Path.
func ParsePath(p string) Path {
	p = strings.TrimSpace(p)
	if p == "" || p == WholeTree {
		return nil
	}
	return Path(strings.Split(p, "."))
}

// IsWhole reports whether p selects the entire tree.
func (p Path) IsWhole() bool {
	return len(p) == 0 || (len(p) == 1 && p[0] == WholeTree)
}

func (p Path) String() string {
	if p.IsWhole() {
		return WholeTree
	}
	return strings.Join(p, ".")
}

// PathError describes why a path could not be resolved. It is reported as a
// log diagnostic; lookups through a Store never return it.
type PathError struct {
	Path   Path
	Depth  int
	Reason string
}

func (e *PathError) Error() string {
	seg := ""
	if e.Depth < len(e.Path) {
		seg = e.Path[e.Depth]
	}
	return fmt.Sprintf("path %q could not be resolved at %q: %s", e.Path.String(), seg, e.Reason)
}

// Lookup walks tree along p. It stops at the first absent segment, nil
// intermediate or non-traversable value and returns a *PathError describing
// where. Sequences are indexed by decimal segments. The returned value is
// the stored value itself, not a copy.
func Lookup(tree map[string]any, p Path) (any, error) {
	if p.IsWhole() {
		return tree, nil
	}

	var node any = tree
	for depth, seg := range p {
		if node == nil {
			return nil, &PathError{Path: p, Depth: depth, Reason: "parent is null"}
		}

		if m, ok := asMap(node); ok {
			next, exists := m[seg]
			if !exists {
				return nil, &PathError{Path: p, Depth: depth, Reason: "key not found"}
			}
			node = next
			continue
		}

		if items, ok := asSlice(node); ok {
			idx, err := strconv.Atoi(seg)
			if err != nil || idx < 0 || idx >= len(items) {
				return nil, &PathError{Path: p, Depth: depth, Reason: "index out of range"}
			}
			node = items[idx]
			continue
		}

		return nil, &PathError{Path: p, Depth: depth, Reason: fmt.Sprintf("cannot traverse into %T", node)}
	}
	return node, nil
}
