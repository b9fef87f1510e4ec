package table

import (
	"fmt"
	"strconv"
	"strings"
)

// ComponentPath locates a component by the indices leading to it from the
// tabletop. The empty path is the tabletop itself.
type ComponentPath []int

// Child returns the path of the child at index.
func (p ComponentPath) Child(index int) ComponentPath {
	res := make(ComponentPath, len(p), len(p)+1)
	copy(res, p)
	return append(res, index)
}

// Parent returns the path of the parent container. The tabletop has no
// parent.
func (p ComponentPath) Parent() (ComponentPath, bool) {
	if len(p) == 0 {
		return nil, false
	}
	return p[:len(p)-1], true
}

// Equal ...
func (p ComponentPath) Equal(o ComponentPath) bool {
	if len(p) != len(o) {
		return false
	}
	for i := range p {
		if p[i] != o[i] {
			return false
		}
	}
	return true
}

// String ...
func (p ComponentPath) String() string {
	parts := make([]string, len(p))
	for i, idx := range p {
		parts[i] = strconv.Itoa(idx)
	}
	return fmt.Sprintf("/%s", strings.Join(parts, "/"))
}
