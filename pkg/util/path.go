package util

import (
	"fmt"
	"slices"
)

// Path is a construct for describing a module path through the scope tree
// (C3): the sequence of module-declaration segments from the compile root
// down to one scope. Only absolute paths are constructed by the scope
// manager — every scope's module path is rooted, so the relative-path and
// sub-path slicing operations the teacher's Path also offers have no caller
// here and are not carried over.
type Path struct {
	// Indicates whether or not this is an absolute path.
	absolute bool
	// Segments in the path.
	segments []string
}

// NewAbsolutePath constructs a new absolute path from the given segments.
func NewAbsolutePath(segments ...string) Path {
	return Path{true, segments}
}

// depth returns the number of segments in this path.
func (p *Path) depth() uint {
	return uint(len(p.segments))
}

// Equals determines whether two paths are the same.
func (p *Path) Equals(other Path) bool {
	return p.absolute == other.absolute && slices.Equal(p.segments, other.segments)
}

// parent returns the parent of this path.
func (p *Path) parent() *Path {
	n := p.depth() - 1
	return &Path{p.absolute, p.segments[0:n]}
}

// tail returns the innermost segment of this path.
func (p *Path) tail() string {
	return p.segments[len(p.segments)-1]
}

// Extend returns this path extended with a new innermost segment — used by
// the scope manager when a child scope declares a nested module.
func (p *Path) Extend(tail string) *Path {
	nsegments := make([]string, len(p.segments)+1)
	copy(nsegments, p.segments)
	nsegments[len(p.segments)] = tail

	return &Path{p.absolute, nsegments}
}

// String returns the dotted/slashed rendering of this path used in
// signature.FunctionId.Module and in diagnostic "Use qualified name" fixes.
func (p *Path) String() string {
	switch len(p.segments) {
	case 0:
		return ""
	case 1:
		return p.segments[0]
	case 2:
		return fmt.Sprintf("%s.%s", p.segments[0], p.segments[1])
	default:
		return fmt.Sprintf("%s/%s", p.parent().String(), p.tail())
	}
}
