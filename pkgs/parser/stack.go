package parser

import (
	"github.com/aledsdavies/do2json/pkgs/ast"
	"github.com/aledsdavies/do2json/pkgs/invariant"
)

// frame is one open ancestor: the children mapping new fields go into
type frame struct {
	children *ast.Children
	last     *ast.Node // most recently inserted node, the parent on descend
	level    int       // indentation width of the fields in this frame
}

// frameStack tracks the chain of open frames. The bottom frame always holds
// the root's children and is never popped. Levels strictly increase from
// bottom to top.
type frameStack struct {
	frames []*frame
}

// reset replaces every frame with the root frame. Its level is fixed by
// setBase once the first field is seen.
func (s *frameStack) reset(root *ast.Node) {
	s.frames = []*frame{{children: root.Children}}
}

// setBase sets the level of the root frame
func (s *frameStack) setBase(level int) {
	invariant.Precondition(len(s.frames) == 1, "base level is set before any descend")
	s.frames[0].level = level
}

// push opens parent's children as the active frame at level
func (s *frameStack) push(parent *ast.Node, level int) {
	invariant.Precondition(len(s.frames) > 0, "push needs an open root frame")
	invariant.Precondition(level > s.top().level, "pushed level %d must be deeper than %d", level, s.top().level)
	s.frames = append(s.frames, &frame{children: parent.Children, level: level})
}

// find returns the index of the deepest frame whose level is at most level,
// and whether that frame is exactly at level. index is -1 when level is
// shallower than the root frame.
func (s *frameStack) find(level int) (index int, exact bool) {
	for i := len(s.frames) - 1; i >= 0; i-- {
		if s.frames[i].level <= level {
			return i, s.frames[i].level == level
		}
	}
	return -1, false
}

// truncate closes every frame above index, leaving frames[index] active.
// The root frame always stays.
func (s *frameStack) truncate(index int) {
	if index < 0 {
		index = 0
	}
	if index < len(s.frames) {
		s.frames = s.frames[:index+1]
	}
}

// at returns the frame at index
func (s *frameStack) at(index int) *frame {
	return s.frames[index]
}

// top returns the active frame
func (s *frameStack) top() *frame {
	invariant.Invariant(len(s.frames) > 0, "frame stack must hold the root frame")
	return s.frames[len(s.frames)-1]
}

// insert stores node in the active frame, overwriting a same-named sibling.
// It reports whether a sibling was replaced.
func (s *frameStack) insert(node *ast.Node) bool {
	f := s.top()
	f.last = node
	return f.children.Set(node.Name, node)
}

// depth returns the number of open frames, root frame included
func (s *frameStack) depth() int {
	return len(s.frames)
}

// empty reports whether no tree is open
func (s *frameStack) empty() bool {
	return len(s.frames) == 0
}
