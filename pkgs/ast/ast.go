// Package ast defines the tree assembled from a do2 object dump.
package ast

// Node is one object or field of the dump.
type Node struct {
	Level        int       // indentation width the node was read at
	ID           string    // field offset token, not unique
	Name         string
	Value        *string   // nil when the dump printed no value
	PropertyType *string   // nil for the root
	Attributes   string
	Children     *Children
}

// IsRoot reports whether the node was created from a root line
func (n *Node) IsRoot() bool {
	return n.PropertyType == nil
}

// Walk visits n and every descendant depth-first in insertion order.
// Returning false from fn stops the descent below that node.
func (n *Node) Walk(fn func(path []string, node *Node) bool) {
	n.walk(nil, fn)
}

func (n *Node) walk(path []string, fn func([]string, *Node) bool) {
	if !fn(path, n) {
		return
	}
	for _, name := range n.Children.Names() {
		child, _ := n.Children.Get(name)
		child.walk(append(path[:len(path):len(path)], name), fn)
	}
}

// Count returns the number of nodes in the subtree rooted at n, n included
func (n *Node) Count() int {
	total := 0
	n.Walk(func([]string, *Node) bool {
		total++
		return true
	})
	return total
}

// Depth returns the number of nesting levels below n
func (n *Node) Depth() int {
	deepest := 0
	for _, name := range n.Children.Names() {
		child, _ := n.Children.Get(name)
		if d := child.Depth() + 1; d > deepest {
			deepest = d
		}
	}
	return deepest
}

// Children maps child names to nodes.
// Iteration follows first-insertion order; re-setting an existing name
// replaces the node but keeps its position.
type Children struct {
	names []string
	nodes map[string]*Node
}

// NewChildren creates an empty mapping
func NewChildren() *Children {
	return &Children{nodes: make(map[string]*Node)}
}

// Set inserts or overwrites the node stored under name.
// It reports whether an existing node was replaced.
func (c *Children) Set(name string, node *Node) bool {
	if _, exists := c.nodes[name]; exists {
		c.nodes[name] = node
		return true
	}
	c.names = append(c.names, name)
	c.nodes[name] = node
	return false
}

// Get returns the node stored under name
func (c *Children) Get(name string) (*Node, bool) {
	if c == nil {
		return nil, false
	}
	node, ok := c.nodes[name]
	return node, ok
}

// Len returns the number of children
func (c *Children) Len() int {
	if c == nil {
		return 0
	}
	return len(c.names)
}

// Names returns the child names in insertion order
func (c *Children) Names() []string {
	if c == nil {
		return nil
	}
	names := make([]string, len(c.names))
	copy(names, c.names)
	return names
}
