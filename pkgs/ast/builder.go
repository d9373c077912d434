package ast

import "github.com/aledsdavies/do2json/pkgs/lexer"

// NewRoot creates the top node of a tree from a root line
func NewRoot(name string, indent int) *Node {
	return &Node{
		Level:    indent,
		Name:     name,
		Children: NewChildren(),
	}
}

// NewProperty creates a field node from a classified property line
func NewProperty(line lexer.Line) *Node {
	node := &Node{
		Level:        line.Level(),
		ID:           line.ID,
		Name:         line.Name,
		PropertyType: Str(line.PropertyType),
		Attributes:   line.Attributes,
		Children:     NewChildren(),
	}
	if line.HasValue {
		node.Value = Str(line.Value)
	}
	return node
}

// Str returns a pointer to s
func Str(s string) *string {
	return &s
}

// Root creates a root node with the given children, for building expected trees
func Root(name string, children ...*Node) *Node {
	root := NewRoot(name, 0)
	for _, child := range children {
		root.Children.Set(child.Name, child)
	}
	return root
}

// Prop creates a field node: <level> <id> <name> : <value> (<type>)
func Prop(level int, id, name, value, propertyType string, children ...*Node) *Node {
	node := &Node{
		Level:        level,
		ID:           id,
		Name:         name,
		Value:        Str(value),
		PropertyType: Str(propertyType),
		Children:     NewChildren(),
	}
	for _, child := range children {
		node.Children.Set(child.Name, child)
	}
	return node
}

// Null creates a field node printed with the NULL marker and no value
func Null(level int, id, name string) *Node {
	return &Node{
		Level:        level,
		ID:           id,
		Name:         name,
		PropertyType: Str(lexer.NullMarker),
		Children:     NewChildren(),
	}
}
