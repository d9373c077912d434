package treefmt

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/aledsdavies/do2json/pkgs/ast"
)

type cborNode struct {
	Level        int                  `cbor:"level"`
	ID           string               `cbor:"id"`
	Name         string               `cbor:"name"`
	Value        *string              `cbor:"value"`
	PropertyType *string              `cbor:"propertyType"`
	Attributes   string               `cbor:"attributes"`
	Children     map[string]*cborNode `cbor:"children"`
}

func newCBORNode(n *ast.Node) *cborNode {
	node := &cborNode{
		Level:        n.Level,
		ID:           n.ID,
		Name:         n.Name,
		Value:        n.Value,
		PropertyType: n.PropertyType,
		Attributes:   n.Attributes,
		Children:     make(map[string]*cborNode, n.Children.Len()),
	}
	for _, name := range n.Children.Names() {
		child, _ := n.Children.Get(name)
		node.Children[name] = newCBORNode(child)
	}
	return node
}

// MarshalCBOR produces the canonical CBOR encoding of tree.
// Canonical map ordering makes the bytes stable across runs; child
// insertion order is not preserved.
func MarshalCBOR(tree *ast.Node) ([]byte, error) {
	encMode, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		return nil, fmt.Errorf("failed to create CBOR encoder: %w", err)
	}

	data, err := encMode.Marshal(newCBORNode(tree))
	if err != nil {
		return nil, fmt.Errorf("CBOR encoding failed: %w", err)
	}
	return data, nil
}

// UnmarshalCBOR decodes a tree produced by MarshalCBOR.
// Children come back in name order.
func UnmarshalCBOR(data []byte) (*ast.Node, error) {
	var node cborNode
	if err := cbor.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("CBOR decoding failed: %w", err)
	}
	return node.toAST(), nil
}

func (c *cborNode) toAST() *ast.Node {
	n := &ast.Node{
		Level:        c.Level,
		ID:           c.ID,
		Name:         c.Name,
		Value:        c.Value,
		PropertyType: c.PropertyType,
		Attributes:   c.Attributes,
		Children:     ast.NewChildren(),
	}
	for _, name := range sortedKeys(c.Children) {
		n.Children.Set(name, c.Children[name].toAST())
	}
	return n
}
