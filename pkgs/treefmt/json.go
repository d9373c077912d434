// Package treefmt renders parsed dump trees as JSON or CBOR.
//
// JSON keeps field order fixed (level, id, name, value, propertyType,
// attributes, children) and children in first-seen order, so identical trees
// always render to identical bytes.
package treefmt

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/aledsdavies/do2json/pkgs/ast"
)

// Format selects the output encoding
type Format int

const (
	FormatJSON Format = iota
	FormatCBOR
)

func (f Format) String() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatCBOR:
		return "cbor"
	default:
		return "unknown"
	}
}

// ParseFormat converts a format name to a Format
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "json":
		return FormatJSON, nil
	case "cbor":
		return FormatCBOR, nil
	default:
		return FormatJSON, fmt.Errorf("unknown output format %q (expected json or cbor)", name)
	}
}

// Encode renders tree in the given format. pretty only affects JSON.
func Encode(tree *ast.Node, format Format, pretty bool) ([]byte, error) {
	switch format {
	case FormatJSON:
		return Marshal(tree, pretty)
	case FormatCBOR:
		return MarshalCBOR(tree)
	default:
		return nil, fmt.Errorf("unsupported format: %v", format)
	}
}

// Marshal renders tree as JSON, compact or with two-space indentation
func Marshal(tree *ast.Node, pretty bool) ([]byte, error) {
	if tree == nil {
		return []byte("null"), nil
	}

	w := newJSONWriter()
	if err := w.node(tree); err != nil {
		return nil, err
	}
	if !pretty {
		return w.buf.Bytes(), nil
	}

	var out bytes.Buffer
	if err := json.Indent(&out, w.buf.Bytes(), "", "  "); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// jsonWriter renders a whole tree into one buffer in a single pass.
// Strings go through one encoder so escaping matches encoding/json without
// HTML escaping.
type jsonWriter struct {
	buf bytes.Buffer
	enc *json.Encoder
}

func newJSONWriter() *jsonWriter {
	w := &jsonWriter{}
	w.enc = json.NewEncoder(&w.buf)
	w.enc.SetEscapeHTML(false)
	return w
}

func (w *jsonWriter) node(n *ast.Node) error {
	w.buf.WriteString(`{"level":`)
	w.buf.WriteString(strconv.Itoa(n.Level))
	w.buf.WriteString(`,"id":`)
	if err := w.str(n.ID); err != nil {
		return err
	}
	w.buf.WriteString(`,"name":`)
	if err := w.str(n.Name); err != nil {
		return err
	}
	w.buf.WriteString(`,"value":`)
	if err := w.optional(n.Value); err != nil {
		return err
	}
	w.buf.WriteString(`,"propertyType":`)
	if err := w.optional(n.PropertyType); err != nil {
		return err
	}
	w.buf.WriteString(`,"attributes":`)
	if err := w.str(n.Attributes); err != nil {
		return err
	}

	w.buf.WriteString(`,"children":{`)
	for i, name := range n.Children.Names() {
		if i > 0 {
			w.buf.WriteByte(',')
		}
		child, _ := n.Children.Get(name)
		if err := w.str(name); err != nil {
			return err
		}
		w.buf.WriteByte(':')
		if err := w.node(child); err != nil {
			return err
		}
	}
	w.buf.WriteString("}}")
	return nil
}

func (w *jsonWriter) optional(s *string) error {
	if s == nil {
		w.buf.WriteString("null")
		return nil
	}
	return w.str(*s)
}

// str appends s as a JSON string, dropping the encoder's trailing newline
func (w *jsonWriter) str(s string) error {
	if err := w.enc.Encode(s); err != nil {
		return err
	}
	w.buf.Truncate(w.buf.Len() - 1)
	return nil
}
