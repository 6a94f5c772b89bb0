// Package jsondom parses JSON into an ordered tree of tagged nodes.
//
// Unlike encoding/json's map decoding, object members keep their document
// order and integers stay distinct from floats, which schema-directed
// readers such as the MHX2 parser rely on.
package jsondom

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Parser errors.
var (
	ErrEmptyDocument = errors.New("empty JSON document")
	ErrTrailingData  = errors.New("trailing data after JSON document")
	ErrTooDeep       = errors.New("JSON nesting too deep")
)

// MaxDepth bounds object/array nesting.
const MaxDepth = 512

// Type is the tag of a Node.
type Type int

const (
	Null Type = iota
	Bool
	Int
	Float
	String
	Object
	Array
)

// String returns the JSON type name.
func (t Type) String() string {
	switch t {
	case Null:
		return "null"
	case Bool:
		return "bool"
	case Int:
		return "int"
	case Float:
		return "float"
	case String:
		return "string"
	case Object:
		return "object"
	case Array:
		return "array"
	default:
		return fmt.Sprintf("Unknown(%d)", int(t))
	}
}

// Node is one value in the tree. Members of an object carry their key in
// Name; array elements are unnamed.
type Node struct {
	Type  Type
	Name  string // Object member key
	Named bool   // Name is meaningful (the key may be "")

	Bool  bool
	Int   int64
	Float float64
	Str   string

	Children []*Node // Object members or array elements, in document order
}

// IsContainer reports whether n is an object or an array.
func (n *Node) IsContainer() bool {
	return n.Type == Object || n.Type == Array
}

// IsNumber reports whether n is an int or a float.
func (n *Node) IsNumber() bool {
	return n.Type == Int || n.Type == Float
}

// Number returns the numeric value of an int or float node.
func (n *Node) Number() (float64, bool) {
	switch n.Type {
	case Int:
		return float64(n.Int), true
	case Float:
		return n.Float, true
	}
	return 0, false
}

// Child returns the first member named name, or nil.
func (n *Node) Child(name string) *Node {
	for _, c := range n.Children {
		if c.Named && c.Name == name {
			return c
		}
	}
	return nil
}

// Parse parses a complete JSON document.
func Parse(data []byte) (*Node, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptyDocument
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	root, err := parseValue(dec, 0)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, ErrTrailingData
	}
	return root, nil
}

func parseValue(dec *json.Decoder, depth int) (*Node, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("reading token at offset %d: %w", dec.InputOffset(), err)
	}

	switch v := tok.(type) {
	case json.Delim:
		if depth >= MaxDepth {
			return nil, ErrTooDeep
		}
		switch v {
		case '{':
			return parseObject(dec, depth+1)
		case '[':
			return parseArray(dec, depth+1)
		}
		return nil, fmt.Errorf("unexpected delimiter %q at offset %d", v, dec.InputOffset())
	case nil:
		return &Node{Type: Null}, nil
	case bool:
		return &Node{Type: Bool, Bool: v}, nil
	case string:
		return &Node{Type: String, Str: v}, nil
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return &Node{Type: Int, Int: i}, nil
		}
		f, err := v.Float64()
		if err != nil {
			return nil, fmt.Errorf("invalid number %q: %w", v, err)
		}
		return &Node{Type: Float, Float: f}, nil
	}
	return nil, fmt.Errorf("unexpected token %v", tok)
}

func parseObject(dec *json.Decoder, depth int) (*Node, error) {
	n := &Node{Type: Object}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("reading object key: %w", err)
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("object key is %T, not string", tok)
		}
		child, err := parseValue(dec, depth)
		if err != nil {
			return nil, fmt.Errorf("member %q: %w", key, err)
		}
		child.Name = key
		child.Named = true
		n.Children = append(n.Children, child)
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("closing object: %w", err)
	}
	return n, nil
}

func parseArray(dec *json.Decoder, depth int) (*Node, error) {
	n := &Node{Type: Array}
	for dec.More() {
		child, err := parseValue(dec, depth)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", len(n.Children), err)
		}
		n.Children = append(n.Children, child)
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("closing array: %w", err)
	}
	return n, nil
}
