package formats

import (
	"fmt"
	"strconv"

	"github.com/Faultbox/mhx2/pkg/jsondom"
	"github.com/Faultbox/mhx2/pkg/math"
)

// mhx2Parser carries the warning log through the recursive descent.
type mhx2Parser struct {
	warnings *Warnings
}

func (p *mhx2Parser) warn(msg string, n *jsondom.Node) {
	p.warnings.Add(msg, n)
}

// fieldFunc assigns one named JSON member into a record of type T.
type fieldFunc[T any] func(r *T, n *jsondom.Node, p *mhx2Parser) error

// schema describes how a record consumes a JSON subtree.
type schema[T any] struct {
	name    string                  // Record name used in diagnostics
	self    string                  // Key of a container that is the record itself
	fields  map[string]fieldFunc[T] // Named members
	unnamed fieldFunc[T]            // Unnamed scalars, nil to warn
}

// parseRecord walks n into r. Unnamed containers (and a container keyed by
// the record's own name) are transparent; named members dispatch through
// the field table. Unknown members only warn.
func parseRecord[T any](s *schema[T], r *T, n *jsondom.Node, p *mhx2Parser) error {
	if n == nil {
		return fmt.Errorf("parsing %s: %w", s.name, ErrMissingNode)
	}

	if n.IsContainer() && (!n.Named || (s.self != "" && n.Name == s.self)) {
		return parseChildren(s, r, n, p)
	}

	if !n.Named {
		if s.unnamed != nil {
			return s.unnamed(r, n, p)
		}
		p.warn("Parse "+s.name+" - unknown value", n)
		return nil
	}

	f, ok := s.fields[n.Name]
	if !ok {
		p.warn("Parse "+s.name+" - unknown value", n)
		return nil
	}
	return f(r, n, p)
}

func parseChildren[T any](s *schema[T], r *T, n *jsondom.Node, p *mhx2Parser) error {
	for _, c := range n.Children {
		if err := parseRecord(s, r, c, p); err != nil {
			return err
		}
	}
	return nil
}

// inPlace parses a named container as the record returned by get.
func inPlace[T, C any](s *schema[C], get func(*T) *C) fieldFunc[T] {
	return func(r *T, n *jsondom.Node, p *mhx2Parser) error {
		if !n.IsContainer() {
			p.warn("Parse "+s.name+" - unknown type", n)
			return nil
		}
		return parseChildren(s, get(r), n, p)
	}
}

// listOf parses every child of a named container as a fresh record created
// by newRec and appends it to the list returned by get.
func listOf[T, C any](s *schema[C], newRec func() C, get func(*T) *[]C) fieldFunc[T] {
	return func(r *T, n *jsondom.Node, p *mhx2Parser) error {
		if !n.IsContainer() {
			p.warn("Parse "+s.name+" - unknown type", n)
			return nil
		}
		list := get(r)
		for i, c := range n.Children {
			if c.Type == jsondom.Null {
				return fmt.Errorf("%s %d: %w", s.name, i, ErrNullValue)
			}
			if !c.IsContainer() {
				p.warn("Parse "+s.name+" - unknown type", c)
				continue
			}
			rec := newRec()
			if err := parseRecord(s, &rec, c, p); err != nil {
				return fmt.Errorf("%s %d: %w", s.name, i, err)
			}
			*list = append(*list, rec)
		}
		return nil
	}
}

func stringField[T any](get func(*T) *string) fieldFunc[T] {
	return func(r *T, n *jsondom.Node, p *mhx2Parser) error {
		if n.Type != jsondom.String {
			p.warn("Parse - type mismatch, expected string", n)
			return nil
		}
		*get(r) = n.Str
		return nil
	}
}

func numberField[T any](get func(*T) *float32) fieldFunc[T] {
	return func(r *T, n *jsondom.Node, p *mhx2Parser) error {
		v, ok := n.Number()
		if !ok {
			p.warn("Parse - type mismatch, expected number", n)
			return nil
		}
		*get(r) = float32(v)
		return nil
	}
}

func boolField[T any](get func(*T) *bool) fieldFunc[T] {
	return func(r *T, n *jsondom.Node, p *mhx2Parser) error {
		if n.Type != jsondom.Bool {
			p.warn("Parse - type mismatch, expected bool", n)
			return nil
		}
		*get(r) = n.Bool
		return nil
	}
}

func vectorField[T any](get func(*T) *math.Vec3) fieldFunc[T] {
	return func(r *T, n *jsondom.Node, p *mhx2Parser) error {
		if !n.IsContainer() {
			p.warn("Parse vector - unknown type", n)
			return nil
		}
		return parseVector(n, get(r), p)
	}
}

func colorField[T any](get func(*T) *math.Color) fieldFunc[T] {
	return func(r *T, n *jsondom.Node, p *mhx2Parser) error {
		if !n.IsContainer() {
			p.warn("Parse color - unknown type", n)
			return nil
		}
		return parseColor(n, get(r), p)
	}
}

func matrixField[T any](get func(*T) *math.Mat4) fieldFunc[T] {
	return func(r *T, n *jsondom.Node, p *mhx2Parser) error {
		if !n.IsContainer() {
			p.warn("Parse matrix - unknown type", n)
			return nil
		}
		return parseMatrix(n, get(r), p)
	}
}

// parseSlots assigns consecutive numeric leaves of n, depth first, to
// slots. Exceeding len(slots) is fatal.
func parseSlots(what string, n *jsondom.Node, slots []*float32, index *int, p *mhx2Parser) error {
	if n == nil {
		return fmt.Errorf("parsing %s: %w", what, ErrMissingNode)
	}
	if *index >= len(slots) {
		return fmt.Errorf("parsing %s: %w (%d)", what, ErrIndexOutOfBounds, *index)
	}

	switch n.Type {
	case jsondom.Object, jsondom.Array:
		for _, c := range n.Children {
			if err := parseSlots(what, c, slots, index, p); err != nil {
				return err
			}
		}
		return nil
	case jsondom.Int, jsondom.Float:
		v, _ := n.Number()
		*slots[*index] = float32(v)
		*index++
		return nil
	case jsondom.Null:
		return fmt.Errorf("parsing %s: %w", what, ErrNullValue)
	}

	p.warn("Parse "+what+" - unknown type", n)
	return nil
}

// parseVector fills X, Y and Z in order. A fourth value is fatal.
func parseVector(n *jsondom.Node, v *math.Vec3, p *mhx2Parser) error {
	index := 0
	return parseSlots("vector", n, []*float32{&v.X, &v.Y, &v.Z}, &index, p)
}

// parseUV fills U and V in order. A third value is fatal.
func parseUV(n *jsondom.Node, v *math.Vec2, p *mhx2Parser) error {
	index := 0
	return parseSlots("uv coords", n, []*float32{&v.X, &v.Y}, &index, p)
}

// parseColor fills R, G, B and A in order. Channels that are not supplied
// keep their prior value.
func parseColor(n *jsondom.Node, c *math.Color, p *mhx2Parser) error {
	index := 0
	return parseSlots("color", n, []*float32{&c.R, &c.G, &c.B, &c.A}, &index, p)
}

// parseMatrix fills a 4x4 matrix from an array of rows. Each nested array
// advances the row and resets the column.
func parseMatrix(n *jsondom.Node, m *math.Mat4, p *mhx2Parser) error {
	var rows [4][4]float32
	if m != nil {
		rows = m.Rows()
	}
	row, col := 0, 0
	if err := parseMatrixNode(n, &rows, &row, &col, p); err != nil {
		return err
	}
	*m = math.FromRows(rows)
	return nil
}

func parseMatrixNode(n *jsondom.Node, rows *[4][4]float32, row, col *int, p *mhx2Parser) error {
	if n == nil {
		return fmt.Errorf("parsing matrix: %w", ErrMissingNode)
	}
	if *col >= 4 {
		return fmt.Errorf("parsing matrix: column %w (%d)", ErrIndexOutOfBounds, *col)
	}
	if *row >= 4 {
		return fmt.Errorf("parsing matrix: row %w (%d)", ErrIndexOutOfBounds, *row)
	}

	switch n.Type {
	case jsondom.Object, jsondom.Array:
		nested := false
		for _, c := range n.Children {
			if c.IsContainer() {
				nested = true
			}
			if err := parseMatrixNode(c, rows, row, col, p); err != nil {
				return err
			}
		}
		// A container of rows has already advanced past its last row.
		if !nested {
			*col = 0
			*row++
		}
		return nil
	case jsondom.Int, jsondom.Float:
		v, _ := n.Number()
		rows[*row][*col] = float32(v)
		*col++
		return nil
	case jsondom.Null:
		return fmt.Errorf("parsing matrix: %w", ErrNullValue)
	}

	p.warn("Parse matrix - unknown type", n)
	return nil
}

// parseIndexList flattens the numeric leaves of n into vertex indices.
func parseIndexList(what string, n *jsondom.Node, out *[]int, p *mhx2Parser) error {
	if n == nil {
		return fmt.Errorf("parsing %s: %w", what, ErrMissingNode)
	}

	switch n.Type {
	case jsondom.Object, jsondom.Array:
		for _, c := range n.Children {
			if err := parseIndexList(what, c, out, p); err != nil {
				return err
			}
		}
		return nil
	case jsondom.Int:
		*out = append(*out, int(n.Int))
		return nil
	case jsondom.Float:
		*out = append(*out, int(n.Float))
		return nil
	case jsondom.Null:
		return fmt.Errorf("parsing %s: %w", what, ErrNullValue)
	}

	p.warn("Parse "+what+" - unknown type", n)
	return nil
}

// indexLists parses every child of a named container as one index list.
func indexLists[T any](what string, get func(*T) *[][]int) fieldFunc[T] {
	return func(r *T, n *jsondom.Node, p *mhx2Parser) error {
		if !n.IsContainer() {
			p.warn("Parse "+what+" - unknown type", n)
			return nil
		}
		list := get(r)
		for i, c := range n.Children {
			var face []int
			if err := parseIndexList(what, c, &face, p); err != nil {
				return fmt.Errorf("%s %d: %w", what, i, err)
			}
			*list = append(*list, face)
		}
		return nil
	}
}

// parseWeightGroup reads one weight group. Both the object form
// {"5": 0.25} and the pair form [[5, 0.25], ...] are accepted.
func parseWeightGroup(n *jsondom.Node, g *MHX2WeightGroup, p *mhx2Parser) error {
	if n == nil {
		return fmt.Errorf("parsing weight group: %w", ErrMissingNode)
	}
	if !n.IsContainer() {
		p.warn("Parse weight group - unknown type", n)
		return nil
	}
	if n.Named {
		g.Key = n.Name
	}
	if g.Table == nil {
		g.Table = make(map[int]float32)
	}

	for _, c := range n.Children {
		switch {
		case c.Named && c.IsNumber():
			index, err := strconv.Atoi(c.Name)
			if err != nil || index < 0 {
				p.warn("Parse weight - invalid vertex index", c)
				continue
			}
			v, _ := c.Number()
			g.add(index, float32(v), c, p)

		case c.IsContainer():
			var pair [2]float32
			index := 0
			if err := parseSlots("weight", c, []*float32{&pair[0], &pair[1]}, &index, p); err != nil {
				return fmt.Errorf("weight group %q: %w", g.Key, err)
			}
			if index < 2 || pair[0] < 0 {
				p.warn("Parse weight - incomplete weight", c)
				continue
			}
			vertex, ok := pairIndex(c)
			if !ok {
				p.warn("Parse weight - invalid vertex index", c)
				continue
			}
			g.add(vertex, pair[1], c, p)

		case c.Type == jsondom.Null:
			return fmt.Errorf("weight group %q: %w", g.Key, ErrNullValue)

		default:
			p.warn("Parse weight - unknown type", c)
		}
	}
	return nil
}

// pairIndex reads the vertex index of a [index, weight] pair from its
// first numeric leaf without a float32 round trip. A float index must be
// a whole number.
func pairIndex(n *jsondom.Node) (int, bool) {
	leaf := firstNumber(n)
	if leaf == nil {
		return 0, false
	}
	if leaf.Type == jsondom.Int {
		return int(leaf.Int), leaf.Int >= 0 && leaf.Int <= maxVertexIndex
	}
	f := leaf.Float
	if f < 0 || f > maxVertexIndex || f != float64(int64(f)) {
		return 0, false
	}
	return int(f), true
}

const maxVertexIndex = 1<<31 - 1

// firstNumber returns the first numeric leaf of n, depth first.
func firstNumber(n *jsondom.Node) *jsondom.Node {
	if n == nil {
		return nil
	}
	if n.IsNumber() {
		return n
	}
	for _, c := range n.Children {
		if leaf := firstNumber(c); leaf != nil {
			return leaf
		}
	}
	return nil
}

// add records a weight. A repeated vertex index keeps the last value.
func (g *MHX2WeightGroup) add(index int, value float32, n *jsondom.Node, p *mhx2Parser) {
	if _, dup := g.Table[index]; dup {
		p.warn("Parse weight - duplicate vertex index", n)
		for i := range g.Weights {
			if g.Weights[i].Index == index {
				g.Weights[i].Value = value
			}
		}
		g.Table[index] = value
		return
	}
	g.Table[index] = value
	g.Weights = append(g.Weights, MHX2Weight{Index: index, Value: value})
}
