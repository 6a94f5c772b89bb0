package model

import "github.com/Faultbox/mhx2/pkg/math"

// VertexBuffer is a flat array of interleaved vertex attributes.
type VertexBuffer struct {
	Name     string
	Format   VertexFormat
	Stride   int // Floats per vertex, fixed at creation
	Type     PrimitiveType
	Culling  Culling
	Material Material
	Data     []float32
}

// NewVertexBuffer creates an empty triangle buffer.
func NewVertexBuffer(format VertexFormat, culling Culling, material Material) *VertexBuffer {
	return &VertexBuffer{
		Format:   format,
		Stride:   format.Stride(),
		Type:     Triangles,
		Culling:  culling,
		Material: material,
	}
}

// NormalOffset returns the float offset of the normal inside a vertex, or
// -1 when the format has no normals.
func (vb *VertexBuffer) NormalOffset() int {
	if !vb.Format.Has(FormatNormals) {
		return -1
	}
	return 3
}

// TexCoordOffset returns the float offset of the texture coordinate inside
// a vertex, or -1.
func (vb *VertexBuffer) TexCoordOffset() int {
	if !vb.Format.Has(FormatTexCoords) {
		return -1
	}
	off := 3
	if vb.Format.Has(FormatNormals) {
		off += 3
	}
	return off
}

// ColorOffset returns the float offset of the color inside a vertex, or -1.
func (vb *VertexBuffer) ColorOffset() int {
	if !vb.Format.Has(FormatColors) {
		return -1
	}
	return vb.Stride - 4
}

// Add appends one vertex and returns its float offset in Data.
// Nil inputs for enabled attributes are written as zeros. The color comes
// from colorFn when set, otherwise from the buffer material.
func (vb *VertexBuffer) Add(position, normal *math.Vec3, uv *math.Vec2, groupIndex int, colorFn VertexColorFunc) int {
	offset := len(vb.Data)

	var p math.Vec3
	if position != nil {
		p = *position
	}
	vb.Data = append(vb.Data, p.X, p.Y, p.Z)

	var n math.Vec3
	if normal != nil {
		n = *normal
	}
	if vb.Format.Has(FormatNormals) {
		vb.Data = append(vb.Data, n.X, n.Y, n.Z)
	}

	if vb.Format.Has(FormatTexCoords) {
		var t math.Vec2
		if uv != nil {
			t = *uv
		}
		vb.Data = append(vb.Data, t.X, t.Y)
	}

	if vb.Format.Has(FormatColors) {
		c := vb.Material.Color
		if colorFn != nil {
			c = colorFn(vb, n, groupIndex)
		}
		vb.Data = append(vb.Data, c.R, c.G, c.B, c.A)
	}

	return offset
}

// VertexCount returns the number of vertices.
func (vb *VertexBuffer) VertexCount() int {
	if vb.Stride == 0 {
		return 0
	}
	return len(vb.Data) / vb.Stride
}

// Position returns the position of vertex i.
func (vb *VertexBuffer) Position(i int) math.Vec3 {
	off := i * vb.Stride
	return math.Vec3{X: vb.Data[off], Y: vb.Data[off+1], Z: vb.Data[off+2]}
}

// TexCoord returns the texture coordinate of vertex i, or zero.
func (vb *VertexBuffer) TexCoord(i int) math.Vec2 {
	off := vb.TexCoordOffset()
	if off < 0 {
		return math.Vec2{}
	}
	off += i * vb.Stride
	return math.Vec2{X: vb.Data[off], Y: vb.Data[off+1]}
}

// Color returns the color of vertex i, or the material color when the
// format has no color attribute.
func (vb *VertexBuffer) Color(i int) math.Color {
	off := vb.ColorOffset()
	if off < 0 {
		return vb.Material.Color
	}
	off += i * vb.Stride
	return math.Color{R: vb.Data[off], G: vb.Data[off+1], B: vb.Data[off+2], A: vb.Data[off+3]}
}

// Bounds returns the bounding box of every vertex position.
func (vb *VertexBuffer) Bounds() Bounds {
	b := emptyBounds()
	for i := 0; i < vb.VertexCount(); i++ {
		b.extend(vb.Position(i))
	}
	return b
}

// ComputeNormals fills the normal attribute with face normals and then
// averages them across vertices sharing a position. The builder leaves
// normals zeroed; renderers that light the mesh call this after building.
func (vb *VertexBuffer) ComputeNormals() {
	nOff := vb.NormalOffset()
	if nOff < 0 {
		return
	}

	count := vb.VertexCount()
	normals := make([]math.Vec3, count)
	for t := 0; t+2 < count; t += 3 {
		p0, p1, p2 := vb.Position(t), vb.Position(t+1), vb.Position(t+2)
		n := p1.Sub(p0).Cross(p2.Sub(p0)).Normalize()
		normals[t], normals[t+1], normals[t+2] = n, n, n
	}

	smoothNormals(vb, normals)

	for i, n := range normals {
		off := i*vb.Stride + nOff
		vb.Data[off], vb.Data[off+1], vb.Data[off+2] = n.X, n.Y, n.Z
	}
}

// smoothNormals averages normals at shared vertex positions.
func smoothNormals(vb *VertexBuffer, normals []math.Vec3) {
	const epsilon float32 = 0.0001

	// Group vertices by quantized position for O(n) lookup
	posMap := make(map[[3]int32][]int)
	for i := range normals {
		p := vb.Position(i)
		key := [3]int32{int32(p.X / epsilon), int32(p.Y / epsilon), int32(p.Z / epsilon)}
		posMap[key] = append(posMap[key], i)
	}

	for _, idxs := range posMap {
		if len(idxs) < 2 {
			continue
		}
		var sum math.Vec3
		for _, idx := range idxs {
			sum = sum.Add(normals[idx])
		}
		avg := sum.Normalize()
		for _, idx := range idxs {
			normals[idx] = avg
		}
	}
}
