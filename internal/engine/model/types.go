// Package model builds renderable skinned meshes from MHX2 documents.
package model

import (
	"fmt"
	"strings"

	"github.com/Faultbox/mhx2/pkg/math"
)

// VertexFormat selects the optional attributes interleaved after the
// position. Attribute order is position, normal, texcoord, color.
type VertexFormat uint8

const (
	FormatNormals   VertexFormat = 1 << iota // 3 floats
	FormatTexCoords                          // 2 floats
	FormatColors                             // 4 floats
)

// Has reports whether every attribute in flags is enabled.
func (f VertexFormat) Has(flags VertexFormat) bool {
	return f&flags == flags
}

// Stride returns the number of floats per vertex.
func (f VertexFormat) Stride() int {
	stride := 3
	if f.Has(FormatNormals) {
		stride += 3
	}
	if f.Has(FormatTexCoords) {
		stride += 2
	}
	if f.Has(FormatColors) {
		stride += 4
	}
	return stride
}

// String lists the enabled attributes, e.g. "position|texcoords|colors".
func (f VertexFormat) String() string {
	parts := []string{"position"}
	if f.Has(FormatNormals) {
		parts = append(parts, "normals")
	}
	if f.Has(FormatTexCoords) {
		parts = append(parts, "texcoords")
	}
	if f.Has(FormatColors) {
		parts = append(parts, "colors")
	}
	return strings.Join(parts, "|")
}

// PrimitiveType is the topology of a vertex buffer.
type PrimitiveType int

const (
	Triangles PrimitiveType = iota
)

// String returns the primitive name.
func (p PrimitiveType) String() string {
	if p == Triangles {
		return "Triangles"
	}
	return fmt.Sprintf("Unknown(%d)", int(p))
}

// CullingType selects which faces are discarded.
type CullingType int

const (
	CullNone CullingType = iota
	CullFront
	CullBack
	CullBoth
)

// CullingFace is the front face winding.
type CullingFace int

const (
	FaceCW CullingFace = iota
	FaceCCW
)

// Culling is the face culling mode of a vertex buffer.
type Culling struct {
	Type CullingType
	Face CullingFace
}

// Texture is a loaded image owned by the model. Textures that implement
// io.Closer are closed by Model.Release.
type Texture interface {
	Size() (width, height int)
}

// Material is the render state attached to a vertex buffer.
type Material struct {
	Color       math.Color // Used when the buffer has no per-vertex color callback
	Texture     Texture    // nil renders untextured
	Transparent bool
	Wireframe   bool
}

// TextureLoader loads the texture named by a material. It is called at most
// once per distinct material referenced by a geometry. Returning nil is not
// an error.
type TextureLoader func(name string, wantsAlpha bool) Texture

// VertexColorFunc returns the color of one emitted vertex. It is called
// once per vertex when the color attribute is enabled.
type VertexColorFunc func(vb *VertexBuffer, normal math.Vec3, groupIndex int) math.Color

// BuildOptions configures geometry building.
type BuildOptions struct {
	// VertexFormat is the attribute layout of every built buffer.
	VertexFormat VertexFormat
	// Culling is copied into every built buffer.
	Culling Culling
	// Material is the template for every built buffer's material.
	Material Material
	// PoseOnly skips building deformers, leaving the static bind pose.
	PoseOnly bool
	// LoadTexture resolves material textures. Optional.
	LoadTexture TextureLoader
	// VertexColor overrides the material color per vertex. Optional.
	VertexColor VertexColorFunc
}

// DefaultBuildOptions returns texcoords and colors, back-face culling with
// counter-clockwise front faces, an opaque white material and pose-only
// building.
func DefaultBuildOptions() BuildOptions {
	return BuildOptions{
		VertexFormat: FormatTexCoords | FormatColors,
		Culling:      Culling{Type: CullBack, Face: FaceCCW},
		Material:     Material{Color: math.White},
		PoseOnly:     true,
	}
}

// Bounds holds an axis-aligned bounding box.
type Bounds struct {
	Min math.Vec3
	Max math.Vec3
}

// emptyBounds returns inverted bounds that any point will expand.
func emptyBounds() Bounds {
	return Bounds{
		Min: math.Vec3{X: 1e30, Y: 1e30, Z: 1e30},
		Max: math.Vec3{X: -1e30, Y: -1e30, Z: -1e30},
	}
}

func (b *Bounds) extend(p math.Vec3) {
	b.Min = b.Min.Min(p)
	b.Max = b.Max.Max(p)
}

// Empty reports whether no point was added.
func (b Bounds) Empty() bool {
	return b.Min.X > b.Max.X
}

// Center returns the box center.
func (b Bounds) Center() math.Vec3 {
	return b.Min.Add(b.Max).Scale(0.5)
}

// Size returns the box extent.
func (b Bounds) Size() math.Vec3 {
	return b.Max.Sub(b.Min)
}
