package model

import (
	"errors"
	"fmt"

	"github.com/Faultbox/mhx2/pkg/formats"
	"github.com/Faultbox/mhx2/pkg/math"
)

// Geometry build errors.
var (
	ErrFaceMismatch    = errors.New("faces and uv faces are not aligned")
	ErrIndexOutOfRange = errors.New("face index out of range")
)

// Mesh is one built geometry.
type Mesh struct {
	Name          string
	MaterialName  string
	VertexBuffers []*VertexBuffer // The builder produces exactly one
	BindPose      [][]float32     // Pristine copy of each buffer's Data
}

// Influence maps a source vertex to every buffer offset it was emitted at.
type Influence struct {
	Vertex  int   // Vertex index in the MHX2 mesh
	Offsets []int // Float offsets of the vertex starts in VertexBuffer.Data
}

// SkinWeights binds one bone to the vertices it moves.
type SkinWeights struct {
	Bone        int       // Bone handle
	InverseBind math.Mat4 // Inverse of the bone's bind world matrix
	Influences  []Influence
	Weights     []float32 // Parallel to Influences

	index map[int]int // Vertex -> position in Influences, during build
}

// Deformer holds the skinning data of one mesh.
type Deformer struct {
	Skins []*SkinWeights
}

func (s *SkinWeights) addInfluence(vertex int, weight float32, offset int) {
	if i, ok := s.index[vertex]; ok {
		s.Influences[i].Offsets = append(s.Influences[i].Offsets, offset)
		return
	}
	s.index[vertex] = len(s.Influences)
	s.Influences = append(s.Influences, Influence{Vertex: vertex, Offsets: []int{offset}})
	s.Weights = append(s.Weights, weight)
}

// BuildGeometry flattens one geometry into an interleaved triangle buffer
// and appends the resulting mesh, and its deformer unless opts.PoseOnly is
// set, to m. Faces are fan triangulated from their first vertex.
func BuildGeometry(doc *formats.MHX2, geom *formats.MHX2Geometry, m *Model, opts *BuildOptions, warnings *formats.Warnings) error {
	if opts == nil {
		defaults := DefaultBuildOptions()
		opts = &defaults
	}
	if warnings == nil {
		warnings = &formats.Warnings{}
	}

	src := &geom.Mesh
	if err := validateMesh(src); err != nil {
		return fmt.Errorf("geometry %q: %w", geom.Name, err)
	}

	vb := NewVertexBuffer(opts.VertexFormat, opts.Culling, opts.Material)
	vb.Name = geom.Name

	if geom.Material != "" {
		if mat := doc.GetMaterialByName(geom.Material); mat != nil {
			vb.Material.Texture = m.loadTexture(mat, opts.LoadTexture)
			vb.Material.Transparent = mat.Transparent
		} else {
			warnings.AddKey("Build geometry - material not found for "+geom.Name, geom.Material)
		}
	}

	// Skins and the weight groups they were built from, in parallel.
	var (
		deformer *Deformer
		groups   []*formats.MHX2WeightGroup
	)
	if !opts.PoseOnly {
		deformer = &Deformer{}
		for i := range src.WeightGroups {
			g := &src.WeightGroups[i]
			h := m.Skeleton.FindBone(g.Key)
			if h < 0 {
				warnings.AddKey("Build geometry - bone not found for weight group", g.Key)
				continue
			}
			deformer.Skins = append(deformer.Skins, &SkinWeights{
				Bone:        h,
				InverseBind: m.Skeleton.BoneMatrix(h, math.Identity()).Inverse(),
				index:       make(map[int]int),
			})
			groups = append(groups, g)
		}
	}

	hasUV := len(src.UVFaces) > 0
	for fi, face := range src.Faces {
		var uvFace []int
		if hasUV {
			uvFace = src.UVFaces[fi]
		}

		for j := 0; j+2 < len(face); j++ {
			for k := 0; k < 3; k++ {
				corner := 0
				if k > 0 {
					corner = j + k
				}

				vi := face[corner]
				pos := src.Vertices[vi]

				var uv *math.Vec2
				if hasUV {
					t := src.UVCoords[uvFace[corner]]
					uv = &t
				}

				offset := vb.Add(&pos, nil, uv, 0, opts.VertexColor)

				for s, skin := range deformerSkins(deformer) {
					if w, ok := groups[s].Lookup(vi); ok {
						skin.addInfluence(vi, w, offset)
					}
				}
			}
		}
	}

	for _, skin := range deformerSkins(deformer) {
		skin.index = nil
	}

	mesh := &Mesh{
		Name:          geom.Name,
		MaterialName:  geom.Material,
		VertexBuffers: []*VertexBuffer{vb},
		BindPose:      [][]float32{append([]float32(nil), vb.Data...)},
	}
	m.Meshes = append(m.Meshes, mesh)
	if deformer != nil {
		m.Deformers = append(m.Deformers, deformer)
	}
	return nil
}

func deformerSkins(d *Deformer) []*SkinWeights {
	if d == nil {
		return nil
	}
	return d.Skins
}

// validateMesh checks that faces and uv faces line up and that every index
// is in range.
func validateMesh(src *formats.MHX2Mesh) error {
	hasUV := len(src.UVFaces) > 0
	if hasUV && len(src.UVFaces) != len(src.Faces) {
		return fmt.Errorf("%w: %d faces, %d uv faces", ErrFaceMismatch, len(src.Faces), len(src.UVFaces))
	}

	for fi, face := range src.Faces {
		for _, vi := range face {
			if vi < 0 || vi >= len(src.Vertices) {
				return fmt.Errorf("%w: face %d vertex %d (have %d)", ErrIndexOutOfRange, fi, vi, len(src.Vertices))
			}
		}
		if !hasUV {
			continue
		}
		uvFace := src.UVFaces[fi]
		if len(uvFace) != len(face) {
			return fmt.Errorf("%w: face %d has %d vertices, uv face has %d", ErrFaceMismatch, fi, len(face), len(uvFace))
		}
		for _, ti := range uvFace {
			if ti < 0 || ti >= len(src.UVCoords) {
				return fmt.Errorf("%w: uv face %d coordinate %d (have %d)", ErrIndexOutOfRange, fi, ti, len(src.UVCoords))
			}
		}
	}
	return nil
}
