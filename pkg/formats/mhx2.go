// Package formats provides readers for character model file formats.
// MHX2 (MakeHuman eXchange 2) is a JSON scene description of a rigged mesh.
package formats

import (
	"errors"
	"fmt"
	"os"

	"github.com/Faultbox/mhx2/pkg/encoding"
	"github.com/Faultbox/mhx2/pkg/jsondom"
	"github.com/Faultbox/mhx2/pkg/math"
)

// MHX2 format errors.
var (
	ErrMissingNode      = errors.New("JSON data source is missing")
	ErrNullValue        = errors.New("unexpected null value")
	ErrIndexOutOfBounds = errors.New("index is out of bounds")
	ErrNotObject        = errors.New("MHX2 root is not a JSON object")
)

// MHX2Bone is a bone record before parent resolution.
type MHX2Bone struct {
	Name   string    // Unique within the skeleton
	Parent string    // Parent bone name (empty for the root)
	Head   math.Vec3 // Head position
	Tail   math.Vec3 // Tail position
	Roll   float32   // Roll angle
	Matrix math.Mat4 // Bind matrix
}

// MHX2Skeleton is the armature section.
type MHX2Skeleton struct {
	Name   string
	Offset math.Vec3
	Scale  float32
	Bones  []MHX2Bone // In file order
}

// MHX2License is informational authorship metadata.
type MHX2License struct {
	Author   string
	License  string
	Homepage string
}

// MHX2Material is a material record. Geometries reference it by name.
type MHX2Material struct {
	Name             string
	DiffuseTexture   string
	NormalMapTexture string

	AmbientColor  math.Color
	DiffuseColor  math.Color
	SpecularColor math.Color
	EmissiveColor math.Color

	DiffuseMapIntensity      float32
	SpecularMapIntensity     float32
	TransparencyMapIntensity float32
	Shininess                float32
	Opacity                  float32
	Translucency             float32
	SSSRScale                float32
	SSSGScale                float32
	SSSBScale                float32

	Shadeless       bool
	Wireframe       bool
	Transparent     bool
	AlphaToCoverage bool
	BackfaceCull    bool
	Depthless       bool
	CastShadows     bool
	ReceiveShadows  bool
	SSSEnabled      bool
}

// NewMHX2Material returns a material with MakeHuman's defaults.
func NewMHX2Material() MHX2Material {
	return MHX2Material{
		AmbientColor:             math.White,
		DiffuseColor:             math.White,
		SpecularColor:            math.White,
		EmissiveColor:            math.White,
		DiffuseMapIntensity:      1,
		SpecularMapIntensity:     1,
		TransparencyMapIntensity: 1,
		Opacity:                  1,
		SSSRScale:                1,
		SSSGScale:                1,
		SSSBScale:                1,
	}
}

// MHX2Weight is one vertex influence of a weight group.
type MHX2Weight struct {
	Index int     // Vertex index
	Value float32 // Weight
}

// MHX2WeightGroup maps vertex indices to weights for the bone named Key.
type MHX2WeightGroup struct {
	Key     string          // Bone name
	Weights []MHX2Weight    // In file order, one entry per vertex index
	Table   map[int]float32 // Vertex index -> weight
}

// Lookup returns the weight of a vertex and whether the vertex belongs to
// the group at all.
func (g *MHX2WeightGroup) Lookup(index int) (float32, bool) {
	w, ok := g.Table[index]
	return w, ok
}

// MHX2Mesh holds the polygon data of a geometry.
type MHX2Mesh struct {
	Vertices     []math.Vec3
	Faces        [][]int // Vertex indices per polygon
	UVCoords     []math.Vec2
	UVFaces      [][]int // UV indices per polygon, parallel to Faces
	WeightGroups []MHX2WeightGroup
}

// MHX2Proxy is proxy fitting metadata. It is kept but not used for building.
type MHX2Proxy struct {
	Name              string
	Type              string
	UUID              string
	Basemesh          string
	License           MHX2License
	Tags              []string
	Fitting           [][]math.Vec3
	DeleteVerts       []bool
	VertexBoneWeights bool // Present and non-null
}

// MHX2Geometry is one mesh object of the scene.
type MHX2Geometry struct {
	Name          string
	UUID          string
	Material      string // Material name reference
	License       MHX2License
	Offset        math.Vec3
	Scale         float32
	IsHuman       bool
	IsSubdivided  bool
	Mesh          MHX2Mesh
	SeedMesh      MHX2Mesh
	ProxySeedMesh MHX2Mesh
	Proxy         *MHX2Proxy // nil if absent
}

// NewMHX2Geometry returns a geometry with MakeHuman's defaults.
func NewMHX2Geometry() MHX2Geometry {
	return MHX2Geometry{Scale: 1, IsHuman: true}
}

// MHX2 is a parsed MHX2 document.
type MHX2 struct {
	Version    string
	Skeleton   MHX2Skeleton
	Materials  []MHX2Material
	Geometries []MHX2Geometry
}

// ParseMHX2 parses an MHX2 document.
// Warnings are returned on success and on failure; a failure never returns
// a partial document.
func ParseMHX2(data []byte) (*MHX2, Warnings, error) {
	var warnings Warnings

	data, err := encoding.ToUTF8(data)
	if err != nil {
		return nil, warnings, fmt.Errorf("decoding MHX2 text: %w", err)
	}

	root, err := jsondom.Parse(data)
	if err != nil {
		return nil, warnings, fmt.Errorf("parsing MHX2 JSON: %w", err)
	}

	doc, err := ParseMHX2Node(root, &warnings)
	if err != nil {
		return nil, warnings, err
	}
	return doc, warnings, nil
}

// ParseMHX2Node builds a document from an already parsed JSON tree,
// appending diagnostics to warnings.
func ParseMHX2Node(root *jsondom.Node, warnings *Warnings) (*MHX2, error) {
	if root == nil {
		return nil, fmt.Errorf("parsing model: %w", ErrMissingNode)
	}
	if root.Type != jsondom.Object {
		return nil, ErrNotObject
	}

	p := &mhx2Parser{warnings: warnings}
	doc := &MHX2{Skeleton: MHX2Skeleton{Scale: 1}}
	if err := parseRecord(modelSchema, doc, root, p); err != nil {
		return nil, err
	}
	return doc, nil
}

// ParseMHX2File reads and parses an MHX2 file.
func ParseMHX2File(path string) (*MHX2, Warnings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("reading MHX2 file: %w", err)
	}
	return ParseMHX2(data)
}

// GetMaterialByName returns the first material named name, or nil.
func (m *MHX2) GetMaterialByName(name string) *MHX2Material {
	for i := range m.Materials {
		if m.Materials[i].Name == name {
			return &m.Materials[i]
		}
	}
	return nil
}

// GetBoneByName returns the first bone record named name, or nil.
func (s *MHX2Skeleton) GetBoneByName(name string) *MHX2Bone {
	for i := range s.Bones {
		if s.Bones[i].Name == name {
			return &s.Bones[i]
		}
	}
	return nil
}

// TriangleCount returns the number of triangles the mesh fans out to.
func (m *MHX2Mesh) TriangleCount() int {
	n := 0
	for _, f := range m.Faces {
		if len(f) >= 3 {
			n += len(f) - 2
		}
	}
	return n
}
