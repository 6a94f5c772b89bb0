// Package export writes built MHX2 models as glTF 2.0 documents.
package export

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"
	"path/filepath"
	"sort"
	"strings"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/Faultbox/mhx2/internal/engine/model"
	"github.com/Faultbox/mhx2/pkg/math"
)

// MaxInfluences is the number of joints a glTF vertex can reference.
const MaxInfluences = 4

// ErrNoMeshes is returned when a model has nothing to export.
var ErrNoMeshes = errors.New("model has no meshes")

// Options configures the export.
type Options struct {
	Scale  float32 // Uniform scale applied to positions and bones, 0 means 1
	Binary bool    // Save as GLB
}

type exporter struct {
	doc   *gltf.Document
	m     *model.Model
	scale float32

	skin     *uint32           // Skin index when the model is skinned
	textures map[model.Texture]uint32
}

// ToGLTF converts a built model. Bones become a node hierarchy carrying
// their local bind matrices. Every mesh becomes one triangle primitive
// with its own material; meshes of a skinned model reference a single
// skin holding every bone.
func ToGLTF(m *model.Model, opts Options) (*gltf.Document, error) {
	if m == nil || len(m.Meshes) == 0 {
		return nil, ErrNoMeshes
	}

	e := &exporter{
		doc:      gltf.NewDocument(),
		m:        m,
		scale:    opts.Scale,
		textures: make(map[model.Texture]uint32),
	}
	if e.scale == 0 {
		e.scale = 1
	}
	e.doc.Asset.Generator = "mhx2"

	e.addBones()
	if len(m.Deformers) == len(m.Meshes) && m.Skeleton.Len() > 0 {
		e.addSkin()
	}

	for i, mesh := range m.Meshes {
		if err := e.addMesh(i, mesh); err != nil {
			return nil, fmt.Errorf("mesh %d (%s): %w", i, mesh.Name, err)
		}
	}
	return e.doc, nil
}

// Save exports m to path. GLB is written when opts.Binary is set or the
// path ends in .glb. Otherwise the geometry goes to a .bin file beside
// path with the same base name.
func Save(m *model.Model, path string, opts Options) error {
	doc, err := ToGLTF(m, opts)
	if err != nil {
		return err
	}
	ext := filepath.Ext(path)
	if opts.Binary || strings.EqualFold(ext, ".glb") {
		return gltf.SaveBinary(doc, path)
	}
	for _, b := range doc.Buffers {
		if b.URI == "" && len(b.Data) > 0 {
			b.URI = strings.TrimSuffix(filepath.Base(path), ext) + ".bin"
		}
	}
	return gltf.Save(doc, path)
}

// conjugate applies the uniform scale to a rigid transform: S * m * S^-1.
func (e *exporter) conjugate(m math.Mat4) math.Mat4 {
	if e.scale == 1 {
		return m
	}
	s := e.scale
	return math.Scale(s, s, s).Mul(m).Mul(math.Scale(1/s, 1/s, 1/s))
}

// addBones appends one node per bone. Node index equals bone handle.
func (e *exporter) addBones() {
	s := e.m.Skeleton
	for h := 0; h < s.Len(); h++ {
		b := s.Bone(h)
		node := &gltf.Node{Name: b.Name, Matrix: [16]float32(e.conjugate(b.Matrix))}
		for _, c := range b.Children {
			node.Children = append(node.Children, uint32(c))
		}
		e.doc.Nodes = append(e.doc.Nodes, node)
	}
	if s.Len() > 0 {
		e.doc.Scenes[0].Nodes = append(e.doc.Scenes[0].Nodes, uint32(s.Root))
	}
}

func (e *exporter) addSkin() {
	s := e.m.Skeleton
	joints := make([]uint32, s.Len())
	inverse := make([][4][4]float32, s.Len())
	for h := 0; h < s.Len(); h++ {
		joints[h] = uint32(h)
		ibm := e.conjugate(s.BoneMatrix(h, math.Identity()).Inverse())
		for c := 0; c < 4; c++ {
			inverse[h][c] = [4]float32{ibm[c*4], ibm[c*4+1], ibm[c*4+2], ibm[c*4+3]}
		}
	}

	// Inverse bind matrices are not vertex data: no buffer view target.
	acc := modeler.WriteAccessor(e.doc, gltf.TargetNone, inverse)

	e.doc.Skins = append(e.doc.Skins, &gltf.Skin{
		Name:                s.Name,
		Skeleton:            gltf.Index(uint32(s.Root)),
		Joints:              joints,
		InverseBindMatrices: gltf.Index(acc),
	})
	e.skin = gltf.Index(uint32(len(e.doc.Skins) - 1))
}

func (e *exporter) addMesh(i int, mesh *model.Mesh) error {
	if len(mesh.VertexBuffers) != 1 {
		return model.ErrVertexBufferCount
	}
	vb := mesh.VertexBuffers[0]
	n := vb.VertexCount()

	positions := make([][3]float32, n)
	indices := make([]uint32, n)
	for v := 0; v < n; v++ {
		positions[v] = vb.Position(v).Scale(e.scale).Array()
		indices[v] = uint32(v)
	}

	attrs := map[string]uint32{
		gltf.POSITION: modeler.WritePosition(e.doc, positions),
	}
	if vb.Format.Has(model.FormatTexCoords) {
		uvs := make([][2]float32, n)
		for v := range uvs {
			uvs[v] = vb.TexCoord(v).Array()
		}
		attrs[gltf.TEXCOORD_0] = modeler.WriteTextureCoord(e.doc, uvs)
	}
	if vb.Format.Has(model.FormatNormals) {
		off := vb.NormalOffset()
		normals := make([][3]float32, n)
		for v := range normals {
			d := vb.Data[v*vb.Stride+off:]
			normals[v] = math.Vec3{X: d[0], Y: d[1], Z: d[2]}.Normalize().Array()
		}
		attrs[gltf.NORMAL] = modeler.WriteNormal(e.doc, normals)
	}
	if vb.Format.Has(model.FormatColors) {
		colors := make([][4]uint8, n)
		for v := range colors {
			r, g, b, a := vb.Color(v).RGBA8()
			colors[v] = [4]uint8{r, g, b, a}
		}
		attrs[gltf.COLOR_0] = modeler.WriteColor(e.doc, colors)
	}
	if e.skin != nil {
		joints, weights := e.influences(vb, e.m.Deformers[i])
		attrs[gltf.JOINTS_0] = modeler.WriteJoints(e.doc, joints)
		attrs[gltf.WEIGHTS_0] = modeler.WriteWeights(e.doc, weights)
	}

	mat, err := e.addMaterial(mesh, vb)
	if err != nil {
		return err
	}

	e.doc.Meshes = append(e.doc.Meshes, &gltf.Mesh{
		Name: mesh.Name,
		Primitives: []*gltf.Primitive{{
			Indices:    gltf.Index(modeler.WriteIndices(e.doc, indices)),
			Attributes: attrs,
			Material:   gltf.Index(mat),
		}},
	})

	e.doc.Nodes = append(e.doc.Nodes, &gltf.Node{
		Name: mesh.Name,
		Mesh: gltf.Index(uint32(len(e.doc.Meshes) - 1)),
		Skin: e.skin,
	})
	e.doc.Scenes[0].Nodes = append(e.doc.Scenes[0].Nodes, uint32(len(e.doc.Nodes)-1))
	return nil
}

type influence struct {
	joint  uint16
	weight float32
}

// influences gathers the skin weights of every emitted vertex, keeps the
// strongest MaxInfluences and normalizes them. Vertices without weights
// are bound fully to the root bone.
func (e *exporter) influences(vb *model.VertexBuffer, d *model.Deformer) ([][4]uint16, [][4]float32) {
	n := vb.VertexCount()
	per := make([][]influence, n)
	for _, skin := range d.Skins {
		for k, inf := range skin.Influences {
			for _, off := range inf.Offsets {
				v := off / vb.Stride
				per[v] = append(per[v], influence{uint16(skin.Bone), skin.Weights[k]})
			}
		}
	}

	joints := make([][4]uint16, n)
	weights := make([][4]float32, n)
	for v, list := range per {
		sort.SliceStable(list, func(a, b int) bool { return list[a].weight > list[b].weight })
		if len(list) > MaxInfluences {
			list = list[:MaxInfluences]
		}

		var total float32
		for _, in := range list {
			total += in.weight
		}
		if total <= 0 {
			joints[v][0] = uint16(e.m.Skeleton.Root)
			weights[v][0] = 1
			continue
		}
		for k, in := range list {
			joints[v][k] = in.joint
			weights[v][k] = in.weight / total
		}
	}
	return joints, weights
}

func (e *exporter) addMaterial(mesh *model.Mesh, vb *model.VertexBuffer) (uint32, error) {
	name := mesh.MaterialName
	if name == "" {
		name = mesh.Name
	}

	mat := vb.Material
	out := &gltf.Material{
		Name: name,
		PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
			BaseColorFactor: &[4]float32{mat.Color.R, mat.Color.G, mat.Color.B, mat.Color.A},
		},
		DoubleSided: vb.Culling.Type == model.CullNone,
	}
	if rec := e.m.Material(mesh.MaterialName); rec != nil {
		out.PBRMetallicRoughness.BaseColorFactor[3] *= rec.Opacity
		out.PBRMetallicRoughness.MetallicFactor = gltf.Float(0)
		out.PBRMetallicRoughness.RoughnessFactor = gltf.Float(roughness(rec.Shininess))
		if rec.Opacity < 1 {
			mat.Transparent = true
		}
	}
	if mat.Transparent {
		out.AlphaMode = gltf.AlphaBlend
	}

	if img, ok := mat.Texture.(image.Image); ok {
		tex, err := e.addTexture(name, mat.Texture, img)
		if err != nil {
			return 0, err
		}
		out.PBRMetallicRoughness.BaseColorTexture = &gltf.TextureInfo{Index: tex}
	}

	e.doc.Materials = append(e.doc.Materials, out)
	return uint32(len(e.doc.Materials) - 1), nil
}

// roughness maps MakeHuman shininess in [0,1] to PBR roughness.
func roughness(shininess float32) float32 {
	return 1 - min(max(shininess, 0), 1)
}

// addTexture embeds img as PNG once per distinct texture.
func (e *exporter) addTexture(name string, key model.Texture, img image.Image) (uint32, error) {
	if idx, ok := e.textures[key]; ok {
		return idx, nil
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return 0, fmt.Errorf("encoding texture %s: %w", name, err)
	}
	src, err := modeler.WriteImage(e.doc, name+".png", "image/png", &buf)
	if err != nil {
		return 0, fmt.Errorf("embedding texture %s: %w", name, err)
	}

	if len(e.doc.Samplers) == 0 {
		e.doc.Samplers = []*gltf.Sampler{{}}
	}
	e.doc.Textures = append(e.doc.Textures, &gltf.Texture{Sampler: gltf.Index(0), Source: gltf.Index(src)})
	idx := uint32(len(e.doc.Textures) - 1)
	e.textures[key] = idx
	return idx, nil
}
