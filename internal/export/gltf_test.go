package export

import (
	"image"
	"path/filepath"
	"strings"
	"testing"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/mhx2/internal/engine/model"
)

const riggedQuad = `{
  "mhx2_version": "1",
  "skeleton": {"name": "rig", "bones": [
    {"name": "Root", "matrix": [[1,0,0,0],[0,1,0,1],[0,0,1,0],[0,0,0,1]]},
    {"name": "Arm", "parent": "Root", "matrix": [[1,0,0,2],[0,1,0,0],[0,0,1,0],[0,0,0,1]]}
  ]},
  "materials": [{"name": "skin", "diffuse_color": [1,1,1]}],
  "geometries": [{"name": "body", "material": "skin", "mesh": {
    "vertices": [[0,0,0],[1,0,0],[1,1,0],[0,1,0]],
    "faces": [[0,1,2,3]],
    "uv_coordinates": [[0,0],[1,0],[1,1],[0,1]],
    "uv_faces": [[0,1,2,3]],
    "weights": {"Root": [[0, 0.25], [1, 1]], "Arm": [[0, 0.75]]}
  }}]
}`

func loadModel(t *testing.T, poseOnly bool) *model.Model {
	t.Helper()
	opts := model.DefaultBuildOptions()
	opts.PoseOnly = poseOnly
	m, warnings, err := model.Load([]byte(riggedQuad), &opts)
	require.NoError(t, err)
	require.Empty(t, warnings.Strings())
	return m
}

func TestToGLTF_Skinned(t *testing.T) {
	m := loadModel(t, false)

	doc, err := ToGLTF(m, Options{})
	require.NoError(t, err)

	// Two bones then one mesh node.
	require.Len(t, doc.Nodes, 3)
	assert.Equal(t, "Root", doc.Nodes[0].Name)
	assert.Equal(t, []uint32{1}, doc.Nodes[0].Children)
	assert.Equal(t, float32(1), doc.Nodes[0].Matrix[13])
	assert.Equal(t, float32(2), doc.Nodes[1].Matrix[12])
	assert.Equal(t, []uint32{0, 2}, doc.Scenes[0].Nodes)

	require.Len(t, doc.Skins, 1)
	skin := doc.Skins[0]
	assert.Equal(t, []uint32{0, 1}, skin.Joints)
	require.NotNil(t, skin.InverseBindMatrices)
	ibm := doc.Accessors[*skin.InverseBindMatrices]
	assert.Equal(t, gltf.AccessorMat4, ibm.Type)
	assert.Equal(t, uint32(2), ibm.Count)
	require.NotNil(t, ibm.BufferView)
	ibmView := doc.BufferViews[*ibm.BufferView]
	assert.Equal(t, gltf.Target(gltf.TargetNone), ibmView.Target)
	assert.Zero(t, ibmView.ByteStride)
	assert.Equal(t, uint32(2*16*4), ibmView.ByteLength)
	rawIBM, err := modeler.ReadAccessor(doc, ibm, nil)
	require.NoError(t, err)
	require.Len(t, rawIBM, 2)
	// Root sits at (0, 1, 0): its inverse bind translates by -1 on Y.
	assert.InDelta(t, -1, rawIBM.([][4][4]float32)[0][3][1], 1e-6)

	require.Len(t, doc.Meshes, 1)
	prim := doc.Meshes[0].Primitives[0]
	for _, attr := range []string{gltf.POSITION, gltf.TEXCOORD_0, gltf.COLOR_0, gltf.JOINTS_0, gltf.WEIGHTS_0} {
		assert.Contains(t, prim.Attributes, attr)
	}
	assert.NotContains(t, prim.Attributes, gltf.NORMAL)
	require.NotNil(t, doc.Nodes[2].Skin)

	positions, err := modeler.ReadPosition(doc, doc.Accessors[prim.Attributes[gltf.POSITION]], nil)
	require.NoError(t, err)
	require.Len(t, positions, 6)
	assert.Equal(t, [3]float32{1, 1, 0}, positions[2])

	rawJoints, err := modeler.ReadAccessor(doc, doc.Accessors[prim.Attributes[gltf.JOINTS_0]], nil)
	require.NoError(t, err)
	rawWeights, err := modeler.ReadAccessor(doc, doc.Accessors[prim.Attributes[gltf.WEIGHTS_0]], nil)
	require.NoError(t, err)
	joints := rawJoints.([][4]uint16)
	weights := rawWeights.([][4]float32)

	// Vertex 0: Arm strongest.
	assert.Equal(t, [4]uint16{1, 0, 0, 0}, joints[0])
	assert.InDelta(t, 0.75, weights[0][0], 1e-6)
	assert.InDelta(t, 0.25, weights[0][1], 1e-6)
	// Vertex 2 has no weights and falls back to the root.
	assert.Equal(t, [4]float32{1, 0, 0, 0}, weights[2])

	require.Len(t, doc.Materials, 1)
	mat := doc.Materials[0]
	assert.Equal(t, "skin", mat.Name)
	assert.Equal(t, &[4]float32{1, 1, 1, 1}, mat.PBRMetallicRoughness.BaseColorFactor)
	assert.False(t, mat.DoubleSided)
}

func TestToGLTF_Static(t *testing.T) {
	m := loadModel(t, true)

	doc, err := ToGLTF(m, Options{Scale: 10})
	require.NoError(t, err)

	assert.Empty(t, doc.Skins)
	prim := doc.Meshes[0].Primitives[0]
	assert.NotContains(t, prim.Attributes, gltf.JOINTS_0)
	assert.Nil(t, doc.Nodes[len(doc.Nodes)-1].Skin)

	positions, err := modeler.ReadPosition(doc, doc.Accessors[prim.Attributes[gltf.POSITION]], nil)
	require.NoError(t, err)
	assert.Equal(t, [3]float32{10, 10, 0}, positions[2])
	// Bone translations scale with the mesh.
	assert.Equal(t, float32(20), doc.Nodes[1].Matrix[12])
}

func TestToGLTF_EmbedsImageTextures(t *testing.T) {
	opts := model.DefaultBuildOptions()
	loads := 0
	opts.LoadTexture = func(name string, wantsAlpha bool) model.Texture {
		loads++
		return &imageTexture{NRGBA: image.NewNRGBA(image.Rect(0, 0, 2, 2))}
	}
	m, _, err := model.Load([]byte(riggedQuad), &opts)
	require.NoError(t, err)
	require.Equal(t, 1, loads)

	doc, err := ToGLTF(m, Options{})
	require.NoError(t, err)
	require.Len(t, doc.Images, 1)
	require.Len(t, doc.Textures, 1)
	require.Len(t, doc.Samplers, 1)
	require.NotNil(t, doc.Materials[0].PBRMetallicRoughness.BaseColorTexture)
	assert.Equal(t, uint32(0), doc.Materials[0].PBRMetallicRoughness.BaseColorTexture.Index)
}

func TestToGLTF_MaterialRecord(t *testing.T) {
	src := strings.Replace(riggedQuad, `"diffuse_color": [1,1,1]`, `"opacity": 0.5, "shininess": 0.25`, 1)
	m, _, err := model.Load([]byte(src), nil)
	require.NoError(t, err)

	doc, err := ToGLTF(m, Options{})
	require.NoError(t, err)

	pbr := doc.Materials[0].PBRMetallicRoughness
	assert.InDelta(t, 0.5, pbr.BaseColorFactor[3], 1e-6)
	require.NotNil(t, pbr.RoughnessFactor)
	assert.InDelta(t, 0.75, *pbr.RoughnessFactor, 1e-6)
	require.NotNil(t, pbr.MetallicFactor)
	assert.Zero(t, *pbr.MetallicFactor)
	assert.Equal(t, gltf.AlphaBlend, doc.Materials[0].AlphaMode)
}

func TestToGLTF_Empty(t *testing.T) {
	_, err := ToGLTF(&model.Model{}, Options{})
	assert.ErrorIs(t, err, ErrNoMeshes)
	_, err = ToGLTF(nil, Options{})
	assert.ErrorIs(t, err, ErrNoMeshes)
}

func TestSave(t *testing.T) {
	m := loadModel(t, false)
	dir := t.TempDir()

	for _, name := range []string{"model.gltf", "model.glb"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			require.NoError(t, Save(m, path, Options{}))

			doc, err := gltf.Open(path)
			require.NoError(t, err)
			assert.Len(t, doc.Meshes, 1)
			assert.Len(t, doc.Skins, 1)
			require.NotEmpty(t, doc.Buffers)
			assert.Len(t, doc.Buffers[0].Data, int(doc.Buffers[0].ByteLength))
		})
	}

	assert.FileExists(t, filepath.Join(dir, "model.bin"))
}

type imageTexture struct {
	*image.NRGBA
}

func (i *imageTexture) Size() (int, int) {
	return i.Bounds().Dx(), i.Bounds().Dy()
}
