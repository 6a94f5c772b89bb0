package model

import (
	"errors"
	"testing"

	"github.com/Faultbox/mhx2/pkg/formats"
	"github.com/Faultbox/mhx2/pkg/math"
)

func weightGroup(key string, weights map[int]float32) formats.MHX2WeightGroup {
	g := formats.MHX2WeightGroup{Key: key, Table: make(map[int]float32)}
	for i, w := range weights {
		g.Table[i] = w
		g.Weights = append(g.Weights, formats.MHX2Weight{Index: i, Value: w})
	}
	return g
}

// quadGeometry returns a unit quad in the XY plane with matching UVs.
func quadGeometry(name, material string) formats.MHX2Geometry {
	g := formats.NewMHX2Geometry()
	g.Name = name
	g.Material = material
	g.Mesh = formats.MHX2Mesh{
		Vertices: []math.Vec3{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1}},
		Faces:    [][]int{{0, 1, 2, 3}},
		UVCoords: []math.Vec2{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1}},
		UVFaces:  [][]int{{0, 1, 2, 3}},
	}
	return g
}

func newTestDoc(geoms ...formats.MHX2Geometry) *formats.MHX2 {
	return &formats.MHX2{
		Version: "1",
		Skeleton: formats.MHX2Skeleton{
			Scale: 1,
			Bones: []formats.MHX2Bone{bone("Root", "", math.Translate(0, 1, 0))},
		},
		Geometries: geoms,
	}
}

func TestBuildGeometry_QuadTriangulation(t *testing.T) {
	doc := newTestDoc(quadGeometry("quad", ""))
	opts := DefaultBuildOptions()

	m, err := Build(doc, &opts, nil)
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	if len(m.Meshes) != 1 {
		t.Fatalf("got %d meshes, want 1", len(m.Meshes))
	}

	vb := m.Meshes[0].VertexBuffers[0]
	if vb.Stride != 9 {
		t.Errorf("Stride = %d, want 9", vb.Stride)
	}
	if vb.VertexCount() != 6 {
		t.Fatalf("VertexCount() = %d, want 6", vb.VertexCount())
	}

	// Triangles (0,1,2) and (0,2,3).
	src := doc.Geometries[0].Mesh
	wantCorners := []int{0, 1, 2, 0, 2, 3}
	for i, corner := range wantCorners {
		if got := vb.Position(i); got != src.Vertices[corner] {
			t.Errorf("vertex %d position = %v, want corner %d %v", i, got, corner, src.Vertices[corner])
		}
		if got := vb.TexCoord(i); got != src.UVCoords[corner] {
			t.Errorf("vertex %d uv = %v, want %v", i, got, src.UVCoords[corner])
		}
		if got := vb.Color(i); got != math.White {
			t.Errorf("vertex %d color = %v, want white", i, got)
		}
	}

	if m.TriangleCount() != src.TriangleCount() {
		t.Errorf("TriangleCount() = %d, want %d", m.TriangleCount(), src.TriangleCount())
	}
	if len(m.Deformers) != 0 {
		t.Errorf("pose-only build produced %d deformers", len(m.Deformers))
	}
	if vb.Culling != (Culling{Type: CullBack, Face: FaceCCW}) || vb.Type != Triangles {
		t.Errorf("buffer state = %+v %v", vb.Culling, vb.Type)
	}
}

func TestBuildGeometry_PolygonFan(t *testing.T) {
	tests := []struct {
		name      string
		face      []int
		triangles int
	}{
		{"point", []int{0}, 0},
		{"line", []int{0, 1}, 0},
		{"triangle", []int{0, 1, 2}, 1},
		{"pentagon", []int{0, 1, 2, 3, 4}, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := formats.NewMHX2Geometry()
			g.Name = tt.name
			g.Mesh.Vertices = make([]math.Vec3, 5)
			g.Mesh.Faces = [][]int{tt.face}

			m := &Model{}
			opts := DefaultBuildOptions()
			if err := BuildGeometry(newTestDoc(), &g, m, &opts, nil); err != nil {
				t.Fatalf("BuildGeometry() error: %v", err)
			}
			if got := m.Meshes[0].VertexBuffers[0].VertexCount(); got != tt.triangles*3 {
				t.Errorf("VertexCount() = %d, want %d", got, tt.triangles*3)
			}
		})
	}
}

func TestBuildGeometry_Minimal(t *testing.T) {
	m, warnings, err := Load([]byte(minimalDoc), nil)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if len(warnings) != 0 {
		t.Errorf("unexpected warnings: %v", warnings.Strings())
	}
	if m.Skeleton.Len() != 1 || m.Skeleton.Bone(m.Skeleton.Root).Name != "Root" {
		t.Errorf("skeleton = %+v", m.Skeleton)
	}
	if len(m.Meshes) != 1 || m.Meshes[0].Name != "G" {
		t.Fatalf("meshes = %d", len(m.Meshes))
	}
	if got := m.Meshes[0].VertexBuffers[0].VertexCount(); got != 3 {
		t.Errorf("VertexCount() = %d, want 3", got)
	}
	if len(m.Deformers) != 0 {
		t.Errorf("got %d deformers, want 0", len(m.Deformers))
	}

	b := m.Bounds()
	if b.Min != (math.Vec3{}) || b.Max != (math.Vec3{X: 1, Y: 1}) {
		t.Errorf("Bounds() = %+v", b)
	}
}

func TestBuildGeometry_TextureLoaderCalledOncePerMaterial(t *testing.T) {
	doc := newTestDoc(
		quadGeometry("body", "skin"),
		quadGeometry("arms", "skin"),
		quadGeometry("eyes", "eyes"),
	)
	skin := formats.NewMHX2Material()
	skin.Name = "skin"
	skin.DiffuseTexture = "textures/skin.png"
	eyes := formats.NewMHX2Material()
	eyes.Name = "eyes"
	eyes.DiffuseTexture = "textures/eyes.png"
	eyes.Transparent = true
	doc.Materials = []formats.MHX2Material{skin, eyes}

	type call struct {
		name  string
		alpha bool
	}
	var calls []call
	opts := DefaultBuildOptions()
	opts.LoadTexture = func(name string, wantsAlpha bool) Texture {
		calls = append(calls, call{name, wantsAlpha})
		return fakeTexture{w: 4, h: 4}
	}

	m, err := Build(doc, &opts, nil)
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}

	want := []call{{"textures/skin.png", false}, {"textures/eyes.png", true}}
	if len(calls) != len(want) {
		t.Fatalf("loader calls = %v, want %v", calls, want)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Errorf("call %d = %v, want %v", i, calls[i], want[i])
		}
	}

	for _, mesh := range m.Meshes {
		mat := mesh.VertexBuffers[0].Material
		if mat.Texture == nil {
			t.Errorf("mesh %s has no texture", mesh.Name)
		}
		if mat.Transparent != (mesh.MaterialName == "eyes") {
			t.Errorf("mesh %s Transparent = %v", mesh.Name, mat.Transparent)
		}
	}
	if len(m.Textures()) != 2 {
		t.Errorf("Textures() = %d entries, want 2", len(m.Textures()))
	}
}

func TestBuildGeometry_MissingMaterialWarns(t *testing.T) {
	doc := newTestDoc(quadGeometry("body", "nope"))
	var warnings formats.Warnings
	opts := DefaultBuildOptions()
	opts.LoadTexture = func(string, bool) Texture {
		t.Error("loader should not be called for an unknown material")
		return nil
	}

	m, err := Build(doc, &opts, &warnings)
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	if len(m.Meshes) != 1 {
		t.Fatalf("got %d meshes, want 1", len(m.Meshes))
	}
	if !warnings.Mentions("nope") {
		t.Errorf("expected a warning naming the material, got %v", warnings.Strings())
	}
}

func TestBuildGeometry_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*formats.MHX2Mesh)
		want   error
	}{
		{"fewer uv faces", func(m *formats.MHX2Mesh) { m.Faces = append(m.Faces, []int{0, 1, 2}) }, ErrFaceMismatch},
		{"uv face length", func(m *formats.MHX2Mesh) { m.UVFaces[0] = []int{0, 1, 2} }, ErrFaceMismatch},
		{"vertex index too large", func(m *formats.MHX2Mesh) { m.Faces[0][2] = 4 }, ErrIndexOutOfRange},
		{"negative vertex index", func(m *formats.MHX2Mesh) { m.Faces[0][0] = -1 }, ErrIndexOutOfRange},
		{"uv index too large", func(m *formats.MHX2Mesh) { m.UVFaces[0][3] = 9 }, ErrIndexOutOfRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := quadGeometry("quad", "")
			tt.mutate(&g.Mesh)

			m := &Model{}
			opts := DefaultBuildOptions()
			err := BuildGeometry(newTestDoc(), &g, m, &opts, nil)
			if !errors.Is(err, tt.want) {
				t.Fatalf("error = %v, want %v", err, tt.want)
			}
			if len(m.Meshes) != 0 {
				t.Error("failed geometry must not be appended")
			}
		})
	}
}

func TestBuildGeometry_NoUVs(t *testing.T) {
	g := quadGeometry("quad", "")
	g.Mesh.UVCoords = nil
	g.Mesh.UVFaces = nil

	m := &Model{}
	opts := DefaultBuildOptions()
	if err := BuildGeometry(newTestDoc(), &g, m, &opts, nil); err != nil {
		t.Fatalf("BuildGeometry() error: %v", err)
	}
	vb := m.Meshes[0].VertexBuffers[0]
	for i := 0; i < vb.VertexCount(); i++ {
		if vb.TexCoord(i) != (math.Vec2{}) {
			t.Errorf("vertex %d uv = %v, want zero", i, vb.TexCoord(i))
		}
	}
}

func TestBuildGeometry_VertexColorCallback(t *testing.T) {
	g := quadGeometry("quad", "")
	red := math.Color{R: 1, A: 1}

	calls := 0
	opts := DefaultBuildOptions()
	opts.VertexColor = func(vb *VertexBuffer, normal math.Vec3, groupIndex int) math.Color {
		calls++
		if groupIndex != 0 || normal != (math.Vec3{}) {
			t.Errorf("callback got group %d normal %v", groupIndex, normal)
		}
		return red
	}

	m := &Model{}
	if err := BuildGeometry(newTestDoc(), &g, m, &opts, nil); err != nil {
		t.Fatalf("BuildGeometry() error: %v", err)
	}
	if calls != 6 {
		t.Errorf("callback calls = %d, want 6", calls)
	}
	if got := m.Meshes[0].VertexBuffers[0].Color(4); got != red {
		t.Errorf("Color(4) = %v, want red", got)
	}
}

func TestBuildGeometry_Skinning(t *testing.T) {
	g := quadGeometry("quad", "")
	g.Mesh.WeightGroups = []formats.MHX2WeightGroup{
		weightGroup("Root", map[int]float32{0: 1, 2: 0.5}),
		weightGroup("Missing", map[int]float32{1: 1}),
	}
	doc := newTestDoc(g)

	var warnings formats.Warnings
	opts := DefaultBuildOptions()
	opts.PoseOnly = false
	m, err := Build(doc, &opts, &warnings)
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}

	if !warnings.Mentions("Missing") {
		t.Errorf("expected a warning for the unknown bone, got %v", warnings.Strings())
	}
	if len(m.Deformers) != 1 {
		t.Fatalf("got %d deformers, want 1", len(m.Deformers))
	}
	skins := m.Deformers[0].Skins
	if len(skins) != 1 {
		t.Fatalf("got %d skins, want 1", len(skins))
	}

	skin := skins[0]
	if skin.Bone != m.Skeleton.FindBone("Root") {
		t.Errorf("skin bone = %d", skin.Bone)
	}
	bind := m.Skeleton.BoneMatrix(skin.Bone, math.Identity())
	if !bind.Mul(skin.InverseBind).ApproxEqual(math.Identity(), 1e-5) {
		t.Errorf("InverseBind does not invert the bind matrix: %v", skin.InverseBind)
	}

	// Vertex 0 is emitted by both triangles, vertex 2 too.
	stride := m.Meshes[0].VertexBuffers[0].Stride
	want := map[int][]int{
		0: {0, 3 * stride},
		2: {2 * stride, 4 * stride},
	}
	if len(skin.Influences) != len(want) || len(skin.Weights) != len(want) {
		t.Fatalf("influences = %+v", skin.Influences)
	}
	for i, inf := range skin.Influences {
		offsets, ok := want[inf.Vertex]
		if !ok {
			t.Errorf("unexpected influence on vertex %d", inf.Vertex)
			continue
		}
		if len(inf.Offsets) != len(offsets) || inf.Offsets[0] != offsets[0] || inf.Offsets[1] != offsets[1] {
			t.Errorf("vertex %d offsets = %v, want %v", inf.Vertex, inf.Offsets, offsets)
		}
		w, _ := doc.Geometries[0].Mesh.WeightGroups[0].Lookup(inf.Vertex)
		if skin.Weights[i] != w {
			t.Errorf("vertex %d weight = %v, want %v", inf.Vertex, skin.Weights[i], w)
		}
	}
}

func TestBuildGeometry_BindPoseSnapshot(t *testing.T) {
	m := &Model{}
	g := quadGeometry("quad", "")
	opts := DefaultBuildOptions()
	if err := BuildGeometry(newTestDoc(), &g, m, &opts, nil); err != nil {
		t.Fatalf("BuildGeometry() error: %v", err)
	}

	mesh := m.Meshes[0]
	vb := mesh.VertexBuffers[0]
	vb.Data[0] = 42
	if mesh.BindPose[0][0] == 42 {
		t.Error("BindPose shares storage with the vertex buffer")
	}
	RestoreBindPose(m)
	if vb.Data[0] != 0 {
		t.Errorf("RestoreBindPose left %v", vb.Data[0])
	}
}

type fakeTexture struct{ w, h int }

func (f fakeTexture) Size() (int, int) { return f.w, f.h }

const minimalDoc = `{"mhx2_version":"1","skeleton":{"name":"S","offset":[0,0,0],"scale":1,"bones":[{"name":"Root","head":[0,0,0],"tail":[0,1,0],"roll":0,"matrix":[[1,0,0,0],[0,1,0,0],[0,0,1,0],[0,0,0,1]]}]},"materials":[],"geometries":[{"name":"G","material":"","mesh":{"vertices":[[0,0,0],[1,0,0],[0,1,0]],"faces":[[0,1,2]],"uv_coordinates":[[0,0],[1,0],[0,1]],"uv_faces":[[0,1,2]],"weights":[]}}]}`
