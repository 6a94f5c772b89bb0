package formats

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Faultbox/mhx2/pkg/math"
)

const minimalMHX2 = `{"mhx2_version":"1","skeleton":{"name":"S","offset":[0,0,0],"scale":1,"bones":[{"name":"Root","head":[0,0,0],"tail":[0,1,0],"roll":0,"matrix":[[1,0,0,0],[0,1,0,0],[0,0,1,0],[0,0,0,1]]}]},"materials":[],"geometries":[{"name":"G","material":"","mesh":{"vertices":[[0,0,0],[1,0,0],[0,1,0]],"faces":[[0,1,2]],"uv_coordinates":[[0,0],[1,0],[0,1]],"uv_faces":[[0,1,2]],"weights":[]}}]}`

func TestParseMHX2_Minimal(t *testing.T) {
	doc, warnings, err := ParseMHX2([]byte(minimalMHX2))
	if err != nil {
		t.Fatalf("ParseMHX2() error: %v", err)
	}
	if len(warnings) != 0 {
		t.Errorf("unexpected warnings: %v", warnings.Strings())
	}

	if doc.Version != "1" {
		t.Errorf("Version = %q, want 1", doc.Version)
	}
	if doc.Skeleton.Name != "S" || doc.Skeleton.Scale != 1 {
		t.Errorf("Skeleton = %q scale %v", doc.Skeleton.Name, doc.Skeleton.Scale)
	}
	if len(doc.Skeleton.Bones) != 1 {
		t.Fatalf("got %d bones, want 1", len(doc.Skeleton.Bones))
	}
	root := doc.Skeleton.Bones[0]
	if root.Name != "Root" || root.Parent != "" {
		t.Errorf("bone = %q parent %q", root.Name, root.Parent)
	}
	if root.Tail != (math.Vec3{X: 0, Y: 1, Z: 0}) {
		t.Errorf("Tail = %v", root.Tail)
	}
	if !root.Matrix.IsIdentity() {
		t.Errorf("Matrix = %v, want identity", root.Matrix)
	}

	if len(doc.Materials) != 0 {
		t.Errorf("got %d materials, want 0", len(doc.Materials))
	}
	if len(doc.Geometries) != 1 {
		t.Fatalf("got %d geometries, want 1", len(doc.Geometries))
	}
	g := doc.Geometries[0]
	if g.Name != "G" || g.Material != "" || g.Scale != 1 || !g.IsHuman {
		t.Errorf("geometry = %+v", g)
	}
	if len(g.Mesh.Vertices) != 3 || len(g.Mesh.Faces) != 1 || len(g.Mesh.UVCoords) != 3 || len(g.Mesh.UVFaces) != 1 {
		t.Errorf("mesh sizes: v=%d f=%d uv=%d uvf=%d",
			len(g.Mesh.Vertices), len(g.Mesh.Faces), len(g.Mesh.UVCoords), len(g.Mesh.UVFaces))
	}
	if g.Mesh.Vertices[1] != (math.Vec3{X: 1}) {
		t.Errorf("vertex 1 = %v", g.Mesh.Vertices[1])
	}
	if g.Mesh.TriangleCount() != 1 {
		t.Errorf("TriangleCount() = %d, want 1", g.Mesh.TriangleCount())
	}
}

func TestParseMHX2File(t *testing.T) {
	doc, _, err := ParseMHX2File(filepath.Join("testdata", "minimal.mhx2"))
	if err != nil {
		t.Fatalf("ParseMHX2File() error: %v", err)
	}
	if len(doc.Geometries) != 1 {
		t.Errorf("got %d geometries, want 1", len(doc.Geometries))
	}

	if _, _, err := ParseMHX2File(filepath.Join("testdata", "missing.mhx2")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestParseMHX2_UnknownFieldWarns(t *testing.T) {
	data := `{"materials":[{"name":"skin","foo":1,"diffuse_texture":"skin.png","diffuse_color":[0.5,0.25,0.125],"shininess":0.5,"transparent":true}]}`

	doc, warnings, err := ParseMHX2([]byte(data))
	if err != nil {
		t.Fatalf("ParseMHX2() error: %v", err)
	}

	if len(warnings) != 1 {
		t.Fatalf("got %d warnings, want 1: %v", len(warnings), warnings.Strings())
	}
	if warnings[0].Key != "foo" || !strings.Contains(warnings[0].String(), "foo") {
		t.Errorf("warning = %q, want mention of foo", warnings[0].String())
	}

	mat := doc.GetMaterialByName("skin")
	if mat == nil {
		t.Fatal("material skin not found")
	}
	if mat.DiffuseTexture != "skin.png" || mat.Shininess != 0.5 || !mat.Transparent {
		t.Errorf("material = %+v", mat)
	}
	// Unsupplied alpha keeps the default.
	if mat.DiffuseColor != (math.Color{R: 0.5, G: 0.25, B: 0.125, A: 1}) {
		t.Errorf("DiffuseColor = %v", mat.DiffuseColor)
	}
	if mat.Opacity != 1 || mat.SSSRScale != 1 || mat.AmbientColor != math.White {
		t.Errorf("defaults not kept: %+v", mat)
	}
}

func TestParseMHX2_TypeMismatchWarns(t *testing.T) {
	tests := []struct {
		name string
		data string
		key  string
	}{
		{"string as number", `{"skeleton":{"scale":"big"}}`, "scale"},
		{"number as string", `{"mhx2_version":2}`, "mhx2_version"},
		{"number as bool", `{"materials":[{"wireframe":1}]}`, "wireframe"},
		{"scalar as vector", `{"skeleton":{"offset":3}}`, "offset"},
		{"null as string", `{"mhx2_version":null}`, "mhx2_version"},
		{"scalar bone", `{"skeleton":{"bones":[1]}}`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, warnings, err := ParseMHX2([]byte(tt.data))
			if err != nil {
				t.Fatalf("ParseMHX2() error: %v", err)
			}
			if len(warnings) != 1 {
				t.Fatalf("got %d warnings, want 1: %v", len(warnings), warnings.Strings())
			}
			if warnings[0].Key != tt.key {
				t.Errorf("warning key = %q, want %q", warnings[0].Key, tt.key)
			}
		})
	}
}

func TestParseMHX2_Fatal(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr error
	}{
		{"root array", `[]`, ErrNotObject},
		{"vector overflow", `{"skeleton":{"offset":[1,2,3,4]}}`, ErrIndexOutOfBounds},
		{"color overflow", `{"materials":[{"diffuse_color":[1,1,1,1,1]}]}`, ErrIndexOutOfBounds},
		{"uv overflow", `{"geometries":[{"mesh":{"uv_coordinates":[[0,0,0]]}}]}`, ErrIndexOutOfBounds},
		{"matrix row overflow", `{"skeleton":{"bones":[{"matrix":[[1,0,0,0],[0,1,0,0],[0,0,1,0],[0,0,0,1],[0,0,0,0]]}]}}`, ErrIndexOutOfBounds},
		{"matrix column overflow", `{"skeleton":{"bones":[{"matrix":[[1,0,0,0,0]]}]}}`, ErrIndexOutOfBounds},
		{"flat matrix", `{"skeleton":{"bones":[{"matrix":[1,0,0,0,0,1,0,0,0,0,1,0,0,0,0,1]}]}}`, ErrIndexOutOfBounds},
		{"null in vector", `{"geometries":[{"mesh":{"vertices":[[0,null,0]]}}]}`, ErrNullValue},
		{"null in face", `{"geometries":[{"mesh":{"faces":[[0,1,null]]}}]}`, ErrNullValue},
		{"null geometry", `{"geometries":[null]}`, ErrNullValue},
		{"weight overflow", `{"geometries":[{"mesh":{"weights":{"Root":[[1,0.5,3]]}}}]}`, ErrIndexOutOfBounds},
		{"null weight group", `{"geometries":[{"mesh":{"weights":{"Root":null}}}]}`, ErrNullValue},
		{"null in weight list", `{"geometries":[{"mesh":{"weights":[null]}}]}`, ErrNullValue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, _, err := ParseMHX2([]byte(tt.data))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
			if doc != nil {
				t.Error("failed parse should not return a document")
			}
		})
	}
}

func TestParseMHX2_SyntaxError(t *testing.T) {
	if _, _, err := ParseMHX2([]byte(`{"skeleton":`)); err == nil {
		t.Error("expected JSON syntax error")
	}
}

func TestParseMHX2_Matrix(t *testing.T) {
	data := `{"skeleton":{"bones":[{"name":"B","matrix":[[1,0,0,2],[0,1,0,3],[0,0,1,4],[0,0,0,1]]}]}}`
	doc, _, err := ParseMHX2([]byte(data))
	if err != nil {
		t.Fatalf("ParseMHX2() error: %v", err)
	}
	m := doc.Skeleton.Bones[0].Matrix
	if m.Translation() != (math.Vec3{X: 2, Y: 3, Z: 4}) {
		t.Errorf("Translation() = %v, want (2,3,4)", m.Translation())
	}
	if m.At(0, 3) != 2 || m.At(3, 3) != 1 {
		t.Errorf("matrix = %v", m.Rows())
	}
}

func TestParseMHX2_VectorSkipsStrings(t *testing.T) {
	doc, warnings, err := ParseMHX2([]byte(`{"skeleton":{"offset":[1,"x",2,3]}}`))
	if err != nil {
		t.Fatalf("ParseMHX2() error: %v", err)
	}
	if doc.Skeleton.Offset != (math.Vec3{X: 1, Y: 2, Z: 3}) {
		t.Errorf("Offset = %v", doc.Skeleton.Offset)
	}
	if len(warnings) != 1 {
		t.Errorf("got %d warnings, want 1", len(warnings))
	}
}

func TestWeightGroupLookup(t *testing.T) {
	tests := []struct {
		name    string
		weights string
	}{
		{"object form", `{"Root":{"5":0.25,"9":0.75}}`},
		{"pair form", `{"Root":[[5,0.25],[9,0.75]]}`},
		{"array of groups", `[{"Root":{"5":0.25,"9":0.75}}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := `{"geometries":[{"mesh":{"weights":` + tt.weights + `}}]}`
			doc, warnings, err := ParseMHX2([]byte(data))
			if err != nil {
				t.Fatalf("ParseMHX2() error: %v", err)
			}
			if len(warnings) != 0 {
				t.Errorf("unexpected warnings: %v", warnings.Strings())
			}

			groups := doc.Geometries[0].Mesh.WeightGroups
			if len(groups) != 1 {
				t.Fatalf("got %d weight groups, want 1", len(groups))
			}
			g := groups[0]
			if g.Key != "Root" {
				t.Errorf("Key = %q, want Root", g.Key)
			}

			if w, ok := g.Lookup(5); !ok || w != 0.25 {
				t.Errorf("Lookup(5) = %v, %v; want 0.25, true", w, ok)
			}
			if w, ok := g.Lookup(9); !ok || w != 0.75 {
				t.Errorf("Lookup(9) = %v, %v; want 0.75, true", w, ok)
			}
			if _, ok := g.Lookup(6); ok {
				t.Error("Lookup(6) should report no influence")
			}
			if len(g.Weights) != 2 || g.Weights[0].Index != 5 {
				t.Errorf("Weights = %+v", g.Weights)
			}
		})
	}
}

func TestWeightGroupPairIndex(t *testing.T) {
	tests := []struct {
		name     string
		pairs    string
		index    int
		want     bool
		warnings int
	}{
		{"beyond float32 precision", `[[16777217,0.5]]`, 16777217, true, 0},
		{"whole float", `[[5.0,0.5]]`, 5, true, 0},
		{"fractional float", `[[5.5,0.5]]`, 5, false, 1},
		{"negative", `[[-1,0.5]]`, -1, false, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := `{"geometries":[{"mesh":{"weights":{"Root":` + tt.pairs + `}}}]}`
			doc, warnings, err := ParseMHX2([]byte(data))
			if err != nil {
				t.Fatalf("ParseMHX2() error: %v", err)
			}
			if len(warnings) != tt.warnings {
				t.Errorf("got warnings %v, want %d", warnings.Strings(), tt.warnings)
			}
			g := doc.Geometries[0].Mesh.WeightGroups[0]
			if _, ok := g.Lookup(tt.index); ok != tt.want {
				t.Errorf("Lookup(%d) present = %v, want %v", tt.index, ok, tt.want)
			}
			if !tt.want && len(g.Weights) != 0 {
				t.Errorf("Weights = %+v, want none", g.Weights)
			}
		})
	}
}

func TestWeightGroupDuplicateIndex(t *testing.T) {
	data := `{"geometries":[{"mesh":{"weights":{"Root":[[3,0.5],[3,0.9]]}}}]}`
	doc, warnings, err := ParseMHX2([]byte(data))
	if err != nil {
		t.Fatalf("ParseMHX2() error: %v", err)
	}
	if len(warnings) != 1 {
		t.Errorf("got %d warnings, want 1", len(warnings))
	}
	g := doc.Geometries[0].Mesh.WeightGroups[0]
	if w, _ := g.Lookup(3); w != 0.9 {
		t.Errorf("Lookup(3) = %v, want last value 0.9", w)
	}
	if len(g.Weights) != 1 || g.Weights[0].Value != 0.9 {
		t.Errorf("Weights = %+v", g.Weights)
	}
}

func TestParseMHX2_GeometryExtras(t *testing.T) {
	data := `{"geometries":[{
		"name":"body","uuid":"u-1","material":"skin","scale":0.1,"human":false,"issubdivided":true,
		"offset":[1,2,3],
		"license":{"author":"A","license":"CC0","homepage":"http://example.org"},
		"seed_mesh":{"vertices":[[0,0,0]]},
		"proxy_seed_mesh":{"vertices":[[1,1,1],[2,2,2]]},
		"proxy":{"name":"px","type":"Proxymeshes","uuid":"p-1","basemesh":"hm08",
			"tags":["a","b"],"delete_verts":[true,false],
			"fitting":[[[0,0,0],[1,1,1]]],"vertex_bone_weights":null}
	}]}`

	doc, warnings, err := ParseMHX2([]byte(data))
	if err != nil {
		t.Fatalf("ParseMHX2() error: %v", err)
	}
	if len(warnings) != 0 {
		t.Errorf("unexpected warnings: %v", warnings.Strings())
	}

	g := doc.Geometries[0]
	if g.Name != "body" || g.UUID != "u-1" || g.Material != "skin" {
		t.Errorf("geometry strings = %q %q %q", g.Name, g.UUID, g.Material)
	}
	if g.Scale != 0.1 || g.IsHuman || !g.IsSubdivided {
		t.Errorf("geometry flags = %v %v %v", g.Scale, g.IsHuman, g.IsSubdivided)
	}
	if g.License.Author != "A" || g.License.Homepage != "http://example.org" {
		t.Errorf("license = %+v", g.License)
	}
	if len(g.SeedMesh.Vertices) != 1 || len(g.ProxySeedMesh.Vertices) != 2 {
		t.Errorf("seed meshes = %d, %d", len(g.SeedMesh.Vertices), len(g.ProxySeedMesh.Vertices))
	}

	px := g.Proxy
	if px == nil {
		t.Fatal("proxy missing")
	}
	if px.Name != "px" || px.Basemesh != "hm08" || len(px.Tags) != 2 || len(px.DeleteVerts) != 2 {
		t.Errorf("proxy = %+v", px)
	}
	if len(px.Fitting) != 1 || len(px.Fitting[0]) != 2 || px.Fitting[0][1] != (math.Vec3{X: 1, Y: 1, Z: 1}) {
		t.Errorf("fitting = %v", px.Fitting)
	}
	if px.VertexBoneWeights {
		t.Error("VertexBoneWeights should be false for null")
	}
}

func TestWarningString(t *testing.T) {
	var ws Warnings
	ws.AddKey("unresolved bone", "Spine")
	ws.Add("no node", nil)

	want := []string{"unresolved bone - key - Spine", "no node"}
	got := ws.Strings()
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("warning %d = %q, want %q", i, got[i], want[i])
		}
	}
	if !ws.Mentions("Spine") {
		t.Error("Mentions(Spine) = false")
	}
	ws.Reset()
	if ws.Len() != 0 {
		t.Error("Reset() should clear the log")
	}
}
