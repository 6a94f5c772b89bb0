package model

import (
	"errors"
	"testing"

	"github.com/Faultbox/mhx2/pkg/formats"
	"github.com/Faultbox/mhx2/pkg/math"
)

func skinnedQuad(t *testing.T, groups ...formats.MHX2WeightGroup) *Model {
	t.Helper()

	g := quadGeometry("quad", "")
	g.Mesh.WeightGroups = groups
	doc := newTestDoc(g)
	doc.Skeleton.Bones = append(doc.Skeleton.Bones, bone("Arm", "Root", math.Translate(2, 0, 0)))

	opts := DefaultBuildOptions()
	opts.PoseOnly = false
	m, err := Build(doc, &opts, nil)
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	return m
}

func TestEvaluate_BindPoseIsStable(t *testing.T) {
	all := map[int]float32{0: 1, 1: 1, 2: 1, 3: 1}
	m := skinnedQuad(t, weightGroup("Arm", all))

	vb := m.Meshes[0].VertexBuffers[0]
	before := append([]float32(nil), vb.Data...)

	if err := Evaluate(m); err != nil {
		t.Fatalf("Evaluate() error: %v", err)
	}
	for i := 0; i < vb.VertexCount(); i++ {
		want := math.Vec3{X: before[i*vb.Stride], Y: before[i*vb.Stride+1], Z: before[i*vb.Stride+2]}
		if got := vb.Position(i); !approxVec(got, want) {
			t.Errorf("vertex %d moved from %v to %v", i, want, got)
		}
	}
}

func TestEvaluate_WeightedBlend(t *testing.T) {
	m := skinnedQuad(t,
		weightGroup("Root", map[int]float32{0: 0.5, 1: 1}),
		weightGroup("Arm", map[int]float32{0: 0.5}),
	)

	// Move the arm one unit up after binding; vertex 0 follows by half.
	m.Skeleton.Bones[m.Skeleton.FindBone("Arm")].Matrix = math.Translate(2, 1, 0)

	if err := Evaluate(m); err != nil {
		t.Fatalf("Evaluate() error: %v", err)
	}

	vb := m.Meshes[0].VertexBuffers[0]
	tests := []struct {
		name   string
		vertex int // emitted vertex
		want   math.Vec3
	}{
		{"split weight", 0, math.Vec3{X: 0, Y: 0.5}},
		{"split weight repeated", 3, math.Vec3{X: 0, Y: 0.5}},
		{"root only", 1, math.Vec3{X: 1}},
		{"no influence", 2, math.Vec3{}},
		{"no influence repeated", 5, math.Vec3{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := vb.Position(tt.vertex); !approxVec(got, tt.want) {
				t.Errorf("Position(%d) = %v, want %v", tt.vertex, got, tt.want)
			}
		})
	}

	// Attributes other than the position are untouched.
	if got := vb.TexCoord(1); got != (math.Vec2{X: 1}) {
		t.Errorf("TexCoord(1) = %v", got)
	}

	RestoreBindPose(m)
	if got := vb.Position(2); got != (math.Vec3{X: 1, Y: 1}) {
		t.Errorf("after restore Position(2) = %v", got)
	}
}

func TestEvaluate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Model)
		want   error
	}{
		{"missing deformer", func(m *Model) { m.Deformers = nil }, ErrDeformerMismatch},
		{"extra deformer", func(m *Model) { m.Deformers = append(m.Deformers, &Deformer{}) }, ErrDeformerMismatch},
		{"two buffers", func(m *Model) {
			mesh := m.Meshes[0]
			mesh.VertexBuffers = append(mesh.VertexBuffers, mesh.VertexBuffers[0])
		}, ErrVertexBufferCount},
		{"no buffers", func(m *Model) { m.Meshes[0].VertexBuffers = nil }, ErrVertexBufferCount},
		{"stale bind pose", func(m *Model) { m.Meshes[0].BindPose[0] = m.Meshes[0].BindPose[0][:3] }, ErrBindPoseMismatch},
		{"bad bone handle", func(m *Model) { m.Deformers[0].Skins[0].Bone = 99 }, ErrUnknownBone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := skinnedQuad(t, weightGroup("Root", map[int]float32{0: 1}))
			tt.mutate(m)

			var before []float32
			if bufs := m.Meshes[0].VertexBuffers; len(bufs) > 0 {
				before = append(before, bufs[0].Data...)
			}

			err := Evaluate(m)
			if !errors.Is(err, tt.want) {
				t.Fatalf("error = %v, want %v", err, tt.want)
			}
			if bufs := m.Meshes[0].VertexBuffers; len(bufs) > 0 {
				for i := range before {
					if bufs[0].Data[i] != before[i] {
						t.Fatalf("buffer modified at %d", i)
					}
				}
			}
		})
	}
}

func TestEvaluate_EmptyModel(t *testing.T) {
	if err := Evaluate(&Model{}); err != nil {
		t.Errorf("Evaluate(empty) error: %v", err)
	}
}
