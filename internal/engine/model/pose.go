package model

import (
	"errors"
	"fmt"

	"github.com/Faultbox/mhx2/pkg/math"
)

// Pose evaluation errors.
var (
	ErrDeformerMismatch  = errors.New("mesh and deformer counts differ")
	ErrVertexBufferCount = errors.New("mesh must have exactly one vertex buffer")
	ErrBindPoseMismatch  = errors.New("bind pose does not match vertex buffer")
	ErrUnknownBone       = errors.New("skin references an unknown bone")
)

// Evaluate recomputes every vertex position by linear blend skinning in the
// bind pose: each position is the weighted sum of
// BoneMatrix(bone) * InverseBind * bindPosition over the skins that
// influence it. Positions of vertices with no influence become zero.
// Nothing is modified when the model fails validation.
func Evaluate(m *Model) error {
	if len(m.Meshes) != len(m.Deformers) {
		return fmt.Errorf("%w: %d meshes, %d deformers", ErrDeformerMismatch, len(m.Meshes), len(m.Deformers))
	}

	for i, mesh := range m.Meshes {
		if len(mesh.VertexBuffers) != 1 {
			return fmt.Errorf("mesh %d (%s): %w, got %d", i, mesh.Name, ErrVertexBufferCount, len(mesh.VertexBuffers))
		}
		if len(mesh.BindPose) != 1 || len(mesh.BindPose[0]) != len(mesh.VertexBuffers[0].Data) {
			return fmt.Errorf("mesh %d (%s): %w", i, mesh.Name, ErrBindPoseMismatch)
		}
		for _, skin := range m.Deformers[i].Skins {
			if m.Skeleton.Bone(skin.Bone) == nil {
				return fmt.Errorf("mesh %d (%s): %w (%d)", i, mesh.Name, ErrUnknownBone, skin.Bone)
			}
		}
	}

	for i, mesh := range m.Meshes {
		skinMesh(m.Skeleton, mesh.VertexBuffers[0], mesh.BindPose[0], m.Deformers[i])
	}
	return nil
}

func skinMesh(s *Skeleton, vb *VertexBuffer, bind []float32, d *Deformer) {
	for off := 0; off+2 < len(vb.Data); off += vb.Stride {
		vb.Data[off], vb.Data[off+1], vb.Data[off+2] = 0, 0, 0
	}

	for _, skin := range d.Skins {
		final := s.BoneMatrix(skin.Bone, math.Identity()).Mul(skin.InverseBind)

		for ii, inf := range skin.Influences {
			w := skin.Weights[ii]
			for _, off := range inf.Offsets {
				p := final.TransformVec3(math.Vec3{X: bind[off], Y: bind[off+1], Z: bind[off+2]})
				vb.Data[off] += w * p.X
				vb.Data[off+1] += w * p.Y
				vb.Data[off+2] += w * p.Z
			}
		}
	}
}

// RestoreBindPose copies the pristine bind pose back into every buffer.
func RestoreBindPose(m *Model) {
	for _, mesh := range m.Meshes {
		for i, vb := range mesh.VertexBuffers {
			if i < len(mesh.BindPose) && len(mesh.BindPose[i]) == len(vb.Data) {
				copy(vb.Data, mesh.BindPose[i])
			}
		}
	}
}
