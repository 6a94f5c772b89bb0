package model

import (
	"errors"
	"fmt"

	"github.com/Faultbox/mhx2/pkg/formats"
	"github.com/Faultbox/mhx2/pkg/math"
)

// ErrMultipleRoots is returned when more than one bone has no resolvable
// parent.
var ErrMultipleRoots = errors.New("malformed skeleton: more than one root bone")

// Bone is one node of the bone tree. Parent and Children are handles into
// Skeleton.Bones.
type Bone struct {
	Name     string
	Parent   int // -1 for the root
	Children []int
	Head     math.Vec3
	Tail     math.Vec3
	Roll     float32
	Matrix   math.Mat4 // Bind matrix relative to the parent
}

// Skeleton owns every bone of a model in an arena. A bone handle is its
// index in Bones and stays valid for the life of the skeleton.
type Skeleton struct {
	Name   string
	Offset math.Vec3
	Scale  float32
	Bones  []Bone
	Root   int // -1 when empty
}

// BuildSkeleton resolves bone parent names into a tree. Parents are looked
// up only among bones already placed, searching from the root. The first
// bone without a resolvable parent becomes the root; a second one fails the
// build. A skeleton item without bones yields nil.
func BuildSkeleton(item *formats.MHX2Skeleton, warnings *formats.Warnings) (*Skeleton, error) {
	if item == nil || len(item.Bones) == 0 {
		return nil, nil
	}

	s := &Skeleton{
		Name:   item.Name,
		Offset: item.Offset,
		Scale:  item.Scale,
		Bones:  make([]Bone, 0, len(item.Bones)),
		Root:   -1,
	}

	for i := range item.Bones {
		rec := &item.Bones[i]

		parent := -1
		if rec.Parent != "" {
			parent = s.FindBone(rec.Parent)
		}

		if parent < 0 {
			if rec.Parent != "" && warnings != nil {
				warnings.AddKey("Build skeleton - parent bone not found for "+rec.Name, rec.Parent)
			}
			if s.Root >= 0 {
				return nil, fmt.Errorf("bone %q: %w", rec.Name, ErrMultipleRoots)
			}
		}

		h := len(s.Bones)
		s.Bones = append(s.Bones, Bone{
			Name:   rec.Name,
			Parent: parent,
			Head:   rec.Head,
			Tail:   rec.Tail,
			Roll:   rec.Roll,
			Matrix: rec.Matrix,
		})

		if parent < 0 {
			s.Root = h
		} else {
			s.Bones[parent].Children = append(s.Bones[parent].Children, h)
		}
	}

	return s, nil
}

// Len returns the number of bones.
func (s *Skeleton) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Bones)
}

// Bone returns the bone with handle h, or nil.
func (s *Skeleton) Bone(h int) *Bone {
	if s == nil || h < 0 || h >= len(s.Bones) {
		return nil
	}
	return &s.Bones[h]
}

// Parent returns the parent handle of h, or -1.
func (s *Skeleton) Parent(h int) int {
	b := s.Bone(h)
	if b == nil {
		return -1
	}
	return b.Parent
}

// FindBone returns the handle of the bone named name, searching depth first
// from the root, or -1.
func (s *Skeleton) FindBone(name string) int {
	found := -1
	s.Walk(func(h, _ int) bool {
		if s.Bones[h].Name == name {
			found = h
			return false
		}
		return true
	})
	return found
}

// Walk visits the tree depth first from the root, children in insertion
// order. Returning false from fn stops the walk.
func (s *Skeleton) Walk(fn func(h, depth int) bool) {
	if s == nil || s.Root < 0 {
		return
	}

	type entry struct{ h, depth int }
	stack := []entry{{s.Root, 0}}
	for len(stack) > 0 {
		e := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !fn(e.h, e.depth) {
			return
		}
		children := s.Bones[e.h].Children
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, entry{children[i], e.depth + 1})
		}
	}
}

// BoneMatrix returns the bind matrix of h stacked with every ancestor's,
// root first. A non-identity initial matrix is applied last; the zero
// matrix counts as none.
func (s *Skeleton) BoneMatrix(h int, initial math.Mat4) math.Mat4 {
	m := math.Identity()
	for b := s.Bone(h); b != nil; b = s.Bone(b.Parent) {
		m = b.Matrix.Mul(m)
	}
	if initial != (math.Mat4{}) && !initial.IsIdentity() {
		m = initial.Mul(m)
	}
	return m
}

// WorldMatrices returns BoneMatrix for every bone, indexed by handle.
func (s *Skeleton) WorldMatrices() []math.Mat4 {
	if s == nil {
		return nil
	}
	world := make([]math.Mat4, len(s.Bones))
	// Parents always precede their children in the arena.
	for h := range s.Bones {
		b := &s.Bones[h]
		if b.Parent < 0 {
			world[h] = b.Matrix
			continue
		}
		world[h] = world[b.Parent].Mul(b.Matrix)
	}
	return world
}
