package model

import (
	"io"

	"github.com/Faultbox/mhx2/pkg/formats"
)

// Model is a built MHX2 scene: a skeleton and one mesh per geometry, with
// one deformer per mesh when skinning was requested.
type Model struct {
	Skeleton  *Skeleton // nil when the file has no bones
	Meshes    []*Mesh
	Deformers []*Deformer
	Materials []formats.MHX2Material // Copied from the document

	textures map[string]Texture // Material name -> loaded texture
}

// loadTexture returns the texture of mat, calling load at most once per
// material name.
func (m *Model) loadTexture(mat *formats.MHX2Material, load TextureLoader) Texture {
	if load == nil {
		return nil
	}
	if m.textures == nil {
		m.textures = make(map[string]Texture)
	}
	if tex, ok := m.textures[mat.Name]; ok {
		return tex
	}
	tex := load(mat.DiffuseTexture, mat.Transparent)
	m.textures[mat.Name] = tex
	return tex
}

// Textures returns every texture the model loaded, keyed by material name.
// Entries may be nil.
func (m *Model) Textures() map[string]Texture {
	return m.textures
}

// Release closes every owned texture implementing io.Closer and drops the
// texture cache. The model stays usable untextured.
func (m *Model) Release() error {
	var first error
	for name, tex := range m.textures {
		if c, ok := tex.(io.Closer); ok {
			if err := c.Close(); err != nil && first == nil {
				first = err
			}
		}
		delete(m.textures, name)
	}
	for _, mesh := range m.Meshes {
		for _, vb := range mesh.VertexBuffers {
			vb.Material.Texture = nil
		}
	}
	return first
}

// VertexCount returns the number of emitted vertices across all meshes.
func (m *Model) VertexCount() int {
	n := 0
	for _, mesh := range m.Meshes {
		for _, vb := range mesh.VertexBuffers {
			n += vb.VertexCount()
		}
	}
	return n
}

// TriangleCount returns the number of triangles across all meshes.
func (m *Model) TriangleCount() int {
	return m.VertexCount() / 3
}

// Bounds returns the bounding box of every mesh.
func (m *Model) Bounds() Bounds {
	b := emptyBounds()
	for _, mesh := range m.Meshes {
		for _, vb := range mesh.VertexBuffers {
			vbb := vb.Bounds()
			if vbb.Empty() {
				continue
			}
			b.extend(vbb.Min)
			b.extend(vbb.Max)
		}
	}
	return b
}

// Material returns the first material record named name, or nil.
func (m *Model) Material(name string) *formats.MHX2Material {
	for i := range m.Materials {
		if m.Materials[i].Name == name {
			return &m.Materials[i]
		}
	}
	return nil
}

// Mesh returns the first mesh named name, or nil.
func (m *Model) Mesh(name string) *Mesh {
	for _, mesh := range m.Meshes {
		if mesh.Name == name {
			return mesh
		}
	}
	return nil
}
