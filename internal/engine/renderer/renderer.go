// Package renderer draws built models with OpenGL.
package renderer

import (
	"errors"
	"fmt"

	"github.com/go-gl/gl/v4.1-core/gl"
	"go.uber.org/zap"

	"github.com/Faultbox/mhx2/internal/engine/model"
	"github.com/Faultbox/mhx2/internal/engine/shader"
	"github.com/Faultbox/mhx2/internal/logger"
	"github.com/Faultbox/mhx2/pkg/math"
)

// ErrNoModel is returned by Draw before a model has been uploaded.
var ErrNoModel = errors.New("no model uploaded")

// Config holds renderer configuration.
type Config struct {
	Width  int
	Height int
}

// Renderer owns the GPU copies of one model.
type Renderer struct {
	config  Config
	program *shader.Program
	white   *Texture

	buffers []*gpuBuffer
	model   *model.Model
}

// gpuBuffer is one uploaded vertex buffer.
type gpuBuffer struct {
	vao, vbo uint32
	count    int32
	source   *model.VertexBuffer
}

// New creates a new renderer.
// It must be called after the OpenGL context is created.
func New(cfg Config) (*Renderer, error) {
	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize OpenGL: %w", err)
	}

	logger.Info("OpenGL initialized",
		zap.String("version", gl.GoStr(gl.GetString(gl.VERSION))),
		zap.String("renderer", gl.GoStr(gl.GetString(gl.RENDERER))),
	)

	gl.Enable(gl.DEPTH_TEST)
	gl.DepthFunc(gl.LESS)
	gl.ClearColor(0.1, 0.1, 0.15, 1.0)

	program, err := shader.New(vertexShader, fragmentShader)
	if err != nil {
		return nil, fmt.Errorf("model shader: %w", err)
	}

	r := &Renderer{
		config:  cfg,
		program: program,
		white:   newSolidTexture(255, 255, 255, 255),
	}
	r.Resize(cfg.Width, cfg.Height)
	return r, nil
}

// Resize updates the viewport.
func (r *Renderer) Resize(width, height int) {
	r.config.Width, r.config.Height = width, height
	gl.Viewport(0, 0, int32(width), int32(height))
}

// Aspect returns the viewport aspect ratio.
func (r *Renderer) Aspect() float32 {
	if r.config.Height == 0 {
		return 1
	}
	return float32(r.config.Width) / float32(r.config.Height)
}

// Upload copies every vertex buffer of m to the GPU, replacing the previous
// model's buffers. Call it again after Evaluate to show a new pose.
func (r *Renderer) Upload(m *model.Model) {
	r.releaseBuffers()
	r.model = m

	for _, mesh := range m.Meshes {
		for _, vb := range mesh.VertexBuffers {
			if vb.VertexCount() == 0 {
				continue
			}
			r.buffers = append(r.buffers, upload(vb))
		}
	}

	logger.Debug("model uploaded",
		zap.Int("buffers", len(r.buffers)),
		zap.Int("vertices", m.VertexCount()),
	)
}

func upload(vb *model.VertexBuffer) *gpuBuffer {
	b := &gpuBuffer{count: int32(vb.VertexCount()), source: vb}

	gl.GenVertexArrays(1, &b.vao)
	gl.BindVertexArray(b.vao)

	gl.GenBuffers(1, &b.vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, b.vbo)
	gl.BufferData(gl.ARRAY_BUFFER, len(vb.Data)*4, gl.Ptr(vb.Data), gl.STATIC_DRAW)

	stride := int32(vb.Stride * 4)
	for _, a := range layout(vb) {
		gl.EnableVertexAttribArray(a.location)
		gl.VertexAttribPointerWithOffset(a.location, a.size, gl.FLOAT, false, stride, uintptr(a.offset*4))
	}

	gl.BindVertexArray(0)
	return b
}

// Clear clears the color and depth buffers.
func (r *Renderer) Clear() {
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)
}

// Draw renders the uploaded model with the given view-projection and model
// matrices.
func (r *Renderer) Draw(viewProj, world math.Mat4) error {
	if r.model == nil {
		return ErrNoModel
	}

	r.program.Use()
	r.program.SetMat4("uMVP", viewProj.Mul(world))
	r.program.SetMat4("uModel", world)
	r.program.SetVec3("uLightDir", lightDir)
	r.program.SetInt("uTexture", 0)

	for _, b := range r.buffers {
		vb := b.source
		applyCulling(vb.Culling)

		if vb.Material.Transparent {
			gl.Enable(gl.BLEND)
			gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)
		} else {
			gl.Disable(gl.BLEND)
		}

		tex := r.white
		if t, ok := vb.Material.Texture.(*Texture); ok && t != nil && vb.Format.Has(model.FormatTexCoords) {
			tex = t
		}
		gl.ActiveTexture(gl.TEXTURE0)
		gl.BindTexture(gl.TEXTURE_2D, tex.ID)

		r.program.SetBool("uHasNormals", vb.Format.Has(model.FormatNormals))
		r.program.SetBool("uHasColors", vb.Format.Has(model.FormatColors))
		r.program.SetColor("uColor", vb.Material.Color)

		gl.BindVertexArray(b.vao)
		gl.DrawArrays(gl.TRIANGLES, 0, b.count)
	}

	gl.BindVertexArray(0)
	return nil
}

func applyCulling(c model.Culling) {
	if c.Type == model.CullNone {
		gl.Disable(gl.CULL_FACE)
		return
	}
	gl.Enable(gl.CULL_FACE)
	gl.CullFace(cullFace(c.Type))
	if c.Face == model.FaceCW {
		gl.FrontFace(gl.CW)
	} else {
		gl.FrontFace(gl.CCW)
	}
}

func cullFace(t model.CullingType) uint32 {
	switch t {
	case model.CullFront:
		return gl.FRONT
	case model.CullBoth:
		return gl.FRONT_AND_BACK
	}
	return gl.BACK
}

func (r *Renderer) releaseBuffers() {
	for _, b := range r.buffers {
		gl.DeleteVertexArrays(1, &b.vao)
		gl.DeleteBuffers(1, &b.vbo)
	}
	r.buffers = nil
	r.model = nil
}

// Close releases all GPU resources owned by the renderer. Textures owned by
// the model are released by Model.Release.
func (r *Renderer) Close() {
	r.releaseBuffers()
	r.white.Close()
	r.program.Delete()
}

// ReadPixels returns the current framebuffer as bottom-up RGBA rows.
func (r *Renderer) ReadPixels() ([]byte, int, int) {
	w, h := r.config.Width, r.config.Height
	pixels := make([]byte, w*h*4)
	if len(pixels) == 0 {
		return pixels, w, h
	}
	gl.PixelStorei(gl.PACK_ALIGNMENT, 1)
	gl.ReadPixels(0, 0, int32(w), int32(h), gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(pixels))
	return pixels, w, h
}
