// Package preview renders built models to images without a GPU.
package preview

import (
	"image"
	"image/color"

	"github.com/chewxy/math32"

	"github.com/Faultbox/mhx2/internal/engine/model"
	"github.com/Faultbox/mhx2/pkg/math"
)

// Margin is the empty border around the model, in pixels.
const Margin = 8

// Shading constants for the single directional light.
const (
	ambient = 0.35
	direct  = 0.65
)

var lightDir = math.Vec3{X: 0.3, Y: 0.5, Z: 1}.Normalize()

// Render draws m into a size x size image: an orthographic front view down
// the -Z axis, fit to the model bounds, with flat shaded depth tested
// triangles. Vertex colors and image textures are used when present.
// Pixels not covered by the model stay transparent.
func Render(m *model.Model, size int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, size, size))
	if m == nil || size <= 0 {
		return img
	}

	bounds := m.Bounds()
	if bounds.Empty() {
		return img
	}

	ext := bounds.Size()
	span := math32.Max(ext.X, ext.Y)
	if span < 1e-6 {
		span = 1e-6
	}
	avail := float32(size - 2*Margin)
	if avail < 1 {
		avail = float32(size)
	}

	v := view{
		center: bounds.Center(),
		scale:  avail / span,
		half:   float32(size) / 2,
	}

	fb := newFrameBuffer(size, size)
	for _, mesh := range m.Meshes {
		for _, vb := range mesh.VertexBuffers {
			drawBuffer(fb, vb, v)
		}
	}

	copy(img.Pix, fb.color)
	return img
}

type view struct {
	center math.Vec3
	scale  float32
	half   float32
}

// project maps a model position to pixel coordinates and depth.
func (v view) project(p math.Vec3) math.Vec3 {
	return math.Vec3{
		X: (p.X-v.center.X)*v.scale + v.half,
		Y: v.half - (p.Y-v.center.Y)*v.scale,
		Z: p.Z - v.center.Z,
	}
}

func drawBuffer(fb *frameBuffer, vb *model.VertexBuffer, v view) {
	var tex sampler
	if s, ok := vb.Material.Texture.(sampler); ok && vb.Format.Has(model.FormatTexCoords) {
		tex = s
	}

	count := vb.VertexCount()
	for t := 0; t+2 < count; t += 3 {
		p0, p1, p2 := vb.Position(t), vb.Position(t+1), vb.Position(t+2)

		normal := p1.Sub(p0).Cross(p2.Sub(p0)).Normalize()
		shade := float32(ambient) + direct*math32.Abs(normal.Dot(lightDir))

		tri := triangle{
			p:     [3]math.Vec3{v.project(p0), v.project(p1), v.project(p2)},
			c:     [3]math.Color{vb.Color(t), vb.Color(t + 1), vb.Color(t + 2)},
			uv:    [3]math.Vec2{vb.TexCoord(t), vb.TexCoord(t + 1), vb.TexCoord(t + 2)},
			shade: shade,
			tex:   tex,
		}
		tri.draw(fb)
	}
}

// sampler is implemented by textures backed by an NRGBA image, such as
// *texture.Image.
type sampler interface {
	Bounds() image.Rectangle
	NRGBAAt(x, y int) color.NRGBA
}
