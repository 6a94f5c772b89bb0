package preview

import (
	"image/color"

	"github.com/chewxy/math32"

	"github.com/Faultbox/mhx2/pkg/math"
)

type triangle struct {
	p     [3]math.Vec3 // Pixel x, y and depth
	c     [3]math.Color
	uv    [3]math.Vec2
	shade float32
	tex   sampler // nil for untextured
}

func edge(a, b math.Vec3, x, y float32) float32 {
	return (b.X-a.X)*(y-a.Y) - (b.Y-a.Y)*(x-a.X)
}

// draw rasterizes the triangle with pixel-center sampling. Both windings
// are drawn.
func (t *triangle) draw(fb *frameBuffer) {
	a, b, c := t.p[0], t.p[1], t.p[2]
	area := edge(a, b, c.X, c.Y)
	if math32.Abs(area) < 1e-12 {
		return
	}

	minX := max(0, int(math32.Floor(min(a.X, b.X, c.X))))
	maxX := min(fb.width-1, int(math32.Ceil(max(a.X, b.X, c.X))))
	minY := max(0, int(math32.Floor(min(a.Y, b.Y, c.Y))))
	maxY := min(fb.height-1, int(math32.Ceil(max(a.Y, b.Y, c.Y))))

	for y := minY; y <= maxY; y++ {
		py := float32(y) + 0.5
		for x := minX; x <= maxX; x++ {
			px := float32(x) + 0.5

			w0 := edge(b, c, px, py) / area
			w1 := edge(c, a, px, py) / area
			w2 := edge(a, b, px, py) / area
			if w0 < 0 || w1 < 0 || w2 < 0 {
				continue
			}

			z := w0*a.Z + w1*b.Z + w2*c.Z
			if !fb.test(x, y, z) {
				continue
			}

			col := t.color(w0, w1, w2)
			r, g, bl, al := col.RGBA8()
			fb.set(x, y, r, g, bl, al)
		}
	}
}

// color interpolates the vertex colors, modulates by the texture and
// applies the face shade. Alpha is not shaded.
func (t *triangle) color(w0, w1, w2 float32) math.Color {
	lerp := func(f func(math.Color) float32) float32 {
		return w0*f(t.c[0]) + w1*f(t.c[1]) + w2*f(t.c[2])
	}
	col := math.Color{
		R: lerp(func(c math.Color) float32 { return c.R }),
		G: lerp(func(c math.Color) float32 { return c.G }),
		B: lerp(func(c math.Color) float32 { return c.B }),
		A: lerp(func(c math.Color) float32 { return c.A }),
	}

	if t.tex != nil {
		u := w0*t.uv[0].X + w1*t.uv[1].X + w2*t.uv[2].X
		v := w0*t.uv[0].Y + w1*t.uv[1].Y + w2*t.uv[2].Y
		s := sample(t.tex, u, v)
		col.R *= float32(s.R) / 255
		col.G *= float32(s.G) / 255
		col.B *= float32(s.B) / 255
		col.A *= float32(s.A) / 255
	}

	col.R *= t.shade
	col.G *= t.shade
	col.B *= t.shade
	return col
}

// sample does a nearest lookup with wrapping. V points up, as in MHX2 UVs.
func sample(tex sampler, u, v float32) color.NRGBA {
	b := tex.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return color.NRGBA{255, 255, 255, 255}
	}
	u -= math32.Floor(u)
	v -= math32.Floor(v)
	x := min(w-1, int(u*float32(w)))
	y := min(h-1, int((1-v)*float32(h)))
	return tex.NRGBAAt(b.Min.X+x, b.Min.Y+y)
}
