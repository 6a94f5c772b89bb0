package preview

import "github.com/chewxy/math32"

// frameBuffer holds the render target as flat slices.
type frameBuffer struct {
	width  int
	height int
	color  []uint8   // NRGBA interleaved, len = w*h*4
	depth  []float32 // Larger is closer, initialized to -inf
}

func newFrameBuffer(w, h int) *frameBuffer {
	depth := make([]float32, w*h)
	for i := range depth {
		depth[i] = math32.Inf(-1)
	}
	return &frameBuffer{
		width:  w,
		height: h,
		color:  make([]uint8, w*h*4),
		depth:  depth,
	}
}

// test reports whether z passes the depth test at (x, y) and stores it.
func (fb *frameBuffer) test(x, y int, z float32) bool {
	i := y*fb.width + x
	if z <= fb.depth[i] {
		return false
	}
	fb.depth[i] = z
	return true
}

func (fb *frameBuffer) set(x, y int, r, g, b, a uint8) {
	i := (y*fb.width + x) * 4
	fb.color[i] = r
	fb.color[i+1] = g
	fb.color[i+2] = b
	fb.color[i+3] = a
}
