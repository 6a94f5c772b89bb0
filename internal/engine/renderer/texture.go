package renderer

import (
	"image"

	"github.com/go-gl/gl/v4.1-core/gl"
)

// Texture is an OpenGL texture. It satisfies model.Texture and io.Closer,
// so a model built with a GL texture loader releases it with the model.
type Texture struct {
	ID            uint32
	Width, Height int
}

// NewTexture uploads img as a mipmapped RGBA texture.
func NewTexture(img *image.NRGBA) *Texture {
	b := img.Bounds()
	t := &Texture{Width: b.Dx(), Height: b.Dy()}

	gl.GenTextures(1, &t.ID)
	gl.BindTexture(gl.TEXTURE_2D, t.ID)
	gl.PixelStorei(gl.UNPACK_ROW_LENGTH, int32(img.Stride/4))
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA8, int32(t.Width), int32(t.Height), 0,
		gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(img.Pix))
	gl.PixelStorei(gl.UNPACK_ROW_LENGTH, 0)
	gl.GenerateMipmap(gl.TEXTURE_2D)

	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.REPEAT)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.REPEAT)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR_MIPMAP_LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.BindTexture(gl.TEXTURE_2D, 0)
	return t
}

func newSolidTexture(r, g, b, a uint8) *Texture {
	img := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	copy(img.Pix, []uint8{r, g, b, a})
	return NewTexture(img)
}

// Size returns the texture dimensions in pixels.
func (t *Texture) Size() (int, int) {
	return t.Width, t.Height
}

// Close deletes the GL texture. It is safe to call more than once.
func (t *Texture) Close() error {
	if t.ID != 0 {
		gl.DeleteTextures(1, &t.ID)
		t.ID = 0
	}
	return nil
}
