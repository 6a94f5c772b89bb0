package renderer

import "github.com/Faultbox/mhx2/internal/engine/model"

// Attribute locations bound in the model shader.
const (
	locPosition uint32 = 0
	locNormal   uint32 = 1
	locTexCoord uint32 = 2
	locColor    uint32 = 3
)

// attribute is one interleaved vertex attribute, offset in floats.
type attribute struct {
	location uint32
	size     int32
	offset   int
}

// layout returns the enabled attributes of vb in interleaved order.
func layout(vb *model.VertexBuffer) []attribute {
	attrs := []attribute{{location: locPosition, size: 3, offset: 0}}
	if off := vb.NormalOffset(); off >= 0 {
		attrs = append(attrs, attribute{location: locNormal, size: 3, offset: off})
	}
	if off := vb.TexCoordOffset(); off >= 0 {
		attrs = append(attrs, attribute{location: locTexCoord, size: 2, offset: off})
	}
	if off := vb.ColorOffset(); off >= 0 {
		attrs = append(attrs, attribute{location: locColor, size: 4, offset: off})
	}
	return attrs
}
