package math

// Color is a linear RGBA color with components in [0, 1].
type Color struct {
	R, G, B, A float32
}

// White is opaque white, the default for every material color.
var White = Color{1, 1, 1, 1}

// Array returns the channels as an array.
func (c Color) Array() [4]float32 {
	return [4]float32{c.R, c.G, c.B, c.A}
}

// RGBA8 returns the color quantized to 8-bit channels, clamping out of
// range values.
func (c Color) RGBA8() (r, g, b, a uint8) {
	return quantize(c.R), quantize(c.G), quantize(c.B), quantize(c.A)
}

func quantize(v float32) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 1:
		return 255
	default:
		return uint8(v*255 + 0.5)
	}
}
