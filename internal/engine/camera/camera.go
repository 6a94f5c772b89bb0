// Package camera provides the orbit camera used to inspect models.
package camera

import (
	"github.com/chewxy/math32"

	"github.com/Faultbox/mhx2/internal/engine/model"
	"github.com/Faultbox/mhx2/pkg/math"
)

// FieldOfView is the vertical field of view in radians.
const FieldOfView = math32.Pi / 4

// OrbitCamera orbits around a center point.
type OrbitCamera struct {
	// Center point to orbit around
	Center math.Vec3
	// Radius of the framed object, sets the clip planes
	Radius float32

	// Spherical coordinates
	Distance  float32 // Distance from center
	RotationX float32 // Pitch (vertical angle, radians)
	RotationY float32 // Yaw (horizontal angle, radians)

	// Constraints
	MinDistance float32
	MaxDistance float32
	MinPitch    float32
	MaxPitch    float32

	// Sensitivity
	DragSensitivity float32
	ZoomSensitivity float32
}

// NewOrbitCamera creates a camera looking at the origin from +Z.
func NewOrbitCamera() *OrbitCamera {
	return &OrbitCamera{
		Radius:          1,
		Distance:        3,
		MinDistance:     0.1,
		MaxDistance:     100,
		MinPitch:        -1.5,
		MaxPitch:        1.5,
		DragSensitivity: 0.005,
		ZoomSensitivity: 0.1,
	}
}

// Position returns the camera position in world space.
func (c *OrbitCamera) Position() math.Vec3 {
	sinX, cosX := math32.Sincos(c.RotationX)
	sinY, cosY := math32.Sincos(c.RotationY)

	return c.Center.Add(math.Vec3{
		X: c.Distance * cosX * sinY,
		Y: c.Distance * sinX,
		Z: c.Distance * cosX * cosY,
	})
}

// ViewMatrix returns the view matrix for this camera.
func (c *OrbitCamera) ViewMatrix() math.Mat4 {
	return math.LookAt(c.Position(), c.Center, math.Vec3{Y: 1})
}

// ProjectionMatrix returns a perspective projection whose clip planes
// enclose the framed radius.
func (c *OrbitCamera) ProjectionMatrix(aspect float32) math.Mat4 {
	near := max(c.Distance-c.Radius*2, c.Distance*0.01)
	far := c.Distance + c.Radius*2
	return math.Perspective(FieldOfView, aspect, near, far)
}

// ViewProjection returns projection times view.
func (c *OrbitCamera) ViewProjection(aspect float32) math.Mat4 {
	return c.ProjectionMatrix(aspect).Mul(c.ViewMatrix())
}

// Rotate advances the yaw, wrapping at a full turn.
func (c *OrbitCamera) Rotate(delta float32) {
	c.RotationY = math32.Mod(c.RotationY+delta, 2*math32.Pi)
}

// HandleDrag updates rotation based on mouse drag delta.
func (c *OrbitCamera) HandleDrag(deltaX, deltaY float32) {
	c.RotationY -= deltaX * c.DragSensitivity
	c.RotationX += deltaY * c.DragSensitivity
	c.RotationX = min(max(c.RotationX, c.MinPitch), c.MaxPitch)
}

// HandleZoom updates distance based on scroll wheel delta.
func (c *OrbitCamera) HandleZoom(delta float32) {
	c.Distance -= delta * c.Distance * c.ZoomSensitivity
	c.Distance = min(max(c.Distance, c.MinDistance), c.MaxDistance)
}

// FitToBounds centers the camera on b. A factor of 1 just fits the
// bounding sphere in the view; empty bounds keep the current framing.
func (c *OrbitCamera) FitToBounds(b model.Bounds, factor float32) {
	if b.Empty() {
		return
	}
	if factor <= 0 {
		factor = 1
	}

	c.Center = b.Center()
	c.Radius = max(b.Size().Length()/2, 1e-3)

	fit := c.Radius / math32.Sin(FieldOfView/2)
	c.Distance = fit * factor
	c.MinDistance = c.Radius * 0.1
	c.MaxDistance = fit * 20

	c.RotationX = 0
	c.RotationY = 0
}
