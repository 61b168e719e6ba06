package camera

import (
	"cullengine/internal/geom"
	"cullengine/internal/visibility"

	"github.com/go-gl/mathgl/mgl32"
)

// Camera is one viewpoint the culler walks the tree for.
type Camera struct {
	Slot    visibility.Slot
	Origin  mgl32.Vec3
	View    mgl32.Mat4
	Proj    mgl32.Mat4
	Frustum geom.Frustum
}

// New creates a camera on slot from projection and view matrices.
func New(slot visibility.Slot, proj, view mgl32.Mat4) *Camera {
	c := &Camera{Slot: slot}
	c.Update(proj, view)
	return c
}

// Update recomputes origin and frustum planes for new matrices.
func (c *Camera) Update(proj, view mgl32.Mat4) {
	c.Proj = proj
	c.View = view
	c.Origin = view.Inv().Col(3).Vec3()
	c.Frustum = geom.ExtractFrustum(proj.Mul4(view))
}

// Forward returns the normalized viewing direction in world space.
func (c *Camera) Forward() mgl32.Vec3 {
	// third row of the view rotation is the camera's +z axis
	return mgl32.Vec3{-c.View[2], -c.View[6], -c.View[10]}.Normalize()
}

// NewStereoPair builds left and right eye cameras around a head view, each
// offset by half the interpupillary distance along the head's right axis.
func NewStereoPair(proj, head mgl32.Mat4, ipd float32) (left, right *Camera) {
	left = New(visibility.SlotLeftEye, proj, EyeView(head, -ipd/2))
	right = New(visibility.SlotRightEye, proj, EyeView(head, ipd/2))
	return left, right
}

// EyeView shifts a head view matrix sideways by offset in eye space.
// Negative offsets move the eye to the left.
func EyeView(head mgl32.Mat4, offset float32) mgl32.Mat4 {
	return mgl32.Translate3D(-offset, 0, 0).Mul4(head)
}
