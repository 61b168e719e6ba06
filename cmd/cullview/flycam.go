package main

import (
	"math"

	"cullengine/internal/input"

	"github.com/go-gl/mathgl/mgl32"
)

// FlyCamera is a free-flying head pose driven by mouse look and the
// movement actions.
type FlyCamera struct {
	Position mgl32.Vec3
	Yaw      float64
	Pitch    float64
	Speed    float32

	firstMouse bool
	lastX      float64
	lastY      float64
}

func NewFlyCamera(pos mgl32.Vec3) *FlyCamera {
	return &FlyCamera{
		Position:   pos,
		Yaw:        -90,
		Speed:      12,
		firstMouse: true,
	}
}

// HandleMouseMovement turns the camera by the cursor delta.
func (c *FlyCamera) HandleMouseMovement(xpos, ypos float64) {
	if c.firstMouse {
		c.lastX, c.lastY = xpos, ypos
		c.firstMouse = false
		return
	}

	const sensitivity = 0.1
	c.Yaw += (xpos - c.lastX) * sensitivity
	c.Pitch += (c.lastY - ypos) * sensitivity
	c.lastX, c.lastY = xpos, ypos

	c.Pitch = math.Max(-89, math.Min(89, c.Pitch))
}

// ResetMouse makes the next cursor event a reference point only.
func (c *FlyCamera) ResetMouse() { c.firstMouse = true }

func (c *FlyCamera) Front() mgl32.Vec3 {
	y := mgl32.DegToRad(float32(c.Yaw))
	p := mgl32.DegToRad(float32(c.Pitch))
	return mgl32.Vec3{
		float32(math.Cos(float64(y)) * math.Cos(float64(p))),
		float32(math.Sin(float64(p))),
		float32(math.Sin(float64(y)) * math.Cos(float64(p))),
	}.Normalize()
}

// Update moves the camera for dt seconds of held movement actions.
func (c *FlyCamera) Update(dt float64, im *input.InputManager) {
	front := c.Front()
	right := front.Cross(mgl32.Vec3{0, 1, 0}).Normalize()
	up := mgl32.Vec3{0, 1, 0}

	var dir mgl32.Vec3
	for _, m := range []struct {
		action input.Action
		v      mgl32.Vec3
	}{
		{input.ActionMoveForward, front},
		{input.ActionMoveBackward, front.Mul(-1)},
		{input.ActionMoveRight, right},
		{input.ActionMoveLeft, right.Mul(-1)},
		{input.ActionMoveUp, up},
		{input.ActionMoveDown, up.Mul(-1)},
	} {
		if im.IsActive(m.action) {
			dir = dir.Add(m.v)
		}
	}
	if dir.Len() == 0 {
		return
	}

	speed := c.Speed
	if im.IsActive(input.ActionFast) {
		speed *= 4
	}
	c.Position = c.Position.Add(dir.Normalize().Mul(speed * float32(dt)))
}

// ViewMatrix returns the head view matrix.
func (c *FlyCamera) ViewMatrix() mgl32.Mat4 {
	return mgl32.LookAtV(c.Position, c.Position.Add(c.Front()), mgl32.Vec3{0, 1, 0})
}
