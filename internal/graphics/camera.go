package graphics

import "github.com/go-gl/mathgl/mgl32"

// Lens holds the projection parameters of the viewer window.
type Lens struct {
	AspectRatio float32
	FOV         float32
	NearPlane   float32
	FarPlane    float32
}

func NewLens(width, height int) *Lens {
	l := &Lens{
		FOV:       70.0,
		NearPlane: 0.1,
		FarPlane:  2000.0,
	}
	l.SetViewport(width, height)
	return l
}

func (l *Lens) SetViewport(width, height int) {
	if height <= 0 {
		height = 1
	}
	l.AspectRatio = float32(width) / float32(height)
}

func (l *Lens) ProjectionMatrix() mgl32.Mat4 {
	return mgl32.Perspective(mgl32.DegToRad(l.FOV), l.AspectRatio, l.NearPlane, l.FarPlane)
}

// ProjectionMatrixFor returns the projection for a sub-viewport, such as
// one eye of a side-by-side stereo pair.
func (l *Lens) ProjectionMatrixFor(width, height int) mgl32.Mat4 {
	if height <= 0 {
		height = 1
	}
	return mgl32.Perspective(mgl32.DegToRad(l.FOV), float32(width)/float32(height), l.NearPlane, l.FarPlane)
}
