package renderer

import (
	"cullengine/internal/camera"
	"cullengine/internal/spatial"

	"github.com/go-gl/mathgl/mgl32"
)

// RenderContext is what every renderable sees for one camera pass.
type RenderContext struct {
	Camera  *camera.Camera
	Visible *spatial.VisibleSet
	DT      float64
	View    mgl32.Mat4
	Proj    mgl32.Mat4
}

// Renderable interface defines the lifecycle for renderable features
type Renderable interface {
	Init() error
	Render(ctx RenderContext)
	Dispose()
	SetViewport(width, height int)
}
