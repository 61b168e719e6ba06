package renderer

import (
	"cullengine/internal/camera"
	"cullengine/internal/graphics"
	"cullengine/internal/profiling"
	"cullengine/internal/spatial"

	"github.com/go-gl/gl/v4.1-core/gl"
)

// Renderer orchestrates rendering via renderable features
type Renderer struct {
	renderables []Renderable
	lens        *graphics.Lens
	width       int
	height      int
}

// NewRenderer creates a new renderer with the given renderables
func NewRenderer(width, height int, rs ...Renderable) (*Renderer, error) {
	gl.Enable(gl.DEPTH_TEST)
	gl.Enable(gl.CULL_FACE)
	gl.CullFace(gl.BACK)
	gl.FrontFace(gl.CCW)

	r := &Renderer{
		renderables: rs,
		lens:        graphics.NewLens(width, height),
		width:       width,
		height:      height,
	}
	for _, rr := range rs {
		if err := rr.Init(); err != nil {
			r.Dispose()
			return nil, err
		}
		rr.SetViewport(width, height)
	}
	return r, nil
}

// Clear clears the whole framebuffer. Call once per frame.
func (r *Renderer) Clear() {
	gl.Viewport(0, 0, int32(r.width), int32(r.height))
	gl.ClearColor(0.08, 0.09, 0.11, 1.0)
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)
}

// Render draws one camera pass into the given viewport rectangle.
func (r *Renderer) Render(cam *camera.Camera, set *spatial.VisibleSet, x, y, w, h int, dt float64) {
	defer profiling.Track("renderer.Render")()

	gl.Viewport(int32(x), int32(y), int32(w), int32(h))
	ctx := RenderContext{
		Camera:  cam,
		Visible: set,
		DT:      dt,
		View:    cam.View,
		Proj:    cam.Proj,
	}
	for _, renderable := range r.renderables {
		renderable.Render(ctx)
	}
}

// Dispose cleans up all renderables in reverse order
func (r *Renderer) Dispose() {
	for i := len(r.renderables) - 1; i >= 0; i-- {
		r.renderables[i].Dispose()
	}
}

// Lens returns the projection parameters for the window.
func (r *Renderer) Lens() *graphics.Lens {
	return r.lens
}

// UpdateViewport updates the framebuffer size.
func (r *Renderer) UpdateViewport(width, height int) {
	r.width, r.height = width, height
	r.lens.SetViewport(width, height)
	for _, rr := range r.renderables {
		rr.SetViewport(width, height)
	}
}
