package boxes

import (
	"cullengine/internal/graphics"
	renderer "cullengine/internal/graphics/renderer"
	"cullengine/internal/profiling"
	"cullengine/internal/spatial"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"
)

// Colored is implemented by drawable facets that pick their own colour.
type Colored interface {
	Color() mgl32.Vec3
}

var (
	defaultColor = mgl32.Vec3{0.7, 0.7, 0.7}
	edgeColor    = mgl32.Vec3{0, 0, 0}
	groupColor   = mgl32.Vec3{0.2, 0.9, 0.3}
)

// faces indexes the unit cube as 12 triangles.
var faces = [36]uint8{
	0, 2, 1, 1, 2, 3, // -z
	4, 5, 6, 5, 7, 6, // +z
	0, 1, 4, 1, 5, 4, // -y
	2, 6, 3, 3, 6, 7, // +y
	0, 4, 2, 2, 4, 6, // -x
	1, 3, 5, 3, 7, 5, // +x
}

// Boxes draws the entries of the visible set as solid boxes with an
// outline, and optionally the bounds of every visible group.
type Boxes struct {
	shader *graphics.Shader
	vao    uint32
	vbo    uint32
	ebo    uint32

	ShowGroups bool
}

// NewBoxes creates a new box renderable
func NewBoxes() *Boxes {
	return &Boxes{}
}

// Init initializes the box rendering system
func (b *Boxes) Init() error {
	var err error
	b.shader, err = graphics.NewBoxShader()
	if err != nil {
		return err
	}
	b.setupVAO()
	return nil
}

func (b *Boxes) setupVAO() {
	vertices := graphics.UnitCubeVertices()

	indices := make([]uint8, 0, len(faces)+len(graphics.BoxEdges))
	indices = append(indices, faces[:]...)
	indices = append(indices, graphics.BoxEdges[:]...)

	gl.GenVertexArrays(1, &b.vao)
	gl.BindVertexArray(b.vao)

	gl.GenBuffers(1, &b.vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, b.vbo)
	gl.BufferData(gl.ARRAY_BUFFER, len(vertices)*4, gl.Ptr(vertices), gl.STATIC_DRAW)
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointerWithOffset(0, 3, gl.FLOAT, false, 3*4, 0)

	gl.GenBuffers(1, &b.ebo)
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, b.ebo)
	gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, len(indices), gl.Ptr(indices), gl.STATIC_DRAW)

	gl.BindVertexArray(0)
}

// Render draws the visible set of the context's camera.
func (b *Boxes) Render(ctx renderer.RenderContext) {
	if ctx.Visible == nil {
		return
	}
	defer profiling.Track("renderer.renderBoxes")()

	b.shader.Use()
	b.shader.SetMatrix4("proj", ctx.Proj)
	b.shader.SetMatrix4("view", ctx.View)
	gl.BindVertexArray(b.vao)
	gl.Disable(gl.CULL_FACE)

	for _, e := range ctx.Visible.Entries {
		min, max := e.Extents()
		b.shader.SetMatrix4("model", graphics.BoxModel(min, max))
		b.shader.SetVector3("color", entryColor(e))
		gl.DrawElementsWithOffset(gl.TRIANGLES, int32(len(faces)), gl.UNSIGNED_BYTE, 0)
		b.shader.SetVector3("color", edgeColor)
		b.drawEdges()
	}

	if b.ShowGroups {
		b.shader.SetVector3("color", groupColor)
		for _, g := range ctx.Visible.Groups {
			bounds := g.Bounds()
			b.shader.SetMatrix4("model", graphics.BoxModel(bounds.Min, bounds.Max))
			b.drawEdges()
		}
	}

	gl.Enable(gl.CULL_FACE)
	gl.BindVertexArray(0)
}

func (b *Boxes) drawEdges() {
	gl.DrawElementsWithOffset(gl.LINES, int32(len(graphics.BoxEdges)), gl.UNSIGNED_BYTE, uintptr(len(faces)))
}

func entryColor(e *spatial.Entry) mgl32.Vec3 {
	if c, ok := e.Facet(spatial.FacetDrawable).(Colored); ok {
		return c.Color()
	}
	return defaultColor
}

// Dispose cleans up OpenGL resources
func (b *Boxes) Dispose() {
	if b.vao != 0 {
		gl.DeleteVertexArrays(1, &b.vao)
	}
	if b.vbo != 0 {
		gl.DeleteBuffers(1, &b.vbo)
	}
	if b.ebo != 0 {
		gl.DeleteBuffers(1, &b.ebo)
	}
	if b.shader != nil {
		b.shader.Delete()
	}
}

// SetViewport is a no-op; boxes only depend on the camera matrices.
func (b *Boxes) SetViewport(width, height int) {}
