package graphics

import (
	"cullengine/internal/geom"
	"cullengine/internal/occlusion"
	"cullengine/internal/profiling"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"
)

// QueryBackend runs occlusion queries with GL_ANY_SAMPLES_PASSED. Boxes are
// drawn as the camera-facing fan into the depth buffer only, so queries
// must be issued after the opaque pass and between Begin and End.
type QueryBackend struct {
	shader *Shader
	vao    uint32
	vbo    uint32
	ebo    uint32

	// GL query object per handle, created on first use
	ids map[occlusion.Handle]uint32

	issued uint64
}

// NewQueryBackend creates the GL objects. A context must be current.
func NewQueryBackend() (*QueryBackend, error) {
	shader, err := NewBoxShader()
	if err != nil {
		return nil, err
	}
	b := &QueryBackend{
		shader: shader,
		ids:    make(map[occlusion.Handle]uint32),
	}

	var indices [8 * occlusion.FanLength]uint8
	for oct := 0; oct < 8; oct++ {
		fan := occlusion.FanFor(oct)
		copy(indices[oct*occlusion.FanLength:], fan[:])
	}

	gl.GenVertexArrays(1, &b.vao)
	gl.BindVertexArray(b.vao)

	gl.GenBuffers(1, &b.vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, b.vbo)
	gl.BufferData(gl.ARRAY_BUFFER, len(unitCube)*4, gl.Ptr(&unitCube[0]), gl.STATIC_DRAW)
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointerWithOffset(0, 3, gl.FLOAT, false, 3*4, 0)

	gl.GenBuffers(1, &b.ebo)
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, b.ebo)
	gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, len(indices), gl.Ptr(&indices[0]), gl.STATIC_DRAW)

	gl.BindVertexArray(0)
	return b, nil
}

// Begin sets up depth-only drawing for a batch of queries.
func (b *QueryBackend) Begin(view, proj mgl32.Mat4) {
	gl.ColorMask(false, false, false, false)
	gl.DepthMask(false)
	gl.Disable(gl.CULL_FACE)

	b.shader.Use()
	b.shader.SetMatrix4("proj", proj)
	b.shader.SetMatrix4("view", view)
	gl.BindVertexArray(b.vao)
}

// End restores the state Begin changed.
func (b *QueryBackend) End() {
	gl.BindVertexArray(0)
	gl.Enable(gl.CULL_FACE)
	gl.DepthMask(true)
	gl.ColorMask(true, true, true, true)
}

// Issue implements occlusion.Backend.
func (b *QueryBackend) Issue(h occlusion.Handle, box geom.AABB, fan occlusion.Fan) {
	defer profiling.Track("graphics.IssueQuery")()

	id, ok := b.ids[h]
	if !ok {
		gl.GenQueries(1, &id)
		b.ids[h] = id
	}

	b.shader.SetMatrix4("model", BoxModel(box.Min, box.Max))

	// the first index of every fan is its octant
	offset := uintptr(fan[0]) * uintptr(occlusion.FanLength)
	gl.BeginQuery(gl.ANY_SAMPLES_PASSED, id)
	gl.DrawElementsWithOffset(gl.TRIANGLE_FAN, int32(occlusion.FanLength), gl.UNSIGNED_BYTE, offset)
	gl.EndQuery(gl.ANY_SAMPLES_PASSED)
	b.issued++
}

// Result implements occlusion.Backend. It never stalls the pipeline.
func (b *QueryBackend) Result(h occlusion.Handle) (uint32, bool) {
	id, ok := b.ids[h]
	if !ok {
		// nothing was issued on h, treat it as visible
		return 1, true
	}
	var available uint32
	gl.GetQueryObjectuiv(id, gl.QUERY_RESULT_AVAILABLE, &available)
	if available == gl.FALSE {
		return 0, false
	}
	var samples uint32
	gl.GetQueryObjectuiv(id, gl.QUERY_RESULT, &samples)
	return samples, true
}

// Delete implements occlusion.Backend.
func (b *QueryBackend) Delete(h occlusion.Handle) {
	id, ok := b.ids[h]
	if !ok {
		return
	}
	gl.DeleteQueries(1, &id)
	delete(b.ids, h)
}

// Issued returns the number of queries issued since creation.
func (b *QueryBackend) Issued() uint64 { return b.issued }

// Dispose frees every GL object owned by the backend.
func (b *QueryBackend) Dispose() {
	for h := range b.ids {
		b.Delete(h)
	}
	if b.vao != 0 {
		gl.DeleteVertexArrays(1, &b.vao)
	}
	if b.vbo != 0 {
		gl.DeleteBuffers(1, &b.vbo)
	}
	if b.ebo != 0 {
		gl.DeleteBuffers(1, &b.ebo)
	}
	b.shader.Delete()
}
