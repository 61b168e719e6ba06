package graphics

import (
	"strings"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"
)

const ErrTypeShader = "graphics_shader"

// Shader is a linked GL program.
type Shader struct {
	ID uint32
}

// NewShader compiles and links a program from GLSL sources.
func NewShader(vertexSrc, fragmentSrc string) (*Shader, error) {
	program, err := compileProgram(vertexSrc, fragmentSrc)
	if err != nil {
		return nil, err
	}
	return &Shader{ID: program}, nil
}

func (s *Shader) Use() {
	gl.UseProgram(s.ID)
}

func (s *Shader) SetVector3(name string, v mgl32.Vec3) {
	gl.Uniform3f(s.uniform(name), v[0], v[1], v[2])
}

func (s *Shader) SetMatrix4(name string, m mgl32.Mat4) {
	gl.UniformMatrix4fv(s.uniform(name), 1, false, &m[0])
}

func (s *Shader) Delete() {
	if s.ID != 0 {
		gl.DeleteProgram(s.ID)
		s.ID = 0
	}
}

func (s *Shader) uniform(name string) int32 {
	return gl.GetUniformLocation(s.ID, gl.Str(name+"\x00"))
}

func compileProgram(vertexSrc, fragmentSrc string) (uint32, error) {
	vertexShader, err := compileShader(vertexSrc, gl.VERTEX_SHADER)
	if err != nil {
		return 0, err
	}
	fragmentShader, err := compileShader(fragmentSrc, gl.FRAGMENT_SHADER)
	if err != nil {
		gl.DeleteShader(vertexShader)
		return 0, err
	}

	program := gl.CreateProgram()
	gl.AttachShader(program, vertexShader)
	gl.AttachShader(program, fragmentShader)
	gl.LinkProgram(program)
	gl.DeleteShader(vertexShader)
	gl.DeleteShader(fragmentShader)

	var status int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &logLength)

		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetProgramInfoLog(program, logLength, nil, gl.Str(log))
		gl.DeleteProgram(program)

		return 0, errors.New("linking program failed").
			WithType(ErrTypeShader).
			WithTag("log", strings.TrimRight(log, "\x00"))
	}
	return program, nil
}

func compileShader(source string, shaderType uint32) (uint32, error) {
	shader := gl.CreateShader(shaderType)
	csources, free := gl.Strs(source + "\x00")
	gl.ShaderSource(shader, 1, csources, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLength)

		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetShaderInfoLog(shader, logLength, nil, gl.Str(log))
		gl.DeleteShader(shader)

		return 0, errors.New("compiling shader failed").
			WithType(ErrTypeShader).
			WithTag("shader_type", shaderType).
			WithTag("log", strings.TrimRight(log, "\x00"))
	}
	return shader, nil
}

// Box programs draw a unit cube stretched by the model matrix in a flat
// color. Both the occlusion queries and the viewer boxes use them.
const boxVertexShader = `#version 410 core
layout (location = 0) in vec3 aPos;

uniform mat4 proj;
uniform mat4 view;
uniform mat4 model;

void main() {
	gl_Position = proj * view * model * vec4(aPos, 1.0);
}
`

const boxFragmentShader = `#version 410 core
out vec4 FragColor;

uniform vec3 color;

void main() {
	FragColor = vec4(color, 1.0);
}
`

// NewBoxShader builds the flat-colour program shared by box drawing and
// occlusion queries. It expects proj, view, model and color uniforms.
func NewBoxShader() (*Shader, error) {
	return NewShader(boxVertexShader, boxFragmentShader)
}

// BoxEdges indexes unitCube as 12 line segments.
var BoxEdges = [24]uint8{
	0, 1, 2, 3, 4, 5, 6, 7,
	0, 2, 1, 3, 4, 6, 5, 7,
	0, 4, 1, 5, 2, 6, 3, 7,
}

// UnitCubeVertices returns a copy of the unit cube corner positions.
func UnitCubeVertices() []float32 {
	out := make([]float32, len(unitCube))
	copy(out, unitCube[:])
	return out
}

// unitCube holds the corners of [0,1]^3 in the order of geom.AABB.Corners.
var unitCube = [8 * 3]float32{
	0, 0, 0,
	1, 0, 0,
	0, 1, 0,
	1, 1, 0,
	0, 0, 1,
	1, 0, 1,
	0, 1, 1,
	1, 1, 1,
}

// BoxModel maps the unit cube onto min..max.
func BoxModel(min, max mgl32.Vec3) mgl32.Mat4 {
	size := max.Sub(min)
	return mgl32.Translate3D(min[0], min[1], min[2]).
		Mul4(mgl32.Scale3D(size[0], size[1], size[2]))
}
