package geom

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Plane is ax + by + cz + d = 0 with the normal pointing into the frustum.
type Plane struct {
	A, B, C, D float32
}

// Distance returns the signed distance of p from the plane.
func (p Plane) Distance(v mgl32.Vec3) float32 {
	return p.A*v[0] + p.B*v[1] + p.C*v[2] + p.D
}

// Frustum holds six planes in order: left, right, bottom, top, near, far.
type Frustum [6]Plane

// ExtractFrustum builds the six planes from the combined projection*view matrix.
func ExtractFrustum(clip mgl32.Mat4) Frustum {
	// mgl32 is column-major: row r is clip[r], clip[r+4], clip[r+8], clip[r+12]
	row := func(r int) [4]float32 {
		return [4]float32{clip[r], clip[r+4], clip[r+8], clip[r+12]}
	}
	r0, r1, r2, r3 := row(0), row(1), row(2), row(3)
	combine := func(a, b [4]float32, sign float32) Plane {
		return normalizePlane(Plane{
			A: a[0] + sign*b[0],
			B: a[1] + sign*b[1],
			C: a[2] + sign*b[2],
			D: a[3] + sign*b[3],
		})
	}

	return Frustum{
		combine(r3, r0, 1),  // left
		combine(r3, r0, -1), // right
		combine(r3, r1, 1),  // bottom
		combine(r3, r1, -1), // top
		combine(r3, r2, 1),  // near
		combine(r3, r2, -1), // far
	}
}

func normalizePlane(p Plane) Plane {
	l := float32(math.Sqrt(float64(p.A*p.A + p.B*p.B + p.C*p.C)))
	if l == 0 {
		return p
	}
	return Plane{p.A / l, p.B / l, p.C / l, p.D / l}
}

// TestAABB classifies a box against the frustum using the positive and
// negative vertex of every plane.
func (f *Frustum) TestAABB(b AABB) Intersection {
	result := Contains
	for i := range f {
		p := &f[i]

		px, nx := b.Max[0], b.Min[0]
		if p.A < 0 {
			px, nx = nx, px
		}
		py, ny := b.Max[1], b.Min[1]
		if p.B < 0 {
			py, ny = ny, py
		}
		pz, nz := b.Max[2], b.Min[2]
		if p.C < 0 {
			pz, nz = nz, pz
		}

		if p.A*px+p.B*py+p.C*pz+p.D < 0 {
			return Outside
		}
		if p.A*nx+p.B*ny+p.C*nz+p.D < 0 {
			result = Intersects
		}
	}
	return result
}

// IntersectsAABB is TestAABB without the containment classification.
func (f *Frustum) IntersectsAABB(b AABB) bool {
	for i := range f {
		p := &f[i]
		px := b.Max[0]
		if p.A < 0 {
			px = b.Min[0]
		}
		py := b.Max[1]
		if p.B < 0 {
			py = b.Min[1]
		}
		pz := b.Max[2]
		if p.C < 0 {
			pz = b.Min[2]
		}
		if p.A*px+p.B*py+p.C*pz+p.D < 0 {
			return false
		}
	}
	return true
}

// ContainsPoint reports whether v is on the inner side of every plane.
func (f *Frustum) ContainsPoint(v mgl32.Vec3) bool {
	for i := range f {
		if f[i].Distance(v) < 0 {
			return false
		}
	}
	return true
}
