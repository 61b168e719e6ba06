package geom

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// AABB is an axis-aligned bounding box in world space.
type AABB struct {
	Min mgl32.Vec3
	Max mgl32.Vec3
}

// EmptyAABB returns an inverted box that any Union or ExtendPoint replaces.
func EmptyAABB() AABB {
	inf := float32(math.Inf(1))
	return AABB{
		Min: mgl32.Vec3{inf, inf, inf},
		Max: mgl32.Vec3{-inf, -inf, -inf},
	}
}

// NewAABB builds a box from two arbitrary corners.
func NewAABB(a, b mgl32.Vec3) AABB {
	return AABB{
		Min: mgl32.Vec3{min(a[0], b[0]), min(a[1], b[1]), min(a[2], b[2])},
		Max: mgl32.Vec3{max(a[0], b[0]), max(a[1], b[1]), max(a[2], b[2])},
	}
}

// FromCenterHalf builds a box from its center and half extent.
func FromCenterHalf(center, half mgl32.Vec3) AABB {
	return AABB{Min: center.Sub(half), Max: center.Add(half)}
}

// IsEmpty reports whether the box is inverted on any axis.
func (b AABB) IsEmpty() bool {
	return b.Min[0] > b.Max[0] || b.Min[1] > b.Max[1] || b.Min[2] > b.Max[2]
}

func (b AABB) Center() mgl32.Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

func (b AABB) HalfExtent() mgl32.Vec3 {
	return b.Max.Sub(b.Min).Mul(0.5)
}

// MaxHalfExtent returns the largest half extent over the three axes.
func (b AABB) MaxHalfExtent() float32 {
	h := b.HalfExtent()
	return max(h[0], h[1], h[2])
}

// Union returns the component-wise min/max of both boxes.
func (b AABB) Union(o AABB) AABB {
	return AABB{
		Min: mgl32.Vec3{min(b.Min[0], o.Min[0]), min(b.Min[1], o.Min[1]), min(b.Min[2], o.Min[2])},
		Max: mgl32.Vec3{max(b.Max[0], o.Max[0]), max(b.Max[1], o.Max[1]), max(b.Max[2], o.Max[2])},
	}
}

func (b AABB) ExtendPoint(p mgl32.Vec3) AABB {
	return AABB{
		Min: mgl32.Vec3{min(b.Min[0], p[0]), min(b.Min[1], p[1]), min(b.Min[2], p[2])},
		Max: mgl32.Vec3{max(b.Max[0], p[0]), max(b.Max[1], p[1]), max(b.Max[2], p[2])},
	}
}

// Expand grows the box by pad on every side.
func (b AABB) Expand(pad float32) AABB {
	p := mgl32.Vec3{pad, pad, pad}
	return AABB{Min: b.Min.Sub(p), Max: b.Max.Add(p)}
}

// Contains reports whether o lies entirely inside b (touching faces count).
func (b AABB) Contains(o AABB) bool {
	return o.Min[0] >= b.Min[0] && o.Min[1] >= b.Min[1] && o.Min[2] >= b.Min[2] &&
		o.Max[0] <= b.Max[0] && o.Max[1] <= b.Max[1] && o.Max[2] <= b.Max[2]
}

func (b AABB) ContainsPoint(p mgl32.Vec3) bool {
	return p[0] >= b.Min[0] && p[1] >= b.Min[1] && p[2] >= b.Min[2] &&
		p[0] <= b.Max[0] && p[1] <= b.Max[1] && p[2] <= b.Max[2]
}

// Corners returns the eight corners of the box. Corner i takes the max
// coordinate on x when bit 0 is set, on y for bit 1 and on z for bit 2.
func (b AABB) Corners() [8]mgl32.Vec3 {
	var c [8]mgl32.Vec3
	for i := range c {
		c[i] = mgl32.Vec3{b.Min[0], b.Min[1], b.Min[2]}
		if i&1 != 0 {
			c[i][0] = b.Max[0]
		}
		if i&2 != 0 {
			c[i][1] = b.Max[1]
		}
		if i&4 != 0 {
			c[i][2] = b.Max[2]
		}
	}
	return c
}
