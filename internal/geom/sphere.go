package geom

import "github.com/go-gl/mathgl/mgl32"

// Intersection classifies how a volume relates to a box or frustum.
type Intersection int

const (
	Outside Intersection = iota
	Intersects
	Contains
)

func (i Intersection) String() string {
	switch i {
	case Outside:
		return "outside"
	case Intersects:
		return "intersects"
	case Contains:
		return "contains"
	default:
		return "unknown"
	}
}

// AABBSphereIntersect tests a box against a sphere. Contains is returned only
// when both box corners lie strictly within the radius.
func AABBSphereIntersect(box AABB, origin mgl32.Vec3, radius float32) Intersection {
	return AABBSphereIntersectMinMax(box.Min, box.Max, origin, radius)
}

// AABBSphereIntersectMinMax is AABBSphereIntersect on unboxed corners.
func AABBSphereIntersectMinMax(bmin, bmax, origin mgl32.Vec3, radius float32) Intersection {
	radSq := radius * radius

	if distSq(bmin, origin) < radSq && distSq(bmax, origin) < radSq {
		return Contains
	}

	var sum float32
	for i := 0; i < 3; i++ {
		if origin[i] < bmin[i] {
			d := origin[i] - bmin[i]
			sum += d * d
		} else if origin[i] > bmax[i] {
			d := origin[i] - bmax[i]
			sum += d * d
		}
		if sum > radSq {
			return Outside
		}
	}
	return Intersects
}

func distSq(a, b mgl32.Vec3) float32 {
	dx := a[0] - b[0]
	dy := a[1] - b[1]
	dz := a[2] - b[2]
	return dx*dx + dy*dy + dz*dz
}
