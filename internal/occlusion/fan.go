package occlusion

import (
	"cullengine/internal/geom"

	"github.com/go-gl/mathgl/mgl32"
)

// Fan is a triangle fan over the eight corners of a box, in the corner
// order of geom.AABB.Corners. The first index is the corner nearest the
// camera; the next six walk the silhouette of the three faces that can be
// seen from it and the last closes the fan.
type Fan [8]uint8

// FanLength is the number of indices submitted per box.
const FanLength = len(Fan{})

// silhouette walks the six corners around corner 7 counter-clockwise when
// seen from the +x+y+z octant, as xor masks relative to the nearest corner.
var silhouette = [6]uint8{1, 3, 2, 6, 4, 5}

// fans is indexed by Octant.
var fans = buildFans()

func buildFans() [8]Fan {
	var out [8]Fan
	for oct := 0; oct < 8; oct++ {
		near := uint8(oct)

		// every mirrored axis flips the winding
		mirrored := 0
		for axis := 0; axis < 3; axis++ {
			if oct&(1<<axis) == 0 {
				mirrored++
			}
		}

		f := Fan{near}
		for i := 0; i < 6; i++ {
			m := silhouette[i]
			if mirrored%2 == 1 {
				m = silhouette[5-i]
			}
			f[i+1] = near ^ m
		}
		f[7] = f[1]
		out[oct] = f
	}
	return out
}

// Octant returns a 3-bit code with bit i set when the camera is strictly
// greater than the box center on axis i.
func Octant(center, origin mgl32.Vec3) int {
	oct := 0
	if origin[0] > center[0] {
		oct |= 1
	}
	if origin[1] > center[1] {
		oct |= 2
	}
	if origin[2] > center[2] {
		oct |= 4
	}
	return oct
}

// SelectFan returns the fan that faces a camera at origin.
func SelectFan(center, origin mgl32.Vec3) Fan {
	return fans[Octant(center, origin)]
}

// FanFor returns the precomputed fan of an octant code.
func FanFor(octant int) Fan {
	return fans[octant&7]
}

// FanVertices expands the camera-facing fan of box into positions, for
// debug drawing or backends without index buffers.
func FanVertices(box geom.AABB, origin mgl32.Vec3) [FanLength]mgl32.Vec3 {
	corners := box.Corners()
	f := SelectFan(box.Center(), origin)
	var out [FanLength]mgl32.Vec3
	for i, idx := range f {
		out[i] = corners[idx]
	}
	return out
}
