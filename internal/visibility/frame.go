// Package visibility holds the process-wide frame counter and the per-camera
// visibility stamps compared against it.
//
// A stamp records the frame in which something was last seen from a camera
// slot. Comparing a stamp with Current answers "visible now" and "visible
// recently" in constant time without clearing any per-object state between
// frames.
package visibility

import "sync/atomic"

// first frame after Reset; stamp zero is reserved for "never visible"
const firstFrame = 1

var current atomic.Uint32

func init() {
	current.Store(firstFrame)
}

// Current returns the frame being culled and drawn.
func Current() uint32 {
	return current.Load()
}

// Advance moves to the next frame and returns it. Call once per rendered
// frame before any camera culls.
func Advance() uint32 {
	return current.Add(1)
}

// Reset puts the counter back to the first frame. Stamps taken before a
// reset are meaningless afterwards.
func Reset() {
	current.Store(firstFrame)
}

// Set forces the counter to f. Intended for tests and replay tools.
func Set(f uint32) {
	if f < firstFrame {
		f = firstFrame
	}
	current.Store(f)
}
