package occlusion

import "cullengine/internal/geom"

// Backend issues hardware occlusion queries and reads them back. The
// culler never blocks on a result: Result reports ready=false until the
// GPU has answered.
type Backend interface {
	// Issue starts a query on h, draws box as the given fan with color and
	// depth writes disabled, and ends the query.
	Issue(h Handle, box geom.AABB, fan Fan)
	// Result polls h. samples is only meaningful when ready is true.
	Result(h Handle) (samples uint32, ready bool)
	// Delete frees any API object behind h.
	Delete(h Handle)
}
