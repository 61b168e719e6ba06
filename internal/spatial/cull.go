package spatial

import (
	"cullengine/internal/camera"
	"cullengine/internal/config"
	"cullengine/internal/geom"
	"cullengine/internal/profiling"
	"cullengine/internal/visibility"
)

// CullStats counts what one culling walk did.
type CullStats struct {
	GroupsTested    int
	FrustumCulled   int
	OcclusionCulled int
	EntriesVisible  int
}

// VisibleSet is the output of a culling walk. It is reused across frames
// so steady-state culling does not allocate.
type VisibleSet struct {
	Slot    visibility.Slot
	Groups  []*Group
	Entries []*Entry
	Stats   CullStats

	// groups that get an occlusion query this frame
	candidates []*Group
}

// Reset empties the set for a new walk on slot.
func (s *VisibleSet) Reset(slot visibility.Slot) {
	clear(s.Groups)
	clear(s.Entries)
	clear(s.candidates)
	s.Slot = slot
	s.Groups = s.Groups[:0]
	s.Entries = s.Entries[:0]
	s.candidates = s.candidates[:0]
	s.Stats = CullStats{}
}

type cullWalk struct {
	cam       *camera.Camera
	set       *VisibleSet
	occlusion bool
	pad       float32
}

// Cull collects the groups and entries visible from cam into set and
// stamps them for cam.Slot. Dirty bounds are rebuilt first.
func (p *Partition) Cull(cam *camera.Camera, set *VisibleSet) {
	defer profiling.Track("spatial.Cull")()

	set.Reset(cam.Slot)
	if p.root == nil || !cam.Slot.Valid() {
		return
	}
	if p.root.IsDirty() {
		p.Rebound()
	}

	w := cullWalk{
		cam:       cam,
		set:       set,
		occlusion: p.backend != nil && config.GetOcclusionEnabled(),
		pad:       config.GetOcclusionBoxPadding(),
	}
	w.visit(p.root, false)
	p.metrics.instrumentCull(cam.Slot, set.Stats)
}

func (w *cullWalk) visit(g *Group, inside bool) {
	if g.bounds.IsEmpty() {
		return
	}
	slot := w.cam.Slot
	w.set.Stats.GroupsTested++

	skip := g.HasState(StateSkipFrustumCheck)
	if !inside && !skip {
		switch w.cam.Frustum.TestAABB(g.bounds) {
		case geom.Outside:
			w.set.Stats.FrustumCulled++
			return
		case geom.Contains:
			inside = true
		}
	}

	if w.occlusion && !skip {
		w.set.candidates = append(w.set.candidates, g)
		if g.IsOccluded(slot) && !g.bounds.Expand(w.pad).ContainsPoint(w.cam.Origin) {
			w.set.Stats.OcclusionCulled++
			return
		}
	}

	g.MarkVisible(slot)
	w.set.Groups = append(w.set.Groups, g)

	n := g.node
	for _, el := range n.Elements() {
		e := el.(*Entry)
		if !inside && !w.cam.Frustum.IntersectsAABB(e.extents) {
			continue
		}
		e.MarkVisible(slot)
		w.set.Entries = append(w.set.Entries, e)
		w.set.Stats.EntriesVisible++
	}

	for i := 0; i < 8; i++ {
		if cg := groupOf(n.Child(i)); cg != nil {
			w.visit(cg, inside)
		}
	}
}
