package spatial

import (
	"cullengine/internal/camera"
	"cullengine/internal/config"
	"cullengine/internal/occlusion"
	"cullengine/internal/profiling"
	"cullengine/internal/visibility"

	"github.com/aukilabs/go-tooling/pkg/logs"
)

// ReadOcclusionResults polls the queries issued for slot. Answered queries
// update the occluded flag of their group and hand the handle back to the
// pool; unanswered ones stay pending. It never waits on the backend.
func (p *Partition) ReadOcclusionResults(slot visibility.Slot) {
	if p.backend == nil || !slot.Valid() {
		return
	}
	defer profiling.Track("spatial.ReadOcclusionResults")()

	list := p.pending[slot]
	kept := list[:0]
	for _, g := range list {
		if g.IsDead() {
			continue
		}
		q := &g.queries[slot]
		if q.state&queryPending == 0 {
			continue
		}
		samples, ready := p.backend.Result(q.handle)
		if !ready {
			kept = append(kept, g)
			continue
		}

		p.pool.Release(q.handle)
		q.handle = 0
		q.state &^= queryPending
		q.answered = visibility.Current()
		if samples == 0 {
			q.state |= queryOccluded
		} else {
			q.state &^= queryOccluded
		}
	}
	clear(list[len(kept):])
	p.pending[slot] = kept

	p.reapOrphans()
}

// reapOrphans recycles the handles of destroyed groups once the backend
// is done with them.
func (p *Partition) reapOrphans() {
	kept := p.orphans[:0]
	for _, h := range p.orphans {
		if _, ready := p.backend.Result(h); !ready {
			kept = append(kept, h)
			continue
		}
		p.backend.Delete(h)
		p.pool.Release(h)
	}
	p.orphans = kept
}

// IssueOcclusionQueries starts a query for every occlusion candidate of
// the last Cull into set. Groups whose padded bound holds the camera are
// never occluded and get no query. It returns the number of queries issued.
func (p *Partition) IssueOcclusionQueries(cam *camera.Camera, set *VisibleSet) int {
	if p.backend == nil || !config.GetOcclusionEnabled() {
		return 0
	}
	if set.Slot != cam.Slot {
		logs.WithTag("partition", p.name).
			WithTag("camera_slot", cam.Slot.String()).
			WithTag("set_slot", set.Slot.String()).
			Warn("occlusion queries skipped: visible set was culled for another slot")
		return 0
	}
	defer profiling.Track("spatial.IssueOcclusionQueries")()

	slot := cam.Slot
	pad := config.GetOcclusionBoxPadding()
	issued := 0
	for _, g := range set.candidates {
		if g.IsDead() {
			continue
		}
		q := &g.queries[slot]
		if q.state&queryPending != 0 {
			continue
		}

		box := g.bounds.Expand(pad)
		if box.ContainsPoint(cam.Origin) {
			q.state &^= queryOccluded
			continue
		}

		h := p.pool.Allocate()
		p.backend.Issue(h, box, occlusion.SelectFan(box.Center(), cam.Origin))
		p.pool.MarkPending(h)
		q.handle = h
		q.state |= queryPending
		p.pending[slot] = append(p.pending[slot], g)
		issued++
	}
	p.metrics.slots[slot].queriesIssued.Add(float64(issued))
	return issued
}
