package spatial

import (
	"cullengine/internal/config"
	"cullengine/internal/geom"
	"cullengine/internal/visibility"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/go-gl/mathgl/mgl32"
)

// FacetType names the kind of object a facet adapts into the partition.
type FacetType int

const (
	FacetDrawable FacetType = iota
	FacetCache

	NumFacetTypes = int(FacetCache) + 1
)

// Facet is the back-reference from an entry to the thing it indexes.
type Facet interface {
	FacetType() FacetType
}

// Entry is one indexed object: its world-space extents plus the bookkeeping
// the culler needs. An entry belongs to at most one group at a time.
type Entry struct {
	extents       geom.AABB
	positionGroup mgl32.Vec3
	binRadius     float32
	binIndex      int
	visible       visibility.Stamps
	facets        [NumFacetTypes]Facet
	numFacets     int
	group         *Group
	dead          bool
}

// NewEntry creates an ungrouped entry with f attached. Its extents are
// empty until SetExtents is called.
func NewEntry(f Facet) *Entry {
	e := &Entry{
		extents:  geom.EmptyAABB(),
		binIndex: -1,
	}
	if f != nil {
		e.AttachFacet(f)
	}
	return e
}

// Bounds implements octree.Element.
func (e *Entry) Bounds() geom.AABB { return e.extents }

func (e *Entry) Extents() (min, max mgl32.Vec3) { return e.extents.Min, e.extents.Max }

// SetExtents replaces the entry's bounds. The owning group is not told; use
// Partition.Move, or call Unbound on the group yourself.
func (e *Entry) SetExtents(min, max mgl32.Vec3) {
	e.extents = geom.NewAABB(min, max)
}

func (e *Entry) Center() mgl32.Vec3 { return e.extents.Center() }

// PositionGroup is the entry center relative to its node center, as of the
// last insertion or object scan.
func (e *Entry) PositionGroup() mgl32.Vec3 { return e.positionGroup }

func (e *Entry) BinRadius() float32     { return e.binRadius }
func (e *Entry) SetBinRadius(r float32) { e.binRadius = r }
func (e *Entry) BinIndex() int          { return e.binIndex }
func (e *Entry) SetBinIndex(i int)      { e.binIndex = i }

func (e *Entry) Group() *Group { return e.group }
func (e *Entry) IsDead() bool  { return e.dead }

func (e *Entry) Facet(t FacetType) Facet {
	if t < 0 || int(t) >= NumFacetTypes {
		return nil
	}
	return e.facets[t]
}

func (e *Entry) FacetCount() int { return e.numFacets }

// AttachFacet stores f in its type slot, replacing any facet of the same
// type. It never inserts the entry into a group.
func (e *Entry) AttachFacet(f Facet) {
	t := f.FacetType()
	if t < 0 || int(t) >= NumFacetTypes {
		ReportInvariant(errors.New("unknown facet type").
			WithType(ErrTypeDeadEntry).
			WithTag("facet_type", int(t)))
		return
	}
	if e.dead {
		ReportInvariant(errors.New("facet attached to a dead entry").
			WithType(ErrTypeDeadEntry).
			WithTag("facet_type", int(t)))
		return
	}
	if e.facets[t] == nil {
		e.numFacets++
	}
	e.facets[t] = f
}

// DetachFacet drops f. Dropping the last facet takes the entry out of its
// group first and marks it dead.
func (e *Entry) DetachFacet(f Facet) {
	t := f.FacetType()
	if t < 0 || int(t) >= NumFacetTypes || e.facets[t] != f {
		return
	}
	if e.numFacets == 1 && e.group != nil {
		e.SetGroup(nil)
	}
	e.facets[t] = nil
	e.numFacets--
	if e.numFacets == 0 {
		e.dead = true
	}
}

// SetGroup moves the group pointer. Leaving a group removes the entry from
// the group's node; joining only records the pointer, the partition and the
// tree hooks do the insertion.
func (e *Entry) SetGroup(g *Group) {
	if e.group == g {
		return
	}
	if old := e.group; old != nil {
		e.group = nil
		old.RemoveFromGroup(e)
	}
	e.group = g
}

func (e *Entry) IsVisible(slot visibility.Slot) bool {
	return e.visible.IsVisible(slot)
}

// IsRecentlyVisible reports whether the entry was seen by slot within the
// configured window. An entry whose group was recently seen counts too, and
// its own stamp is refreshed.
func (e *Entry) IsRecentlyVisible(slot visibility.Slot) bool {
	if e.visible.IsRecentlyVisible(slot, config.GetRecentlyVisibleFrames()) {
		return true
	}
	if e.group != nil && e.group.IsRecentlyVisible(slot) {
		e.visible.Mark(slot)
		return true
	}
	return false
}

func (e *Entry) MarkVisible(slot visibility.Slot) { e.visible.Mark(slot) }

// VisibleFrame returns the last frame slot saw the entry, 0 for never.
func (e *Entry) VisibleFrame(slot visibility.Slot) uint32 { return e.visible.Frame(slot) }
