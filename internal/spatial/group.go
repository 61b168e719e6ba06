package spatial

import (
	"cullengine/internal/config"
	"cullengine/internal/geom"
	"cullengine/internal/occlusion"
	"cullengine/internal/octree"
	"cullengine/internal/visibility"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/go-gl/mathgl/mgl32"
)

// GroupState is a bitmask of group flags.
type GroupState uint32

const (
	// StateDirty means the node bound is stale.
	StateDirty GroupState = 1 << iota
	// StateObjectDirty means the bound of the directly held entries is stale.
	StateObjectDirty
	// StateSkipFrustumCheck marks a pass-through group whose bound equals its
	// only child's.
	StateSkipFrustumCheck
	// StateDead marks a group whose node was destroyed.
	StateDead
)

type queryState uint8

const (
	queryOccluded queryState = 1 << iota
	queryPending
)

type groupQuery struct {
	handle occlusion.Handle
	state  queryState

	// frame the last answer was read back
	answered uint32
}

// Group carries the culling state of one octree node. It is the node's
// listener, so the tree keeps it informed of every structural change.
type Group struct {
	node      *octree.Node
	partition *Partition

	bounds       geom.AABB
	objectBounds geom.AABB
	center       mgl32.Vec3
	halfExtent   mgl32.Vec3
	state        GroupState

	visible visibility.Stamps
	queries [visibility.NumSlots]groupQuery
}

func newGroup(n *octree.Node, p *Partition) *Group {
	g := &Group{
		node:         n,
		partition:    p,
		bounds:       geom.EmptyAABB(),
		objectBounds: geom.EmptyAABB(),
		state:        StateObjectDirty,
	}
	n.SetListener(g)
	p.groups++
	p.metrics.groups.Set(float64(p.groups))
	return g
}

func groupOf(n *octree.Node) *Group {
	if n == nil {
		return nil
	}
	g, _ := n.Listener().(*Group)
	return g
}

func (g *Group) Node() *octree.Node    { return g.node }
func (g *Group) Partition() *Partition { return g.partition }

// Parent returns the group of the parent node, nil for the root or a dead
// group.
func (g *Group) Parent() *Group {
	if g.node == nil {
		return nil
	}
	return groupOf(g.node.Parent())
}

func (g *Group) State() GroupState                     { return g.state }
func (g *Group) HasState(s GroupState) bool            { return g.state&s != 0 }
func (g *Group) SetState(s GroupState)                 { g.state |= s }
func (g *Group) ClearState(s GroupState)               { g.state &^= s }
func (g *Group) IsDirty() bool                         { return g.HasState(StateDirty) }
func (g *Group) IsDead() bool                          { return g.HasState(StateDead) }
func (g *Group) Bounds() geom.AABB                     { return g.bounds }
func (g *Group) ObjectBounds() geom.AABB               { return g.objectBounds }
func (g *Group) Center() mgl32.Vec3                    { return g.center }
func (g *Group) HalfExtent() mgl32.Vec3                { return g.halfExtent }
func (g *Group) VisibleFrame(s visibility.Slot) uint32 { return g.visible.Frame(s) }

// Entries returns the entries held directly by the node.
func (g *Group) Entries() []*Entry {
	if g.node == nil {
		return nil
	}
	els := g.node.Elements()
	out := make([]*Entry, 0, len(els))
	for _, el := range els {
		if e, ok := el.(*Entry); ok {
			out = append(out, e)
		}
	}
	return out
}

func (g *Group) IsVisible(slot visibility.Slot) bool { return g.visible.IsVisible(slot) }

func (g *Group) IsRecentlyVisible(slot visibility.Slot) bool {
	return g.visible.IsRecentlyVisible(slot, config.GetRecentlyVisibleFrames())
}

func (g *Group) MarkVisible(slot visibility.Slot) { g.visible.Mark(slot) }

// IsOccluded reports whether the last completed query for slot found no
// samples. A query still in flight counts as visible, and so does an
// answer older than the recently-visible window.
func (g *Group) IsOccluded(slot visibility.Slot) bool {
	if !slot.Valid() {
		return false
	}
	q := g.queries[slot]
	if q.state&queryOccluded == 0 || q.state&queryPending != 0 {
		return false
	}
	cur := visibility.Current()
	if q.answered == 0 || q.answered > cur {
		return false
	}
	return cur-q.answered < config.GetRecentlyVisibleFrames()
}

func (g *Group) QueryPending(slot visibility.Slot) bool {
	return slot.Valid() && g.queries[slot].state&queryPending != 0
}

// Unbound marks the group and its ancestors dirty. It stops at the first
// ancestor that is already dirty, whose own ancestors are dirty too.
func (g *Group) Unbound() {
	if g.IsDirty() {
		return
	}
	g.SetState(StateDirty)
	for p := g.Parent(); p != nil; p = p.Parent() {
		if p.IsDirty() {
			return
		}
		p.SetState(StateDirty)
	}
}

// Rebound recomputes the bound of a dirty group from its children and
// entries. Clean subtrees are not visited.
func (g *Group) Rebound() {
	if !g.IsDirty() || g.node == nil {
		return
	}
	n := g.node

	switch {
	case n.ChildCount() == 1 && n.ElementCount() == 0:
		child := groupOf(n.FirstChild())
		if child == nil {
			g.reportMissingGroup(n.FirstChild())
			break
		}
		child.Rebound()
		g.bounds = child.bounds
		g.objectBounds = geom.EmptyAABB()
		g.ClearState(StateObjectDirty)
		g.SetState(StateSkipFrustumCheck)

	case n.IsLeaf():
		g.ClearState(StateSkipFrustumCheck)
		g.boundObjects()
		g.bounds = g.objectBounds

	default:
		g.ClearState(StateSkipFrustumCheck)
		b := geom.EmptyAABB()
		for i := 0; i < 8; i++ {
			c := n.Child(i)
			if c == nil {
				continue
			}
			cg := groupOf(c)
			if cg == nil {
				g.reportMissingGroup(c)
				continue
			}
			cg.Rebound()
			b = b.Union(cg.bounds)
		}
		if n.ElementCount() > 0 {
			g.boundObjects()
			b = b.Union(g.objectBounds)
		} else {
			g.objectBounds = geom.EmptyAABB()
			g.ClearState(StateObjectDirty)
		}
		g.bounds = b
	}

	if g.bounds.IsEmpty() {
		g.center, g.halfExtent = n.Center(), mgl32.Vec3{}
	} else {
		g.center, g.halfExtent = g.bounds.Center(), g.bounds.HalfExtent()
	}
	g.ClearState(StateDirty)
}

func (g *Group) boundObjects() {
	n := g.node
	if n.ElementCount() == 0 {
		g.objectBounds = geom.EmptyAABB()
		g.ClearState(StateObjectDirty)
		if !n.IsRoot() {
			ReportInvariant(errors.New("empty leaf below the root").
				WithType(ErrTypeEmptyLeaf).
				WithTag("partition", g.partition.name).
				WithTag("depth", n.Depth()))
		}
		return
	}
	if !g.HasState(StateObjectDirty) {
		return
	}

	b := geom.EmptyAABB()
	center := n.Center()
	for _, el := range n.Elements() {
		e := el.(*Entry)
		b = b.Union(e.extents)
		e.positionGroup = e.extents.Center().Sub(center)
	}
	g.objectBounds = b
	g.ClearState(StateObjectDirty)

	g.partition.stats.ObjectScans++
	g.partition.metrics.objectScans.Inc()
}

func (g *Group) reportMissingGroup(n *octree.Node) {
	ReportInvariant(errors.New("node has no group").
		WithType(ErrTypeElementNotFound).
		WithTag("partition", g.partition.name).
		WithTag("depth", n.Depth()))
}

// RemoveFromGroup takes e out of the group's node. Entries of a dead group
// only lose their bin index.
func (g *Group) RemoveFromGroup(e *Entry) bool {
	if g.IsDead() {
		e.binIndex = -1
		return true
	}
	g.Unbound()
	g.SetState(StateObjectDirty)

	if err := g.partition.tree.Remove(e); err != nil {
		ReportInvariant(errors.New("could not remove entry from its group").
			WithType(ErrTypeRemoveFailed).
			WithTag("partition", g.partition.name).
			WithTag("depth", g.node.Depth()).
			Wrap(err))
		return false
	}
	g.partition.metrics.entries.Set(float64(g.partition.tree.Len()))
	return true
}

// HandleInsertion implements octree.Listener.
func (g *Group) HandleInsertion(n *octree.Node, el octree.Element) {
	e, ok := el.(*Entry)
	if !ok {
		return
	}
	e.group = g
	e.positionGroup = e.extents.Center().Sub(n.Center())
	g.Unbound()
	g.SetState(StateObjectDirty)
}

// HandleRemoval implements octree.Listener.
func (g *Group) HandleRemoval(n *octree.Node, el octree.Element) {
	g.Unbound()
	g.SetState(StateObjectDirty)
	if e, ok := el.(*Entry); ok && e.group == g {
		e.group = nil
	}
}

// HandleDestruction implements octree.Listener. Entries still held by the
// node only lose their group pointer.
func (g *Group) HandleDestruction(n *octree.Node) {
	for _, el := range n.Elements() {
		if e, ok := el.(*Entry); ok && e.group == g {
			e.group = nil
		}
	}
	for i := range g.queries {
		q := &g.queries[i]
		if q.state&queryPending != 0 {
			g.partition.orphans = append(g.partition.orphans, q.handle)
		}
		*q = groupQuery{}
	}
	g.node = nil
	g.SetState(StateDead)

	g.partition.groups--
	g.partition.metrics.groups.Set(float64(g.partition.groups))
}

// HandleChildAddition implements octree.Listener.
func (g *Group) HandleChildAddition(parent, child *octree.Node) {
	cg := groupOf(child)
	if cg == nil {
		cg = newGroup(child, g.partition)
	}
	g.Unbound()
	cg.Unbound()
}

// HandleChildRemoval implements octree.Listener.
func (g *Group) HandleChildRemoval(parent, child *octree.Node) {
	g.Unbound()
}
