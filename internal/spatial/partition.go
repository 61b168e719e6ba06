package spatial

import (
	"cullengine/internal/config"
	"cullengine/internal/occlusion"
	"cullengine/internal/octree"
	"cullengine/internal/profiling"
	"cullengine/internal/visibility"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/go-gl/mathgl/mgl32"
)

// Stats are counters a partition keeps about its own work.
type Stats struct {
	// ObjectScans counts the times a group walked its entries to rebuild
	// its object bound.
	ObjectScans uint64
	Entries     int
	Groups      int
	Nodes       int
}

// Option customizes a partition.
type Option func(*partitionOptions)

type partitionOptions struct {
	capacity   int
	minHalf    float32
	deferPrune bool
	backend    occlusion.Backend
}

// WithCapacity overrides config.GetNodeCapacity.
func WithCapacity(n int) Option {
	return func(o *partitionOptions) { o.capacity = n }
}

// WithMinHalfSize overrides config.GetMinNodeHalfSize.
func WithMinHalfSize(h float32) Option {
	return func(o *partitionOptions) { o.minHalf = h }
}

// WithDeferredPrune keeps empty nodes after removals until the next
// Rebound. Useful when most entries move every frame.
func WithDeferredPrune() Option {
	return func(o *partitionOptions) { o.deferPrune = true }
}

// WithBackend enables hardware occlusion queries.
func WithBackend(b occlusion.Backend) Option {
	return func(o *partitionOptions) { o.backend = b }
}

// Partition is a spatially indexed set of entries: a loose octree whose
// nodes each carry a Group.
type Partition struct {
	name       string
	tree       *octree.Tree
	root       *Group
	deferPrune bool

	backend occlusion.Backend
	pool    *occlusion.Pool
	pending [visibility.NumSlots][]*Group
	orphans []occlusion.Handle

	groups  int
	stats   Stats
	metrics *partitionMetrics
}

// NewPartition creates an empty partition whose root cell is centered on
// center. Entries outside the root cell are accepted and kept at the root.
func NewPartition(name string, center mgl32.Vec3, halfSize float32, opts ...Option) (*Partition, error) {
	o := partitionOptions{
		capacity: config.GetNodeCapacity(),
		minHalf:  config.GetMinNodeHalfSize(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	tree, err := octree.New(center, halfSize, octree.Options{
		Capacity:    o.capacity,
		MinHalfSize: o.minHalf,
		DeferPrune:  o.deferPrune,
	})
	if err != nil {
		return nil, errors.New("creating partition tree failed").
			WithTag("partition", name).
			Wrap(err)
	}

	p := &Partition{
		name:       name,
		tree:       tree,
		deferPrune: o.deferPrune,
		backend:    o.backend,
		pool:       occlusion.NewPool(name),
		metrics:    newPartitionMetrics(name),
	}
	p.root = newGroup(tree.Root(), p)
	p.root.Unbound()

	logs.WithTag("partition", name).
		WithTag("half_size", halfSize).
		WithTag("capacity", o.capacity).
		WithTag("occlusion", o.backend != nil).
		Debug("partition created")
	return p, nil
}

func (p *Partition) Name() string { return p.name }
func (p *Partition) Root() *Group { return p.root }
func (p *Partition) Len() int     { return p.tree.Len() }

// SetBackend replaces the occlusion backend. Queries in flight on the old
// backend are dropped.
func (p *Partition) SetBackend(b occlusion.Backend) {
	p.dropQueries()
	p.backend = b
}

// Add inserts e. The entry must be alive, ungrouped and have extents.
func (p *Partition) Add(e *Entry) error {
	switch {
	case e.IsDead():
		return errors.New("entry is dead").
			WithType(ErrTypeDeadEntry).
			WithTag("partition", p.name)
	case e.group != nil:
		return errors.New("entry already belongs to a group").
			WithType(ErrTypeAlreadyGrouped).
			WithTag("partition", p.name).
			WithTag("owner", e.group.partition.name)
	case e.extents.IsEmpty():
		return errors.New("entry has no extents").
			WithType(ErrTypeEmptyExtents).
			WithTag("partition", p.name)
	}

	if _, err := p.tree.Insert(e); err != nil {
		return errors.New("inserting entry failed").
			WithType(ErrTypeAlreadyGrouped).
			WithTag("partition", p.name).
			Wrap(err)
	}
	p.metrics.entries.Set(float64(p.tree.Len()))
	return nil
}

// Remove takes e out of the partition.
func (p *Partition) Remove(e *Entry) error {
	if err := p.checkOwned(e); err != nil {
		return err
	}
	e.SetGroup(nil)
	if _, ok := p.tree.NodeOf(e); ok {
		return errors.New("entry still indexed after removal").
			WithType(ErrTypeRemoveFailed).
			WithTag("partition", p.name)
	}
	return nil
}

// Move sets new extents on e, marks its group dirty and re-homes it in the
// tree when it no longer fits its node.
func (p *Partition) Move(e *Entry, min, max mgl32.Vec3) error {
	if err := p.checkOwned(e); err != nil {
		return err
	}
	e.SetExtents(min, max)

	g := e.group
	g.SetState(StateObjectDirty)
	g.Unbound()

	if _, _, err := p.tree.Update(e); err != nil {
		err = errors.New("re-homing moved entry failed").
			WithType(ErrTypeElementNotFound).
			WithTag("partition", p.name).
			Wrap(err)
		ReportInvariant(err)
		return err
	}
	return nil
}

func (p *Partition) checkOwned(e *Entry) error {
	if e.group == nil {
		return errors.New("entry is not grouped").
			WithType(ErrTypeNotGrouped).
			WithTag("partition", p.name)
	}
	if e.group.partition != p {
		return errors.New("entry belongs to another partition").
			WithType(ErrTypeNotGrouped).
			WithTag("partition", p.name).
			WithTag("owner", e.group.partition.name)
	}
	return nil
}

// Rebound brings every dirty group bound up to date. Call once per frame
// before culling.
func (p *Partition) Rebound() {
	defer profiling.Track("spatial.Rebound")()

	if p.deferPrune {
		p.tree.Prune()
	}
	p.root.Rebound()
}

// Traverse walks the groups depth first, parents before children.
// Returning false from fn skips the group's subtree.
func (p *Partition) Traverse(fn func(g *Group) bool) {
	p.tree.Traverse(func(n *octree.Node) bool {
		g := groupOf(n)
		if g == nil {
			return false
		}
		return fn(g)
	})
}

func (p *Partition) Stats() Stats {
	s := p.stats
	s.Entries = p.tree.Len()
	s.Groups = p.groups
	s.Nodes = p.tree.NodeCount()
	return s
}

// NewOcclusionQueryName leases a query handle from the partition's pool.
func (p *Partition) NewOcclusionQueryName() occlusion.Handle {
	return p.pool.Allocate()
}

// ReleaseOcclusionQueryName returns h to the pool. The caller must have
// consumed its result.
func (p *Partition) ReleaseOcclusionQueryName(h occlusion.Handle) {
	p.pool.Release(h)
}

func (p *Partition) QueryPool() *occlusion.Pool { return p.pool }

// Destroy tears down every group. Entries are left ungrouped and the
// partition must not be used afterwards.
func (p *Partition) Destroy() {
	if p.root == nil {
		return
	}
	p.tree.Destroy()
	p.root = nil
	p.dropQueries()
	p.metrics.entries.Set(0)

	logs.WithTag("partition", p.name).
		WithTag("object_scans", p.stats.ObjectScans).
		Debug("partition destroyed")
}

// dropQueries forgets every outstanding query and frees the backend
// objects behind every handle the pool ever issued.
func (p *Partition) dropQueries() {
	for slot := range p.pending {
		for _, g := range p.pending[slot] {
			q := &g.queries[slot]
			if q.state&queryPending != 0 {
				p.pool.Release(q.handle)
			}
			*q = groupQuery{}
		}
		clear(p.pending[slot])
		p.pending[slot] = p.pending[slot][:0]
	}
	for _, h := range p.orphans {
		p.pool.Release(h)
	}
	p.orphans = p.orphans[:0]

	if p.backend != nil {
		for h := 1; h <= p.pool.Size(); h++ {
			p.backend.Delete(occlusion.Handle(h))
		}
	}
}

// CheckInvariants cross-checks the tree nodes against their groups and
// entries. Bound containment is only checked on clean groups.
func (p *Partition) CheckInvariants() error {
	if p.root == nil {
		return nil
	}

	var err error
	seen := make(map[*Entry]int, p.tree.Len())
	p.tree.Traverse(func(n *octree.Node) bool {
		if err != nil {
			return false
		}
		g := groupOf(n)
		switch {
		case g == nil:
			err = errors.New("node has no group").
				WithType(ErrTypeElementNotFound).
				WithTag("depth", n.Depth())
			return false
		case g.IsDead():
			err = errors.New("live node has a dead group").
				WithType(ErrTypeDeadEntry).
				WithTag("depth", n.Depth())
			return false
		case !n.IsRoot() && n.IsEmpty():
			err = errors.New("empty leaf below the root").
				WithType(ErrTypeEmptyLeaf).
				WithTag("depth", n.Depth())
			return false
		}

		for _, el := range n.Elements() {
			e := el.(*Entry)
			seen[e]++
			if e.group != g {
				err = errors.New("entry points at another group").
					WithType(ErrTypeElementNotFound).
					WithTag("depth", n.Depth())
				return false
			}
			if !g.IsDirty() && !g.bounds.Contains(e.extents) {
				err = errors.New("entry escapes its group bound").
					WithType(ErrTypeBoundEscape).
					WithTag("depth", n.Depth())
				return false
			}
		}
		if !g.IsDirty() {
			for i := 0; i < 8; i++ {
				if cg := groupOf(n.Child(i)); cg != nil && !g.bounds.Contains(cg.bounds) {
					err = errors.New("child bound escapes its parent").
						WithType(ErrTypeBoundEscape).
						WithTag("depth", n.Depth()+1)
					return false
				}
			}
		}
		return true
	})
	if err != nil {
		return err
	}

	for e, n := range seen {
		if n != 1 {
			return errors.New("entry held by several nodes").
				WithType(ErrTypeAlreadyGrouped).
				WithTag("partition", p.name).
				WithTag("count", n).
				WithTag("extents", e.extents)
		}
	}
	if len(seen) != p.tree.Len() {
		return errors.New("indexed entries missing from the nodes").
			WithType(ErrTypeElementNotFound).
			WithTag("partition", p.name).
			WithTag("indexed", p.tree.Len()).
			WithTag("held", len(seen))
	}
	return nil
}
