package octree

import (
	"cullengine/internal/geom"

	"github.com/go-gl/mathgl/mgl32"
)

// Element is anything the tree can index by its bounds.
type Element interface {
	Bounds() geom.AABB
}

// Listener receives every structural event of the node it is attached to.
// Callbacks run synchronously on the goroutine mutating the tree.
type Listener interface {
	// HandleInsertion is called after e was added to n's element list.
	HandleInsertion(n *Node, e Element)
	// HandleRemoval is called after e was taken out of n's element list.
	HandleRemoval(n *Node, e Element)
	// HandleDestruction is called once when n leaves the tree for good.
	HandleDestruction(n *Node)
	// HandleChildAddition is called on the parent's listener after child
	// was linked and before any element is inserted into it.
	HandleChildAddition(parent, child *Node)
	// HandleChildRemoval is called on the parent's listener after child
	// was unlinked and before it is destroyed.
	HandleChildRemoval(parent, child *Node)
}

// Node is one cubic cell of a loose octree. Elements whose center lies in
// the cell and whose largest half extent fits the cell's half size live in
// the node or one of its descendants, so every element stays inside the
// node's loose bounds (twice the cell).
type Node struct {
	tree     *Tree
	parent   *Node
	octant   int
	depth    int
	center   mgl32.Vec3
	half     float32
	children [8]*Node
	numChild int
	data     []Element
	listener Listener
}

func (n *Node) Tree() *Tree        { return n.tree }
func (n *Node) Parent() *Node      { return n.parent }
func (n *Node) IsRoot() bool       { return n.parent == nil }
func (n *Node) Depth() int         { return n.depth }
func (n *Node) Center() mgl32.Vec3 { return n.center }
func (n *Node) HalfSize() float32  { return n.half }
func (n *Node) Octant() int        { return n.octant }

// IsLeaf reports whether the node has no children.
func (n *Node) IsLeaf() bool { return n.numChild == 0 }

// IsEmpty reports whether the node holds neither elements nor children.
func (n *Node) IsEmpty() bool { return n.numChild == 0 && len(n.data) == 0 }

func (n *Node) ChildCount() int   { return n.numChild }
func (n *Node) ElementCount() int { return len(n.data) }

// Elements returns the elements held directly by the node. The slice is
// owned by the node and only valid until the next mutation.
func (n *Node) Elements() []Element { return n.data }

// Child returns the child in octant i, or nil.
func (n *Node) Child(i int) *Node { return n.children[i] }

// Children calls fn for every existing child in octant order.
func (n *Node) Children(fn func(c *Node)) {
	if n.numChild == 0 {
		return
	}
	for _, c := range n.children {
		if c != nil {
			fn(c)
		}
	}
}

// FirstChild returns the lowest-octant child, or nil for a leaf.
func (n *Node) FirstChild() *Node {
	for _, c := range n.children {
		if c != nil {
			return c
		}
	}
	return nil
}

func (n *Node) Listener() Listener     { return n.listener }
func (n *Node) SetListener(l Listener) { n.listener = l }

// Cell returns the node's tight cubic cell.
func (n *Node) Cell() geom.AABB {
	return geom.FromCenterHalf(n.center, mgl32.Vec3{n.half, n.half, n.half})
}

// LooseBounds returns the cell doubled, which bounds every element held at
// or below the node (except the root, which also keeps elements that do not
// fit anywhere).
func (n *Node) LooseBounds() geom.AABB {
	h := 2 * n.half
	return geom.FromCenterHalf(n.center, mgl32.Vec3{h, h, h})
}

// Contains reports whether n holds e directly.
func (n *Node) Contains(e Element) bool {
	return n.indexOf(e) >= 0
}

func (n *Node) indexOf(e Element) int {
	for i, d := range n.data {
		if d == e {
			return i
		}
	}
	return -1
}

// fits reports whether an element with the given bounds belongs in n's cell.
func (n *Node) fits(b geom.AABB) bool {
	if b.MaxHalfExtent() > n.half {
		return false
	}
	return n.Cell().ContainsPoint(b.Center())
}

// octantFor returns the child octant whose cell b belongs to, if any.
func (n *Node) octantFor(b geom.AABB) (int, bool) {
	childHalf := n.half / 2
	if childHalf < n.tree.minHalf || b.MaxHalfExtent() > childHalf {
		return 0, false
	}
	c := b.Center()
	if !n.Cell().ContainsPoint(c) {
		return 0, false
	}
	oct := 0
	if c[0] >= n.center[0] {
		oct |= 1
	}
	if c[1] >= n.center[1] {
		oct |= 2
	}
	if c[2] >= n.center[2] {
		oct |= 4
	}
	return oct, true
}

func (n *Node) childCenter(oct int) mgl32.Vec3 {
	q := n.half / 2
	off := mgl32.Vec3{-q, -q, -q}
	if oct&1 != 0 {
		off[0] = q
	}
	if oct&2 != 0 {
		off[1] = q
	}
	if oct&4 != 0 {
		off[2] = q
	}
	return n.center.Add(off)
}

func (n *Node) addChild(oct int) *Node {
	c := &Node{
		tree:   n.tree,
		parent: n,
		octant: oct,
		depth:  n.depth + 1,
		center: n.childCenter(oct),
		half:   n.half / 2,
	}
	n.children[oct] = c
	n.numChild++
	n.tree.nodes++
	if l := n.listener; l != nil {
		l.HandleChildAddition(n, c)
	}
	return c
}

func (n *Node) removeChild(c *Node) {
	n.children[c.octant] = nil
	n.numChild--
	if l := n.listener; l != nil {
		l.HandleChildRemoval(n, c)
	}
}

func (n *Node) addElement(e Element) {
	n.data = append(n.data, e)
	n.tree.owner[e] = n
	if l := n.listener; l != nil {
		l.HandleInsertion(n, e)
	}
}

func (n *Node) removeElement(e Element) bool {
	i := n.indexOf(e)
	if i < 0 {
		return false
	}
	last := len(n.data) - 1
	n.data[i] = n.data[last]
	n.data[last] = nil
	n.data = n.data[:last]
	delete(n.tree.owner, e)
	if l := n.listener; l != nil {
		l.HandleRemoval(n, e)
	}
	return true
}

// insert places e at or below n and returns the node that ended up holding it.
func (n *Node) insert(e Element) *Node {
	b := e.Bounds()
	if !n.IsLeaf() {
		if oct, ok := n.octantFor(b); ok {
			c := n.children[oct]
			if c == nil {
				c = n.addChild(oct)
			}
			return c.insert(e)
		}
		n.addElement(e)
		return n
	}

	n.addElement(e)
	if len(n.data) > n.tree.capacity {
		n.split()
	}
	return n.tree.owner[e]
}

// split pushes every element that fits a child octant one level down.
func (n *Node) split() {
	if n.half/2 < n.tree.minHalf {
		return
	}
	var moving []Element
	for _, e := range n.data {
		if _, ok := n.octantFor(e.Bounds()); ok {
			moving = append(moving, e)
		}
	}
	if len(moving) == 0 {
		return
	}
	for _, e := range moving {
		n.removeElement(e)
		oct, _ := n.octantFor(e.Bounds())
		c := n.children[oct]
		if c == nil {
			c = n.addChild(oct)
		}
		c.insert(e)
	}
}

// prune removes empty non-root nodes from n upwards.
func (n *Node) prune() {
	for !n.IsRoot() && n.IsEmpty() {
		p := n.parent
		p.removeChild(n)
		n.destroy()
		n = p
	}
}

// destroy tears down the subtree rooted at n, children first.
func (n *Node) destroy() {
	for i, c := range n.children {
		if c != nil {
			c.destroy()
			n.children[i] = nil
		}
	}
	n.numChild = 0
	for _, e := range n.data {
		delete(n.tree.owner, e)
	}
	if l := n.listener; l != nil {
		l.HandleDestruction(n)
	}
	n.data = nil
	n.listener = nil
	n.parent = nil
	n.tree.nodes--
}
