package octree

import (
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/go-gl/mathgl/mgl32"
)

const (
	ErrTypeElementNotFound = "octree_element_not_found"
	ErrTypeDuplicate       = "octree_duplicate_element"
	ErrTypeInvalidOptions  = "octree_invalid_options"
)

// Options configure a Tree.
type Options struct {
	// Capacity is the number of elements a leaf holds before it splits.
	Capacity int
	// MinHalfSize stops splitting once child cells would get smaller.
	MinHalfSize float32
	// DeferPrune keeps empty nodes after removals until Prune is called,
	// so bulk moves do not destroy and recreate the same cells.
	DeferPrune bool
}

// Tree is a loose octree over a fixed root cell. Elements outside the root
// cell are kept at the root.
type Tree struct {
	root       *Node
	owner      map[Element]*Node
	capacity   int
	minHalf    float32
	deferPrune bool
	nodes      int
}

// New creates a tree whose root cell is centered on center with the given
// half size. The root listener can be attached with Root().SetListener.
func New(center mgl32.Vec3, halfSize float32, opts Options) (*Tree, error) {
	if halfSize <= 0 {
		return nil, errors.New("root half size must be positive").
			WithType(ErrTypeInvalidOptions).
			WithTag("half_size", halfSize)
	}
	if opts.Capacity < 1 {
		return nil, errors.New("leaf capacity must be at least one").
			WithType(ErrTypeInvalidOptions).
			WithTag("capacity", opts.Capacity)
	}
	if opts.MinHalfSize <= 0 {
		opts.MinHalfSize = halfSize / 1024
	}

	t := &Tree{
		owner:      make(map[Element]*Node),
		capacity:   opts.Capacity,
		minHalf:    opts.MinHalfSize,
		deferPrune: opts.DeferPrune,
		nodes:      1,
	}
	t.root = &Node{tree: t, center: center, half: halfSize}
	return t, nil
}

func (t *Tree) Root() *Node { return t.root }

// Len returns the number of indexed elements.
func (t *Tree) Len() int { return len(t.owner) }

// NodeCount returns the number of live nodes, root included.
func (t *Tree) NodeCount() int { return t.nodes }

// NodeOf returns the node currently holding e.
func (t *Tree) NodeOf(e Element) (*Node, bool) {
	n, ok := t.owner[e]
	return n, ok
}

// Insert indexes e and returns the node holding it.
func (t *Tree) Insert(e Element) (*Node, error) {
	if n, ok := t.owner[e]; ok {
		return n, errors.New("element already indexed").
			WithType(ErrTypeDuplicate).
			WithTag("depth", n.depth)
	}
	return t.root.insert(e), nil
}

// Remove takes e out of the tree and prunes nodes left empty.
func (t *Tree) Remove(e Element) error {
	n, ok := t.owner[e]
	if !ok {
		return errors.New("element not in tree").
			WithType(ErrTypeElementNotFound)
	}
	if !n.removeElement(e) {
		return errors.New("element missing from its node").
			WithType(ErrTypeElementNotFound).
			WithTag("depth", n.depth)
	}
	if !t.deferPrune {
		n.prune()
	}
	return nil
}

// Prune destroys every empty node below the root and returns how many
// went away. Only needed with DeferPrune.
func (t *Tree) Prune() int {
	var empty []*Node
	t.Traverse(func(n *Node) bool {
		if !n.IsRoot() && n.IsEmpty() {
			empty = append(empty, n)
		}
		return true
	})
	before := t.nodes
	for _, n := range empty {
		// a node destroyed by an earlier prune has no parent left
		if n.parent != nil {
			n.prune()
		}
	}
	return before - t.nodes
}

// Update re-homes e after its bounds changed. It returns the node holding e
// and whether e moved to a different node.
func (t *Tree) Update(e Element) (*Node, bool, error) {
	n, ok := t.owner[e]
	if !ok {
		return nil, false, errors.New("element not in tree").
			WithType(ErrTypeElementNotFound)
	}

	b := e.Bounds()
	stays := n.IsRoot() || n.fits(b)
	if stays {
		// an element that now fits a child is pushed down on the next split
		if _, deeper := n.octantFor(b); !deeper || n.IsLeaf() {
			return n, false, nil
		}
	}

	if err := t.Remove(e); err != nil {
		return nil, false, err
	}
	dst := t.root.insert(e)
	return dst, dst != n, nil
}

// Traverse walks the tree depth first, parents before children. Returning
// false from fn skips the node's subtree.
func (t *Tree) Traverse(fn func(n *Node) bool) {
	traverse(t.root, fn)
}

func traverse(n *Node, fn func(n *Node) bool) {
	if !fn(n) {
		return
	}
	for _, c := range n.children {
		if c != nil {
			traverse(c, fn)
		}
	}
}

// Destroy tears down every node, children before parents. The tree must not
// be used afterwards.
func (t *Tree) Destroy() {
	if t.root == nil {
		return
	}
	t.root.destroy()
	t.root = nil
	t.owner = make(map[Element]*Node)
}
