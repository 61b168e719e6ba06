package octree

import (
	"fmt"
	"testing"

	"cullengine/internal/geom"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type box struct {
	b geom.AABB
}

func (b *box) Bounds() geom.AABB { return b.b }

func newBox(x, y, z, half float32) *box {
	return &box{b: geom.FromCenterHalf(mgl32.Vec3{x, y, z}, mgl32.Vec3{half, half, half})}
}

// recorder attaches itself to every node the tree creates and logs events.
type recorder struct {
	events []string
}

func (r *recorder) HandleInsertion(n *Node, e Element) {
	r.events = append(r.events, fmt.Sprintf("insert d%d", n.Depth()))
}

func (r *recorder) HandleRemoval(n *Node, e Element) {
	r.events = append(r.events, fmt.Sprintf("remove d%d", n.Depth()))
}

func (r *recorder) HandleDestruction(n *Node) {
	r.events = append(r.events, fmt.Sprintf("destroy d%d", n.Depth()))
}

func (r *recorder) HandleChildAddition(parent, child *Node) {
	child.SetListener(r)
	r.events = append(r.events, fmt.Sprintf("child+ d%d", child.Depth()))
}

func (r *recorder) HandleChildRemoval(parent, child *Node) {
	r.events = append(r.events, fmt.Sprintf("child- d%d", child.Depth()))
}

func newTree(t *testing.T, capacity int) (*Tree, *recorder) {
	tr, err := New(mgl32.Vec3{}, 64, Options{Capacity: capacity, MinHalfSize: 1})
	require.NoError(t, err)
	rec := &recorder{}
	tr.Root().SetListener(rec)
	return tr, rec
}

func TestNewRejectsBadOptions(t *testing.T) {
	_, err := New(mgl32.Vec3{}, 0, Options{Capacity: 4})
	require.Error(t, err)
	_, err = New(mgl32.Vec3{}, 10, Options{})
	require.Error(t, err)
}

func TestInsertSplitsFullLeaf(t *testing.T) {
	tr, rec := newTree(t, 2)

	a := newBox(-10, -10, -10, 0.5)
	b := newBox(10, 10, 10, 0.5)
	c := newBox(20, 20, 20, 0.5)

	for _, e := range []*box{a, b} {
		n, err := tr.Insert(e)
		require.NoError(t, err)
		assert.True(t, n.IsRoot())
	}
	require.True(t, tr.Root().IsLeaf())

	_, err := tr.Insert(c)
	require.NoError(t, err)

	root := tr.Root()
	assert.False(t, root.IsLeaf())
	assert.Equal(t, 0, root.ElementCount())
	assert.Equal(t, 3, tr.Len())

	na, _ := tr.NodeOf(a)
	nb, _ := tr.NodeOf(b)
	nc, _ := tr.NodeOf(c)
	assert.Equal(t, 0, na.Octant())
	assert.Equal(t, 7, nb.Octant())
	assert.Same(t, nb, nc)
	assert.Contains(t, rec.events, "child+ d1")

	for _, e := range []*box{a, b, c} {
		n, _ := tr.NodeOf(e)
		assert.True(t, n.LooseBounds().Contains(e.Bounds()), "element escaped its node's loose bounds")
		assert.True(t, n.Contains(e))
	}
}

func TestLargeElementStaysHigh(t *testing.T) {
	tr, _ := newTree(t, 1)

	small := newBox(10, 10, 10, 0.5)
	big := newBox(10, 10, 10, 40)
	_, err := tr.Insert(small)
	require.NoError(t, err)
	n, err := tr.Insert(big)
	require.NoError(t, err)
	assert.True(t, n.IsRoot(), "a box larger than every child cell stays at the root")

	far := newBox(500, 0, 0, 0.5)
	n, err = tr.Insert(far)
	require.NoError(t, err)
	assert.True(t, n.IsRoot(), "boxes outside the root cell stay at the root")
}

func TestRemovePrunesEmptyNodes(t *testing.T) {
	tr, rec := newTree(t, 1)

	a := newBox(-10, -10, -10, 0.5)
	b := newBox(10, 10, 10, 0.5)
	_, err := tr.Insert(a)
	require.NoError(t, err)
	_, err = tr.Insert(b)
	require.NoError(t, err)
	before := tr.NodeCount()
	require.Greater(t, before, 1)

	rec.events = nil
	require.NoError(t, tr.Remove(b))
	assert.Less(t, tr.NodeCount(), before)
	assert.Equal(t, "remove", rec.events[0][:6])
	assert.Contains(t, rec.events, "child- d1")

	tr.Traverse(func(n *Node) bool {
		if !n.IsRoot() {
			assert.False(t, n.IsEmpty(), "empty node left at depth %d", n.Depth())
		}
		return true
	})

	require.NoError(t, tr.Remove(a))
	assert.Equal(t, 1, tr.NodeCount())
	assert.True(t, tr.Root().IsEmpty())

	err = tr.Remove(a)
	require.Error(t, err)
}

func TestDuplicateInsert(t *testing.T) {
	tr, _ := newTree(t, 4)
	a := newBox(1, 1, 1, 0.5)
	_, err := tr.Insert(a)
	require.NoError(t, err)
	_, err = tr.Insert(a)
	require.Error(t, err)
}

func TestUpdateMovesElement(t *testing.T) {
	tr, _ := newTree(t, 1)

	a := newBox(-10, -10, -10, 0.5)
	b := newBox(10, 10, 10, 0.5)
	for _, e := range []*box{a, b} {
		_, err := tr.Insert(e)
		require.NoError(t, err)
	}
	from, _ := tr.NodeOf(a)

	// small move inside the same cell
	a.b = geom.FromCenterHalf(mgl32.Vec3{-10.5, -10, -10}, mgl32.Vec3{0.5, 0.5, 0.5})
	n, moved, err := tr.Update(a)
	require.NoError(t, err)
	assert.False(t, moved)
	assert.Same(t, from, n)

	// across the root into b's octant
	a.b = geom.FromCenterHalf(mgl32.Vec3{30, 30, 30}, mgl32.Vec3{0.5, 0.5, 0.5})
	n, moved, err = tr.Update(a)
	require.NoError(t, err)
	assert.True(t, moved)
	assert.True(t, n.LooseBounds().Contains(a.Bounds()))
	assert.Equal(t, 2, tr.Len())

	_, _, err = tr.Update(newBox(0, 0, 0, 1))
	require.Error(t, err)
}

func TestDestroyNotifiesEveryNode(t *testing.T) {
	tr, rec := newTree(t, 1)
	for i := 0; i < 8; i++ {
		_, err := tr.Insert(newBox(float32(i*7-28), float32(i*5-20), float32(30-i*7), 0.5))
		require.NoError(t, err)
	}
	nodes := tr.NodeCount()
	rec.events = nil
	tr.Destroy()

	destroyed := 0
	for _, ev := range rec.events {
		if len(ev) > 7 && ev[:7] == "destroy" {
			destroyed++
		}
	}
	assert.Equal(t, nodes, destroyed)
	assert.Equal(t, "destroy d0", rec.events[len(rec.events)-1], "root goes last")
}

func BenchmarkInsertRemove(b *testing.B) {
	tr, err := New(mgl32.Vec3{}, 256, Options{Capacity: 8, MinHalfSize: 1})
	if err != nil {
		b.Fatal(err)
	}
	boxes := make([]*box, 1024)
	for i := range boxes {
		boxes[i] = newBox(float32(i%32*8-128), float32(i/32*8-128), 0, 0.5)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		e := boxes[i%len(boxes)]
		if _, ok := tr.NodeOf(e); ok {
			_ = tr.Remove(e)
		} else {
			_, _ = tr.Insert(e)
		}
	}
}

func TestDeferredPrune(t *testing.T) {
	tr, err := New(mgl32.Vec3{}, 64, Options{Capacity: 1, MinHalfSize: 1, DeferPrune: true})
	require.NoError(t, err)

	a := newBox(-10, -10, -10, 0.5)
	b := newBox(10, 10, 10, 0.5)
	for _, e := range []*box{a, b} {
		_, err := tr.Insert(e)
		require.NoError(t, err)
	}
	nodes := tr.NodeCount()

	require.NoError(t, tr.Remove(b))
	assert.Equal(t, nodes, tr.NodeCount(), "empty cells stay until Prune")

	removed := tr.Prune()
	assert.Greater(t, removed, 0)
	assert.Equal(t, nodes-removed, tr.NodeCount())
	tr.Traverse(func(n *Node) bool {
		assert.True(t, n.IsRoot() || !n.IsEmpty())
		return true
	})
	assert.Equal(t, 0, tr.Prune())
}
