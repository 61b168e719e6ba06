package occlusion

import (
	"testing"

	"cullengine/internal/geom"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolRecyclesHandles(t *testing.T) {
	p := NewPool("test_recycle")

	a := p.Allocate()
	b := p.Allocate()
	require.Equal(t, Handle(1), a)
	require.Equal(t, Handle(2), b)

	p.Release(a)
	assert.Equal(t, a, p.Allocate(), "released handles are reused first")
	assert.Equal(t, Handle(3), p.Allocate())
	assert.Equal(t, 3, p.Size())
	assert.Equal(t, 3, p.Leased())

	p.Release(0)
	assert.Equal(t, 0, p.Free(), "handle zero is never pooled")
}

func TestPoolNeverReturnsPendingHandle(t *testing.T) {
	p := NewPool("test_pending")

	leased := make([]Handle, 16)
	for i := range leased {
		leased[i] = p.Allocate()
		p.MarkPending(leased[i])
	}
	require.Equal(t, 16, p.PendingCount())

	// read back and release every other query
	for i := 0; i < len(leased); i += 2 {
		p.Release(leased[i])
	}
	require.Equal(t, 8, p.PendingCount())

	for i := 0; i < 32; i++ {
		h := p.Allocate()
		assert.False(t, p.IsPending(h), "allocated pending handle %d", h)
		assert.NotZero(t, h)
	}
}

func TestPoolIgnoresDoubleRelease(t *testing.T) {
	p := NewPool("test_double_release")

	h := p.Allocate()
	p.Release(h)
	p.Release(h)
	assert.Equal(t, 1, p.Free())

	a := p.Allocate()
	p.MarkPending(a)
	b := p.Allocate()
	assert.NotEqual(t, a, b)
	assert.False(t, p.IsPending(b))

	p.Release(Handle(99))
	assert.Equal(t, 0, p.Free(), "handles never handed out are not pooled")
	assert.Equal(t, 2, p.Size())
}

func TestPoolFreshHandlesAreNew(t *testing.T) {
	p := NewPool("test_fresh")

	seen := make(map[Handle]bool)
	released := 0
	for round := 0; round < 10; round++ {
		var batch []Handle
		for i := 0; i < round+1; i++ {
			batch = append(batch, p.Allocate())
		}
		for _, h := range batch {
			seen[h] = true
		}
		// release only part of the batch so the pool has to grow
		for _, h := range batch[:len(batch)/2] {
			p.Release(h)
			released++
		}
	}
	require.Equal(t, p.Size(), len(seen))

	// more allocations than there are free handles must yield new names
	free := p.Free()
	for i := 0; i < free; i++ {
		p.Allocate()
	}
	for i := 0; i < 5; i++ {
		h := p.Allocate()
		assert.False(t, seen[h], "handle %d was issued before", h)
		seen[h] = true
	}
}

func TestPendingClearedWithoutRelease(t *testing.T) {
	p := NewPool("test_clear")
	h := p.Allocate()
	p.MarkPending(h)
	require.True(t, p.IsPending(h))
	p.ClearPending(h)
	assert.False(t, p.IsPending(h))
	assert.Equal(t, 1, p.Leased())
}

func TestOctant(t *testing.T) {
	c := mgl32.Vec3{1, 1, 1}
	assert.Equal(t, 0, Octant(c, mgl32.Vec3{0, 0, 0}))
	assert.Equal(t, 7, Octant(c, mgl32.Vec3{2, 2, 2}))
	assert.Equal(t, 5, Octant(c, mgl32.Vec3{2, 0, 2}))
	assert.Equal(t, 0, Octant(c, c), "equal coordinates are not greater")
}

func TestFansFaceTheCamera(t *testing.T) {
	box := geom.FromCenterHalf(mgl32.Vec3{0.5, 0.5, 0.5}, mgl32.Vec3{0.5, 0.5, 0.5})
	center := box.Center()
	corners := box.Corners()

	for oct := 0; oct < 8; oct++ {
		dir := mgl32.Vec3{-1, -1, -1}
		for axis := 0; axis < 3; axis++ {
			if oct&(1<<axis) != 0 {
				dir[axis] = 1
			}
		}
		cam := center.Add(dir.Mul(3))
		require.Equal(t, oct, Octant(center, cam))

		f := SelectFan(center, cam)
		assert.Equal(t, uint8(oct), f[0], "fan must start at the nearest corner")
		assert.Equal(t, f[1], f[7], "fan must close")

		// every triangle of the fan winds counter-clockwise toward the camera
		for i := 1; i < 7; i++ {
			v0, v1, v2 := corners[f[0]], corners[f[i]], corners[f[i+1]]
			n := v1.Sub(v0).Cross(v2.Sub(v0))
			assert.Greater(t, n.Dot(cam.Sub(v0)), float32(0), "octant %d triangle %d faces away", oct, i)
		}

		// the six silhouette corners are distinct and exclude the far corner
		used := map[uint8]bool{}
		for _, idx := range f[1:7] {
			assert.NotEqual(t, uint8(oct^7), idx)
			used[idx] = true
		}
		assert.Len(t, used, 6)
	}
}

func TestFanVertices(t *testing.T) {
	box := geom.FromCenterHalf(mgl32.Vec3{}, mgl32.Vec3{1, 1, 1})
	v := FanVertices(box, mgl32.Vec3{5, 5, 5})
	assert.Equal(t, mgl32.Vec3{1, 1, 1}, v[0])
	assert.Equal(t, v[1], v[7])
	assert.Equal(t, FanFor(7), SelectFan(mgl32.Vec3{}, mgl32.Vec3{5, 5, 5}))
}

func BenchmarkPoolAllocateRelease(b *testing.B) {
	p := NewPool("bench")
	for i := 0; i < b.N; i++ {
		h := p.Allocate()
		p.MarkPending(h)
		p.Release(h)
	}
}
