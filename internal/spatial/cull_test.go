package spatial

import (
	"testing"

	"cullengine/internal/camera"
	"cullengine/internal/visibility"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCamera(slot visibility.Slot, eye, target mgl32.Vec3) *camera.Camera {
	proj := mgl32.Perspective(mgl32.DegToRad(90), 1, 0.1, 1000)
	view := mgl32.LookAtV(eye, target, mgl32.Vec3{0, 1, 0})
	return camera.New(slot, proj, view)
}

func containsEntry(set *VisibleSet, e *Entry) bool {
	for _, v := range set.Entries {
		if v == e {
			return true
		}
	}
	return false
}

func TestCullKeepsEntriesInFrustum(t *testing.T) {
	errs := captureInvariants(t)
	p := newTestPartition(t, WithCapacity(1))

	front := addAt(t, p, mgl32.Vec3{0, 0, -50}, 1)
	behind := addAt(t, p, mgl32.Vec3{0, 0, 50}, 1)
	side := addAt(t, p, mgl32.Vec3{-80, 0, -10}, 1)

	cam := newCamera(visibility.SlotWorld, mgl32.Vec3{}, mgl32.Vec3{0, 0, -1})
	var set VisibleSet
	p.Cull(cam, &set)

	assert.Equal(t, visibility.SlotWorld, set.Slot)
	assert.True(t, containsEntry(&set, front))
	assert.False(t, containsEntry(&set, behind))
	assert.False(t, containsEntry(&set, side))
	assert.True(t, front.IsVisible(visibility.SlotWorld))
	assert.False(t, behind.IsVisible(visibility.SlotWorld))
	assert.True(t, p.Root().IsVisible(visibility.SlotWorld))

	assert.Equal(t, 1, set.Stats.EntriesVisible)
	assert.Greater(t, set.Stats.FrustumCulled, 0)
	assert.Zero(t, set.Stats.OcclusionCulled)
	assert.Empty(t, *errs)
}

func TestCullRebuildsDirtyBounds(t *testing.T) {
	p := newTestPartition(t)
	e := addAt(t, p, mgl32.Vec3{0, 0, -20}, 1)
	require.True(t, p.Root().IsDirty())

	var set VisibleSet
	p.Cull(newCamera(visibility.SlotWorld, mgl32.Vec3{}, mgl32.Vec3{0, 0, -1}), &set)
	assert.False(t, p.Root().IsDirty())
	assert.True(t, containsEntry(&set, e))
}

func TestCullSlotsAreIndependent(t *testing.T) {
	p := newTestPartition(t, WithCapacity(1))
	left := addAt(t, p, mgl32.Vec3{-30, 0, -40}, 1)
	right := addAt(t, p, mgl32.Vec3{30, 0, 40}, 1)

	leftCam := newCamera(visibility.SlotLeftEye, mgl32.Vec3{}, mgl32.Vec3{0, 0, -1})
	rightCam := newCamera(visibility.SlotRightEye, mgl32.Vec3{}, mgl32.Vec3{0, 0, 1})

	var a, b VisibleSet
	p.Cull(leftCam, &a)
	p.Cull(rightCam, &b)

	assert.True(t, containsEntry(&a, left))
	assert.False(t, containsEntry(&a, right))
	assert.True(t, containsEntry(&b, right))
	assert.False(t, containsEntry(&b, left))

	assert.True(t, left.IsVisible(visibility.SlotLeftEye))
	assert.False(t, left.IsVisible(visibility.SlotRightEye))
	assert.True(t, right.IsVisible(visibility.SlotRightEye))
	assert.False(t, right.IsVisible(visibility.SlotLeftEye))

	// culling the right eye again must not touch the left eye's stamps
	visibility.Advance()
	p.Cull(rightCam, &b)
	assert.False(t, left.IsVisible(visibility.SlotLeftEye))
	assert.True(t, left.IsRecentlyVisible(visibility.SlotLeftEye))
	assert.True(t, right.IsVisible(visibility.SlotRightEye))
}

func TestCullStereoPairSeesSameScene(t *testing.T) {
	p := newTestPartition(t, WithCapacity(2))
	var entries []*Entry
	for i := 0; i < 20; i++ {
		entries = append(entries, addAt(t, p, mgl32.Vec3{float32(i*2 - 20), 0, -60}, 0.5))
	}

	proj := mgl32.Perspective(mgl32.DegToRad(90), 1, 0.1, 1000)
	head := mgl32.LookAtV(mgl32.Vec3{}, mgl32.Vec3{0, 0, -1}, mgl32.Vec3{0, 1, 0})
	l, r := camera.NewStereoPair(proj, head, 0.064)

	var ls, rs VisibleSet
	p.Cull(l, &ls)
	p.Cull(r, &rs)
	assert.Len(t, ls.Entries, len(entries))
	assert.Len(t, rs.Entries, len(entries))
	for _, e := range entries {
		assert.True(t, e.IsVisible(visibility.SlotLeftEye))
		assert.True(t, e.IsVisible(visibility.SlotRightEye))
		assert.False(t, e.IsVisible(visibility.SlotWorld))
	}
}

func TestVisibleSetReset(t *testing.T) {
	p := newTestPartition(t)
	addAt(t, p, mgl32.Vec3{0, 0, -5}, 1)

	var set VisibleSet
	cam := newCamera(visibility.SlotSnapshot, mgl32.Vec3{}, mgl32.Vec3{0, 0, -1})
	p.Cull(cam, &set)
	require.Len(t, set.Entries, 1)
	p.Cull(cam, &set)
	assert.Len(t, set.Entries, 1, "a second walk replaces the first")

	set.Reset(visibility.SlotWorld)
	assert.Empty(t, set.Entries)
	assert.Empty(t, set.Groups)
	assert.Equal(t, CullStats{}, set.Stats)
}

func BenchmarkCull(b *testing.B) {
	p := newTestPartition(b, WithCapacity(8))
	for i := 0; i < 4096; i++ {
		c := mgl32.Vec3{float32(i%16*8 - 64), float32(i/16%16*8 - 64), float32(i/256*8 - 64)}
		addAt(b, p, c, 1)
	}
	p.Rebound()
	cam := newCamera(visibility.SlotWorld, mgl32.Vec3{0, 0, 100}, mgl32.Vec3{})
	var set VisibleSet

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		visibility.Advance()
		p.Cull(cam, &set)
	}
}
