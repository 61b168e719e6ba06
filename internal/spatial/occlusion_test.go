package spatial

import (
	"bytes"
	"fmt"
	"testing"

	"cullengine/internal/camera"
	"cullengine/internal/config"
	"cullengine/internal/geom"
	"cullengine/internal/occlusion"
	"cullengine/internal/visibility"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBackend answers queries only when the test says so.
type fakeBackend struct {
	issued  map[occlusion.Handle]geom.AABB
	results map[occlusion.Handle]uint32
	deleted []occlusion.Handle
	calls   int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		issued:  make(map[occlusion.Handle]geom.AABB),
		results: make(map[occlusion.Handle]uint32),
	}
}

func (f *fakeBackend) Issue(h occlusion.Handle, box geom.AABB, fan occlusion.Fan) {
	f.issued[h] = box
	delete(f.results, h)
	f.calls++
}

func (f *fakeBackend) Result(h occlusion.Handle) (uint32, bool) {
	s, ok := f.results[h]
	return s, ok
}

func (f *fakeBackend) Delete(h occlusion.Handle) {
	f.deleted = append(f.deleted, h)
}

func (f *fakeBackend) answerAll(samples uint32) {
	for h := range f.issued {
		f.results[h] = samples
	}
}

type frame struct {
	p   *Partition
	set VisibleSet
}

// run plays one frame in renderer order and returns the queries issued.
func (fr *frame) run(t *testing.T, cam *camera.Camera) int {
	t.Helper()
	visibility.Advance()
	fr.p.ReadOcclusionResults(cam.Slot)
	fr.p.Rebound()
	fr.p.Cull(cam, &fr.set)
	return fr.p.IssueOcclusionQueries(cam, &fr.set)
}

func worldCamera(eye, target mgl32.Vec3) *camera.Camera {
	return newCamera(visibility.SlotWorld, eye, target)
}

func TestOcclusionQueryLifecycle(t *testing.T) {
	errs := captureInvariants(t)
	backend := newFakeBackend()
	p := newTestPartition(t, WithBackend(backend))
	e := addAt(t, p, mgl32.Vec3{0, 0, -50}, 1)
	cam := worldCamera(mgl32.Vec3{}, mgl32.Vec3{0, 0, -1})
	fr := frame{p: p}
	pool := p.QueryPool()

	issued := fr.run(t, cam)
	require.Equal(t, 1, issued)
	assert.True(t, p.Root().QueryPending(visibility.SlotWorld))
	assert.Equal(t, 1, pool.PendingCount())
	assert.True(t, containsEntry(&fr.set, e))
	for _, box := range backend.issued {
		assert.True(t, box.Contains(e.Bounds()), "queried box is padded, never shrunk")
	}

	// no answer yet: assume visible and do not issue a second query
	issued = fr.run(t, cam)
	assert.Zero(t, issued)
	assert.True(t, containsEntry(&fr.set, e))
	assert.Equal(t, 1, pool.Size())

	// answered with zero samples: culled, and queried again on the same handle
	backend.answerAll(0)
	issued = fr.run(t, cam)
	assert.True(t, p.Root().IsOccluded(visibility.SlotWorld) || p.Root().QueryPending(visibility.SlotWorld))
	assert.False(t, containsEntry(&fr.set, e))
	assert.Equal(t, 1, fr.set.Stats.OcclusionCulled)
	assert.Equal(t, 1, issued, "occluded groups are re-queried every frame")
	assert.Equal(t, 1, pool.Size(), "the released handle is reused")
	assert.False(t, e.IsVisible(visibility.SlotWorld))

	// visible again
	backend.answerAll(12)
	fr.run(t, cam)
	assert.True(t, containsEntry(&fr.set, e))
	assert.False(t, p.Root().IsOccluded(visibility.SlotWorld))
	assert.Equal(t, 1, pool.Leased())
	assert.Empty(t, *errs)
}

func TestOcclusionAnswerExpiresWhileOutOfView(t *testing.T) {
	backend := newFakeBackend()
	p := newTestPartition(t, WithBackend(backend))
	e := addAt(t, p, mgl32.Vec3{0, 0, -50}, 1)
	ahead := worldCamera(mgl32.Vec3{}, mgl32.Vec3{0, 0, -1})
	behind := worldCamera(mgl32.Vec3{}, mgl32.Vec3{0, 0, 1})
	fr := frame{p: p}

	require.Equal(t, 1, fr.run(t, ahead))
	backend.answerAll(0)
	fr.run(t, ahead)
	require.False(t, containsEntry(&fr.set, e))

	// the query issued on the way out answers while the group is out of view
	backend.answerAll(0)
	for i := 0; i < 20; i++ {
		assert.Zero(t, fr.run(t, behind))
	}
	require.False(t, p.Root().QueryPending(visibility.SlotWorld))
	assert.False(t, p.Root().IsOccluded(visibility.SlotWorld), "an old answer is not trusted")

	issued := fr.run(t, ahead)
	assert.True(t, containsEntry(&fr.set, e))
	assert.Zero(t, fr.set.Stats.OcclusionCulled)
	assert.Equal(t, 1, issued, "a fresh query goes out on return")
}

func TestOcclusionIgnoresInvalidSlot(t *testing.T) {
	p := newTestPartition(t, WithBackend(newFakeBackend()))
	addAt(t, p, mgl32.Vec3{0, 0, -5}, 1)

	bad := visibility.Slot(visibility.NumSlots)
	assert.NotPanics(t, func() {
		assert.False(t, p.Root().IsOccluded(bad))
		assert.False(t, p.Root().QueryPending(bad))
		assert.False(t, p.Root().IsVisible(bad))
		p.ReadOcclusionResults(bad)
	})
}

func TestOcclusionSkipsGroupsAroundCamera(t *testing.T) {
	backend := newFakeBackend()
	p := newTestPartition(t, WithBackend(backend))
	addAt(t, p, mgl32.Vec3{0, 0, -5}, 10)
	fr := frame{p: p}

	inside := worldCamera(mgl32.Vec3{0, 0, -5}, mgl32.Vec3{0, 0, -6})
	assert.Zero(t, fr.run(t, inside))
	assert.Zero(t, backend.calls)

	// outside: occluded, then walk back in
	outside := worldCamera(mgl32.Vec3{0, 0, 40}, mgl32.Vec3{0, 0, -5})
	require.Equal(t, 1, fr.run(t, outside))
	backend.answerAll(0)
	fr.run(t, outside)
	require.Empty(t, fr.set.Entries)

	backend.answerAll(0)
	p.ReadOcclusionResults(visibility.SlotWorld)
	require.True(t, p.Root().IsOccluded(visibility.SlotWorld))

	fr.run(t, inside)
	assert.Len(t, fr.set.Entries, 1, "a camera inside the padded bound is never occluded")
	assert.False(t, p.Root().IsOccluded(visibility.SlotWorld))
}

func TestOcclusionDisabled(t *testing.T) {
	backend := newFakeBackend()
	p := newTestPartition(t, WithBackend(backend))
	addAt(t, p, mgl32.Vec3{0, 0, -50}, 1)
	config.SetOcclusionEnabled(false)
	defer config.ResetDefaults()

	fr := frame{p: p}
	assert.Zero(t, fr.run(t, worldCamera(mgl32.Vec3{}, mgl32.Vec3{0, 0, -1})))
	assert.Zero(t, backend.calls)
	assert.Len(t, fr.set.Entries, 1)
}

func TestOcclusionHandlesOfDestroyedGroupsAreRecycled(t *testing.T) {
	errs := captureInvariants(t)
	backend := newFakeBackend()
	p := newTestPartition(t, WithBackend(backend), WithCapacity(1))
	addAt(t, p, mgl32.Vec3{-20, -20, -50}, 1)
	gone := addAt(t, p, mgl32.Vec3{20, 20, -50}, 1)
	cam := worldCamera(mgl32.Vec3{}, mgl32.Vec3{0, 0, -1})
	fr := frame{p: p}
	pool := p.QueryPool()

	issued := fr.run(t, cam)
	require.Equal(t, 3, issued)
	leaf := gone.Group()
	require.True(t, leaf.QueryPending(visibility.SlotWorld))

	require.NoError(t, p.Remove(gone))
	require.True(t, leaf.IsDead())
	assert.Equal(t, 3, pool.PendingCount(), "in-flight handle is not reused early")

	p.ReadOcclusionResults(visibility.SlotWorld)
	assert.Equal(t, 3, pool.Leased())

	backend.answerAll(4)
	p.ReadOcclusionResults(visibility.SlotWorld)
	assert.Zero(t, pool.PendingCount())
	assert.Zero(t, pool.Leased())
	assert.Len(t, backend.deleted, 1)
	assert.Empty(t, *errs)
}

func TestDestroyDeletesBackendQueries(t *testing.T) {
	backend := newFakeBackend()
	p := newTestPartition(t, WithBackend(backend), WithCapacity(1))
	addAt(t, p, mgl32.Vec3{-20, -20, -50}, 1)
	addAt(t, p, mgl32.Vec3{20, 20, -50}, 1)
	fr := frame{p: p}
	issued := fr.run(t, worldCamera(mgl32.Vec3{}, mgl32.Vec3{0, 0, -1}))
	require.Greater(t, issued, 0)

	p.Destroy()
	assert.Len(t, backend.deleted, p.QueryPool().Size())
	assert.Zero(t, p.QueryPool().Leased())
}

func TestQueryNamesComeFromThePool(t *testing.T) {
	p := newTestPartition(t)
	a := p.NewOcclusionQueryName()
	b := p.NewOcclusionQueryName()
	assert.NotZero(t, a)
	assert.NotEqual(t, a, b)

	p.ReleaseOcclusionQueryName(a)
	assert.Equal(t, a, p.NewOcclusionQueryName())
	assert.Equal(t, 2, p.QueryPool().Size())
}

func TestInvariantReportIsLogged(t *testing.T) {
	config.ResetDefaults()
	prev := SetInvariantReporter(nil)
	defer SetInvariantReporter(prev)

	var b bytes.Buffer
	logs.SetInlineEncoder()
	logs.SetLogger(func(e logs.Entry) {
		fmt.Fprint(&b, e)
	})

	ReportInvariant(errors.New("node bookkeeping diverged").
		WithType(ErrTypeRemoveFailed).
		WithTag("partition", "logs"))
	assert.Contains(t, b.String(), "node bookkeeping diverged")

	ReportInvariant(nil)
}
