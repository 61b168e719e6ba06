package main

import (
	"math/rand"

	"cullengine/internal/spatial"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

// box is the drawable facet of one scene object.
type box struct {
	id     uuid.UUID
	color  mgl32.Vec3
	entry  *spatial.Entry
	center mgl32.Vec3
	half   mgl32.Vec3
	vel    mgl32.Vec3
}

func (b *box) FacetType() spatial.FacetType { return spatial.FacetDrawable }
func (b *box) Color() mgl32.Vec3            { return b.color }

func (b *box) extents() (mgl32.Vec3, mgl32.Vec3) {
	return b.center.Sub(b.half), b.center.Add(b.half)
}

// Scene owns a set of moving boxes and a few static walls, all indexed
// in one partition.
type Scene struct {
	partition *spatial.Partition
	rng       *rand.Rand
	extent    float32

	movers []*box
	walls  []*box

	// chance per step that one mover is replaced by a fresh one
	churn float64
}

// NewScene fills p with count moving boxes inside a cube of the given
// half extent.
func NewScene(p *spatial.Partition, count int, extent float32, seed int64) (*Scene, error) {
	s := &Scene{
		partition: p,
		rng:       rand.New(rand.NewSource(seed)),
		extent:    extent,
		churn:     0.05,
	}

	for _, w := range [][2]mgl32.Vec3{
		{{0, 0, -extent / 3}, {extent / 2, extent / 4, 1}},
		{{-extent / 3, 0, 0}, {1, extent / 4, extent / 2}},
		{{0, -extent / 2, 0}, {extent, 1, extent}},
	} {
		b := &box{
			id:     uuid.New(),
			color:  mgl32.Vec3{0.35, 0.35, 0.4},
			center: w[0],
			half:   w[1],
		}
		if err := s.add(b); err != nil {
			return nil, err
		}
		s.walls = append(s.walls, b)
	}

	for i := 0; i < count; i++ {
		if err := s.spawn(); err != nil {
			return nil, err
		}
	}

	logs.WithTag("partition", p.Name()).
		WithTag("movers", len(s.movers)).
		WithTag("walls", len(s.walls)).
		Info("scene created")
	return s, nil
}

func (s *Scene) add(b *box) error {
	b.entry = spatial.NewEntry(b)
	b.entry.SetExtents(b.extents())
	if err := s.partition.Add(b.entry); err != nil {
		return errors.New("adding scene box failed").
			WithTag("box_id", b.id).
			Wrap(err)
	}
	return nil
}

func (s *Scene) spawn() error {
	r := s.rng
	b := &box{
		id:     uuid.New(),
		color:  mgl32.Vec3{0.3 + 0.7*r.Float32(), 0.3 + 0.7*r.Float32(), 0.3 + 0.7*r.Float32()},
		center: s.randomPoint(0.9),
		half:   mgl32.Vec3{0.5, 0.5, 0.5}.Mul(0.5 + 2*r.Float32()),
		vel:    s.randomPoint(0.05),
	}
	if err := s.add(b); err != nil {
		return err
	}
	s.movers = append(s.movers, b)
	return nil
}

func (s *Scene) randomPoint(scale float32) mgl32.Vec3 {
	r := s.rng
	e := s.extent * scale
	return mgl32.Vec3{
		(r.Float32()*2 - 1) * e,
		(r.Float32()*2 - 1) * e,
		(r.Float32()*2 - 1) * e,
	}
}

// Step advances every mover by dt seconds, bouncing off the scene bound,
// and occasionally replaces one mover.
func (s *Scene) Step(dt float32) error {
	for _, b := range s.movers {
		b.center = b.center.Add(b.vel.Mul(dt * 20))
		for i := 0; i < 3; i++ {
			if lim := s.extent - b.half[i]; b.center[i] > lim || b.center[i] < -lim {
				b.vel[i] = -b.vel[i]
				b.center[i] = mgl32.Clamp(b.center[i], -lim, lim)
			}
		}
		min, max := b.extents()
		if err := s.partition.Move(b.entry, min, max); err != nil {
			return err
		}
	}

	if len(s.movers) > 0 && s.rng.Float64() < s.churn {
		i := s.rng.Intn(len(s.movers))
		old := s.movers[i]
		if err := s.partition.Remove(old.entry); err != nil {
			return err
		}
		s.movers = append(s.movers[:i], s.movers[i+1:]...)
		if err := s.spawn(); err != nil {
			return err
		}
		logs.WithTag("removed", old.id).
			WithTag("added", s.movers[len(s.movers)-1].id).
			Debug("scene box replaced")
	}
	return nil
}

// Len returns the number of boxes in the scene.
func (s *Scene) Len() int { return len(s.movers) + len(s.walls) }
