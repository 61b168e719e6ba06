package spatial

import (
	"cullengine/internal/visibility"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	errTypeLabel   = "error_type"
	partitionLabel = "partition"
	slotLabel      = "slot"
)

var (
	invariantViolations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "spatial_invariant_violations",
		Help: "The bookkeeping errors detected between the octree and its entries.",
	}, []string{
		errTypeLabel,
	})

	objectScans = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "spatial_object_scans",
		Help: "The number of times a group rescanned its entries to rebuild its object bound.",
	}, []string{
		partitionLabel,
	})

	groupCount = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "spatial_groups",
		Help: "The number of live groups in a partition.",
	}, []string{
		partitionLabel,
	})

	entryCount = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "spatial_entries",
		Help: "The number of entries indexed by a partition.",
	}, []string{
		partitionLabel,
	})

	cullGroupsTested = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "spatial_cull_groups_tested",
		Help: "The groups visited by the culling walk.",
	}, []string{
		partitionLabel,
		slotLabel,
	})

	cullFrustumCulled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "spatial_cull_frustum_culled",
		Help: "The groups rejected by the view frustum.",
	}, []string{
		partitionLabel,
		slotLabel,
	})

	cullOcclusionCulled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "spatial_cull_occlusion_culled",
		Help: "The groups rejected because their last occlusion query found no samples.",
	}, []string{
		partitionLabel,
		slotLabel,
	})

	cullEntriesVisible = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "spatial_cull_entries_visible",
		Help: "The entries that passed the culling walk.",
	}, []string{
		partitionLabel,
		slotLabel,
	})

	occlusionQueriesIssued = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "spatial_occlusion_queries_issued",
		Help: "The occlusion queries issued on the backend.",
	}, []string{
		partitionLabel,
		slotLabel,
	})
)

func instrumentInvariant(err error) {
	invariantViolations.
		With(prometheus.Labels{
			errTypeLabel: errors.Type(err),
		}).
		Inc()
}

type slotCounters struct {
	groupsTested    prometheus.Counter
	frustumCulled   prometheus.Counter
	occlusionCulled prometheus.Counter
	entriesVisible  prometheus.Counter
	queriesIssued   prometheus.Counter
}

// partitionMetrics caches the labelled children of one partition so the
// per-frame passes do not build label maps.
type partitionMetrics struct {
	objectScans prometheus.Counter
	groups      prometheus.Gauge
	entries     prometheus.Gauge
	slots       [visibility.NumSlots]slotCounters
}

func newPartitionMetrics(name string) *partitionMetrics {
	labels := prometheus.Labels{partitionLabel: name}
	m := &partitionMetrics{
		objectScans: objectScans.With(labels),
		groups:      groupCount.With(labels),
		entries:     entryCount.With(labels),
	}
	for i := range m.slots {
		labels := prometheus.Labels{
			partitionLabel: name,
			slotLabel:      visibility.Slot(i).String(),
		}
		m.slots[i] = slotCounters{
			groupsTested:    cullGroupsTested.With(labels),
			frustumCulled:   cullFrustumCulled.With(labels),
			occlusionCulled: cullOcclusionCulled.With(labels),
			entriesVisible:  cullEntriesVisible.With(labels),
			queriesIssued:   occlusionQueriesIssued.With(labels),
		}
	}
	return m
}

func (m *partitionMetrics) instrumentCull(slot visibility.Slot, s CullStats) {
	c := &m.slots[slot]
	c.groupsTested.Add(float64(s.GroupsTested))
	c.frustumCulled.Add(float64(s.FrustumCulled))
	c.occlusionCulled.Add(float64(s.OcclusionCulled))
	c.entriesVisible.Add(float64(s.EntriesVisible))
}
