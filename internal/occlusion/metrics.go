package occlusion

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const poolLabel = "pool"

var (
	queryPoolSize = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "occlusion_query_pool_size",
		Help: "The number of query handles ever issued by the pool.",
	}, []string{
		poolLabel,
	})

	queryPoolLeased = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "occlusion_query_pool_leased",
		Help: "The number of query handles currently leased.",
	}, []string{
		poolLabel,
	})

	queryPoolPending = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "occlusion_query_pool_pending",
		Help: "The number of issued queries whose result was not read back.",
	}, []string{
		poolLabel,
	})
)

// poolGauges caches the labelled children so instrumenting a pool on the
// render thread does not allocate.
type poolGauges struct {
	size    prometheus.Gauge
	leased  prometheus.Gauge
	pending prometheus.Gauge
}

func newPoolGauges(name string) poolGauges {
	labels := prometheus.Labels{poolLabel: name}
	return poolGauges{
		size:    queryPoolSize.With(labels),
		leased:  queryPoolLeased.With(labels),
		pending: queryPoolPending.With(labels),
	}
}

func instrumentPool(p *Pool) {
	p.gauges.size.Set(float64(p.Size()))
	p.gauges.leased.Set(float64(p.Leased()))
	p.gauges.pending.Set(float64(len(p.pending)))
}
