package storagenode

import "github.com/prometheus/client_golang/prometheus"

// metrics is a thin Prometheus abstraction in the style of arena-cache's
// metricsSink: a concrete struct rather than an interface, since a storage
// node only ever runs with one metrics backend (there is no no-op variant
// to swap in — /metrics is always served).
type metrics struct {
	puts      prometheus.Counter
	dels      prometheus.Counter
	gets      prometheus.Counter
	misses    prometheus.Counter
	rangeOps  prometheus.Counter
	walErrors prometheus.Counter
	keysGauge prometheus.GaugeFunc
}

func newMetrics(reg *prometheus.Registry, nodeAddr string, keyCount func() int) *metrics {
	labels := prometheus.Labels{"node": nodeAddr}

	m := &metrics{
		puts: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "ringstore_node_put_total",
			Help:        "Number of PUT requests handled by this storage node.",
			ConstLabels: labels,
		}),
		dels: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "ringstore_node_del_total",
			Help:        "Number of DEL requests handled by this storage node.",
			ConstLabels: labels,
		}),
		gets: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "ringstore_node_get_total",
			Help:        "Number of GET requests handled by this storage node.",
			ConstLabels: labels,
		}),
		misses: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "ringstore_node_get_miss_total",
			Help:        "Number of GET requests that found no value.",
			ConstLabels: labels,
		}),
		rangeOps: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "ringstore_node_range_total",
			Help:        "Number of RANGE/ALL scans served (e.g. by migration).",
			ConstLabels: labels,
		}),
		walErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "ringstore_node_wal_error_total",
			Help:        "Number of failed WAL appends.",
			ConstLabels: labels,
		}),
	}
	m.keysGauge = prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name:        "ringstore_node_key_count",
		Help:        "Approximate number of live keys held by this node.",
		ConstLabels: labels,
	}, func() float64 { return float64(keyCount()) })

	reg.MustRegister(m.puts, m.dels, m.gets, m.misses, m.rangeOps, m.walErrors, m.keysGauge)
	return m
}
