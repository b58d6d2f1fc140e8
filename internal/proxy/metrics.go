package proxy

import "github.com/prometheus/client_golang/prometheus"

// metrics mirrors the approach in internal/storagenode/metrics.go: a
// concrete struct of Prometheus collectors registered once at startup,
// incremented inline by the handlers and the migration loop.
type metrics struct {
	puts             prometheus.Counter
	gets             prometheus.Counter
	dels             prometheus.Counter
	ringEmpty        prometheus.Counter
	upstreamErrors   prometheus.Counter
	healthCheckFails prometheus.Counter
	migrationsCopied prometheus.Counter
	migrationsFailed prometheus.Counter
	nodeCount        prometheus.GaugeFunc
}

func newMetrics(reg *prometheus.Registry, nodeCount func() int) *metrics {
	m := &metrics{
		puts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ringstore_proxy_put_total",
			Help: "Number of PUT requests forwarded by the proxy.",
		}),
		gets: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ringstore_proxy_get_total",
			Help: "Number of GET requests forwarded by the proxy.",
		}),
		dels: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ringstore_proxy_del_total",
			Help: "Number of DEL requests forwarded by the proxy.",
		}),
		ringEmpty: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ringstore_proxy_ring_empty_total",
			Help: "Number of requests rejected because the ring had no nodes.",
		}),
		upstreamErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ringstore_proxy_upstream_error_total",
			Help: "Number of requests that failed because the owning storage node was unreachable.",
		}),
		healthCheckFails: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ringstore_proxy_add_node_health_check_failed_total",
			Help: "Number of ADD requests refused because the candidate node failed its health probe.",
		}),
		migrationsCopied: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ringstore_proxy_migration_key_copied_total",
			Help: "Number of keys successfully copied during rebalancing.",
		}),
		migrationsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ringstore_proxy_migration_key_failed_total",
			Help: "Number of keys that failed to copy or delete during rebalancing.",
		}),
	}
	m.nodeCount = prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "ringstore_proxy_ring_node_count",
		Help: "Current number of distinct storage nodes in the ring.",
	}, func() float64 { return float64(nodeCount()) })

	reg.MustRegister(m.puts, m.gets, m.dels, m.ringEmpty, m.upstreamErrors,
		m.healthCheckFails, m.migrationsCopied, m.migrationsFailed, m.nodeCount)
	return m
}
