package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(dbPoolStats, persistenceSaves) }

var (
	dbPoolStats = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "db_pool_stats",
			Help: "Current state of the postgres connection pool.",
		},
		[]string{"state"}, // 'total', 'idle', 'in_use'
	)

	persistenceSaves = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "persistence_saves_total",
			Help: "Collection flushes by backend, collection and result.",
		},
		[]string{"backend", "collection", "result"},
	)
)

func SetDBPoolStats(total, idle, inUse int32) {
	dbPoolStats.WithLabelValues("total").Set(float64(total))
	dbPoolStats.WithLabelValues("idle").Set(float64(idle))
	dbPoolStats.WithLabelValues("in_use").Set(float64(inUse))
}

func IncPersistenceSave(backend, collection, result string) {
	persistenceSaves.WithLabelValues(norm(backend), norm(collection), norm(result)).Inc()
}
