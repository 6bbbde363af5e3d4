package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		provisionedTotal,
		sweptTotal,
		seatsInUse,
		compensationsTotal,
	)
}

var (
	provisionedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "provisioned_total",
			Help: "Records created by order fulfilment, by kind.",
		},
		[]string{"kind"}, // 'membership', 'corporate_subscription', 'corporate_member'
	)

	sweptTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swept_total",
			Help: "Records moved to a terminal state by the expiry sweep.",
		},
		[]string{"kind", "status"},
	)

	seatsInUse = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "corporate_seats_in_use",
			Help: "Seats currently drawn across all corporate subscriptions.",
		},
	)

	compensationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "compensations_total",
			Help: "Compensating cancellations by result (ok/failed).",
		},
		[]string{"result"},
	)
)

func IncProvisioned(kind string) {
	provisionedTotal.WithLabelValues(norm(kind)).Inc()
}

func AddSwept(kind, status string, n int) {
	if n <= 0 {
		return
	}
	sweptTotal.WithLabelValues(norm(kind), norm(status)).Add(float64(n))
}

func AddSeatsInUse(delta int) {
	seatsInUse.Add(float64(delta))
}

func IncCompensation(result string) {
	compensationsTotal.WithLabelValues(norm(result)).Inc()
}
