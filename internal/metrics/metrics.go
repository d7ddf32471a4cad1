package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	MessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "msggw_messages_total",
			Help: "Messages handled by direction, type and outcome",
		},
		[]string{"direction", "type", "outcome"}, // inbound|outbound , sms|mms|email , stored|delivered|undelivered|failed
	)

	ProviderAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "msggw_provider_attempts_total",
			Help: "Single delivery attempts against a provider by result",
		},
		[]string{"provider", "result"}, // ok|rate_limited|bad_request|unauthorized|server_error|unexpected|circuit_open
	)

	DeliveryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "msggw_delivery_duration_seconds",
			Help:    "Latency of one provider HTTP call",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider"},
	)

	ArchivedEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "msggw_archived_events_total",
			Help: "Events consumed by the archiver by result",
		},
		[]string{"result"}, // inserted|skipped|failed
	)
)

var once sync.Once

// MustRegister registers all collectors once; later calls are no-ops.
func MustRegister(r prometheus.Registerer) {
	once.Do(func() {
		r.MustRegister(
			MessagesTotal,
			ProviderAttempts,
			DeliveryDuration,
			ArchivedEvents,
		)
	})
}
