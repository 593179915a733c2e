package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ticketinventory/internal/domain"
)

const namespace = "ticketinventory"

// Recorder exports reservation lifecycle metrics to Prometheus.
type Recorder struct {
	gatherer        prometheus.Gatherer
	reservations    *prometheus.CounterVec
	criticalSection *prometheus.HistogramVec
	retries         *prometheus.CounterVec
}

var _ domain.MetricsRecorder = (*Recorder)(nil)

// NewRecorder registers the collectors on reg. Pass a fresh prometheus.NewRegistry()
// in tests to keep them isolated.
func NewRecorder(reg *prometheus.Registry) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		gatherer: reg,
		reservations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reservation_outcomes_total",
				Help:      "Reservation requests by outcome",
			},
			[]string{"outcome"},
		),
		criticalSection: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "critical_section_duration_seconds",
				Help:      "Time spent holding an event's inventory lock",
				Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
			},
			[]string{"operation"},
		),
		retries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "write_conflict_retries_total",
				Help:      "Atomic units retried after a concurrent-writer conflict",
			},
			[]string{"operation"},
		),
	}
}

func (r *Recorder) ObserveReservation(outcome string) {
	r.reservations.WithLabelValues(outcome).Inc()
}

func (r *Recorder) ObserveCriticalSection(operation string, d time.Duration) {
	r.criticalSection.WithLabelValues(operation).Observe(d.Seconds())
}

func (r *Recorder) ObserveRetry(operation string) {
	r.retries.WithLabelValues(operation).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{})
}
