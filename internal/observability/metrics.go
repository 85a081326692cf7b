package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ballotsAccepted counts committed ballots.
	ballotsAccepted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "eboto",
		Subsystem: "ballot",
		Name:      "accepted_total",
		Help:      "Total ballots committed",
	})

	// ballotsRejected counts refused ballots.
	// Labels: kind (ELECTION_NOT_OPEN, NOT_A_VOTER, ALREADY_VOTED, ...)
	ballotsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "eboto",
		Subsystem: "ballot",
		Name:      "rejected_total",
		Help:      "Total ballots rejected by error kind",
	}, []string{"kind"})

	// lifecycleTransitions counts per-election sweep outcomes.
	// Labels: transition (start, end), outcome (applied, skipped, failed)
	lifecycleTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "eboto",
		Subsystem: "lifecycle",
		Name:      "transitions_total",
		Help:      "Lifecycle transitions by kind and outcome",
	}, []string{"transition", "outcome"})

	sweepDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "eboto",
		Subsystem: "lifecycle",
		Name:      "sweep_duration_seconds",
		Help:      "Duration of one hourly lifecycle run",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	})

	// outboxPublished counts outbox relays.
	// Labels: event_type, status (ok, retry, failed)
	outboxPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "eboto",
		Subsystem: "outbox",
		Name:      "published_total",
		Help:      "Outbox events relayed to Redis",
	}, []string{"event_type", "status"})

	tallyCache = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "eboto",
		Subsystem: "tally",
		Name:      "cache_total",
		Help:      "Tally cache lookups by result",
	}, []string{"result"})
)

func BallotAccepted() {
	ballotsAccepted.Inc()
}

func BallotRejected(kind string) {
	ballotsRejected.WithLabelValues(kind).Inc()
}

func LifecycleTransition(transition, outcome string) {
	lifecycleTransitions.WithLabelValues(transition, outcome).Inc()
}

func ObserveSweep(d time.Duration) {
	sweepDuration.Observe(d.Seconds())
}

func OutboxPublished(eventType, status string) {
	outboxPublished.WithLabelValues(eventType, status).Inc()
}

func TallyCacheHit(hit bool) {
	if hit {
		tallyCache.WithLabelValues("hit").Inc()
		return
	}
	tallyCache.WithLabelValues("miss").Inc()
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
