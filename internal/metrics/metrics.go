// Package metrics exports card update outcomes as Prometheus metrics.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tinytelemetry/cardwall/internal/model"
)

const namespace = "cardwall"

// Recorder counts card updates and their durations. It implements
// card.Recorder and owns its registry, so several instances can coexist in
// one process (tests, embedded use).
type Recorder struct {
	reg *prometheus.Registry

	updates   *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	lastRun   *prometheus.GaugeVec
	lastError *prometheus.GaugeVec

	mu        sync.Mutex
	forgotten map[string]time.Time // card id -> when Forget ran
}

// NewRecorder creates a recorder with Go runtime and process collectors
// registered next to the card metrics.
func NewRecorder() *Recorder {
	r := &Recorder{
		reg:       prometheus.NewRegistry(),
		forgotten: make(map[string]time.Time),
		updates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "card",
			Name:      "updates_total",
			Help:      "Card update invocations by trigger and result.",
		}, []string{"card", "trigger", "result"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "card",
			Name:      "update_duration_seconds",
			Help:      "Card update latency.",
			Buckets:   []float64{.001, .005, .025, .1, .25, 1, 2.5, 10, 30},
		}, []string{"card"}),
		lastRun: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "card",
			Name:      "last_run_timestamp_seconds",
			Help:      "Start time of the most recent update.",
		}, []string{"card"}),
		lastError: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "card",
			Name:      "last_update_failed",
			Help:      "1 when the most recent update failed.",
		}, []string{"card"}),
	}
	r.reg.MustRegister(
		r.updates, r.duration, r.lastRun, r.lastError,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// RecordOutcome updates the per-card series for o. Outcomes of updates that
// started before the card was forgotten are ignored; a later one brings the
// card's series back.
func (r *Recorder) RecordOutcome(o model.Outcome) {
	r.mu.Lock()
	if at, ok := r.forgotten[o.CardID]; ok {
		if !o.StartedAt.After(at) {
			r.mu.Unlock()
			return
		}
		delete(r.forgotten, o.CardID)
	}
	r.mu.Unlock()

	result := "ok"
	failed := 0.0
	if !o.OK {
		result = "error"
		failed = 1
	}
	r.updates.WithLabelValues(o.CardID, string(o.Trigger), result).Inc()
	r.duration.WithLabelValues(o.CardID).Observe(o.Duration.Seconds())
	r.lastRun.WithLabelValues(o.CardID).Set(float64(o.StartedAt.UnixNano()) / 1e9)
	r.lastError.WithLabelValues(o.CardID).Set(failed)
}

// Forget drops every series of a removed card. Updates of that card still
// in flight do not recreate them.
func (r *Recorder) Forget(cardID string) {
	r.mu.Lock()
	r.forgotten[cardID] = time.Now()
	r.mu.Unlock()

	labels := prometheus.Labels{"card": cardID}
	r.updates.DeletePartialMatch(labels)
	r.duration.DeletePartialMatch(labels)
	r.lastRun.DeletePartialMatch(labels)
	r.lastError.DeletePartialMatch(labels)
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{Registry: r.reg})
}
