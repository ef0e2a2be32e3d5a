package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ComposerMetrics records the behavior of the draft composer's background
// lookups and submissions.
type ComposerMetrics struct {
	lookupDuration *prometheus.HistogramVec
	lookupFailure  *prometheus.CounterVec
	staleDropped   *prometheus.CounterVec
	submits        *prometheus.CounterVec
}

// NewComposerMetrics registers the composer metrics on the provided registerer.
func NewComposerMetrics(reg prometheus.Registerer) *ComposerMetrics {
	if reg == nil {
		return &ComposerMetrics{}
	}
	lookupDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "composer_lookup_duration_seconds",
		Help:    "Duration of backend lookups issued by the composer.",
		Buckets: prometheus.DefBuckets,
	}, []string{"lookup"})
	lookupFailure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "composer_lookup_failure_total",
		Help: "Failed backend lookups.",
	}, []string{"lookup"})
	staleDropped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "composer_stale_responses_dropped_total",
		Help: "Lookup responses discarded because their trigger was superseded.",
	}, []string{"lookup"})
	submits := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "composer_order_submits_total",
		Help: "Manual order submissions by outcome.",
	}, []string{"result"})
	reg.MustRegister(lookupDuration, lookupFailure, staleDropped, submits)
	return &ComposerMetrics{
		lookupDuration: lookupDuration,
		lookupFailure:  lookupFailure,
		staleDropped:   staleDropped,
		submits:        submits,
	}
}

// ObserveLookup records the duration for the named lookup.
func (c *ComposerMetrics) ObserveLookup(lookup string, duration time.Duration) {
	if c == nil || c.lookupDuration == nil {
		return
	}
	c.lookupDuration.WithLabelValues(normalizeLabel(lookup)).Observe(duration.Seconds())
}

// IncLookupFailure increments the failure counter for the named lookup.
func (c *ComposerMetrics) IncLookupFailure(lookup string) {
	if c == nil || c.lookupFailure == nil {
		return
	}
	c.lookupFailure.WithLabelValues(normalizeLabel(lookup)).Inc()
}

// IncStaleDropped counts a response discarded by the still-current guard.
func (c *ComposerMetrics) IncStaleDropped(lookup string) {
	if c == nil || c.staleDropped == nil {
		return
	}
	c.staleDropped.WithLabelValues(normalizeLabel(lookup)).Inc()
}

// IncSubmit records a submission outcome ("ok" or "error").
func (c *ComposerMetrics) IncSubmit(result string) {
	if c == nil || c.submits == nil {
		return
	}
	c.submits.WithLabelValues(normalizeLabel(result)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
