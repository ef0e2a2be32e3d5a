package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func findMetric(t *testing.T, reg *prometheus.Registry, name, labelValue string) *dto.Metric {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather failed: %v", err)
	}
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, metric := range family.GetMetric() {
			for _, label := range metric.GetLabel() {
				if label.GetValue() == labelValue {
					return metric
				}
			}
		}
	}
	return nil
}

func TestComposerMetricsRecord(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewComposerMetrics(reg)

	m.ObserveLookup("customer_search", 120*time.Millisecond)
	m.IncStaleDropped("customer_search")
	m.IncStaleDropped("customer_search")
	m.IncSubmit("ok")

	stale := findMetric(t, reg, "composer_stale_responses_dropped_total", "customer_search")
	if stale == nil {
		t.Fatal("stale counter not registered")
	}
	if got := stale.GetCounter().GetValue(); got != 2 {
		t.Fatalf("unexpected stale count %v", got)
	}

	submits := findMetric(t, reg, "composer_order_submits_total", "ok")
	if submits == nil || submits.GetCounter().GetValue() != 1 {
		t.Fatal("submit counter not recorded")
	}

	duration := findMetric(t, reg, "composer_lookup_duration_seconds", "customer_search")
	if duration == nil || duration.GetHistogram().GetSampleCount() != 1 {
		t.Fatal("lookup duration not observed")
	}
}

func TestJobMetricsRecord(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewJobMetrics(reg)

	m.ObserveDuration("draft_expiry", time.Second)
	m.IncSuccess("draft_expiry")
	m.IncFailure("")

	success := findMetric(t, reg, "job_success", "draft_expiry")
	if success == nil || success.GetCounter().GetValue() != 1 {
		t.Fatal("success counter not recorded")
	}
	failure := findMetric(t, reg, "job_failure", "unknown")
	if failure == nil || failure.GetCounter().GetValue() != 1 {
		t.Fatal("blank job names should normalize to unknown")
	}
}

func TestNilRegistererIsSafe(t *testing.T) {
	m := NewComposerMetrics(nil)
	m.ObserveLookup("x", time.Second)
	m.IncSubmit("ok")

	j := NewJobMetrics(nil)
	j.IncSuccess("x")
}
