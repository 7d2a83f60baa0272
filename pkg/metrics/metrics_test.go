package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestWishlistMetricsCountsByOpAndOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWishlistMetrics(reg)
	m.Record("add", "added")
	m.Record("add", "added")
	m.Record("remove", "denied")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "wishlist_mutations_total", map[string]string{"op": "add", "outcome": "added"}); err != nil {
		t.Fatalf("fetch added: %v", err)
	} else if got != 2 {
		t.Fatalf("expected added=2, got %f", got)
	}
	if got, err := fetchCounterValue(mfs, "wishlist_mutations_total", map[string]string{"op": "remove", "outcome": "denied"}); err != nil {
		t.Fatalf("fetch denied: %v", err)
	} else if got != 1 {
		t.Fatalf("expected denied=1, got %f", got)
	}
}

func TestSubmissionMetricsNormalizesEmptyOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewSubmissionMetrics(reg)
	m.Record("created")
	m.Record("")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "product_submissions_total", map[string]string{"outcome": "unknown"}); err != nil {
		t.Fatalf("fetch unknown: %v", err)
	} else if got != 1 {
		t.Fatalf("expected unknown=1, got %f", got)
	}
}

func TestPublisherMetricsExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPublisherMetrics(reg)
	m.ObserveBatch(250 * time.Millisecond)
	m.IncPublished("welcome_email_requested")
	m.IncFailed("product_contributed")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "outbox_events_published_total", map[string]string{"event_type": "welcome_email_requested"}); err != nil || got != 1 {
		t.Fatalf("expected published=1, got %f (%v)", got, err)
	}
	if got, err := fetchCounterValue(mfs, "outbox_events_failed_total", map[string]string{"event_type": "product_contributed"}); err != nil || got != 1 {
		t.Fatalf("expected failed=1, got %f (%v)", got, err)
	}
	mf := findMetricFamily(mfs, "outbox_batch_duration_seconds")
	if mf == nil || mf.GetMetric()[0].GetHistogram().GetSampleSum() <= 0 {
		t.Fatalf("expected batch duration sum > 0")
	}
}

func TestHTTPMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics(reg)
	m.Observe("POST", "/api/v1/users/{login}/wishlist/{productId}", 403, 5*time.Millisecond)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	labels := map[string]string{"method": "POST", "route": "/api/v1/users/{login}/wishlist/{productId}", "status": "403"}
	if got, err := fetchCounterValue(mfs, "http_requests_total", labels); err != nil || got != 1 {
		t.Fatalf("expected one request, got %f (%v)", got, err)
	}
}

func TestNilRegistererIsNoop(t *testing.T) {
	NewWishlistMetrics(nil).Record("add", "added")
	NewSubmissionMetrics(nil).Record("created")
	NewPublisherMetrics(nil).IncPublished("x")
	NewHTTPMetrics(nil).Observe("GET", "/", 200, time.Millisecond)
	var m *WishlistMetrics
	m.Record("add", "added")
}

func fetchCounterValue(mfs []*dto.MetricFamily, name string, labels map[string]string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabels(metric.GetLabel(), labels) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing labels %v", name, labels)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabels(pairs []*dto.LabelPair, want map[string]string) bool {
	matched := 0
	for _, pair := range pairs {
		if v, ok := want[pair.GetName()]; ok && v == pair.GetValue() {
			matched++
		}
	}
	return matched == len(want)
}

func TestCronJobMetricsRecordsRunsAndRows(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCronJobMetrics(reg)
	m.ObserveRun("outbox-retention", "success", 40*time.Millisecond)
	m.ObserveRun("outbox-retention", "failure", 10*time.Millisecond)
	m.AddAffected("outbox-retention", 7)
	m.AddAffected("outbox-retention", 0)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "cron_job_runs_total", map[string]string{"job": "outbox-retention", "result": "failure"}); err != nil || got != 1 {
		t.Fatalf("expected failure=1, got %f (%v)", got, err)
	}
	if got, err := fetchCounterValue(mfs, "cron_job_rows_affected_total", map[string]string{"job": "outbox-retention"}); err != nil || got != 7 {
		t.Fatalf("expected rows=7, got %f (%v)", got, err)
	}
}
