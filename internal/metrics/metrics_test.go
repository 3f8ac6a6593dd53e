package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// counterValue finds one sample of a counter family in the gathered registry
func counterValue(t *testing.T, m *Metrics, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := m.Registry().Gather()
	if err != nil {
		t.Fatal(err)
	}
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
	metric:
		for _, metric := range f.GetMetric() {
			for _, lp := range metric.GetLabel() {
				if labels[lp.GetName()] != lp.GetValue() {
					continue metric
				}
			}
			return metric.GetCounter().GetValue()
		}
	}
	return 0
}

func TestMetrics_Counters(t *testing.T) {
	m := New()

	m.ObserveRequest(http.MethodGet, "/api/v1/reports", 200, 20*time.Millisecond)
	m.ObserveRequest(http.MethodGet, "/api/v1/reports", 200, 10*time.Millisecond)
	m.ObserveRequest(http.MethodPost, "", 404, time.Millisecond)
	m.RateLimited("login")
	m.EventPublished("report.submitted", nil)
	m.EventPublished("report.submitted", errors.New("broker down"))
	m.ReportTransition("reviewed")

	if got := counterValue(t, m, "lecture_reporting_http_requests_total", map[string]string{"method": "GET", "route": "/api/v1/reports", "status": "200"}); got != 2 {
		t.Errorf("GET reports = %v, want 2", got)
	}
	if got := counterValue(t, m, "lecture_reporting_http_requests_total", map[string]string{"method": "POST", "route": "unmatched", "status": "404"}); got != 1 {
		t.Errorf("unmatched route = %v, want 1", got)
	}
	if got := counterValue(t, m, "lecture_reporting_rate_limited_total", map[string]string{"scope": "login"}); got != 1 {
		t.Errorf("rate limited = %v, want 1", got)
	}
	if got := counterValue(t, m, "lecture_reporting_events_published_total", map[string]string{"type": "report.submitted", "result": "error"}); got != 1 {
		t.Errorf("failed events = %v, want 1", got)
	}
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	m.ObserveRequest("GET", "/", 200, time.Millisecond)
	m.InFlight(1)
	m.RateLimited("global")
	m.EventPublished("x", nil)
	m.ReportTransition("approved")
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.ReportTransition("approved")

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if !strings.Contains(string(body), `lecture_reporting_report_transitions_total{status="approved"} 1`) {
		t.Errorf("metrics output missing transition counter:\n%s", body)
	}
}
