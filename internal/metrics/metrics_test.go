package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/hamed0406/uptimekeeper/internal/domain"
)

func TestMetrics_ObserveMonitorAndCycle(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.ObserveMonitor(domain.MonitorResult{
		Ping:       domain.PingOutcome{Success: true},
		HTTPStatus: 200,
		LatencyMS:  120,
		Report:     domain.Recorded("sig"),
	})
	m.ObserveMonitor(domain.MonitorResult{
		Ping:   domain.PingOutcome{},
		Report: domain.Rejected("no", nil),
	})
	m.ObserveCycle(domain.CycleSummary{Total: 2, StartedAt: time.Unix(1700000000, 0), Duration: time.Second})
	m.ObserveCycle(domain.CycleSummary{ListFailed: true, StartedAt: time.Unix(1700000100, 0)})

	if v := testutil.ToFloat64(m.probesTotal.WithLabelValues("UP", "200")); v != 1 {
		t.Fatalf("UP probes = %v", v)
	}
	if v := testutil.ToFloat64(m.probesTotal.WithLabelValues("DOWN", "0")); v != 1 {
		t.Fatalf("DOWN probes = %v", v)
	}
	if v := testutil.ToFloat64(m.reportsTotal.WithLabelValues("rejected")); v != 1 {
		t.Fatalf("rejected reports = %v", v)
	}
	if v := testutil.ToFloat64(m.monitors); v != 2 {
		t.Fatalf("monitors gauge = %v, a failed list must not reset it", v)
	}
	if v := testutil.ToFloat64(m.cyclesTotal.WithLabelValues("list_failed")); v != 1 {
		t.Fatalf("list_failed cycles = %v", v)
	}
}

func TestMetrics_Handler(t *testing.T) {
	m := NewMetrics(nil)
	m.ObserveCycle(domain.CycleSummary{Total: 1})

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if rec.Code != 200 || !strings.Contains(string(body), "keeper_cycles_total") {
		t.Fatalf("metrics not exposed: %d %s", rec.Code, body)
	}
}
