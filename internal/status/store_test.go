package status

import (
	"testing"

	"github.com/hamed0406/uptimekeeper/internal/domain"
)

func result(ref, label string, up bool) domain.MonitorResult {
	return domain.MonitorResult{Ping: domain.PingOutcome{MonitorReference: ref, Label: label, Success: up}}
}

func TestStore_LatestSortedByDisplayName(t *testing.T) {
	s := New()
	if _, ok := s.LatestCycle(); ok {
		t.Fatalf("no cycle should be reported before the first run")
	}
	s.ObserveMonitor(result("r1", "zeta", true))
	s.ObserveMonitor(result("r2", "", false))
	s.ObserveMonitor(result("r3", "Alpha", true))
	s.ObserveCycle(domain.CycleSummary{Total: 3, Listed: []string{"r1", "r2", "r3"}})

	got := s.Latest()
	if len(got) != 3 {
		t.Fatalf("want 3 rows, got %d", len(got))
	}
	order := []string{got[0].Ping.MonitorReference, got[1].Ping.MonitorReference, got[2].Ping.MonitorReference}
	if order[0] != "r3" || order[1] != "r2" || order[2] != "r1" {
		t.Fatalf("unexpected order %v", order)
	}
	if sum, ok := s.LatestCycle(); !ok || sum.Total != 3 {
		t.Fatalf("latest cycle wrong: %+v", sum)
	}
}

func TestStore_DropsMonitorsGoneFromLedger(t *testing.T) {
	s := New()
	s.ObserveMonitor(result("a", "", true))
	s.ObserveMonitor(result("b", "", true))
	s.ObserveCycle(domain.CycleSummary{Total: 2, Listed: []string{"a", "b"}})

	// A failed list keeps what we had.
	s.ObserveCycle(domain.CycleSummary{ListFailed: true})
	if n := len(s.Latest()); n != 2 {
		t.Fatalf("want 2 rows after failed list, got %d", n)
	}

	s.ObserveMonitor(result("a", "", false))
	s.ObserveCycle(domain.CycleSummary{Total: 1, Listed: []string{"a"}})
	got := s.Latest()
	if len(got) != 1 || got[0].Ping.MonitorReference != "a" || got[0].Ping.Success {
		t.Fatalf("want only the updated a row, got %+v", got)
	}
}

func TestStore_KeepsListedMonitorWithoutNewResult(t *testing.T) {
	s := New()
	s.ObserveMonitor(result("a", "", true))
	s.ObserveMonitor(result("b", "", true))
	s.ObserveCycle(domain.CycleSummary{Total: 2, Listed: []string{"a", "b"}})

	// b is still listed but its unit of work produced no result this time.
	s.ObserveMonitor(result("a", "", false))
	s.ObserveCycle(domain.CycleSummary{Total: 2, Failed: 1, Listed: []string{"a", "b"}})

	got := s.Latest()
	if len(got) != 2 {
		t.Fatalf("want both listed monitors kept, got %+v", got)
	}
	if got[1].Ping.MonitorReference != "b" || !got[1].Ping.Success {
		t.Fatalf("b should keep its previous row, got %+v", got[1])
	}
}
