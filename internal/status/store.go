// Package status keeps the latest cycle and per-monitor results in memory
// for the status API.
package status

import (
	"sort"
	"strings"
	"sync"

	"github.com/hamed0406/uptimekeeper/internal/domain"
)

// Store satisfies scheduler.Observer.
type Store struct {
	mu     sync.RWMutex
	latest map[string]domain.MonitorResult
	cycle  domain.CycleSummary
	hasRun bool
}

func New() *Store {
	return &Store{
		latest: make(map[string]domain.MonitorResult),
	}
}

func (s *Store) ObserveMonitor(r domain.MonitorResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest[r.Ping.MonitorReference] = r
}

// ObserveCycle records a finished cycle. Monitors missing from a successful
// listing are dropped; they left the ledger. A listed monitor keeps its last
// row even if this cycle produced none for it.
func (s *Store) ObserveCycle(sum domain.CycleSummary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cycle = sum
	s.hasRun = true
	if sum.ListFailed {
		return
	}
	listed := make(map[string]struct{}, len(sum.Listed))
	for _, ref := range sum.Listed {
		listed[ref] = struct{}{}
	}
	for ref := range s.latest {
		if _, ok := listed[ref]; !ok {
			delete(s.latest, ref)
		}
	}
}

// LatestCycle returns the most recent cycle summary and whether any cycle
// has finished.
func (s *Store) LatestCycle() (domain.CycleSummary, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cycle, s.hasRun
}

// Latest returns one row per monitor, sorted by display name then reference.
func (s *Store) Latest() []domain.MonitorResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.MonitorResult, 0, len(s.latest))
	for _, r := range s.latest {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := strings.ToLower(out[i].Ping.DisplayName()), strings.ToLower(out[j].Ping.DisplayName())
		if a != b {
			return a < b
		}
		return out[i].Ping.MonitorReference < out[j].Ping.MonitorReference
	})
	return out
}
