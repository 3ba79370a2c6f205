package domain

import (
	"strings"
	"time"
)

// MonitorRecord is a point-in-time snapshot of a monitor as the ledger holds it.
// The keeper never mutates it.
type MonitorRecord struct {
	Reference      string `json:"reference"`
	URL            string `json:"url"`
	Label          string `json:"label,omitempty"`
	OwnerReference string `json:"owner"`

	Seed            uint64 `json:"seed"`
	IntervalSeconds int64  `json:"interval"`
	CreatedAtUnix   int64  `json:"created_at"`

	// Counters are written by the ledger when a ping is recorded.
	SuccessCount uint64 `json:"success_count"`
	FailureCount uint64 `json:"failure_count"`
	TotalPings   uint64 `json:"total_pings"`
	LastPingUnix int64  `json:"last_ping"`
}

// DisplayName is the label, or the reference when no label is set.
func (m MonitorRecord) DisplayName() string {
	return displayName(m.Label, m.Reference)
}

// PingOutcome is the result of probing one monitor in one cycle.
type PingOutcome struct {
	MonitorReference string `json:"monitor"`
	Label            string `json:"label,omitempty"`
	URL              string `json:"url"`
	Success          bool   `json:"success"`
	ObservedAtUnix   int64  `json:"observed_at"`
}

func (p PingOutcome) DisplayName() string {
	return displayName(p.Label, p.MonitorReference)
}

// State renders Success the way the ping log line does.
func (p PingOutcome) State() string {
	if p.Success {
		return "UP"
	}
	return "DOWN"
}

func displayName(label, ref string) string {
	if l := strings.TrimSpace(label); l != "" {
		return l
	}
	return ref
}

// MonitorResult is one monitor's row for a finished cycle: the ping outcome,
// what the probe saw, and what the ledger said.
type MonitorResult struct {
	Ping       PingOutcome   `json:"ping"`
	HTTPStatus int           `json:"http_status,omitempty"`
	LatencyMS  float64       `json:"latency_ms"`
	Reason     string        `json:"reason,omitempty"`
	Report     ReportOutcome `json:"report"`
}

// CycleSummary counts what one scan cycle did.
type CycleSummary struct {
	Total    int `json:"total"`
	Probed   int `json:"probed"`
	Reported int `json:"reported"`
	Failed   int `json:"failed"`
	Up       int `json:"up"`
	Down     int `json:"down"`

	// Skipped counts monitors left unprobed because the cycle was cancelled.
	Skipped int `json:"skipped,omitempty"`

	// Listed holds the references the ledger returned, in listing order.
	Listed []string `json:"-"`

	ListFailed bool   `json:"list_failed,omitempty"`
	ListError  string `json:"list_error,omitempty"`

	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration_ns"`
}
