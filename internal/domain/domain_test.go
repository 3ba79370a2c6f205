package domain

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestDisplayName_FallsBackToReference(t *testing.T) {
	cases := []struct {
		label, ref, want string
	}{
		{"api", "Mon1", "api"},
		{"", "Mon1", "Mon1"},
		{"   ", "Mon1", "Mon1"},
	}
	for _, c := range cases {
		m := MonitorRecord{Label: c.label, Reference: c.ref}
		if got := m.DisplayName(); got != c.want {
			t.Fatalf("MonitorRecord{%q,%q}.DisplayName()=%q want %q", c.label, c.ref, got, c.want)
		}
		p := PingOutcome{Label: c.label, MonitorReference: c.ref}
		if got := p.DisplayName(); got != c.want {
			t.Fatalf("PingOutcome{%q,%q}.DisplayName()=%q want %q", c.label, c.ref, got, c.want)
		}
	}
}

func TestPingOutcome_State(t *testing.T) {
	if s := (PingOutcome{Success: true}).State(); s != "UP" {
		t.Fatalf("want UP, got %s", s)
	}
	if s := (PingOutcome{}).State(); s != "DOWN" {
		t.Fatalf("want DOWN, got %s", s)
	}
}

func TestReportOutcome_Constructors(t *testing.T) {
	if o := Recorded("sig"); !o.OK() || o.Receipt != "sig" {
		t.Fatalf("recorded outcome wrong: %+v", o)
	}
	if o := Rejected("not owner", nil); o.OK() || o.Status != ReportRejected {
		t.Fatalf("rejected outcome wrong: %+v", o)
	}
	err := errors.New("connection refused")
	o := Unreachable(err)
	if o.OK() || o.Status != ReportUnreachable || o.Reason != "connection refused" {
		t.Fatalf("unreachable outcome wrong: %+v", o)
	}
}

func TestReportStatus_JSON(t *testing.T) {
	b, err := json.Marshal(MonitorResult{Report: Rejected("overflow", nil)})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(b), `"status":"rejected"`) {
		t.Fatalf("status not rendered as text: %s", b)
	}
	if ReportStatus(0).String() != "unknown" {
		t.Fatalf("zero status should be unknown")
	}
}
