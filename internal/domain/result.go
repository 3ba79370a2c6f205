package domain

import "encoding/json"

// ReportStatus classifies one ledger submission.
type ReportStatus int

const (
	// ReportRecorded means the ledger confirmed the mutation.
	ReportRecorded ReportStatus = iota + 1
	// ReportRejected means the ledger answered with a structured refusal.
	ReportRejected
	// ReportUnreachable means the ledger could not be talked to.
	ReportUnreachable
)

func (s ReportStatus) String() string {
	switch s {
	case ReportRecorded:
		return "recorded"
	case ReportRejected:
		return "rejected"
	case ReportUnreachable:
		return "unreachable"
	default:
		return "unknown"
	}
}

func (s ReportStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// ReportOutcome is what the reporter returns for one submission.
type ReportOutcome struct {
	Status  ReportStatus `json:"status"`
	Reason  string       `json:"reason,omitempty"`
	Receipt string       `json:"receipt,omitempty"`
	Err     error        `json:"-"`
}

// OK reports whether the ledger recorded the ping.
func (o ReportOutcome) OK() bool { return o.Status == ReportRecorded }

func Recorded(receipt string) ReportOutcome {
	return ReportOutcome{Status: ReportRecorded, Receipt: receipt}
}

func Rejected(reason string, err error) ReportOutcome {
	return ReportOutcome{Status: ReportRejected, Reason: reason, Err: err}
}

func Unreachable(err error) ReportOutcome {
	o := ReportOutcome{Status: ReportUnreachable, Err: err}
	if err != nil {
		o.Reason = err.Error()
	}
	return o
}
