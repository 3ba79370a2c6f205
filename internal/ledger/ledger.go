package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/hamed0406/uptimekeeper/internal/domain"
)

// Client is the keeper's view of the monitor ledger. Implementations must be
// safe for concurrent use.
type Client interface {
	// ListMonitors returns a fresh snapshot of every registered monitor.
	ListMonitors(ctx context.Context) ([]domain.MonitorRecord, error)
	// SubmitPing records one ping against monitorRef on behalf of the
	// loaded credential. A structured refusal comes back as *RejectedError;
	// any other error means the ledger was not reached.
	SubmitPing(ctx context.Context, monitorRef string, success bool, timestamp int64) (Receipt, error)
}

// Registrar is implemented by backends that accept monitor registration
// from this process.
type Registrar interface {
	Register(ctx context.Context, r Registration) (domain.MonitorRecord, error)
}

// Receipt identifies a recorded mutation (a transaction signature or row version).
type Receipt struct {
	Reference string
}

// Registration is a new monitor request.
type Registration struct {
	Reference       string
	Owner           string
	Reporter        string
	Seed            uint64
	IntervalSeconds int64
	Label           string
	URL             string
	CreatedAtUnix   int64
}

const (
	MaxLabelLen = 64
	MaxURLLen   = 256
)

// Ledger error codes. The first block mirrors the on-chain program's table.
const (
	CodeLabelTooLong     = 6000
	CodeURLTooLong       = 6001
	CodeOverflow         = 6002
	CodeNoAvailableFunds = 6003
	CodeNotEligible      = 6004

	CodeNotFound         = 3012
	CodeNotAuthorized    = 2001
	CodeInvalidReference = 3007
	CodeTransaction      = -1
)

var (
	ErrMonitorNotFound  = errors.New("monitor not found")
	ErrNotAuthorized    = errors.New("reporter not authorized for monitor")
	ErrCounterOverflow  = errors.New("counter overflow")
	ErrInvalidReference = errors.New("invalid monitor reference")
	ErrLabelTooLong     = fmt.Errorf("label exceeds %d bytes", MaxLabelLen)
	ErrURLTooLong       = fmt.Errorf("url exceeds %d bytes", MaxURLLen)
)

// RejectedError is a structured refusal from the ledger: it was reached and
// said no.
type RejectedError struct {
	Code   int
	Reason string
	Err    error
}

func (e *RejectedError) Error() string {
	if e.Reason == "" && e.Err != nil {
		return fmt.Sprintf("ledger rejected (code %d): %v", e.Code, e.Err)
	}
	return fmt.Sprintf("ledger rejected (code %d): %s", e.Code, e.Reason)
}

func (e *RejectedError) Unwrap() error { return e.Err }

// Reject builds a *RejectedError. reason defaults to err's text.
func Reject(code int, reason string, err error) error {
	if reason == "" && err != nil {
		reason = err.Error()
	}
	return &RejectedError{Code: code, Reason: reason, Err: err}
}

// IsRejected unwraps err looking for a *RejectedError.
func IsRejected(err error) (*RejectedError, bool) {
	var re *RejectedError
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}

// Validate applies the program's length limits to a registration.
func (r Registration) Validate() error {
	switch {
	case r.Reference == "":
		return Reject(CodeInvalidReference, "", ErrInvalidReference)
	case len(r.Label) > MaxLabelLen:
		return Reject(CodeLabelTooLong, "", ErrLabelTooLong)
	case len(r.URL) > MaxURLLen:
		return Reject(CodeURLTooLong, "", ErrURLTooLong)
	}
	return nil
}
