// Package report submits ping outcomes to the ledger and classifies the
// answer.
package report

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/hamed0406/uptimekeeper/internal/domain"
	"github.com/hamed0406/uptimekeeper/internal/ledger"
)

type Options struct {
	// Timeout bounds one submission, confirmation included.
	Timeout time.Duration
	// BreakerFailures is the number of consecutive unreachable submissions
	// that open the breaker. Zero disables it.
	BreakerFailures int
	// BreakerTimeout is how long the breaker stays open before probing.
	BreakerTimeout time.Duration
}

// Reporter is safe for concurrent use.
type Reporter struct {
	client  ledger.Client
	log     *zap.Logger
	timeout time.Duration
	breaker *gobreaker.CircuitBreaker[ledger.Receipt]
}

func New(client ledger.Client, log *zap.Logger, opts Options) *Reporter {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	r := &Reporter{client: client, log: log, timeout: opts.Timeout}
	if opts.BreakerFailures > 0 {
		r.breaker = gobreaker.NewCircuitBreaker[ledger.Receipt](gobreaker.Settings{
			Name:        "ledger",
			MaxRequests: 1,
			Timeout:     opts.BreakerTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return int(counts.ConsecutiveFailures) >= opts.BreakerFailures
			},
			// A rejection proves the ledger is reachable.
			IsSuccessful: func(err error) bool {
				if err == nil {
					return true
				}
				// A cancelled caller says nothing about the ledger.
				if errors.Is(err, context.Canceled) {
					return true
				}
				_, rejected := ledger.IsRejected(err)
				return rejected
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				log.Warn("ledger_breaker_state_change",
					zap.String("breaker", name),
					zap.String("from", from.String()),
					zap.String("to", to.String()),
				)
			},
		})
	}
	return r
}

// Report submits one outcome. It never returns an error: every failure is
// folded into the outcome's status.
func (r *Reporter) Report(ctx context.Context, p domain.PingOutcome) domain.ReportOutcome {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	rcpt, err := r.submit(ctx, p)
	fields := []zap.Field{
		zap.String("monitor", p.DisplayName()),
		zap.String("ref", p.MonitorReference),
		zap.Bool("success", p.Success),
		zap.Int64("ts", p.ObservedAtUnix),
	}

	if err == nil {
		r.log.Info("report_recorded", append(fields, zap.String("receipt", rcpt.Reference))...)
		return domain.Recorded(rcpt.Reference)
	}
	if re, ok := ledger.IsRejected(err); ok {
		r.log.Warn("report_rejected", append(fields, zap.Int("code", re.Code), zap.String("reason", re.Reason))...)
		return domain.Rejected(re.Reason, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		err = fmt.Errorf("ledger submission timed out after %s: %w", r.timeout, err)
	}
	r.log.Error("report_unreachable", append(fields, zap.Error(err))...)
	return domain.Unreachable(err)
}

func (r *Reporter) submit(ctx context.Context, p domain.PingOutcome) (ledger.Receipt, error) {
	call := func() (ledger.Receipt, error) {
		return r.client.SubmitPing(ctx, p.MonitorReference, p.Success, p.ObservedAtUnix)
	}
	if r.breaker == nil {
		return call()
	}
	return r.breaker.Execute(call)
}

// Name identifies the dependency in readiness output.
func (r *Reporter) Name() string { return "ledger" }

// HealthCheck reports ledger availability from the breaker state; no
// network call is made.
func (r *Reporter) HealthCheck(_ context.Context) error {
	if r.breaker == nil {
		return nil
	}
	switch state := r.breaker.State(); state {
	case gobreaker.StateClosed:
		return nil
	case gobreaker.StateHalfOpen:
		return errors.New("ledger: degraded (circuit breaker half-open)")
	case gobreaker.StateOpen:
		return errors.New("ledger: failing (circuit breaker open)")
	default:
		return fmt.Errorf("ledger: unknown circuit breaker state %v", state)
	}
}
