package scheduler

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hamed0406/uptimekeeper/internal/domain"
	"github.com/hamed0406/uptimekeeper/internal/probe"
)

// Lister is the read side of the ledger.
type Lister interface {
	ListMonitors(ctx context.Context) ([]domain.MonitorRecord, error)
}

// Reporter submits one ping outcome and classifies the answer.
type Reporter interface {
	Report(ctx context.Context, p domain.PingOutcome) domain.ReportOutcome
}

// Observer is told about every monitor result and every finished cycle.
// Implementations must be safe for concurrent use.
type Observer interface {
	ObserveMonitor(r domain.MonitorResult)
	ObserveCycle(s domain.CycleSummary)
}

type CycleOptions struct {
	// Concurrency caps in-flight monitors; 1 is sequential.
	Concurrency int
	// ProbeTimeout is an outer bound on one probe. The checker's own
	// timeout normally fires first.
	ProbeTimeout time.Duration
	// Debug adds probe diagnostics to the ping log line.
	Debug     bool
	Now       func() time.Time
	Observers []Observer
}

// Cycle is one list, probe and report pass over the ledger.
type Cycle struct {
	lister   Lister
	checker  probe.Checker
	reporter Reporter
	log      *zap.Logger
	opts     CycleOptions
}

func NewCycle(lister Lister, checker probe.Checker, reporter Reporter, log *zap.Logger, opts CycleOptions) *Cycle {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Cycle{lister: lister, checker: checker, reporter: reporter, log: log, opts: opts}
}

type counters struct {
	probed, reported, failed, up, down, skipped atomic.Int64
}

// Run executes one cycle. It never fails: a list error ends the cycle early
// with zero counts and each monitor's failures stay with that monitor.
func (c *Cycle) Run(ctx context.Context) domain.CycleSummary {
	started := c.opts.Now()
	sum := domain.CycleSummary{StartedAt: started.UTC()}

	monitors, err := c.lister.ListMonitors(ctx)
	if err != nil {
		c.log.Error("scan_list_error", zap.Error(err))
		sum.ListFailed = true
		sum.ListError = err.Error()
		sum.Duration = time.Since(started)
		c.observeCycle(sum)
		return sum
	}
	sum.Total = len(monitors)
	sum.Listed = make([]string, 0, len(monitors))
	for _, m := range monitors {
		sum.Listed = append(sum.Listed, m.Reference)
	}
	c.log.Info("scan_started", zap.Int("monitors", sum.Total))

	var n counters
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.Concurrency)
	for _, m := range monitors {
		g.Go(func() error {
			c.runMonitor(gctx, m, &n)
			return nil
		})
	}
	_ = g.Wait() // workers never return errors

	sum.Probed = int(n.probed.Load())
	sum.Reported = int(n.reported.Load())
	sum.Failed = int(n.failed.Load())
	sum.Up = int(n.up.Load())
	sum.Down = int(n.down.Load())
	sum.Skipped = int(n.skipped.Load())
	sum.Duration = time.Since(started)

	c.log.Info("scan_finished",
		zap.Int("total", sum.Total),
		zap.Int("probed", sum.Probed),
		zap.Int("reported", sum.Reported),
		zap.Int("failed", sum.Failed),
		zap.Int("up", sum.Up),
		zap.Int("down", sum.Down),
		zap.Int("skipped", sum.Skipped),
		zap.Duration("duration", sum.Duration),
	)
	c.observeCycle(sum)
	return sum
}

// runMonitor probes and reports one monitor. A monitor reached after ctx is
// done, or whose probe was cut short by it, is only counted as skipped.
func (c *Cycle) runMonitor(ctx context.Context, m domain.MonitorRecord, n *counters) {
	counted := false
	defer func() {
		if r := recover(); r != nil {
			if !counted {
				n.failed.Add(1)
			}
			c.log.Error("monitor_panic",
				zap.String("monitor", m.DisplayName()),
				zap.String("ref", m.Reference),
				zap.String("panic", fmt.Sprint(r)),
				zap.ByteString("stack", debug.Stack()),
			)
		}
	}()

	if ctx.Err() != nil {
		n.skipped.Add(1)
		return
	}

	// Captured once; the log line and the ledger see the same value.
	ts := c.opts.Now().Unix()

	pctx := ctx
	if c.opts.ProbeTimeout > 0 {
		var cancel context.CancelFunc
		pctx, cancel = context.WithTimeout(ctx, c.opts.ProbeTimeout)
		defer cancel()
	}
	res := c.checker.Check(pctx, m.URL)
	if ctx.Err() != nil {
		// The probe was cut short by shutdown, not by the target.
		n.skipped.Add(1)
		return
	}
	n.probed.Add(1)
	if res.Success {
		n.up.Add(1)
	} else {
		n.down.Add(1)
	}

	p := domain.PingOutcome{
		MonitorReference: m.Reference,
		Label:            m.Label,
		URL:              m.URL,
		Success:          res.Success,
		ObservedAtUnix:   ts,
	}
	fields := []zap.Field{
		zap.String("monitor", p.DisplayName()),
		zap.String("url", p.URL),
		zap.String("state", p.State()),
		zap.Int64("ts", ts),
	}
	if c.opts.Debug {
		fields = append(fields,
			zap.Int("status", res.StatusCode),
			zap.Float64("latency_ms", res.LatencyMS),
			zap.String("reason", res.Message),
		)
		if res.FinalURL != "" {
			fields = append(fields, zap.Bool("redirected", res.Redirected), zap.String("final_url", res.FinalURL))
		}
		if res.Snippet != "" {
			fields = append(fields, zap.String("snippet", res.Snippet))
		}
		if res.DNSClass != "" {
			fields = append(fields, zap.String("dns", res.DNSClass))
		}
	}
	c.log.Info("ping", fields...)

	out := c.reporter.Report(ctx, p)
	if out.OK() {
		n.reported.Add(1)
	} else {
		n.failed.Add(1)
	}
	counted = true

	c.observeMonitor(domain.MonitorResult{
		Ping:       p,
		HTTPStatus: res.StatusCode,
		LatencyMS:  res.LatencyMS,
		Reason:     res.Message,
		Report:     out,
	})
}

func (c *Cycle) observeMonitor(r domain.MonitorResult) {
	for _, o := range c.opts.Observers {
		o.ObserveMonitor(r)
	}
}

func (c *Cycle) observeCycle(s domain.CycleSummary) {
	for _, o := range c.opts.Observers {
		o.ObserveCycle(s)
	}
}
