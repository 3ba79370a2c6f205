package scheduler

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/uptimekeeper/internal/domain"
)

// Runner runs one cycle.
type Runner interface {
	Run(ctx context.Context) domain.CycleSummary
}

// Scheduler runs cycles on a fixed wall-clock period. Cycles never overlap:
// ticks that fire during a cycle collapse into one and the next cycle starts
// as soon as the current one ends.
type Scheduler struct {
	runner   Runner
	interval time.Duration
	log      *zap.Logger
}

func New(runner Runner, interval time.Duration, log *zap.Logger) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Scheduler{runner: runner, interval: interval, log: log}
}

// Run does an immediate cycle, then one per tick. It returns ctx.Err()
// once ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	if s.interval <= 0 {
		return errors.New("scheduler interval must be positive")
	}
	t := time.NewTicker(s.interval)
	defer t.Stop()

	s.runner.Run(ctx)

	for {
		select {
		case <-ctx.Done():
			s.log.Info("scheduler_stopped")
			return ctx.Err()
		case <-t.C:
			if ctx.Err() != nil {
				continue
			}
			s.runner.Run(ctx)
		}
	}
}
