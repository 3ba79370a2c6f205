package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/uptimekeeper/internal/domain"
)

type countingRunner struct {
	runs          atomic.Int32
	inflight, max atomic.Int32
	sleep         time.Duration
}

func (c *countingRunner) Run(ctx context.Context) domain.CycleSummary {
	c.runs.Add(1)
	cur := c.inflight.Add(1)
	if cur > c.max.Load() {
		c.max.Store(cur)
	}
	time.Sleep(c.sleep)
	c.inflight.Add(-1)
	return domain.CycleSummary{}
}

func TestScheduler_RunsImmediatelyThenOnTicks(t *testing.T) {
	r := &countingRunner{}
	ctx, cancel := context.WithTimeout(context.Background(), 350*time.Millisecond)
	defer cancel()

	err := New(r, 100*time.Millisecond, zap.NewNop()).Run(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("want ctx error, got %v", err)
	}
	if n := r.runs.Load(); n < 3 || n > 4 {
		t.Fatalf("want 3..4 cycles in 350ms, got %d", n)
	}
}

func TestScheduler_DrivesRealCycleOverEmptyLedger(t *testing.T) {
	col := &collector{}
	cycle := NewCycle(&fakeLister{}, stubChecker{}, &recordingReporter{}, zap.NewNop(),
		CycleOptions{Observers: []Observer{col}})
	ctx, cancel := context.WithTimeout(context.Background(), 350*time.Millisecond)
	defer cancel()

	if err := New(cycle, 100*time.Millisecond, zap.NewNop()).Run(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("want ctx error, got %v", err)
	}
	col.mu.Lock()
	defer col.mu.Unlock()
	if n := len(col.cycles); n < 3 || n > 4 {
		t.Fatalf("want 3..4 cycles in 350ms, got %d", n)
	}
	for _, c := range col.cycles {
		if c.ListFailed || c.Total != 0 {
			t.Fatalf("unexpected summary %+v", c)
		}
	}
}

func TestScheduler_CyclesNeverOverlap(t *testing.T) {
	r := &countingRunner{sleep: 60 * time.Millisecond}
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	New(r, 10*time.Millisecond, zap.NewNop()).Run(ctx)
	if m := r.max.Load(); m != 1 {
		t.Fatalf("cycles overlapped: max in-flight %d", m)
	}
	if n := r.runs.Load(); n < 2 {
		t.Fatalf("want back-to-back cycles, got %d", n)
	}
}

func TestScheduler_RejectsNonPositiveInterval(t *testing.T) {
	if err := New(&countingRunner{}, 0, nil).Run(context.Background()); err == nil {
		t.Fatalf("want error for zero interval")
	}
}
