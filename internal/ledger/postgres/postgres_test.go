package postgres

import (
	"context"
	"fmt"
	"math"
	"os"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/uptimekeeper/internal/ledger"
)

func TestPostgresStore_RegisterListSubmit(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set; skipping Postgres integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	store, err := New(ctx, dsn, "keeper", zap.NewNop())
	if err != nil {
		t.Fatalf("New store: %v", err)
	}
	defer store.Close()
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("Migrate: %v", err)
	}

	// Unique references per run so reruns on the same database don't collide.
	suffix := time.Now().UTC().UnixNano()
	mine := fmt.Sprintf("mine-%d", suffix)
	theirs := fmt.Sprintf("theirs-%d", suffix)
	full := fmt.Sprintf("full-%d", suffix)

	for _, r := range []ledger.Registration{
		{Reference: mine, Owner: "keeper", Label: "mine", URL: "https://example.com/a"},
		{Reference: theirs, Owner: "other", URL: "https://example.com/b"},
		{Reference: full, Owner: "other", Reporter: "keeper", URL: "https://example.com/c"},
	} {
		if _, err := store.Register(ctx, r); err != nil {
			t.Fatalf("Register %s: %v", r.Reference, err)
		}
	}
	if _, err := store.pool.Exec(ctx, `UPDATE monitors SET failure_count = $1 WHERE reference = $2`, int64(math.MaxInt64), full); err != nil {
		t.Fatalf("prime overflow: %v", err)
	}

	if _, err := store.SubmitPing(ctx, mine, true, 1700000000); err != nil {
		t.Fatalf("SubmitPing: %v", err)
	}

	list, err := store.ListMonitors(ctx)
	if err != nil {
		t.Fatalf("ListMonitors: %v", err)
	}
	found := false
	for _, m := range list {
		if m.Reference == mine {
			found = true
			if m.SuccessCount != 1 || m.TotalPings != 1 || m.LastPingUnix != 1700000000 {
				t.Fatalf("counters not updated: %+v", m)
			}
		}
	}
	if !found {
		t.Fatalf("registered monitor not listed")
	}

	want := map[string]int{
		theirs:              ledger.CodeNotAuthorized,
		full:                ledger.CodeOverflow,
		"missing-" + theirs: ledger.CodeNotFound,
	}
	for ref, code := range want {
		_, err := store.SubmitPing(ctx, ref, false, 1)
		re, ok := ledger.IsRejected(err)
		if !ok || re.Code != code {
			t.Fatalf("%s: want rejection code %d, got %v", ref, code, err)
		}
	}
}
