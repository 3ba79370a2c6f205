package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hamed0406/uptimekeeper/internal/domain"
	"github.com/hamed0406/uptimekeeper/internal/ledger"
)

// Store is a ledger kept in a local SQLite file.
type Store struct {
	db       *sql.DB
	identity string
}

var (
	_ ledger.Client    = (*Store)(nil)
	_ ledger.Registrar = (*Store)(nil)
)

// Open connects to the database file and runs migrations. identity is the
// reporter every SubmitPing is authorized as.
func Open(ctx context.Context, path, identity string) (*Store, error) {
	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path))
	if err != nil {
		return nil, fmt.Errorf("unable to open sqlite database: %w", err)
	}
	// One writer; keeps counter updates serialized.
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}
	s := &Store{db: db, identity: identity}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate(ctx context.Context) error {
	const schema = `
CREATE TABLE IF NOT EXISTS monitors (
	reference     TEXT PRIMARY KEY,
	owner         TEXT NOT NULL,
	reporter      TEXT NOT NULL DEFAULT '',
	seed          INTEGER NOT NULL DEFAULT 0,
	interval_secs INTEGER NOT NULL DEFAULT 0,
	label         TEXT NOT NULL DEFAULT '',
	url           TEXT NOT NULL,
	created_at    INTEGER NOT NULL,
	last_ping     INTEGER NOT NULL DEFAULT 0,
	success_count INTEGER NOT NULL DEFAULT 0,
	failure_count INTEGER NOT NULL DEFAULT 0,
	total_pings   INTEGER NOT NULL DEFAULT 0,
	version       INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_monitors_created_at ON monitors (created_at, reference);
`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

func (s *Store) Register(ctx context.Context, r ledger.Registration) (domain.MonitorRecord, error) {
	if err := r.Validate(); err != nil {
		return domain.MonitorRecord{}, err
	}
	if r.CreatedAtUnix == 0 {
		r.CreatedAtUnix = time.Now().UTC().Unix()
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO monitors (reference, owner, reporter, seed, interval_secs, label, url, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.Reference, r.Owner, r.Reporter, int64(r.Seed), r.IntervalSeconds, r.Label, r.URL, r.CreatedAtUnix)
	if err != nil {
		return domain.MonitorRecord{}, fmt.Errorf("insert monitor: %w", err)
	}
	return domain.MonitorRecord{
		Reference:       r.Reference,
		URL:             r.URL,
		Label:           r.Label,
		OwnerReference:  r.Owner,
		Seed:            r.Seed,
		IntervalSeconds: r.IntervalSeconds,
		CreatedAtUnix:   r.CreatedAtUnix,
	}, nil
}

func (s *Store) ListMonitors(ctx context.Context) ([]domain.MonitorRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT reference, owner, seed, interval_secs, label, url, created_at,
       last_ping, success_count, failure_count, total_pings
  FROM monitors
 ORDER BY created_at, reference`)
	if err != nil {
		return nil, fmt.Errorf("list monitors: %w", err)
	}
	defer rows.Close()

	var out []domain.MonitorRecord
	for rows.Next() {
		var (
			m                       domain.MonitorRecord
			seed, succ, fail, total int64
		)
		if err := rows.Scan(&m.Reference, &m.OwnerReference, &seed, &m.IntervalSeconds, &m.Label, &m.URL,
			&m.CreatedAtUnix, &m.LastPingUnix, &succ, &fail, &total); err != nil {
			return nil, fmt.Errorf("scan monitor: %w", err)
		}
		m.Seed, m.SuccessCount, m.FailureCount, m.TotalPings = uint64(seed), uint64(succ), uint64(fail), uint64(total)
		out = append(out, m)
	}
	return out, rows.Err()
}

// SubmitPing applies the ping in a single guarded UPDATE. When it touches
// no row the monitor is re-read to say why.
func (s *Store) SubmitPing(ctx context.Context, monitorRef string, success bool, timestamp int64) (ledger.Receipt, error) {
	if monitorRef == "" {
		return ledger.Receipt{}, ledger.Reject(ledger.CodeInvalidReference, "", ledger.ErrInvalidReference)
	}
	var version int64
	err := s.db.QueryRowContext(ctx, `
UPDATE monitors
   SET total_pings   = total_pings + 1,
       success_count = success_count + CASE WHEN ? THEN 1 ELSE 0 END,
       failure_count = failure_count + CASE WHEN ? THEN 0 ELSE 1 END,
       last_ping     = ?,
       version       = version + 1
 WHERE reference = ?
   AND (owner = ? OR reporter = ?)
   AND total_pings < ?
   AND (CASE WHEN ? THEN success_count ELSE failure_count END) < ?
RETURNING version`,
		success, success, timestamp, monitorRef, s.identity, s.identity,
		int64(math.MaxInt64), success, int64(math.MaxInt64)).Scan(&version)
	if err == nil {
		return ledger.Receipt{Reference: monitorRef + "@" + strconv.FormatInt(version, 10)}, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return ledger.Receipt{}, fmt.Errorf("record ping: %w", err)
	}
	return ledger.Receipt{}, s.explain(ctx, monitorRef)
}

func (s *Store) explain(ctx context.Context, monitorRef string) error {
	var owner, reporter string
	err := s.db.QueryRowContext(ctx,
		`SELECT owner, reporter FROM monitors WHERE reference = ?`, monitorRef).Scan(&owner, &reporter)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return ledger.Reject(ledger.CodeNotFound, "", ledger.ErrMonitorNotFound)
	case err != nil:
		return fmt.Errorf("inspect monitor: %w", err)
	case s.identity != owner && s.identity != reporter:
		return ledger.Reject(ledger.CodeNotAuthorized, "", ledger.ErrNotAuthorized)
	default:
		return ledger.Reject(ledger.CodeOverflow, "", ledger.ErrCounterOverflow)
	}
}
