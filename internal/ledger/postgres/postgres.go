package postgres

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/hamed0406/uptimekeeper/internal/domain"
	"github.com/hamed0406/uptimekeeper/internal/ledger"
)

var (
	_ ledger.Client    = (*Store)(nil)
	_ ledger.Registrar = (*Store)(nil)
)

// Schema is applied by Migrate.
const Schema = `
CREATE TABLE IF NOT EXISTS monitors (
  reference     TEXT PRIMARY KEY,
  owner         TEXT NOT NULL,
  reporter      TEXT NOT NULL DEFAULT '',
  seed          BIGINT NOT NULL DEFAULT 0,
  interval_secs BIGINT NOT NULL DEFAULT 0,
  label         TEXT NOT NULL DEFAULT '' CHECK (octet_length(label) <= 64),
  url           TEXT NOT NULL CHECK (octet_length(url) <= 256),
  created_at    BIGINT NOT NULL,
  last_ping     BIGINT NOT NULL DEFAULT 0,
  success_count BIGINT NOT NULL DEFAULT 0,
  failure_count BIGINT NOT NULL DEFAULT 0,
  total_pings   BIGINT NOT NULL DEFAULT 0,
  version       BIGINT NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_monitors_created_at ON monitors (created_at, reference);
`

type Store struct {
	pool     *pgxpool.Pool
	log      *zap.Logger
	identity string
}

// New connects and pings. identity is the reporter SubmitPing is
// authorized as.
func New(ctx context.Context, dsn, identity string, log *zap.Logger) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	ctxPing, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctxPing); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return &Store{pool: pool, log: log, identity: identity}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

func (s *Store) Register(ctx context.Context, r ledger.Registration) (domain.MonitorRecord, error) {
	if err := r.Validate(); err != nil {
		return domain.MonitorRecord{}, err
	}
	if r.CreatedAtUnix == 0 {
		r.CreatedAtUnix = time.Now().UTC().Unix()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO monitors (reference, owner, reporter, seed, interval_secs, label, url, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		r.Reference, r.Owner, r.Reporter, int64(r.Seed), r.IntervalSeconds, r.Label, r.URL, r.CreatedAtUnix,
	)
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
	rows, err := s.pool.Query(ctx,
		`SELECT reference, owner, seed, interval_secs, label, url, created_at,
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

func (s *Store) SubmitPing(ctx context.Context, monitorRef string, success bool, timestamp int64) (ledger.Receipt, error) {
	if monitorRef == "" {
		return ledger.Receipt{}, ledger.Reject(ledger.CodeInvalidReference, "", ledger.ErrInvalidReference)
	}
	var version int64
	err := s.pool.QueryRow(ctx,
		`UPDATE monitors
		    SET total_pings   = total_pings + 1,
		        success_count = success_count + CASE WHEN $2::boolean THEN 1 ELSE 0 END,
		        failure_count = failure_count + CASE WHEN $2::boolean THEN 0 ELSE 1 END,
		        last_ping     = $3,
		        version       = version + 1
		  WHERE reference = $1
		    AND (owner = $4 OR reporter = $4)
		    AND total_pings < $5
		    AND (CASE WHEN $2::boolean THEN success_count ELSE failure_count END) < $5
		 RETURNING version`,
		monitorRef, success, timestamp, s.identity, int64(math.MaxInt64),
	).Scan(&version)
	if err == nil {
		return ledger.Receipt{Reference: monitorRef + "@" + strconv.FormatInt(version, 10)}, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return ledger.Receipt{}, fmt.Errorf("record ping: %w", err)
	}

	var owner, reporter string
	err = s.pool.QueryRow(ctx, `SELECT owner, reporter FROM monitors WHERE reference = $1`, monitorRef).Scan(&owner, &reporter)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return ledger.Receipt{}, ledger.Reject(ledger.CodeNotFound, "", ledger.ErrMonitorNotFound)
	case err != nil:
		return ledger.Receipt{}, fmt.Errorf("inspect monitor: %w", err)
	case s.identity != owner && s.identity != reporter:
		return ledger.Receipt{}, ledger.Reject(ledger.CodeNotAuthorized, "", ledger.ErrNotAuthorized)
	default:
		s.log.Warn("counter_overflow", zap.String("monitor", monitorRef))
		return ledger.Receipt{}, ledger.Reject(ledger.CodeOverflow, "", ledger.ErrCounterOverflow)
	}
}
