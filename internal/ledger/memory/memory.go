package memory

import (
	"context"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hamed0406/uptimekeeper/internal/domain"
	"github.com/hamed0406/uptimekeeper/internal/ledger"
)

type entry struct {
	rec      domain.MonitorRecord
	reporter string
}

// Store is an in-process ledger with the same authorization and overflow
// rules as the SQL backends.
type Store struct {
	mu       sync.RWMutex
	monitors map[string]*entry
	version  uint64
}

var (
	_ ledger.Client    = (*Store)(nil)
	_ ledger.Registrar = (*Store)(nil)
)

func New() *Store {
	return &Store{monitors: make(map[string]*entry)}
}

// SeedFile is the YAML shape accepted by LoadSeed.
type SeedFile struct {
	Monitors []SeedMonitor `yaml:"monitors"`
}

type SeedMonitor struct {
	Reference string `yaml:"reference"`
	Owner     string `yaml:"owner"`
	Reporter  string `yaml:"reporter"`
	Seed      uint64 `yaml:"seed"`
	Interval  int64  `yaml:"interval"`
	Label     string `yaml:"label"`
	URL       string `yaml:"url"`

	SuccessCount uint64 `yaml:"success_count"`
	FailureCount uint64 `yaml:"failure_count"`
	TotalPings   uint64 `yaml:"total_pings"`
}

// LoadSeed builds a Store from a YAML seed file.
func LoadSeed(ctx context.Context, path string) (*Store, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed: %w", err)
	}
	var f SeedFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse seed %s: %w", path, err)
	}
	s := New()
	for i, m := range f.Monitors {
		ref := m.Reference
		if ref == "" {
			ref = "monitor-" + strconv.Itoa(i+1)
		}
		rec, err := s.Register(ctx, ledger.Registration{
			Reference:       ref,
			Owner:           m.Owner,
			Reporter:        m.Reporter,
			Seed:            m.Seed,
			IntervalSeconds: m.Interval,
			Label:           m.Label,
			URL:             m.URL,
		})
		if err != nil {
			return nil, fmt.Errorf("seed monitor %d: %w", i, err)
		}
		e := s.monitors[rec.Reference]
		e.rec.SuccessCount = m.SuccessCount
		e.rec.FailureCount = m.FailureCount
		e.rec.TotalPings = m.TotalPings
	}
	return s, nil
}

func (s *Store) Register(ctx context.Context, r ledger.Registration) (domain.MonitorRecord, error) {
	if err := r.Validate(); err != nil {
		return domain.MonitorRecord{}, err
	}
	if r.CreatedAtUnix == 0 {
		r.CreatedAtUnix = time.Now().UTC().Unix()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.monitors[r.Reference]; ok {
		return domain.MonitorRecord{}, fmt.Errorf("monitor %s already registered", r.Reference)
	}
	rec := domain.MonitorRecord{
		Reference:       r.Reference,
		URL:             r.URL,
		Label:           r.Label,
		OwnerReference:  r.Owner,
		Seed:            r.Seed,
		IntervalSeconds: r.IntervalSeconds,
		CreatedAtUnix:   r.CreatedAtUnix,
	}
	s.monitors[r.Reference] = &entry{rec: rec, reporter: r.Reporter}
	return rec, nil
}

// ListMonitors returns copies ordered by creation time then reference.
func (s *Store) ListMonitors(ctx context.Context) ([]domain.MonitorRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.MonitorRecord, 0, len(s.monitors))
	for _, e := range s.monitors {
		out = append(out, e.rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAtUnix != out[j].CreatedAtUnix {
			return out[i].CreatedAtUnix < out[j].CreatedAtUnix
		}
		return out[i].Reference < out[j].Reference
	})
	return out, nil
}

// SubmitPing records a ping without an identity check. Use As to enforce
// authorization.
func (s *Store) SubmitPing(ctx context.Context, monitorRef string, success bool, timestamp int64) (ledger.Receipt, error) {
	return s.SubmitPingAs(ctx, "", monitorRef, success, timestamp)
}

// SubmitPingAs checks identity against the monitor's owner and designated
// reporter. An empty identity skips the check.
func (s *Store) SubmitPingAs(ctx context.Context, identity, monitorRef string, success bool, timestamp int64) (ledger.Receipt, error) {
	if err := ctx.Err(); err != nil {
		return ledger.Receipt{}, err
	}
	if monitorRef == "" {
		return ledger.Receipt{}, ledger.Reject(ledger.CodeInvalidReference, "", ledger.ErrInvalidReference)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.monitors[monitorRef]
	if !ok {
		return ledger.Receipt{}, ledger.Reject(ledger.CodeNotFound, "", ledger.ErrMonitorNotFound)
	}
	if identity != "" && identity != e.rec.OwnerReference && identity != e.reporter {
		return ledger.Receipt{}, ledger.Reject(ledger.CodeNotAuthorized, "", ledger.ErrNotAuthorized)
	}
	if e.rec.TotalPings == math.MaxUint64 ||
		(success && e.rec.SuccessCount == math.MaxUint64) ||
		(!success && e.rec.FailureCount == math.MaxUint64) {
		return ledger.Receipt{}, ledger.Reject(ledger.CodeOverflow, "", ledger.ErrCounterOverflow)
	}
	e.rec.TotalPings++
	if success {
		e.rec.SuccessCount++
	} else {
		e.rec.FailureCount++
	}
	e.rec.LastPingUnix = timestamp
	s.version++
	return ledger.Receipt{Reference: fmt.Sprintf("mem-%d", s.version)}, nil
}

// As binds an identity so the store can be used as a ledger.Client that
// enforces authorization.
func (s *Store) As(identity string) ledger.Client {
	return boundStore{s: s, identity: identity}
}

type boundStore struct {
	s        *Store
	identity string
}

func (b boundStore) ListMonitors(ctx context.Context) ([]domain.MonitorRecord, error) {
	return b.s.ListMonitors(ctx)
}

func (b boundStore) SubmitPing(ctx context.Context, monitorRef string, success bool, timestamp int64) (ledger.Receipt, error) {
	return b.s.SubmitPingAs(ctx, b.identity, monitorRef, success, timestamp)
}

func (b boundStore) Register(ctx context.Context, r ledger.Registration) (domain.MonitorRecord, error) {
	return b.s.Register(ctx, r)
}

// Get returns one monitor's current record.
func (s *Store) Get(monitorRef string) (domain.MonitorRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.monitors[monitorRef]
	if !ok {
		return domain.MonitorRecord{}, false
	}
	return e.rec, true
}
