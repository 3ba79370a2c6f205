package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hamed0406/uptimekeeper/internal/config"
	"github.com/hamed0406/uptimekeeper/internal/ledger"
	"github.com/hamed0406/uptimekeeper/internal/ledger/memory"
	"github.com/hamed0406/uptimekeeper/internal/ledger/postgres"
	"github.com/hamed0406/uptimekeeper/internal/ledger/solana"
	"github.com/hamed0406/uptimekeeper/internal/ledger/sqlite"
)

// openLedger builds the configured backend. The returned close func is
// never nil.
func openLedger(ctx context.Context, cfg config.Config, cred *ledger.Credential, log *zap.Logger) (ledger.Client, func() error, string, error) {
	noop := func() error { return nil }
	identity := cred.Identity()

	switch cfg.LedgerDriver {
	case config.DriverSolana:
		desc, err := solana.LoadDescriptor(cfg.IDLPath)
		if err != nil {
			return nil, noop, "", fmt.Errorf("load program descriptor: %w", err)
		}
		program, err := solana.ResolveProgramID(cfg.ProgramID, desc)
		if err != nil {
			return nil, noop, "", err
		}
		c, err := solana.New(solana.Options{
			Endpoint:       cfg.LedgerEndpoint,
			ProgramID:      program,
			Descriptor:     desc,
			Commitment:     cfg.LedgerCommitment,
			ConfirmTimeout: cfg.LedgerTimeout(),
		}, cred, log)
		if err != nil {
			return nil, noop, "", err
		}
		return c, noop, program.String(), nil

	case config.DriverPostgres:
		s, err := postgres.New(ctx, cfg.DatabaseURL, identity, log)
		if err != nil {
			return nil, noop, "", err
		}
		if err := s.Migrate(ctx); err != nil {
			s.Close()
			return nil, noop, "", err
		}
		return s, func() error { s.Close(); return nil }, "postgres", nil

	case config.DriverSQLite:
		s, err := sqlite.Open(ctx, cfg.DatabaseURL, identity)
		if err != nil {
			return nil, noop, "", err
		}
		return s, s.Close, "sqlite", nil

	case config.DriverMemory:
		s := memory.New()
		if cfg.MemorySeedFile != "" {
			var err error
			if s, err = memory.LoadSeed(ctx, cfg.MemorySeedFile); err != nil {
				return nil, noop, "", err
			}
		}
		return s.As(identity), noop, "memory", nil
	}
	return nil, noop, "", fmt.Errorf("unknown ledger driver %q", cfg.LedgerDriver)
}
