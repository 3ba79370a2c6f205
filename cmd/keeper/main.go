package main

import (
	"context"
	"errors"
	"io/fs"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/hamed0406/uptimekeeper/internal/config"
	"github.com/hamed0406/uptimekeeper/internal/httpapi"
	apimw "github.com/hamed0406/uptimekeeper/internal/httpapi/middleware"
	"github.com/hamed0406/uptimekeeper/internal/ledger"
	"github.com/hamed0406/uptimekeeper/internal/logging"
	"github.com/hamed0406/uptimekeeper/internal/metrics"
	"github.com/hamed0406/uptimekeeper/internal/probe"
	"github.com/hamed0406/uptimekeeper/internal/report"
	"github.com/hamed0406/uptimekeeper/internal/scheduler"
	"github.com/hamed0406/uptimekeeper/internal/status"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("load .env: %v", err)
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration:\n%v", err)
	}
	logger, err := logging.NewLogger(cfg.LogDir, cfg.LogLevel)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("keeper_failed", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *zap.Logger) (err error) {
	cred, err := ledger.LoadCredential(cfg.WalletKeypair)
	if err != nil {
		return err
	}
	client, closeLedger, program, err := openLedger(ctx, cfg, cred, logger)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, closeLedger()) }()

	logger.Info("keeper_starting",
		zap.String("driver", cfg.LedgerDriver),
		zap.String("endpoint", cfg.LedgerEndpoint),
		zap.String("wallet", cfg.WalletKeypair),
		zap.String("idl", cfg.IDLPath),
		zap.String("program_id", program),
		zap.String("identity", cred.Identity()),
		zap.Duration("interval", cfg.Interval()),
		zap.Duration("request_timeout", cfg.RequestTimeout()),
		zap.Int("concurrency", cfg.MaxConcurrentChecks),
	)

	reporter := report.New(client, logger, report.Options{
		Timeout:         cfg.LedgerTimeout(),
		BreakerFailures: cfg.LedgerBreakerFailures,
		BreakerTimeout:  cfg.LedgerBreakerTimeout(),
	})

	opts := []probe.Option{probe.WithUserAgent(cfg.ProbeUserAgent)}
	if cfg.ProbeDebug {
		opts = append(opts, probe.WithDebug(cfg.ProbeSnippetBytes))
	}
	checker := probe.NewHTTPChecker(cfg.RequestTimeout(), opts...)

	st := status.New()
	m := metrics.NewMetrics(nil)
	cycle := scheduler.NewCycle(client, checker, reporter, logger, scheduler.CycleOptions{
		Concurrency: cfg.MaxConcurrentChecks,
		Debug:       cfg.ProbeDebug,
		Observers:   []scheduler.Observer{st, m},
	})

	var srv *http.Server
	if cfg.StatusAddr != "" {
		api := httpapi.NewServer(logger, st, checker, m.Handler(), reporter)
		srv = &http.Server{
			Addr: cfg.StatusAddr,
			Handler: api.Router(apimw.Keys{Public: cfg.PublicAPIKeys, Admin: cfg.AdminAPIKeys},
				cfg.AllowedOrigins, cfg.PublicRPM, cfg.PublicBurst, cfg.AdminRPM, cfg.AdminBurst),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			logger.Info("api_listen", zap.String("addr", cfg.StatusAddr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("api_listen_failed", zap.Error(err))
			}
		}()
	}

	runErr := scheduler.New(cycle, cfg.Interval(), logger).Run(ctx)
	if errors.Is(runErr, context.Canceled) {
		runErr = nil
	}

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		runErr = multierr.Append(runErr, srv.Shutdown(shutdownCtx))
	}
	logger.Info("keeper_stopped")
	return runErr
}
