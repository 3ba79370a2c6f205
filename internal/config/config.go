package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	env "github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"go.uber.org/multierr"

	"github.com/hamed0406/uptimekeeper/internal/probe"
)

// Ledger drivers.
const (
	DriverSolana   = "solana"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

// Config is assembled once at startup and passed by value.
type Config struct {
	LedgerDriver     string `koanf:"ledger_driver"`
	LedgerEndpoint   string `koanf:"anchor_provider_url"` // Solana JSON-RPC URL
	LedgerCommitment string `koanf:"ledger_commitment"`
	WalletKeypair    string `koanf:"wallet_keypair"` // reporting credential
	IDLPath          string `koanf:"idl_path"`       // program descriptor
	ProgramID        string `koanf:"program_id"`     // overrides the descriptor address
	DatabaseURL      string `koanf:"database_url"`   // postgres DSN or sqlite file
	MemorySeedFile   string `koanf:"memory_seed_file"`

	IntervalMS             int `koanf:"interval_ms"`
	RequestTimeoutMS       int `koanf:"request_timeout_ms"`
	LedgerTimeoutMS        int `koanf:"ledger_timeout_ms"`
	LedgerBreakerFailures  int `koanf:"ledger_breaker_failures"`
	LedgerBreakerTimeoutMS int `koanf:"ledger_breaker_timeout_ms"`
	MaxConcurrentChecks    int `koanf:"max_concurrent_checks"`

	ProbeDebug        bool   `koanf:"probe_debug"`
	ProbeUserAgent    string `koanf:"probe_user_agent"`
	ProbeSnippetBytes int    `koanf:"probe_snippet_bytes"`

	LogDir   string `koanf:"log_dir"`
	LogLevel string `koanf:"log_level"`

	StatusAddr     string   `koanf:"status_addr"` // empty disables the status API
	PublicAPIKeys  []string `koanf:"public_api_keys"`
	AdminAPIKeys   []string `koanf:"admin_api_keys"`
	AllowedOrigins []string `koanf:"allowed_origins"`
	PublicRPM      int      `koanf:"public_rpm"`
	PublicBurst    int      `koanf:"public_burst"`
	AdminRPM       int      `koanf:"admin_rpm"`
	AdminBurst     int      `koanf:"admin_burst"`
}

func Defaults() Config {
	return Config{
		LedgerDriver:           DriverSolana,
		LedgerEndpoint:         "https://api.devnet.solana.com",
		LedgerCommitment:       "confirmed",
		WalletKeypair:          "target/deploy/uptime-keypair.json",
		IDLPath:                "target/idl/uptime.json",
		IntervalMS:             180_000,
		RequestTimeoutMS:       10_000,
		LedgerTimeoutMS:        30_000,
		LedgerBreakerFailures:  5,
		LedgerBreakerTimeoutMS: 60_000,
		MaxConcurrentChecks:    4,
		ProbeUserAgent:         probe.DefaultUserAgent,
		ProbeSnippetBytes:      2000,
		LogDir:                 "logs",
		LogLevel:               "info",
		PublicRPM:              120,
		PublicBurst:            60,
		AdminRPM:               60,
		AdminBurst:             30,
	}
}

var listKeys = map[string]bool{
	"public_api_keys": true,
	"admin_api_keys":  true,
	"allowed_origins": true,
}

// Load layers defaults, the optional YAML file named by CONFIG_FILE, then
// environment variables. Only known keys are read from the environment.
func Load() (Config, error) {
	cfg := Defaults()
	k := koanf.New(".")

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	known := knownKeys()
	if err := k.Load(env.Provider(".", env.Opt{
		TransformFunc: func(key, value string) (string, any) {
			key = strings.ToLower(key)
			if !known[key] {
				return "", nil
			}
			if listKeys[key] {
				return key, splitCSV(value)
			}
			return key, strings.TrimSpace(value)
		},
	}), nil); err != nil {
		return Config{}, fmt.Errorf("loading env vars: %w", err)
	}

	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	cfg.LedgerDriver = strings.ToLower(strings.TrimSpace(cfg.LedgerDriver))
	return cfg, nil
}

func knownKeys() map[string]bool {
	return map[string]bool{
		"ledger_driver": true, "anchor_provider_url": true, "ledger_commitment": true,
		"wallet_keypair": true, "idl_path": true, "program_id": true, "database_url": true,
		"memory_seed_file": true, "interval_ms": true, "request_timeout_ms": true,
		"ledger_timeout_ms": true, "ledger_breaker_failures": true, "ledger_breaker_timeout_ms": true,
		"max_concurrent_checks": true, "probe_debug": true, "probe_user_agent": true,
		"probe_snippet_bytes": true, "log_dir": true, "log_level": true, "status_addr": true,
		"public_api_keys": true, "admin_api_keys": true, "allowed_origins": true,
		"public_rpm": true, "public_burst": true, "admin_rpm": true, "admin_burst": true,
	}
}

func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate reports every problem at once.
func (c Config) Validate() error {
	var err error
	switch c.LedgerDriver {
	case DriverSolana:
		if c.LedgerEndpoint == "" {
			err = multierr.Append(err, fmt.Errorf("ANCHOR_PROVIDER_URL must be set for the solana driver"))
		}
		switch c.LedgerCommitment {
		case "processed", "confirmed", "finalized":
		default:
			err = multierr.Append(err, fmt.Errorf("LEDGER_COMMITMENT must be processed, confirmed or finalized; got %q", c.LedgerCommitment))
		}
	case DriverPostgres, DriverSQLite:
		if c.DatabaseURL == "" {
			err = multierr.Append(err, fmt.Errorf("DATABASE_URL must be set for the %s driver", c.LedgerDriver))
		}
	case DriverMemory:
	default:
		err = multierr.Append(err, fmt.Errorf("LEDGER_DRIVER must be one of solana, postgres, sqlite, memory; got %q", c.LedgerDriver))
	}
	if c.WalletKeypair == "" {
		err = multierr.Append(err, fmt.Errorf("WALLET_KEYPAIR must be set"))
	}

	positive := []struct {
		name string
		v    int
	}{
		{"INTERVAL_MS", c.IntervalMS},
		{"REQUEST_TIMEOUT_MS", c.RequestTimeoutMS},
		{"LEDGER_TIMEOUT_MS", c.LedgerTimeoutMS},
		{"MAX_CONCURRENT_CHECKS", c.MaxConcurrentChecks},
		{"PROBE_SNIPPET_BYTES", c.ProbeSnippetBytes},
	}
	for _, p := range positive {
		if p.v <= 0 {
			err = multierr.Append(err, fmt.Errorf("%s must be positive, got %d", p.name, p.v))
		}
	}
	if c.LedgerBreakerFailures < 0 {
		err = multierr.Append(err, fmt.Errorf("LEDGER_BREAKER_FAILURES must not be negative, got %d", c.LedgerBreakerFailures))
	}
	if c.LedgerBreakerFailures > 0 && c.LedgerBreakerTimeoutMS <= 0 {
		err = multierr.Append(err, fmt.Errorf("LEDGER_BREAKER_TIMEOUT_MS must be positive when the breaker is on"))
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		err = multierr.Append(err, fmt.Errorf("LOG_LEVEL must be one of debug, info, warn, error; got %q", c.LogLevel))
	}
	return err
}

func ms(v int) time.Duration { return time.Duration(v) * time.Millisecond }

func (c Config) Interval() time.Duration             { return ms(c.IntervalMS) }
func (c Config) RequestTimeout() time.Duration       { return ms(c.RequestTimeoutMS) }
func (c Config) LedgerTimeout() time.Duration        { return ms(c.LedgerTimeoutMS) }
func (c Config) LedgerBreakerTimeout() time.Duration { return ms(c.LedgerBreakerTimeoutMS) }
