// cmd/preflight/main.go
package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"go.uber.org/multierr"

	"github.com/hamed0406/uptimekeeper/internal/config"
	"github.com/hamed0406/uptimekeeper/internal/ledger"
	"github.com/hamed0406/uptimekeeper/internal/ledger/solana"
)

type level int

const (
	levelOK level = iota
	levelWarn
	levelFail
)

type finding struct {
	level level
	msg   string
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintln(os.Stderr, color.RedString("✖ .env: %v", err))
		os.Exit(1)
	}
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("✖ %v", err))
		os.Exit(1)
	}

	failed := false
	for _, f := range inspect(cfg) {
		switch f.level {
		case levelOK:
			fmt.Println(color.GreenString("✔"), f.msg)
		case levelWarn:
			fmt.Fprintln(os.Stderr, color.YellowString("⚠"), f.msg)
		case levelFail:
			failed = true
			fmt.Fprintln(os.Stderr, color.RedString("✖"), f.msg)
		}
	}
	if failed {
		os.Exit(1)
	}
	fmt.Println(color.GreenString("✔ preflight passed"))
}

func inspect(cfg config.Config) []finding {
	var out []finding
	for _, err := range multierr.Errors(cfg.Validate()) {
		out = append(out, finding{levelFail, err.Error()})
	}

	cred, err := ledger.LoadCredential(cfg.WalletKeypair)
	if err != nil {
		out = append(out, finding{levelFail, "WALLET_KEYPAIR: " + err.Error()})
	} else {
		out = append(out, finding{levelOK, "reporting identity " + cred.Identity()})
	}

	switch cfg.LedgerDriver {
	case config.DriverSolana:
		desc, err := solana.LoadDescriptor(cfg.IDLPath)
		if err != nil {
			out = append(out, finding{levelFail, "IDL_PATH: " + err.Error()})
			break
		}
		program, err := solana.ResolveProgramID(cfg.ProgramID, desc)
		if err != nil {
			out = append(out, finding{levelFail, "program id: " + err.Error()})
			break
		}
		out = append(out, finding{levelOK, "program " + program.String() + " on " + cfg.LedgerEndpoint})
	case config.DriverPostgres, config.DriverSQLite:
		if cfg.DatabaseURL != "" {
			out = append(out, finding{levelOK, "DATABASE_URL present"})
		}
	case config.DriverMemory:
		out = append(out, finding{levelWarn, "memory ledger: results are lost on restart"})
	}

	if cfg.StatusAddr == "" {
		out = append(out, finding{levelWarn, "STATUS_ADDR empty; status API disabled"})
		return out
	}
	out = append(out, finding{levelOK, "STATUS_ADDR=" + cfg.StatusAddr})
	if len(cfg.PublicAPIKeys) == 0 {
		out = append(out, finding{levelFail, "PUBLIC_API_KEYS is empty (read routes will 401)."})
	}
	if len(cfg.AdminAPIKeys) == 0 {
		out = append(out, finding{levelWarn, "ADMIN_API_KEYS is empty (POST /api/ping will 401)."})
	}
	if len(cfg.AllowedOrigins) == 0 {
		out = append(out, finding{levelWarn, "ALLOWED_ORIGINS empty; CORS allows every origin."})
	} else {
		out = append(out, finding{levelOK, "ALLOWED_ORIGINS=" + strings.Join(cfg.AllowedOrigins, ",")})
	}
	return out
}
