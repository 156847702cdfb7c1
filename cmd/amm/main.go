package main

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "amm",
		Short:        "Two-asset liquidity pool engine",
		SilenceUsage: true,
	}

	flags := root.PersistentFlags()
	flags.String("config", "", "config file path")
	flags.String("state-file", "./data/ledger.json", "ledger snapshot file (used without --pg-dsn)")
	flags.String("pg-dsn", "", "Postgres DSN; replaces the snapshot file when set")
	flags.Bool("migrate", true, "apply pending Postgres migrations on start")
	flags.String("journal", "./data/events.jsonl", "event journal JSONL path, empty to disable")
	flags.String("program-id", "", "program address used for derivations")
	flags.Int("max-retries", 3, "retries of a deposit that lost a commit race")
	flags.Duration("retry-backoff", 50*time.Millisecond, "initial retry backoff")
	flags.String("metrics-addr", "", "serve Prometheus metrics on this address")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(
		newInitCmd(),
		newFundCmd(),
		newDepositCmd(),
		newShowCmd(),
		newEventsCmd(),
		newSimulateCmd(),
		newMigrateCmd(),
	)
	return root
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}

func printJSON(w io.Writer, value interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(value)
}
