package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:          "indexer",
		Short:        "Balancer vault entity indexer",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	indexCmd := &cobra.Command{
		Use:   "index",
		Short: "Index vault logs into entities",
		RunE:  runIndex,
	}

	indexCmd.Flags().String("rpc", "", "archive RPC URL")
	indexCmd.Flags().Uint64("from", 0, "start block (inclusive)")
	indexCmd.Flags().Uint64("to", 0, "end block (inclusive), 0 follows latest minus confirmations")
	indexCmd.Flags().Uint64("confirmations", 12, "blocks behind latest when --to is 0")
	indexCmd.Flags().Uint64("batch-size", 2000, "blocks per batch")
	addDeploymentFlags(indexCmd)
	addStoreFlags(indexCmd)
	indexCmd.Flags().String("archive", "./data/logs.jsonl", "raw log archive JSONL, empty disables")
	indexCmd.Flags().String("cursor-name", "default", "cursor name for resuming")
	addRetryFlags(indexCmd)
	indexCmd.Flags().String("metrics-addr", "", "serve Prometheus metrics on this address")
	indexCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(indexCmd)

	replayCmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay an archived log JSONL into entities",
		RunE:  runReplay,
	}

	replayCmd.Flags().String("rpc", "", "archive RPC URL")
	replayCmd.Flags().String("in", "", "input raw logs JSONL")
	replayCmd.Flags().String("errors", "./data/decode_errors.jsonl", "decode errors JSONL")
	replayCmd.Flags().String("cursor-name", "replay", "cursor name written after replay")
	addDeploymentFlags(replayCmd)
	addStoreFlags(replayCmd)
	addRetryFlags(replayCmd)
	replayCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(replayCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func addDeploymentFlags(cmd *cobra.Command) {
	cmd.Flags().String("variant", "v3", "handler variant (v3, v3-lite, v2)")
	cmd.Flags().String("vault", "", "vault address")
	cmd.Flags().String("fee-controller", "", "protocol fee controller address (v3)")
	cmd.Flags().String("fees-collector", "", "protocol fees collector address (v2)")
	cmd.Flags().StringSlice("factory", nil, "pool factories as address=type:version, type one of weighted, stable, stablesurge, gyro2, gyroe (comma-separated)")
	cmd.Flags().StringSlice("surge-hook", nil, "stable surge hook addresses (comma-separated)")
}

func addStoreFlags(cmd *cobra.Command) {
	cmd.Flags().String("store", "memory", "entity store (memory, postgres)")
	cmd.Flags().String("pg-dsn", "", "Postgres DSN")
	cmd.Flags().String("migrations", "./sql/postgres", "Postgres migrations directory")
}

func addRetryFlags(cmd *cobra.Command) {
	cmd.Flags().Int("max-retries", 5, "retries of a failed RPC call before the batch fails")
	cmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
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
