package main

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const (
	appName = "racecast"
	version = "v0.1.0"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	if term.IsTerminal(int(os.Stderr.Fd())) {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
	// non-TTY (CI, container logs): leave the default JSON writer so
	// output stays machine-parseable.

	rootCmd := &cobra.Command{
		Use:     appName,
		Short:   "racecast predicts, backtests and simulates horse race outcomes",
		Version: version,
	}

	rootCmd.PersistentFlags().String("weights-config", "", "path to the factor weights YAML config")
	rootCmd.PersistentFlags().String("pedigree-config", "", "path to the pedigree/grade override YAML config")
	rootCmd.PersistentFlags().String("db-dsn", os.Getenv("RACECAST_DB_DSN"), "PostgreSQL connection string")
	rootCmd.PersistentFlags().String("redis-addr", os.Getenv("RACECAST_REDIS_ADDR"), "optional Redis address for memoizing /predict results (host:port); disabled if empty")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newBacktestCmd())
	rootCmd.AddCommand(newSimulateCmd())
	rootCmd.AddCommand(newPredictCmd())

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("racecast: command failed")
		os.Exit(1)
	}
}
