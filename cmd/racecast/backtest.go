package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nkeiba/racecast/internal/backtest"
	"github.com/nkeiba/racecast/internal/domain"
)

func newBacktestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backtest",
		Short: "Run a walk-forward backtest over a date range and print one JSON line per race",
		RunE:  runBacktest,
	}
	cmd.Flags().String("from", "", "period start date, YYYY-MM-DD (required)")
	cmd.Flags().String("to", "", "period end date, YYYY-MM-DD (required)")
	cmd.Flags().String("retrain-interval", "weekly", "daily, weekly or monthly")
	cmd.MarkFlagRequired("from")
	cmd.MarkFlagRequired("to")
	return cmd
}

func runBacktest(cmd *cobra.Command, args []string) error {
	pipe, cleanup, err := buildPipeline(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	fromStr, _ := cmd.Flags().GetString("from")
	toStr, _ := cmd.Flags().GetString("to")
	retrainStr, _ := cmd.Flags().GetString("retrain-interval")

	from, err := domain.ParseDate(fromStr)
	if err != nil {
		return fmt.Errorf("racecast: invalid --from: %w", err)
	}
	to, err := domain.ParseDate(toStr)
	if err != nil {
		return fmt.Errorf("racecast: invalid --to: %w", err)
	}

	engine := backtest.New(pipe.source, pipe.calc, pipe.combine, backtest.RetrainInterval(retrainStr))

	ctx := context.Background()
	races, errs := engine.Run(ctx, from, to)

	encoder := json.NewEncoder(os.Stdout)
	for races != nil || errs != nil {
		select {
		case race, ok := <-races:
			if !ok {
				races = nil
				continue
			}
			if err := encoder.Encode(race); err != nil {
				return err
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			if err != nil {
				return err
			}
		}
	}
	return nil
}
