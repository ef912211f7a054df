package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nkeiba/racecast/internal/betting"
	"github.com/nkeiba/racecast/internal/domain"
)

func newSimulateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate [show|win|quinella|trio]",
		Short: "Simulate a bet-type strategy over a period of races and print the summary as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  runSimulate,
	}
	cmd.Flags().String("from", "", "period start date, YYYY-MM-DD (required)")
	cmd.Flags().String("to", "", "period end date, YYYY-MM-DD (required)")
	cmd.Flags().Int("top-n", 3, "number of top picks to bet (show/win only)")
	cmd.MarkFlagRequired("from")
	cmd.MarkFlagRequired("to")
	return cmd
}

func runSimulate(cmd *cobra.Command, args []string) error {
	pipe, cleanup, err := buildPipeline(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	fromStr, _ := cmd.Flags().GetString("from")
	toStr, _ := cmd.Flags().GetString("to")
	topN, _ := cmd.Flags().GetInt("top-n")

	from, err := domain.ParseDate(fromStr)
	if err != nil {
		return fmt.Errorf("racecast: invalid --from: %w", err)
	}
	to, err := domain.ParseDate(toStr)
	if err != nil {
		return fmt.Errorf("racecast: invalid --to: %w", err)
	}

	ctx := context.Background()
	races, err := pipe.source.RacesInRange(ctx, from, to)
	if err != nil {
		return err
	}
	raceIDs := make([]string, len(races))
	for i, race := range races {
		raceIDs[i] = race.ID
	}

	var summary interface{}
	switch args[0] {
	case "show":
		summary = betting.SimulateShowPeriod(ctx, raceIDs, pipe.resolver, fromStr, toStr, topN)
	case "win":
		summary = betting.SimulateWinPeriod(ctx, raceIDs, pipe.resolver, fromStr, toStr, topN)
	case "quinella":
		summary = betting.SimulateQuinellaPeriod(ctx, raceIDs, pipe.resolver, fromStr, toStr)
	case "trio":
		summary = betting.SimulateTrioPeriod(ctx, raceIDs, pipe.resolver, fromStr, toStr)
	default:
		return fmt.Errorf("racecast: unknown bet type %q (want show, win, quinella or trio)", args[0])
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(summary)
}
