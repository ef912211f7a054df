package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nkeiba/racecast/internal/domain"
	"github.com/nkeiba/racecast/internal/prediction"
)

// raceCardFile is the CLI's JSON race-card shape, independent of
// internal/httpapi's wire contracts so the two surfaces can evolve
// separately.
type raceCardFile struct {
	RaceID         string `json:"race_id"`
	Date           string `json:"date"`
	Name           string `json:"name"`
	Venue          string `json:"venue"`
	RaceNumber     int    `json:"race_number"`
	Surface        string `json:"surface"`
	Distance       int    `json:"distance"`
	TrackCondition string `json:"track_condition"`
	Entries        []struct {
		HorseID       string  `json:"horse_id"`
		HorseNumber   int     `json:"horse_number"`
		BracketNumber int     `json:"bracket_number"`
		Impost        float64 `json:"impost"`
		Sex           string  `json:"sex"`
		Age           int     `json:"age"`
		JockeyID      string  `json:"jockey_id"`
		HorseName     string  `json:"horse_name"`
		Sire          string  `json:"sire"`
		HasSire       bool    `json:"has_sire"`
		DamSire       string  `json:"dam_sire"`
	} `json:"entries"`
}

func newPredictCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Score a race card read from --file (or stdin) and print the ranked predictions as JSON",
		RunE:  runPredict,
	}
	cmd.Flags().String("file", "", "path to a race card JSON file; reads stdin if omitted")
	return cmd
}

func runPredict(cmd *cobra.Command, args []string) error {
	pipe, cleanup, err := buildPipeline(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	filePath, _ := cmd.Flags().GetString("file")
	input := os.Stdin
	if filePath != "" {
		f, err := os.Open(filePath)
		if err != nil {
			return fmt.Errorf("racecast: open race card: %w", err)
		}
		defer f.Close()
		input = f
	}

	var card raceCardFile
	if err := json.NewDecoder(input).Decode(&card); err != nil {
		return fmt.Errorf("racecast: parse race card: %w", err)
	}

	date, err := domain.ParseDate(card.Date)
	if err != nil {
		return fmt.Errorf("racecast: invalid race card date: %w", err)
	}

	entries := make([]prediction.EntryInput, len(card.Entries))
	for i, e := range card.Entries {
		entries[i] = prediction.EntryInput{
			Entry: domain.Entry{
				HorseID:       e.HorseID,
				HorseNumber:   e.HorseNumber,
				BracketNumber: e.BracketNumber,
				Impost:        e.Impost,
				Sex:           domain.Sex(e.Sex),
				Age:           e.Age,
				JockeyID:      e.JockeyID,
			},
			HorseName: e.HorseName,
			Sire:      e.Sire,
			HasSire:   e.HasSire,
			DamSire:   e.DamSire,
		}
	}

	raceInput := prediction.RaceInput{
		RaceID:         card.RaceID,
		Date:           date,
		Name:           card.Name,
		Venue:          card.Venue,
		RaceNumber:     card.RaceNumber,
		Surface:        domain.Surface(card.Surface),
		Distance:       card.Distance,
		TrackCondition: domain.TrackCondition(card.TrackCondition),
		HasCondition:   card.TrackCondition != "",
		Entries:        entries,
	}

	predictions, err := pipe.predictor.Predict(cmd.Context(), raceInput)
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(predictions)
}
