package main

import (
	"fmt"
	"io"
	"maps"
	"math"
	"os"
	"slices"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"genrecast/internal/cleaning"
	"genrecast/internal/stage"
)

func newPredictCommand(ctx *commandContext) *cobra.Command {
	var features []string
	var inputPath string

	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Predict the genre of one record with the persisted model",
		Long: "Predict the genre of one record with the persisted model.\n\n" +
			"Supply features with repeated --feature \"Name=value\" flags or a JSON\n" +
			"object of column name to value via --input (use - for stdin).",
		RunE: func(cmd *cobra.Command, args []string) error {
			record, err := readRecord(cmd.InOrStdin(), inputPath, features)
			if err != nil {
				return err
			}
			predictor, err := ctx.newPredictor()
			if err != nil {
				return err
			}
			prediction, err := predictor.Predict(cmd.Context(), record)
			if err != nil {
				return err
			}
			if ctx.JSONMode() {
				return writeJSON(cmd, prediction)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Predicted genre: %s (%s, run %s)\n",
				prediction.Label, prediction.Strategy, prediction.RunID)
			return nil
		},
	}

	cmd.Flags().StringArrayVarP(&features, "feature", "f", nil, "Feature value as Name=value (repeatable)")
	cmd.Flags().StringVarP(&inputPath, "input", "i", "", "JSON file with one record, or - for stdin")
	return cmd
}

// readRecord merges the JSON input, if any, with --feature flags. Names are
// canonicalized first so a flag overrides a JSON value however either is
// spelled.
func readRecord(stdin io.Reader, inputPath string, features []string) (map[string]float64, error) {
	record := make(map[string]float64)
	if path := strings.TrimSpace(inputPath); path != "" {
		var data []byte
		var err error
		if path == "-" {
			data, err = io.ReadAll(stdin)
		} else {
			data, err = os.ReadFile(path)
		}
		if err != nil {
			return nil, fmt.Errorf("read prediction input: %w", err)
		}
		var decoded map[string]*float64
		if err := json.Unmarshal(data, &decoded); err != nil {
			return nil, stage.Wrap(stage.ErrValidation, "predict", "input", "expected a JSON object of numbers", err)
		}
		names := slices.Sorted(maps.Keys(decoded))
		for _, name := range names {
			if decoded[name] == nil {
				return nil, stage.Wrap(stage.ErrValidation, "predict", "input", fmt.Sprintf("%q has no value", name), nil)
			}
			if err := setFeature(record, name, *decoded[name]); err != nil {
				return nil, err
			}
		}
	}

	flagged := make(map[string]float64, len(features))
	for _, raw := range features {
		name, value, ok := strings.Cut(raw, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, stage.Wrap(stage.ErrValidation, "predict", "feature", fmt.Sprintf("%q is not Name=value", raw), nil)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return nil, stage.Wrap(stage.ErrValidation, "predict", "feature", fmt.Sprintf("%q has a non-numeric value", name), err)
		}
		if err := setFeature(flagged, name, v); err != nil {
			return nil, err
		}
	}
	maps.Copy(record, flagged)

	if len(record) == 0 {
		return nil, stage.Wrap(stage.ErrValidation, "predict", "input", "no features given; use --feature or --input", nil)
	}
	return record, nil
}

// setFeature stores v under the canonical form of name. Two spellings of the
// same column within one source are rejected.
func setFeature(record map[string]float64, name string, v float64) error {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return stage.Wrap(stage.ErrValidation, "predict", "feature", fmt.Sprintf("%q is not finite", name), nil)
	}
	key := cleaning.CanonicalName(name)
	if _, dup := record[key]; dup {
		return stage.Wrap(stage.ErrValidation, "predict", "feature", fmt.Sprintf("%q given more than once", name), nil)
	}
	record[key] = v
	return nil
}
