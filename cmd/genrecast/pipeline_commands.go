package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"genrecast/internal/config"
	"genrecast/internal/logging"
	"genrecast/internal/notifications"
	"genrecast/internal/pipeline"
	"genrecast/internal/preflight"
	"genrecast/internal/runstore"
)

func newIngestCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "ingest",
		Short: "Load, validate, and clean the raw dataset into the processed snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := preflight.Failed(preflight.RunAll(cfg)); err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			result, err := pipeline.New(cfg, nil, logger).Ingest(cmd.Context())
			if err != nil {
				return err
			}
			if ctx.JSONMode() {
				return writeJSON(cmd, map[string]any{
					"raw_rows":       result.RawRows,
					"rows":           result.Rows,
					"columns":        result.Columns,
					"processed_path": result.ProcessedPath,
				})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Raw rows:       %d\n", result.RawRows)
			fmt.Fprintf(out, "Clean rows:     %d\n", result.Rows)
			fmt.Fprintf(out, "Columns:        %d\n", len(result.Columns))
			fmt.Fprintf(out, "Processed data: %s\n", result.ProcessedPath)
			return nil
		},
	}
}

func newTrainCommand(ctx *commandContext) *cobra.Command {
	var tune bool
	var strategies []string

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Run the full training pipeline and persist the selected model",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("tune") {
				cfg.Tuning.Enabled = tune
			}
			if len(strategies) > 0 {
				cfg.Training.Strategies = strategies
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := preflight.Failed(preflight.RunAll(cfg)); err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			notifier := notifications.NewService(cfg)
			return ctx.withRuns(cmd.Context(), func(cfg *config.Config, runs *runstore.Store) error {
				result, err := pipeline.New(cfg, runs, logger).Train(cmd.Context())
				if err != nil {
					var runErr *pipeline.RunError
					runID := ""
					if errors.As(err, &runErr) {
						runID = runErr.RunID
					}
					if notifyErr := notifier.NotifyTrainingFailed(context.WithoutCancel(cmd.Context()), runID, err); notifyErr != nil {
						logger.Warn("training failure notification failed", logging.Error(notifyErr))
					}
					return err
				}
				summary := notifications.RunSummary{
					RunID:    result.RunID,
					Strategy: result.Selected,
					Metric:   string(result.Metric),
					Score:    result.Score(),
					Tuned:    result.Tuned,
					Duration: result.Duration,
				}
				if notifyErr := notifier.NotifyTrainingCompleted(cmd.Context(), summary); notifyErr != nil {
					logger.Warn("training notification failed", logging.Error(notifyErr))
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, newTrainView(result))
				}
				printTrainResult(cmd.OutOrStdout(), result)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&tune, "tune", false, "Run randomized hyperparameter search on the selected strategy")
	cmd.Flags().StringSliceVar(&strategies, "strategy", nil, "Restrict candidate strategies (repeatable)")
	return cmd
}
