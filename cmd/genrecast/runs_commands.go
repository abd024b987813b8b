package main

import (
	"fmt"
	"io"
	"time"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"genrecast/internal/config"
	"genrecast/internal/logging"
	"genrecast/internal/logs"
	"genrecast/internal/runstore"
	"genrecast/internal/training"
)

func newRunsCommand(ctx *commandContext) *cobra.Command {
	runsCmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect training run history",
	}
	runsCmd.AddCommand(newRunsListCommand(ctx))
	runsCmd.AddCommand(newRunsShowCommand(ctx))
	runsCmd.AddCommand(newRunsLogCommand(ctx))
	return runsCmd
}

func newRunsListCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent training runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuns(cmd.Context(), func(_ *config.Config, store *runstore.Store) error {
				runs, err := store.List(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					if runs == nil {
						runs = []runstore.Run{}
					}
					return writeJSON(cmd, map[string]any{"runs": runs})
				}
				if len(runs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No training runs recorded")
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable("",
					[]string{"ID", "Started", "Status", "Strategy", "Metric", "Score", "Duration"},
					buildRunRows(runs), 5, 6,
				))
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum runs to show (0 for all)")
	return cmd
}

func newRunsShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show one training run with its per-strategy evaluations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuns(cmd.Context(), func(_ *config.Config, store *runstore.Store) error {
				run, err := store.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, run)
				}
				return printRun(cmd.OutOrStdout(), run)
			})
		},
	}
}

func newRunsLogCommand(ctx *commandContext) *cobra.Command {
	var lines int
	var followFlag bool

	cmd := &cobra.Command{
		Use:   "log <run-id>",
		Short: "Print the log of one training run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuns(cmd.Context(), func(cfg *config.Config, store *runstore.Store) error {
				run, err := store.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				opts := logs.TailOptions{Lines: lines, Follow: followFlag && run.Status == runstore.StatusRunning}
				return logs.Tail(cmd.Context(), logging.RunLogPath(cfg.Paths.LogDir, run.ID), opts, func(line string) error {
					_, err := fmt.Fprintln(out, line)
					return err
				})
			})
		},
	}

	cmd.Flags().IntVarP(&lines, "lines", "n", 0, "Trailing lines to print (0 for all)")
	cmd.Flags().BoolVarP(&followFlag, "follow", "f", false, "Keep printing while the run is in progress")
	return cmd
}

func buildRunRows(runs []runstore.Run) [][]string {
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		score, duration := "-", "-"
		if r.Status == runstore.StatusCompleted {
			score = formatScore(r.Score)
		}
		if d := r.Duration(); d > 0 {
			duration = d.Round(time.Millisecond).String()
		}
		status := string(r.Status)
		if r.ErrorKind != "" {
			status += " (" + r.ErrorKind + ")"
		}
		rows = append(rows, []string{
			shortID(r.ID),
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			status,
			dash(r.Strategy),
			dash(r.PrimaryMetric),
			score,
			duration,
		})
	}
	return rows
}

func printRun(out io.Writer, run *runstore.Run) error {
	fmt.Fprintf(out, "Run:        %s\n", run.ID)
	fmt.Fprintf(out, "Status:     %s\n", run.Status)
	fmt.Fprintf(out, "Started:    %s\n", run.StartedAt.Local().Format(time.RFC3339))
	if run.FinishedAt != nil {
		fmt.Fprintf(out, "Finished:   %s (%s)\n", run.FinishedAt.Local().Format(time.RFC3339), run.Duration().Round(time.Millisecond))
	}
	fmt.Fprintf(out, "Dataset:    %s\n", dash(run.DatasetPath))
	if run.Status == runstore.StatusFailed {
		fmt.Fprintf(out, "Error:      [%s] %s\n", run.ErrorKind, run.ErrorMessage)
		return nil
	}
	if run.Status == runstore.StatusCompleted {
		fmt.Fprintf(out, "Rows:       %d\n", run.Rows)
		fmt.Fprintf(out, "Components: %d\n", run.Components)
		fmt.Fprintf(out, "Selected:   %s %s\n", run.Strategy, run.Params)
		fmt.Fprintf(out, "Tuned:      %s\n", yesNo(run.Tuned))
		fmt.Fprintf(out, "Score:      %s %s\n", run.PrimaryMetric, formatScore(run.Score))
		fmt.Fprintf(out, "Cross-val:  %s ± %s\n", formatScore(run.CVMean), formatScore(run.CVStd))
	}
	if len(run.Evaluations) == 0 {
		return nil
	}
	fmt.Fprintln(out)

	rows := make([][]string, 0, len(run.Evaluations))
	var selected *training.Report
	for _, e := range run.Evaluations {
		marker := ""
		if e.Selected {
			marker = "*"
			if e.ReportJSON != "" {
				var report training.Report
				if err := json.Unmarshal([]byte(e.ReportJSON), &report); err != nil {
					return fmt.Errorf("decode report for %s: %w", e.Strategy, err)
				}
				selected = &report
			}
		}
		rows = append(rows, []string{e.Strategy, e.Params, formatScore(e.Accuracy), formatScore(e.MacroF1), marker})
	}
	fmt.Fprintln(out, renderTable("Candidates",
		[]string{"Strategy", "Params", "Accuracy", "Macro F1", "Selected"},
		rows, 2, 3,
	))
	printReport(out, selected)
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func dash(value string) string {
	if value == "" {
		return "-"
	}
	return value
}
