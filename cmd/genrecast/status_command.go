package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"genrecast/internal/config"
	"genrecast/internal/preflight"
	"genrecast/internal/runstore"
	"genrecast/internal/stage"
)

type statusView struct {
	Paths   []preflight.Result `json:"paths"`
	Model   stage.Health       `json:"model"`
	LastRun *runstore.Run      `json:"last_run,omitempty"`
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show path readiness, the servable model, and the last training run",
		RunE: func(cmd *cobra.Command, args []string) error {
			predictor, err := ctx.newPredictor()
			if err != nil {
				return err
			}
			return ctx.withRuns(cmd.Context(), func(cfg *config.Config, store *runstore.Store) error {
				view := statusView{
					Paths: preflight.RunAll(cfg),
					Model: predictor.Health(cmd.Context()),
				}
				runs, err := store.List(cmd.Context(), 1)
				if err != nil {
					return err
				}
				if len(runs) > 0 {
					view.LastRun = &runs[0]
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, view)
				}
				printStatus(cmd, view)
				return nil
			})
		},
	}
}

func printStatus(cmd *cobra.Command, view statusView) {
	w := newStatusWriter(cmd.OutOrStdout())

	w.section("Paths")
	for _, r := range view.Paths {
		lvl := levelOK
		if !r.Passed {
			lvl = levelError
		}
		w.line(r.Name, lvl, r.Detail)
	}
	fmt.Fprintln(w.out)

	w.section("Model")
	if view.Model.Ready {
		w.line("Servable model", levelOK, view.Model.Detail)
	} else {
		w.line("Servable model", levelWarn, view.Model.Detail)
	}
	switch run := view.LastRun; {
	case run == nil:
		w.line("Last run", levelInfo, "none recorded")
	case run.Status == runstore.StatusFailed:
		w.line("Last run", levelError, fmt.Sprintf("%s failed (%s)", shortID(run.ID), run.ErrorKind))
	default:
		w.line("Last run", levelInfo, fmt.Sprintf("%s %s at %s",
			shortID(run.ID), run.Status, run.StartedAt.Local().Format(time.DateTime)))
	}
}
