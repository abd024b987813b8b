package main

import (
	"github.com/spf13/cobra"

	"genrecast/internal/api"
	"genrecast/internal/logging"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var bind string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve predictions over HTTP until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if bind != "" {
				cfg.Server.Bind = bind
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			predictor, err := ctx.newPredictor()
			if err != nil {
				return err
			}
			health := predictor.Health(cmd.Context())
			if !health.Ready {
				logger.Warn("no servable model yet; predictions return 503 until training completes",
					logging.String("detail", health.Detail))
			}
			srv, err := api.NewServer(cfg, predictor, logger)
			if err != nil {
				return err
			}
			return srv.Serve(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&bind, "bind", "", "Override server.bind (host:port)")
	return cmd
}
