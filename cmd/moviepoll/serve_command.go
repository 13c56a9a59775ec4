package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"moviepoll/internal/daemon"
	"moviepoll/internal/logging"
	"moviepoll/internal/poll"
	"moviepoll/internal/store"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var bind string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the appeal refresh scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if bind != "" {
				cfg.Paths.APIBind = bind
			}
			return runServer(cmd.Context(), ctx, cmd)
		},
	}
	cmd.Flags().StringVar(&bind, "bind", "", "Override paths.api_bind")
	return cmd
}

func runServer(cmdCtx context.Context, ctx *commandContext, cmd *cobra.Command) error {
	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := ctx.ensureConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	opts := append(poll.ConfigOptions(cfg), poll.WithLogger(logger))
	if cat, err := newCatalog(cfg, logger); err != nil {
		logging.WarnWithContext(logger, "movie search disabled", "catalog_unavailable",
			logging.Error(err),
			logging.String(logging.FieldImpact, "adding movies by title returns 503"),
			logging.String(logging.FieldErrorHint, "set TMDB_API_KEY or tmdb.api_key"),
		)
	} else {
		opts = append(opts, poll.WithCatalog(cat))
	}

	st, err := store.Open(cfg)
	if err != nil {
		logger.Error("open store", logging.Error(err))
		return err
	}

	d, err := daemon.New(cfg, poll.New(st, opts...), logger, version)
	if err != nil {
		st.Close()
		return err
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "moviepoll API listening on http://%s (log: %s)\n", d.APIAddress(), d.LogPath())

	d.Wait(signalCtx)
	logger.Info("moviepoll server shutting down")
	return nil
}
