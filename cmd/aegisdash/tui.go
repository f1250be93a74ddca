package main

import (
	"io"
	"os/signal"
	"syscall"

	"github.com/aegisai/aegisdash/internal/console"
	"github.com/aegisai/aegisdash/internal/metrics"
	"github.com/aegisai/aegisdash/internal/ui"
	"github.com/spf13/cobra"
)

func newTUICmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Start the terminal dashboard",
		Long: `Start the terminal dashboard.

Logs would corrupt the screen, so they are dropped unless --log-file is set.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			logger, closer, err := newLogger(cfg, io.Discard)
			if err != nil {
				return err
			}
			defer closer.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			c, err := console.New(console.Options{
				Config:  cfg,
				Logger:  logger,
				Metrics: metrics.New(),
			})
			if err != nil {
				return err
			}
			if err := c.Start(ctx); err != nil {
				return err
			}
			defer c.Stop()

			if configFile != "" {
				go watchConfig(ctx, c, logger)
			}

			return ui.Run(ctx, c)
		},
	}
}
