package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aegisai/aegisdash/internal/config"
	"github.com/aegisai/aegisdash/internal/console"
	"github.com/aegisai/aegisdash/internal/metrics"
	"github.com/aegisai/aegisdash/internal/web"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web dashboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if listen != "" {
				cfg.Server.Listen = listen
			}

			logger, closer, err := newLogger(cfg, os.Stderr)
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

			srv := web.NewServer(c)
			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.Start(cfg.Server.Listen)
			}()

			printBanner(cfg)
			green.Printf("[+] Dashboard: http://%s\n", displayAddr(cfg.Server.Listen))

			select {
			case <-ctx.Done():
				fmt.Println()
				yellow.Println("[*] Shutting down gracefully...")
			case err := <-errCh:
				if err != nil {
					return fmt.Errorf("web server: %w", err)
				}
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&listen, "listen", "l", "", "Listen address (overrides config)")
	return cmd
}

// watchConfig hot-reloads the config file into c until ctx is done
func watchConfig(ctx context.Context, c *console.Console, logger *slog.Logger) {
	err := config.Watch(ctx, configFile, logger, func(cfg *config.Config) {
		applyOverrides(cfg)
		if err := c.Apply(cfg); err != nil {
			logger.Warn("Config apply failed", slog.String("error", err.Error()))
		}
	})
	if err != nil {
		logger.Warn("Config watch stopped", slog.String("error", err.Error()))
	}
}

func displayAddr(listen string) string {
	if len(listen) > 0 && listen[0] == ':' {
		return "localhost" + listen
	}
	return listen
}
