// aegisdash - AegisAI security feed dashboard
// Polls the Aegis backend and serves the dashboard in a browser, a terminal
// or as a one-shot snapshot report.

package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/aegisai/aegisdash/internal/config"
	"github.com/aegisai/aegisdash/internal/logging"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	version = "0.1.0-dev"

	// CLI flags
	configFile string
	backendURL string
	logFile    string
	verbose    bool
)

var (
	cyan   = color.New(color.FgCyan, color.Bold)
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed, color.Bold)
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "aegisdash",
		Short: "AegisAI - security feed dashboard",
		Long: `aegisdash polls the Aegis backend for scanned email, blocked
senders, network login events and bank transactions, and presents them
as a live dashboard.

Front-ends:
  serve      browser dashboard with live websocket updates
  tui        terminal dashboard
  snapshot   one-shot JSON, HTML or Markdown report`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to config file (YAML or TOML)")
	rootCmd.PersistentFlags().StringVarP(&backendURL, "backend", "b", "", "Backend base URL (overrides config)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Write logs to this file instead of stderr")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			cyan.Printf("aegisdash version %s\n", version)
		},
	}

	rootCmd.AddCommand(
		newServeCmd(),
		newTUICmd(),
		newSnapshotCmd(),
		versionCmd,
	)

	if err := rootCmd.Execute(); err != nil {
		red.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// loadConfig reads --config, or the defaults when none is given, and
// applies flag overrides
func loadConfig() (*config.Config, error) {
	cfg := config.DefaultConfig()
	if configFile != "" {
		loaded, err := config.LoadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}

	applyOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyOverrides(cfg *config.Config) {
	if backendURL != "" {
		cfg.Backend.BaseURL = strings.TrimRight(backendURL, "/")
	}
}

// newLogger builds the process logger. fallback is used when --log-file
// is unset; the caller closes the returned closer.
func newLogger(cfg *config.Config, fallback io.Writer) (*slog.Logger, io.Closer, error) {
	if logFile == "" {
		return logging.New(cfg.Logging, fallback, verbose), io.NopCloser(nil), nil
	}

	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	return logging.New(cfg.Logging, f, verbose), f, nil
}

func printBanner(cfg *config.Config) {
	cyan.Println("╔═══════════════════════════════════════════════════╗")
	cyan.Println("║           AegisAI - Security Dashboard            ║")
	cyan.Printf("║              Version: %-27s ║\n", version)
	cyan.Println("╚═══════════════════════════════════════════════════╝")
	fmt.Println()
	fmt.Printf("[*] Backend: %s\n", cfg.Backend.BaseURL)
	if verbose {
		fmt.Printf("[*] Workers: %d\n", cfg.Poll.Workers)
		fmt.Printf("[*] Rate: %d RPS\n", cfg.Backend.RPS)
		fmt.Printf("[*] Timeout: %s\n", cfg.Backend.Timeout)
	}
}
