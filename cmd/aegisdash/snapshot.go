package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/aegisai/aegisdash/internal/console"
	"github.com/aegisai/aegisdash/internal/report"
	"github.com/aegisai/aegisdash/pkg/types"
	"github.com/spf13/cobra"
)

func newSnapshotCmd() *cobra.Command {
	var (
		format string
		output string
		dir    string
		title  string
		full   bool
	)

	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Fetch every feed once and write a report",
		Example: `  aegisdash snapshot -f html --dir reports
  aegisdash snapshot -f md -o -
  aegisdash snapshot -f all`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			logger, closer, err := newLogger(cfg, os.Stderr)
			if err != nil {
				return err
			}
			defer closer.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			c, err := console.New(console.Options{Config: cfg, Logger: logger})
			if err != nil {
				return err
			}
			defer c.Stop()

			failed := c.FetchEach(ctx)
			if len(failed) == len(types.Endpoints()) {
				return fmt.Errorf("backend %s unreachable: %w", c.BaseURL(), failed[types.EndpointEmails])
			}

			r := report.NewReport(title, c.BaseURL(), c.Store().Snapshot())
			for ep, err := range failed {
				r.SetFeedError(ep, err)
				yellow.Fprintf(os.Stderr, "[!] %s: %v\n", ep, err)
			}

			m := report.NewManager(dir)
			if full {
				m.RegisterGenerator("markdown", &report.MarkdownGenerator{IncludeFeeds: true})
				m.RegisterGenerator("md", &report.MarkdownGenerator{IncludeFeeds: true})
			}

			switch {
			case format == "all":
				if output != "" {
					return errors.New("--output cannot be used with --format all")
				}
				paths, err := m.GenerateAll(r)
				for _, p := range paths {
					green.Fprintf(os.Stderr, "[+] Report written: %s\n", p)
				}
				return err

			case output == "-":
				return m.WriteToWriter(r, format, os.Stdout)

			case output != "":
				if _, ok := m.GetGenerator(format); !ok {
					return fmt.Errorf("unknown report format: %s", format)
				}
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("failed to create report file: %w", err)
				}
				if err := m.WriteToWriter(r, format, f); err != nil {
					f.Close()
					return err
				}
				if err := f.Close(); err != nil {
					return err
				}
				green.Fprintf(os.Stderr, "[+] Report written: %s\n", output)
				return nil

			default:
				path, err := m.Generate(r, format)
				if err != nil {
					return err
				}
				green.Fprintf(os.Stderr, "[+] Report written: %s\n", path)
				return nil
			}
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "html", "Report format: json, html, md, markdown or all")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file, - for stdout (default: timestamped file in --dir)")
	cmd.Flags().StringVar(&dir, "dir", "reports", "Output directory for timestamped reports")
	cmd.Flags().StringVar(&title, "title", "AegisAI Security Snapshot", "Report title")
	cmd.Flags().BoolVar(&full, "full", false, "Include every feed table in Markdown reports")
	return cmd
}
