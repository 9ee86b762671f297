package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"olx-go-crawler/internal/app"
	"olx-go-crawler/internal/config"
	"olx-go-crawler/pkg/logger"
)

var version = "dev"

type options struct {
	cfgFile     string
	logLevel    string
	concurrency int
	outputDir   string
	formats     []string
	categories  []string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "olx-crawler",
		Short:         "Crawl marketplace categories into per-category tables",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCrawl(cmd, opts)
		},
	}
	root.PersistentFlags().StringVar(&opts.cfgFile, "config", "", "config file (default ./config.yaml or ./config/config.yaml)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override log level (debug, info, warn, error)")

	crawl := &cobra.Command{
		Use:   "crawl",
		Short: "Crawl every category and write one table per category",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCrawl(cmd, opts)
		},
	}
	for _, c := range []*cobra.Command{root, crawl} {
		c.Flags().IntVar(&opts.concurrency, "concurrency", 0, "ads fetched in parallel per category")
		c.Flags().StringVar(&opts.outputDir, "output-dir", "", "directory for csv/ndjson tables")
		c.Flags().StringSliceVar(&opts.formats, "format", nil, "output formats: csv, ndjson, sqlite")
		c.Flags().StringArrayVar(&opts.categories, "category", nil, "category URL to crawl instead of discovering (repeatable)")
	}

	root.AddCommand(crawl, newAdCmd(opts), newCategoryCmd(opts), &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "olx-crawler %s\n", version)
		},
	})
	return root
}

// setup loads configuration, applies flag overrides and builds the app.
func setup(opts *options) (*app.App, error) {
	cfg, err := config.Load(opts.cfgFile)
	if err != nil {
		return nil, err
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}
	if opts.concurrency > 0 {
		cfg.Concurrency = opts.concurrency
	}
	if opts.outputDir != "" {
		cfg.Output.Dir = opts.outputDir
	}
	if len(opts.formats) > 0 {
		cfg.Output.Formats = opts.formats
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Encoding)
	if err != nil {
		return nil, err
	}
	return app.New(cfg, log), nil
}

func runCrawl(cmd *cobra.Command, opts *options) error {
	a, err := setup(opts)
	if err != nil {
		return err
	}
	defer a.Log.Sync()

	runID := uuid.NewString()
	a.Log = a.Log.With("run_id", runID)

	sinks, closeSinks, err := a.Sinks(runID)
	if err != nil {
		return errors.Join(err, closeSinks())
	}
	defer func() {
		if err := closeSinks(); err != nil {
			a.Log.Errorf("close outputs: %v", err)
		}
	}()

	co, err := a.Coordinator(sinks, opts.categories...)
	if err != nil {
		return err
	}
	reports, err := co.Run(cmd.Context())
	if len(reports) > 0 {
		renderReport(cmd.OutOrStdout(), reports)
	}
	return err
}

func newAdCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "ad <url>",
		Short: "Fetch and extract a single ad, printing it as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(opts)
			if err != nil {
				return err
			}
			defer a.Log.Sync()

			ad, err := a.Processor.Extract(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetEscapeHTML(false)
			enc.SetIndent("", "  ")
			return enc.Encode(ad)
		},
	}
}

func newCategoryCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "category <url>",
		Short: "List every ad URL of a category, one per line",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(opts)
			if err != nil {
				return err
			}
			defer a.Log.Sync()

			urls, err := a.Collector.Collect(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			for _, u := range urls {
				fmt.Fprintln(cmd.OutOrStdout(), u)
			}
			a.Log.Infof("collected %d ad urls", len(urls))
			return nil
		},
	}
}
