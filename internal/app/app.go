// Package app wires configuration into the crawler components shared by the
// command-line tool and the HTTP server.
package app

import (
	"errors"
	"fmt"

	"olx-go-crawler/internal/collector"
	"olx-go-crawler/internal/config"
	"olx-go-crawler/internal/coordinator"
	"olx-go-crawler/internal/crawler"
	"olx-go-crawler/internal/extractor"
	"olx-go-crawler/internal/ioformats"
	"olx-go-crawler/internal/processor"
	"olx-go-crawler/internal/storage"
	"olx-go-crawler/pkg/logger"
)

type App struct {
	Config    *config.Config
	Log       *logger.Logger
	Loader    *crawler.Loader
	Collector *collector.Collector
	Processor *processor.Processor
}

func New(cfg *config.Config, log *logger.Logger) *App {
	client := crawler.NewHTTPClient(crawler.Options{
		Timeout:     cfg.FetchTimeout,
		DialTimeout: cfg.DialTimeout,
		SizeCap:     cfg.MaxBodyBytes,
		UserAgent:   cfg.UserAgent,
		RateLimit:   cfg.RateLimit,
		RateBurst:   cfg.RateBurst,
	})
	loader := crawler.NewLoader(client)
	return &App{
		Config:    cfg,
		Log:       log,
		Loader:    loader,
		Collector: collector.New(loader, cfg.Selectors.Listing),
		Processor: processor.New(loader, extractor.New(cfg.Selectors.Ad)),
	}
}

// Sinks opens every configured output. The returned close function releases
// them and must be called even when the crawl fails.
func (a *App) Sinks(runID string) ([]coordinator.Sink, func() error, error) {
	var (
		sinks   []coordinator.Sink
		closers []func() error
	)
	closeAll := func() error {
		var errs []error
		for _, c := range closers {
			errs = append(errs, c())
		}
		return errors.Join(errs...)
	}

	for _, f := range a.Config.Output.Formats {
		switch f {
		case config.FormatCSV:
			s, err := ioformats.NewCSVSink(a.Config.Output.Dir)
			if err != nil {
				return nil, closeAll, err
			}
			sinks = append(sinks, s)
		case config.FormatNDJSON:
			s, err := ioformats.NewNDJSONSink(a.Config.Output.Dir)
			if err != nil {
				return nil, closeAll, err
			}
			sinks = append(sinks, s)
		case config.FormatSQLite:
			s, err := storage.NewSQLiteSink(a.Config.Output.SQLitePath, runID)
			if err != nil {
				return nil, closeAll, err
			}
			sinks = append(sinks, s)
			closers = append(closers, s.Close)
		default:
			return nil, closeAll, fmt.Errorf("%w: %q", config.ErrOutputFormat, f)
		}
	}
	return sinks, closeAll, nil
}

// Coordinator builds a crawl coordinator writing to sinks. Explicit
// categories take precedence over the configured categories file, which
// takes precedence over discovery.
func (a *App) Coordinator(sinks []coordinator.Sink, categories ...string) (*coordinator.Coordinator, error) {
	cfg := coordinator.Config{
		BaseURL:         a.Config.BaseURL,
		Concurrency:     a.Config.Concurrency,
		CategoryTimeout: a.Config.CategoryTimeout,
	}
	switch {
	case len(categories) > 0:
		cfg.Categories = categories
	case a.Config.CategoriesFile != "":
		urls, err := ioformats.ReadURLs(a.Config.CategoriesFile)
		if err != nil {
			return nil, fmt.Errorf("read categories file: %w", err)
		}
		cfg.Categories = urls
	}
	return coordinator.New(cfg, a.Collector, a.Processor, a.Log, sinks...), nil
}
