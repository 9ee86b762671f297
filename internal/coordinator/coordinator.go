// Package coordinator runs a full crawl: categories one after another, the
// ads of each category concurrently on a bounded pool.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"olx-go-crawler/internal/collector"
	"olx-go-crawler/internal/models"
	"olx-go-crawler/internal/processor"
	"olx-go-crawler/pkg/logger"
)

// URLCollector finds categories and the ad URLs inside them.
type URLCollector interface {
	Categories(ctx context.Context, baseURL string) ([]string, error)
	Collect(ctx context.Context, categoryURL string) ([]string, error)
}

type AdProcessor interface {
	Process(ctx context.Context, url string, rec processor.Recorder) (models.AdRecord, error)
}

// Sink persists one table of records per category.
type Sink interface {
	WriteTable(name string, rows []models.AdRecord) error
}

type Config struct {
	BaseURL string
	// Categories, when set, replaces discovery from BaseURL.
	Categories      []string
	Concurrency     int
	CategoryTimeout time.Duration
}

type Coordinator struct {
	cfg       Config
	collector URLCollector
	processor AdProcessor
	sinks     []Sink
	log       *logger.Logger
}

func New(cfg Config, col URLCollector, proc AdProcessor, log *logger.Logger, sinks ...Sink) *Coordinator {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Coordinator{cfg: cfg, collector: col, processor: proc, sinks: sinks, log: log}
}

// categoryState holds what one category accumulates before it is flushed.
// Workers append to it concurrently.
type categoryState struct {
	urls []string

	mu      sync.Mutex
	records []models.AdRecord
	removed int
}

func (s *categoryState) Add(rec models.AdRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	if rec.IsRemoved() {
		s.removed++
	}
}

func (s *categoryState) snapshot() ([]models.AdRecord, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.AdRecord(nil), s.records...), s.removed
}

// Run crawls every category in order and returns one report per category.
// A failed category does not stop the run; its error is included in the
// joined error returned alongside the reports.
func (c *Coordinator) Run(ctx context.Context) ([]models.CategoryReport, error) {
	start := time.Now()
	categories := c.cfg.Categories
	if len(categories) == 0 {
		c.log.Infof("discovering categories from %s", c.cfg.BaseURL)
		var err error
		categories, err = c.collector.Categories(ctx, c.cfg.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("discover categories: %w", err)
		}
	}
	c.log.Infow("categories ready", "count", len(categories), "elapsed", time.Since(start))

	var (
		reports []models.CategoryReport
		errs    []error
	)
	for _, u := range categories {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		r := c.CrawlCategory(ctx, u)
		reports = append(reports, r)
		if r.Err != nil {
			errs = append(errs, fmt.Errorf("category %s: %w", r.Name, r.Err))
		}
	}
	c.log.Infow("crawl finished", "categories", len(reports), "failed", len(errs), "elapsed", time.Since(start))
	return reports, errors.Join(errs...)
}

// CrawlCategory collects, processes and flushes a single category. Nothing
// is written when URL collection fails or the category deadline passes.
func (c *Coordinator) CrawlCategory(ctx context.Context, categoryURL string) models.CategoryReport {
	start := time.Now()
	name := collector.CategoryName(categoryURL)
	log := c.log.With("category", name)
	report := models.CategoryReport{Name: name, URL: categoryURL}

	if c.cfg.CategoryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.CategoryTimeout)
		defer cancel()
	}

	log.Infof("collecting ad urls from %s", categoryURL)
	urls, err := c.collector.Collect(ctx, categoryURL)
	if err != nil {
		log.Errorw("url collection failed", "error", err)
		report.Err = err
		report.Elapsed = time.Since(start)
		return report
	}
	state := &categoryState{urls: urls}
	report.AdURLs = len(state.urls)
	log.Infow("scraping ads", "urls", len(state.urls), "workers", c.cfg.Concurrency)

	skipped := c.processAll(ctx, state, log)

	if err := ctx.Err(); err != nil {
		log.Errorw("category aborted", "error", err)
		report.Err = fmt.Errorf("scrape ads: %w", err)
		report.Skipped = skipped
		report.Elapsed = time.Since(start)
		return report
	}

	records, removed := state.snapshot()
	report.Records, report.Removed, report.Skipped = len(records), removed, skipped

	for _, s := range c.sinks {
		if err := s.WriteTable(name, records); err != nil {
			log.Errorw("write output failed", "error", err)
			report.Err = err
			break
		}
	}
	report.Elapsed = time.Since(start)
	log.Infow("category complete",
		"records", report.Records, "of", report.AdURLs,
		"removed", removed, "skipped", skipped, "elapsed", report.Elapsed)
	return report
}

// processAll runs every URL of state through the processor with at most
// Concurrency in flight. A URL whose fetch fails is logged and skipped so
// one bad ad cannot sink the category. It returns the number skipped.
func (c *Coordinator) processAll(ctx context.Context, state *categoryState, log *logger.Logger) int {
	var skipped, done atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.Concurrency)

	for _, u := range state.urls {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if _, err := c.processor.Process(gctx, u, state); err != nil {
				skipped.Add(1)
				log.Warnw("skipping ad", "url", u, "error", err)
			}
			if n := done.Add(1); n%100 == 0 {
				log.Debugf("processed %d/%d ads", n, len(state.urls))
			}
			return nil
		})
	}
	_ = g.Wait()
	return int(skipped.Load())
}
