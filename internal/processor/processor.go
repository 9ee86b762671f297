// Package processor drives one ad page from fetch to a recorded result.
package processor

import (
	"context"
	"fmt"

	"github.com/PuerkitoBio/goquery"

	"olx-go-crawler/internal/extractor"
	"olx-go-crawler/internal/models"
	"olx-go-crawler/internal/retry"
)

// MaxAttempts bounds how often an ad that looks removed is fetched.
const MaxAttempts = 2

// Loader fetches and parses a page.
type Loader interface {
	Load(ctx context.Context, rawURL string) (*goquery.Document, error)
}

// Recorder accepts finished records. Implementations must be safe for
// concurrent use.
type Recorder interface {
	Add(rec models.AdRecord)
}

type Processor struct {
	loader    Loader
	extractor *extractor.Extractor
	policy    retry.Policy[models.AdRecord]
}

// New returns a processor that refetches an ad once when the first
// extraction yields the removed-ad sentinel, since an empty response and a
// removed ad look the same.
func New(loader Loader, ex *extractor.Extractor) *Processor {
	return &Processor{
		loader:    loader,
		extractor: ex,
		policy: retry.Policy[models.AdRecord]{
			MaxAttempts: MaxAttempts,
			ShouldRetry: models.AdRecord.IsRemoved,
		},
	}
}

// Process fetches and extracts the ad at url and adds the final record to
// rec. Fetch errors are returned and nothing is recorded.
func (p *Processor) Process(ctx context.Context, url string, rec Recorder) (models.AdRecord, error) {
	ad, err := p.Extract(ctx, url)
	if err != nil {
		return ad, err
	}
	rec.Add(ad)
	return ad, nil
}

// Extract runs the fetch/extract cycle without recording the result.
func (p *Processor) Extract(ctx context.Context, url string) (models.AdRecord, error) {
	return p.policy.Do(ctx, func(ctx context.Context, attempt int) (models.AdRecord, error) {
		doc, err := p.loader.Load(ctx, url)
		if err != nil {
			return models.AdRecord{}, fmt.Errorf("fetch ad (attempt %d): %w", attempt, err)
		}
		return p.extractor.Extract(doc, url), nil
	})
}
