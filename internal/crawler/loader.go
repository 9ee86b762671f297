package crawler

import (
	"context"

	"github.com/PuerkitoBio/goquery"

	"olx-go-crawler/internal/parser"
)

// Loader fetches a URL and parses the result into a queryable document.
type Loader struct {
	Fetcher Fetcher
	Parser  *parser.Parser
}

func NewLoader(f Fetcher) *Loader {
	return &Loader{Fetcher: f, Parser: parser.New()}
}

func (l *Loader) Load(ctx context.Context, rawURL string) (*goquery.Document, error) {
	page, err := l.Fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	return l.Parser.Parse(page.Body, page.ContentType)
}
