// Package collector discovers categories and enumerates the ad URLs of a
// category across all of its listing pages.
package collector

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"olx-go-crawler/internal/parser"
)

// ErrLayoutMismatch means a listing page lacks markup the collector relies
// on. The category cannot be crawled.
var ErrLayoutMismatch = errors.New("marketplace layout mismatch")

type Selectors struct {
	Container    string `mapstructure:"container"`
	Entry        string `mapstructure:"entry"`
	EntryLink    string `mapstructure:"entry_link"`
	Pager        string `mapstructure:"pager"`
	Category     string `mapstructure:"category"`
	CategoryLink string `mapstructure:"category_link"`
}

func DefaultSelectors() Selectors {
	return Selectors{
		Container:    "#offers_table",
		Entry:        ".wrap",
		EntryLink:    "a",
		Pager:        ".pager > .item > a",
		Category:     ".li",
		CategoryLink: "a",
	}
}

type Loader interface {
	Load(ctx context.Context, rawURL string) (*goquery.Document, error)
}

type Collector struct {
	loader Loader
	sel    Selectors
}

func New(loader Loader, sel Selectors) *Collector {
	return &Collector{loader: loader, sel: sel}
}

// Collect returns every ad URL of the category in page order. Pages after
// the first are fetched one at a time since their count is only known once
// the first page is parsed. Duplicates across pages are kept.
func (c *Collector) Collect(ctx context.Context, categoryURL string) ([]string, error) {
	base, err := url.Parse(categoryURL)
	if err != nil {
		return nil, fmt.Errorf("parse category url: %w", err)
	}

	doc, err := c.loader.Load(ctx, categoryURL)
	if err != nil {
		return nil, fmt.Errorf("fetch page 1: %w", err)
	}
	urls, err := c.adLinks(doc, base)
	if err != nil {
		return nil, fmt.Errorf("page 1: %w", err)
	}
	last, err := c.lastPage(doc)
	if err != nil {
		return nil, fmt.Errorf("page 1: %w", err)
	}

	for n := 2; n <= last; n++ {
		pageURL := PageURL(base, n)
		doc, err := c.loader.Load(ctx, pageURL)
		if err != nil {
			return nil, fmt.Errorf("fetch page %d: %w", n, err)
		}
		links, err := c.adLinks(doc, base)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", n, err)
		}
		urls = append(urls, links...)
	}
	return urls, nil
}

// Categories returns the top-level category URLs linked from the base page,
// absolute, deduplicated, in page order.
func (c *Collector) Categories(ctx context.Context, baseURL string) ([]string, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	doc, err := c.loader.Load(ctx, baseURL)
	if err != nil {
		return nil, fmt.Errorf("fetch base page: %w", err)
	}

	seen := map[string]struct{}{}
	var out []string
	doc.Find(c.sel.Category).Each(func(_ int, s *goquery.Selection) {
		link, ok := resolve(base, s.Find(c.sel.CategoryLink).First())
		if !ok {
			return
		}
		if _, dup := seen[link]; dup {
			return
		}
		seen[link] = struct{}{}
		out = append(out, link)
	})
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no categories matched %q", ErrLayoutMismatch, c.sel.Category)
	}
	return out, nil
}

func (c *Collector) adLinks(doc *goquery.Document, base *url.URL) ([]string, error) {
	container := doc.Find(c.sel.Container).First()
	if container.Length() == 0 {
		return nil, fmt.Errorf("%w: listing container %q not found", ErrLayoutMismatch, c.sel.Container)
	}
	var links []string
	container.Find(c.sel.Entry).Each(func(_ int, s *goquery.Selection) {
		if link, ok := resolve(base, s.Find(c.sel.EntryLink).First()); ok {
			links = append(links, link)
		}
	})
	return links, nil
}

func (c *Collector) lastPage(doc *goquery.Document) (int, error) {
	pages := doc.Find(c.sel.Pager)
	if pages.Length() == 0 {
		return 0, fmt.Errorf("%w: pagination %q not found", ErrLayoutMismatch, c.sel.Pager)
	}
	text := parser.Text(pages.Last())
	n, err := strconv.Atoi(text)
	if err != nil {
		return 0, fmt.Errorf("%w: last page number %q", ErrLayoutMismatch, text)
	}
	return n, nil
}

// PageURL returns the listing URL for page n of the category at base.
func PageURL(base *url.URL, n int) string {
	u := *base
	q := u.Query()
	q.Set("page", strconv.Itoa(n))
	u.RawQuery = q.Encode()
	u.Fragment = ""
	return u.String()
}

// resolve returns the absolute href of a, without its fragment.
func resolve(base *url.URL, a *goquery.Selection) (string, bool) {
	href, ok := a.Attr("href")
	href = strings.TrimSpace(href)
	if !ok || href == "" {
		return "", false
	}
	href, _, _ = strings.Cut(href, "#")
	ref, err := url.Parse(href)
	if err != nil {
		return href, true
	}
	return base.ResolveReference(ref).String(), true
}

// CategoryName derives an output name from the last path segment of a
// category URL, e.g. "https://www.olx.ua/uk/elektronika/" gives "elektronika".
func CategoryName(categoryURL string) string {
	u, err := url.Parse(categoryURL)
	if err != nil {
		return sanitize(categoryURL)
	}
	p := strings.Trim(u.Path, "/")
	if p == "" {
		return sanitize(u.Hostname())
	}
	return sanitize(path.Base(p))
}

func sanitize(name string) string {
	name = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', ' ':
			return '_'
		}
		return r
	}, name)
	if name == "" {
		return "category"
	}
	return name
}
