// Package extractor turns an ad page into an AdRecord.
//
// Every field is located by an ordered list of selectors, tried until one
// matches. A missing required field yields the removed-ad sentinel instead of
// a partially filled record. This also reports ads whose markup drifted as
// removed; callers cannot tell the two apart.
package extractor

import (
	"github.com/PuerkitoBio/goquery"

	"olx-go-crawler/internal/classifier"
	"olx-go-crawler/internal/models"
	"olx-go-crawler/internal/parser"
)

// Selectors locate ad fields. Slices are fallbacks in priority order.
type Selectors struct {
	Heading     string   `mapstructure:"heading"`
	Description []string `mapstructure:"description"`
	Price       string   `mapstructure:"price"`
	Status      string   `mapstructure:"status"`
	Date        []string `mapstructure:"date"`
}

func DefaultSelectors() Selectors {
	return Selectors{
		Heading:     "h1",
		Description: []string{".css-bgzo2k", ".css-b7rzo5"},
		Price:       ".css-dcwlyx > h3",
		Status:      "p.css-b5m1rv",
		Date:        []string{".css-sg1fy9 > span", ".css-17zq51m > span"},
	}
}

type rule struct {
	selectors []string
	optional  bool
	set       func(rec *models.AdRecord, text string, found bool)
}

type Extractor struct {
	rules []rule
}

func New(sel Selectors) *Extractor {
	return &Extractor{rules: []rule{
		{
			selectors: []string{sel.Heading},
			set:       func(r *models.AdRecord, text string, _ bool) { r.Title = text },
		},
		{
			selectors: sel.Description,
			set:       func(r *models.AdRecord, text string, _ bool) { r.Description = text },
		},
		{
			selectors: []string{sel.Price},
			optional:  true,
			set: func(r *models.AdRecord, text string, found bool) {
				r.Price = classifier.ClassifyPrice(text, found).Value
			},
		},
		{
			selectors: []string{sel.Status},
			set:       func(r *models.AdRecord, text string, _ bool) { r.Status = text },
		},
		{
			selectors: sel.Date,
			set:       func(r *models.AdRecord, text string, _ bool) { r.DatePublic = text },
		},
	}}
}

// Extract builds the record for doc, fetched from sourceURL. It has no side
// effects and never fails: any missing required element gives models.Removed().
func (e *Extractor) Extract(doc *goquery.Document, sourceURL string) models.AdRecord {
	if doc == nil {
		return models.Removed()
	}

	var rec models.AdRecord
	for _, r := range e.rules {
		sel, found := firstMatch(doc.Selection, r.selectors)
		if !found && !r.optional {
			return models.Removed()
		}
		text := ""
		if found {
			text = parser.Text(sel)
		}
		r.set(&rec, text, found)
	}
	rec.URL = sourceURL
	return rec
}

// firstMatch returns the first element of the first selector that matches.
func firstMatch(root *goquery.Selection, selectors []string) (*goquery.Selection, bool) {
	for _, s := range selectors {
		if s == "" {
			continue
		}
		if found := root.Find(s); found.Length() > 0 {
			return found.First(), true
		}
	}
	return nil, false
}
