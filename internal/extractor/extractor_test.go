package extractor

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"olx-go-crawler/internal/models"
	"olx-go-crawler/internal/testutil"
)

const adURL = "https://www.olx.ua/d/uk/obyavlenie/velosiped-IDabc.html"

func doc(t *testing.T, page string) *goquery.Document {
	t.Helper()
	d, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	require.NoError(t, err)
	return d
}

func TestExtractComplete(t *testing.T) {
	e := New(DefaultSelectors())
	rec := e.Extract(doc(t, testutil.AdPage(testutil.SampleAd())), adURL)

	assert.Equal(t, models.AdRecord{
		Title:       "Велосипед гірський",
		Description: "Майже новий, їздив один сезон.",
		Price:       "4500",
		Status:      "Вживане",
		URL:         adURL,
		DatePublic:  "Сьогодні о 12:30",
	}, rec)
	assert.False(t, rec.IsRemoved())
}

func TestExtractAlternateMarkup(t *testing.T) {
	ad := testutil.SampleAd()
	ad.AltDescription = true
	ad.AltDate = true

	rec := New(DefaultSelectors()).Extract(doc(t, testutil.AdPage(ad)), adURL)
	assert.Equal(t, ad.Description, rec.Description)
	assert.Equal(t, ad.Date, rec.DatePublic)
}

func TestExtractPrefersPrimaryDescription(t *testing.T) {
	page := `<html><body><h1>T</h1>
<div class="css-b7rzo5">alternate</div><div class="css-bgzo2k">primary</div>
<p class="css-b5m1rv">Нове</p><div class="css-sg1fy9"><span>вчора</span></div></body></html>`

	rec := New(DefaultSelectors()).Extract(doc(t, page), adURL)
	assert.Equal(t, "primary", rec.Description)
}

func TestExtractPrices(t *testing.T) {
	cases := map[string]string{
		"500 грн":          "500",
		"Безкоштовно":      "Безкоштовно",
		"20 грн. за 1 шт.": "20 грн. за 1 шт.",
		"Обмін":            "Обмін",
	}
	e := New(DefaultSelectors())
	for price, want := range cases {
		ad := testutil.SampleAd()
		ad.Price = price
		rec := e.Extract(doc(t, testutil.AdPage(ad)), adURL)
		assert.Equal(t, want, rec.Price, price)
	}
}

func TestExtractMissingPriceIsNone(t *testing.T) {
	ad := testutil.SampleAd()
	ad.Price = ""

	rec := New(DefaultSelectors()).Extract(doc(t, testutil.AdPage(ad)), adURL)
	assert.Equal(t, models.None, rec.Price)
	assert.Equal(t, ad.Title, rec.Title)
	assert.Equal(t, adURL, rec.URL)
}

func TestExtractSentinel(t *testing.T) {
	noStatus := testutil.SampleAd()
	noStatus.Status = ""
	noDescription := testutil.SampleAd()
	noDescription.Description = ""
	noDate := testutil.SampleAd()
	noDate.Date = ""

	pages := map[string]string{
		"removed page":   testutil.RemovedPage(),
		"empty body":     "",
		"no status":      testutil.AdPage(noStatus),
		"no description": testutil.AdPage(noDescription),
		"no date":        testutil.AdPage(noDate),
	}
	e := New(DefaultSelectors())
	for name, page := range pages {
		t.Run(name, func(t *testing.T) {
			rec := e.Extract(doc(t, page), adURL)
			assert.Equal(t, models.Removed(), rec)
		})
	}
	assert.Equal(t, models.Removed(), e.Extract(nil, adURL))
}

func TestExtractIsIdempotent(t *testing.T) {
	e := New(DefaultSelectors())
	d := doc(t, testutil.AdPage(testutil.SampleAd()))
	assert.Equal(t, e.Extract(d, adURL), e.Extract(d, adURL))
}

func TestExtractCustomSelectors(t *testing.T) {
	sel := DefaultSelectors()
	sel.Status = "span.state"
	page := `<html><body><h1>T</h1><div class="css-bgzo2k">d</div><span class="state">Нове</span>
<div class="css-17zq51m"><span>вчора</span></div></body></html>`

	rec := New(sel).Extract(doc(t, page), adURL)
	assert.Equal(t, "Нове", rec.Status)
	assert.Equal(t, "вчора", rec.DatePublic)
}
