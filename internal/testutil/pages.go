// Package testutil renders marketplace-shaped HTML for tests.
package testutil

import (
	"fmt"
	"html"
	"strings"
)

type Ad struct {
	Title string
	// AltDescription renders the description with the alternate markup.
	Description    string
	AltDescription bool
	// Price is omitted from the page when empty.
	Price   string
	Status  string
	Date    string
	AltDate bool
}

// SampleAd returns a fully populated ad using the primary markup.
func SampleAd() Ad {
	return Ad{
		Title:       "Велосипед гірський",
		Description: "Майже новий, їздив один сезон.",
		Price:       "4 500 грн.",
		Status:      "Вживане",
		Date:        "Сьогодні о 12:30",
	}
}

func AdPage(ad Ad) string {
	var b strings.Builder
	b.WriteString(`<!doctype html><html lang="uk"><head><meta charset="utf-8"><title>OLX</title></head><body>`)
	if ad.Title != "" {
		fmt.Fprintf(&b, `<h1 class="css-1soizd2">%s</h1>`, html.EscapeString(ad.Title))
	}
	if ad.Price != "" {
		fmt.Fprintf(&b, `<div class="css-dcwlyx"><h3 class="css-ddweki">%s</h3></div>`, html.EscapeString(ad.Price))
	}
	if ad.Status != "" {
		fmt.Fprintf(&b, `<ul><li><p class="css-b5m1rv">%s</p></li></ul>`, html.EscapeString(ad.Status))
	}
	if ad.Description != "" {
		class := "css-bgzo2k"
		if ad.AltDescription {
			class = "css-b7rzo5"
		}
		fmt.Fprintf(&b, `<div class="%s">%s</div>`, class, html.EscapeString(ad.Description))
	}
	if ad.Date != "" {
		class := "css-sg1fy9"
		if ad.AltDate {
			class = "css-17zq51m"
		}
		fmt.Fprintf(&b, `<div class="%s"><span>%s</span></div>`, class, html.EscapeString(ad.Date))
	}
	b.WriteString(`</body></html>`)
	return b.String()
}

// RemovedPage is what the marketplace serves for an ad that is gone.
func RemovedPage() string {
	return `<!doctype html><html><body><h4>Оголошення не знайдено</h4></body></html>`
}

// ListingPage renders a category page with one entry per link and a pager
// whose last link is lastPage. lastPage < 1 omits the pager.
func ListingPage(links []string, lastPage int) string {
	var b strings.Builder
	b.WriteString(`<!doctype html><html><body><table id="offers_table">`)
	for _, l := range links {
		fmt.Fprintf(&b, `<tr class="wrap"><td><a href="%s">ad</a></td></tr>`, html.EscapeString(l))
	}
	b.WriteString(`</table>`)
	if lastPage >= 1 {
		b.WriteString(`<div class="pager">`)
		for i := 1; i <= lastPage; i++ {
			fmt.Fprintf(&b, `<span class="item"><a href="?page=%d">%d</a></span>`, i, i)
		}
		b.WriteString(`</div>`)
	}
	b.WriteString(`</body></html>`)
	return b.String()
}

// HomePage renders the base page listing top-level categories.
func HomePage(categories []string) string {
	var b strings.Builder
	b.WriteString(`<!doctype html><html><body><ul>`)
	for _, c := range categories {
		fmt.Fprintf(&b, `<li class="li"><a href="%s">category</a></li>`, html.EscapeString(c))
	}
	b.WriteString(`</ul></body></html>`)
	return b.String()
}
