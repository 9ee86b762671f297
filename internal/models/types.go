
package models

import "time"

// RemovedAdTitle is the title carried by the sentinel record.
const RemovedAdTitle = "Це оголошення більше не доступне"

// None marks a field that has no value.
const None = "None"

// AdRecord is one extracted listing. Either every field holds a value taken
// from the page or the record equals Removed().
type AdRecord struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Price       string `json:"price"`
	Status      string `json:"status"`
	URL         string `json:"url"`
	DatePublic  string `json:"date_public"`
}

// Removed returns the sentinel record for an ad that is no longer available.
func Removed() AdRecord {
	return AdRecord{
		Title:       RemovedAdTitle,
		Description: None,
		Price:       None,
		Status:      None,
		URL:         None,
		DatePublic:  None,
	}
}

// IsRemoved reports whether r is the sentinel record.
func (r AdRecord) IsRemoved() bool { return r == Removed() }

// Header is the column order of every tabular output.
func Header() []string {
	return []string{"title", "description", "price", "status", "url", "date_public"}
}

// Row returns the record's fields in Header order.
func (r AdRecord) Row() []string {
	return []string{r.Title, r.Description, r.Price, r.Status, r.URL, r.DatePublic}
}

type CategoryReport struct {
	Name    string        `json:"name"`
	URL     string        `json:"url"`
	AdURLs  int           `json:"adUrls"`
	Records int           `json:"records"`
	Removed int           `json:"removed"`
	Skipped int           `json:"skipped"`
	Elapsed time.Duration `json:"elapsed"`
	Err     error         `json:"-"`
}

// Failure returns the category error message, or "" when the category succeeded.
func (c CategoryReport) Failure() string {
	if c.Err == nil {
		return ""
	}
	return c.Err.Error()
}
