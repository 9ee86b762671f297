package main

import (
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"olx-go-crawler/internal/models"
)

// renderReport prints one row per category followed by totals.
func renderReport(w io.Writer, reports []models.CategoryReport) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Category", "Ad URLs", "Records", "Removed", "Skipped", "Elapsed", "Error"})

	var urls, records, removed, skipped int
	var elapsed time.Duration
	for _, r := range reports {
		t.AppendRow(table.Row{r.Name, r.AdURLs, r.Records, r.Removed, r.Skipped, r.Elapsed.Round(time.Millisecond), r.Failure()})
		urls += r.AdURLs
		records += r.Records
		removed += r.Removed
		skipped += r.Skipped
		elapsed += r.Elapsed
	}
	t.AppendFooter(table.Row{"Total", urls, records, removed, skipped, elapsed.Round(time.Millisecond), ""})
	t.Render()
}
