package coordinator

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"olx-go-crawler/internal/collector"
	"olx-go-crawler/internal/crawler"
	"olx-go-crawler/internal/extractor"
	"olx-go-crawler/internal/ioformats"
	"olx-go-crawler/internal/models"
	"olx-go-crawler/internal/processor"
	"olx-go-crawler/internal/testutil"
)

// market is a fake marketplace keyed by request URI.
type market struct {
	mu     sync.Mutex
	pages  map[string]string
	status map[string]int
	hits   map[string]int
}

func (m *market) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	key := r.URL.RequestURI()
	m.mu.Lock()
	m.hits[key]++
	body, ok := m.pages[key]
	code := m.status[key]
	m.mu.Unlock()

	if code != 0 {
		w.WriteHeader(code)
		return
	}
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(body))
}

func (m *market) hitsFor(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hits[key]
}

func newMarket() *market {
	return &market{pages: map[string]string{}, status: map[string]int{}, hits: map[string]int{}}
}

func newStack(t *testing.T, m *market, concurrency int) (*Coordinator, *ioformats.FileSink, string) {
	t.Helper()
	ts := httptest.NewServer(m)
	t.Cleanup(ts.Close)

	client := crawler.NewHTTPClient(crawler.Options{Timeout: 5 * time.Second, DialTimeout: time.Second})
	loader := crawler.NewLoader(client)
	sink, err := ioformats.NewCSVSink(t.TempDir())
	require.NoError(t, err)

	c := New(
		Config{BaseURL: ts.URL + "/uk/", Concurrency: concurrency, CategoryTimeout: time.Minute},
		collector.New(loader, collector.DefaultSelectors()),
		processor.New(loader, extractor.New(extractor.DefaultSelectors())),
		nil,
		sink,
	)
	return c, sink, ts.URL
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func adLinks(prefix string, from, to int) []string {
	var out []string
	for i := from; i <= to; i++ {
		out = append(out, fmt.Sprintf("%s/d/%d.html", prefix, i))
	}
	return out
}

func TestRunEndToEnd(t *testing.T) {
	m := newMarket()
	m.pages["/uk/"] = testutil.HomePage([]string{"/uk/hobbi/"})
	m.pages["/uk/hobbi/"] = testutil.ListingPage(adLinks("/hobbi", 1, 5), 2)
	m.pages["/uk/hobbi/?page=2"] = testutil.ListingPage(adLinks("/hobbi", 6, 8), 2)
	for i := 1; i <= 8; i++ {
		ad := testutil.SampleAd()
		ad.Title = fmt.Sprintf("Ad %d", i)
		m.pages[fmt.Sprintf("/hobbi/d/%d.html", i)] = testutil.AdPage(ad)
	}
	m.pages["/hobbi/d/4.html"] = testutil.RemovedPage()

	c, sink, _ := newStack(t, m, 3)
	reports, err := c.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, "hobbi", reports[0].Name)
	assert.Equal(t, 8, reports[0].AdURLs)
	assert.Equal(t, 8, reports[0].Records)
	assert.Equal(t, 1, reports[0].Removed)
	assert.Zero(t, reports[0].Skipped)

	rows := readCSV(t, sink.Path("hobbi"))
	require.Len(t, rows, 9)
	assert.Equal(t, models.Header(), rows[0])

	sentinels := 0
	for _, row := range rows[1:] {
		if row[0] == models.RemovedAdTitle {
			sentinels++
			assert.Equal(t, []string{"None", "None", "None", "None", "None"}, row[1:])
		}
	}
	assert.Equal(t, 1, sentinels)
	assert.Equal(t, 2, m.hitsFor("/hobbi/d/4.html"), "removed ad is fetched twice")
	assert.Equal(t, 1, m.hitsFor("/hobbi/d/1.html"))
}

func TestRunSkipsTransportFailures(t *testing.T) {
	m := newMarket()
	m.pages["/uk/"] = testutil.HomePage([]string{"/uk/dom/"})
	m.pages["/uk/dom/"] = testutil.ListingPage(adLinks("/dom", 1, 3), 1)
	for i := 1; i <= 3; i++ {
		m.pages[fmt.Sprintf("/dom/d/%d.html", i)] = testutil.AdPage(testutil.SampleAd())
	}
	m.status["/dom/d/2.html"] = http.StatusInternalServerError

	c, sink, _ := newStack(t, m, 2)
	reports, err := c.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, 1, reports[0].Skipped)
	assert.Equal(t, 2, reports[0].Records)

	rows := readCSV(t, sink.Path("dom"))
	assert.Len(t, rows, 3)
}

func TestRunContinuesAfterLayoutMismatch(t *testing.T) {
	m := newMarket()
	m.pages["/uk/"] = testutil.HomePage([]string{"/uk/broken/", "/uk/moda/"})
	m.pages["/uk/broken/"] = `<html><body>redesigned</body></html>`
	m.pages["/uk/moda/"] = testutil.ListingPage(adLinks("/moda", 1, 2), 1)
	m.pages["/moda/d/1.html"] = testutil.AdPage(testutil.SampleAd())
	m.pages["/moda/d/2.html"] = testutil.AdPage(testutil.SampleAd())

	c, sink, _ := newStack(t, m, 2)
	reports, err := c.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, collector.ErrLayoutMismatch)
	require.Len(t, reports, 2)
	assert.ErrorIs(t, reports[0].Err, collector.ErrLayoutMismatch)
	assert.NoError(t, reports[1].Err)

	_, statErr := os.Stat(sink.Path("broken"))
	assert.True(t, os.IsNotExist(statErr), "no output for a failed category")
	assert.Len(t, readCSV(t, sink.Path("moda")), 3)
}

func TestRunDiscoveryFailure(t *testing.T) {
	m := newMarket()
	m.status["/uk/"] = http.StatusServiceUnavailable
	c, _, _ := newStack(t, m, 1)

	_, err := c.Run(context.Background())
	var se *crawler.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusServiceUnavailable, se.Code)
}

// fakeCollector serves fixed URL lists per category.
type fakeCollector struct {
	categories []string
	urls       map[string][]string
}

func (f *fakeCollector) Categories(context.Context, string) ([]string, error) {
	return f.categories, nil
}

func (f *fakeCollector) Collect(_ context.Context, u string) ([]string, error) {
	if urls, ok := f.urls[u]; ok {
		return urls, nil
	}
	return nil, errors.New("unknown category")
}

// gaugeProcessor records the highest number of concurrent calls.
type gaugeProcessor struct {
	inFlight, peak atomic.Int64
	delay          time.Duration
}

func (p *gaugeProcessor) Process(ctx context.Context, u string, rec processor.Recorder) (models.AdRecord, error) {
	n := p.inFlight.Add(1)
	defer p.inFlight.Add(-1)
	for {
		old := p.peak.Load()
		if n <= old || p.peak.CompareAndSwap(old, n) {
			break
		}
	}
	select {
	case <-time.After(p.delay):
	case <-ctx.Done():
		return models.AdRecord{}, ctx.Err()
	}
	ad := models.AdRecord{Title: u, Description: "d", Price: "1", Status: "s", URL: u, DatePublic: "t"}
	rec.Add(ad)
	return ad, nil
}

type memorySink struct {
	mu     sync.Mutex
	order  []string
	tables map[string][]models.AdRecord
}

func (s *memorySink) WriteTable(name string, rows []models.AdRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tables == nil {
		s.tables = map[string][]models.AdRecord{}
	}
	s.order = append(s.order, name)
	s.tables[name] = rows
	return nil
}

func TestCoordinatorBoundsConcurrencyAndResetsState(t *testing.T) {
	col := &fakeCollector{
		categories: []string{"https://x/uk/a/", "https://x/uk/b/"},
		urls: map[string][]string{
			"https://x/uk/a/": adLinks("https://x/a", 1, 20),
			"https://x/uk/b/": adLinks("https://x/b", 1, 5),
		},
	}
	proc := &gaugeProcessor{delay: 5 * time.Millisecond}
	sink := &memorySink{}

	c := New(Config{BaseURL: "https://x/uk/", Concurrency: 4}, col, proc, nil, sink)
	reports, err := c.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, reports, 2)

	assert.LessOrEqual(t, proc.peak.Load(), int64(4))
	assert.Equal(t, []string{"a", "b"}, sink.order)
	assert.Len(t, sink.tables["a"], 20)
	require.Len(t, sink.tables["b"], 5)
	for _, r := range sink.tables["b"] {
		assert.Contains(t, r.URL, "https://x/b/")
	}
}

func TestCoordinatorUsesConfiguredCategories(t *testing.T) {
	col := &fakeCollector{
		categories: []string{"https://x/uk/ignored/"},
		urls:       map[string][]string{"https://x/uk/c/": adLinks("https://x/c", 1, 2)},
	}
	sink := &memorySink{}
	c := New(Config{Categories: []string{"https://x/uk/c/"}, Concurrency: 2}, col, &gaugeProcessor{}, nil, sink)

	_, err := c.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"c"}, sink.order)
}

func TestCategoryDeadlineWritesNothing(t *testing.T) {
	col := &fakeCollector{urls: map[string][]string{"https://x/uk/slow/": adLinks("https://x/s", 1, 3)}}
	sink := &memorySink{}
	c := New(Config{Concurrency: 3, CategoryTimeout: 20 * time.Millisecond}, col, &gaugeProcessor{delay: time.Minute}, nil, sink)

	report := c.CrawlCategory(context.Background(), "https://x/uk/slow/")
	assert.ErrorIs(t, report.Err, context.DeadlineExceeded)
	assert.Equal(t, 3, report.Skipped)
	assert.Empty(t, sink.order)
}
