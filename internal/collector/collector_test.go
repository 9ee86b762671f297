package collector

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"olx-go-crawler/internal/crawler"
	"olx-go-crawler/internal/testutil"
)

// site serves HTML by request URI and records the order of requests.
type site struct {
	mu       sync.Mutex
	pages    map[string]string
	requests []string
}

func (s *site) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.requests = append(s.requests, r.URL.RequestURI())
	body, ok := s.pages[r.URL.RequestURI()]
	s.mu.Unlock()
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(body))
}

func newCollector(t *testing.T, pages map[string]string) (*Collector, *site, string) {
	t.Helper()
	s := &site{pages: pages}
	ts := httptest.NewServer(s)
	t.Cleanup(ts.Close)
	client := crawler.NewHTTPClient(crawler.Options{Timeout: 5 * time.Second, DialTimeout: time.Second})
	return New(crawler.NewLoader(client), DefaultSelectors()), s, ts.URL
}

func TestCollectPaginates(t *testing.T) {
	pages := map[string]string{
		"/uk/hobbi/":        testutil.ListingPage([]string{"/d/a1.html#from-list", "/d/a2.html"}, 3),
		"/uk/hobbi/?page=2": testutil.ListingPage([]string{"/d/a3.html"}, 3),
		"/uk/hobbi/?page=3": testutil.ListingPage([]string{"https://www.olx.ua/d/a4.html#x", "/d/a2.html"}, 3),
	}
	c, s, base := newCollector(t, pages)

	urls, err := c.Collect(context.Background(), base+"/uk/hobbi/")
	require.NoError(t, err)
	assert.Equal(t, []string{
		base + "/d/a1.html",
		base + "/d/a2.html",
		base + "/d/a3.html",
		"https://www.olx.ua/d/a4.html",
		base + "/d/a2.html",
	}, urls)
	assert.Equal(t, []string{"/uk/hobbi/", "/uk/hobbi/?page=2", "/uk/hobbi/?page=3"}, s.requests)
}

func TestCollectSinglePage(t *testing.T) {
	c, s, base := newCollector(t, map[string]string{
		"/uk/dom/": testutil.ListingPage([]string{"/d/a1.html"}, 1),
	})
	urls, err := c.Collect(context.Background(), base+"/uk/dom/")
	require.NoError(t, err)
	assert.Equal(t, []string{base + "/d/a1.html"}, urls)
	assert.Len(t, s.requests, 1)
}

func TestCollectLayoutMismatch(t *testing.T) {
	cases := map[string]map[string]string{
		"no container": {"/c/": `<html><body><div class="pager"><span class="item"><a>2</a></span></div></body></html>`},
		"no pager":     {"/c/": testutil.ListingPage([]string{"/d/a1.html"}, 0)},
		"bad pager":    {"/c/": `<html><body><table id="offers_table"></table><div class="pager"><span class="item"><a>next</a></span></div></body></html>`},
		"page 2 broken": {
			"/c/":        testutil.ListingPage([]string{"/d/a1.html"}, 2),
			"/c/?page=2": `<html><body>captcha</body></html>`,
		},
	}
	for name, pages := range cases {
		t.Run(name, func(t *testing.T) {
			c, _, base := newCollector(t, pages)
			_, err := c.Collect(context.Background(), base+"/c/")
			assert.ErrorIs(t, err, ErrLayoutMismatch)
		})
	}
}

func TestCollectFetchErrorPropagates(t *testing.T) {
	c, _, base := newCollector(t, map[string]string{
		"/c/": testutil.ListingPage([]string{"/d/a1.html"}, 2),
	})
	_, err := c.Collect(context.Background(), base+"/c/")
	var se *crawler.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusNotFound, se.Code)
}

func TestCategories(t *testing.T) {
	c, _, base := newCollector(t, map[string]string{
		"/uk/": testutil.HomePage([]string{"/uk/elektronika/", "https://www.olx.ua/uk/moda/", "/uk/elektronika/"}),
	})
	cats, err := c.Categories(context.Background(), base+"/uk/")
	require.NoError(t, err)
	assert.Equal(t, []string{base + "/uk/elektronika/", "https://www.olx.ua/uk/moda/"}, cats)
}

func TestCategoriesEmpty(t *testing.T) {
	c, _, base := newCollector(t, map[string]string{"/uk/": "<html></html>"})
	_, err := c.Categories(context.Background(), base+"/uk/")
	assert.ErrorIs(t, err, ErrLayoutMismatch)
}

func TestPageURL(t *testing.T) {
	u, err := url.Parse("https://www.olx.ua/uk/hobbi/?currency=UAH#top")
	require.NoError(t, err)
	for n := 2; n <= 3; n++ {
		assert.Equal(t, fmt.Sprintf("https://www.olx.ua/uk/hobbi/?currency=UAH&page=%d", n), PageURL(u, n))
	}
}

func TestCategoryName(t *testing.T) {
	assert.Equal(t, "elektronika", CategoryName("https://www.olx.ua/uk/elektronika/"))
	assert.Equal(t, "moda-i-stil", CategoryName("https://www.olx.ua/uk/moda-i-stil"))
	assert.Equal(t, "www.olx.ua", CategoryName("https://www.olx.ua/"))
}
