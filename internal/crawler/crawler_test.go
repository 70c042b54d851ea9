package crawler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/internal/searchcrawl/internal/httpclient"
	"github.com/internal/searchcrawl/internal/ratelimit"
)

func newTestCrawler() *Crawler {
	pool := httpclient.New(httpclient.Options{Timeout: 5 * time.Second})
	limiter := ratelimit.New(1000, 1000)
	return New(pool, limiter)
}

func TestDiscoverSingleEmptyPage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body>no links here</body></html>`))
	}))
	defer server.Close()

	c := newTestCrawler()
	fetched, err := c.Discover(context.Background(), server.URL, 10)
	require.NoError(t, err)
	require.Len(t, fetched, 1)
	assert.Contains(t, string(fetched[0].Body), "no links here")
}

func TestDiscoverStaysWithinDomain(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body>
			<a href="/page2">internal link</a>
			<a href="https://external.example.com/other">external link</a>
		</body></html>`))
	})
	mux.HandleFunc("/page2", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body>page two content</body></html>`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	c := newTestCrawler()
	fetched, err := c.Discover(context.Background(), server.URL+"/", 10)
	require.NoError(t, err)

	require.Len(t, fetched, 2)
	for _, f := range fetched {
		assert.Contains(t, f.URL, server.URL)
	}
}

func TestDiscoverRespectsMaxPages(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body>
			<a href="/a">a</a><a href="/b">b</a><a href="/c">c</a>
		</body></html>`))
	})
	mux.HandleFunc("/a", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body><a href="/d">d</a></body></html>`))
	})
	mux.HandleFunc("/b", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body>b page</body></html>`))
	})
	mux.HandleFunc("/c", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body>c page</body></html>`))
	})
	mux.HandleFunc("/d", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body>d page</body></html>`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	c := newTestCrawler()
	fetched, err := c.Discover(context.Background(), server.URL+"/", 2)
	require.NoError(t, err)
	assert.Len(t, fetched, 2)
}

func TestDiscoverNeverRevisitsAURL(t *testing.T) {
	var hits int
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		hits++
		_, _ = w.Write([]byte(`<html><body>
			<a href="/loop">loop</a>
		</body></html>`))
	})
	mux.HandleFunc("/loop", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body><a href="/">back to start</a></body></html>`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	c := newTestCrawler()
	fetched, err := c.Discover(context.Background(), server.URL+"/", 10)
	require.NoError(t, err)
	assert.Len(t, fetched, 2)
	assert.Equal(t, 1, hits)
}

func TestDiscoverSkipsNon2xxResponses(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	c := newTestCrawler()
	fetched, err := c.Discover(context.Background(), server.URL+"/", 10)
	require.NoError(t, err)
	assert.Empty(t, fetched)
}
