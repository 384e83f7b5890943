package scraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScraperConfig(t *testing.T) {
	config := ScraperConfig{
		BaseURL:        "https://example.com",
		MaxDepth:       5,
		RateLimit:      1.0,
		IgnorePatterns: []string{"/ignore/", "private"},
		Timeout:        10 * time.Second,
	}

	s, err := NewWithConfig(config)
	require.NoError(t, err)
	assert.Equal(t, config.BaseURL, s.config.BaseURL)
	assert.Equal(t, config.MaxDepth, s.config.MaxDepth)
	assert.Equal(t, []string{".html", ".htm"}, s.config.AllowedExtensions)

	s, err = NewWithConfig(ScraperConfig{BaseURL: "https://example.com", MaxDepth: -1})
	require.NoError(t, err)
	assert.Equal(t, DefaultMaxDepth, s.config.MaxDepth)

	_, err = NewWithConfig(ScraperConfig{BaseURL: "ftp://example.com"})
	assert.Error(t, err)
}

func TestShouldProcessURL(t *testing.T) {
	config := ScraperConfig{
		BaseURL:        "https://example.com",
		IgnorePatterns: []string{"/ignore/", "private"},
	}

	s, err := NewWithConfig(config)
	require.NoError(t, err)

	tests := []struct {
		url      string
		expected bool
	}{
		{"https://example.com/docs/", true},
		{"https://example.com/docs/intro", true},
		{"https://example.com/page.html", true},
		{"https://example.com/PAGE.HTM", true},
		{"https://example.com/ignore/page.html", false},
		{"https://example.com/private.html", false},
		{"https://other-domain.com/page.html", false},
		{"https://example.com/file.pdf", false},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			result := s.shouldProcessURL(tt.url)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func newSite(t *testing.T) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`
			<html>
				<head><title>Test Page</title></head>
				<body>
					<nav>Home | Docs</nav>
					<main>
						<h1>Test Content</h1>
						<p>This is a test paragraph.</p>
						<a href="/page2.html#top">Link</a>
						<a href="/missing.html">Broken</a>
						<a href="https://elsewhere.example/">External</a>
						<a href="mailto:someone@example.com">Mail</a>
					</main>
				</body>
			</html>
		`))
	})
	mux.HandleFunc("/page2.html", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><head><title>Second</title></head><body><article>The sky is blue.</article><a href="/">Back</a></body></html>`))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestScrapeWithMockServer(t *testing.T) {
	server := newSite(t)

	var progress []string
	s, err := NewWithConfig(ScraperConfig{
		BaseURL:    server.URL,
		MaxDepth:   1,
		RateLimit:  100,
		OnProgress: func(url string) { progress = append(progress, url) },
	})
	require.NoError(t, err)

	pages, err := s.Scrape(context.Background(), server.URL+"/")
	require.NoError(t, err)
	require.Len(t, pages, 2)

	page := pages[0]
	assert.Equal(t, server.URL+"/", page.URL)
	assert.Equal(t, "Test Page", page.Title)
	assert.Contains(t, page.Content, "Test Content")
	assert.Contains(t, page.Content, "This is a test paragraph")
	assert.NotContains(t, page.Content, "Home | Docs")

	assert.Equal(t, server.URL+"/page2.html", pages[1].URL)
	assert.Equal(t, "The sky is blue.", pages[1].Content)
	assert.Len(t, progress, 2)
}

func TestScrapeDepthZero(t *testing.T) {
	server := newSite(t)
	s, err := NewWithConfig(ScraperConfig{BaseURL: server.URL, MaxDepth: 0, RateLimit: 100})
	require.NoError(t, err)
	assert.Equal(t, 0, s.config.MaxDepth)

	pages, err := s.Scrape(context.Background(), server.URL+"/")
	require.NoError(t, err)
	assert.Len(t, pages, 1)
}

func TestScrapeStartPageError(t *testing.T) {
	server := newSite(t)
	s, err := NewWithConfig(ScraperConfig{BaseURL: server.URL, RateLimit: 100})
	require.NoError(t, err)

	_, err = s.Scrape(context.Background(), server.URL+"/missing.html")
	assert.ErrorContains(t, err, "404")
}

func TestSlug(t *testing.T) {
	tests := map[string]string{
		"https://example.com/docs/Getting-Started.html": "example-com-docs-getting-started-html",
		"https://example.com/":                          "example-com",
		"::not a url":                                   "page",
	}
	for in, want := range tests {
		assert.Equal(t, want, Slug(in), in)
	}
}

func TestSaveText(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	pages := []Page{
		{URL: "https://example.com/a", Title: "A", Content: "The sky is blue."},
		{URL: "https://example.com/a/", Content: "Same slug."},
	}

	paths, err := SaveText(dir, pages)
	require.NoError(t, err)
	require.Equal(t, []string{
		filepath.Join(dir, "example-com-a.txt"),
		filepath.Join(dir, "example-com-a-2.txt"),
	}, paths)

	data, err := os.ReadFile(paths[0])
	require.NoError(t, err)
	assert.Equal(t, "A\n\nSource: https://example.com/a\n\nThe sky is blue.\n", string(data))
}
