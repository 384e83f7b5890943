package scraper

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/xhad/askmydocs/internal/logger"
	"golang.org/x/time/rate"
)

// DefaultMaxDepth is used when ScraperConfig.MaxDepth is negative.
const DefaultMaxDepth = 2

type ScraperConfig struct {
	BaseURL           string
	MaxDepth          int // 0 fetches the start page only; negative means DefaultMaxDepth
	RateLimit         float64 // requests per second
	IgnorePatterns    []string
	AllowedExtensions []string
	Timeout           time.Duration
	OnProgress        func(url string)
}

// Page is the readable text of one fetched HTML page.
type Page struct {
	URL     string
	Title   string
	Content string
}

// Scraper crawls a site breadth-limited by depth, staying on the base host.
type Scraper struct {
	config   ScraperConfig
	client   *http.Client
	visited  map[string]bool
	limiter  *rate.Limiter
	baseHost string
}

func NewWithConfig(config ScraperConfig) (*Scraper, error) {
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.MaxDepth < 0 {
		config.MaxDepth = DefaultMaxDepth
	}
	if config.RateLimit == 0 {
		config.RateLimit = 2
	}
	if len(config.AllowedExtensions) == 0 {
		config.AllowedExtensions = []string{".html", ".htm"}
	}

	parsedURL, err := url.Parse(config.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return nil, fmt.Errorf("invalid base url %q: scheme must be http or https", config.BaseURL)
	}

	return &Scraper{
		config:   config,
		client:   &http.Client{Timeout: config.Timeout},
		visited:  make(map[string]bool),
		limiter:  rate.NewLimiter(rate.Limit(config.RateLimit), 1),
		baseHost: parsedURL.Host,
	}, nil
}

func (s *Scraper) shouldProcessURL(urlStr string) bool {
	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return false
	}
	if parsedURL.Host != s.baseHost {
		return false
	}

	// extensionless paths are treated as pages
	if ext := strings.ToLower(filepath.Ext(parsedURL.Path)); ext != "" && !contains(s.config.AllowedExtensions, ext) {
		return false
	}

	for _, pattern := range s.config.IgnorePatterns {
		if strings.Contains(urlStr, pattern) {
			return false
		}
	}
	return true
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

var noisePatterns = []string{
	"Cookie Policy",
	"Accept Cookies",
	"Privacy Policy",
	"Terms of Service",
}

func cleanContent(content string) string {
	content = strings.Join(strings.Fields(content), " ")
	for _, pattern := range noisePatterns {
		content = strings.ReplaceAll(content, pattern, "")
	}
	return strings.TrimSpace(content)
}

func extractMainContent(doc *goquery.Document) string {
	doc.Find("script, style, nav, footer").Remove()

	selectors := []string{
		"main",
		"article",
		".content",
		"#content",
		".documentation",
		"#documentation",
	}

	var content string
	for _, selector := range selectors {
		if selected := doc.Find(selector); selected.Length() > 0 {
			content = selected.Text()
			break
		}
	}
	if content == "" {
		content = doc.Find("body").Text()
	}
	return cleanContent(content)
}

// Scrape fetches startURL and the same-host pages it links to, up to
// MaxDepth links away. Pages that fail to fetch are logged and skipped;
// only a failure on startURL itself is returned.
func (s *Scraper) Scrape(ctx context.Context, startURL string) ([]Page, error) {
	var pages []Page
	if err := s.scrapeRecursive(ctx, startURL, 0, &pages); err != nil {
		return nil, err
	}
	return pages, nil
}

func (s *Scraper) scrapeRecursive(ctx context.Context, urlStr string, depth int, pages *[]Page) error {
	if depth > s.config.MaxDepth || s.visited[urlStr] {
		return nil
	}
	if !s.shouldProcessURL(urlStr) {
		return nil
	}
	s.visited[urlStr] = true

	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}

	doc, err := s.fetch(ctx, urlStr)
	if err != nil {
		return err
	}
	if s.config.OnProgress != nil {
		s.config.OnProgress(urlStr)
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())
	var links []string
	doc.Find("a[href]").Each(func(_ int, selection *goquery.Selection) {
		href, _ := selection.Attr("href")
		if link, ok := resolve(urlStr, href); ok {
			links = append(links, link)
		}
	})

	if content := extractMainContent(doc); content != "" {
		*pages = append(*pages, Page{URL: urlStr, Title: title, Content: content})
	}

	for _, link := range links {
		if err := s.scrapeRecursive(ctx, link, depth+1, pages); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.Warn("skipping %s: %v", link, err)
		}
	}
	return nil
}

func (s *Scraper) fetch(ctx context.Context, urlStr string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("received status code %d for URL: %s", resp.StatusCode, urlStr)
	}
	return goquery.NewDocumentFromReader(resp.Body)
}

// resolve makes href absolute against base and drops the fragment.
func resolve(base, href string) (string, bool) {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return "", false
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return "", false
	}
	abs := baseURL.ResolveReference(ref)
	abs.Fragment = ""
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return "", false
	}
	return abs.String(), true
}

var slugRe = regexp.MustCompile(`[^a-z0-9]+`)

// Slug turns a page URL into a file name stem.
func Slug(pageURL string) string {
	u, err := url.Parse(pageURL)
	if err != nil {
		return "page"
	}
	slug := strings.Trim(slugRe.ReplaceAllString(strings.ToLower(u.Host+u.Path), "-"), "-")
	if slug == "" {
		return "page"
	}
	if len(slug) > 120 {
		slug = slug[:120]
	}
	return slug
}

// SaveText writes each page to dir as <slug>.txt so the ingestion pipeline
// picks it up as a text document. Existing files are overwritten.
func SaveText(dir string, pages []Page) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}

	var paths []string
	used := make(map[string]int)
	for _, page := range pages {
		name := Slug(page.URL)
		if n := used[name]; n > 0 {
			used[name] = n + 1
			name = fmt.Sprintf("%s-%d", name, n+1)
		} else {
			used[name] = 1
		}

		var b strings.Builder
		if page.Title != "" {
			b.WriteString(page.Title)
			b.WriteString("\n\n")
		}
		b.WriteString("Source: ")
		b.WriteString(page.URL)
		b.WriteString("\n\n")
		b.WriteString(page.Content)
		b.WriteString("\n")

		path := filepath.Join(dir, name+".txt")
		if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}
