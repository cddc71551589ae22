// Package web_search scrapes public search-engine result pages and the
// pages they link to. Extraction is selector-based and inherently
// fragile to upstream markup changes, so every failure degrades to
// fewer (or zero) results instead of an error.
package web_search

import (
	"context"
	"log"
	"math/rand"
	"net/http"
	"net/url"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rango-productions/turbotalk/tools/web_search/chromedp"
)

// Result is one retrieved search hit with its extracted page content.
type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Content string `json:"content"`
}

// PageFetcher extracts the readable text of a single page.
type PageFetcher interface {
	Fetch(ctx context.Context, pageURL string) (string, error)
}

// FetcherType selects the page-content extraction backend.
type FetcherType string

const (
	HTTPFetcherType     FetcherType = "http"
	ChromedpFetcherType FetcherType = "chromedp"
)

// Searcher queries an ordered list of search engines.
type Searcher struct {
	engines    []engine
	maxEngines int
	client     *http.Client
	fetcher    PageFetcher
	maxContent int
	userAgent  string
	logger     *log.Logger
}

// Options configures a Searcher.
type Options struct {
	Engines          []string // engine names, tried in order
	MaxEngines       int      // how many engines to try per query
	Timeout          time.Duration
	MaxContentLength int
	Fetcher          FetcherType
}

// NewSearcher builds a Searcher from named engines. Unknown engine
// names are skipped.
func NewSearcher(opts Options, logger *log.Logger) *Searcher {
	if logger == nil {
		logger = log.New(log.Writer(), "[SCRAPER] ", log.LstdFlags)
	}
	if opts.Timeout == 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.MaxContentLength <= 0 {
		opts.MaxContentLength = 1000
	}
	if opts.MaxEngines <= 0 {
		opts.MaxEngines = 2
	}
	if len(opts.Engines) == 0 {
		opts.Engines = []string{"google", "duckduckgo", "bing"}
	}

	var engines []engine
	for _, name := range opts.Engines {
		eng, ok := engineTable[name]
		if !ok {
			logger.Printf("unknown search engine %q, skipping", name)
			continue
		}
		engines = append(engines, eng)
	}

	userAgent := userAgents[rand.Intn(len(userAgents))]
	var fetcher PageFetcher
	switch opts.Fetcher {
	case ChromedpFetcherType:
		fetcher = &chromedp.Fetch{Timeout: opts.Timeout, MaxChars: opts.MaxContentLength}
	default:
		fetcher = &httpFetcher{
			client:    &http.Client{Timeout: opts.Timeout},
			userAgent: userAgent,
		}
	}

	return &Searcher{
		engines:    engines,
		maxEngines: opts.MaxEngines,
		client:     &http.Client{Timeout: opts.Timeout},
		fetcher:    fetcher,
		maxContent: opts.MaxContentLength,
		userAgent:  userAgent,
		logger:     logger,
	}
}

// Search collects up to maxResults hits across the configured engines
// and fills each with extracted page content. A hit whose page cannot
// be fetched keeps an empty content string.
func (s *Searcher) Search(ctx context.Context, query string, maxResults int) []Result {
	if maxResults <= 0 {
		maxResults = 5
	}

	var candidates []Result
	tried := 0
	for _, eng := range s.engines {
		if tried >= s.maxEngines {
			break
		}
		tried++
		found, err := s.queryEngine(ctx, eng, query)
		if err != nil {
			s.logger.Printf("engine %s failed: %v", eng.name, err)
			continue
		}
		candidates = append(candidates, found...)
		if len(candidates) >= maxResults {
			break
		}
	}
	if len(candidates) > maxResults {
		candidates = candidates[:maxResults]
	}

	out := make([]Result, 0, len(candidates))
	for _, cand := range candidates {
		content, err := s.fetcher.Fetch(ctx, cand.URL)
		if err != nil {
			s.logger.Printf("fetch %s failed: %v", cand.URL, err)
			content = ""
		}
		if len(content) > s.maxContent {
			content = content[:s.maxContent]
		}
		out = append(out, Result{Title: cand.Title, URL: cand.URL, Content: content})
	}
	return out
}

func (s *Searcher) queryEngine(ctx context.Context, eng engine, query string) ([]Result, error) {
	searchURL := eng.searchURL(url.QueryEscape(query))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, &statusError{resp.StatusCode}
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, err
	}
	return eng.extract(doc), nil
}

type statusError struct{ code int }

func (e *statusError) Error() string { return http.StatusText(e.code) }
