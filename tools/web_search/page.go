package web_search

import (
	"context"
	"net/http"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// contentSelectors are tried in order when looking for the main body
// of an article; the full document body is the last resort.
var contentSelectors = []string{
	"article", "main", ".content", ".post-content",
	".entry-content", ".article-body", "#content",
}

var whitespace = regexp.MustCompile(`\s+`)

// httpFetcher pulls a page over plain HTTP and extracts its main text
// with a selector cascade.
type httpFetcher struct {
	client    *http.Client
	userAgent string
}

func (f *httpFetcher) Fetch(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", &statusError{resp.StatusCode}
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", err
	}
	return extractContent(doc), nil
}

// extractContent strips boilerplate elements and returns the first
// matching main-content block, falling back to the whole body.
func extractContent(doc *goquery.Document) string {
	doc.Find("script, style, nav, footer, header, aside").Remove()

	var content string
	for _, selector := range contentSelectors {
		if sel := doc.Find(selector); sel.Length() > 0 {
			content = sel.First().Text()
			break
		}
	}
	if content == "" {
		content = doc.Find("body").Text()
	}
	return strings.TrimSpace(whitespace.ReplaceAllString(content, " "))
}
