package web_search

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const resultsPerEngine = 5

var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
}

// engine describes one search engine: where to send the query and how
// to pull result links out of its markup.
type engine struct {
	name      string
	urlFormat string
	extract   func(doc *goquery.Document) []Result
}

func (e engine) searchURL(encodedQuery string) string {
	return fmt.Sprintf(e.urlFormat, encodedQuery)
}

var engineTable = map[string]engine{
	"google": {
		name:      "google",
		urlFormat: "https://www.google.com/search?q=%s",
		extract:   extractGoogle,
	},
	"duckduckgo": {
		name:      "duckduckgo",
		urlFormat: "https://duckduckgo.com/html/?q=%s",
		extract:   extractDuckDuckGo,
	},
	"bing": {
		name:      "bing",
		urlFormat: "https://www.bing.com/search?q=%s",
		extract:   extractBing,
	},
}

func extractGoogle(doc *goquery.Document) []Result {
	var out []Result
	doc.Find("div.g").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		title := strings.TrimSpace(sel.Find("h3").First().Text())
		href, _ := sel.Find("a").First().Attr("href")
		if title != "" && href != "" && !strings.HasPrefix(href, "/") {
			out = append(out, Result{Title: title, URL: href})
		}
		return len(out) < resultsPerEngine
	})
	return out
}

func extractDuckDuckGo(doc *goquery.Document) []Result {
	var out []Result
	doc.Find("a.result__a").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		title := strings.TrimSpace(sel.Text())
		href, _ := sel.Attr("href")
		if title != "" && href != "" {
			out = append(out, Result{Title: title, URL: href})
		}
		return len(out) < resultsPerEngine
	})
	return out
}

func extractBing(doc *goquery.Document) []Result {
	var out []Result
	doc.Find("h2").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		link := sel.Find("a").First()
		title := strings.TrimSpace(link.Text())
		href, _ := link.Attr("href")
		if title != "" && href != "" {
			out = append(out, Result{Title: title, URL: href})
		}
		return len(out) < resultsPerEngine
	})
	return out
}
