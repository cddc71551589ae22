package pipeline

import (
	"context"
	"io"
	"log"
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/rango-productions/turbotalk/internal/completion"
	"github.com/rango-productions/turbotalk/internal/conversation"
	"github.com/rango-productions/turbotalk/tools/web_search"
)

func quietLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

// stageCompleter answers each stage with canned text keyed off the
// prompt wording, recording the order stages were invoked in.
type stageCompleter struct {
	mu     sync.Mutex
	stages []string
}

func (c *stageCompleter) Send(_ context.Context, input string, _ []conversation.Turn) string {
	var stage, reply string
	switch {
	case strings.Contains(input, "internal thinking processor"):
		stage, reply = "plan", "PLAN: the user asks about photosynthesis"
	case strings.Contains(input, "thinking summarizer"):
		stage, reply = "summarize", "SUMMARY: explain how plants convert light"
	case strings.Contains(input, "search prompt generator"):
		stage, reply = "search_query", "how does photosynthesis work"
	case strings.Contains(input, "search topic generator"):
		stage, reply = "search_topics", "chlorophyll, light reactions, calvin cycle"
	case strings.Contains(input, "developed by Rango Productions"):
		stage, reply = "synthesize", "FINAL: "+input
	default:
		stage, reply = "unknown", "unexpected prompt"
	}
	c.mu.Lock()
	c.stages = append(c.stages, stage)
	c.mu.Unlock()
	return reply
}

// recordingSearcher returns fixed results and records queries with
// their caps.
type recordingSearcher struct {
	mu      sync.Mutex
	queries map[string]int
	results []web_search.Result
}

func (s *recordingSearcher) Search(_ context.Context, query string, maxResults int) []web_search.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.queries == nil {
		s.queries = make(map[string]int)
	}
	s.queries[query] = maxResults
	return s.results
}

func TestParseTopics(t *testing.T) {
	got := ParseTopics("quantum computing, AI ethics,  renewable energy ,")
	want := []string{"quantum computing", "AI ethics", "renewable energy"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ParseTopics: got %v, want %v", got, want)
	}
}

func TestParseTopics_CapsAtFive(t *testing.T) {
	got := ParseTopics("a, b, c, d, e, f, g")
	if len(got) != 5 {
		t.Errorf("expected 5 topics, got %d: %v", len(got), got)
	}
}

func TestParseTopics_AllEmpty(t *testing.T) {
	if got := ParseTopics(" , ,,  "); len(got) != 0 {
		t.Errorf("expected no topics, got %v", got)
	}
}

func TestProcess_RunsStagesInOrder(t *testing.T) {
	completer := &stageCompleter{}
	searcher := &recordingSearcher{results: []web_search.Result{
		{Title: "Photosynthesis basics", URL: "https://example.com/a", Content: "Plants convert light energy into chemical energy."},
	}}
	p := New(completer, searcher, nil, quietLogger())

	result := p.Process(context.Background(), "How does photosynthesis work?", nil)

	want := []string{"plan", "summarize", "search_query", "search_topics", "synthesize"}
	if !reflect.DeepEqual(completer.stages, want) {
		t.Errorf("stage order: got %v, want %v", completer.stages, want)
	}
	if result.ThinkingSummary != "SUMMARY: explain how plants convert light" {
		t.Errorf("unexpected thinking summary: %q", result.ThinkingSummary)
	}
	if result.FinalResponse == "" {
		t.Fatal("empty final response")
	}
	if !strings.Contains(result.FinalResponse, "Plants convert light energy") {
		t.Error("final response does not reference retrieved web content")
	}
	if !strings.Contains(result.FinalResponse, "How does photosynthesis work?") {
		t.Error("final response prompt lost the original user message")
	}
}

func TestProcess_SearchFanout(t *testing.T) {
	completer := &stageCompleter{}
	searcher := &recordingSearcher{}
	p := New(completer, searcher, nil, quietLogger())

	p.Process(context.Background(), "How does photosynthesis work?", nil)

	want := map[string]int{
		"how does photosynthesis work": 3,
		"chlorophyll":                  2,
		"light reactions":              2,
		"calvin cycle":                 2,
	}
	if !reflect.DeepEqual(searcher.queries, want) {
		t.Errorf("search fanout: got %v, want %v", searcher.queries, want)
	}
}

// degradedCompleter always returns the client fallback, simulating a
// dead upstream.
type degradedCompleter struct{}

func (degradedCompleter) Send(context.Context, string, []conversation.Turn) string {
	return completion.FallbackResponse
}

func TestProcess_DegradedStagesStillProduceOutput(t *testing.T) {
	p := New(degradedCompleter{}, &recordingSearcher{}, nil, quietLogger())
	result := p.Process(context.Background(), "anything", nil)
	if result.FinalResponse != completion.FallbackResponse {
		t.Errorf("expected fallback as final response, got %q", result.FinalResponse)
	}
	if result.ThinkingSummary != completion.FallbackResponse {
		t.Errorf("expected fallback as summary, got %q", result.ThinkingSummary)
	}
}

func TestFormatWebSummary(t *testing.T) {
	if got := formatWebSummary(nil); got != "" {
		t.Errorf("expected empty summary for no results, got %q", got)
	}

	var results []web_search.Result
	for i := 0; i < 7; i++ {
		results = append(results, web_search.Result{
			Title:   "Result",
			Content: strings.Repeat("x", 300),
		})
	}
	got := formatWebSummary(results)
	if n := strings.Count(got, "\n"); n != maxWebResults+1 {
		t.Errorf("expected %d lines, got %d", maxWebResults+1, n)
	}
	if strings.Contains(got, strings.Repeat("x", 201)) {
		t.Error("content snippet not truncated to 200 characters")
	}
}
