// Package pipeline runs the fixed five-stage reasoning sequence behind
// every chat request: plan, summarize, derive a search query, derive
// search topics, then retrieve web content and synthesize the answer.
//
// Stages hand off typed records but never fail: a degraded completion
// (the client's fallback text) is treated as valid stage output and fed
// forward, so a broken upstream still produces some answer.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/rango-productions/turbotalk/internal/completion"
	"github.com/rango-productions/turbotalk/internal/conversation"
	"github.com/rango-productions/turbotalk/internal/telemetry"
	"github.com/rango-productions/turbotalk/tools/web_search"
)

const (
	maxTopics       = 5
	promptResultCap = 3
	topicResultCap  = 2
	maxWebResults   = 5
	snippetLength   = 200
)

// Completer produces completion text for a prompt given conversation
// context. Implementations must degrade internally and never fail.
type Completer interface {
	Send(ctx context.Context, input string, history []conversation.Turn) string
}

// Searcher retrieves web results for a query.
type Searcher interface {
	Search(ctx context.Context, query string, maxResults int) []web_search.Result
}

// PlanResult is the stage-1 free-text thinking output.
type PlanResult struct {
	Thinking string
}

// Summary is the stage-2 condensation of the plan.
type Summary struct {
	Text string
}

// SearchQuery is the stage-3 optimized query.
type SearchQuery struct {
	Query string
}

// TopicList is the stage-4 parsed topic set, at most maxTopics entries.
type TopicList struct {
	Topics []string
}

// Result is what the pipeline hands back to the front door. Only the
// caller persists anything; intermediate stage artifacts are discarded.
type Result struct {
	ThinkingSummary string
	FinalResponse   string
}

// Pipeline composes the completion client and web retriever.
type Pipeline struct {
	completer Completer
	searcher  Searcher
	telemetry *telemetry.Telemetry
	logger    *log.Logger
}

func New(completer Completer, searcher Searcher, tele *telemetry.Telemetry, logger *log.Logger) *Pipeline {
	if logger == nil {
		logger = log.New(log.Writer(), "[PIPELINE] ", log.LstdFlags)
	}
	return &Pipeline{completer: completer, searcher: searcher, telemetry: tele, logger: logger}
}

// Process runs all five stages for one user message. history is
// borrowed from the conversation store and passed to every completion
// call as context; it is never mutated here.
func (p *Pipeline) Process(ctx context.Context, userMessage string, history []conversation.Turn) Result {
	start := time.Now()
	defer p.telemetry.ObservePipeline(start)

	plan := p.plan(ctx, userMessage, history)
	summary := p.summarize(ctx, plan, history)
	query := p.searchQuery(ctx, summary, history)
	topics := p.searchTopics(ctx, summary, history)
	final := p.synthesize(ctx, userMessage, summary, query, topics, history)

	return Result{ThinkingSummary: summary.Text, FinalResponse: final}
}

func (p *Pipeline) plan(ctx context.Context, userMessage string, history []conversation.Turn) PlanResult {
	text := p.complete(ctx, "plan", fmt.Sprintf(planPromptFormat, userMessage), history)
	return PlanResult{Thinking: text}
}

func (p *Pipeline) summarize(ctx context.Context, plan PlanResult, history []conversation.Turn) Summary {
	text := p.complete(ctx, "summarize", fmt.Sprintf(summaryPromptFormat, plan.Thinking), history)
	return Summary{Text: text}
}

func (p *Pipeline) searchQuery(ctx context.Context, summary Summary, history []conversation.Turn) SearchQuery {
	text := p.complete(ctx, "search_query", fmt.Sprintf(searchPromptFormat, summary.Text), history)
	return SearchQuery{Query: strings.TrimSpace(text)}
}

func (p *Pipeline) searchTopics(ctx context.Context, summary Summary, history []conversation.Turn) TopicList {
	text := p.complete(ctx, "search_topics", fmt.Sprintf(topicsPromptFormat, summary.Text), history)
	return TopicList{Topics: ParseTopics(text)}
}

// synthesize retrieves web content for the query and every topic, then
// asks for the final answer with the persona instructions attached.
func (p *Pipeline) synthesize(ctx context.Context, userMessage string, summary Summary, query SearchQuery, topics TopicList, history []conversation.Turn) string {
	results := p.retrieve(ctx, query, topics)
	prompt := fmt.Sprintf(synthesisPromptFormat, userMessage, summary.Text, formatWebSummary(results))
	return p.complete(ctx, "synthesize", prompt, history)
}

// retrieve fans the searches out concurrently; the flattened result
// order is deterministic (query results first, then topics in order)
// regardless of which fetch finishes first. Duplicate URLs across
// searches are kept as-is.
func (p *Pipeline) retrieve(ctx context.Context, query SearchQuery, topics TopicList) []web_search.Result {
	type task struct {
		query  string
		limit  int
		source string
	}
	var tasks []task
	if query.Query != "" {
		tasks = append(tasks, task{query.Query, promptResultCap, "query"})
	}
	for _, topic := range topics.Topics {
		if topic != "" {
			tasks = append(tasks, task{topic, topicResultCap, "topic"})
		}
	}

	gathered := make([][]web_search.Result, len(tasks))
	var wg sync.WaitGroup
	for i, t := range tasks {
		wg.Add(1)
		go func(i int, t task) {
			defer wg.Done()
			gathered[i] = p.searcher.Search(ctx, t.query, t.limit)
			p.telemetry.CountResults(t.source, len(gathered[i]))
		}(i, t)
	}
	wg.Wait()

	var all []web_search.Result
	for _, batch := range gathered {
		all = append(all, batch...)
	}
	return all
}

func (p *Pipeline) complete(ctx context.Context, stage, prompt string, history []conversation.Turn) string {
	text := p.completer.Send(ctx, prompt, history)
	if text == completion.FallbackResponse {
		p.logger.Printf("stage %s degraded to fallback", stage)
		p.telemetry.CountFallback(stage)
	}
	return text
}

// ParseTopics splits a comma-separated topic line, trims each entry,
// drops empties and caps the list at maxTopics, preserving order.
func ParseTopics(raw string) []string {
	var topics []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		topics = append(topics, part)
		if len(topics) == maxTopics {
			break
		}
	}
	return topics
}
