// Package completion wraps the upstream text-completion endpoint. All
// failures degrade to a fallback string so callers never see an error.
package completion

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/rango-productions/turbotalk/internal/conversation"
)

const (
	// FallbackResponse is returned once every retry is exhausted.
	FallbackResponse = "I'm having trouble reaching my knowledge service right now. Please try again in a moment."
	// EmptyResponse is returned when a 200 body carries no content fragments.
	EmptyResponse = "No response generated."
)

// UserAgents is the pool of realistic browser identities used for
// outbound requests.
var UserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// payload matches the wire format the completion endpoint expects.
type payload struct {
	AdditionalExtensionContext string    `json:"additional_extension_context"`
	AllowMagicButtons          bool      `json:"allow_magic_buttons"`
	IsVSCodeExtension          bool      `json:"is_vscode_extension"`
	MessageHistory             []message `json:"message_history"`
	RequestedModel             string    `json:"requested_model"`
	UserInput                  string    `json:"user_input"`
}

// Client talks to the remote completion endpoint with bounded retries.
type Client struct {
	apiURL     string
	model      string
	maxRetries int
	window     int
	backoff    time.Duration
	userAgent  string
	httpClient *http.Client
	logger     *log.Logger
}

// NewClient creates a completion client. window caps how many trailing
// history turns are replayed per request; backoff is the base delay for
// the exponential backoff applied on 401/403/429 responses.
func NewClient(apiURL, model string, maxRetries, window int, timeout, backoff time.Duration, logger *log.Logger) *Client {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	if window <= 0 {
		window = 10
	}
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	if backoff == 0 {
		backoff = time.Second
	}
	if logger == nil {
		logger = log.New(log.Writer(), "[COMPLETION] ", log.LstdFlags)
	}
	return &Client{
		apiURL:     apiURL,
		model:      model,
		maxRetries: maxRetries,
		window:     window,
		backoff:    backoff,
		userAgent:  UserAgents[rand.Intn(len(UserAgents))],
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Send submits the input together with the trailing window of history
// and returns the concatenated response text. It never returns an
// error: exhausted retries, transport failures and unexpected statuses
// all yield FallbackResponse.
func (c *Client) Send(ctx context.Context, input string, history []conversation.Turn) string {
	body, err := json.Marshal(c.buildPayload(input, history))
	if err != nil {
		c.logger.Printf("marshal payload: %v", err)
		return FallbackResponse
	}

	for attempt := 0; attempt < c.maxRetries; attempt++ {
		last := attempt == c.maxRetries-1

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(body))
		if err != nil {
			c.logger.Printf("build request: %v", err)
			return FallbackResponse
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("User-Agent", c.userAgent)
		req.Header.Set("Accept", "*/*")
		req.Header.Set("Accept-Encoding", "Identity")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			c.logger.Printf("attempt %d: request error: %v", attempt+1, err)
			if last {
				return FallbackResponse
			}
			continue
		}

		raw, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusOK:
			if readErr != nil {
				c.logger.Printf("attempt %d: read body: %v", attempt+1, readErr)
				if last {
					return FallbackResponse
				}
				continue
			}
			return ParseStream(raw)
		case resp.StatusCode == http.StatusUnauthorized,
			resp.StatusCode == http.StatusForbidden,
			resp.StatusCode == http.StatusTooManyRequests:
			c.logger.Printf("attempt %d: status %d", attempt+1, resp.StatusCode)
			if last {
				return FallbackResponse
			}
			select {
			case <-time.After(c.backoff << attempt):
			case <-ctx.Done():
				return FallbackResponse
			}
		default:
			c.logger.Printf("attempt %d: unexpected status %d", attempt+1, resp.StatusCode)
			if last {
				return FallbackResponse
			}
		}
	}
	return FallbackResponse
}

func (c *Client) buildPayload(input string, history []conversation.Turn) payload {
	if len(history) > c.window {
		history = history[len(history)-c.window:]
	}
	formatted := make([]message, 0, len(history))
	for _, turn := range history {
		formatted = append(formatted, message{Role: string(turn.Role), Content: turn.Content})
	}
	return payload{
		AllowMagicButtons: true,
		IsVSCodeExtension: true,
		MessageHistory:    formatted,
		RequestedModel:    c.model,
		UserInput:         input,
	}
}

// ParseStream extracts the content fragments from a streamed response
// body. Chunks are separated by blank lines and each carries a "data: "
// prefixed JSON object with zero or more choices[].delta.content
// fragments. Malformed chunks are skipped.
func ParseStream(raw []byte) string {
	var out strings.Builder
	for _, chunk := range strings.Split(string(raw), "\r\n\r\n") {
		chunk = strings.TrimSpace(chunk)
		data, ok := strings.CutPrefix(chunk, "data: ")
		if !ok {
			continue
		}
		var parsed struct {
			Choices []struct {
				Delta struct {
					Content string `json:"content"`
				} `json:"delta"`
			} `json:"choices"`
		}
		if err := json.Unmarshal([]byte(data), &parsed); err != nil {
			continue
		}
		for _, choice := range parsed.Choices {
			out.WriteString(choice.Delta.Content)
		}
	}
	if out.Len() == 0 {
		return EmptyResponse
	}
	return out.String()
}
