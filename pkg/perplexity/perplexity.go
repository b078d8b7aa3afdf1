// Package perplexity queries the Perplexity online-search API for
// public information about a person.
package perplexity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/moxie99/ai-reputation/pkg/person"
)

const (
	sourceName = "perplexity_api"
	baseURL    = "https://api.perplexity.ai"

	defaultModel = "llama-3.1-sonar-small-128k-online"
)

// Client handles Perplexity requests.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	apiKey     string
	endpoint   string
	model      string
}

// Option configures a Client.
type Option func(*config)

type config struct {
	logger   *slog.Logger
	apiKey   string
	endpoint string
	model    string
}

// WithAPIKey sets the Perplexity API key.
func WithAPIKey(key string) Option {
	return func(c *config) { c.apiKey = key }
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// WithEndpoint overrides the API endpoint (used in tests).
func WithEndpoint(endpoint string) Option {
	return func(c *config) { c.endpoint = endpoint }
}

// WithModel overrides the search model.
func WithModel(model string) Option {
	return func(c *config) { c.model = model }
}

// New creates a Perplexity client.
func New(_ context.Context, opts ...Option) (*Client, error) {
	cfg := &config{logger: slog.Default(), endpoint: baseURL, model: defaultModel}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.apiKey == "" {
		return nil, fmt.Errorf("perplexity: %w", person.ErrNoCredentials)
	}

	return &Client{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		logger:     cfg.logger,
		apiKey:     cfg.apiKey,
		endpoint:   cfg.endpoint,
		model:      cfg.model,
	}, nil
}

// SearchContent is the normalized payload of a Perplexity reputation search.
type SearchContent struct {
	Text      string   `json:"text"`
	Citations []string `json:"citations"`
}

// Fetch runs a single reputation search for the target and normalizes the
// answer into one article record.
func (c *Client) Fetch(ctx context.Context, target person.Target) ([]person.RetrievalResult, error) {
	c.logger.InfoContext(ctx, "searching perplexity", "name", target.Name)

	content, citations, err := c.search(ctx, reputationQuery(target))
	if err != nil {
		return nil, err
	}

	return []person.RetrievalResult{{
		Platform: person.PlatformPerplexity,
		Type:     person.TypeArticle,
		Content: SearchContent{
			Text:      content,
			Citations: citations,
		},
		URL:       "https://perplexity.ai",
		Timestamp: person.Now(),
		Source:    sourceName,
	}}, nil
}

// reputationQuery builds the search prompt for a target, folding any known
// handles into the query so the upstream model can disambiguate.
func reputationQuery(target person.Target) string {
	var handles []string
	for platform, handle := range target.Handles {
		if handle != "" {
			handles = append(handles, platform+": "+handle)
		}
	}
	sort.Strings(handles)

	var b strings.Builder
	fmt.Fprintf(&b, "Search for comprehensive public information about %q", target.Name)
	if len(handles) > 0 {
		fmt.Fprintf(&b, " (social handles: %s)", strings.Join(handles, ", "))
	}
	b.WriteString(`.

Please provide:
1. Professional background and career information
2. Public statements, interviews, or notable quotes
3. Social media presence and engagement patterns
4. Any controversies, legal issues, or negative incidents
5. Professional achievements and expertise areas
6. Community involvement and reputation

Focus on factual, verifiable information with proper source attribution.`)
	return b.String()
}

//nolint:govet // fieldalignment: mirrors the wire layout
type chatRequest struct {
	Model           string        `json:"model"`
	Messages        []chatMessage `json:"messages"`
	MaxTokens       int           `json:"max_tokens"`
	Temperature     float64       `json:"temperature"`
	ReturnCitations bool          `json:"return_citations"`
	ReturnImages    bool          `json:"return_images"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Citations []string `json:"citations"`
}

func (c *Client) search(ctx context.Context, query string) (content string, citations []string, err error) {
	reqBody := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{
				Role: "system",
				Content: "You are a helpful assistant that searches for and analyzes public information about people. " +
					"Focus on factual, verifiable information from reliable sources.",
			},
			{Role: "user", Content: query},
		},
		MaxTokens:       1000,
		Temperature:     0.2,
		ReturnCitations: true,
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", nil, err
	}
	defer func() { _ = resp.Body.Close() }() //nolint:errcheck // error ignored intentionally

	if resp.StatusCode != http.StatusOK {
		return "", nil, fmt.Errorf("perplexity HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", nil, err
	}

	return parseChatResponse(body)
}

func parseChatResponse(data []byte) (content string, citations []string, err error) {
	var resp chatResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", nil, fmt.Errorf("decode perplexity response: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", nil, fmt.Errorf("perplexity returned no choices")
	}
	return resp.Choices[0].Message.Content, resp.Citations, nil
}
