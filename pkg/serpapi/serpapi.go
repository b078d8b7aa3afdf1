// Package serpapi fetches Google Search and Google News results about a person.
package serpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/moxie99/ai-reputation/pkg/httpcache"
	"github.com/moxie99/ai-reputation/pkg/person"
)

const (
	sourceName = "serpapi"
	baseURL    = "https://serpapi.com/search"

	resultsPerQuery = 5
)

// Client handles SerpAPI requests.
type Client struct {
	httpClient *http.Client
	cache      httpcache.Cacher
	logger     *slog.Logger
	apiKey     string
	endpoint   string
}

// Option configures a Client.
type Option func(*config)

type config struct {
	cache    httpcache.Cacher
	logger   *slog.Logger
	apiKey   string
	endpoint string
}

// WithAPIKey sets the SerpAPI key.
func WithAPIKey(key string) Option {
	return func(c *config) { c.apiKey = key }
}

// WithHTTPCache sets the HTTP cache.
func WithHTTPCache(cache httpcache.Cacher) Option {
	return func(c *config) { c.cache = cache }
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// WithEndpoint overrides the SerpAPI endpoint (used in tests).
func WithEndpoint(endpoint string) Option {
	return func(c *config) { c.endpoint = endpoint }
}

// New creates a SerpAPI client.
func New(_ context.Context, opts ...Option) (*Client, error) {
	cfg := &config{logger: slog.Default(), endpoint: baseURL}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.apiKey == "" {
		return nil, fmt.Errorf("serpapi: %w", person.ErrNoCredentials)
	}

	return &Client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		cache:      cfg.cache,
		logger:     cfg.logger,
		apiKey:     cfg.apiKey,
		endpoint:   cfg.endpoint,
	}, nil
}

// SearchContent is the normalized payload of one Google Search hit.
type SearchContent struct {
	Title         string `json:"title"`
	Snippet       string `json:"snippet"`
	DisplayedLink string `json:"displayedLink"`
}

// NewsContent is the normalized payload of one Google News hit.
type NewsContent struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	Source  string `json:"source"`
	Date    string `json:"date"`
}

// Fetch retrieves web and news search results for the target. Several query
// variants are issued concurrently and merged; a variant that fails only
// costs its own results.
func (c *Client) Fetch(ctx context.Context, target person.Target) ([]person.RetrievalResult, error) {
	queries := buildQueries(target.Name)

	var (
		mu      sync.Mutex
		merged  []person.RetrievalResult
		wg      sync.WaitGroup
		failed  int
		lastErr error
	)

	for _, q := range queries {
		wg.Add(1)
		go func(query string) {
			defer wg.Done()
			results, err := c.search(ctx, query)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				c.logger.WarnContext(ctx, "serpapi query failed", "query", query, "error", err)
				failed++
				lastErr = err
				return
			}
			merged = append(merged, results...)
		}(q)
	}
	wg.Wait()

	if failed == len(queries) && lastErr != nil {
		return nil, fmt.Errorf("all %d serpapi queries failed: %w", len(queries), lastErr)
	}
	return merged, nil
}

// buildQueries returns the query variants for a person's name.
func buildQueries(name string) []string {
	base := fmt.Sprintf("%q", name)
	return []string{
		base,
		base + " professional",
		base + " controversy",
		base + " achievement",
	}
}

func (c *Client) search(ctx context.Context, query string) ([]person.RetrievalResult, error) {
	params := url.Values{}
	params.Set("engine", "google")
	params.Set("q", query)
	params.Set("num", fmt.Sprint(resultsPerQuery))
	params.Set("hl", "en")
	params.Set("gl", "us")
	params.Set("api_key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+params.Encode(), http.NoBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	body, err := httpcache.FetchURL(ctx, c.cache, c.httpClient, req, c.logger)
	if err != nil {
		return nil, err
	}

	return parseSearchResponse(body)
}

//nolint:govet // fieldalignment: mirrors the SerpAPI response layout
type searchResponse struct {
	OrganicResults []struct {
		Title         string `json:"title"`
		Snippet       string `json:"snippet"`
		Link          string `json:"link"`
		DisplayedLink string `json:"displayed_link"`
	} `json:"organic_results"`
	NewsResults []struct {
		Title   string `json:"title"`
		Snippet string `json:"snippet"`
		Link    string `json:"link"`
		Source  string `json:"source"`
		Date    string `json:"date"`
	} `json:"news_results"`
}

func parseSearchResponse(data []byte) ([]person.RetrievalResult, error) {
	var resp searchResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("decode serpapi response: %w", err)
	}

	var results []person.RetrievalResult
	for _, r := range resp.OrganicResults {
		results = append(results, person.RetrievalResult{
			Platform: person.PlatformGoogleSearch,
			Type:     person.TypeArticle,
			Content: SearchContent{
				Title:         r.Title,
				Snippet:       r.Snippet,
				DisplayedLink: r.DisplayedLink,
			},
			URL:       r.Link,
			Timestamp: person.Now(),
			Source:    sourceName,
		})
	}
	for _, r := range resp.NewsResults {
		results = append(results, person.RetrievalResult{
			Platform: person.PlatformGoogleNews,
			Type:     person.TypeArticle,
			Content: NewsContent{
				Title:   r.Title,
				Snippet: r.Snippet,
				Source:  r.Source,
				Date:    r.Date,
			},
			URL:       r.Link,
			Timestamp: person.NormalizeTimestamp(r.Date),
			Source:    sourceName,
		})
	}
	return results, nil
}
