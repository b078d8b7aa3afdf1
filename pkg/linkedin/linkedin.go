// Package linkedin fetches public LinkedIn profile data for a person.
//
// LinkedIn has no public read API, so this adapter parses the public
// profile page's metadata. Only targets with a known LinkedIn handle are
// looked up; name search is not attempted.
package linkedin

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/moxie99/ai-reputation/pkg/httpcache"
	"github.com/moxie99/ai-reputation/pkg/person"
)

const (
	sourceName = "linkedin_api"
	baseURL    = "https://www.linkedin.com"
)

// Client handles LinkedIn profile page requests.
type Client struct {
	httpClient *http.Client
	cache      httpcache.Cacher
	logger     *slog.Logger
	endpoint   string
}

// Option configures a Client.
type Option func(*config)

type config struct {
	cache    httpcache.Cacher
	logger   *slog.Logger
	endpoint string
}

// WithHTTPCache sets the HTTP cache.
func WithHTTPCache(cache httpcache.Cacher) Option {
	return func(c *config) { c.cache = cache }
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// WithEndpoint overrides the site endpoint (used in tests).
func WithEndpoint(endpoint string) Option {
	return func(c *config) { c.endpoint = endpoint }
}

// New creates a LinkedIn client.
func New(_ context.Context, opts ...Option) (*Client, error) {
	cfg := &config{logger: slog.Default(), endpoint: baseURL}
	for _, opt := range opts {
		opt(cfg)
	}

	return &Client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		cache:      cfg.cache,
		logger:     cfg.logger,
		endpoint:   cfg.endpoint,
	}, nil
}

// ProfileContent is the normalized payload of a public LinkedIn profile.
type ProfileContent struct {
	Name           string `json:"name"`
	Headline       string `json:"headline"`
	ProfilePicture string `json:"profilePicture"`
}

// Fetch retrieves the target's public LinkedIn profile when a handle is
// known. Without a handle it returns no results and no error.
func (c *Client) Fetch(ctx context.Context, target person.Target) ([]person.RetrievalResult, error) {
	handle := target.Handle(person.HandleLinkedIn)
	if handle == "" {
		c.logger.DebugContext(ctx, "no linkedin handle, skipping", "name", target.Name)
		return nil, nil
	}
	handle = normalizeHandle(handle)

	profileURL := c.endpoint + "/in/" + url.PathEscape(handle)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, profileURL, http.NoBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", httpcache.UserAgent)
	req.Header.Set("Accept", "text/html")

	body, err := httpcache.FetchURL(ctx, c.cache, c.httpClient, req, c.logger)
	if err != nil {
		return nil, fmt.Errorf("fetch linkedin profile: %w", err)
	}

	content, err := parseProfile(body)
	if err != nil {
		return nil, err
	}

	return []person.RetrievalResult{{
		Platform:  person.PlatformLinkedIn,
		Type:      person.TypeProfile,
		Content:   content,
		URL:       "https://www.linkedin.com/in/" + handle,
		Timestamp: person.Now(),
		Source:    sourceName,
	}}, nil
}

// normalizeHandle accepts a bare handle, an "in/handle" path, or a full
// profile URL and returns the bare handle.
func normalizeHandle(handle string) string {
	handle = strings.TrimSuffix(handle, "/")
	if idx := strings.Index(handle, "/in/"); idx >= 0 {
		handle = handle[idx+len("/in/"):]
	}
	handle = strings.TrimPrefix(handle, "in/")
	if idx := strings.IndexAny(handle, "?#"); idx >= 0 {
		handle = handle[:idx]
	}
	return handle
}

// parseProfile extracts profile fields from the public page's OpenGraph
// metadata. og:title carries "Name - Headline | LinkedIn".
func parseProfile(body []byte) (ProfileContent, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return ProfileContent{}, fmt.Errorf("parse linkedin page: %w", err)
	}

	meta := func(property string) string {
		val, _ := doc.Find(`meta[property="` + property + `"]`).Attr("content")
		return strings.TrimSpace(val)
	}

	title := meta("og:title")
	if title == "" {
		title = strings.TrimSpace(doc.Find("title").Text())
	}
	if title == "" {
		return ProfileContent{}, person.ErrNotFound
	}

	name, headline := splitTitle(title)
	if headline == "" {
		headline = meta("og:description")
	}

	return ProfileContent{
		Name:           name,
		Headline:       headline,
		ProfilePicture: meta("og:image"),
	}, nil
}

func splitTitle(title string) (name, headline string) {
	title = strings.TrimSuffix(title, "| LinkedIn")
	title = strings.TrimSpace(title)
	if idx := strings.Index(title, " - "); idx >= 0 {
		return strings.TrimSpace(title[:idx]), strings.TrimSpace(title[idx+3:])
	}
	return title, ""
}
