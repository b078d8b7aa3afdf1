// Package youtube fetches YouTube channel and video data about a person
// via the YouTube Data API v3.
package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/moxie99/ai-reputation/pkg/httpcache"
	"github.com/moxie99/ai-reputation/pkg/person"
)

const (
	sourceName = "youtube_api"
	baseURL    = "https://www.googleapis.com/youtube/v3"

	channelResults = 10
	videoResults   = 25
)

// Client handles YouTube Data API requests.
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

// WithAPIKey sets the YouTube Data API key.
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

// WithEndpoint overrides the API endpoint (used in tests).
func WithEndpoint(endpoint string) Option {
	return func(c *config) { c.endpoint = endpoint }
}

// New creates a YouTube client.
func New(_ context.Context, opts ...Option) (*Client, error) {
	cfg := &config{logger: slog.Default(), endpoint: baseURL}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.apiKey == "" {
		return nil, fmt.Errorf("youtube: %w", person.ErrNoCredentials)
	}

	return &Client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		cache:      cfg.cache,
		logger:     cfg.logger,
		apiKey:     cfg.apiKey,
		endpoint:   cfg.endpoint,
	}, nil
}

// Thumbnail is a single thumbnail variant.
type Thumbnail struct {
	URL string `json:"url"`
}

// Thumbnails holds the standard thumbnail variants.
type Thumbnails struct {
	Default Thumbnail `json:"default"`
	Medium  Thumbnail `json:"medium"`
	High    Thumbnail `json:"high"`
}

// BestURL returns the highest-resolution thumbnail URL available.
func (t Thumbnails) BestURL() string {
	switch {
	case t.High.URL != "":
		return t.High.URL
	case t.Medium.URL != "":
		return t.Medium.URL
	default:
		return t.Default.URL
	}
}

// ChannelContent is the normalized payload of a channel search hit.
type ChannelContent struct {
	ChannelID   string     `json:"channelId"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Thumbnails  Thumbnails `json:"thumbnails"`
	PublishedAt string     `json:"publishedAt"`
}

// VideoContent is the normalized payload of a video search hit.
type VideoContent struct {
	VideoID      string     `json:"videoId"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	PublishedAt  string     `json:"publishedAt"`
	Thumbnails   Thumbnails `json:"thumbnails"`
	ChannelID    string     `json:"channelId"`
	ChannelTitle string     `json:"channelTitle"`
}

// Fetch retrieves channels matching the target's name, videos mentioning
// the name, and (when a YouTube handle is known) channels for the handle.
// Individual query failures cost only their own results.
func (c *Client) Fetch(ctx context.Context, target person.Target) ([]person.RetrievalResult, error) {
	var merged []person.RetrievalResult
	var errs []error

	channels, err := c.searchChannels(ctx, target.Name)
	if err != nil {
		c.logger.WarnContext(ctx, "youtube channel search failed", "name", target.Name, "error", err)
		errs = append(errs, err)
	} else {
		merged = append(merged, channels...)
	}

	videos, err := c.searchVideos(ctx, fmt.Sprintf("%q", target.Name))
	if err != nil {
		c.logger.WarnContext(ctx, "youtube video search failed", "name", target.Name, "error", err)
		errs = append(errs, err)
	} else {
		merged = append(merged, videos...)
	}

	if handle := target.Handle(person.HandleYouTube); handle != "" {
		handle = strings.TrimPrefix(handle, "@")
		handleChannels, err := c.searchChannels(ctx, handle)
		if err != nil {
			c.logger.WarnContext(ctx, "youtube handle search failed", "handle", handle, "error", err)
			errs = append(errs, err)
		} else {
			merged = append(merged, handleChannels...)
		}
	}

	if len(merged) == 0 && len(errs) > 0 {
		return nil, fmt.Errorf("all youtube queries failed: %w", errs[0])
	}
	return merged, nil
}

func (c *Client) searchChannels(ctx context.Context, query string) ([]person.RetrievalResult, error) {
	body, err := c.searchList(ctx, query, "channel", channelResults)
	if err != nil {
		return nil, err
	}
	return parseChannelSearch(body)
}

func (c *Client) searchVideos(ctx context.Context, query string) ([]person.RetrievalResult, error) {
	body, err := c.searchList(ctx, query, "video", videoResults)
	if err != nil {
		return nil, err
	}
	return parseVideoSearch(body)
}

func (c *Client) searchList(ctx context.Context, query, kind string, maxResults int) ([]byte, error) {
	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("q", query)
	params.Set("type", kind)
	params.Set("maxResults", fmt.Sprint(maxResults))
	params.Set("key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"/search?"+params.Encode(), http.NoBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	return httpcache.FetchURL(ctx, c.cache, c.httpClient, req, c.logger)
}

//nolint:govet // fieldalignment: mirrors the API response layout
type searchListResponse struct {
	Items []struct {
		ID struct {
			ChannelID string `json:"channelId"`
			VideoID   string `json:"videoId"`
		} `json:"id"`
		Snippet struct {
			Title        string     `json:"title"`
			Description  string     `json:"description"`
			PublishedAt  string     `json:"publishedAt"`
			Thumbnails   Thumbnails `json:"thumbnails"`
			ChannelID    string     `json:"channelId"`
			ChannelTitle string     `json:"channelTitle"`
		} `json:"snippet"`
	} `json:"items"`
}

func parseChannelSearch(data []byte) ([]person.RetrievalResult, error) {
	var resp searchListResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("decode youtube response: %w", err)
	}

	var results []person.RetrievalResult
	for _, item := range resp.Items {
		if item.ID.ChannelID == "" {
			continue
		}
		results = append(results, person.RetrievalResult{
			Platform: person.PlatformYouTube,
			Type:     person.TypeProfile,
			Content: ChannelContent{
				ChannelID:   item.ID.ChannelID,
				Title:       item.Snippet.Title,
				Description: item.Snippet.Description,
				Thumbnails:  item.Snippet.Thumbnails,
				PublishedAt: item.Snippet.PublishedAt,
			},
			URL:       "https://youtube.com/channel/" + item.ID.ChannelID,
			Timestamp: person.Now(),
			Source:    sourceName,
		})
	}
	return results, nil
}

func parseVideoSearch(data []byte) ([]person.RetrievalResult, error) {
	var resp searchListResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("decode youtube response: %w", err)
	}

	var results []person.RetrievalResult
	for _, item := range resp.Items {
		if item.ID.VideoID == "" {
			continue
		}
		results = append(results, person.RetrievalResult{
			Platform: person.PlatformYouTube,
			Type:     person.TypeVideo,
			Content: VideoContent{
				VideoID:      item.ID.VideoID,
				Title:        item.Snippet.Title,
				Description:  item.Snippet.Description,
				PublishedAt:  item.Snippet.PublishedAt,
				Thumbnails:   item.Snippet.Thumbnails,
				ChannelID:    item.Snippet.ChannelID,
				ChannelTitle: item.Snippet.ChannelTitle,
			},
			URL:       "https://youtube.com/watch?v=" + item.ID.VideoID,
			Timestamp: person.NormalizeTimestamp(item.Snippet.PublishedAt),
			Source:    sourceName,
		})
	}
	return results, nil
}
