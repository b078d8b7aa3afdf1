// Package reddit fetches Reddit account data, posts, and mentions about a
// person via the Reddit OAuth API.
package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/moxie99/ai-reputation/pkg/httpcache"
	"github.com/moxie99/ai-reputation/pkg/person"
)

const (
	sourceName = "reddit_api"

	tokenURL = "https://www.reddit.com/api/v1/access_token" //nolint:gosec // public OAuth endpoint, not a credential
	apiURL   = "https://oauth.reddit.com"

	listingLimit = 25
)

// Client handles Reddit API requests.
type Client struct {
	httpClient   *http.Client
	cache        httpcache.Cacher
	logger       *slog.Logger
	clientID     string
	clientSecret string
	tokenURL     string
	apiURL       string

	mu         sync.Mutex
	token      string
	tokenUntil time.Time
}

// Option configures a Client.
type Option func(*config)

type config struct {
	cache        httpcache.Cacher
	logger       *slog.Logger
	clientID     string
	clientSecret string
	tokenURL     string
	apiURL       string
}

// WithCredentials sets the Reddit app client ID and secret.
func WithCredentials(clientID, clientSecret string) Option {
	return func(c *config) {
		c.clientID = clientID
		c.clientSecret = clientSecret
	}
}

// WithHTTPCache sets the HTTP cache.
func WithHTTPCache(cache httpcache.Cacher) Option {
	return func(c *config) { c.cache = cache }
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// WithEndpoints overrides the token and API endpoints (used in tests).
func WithEndpoints(tokenEndpoint, apiEndpoint string) Option {
	return func(c *config) {
		c.tokenURL = tokenEndpoint
		c.apiURL = apiEndpoint
	}
}

// New creates a Reddit client.
func New(_ context.Context, opts ...Option) (*Client, error) {
	cfg := &config{logger: slog.Default(), tokenURL: tokenURL, apiURL: apiURL}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.clientID == "" || cfg.clientSecret == "" {
		return nil, fmt.Errorf("reddit: %w", person.ErrNoCredentials)
	}

	return &Client{
		httpClient:   &http.Client{Timeout: 15 * time.Second},
		cache:        cfg.cache,
		logger:       cfg.logger,
		clientID:     cfg.clientID,
		clientSecret: cfg.clientSecret,
		tokenURL:     cfg.tokenURL,
		apiURL:       cfg.apiURL,
	}, nil
}

// AccountContent is the normalized payload of a Reddit account profile.
type AccountContent struct {
	Username     string  `json:"username"`
	IconImg      string  `json:"iconImg"`
	LinkKarma    int     `json:"linkKarma"`
	CommentKarma int     `json:"commentKarma"`
	CreatedUTC   float64 `json:"createdUtc"`
	Verified     bool    `json:"verified"`
}

// PostContent is the normalized payload of a Reddit submission.
type PostContent struct {
	Title     string `json:"title"`
	SelfText  string `json:"selfText"`
	Subreddit string `json:"subreddit"`
	Author    string `json:"author"`
	Score     int    `json:"score"`
}

// CommentContent is the normalized payload of a Reddit comment.
type CommentContent struct {
	Body      string `json:"body"`
	Subreddit string `json:"subreddit"`
	Author    string `json:"author"`
	Score     int    `json:"score"`
}

// Fetch searches Reddit for mentions of the target's name and, when a
// Reddit handle is known, pulls the account profile plus its recent
// submissions and comments. Individual query failures cost only their
// own results.
func (c *Client) Fetch(ctx context.Context, target person.Target) ([]person.RetrievalResult, error) {
	var merged []person.RetrievalResult
	var errs []error

	mentions, err := c.searchMentions(ctx, target.Name)
	if err != nil {
		c.logger.WarnContext(ctx, "reddit mention search failed", "name", target.Name, "error", err)
		errs = append(errs, err)
	} else {
		merged = append(merged, mentions...)
	}

	if handle := target.Handle(person.HandleReddit); handle != "" {
		handle = strings.TrimPrefix(handle, "u/")

		profile, err := c.fetchAccount(ctx, handle)
		if err != nil {
			c.logger.WarnContext(ctx, "reddit account fetch failed", "handle", handle, "error", err)
			errs = append(errs, err)
		} else {
			merged = append(merged, profile)
		}

		posts, err := c.fetchListing(ctx, handle, "submitted")
		if err != nil {
			c.logger.WarnContext(ctx, "reddit submissions fetch failed", "handle", handle, "error", err)
			errs = append(errs, err)
		} else {
			merged = append(merged, posts...)
		}

		comments, err := c.fetchListing(ctx, handle, "comments")
		if err != nil {
			c.logger.WarnContext(ctx, "reddit comments fetch failed", "handle", handle, "error", err)
			errs = append(errs, err)
		} else {
			merged = append(merged, comments...)
		}
	}

	if len(merged) == 0 && len(errs) > 0 {
		return nil, fmt.Errorf("all reddit queries failed: %w", errs[0])
	}
	return merged, nil
}

// accessToken returns a cached app-only OAuth token, refreshing it when
// within a minute of expiry.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Now().Before(c.tokenUntil.Add(-time.Minute)) {
		return c.token, nil
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(c.clientID, c.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", httpcache.UserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }() //nolint:errcheck // error ignored intentionally

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("reddit token HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return "", err
	}

	var tok struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &tok); err != nil {
		return "", fmt.Errorf("decode reddit token: %w", err)
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("reddit token response had no access_token")
	}

	c.token = tok.AccessToken
	c.tokenUntil = time.Now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	return c.token, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	u := c.apiURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	return httpcache.FetchURL(ctx, c.cache, c.httpClient, req, c.logger)
}

func (c *Client) searchMentions(ctx context.Context, name string) ([]person.RetrievalResult, error) {
	params := url.Values{}
	params.Set("q", fmt.Sprintf("%q", name))
	params.Set("limit", fmt.Sprint(listingLimit))
	params.Set("sort", "relevance")
	params.Set("type", "link")

	body, err := c.get(ctx, "/search", params)
	if err != nil {
		return nil, err
	}
	return parseListing(body, person.TypePost)
}

func (c *Client) fetchAccount(ctx context.Context, handle string) (person.RetrievalResult, error) {
	body, err := c.get(ctx, "/user/"+url.PathEscape(handle)+"/about", nil)
	if err != nil {
		return person.RetrievalResult{}, err
	}
	return parseAccount(body)
}

func (c *Client) fetchListing(ctx context.Context, handle, kind string) ([]person.RetrievalResult, error) {
	params := url.Values{}
	params.Set("limit", fmt.Sprint(listingLimit))

	body, err := c.get(ctx, "/user/"+url.PathEscape(handle)+"/"+kind, params)
	if err != nil {
		return nil, err
	}

	recordType := person.TypePost
	if kind == "comments" {
		recordType = person.TypeComment
	}
	return parseListing(body, recordType)
}

//nolint:govet // fieldalignment: mirrors the API response layout
type listingResponse struct {
	Data struct {
		Children []struct {
			Data struct {
				Title      string  `json:"title"`
				SelfText   string  `json:"selftext"`
				Body       string  `json:"body"`
				Subreddit  string  `json:"subreddit"`
				Author     string  `json:"author"`
				Score      int     `json:"score"`
				Permalink  string  `json:"permalink"`
				CreatedUTC float64 `json:"created_utc"`
			} `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type aboutResponse struct {
	Data struct {
		Name         string  `json:"name"`
		IconImg      string  `json:"icon_img"`
		LinkKarma    int     `json:"link_karma"`
		CommentKarma int     `json:"comment_karma"`
		CreatedUTC   float64 `json:"created_utc"`
		Verified     bool    `json:"verified"`
	} `json:"data"`
}

func parseAccount(data []byte) (person.RetrievalResult, error) {
	var resp aboutResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return person.RetrievalResult{}, fmt.Errorf("decode reddit account: %w", err)
	}
	if resp.Data.Name == "" {
		return person.RetrievalResult{}, person.ErrNotFound
	}

	return person.RetrievalResult{
		Platform: person.PlatformReddit,
		Type:     person.TypeProfile,
		Content: AccountContent{
			Username:     resp.Data.Name,
			IconImg:      resp.Data.IconImg,
			LinkKarma:    resp.Data.LinkKarma,
			CommentKarma: resp.Data.CommentKarma,
			CreatedUTC:   resp.Data.CreatedUTC,
			Verified:     resp.Data.Verified,
		},
		URL:       "https://reddit.com/user/" + resp.Data.Name,
		Timestamp: epochToRFC3339(resp.Data.CreatedUTC),
		Source:    sourceName,
	}, nil
}

func parseListing(data []byte, recordType person.RecordType) ([]person.RetrievalResult, error) {
	var resp listingResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("decode reddit listing: %w", err)
	}

	var results []person.RetrievalResult
	for _, child := range resp.Data.Children {
		d := child.Data

		var content any
		switch recordType {
		case person.TypeComment:
			content = CommentContent{
				Body:      d.Body,
				Subreddit: d.Subreddit,
				Author:    d.Author,
				Score:     d.Score,
			}
		default:
			content = PostContent{
				Title:     d.Title,
				SelfText:  d.SelfText,
				Subreddit: d.Subreddit,
				Author:    d.Author,
				Score:     d.Score,
			}
		}

		results = append(results, person.RetrievalResult{
			Platform:  person.PlatformReddit,
			Type:      recordType,
			Content:   content,
			URL:       "https://reddit.com" + d.Permalink,
			Timestamp: epochToRFC3339(d.CreatedUTC),
			Source:    sourceName,
		})
	}
	return results, nil
}

// epochToRFC3339 converts a Unix epoch (Reddit's created_utc) to RFC3339 UTC.
// A zero epoch falls back to the current time.
func epochToRFC3339(epoch float64) string {
	if epoch == 0 {
		return person.Now()
	}
	return time.Unix(int64(epoch), 0).UTC().Format(time.RFC3339)
}
