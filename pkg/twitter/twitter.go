// Package twitter fetches Twitter profiles, tweets, and mentions about a
// person via the Twitter API v2.
package twitter

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
	sourceName = "twitter_api"
	baseURL    = "https://api.twitter.com"

	maxTweets = 25
	maxUsers  = 10
)

// Client handles Twitter API requests.
type Client struct {
	httpClient  *http.Client
	cache       httpcache.Cacher
	logger      *slog.Logger
	bearerToken string
	endpoint    string
}

// Option configures a Client.
type Option func(*config)

type config struct {
	cache       httpcache.Cacher
	logger      *slog.Logger
	bearerToken string
	endpoint    string
}

// WithBearerToken sets the API v2 bearer token.
func WithBearerToken(token string) Option {
	return func(c *config) { c.bearerToken = token }
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

// New creates a Twitter client.
func New(_ context.Context, opts ...Option) (*Client, error) {
	cfg := &config{logger: slog.Default(), endpoint: baseURL}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.bearerToken == "" {
		return nil, fmt.Errorf("twitter: %w", person.ErrNoCredentials)
	}

	return &Client{
		httpClient:  &http.Client{Timeout: 15 * time.Second},
		cache:       cfg.cache,
		logger:      cfg.logger,
		bearerToken: cfg.bearerToken,
		endpoint:    cfg.endpoint,
	}, nil
}

// ProfileContent is the normalized payload of a Twitter user profile.
type ProfileContent struct {
	Username        string `json:"username"`
	Name            string `json:"name"`
	Description     string `json:"description"`
	ProfileImageURL string `json:"profileImageUrl"`
	Verified        bool   `json:"verified"`
	FollowersCount  int    `json:"followersCount"`
	TweetCount      int    `json:"tweetCount"`
	CreatedAt       string `json:"createdAt"`
}

// TweetContent is the normalized payload of a tweet.
type TweetContent struct {
	Text         string `json:"text"`
	AuthorID     string `json:"authorId"`
	LikeCount    int    `json:"likeCount"`
	RetweetCount int    `json:"retweetCount"`
}

const userFields = "description,profile_image_url,public_metrics,created_at,verified"

// Fetch searches for accounts matching the target's name, recent tweets
// mentioning the name, and (when a Twitter handle is known) the handle's
// profile plus its recent timeline. Individual query failures cost only
// their own results.
func (c *Client) Fetch(ctx context.Context, target person.Target) ([]person.RetrievalResult, error) {
	var merged []person.RetrievalResult
	var errs []error

	users, err := c.searchUsers(ctx, target.Name)
	if err != nil {
		c.logger.WarnContext(ctx, "twitter user search failed", "name", target.Name, "error", err)
		errs = append(errs, err)
	} else {
		merged = append(merged, users...)
	}

	mentions, err := c.searchMentions(ctx, target.Name)
	if err != nil {
		c.logger.WarnContext(ctx, "twitter mention search failed", "name", target.Name, "error", err)
		errs = append(errs, err)
	} else {
		merged = append(merged, mentions...)
	}

	if handle := target.Handle(person.HandleTwitter); handle != "" {
		handle = strings.TrimPrefix(handle, "@")

		profile, userID, err := c.lookupUser(ctx, handle)
		if err != nil {
			c.logger.WarnContext(ctx, "twitter handle lookup failed", "handle", handle, "error", err)
			errs = append(errs, err)
		} else {
			merged = append(merged, profile)

			timeline, err := c.fetchTimeline(ctx, userID, handle)
			if err != nil {
				c.logger.WarnContext(ctx, "twitter timeline fetch failed", "handle", handle, "error", err)
				errs = append(errs, err)
			} else {
				merged = append(merged, timeline...)
			}
		}
	}

	if len(merged) == 0 && len(errs) > 0 {
		return nil, fmt.Errorf("all twitter queries failed: %w", errs[0])
	}
	return merged, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+path+"?"+params.Encode(), http.NoBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.bearerToken)
	req.Header.Set("Accept", "application/json")

	return httpcache.FetchURL(ctx, c.cache, c.httpClient, req, c.logger)
}

type userObject struct {
	ID              string `json:"id"`
	Username        string `json:"username"`
	Name            string `json:"name"`
	Description     string `json:"description"`
	ProfileImageURL string `json:"profile_image_url"`
	Verified        bool   `json:"verified"`
	CreatedAt       string `json:"created_at"`
	PublicMetrics   struct {
		FollowersCount int `json:"followers_count"`
		TweetCount     int `json:"tweet_count"`
	} `json:"public_metrics"`
}

type tweetObject struct {
	ID            string `json:"id"`
	Text          string `json:"text"`
	AuthorID      string `json:"author_id"`
	CreatedAt     string `json:"created_at"`
	PublicMetrics struct {
		LikeCount    int `json:"like_count"`
		RetweetCount int `json:"retweet_count"`
	} `json:"public_metrics"`
}

func (c *Client) searchUsers(ctx context.Context, name string) ([]person.RetrievalResult, error) {
	params := url.Values{}
	params.Set("query", name)
	params.Set("max_results", fmt.Sprint(maxUsers))
	params.Set("user.fields", userFields)

	body, err := c.get(ctx, "/2/users/search", params)
	if err != nil {
		return nil, err
	}
	return parseUserSearch(body, name)
}

func (c *Client) searchMentions(ctx context.Context, name string) ([]person.RetrievalResult, error) {
	params := url.Values{}
	params.Set("query", fmt.Sprintf("%q -is:retweet", name))
	params.Set("max_results", fmt.Sprint(maxTweets))
	params.Set("tweet.fields", "created_at,author_id,public_metrics")

	body, err := c.get(ctx, "/2/tweets/search/recent", params)
	if err != nil {
		return nil, err
	}
	return parseTweets(body)
}

func (c *Client) lookupUser(ctx context.Context, handle string) (person.RetrievalResult, string, error) {
	params := url.Values{}
	params.Set("user.fields", userFields)

	body, err := c.get(ctx, "/2/users/by/username/"+url.PathEscape(handle), params)
	if err != nil {
		return person.RetrievalResult{}, "", err
	}

	var resp struct {
		Data userObject `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return person.RetrievalResult{}, "", fmt.Errorf("decode twitter user: %w", err)
	}
	if resp.Data.ID == "" {
		return person.RetrievalResult{}, "", person.ErrNotFound
	}
	return userToResult(resp.Data), resp.Data.ID, nil
}

func (c *Client) fetchTimeline(ctx context.Context, userID, _ string) ([]person.RetrievalResult, error) {
	params := url.Values{}
	params.Set("max_results", fmt.Sprint(maxTweets))
	params.Set("tweet.fields", "created_at,author_id,public_metrics")
	params.Set("exclude", "retweets")

	body, err := c.get(ctx, "/2/users/"+url.PathEscape(userID)+"/tweets", params)
	if err != nil {
		return nil, err
	}
	return parseTweets(body)
}

// parseUserSearch keeps only accounts whose display name contains the
// target's name. Name search matches loosely upstream and returns many
// unrelated accounts otherwise.
func parseUserSearch(data []byte, name string) ([]person.RetrievalResult, error) {
	var resp struct {
		Data []userObject `json:"data"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("decode twitter user search: %w", err)
	}

	var results []person.RetrievalResult
	for _, u := range resp.Data {
		if !strings.Contains(strings.ToLower(u.Name), strings.ToLower(name)) {
			continue
		}
		results = append(results, userToResult(u))
	}
	return results, nil
}

func parseTweets(data []byte) ([]person.RetrievalResult, error) {
	var resp struct {
		Data []tweetObject `json:"data"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("decode twitter tweets: %w", err)
	}

	var results []person.RetrievalResult
	for _, t := range resp.Data {
		results = append(results, person.RetrievalResult{
			Platform: person.PlatformTwitter,
			Type:     person.TypePost,
			Content: TweetContent{
				Text:         t.Text,
				AuthorID:     t.AuthorID,
				LikeCount:    t.PublicMetrics.LikeCount,
				RetweetCount: t.PublicMetrics.RetweetCount,
			},
			URL:       "https://twitter.com/i/web/status/" + t.ID,
			Timestamp: person.NormalizeTimestamp(t.CreatedAt),
			Source:    sourceName,
		})
	}
	return results, nil
}

func userToResult(u userObject) person.RetrievalResult {
	return person.RetrievalResult{
		Platform: person.PlatformTwitter,
		Type:     person.TypeProfile,
		Content: ProfileContent{
			Username:        u.Username,
			Name:            u.Name,
			Description:     u.Description,
			ProfileImageURL: u.ProfileImageURL,
			Verified:        u.Verified,
			FollowersCount:  u.PublicMetrics.FollowersCount,
			TweetCount:      u.PublicMetrics.TweetCount,
			CreatedAt:       u.CreatedAt,
		},
		URL:       "https://twitter.com/" + u.Username,
		Timestamp: person.NormalizeTimestamp(u.CreatedAt),
		Source:    sourceName,
	}
}
