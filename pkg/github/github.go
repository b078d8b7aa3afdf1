// Package github fetches GitHub profiles and public activity about a
// person via the GitHub REST API.
package github

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strings"
	"time"

	gh "github.com/google/go-github/v57/github"

	"github.com/moxie99/ai-reputation/pkg/person"
)

const (
	sourceName = "github_api"

	userSearchLimit = 5
	repoPageSize    = 30
	eventPageSize   = 30
	maxProjects     = 5
)

// Client handles GitHub API requests.
type Client struct {
	api    *gh.Client
	logger *slog.Logger
}

// Option configures a Client.
type Option func(*config)

type config struct {
	logger  *slog.Logger
	token   string
	baseURL string
}

// WithToken sets a GitHub API token. Unauthenticated requests work but
// are rate limited aggressively.
func WithToken(token string) Option {
	return func(c *config) { c.token = token }
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// WithBaseURL overrides the API base URL (used in tests).
func WithBaseURL(baseURL string) Option {
	return func(c *config) { c.baseURL = baseURL }
}

// New creates a GitHub client.
func New(_ context.Context, opts ...Option) (*Client, error) {
	cfg := &config{logger: slog.Default()}
	for _, opt := range opts {
		opt(cfg)
	}

	api := gh.NewClient(nil)
	if cfg.token != "" {
		api = api.WithAuthToken(cfg.token)
	}
	if cfg.baseURL != "" {
		base, err := url.Parse(strings.TrimSuffix(cfg.baseURL, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("parse github base URL: %w", err)
		}
		api.BaseURL = base
	}

	return &Client{api: api, logger: cfg.logger}, nil
}

// ProfileContent is the normalized payload of a GitHub user profile.
type ProfileContent struct {
	Login       string `json:"login"`
	Name        string `json:"name"`
	Bio         string `json:"bio"`
	AvatarURL   string `json:"avatarUrl"`
	Company     string `json:"company"`
	Location    string `json:"location"`
	Blog        string `json:"blog"`
	PublicRepos int    `json:"publicRepos"`
	Followers   int    `json:"followers"`
	CreatedAt   string `json:"createdAt"`
}

// ProjectSummary describes one notable repository.
type ProjectSummary struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Language    string `json:"language"`
	Stars       int    `json:"stars"`
}

// ActivityContent summarizes a user's public development activity.
type ActivityContent struct {
	Login         string           `json:"login"`
	Languages     []string         `json:"languages"`
	RecentPushes  int              `json:"recentPushes"`
	Collaboration int              `json:"collaboration"`
	Projects      []ProjectSummary `json:"projects"`
}

// Fetch searches GitHub for accounts matching the target's name and, when
// a GitHub handle is known, analyzes that account's public activity.
// Individual query failures cost only their own results.
func (c *Client) Fetch(ctx context.Context, target person.Target) ([]person.RetrievalResult, error) {
	var merged []person.RetrievalResult
	var errs []error

	users, err := c.searchUsers(ctx, target.Name)
	if err != nil {
		c.logger.WarnContext(ctx, "github user search failed", "name", target.Name, "error", err)
		errs = append(errs, err)
	} else {
		merged = append(merged, users...)
	}

	if handle := target.Handle(person.HandleGitHub); handle != "" {
		profile, err := c.fetchProfile(ctx, handle)
		if err != nil {
			c.logger.WarnContext(ctx, "github profile fetch failed", "handle", handle, "error", err)
			errs = append(errs, err)
		} else {
			merged = append(merged, profile)
		}

		activity, err := c.analyzeActivity(ctx, handle)
		if err != nil {
			c.logger.WarnContext(ctx, "github activity analysis failed", "handle", handle, "error", err)
			errs = append(errs, err)
		} else {
			merged = append(merged, activity)
		}
	}

	if len(merged) == 0 && len(errs) > 0 {
		return nil, fmt.Errorf("all github queries failed: %w", errs[0])
	}
	return merged, nil
}

func (c *Client) searchUsers(ctx context.Context, name string) ([]person.RetrievalResult, error) {
	query := fmt.Sprintf("%q in:name", name)
	opts := &gh.SearchOptions{ListOptions: gh.ListOptions{PerPage: userSearchLimit}}

	result, _, err := c.api.Search.Users(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}

	var results []person.RetrievalResult
	for _, u := range result.Users {
		// Search hits carry only the summary fields; fill in the rest
		// with a per-user lookup so the profile record is complete.
		full, _, err := c.api.Users.Get(ctx, u.GetLogin())
		if err != nil {
			c.logger.DebugContext(ctx, "github user lookup failed", "login", u.GetLogin(), "error", err)
			full = u
		}
		results = append(results, userToResult(full))
	}
	return results, nil
}

func (c *Client) fetchProfile(ctx context.Context, handle string) (person.RetrievalResult, error) {
	u, _, err := c.api.Users.Get(ctx, handle)
	if err != nil {
		return person.RetrievalResult{}, fmt.Errorf("get user %s: %w", handle, err)
	}
	return userToResult(u), nil
}

// analyzeActivity builds an activity summary from the account's
// repositories and recent public events.
func (c *Client) analyzeActivity(ctx context.Context, handle string) (person.RetrievalResult, error) {
	repoOpts := &gh.RepositoryListByUserOptions{
		Sort:        "pushed",
		ListOptions: gh.ListOptions{PerPage: repoPageSize},
	}
	repos, _, err := c.api.Repositories.ListByUser(ctx, handle, repoOpts)
	if err != nil {
		return person.RetrievalResult{}, fmt.Errorf("list repos for %s: %w", handle, err)
	}

	events, _, err := c.api.Activity.ListEventsPerformedByUser(ctx, handle, true,
		&gh.ListOptions{PerPage: eventPageSize})
	if err != nil {
		// Events are supplementary; a summary from repos alone is still useful.
		c.logger.DebugContext(ctx, "github events fetch failed", "handle", handle, "error", err)
	}

	content := summarizeActivity(handle, repos, events)

	return person.RetrievalResult{
		Platform:  person.PlatformGitHub,
		Type:      person.TypePost,
		Content:   content,
		URL:       "https://github.com/" + handle,
		Timestamp: person.Now(),
		Source:    sourceName,
	}, nil
}

func summarizeActivity(handle string, repos []*gh.Repository, events []*gh.Event) ActivityContent {
	langCounts := make(map[string]int)
	var projects []ProjectSummary
	for _, r := range repos {
		if lang := r.GetLanguage(); lang != "" {
			langCounts[lang]++
		}
		projects = append(projects, ProjectSummary{
			Name:        r.GetName(),
			Description: r.GetDescription(),
			Language:    r.GetLanguage(),
			Stars:       r.GetStargazersCount(),
		})
	}

	languages := make([]string, 0, len(langCounts))
	for lang := range langCounts {
		languages = append(languages, lang)
	}
	sort.Slice(languages, func(i, j int) bool {
		if langCounts[languages[i]] != langCounts[languages[j]] {
			return langCounts[languages[i]] > langCounts[languages[j]]
		}
		return languages[i] < languages[j]
	})

	sort.Slice(projects, func(i, j int) bool { return projects[i].Stars > projects[j].Stars })
	if len(projects) > maxProjects {
		projects = projects[:maxProjects]
	}

	var pushes, collaboration int
	for _, e := range events {
		switch e.GetType() {
		case "PushEvent":
			pushes++
		case "PullRequestEvent", "PullRequestReviewEvent", "IssuesEvent", "IssueCommentEvent":
			collaboration++
		}
	}

	return ActivityContent{
		Login:         handle,
		Languages:     languages,
		RecentPushes:  pushes,
		Collaboration: collaboration,
		Projects:      projects,
	}
}

func userToResult(u *gh.User) person.RetrievalResult {
	timestamp := person.Now()
	if created := u.GetCreatedAt(); !created.IsZero() {
		timestamp = created.UTC().Format(time.RFC3339)
	}

	return person.RetrievalResult{
		Platform: person.PlatformGitHub,
		Type:     person.TypeProfile,
		Content: ProfileContent{
			Login:       u.GetLogin(),
			Name:        u.GetName(),
			Bio:         u.GetBio(),
			AvatarURL:   u.GetAvatarURL(),
			Company:     u.GetCompany(),
			Location:    u.GetLocation(),
			Blog:        u.GetBlog(),
			PublicRepos: u.GetPublicRepos(),
			Followers:   u.GetFollowers(),
			CreatedAt:   timestamp,
		},
		URL:       "https://github.com/" + u.GetLogin(),
		Timestamp: timestamp,
		Source:    sourceName,
	}
}
