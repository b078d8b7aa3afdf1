package pipeline

import (
	"context"
	"log/slog"

	"github.com/moxie99/ai-reputation/pkg/analyze"
	"github.com/moxie99/ai-reputation/pkg/config"
	"github.com/moxie99/ai-reputation/pkg/github"
	"github.com/moxie99/ai-reputation/pkg/httpcache"
	"github.com/moxie99/ai-reputation/pkg/linkedin"
	"github.com/moxie99/ai-reputation/pkg/person"
	"github.com/moxie99/ai-reputation/pkg/perplexity"
	"github.com/moxie99/ai-reputation/pkg/photomatch"
	"github.com/moxie99/ai-reputation/pkg/reddit"
	"github.com/moxie99/ai-reputation/pkg/report"
	"github.com/moxie99/ai-reputation/pkg/retrieval"
	"github.com/moxie99/ai-reputation/pkg/serpapi"
	"github.com/moxie99/ai-reputation/pkg/store"
	"github.com/moxie99/ai-reputation/pkg/twitter"
	"github.com/moxie99/ai-reputation/pkg/vision"
	"github.com/moxie99/ai-reputation/pkg/youtube"
)

// BuildSources constructs one retrieval source per platform whose
// credentials are configured. Sources that cannot be constructed are
// logged and skipped; the pipeline runs with whatever remains.
func BuildSources(ctx context.Context, cfg *config.Config, cache httpcache.Cacher, logger *slog.Logger) []retrieval.Source {
	var sources []retrieval.Source

	add := func(name string, fetcher retrieval.Fetcher, err error) {
		if err != nil {
			logger.InfoContext(ctx, "source disabled", "platform", name, "reason", err)
			return
		}
		sources = append(sources, retrieval.Source{Name: name, Fetcher: fetcher})
	}

	px, err := perplexity.New(ctx, perplexity.WithAPIKey(cfg.PerplexityAPIKey), perplexity.WithLogger(logger))
	add(person.PlatformPerplexity, px, err)

	sa, err := serpapi.New(ctx, serpapi.WithAPIKey(cfg.SerpAPIKey), serpapi.WithHTTPCache(cache), serpapi.WithLogger(logger))
	add(person.PlatformGoogleSearch, sa, err)

	yt, err := youtube.New(ctx, youtube.WithAPIKey(cfg.YouTubeAPIKey), youtube.WithHTTPCache(cache), youtube.WithLogger(logger))
	add(person.PlatformYouTube, yt, err)

	rd, err := reddit.New(ctx, reddit.WithCredentials(cfg.RedditClientID, cfg.RedditClientSecret),
		reddit.WithHTTPCache(cache), reddit.WithLogger(logger))
	add(person.PlatformReddit, rd, err)

	tw, err := twitter.New(ctx, twitter.WithBearerToken(cfg.TwitterBearerToken),
		twitter.WithHTTPCache(cache), twitter.WithLogger(logger))
	add(person.PlatformTwitter, tw, err)

	gh, err := github.New(ctx, github.WithToken(cfg.GitHubToken), github.WithLogger(logger))
	add(person.PlatformGitHub, gh, err)

	li, err := linkedin.New(ctx, linkedin.WithHTTPCache(cache), linkedin.WithLogger(logger))
	add(person.PlatformLinkedIn, li, err)

	return sources
}

// FromConfig assembles the full pipeline. The returned store is nil when
// persistence is disabled; callers own closing it.
func FromConfig(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Pipeline, *store.Store, error) {
	cache, err := httpcache.New(cfg.CacheTTL)
	if err != nil {
		logger.WarnContext(ctx, "cache unavailable, fetching without cache", "error", err)
	}
	var cacher httpcache.Cacher
	if cache != nil {
		cacher = cache
	}

	sources := BuildSources(ctx, cfg, cacher, logger)

	var db *store.Store
	if cfg.StorePath != "" {
		db, err = store.Open(cfg.StorePath, logger)
		if err != nil {
			return nil, nil, err
		}
	}

	orchOpts := []retrieval.Option{
		retrieval.WithLogger(logger),
		retrieval.WithSourceTimeout(cfg.SourceTimeout),
	}
	if db != nil {
		orchOpts = append(orchOpts, retrieval.WithStore(db))
	}
	orchestrator := retrieval.New(sources, orchOpts...)

	var analyzer analyze.Analyzer
	if cfg.AnthropicAPIKey != "" {
		a, err := analyze.New(ctx, analyze.WithAPIKey(cfg.AnthropicAPIKey), analyze.WithLogger(logger))
		if err != nil {
			logger.WarnContext(ctx, "analysis disabled", "error", err)
		} else {
			analyzer = a
		}
	} else {
		logger.InfoContext(ctx, "analysis disabled, reports will carry fallback summaries")
	}

	builderOpts := []report.Option{report.WithLogger(logger)}
	if cfg.VisionAPIKey != "" {
		vc, err := vision.New(ctx, vision.WithAPIKey(cfg.VisionAPIKey), vision.WithLogger(logger))
		if err != nil {
			logger.WarnContext(ctx, "photo matching disabled", "error", err)
		} else {
			matcher := photomatch.New(vc, photomatch.WithHTTPCache(cacher), photomatch.WithLogger(logger))
			builderOpts = append(builderOpts, report.WithPhotoMatcher(matcher))
		}
	}
	builder := report.New(analyzer, builderOpts...)

	return New(orchestrator, builder, logger), db, nil
}
