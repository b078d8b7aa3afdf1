// Package photomatch ranks profile photos from retrieved records against
// a target's reference photo.
//
// Confidence values come from face detection, not biometric matching: a
// candidate scores high when clear faces appear in both images. Matches
// are therefore approximate and reported as such.
package photomatch

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/moxie99/ai-reputation/pkg/github"
	"github.com/moxie99/ai-reputation/pkg/httpcache"
	"github.com/moxie99/ai-reputation/pkg/linkedin"
	"github.com/moxie99/ai-reputation/pkg/person"
	"github.com/moxie99/ai-reputation/pkg/reddit"
	"github.com/moxie99/ai-reputation/pkg/twitter"
	"github.com/moxie99/ai-reputation/pkg/vision"
	"github.com/moxie99/ai-reputation/pkg/youtube"
)

const (
	// minConfidence filters out candidates whose faces are too unclear
	// to be worth reporting.
	minConfidence = 0.6

	// maxMatches caps the ranked list.
	maxMatches = 10

	// redditDefaultAvatar is the stock avatar Reddit serves for accounts
	// without a custom image; it can never identify a person.
	redditDefaultAvatar = "https://www.redditstatic.com/avatars/avatar_default_02_A5A4A4.png"
)

// FaceComparer is the face-comparison seam; *vision.Client satisfies it.
type FaceComparer interface {
	DetectFaces(ctx context.Context, image []byte) ([]vision.FaceAnnotation, error)
	CompareFaces(ctx context.Context, image1, image2 []byte) (vision.Comparison, error)
}

// Matcher ranks candidate profile photos against a reference photo.
type Matcher struct {
	comparer   FaceComparer
	httpClient *http.Client
	cache      httpcache.Cacher
	logger     *slog.Logger
}

// Option configures a Matcher.
type Option func(*Matcher)

// WithHTTPCache sets the cache used for candidate image downloads.
func WithHTTPCache(cache httpcache.Cacher) Option {
	return func(m *Matcher) { m.cache = cache }
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Matcher) { m.logger = logger }
}

// New creates a Matcher.
func New(comparer FaceComparer, opts ...Option) *Matcher {
	m := &Matcher{
		comparer:   comparer,
		httpClient: &http.Client{Timeout: 20 * time.Second},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// imageURL extracts a candidate profile-image URL from a record, or ""
// when the record carries none.
func imageURL(r person.RetrievalResult) string {
	switch content := r.Content.(type) {
	case twitter.ProfileContent:
		return content.ProfileImageURL
	case github.ProfileContent:
		return content.AvatarURL
	case reddit.AccountContent:
		if content.IconImg == redditDefaultAvatar {
			return ""
		}
		return content.IconImg
	case linkedin.ProfileContent:
		return content.ProfilePicture
	case youtube.ChannelContent:
		return content.Thumbnails.BestURL()
	default:
		return ""
	}
}

// Match compares the target photo against every candidate profile image
// in the records and returns matches above the confidence floor, best
// first, capped at ten. A reference photo with no detectable face yields
// an empty list and no error.
func (m *Matcher) Match(ctx context.Context, photo []byte, results []person.RetrievalResult) ([]person.PhotoMatchResult, error) {
	if len(photo) == 0 {
		return nil, nil
	}

	faces, err := m.comparer.DetectFaces(ctx, photo)
	if err != nil {
		return nil, err
	}
	if len(faces) == 0 {
		m.logger.WarnContext(ctx, "no face in reference photo, skipping photo matching")
		return nil, nil
	}

	type candidate struct {
		record   person.RetrievalResult
		imageURL string
	}
	var candidates []candidate
	seen := make(map[string]bool)
	for _, r := range results {
		u := imageURL(r)
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		candidates = append(candidates, candidate{record: r, imageURL: u})
	}

	matches := make([]person.PhotoMatchResult, len(candidates))
	var wg sync.WaitGroup
	for i, cand := range candidates {
		wg.Add(1)
		go func(i int, cand candidate) {
			defer wg.Done()

			image, err := m.fetchImage(ctx, cand.imageURL)
			if err != nil {
				m.logger.DebugContext(ctx, "candidate image fetch failed", "url", cand.imageURL, "error", err)
				return
			}

			cmp, err := m.comparer.CompareFaces(ctx, photo, image)
			if err != nil {
				m.logger.DebugContext(ctx, "face comparison failed", "url", cand.imageURL, "error", err)
				return
			}
			if cmp.Confidence < minConfidence {
				return
			}

			matches[i] = person.PhotoMatchResult{
				Platform:        cand.record.Platform,
				ProfileURL:      cand.record.URL,
				ImageURL:        cand.imageURL,
				MatchConfidence: cmp.Confidence,
				FaceData:        cmp.Faces,
			}
		}(i, cand)
	}
	wg.Wait()

	var ranked []person.PhotoMatchResult
	for _, match := range matches {
		if match.ImageURL != "" {
			ranked = append(ranked, match)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].MatchConfidence > ranked[j].MatchConfidence
	})
	if len(ranked) > maxMatches {
		ranked = ranked[:maxMatches]
	}
	return ranked, nil
}

func (m *Matcher) fetchImage(ctx context.Context, imageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, http.NoBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", httpcache.UserAgent)

	return httpcache.FetchURL(ctx, m.cache, m.httpClient, req, m.logger)
}
