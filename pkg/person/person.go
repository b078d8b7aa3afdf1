// Package person defines the common types for reputation data retrieval.
package person

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Common errors returned by adapter packages.
var (
	ErrAuthRequired  = errors.New("authentication required")
	ErrNoCredentials = errors.New("no credentials available")
	ErrNotFound      = errors.New("not found")
	ErrRateLimited   = errors.New("rate limited")
)

// Platform names produced by the bundled adapters. The set is open ended:
// new adapters may introduce new names, and the categorizer simply ignores
// platforms it has no rule for (beyond the credibility catch-all).
const (
	PlatformPerplexity   = "Perplexity"
	PlatformGoogleSearch = "Google Search"
	PlatformGoogleNews   = "Google News"
	PlatformYouTube      = "YouTube"
	PlatformReddit       = "Reddit"
	PlatformTwitter      = "Twitter"
	PlatformLinkedIn     = "LinkedIn"
	PlatformGitHub       = "GitHub"
)

// RecordType classifies a retrieved record.
type RecordType string

// The fixed record types.
const (
	TypeProfile RecordType = "profile"
	TypePost    RecordType = "post"
	TypeComment RecordType = "comment"
	TypeArticle RecordType = "article"
	TypeVideo   RecordType = "video"
)

// Target identifies the person a report is generated for.
// Immutable once handed to the pipeline.
type Target struct {
	Name    string            `json:"name" binding:"required"`
	Email   string            `json:"email,omitempty"`
	Handles map[string]string `json:"socialHandles,omitempty"` // keyed by handle name: "twitter", "reddit", ...
	Photo   []byte            `json:"photo,omitempty"`         // optional reference photo
}

// Handle keys accepted in Target.Handles.
const (
	HandleLinkedIn  = "linkedin"
	HandleReddit    = "reddit"
	HandleTwitter   = "twitter"
	HandleYouTube   = "youtube"
	HandleGitHub    = "github"
	HandleInstagram = "instagram"
)

// Handle returns the handle for the given key, or "" when absent.
func (t Target) Handle(key string) string {
	if t.Handles == nil {
		return ""
	}
	return t.Handles[key]
}

// RetrievalResult is the canonical record every adapter normalizes into.
// Content is opaque to everything downstream of the adapter: the
// categorizer and assembler only ever see its string projection.
//
//nolint:govet // fieldalignment: intentional layout for readability
type RetrievalResult struct {
	Platform   string     `json:"platform"`
	Type       RecordType `json:"type"`
	Content    any        `json:"content"`
	URL        string     `json:"url"`
	Timestamp  string     `json:"timestamp"` // RFC 3339; never empty after normalization
	Source     string     `json:"source"`    // producing adapter, for provenance
	Confidence float64    `json:"confidence,omitempty"`
}

// Now returns the current UTC time in the record timestamp format.
func Now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// NormalizeTimestamp returns ts, or the current time when the platform
// supplied none. Records must never carry an empty timestamp.
func NormalizeTimestamp(ts string) string {
	if ts == "" {
		return Now()
	}
	return ts
}

// DataSource is the display projection of a RetrievalResult. Content is
// coerced to a string; the structured form never travels past this point.
type DataSource struct {
	Platform  string     `json:"platform"`
	URL       string     `json:"url"`
	Content   string     `json:"content"`
	Timestamp string     `json:"timestamp"`
	Type      RecordType `json:"type"`
}

// ToDataSource projects a RetrievalResult for display. Non-string content
// is serialized to JSON; serialization failures degrade to fmt formatting
// rather than dropping the record.
func ToDataSource(r RetrievalResult) DataSource {
	return DataSource{
		Platform:  r.Platform,
		URL:       r.URL,
		Content:   ContentString(r.Content),
		Timestamp: r.Timestamp,
		Type:      r.Type,
	}
}

// ContentString coerces an opaque content payload to a string.
func ContentString(content any) string {
	switch v := content.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(b)
	}
}

// FlaggedContent is an excerpt the summarizer marked as noteworthy.
// The pipeline never flags content itself; it only carries these through.
type FlaggedContent struct {
	Content  string     `json:"content"`
	Reason   string     `json:"reason"`
	Severity string     `json:"severity"` // low, medium, high
	Source   DataSource `json:"source"`
}

// CategoryKey names one of the six fixed analysis categories.
type CategoryKey string

// The six analysis categories. Every merged record belongs to at least
// CategoryCredibility.
const (
	CategoryProfessionalConduct CategoryKey = "professionalConduct"
	CategoryPublicStatements    CategoryKey = "publicStatements"
	CategorySocialBehavior      CategoryKey = "socialBehavior"
	CategoryControversies       CategoryKey = "controversies"
	CategoryExpertise           CategoryKey = "expertise"
	CategoryCredibility         CategoryKey = "credibility"
)

// CategoryKeys returns the category keys in report order.
func CategoryKeys() []CategoryKey {
	return []CategoryKey{
		CategoryProfessionalConduct,
		CategoryPublicStatements,
		CategorySocialBehavior,
		CategoryControversies,
		CategoryExpertise,
		CategoryCredibility,
	}
}

// CategoryName returns the display name for a category key.
func CategoryName(key CategoryKey) string {
	switch key {
	case CategoryProfessionalConduct:
		return "Professional Conduct"
	case CategoryPublicStatements:
		return "Public Statements"
	case CategorySocialBehavior:
		return "Social Behavior"
	case CategoryControversies:
		return "Controversies"
	case CategoryExpertise:
		return "Expertise & Credibility"
	case CategoryCredibility:
		return "Overall Credibility"
	default:
		return string(key)
	}
}

// AnalysisCategory holds one reputation dimension of the final report.
type AnalysisCategory struct {
	Name           string           `json:"name"`
	Summary        string           `json:"summary"`
	Reasoning      string           `json:"reasoning"`
	FlaggedContent []FlaggedContent `json:"flaggedContent"`
	Sources        []DataSource     `json:"sources"`
}

// PhotoMatchResult is a ranked candidate from the photo-identity matcher.
// MatchConfidence is a detection-confidence proxy, not a biometric
// similarity; see the photomatch package documentation.
type PhotoMatchResult struct {
	Platform        string  `json:"platform"`
	ProfileURL      string  `json:"profileUrl"`
	ImageURL        string  `json:"imageUrl"`
	MatchConfidence float64 `json:"matchConfidence"`
	FaceData        any     `json:"faceData"`
}

// ReputationReport is the immutable result of one pipeline run.
type ReputationReport struct {
	ID              string                           `json:"id"`
	TargetPerson    Target                           `json:"targetPerson"`
	GeneratedAt     string                           `json:"generatedAt"`
	Categories      map[CategoryKey]AnalysisCategory `json:"categories"`
	OverallSummary  string                           `json:"overallSummary"`
	DataSourcesUsed []string                         `json:"dataSourcesUsed"`
	Limitations     []string                         `json:"limitations"`
	PhotoMatches    []PhotoMatchResult               `json:"photoMatches,omitempty"`
}

// Limitations returns the fixed disclaimers attached to every report.
func Limitations() []string {
	return []string{
		"Analysis limited to publicly available information",
		"Some social media accounts may be private or restricted",
		"Historical data beyond 24 months may be incomplete",
		"AI analysis may miss context or nuance in some content",
	}
}
