// Package analyze generates category summaries and report overviews from
// retrieved content using the Anthropic API.
package analyze

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/moxie99/ai-reputation/pkg/person"
)

const (
	defaultModel     = "claude-sonnet-4-20250514"
	defaultMaxTokens = 1500

	// Content handed to the model is truncated per record so a single
	// verbose record cannot crowd out the rest of the category.
	maxRecordChars = 2000
	maxRecords     = 40
)

// Analyzer produces category analyses and report summaries. It is the
// seam the report builder depends on; tests substitute a fake.
type Analyzer interface {
	AnalyzeCategory(ctx context.Context, key person.CategoryKey, sources []person.DataSource) (CategoryAnalysis, error)
	SummarizeReport(ctx context.Context, target person.Target, categories map[person.CategoryKey]person.AnalysisCategory) (string, error)
}

// CategoryAnalysis is the model's structured judgment of one category.
type CategoryAnalysis struct {
	Summary        string           `json:"summary"`
	Reasoning      string           `json:"reasoning"`
	FlaggedContent []flaggedContent `json:"flaggedContent"`
}

type flaggedContent struct {
	Content     string `json:"content"`
	Reason      string `json:"reason"`
	Severity    string `json:"severity"`
	SourceIndex int    `json:"sourceIndex"`
}

// Client implements Analyzer against the Anthropic API.
type Client struct {
	api       anthropic.Client
	logger    *slog.Logger
	model     string
	maxTokens int64
}

// Option configures a Client.
type Option func(*config)

type config struct {
	logger    *slog.Logger
	apiKey    string
	baseURL   string
	model     string
	maxTokens int64
}

// WithAPIKey sets the Anthropic API key.
func WithAPIKey(key string) Option {
	return func(c *config) { c.apiKey = key }
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// WithModel overrides the analysis model.
func WithModel(model string) Option {
	return func(c *config) { c.model = model }
}

// WithBaseURL overrides the API base URL (used in tests).
func WithBaseURL(baseURL string) Option {
	return func(c *config) { c.baseURL = baseURL }
}

// New creates an analysis client.
func New(_ context.Context, opts ...Option) (*Client, error) {
	cfg := &config{logger: slog.Default(), model: defaultModel, maxTokens: defaultMaxTokens}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.apiKey == "" {
		return nil, fmt.Errorf("analyze: %w", person.ErrNoCredentials)
	}

	reqOpts := []option.RequestOption{option.WithAPIKey(cfg.apiKey)}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}

	return &Client{
		api:       anthropic.NewClient(reqOpts...),
		logger:    cfg.logger,
		model:     cfg.model,
		maxTokens: cfg.maxTokens,
	}, nil
}

const analysisSystem = "You are a careful reputation analyst. You assess publicly available " +
	"content about a person and report only what the content supports. You respond with " +
	"strict JSON and no surrounding prose."

// AnalyzeCategory asks the model to assess the sources assigned to one
// category and returns its structured judgment.
func (c *Client) AnalyzeCategory(ctx context.Context, key person.CategoryKey, sources []person.DataSource) (CategoryAnalysis, error) {
	prompt := categoryPrompt(key, sources)

	text, err := c.complete(ctx, prompt)
	if err != nil {
		return CategoryAnalysis{}, err
	}

	analysis, err := parseAnalysis(text)
	if err != nil {
		c.logger.WarnContext(ctx, "analysis response was not valid JSON, using raw text",
			"category", string(key), "error", err)
		return CategoryAnalysis{Summary: strings.TrimSpace(text)}, nil
	}
	return analysis, nil
}

// SummarizeReport asks the model for a short overall summary across all
// category analyses.
func (c *Client) SummarizeReport(ctx context.Context, target person.Target, categories map[person.CategoryKey]person.AnalysisCategory) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Write a concise overall reputation summary (3-5 sentences) for %q "+
		"based on these category analyses. Be balanced and factual.\n\n", target.Name)
	for _, key := range person.CategoryKeys() {
		cat, ok := categories[key]
		if !ok || cat.Summary == "" {
			continue
		}
		fmt.Fprintf(&b, "%s: %s\n", cat.Name, cat.Summary)
	}

	text, err := c.complete(ctx, b.String())
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func (c *Client) complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.api.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: c.maxTokens,
		System:    []anthropic.TextBlockParam{{Text: analysisSystem}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
		Temperature: anthropic.Float(0.2),
	})
	if err != nil {
		return "", fmt.Errorf("anthropic request: %w", err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return "", fmt.Errorf("anthropic returned no text content")
	}
	return text.String(), nil
}

// categoryPrompt renders the numbered source list and the JSON contract
// for one category.
func categoryPrompt(key person.CategoryKey, sources []person.DataSource) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Analyze the following content for the %q reputation category.\n\n",
		person.CategoryName(key))
	b.WriteString(categoryFocus(key))
	b.WriteString("\n\nContent items:\n")

	limit := min(len(sources), maxRecords)
	for i, src := range sources[:limit] {
		content := src.Content
		if len(content) > maxRecordChars {
			content = content[:maxRecordChars] + "..."
		}
		fmt.Fprintf(&b, "[%d] platform=%s type=%s url=%s\n%s\n\n", i, src.Platform, src.Type, src.URL, content)
	}

	b.WriteString(`Respond with JSON only, in this exact shape:
{
  "summary": "2-4 sentence assessment",
  "reasoning": "how the content supports the assessment",
  "flaggedContent": [
    {"content": "excerpt", "reason": "why it was flagged", "severity": "low|medium|high", "sourceIndex": 0}
  ]
}
Use an empty flaggedContent array when nothing warrants a flag.`)
	return b.String()
}

func categoryFocus(key person.CategoryKey) string {
	switch key {
	case person.CategoryProfessionalConduct:
		return "Focus: workplace behavior, professional reputation, and how the person conducts themselves in professional settings."
	case person.CategoryPublicStatements:
		return "Focus: public statements, posts, and opinions, and whether they are measured, inflammatory, or controversial."
	case person.CategorySocialBehavior:
		return "Focus: interaction patterns with others online, tone, and community standing."
	case person.CategoryControversies:
		return "Focus: controversies, disputes, legal issues, or negative incidents, and their severity."
	case person.CategoryExpertise:
		return "Focus: demonstrated expertise, skills, notable work, and recognition by peers."
	case person.CategoryCredibility:
		return "Focus: overall credibility and consistency of the person's public presence across all sources."
	default:
		return "Focus: overall reputation signals in the content."
	}
}

// parseAnalysis tolerates code fences and leading prose around the JSON
// object.
func parseAnalysis(text string) (CategoryAnalysis, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return CategoryAnalysis{}, fmt.Errorf("no JSON object in response")
	}

	var analysis CategoryAnalysis
	if err := json.Unmarshal([]byte(text[start:end+1]), &analysis); err != nil {
		return CategoryAnalysis{}, fmt.Errorf("decode analysis: %w", err)
	}
	return analysis, nil
}

// Flags resolves the model's source indexes back to the records that were
// sent, dropping out-of-range references.
func (a CategoryAnalysis) Flags(sources []person.DataSource) []person.FlaggedContent {
	var flags []person.FlaggedContent
	for _, f := range a.FlaggedContent {
		flag := person.FlaggedContent{
			Content:  f.Content,
			Reason:   f.Reason,
			Severity: normalizeSeverity(f.Severity),
		}
		if f.SourceIndex >= 0 && f.SourceIndex < len(sources) {
			flag.Source = sources[f.SourceIndex]
		}
		flags = append(flags, flag)
	}
	return flags
}

func normalizeSeverity(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high":
		return "high"
	case "medium":
		return "medium"
	default:
		return "low"
	}
}
