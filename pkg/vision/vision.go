// Package vision detects and compares faces using the Google Cloud
// Vision REST API.
package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/moxie99/ai-reputation/pkg/person"
)

const (
	baseURL = "https://vision.googleapis.com"

	maxFacesPerImage = 10

	// MatchThreshold is the confidence above which two images are
	// considered to show the same person.
	MatchThreshold = 0.7
)

// Client handles Vision API requests.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	apiKey     string
	endpoint   string
}

// Option configures a Client.
type Option func(*config)

type config struct {
	logger   *slog.Logger
	apiKey   string
	endpoint string
}

// WithAPIKey sets the Vision API key.
func WithAPIKey(key string) Option {
	return func(c *config) { c.apiKey = key }
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// WithEndpoint overrides the API endpoint (used in tests).
func WithEndpoint(endpoint string) Option {
	return func(c *config) { c.endpoint = endpoint }
}

// New creates a Vision client.
func New(_ context.Context, opts ...Option) (*Client, error) {
	cfg := &config{logger: slog.Default(), endpoint: baseURL}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.apiKey == "" {
		return nil, fmt.Errorf("vision: %w", person.ErrNoCredentials)
	}

	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     cfg.logger,
		apiKey:     cfg.apiKey,
		endpoint:   cfg.endpoint,
	}, nil
}

// FaceAnnotation is one detected face.
type FaceAnnotation struct {
	DetectionConfidence float64 `json:"detectionConfidence"`
	JoyLikelihood       string  `json:"joyLikelihood"`
	SorrowLikelihood    string  `json:"sorrowLikelihood"`
	AngerLikelihood     string  `json:"angerLikelihood"`
	SurpriseLikelihood  string  `json:"surpriseLikelihood"`
}

// Comparison is the outcome of comparing two images.
type Comparison struct {
	Confidence float64          `json:"confidence"`
	Match      bool             `json:"match"`
	Faces      []FaceAnnotation `json:"faces"`
}

// DetectFaces returns the faces found in an image.
func (c *Client) DetectFaces(ctx context.Context, image []byte) ([]FaceAnnotation, error) {
	if len(image) == 0 {
		return nil, fmt.Errorf("vision: empty image")
	}

	reqBody := annotateRequest{
		Requests: []annotateImageRequest{{
			Image: imageSource{Content: base64.StdEncoding.EncodeToString(image)},
			Features: []feature{{
				Type:       "FACE_DETECTION",
				MaxResults: maxFacesPerImage,
			}},
		}},
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.endpoint+"/v1/images:annotate?key="+c.apiKey, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }() //nolint:errcheck // error ignored intentionally

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("vision HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, err
	}

	return parseAnnotateResponse(body)
}

// CompareFaces estimates whether two images show the same person.
//
// The Vision API has no direct face-similarity endpoint, so the
// confidence is a proxy: the minimum of the two images' average
// detection confidences. It measures how clearly faces appear in both
// images, not biometric similarity. Either image containing no face
// yields a zero-confidence non-match.
func (c *Client) CompareFaces(ctx context.Context, image1, image2 []byte) (Comparison, error) {
	faces1, err := c.DetectFaces(ctx, image1)
	if err != nil {
		return Comparison{}, fmt.Errorf("detect faces in first image: %w", err)
	}
	faces2, err := c.DetectFaces(ctx, image2)
	if err != nil {
		return Comparison{}, fmt.Errorf("detect faces in second image: %w", err)
	}

	if len(faces1) == 0 || len(faces2) == 0 {
		return Comparison{}, nil
	}

	confidence := min(averageConfidence(faces1), averageConfidence(faces2))
	return Comparison{
		Confidence: confidence,
		Match:      confidence > MatchThreshold,
		Faces:      faces2,
	}, nil
}

func averageConfidence(faces []FaceAnnotation) float64 {
	var sum float64
	for _, f := range faces {
		sum += f.DetectionConfidence
	}
	return sum / float64(len(faces))
}

type annotateRequest struct {
	Requests []annotateImageRequest `json:"requests"`
}

type annotateImageRequest struct {
	Image    imageSource `json:"image"`
	Features []feature   `json:"features"`
}

type imageSource struct {
	Content string `json:"content"`
}

type feature struct {
	Type       string `json:"type"`
	MaxResults int    `json:"maxResults"`
}

type annotateResponse struct {
	Responses []struct {
		FaceAnnotations []FaceAnnotation `json:"faceAnnotations"`
		Error           *struct {
			Message string `json:"message"`
		} `json:"error"`
	} `json:"responses"`
}

func parseAnnotateResponse(data []byte) ([]FaceAnnotation, error) {
	var resp annotateResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("decode vision response: %w", err)
	}
	if len(resp.Responses) == 0 {
		return nil, fmt.Errorf("vision returned no responses")
	}
	if e := resp.Responses[0].Error; e != nil {
		return nil, fmt.Errorf("vision: %s", e.Message)
	}
	return resp.Responses[0].FaceAnnotations, nil
}
