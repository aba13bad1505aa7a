package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Client calls an external image-annotation API (Google Vision compatible
// request shape) to label images.
type Client struct {
	endpoint    string
	apiKey      string
	maxLabels   int
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	logger      *slog.Logger
}

// Options configures the vision client.
type Options struct {
	Endpoint  string
	APIKey    string
	Timeout   time.Duration // Per-request timeout (default 10s)
	MaxLabels int           // Labels requested per image (default 5)
}

// NewClient creates a vision API client.
// Rate limited to 10 requests per second to stay inside typical API quotas.
func NewClient(opts Options, logger *slog.Logger) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.MaxLabels <= 0 {
		opts.MaxLabels = 5
	}

	return &Client{
		endpoint:  opts.Endpoint,
		apiKey:    opts.APIKey,
		maxLabels: opts.MaxLabels,
		httpClient: &http.Client{
			Timeout: opts.Timeout,
		},
		rateLimiter: rate.NewLimiter(rate.Limit(10), 5),
		logger:      logger,
	}
}

// Wire format for label-detection requests and responses.

type annotateImage struct {
	Content string `json:"content"`
}

type annotateFeature struct {
	Type       string `json:"type"`
	MaxResults int    `json:"maxResults"`
}

type annotateEntry struct {
	Image    annotateImage     `json:"image"`
	Features []annotateFeature `json:"features"`
}

type annotateRequest struct {
	Requests []annotateEntry `json:"requests"`
}

type labelAnnotation struct {
	Description string  `json:"description"`
	Score       float64 `json:"score"`
}

type annotateResult struct {
	LabelAnnotations []labelAnnotation `json:"labelAnnotations"`
	Error            *annotateError    `json:"error"`
}

type annotateError struct {
	Message string `json:"message"`
}

type annotateResponse struct {
	Responses []annotateResult `json:"responses"`
}

// LabelImage implements Labeler by sending the image bytes to the annotation
// endpoint. Labels are lowercased and de-duplicated before returning.
func (c *Client) LabelImage(ctx context.Context, path string) ([]string, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("vision rate limiter: %w", err)
	}

	data, err := os.ReadFile(path) //#nosec G304 -- path comes from our own storage layer
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}

	reqBody := annotateRequest{
		Requests: []annotateEntry{{
			Image: annotateImage{Content: base64.StdEncoding.EncodeToString(data)},
			Features: []annotateFeature{
				{Type: "LABEL_DETECTION", MaxResults: c.maxLabels},
			},
		}},
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := c.endpoint + "?key=" + c.apiKey
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("vision request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("vision API returned status %d", resp.StatusCode)
	}

	var result annotateResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if len(result.Responses) == 0 {
		return nil, nil
	}
	if apiErr := result.Responses[0].Error; apiErr != nil {
		return nil, fmt.Errorf("vision API error: %s", apiErr.Message)
	}

	seen := make(map[string]bool)
	var labels []string
	for _, ann := range result.Responses[0].LabelAnnotations {
		label := strings.ToLower(strings.TrimSpace(ann.Description))
		if label == "" || seen[label] {
			continue
		}
		seen[label] = true
		labels = append(labels, label)
	}

	c.logger.Debug("image labeled", "path", path, "labels", len(labels))
	return labels, nil
}
