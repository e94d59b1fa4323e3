package reveai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const defaultTimeout = 60 * time.Second

var (
	// ErrContentPolicy is returned when the service declines the request on
	// content policy grounds rather than failing technically.
	ErrContentPolicy = errors.New("generation rejected by content policy")

	// ErrNoImage is returned when the response carries no usable image.
	ErrNoImage = errors.New("response contains no image")
)

// APIError is an HTTP-level failure from the compositing endpoint.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("reve api error: status %d: %s", e.StatusCode, e.Message)
}

// Config holds compositing API configuration.
type Config struct {
	BaseURL     string
	APIKey      string
	Timeout     time.Duration
	AspectRatio string
	Version     string
}

// Options customize a single compositing request.
type Options struct {
	Styles      []string
	Colors      []string
	Description string
}

// Client calls the remote image remix endpoint. It performs no retries;
// retry responsibility belongs to the queue consumer.
type Client struct {
	config     *Config
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a compositing API client.
func NewClient(config *Config, logger *slog.Logger) (*Client, error) {
	if config.APIKey == "" {
		return nil, errors.New("reve api key is required")
	}

	timeout := config.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}, nil
}

type remixRequest struct {
	Prompt          string   `json:"prompt"`
	ReferenceImages []string `json:"reference_images"`
	AspectRatio     string   `json:"aspect_ratio"`
	Version         string   `json:"version"`
}

type remixResponse struct {
	Image            string `json:"image"`
	ContentViolation bool   `json:"content_violation"`
	RequestID        string `json:"request_id"`
	CreditsUsed      int    `json:"credits_used"`
	CreditsRemaining int    `json:"credits_remaining"`
	Version          string `json:"version"`
	Message          string `json:"message"`
}

// ApplyTattoo submits the body photo and tattoo design to the remix endpoint
// and returns the composited image bytes. The body image must carry the red
// region marking; the instruction tells the model to blend the tattoo there
// and remove the marking. The call blocks for up to the configured timeout.
func (c *Client) ApplyTattoo(ctx context.Context, bodyImage, tattooImage []byte, opts Options) ([]byte, error) {
	reqBody := remixRequest{
		Prompt: buildPrompt(opts),
		ReferenceImages: []string{
			base64.StdEncoding.EncodeToString(bodyImage),
			base64.StdEncoding.EncodeToString(tattooImage),
		},
		AspectRatio: c.config.AspectRatio,
		Version:     c.config.Version,
	}
	if reqBody.AspectRatio == "" {
		reqBody.AspectRatio = "1:1"
	}
	if reqBody.Version == "" {
		reqBody.Version = "latest"
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to encode remix request: %w", err)
	}

	url := strings.TrimSuffix(c.config.BaseURL, "/") + "/remix"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build remix request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	c.logger.Debug("Submitting compositing request",
		slog.Int("body_bytes", len(bodyImage)),
		slog.Int("tattoo_bytes", len(tattooImage)),
	)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("remix request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read remix response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(raw))}
		var errBody struct {
			Message   string `json:"message"`
			ErrorCode string `json:"error_code"`
		}
		if json.Unmarshal(raw, &errBody) == nil && errBody.Message != "" {
			apiErr.Message = errBody.Message
			if errBody.ErrorCode != "" {
				apiErr.Message += " (code: " + errBody.ErrorCode + ")"
			}
		}
		return nil, apiErr
	}

	var result remixResponse
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("invalid remix response: %w", err)
	}

	if result.ContentViolation {
		return nil, ErrContentPolicy
	}

	if result.Image == "" {
		return nil, ErrNoImage
	}

	image, err := base64.StdEncoding.DecodeString(result.Image)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid base64 payload: %v", ErrNoImage, err)
	}

	c.logger.Info("Compositing request completed",
		slog.String("request_id", result.RequestID),
		slog.Int("credits_used", result.CreditsUsed),
		slog.Int("credits_remaining", result.CreditsRemaining),
		slog.Int("image_bytes", len(image)),
	)

	return image, nil
}

// buildPrompt assembles the natural-language compositing instruction from
// the base instruction plus optional user description, styles, and colors.
func buildPrompt(opts Options) string {
	var b strings.Builder
	b.WriteString(
		"Apply the tattoo design from <img>1</img> onto the body in <img>0</img>, " +
			"placing it EXACTLY in the RED MARKED AREA. " +
			"Create a photorealistic result with: " +
			"- The tattoo seamlessly blended into the skin texture " +
			"- Natural lighting and shadows matching the original photo " +
			"- Realistic skin texture overlaying the tattoo " +
			"- Professional, high-quality tattoo appearance " +
			"- The rest of the body unchanged from the original " +
			"- Complete removal of the red marking " +
			"Generate a hyperrealistic image showing how this tattoo would naturally look on that body part.",
	)

	if desc := strings.TrimSpace(opts.Description); desc != "" {
		b.WriteString(" Additional user instructions: " + desc + ".")
	}
	if len(opts.Styles) > 0 {
		b.WriteString(" Apply the following styles to the tattoo: " + strings.Join(opts.Styles, ", ") + ".")
	}
	if len(opts.Colors) > 0 {
		b.WriteString(" Use the following colors for the tattoo: " + strings.Join(opts.Colors, ", ") + ".")
	}

	return b.String()
}
