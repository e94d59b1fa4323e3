package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/inkforge/tattoo-pipeline/internal/task"
)

const defaultTimeout = 30 * time.Second

// Config holds completion webhook configuration.
type Config struct {
	URL     string
	Timeout time.Duration
}

// Client posts job-completion payloads to the configured callback URL.
// Delivery is best-effort: a single POST with a fixed timeout and no retry.
// Its outcome never changes the success of the task that triggered it.
type Client struct {
	config     *Config
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a webhook notifier.
func NewClient(config *Config, logger *slog.Logger) *Client {
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
	}
}

type completionPayload struct {
	JobID    string      `json:"jobId"`
	Data     task.Result `json:"data"`
	SocketID string      `json:"socketId,omitempty"`
}

// NotifyCompleted posts the completion payload for a finished job.
func (c *Client) NotifyCompleted(ctx context.Context, jobID string, result task.Result, socketID string) error {
	payload, err := json.Marshal(completionPayload{
		JobID:    jobID,
		Data:     result,
		SocketID: socketID,
	})
	if err != nil {
		return fmt.Errorf("failed to encode webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.URL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("webhook returned status %d: %s", resp.StatusCode, string(body))
	}

	c.logger.Info("Completion webhook delivered",
		slog.String("job_id", jobID),
		slog.String("url", c.config.URL),
	)

	return nil
}
