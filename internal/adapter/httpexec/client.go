package httpexec

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"gitlab.com/judge-relay.net/internal/core/ports/primary"
	"gitlab.com/judge-relay.net/internal/core/ports/secondary"
	"gitlab.com/judge-relay.net/internal/domain"
)

var _ secondary.TaskBackend = (*Client)(nil)

var enqueuePaths = map[domain.TaskClass]string{
	domain.TaskClassSubmit:    "/enqueue/submit",
	domain.TaskClassRun:       "/enqueue/run",
	domain.TaskClassReference: "/enqueue/system",
}

// Client posts tasks to the execution API, which owns its own queueing.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     primary.Logger
}

func NewClient(baseURL string, httpClient *http.Client, logger primary.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		logger:     logger,
	}
}

func (c *Client) Name() string {
	return "http"
}

func (c *Client) Enqueue(ctx context.Context, class domain.TaskClass, payload domain.TaskPayload) error {
	path, ok := enqueuePaths[class]
	if !ok {
		return fmt.Errorf("no enqueue endpoint for task class %q", class)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal task payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build enqueue request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call execution api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("execution api returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	c.logger.Debug("Task posted", "path", path, "jobId", payload.JobID)
	return nil
}
