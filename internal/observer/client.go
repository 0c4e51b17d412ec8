package observer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gboutry/defining-acceptance/pkg/logging"
)

const requestTimeout = 30 * time.Second

// Client is a minimal Test Observer API client covering the four calls the
// reporting pipeline makes: start an execution, post results, post status
// updates and close the execution.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient creates a client for the collector at baseURL. token is optional;
// when set it is sent as a bearer token on every request.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: requestTimeout},
	}
}

// BaseURL returns the collector URL the client was built for.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// StartExecution creates one execution and returns its id.
func (c *Client) StartExecution(ctx context.Context, req StartRequest) (int64, error) {
	var response struct {
		ID int64 `json:"id"`
	}
	url := c.baseURL + "/v1/test-executions/start-test"
	if err := c.doJSON(ctx, http.MethodPut, url, req, &response); err != nil {
		return 0, fmt.Errorf("start-test: %w", err)
	}
	logging.Debug("Observer", "Started execution id=%d plan=%s", response.ID, req.TestPlan)
	return response.ID, nil
}

// PostResults posts a batch of results under an execution. The collector
// expects a JSON array even for a single result.
func (c *Client) PostResults(ctx context.Context, executionID int64, results []TestResult) error {
	if len(results) == 0 {
		return nil
	}
	url := fmt.Sprintf("%s/v1/test-executions/%d/test-results", c.baseURL, executionID)
	if err := c.doJSON(ctx, http.MethodPost, url, results, nil); err != nil {
		return fmt.Errorf("post results: %w", err)
	}
	return nil
}

// PostStatusUpdate posts milestone events under an execution.
func (c *Client) PostStatusUpdate(ctx context.Context, executionID int64, events []StatusEvent) error {
	if len(events) == 0 {
		return nil
	}
	body := struct {
		Events []StatusEvent `json:"events"`
	}{Events: events}
	url := fmt.Sprintf("%s/v1/test-executions/%d/status_update", c.baseURL, executionID)
	if err := c.doJSON(ctx, http.MethodPost, url, body, nil); err != nil {
		return fmt.Errorf("post status update: %w", err)
	}
	return nil
}

// PatchExecution sets the terminal status of an execution.
func (c *Client) PatchExecution(ctx context.Context, executionID int64, status string) error {
	body := struct {
		Status string `json:"status"`
	}{Status: status}
	url := fmt.Sprintf("%s/v1/test-executions/%d", c.baseURL, executionID)
	if err := c.doJSON(ctx, http.MethodPatch, url, body, nil); err != nil {
		return fmt.Errorf("patch execution: %w", err)
	}
	logging.Debug("Observer", "Closed execution id=%d status=%s", executionID, status)
	return nil
}

// doJSON sends one JSON request and decodes the JSON response into out when
// out is non-nil. Any non-2xx status is an error carrying a truncated body.
func (c *Client) doJSON(ctx context.Context, method, url string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, truncatedBody(resp.Body))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

func truncatedBody(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, 200))
	if err != nil {
		return ""
	}
	return string(data)
}
