// Package archon talks to the Archon planning tool: RAG lookup of similar
// projects for the reusability scout, and publishing finished runs as
// projects with documents and tasks.
package archon

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"ideenfinder/pkg/config"
	"ideenfinder/pkg/logx"
)

// maxErrorBody bounds how much of a failed response is kept in an error.
const maxErrorBody = 512

// APIError is a non-success response from Archon.
type APIError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("archon %s failed with status %d: %s", e.Op, e.StatusCode, e.Body)
}

// Client is a minimal Archon REST client.
type Client struct {
	baseURL string
	apiKey  string
	logger  *logx.Logger
	client  *http.Client
}

// NewClient creates a client for baseURL. A trailing "/api/projects" or "/" is dropped.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = config.DefaultArchonTimeout
	}
	return &Client{
		baseURL: normalizeBaseURL(baseURL),
		apiKey:  apiKey,
		logger:  logx.NewLogger("archon"),
		client:  &http.Client{Timeout: timeout},
	}
}

// NewClientFromConfig creates a client from the archon config section.
func NewClientFromConfig(cfg config.ArchonConfig) *Client {
	return NewClient(cfg.APIURL, cfg.APIKey, cfg.Timeout)
}

// BaseURL returns the normalized server address.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// ProjectURL returns the browser link for a project.
func (c *Client) ProjectURL(projectID string) string {
	return fmt.Sprintf("%s/projects/%s", c.baseURL, projectID)
}

func normalizeBaseURL(u string) string {
	u = strings.TrimSuffix(strings.TrimSpace(u), "/")
	return strings.TrimSuffix(u, "/api/projects")
}

// doRequest performs an HTTP request with authentication.
func (c *Client) doRequest(ctx context.Context, method, path string, body any) (*http.Response, error) {
	url := c.baseURL + path

	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if c.apiKey != "" {
		req.Header.Set("apikey", c.apiKey)
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	c.logger.Debug("%s %s", method, url)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	return resp, nil
}

// postJSON posts body to path and decodes a 200/201 response into out (may be nil).
func (c *Client) postJSON(ctx context.Context, op, path string, body, out any) error {
	resp, err := c.doRequest(ctx, http.MethodPost, path, body)
	if err != nil {
		return fmt.Errorf("archon %s: %w", op, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &APIError{Op: op, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("archon %s: failed to decode response: %w", op, err)
	}
	return nil
}
