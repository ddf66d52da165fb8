// Package notion talks to a Notion task database and reconciles its pages
// with the local journal.
package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL = "https://api.notion.com"

	apiVersion = "2022-06-28"

	// Notion allows an average of three requests per second per integration.
	requestsPerSecond = 3
)

// Client is a minimal Notion REST client covering the calls the
// synchronizer needs.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	limiter    *rate.Limiter
}

func NewClient(baseURL, token string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
	}
}

// APIError is the error object Notion returns with any 4xx or 5xx status.
type APIError struct {
	StatusCode int    `json:"status"`
	Code       string `json:"code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("notion: request failed with status %d", e.StatusCode)
	}
	return fmt.Sprintf("notion: %s (%d %s)", e.Message, e.StatusCode, e.Code)
}

// QueryDatabase returns one page of results for the database query.
func (c *Client) QueryDatabase(ctx context.Context, databaseID string, q QueryRequest) (*QueryResponse, error) {
	var resp QueryResponse
	if err := c.post(ctx, "/v1/databases/"+databaseID+"/query", q, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Database returns the database schema.
func (c *Client) Database(ctx context.Context, databaseID string) (*Database, error) {
	var db Database
	if err := c.get(ctx, "/v1/databases/"+databaseID, &db); err != nil {
		return nil, err
	}
	return &db, nil
}

func (c *Client) Page(ctx context.Context, pageID string) (*Page, error) {
	var page Page
	if err := c.get(ctx, "/v1/pages/"+pageID, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// UpdateStatus sets the Status property of a page by option name.
func (c *Client) UpdateStatus(ctx context.Context, pageID, status string) error {
	body := map[string]any{
		"properties": map[string]any{
			"Status": map[string]any{
				"status": map[string]string{"name": status},
			},
		},
	}
	return c.patch(ctx, "/v1/pages/"+pageID, body, nil)
}

func (c *Client) get(ctx context.Context, path string, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.doRequest(req, result)
}

func (c *Client) post(ctx context.Context, path string, body interface{}, result interface{}) error {
	return c.send(ctx, http.MethodPost, path, body, result)
}

func (c *Client) patch(ctx context.Context, path string, body interface{}, result interface{}) error {
	return c.send(ctx, http.MethodPatch, path, body, result)
}

func (c *Client) send(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewBuffer(jsonBody))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	return c.doRequest(req, result)
}

func (c *Client) doRequest(req *http.Request, result interface{}) error {
	if err := c.limiter.Wait(req.Context()); err != nil {
		return fmt.Errorf("notion: rate limit wait: %w", err)
	}

	req.Header.Set("Notion-Version", apiVersion)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("notion: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("notion: failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		_ = json.Unmarshal(body, apiErr)
		apiErr.StatusCode = resp.StatusCode
		return apiErr
	}

	if result != nil && len(body) > 0 {
		if err := json.Unmarshal(body, result); err != nil {
			return fmt.Errorf("notion: failed to decode response: %w", err)
		}
	}

	return nil
}
