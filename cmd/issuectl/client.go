package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// client calls the issued HTTP API.
type client struct {
	baseURL string
	http    *http.Client
}

func newClient(baseURL string, timeout time.Duration) *client {
	return &client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// apiError is a logical failure reported in a 200 response.
type apiError struct {
	Message string `json:"error"`
	ID      string `json:"_id,omitempty"`
}

func (e *apiError) Error() string {
	if e.ID == "" {
		return e.Message
	}
	return fmt.Sprintf("%s (_id %s)", e.Message, e.ID)
}

type result struct {
	Result string `json:"result"`
	ID     string `json:"_id"`
}

func issuesPath(project string) string {
	return "/api/issues/" + url.PathEscape(project)
}

func (c *client) list(ctx context.Context, project string, filters map[string]string) ([]map[string]any, error) {
	q := url.Values{}
	for k, v := range filters {
		q.Set(k, v)
	}
	path := issuesPath(project)
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var out []map[string]any
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *client) create(ctx context.Context, project string, fields map[string]any) (map[string]any, error) {
	var out map[string]any
	if err := c.do(ctx, http.MethodPost, issuesPath(project), fields, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *client) update(ctx context.Context, project, id string, fields map[string]any) (result, error) {
	body := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		body[k] = v
	}
	body["_id"] = id

	var out result
	err := c.do(ctx, http.MethodPut, issuesPath(project), body, &out)
	return out, err
}

func (c *client) remove(ctx context.Context, project, id string) (result, error) {
	var out result
	err := c.do(ctx, http.MethodDelete, issuesPath(project), map[string]any{"_id": id}, &out)
	return out, err
}

func (c *client) projects(ctx context.Context) ([]map[string]any, error) {
	var out []map[string]any
	if err := c.do(ctx, http.MethodGet, "/api/projects", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *client) health(ctx context.Context) (string, error) {
	var out struct {
		Status string `json:"status"`
	}
	if err := c.do(ctx, http.MethodGet, "/health", nil, &out); err != nil {
		return "", err
	}
	return out.Status, nil
}

// do sends body as JSON and decodes the response into out. A response
// object carrying an error field is returned as *apiError.
func (c *client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request to %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	if bytes.HasPrefix(bytes.TrimSpace(raw), []byte("{")) {
		var apiErr apiError
		if err := json.Unmarshal(raw, &apiErr); err == nil && apiErr.Message != "" {
			return &apiErr
		}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
