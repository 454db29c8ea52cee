package generate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPClient calls a generation endpoint that accepts
// {"prompt": ..., "kind": ...} and answers {"content": ...}.
type HTTPClient struct {
	endpoint   string
	apiKey     string
	maxRetries int
	httpClient *http.Client
}

// HTTPOption configures an HTTPClient.
type HTTPOption func(*HTTPClient)

// WithAPIKey sends key as a bearer token.
func WithAPIKey(key string) HTTPOption {
	return func(c *HTTPClient) { c.apiKey = key }
}

// WithRetries sets how many attempts are made before giving up (default 3).
func WithRetries(n int) HTTPOption {
	return func(c *HTTPClient) {
		if n > 0 {
			c.maxRetries = n
		}
	}
}

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) HTTPOption {
	return func(c *HTTPClient) { c.httpClient = hc }
}

// NewHTTPClient creates a client for endpoint.
func NewHTTPClient(endpoint string, opts ...HTTPOption) *HTTPClient {
	c := &HTTPClient{
		endpoint:   endpoint,
		maxRetries: 3,
		httpClient: &http.Client{Timeout: 2 * time.Minute},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type generateRequest struct {
	Prompt string `json:"prompt"`
	Kind   Kind   `json:"kind"`
}

type generateResponse struct {
	Content string `json:"content"`
	Error   string `json:"error,omitempty"`
}

// statusError is a non-2xx answer. 4xx answers are not retried.
type statusError struct {
	code int
	msg  string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("generation service error (%d): %s", e.code, e.msg)
}

// Generate retries failed calls with exponential backoff.
func (c *HTTPClient) Generate(ctx context.Context, prompt string, kind Kind) (string, error) {
	var lastErr error
	for i := 0; i < c.maxRetries; i++ {
		out, err := c.once(ctx, prompt, kind)
		if err == nil {
			return out, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if se, ok := err.(*statusError); ok && se.code < 500 {
			return "", err
		}
		if i == c.maxRetries-1 {
			break
		}
		backoff := time.Duration(1<<uint(i)) * 250 * time.Millisecond
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return "", fmt.Errorf("failed after %d attempts: %w", c.maxRetries, lastErr)
}

func (c *HTTPClient) once(ctx context.Context, prompt string, kind Kind) (string, error) {
	body, err := json.Marshal(generateRequest{Prompt: prompt, Kind: kind})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	var out generateResponse
	decodeErr := json.Unmarshal(data, &out)
	if resp.StatusCode != http.StatusOK {
		msg := string(data)
		if decodeErr == nil && out.Error != "" {
			msg = out.Error
		}
		return "", &statusError{code: resp.StatusCode, msg: msg}
	}
	if decodeErr != nil {
		return "", fmt.Errorf("parse response: %w", decodeErr)
	}
	return out.Content, nil
}

var _ Client = (*HTTPClient)(nil)
