// Package apiclient is the JSON-over-HTTP transport shared by the embedding
// and LLM adapters. It classifies failures into domain errors so callers can
// tell a throttled provider from one that is down.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/custodia-labs/paperchat/internal/core/domain"
)

// maxErrorBody bounds how much of an error response is quoted in errors.
const maxErrorBody = 512

// Client sends JSON requests to one provider.
type Client struct {
	name    string
	http    *http.Client
	headers map[string]string
}

// New creates a client. name prefixes every error ("ollama", "openai", ...).
func New(name string, timeout time.Duration, headers map[string]string) *Client {
	return &Client{
		name:    name,
		http:    &http.Client{Timeout: timeout},
		headers: headers,
	}
}

// PostJSON encodes in, posts it to url and decodes the response into out.
func (c *Client) PostJSON(ctx context.Context, url string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("%s: marshal request: %w", c.name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%s: create request: %w", c.name, err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(ctx, req, out)
}

// Get issues a GET and discards the body. Used for health checks.
func (c *Client) Get(ctx context.Context, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return fmt.Errorf("%s: create request: %w", c.name, err)
	}
	return c.do(ctx, req, nil)
}

func (c *Client) do(ctx context.Context, req *http.Request, out any) error {
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%s: %w", c.name, ctxErr)
		}
		return fmt.Errorf("%w: %s: %w", domain.ErrProviderUnavailable, c.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return StatusError(c.name, resp.StatusCode, data)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", c.name, err)
	}
	return nil
}

// StatusError converts a non-2xx response into an error.
// 429 wraps domain.ErrRateLimited, 5xx wraps domain.ErrProviderUnavailable.
func StatusError(name string, status int, body []byte) error {
	msg := fmt.Sprintf("%s error (status %d): %s", name, status, bytes.TrimSpace(body))
	switch {
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", domain.ErrRateLimited, msg)
	case status >= 500:
		return fmt.Errorf("%w: %s", domain.ErrProviderUnavailable, msg)
	default:
		return errors.New(msg)
	}
}

// ToFloat32 narrows a decoded embedding.
func ToFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, f := range v {
		out[i] = float32(f)
	}
	return out
}
