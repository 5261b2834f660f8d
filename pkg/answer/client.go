// Package answer talks to the remote answering endpoint: one JSON POST per
// question, plain text back.
package answer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gptchat/gptchat/pkg/logger"
)

// DefaultEndpoint is where the answering service listens in a local setup.
const DefaultEndpoint = "http://localhost:8080/GPT/P1"

type askRequest struct {
	Question  string `json:"question"`
	SessionID string `json:"sessionId"`
}

// StatusError is returned when the endpoint answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("answer: unexpected status %s", e.Status)
}

type Client struct {
	endpoint   string
	httpClient *http.Client
	userAgent  string
}

type Option func(*Client)

// WithHTTPClient replaces http.DefaultClient.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

func NewClient(endpoint string, opts ...Option) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	c := &Client{
		endpoint:   endpoint,
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Endpoint() string { return c.endpoint }

// Ask posts the question and returns the response body as the reply. There
// is no retry and no client-side timeout; the request lives as long as ctx.
func (c *Client) Ask(ctx context.Context, question, sessionID string) (string, error) {
	body, err := json.Marshal(askRequest{Question: question, SessionID: sessionID})
	if err != nil {
		return "", fmt.Errorf("answer: encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("answer: building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.DebugCF("answer", "Request failed", map[string]interface{}{
			"session": sessionID,
			"error":   err.Error(),
		})
		return "", fmt.Errorf("answer: post %s: %w", c.endpoint, err)
	}
	defer resp.Body.Close()

	fields := map[string]interface{}{
		"session":     sessionID,
		"status":      resp.StatusCode,
		"duration_ms": time.Since(start).Milliseconds(),
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		logger.DebugCF("answer", "Request rejected", fields)
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, resp.Body)
		return "", &StatusError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("answer: reading reply: %w", err)
	}
	fields["bytes"] = len(data)
	logger.DebugCF("answer", "Request settled", fields)
	return string(data), nil
}
