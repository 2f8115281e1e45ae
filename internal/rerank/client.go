// Package rerank provides a client for a cross-encoder rerank service
// speaking the common /v1/rerank JSON contract (Cohere-compatible).
package rerank

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	// DefaultModel is the cross-encoder model requested when none is configured.
	DefaultModel = "rerank-english-v3.0"

	defaultTimeout = 10 * time.Second
)

// ErrNoEndpoint is returned when the client is constructed without a URL.
var ErrNoEndpoint = errors.New("rerank endpoint URL not configured")

// Result is one scored document as returned by the provider. Index refers to
// the position in the request's document list; providers do not guarantee
// any particular result order.
type Result struct {
	Index          int     `json:"index"`
	RelevanceScore float64 `json:"relevance_score"`
}

// Client calls the rerank service. Constructed once at process start and
// safe for concurrent reuse; it holds no per-request state.
type Client struct {
	url        string
	apiKey     string
	model      string
	httpClient *http.Client
}

type Config struct {
	URL     string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// NewClient creates a rerank client with the given configuration.
func NewClient(cfg Config) *Client {
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		url:        cfg.URL,
		apiKey:     cfg.APIKey,
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type rerankRequest struct {
	Model     string   `json:"model"`
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
	TopN      int      `json:"top_n,omitempty"`
}

type rerankResponse struct {
	Results []Result `json:"results"`
}

// Rerank scores the documents against the query and returns one result per
// surviving document. Callers must not assume the results are sorted.
func (c *Client) Rerank(ctx context.Context, query string, documents []string, topN int) ([]Result, error) {
	if c.url == "" {
		return nil, ErrNoEndpoint
	}

	payload, err := json.Marshal(rerankRequest{
		Model:     c.model,
		Query:     query,
		Documents: documents,
		TopN:      topN,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode rerank request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build rerank request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rerank request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("rerank service returned %d: %s", resp.StatusCode, string(body))
	}

	var parsed rerankResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode rerank response: %w", err)
	}

	for _, r := range parsed.Results {
		if r.Index < 0 || r.Index >= len(documents) {
			return nil, fmt.Errorf("rerank result index %d out of range for %d documents", r.Index, len(documents))
		}
	}

	return parsed.Results, nil
}

// Model returns the configured cross-encoder model identifier.
func (c *Client) Model() string {
	return c.model
}
