// Package research is the client for the external research normalizer,
// the research phase's delegate.
package research

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// Normalize hands the topic description to the normalizer and returns the
// research context for synthesis. When no normalizer is configured the
// description passes through untouched.
func (c *Client) Normalize(ctx context.Context, description string) (string, error) {
	if c.baseURL == "" {
		return description, nil
	}
	body, err := json.Marshal(map[string]string{"description": description})
	if err != nil {
		return "", fmt.Errorf("encoding normalize request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/normalize", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("building normalize request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling research normalizer: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("research normalizer returned %d: %s", resp.StatusCode, snippet)
	}
	var out struct {
		Context string `json:"context"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decoding normalize response: %w", err)
	}
	return out.Context, nil
}
