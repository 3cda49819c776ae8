// Package synthesis is the client for the external prompt synthesizer,
// the synthesis phase's delegate.
package synthesis

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

// Synthesize turns the normalized research context into the prompt
// context handed to the generator. Without a configured synthesizer the
// research context passes through.
func (c *Client) Synthesize(ctx context.Context, researchContext string) (string, error) {
	if c.baseURL == "" {
		return researchContext, nil
	}
	body, err := json.Marshal(map[string]string{"context": researchContext})
	if err != nil {
		return "", fmt.Errorf("encoding synthesize request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/synthesize", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("building synthesize request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling synthesizer: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("synthesizer returned %d: %s", resp.StatusCode, snippet)
	}
	var out struct {
		Prompt string `json:"prompt"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decoding synthesize response: %w", err)
	}
	return out.Prompt, nil
}
