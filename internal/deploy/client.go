// Package deploy triggers deployment of the winning candidate. The
// contract is fire-and-acknowledge: a 2xx means the trigger was accepted,
// and nothing here waits on the deployment itself.
package deploy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

type triggerRequest struct {
	ArtifactPath string  `json:"artifact_path"`
	Category     string  `json:"category"`
	Identifier   string  `json:"identifier"`
	Score        float64 `json:"score"`
}

func (c *Client) Trigger(ctx context.Context, artifactPath, category, identifier string, score float64) error {
	if c.baseURL == "" {
		return fmt.Errorf("no deploy endpoint configured")
	}
	body, err := json.Marshal(triggerRequest{
		ArtifactPath: artifactPath,
		Category:     category,
		Identifier:   identifier,
		Score:        score,
	})
	if err != nil {
		return fmt.Errorf("encoding deploy trigger: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/deploy", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building deploy trigger: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("calling deploy trigger: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("deploy trigger returned %d: %s", resp.StatusCode, snippet)
	}
	c.logger.Info("deploy triggered",
		zap.String("identifier", identifier),
		zap.String("artifact_path", artifactPath))
	return nil
}
