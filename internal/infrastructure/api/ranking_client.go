// Package api provides the HTTP client for the Compass backend, used by the
// flow controller when it runs against a remote service.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/compass-coaching/compass-go/internal/application/flow"
	"github.com/compass-coaching/compass-go/internal/domain/skillsranking"
	"github.com/compass-coaching/compass-go/internal/infrastructure/observability/logging"
)

// RankingClient talks to the skills-ranking endpoints. It implements
// flow.RankingAPI.
type RankingClient struct {
	baseURL    string
	httpClient *http.Client
	token      func() string
	logger     *logging.ChanneledLogger
}

// NewRankingClient creates a client for the given backend. token is consulted
// per request so rotated sessions are picked up without rebuilding the client.
func NewRankingClient(baseURL string, token func() string, logger *logging.ChanneledLogger) *RankingClient {
	return &RankingClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		token:      token,
		logger:     logger,
	}
}

type configResponse struct {
	JobPlatformURL    string `json:"jobPlatformUrl"`
	TypingDurationsMs [3]int `json:"typingDurationsMs"`
	MinThinkingTimeMs int    `json:"minThinkingTimeMs"`
}

// GetConfig fetches the flow configuration.
func (c *RankingClient) GetConfig(ctx context.Context) (*flow.Config, error) {
	var body configResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/skills-ranking/config", nil, &body); err != nil {
		return nil, err
	}

	cfg := &flow.Config{
		JobPlatformURL:  body.JobPlatformURL,
		MinThinkingTime: time.Duration(body.MinThinkingTimeMs) * time.Millisecond,
	}
	for i, ms := range body.TypingDurationsMs {
		cfg.TypingDurations[i] = time.Duration(ms) * time.Millisecond
	}
	return cfg, nil
}

type updateStateRequest struct {
	NextPhase skillsranking.Phase `json:"nextPhase"`
}

// UpdateState submits a phase transition and returns the authoritative
// snapshot. The response is trusted as-is; the caller never patches it.
func (c *RankingClient) UpdateState(ctx context.Context, sessionID int, next skillsranking.Phase) (*skillsranking.State, error) {
	var state skillsranking.State
	path := fmt.Sprintf("/api/v1/skills-ranking/%d", sessionID)
	if err := c.do(ctx, http.MethodPatch, path, updateStateRequest{NextPhase: next}, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

func (c *RankingClient) do(ctx context.Context, method, path string, payload, out any) error {
	var reqBody io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Flow().Warn("Backend request failed", "method", method, "path", path, "error", err.Error())
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.logger.Flow().Warn("Backend returned error status", "method", method, "path", path, "status", resp.StatusCode, "duration", time.Since(start))
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, string(body))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}
