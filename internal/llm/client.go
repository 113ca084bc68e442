// Package llm is a minimal client for OpenAI-compatible chat completion APIs (DeepSeek by default).
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"englishbuddy/pkg/apperror"
	"englishbuddy/pkg/logger"
)

// maxErrorBody bounds how much of a failed response is kept for diagnostics.
const maxErrorBody = 4 << 10

type Config struct {
	URL     string
	APIKey  string
	Model   string
	Timeout time.Duration
}

type Client struct {
	config     Config
	httpClient *http.Client
}

func NewClient(cfg Config) *Client {
	return &Client{
		config:     cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionRequest struct {
	Model    string    `json:"model"`
	Messages []message `json:"messages"`
}

type completionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete sends prompt as a single user message and returns the first choice's content.
// One attempt only; transport failures and non-2xx replies are UPSTREAM_UNAVAILABLE,
// unreadable replies are UPSTREAM_FORMAT_ERROR.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	if c.config.APIKey == "" {
		return "", apperror.NewConfiguration("DEEPSEEK_API_KEY is not configured")
	}

	body, err := json.Marshal(completionRequest{
		Model:    c.config.Model,
		Messages: []message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", apperror.NewInternal(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.URL, bytes.NewReader(body))
	if err != nil {
		return "", apperror.NewInternal(fmt.Errorf("build completion request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.Sugar.Errorf("LLM request failed: %v", err)
		return "", apperror.NewUpstreamUnavailable("Could not reach the language model API", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", apperror.NewUpstreamUnavailable("Could not read the language model response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		logger.Sugar.Errorf("LLM API returned %d: %s", resp.StatusCode, truncate(raw))
		return "", apperror.NewUpstreamUnavailable(
			"Language model API returned an error",
			fmt.Errorf("status %d", resp.StatusCode),
		).WithDetail("status", resp.StatusCode).WithDetail("api_response", truncate(raw))
	}

	var out completionResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", apperror.NewUpstreamFormat("Unexpected response format from the language model API", truncate(raw))
	}
	if len(out.Choices) == 0 {
		return "", apperror.NewUpstreamFormat("Language model API returned no choices", truncate(raw))
	}

	logger.Sugar.Debugf("LLM completion: %s", out.Choices[0].Message.Content)
	return out.Choices[0].Message.Content, nil
}

func truncate(b []byte) string {
	if len(b) > maxErrorBody {
		return string(b[:maxErrorBody])
	}
	return string(b)
}
