package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/BaSui01/docflow/types"
)

// ClientConfig configures the OpenAI-compatible chat client.
type ClientConfig struct {
	// BaseURL is the API root, e.g. https://api.openai.com/v1
	BaseURL string
	// APIKey is sent as a bearer token.
	APIKey string
	// Model names the chat model.
	Model string
	// Temperature for sampling.
	Temperature float64
	// HTTPClient overrides the default client. The per-call timeout is
	// enforced by the resilient wrapper through the context, not here.
	HTTPClient *http.Client
}

// Client is a minimal OpenAI-compatible chat-completions client. It maps
// the Capability contract onto a system+user message pair.
type Client struct {
	cfg    ClientConfig
	http   *http.Client
	logger *zap.Logger
}

// NewClient creates a chat client.
func NewClient(cfg ClientConfig, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		cfg:    cfg,
		http:   httpClient,
		logger: logger.With(zap.String("component", "llm_client")),
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Generate implements Capability over the chat-completions endpoint.
func (c *Client) Generate(ctx context.Context, role, content string) (string, error) {
	reqBody, err := json.Marshal(chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: role},
			{Role: "user", Content: content},
		},
		Temperature: c.cfg.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode chat request: %w", err)
	}

	url := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return "", fmt.Errorf("failed to build chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", types.NewError(types.ErrCapabilityUnavailable, "chat request failed").
			WithCause(err).WithRetryable(true)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return "", types.NewError(types.ErrCapabilityUnavailable, "failed to read chat response").
			WithCause(err).WithRetryable(true)
	}

	if resp.StatusCode != http.StatusOK {
		retryable := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		return "", types.NewError(types.ErrCapabilityUnavailable,
			fmt.Sprintf("chat request returned status %d", resp.StatusCode)).
			WithRetryable(retryable)
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("failed to decode chat response: %w", err)
	}
	if parsed.Error != nil {
		return "", types.NewError(types.ErrCapabilityUnavailable, parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return "", types.NewError(types.ErrCapabilityUnavailable, "chat response has no choices")
	}

	return parsed.Choices[0].Message.Content, nil
}
