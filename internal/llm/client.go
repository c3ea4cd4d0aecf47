// Package llm implements the gateway to the xAI OpenAI-compatible API:
// chat completions (with tool calling), vision chat, and image generation.
// Requests are single-attempt; callers own their fallback behavior.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"adintel/internal/logging"
)

// Gateway is the LLM surface the rest of the pipeline depends on.
// Chat and Vision fill in the configured model when req.Model is empty.
type Gateway interface {
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
	Vision(ctx context.Context, req ChatRequest) (*ChatResponse, error)
	GenerateImage(ctx context.Context, prompt string) (string, error)
}

// Client talks to an OpenAI-compatible endpoint (xAI by default).
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// New creates a gateway client. The API key may be empty for offline use;
// requests will then fail and callers fall back.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultConfig("").BaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Minute
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// ChatModel returns the configured default chat model.
func (c *Client) ChatModel() string { return c.cfg.ChatModel }

// VisionModel returns the configured vision model.
func (c *Client) VisionModel() string { return c.cfg.VisionModel }

// Chat performs one chat-completion request. Tool calls, if any, come back
// on the response for the caller's loop to execute.
func (c *Client) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if req.Model == "" {
		req.Model = c.cfg.ChatModel
	}
	return c.doChat(ctx, req)
}

// Vision performs one chat-completion request against the vision model.
// Messages should carry multimodal content parts (see VisionMessage).
func (c *Client) Vision(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if req.Model == "" {
		req.Model = c.cfg.VisionModel
	}
	return c.doChat(ctx, req)
}

func (c *Client) doChat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if c.cfg.APIKey == "" {
		return nil, fmt.Errorf("llm: no API key configured")
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("llm: marshal request: %w", err)
	}

	timer := logging.StartTimer(logging.CategoryAPI, fmt.Sprintf("chat %s", req.Model))
	defer timer.Stop()
	logging.APIDebug("chat request: model=%s messages=%d tools=%d temp=%.2f",
		req.Model, len(req.Messages), len(req.Tools), req.Temperature)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("llm: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		logging.APIError("chat request failed: %v", err)
		return nil, fmt.Errorf("llm: chat request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("llm: read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		logging.APIError("chat HTTP %d: %s", resp.StatusCode, truncate(string(respBody), 500))
		return nil, fmt.Errorf("llm: chat HTTP %d: %s", resp.StatusCode, truncate(string(respBody), 200))
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("llm: parse response: %w", err)
	}
	if parsed.Error != nil {
		return nil, fmt.Errorf("llm: API error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("llm: empty choices in response")
	}

	choice := parsed.Choices[0]
	logging.API("chat ok: model=%s finish=%s tool_calls=%d tokens=%d",
		req.Model, choice.FinishReason, len(choice.Message.ToolCalls), parsed.Usage.TotalTokens)

	return &ChatResponse{
		Text:         choice.Message.Content,
		ToolCalls:    choice.Message.ToolCalls,
		FinishReason: choice.FinishReason,
	}, nil
}

// GenerateImage submits an image-generation request and returns the hosted
// image URL of the first result.
func (c *Client) GenerateImage(ctx context.Context, prompt string) (string, error) {
	if c.cfg.APIKey == "" {
		return "", fmt.Errorf("llm: no API key configured")
	}

	body, err := json.Marshal(imageRequest{
		Model:          c.cfg.ImageModel,
		Prompt:         prompt,
		ResponseFormat: "url",
	})
	if err != nil {
		return "", fmt.Errorf("llm: marshal image request: %w", err)
	}

	timer := logging.StartTimer(logging.CategoryAPI, "image generation")
	defer timer.Stop()
	logging.APIDebug("image request: model=%s prompt_len=%d", c.cfg.ImageModel, len(prompt))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.BaseURL+"/images/generations", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("llm: build image request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		logging.APIError("image request failed: %v", err)
		return "", fmt.Errorf("llm: image request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("llm: read image response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		logging.APIError("image HTTP %d: %s", resp.StatusCode, truncate(string(respBody), 500))
		return "", fmt.Errorf("llm: image HTTP %d: %s", resp.StatusCode, truncate(string(respBody), 200))
	}

	var parsed imageResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("llm: parse image response: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("llm: image API error: %s", parsed.Error.Message)
	}
	if len(parsed.Data) == 0 || parsed.Data[0].URL == "" {
		return "", fmt.Errorf("llm: image response has no URL")
	}

	logging.API("image ok: model=%s", c.cfg.ImageModel)
	return parsed.Data[0].URL, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
