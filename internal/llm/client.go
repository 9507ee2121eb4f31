// Package llm talks to an OpenAI-compatible chat completion gateway. The
// council, the quality gate, the plan critic and the confidence reviewer all
// go through one Client; callers that need uncached judgments use ChatFresh.
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

	"github.com/pironjulien/trinity-hackathon-sub002/internal/config"
)

// Logger is the minimal logging surface the client needs. A nil Logger
// silently discards debug output.
type Logger interface {
	Debug(msg string, keyvals ...interface{})
}

// defaultTimeout bounds one completion call when the config leaves it unset.
const defaultTimeout = 120 * time.Second

// Client is an OpenAI-compatible chat client over one gateway and model.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	logger     Logger
}

// New creates a Client from the resolved LLM configuration. The logger may
// be nil.
func New(cfg config.LLMConfig, logger Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:    normalizeBaseURL(cfg.BaseURL),
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// normalizeBaseURL strips trailing slashes and a trailing "/chat/completions"
// so the path is never doubled when the client appends it.
func normalizeBaseURL(raw string) string {
	s := strings.TrimRight(raw, "/")
	return strings.TrimSuffix(s, "/chat/completions")
}

// Validate reports which connection fields are missing. It lets commands
// fail at startup instead of on the first nightly call.
func (c *Client) Validate() error {
	var missing []string
	if c.baseURL == "" {
		missing = append(missing, "base URL")
	}
	if c.apiKey == "" {
		missing = append(missing, "API key")
	}
	if c.model == "" {
		missing = append(missing, "model")
	}
	if len(missing) == 0 {
		return nil
	}
	return fmt.Errorf("llm: missing %s", strings.Join(missing, ", "))
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.model
}

type chatRequest struct {
	Model    string    `json:"model"`
	Messages []chatMsg `json:"messages"`
}

type chatMsg struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Usage reports token consumption for one completion call.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage Usage `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Chat sends one system + user exchange and returns the assistant's text
// with reasoning blocks stripped.
func (c *Client) Chat(ctx context.Context, system, user string) (string, Usage, error) {
	return c.chat(ctx, system, user, false)
}

// ChatFresh is Chat with gateway response caching disabled. Scoring calls
// use it so a retried evaluation is never served a stale judgment.
func (c *Client) ChatFresh(ctx context.Context, system, user string) (string, Usage, error) {
	return c.chat(ctx, system, user, true)
}

func (c *Client) chat(ctx context.Context, system, user string, fresh bool) (string, Usage, error) {
	payload := chatRequest{
		Model: c.model,
		Messages: []chatMsg{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", Usage{}, fmt.Errorf("llm: marshal request: %w", err)
	}

	url := c.baseURL + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", Usage{}, fmt.Errorf("llm: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if fresh {
		req.Header.Set("Cache-Control", "no-cache")
	}

	if c.logger != nil {
		c.logger.Debug("chat completion",
			"model", c.model,
			"system_bytes", len(system),
			"user_bytes", len(user),
			"fresh", fresh,
		)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", Usage{}, fmt.Errorf("llm: http request: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", Usage{}, fmt.Errorf("llm: read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", Usage{}, fmt.Errorf("llm: HTTP %d: %s", resp.StatusCode, string(respBody))
	}

	var chatResp chatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return "", Usage{}, fmt.Errorf("llm: unmarshal response: %w", err)
	}

	if chatResp.Error != nil {
		return "", Usage{}, fmt.Errorf("llm: API error: %s", chatResp.Error.Message)
	}

	if len(chatResp.Choices) == 0 {
		return "", Usage{}, fmt.Errorf("llm: no choices in response")
	}

	content := StripThinkBlocks(chatResp.Choices[0].Message.Content)

	if c.logger != nil {
		c.logger.Debug("chat completion done",
			"prompt_tokens", chatResp.Usage.PromptTokens,
			"completion_tokens", chatResp.Usage.CompletionTokens,
			"content_bytes", len(content),
		)
	}
	return content, chatResp.Usage, nil
}

// StripThinkBlocks removes <think>...</think> blocks from s. Reasoning
// models emit these before structured output; an unclosed block is stripped
// from its opening tag to the end of the string.
func StripThinkBlocks(s string) string {
	for {
		start := strings.Index(s, "<think>")
		if start == -1 {
			break
		}
		end := strings.Index(s[start:], "</think>")
		if end == -1 {
			s = s[:start]
			break
		}
		s = s[:start] + s[start+end+len("</think>"):]
	}
	return strings.TrimSpace(s)
}
