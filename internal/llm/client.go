// Package llm implements thin typed adapters around a remote
// chat-completion service. Each adapter builds a deterministic prompt,
// enforces a hard timeout, strips code fences from the reply and
// validates the JSON payload before anything reaches business logic.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

const defaultBaseURL = "https://openrouter.ai/api/v1"

// Timeouts per adapter. Parsing free text gets more headroom than
// editing an already-structured draft.
const (
	parseTimeout   = 24 * time.Second
	editTimeout    = 12 * time.Second
	suggestTimeout = 12 * time.Second
)

// ErrTimeout is returned when the upstream model did not answer within
// the adapter's deadline. Callers show a distinct "try a shorter
// message" hint for it.
var ErrTimeout = errors.New("the language model did not answer in time")

// Client calls a chat-completions endpoint.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewClient creates a client for the configured endpoint.
func NewClient(apiKey, model string) *Client {
	return &Client{
		baseURL:    defaultBaseURL,
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{},
	}
}

// NewClientFromEnv creates a client from OPENROUTER_API_KEY and
// LLM_MODEL.
func NewClientFromEnv() *Client {
	model, ok := os.LookupEnv("LLM_MODEL")
	if !ok {
		model = "google/gemma-3-12b-it:free"
	}

	return NewClient(os.Getenv("OPENROUTER_API_KEY"), model)
}

// WithBaseURL points the client at a different endpoint. Used in tests.
func (c *Client) WithBaseURL(baseURL string) *Client {
	c.baseURL = strings.TrimRight(baseURL, "/")
	return c
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// complete sends a single user-role prompt and returns the raw reply
// content with markdown code fences removed.
func (c *Client) complete(ctx context.Context, timeout time.Duration, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	body, err := json.Marshal(chatRequest{
		Model:    c.model,
		Messages: []chatMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", ErrTimeout
		}
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("language model request failed: status %d, body: %s", resp.StatusCode, string(raw))
	}

	var completion chatResponse
	err = json.NewDecoder(resp.Body).Decode(&completion)
	if err != nil {
		// The deadline can also expire mid-read, after Do returned
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", ErrTimeout
		}
		return "", fmt.Errorf("decoding language model response: %w", err)
	}

	if len(completion.Choices) == 0 {
		return "", errors.New("language model returned no choices")
	}

	return stripFences(completion.Choices[0].Message.Content), nil
}

// stripFences removes ```json / ``` markers that models like to wrap
// their JSON output in.
func stripFences(s string) string {
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}
