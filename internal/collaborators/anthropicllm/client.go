// Package anthropicllm is a reference collaborators.LLMClient calling
// the Anthropic Messages API directly over HTTP, grounded on the
// original system's anthropic.Anthropic().messages.create usage. The
// original wraps every call in its own retry_backoff loop; here that
// concern belongs to internal/llmretry (spec §4.F), so Generate makes
// a single attempt and leaves retrying to its caller.
package anthropicllm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/arkady/edgarflow/internal/collaborators"
)

const defaultBaseURL = "https://api.anthropic.com/v1/messages"
const anthropicVersion = "2023-06-01"

// Client calls the Anthropic Messages API.
type Client struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
}

// New builds a Client. httpClient may be nil to use a default with a
// generous timeout, since individual generations can run for minutes.
func New(apiKey string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 5 * time.Minute}
	}
	return &Client{httpClient: httpClient, apiKey: apiKey, baseURL: defaultBaseURL}
}

type messageRequest struct {
	Model       string           `json:"model"`
	MaxTokens   int              `json:"max_tokens"`
	Temperature float64          `json:"temperature"`
	System      string           `json:"system,omitempty"`
	Messages    []requestMessage `json:"messages"`
}

type requestMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messageResponse struct {
	StopReason string `json:"stop_reason"`
	Content    []struct {
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Generate sends one system/user prompt pair and returns the model's
// text response plus token usage. ctx cancellation aborts the
// in-flight HTTP request so llmretry's cooperative shutdown reaches
// the network call.
func (c *Client) Generate(ctx context.Context, cfg collaborators.ModelConfig, systemPrompt, userPrompt string) (collaborators.GenerateResult, error) {
	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}

	reqBody, err := json.Marshal(messageRequest{
		Model:       cfg.Model,
		MaxTokens:   maxTokens,
		Temperature: cfg.Temperature,
		System:      systemPrompt,
		Messages:    []requestMessage{{Role: "user", Content: userPrompt}},
	})
	if err != nil {
		return collaborators.GenerateResult{}, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(reqBody))
	if err != nil {
		return collaborators.GenerateResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return collaborators.GenerateResult{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return collaborators.GenerateResult{}, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr apiError
		_ = json.Unmarshal(body, &apiErr)
		return collaborators.GenerateResult{}, fmt.Errorf("anthropic API status %d: %s", resp.StatusCode, apiErr.Error.Message)
	}

	var parsed messageResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return collaborators.GenerateResult{}, fmt.Errorf("unmarshal response: %w", err)
	}

	text := ""
	if len(parsed.Content) > 0 {
		text = parsed.Content[0].Text
	}

	return collaborators.GenerateResult{
		Text:         text,
		InputTokens:  parsed.Usage.InputTokens,
		OutputTokens: parsed.Usage.OutputTokens,
		Duration:     time.Since(start),
		StopReason:   parsed.StopReason,
	}, nil
}
