package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"
	"golang.org/x/sync/semaphore"

	"ContentPipeline/internal/config"
	"ContentPipeline/internal/domain"
	"ContentPipeline/internal/ports"
)

const providerName = "OpenAI"

// OpenAIClient implements ports.TextProvider backed by OpenAI-compatible chat completions.
type OpenAIClient struct {
	endpoint    string
	model       string
	apiKey      string
	temperature float64
	httpClient  *resty.Client
	inflight    *semaphore.Weighted
}

var _ ports.TextProvider = (*OpenAIClient)(nil)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// NewOpenAIClient builds a client from configuration. maxConcurrent bounds
// simultaneous in-flight completions across all cadences.
func NewOpenAIClient(cfg config.OpenAIConfig, maxConcurrent int, client *resty.Client) *OpenAIClient {
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 90 * time.Second
		}
		client = resty.New().SetTimeout(timeout)
	}
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	return &OpenAIClient{
		endpoint:    cfg.Endpoint,
		model:       cfg.Model,
		apiKey:      cfg.APIKey,
		temperature: cfg.Temperature,
		httpClient:  client,
		inflight:    semaphore.NewWeighted(int64(maxConcurrent)),
	}
}

// Name identifies the provider on generated content.
func (c *OpenAIClient) Name() string {
	return providerName
}

// Complete sends prompt as a single user message and returns the first choice.
func (c *OpenAIClient) Complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	if c.apiKey == "" || c.endpoint == "" || c.model == "" {
		return "", domain.ConfigurationError("openai client misconfigured")
	}

	if err := c.inflight.Acquire(ctx, 1); err != nil {
		return "", domain.TransientError("wait for provider slot", err)
	}
	defer c.inflight.Release(1)

	body, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: c.temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("marshal completion payload: %w", err)
	}

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetAuthToken(c.apiKey).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Post(c.endpoint)
	if err != nil {
		return "", domain.TransientError("completion request", err)
	}
	if resp.IsError() {
		return "", domain.TransientError(fmt.Sprintf("completion returned %s: %s", resp.Status(), snippet(resp.String())), nil)
	}

	var parsed chatResponse
	if err := json.Unmarshal(resp.Body(), &parsed); err != nil {
		return "", domain.ParseError("decode completion: %v", err)
	}
	if len(parsed.Choices) == 0 {
		return "", domain.ParseError("completion without choices")
	}
	content := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if content == "" {
		return "", domain.ParseError("completion with empty content")
	}
	return content, nil
}

func snippet(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 512 {
		return s[:512]
	}
	return s
}
