package advisor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rustyeddy/papertrader/market"
	"github.com/rustyeddy/papertrader/portfolio"
)

const (
	DefaultDeepSeekURL   = "https://api.deepseek.com/v1"
	DefaultDeepSeekModel = "deepseek-chat"
)

// DeepSeek talks to the OpenAI compatible chat completions endpoint.
type DeepSeek struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

type Option func(*DeepSeek)

func WithBaseURL(url string) Option {
	return func(d *DeepSeek) {
		if url != "" {
			d.baseURL = strings.TrimRight(url, "/")
		}
	}
}

func WithModel(model string) Option {
	return func(d *DeepSeek) {
		if model != "" {
			d.model = model
		}
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(d *DeepSeek) { d.client.Timeout = timeout }
}

func WithHTTPClient(c *http.Client) Option {
	return func(d *DeepSeek) { d.client = c }
}

func NewDeepSeek(apiKey string, opts ...Option) *DeepSeek {
	d := &DeepSeek{
		apiKey:  apiKey,
		baseURL: DefaultDeepSeekURL,
		model:   DefaultDeepSeekModel,
		client: &http.Client{
			Timeout: time.Minute,
		},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

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

func (d *DeepSeek) Analyze(ctx context.Context, snap market.Snapshot, acct portfolio.Account, prompt string) (string, error) {
	if d.apiKey == "" {
		return "", fmt.Errorf("%w: deepseek api key is not set", ErrUnavailable)
	}

	user, err := userPrompt(snap, acct, prompt)
	if err != nil {
		return "", err
	}
	body, err := json.Marshal(chatRequest{
		Model: d.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: user},
		},
		Temperature: defaultTemperature,
		MaxTokens:   defaultMaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+d.apiKey)

	resp, err := d.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("%w: deepseek status %d: %s", ErrUnavailable, resp.StatusCode, bytes.TrimSpace(msg))
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("%w: deepseek returned no choices", ErrUnavailable)
	}
	return out.Choices[0].Message.Content, nil
}
