package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"resume-enhancer/internal/llm"
	"resume-enhancer/internal/shared/telemetry"
)

const (
	DefaultURL            = "https://api.openai.com/v1/chat/completions"
	DefaultModel          = "gpt-4o-mini"
	DefaultConnectTimeout = 30 * time.Second
	DefaultRequestTimeout = 120 * time.Second
	DefaultMaxTokens      = 4000
	DefaultTemperature    = 0.7

	maxErrorBodyBytes = 2048
)

// Options configures a Client. Zero values fall back to the Default* constants.
type Options struct {
	APIKey         string
	URL            string
	Model          string
	Temperature    *float64
	MaxTokens      int
	Language       string
	ConnectTimeout time.Duration
	RequestTimeout time.Duration
	// HTTPReferer and AppTitle are sent as identifying headers when set.
	HTTPReferer string
	AppTitle    string
}

// Client implements llm.Client using a chat-completions endpoint.
type Client struct {
	opts       Options
	httpClient *http.Client
}

// NewClient constructs a new chat-completions client. A missing API key is not an
// error here; Analyze reports it as *llm.ConfigurationError.
func NewClient(opts Options) *Client {
	if strings.TrimSpace(opts.URL) == "" {
		opts.URL = DefaultURL
	}
	if strings.TrimSpace(opts.Model) == "" {
		opts.Model = DefaultModel
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = DefaultMaxTokens
	}
	if opts.Temperature == nil {
		temp := DefaultTemperature
		opts.Temperature = &temp
	}
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = DefaultConnectTimeout
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = DefaultRequestTimeout
	}
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   opts.ConnectTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   opts.ConnectTimeout,
		ResponseHeaderTimeout: opts.RequestTimeout,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
	}
	return &Client{
		opts: opts,
		httpClient: &http.Client{
			Timeout:   opts.RequestTimeout,
			Transport: transport,
		},
	}
}

// Model returns the configured model identifier.
func (c *Client) Model() string {
	return c.opts.Model
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	Temperature    *float64       `json:"temperature,omitempty"`
	MaxTokens      int            `json:"max_tokens,omitempty"`
	ResponseFormat responseFormat `json:"response_format"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message *struct {
			Role    string  `json:"role"`
			Content *string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage,omitempty"`
	Error *apiError `json:"error,omitempty"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// Analyze sends content for enhancement and returns the model's raw message content.
func (c *Client) Analyze(ctx context.Context, content string) (string, error) {
	if strings.TrimSpace(c.opts.APIKey) == "" {
		return "", &llm.ConfigurationError{Reason: "LLM_API_KEY is not set"}
	}

	messages := llm.BuildEnhancePrompt(content, c.opts.Language)
	reqMessages := make([]chatMessage, 0, len(messages))
	for _, m := range messages {
		reqMessages = append(reqMessages, chatMessage{Role: m.Role, Content: m.Content})
	}
	payload, err := json.Marshal(chatRequest{
		Model:          c.opts.Model,
		Messages:       reqMessages,
		Temperature:    c.opts.Temperature,
		MaxTokens:      c.opts.MaxTokens,
		ResponseFormat: responseFormat{Type: "json_object"},
	})
	if err != nil {
		return "", fmt.Errorf("marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.opts.URL, bytes.NewReader(payload))
	if err != nil {
		return "", &llm.ConfigurationError{Reason: fmt.Sprintf("build request: %v", err)}
	}
	req.Header.Set("Authorization", "Bearer "+c.opts.APIKey)
	req.Header.Set("Content-Type", "application/json")
	if c.opts.HTTPReferer != "" {
		req.Header.Set("HTTP-Referer", c.opts.HTTPReferer)
	}
	if c.opts.AppTitle != "" {
		req.Header.Set("X-Title", c.opts.AppTitle)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return "", &llm.NetworkError{Message: "request timeout", Err: err}
		}
		return "", &llm.NetworkError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &llm.NetworkError{StatusCode: 0, Message: "read response body", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &llm.NetworkError{StatusCode: resp.StatusCode, Message: errorMessage(body)}
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", &llm.UpstreamFormatError{Reason: fmt.Sprintf("decode response envelope: %v", err)}
	}
	if parsed.Error != nil {
		return "", &llm.NetworkError{StatusCode: resp.StatusCode, Message: formatAPIError(parsed.Error)}
	}
	if len(parsed.Choices) == 0 {
		return "", &llm.UpstreamFormatError{Reason: "response missing choices"}
	}
	msg := parsed.Choices[0].Message
	if msg == nil || msg.Content == nil {
		return "", &llm.UpstreamFormatError{Reason: "response missing message content"}
	}

	fields := map[string]any{
		"model":       c.opts.Model,
		"duration_ms": float64(time.Since(start).Microseconds()) / 1000.0,
	}
	if parsed.Usage != nil {
		fields["prompt_tokens"] = parsed.Usage.PromptTokens
		fields["completion_tokens"] = parsed.Usage.CompletionTokens
		fields["total_tokens"] = parsed.Usage.TotalTokens
	}
	telemetry.Info("llm.response", fields)

	return *msg.Content, nil
}

// errorMessage pulls a readable message from a non-2xx body, falling back to the
// truncated raw body when the envelope cannot be parsed.
// isTimeout reports a context deadline or any net.Error that timed out,
// http.Client.Timeout included.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func errorMessage(body []byte) string {
	var envelope struct {
		Error *apiError `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error != nil {
		return formatAPIError(envelope.Error)
	}
	raw := strings.TrimSpace(string(body))
	if len(raw) > maxErrorBodyBytes {
		raw = raw[:maxErrorBodyBytes]
	}
	return raw
}

func formatAPIError(e *apiError) string {
	if e.Type == "" {
		return e.Message
	}
	return fmt.Sprintf("%s (%s)", e.Message, e.Type)
}

var _ llm.Client = (*Client)(nil)
