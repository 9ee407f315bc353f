// Package gemini implements the model gateway over the Gemini generateContent REST API.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/missive/internal/logging"
	"github.com/aretw0/missive/pkg/domain"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const (
	DefaultModel   = "gemini-2.0-flash"
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	DefaultTimeout = 120 * time.Second

	defaultSystemPrompt = `You are an assistant that manages the user's email and calendar.
Use the available tools when the request needs them and answer directly otherwise.
Never claim an email was sent unless a tool result says so.`
)

// Config holds the explicit settings of a Client.
type Config struct {
	APIKey      string
	Model       string
	BaseURL     string
	Temperature float32

	// RequestsPerMinute paces calls to the API. Zero disables pacing.
	RequestsPerMinute int

	Timeout      time.Duration
	SystemPrompt string
}

// Client is a ports.ModelGateway and ports.Completer backed by Gemini.
// It is safe for concurrent use.
type Client struct {
	cfg        Config
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
	newID      func() string
}

// Option configures the Client.
type Option func(*Client)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// New creates a Client. Empty settings take their defaults.
func New(cfg Config, opts ...Option) *Client {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = defaultSystemPrompt
	}

	c := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logging.NewNop(),
		newID:      uuid.NewString,
	}
	if cfg.RequestsPerMinute > 0 {
		c.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 1)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Infer returns the next assistant message for history.
// Gemini assigns no call IDs, so every function call gets a fresh one.
func (c *Client) Infer(ctx context.Context, history []domain.Message, catalog []domain.ToolSpec) (domain.Message, error) {
	req := geminiRequest{
		Contents:          toContents(history),
		SystemInstruction: &geminiContent{Parts: []geminiPart{{Text: c.cfg.SystemPrompt}}},
		GenerationConfig:  c.genConfig(),
		Tools:             toTools(catalog),
	}

	resp, err := c.generate(ctx, req)
	if err != nil {
		return domain.Message{}, &domain.InferenceError{Err: err}
	}

	var (
		text  []string
		calls []domain.ToolCallRequest
	)
	for _, part := range resp.Candidates[0].Content.Parts {
		switch {
		case part.FunctionCall != nil:
			calls = append(calls, domain.ToolCallRequest{
				ID:        c.newID(),
				Name:      part.FunctionCall.Name,
				Arguments: part.FunctionCall.Args,
			})
		case part.Text != "":
			text = append(text, part.Text)
		}
	}
	if len(text) == 0 && len(calls) == 0 {
		return domain.Message{}, &domain.InferenceError{Err: fmt.Errorf("gemini: returned empty content (finish reason %s)", resp.Candidates[0].FinishReason)}
	}
	return domain.AssistantMessage(strings.Join(text, ""), calls...), nil
}

// Complete answers a single prompt with plain text.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.generate(ctx, geminiRequest{
		Contents:         []geminiContent{{Role: "user", Parts: []geminiPart{{Text: prompt}}}},
		GenerationConfig: c.genConfig(),
	})
	if err != nil {
		return "", &domain.InferenceError{Err: err}
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	if sb.Len() == 0 {
		return "", &domain.InferenceError{Err: fmt.Errorf("gemini: returned empty text content")}
	}
	return sb.String(), nil
}

func (c *Client) genConfig() *geminiGenerationConfig {
	t := c.cfg.Temperature
	return &geminiGenerationConfig{Temperature: &t}
}

func (c *Client) generate(ctx context.Context, payload geminiRequest) (*geminiResponse, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("gemini: waiting for rate limiter: %w", err)
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("gemini: marshaling request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", c.cfg.BaseURL, c.cfg.Model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("gemini: creating HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.cfg.APIKey)

	c.logger.Debug("sending request to gemini", "model", c.cfg.Model, "content_count", len(payload.Contents), "tools", len(payload.Tools))

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("gemini: HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("gemini: reading response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gemini: API returned status %d: %s", resp.StatusCode, truncate(string(data), 512))
	}

	var out geminiResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("gemini: parsing response JSON: %w", err)
	}
	if out.Error != nil {
		return nil, fmt.Errorf("gemini: API error [%d] %s: %s", out.Error.Code, out.Error.Status, out.Error.Message)
	}
	if len(out.Candidates) == 0 {
		return nil, fmt.Errorf("gemini: returned no candidates")
	}
	return &out, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
