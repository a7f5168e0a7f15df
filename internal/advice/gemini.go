// Package advice generates personalized prevention advice from a risk
// estimate using a hosted language model.
package advice

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

// DefaultModel is the Gemini model used when none is configured.
const DefaultModel = "gemini-2.5-flash"

var (
	ErrMissingAPIKey = errors.New("gemini API key is required")
	ErrGeneration    = errors.New("advice generation failed")
	ErrEmptyAdvice   = errors.New("advice generation returned no text")
)

// Advisor turns a risk estimate and the user's answers into advice text.
type Advisor interface {
	Advise(ctx context.Context, req Request) (string, error)
}

// GeminiOptions configures GeminiAdvisor. BaseURL overrides the API
// endpoint and is meant for proxies and tests.
type GeminiOptions struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

// GeminiAdvisor calls the Gemini API through the genai SDK. Failures are
// returned once; nothing is retried.
type GeminiAdvisor struct {
	client *genai.Client
	model  string
	logger *zap.Logger
}

// NewGeminiAdvisor builds the SDK client.
func NewGeminiAdvisor(ctx context.Context, opts GeminiOptions, logger *zap.Logger) (*GeminiAdvisor, error) {
	if opts.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	model := opts.Model
	if model == "" {
		model = DefaultModel
	}

	cfg := &genai.ClientConfig{
		APIKey:  opts.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if opts.BaseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: opts.BaseURL}
	}
	if opts.Timeout > 0 {
		cfg.HTTPClient = &http.Client{Timeout: opts.Timeout}
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	return &GeminiAdvisor{
		client: client,
		model:  model,
		logger: logger.Named("advice.gemini"),
	}, nil
}

// Model reports the configured model name.
func (a *GeminiAdvisor) Model() string { return a.model }

// Advise sends the coaching prompt and returns the generated text.
func (a *GeminiAdvisor) Advise(ctx context.Context, req Request) (string, error) {
	start := time.Now()
	resp, err := a.client.Models.GenerateContent(ctx, a.model, genai.Text(BuildPrompt(req)), nil)
	if err != nil {
		a.logger.Warn("gemini request failed", zap.Error(err), zap.Duration("duration", time.Since(start)))
		return "", fmt.Errorf("%w: %v", ErrGeneration, err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		reason := ""
		if len(resp.Candidates) > 0 {
			reason = string(resp.Candidates[0].FinishReason)
		}
		return "", fmt.Errorf("%w (finish reason %q)", ErrEmptyAdvice, reason)
	}

	fields := []zap.Field{zap.Duration("duration", time.Since(start)), zap.String("model", a.model)}
	if u := resp.UsageMetadata; u != nil {
		fields = append(fields,
			zap.Int32("prompt_tokens", u.PromptTokenCount),
			zap.Int32("completion_tokens", u.CandidatesTokenCount),
			zap.Int32("total_tokens", u.TotalTokenCount),
		)
	}
	a.logger.Info("advice generated", fields...)
	return text, nil
}
