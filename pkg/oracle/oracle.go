// Package oracle wraps the external text generation service: one prompt in,
// one text out.
package oracle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/genai"

	"github.com/ha1tch/ecotour/pkg/metrics"
)

// ErrUnavailable is returned when no oracle is configured or a call fails
var ErrUnavailable = errors.New("text generation oracle unavailable")

// Oracle generates text from a prompt
type Oracle interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Available() bool
}

// Gemini is an Oracle backed by the Gemini API
type Gemini struct {
	client  *genai.Client
	model   string
	timeout time.Duration
	metrics *metrics.Metrics
	logger  zerolog.Logger
}

// NewGemini creates a Gemini-backed oracle. The client is created without
// a network round trip.
func NewGemini(ctx context.Context, apiKey, model string, timeout time.Duration, m *metrics.Metrics, logger zerolog.Logger) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: no API key configured", ErrUnavailable)
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Gemini{client: client, model: model, timeout: timeout, metrics: m, logger: logger}, nil
}

// Available reports true; a configured client is assumed reachable
func (g *Gemini) Available() bool { return true }

// Generate sends prompt and returns the concatenated text parts of the first
// candidate. Call failures, including timeouts, wrap ErrUnavailable.
func (g *Gemini) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	g.metrics.RecordOracleCall(start, err)
	if err != nil {
		g.logger.Warn().Err(err).Str("model", g.model).Dur("elapsed", time.Since(start)).Msg("Oracle call failed")
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	text := responseText(resp)
	g.logger.Debug().Str("model", g.model).Int("chars", len(text)).Dur("elapsed", time.Since(start)).Msg("Oracle answered")
	if text == "" {
		return "", fmt.Errorf("%w: empty response", ErrUnavailable)
	}
	return text, nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	content := resp.Candidates[0].Content
	if content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range content.Parts {
		if part != nil {
			b.WriteString(part.Text)
		}
	}
	return strings.TrimSpace(b.String())
}

// Disabled is the oracle used when no API key is configured
type Disabled struct{}

// Available reports false
func (Disabled) Available() bool { return false }

// Generate always fails with ErrUnavailable
func (Disabled) Generate(context.Context, string) (string, error) {
	return "", ErrUnavailable
}

// Func adapts a function to the Oracle interface
type Func func(ctx context.Context, prompt string) (string, error)

// Available reports true
func (f Func) Available() bool { return true }

// Generate calls f
func (f Func) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}
