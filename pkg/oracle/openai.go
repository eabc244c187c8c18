package oracle

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"

	"github.com/ha1tch/ecotour/pkg/metrics"
)

// OpenAIConfig configures an OpenAI-compatible chat completion backend
type OpenAIConfig struct {
	APIKey  string
	BaseURL string // empty for the OpenAI cloud; e.g. "http://localhost:11434/v1" for a local server
	Model   string
	Timeout time.Duration
}

// OpenAI is an Oracle backed by any OpenAI-compatible chat completion API
type OpenAI struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	metrics *metrics.Metrics
	logger  zerolog.Logger
}

// NewOpenAI creates an OpenAI-compatible oracle
func NewOpenAI(cfg OpenAIConfig, m *metrics.Metrics, logger zerolog.Logger) (*OpenAI, error) {
	if cfg.APIKey == "" && cfg.BaseURL == "" {
		return nil, fmt.Errorf("%w: no API key or base URL configured", ErrUnavailable)
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("model is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = "unused"
	}
	config := openai.DefaultConfig(apiKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}
	config.HTTPClient = &http.Client{Timeout: timeout}

	return &OpenAI{
		client:  openai.NewClientWithConfig(config),
		model:   cfg.Model,
		timeout: timeout,
		metrics: m,
		logger:  logger,
	}, nil
}

// Available reports true
func (o *OpenAI) Available() bool { return true }

// Generate sends prompt as a single user message and returns the content of
// the first choice.
func (o *OpenAI) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	start := time.Now()
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	o.metrics.RecordOracleCall(start, err)
	if err != nil {
		o.logger.Warn().Err(err).Str("model", o.model).Dur("elapsed", time.Since(start)).Msg("Oracle call failed")
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	text := choiceText(resp)
	o.logger.Debug().Str("model", o.model).Int("chars", len(text)).Dur("elapsed", time.Since(start)).Msg("Oracle answered")
	if text == "" {
		return "", fmt.Errorf("%w: empty response", ErrUnavailable)
	}
	return text, nil
}

func choiceText(resp openai.ChatCompletionResponse) string {
	if len(resp.Choices) == 0 {
		return ""
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content)
}
