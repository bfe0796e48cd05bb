package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/sevigo/goframe/llms"
	"github.com/sevigo/goframe/llms/gemini"
	"github.com/sevigo/goframe/llms/ollama"
	"github.com/sevigo/goframe/schema"

	"github.com/sadir06/cf-ai-code-review-assistant/internal/config"
	"github.com/sadir06/cf-ai-code-review-assistant/internal/core"
)

var errEmptyCompletion = errors.New("completion returned no choices")

// NewCompleter creates the completion client for the configured provider.
func NewCompleter(ctx context.Context, cfg *config.Config, logger *slog.Logger) (core.Completer, error) {
	ai := cfg.AI
	switch ai.Provider {
	case "openai":
		logger.Info("using OpenAI-compatible completion provider", "model", ai.Model, "base_url", ai.BaseURL)
		return NewOpenAICompleter(ai, logger), nil

	case "gemini":
		if ai.GeminiAPIKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY is not set")
		}
		logger.Info("using Gemini completion provider", "model", ai.Model)
		model, err := gemini.New(ctx, gemini.WithModel(ai.Model), gemini.WithAPIKey(ai.GeminiAPIKey))
		if err != nil {
			return nil, fmt.Errorf("failed to create gemini model: %w", err)
		}
		return NewModelCompleter(model, ai.Model, ai.RequestTimeout, logger), nil

	case "ollama":
		logger.Info("using Ollama completion provider", "model", ai.Model, "host", ai.OllamaHost)
		model, err := ollama.New(
			ollama.WithServerURL(ai.OllamaHost),
			ollama.WithHTTPClient(newLLMHTTPClient(ai.RequestTimeout)),
			ollama.WithModel(ai.Model),
			ollama.WithLogger(logger),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create ollama model: %w", err)
		}
		return NewModelCompleter(model, ai.Model, ai.RequestTimeout, logger), nil

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", ai.Provider)
	}
}

// newLLMHTTPClient creates an HTTP client with generous timeouts; local models
// can take a while to answer.
func newLLMHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &http.Client{
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   30 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:        100,
			MaxConnsPerHost:     10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		},
		Timeout: timeout,
	}
}

type openAICompleter struct {
	client  openai.Client
	model   string
	timeout time.Duration
	logger  *slog.Logger
}

// NewOpenAICompleter talks to any OpenAI-compatible chat completions endpoint,
// including Cloudflare Workers AI when BaseURL points at it.
func NewOpenAICompleter(cfg config.AIConfig, logger *slog.Logger, opts ...option.RequestOption) core.Completer {
	clientOpts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(newLLMHTTPClient(cfg.RequestTimeout)),
	}
	if cfg.BaseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(cfg.BaseURL))
	}
	clientOpts = append(clientOpts, opts...)

	return &openAICompleter{
		client:  openai.NewClient(clientOpts...),
		model:   cfg.Model,
		timeout: cfg.RequestTimeout,
		logger:  logger,
	}
}

func (c *openAICompleter) Complete(ctx context.Context, req core.CompletionRequest) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	params := openai.ChatCompletionNewParams{
		Model:       c.model,
		Messages:    toOpenAIMessages(req.Messages),
		Temperature: openai.Float(req.Temperature),
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(req.MaxTokens))
	}

	start := time.Now()
	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("%w: openai chat completion: %w", core.ErrServiceUnavailable, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: %w", core.ErrServiceUnavailable, errEmptyCompletion)
	}

	c.logger.DebugContext(ctx, "completion finished",
		"model", c.model,
		"duration_ms", time.Since(start).Milliseconds(),
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens,
		"finish_reason", resp.Choices[0].FinishReason)

	return resp.Choices[0].Message.Content, nil
}

func toOpenAIMessages(msgs []core.CompletionMessage) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case core.RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case core.RoleAssistant:
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}

// modelCompleter adapts a goframe model. Messages keep their roles and the
// request's sampling settings are passed as call options.
type modelCompleter struct {
	model   llms.Model
	name    string
	timeout time.Duration
	logger  *slog.Logger
}

func NewModelCompleter(model llms.Model, name string, timeout time.Duration, logger *slog.Logger) core.Completer {
	return &modelCompleter{
		model:   model,
		name:    name,
		timeout: timeout,
		logger:  logger,
	}
}

func (c *modelCompleter) Complete(ctx context.Context, req core.CompletionRequest) (string, error) {
	opts := []llms.CallOption{llms.WithTemperature(req.Temperature)}
	if req.MaxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(req.MaxTokens))
	}
	messages := toModelMessages(req.Messages)

	start := time.Now()
	resp, err := generateWithTimeout(ctx, func(ctx context.Context) (string, error) {
		out, err := c.model.GenerateContent(ctx, messages, opts...)
		if err != nil {
			return "", err
		}
		if out == nil || len(out.Choices) == 0 {
			return "", errEmptyCompletion
		}
		return out.Choices[0].Content, nil
	}, c.timeout)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", core.ErrServiceUnavailable, c.name, err)
	}
	c.logger.DebugContext(ctx, "completion finished", "model", c.name, "duration_ms", time.Since(start).Milliseconds())
	return resp, nil
}

func toModelMessages(msgs []core.CompletionMessage) []schema.MessageContent {
	out := make([]schema.MessageContent, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case core.RoleSystem:
			out = append(out, schema.NewSystemMessage(m.Content))
		case core.RoleAssistant:
			out = append(out, schema.NewAIMessage(m.Content))
		default:
			out = append(out, schema.NewHumanMessage(m.Content))
		}
	}
	return out
}

// generateWithTimeout wraps LLM generation with a hard timeout so a hung
// client cannot block the caller past the deadline.
func generateWithTimeout(ctx context.Context, generate func(context.Context) (string, error), timeout time.Duration) (string, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	type result struct {
		resp string
		err  error
	}
	resultCh := make(chan result, 1)

	go func() {
		resp, err := generate(ctx)
		resultCh <- result{resp, err}
	}()

	select {
	case res := <-resultCh:
		return res.resp, res.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
