package lm

import (
	"context"
	stderrors "errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/c360/llmbridge/errors"
	"github.com/c360/llmbridge/pkg/retry"
	"github.com/c360/llmbridge/pkg/security"
	"github.com/c360/llmbridge/pkg/tlsutil"
)

// GoogleOpenAIBaseURL is Google AI Studio's OpenAI-compatible chat endpoint.
const GoogleOpenAIBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai"

// DefaultRequestTimeout bounds one completion round trip when the
// configuration does not say otherwise.
const DefaultRequestTimeout = 60 * time.Second

// Request is one completion call. Instructions carry the system-level
// framing; Content is the user turn. Model and Temperature override the
// client defaults when non-zero.
type Request struct {
	Instructions string
	Content      string
	Model        string
	Temperature  float64
}

// Result is the backend's reply.
type Result struct {
	Text string
}

// Client is a synchronous completion backend. Complete blocks for the full
// round trip; callers bound it with the context.
type Client interface {
	Complete(ctx context.Context, req Request) (*Result, error)
}

// ChatConfig configures a ChatClient.
type ChatConfig struct {
	// BaseURL of the OpenAI-compatible service. Empty uses the SDK default.
	BaseURL string

	// Model is the default model id for requests that do not override it.
	Model string

	// APIKey authenticates against the service.
	APIKey string

	// Temperature is the default sampling temperature.
	Temperature float64

	// Timeout bounds each HTTP request (default 60s).
	Timeout time.Duration

	// RateLimit caps requests per second. Zero disables limiting.
	RateLimit float64
	RateBurst int

	// Retry controls backoff for transient failures. Zero value uses
	// retry.DefaultConfig.
	Retry retry.Config

	// TLS configures transport security toward the endpoint. The zero
	// value uses the system trust store.
	TLS security.ClientTLSConfig

	// Logger defaults to slog.Default.
	Logger *slog.Logger
}

// ChatClient calls an OpenAI-compatible chat-completions service. Google AI
// Studio's compatibility endpoint serves the Gemini models this bridge
// targets; any other compatible gateway works through BaseURL.
type ChatClient struct {
	client      *openai.Client
	model       string
	temperature float64
	limiter     *rate.Limiter
	retryCfg    retry.Config
	logger      *slog.Logger
}

// NewChatClient builds a ChatClient from cfg.
func NewChatClient(cfg ChatConfig) (*ChatClient, error) {
	if cfg.Model == "" {
		return nil, errors.Validation(errors.ErrMissingModel, "Model name is required")
	}
	if cfg.APIKey == "" {
		return nil, errors.Validation(errors.ErrMissingAPIKey, "API key is required")
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultRequestTimeout
	}

	tlsConfig, err := tlsutil.LoadClientTLSConfig(cfg.TLS)
	if err != nil {
		return nil, err
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = tlsConfig

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	clientCfg.HTTPClient = &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &ChatClient{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		limiter:     limiter,
		retryCfg:    cfg.Retry,
		logger:      logger,
	}, nil
}

// Complete performs one chat completion with rate limiting and bounded
// retries on transient failures.
func (c *ChatClient) Complete(ctx context.Context, req Request) (*Result, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, errors.Wrap(err, "ChatClient", "Complete", "wait for rate limiter")
		}
	}

	model := req.Model
	if model == "" {
		model = c.model
	}
	temperature := req.Temperature
	if temperature == 0 {
		temperature = c.temperature
	}

	var messages []openai.ChatCompletionMessage
	if req.Instructions != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.Instructions,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Content,
	})

	completion := openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		Temperature: float32(temperature),
	}

	result, err := retry.DoWithResult(ctx, c.retryCfg, func() (*Result, error) {
		resp, err := c.client.CreateChatCompletion(ctx, completion)
		if err != nil {
			return nil, classifyAPIError(err)
		}
		if len(resp.Choices) == 0 {
			return nil, retry.NonRetryable(errors.WrapBackend(errors.ErrBackendUnavailable,
				"ChatClient", "Complete", "empty completion response"))
		}
		return &Result{Text: resp.Choices[0].Message.Content}, nil
	})
	if err != nil {
		c.logger.Warn("completion failed", "model", model, "error", err)
		return nil, err
	}
	return result, nil
}

// classifyAPIError marks permanent API failures non-retryable. Rate limits
// and server-side errors stay retryable; auth and request errors do not.
func classifyAPIError(err error) error {
	var apiErr *openai.APIError
	if stderrors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode == http.StatusTooManyRequests || apiErr.HTTPStatusCode >= 500 {
			return err
		}
		return retry.NonRetryable(err)
	}

	var reqErr *openai.RequestError
	if stderrors.As(err, &reqErr) {
		if reqErr.HTTPStatusCode == http.StatusTooManyRequests || reqErr.HTTPStatusCode >= 500 {
			return err
		}
		return retry.NonRetryable(err)
	}

	// Transport-level failures (timeouts, resets) are worth retrying unless
	// the context is already done.
	if strings.Contains(err.Error(), "context canceled") ||
		strings.Contains(err.Error(), "context deadline exceeded") {
		return retry.NonRetryable(err)
	}
	return err
}
