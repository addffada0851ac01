// Package llm wraps an OpenAI-compatible chat completion endpoint (LM
// Studio, vLLM, or the hosted API) behind a small Client interface with
// bounded retry on transient failures.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// ErrUnavailable reports that the completion endpoint did not produce a
// response within the retry budget. Callers treat this as a per-task
// failure, not a fatal one.
var ErrUnavailable = errors.New("completion endpoint unavailable")

// Request is one chat-style completion call.
type Request struct {
	System    string
	User      string
	MaxTokens int64
}

// Client produces free-form text for a structured prompt.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// RetryPolicy bounds the retry loop around completion calls.
type RetryPolicy struct {
	MaxAttempts     uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultRetryPolicy matches the agent's historical behavior: three
// attempts with exponential waits capped at ten seconds.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:     3,
		InitialInterval: 2 * time.Second,
		MaxInterval:     10 * time.Second,
	}
}

func (p RetryPolicy) backoff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialInterval
	b.MaxInterval = p.MaxInterval
	attempts := p.MaxAttempts
	if attempts == 0 {
		attempts = 1
	}
	return backoff.WithContext(backoff.WithMaxRetries(b, attempts-1), ctx)
}

// ChatClient talks to an OpenAI-compatible chat completions API.
type ChatClient struct {
	client      openai.Client
	model       string
	temperature float64
	policy      RetryPolicy
}

// NewChatClient builds a client for the endpoint at baseURL (without the
// /v1 suffix). apiKey may be empty for local servers.
func NewChatClient(baseURL, apiKey, model string, temperature float64, policy RetryPolicy) *ChatClient {
	opts := []option.RequestOption{
		option.WithBaseURL(strings.TrimRight(baseURL, "/") + "/v1/"),
		// Retrying is handled here, with logging; the SDK's built-in
		// retry would stack on top of it.
		option.WithMaxRetries(0),
	}
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	return &ChatClient{
		client:      openai.NewClient(opts...),
		model:       model,
		temperature: temperature,
		policy:      policy,
	}
}

// Complete sends the prompt and returns the raw text of the first choice.
// Transport failures, rate limits, and 5xx responses are retried per the
// policy; exhaustion wraps ErrUnavailable.
func (c *ChatClient) Complete(ctx context.Context, req Request) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.System),
			openai.UserMessage(req.User),
		},
		Temperature: openai.Float(c.temperature),
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(req.MaxTokens)
	}

	var content string
	attempt := 0
	operation := func() error {
		attempt++
		resp, err := c.client.Chat.Completions.New(ctx, params)
		if err != nil {
			if !retryable(err) {
				return backoff.Permanent(err)
			}
			slog.Warn("completion call failed, will retry",
				"attempt", attempt, "max_attempts", c.policy.MaxAttempts, "error", err)
			return err
		}
		if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
			return backoff.Permanent(errors.New("empty completion response"))
		}
		content = resp.Choices[0].Message.Content
		return nil
	}

	if err := backoff.Retry(operation, c.policy.backoff(ctx)); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return content, nil
}

// retryable reports whether an error is a transient transport condition.
// Rate limits and server errors retry; other API responses do not.
func retryable(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= 500
	}
	// Connection-level failures have no status code.
	return true
}
