package completion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/foxseedlab/n7chat/internal/conversation"
	openai "github.com/sashabaranov/go-openai"
)

const maxErrorBodyBytes = 2048

var errNoChoices = errors.New("response has no choices")

type Config struct {
	APIKey       string
	BaseURL      string
	Model        string
	Stream       bool
	Timeout      time.Duration
	MaxRetries   int
	RetryBackoff time.Duration
	Temperature  float32
	MaxTokens    int
}

// Client talks to an OpenAI-compatible chat completions endpoint. Streaming
// requests are parsed line by line; single-shot requests go through go-openai.
type Client struct {
	cfg  Config
	http *http.Client
	api  *openai.Client
}

func NewClient(cfg Config, transport http.RoundTripper) *Client {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	httpClient := &http.Client{
		Timeout:   cfg.Timeout,
		Transport: NewRetryTransport(transport, cfg.MaxRetries, cfg.RetryBackoff),
	}
	apiCfg := openai.DefaultConfig(cfg.APIKey)
	apiCfg.BaseURL = cfg.BaseURL
	apiCfg.HTTPClient = httpClient
	return &Client{
		cfg:  cfg,
		http: httpClient,
		api:  openai.NewClientWithConfig(apiCfg),
	}
}

func (c *Client) Complete(ctx context.Context, history []conversation.Message, deltas chan<- string) (string, error) {
	if c.cfg.Stream {
		return c.Stream(ctx, history, deltas)
	}
	return c.CompleteOnce(ctx, history)
}

func (c *Client) CompleteOnce(ctx context.Context, history []conversation.Message) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, c.request(history, false))
	if err != nil {
		return "", classify(err)
	}
	if len(resp.Choices) == 0 {
		return "", &Error{Kind: KindDecode, Err: errNoChoices}
	}
	return resp.Choices[0].Message.Content, nil
}

// Stream returns the accumulated deltas. When the body breaks off after some
// text has arrived, that partial text is returned as the response.
func (c *Client) Stream(ctx context.Context, history []conversation.Message, deltas chan<- string) (string, error) {
	body, err := json.Marshal(c.request(history, true))
	if err != nil {
		return "", &Error{Kind: KindDecode, Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", &Error{Kind: KindConnection, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", classify(err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= http.StatusBadRequest {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return "", &Error{Kind: KindStatus, Err: &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}}
	}

	text, err := ParseStream(resp.Body, func(delta string) error {
		return forward(ctx, deltas, delta)
	})
	if err != nil {
		if text != "" {
			slog.Warn("completion stream interrupted; keeping partial response", "error", err, "partial_length", len(text))
			return text, nil
		}
		return "", classify(err)
	}
	return text, nil
}

func (c *Client) request(history []conversation.Message, stream bool) openai.ChatCompletionRequest {
	msgs := make([]openai.ChatCompletionMessage, 0, len(history))
	for _, m := range history {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: string(m.Role), Content: m.Content})
	}
	return openai.ChatCompletionRequest{
		Model:       c.cfg.Model,
		Messages:    msgs,
		Temperature: c.cfg.Temperature,
		MaxTokens:   c.cfg.MaxTokens,
		Stream:      stream,
	}
}

func forward(ctx context.Context, deltas chan<- string, delta string) error {
	if deltas == nil {
		return nil
	}
	select {
	case deltas <- delta:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("forward delta: %w", ctx.Err())
	}
}
