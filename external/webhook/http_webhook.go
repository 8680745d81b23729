package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/foxseedlab/n7chat/internal/webhook"
)

const (
	sendTimeout     = 10 * time.Second
	maxErrorBodyLen = 512
)

// StatusError reports a non-2xx webhook response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("webhook returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("webhook returned status %d: %s", e.StatusCode, e.Body)
}

type HTTPSender struct {
	webhookURL string
	client     *http.Client
}

func NewHTTPSender(webhookURL string) webhook.Sender {
	return &HTTPSender{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: sendTimeout},
	}
}

func (s *HTTPSender) SendTurn(ctx context.Context, payload webhook.TurnPayload) error {
	if s.webhookURL == "" {
		return nil
	}

	b, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode turn payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(b))
	if err != nil {
		return fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to post turn %s to webhook: %w", payload.TurnID, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if !isHTTPSuccessStatus(resp.StatusCode) {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyLen))
		return fmt.Errorf("failed to post turn %s to webhook: %w", payload.TurnID, &StatusError{
			StatusCode: resp.StatusCode,
			Body:       string(bytes.TrimSpace(body)),
		})
	}
	return nil
}

func isHTTPSuccessStatus(statusCode int) bool {
	return statusCode >= 200 && statusCode < 300
}
