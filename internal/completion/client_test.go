package completion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/foxseedlab/n7chat/internal/conversation"
)

func newTestClient(baseURL string, stream bool) *Client {
	return NewClient(Config{
		APIKey:       "test-key",
		BaseURL:      baseURL,
		Model:        "test-model",
		Stream:       stream,
		Timeout:      2 * time.Second,
		MaxRetries:   2,
		RetryBackoff: time.Millisecond,
		Temperature:  0.7,
		MaxTokens:    64,
	}, nil)
}

func writeSSE(w http.ResponseWriter, deltas ...string) {
	w.Header().Set("Content-Type", "text/event-stream")
	flusher, _ := w.(http.Flusher)
	for _, d := range deltas {
		_, _ = fmt.Fprint(w, deltaLine(d))
		if flusher != nil {
			flusher.Flush()
		}
	}
	_, _ = fmt.Fprint(w, "data: [DONE]\n\n")
}

func TestStream_SendsRequestAndForwardsDeltas(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("unexpected authorization header: %s", r.Header.Get("Authorization"))
		}
		if r.Header.Get("Accept") != "text/event-stream" {
			t.Errorf("unexpected accept header: %s", r.Header.Get("Accept"))
		}
		var body struct {
			Model    string `json:"model"`
			Stream   bool   `json:"stream"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		if body.Model != "test-model" || !body.Stream || len(body.Messages) != 2 || body.Messages[0].Role != "system" {
			t.Errorf("unexpected request body: %+v", body)
		}
		writeSSE(w, "4", ".")
	}))
	defer server.Close()

	c := newTestClient(server.URL, true)
	deltas := make(chan string, 8)
	text, err := c.Complete(context.Background(), []conversation.Message{
		{Role: conversation.RoleSystem, Content: "be terse"},
		{Role: conversation.RoleUser, Content: "2+2?"},
	}, deltas)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "4." {
		t.Fatalf("expected 4., got %q", text)
	}
	close(deltas)
	var got []string
	for d := range deltas {
		got = append(got, d)
	}
	if strings.Join(got, "|") != "4|." {
		t.Fatalf("unexpected forwarded deltas: %v", got)
	}
}

func TestStream_RetriesServiceUnavailable(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		writeSSE(w, "ok")
	}))
	defer server.Close()

	text, err := newTestClient(server.URL, true).Complete(context.Background(), []conversation.Message{{Role: conversation.RoleUser, Content: "hi"}}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "ok" || calls.Load() != 2 {
		t.Fatalf("expected retry then success, got %q after %d calls", text, calls.Load())
	}
}

func TestStream_ClientErrorIsStatusKind(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = fmt.Fprint(w, `{"error":{"message":"invalid api key"}}`)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL, true).Complete(context.Background(), []conversation.Message{{Role: conversation.RoleUser, Content: "hi"}}, nil)
	var ce *Error
	if !errors.As(err, &ce) || ce.Kind != KindStatus {
		t.Fatalf("expected status error, got %v", err)
	}
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusUnauthorized || !strings.Contains(se.Body, "invalid api key") {
		t.Fatalf("expected 401 with body, got %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected no retry on 401, got %d calls", calls.Load())
	}
}

func TestStream_TimeoutIsTimeoutKind(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(time.Second):
		case <-r.Context().Done():
		}
	}))
	defer server.Close()

	c := NewClient(Config{APIKey: "k", BaseURL: server.URL, Model: "m", Stream: true, Timeout: 50 * time.Millisecond, MaxRetries: 3, RetryBackoff: time.Millisecond}, nil)
	start := time.Now()
	_, err := c.Complete(context.Background(), []conversation.Message{{Role: conversation.RoleUser, Content: "hi"}}, nil)
	var ce *Error
	if !errors.As(err, &ce) || !ce.Timeout() {
		t.Fatalf("expected timeout error, got %v", err)
	}
	if time.Since(start) > 900*time.Millisecond {
		t.Fatal("expected timeout to surface without waiting for the server")
	}
}

func TestStream_InterruptedBodyKeepsPartial(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hj, ok := w.(http.Hijacker)
		if !ok {
			t.Errorf("response writer does not support hijacking")
			return
		}
		conn, buf, err := hj.Hijack()
		if err != nil {
			t.Errorf("hijack failed: %v", err)
			return
		}
		defer func() {
			_ = conn.Close()
		}()
		_, _ = buf.WriteString("HTTP/1.1 200 OK\r\nContent-Type: text/event-stream\r\nContent-Length: 4096\r\n\r\n")
		_, _ = buf.WriteString(deltaLine("Hello"))
		_, _ = buf.WriteString(deltaLine(" there"))
		_ = buf.Flush()
	}))
	defer server.Close()

	text, err := newTestClient(server.URL, true).Complete(context.Background(), []conversation.Message{{Role: conversation.RoleUser, Content: "hi"}}, nil)
	if err != nil {
		t.Fatalf("expected partial text without error, got %v", err)
	}
	if text != "Hello there" {
		t.Fatalf("expected partial response, got %q", text)
	}
}

func TestCompleteOnce_ReturnsFirstChoice(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprint(w, `{"id":"c1","object":"chat.completion","model":"test-model","choices":[{"index":0,"message":{"role":"assistant","content":"Hi!"},"finish_reason":"stop"}]}`)
	}))
	defer server.Close()

	text, err := newTestClient(server.URL, false).Complete(context.Background(), []conversation.Message{{Role: conversation.RoleUser, Content: "hi"}}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "Hi!" {
		t.Fatalf("expected Hi!, got %q", text)
	}
}

func TestCompleteOnce_NoChoicesIsDecodeError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprint(w, `{"id":"c1","choices":[]}`)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL, false).Complete(context.Background(), []conversation.Message{{Role: conversation.RoleUser, Content: "hi"}}, nil)
	var ce *Error
	if !errors.As(err, &ce) || ce.Kind != KindDecode {
		t.Fatalf("expected decode error, got %v", err)
	}
}

func TestCompleteOnce_ServerErrorIsStatusKind(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = fmt.Fprint(w, `{"error":{"message":"bad model","type":"invalid_request_error"}}`)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL, false).Complete(context.Background(), []conversation.Message{{Role: conversation.RoleUser, Content: "hi"}}, nil)
	var ce *Error
	if !errors.As(err, &ce) || ce.Kind != KindStatus {
		t.Fatalf("expected status error, got %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected a single attempt, got %d", calls.Load())
	}
}
