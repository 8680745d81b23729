package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/foxseedlab/n7chat/internal/webhook"
)

func TestSendTurn_EmptyWebhookURL(t *testing.T) {
	sender := NewHTTPSender("")
	if err := sender.SendTurn(context.Background(), webhook.TurnPayload{Transcript: "hi"}); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
}

func TestSendTurn_Success(t *testing.T) {
	var got webhook.TurnPayload

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method: %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("unexpected content type: %s", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("failed to decode payload: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	sender := NewHTTPSender(server.URL)
	payload := webhook.TurnPayload{
		TurnID:         "t1",
		SessionID:      "s1",
		Source:         "voice",
		Script:         "meitei",
		Transcript:     "ꯍꯥꯏ ꯑꯩ",
		Response:       "[Translation failed] Hello",
		OutboundFailed: true,
	}
	if err := sender.SendTurn(context.Background(), payload); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if got != payload {
		t.Fatalf("unexpected payload: %+v", got)
	}
}

func TestSendTurn_Non2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("bad payload\n"))
	}))
	defer server.Close()

	sender := NewHTTPSender(server.URL)
	err := sender.SendTurn(context.Background(), webhook.TurnPayload{TurnID: "t1"})
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if statusErr.StatusCode != http.StatusBadRequest || statusErr.Body != "bad payload" {
		t.Fatalf("unexpected status error: %+v", statusErr)
	}
}

func TestSendTurn_ConnectionErrorIsWrapped(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := server.URL
	server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := NewHTTPSender(url).SendTurn(ctx, webhook.TurnPayload{TurnID: "t1"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected wrapped context.Canceled, got %v", err)
	}
}
