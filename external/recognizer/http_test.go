package recognizer

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/foxseedlab/n7chat/internal/audio"
)

func TestHTTPRecognizer_PostsWAV(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "audio/wav" {
			t.Errorf("unexpected content type: %s", r.Header.Get("Content-Type"))
		}
		body, _ := io.ReadAll(r.Body)
		info, err := audio.DecodeWAV(body)
		if err != nil {
			t.Errorf("failed to decode wav: %v", err)
		}
		if info.SampleRate != 16000 || info.Channels != 1 || len(info.PCM) != 8 {
			t.Errorf("unexpected wav: rate=%d channels=%d bytes=%d", info.SampleRate, info.Channels, len(info.PCM))
		}
		_, _ = fmt.Fprint(w, `{"text":"  hello world "}`)
	}))
	defer server.Close()

	r := NewHTTPRecognizer(server.URL, "en-US", 16000, 4)
	text, err := r.Transcribe(context.Background(), []float32{0, 0.5, -0.5, 0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "hello world" {
		t.Fatalf("expected trimmed text, got %q", text)
	}
}

func TestHTTPRecognizer_Non2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	r := NewHTTPRecognizer(server.URL, "", 16000, 4)
	if _, err := r.Transcribe(context.Background(), []float32{0.1}); err == nil {
		t.Fatal("expected error for non-2xx response")
	}
}

func TestHTTPRecognizer_EmptyBufferSkipsRequest(t *testing.T) {
	r := NewHTTPRecognizer("http://127.0.0.1:1", "", 16000, 4)
	text, err := r.Transcribe(context.Background(), nil)
	if err != nil || text != "" {
		t.Fatalf("expected empty result, got %q %v", text, err)
	}
}

func TestSplitLanguages(t *testing.T) {
	got := SplitLanguages(" en-US, mni-IN ,,")
	if len(got) != 2 || got[0] != "en-US" || got[1] != "mni-IN" {
		t.Fatalf("unexpected languages: %v", got)
	}
}
