package speaker

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/foxseedlab/n7chat/internal/audio"
)

func TestCleanText(t *testing.T) {
	got := CleanText("**Hello**, ꯍꯥꯏ! (see #3) — ok?")
	if got != "Hello, ꯍꯥꯏ! see 3  ok?" {
		t.Fatalf("unexpected cleaned text: %q", got)
	}
}

func TestHTTPSpeaker_ResponseShapes(t *testing.T) {
	clip := []byte("RIFFclip")
	encoded := base64.StdEncoding.EncodeToString(clip)
	cases := map[string]string{
		"top level": fmt.Sprintf(`{"audio":%q}`, encoded),
		"data":      fmt.Sprintf(`{"data":{"audio":%q}}`, encoded),
		"result":    fmt.Sprintf(`{"result":{"audio":%q}}`, encoded),
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				var req map[string]string
				if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
					t.Errorf("failed to decode request: %v", err)
				}
				if req["prompt"] != "Hello." || req["description"] != "calm voice" {
					t.Errorf("unexpected request: %v", req)
				}
				_, _ = fmt.Fprint(w, body)
			}))
			defer server.Close()

			got, err := NewHTTPSpeaker(server.URL, "calm voice").Synthesize(context.Background(), "Hello.")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(got) != string(clip) {
				t.Fatalf("unexpected clip: %q", got)
			}
		})
	}
}

func TestHTTPSpeaker_MissingAudio(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, `{"status":"ok"}`)
	}))
	defer server.Close()

	_, err := NewHTTPSpeaker(server.URL, "").Synthesize(context.Background(), "Hello.")
	if !errors.Is(err, ErrNoAudio) {
		t.Fatalf("expected ErrNoAudio, got %v", err)
	}
}

func TestHTTPSpeaker_BlankTextSkipsRequest(t *testing.T) {
	got, err := NewHTTPSpeaker("http://127.0.0.1:1", "").Synthesize(context.Background(), "***")
	if err != nil || got != nil {
		t.Fatalf("expected no clip, got %v %v", got, err)
	}
}

func TestClipPCM(t *testing.T) {
	wav := audio.EncodeWAV([]float32{0, 0.5}, 22050)
	pcm, rate, channels, err := clipPCM(wav)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rate != 22050 || channels != 1 || len(pcm) != 4 {
		t.Fatalf("unexpected wav decode: rate=%d channels=%d bytes=%d", rate, channels, len(pcm))
	}

	raw := []byte{1, 0, 2, 0}
	pcm, rate, _, err = clipPCM(raw)
	if err != nil || rate != rawClipSampleRate || len(pcm) != 4 {
		t.Fatalf("expected raw clip passthrough, got rate=%d err=%v", rate, err)
	}
}
