package recognizer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/foxseedlab/n7chat/internal/audio"
)

const httpRecognizerTimeout = 30 * time.Second

// HTTPRecognizer posts the utterance as a 16-bit WAV file and reads {"text"}
// back.
type HTTPRecognizer struct {
	url        string
	language   string
	sampleRate int
	chunkSize  int
	client     *http.Client
}

func NewHTTPRecognizer(url, language string, sampleRate, chunkSize int) *HTTPRecognizer {
	return &HTTPRecognizer{
		url:        url,
		language:   language,
		sampleRate: sampleRate,
		chunkSize:  chunkSize,
		client:     &http.Client{Timeout: httpRecognizerTimeout},
	}
}

func (r *HTTPRecognizer) SampleRate() int { return r.sampleRate }
func (r *HTTPRecognizer) ChunkSize() int  { return r.chunkSize }

func (r *HTTPRecognizer) Transcribe(ctx context.Context, samples []float32) (string, error) {
	if len(samples) == 0 {
		return "", nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(audio.EncodeWAV(samples, r.sampleRate)))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "audio/wav")
	if r.language != "" {
		req.Header.Set("Content-Language", r.language)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("recognize: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("recognizer returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	var body struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode recognizer response: %w", err)
	}
	return strings.TrimSpace(body.Text), nil
}
