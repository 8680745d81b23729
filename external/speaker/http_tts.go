package speaker

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"
)

const ttsTimeout = 60 * time.Second

var (
	ErrNoAudio = errors.New("tts response has no audio")

	// Keeps Latin letters, digits, whitespace, Meitei Mayek and basic punctuation.
	unspeakable = regexp.MustCompile(`[^a-zA-Z0-9\s\x{ABC0}-\x{ABFF}.,?!]`)
)

// HTTPSpeaker posts {prompt, description} and expects base64 audio under
// audio, data.audio or result.audio.
type HTTPSpeaker struct {
	url         string
	description string
	client      *http.Client
}

func NewHTTPSpeaker(url, description string) *HTTPSpeaker {
	return &HTTPSpeaker{
		url:         url,
		description: description,
		client:      &http.Client{Timeout: ttsTimeout},
	}
}

func CleanText(text string) string {
	return strings.TrimSpace(unspeakable.ReplaceAllString(text, ""))
}

func (s *HTTPSpeaker) Synthesize(ctx context.Context, text string) ([]byte, error) {
	cleaned := CleanText(text)
	if cleaned == "" {
		return nil, nil
	}
	b, err := json.Marshal(map[string]string{
		"prompt":      cleaned,
		"description": s.description,
	})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tts request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("tts returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var body struct {
		Audio string `json:"audio"`
		Data  struct {
			Audio string `json:"audio"`
		} `json:"data"`
		Result struct {
			Audio string `json:"audio"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode tts response: %w", err)
	}
	encoded := firstNonEmpty(body.Audio, body.Data.Audio, body.Result.Audio)
	if encoded == "" {
		return nil, ErrNoAudio
	}
	clip, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode tts audio: %w", err)
	}
	return clip, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
