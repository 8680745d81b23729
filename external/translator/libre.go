package translator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/foxseedlab/n7chat/internal/translator"
)

// LibreTranslator speaks the LibreTranslate POST /translate API.
type LibreTranslator struct {
	endpoint string
	source   string
	target   string
	client   *http.Client
}

func NewLibreTranslator(endpoint string, dir translator.Direction, client *http.Client) *LibreTranslator {
	source, target := "en", "mni"
	if dir == translator.MeiteiToEnglish {
		source, target = "mni", "en"
	}
	return &LibreTranslator{endpoint: endpoint, source: source, target: target, client: client}
}

func (t *LibreTranslator) Translate(ctx context.Context, text string) (string, error) {
	out, err := t.translate(ctx, text)
	if err != nil {
		return "", &translator.Error{Provider: "libre", Err: err}
	}
	return out, nil
}

func (t *LibreTranslator) translate(ctx context.Context, text string) (string, error) {
	b, err := json.Marshal(map[string]string{
		"source": t.source,
		"target": t.target,
		"q":      text,
	})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", browserUserAgent)
	resp, err := t.client.Do(req)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	var body struct {
		TranslatedText string `json:"translatedText"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if strings.TrimSpace(body.TranslatedText) == "" {
		return "", translator.ErrEmptyResult
	}
	return body.TranslatedText, nil
}
