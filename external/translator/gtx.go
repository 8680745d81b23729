package translator

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/foxseedlab/n7chat/internal/translator"
)

const (
	browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

	gtxMeitei  = "mni-Mtei"
	gtxEnglish = "en"
)

// GTXTranslator calls the public translate_a/single endpoint.
type GTXTranslator struct {
	endpoint string
	source   string
	target   string
	client   *http.Client
}

func NewGTXTranslator(endpoint string, dir translator.Direction, client *http.Client) *GTXTranslator {
	source, target := gtxEnglish, gtxMeitei
	if dir == translator.MeiteiToEnglish {
		source, target = gtxMeitei, gtxEnglish
	}
	return &GTXTranslator{endpoint: endpoint, source: source, target: target, client: client}
}

func (t *GTXTranslator) Translate(ctx context.Context, text string) (string, error) {
	out, err := t.translate(ctx, text)
	if err != nil {
		return "", &translator.Error{Provider: "gtx", Err: err}
	}
	return out, nil
}

func (t *GTXTranslator) translate(ctx context.Context, text string) (string, error) {
	u, err := url.Parse(t.endpoint)
	if err != nil {
		return "", fmt.Errorf("parse endpoint: %w", err)
	}
	q := u.Query()
	q.Set("client", "gtx")
	q.Set("dt", "t")
	q.Set("sl", t.source)
	q.Set("tl", t.target)
	q.Set("q", text)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", err
	}
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

	// The body is a nested array; only [0][i][0] carries translated text.
	var body []json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(body) == 0 {
		return "", translator.ErrEmptyResult
	}
	var segments [][]any
	if err := json.Unmarshal(body[0], &segments); err != nil {
		return "", translator.ErrEmptyResult
	}
	var b strings.Builder
	for _, seg := range segments {
		if len(seg) == 0 {
			continue
		}
		if s, ok := seg[0].(string); ok {
			b.WriteString(s)
		}
	}
	if strings.TrimSpace(b.String()) == "" {
		return "", translator.ErrEmptyResult
	}
	return b.String(), nil
}
