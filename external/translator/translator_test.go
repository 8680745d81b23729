package translator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/foxseedlab/n7chat/internal/translator"
)

func TestGTXTranslator_ConcatenatesSegments(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("client") != "gtx" || q.Get("dt") != "t" {
			t.Errorf("unexpected query: %s", r.URL.RawQuery)
		}
		if q.Get("sl") != "mni-Mtei" || q.Get("tl") != "en" || q.Get("q") != "ꯍꯥꯏ ꯑꯩ" {
			t.Errorf("unexpected language pair or text: %s", r.URL.RawQuery)
		}
		_, _ = fmt.Fprint(w, `[[["Hello, ","ꯍꯥꯏ",null,null,10],["I am here",null,null,null,1]],null,"mni-Mtei"]`)
	}))
	defer server.Close()

	tr := NewGTXTranslator(server.URL, translator.MeiteiToEnglish, server.Client())
	got, err := tr.Translate(context.Background(), "ꯍꯥꯏ ꯑꯩ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "Hello, I am here" {
		t.Fatalf("unexpected translation: %q", got)
	}
}

func TestGTXTranslator_EmptyResult(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, `[null,null,"en"]`)
	}))
	defer server.Close()

	_, err := NewGTXTranslator(server.URL, translator.EnglishToMeitei, server.Client()).Translate(context.Background(), "hello")
	var te *translator.Error
	if !errors.As(err, &te) || te.Provider != "gtx" || !errors.Is(err, translator.ErrEmptyResult) {
		t.Fatalf("expected gtx empty result error, got %v", err)
	}
}

func TestGTXTranslator_Non200(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	if _, err := NewGTXTranslator(server.URL, translator.EnglishToMeitei, server.Client()).Translate(context.Background(), "hello"); err == nil {
		t.Fatal("expected error for non-200 response")
	}
}

func TestLibreTranslator_PostsJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method: %s", r.Method)
		}
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("failed to decode body: %v", err)
		}
		if body["source"] != "en" || body["target"] != "mni" || body["q"] != "hello" {
			t.Errorf("unexpected body: %v", body)
		}
		_, _ = fmt.Fprint(w, `{"translatedText":"ꯍꯦꯜꯂꯣ"}`)
	}))
	defer server.Close()

	got, err := NewLibreTranslator(server.URL, translator.EnglishToMeitei, server.Client()).Translate(context.Background(), "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "ꯍꯦꯜꯂꯣ" {
		t.Fatalf("unexpected translation: %q", got)
	}
}

type stubTranslator struct {
	out   string
	err   error
	calls int
}

func (s *stubTranslator) Translate(context.Context, string) (string, error) {
	s.calls++
	return s.out, s.err
}

func TestChain_FallsBackOnErrorAndShortResult(t *testing.T) {
	failing := &stubTranslator{err: &translator.Error{Provider: "gtx", Err: errors.New("boom")}}
	short := &stubTranslator{out: "ok"}
	good := &stubTranslator{out: " fine thanks "}

	got, err := NewChain(3, failing, short, good).Translate(context.Background(), "text")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "fine thanks" {
		t.Fatalf("unexpected translation: %q", got)
	}
	if failing.calls != 1 || short.calls != 1 || good.calls != 1 {
		t.Fatal("expected each provider to be tried once")
	}
}

func TestChain_AllFail(t *testing.T) {
	_, err := NewChain(3, &stubTranslator{out: ""}, &stubTranslator{out: "a"}).Translate(context.Background(), "text")
	var te *translator.Error
	if !errors.As(err, &te) || te.Provider != "chain" || !errors.Is(err, translator.ErrEmptyResult) {
		t.Fatalf("expected chain empty result error, got %v", err)
	}
}

func TestChain_StopsAfterFirstSuccess(t *testing.T) {
	first := &stubTranslator{out: "first result"}
	second := &stubTranslator{out: "second result"}
	if _, err := NewChain(3, first, second).Translate(context.Background(), "text"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second.calls != 0 {
		t.Fatal("expected the second provider to be skipped")
	}
}
