package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/foxseedlab/n7chat/internal/script"
	"github.com/foxseedlab/n7chat/internal/translator"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_RecordsObserverHooks(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ChunkCaptured()
	m.ChunkCaptured()
	m.ChunkDropped()
	m.TranscriptionPass(100*time.Millisecond, nil)
	m.TranscriptionPass(100*time.Millisecond, errors.New("boom"))
	m.TranscriptEmitted(true)
	m.TranslationFailed(translator.EnglishToMeitei)
	m.CompletionFinished(time.Second, errors.New("timeout"))
	m.TurnHandled(script.Meitei)
	m.Listening(true)

	if got := testutil.ToFloat64(m.ChunksCaptured); got != 2 {
		t.Fatalf("expected 2 captured chunks, got %v", got)
	}
	if got := testutil.ToFloat64(m.ChunksDropped); got != 1 {
		t.Fatalf("expected 1 dropped chunk, got %v", got)
	}
	if got := testutil.ToFloat64(m.TranscriptionFailures); got != 1 {
		t.Fatalf("expected 1 transcription failure, got %v", got)
	}
	if got := testutil.ToFloat64(m.TranscriptEvents.WithLabelValues("final")); got != 1 {
		t.Fatalf("expected 1 final event, got %v", got)
	}
	if got := testutil.ToFloat64(m.TranslationFailures.WithLabelValues("en-mni")); got != 1 {
		t.Fatalf("expected 1 outbound translation failure, got %v", got)
	}
	if got := testutil.ToFloat64(m.Turns.WithLabelValues("meitei")); got != 1 {
		t.Fatalf("expected 1 meitei turn, got %v", got)
	}
	if got := testutil.ToFloat64(m.VoiceListening); got != 1 {
		t.Fatalf("expected listening gauge 1, got %v", got)
	}
}

func TestNew_SeparateRegistries(t *testing.T) {
	New(prometheus.NewRegistry())
	New(prometheus.NewRegistry())
}
