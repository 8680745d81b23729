package metrics

import (
	"time"

	"github.com/foxseedlab/n7chat/internal/script"
	"github.com/foxseedlab/n7chat/internal/translator"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics implements the observer hooks of the audio, transcriber,
// conversation and pipeline packages.
type Metrics struct {
	ChunksCaptured prometheus.Counter
	ChunksDropped  prometheus.Counter

	TranscriptionPasses   prometheus.Counter
	TranscriptionFailures prometheus.Counter
	TranscriptionDuration prometheus.Histogram
	TranscriptEvents      *prometheus.CounterVec

	Turns               *prometheus.CounterVec
	TranslationFailures *prometheus.CounterVec
	CompletionDuration  prometheus.Histogram
	CompletionFailures  prometheus.Counter

	VoiceListening prometheus.Gauge
	AbandonedJoins *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		ChunksCaptured: f.NewCounter(prometheus.CounterOpts{
			Name: "n7chat_audio_chunks_captured_total",
			Help: "Audio chunks enqueued for transcription",
		}),
		ChunksDropped: f.NewCounter(prometheus.CounterOpts{
			Name: "n7chat_audio_chunks_dropped_total",
			Help: "Audio chunks dropped because the queue was full",
		}),
		TranscriptionPasses: f.NewCounter(prometheus.CounterOpts{
			Name: "n7chat_transcription_passes_total",
			Help: "Recognizer passes over the utterance buffer",
		}),
		TranscriptionFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "n7chat_transcription_failures_total",
			Help: "Recognizer passes that returned an error",
		}),
		TranscriptionDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "n7chat_transcription_duration_seconds",
			Help:    "Recognizer pass latency",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 8),
		}),
		TranscriptEvents: f.NewCounterVec(prometheus.CounterOpts{
			Name: "n7chat_transcript_events_total",
			Help: "Transcript events published",
		}, []string{"kind"}),
		Turns: f.NewCounterVec(prometheus.CounterOpts{
			Name: "n7chat_turns_total",
			Help: "Conversation turns handled",
		}, []string{"script"}),
		TranslationFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "n7chat_translation_failures_total",
			Help: "Translations that failed or were implausibly short",
		}, []string{"direction"}),
		CompletionDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "n7chat_completion_duration_seconds",
			Help:    "Completion request latency",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 8),
		}),
		CompletionFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "n7chat_completion_failures_total",
			Help: "Completion requests answered with an apology",
		}),
		VoiceListening: f.NewGauge(prometheus.GaugeOpts{
			Name: "n7chat_voice_listening",
			Help: "1 while voice input is listening",
		}),
		AbandonedJoins: f.NewCounterVec(prometheus.CounterOpts{
			Name: "n7chat_abandoned_goroutines_total",
			Help: "Pipeline goroutines left running after a join timeout",
		}, []string{"goroutine"}),
	}
}

func (m *Metrics) ChunkCaptured() { m.ChunksCaptured.Inc() }
func (m *Metrics) ChunkDropped()  { m.ChunksDropped.Inc() }

func (m *Metrics) TranscriptionPass(d time.Duration, err error) {
	m.TranscriptionPasses.Inc()
	m.TranscriptionDuration.Observe(d.Seconds())
	if err != nil {
		m.TranscriptionFailures.Inc()
	}
}

func (m *Metrics) TranscriptEmitted(final bool) {
	kind := "partial"
	if final {
		kind = "final"
	}
	m.TranscriptEvents.WithLabelValues(kind).Inc()
}

func (m *Metrics) TranslationFailed(dir translator.Direction) {
	m.TranslationFailures.WithLabelValues(string(dir)).Inc()
}

func (m *Metrics) CompletionFinished(d time.Duration, err error) {
	m.CompletionDuration.Observe(d.Seconds())
	if err != nil {
		m.CompletionFailures.Inc()
	}
}

func (m *Metrics) TurnHandled(s script.Script) {
	m.Turns.WithLabelValues(s.String()).Inc()
}

func (m *Metrics) Listening(on bool) {
	if on {
		m.VoiceListening.Set(1)
		return
	}
	m.VoiceListening.Set(0)
}

func (m *Metrics) JoinAbandoned(goroutine string) {
	m.AbandonedJoins.WithLabelValues(goroutine).Inc()
}
