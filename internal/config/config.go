package config

import (
	"fmt"
	"time"
)

const (
	RecognizerBackendNone        = "none"
	RecognizerBackendCloudSpeech = "cloud_speech"
	RecognizerBackendHTTP        = "http"
)

type Config struct {
	Env      string
	HTTPAddr string

	LLMAPIKey         string
	LLMBaseURL        string
	LLMModel          string
	LLMStream         bool
	LLMTimeoutSec     int
	LLMMaxRetries     int
	LLMRetryBackoffMs int
	LLMTemperature    float32
	LLMMaxTokens      int
	SystemPrompt      string

	RecognizerBackend          string
	RecognizerHTTPURL          string
	GoogleCloudProjectID       string
	GoogleCloudCredentialsJSON string
	GoogleCloudSpeechLocation  string
	GoogleCloudSpeechModel     string
	TranscribeLanguage         string

	AudioSampleRate       int
	AudioChunkSize        int
	AudioQueueSize        int
	TranscribeEveryChunks int
	SilenceFinalizeMs     int
	SilenceRMSThreshold   float64
	StopJoinTimeoutMs     int

	MeiteiMinCodepoints    int
	TranslationMinInbound  int
	TranslationMinOutbound int
	TranslatePrimaryURL    string
	TranslateFallbackURL   string
	TranslateTimeoutSec    int

	TTSURL              string
	TTSVoiceDescription string
	SpeakReplies        bool

	DatabaseURL    string
	TurnWebhookURL string

	DiscordToken          string
	DiscordGuildID        string
	DiscordVoiceChannelID string
	DiscordTextChannelID  string
}

func (c *Config) Validate() error {
	for _, req := range c.requiredFieldChecks() {
		if req.value == "" {
			return fmt.Errorf("%s is required", req.name)
		}
	}
	for _, p := range c.positiveFieldChecks() {
		if p.value <= 0 {
			return fmt.Errorf("%s must be positive, got %d", p.name, p.value)
		}
	}
	if c.LLMMaxRetries < 0 {
		return fmt.Errorf("LLM_MAX_RETRIES must not be negative, got %d", c.LLMMaxRetries)
	}
	if c.SilenceFinalizeMs < 0 {
		return fmt.Errorf("SILENCE_FINALIZE_MS must not be negative, got %d", c.SilenceFinalizeMs)
	}
	switch c.RecognizerBackend {
	case RecognizerBackendNone:
	case RecognizerBackendCloudSpeech:
		if c.GoogleCloudProjectID == "" {
			return fmt.Errorf("GOOGLE_CLOUD_PROJECT_ID is required when RECOGNIZER_BACKEND=%s", RecognizerBackendCloudSpeech)
		}
	case RecognizerBackendHTTP:
		if c.RecognizerHTTPURL == "" {
			return fmt.Errorf("RECOGNIZER_HTTP_URL is required when RECOGNIZER_BACKEND=%s", RecognizerBackendHTTP)
		}
	default:
		return fmt.Errorf("RECOGNIZER_BACKEND is invalid: %q", c.RecognizerBackend)
	}
	if c.SpeakReplies && c.TTSURL == "" {
		return fmt.Errorf("TTS_URL is required when SPEAK_REPLIES=true")
	}
	return nil
}

type requiredEnvField struct {
	name  string
	value string
}

func (c *Config) requiredFieldChecks() []requiredEnvField {
	return []requiredEnvField{
		{name: "HTTP_ADDR", value: c.HTTPAddr},
		{name: "LLM_API_KEY", value: c.LLMAPIKey},
		{name: "LLM_BASE_URL", value: c.LLMBaseURL},
		{name: "LLM_MODEL", value: c.LLMModel},
		{name: "TRANSLATE_PRIMARY_URL", value: c.TranslatePrimaryURL},
	}
}

type positiveEnvField struct {
	name  string
	value int
}

func (c *Config) positiveFieldChecks() []positiveEnvField {
	return []positiveEnvField{
		{name: "LLM_TIMEOUT_SEC", value: c.LLMTimeoutSec},
		{name: "LLM_MAX_TOKENS", value: c.LLMMaxTokens},
		{name: "AUDIO_SAMPLE_RATE", value: c.AudioSampleRate},
		{name: "AUDIO_CHUNK_SIZE", value: c.AudioChunkSize},
		{name: "AUDIO_QUEUE_SIZE", value: c.AudioQueueSize},
		{name: "TRANSCRIBE_EVERY_CHUNKS", value: c.TranscribeEveryChunks},
		{name: "STOP_JOIN_TIMEOUT_MS", value: c.StopJoinTimeoutMs},
		{name: "MEITEI_MIN_CODEPOINTS", value: c.MeiteiMinCodepoints},
		{name: "TRANSLATE_TIMEOUT_SEC", value: c.TranslateTimeoutSec},
	}
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func (c *Config) VoiceConfigured() bool {
	return c.RecognizerBackend != RecognizerBackendNone
}

func (c *Config) DiscordConfigured() bool {
	return c.DiscordToken != "" && c.DiscordGuildID != "" && c.DiscordVoiceChannelID != ""
}

func (c *Config) LLMTimeout() time.Duration {
	return time.Duration(c.LLMTimeoutSec) * time.Second
}

func (c *Config) LLMRetryBackoff() time.Duration {
	return time.Duration(c.LLMRetryBackoffMs) * time.Millisecond
}

func (c *Config) TranslateTimeout() time.Duration {
	return time.Duration(c.TranslateTimeoutSec) * time.Second
}

func (c *Config) StopJoinTimeout() time.Duration {
	return time.Duration(c.StopJoinTimeoutMs) * time.Millisecond
}

func (c *Config) SilenceFinalize() time.Duration {
	return time.Duration(c.SilenceFinalizeMs) * time.Millisecond
}
