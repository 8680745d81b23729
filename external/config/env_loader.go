package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/caarlos0/env/v11"
	internalconfig "github.com/foxseedlab/n7chat/internal/config"
	"github.com/joho/godotenv"
)

const defaultSystemPrompt = "You are N7, a helpful bilingual assistant. Answer clearly and briefly. " +
	"When the user writes in Meitei Mayek you receive an English translation of their message; answer in English."

type envConfig struct {
	Env      string `env:"ENV" envDefault:"production"`
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":5000"`

	LLMAPIKey         string  `env:"LLM_API_KEY,required"`
	LLMBaseURL        string  `env:"LLM_BASE_URL" envDefault:"https://api.groq.com/openai/v1"`
	LLMModel          string  `env:"LLM_MODEL" envDefault:"openai/gpt-oss-120b"`
	LLMStream         bool    `env:"LLM_STREAM" envDefault:"true"`
	LLMTimeoutSec     int     `env:"LLM_TIMEOUT_SEC" envDefault:"10"`
	LLMMaxRetries     int     `env:"LLM_MAX_RETRIES" envDefault:"3"`
	LLMRetryBackoffMs int     `env:"LLM_RETRY_BACKOFF_MS" envDefault:"500"`
	LLMTemperature    float32 `env:"LLM_TEMPERATURE" envDefault:"0.7"`
	LLMMaxTokens      int     `env:"LLM_MAX_TOKENS" envDefault:"1024"`
	SystemPrompt      string  `env:"SYSTEM_PROMPT"`

	RecognizerBackend          string `env:"RECOGNIZER_BACKEND" envDefault:"none"`
	RecognizerHTTPURL          string `env:"RECOGNIZER_HTTP_URL"`
	GoogleCloudProjectID       string `env:"GOOGLE_CLOUD_PROJECT_ID"`
	GoogleCloudCredentialsJSON string `env:"GOOGLE_CLOUD_CREDENTIALS_JSON"`
	GoogleCloudSpeechLocation  string `env:"GOOGLE_CLOUD_SPEECH_LOCATION" envDefault:"asia-south1"`
	GoogleCloudSpeechModel     string `env:"GOOGLE_CLOUD_SPEECH_MODEL" envDefault:"chirp_2"`
	TranscribeLanguage         string `env:"TRANSCRIBE_LANGUAGE" envDefault:"en-US"`

	AudioSampleRate       int     `env:"AUDIO_SAMPLE_RATE" envDefault:"16000"`
	AudioChunkSize        int     `env:"AUDIO_CHUNK_SIZE" envDefault:"4096"`
	AudioQueueSize        int     `env:"AUDIO_QUEUE_SIZE" envDefault:"64"`
	TranscribeEveryChunks int     `env:"TRANSCRIBE_EVERY_CHUNKS" envDefault:"2"`
	SilenceFinalizeMs     int     `env:"SILENCE_FINALIZE_MS" envDefault:"0"`
	SilenceRMSThreshold   float64 `env:"SILENCE_RMS_THRESHOLD" envDefault:"0.01"`
	StopJoinTimeoutMs     int     `env:"STOP_JOIN_TIMEOUT_MS" envDefault:"2000"`

	MeiteiMinCodepoints    int    `env:"MEITEI_MIN_CODEPOINTS" envDefault:"3"`
	TranslationMinInbound  int    `env:"TRANSLATION_MIN_INBOUND" envDefault:"3"`
	TranslationMinOutbound int    `env:"TRANSLATION_MIN_OUTBOUND" envDefault:"10"`
	TranslatePrimaryURL    string `env:"TRANSLATE_PRIMARY_URL" envDefault:"https://translate.googleapis.com/translate_a/single"`
	TranslateFallbackURL   string `env:"TRANSLATE_FALLBACK_URL" envDefault:"https://translate.argosopentech.com/translate"`
	TranslateTimeoutSec    int    `env:"TRANSLATE_TIMEOUT_SEC" envDefault:"10"`

	TTSURL              string `env:"TTS_URL"`
	TTSVoiceDescription string `env:"TTS_VOICE_DESCRIPTION" envDefault:"A calm female voice speaking clearly at a moderate pace."`
	SpeakReplies        bool   `env:"SPEAK_REPLIES" envDefault:"false"`

	DatabaseURL    string `env:"DATABASE_URL"`
	TurnWebhookURL string `env:"TURN_WEBHOOK_URL"`

	DiscordToken          string `env:"DISCORD_TOKEN"`
	DiscordGuildID        string `env:"DISCORD_GUILD_ID"`
	DiscordVoiceChannelID string `env:"DISCORD_VOICE_CHANNEL_ID"`
	DiscordTextChannelID  string `env:"DISCORD_TEXT_CHANNEL_ID"`
}

// Load reads an optional .env file, then the process environment.
func Load() (*internalconfig.Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env file: %w", err)
	}

	var raw envConfig
	if err := env.Parse(&raw); err != nil {
		return nil, fmt.Errorf("environment variables are invalid or missing: %w", err)
	}

	systemPrompt := raw.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = defaultSystemPrompt
	}

	cfg := &internalconfig.Config{
		Env:                        raw.Env,
		HTTPAddr:                   raw.HTTPAddr,
		LLMAPIKey:                  raw.LLMAPIKey,
		LLMBaseURL:                 raw.LLMBaseURL,
		LLMModel:                   raw.LLMModel,
		LLMStream:                  raw.LLMStream,
		LLMTimeoutSec:              raw.LLMTimeoutSec,
		LLMMaxRetries:              raw.LLMMaxRetries,
		LLMRetryBackoffMs:          raw.LLMRetryBackoffMs,
		LLMTemperature:             raw.LLMTemperature,
		LLMMaxTokens:               raw.LLMMaxTokens,
		SystemPrompt:               systemPrompt,
		RecognizerBackend:          raw.RecognizerBackend,
		RecognizerHTTPURL:          raw.RecognizerHTTPURL,
		GoogleCloudProjectID:       raw.GoogleCloudProjectID,
		GoogleCloudCredentialsJSON: raw.GoogleCloudCredentialsJSON,
		GoogleCloudSpeechLocation:  raw.GoogleCloudSpeechLocation,
		GoogleCloudSpeechModel:     raw.GoogleCloudSpeechModel,
		TranscribeLanguage:         raw.TranscribeLanguage,
		AudioSampleRate:            raw.AudioSampleRate,
		AudioChunkSize:             raw.AudioChunkSize,
		AudioQueueSize:             raw.AudioQueueSize,
		TranscribeEveryChunks:      raw.TranscribeEveryChunks,
		SilenceFinalizeMs:          raw.SilenceFinalizeMs,
		SilenceRMSThreshold:        raw.SilenceRMSThreshold,
		StopJoinTimeoutMs:          raw.StopJoinTimeoutMs,
		MeiteiMinCodepoints:        raw.MeiteiMinCodepoints,
		TranslationMinInbound:      raw.TranslationMinInbound,
		TranslationMinOutbound:     raw.TranslationMinOutbound,
		TranslatePrimaryURL:        raw.TranslatePrimaryURL,
		TranslateFallbackURL:       raw.TranslateFallbackURL,
		TranslateTimeoutSec:        raw.TranslateTimeoutSec,
		TTSURL:                     raw.TTSURL,
		TTSVoiceDescription:        raw.TTSVoiceDescription,
		SpeakReplies:               raw.SpeakReplies,
		DatabaseURL:                raw.DatabaseURL,
		TurnWebhookURL:             raw.TurnWebhookURL,
		DiscordToken:               raw.DiscordToken,
		DiscordGuildID:             raw.DiscordGuildID,
		DiscordVoiceChannelID:      raw.DiscordVoiceChannelID,
		DiscordTextChannelID:       raw.DiscordTextChannelID,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
