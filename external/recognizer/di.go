package recognizer

import (
	"fmt"

	"github.com/foxseedlab/n7chat/internal/config"
	"github.com/foxseedlab/n7chat/internal/transcriber"
	"github.com/samber/do/v2"
)

// RegisterDI provides a nil recognizer when RECOGNIZER_BACKEND=none, which
// leaves the pipeline in typed-only mode.
func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (transcriber.Recognizer, error) {
		c := do.MustInvoke[*config.Config](i)
		switch c.RecognizerBackend {
		case config.RecognizerBackendNone:
			return nil, nil
		case config.RecognizerBackendCloudSpeech:
			return NewCloudSpeechRecognizer(CloudSpeechConfig{
				ProjectID:       c.GoogleCloudProjectID,
				CredentialsJSON: c.GoogleCloudCredentialsJSON,
				Languages:       SplitLanguages(c.TranscribeLanguage),
				Location:        c.GoogleCloudSpeechLocation,
				Model:           c.GoogleCloudSpeechModel,
				SampleRate:      c.AudioSampleRate,
				ChunkSize:       c.AudioChunkSize,
			}), nil
		case config.RecognizerBackendHTTP:
			return NewHTTPRecognizer(c.RecognizerHTTPURL, c.TranscribeLanguage, c.AudioSampleRate, c.AudioChunkSize), nil
		default:
			return nil, fmt.Errorf("unknown recognizer backend %q", c.RecognizerBackend)
		}
	})
}
