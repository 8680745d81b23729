package recognizer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"cloud.google.com/go/auth/credentials"
	speech "cloud.google.com/go/speech/apiv2"
	speechpb "cloud.google.com/go/speech/apiv2/speechpb"
	"github.com/foxseedlab/n7chat/internal/audio"
	"github.com/foxseedlab/n7chat/internal/transcriber"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const speechAPIEndpointPort = 443

type CloudSpeechConfig struct {
	ProjectID       string
	CredentialsJSON string
	Languages       []string
	Location        string
	Model           string
	SampleRate      int
	ChunkSize       int
}

// CloudSpeechRecognizer runs a synchronous Recognize call over the whole
// utterance buffer on every pass.
type CloudSpeechRecognizer struct {
	cfg CloudSpeechConfig

	mu     sync.Mutex
	client *speech.Client
}

func NewCloudSpeechRecognizer(cfg CloudSpeechConfig) *CloudSpeechRecognizer {
	cfg.Location = strings.TrimSpace(cfg.Location)
	if cfg.Location == "" {
		cfg.Location = "global"
	}
	cfg.Model = strings.TrimSpace(cfg.Model)
	return &CloudSpeechRecognizer{cfg: cfg}
}

func (r *CloudSpeechRecognizer) SampleRate() int { return r.cfg.SampleRate }
func (r *CloudSpeechRecognizer) ChunkSize() int  { return r.cfg.ChunkSize }

func (r *CloudSpeechRecognizer) Transcribe(ctx context.Context, samples []float32) (string, error) {
	if len(samples) == 0 {
		return "", nil
	}
	client, err := r.connect(ctx)
	if err != nil {
		return "", err
	}
	resp, err := client.Recognize(ctx, r.request(audio.Float32ToPCM16LE(samples)))
	if err != nil {
		return "", classifyStatus(err)
	}
	parts := make([]string, 0, len(resp.GetResults()))
	for _, result := range resp.GetResults() {
		if len(result.GetAlternatives()) == 0 {
			continue
		}
		if t := strings.TrimSpace(result.GetAlternatives()[0].GetTranscript()); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " "), nil
}

func (r *CloudSpeechRecognizer) request(pcm []byte) *speechpb.RecognizeRequest {
	return &speechpb.RecognizeRequest{
		Recognizer: fmt.Sprintf("projects/%s/locations/%s/recognizers/_", r.cfg.ProjectID, r.cfg.Location),
		Config: &speechpb.RecognitionConfig{
			Model:         r.cfg.Model,
			LanguageCodes: r.cfg.Languages,
			DecodingConfig: &speechpb.RecognitionConfig_ExplicitDecodingConfig{
				ExplicitDecodingConfig: &speechpb.ExplicitDecodingConfig{
					Encoding:          speechpb.ExplicitDecodingConfig_LINEAR16,
					SampleRateHertz:   int32(r.cfg.SampleRate),
					AudioChannelCount: 1,
				},
			},
			Features: &speechpb.RecognitionFeatures{EnableAutomaticPunctuation: true},
		},
		AudioSource: &speechpb.RecognizeRequest_Content{Content: pcm},
	}
}

func (r *CloudSpeechRecognizer) connect(ctx context.Context) (*speech.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.client != nil {
		return r.client, nil
	}
	slog.Info("connecting cloud speech", "location", r.cfg.Location, "languages", r.cfg.Languages, "model", r.cfg.Model)

	creds, err := credentials.DetectDefault(&credentials.DetectOptions{
		CredentialsJSON: []byte(r.cfg.CredentialsJSON),
		Scopes:          []string{"https://www.googleapis.com/auth/cloud-platform"},
	})
	if err != nil {
		return nil, fmt.Errorf("detect credentials: %w: %w", transcriber.ErrRecognizerUnavailable, err)
	}
	opts := []option.ClientOption{
		option.WithAuthCredentials(creds),
	}
	if r.cfg.Location != "global" {
		opts = append(opts, option.WithEndpoint(fmt.Sprintf("%s-speech.googleapis.com:%d", r.cfg.Location, speechAPIEndpointPort)))
	}
	client, err := speech.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create speech client: %w: %w", transcriber.ErrRecognizerUnavailable, err)
	}
	r.client = client
	return client, nil
}

func (r *CloudSpeechRecognizer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.client == nil {
		return nil
	}
	err := r.client.Close()
	r.client = nil
	return err
}

// classifyStatus marks errors that will not clear up by retrying the next
// pass as ErrRecognizerUnavailable.
func classifyStatus(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	st, ok := status.FromError(err)
	if !ok {
		return fmt.Errorf("recognize: %w", err)
	}
	switch st.Code() {
	case codes.Unauthenticated, codes.PermissionDenied, codes.NotFound:
		return fmt.Errorf("recognize: %w: %s", transcriber.ErrRecognizerUnavailable, st.Message())
	default:
		return fmt.Errorf("recognize (%s): %w", st.Code(), err)
	}
}

func SplitLanguages(s string) []string {
	var out []string
	for _, l := range strings.Split(s, ",") {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}
