package pipeline

import (
	"github.com/foxseedlab/n7chat/internal/audio"
	"github.com/foxseedlab/n7chat/internal/config"
	"github.com/foxseedlab/n7chat/internal/conversation"
	"github.com/foxseedlab/n7chat/internal/metrics"
	"github.com/foxseedlab/n7chat/internal/repository"
	"github.com/foxseedlab/n7chat/internal/speaker"
	"github.com/foxseedlab/n7chat/internal/transcriber"
	"github.com/foxseedlab/n7chat/internal/webhook"
	"github.com/samber/do/v2"
)

// SurfaceSinkName names an optional TurnSink a surface may provide, such as
// posting turns to a chat channel.
const SurfaceSinkName = "pipeline.surface_sink"

// RegisterDI expects the caller to provide the audio.Device for the chosen
// surface. A nil device or recognizer yields a typed-only pipeline.
func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Pipeline, error) {
		cfg := do.MustInvoke[*config.Config](i)
		orchestrator := do.MustInvoke[*conversation.Orchestrator](i)
		session := do.MustInvoke[*conversation.Session](i)
		device := do.MustInvoke[audio.Device](i)
		recognizer := do.MustInvoke[transcriber.Recognizer](i)
		m := do.MustInvoke[*metrics.Metrics](i)
		archive := do.MustInvoke[repository.TurnArchive](i)
		sender := do.MustInvoke[webhook.Sender](i)
		voice := do.MustInvoke[*speaker.Voice](i)

		sinks := []TurnSink{
			NewArchiveSink(archive),
			NewWebhookSink(sender),
		}
		if voice != nil && cfg.SpeakReplies {
			sinks = append(sinks, NewVoiceSink(voice, true))
		}
		if surface, err := do.InvokeNamed[TurnSink](i, SurfaceSinkName); err == nil {
			sinks = append(sinks, surface)
		}
		pc := Config{
			ChunkSize: cfg.AudioChunkSize,
			QueueSize: cfg.AudioQueueSize,
			Worker: transcriber.WorkerConfig{
				TranscribeEvery: cfg.TranscribeEveryChunks,
				SilenceFinalize: cfg.SilenceFinalize(),
				SilenceRMS:      cfg.SilenceRMSThreshold,
			},
			JoinTimeout: cfg.StopJoinTimeout(),
		}
		return New(orchestrator, session, device, recognizer, pc, m, sinks...), nil
	})
}
