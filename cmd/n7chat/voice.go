package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	audioimpl "github.com/foxseedlab/n7chat/external/audio"
	"github.com/foxseedlab/n7chat/internal/audio"
	"github.com/foxseedlab/n7chat/internal/pipeline"
	"github.com/samber/do/v2"
	"github.com/spf13/cobra"
)

var errNoRecognizer = errors.New("voice input needs RECOGNIZER_BACKEND set to cloud_speech or http")

var voiceCmd = &cobra.Command{
	Use:   "voice",
	Short: "Talk from the local microphone",
	Long: `Listen on the default microphone and print each transcript with the
reply. Set SPEAK_REPLIES=true and TTS_URL to hear replies. Press Ctrl+C to
stop.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runVoice(cmd.Context(), os.Stdout)
	},
}

func runVoice(ctx context.Context, out io.Writer) error {
	cfg := mustLoadConfig()
	initLogger(cfg, os.Stderr)
	if !cfg.VoiceConfigured() {
		return errNoRecognizer
	}

	injector := setupDI(cfg, func(i do.Injector) {
		do.Provide(i, func(i do.Injector) (audio.Device, error) {
			mic, err := do.Invoke[*audioimpl.Microphone](i)
			if err != nil {
				return nil, err
			}
			return mic, nil
		})
	})
	p, err := do.Invoke[*pipeline.Pipeline](injector)
	if err != nil {
		return fmt.Errorf("resolve pipeline: %w", err)
	}
	defer func() {
		closePipeline(injector, p)
		if mic, err := do.Invoke[*audioimpl.Microphone](injector); err == nil {
			if err := mic.Close(); err != nil {
				slog.Warn("microphone close failed", "error", err)
			}
		}
	}()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := p.StartVoiceInput(); err != nil {
		return fmt.Errorf("start voice input: %w", err)
	}
	_, _ = fmt.Fprintln(out, "Starting real-time voice chat. Press Ctrl+C to stop.")
	printVoiceEvents(ctx, p.Events(), out)
	_, _ = fmt.Fprintln(out, "\nStopping the voice chat.")
	return nil
}

func printVoiceEvents(ctx context.Context, events <-chan pipeline.Event, out io.Writer) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-events:
			if ev.Partial() {
				_, _ = fmt.Fprintf(out, "\r... %s", ev.Transcript)
				continue
			}
			_, _ = fmt.Fprintf(out, "\rYou: %s\nAI: %s\n", ev.Transcript, ev.Response)
		}
	}
}
