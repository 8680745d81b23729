package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	audioimpl "github.com/foxseedlab/n7chat/external/audio"
	configloader "github.com/foxseedlab/n7chat/external/config"
	recognizerimpl "github.com/foxseedlab/n7chat/external/recognizer"
	repositoryimpl "github.com/foxseedlab/n7chat/external/repository"
	speakerimpl "github.com/foxseedlab/n7chat/external/speaker"
	translatorimpl "github.com/foxseedlab/n7chat/external/translator"
	webhookimpl "github.com/foxseedlab/n7chat/external/webhook"
	"github.com/foxseedlab/n7chat/internal/completion"
	"github.com/foxseedlab/n7chat/internal/config"
	"github.com/foxseedlab/n7chat/internal/conversation"
	"github.com/foxseedlab/n7chat/internal/metrics"
	"github.com/foxseedlab/n7chat/internal/pipeline"
	"github.com/foxseedlab/n7chat/internal/repository"
	"github.com/samber/do/v2"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

var rootCmd = &cobra.Command{
	Use:   "n7chat",
	Short: "Bilingual English / Meitei Mayek voice chat",
	Long: `n7chat holds a spoken or typed conversation with an LLM.

Input in Meitei Mayek is translated to English before completion and the
reply is translated back.

Surfaces:
  serve    web chat with browser microphone streaming
  chat     terminal chat with streamed replies
  voice    terminal voice chat from the local microphone
  discord  Discord bot listening in a voice channel`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(voiceCmd)
	rootCmd.AddCommand(discordCmd)
}

func mustLoadConfig() *config.Config {
	cfg, err := configloader.Load()
	if err != nil {
		slog.Error("config validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

func initLogger(cfg *config.Config, w io.Writer) {
	logLevel := slog.LevelInfo
	if cfg.IsDevelopment() {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: logLevel})))
}

// setupDI registers everything but the surface, which registerSurface adds.
// The surface must provide an audio.Device.
func setupDI(cfg *config.Config, registerSurface func(do.Injector)) do.Injector {
	injector := do.New()

	do.ProvideValue(injector, cfg)
	metrics.RegisterDI(injector)
	repositoryimpl.RegisterDI(injector)
	webhookimpl.RegisterDI(injector)
	audioimpl.RegisterDI(injector)
	recognizerimpl.RegisterDI(injector)
	translatorimpl.RegisterDI(injector)
	speakerimpl.RegisterDI(injector)
	completion.RegisterDI(injector)
	conversation.RegisterDI(injector)
	pipeline.RegisterDI(injector)
	registerSurface(injector)

	return injector
}

func closePipeline(injector do.Injector, p *pipeline.Pipeline) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := p.Close(ctx); err != nil {
		slog.Error("pipeline close failed", "error", err)
	}
	if archive, err := do.Invoke[repository.TurnArchive](injector); err == nil && archive != nil {
		archive.Close()
	}
}
