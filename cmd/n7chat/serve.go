package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/foxseedlab/n7chat/external/web"
	"github.com/foxseedlab/n7chat/internal/pipeline"
	"github.com/samber/do/v2"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the web chat surface",
	Long: `Serve the web chat surface on HTTP_ADDR.

Routes:
  POST /chat               typed turn, {"message": "..."}
  POST /voice-input        toggle listening on the browser microphone
  POST /clear              forget the conversation
  GET  /get-transcription  server-sent transcript and reply events
  GET  /ws/audio           browser microphone frames (float32 LE mono)
  GET  /healthz, /metrics`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func runServe(ctx context.Context) error {
	cfg := mustLoadConfig()
	initLogger(cfg, os.Stdout)
	slog.Info("startup: configuration loaded", "env", cfg.Env, "recognizer", cfg.RecognizerBackend)

	injector := setupDI(cfg, web.RegisterDI)
	p, err := do.Invoke[*pipeline.Pipeline](injector)
	if err != nil {
		return fmt.Errorf("resolve pipeline: %w", err)
	}
	defer closePipeline(injector, p)
	server, err := do.Invoke[*web.Server](injector)
	if err != nil {
		return fmt.Errorf("resolve web server: %w", err)
	}
	hub := do.MustInvoke[*web.Hub](injector)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go hub.Run(ctx, p.Events())

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Listen(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutting down")
	case err := <-errCh:
		return fmt.Errorf("web server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("web server shutdown failed", "error", err)
	}
	return nil
}
