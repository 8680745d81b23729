package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	discordimpl "github.com/foxseedlab/n7chat/external/discord"
	"github.com/foxseedlab/n7chat/internal/audio"
	discordpkg "github.com/foxseedlab/n7chat/internal/discord"
	"github.com/foxseedlab/n7chat/internal/pipeline"
	"github.com/foxseedlab/n7chat/internal/session"
	"github.com/samber/do/v2"
	"github.com/spf13/cobra"
)

const discordConnectTimeout = 20 * time.Second

var errDiscordNotConfigured = errors.New("DISCORD_TOKEN, DISCORD_GUILD_ID and DISCORD_VOICE_CHANNEL_ID are required")

var discordCmd = &cobra.Command{
	Use:   "discord",
	Short: "Run the Discord voice bot",
	Long: `Run a Discord bot for one guild. /listen joins the caller's voice
channel and replies to what is said there, /stop leaves and /clear forgets
the conversation. Turns are posted to DISCORD_TEXT_CHANNEL_ID, or to the
voice channel chat when it is unset.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDiscord(cmd.Context())
	},
}

func runDiscord(ctx context.Context) error {
	slog.Info("startup: loading configuration")
	cfg := mustLoadConfig()
	initLogger(cfg, os.Stdout)
	slog.Info("startup: configuration loaded", "env", cfg.Env)
	if !cfg.DiscordConfigured() {
		return errDiscordNotConfigured
	}
	if !cfg.VoiceConfigured() {
		return errNoRecognizer
	}

	slog.Info("startup: building dependency graph")
	injector := setupDI(cfg, func(i do.Injector) {
		discordimpl.RegisterDI(i)
		session.RegisterDI(i)
		do.Provide(i, func(i do.Injector) (audio.Device, error) {
			return do.MustInvoke[*discordimpl.VoiceDevice](i), nil
		})
		do.Provide(i, func(i do.Injector) (session.ChannelTarget, error) {
			return do.MustInvoke[*discordimpl.VoiceDevice](i), nil
		})
		do.ProvideNamed(i, pipeline.SurfaceSinkName, func(i do.Injector) (pipeline.TurnSink, error) {
			channelID := cfg.DiscordTextChannelID
			if channelID == "" {
				channelID = cfg.DiscordVoiceChannelID
			}
			return pipeline.NewChannelSink(do.MustInvoke[discordpkg.Client](i), channelID), nil
		})
	})

	dc, err := do.Invoke[discordpkg.Client](injector)
	if err != nil {
		return fmt.Errorf("resolve discord client: %w", err)
	}
	p, err := do.Invoke[*pipeline.Pipeline](injector)
	if err != nil {
		return fmt.Errorf("resolve pipeline: %w", err)
	}
	defer closePipeline(injector, p)
	manager, err := do.Invoke[*session.Manager](injector)
	if err != nil {
		return fmt.Errorf("resolve session manager: %w", err)
	}

	connectCtx, cancel := context.WithTimeout(ctx, discordConnectTimeout)
	defer cancel()
	slog.Info("startup: connecting to discord gateway")
	if err := dc.Connect(connectCtx); err != nil {
		return fmt.Errorf("discord connect: %w", err)
	}
	defer func() {
		if err := dc.Close(); err != nil {
			slog.Error("discord close failed", "error", err)
		}
	}()
	slog.Info("startup: discord connected")

	if err := dc.UpsertGuildSlashCommands(cfg.DiscordGuildID, session.SlashCommandDefinitions()); err != nil {
		return fmt.Errorf("upsert slash commands for guild %s: %w", cfg.DiscordGuildID, err)
	}
	dc.RegisterSlashCommandHandler(manager.HandleSlashCommand)
	slog.Info("discord handlers registered", "guild_id", cfg.DiscordGuildID, "commands", []string{"listen", "stop", "clear"})

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	slog.Info("shutting down")
	if err := manager.Shutdown(); err != nil {
		slog.Error("listening stopped with error", "error", err)
	}
	return nil
}
