package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/foxseedlab/n7chat/internal/discord"
)

const defaultStopTimeout = 5 * time.Second

// Listener is the voice side of the conversation pipeline.
type Listener interface {
	StartVoiceInput() error
	StopVoiceInput(ctx context.Context) error
	ClearHistory()
}

// ChannelTarget selects which voice channel the capture device joins.
type ChannelTarget interface {
	SetChannel(channelID string)
}

// Manager drives one guild's voice listening session from slash commands.
// Only one voice channel is listened to at a time.
type Manager struct {
	guildID       string
	textChannelID string
	discord       discord.Client
	listener      Listener
	target        ChannelTarget
	stopTimeout   time.Duration

	mu        sync.Mutex
	channelID string
}

func NewManager(guildID, textChannelID string, dc discord.Client, listener Listener, target ChannelTarget) *Manager {
	return &Manager{
		guildID:       guildID,
		textChannelID: textChannelID,
		discord:       dc,
		listener:      listener,
		target:        target,
		stopTimeout:   defaultStopTimeout,
	}
}

func SlashCommandDefinitions() []discord.SlashCommandDefinition {
	return []discord.SlashCommandDefinition{
		{Name: commandListen, Description: slashCommandListenDescription},
		{Name: commandStop, Description: slashCommandStopDescription},
		{Name: commandClear, Description: slashCommandClearDescription},
	}
}

// TODO: defer the interaction response before starting or stopping, since a
// slow voice join can miss Discord's three second reply window.
func (m *Manager) HandleSlashCommand(event discord.SlashCommandEvent) {
	slog.Info("slash command received", "command", event.CommandName, "guild_id", event.GuildID, "user_id", event.UserID)
	if event.GuildID != m.guildID {
		respond(event, messageEphemeralWrongGuild)
		return
	}
	switch event.CommandName {
	case commandListen:
		respond(event, m.handleListen(event.UserID))
	case commandStop:
		respond(event, m.handleStop())
	case commandClear:
		m.listener.ClearHistory()
		respond(event, messageEphemeralCleared)
	default:
		respond(event, messageEphemeralUnknownCommand)
	}
}

func (m *Manager) handleListen(userID string) string {
	channelID, err := m.discord.GetUserVoiceChannelID(m.guildID, userID)
	if err != nil {
		slog.Error("failed to look up user voice channel", "error", err, "user_id", userID)
		return messageEphemeralVoiceLookupFailed
	}
	if channelID == "" {
		return messageEphemeralJoinVCFirst
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.channelID != "" {
		return alreadyRunningEphemeral(m.channelID)
	}
	m.target.SetChannel(channelID)
	if err := m.listener.StartVoiceInput(); err != nil {
		slog.Error("failed to start voice input", "error", err, "channel_id", channelID)
		return messageEphemeralStartFailed
	}
	m.channelID = channelID
	slog.Info("listening started", "guild_id", m.guildID, "channel_id", channelID, "user_id", userID)
	m.post(channelID, messageStartChannel)
	return startEphemeral(channelID)
}

func (m *Manager) handleStop() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.channelID == "" {
		return messageEphemeralNotRunning
	}
	channelID := m.channelID
	if err := m.stopLocked(stopReasonManualSlash); err != nil {
		return messageEphemeralStopFailed
	}
	return stopEphemeral(channelID)
}

// Shutdown stops listening, if active, and tells the channel why.
func (m *Manager) Shutdown() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.channelID == "" {
		return nil
	}
	return m.stopLocked(stopReasonServerClosed)
}

func (m *Manager) Listening() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.channelID, m.channelID != ""
}

// stopLocked clears the active channel even when the pipeline reports an
// error.
func (m *Manager) stopLocked(reason string) error {
	channelID := m.channelID
	m.channelID = ""

	ctx, cancel := context.WithTimeout(context.Background(), m.stopTimeout)
	defer cancel()
	err := m.listener.StopVoiceInput(ctx)
	if err != nil {
		slog.Error("voice input stopped with error", "error", err, "channel_id", channelID, "reason", reason)
	} else {
		slog.Info("listening stopped", "channel_id", channelID, "reason", reason)
	}
	m.post(channelID, stopChannelMessage(reason))
	return err
}

func (m *Manager) post(voiceChannelID, content string) {
	channelID := m.textChannelID
	if channelID == "" {
		channelID = voiceChannelID
	}
	if err := m.discord.SendChannelMessage(channelID, content); err != nil {
		slog.Error("failed to post channel message", "error", err, "channel_id", channelID)
	}
}

func respond(event discord.SlashCommandEvent, content string) {
	if event.RespondEphemeral == nil {
		return
	}
	if err := event.RespondEphemeral(content); err != nil {
		slog.Error("failed to respond to slash command", "error", err, "command", event.CommandName)
	}
}
