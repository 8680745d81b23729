package discord

import "context"

type SlashCommandDefinition struct {
	Name        string
	Description string
}

type SlashCommandEvent struct {
	GuildID          string
	ChannelID        string
	CommandName      string
	UserID           string
	RespondEphemeral func(content string) error
}

type Client interface {
	Connect(ctx context.Context) error
	Close() error
	JoinVoiceChannel(guildID, channelID string) (VoiceConnection, error)
	SendChannelMessage(channelID, content string) error
	RegisterSlashCommandHandler(handler func(SlashCommandEvent))
	UpsertGuildSlashCommands(guildID string, defs []SlashCommandDefinition) error
	GetUserVoiceChannelID(guildID, userID string) (string, error)
	GetBotUserID() (string, error)
}

// VoiceConnection delivers raw opus packets per speaking user. ReceiveAudio
// blocks until the connection is closed.
type VoiceConnection interface {
	Disconnect() error
	ReceiveAudio(callback func(userID string, opusPacket []byte))
}
