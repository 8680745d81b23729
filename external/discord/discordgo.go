package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"

	"github.com/bwmarrin/discordgo"
	discordpkg "github.com/foxseedlab/n7chat/internal/discord"
)

const maxMessageRunes = 2000

var errSessionNotInitialized = errors.New("discord session is not initialized")

type Client struct {
	session   *discordgo.Session
	token     string
	botUserID string
}

func NewClient(token string) discordpkg.Client {
	return &Client{
		token: token,
	}
}

func (c *Client) Connect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s, err := discordgo.New("Bot " + c.token)
	if err != nil {
		return err
	}
	c.session = s
	s.Identify.Intents = discordgo.MakeIntent(discordgo.IntentsGuilds | discordgo.IntentsGuildVoiceStates)
	s.State.TrackVoice = true
	if err := s.Open(); err != nil {
		return fmt.Errorf("open discord gateway: %w", err)
	}
	userID, err := c.GetBotUserID()
	if err != nil {
		return err
	}
	c.botUserID = userID
	return nil
}

func (c *Client) Close() error {
	if c.session != nil {
		return c.session.Close()
	}
	return nil
}

// JoinVoiceChannel joins self-muted; replies go to the text channel.
func (c *Client) JoinVoiceChannel(guildID, channelID string) (discordpkg.VoiceConnection, error) {
	if c.session == nil {
		return nil, errSessionNotInitialized
	}
	vc, err := c.session.ChannelVoiceJoin(guildID, channelID, true, false)
	if err != nil {
		return nil, fmt.Errorf("join voice channel %s: %w", channelID, err)
	}
	slog.Info("joined voice channel", "guild_id", guildID, "channel_id", channelID)
	return &voiceConnection{vc: vc, ignoreUserID: c.botUserID}, nil
}

// SendChannelMessage splits content that exceeds the message length limit.
func (c *Client) SendChannelMessage(channelID, content string) error {
	if c.session == nil {
		return errSessionNotInitialized
	}
	for _, part := range splitMessage(content, maxMessageRunes) {
		if _, err := c.session.ChannelMessageSend(channelID, part); err != nil {
			return err
		}
	}
	return nil
}

func splitMessage(content string, limit int) []string {
	runes := []rune(content)
	if len(runes) <= limit {
		return []string{content}
	}
	var parts []string
	for len(runes) > limit {
		cut := limit
		for i := limit; i > limit/2; i-- {
			if runes[i-1] == '\n' || runes[i-1] == ' ' {
				cut = i
				break
			}
		}
		parts = append(parts, string(runes[:cut]))
		runes = runes[cut:]
	}
	if len(runes) > 0 {
		parts = append(parts, string(runes))
	}
	return parts
}

// RegisterSlashCommandHandler forwards application command interactions.
// Interactions without a resolvable user are dropped.
func (c *Client) RegisterSlashCommandHandler(handler func(discordpkg.SlashCommandEvent)) {
	c.session.AddHandler(func(s *discordgo.Session, ic *discordgo.InteractionCreate) {
		if ic == nil || ic.Type != discordgo.InteractionApplicationCommand {
			return
		}
		name := ic.ApplicationCommandData().Name
		userID := interactionUserID(ic)
		if name == "" || userID == "" {
			return
		}
		handler(discordpkg.SlashCommandEvent{
			GuildID:     ic.GuildID,
			ChannelID:   ic.ChannelID,
			CommandName: name,
			UserID:      userID,
			RespondEphemeral: func(content string) error {
				return s.InteractionRespond(ic.Interaction, ephemeralResponse(content))
			},
		})
	})
}

func interactionUserID(ic *discordgo.InteractionCreate) string {
	switch {
	case ic.Member != nil && ic.Member.User != nil:
		return ic.Member.User.ID
	case ic.User != nil:
		return ic.User.ID
	default:
		return ""
	}
}

func ephemeralResponse(content string) *discordgo.InteractionResponse {
	return &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	}
}

// UpsertGuildSlashCommands replaces the guild's command set with defs, which
// also removes commands a previous deployment registered.
func (c *Client) UpsertGuildSlashCommands(guildID string, defs []discordpkg.SlashCommandDefinition) error {
	if c.session == nil {
		return errSessionNotInitialized
	}
	appID := c.applicationID()
	if appID == "" {
		return errors.New("discord application id is not available")
	}
	cmds := make([]*discordgo.ApplicationCommand, 0, len(defs))
	for _, def := range defs {
		if def.Name == "" {
			continue
		}
		cmds = append(cmds, &discordgo.ApplicationCommand{Name: def.Name, Description: def.Description})
	}
	if _, err := c.session.ApplicationCommandBulkOverwrite(appID, guildID, cmds); err != nil {
		return fmt.Errorf("overwrite guild commands: %w", err)
	}
	slog.Info("slash commands registered", "guild_id", guildID, "count", len(cmds))
	return nil
}

// GetUserVoiceChannelID returns "" when the user is not in a voice channel.
// The gateway state cache is consulted first; it may be cold right after
// startup, so the REST API is the fallback.
func (c *Client) GetUserVoiceChannelID(guildID, userID string) (string, error) {
	if c.session == nil {
		return "", nil
	}
	if channelID, ok := c.cachedVoiceChannelID(guildID, userID); ok {
		return channelID, nil
	}
	vs, err := c.session.UserVoiceState(guildID, userID)
	switch {
	case isRESTNotFound(err):
		return "", nil
	case err != nil:
		return "", fmt.Errorf("fetch voice state for user %s: %w", userID, err)
	case vs == nil:
		return "", nil
	}
	return vs.ChannelID, nil
}

func (c *Client) cachedVoiceChannelID(guildID, userID string) (string, bool) {
	state := c.session.State
	if state == nil {
		return "", false
	}
	if vs, err := state.VoiceState(guildID, userID); err == nil && vs != nil {
		return vs.ChannelID, true
	}
	guild, err := state.Guild(guildID)
	if err != nil || guild == nil {
		return "", false
	}
	for _, vs := range guild.VoiceStates {
		if vs != nil && vs.UserID == userID {
			return vs.ChannelID, true
		}
	}
	return "", false
}

func isRESTNotFound(err error) bool {
	var restErr *discordgo.RESTError
	return errors.As(err, &restErr) && restErr.Response != nil && restErr.Response.StatusCode == http.StatusNotFound
}

func (c *Client) GetBotUserID() (string, error) {
	if c.botUserID != "" {
		return c.botUserID, nil
	}
	if c.session == nil {
		return "", errSessionNotInitialized
	}
	if c.session.State != nil && c.session.State.User != nil && c.session.State.User.ID != "" {
		c.botUserID = c.session.State.User.ID
		return c.botUserID, nil
	}
	u, err := c.session.User("@me")
	if err != nil {
		return "", err
	}
	c.botUserID = u.ID
	return c.botUserID, nil
}

func (c *Client) applicationID() string {
	if c.session == nil || c.session.State == nil {
		return ""
	}
	if c.session.State.Application != nil && c.session.State.Application.ID != "" {
		return c.session.State.Application.ID
	}
	if c.session.State.User != nil {
		return c.session.State.User.ID
	}
	return ""
}

type voiceConnection struct {
	vc           *discordgo.VoiceConnection
	ignoreUserID string
}

func (v *voiceConnection) Disconnect() error {
	return v.vc.Disconnect()
}

func (v *voiceConnection) ReceiveAudio(callback func(userID string, opusPacket []byte)) {
	if v.vc.OpusRecv == nil {
		return
	}
	ssrcToUser := make(map[uint32]string)
	var mu sync.RWMutex
	v.vc.AddHandler(func(vc *discordgo.VoiceConnection, vs *discordgo.VoiceSpeakingUpdate) {
		mu.Lock()
		if vs.Speaking {
			ssrcToUser[uint32(vs.SSRC)] = vs.UserID
		}
		mu.Unlock()
	})
	for p := range v.vc.OpusRecv {
		if p == nil || len(p.Opus) == 0 {
			continue
		}
		mu.RLock()
		userID := ssrcToUser[p.SSRC]
		mu.RUnlock()
		if userID == "" {
			userID = strconv.FormatUint(uint64(p.SSRC), 10)
		}
		if userID == v.ignoreUserID {
			continue
		}
		callback(userID, p.Opus)
	}
}
