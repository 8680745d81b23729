package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/foxseedlab/n7chat/internal/repository"
	"github.com/foxseedlab/n7chat/internal/webhook"
)

type ArchiveSink struct {
	archive repository.TurnArchive
}

func NewArchiveSink(archive repository.TurnArchive) TurnSink {
	if archive == nil {
		return nil
	}
	return &ArchiveSink{archive: archive}
}

func (s *ArchiveSink) Name() string { return "archive" }

func (s *ArchiveSink) TurnCompleted(ctx context.Context, turn Turn) error {
	return s.archive.SaveTurn(ctx, buildTurnRecord(turn))
}

type WebhookSink struct {
	sender webhook.Sender
}

func NewWebhookSink(sender webhook.Sender) TurnSink {
	if sender == nil {
		return nil
	}
	return &WebhookSink{sender: sender}
}

func (s *WebhookSink) Name() string { return "webhook" }

func (s *WebhookSink) TurnCompleted(ctx context.Context, turn Turn) error {
	return s.sender.SendTurn(ctx, buildTurnPayload(turn))
}

type Sayer interface {
	Say(ctx context.Context, text string) error
}

// VoiceSink speaks replies. Typed turns are spoken only when speakTyped is
// set.
type VoiceSink struct {
	voice      Sayer
	speakTyped bool
}

func NewVoiceSink(voice Sayer, speakTyped bool) TurnSink {
	if voice == nil {
		return nil
	}
	return &VoiceSink{voice: voice, speakTyped: speakTyped}
}

func (s *VoiceSink) Name() string { return "voice" }

func (s *VoiceSink) TurnCompleted(ctx context.Context, turn Turn) error {
	if turn.Source == SourceTyped && !s.speakTyped {
		return nil
	}
	return s.voice.Say(ctx, turn.Result.DisplayReply())
}

type ChannelPoster interface {
	SendChannelMessage(channelID, content string) error
}

// ChannelSink posts voice turns to a chat channel.
type ChannelSink struct {
	poster    ChannelPoster
	channelID string
}

func NewChannelSink(poster ChannelPoster, channelID string) TurnSink {
	if poster == nil || channelID == "" {
		return nil
	}
	return &ChannelSink{poster: poster, channelID: channelID}
}

func (s *ChannelSink) Name() string { return "channel" }

func (s *ChannelSink) TurnCompleted(_ context.Context, turn Turn) error {
	return s.poster.SendChannelMessage(s.channelID, formatTurnMessage(turn))
}

func buildTurnRecord(turn Turn) repository.TurnRecord {
	source := repository.TurnSourceTyped
	if turn.Source == SourceVoice {
		source = repository.TurnSourceVoice
	}
	return repository.TurnRecord{
		ID:               turn.ID,
		SessionID:        turn.SessionID,
		Source:           source,
		Script:           turn.Result.Script.String(),
		Transcript:       turn.Transcript,
		Reply:            turn.Result.Reply,
		InboundFallback:  turn.Result.InboundFallback,
		OutboundFailed:   turn.Result.OutboundFailed,
		CompletionFailed: turn.Result.CompletionFailed,
		CreatedAt:        turn.At,
	}
}

func buildTurnPayload(turn Turn) webhook.TurnPayload {
	return webhook.TurnPayload{
		TurnID:           turn.ID,
		SessionID:        turn.SessionID,
		Source:           string(turn.Source),
		Script:           turn.Result.Script.String(),
		Transcript:       turn.Transcript,
		Response:         turn.Result.Reply,
		InboundFallback:  turn.Result.InboundFallback,
		OutboundFailed:   turn.Result.OutboundFailed,
		CompletionFailed: turn.Result.CompletionFailed,
		Timestamp:        turn.At.UTC().Format(time.RFC3339),
	}
}

func formatTurnMessage(turn Turn) string {
	lines := []string{
		fmt.Sprintf(messageTranscriptLineFormat, strings.TrimSpace(turn.Transcript)),
		fmt.Sprintf(messageReplyLineFormat, turn.Result.DisplayReply()),
	}
	if turn.Result.OutboundFailed {
		lines = append(lines, messageTranslationFailedHint)
	}
	return strings.Join(lines, "\n")
}
