package discord

import (
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/bwmarrin/discordgo"
	discordpkg "github.com/foxseedlab/n7chat/internal/discord"
)

type roundTripFunc func(req *http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func newTestSession(t *testing.T, rt roundTripFunc) *discordgo.Session {
	t.Helper()
	s, err := discordgo.New("Bot test-token")
	if err != nil {
		t.Fatalf("failed to create session: %v", err)
	}
	if rt != nil {
		s.Client = &http.Client{Transport: rt}
	}
	return s
}

func TestGetUserVoiceChannelID_UsesStateCacheFirst(t *testing.T) {
	s := newTestSession(t, func(req *http.Request) (*http.Response, error) {
		t.Fatalf("unexpected REST call: %s %s", req.Method, req.URL.String())
		return nil, nil
	})
	if err := s.State.GuildAdd(&discordgo.Guild{
		ID: "guild-1",
		VoiceStates: []*discordgo.VoiceState{
			{GuildID: "guild-1", ChannelID: "vc-1", UserID: "user-1"},
		},
	}); err != nil {
		t.Fatalf("failed to add guild to state: %v", err)
	}

	c := &Client{session: s}
	channelID, err := c.GetUserVoiceChannelID("guild-1", "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if channelID != "vc-1" {
		t.Fatalf("expected vc-1, got %q", channelID)
	}
}

func TestGetUserVoiceChannelID_FallsBackToRESTWhenStateIsCold(t *testing.T) {
	s := newTestSession(t, func(req *http.Request) (*http.Response, error) {
		if !strings.HasSuffix(req.URL.Path, "/guilds/guild-1/voice-states/user-1") {
			t.Fatalf("unexpected request path: %s", req.URL.Path)
		}
		return &http.Response{
			StatusCode: http.StatusOK,
			Status:     "200 OK",
			Body: io.NopCloser(strings.NewReader(
				`{"guild_id":"guild-1","channel_id":"vc-rest","user_id":"user-1","session_id":"x","deaf":false,"mute":false,"self_deaf":false,"self_mute":false,"self_video":false,"suppress":false}`,
			)),
			Header: make(http.Header),
		}, nil
	})

	c := &Client{session: s}
	channelID, err := c.GetUserVoiceChannelID("guild-1", "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if channelID != "vc-rest" {
		t.Fatalf("expected vc-rest, got %q", channelID)
	}
}

func TestGetUserVoiceChannelID_ReturnsEmptyOnRESTNotFound(t *testing.T) {
	s := newTestSession(t, func(req *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusNotFound,
			Status:     "404 Not Found",
			Body:       io.NopCloser(strings.NewReader(`{"message":"Unknown Voice State","code":10065}`)),
			Header:     make(http.Header),
		}, nil
	})

	c := &Client{session: s}
	channelID, err := c.GetUserVoiceChannelID("guild-1", "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if channelID != "" {
		t.Fatalf("expected empty channel id, got %q", channelID)
	}
}

func TestSendChannelMessage_SplitsLongContent(t *testing.T) {
	var bodies []string
	s := newTestSession(t, func(req *http.Request) (*http.Response, error) {
		if !strings.HasSuffix(req.URL.Path, "/channels/text-1/messages") {
			t.Fatalf("unexpected request path: %s", req.URL.Path)
		}
		b, _ := io.ReadAll(req.Body)
		bodies = append(bodies, string(b))
		return &http.Response{
			StatusCode: http.StatusOK,
			Status:     "200 OK",
			Body:       io.NopCloser(strings.NewReader(`{"id":"m1","channel_id":"text-1","content":"x"}`)),
			Header:     make(http.Header),
		}, nil
	})

	c := &Client{session: s}
	content := strings.Repeat("word ", 500)
	if err := c.SendChannelMessage("text-1", content); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(bodies) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(bodies))
	}
}

func TestSplitMessage(t *testing.T) {
	parts := splitMessage("aaaa bbbb cccc", 10)
	if len(parts) != 2 || parts[0] != "aaaa bbbb " || parts[1] != "cccc" {
		t.Fatalf("unexpected parts: %q", parts)
	}
	if got := splitMessage("short", 10); len(got) != 1 || got[0] != "short" {
		t.Fatalf("expected unsplit message, got %q", got)
	}
	long := strings.Repeat("x", 25)
	parts = splitMessage(long, 10)
	if len(parts) != 3 || parts[2] != "xxxxx" {
		t.Fatalf("expected hard cuts, got %q", parts)
	}
}

func TestJoinVoiceChannel_WithoutSession(t *testing.T) {
	c := &Client{}
	if _, err := c.JoinVoiceChannel("guild-1", "vc-1"); err == nil {
		t.Fatal("expected error without a session")
	}
}

func TestUpsertGuildSlashCommands_OverwritesGuildCommands(t *testing.T) {
	var gotMethod, gotPath, gotBody string
	s := newTestSession(t, func(req *http.Request) (*http.Response, error) {
		gotMethod = req.Method
		gotPath = req.URL.Path
		b, _ := io.ReadAll(req.Body)
		gotBody = string(b)
		return &http.Response{
			StatusCode: http.StatusOK,
			Status:     "200 OK",
			Body:       io.NopCloser(strings.NewReader(`[]`)),
			Header:     make(http.Header),
		}, nil
	})
	s.State.User = &discordgo.User{ID: "app-1"}

	c := &Client{session: s}
	err := c.UpsertGuildSlashCommands("guild-1", []discordpkg.SlashCommandDefinition{
		{Name: "listen", Description: "Start listening."},
		{Name: ""},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotMethod != http.MethodPut || !strings.HasSuffix(gotPath, "/applications/app-1/guilds/guild-1/commands") {
		t.Fatalf("unexpected request: %s %s", gotMethod, gotPath)
	}
	if !strings.Contains(gotBody, `"name":"listen"`) || strings.Count(gotBody, `"name"`) != 1 {
		t.Fatalf("unexpected body: %s", gotBody)
	}
}

func TestUpsertGuildSlashCommands_WithoutSession(t *testing.T) {
	c := &Client{}
	if err := c.UpsertGuildSlashCommands("guild-1", nil); err == nil {
		t.Fatal("expected error without a session")
	}
}
