package discord

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/foxseedlab/n7chat/internal/audio"
	discordpkg "github.com/foxseedlab/n7chat/internal/discord"
)

type mockVoiceConnection struct {
	packets      chan [2]string
	disconnected chan struct{}
	once         sync.Once
}

func newMockVoiceConnection() *mockVoiceConnection {
	return &mockVoiceConnection{packets: make(chan [2]string, 8), disconnected: make(chan struct{})}
}

func (m *mockVoiceConnection) Disconnect() error {
	m.once.Do(func() { close(m.disconnected) })
	return nil
}

func (m *mockVoiceConnection) ReceiveAudio(callback func(userID string, opusPacket []byte)) {
	for {
		select {
		case p := <-m.packets:
			callback(p[0], []byte(p[1]))
		case <-m.disconnected:
			return
		}
	}
}

type mockClient struct {
	discordpkg.Client
	conn     *mockVoiceConnection
	joinedCh string
}

func (m *mockClient) JoinVoiceChannel(_, channelID string) (discordpkg.VoiceConnection, error) {
	m.joinedCh = channelID
	return m.conn, nil
}

type constDecoder struct {
	value float32
}

func (d constDecoder) Decode(packet []byte) ([]float32, error) {
	if string(packet) == "bad" {
		return nil, errors.New("corrupt packet")
	}
	return []float32{d.value, d.value}, nil
}

func (constDecoder) SampleRate() int { return 16000 }
func (constDecoder) Close()          {}

func TestVoiceDevice_DeliversDecodedFrames(t *testing.T) {
	conn := newMockVoiceConnection()
	client := &mockClient{conn: conn}
	dev := NewVoiceDevice(client, "guild-1", "vc-1", func() (audio.PacketDecoder, error) {
		return constDecoder{value: 0.6}, nil
	})
	dev.SetChannel("vc-2")

	frames := make(chan []float32, 8)
	if err := dev.Start(func(s []float32) { frames <- s }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client.joinedCh != "vc-2" {
		t.Fatalf("expected to join vc-2, got %q", client.joinedCh)
	}
	dev.writePacket("user-a", []byte("x"))
	dev.writePacket("user-b", []byte("bad"))

	select {
	case f := <-frames:
		if len(f) != 2 || f[0] < 0.6 {
			t.Fatalf("expected a decoded frame, got %v", f)
		}
	case <-time.After(time.Second):
		t.Fatal("expected a mixed frame")
	}

	if err := dev.Stop(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	select {
	case <-conn.disconnected:
	default:
		t.Fatal("expected the voice connection to be closed")
	}
	dev.writePacket("user-a", []byte("x"))
	if dev.mixFrame() != nil {
		t.Fatal("expected no audio after stop")
	}
}

func TestVoiceDevice_DecoderFailureIsRemembered(t *testing.T) {
	conn := newMockVoiceConnection()
	calls := 0
	dev := NewVoiceDevice(&mockClient{conn: conn}, "guild-1", "vc-1", func() (audio.PacketDecoder, error) {
		calls++
		return nil, errors.New("no opus")
	})
	if err := dev.Start(func([]float32) {}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer func() { _ = dev.Stop() }()

	dev.writePacket("user-a", []byte("x"))
	dev.writePacket("user-a", []byte("x"))
	if calls != 1 {
		t.Fatalf("expected one decoder attempt, got %d", calls)
	}
}

func TestVoiceDevice_StopWhenIdle(t *testing.T) {
	dev := NewVoiceDevice(&mockClient{}, "g", "c", nil)
	if err := dev.Stop(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestVoiceDevice_MixFrameClampsAndPopsOnePerSpeaker(t *testing.T) {
	dev := NewVoiceDevice(&mockClient{}, "g", "c", nil)
	dev.queues = map[string][][]float32{
		"user-a": {{0.6, 0.2}, {0.1}},
		"user-b": {{0.6, -0.2, 0.3}},
	}
	mixed := dev.mixFrame()
	if len(mixed) != 3 || mixed[0] != 1 || mixed[1] != 0 || mixed[2] != 0.3 {
		t.Fatalf("unexpected mix: %v", mixed)
	}
	if len(dev.queues["user-a"]) != 1 || len(dev.queues["user-b"]) != 0 {
		t.Fatalf("expected one frame popped per speaker, got %v", dev.queues)
	}
}
