package discord

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/foxseedlab/n7chat/internal/audio"
	discordpkg "github.com/foxseedlab/n7chat/internal/discord"
)

const (
	mixInterval     = 20 * time.Millisecond
	maxQueuedFrames = 50
)

// VoiceDevice captures a voice channel. Each speaker gets its own decoder and
// frame queue; one frame per speaker is mixed down every mixInterval.
type VoiceDevice struct {
	client     discordpkg.Client
	guildID    string
	newDecoder audio.PacketDecoderFactory

	mu        sync.Mutex
	channelID string
	conn      discordpkg.VoiceConnection
	decoders  map[string]audio.PacketDecoder
	queues    map[string][][]float32
	cancel    context.CancelFunc
	done      chan struct{}
}

func NewVoiceDevice(client discordpkg.Client, guildID, channelID string, newDecoder audio.PacketDecoderFactory) *VoiceDevice {
	return &VoiceDevice{
		client:     client,
		guildID:    guildID,
		channelID:  channelID,
		newDecoder: newDecoder,
	}
}

// SetChannel selects the voice channel joined by the next Start.
func (d *VoiceDevice) SetChannel(channelID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.channelID = channelID
}

func (d *VoiceDevice) ChannelID() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.channelID
}

func (d *VoiceDevice) Start(deliver func(samples []float32)) error {
	d.mu.Lock()
	if d.conn != nil {
		d.mu.Unlock()
		return nil
	}
	channelID := d.channelID
	d.mu.Unlock()

	conn, err := d.client.JoinVoiceChannel(d.guildID, channelID)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	d.mu.Lock()
	d.conn = conn
	d.decoders = make(map[string]audio.PacketDecoder)
	d.queues = make(map[string][][]float32)
	d.cancel = cancel
	d.done = done
	d.mu.Unlock()

	go conn.ReceiveAudio(d.writePacket)
	go func() {
		defer close(done)
		d.mixLoop(ctx, deliver)
	}()
	return nil
}

func (d *VoiceDevice) writePacket(userID string, packet []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.conn == nil {
		return
	}
	dec, ok := d.decoders[userID]
	if !ok {
		var err error
		dec, err = d.newDecoder()
		if err != nil {
			// Remember the failure so every packet does not retry it.
			d.decoders[userID] = nil
			slog.Error("failed to create voice decoder", "user_id", userID, "error", err)
			return
		}
		d.decoders[userID] = dec
	}
	if dec == nil {
		return
	}
	frame, err := dec.Decode(packet)
	if err != nil || len(frame) == 0 {
		return
	}
	q := append(d.queues[userID], frame)
	if len(q) > maxQueuedFrames {
		q = q[len(q)-maxQueuedFrames:]
	}
	d.queues[userID] = q
}

func (d *VoiceDevice) mixLoop(ctx context.Context, deliver func([]float32)) {
	ticker := time.NewTicker(mixInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if frame := d.mixFrame(); frame != nil {
				deliver(frame)
			}
		}
	}
}

// mixFrame pops at most one frame per speaker and sums them, clamped to
// [-1, 1]. It returns nil when nobody is speaking.
func (d *VoiceDevice) mixFrame() []float32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	var mixed []float32
	for userID, q := range d.queues {
		if len(q) == 0 {
			continue
		}
		frame := q[0]
		d.queues[userID] = q[1:]
		if len(frame) > len(mixed) {
			grown := make([]float32, len(frame))
			copy(grown, mixed)
			mixed = grown
		}
		for i, s := range frame {
			mixed[i] = clampUnit(mixed[i] + s)
		}
	}
	return mixed
}

func clampUnit(v float32) float32 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}

func (d *VoiceDevice) Stop() error {
	d.mu.Lock()
	conn, cancel, done := d.conn, d.cancel, d.done
	d.mu.Unlock()
	if conn == nil {
		return nil
	}
	cancel()
	<-done

	d.mu.Lock()
	for _, dec := range d.decoders {
		if dec != nil {
			dec.Close()
		}
	}
	d.conn = nil
	d.decoders = nil
	d.queues = nil
	d.mu.Unlock()

	if err := conn.Disconnect(); err != nil {
		return fmt.Errorf("disconnect voice channel: %w", err)
	}
	return nil
}
