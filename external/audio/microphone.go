package audio

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/foxseedlab/n7chat/internal/audio"
	"github.com/gen2brain/malgo"
)

const capturePeriodMs = 20

// Microphone captures mono 16-bit audio from the default input device.
type Microphone struct {
	ctx        *malgo.AllocatedContext
	sampleRate int

	mu     sync.Mutex
	device *malgo.Device
}

func NewMicrophone(sampleRate int) (*Microphone, error) {
	cfg := malgo.ContextConfig{}
	cfg.ThreadPriority = malgo.ThreadPriorityRealtime
	ctx, err := malgo.InitContext(nil, cfg, nil)
	if err != nil {
		return nil, fmt.Errorf("init audio context: %w", err)
	}
	return &Microphone{ctx: ctx, sampleRate: sampleRate}, nil
}

func (m *Microphone) Start(deliver func(samples []float32)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.device != nil {
		return nil
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatS16
	deviceConfig.Capture.Channels = 1
	deviceConfig.SampleRate = uint32(m.sampleRate)
	deviceConfig.PeriodSizeInMilliseconds = capturePeriodMs

	callbacks := malgo.DeviceCallbacks{
		Data: func(_, input []byte, _ uint32) {
			deliver(audio.PCM16LEToFloat32(input))
		},
	}
	device, err := malgo.InitDevice(m.ctx.Context, deviceConfig, callbacks)
	if err != nil {
		return fmt.Errorf("init microphone: %w", err)
	}
	if err := device.Start(); err != nil {
		device.Uninit()
		return fmt.Errorf("start microphone: %w", err)
	}
	m.device = device
	slog.Info("microphone capture started", "sample_rate", m.sampleRate)
	return nil
}

func (m *Microphone) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.device == nil {
		return nil
	}
	err := m.device.Stop()
	m.device.Uninit()
	m.device = nil
	slog.Info("microphone capture stopped")
	return err
}

func (m *Microphone) Close() error {
	stopErr := m.Stop()
	if err := m.ctx.Uninit(); err != nil {
		return err
	}
	m.ctx.Free()
	return stopErr
}
