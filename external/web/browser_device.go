package web

import (
	"sync"
	"sync/atomic"

	"github.com/foxseedlab/n7chat/internal/audio"
)

// BrowserDevice is an audio.Device fed by browser WebSocket clients sending
// little-endian float32 mono frames. Frames arriving while the device is
// stopped are discarded.
type BrowserDevice struct {
	mu      sync.Mutex
	deliver func(samples []float32)
	clients atomic.Int32
}

var _ audio.Device = (*BrowserDevice)(nil)

func NewBrowserDevice() *BrowserDevice {
	return &BrowserDevice{}
}

func (d *BrowserDevice) Start(deliver func(samples []float32)) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.deliver = deliver
	return nil
}

func (d *BrowserDevice) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.deliver = nil
	return nil
}

// Feed decodes one binary frame and hands it to the running capture.
// It reports whether the frame was delivered.
func (d *BrowserDevice) Feed(frame []byte) bool {
	samples := audio.Float32LEBytes(frame)
	if len(samples) == 0 {
		return false
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.deliver == nil {
		return false
	}
	d.deliver(samples)
	return true
}

func (d *BrowserDevice) Clients() int {
	return int(d.clients.Load())
}

func (d *BrowserDevice) connected() {
	d.clients.Add(1)
}

func (d *BrowserDevice) disconnected() {
	d.clients.Add(-1)
}
