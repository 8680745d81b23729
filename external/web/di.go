package web

import (
	"github.com/foxseedlab/n7chat/internal/audio"
	"github.com/foxseedlab/n7chat/internal/pipeline"
	"github.com/samber/do/v2"
)

// RegisterDI provides the browser device as the pipeline's audio.Device.
func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*BrowserDevice, error) {
		return NewBrowserDevice(), nil
	})
	do.Provide(injector, func(i do.Injector) (audio.Device, error) {
		return do.MustInvoke[*BrowserDevice](i), nil
	})
	do.Provide(injector, func(i do.Injector) (*Hub, error) {
		return NewHub(), nil
	})
	do.Provide(injector, func(i do.Injector) (*Server, error) {
		p := do.MustInvoke[*pipeline.Pipeline](i)
		hub := do.MustInvoke[*Hub](i)
		device := do.MustInvoke[*BrowserDevice](i)
		return NewServer(p, hub, device, ServerConfig{}), nil
	})
}
