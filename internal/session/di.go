package session

import (
	"github.com/foxseedlab/n7chat/internal/config"
	"github.com/foxseedlab/n7chat/internal/discord"
	"github.com/foxseedlab/n7chat/internal/pipeline"
	"github.com/samber/do/v2"
)

// RegisterDI expects the caller to provide the ChannelTarget, which is the
// Discord voice device.
func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Manager, error) {
		cfg := do.MustInvoke[*config.Config](i)
		dc := do.MustInvoke[discord.Client](i)
		p := do.MustInvoke[*pipeline.Pipeline](i)
		target := do.MustInvoke[ChannelTarget](i)
		return NewManager(cfg.DiscordGuildID, cfg.DiscordTextChannelID, dc, p, target), nil
	})
}
