package discord

import (
	"github.com/foxseedlab/n7chat/internal/audio"
	"github.com/foxseedlab/n7chat/internal/config"
	discordpkg "github.com/foxseedlab/n7chat/internal/discord"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (discordpkg.Client, error) {
		c := do.MustInvoke[*config.Config](i)
		return NewClient(c.DiscordToken), nil
	})
	do.Provide(injector, func(i do.Injector) (*VoiceDevice, error) {
		c := do.MustInvoke[*config.Config](i)
		client := do.MustInvoke[discordpkg.Client](i)
		newDecoder := do.MustInvoke[audio.PacketDecoderFactory](i)
		return NewVoiceDevice(client, c.DiscordGuildID, c.DiscordVoiceChannelID, newDecoder), nil
	})
}
