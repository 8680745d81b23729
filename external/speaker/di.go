package speaker

import (
	"github.com/foxseedlab/n7chat/internal/config"
	"github.com/foxseedlab/n7chat/internal/speaker"
	"github.com/samber/do/v2"
)

// RegisterDI provides a nil voice when TTS_URL is unset.
func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*speaker.Voice, error) {
		c := do.MustInvoke[*config.Config](i)
		if c.TTSURL == "" {
			return nil, nil
		}
		return speaker.NewVoice(NewHTTPSpeaker(c.TTSURL, c.TTSVoiceDescription), NewOtoPlayer()), nil
	})
}
