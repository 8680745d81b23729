package translator

import (
	"net/http"

	"github.com/foxseedlab/n7chat/internal/config"
	"github.com/foxseedlab/n7chat/internal/conversation"
	"github.com/foxseedlab/n7chat/internal/translator"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.ProvideNamed(injector, conversation.InboundTranslatorName, func(i do.Injector) (translator.Translator, error) {
		return newChain(do.MustInvoke[*config.Config](i), translator.MeiteiToEnglish), nil
	})
	do.ProvideNamed(injector, conversation.OutboundTranslatorName, func(i do.Injector) (translator.Translator, error) {
		return newChain(do.MustInvoke[*config.Config](i), translator.EnglishToMeitei), nil
	})
}

func newChain(c *config.Config, dir translator.Direction) translator.Translator {
	client := &http.Client{Timeout: c.TranslateTimeout()}
	providers := []translator.Translator{NewGTXTranslator(c.TranslatePrimaryURL, dir, client)}
	if c.TranslateFallbackURL != "" {
		providers = append(providers, NewLibreTranslator(c.TranslateFallbackURL, dir, client))
	}
	return NewChain(defaultChainMinLength, providers...)
}
