package conversation

import (
	"github.com/foxseedlab/n7chat/internal/config"
	"github.com/foxseedlab/n7chat/internal/script"
	"github.com/foxseedlab/n7chat/internal/translator"
	"github.com/samber/do/v2"
)

const (
	InboundTranslatorName  = "translator.inbound"
	OutboundTranslatorName = "translator.outbound"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Orchestrator, error) {
		cfg := do.MustInvoke[*config.Config](i)
		inbound := do.MustInvokeNamed[translator.Translator](i, InboundTranslatorName)
		outbound := do.MustInvokeNamed[translator.Translator](i, OutboundTranslatorName)
		completer := do.MustInvoke[Completer](i)
		observer := do.MustInvoke[Observer](i)
		policy := Policy{
			MinInboundLength:  cfg.TranslationMinInbound,
			MinOutboundLength: cfg.TranslationMinOutbound,
		}
		return NewOrchestrator(script.NewClassifier(cfg.MeiteiMinCodepoints), inbound, outbound, completer, policy, observer), nil
	})
	do.Provide(injector, func(i do.Injector) (*Session, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return NewSession(cfg.SystemPrompt), nil
	})
}
