package completion

import (
	"github.com/foxseedlab/n7chat/internal/config"
	"github.com/foxseedlab/n7chat/internal/conversation"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Client, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return NewClient(Config{
			APIKey:       cfg.LLMAPIKey,
			BaseURL:      cfg.LLMBaseURL,
			Model:        cfg.LLMModel,
			Stream:       cfg.LLMStream,
			Timeout:      cfg.LLMTimeout(),
			MaxRetries:   cfg.LLMMaxRetries,
			RetryBackoff: cfg.LLMRetryBackoff(),
			Temperature:  cfg.LLMTemperature,
			MaxTokens:    cfg.LLMMaxTokens,
		}, nil), nil
	})
	do.Provide(injector, func(i do.Injector) (conversation.Completer, error) {
		return do.MustInvoke[*Client](i), nil
	})
}
