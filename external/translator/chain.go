package translator

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/foxseedlab/n7chat/internal/translator"
)

const defaultChainMinLength = 3

// Chain tries each provider in order and returns the first result of at
// least minLength characters.
type Chain struct {
	providers []translator.Translator
	minLength int
}

func NewChain(minLength int, providers ...translator.Translator) *Chain {
	if minLength <= 0 {
		minLength = defaultChainMinLength
	}
	return &Chain{providers: providers, minLength: minLength}
}

func (c *Chain) Translate(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", &translator.Error{Provider: "chain", Err: translator.ErrEmptyResult}
	}
	var errs []error
	for _, p := range c.providers {
		out, err := p.Translate(ctx, text)
		if err != nil {
			slog.Warn("translation provider failed; trying next", "error", err)
			errs = append(errs, err)
			if ctx.Err() != nil {
				break
			}
			continue
		}
		out = strings.TrimSpace(out)
		if utf8.RuneCountInString(out) < c.minLength {
			slog.Warn("translation provider returned a short result; trying next", "length", utf8.RuneCountInString(out))
			continue
		}
		return out, nil
	}
	if len(errs) == 0 {
		errs = append(errs, translator.ErrEmptyResult)
	}
	return "", &translator.Error{Provider: "chain", Err: errors.Join(errs...)}
}
