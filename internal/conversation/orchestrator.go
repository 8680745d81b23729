package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/foxseedlab/n7chat/internal/script"
	"github.com/foxseedlab/n7chat/internal/translator"
)

const (
	TranslationFailedMarker = "[Translation failed] "

	DefaultMinInboundLength  = 3
	DefaultMinOutboundLength = 10
)

// Completer produces the assistant reply for a history. When deltas is
// non-nil, token fragments are sent to it as they arrive.
type Completer interface {
	Complete(ctx context.Context, history []Message, deltas chan<- string) (string, error)
}

type Policy struct {
	MinInboundLength  int
	MinOutboundLength int
}

type Observer interface {
	TranslationFailed(dir translator.Direction)
	CompletionFinished(d time.Duration, err error)
	TurnHandled(s script.Script)
}

type noopObserver struct{}

func (noopObserver) TranslationFailed(translator.Direction)   {}
func (noopObserver) CompletionFinished(time.Duration, error) {}
func (noopObserver) TurnHandled(script.Script)                {}

// TurnResult is what a turn produced. Reply is never empty for a non-empty
// input; the flags record which stage degraded.
type TurnResult struct {
	Reply            string
	Script           script.Script
	InboundFallback  bool
	OutboundFailed   bool
	CompletionFailed bool
	Err              error
}

func (r TurnResult) IsMeitei() bool {
	return r.Script == script.Meitei
}

// DisplayReply strips the translation failure marker for surfaces that show
// the flag separately.
func (r TurnResult) DisplayReply() string {
	return strings.TrimPrefix(r.Reply, TranslationFailedMarker)
}

type Orchestrator struct {
	classifier script.Classifier
	inbound    translator.Translator
	outbound   translator.Translator
	completer  Completer
	policy     Policy
	observer   Observer
}

func NewOrchestrator(classifier script.Classifier, inbound, outbound translator.Translator, completer Completer, policy Policy, observer Observer) *Orchestrator {
	if policy.MinInboundLength <= 0 {
		policy.MinInboundLength = DefaultMinInboundLength
	}
	if policy.MinOutboundLength <= 0 {
		policy.MinOutboundLength = DefaultMinOutboundLength
	}
	if observer == nil {
		observer = noopObserver{}
	}
	return &Orchestrator{
		classifier: classifier,
		inbound:    inbound,
		outbound:   outbound,
		completer:  completer,
		policy:     policy,
		observer:   observer,
	}
}

// HandleTurn runs one user turn against sess. Turns on the same session are
// serialized. Blank input returns a zero TurnResult without touching history.
func (o *Orchestrator) HandleTurn(ctx context.Context, sess *Session, raw string, deltas chan<- string) TurnResult {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return TurnResult{}
	}

	sess.turnMu.Lock()
	defer sess.turnMu.Unlock()

	result := TurnResult{Script: o.classifier.Classify(raw)}
	defer func() { o.observer.TurnHandled(result.Script) }()

	userContent := raw
	if result.IsMeitei() {
		english, ok := o.translate(ctx, o.inbound, translator.MeiteiToEnglish, raw, o.policy.MinInboundLength)
		if ok {
			userContent = meiteiUserMessage(raw, english)
		} else {
			result.InboundFallback = true
			userContent = untranslatedUserMessage(raw)
		}
		// Deltas would be English while the reply is Meitei.
		deltas = nil
	}
	sess.Append(Message{Role: RoleUser, Content: userContent})

	started := time.Now()
	completion, err := o.completer.Complete(ctx, sess.Messages(), deltas)
	o.observer.CompletionFinished(time.Since(started), err)
	if err == nil && strings.TrimSpace(completion) == "" {
		err = errEmptyCompletion
	}
	if err != nil {
		slog.Warn("completion failed; replying with apology", "session_id", sess.ID(), "error", err)
		result.CompletionFailed = true
		result.Err = err
		result.Reply = apologyFor(err)
		return result
	}

	result.Reply = completion
	if result.IsMeitei() {
		meitei, ok := o.translate(ctx, o.outbound, translator.EnglishToMeitei, completion, o.policy.MinOutboundLength)
		if ok {
			result.Reply = meitei
		} else {
			result.OutboundFailed = true
			result.Reply = TranslationFailedMarker + completion
		}
	}

	sess.Append(Message{Role: RoleAssistant, Content: completion})
	return result
}

func (o *Orchestrator) translate(ctx context.Context, t translator.Translator, dir translator.Direction, text string, minLength int) (string, bool) {
	if t == nil {
		o.observer.TranslationFailed(dir)
		return "", false
	}
	out, err := t.Translate(ctx, text)
	if err != nil {
		slog.Warn("translation failed", "direction", dir, "error", err)
		o.observer.TranslationFailed(dir)
		return "", false
	}
	out = strings.TrimSpace(out)
	if utf8.RuneCountInString(out) < minLength {
		slog.Warn("translation result implausibly short", "direction", dir, "length", utf8.RuneCountInString(out), "min_length", minLength)
		o.observer.TranslationFailed(dir)
		return "", false
	}
	return out, true
}

func meiteiUserMessage(original, english string) string {
	return fmt.Sprintf("[Original Meitei: %s]\n%s\n\nPlease respond to this query in English, and I will translate it back to Meitei Mayek.", original, english)
}

func untranslatedUserMessage(original string) string {
	return fmt.Sprintf("I received text in Meitei Mayek script that I couldn't translate properly. The original text is: %s\n\nPlease respond with a general greeting or ask me to try again in English.", original)
}

var errEmptyCompletion = errors.New("completion returned no text")

const (
	ApologyUnavailable = "I'm sorry, I'm having trouble connecting to my knowledge service right now. " +
		"This could be due to network issues or service unavailability. Please try again later or check your internet connection."
	ApologyTimeout = "I'm sorry, the request timed out. " +
		"This could be due to network issues or high server load. Please try again later."
)

type timeoutError interface {
	Timeout() bool
}

func apologyFor(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return ApologyTimeout
	}
	var te timeoutError
	if errors.As(err, &te) && te.Timeout() {
		return ApologyTimeout
	}
	return ApologyUnavailable
}
