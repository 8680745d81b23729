package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/foxseedlab/n7chat/internal/audio"
	"github.com/foxseedlab/n7chat/internal/pipeline"
	"github.com/foxseedlab/n7chat/internal/speaker"
	"github.com/samber/do/v2"
	"github.com/spf13/cobra"
)

var chatSystemPrompt string

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat in the terminal",
	Long: `Chat in the terminal. English replies stream as they arrive; Meitei
Mayek replies print once translated.

Commands:
  exit, quit         end the session
  clear              forget the conversation
  tts on, tts off    speak replies (needs TTS_URL)
  system <prompt>    replace the conversation with a new system prompt`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChat(cmd.Context(), os.Stdin, os.Stdout)
	},
}

func init() {
	chatCmd.Flags().StringVar(&chatSystemPrompt, "system-prompt", "", "system prompt for this session")
}

func runChat(ctx context.Context, in io.Reader, out io.Writer) error {
	cfg := mustLoadConfig()
	initLogger(cfg, os.Stderr)
	if chatSystemPrompt != "" {
		cfg.SystemPrompt = chatSystemPrompt
	}
	// The REPL speaks replies itself so tts can be toggled.
	ttsOn := cfg.SpeakReplies
	cfg.SpeakReplies = false

	injector := setupDI(cfg, func(i do.Injector) {
		do.ProvideValue[audio.Device](i, nil)
	})
	p, err := do.Invoke[*pipeline.Pipeline](injector)
	if err != nil {
		return fmt.Errorf("resolve pipeline: %w", err)
	}
	defer closePipeline(injector, p)
	voice := do.MustInvoke[*speaker.Voice](injector)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repl := &chatREPL{pipeline: p, voice: voice, ttsOn: ttsOn, out: out}
	return repl.run(ctx, in)
}

type chatREPL struct {
	pipeline *pipeline.Pipeline
	voice    *speaker.Voice
	ttsOn    bool
	out      io.Writer
}

func (r *chatREPL) run(ctx context.Context, in io.Reader) error {
	r.printf("%s\nn7chat\nType 'exit' or 'quit' to end the session\nType 'clear' to clear the chat history\n"+
		"Type 'tts on/off' to toggle text-to-speech\nType 'system <prompt>' to set a system prompt\n%s\n",
		strings.Repeat("=", 50), strings.Repeat("=", 50))

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		r.printf("\nYou: ")
		var line string
		select {
		case <-ctx.Done():
			r.printf("\n\nExiting chat session...\n")
			return nil
		case l, ok := <-lines:
			if !ok {
				r.printf("\nExiting chat session...\n")
				return nil
			}
			line = l
		}
		if done := r.handleLine(ctx, line); done {
			return nil
		}
	}
}

// handleLine reports whether the session should end.
func (r *chatREPL) handleLine(ctx context.Context, line string) bool {
	cmd := strings.ToLower(strings.TrimSpace(line))
	switch {
	case cmd == "exit" || cmd == "quit":
		r.printf("Exiting chat session...\n")
		return true
	case cmd == "clear":
		r.pipeline.ClearHistory()
		r.printf("Chat history cleared.\n")
	case cmd == "tts on":
		if r.voice == nil {
			r.printf("Text-to-speech is not configured.\n")
			return false
		}
		r.ttsOn = true
		r.printf("Text-to-speech enabled.\n")
	case cmd == "tts off":
		r.ttsOn = false
		r.printf("Text-to-speech disabled.\n")
	case strings.HasPrefix(cmd, "system "):
		prompt := strings.TrimSpace(strings.TrimSpace(line)[len("system "):])
		if prompt == "" {
			r.printf("System prompt cannot be empty.\n")
			return false
		}
		r.pipeline.SetSystemPrompt(prompt)
		r.printf("System prompt set to: %s\n", prompt)
	case cmd == "":
	default:
		r.turn(ctx, line)
	}
	return false
}

// turn prints English deltas as they stream. With tts on, completed
// sentences are spoken while the rest of the reply is still arriving.
func (r *chatREPL) turn(ctx context.Context, line string) {
	r.printf("\nAssistant: ")
	speech := r.startSpeech(ctx)
	deltas := make(chan string, 64)
	printed := make(chan int, 1)
	go func() {
		var splitter speaker.SentenceSplitter
		n := 0
		for d := range deltas {
			r.printf("%s", d)
			n += len(d)
			for _, sentence := range splitter.Push(d) {
				speech.say(sentence)
			}
		}
		if rest := splitter.Flush(); rest != "" {
			speech.say(rest)
		}
		printed <- n
	}()

	res := r.pipeline.HandleTurnStream(ctx, line, deltas)
	close(deltas)
	if <-printed == 0 || res.CompletionFailed {
		r.printf("%s", res.Reply)
		if !res.CompletionFailed {
			speech.say(res.DisplayReply())
		}
	}
	r.printf("\n")
	speech.wait()
}

type speechQueue struct {
	sentences chan string
	done      chan struct{}
}

func (r *chatREPL) startSpeech(ctx context.Context) *speechQueue {
	if !r.ttsOn || r.voice == nil {
		return nil
	}
	q := &speechQueue{sentences: make(chan string, 32), done: make(chan struct{})}
	go func() {
		defer close(q.done)
		for sentence := range q.sentences {
			if err := r.voice.Say(ctx, sentence); err != nil {
				slog.Warn("speaking reply failed", "error", err)
			}
		}
	}()
	return q
}

func (q *speechQueue) say(text string) {
	if q == nil {
		return
	}
	q.sentences <- text
}

func (q *speechQueue) wait() {
	if q == nil {
		return
	}
	close(q.sentences)
	<-q.done
}

func (r *chatREPL) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(r.out, format, args...)
}
