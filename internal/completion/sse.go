package completion

import (
	"bufio"
	"encoding/json"
	"errors"
	"io"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

const (
	sseDataPrefix = "data:"
	sseDone       = "[DONE]"
)

// ParseStream reads an event-stream body and returns the concatenated content
// deltas. Lines that are not data lines or do not decode are skipped. The
// accumulated text is returned alongside any read error.
func ParseStream(r io.Reader, onDelta func(delta string) error) (string, error) {
	var sb strings.Builder
	reader := bufio.NewReader(r)
	for {
		line, readErr := reader.ReadString('\n')
		if line != "" {
			done, err := parseLine(line, &sb, onDelta)
			if err != nil {
				return sb.String(), err
			}
			if done {
				return sb.String(), nil
			}
		}
		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				return sb.String(), nil
			}
			return sb.String(), readErr
		}
	}
}

func parseLine(line string, sb *strings.Builder, onDelta func(string) error) (bool, error) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, sseDataPrefix) {
		return false, nil
	}
	payload := strings.TrimSpace(strings.TrimPrefix(line, sseDataPrefix))
	if payload == sseDone {
		return true, nil
	}
	var chunk openai.ChatCompletionStreamResponse
	if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
		return false, nil
	}
	if len(chunk.Choices) == 0 {
		return false, nil
	}
	delta := chunk.Choices[0].Delta.Content
	if delta == "" {
		return false, nil
	}
	sb.WriteString(delta)
	if onDelta != nil {
		if err := onDelta(delta); err != nil {
			return false, err
		}
	}
	return false, nil
}
