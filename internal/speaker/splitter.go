package speaker

import (
	"regexp"
	"strings"
)

// Latin terminators plus the Meitei Mayek full stop (U+ABEB).
var sentencePattern = regexp.MustCompile(`[^.!?\x{ABEB}]*[.!?\x{ABEB}]`)

type SentenceSplitter struct {
	buf strings.Builder
}

// Push appends a fragment and returns every sentence completed by it.
func (s *SentenceSplitter) Push(fragment string) []string {
	s.buf.WriteString(fragment)
	text := s.buf.String()

	var sentences []string
	for {
		loc := sentencePattern.FindStringIndex(text)
		if loc == nil {
			break
		}
		if sentence := strings.TrimSpace(text[:loc[1]]); sentence != "" {
			sentences = append(sentences, sentence)
		}
		text = text[loc[1]:]
	}
	s.buf.Reset()
	s.buf.WriteString(text)
	return sentences
}

// Flush returns the unterminated remainder and clears the buffer.
func (s *SentenceSplitter) Flush() string {
	rest := strings.TrimSpace(s.buf.String())
	s.buf.Reset()
	return rest
}

func SplitSentences(text string) []string {
	var s SentenceSplitter
	out := s.Push(text)
	if rest := s.Flush(); rest != "" {
		out = append(out, rest)
	}
	return out
}
