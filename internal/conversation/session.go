package conversation

import (
	"sync"

	"github.com/google/uuid"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role
	Content string
}

// Session owns one conversation's history. Turns against a session are
// serialized by the orchestrator through turnMu.
type Session struct {
	id     string
	turnMu sync.Mutex

	mu       sync.Mutex
	messages []Message
}

func NewSession(systemPrompt string) *Session {
	s := &Session{id: uuid.NewString()}
	if systemPrompt != "" {
		s.messages = append(s.messages, Message{Role: RoleSystem, Content: systemPrompt})
	}
	return s
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) Append(m Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, m)
}

// Messages returns a copy of the history in append order.
func (s *Session) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

// Clear empties the history, including any system message.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = nil
}

// Reset replaces the history with a single system message.
func (s *Session) Reset(systemPrompt string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = []Message{{Role: RoleSystem, Content: systemPrompt}}
}
