package session

import "time"

const historySize = 10

type Message struct {
	Role string    `json:"role"`
	Text string    `json:"text"`
	At   time.Time `json:"at"`
}

// Session is the per-conversation state the decision engine reads and
// writes. PresentedBlocs only grows and LastBlocID is always a member of it;
// both are set by the engine, never inferred from rendered text.
type Session struct {
	ID             string
	Messages       []Message
	LastBlocID     string
	PresentedBlocs map[string]struct{}
	TopicContext   map[string]string
	CreatedAt      time.Time
	LastAccessedAt time.Time
}

func (s *Session) AddMessage(role, text string) {
	s.Messages = append(s.Messages, Message{Role: role, Text: text, At: time.Now()})
	if len(s.Messages) > historySize {
		s.Messages = s.Messages[len(s.Messages)-historySize:]
	}
}

// RecordBloc marks a bloc as presented and makes it the current one.
func (s *Session) RecordBloc(blocID string) {
	s.PresentedBlocs[blocID] = struct{}{}
	s.LastBlocID = blocID
}

func (s *Session) WasPresented(blocID string) bool {
	_, ok := s.PresentedBlocs[blocID]
	return ok
}

// Transcript renders the message history for hand-off to a human queue.
func (s *Session) Transcript() []string {
	out := make([]string, 0, len(s.Messages))
	for _, msg := range s.Messages {
		out = append(out, msg.Role+": "+msg.Text)
	}
	return out
}

// State is the read-only diagnostic view returned to operator tooling.
type State struct {
	LastBlocID     string            `json:"last_bloc_id"`
	PresentedBlocs []string          `json:"presented_blocs"`
	TopicContext   map[string]string `json:"topic_context"`
	CreatedAt      time.Time         `json:"created_at"`
	LastAccessedAt time.Time         `json:"last_accessed_at"`
}

type Stats struct {
	ActiveSessions int     `json:"active_sessions"`
	Capacity       int     `json:"capacity"`
	Utilization    float64 `json:"utilization_fraction"`
}
