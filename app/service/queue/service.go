package queue

import (
	"log/slog"

	"github.com/samber/do"
)

const bufferSize = 64

var _ do.Shutdownable = (*Service)(nil)

// Service buffers hand-offs to human queues. Add never blocks the decision
// path: when the buffer is full the escalation is dropped with a warning and
// the caller still gets its Decision.
type Service struct {
	queue chan Escalation
}

// Escalation is what the human-queue dispatcher receives: the target queue
// name ("admin" or "commercial"), the session and its transcript.
type Escalation struct {
	Queue      string
	SessionID  string
	Transcript []string
}

func New(_ *do.Injector) (*Service, error) {
	return &Service{
		queue: make(chan Escalation, bufferSize),
	}, nil
}

func (s *Service) Add(esc Escalation) {
	defer func() {
		if r := recover(); r != nil {
			// send on closed queue during shutdown
		}
	}()

	select {
	case s.queue <- esc:
	default:
		slog.Warn("escalation queue is full",
			"session_id", esc.SessionID,
			"queue", esc.Queue)
	}
}

func (s *Service) Channel() <-chan Escalation {
	return s.queue
}

func (s *Service) Shutdown() error {
	close(s.queue)

	return nil
}
