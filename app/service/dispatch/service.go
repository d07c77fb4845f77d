package dispatch

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"blocdesk/app/service/queue"

	"github.com/samber/do"
)

// HumanQueue is the external dispatcher for escalated conversations. It
// operates on its own schedule (e.g. a business-hours staffed queue); the
// core has no visibility into dispatch latency.
type HumanQueue interface {
	Dispatch(ctx context.Context, esc queue.Escalation) error
}

// LogSink is the default HumanQueue: it logs the hand-off with the telegram
// attr so the alert route (mylog) forwards it to the staffed chat.
type LogSink struct{}

func NewLogSink(_ *do.Injector) (HumanQueue, error) {
	return &LogSink{}, nil
}

func (s *LogSink) Dispatch(_ context.Context, esc queue.Escalation) error {
	slog.Info("Escalating conversation",
		"queue", esc.Queue,
		"session_id", esc.SessionID,
		"transcript", strings.Join(esc.Transcript, "\n"),
		"telegram", true)

	return nil
}

type Service struct {
	queueSvc *queue.Service
	sink     HumanQueue
}

func New(di *do.Injector) (*Service, error) {
	return &Service{
		queueSvc: do.MustInvoke[*queue.Service](di),
		sink:     do.MustInvoke[HumanQueue](di),
	}, nil
}

// Run drains the escalation queue until the context is cancelled. A failed
// dispatch is logged and dropped; the conversation already got its Decision.
func (s *Service) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case esc, ok := <-s.queueSvc.Channel():
			if !ok {
				return nil
			}

			start := time.Now()
			if err := s.sink.Dispatch(ctx, esc); err != nil {
				slog.Error("Failed to dispatch escalation",
					"queue", esc.Queue,
					"session_id", esc.SessionID,
					"error", err)
				continue
			}

			slog.Debug("Dispatched escalation",
				"queue", esc.Queue,
				"session_id", esc.SessionID,
				"duration", time.Since(start))
		}
	}
}
