package decision

import (
	"log/slog"
	"strconv"

	"blocdesk/app/config"
	"blocdesk/app/service/classify"
	"blocdesk/app/service/extract"
	"blocdesk/app/service/queue"
	"blocdesk/app/service/session"
	"blocdesk/app/util/textnorm"

	"github.com/samber/do"
)

// Service is the bloc sequencer: it orchestrates the memory store, the
// classifier and the extractor into one Decision per message. Decide is
// total; malformed input degrades to the fallback bloc, never to an error.
type Service struct {
	catalog    *config.BlocCatalog
	store      *session.Store
	classifier *classify.Service
	extractor  *extract.Service
	queueSvc   *queue.Service

	affirmative map[string]struct{}
	negative    map[string]struct{}
}

func New(di *do.Injector) (*Service, error) {
	return NewEngine(
		do.MustInvoke[*config.BlocCatalog](di),
		do.MustInvoke[*session.Store](di),
		do.MustInvoke[*classify.Service](di),
		do.MustInvoke[*extract.Service](di),
		do.MustInvoke[*queue.Service](di),
	), nil
}

// NewEngine wires the engine directly; queueSvc may be nil when no human
// queue is attached (escalations are then only reflected in the Decision).
func NewEngine(
	catalog *config.BlocCatalog,
	store *session.Store,
	classifier *classify.Service,
	extractor *extract.Service,
	queueSvc *queue.Service,
) *Service {
	s := &Service{
		catalog:     catalog,
		store:       store,
		classifier:  classifier,
		extractor:   extractor,
		queueSvc:    queueSvc,
		affirmative: make(map[string]struct{}, len(catalog.Tokens.Affirmative)),
		negative:    make(map[string]struct{}, len(catalog.Tokens.Negative)),
	}

	for _, token := range catalog.Tokens.Affirmative {
		s.affirmative[token] = struct{}{}
	}
	for _, token := range catalog.Tokens.Negative {
		s.negative[token] = struct{}{}
	}

	return s
}

// Decide selects a bloc for the message within the session's state. The
// whole read-modify-write runs under the session's lock; concurrent calls
// for different sessions do not contend.
func (s *Service) Decide(sessionID, message string) Decision {
	norm := textnorm.Normalize(message)

	var result Decision

	s.store.Update(sessionID, func(sess *session.Session) {
		sess.AddMessage("user", message)
		result = s.decide(sess, norm)
	})

	slog.Debug("Decision made",
		"session_id", sessionID,
		"bloc_id", result.BlocID,
		"escalate", result.ShouldEscalate)

	return result
}

func (s *Service) decide(sess *session.Session, norm string) Decision {
	// Aggression wins over everything, including pending continuations. The
	// calming bloc is presented but does not move the conversation: the
	// pending flow (and topic context) survives the outburst.
	if s.classifier.IsAggressive(norm) {
		rule := s.classifier.Classify(norm)
		d := s.blocDecision(rule.BlocID, rule.Priority)
		sess.PresentedBlocs[d.BlocID] = struct{}{}
		return d
	}

	lastBloc, hasLast := s.catalog.Bloc(sess.LastBlocID)

	// Contextual continuation: a short yes/no after a confirmation-awaiting
	// bloc resolves to its configured next step without classification, so
	// "ok" is never swallowed by the fallback category.
	if hasLast && lastBloc.AwaitConfirmation {
		if _, ok := s.affirmative[norm]; ok {
			return s.emit(sess, lastBloc.NextAffirmative, 0)
		}
		if _, ok := s.negative[norm]; ok && lastBloc.NextNegative != "" {
			return s.emit(sess, lastBloc.NextNegative, 0)
		}
	}

	rule := s.classifier.Classify(norm)
	info := s.extractor.Extract(norm)

	switch rule.Category {
	case classify.CategoryPayment:
		return s.resolvePayment(sess, info, rule.Priority)

	case classify.CategoryCatalog:
		return s.advanceCatalog(sess, rule.Priority)

	case classify.CategoryFallback:
		// An open payment thread swallows fallback messages that carry
		// financing or duration details ("cpf, 5 months ago"), and the
		// filtering question is re-asked while details are still missing.
		hasInfo := info.FinancingType != extract.FinancingUnknown || info.ElapsedDays != nil
		if hasInfo && s.paymentThreadOpen(sess, lastBloc, hasLast) {
			return s.resolvePayment(sess, info, rule.Priority)
		}
		if hasLast && lastBloc.CollectPayment {
			return s.resolvePayment(sess, info, rule.Priority)
		}

		return s.emit(sess, rule.BlocID, rule.Priority)

	default:
		return s.emit(sess, rule.BlocID, rule.Priority)
	}
}

// paymentThreadOpen reports whether the session is mid-way through payment
// filtering: either the filter question was just asked, or exactly one of
// the two required fields is known so far.
func (s *Service) paymentThreadOpen(sess *session.Session, lastBloc *config.Bloc, hasLast bool) bool {
	if hasLast && lastBloc.CollectPayment {
		return true
	}

	_, hasFinancing := sess.TopicContext[ctxFinancingType]
	_, hasDays := sess.TopicContext[ctxElapsedDays]

	return hasFinancing != hasDays
}

// resolvePayment merges freshly extracted fields into the topic context and
// either asks for what is still missing or compares the elapsed time against
// the configured per-type threshold. A field learned on an earlier turn is
// never asked again.
func (s *Service) resolvePayment(sess *session.Session, info extract.FinancingInfo, priority int) Decision {
	if info.FinancingType != extract.FinancingUnknown {
		sess.TopicContext[ctxFinancingType] = string(info.FinancingType)
	}
	if info.ElapsedDays != nil {
		sess.TopicContext[ctxElapsedDays] = strconv.Itoa(*info.ElapsedDays)
	}

	financing, hasFinancing := sess.TopicContext[ctxFinancingType]
	daysStr, hasDays := sess.TopicContext[ctxElapsedDays]

	if !hasFinancing || !hasDays {
		d := s.emit(sess, s.catalog.Payment.FilterBloc, priority)
		if !hasFinancing {
			d.SearchHints = append(d.SearchHints, "missing-financing-type")
		}
		if !hasDays {
			d.SearchHints = append(d.SearchHints, "missing-elapsed-time")
		}
		return d
	}

	threshold, ok := s.catalog.Payment.Thresholds[financing]
	if !ok {
		// financing types come from the same closed set as the threshold
		// keys; an unknown key means a hand-edited catalog
		slog.Warn("no payment threshold configured", "financing_type", financing)
		return s.emit(sess, s.catalog.Payment.FilterBloc, priority)
	}

	days, err := strconv.Atoi(daysStr)
	if err != nil {
		delete(sess.TopicContext, ctxElapsedDays)
		return s.emit(sess, s.catalog.Payment.FilterBloc, priority)
	}

	if days <= threshold.MaxDays {
		return s.emit(sess, threshold.OnTime, priority)
	}

	return s.emit(sess, threshold.Overdue, priority)
}

// advanceCatalog walks the fixed linear progression, skipping every stage
// already presented in this session. Once the terminal stage is reached the
// session stays there.
func (s *Service) advanceCatalog(sess *session.Session, priority int) Decision {
	for _, stage := range s.catalog.CatalogFlow {
		if !sess.WasPresented(stage) {
			return s.emit(sess, stage, priority)
		}
	}

	return s.emit(sess, s.catalog.CatalogFlow[len(s.catalog.CatalogFlow)-1], priority)
}

// emit resolves the bloc configuration into a Decision, records the bloc as
// presented and enqueues the hand-off for escalating terminals. Repeat
// presentations of the same terminal do not enqueue twice.
func (s *Service) emit(sess *session.Session, blocID string, priority int) Decision {
	d := s.blocDecision(blocID, priority)

	alreadyPresented := sess.WasPresented(blocID)
	sess.RecordBloc(blocID)

	if d.ShouldEscalate && !alreadyPresented && s.queueSvc != nil {
		s.queueSvc.Add(queue.Escalation{
			Queue:      string(d.EscalateQueue),
			SessionID:  sess.ID,
			Transcript: sess.Transcript(),
		})
	}

	return d
}

func (s *Service) blocDecision(blocID string, priority int) Decision {
	d := Decision{
		BlocID:        blocID,
		Priority:      priority,
		EscalateQueue: QueueNone,
	}

	bloc, ok := s.catalog.Bloc(blocID)
	if !ok {
		return d
	}

	d.ConfirmationPending = bloc.Filtering
	d.SearchHints = append(d.SearchHints, bloc.SearchHints...)

	if bloc.Escalate != "" {
		d.ShouldEscalate = true
		d.EscalateQueue = Queue(bloc.Escalate)
	}

	return d
}
