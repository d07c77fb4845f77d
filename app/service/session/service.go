package session

import (
	"container/list"
	"sort"
	"sync"
	"time"

	"blocdesk/app/config"

	"github.com/samber/do"
)

// Store holds sessions in memory with a fixed capacity and an inactivity
// TTL. Eviction runs opportunistically on access: expired sessions go first,
// then the oldest-accessed one when the store is full. An evicted session
// simply restarts as new on its next message.
type Store struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	entries  map[string]*entry
	order    *list.List // front = most recently accessed

	now func() time.Time
}

type entry struct {
	mu   sync.Mutex
	sess *Session
	elem *list.Element
}

func New(di *do.Injector) (*Store, error) {
	cfg := do.MustInvoke[*config.Config](di)

	return NewStore(cfg.Memory.Capacity, time.Duration(cfg.Memory.TTLSeconds)*time.Second), nil
}

func NewStore(capacity int, ttl time.Duration) *Store {
	return &Store{
		capacity: capacity,
		ttl:      ttl,
		entries:  make(map[string]*entry, capacity),
		order:    list.New(),
		now:      time.Now,
	}
}

// Update runs fn against the session for id, creating it if needed. The
// callback runs under a per-session lock, so read-modify-write cycles for the
// same key never interleave; unrelated sessions proceed concurrently.
func (s *Store) Update(id string, fn func(*Session)) {
	s.mu.Lock()
	s.evictExpiredLocked()

	e, ok := s.entries[id]
	if !ok {
		s.evictOverCapacityLocked()

		now := s.now()
		e = &entry{
			sess: &Session{
				ID:             id,
				PresentedBlocs: make(map[string]struct{}),
				TopicContext:   make(map[string]string),
				CreatedAt:      now,
			},
		}
		e.elem = s.order.PushFront(e)
		s.entries[id] = e
	} else {
		s.order.MoveToFront(e.elem)
	}
	e.sess.LastAccessedAt = s.now()
	s.mu.Unlock()

	e.mu.Lock()
	defer e.mu.Unlock()

	fn(e.sess)
}

// Snapshot returns a read-only copy of the session state. It does not count
// as access: two consecutive snapshots with no Update in between are
// identical.
func (s *Store) Snapshot(id string) (State, bool) {
	s.mu.Lock()
	e, ok := s.entries[id]
	s.mu.Unlock()

	if !ok {
		return State{}, false
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	presented := make([]string, 0, len(e.sess.PresentedBlocs))
	for blocID := range e.sess.PresentedBlocs {
		presented = append(presented, blocID)
	}
	sort.Strings(presented)

	topic := make(map[string]string, len(e.sess.TopicContext))
	for k, v := range e.sess.TopicContext {
		topic[k] = v
	}

	return State{
		LastBlocID:     e.sess.LastBlocID,
		PresentedBlocs: presented,
		TopicContext:   topic,
		CreatedAt:      e.sess.CreatedAt,
		LastAccessedAt: e.sess.LastAccessedAt,
	}, true
}

func (s *Store) Clear(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.entries[id]; ok {
		s.order.Remove(e.elem)
		delete(s.entries, id)
	}
}

func (s *Store) ClearAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = make(map[string]*entry, s.capacity)
	s.order.Init()
}

func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Stats{
		ActiveSessions: len(s.entries),
		Capacity:       s.capacity,
		Utilization:    float64(len(s.entries)) / float64(s.capacity),
	}
}

func (s *Store) evictExpiredLocked() {
	deadline := s.now().Add(-s.ttl)

	for elem := s.order.Back(); elem != nil; {
		e := elem.Value.(*entry)
		if e.sess.LastAccessedAt.After(deadline) {
			break
		}

		prev := elem.Prev()
		s.order.Remove(elem)
		delete(s.entries, e.sess.ID)
		elem = prev
	}
}

// evictOverCapacityLocked frees room for one new session, oldest accessed
// first.
func (s *Store) evictOverCapacityLocked() {
	for len(s.entries) >= s.capacity {
		elem := s.order.Back()
		if elem == nil {
			break
		}

		e := elem.Value.(*entry)
		s.order.Remove(elem)
		delete(s.entries, e.sess.ID)
	}
}
