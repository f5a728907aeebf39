package state

import (
	"log"
	"sync"
	"time"
)

// Store is the per-sender session registry. Sessions live in process memory only;
// in-flight conversations are abandoned on restart.
type Store interface {
	Get(senderID string) (Session, bool)
	Create(senderID string, initial Conversation) Session
	Update(senderID string, fn func(*Session) error) (bool, error)
	Delete(senderID string)
	Len() int
}

type MemoryStore struct {
	sessions   map[string]*Session
	fsmCreator StepFSMCreator
	mu         sync.RWMutex
	now        func() time.Time
}

var _ Store = (*MemoryStore)(nil)

func NewStore(f StepFSMCreator) *MemoryStore {
	return &MemoryStore{
		sessions:   make(map[string]*Session),
		fsmCreator: f,
		now:        time.Now,
	}
}

// Get returns a copy of the session header; Current is an immutable value.
func (s *MemoryStore) Get(senderID string) (Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[senderID]
	if !ok {
		return Session{}, false
	}
	return *sess, true
}

// Create starts a session at initial's step. An existing session is overwritten, so
// callers check Get first.
func (s *MemoryStore) Create(senderID string, initial Conversation) Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[senderID]; exists {
		log.Printf("Warning: overwriting existing session for sender %s", senderID)
	}

	now := s.now()
	sess := &Session{
		SenderID:  senderID,
		Current:   initial,
		Steps:     s.fsmCreator.NewStepFSM(initial.Step()),
		StartedAt: now,
		UpdatedAt: now,
	}
	s.sessions[senderID] = sess
	log.Printf("Session created for sender %s at step %s", senderID, initial.Step())

	return *sess
}

// Update runs fn against a copy of the stored session header. It reports false when no
// session exists. When fn fails the header is not committed, but Steps is shared with the
// stored session, so fn must undo any step machine move it made before failing.
func (s *MemoryStore) Update(senderID string, fn func(*Session) error) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[senderID]
	if !ok {
		return false, nil
	}
	draft := *sess
	if err := fn(&draft); err != nil {
		return true, err
	}
	draft.UpdatedAt = s.now()
	*sess = draft
	return true, nil
}

func (s *MemoryStore) Delete(senderID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[senderID]; ok {
		delete(s.sessions, senderID)
		log.Printf("Session removed for sender %s", senderID)
	}
}

func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
