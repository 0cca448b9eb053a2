package credstore

import (
	"errors"
	"sync"

	"classfeed/pkg/domain"
)

var errPartialSession = errors.New("refusing to persist a partial session")

// MemoryStore keeps the session in process memory. It backs tests and
// ephemeral runs where nothing should touch the filesystem.
type MemoryStore struct {
	mu      sync.Mutex
	session domain.Session
	present bool
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Save(session domain.Session) error {
	if !session.Valid() {
		return errPartialSession
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = session
	m.present = true
	return nil
}

func (m *MemoryStore) Load() (domain.Session, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.present {
		return domain.Session{}, false, nil
	}
	return m.session, true, nil
}

func (m *MemoryStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = domain.Session{}
	m.present = false
	return nil
}
