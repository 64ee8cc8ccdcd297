package session

import (
	"context"
	"strconv"
	"sync"
)

// MemoryStore is the identity-bound backing: at most one session per owner,
// held in process memory. The ref is derived from the owner id, so starting
// a new quiz implicitly retires the owner's previous one.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*State
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*State)}
}

func ownerRef(ownerID int64) string {
	return "owner:" + strconv.FormatInt(ownerID, 10)
}

func (m *MemoryStore) Create(_ context.Context, state *State) (string, error) {
	ref := ownerRef(state.OwnerID)
	m.mu.Lock()
	m.sessions[ref] = state.Clone()
	m.mu.Unlock()
	return ref, nil
}

func (m *MemoryStore) Load(_ context.Context, ref string) (*State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[ref]
	if !ok {
		return nil, ErrNotFound
	}
	return s.Clone(), nil
}

func (m *MemoryStore) Save(_ context.Context, ref string, state *State, expectCursor int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.sessions[ref]
	if !ok {
		return ErrNotFound
	}
	if current.Cursor != expectCursor {
		return ErrConflict
	}
	m.sessions[ref] = state.Clone()
	return nil
}
