package realtime

import (
	"context"
	"sort"
	"sync"
)

// SessionRegistry tracks which connections belong to which user. A user is
// online while at least one session is registered.
type SessionRegistry interface {
	// Register adds sessionID for userID. first is true when the user had no
	// session before.
	Register(ctx context.Context, userID uint64, sessionID string) (first bool, err error)
	// Deregister removes sessionID. last is true when it was the user's final
	// session.
	Deregister(ctx context.Context, userID uint64, sessionID string) (last bool, err error)
	Sessions(ctx context.Context, userID uint64) ([]string, error)
	Online(ctx context.Context) ([]uint64, error)
}

// MemoryRegistry is the single-instance SessionRegistry.
type MemoryRegistry struct {
	mu       sync.Mutex
	sessions map[uint64]map[string]struct{}
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{sessions: make(map[uint64]map[string]struct{})}
}

func (m *MemoryRegistry) Register(_ context.Context, userID uint64, sessionID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	set, ok := m.sessions[userID]
	if !ok {
		set = make(map[string]struct{})
		m.sessions[userID] = set
	}
	set[sessionID] = struct{}{}
	return !ok, nil
}

func (m *MemoryRegistry) Deregister(_ context.Context, userID uint64, sessionID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	set, ok := m.sessions[userID]
	if !ok {
		return false, nil
	}
	if _, ok := set[sessionID]; !ok {
		return false, nil
	}
	delete(set, sessionID)
	if len(set) > 0 {
		return false, nil
	}
	delete(m.sessions, userID)
	return true, nil
}

func (m *MemoryRegistry) Sessions(_ context.Context, userID uint64) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]string, 0, len(m.sessions[userID]))
	for id := range m.sessions[userID] {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

func (m *MemoryRegistry) Online(_ context.Context) ([]uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]uint64, 0, len(m.sessions))
	for id := range m.sessions {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}
