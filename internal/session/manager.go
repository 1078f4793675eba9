package session

import (
	"sync"
	"time"
)

// Manager serializes turn processing per conversation. Two overlapping
// sendMessage calls for the same conversation would otherwise both read the
// same pool index before either rotates; the per-conversation lock removes
// that interleaving within this process. Separate processes sharing the
// durable store remain last-writer-wins.
type Manager struct {
	mu      sync.Mutex
	mutexes map[string]*convLock
}

type convLock struct {
	mu       sync.Mutex
	lastUsed time.Time
}

func NewManager() *Manager {
	return &Manager{
		mutexes: make(map[string]*convLock),
	}
}

// WithLock executes fn while holding the per-conversation mutex.
// Concurrent turns in the same conversation are serialized; different
// conversations run in parallel.
func (m *Manager) WithLock(conversationID string, fn func() error) error {
	m.mu.Lock()
	cl, ok := m.mutexes[conversationID]
	if !ok {
		cl = &convLock{}
		m.mutexes[conversationID] = cl
	}
	m.mu.Unlock()

	cl.mu.Lock()
	defer cl.mu.Unlock()

	cl.lastUsed = time.Now()
	return fn()
}

// Cleanup removes locks not used within maxAge to prevent memory leaks.
func (m *Manager) Cleanup(maxAge time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	for id, cl := range m.mutexes {
		if now.Sub(cl.lastUsed) > maxAge {
			delete(m.mutexes, id)
		}
	}
}
