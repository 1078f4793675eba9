package keypool

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"
)

// Initial per-key quota estimate, decremented on each success. Purely a
// heuristic shown in telemetry; rotation is driven by 429s, not by this.
const defaultEstimatedQuota = 50

var (
	// ErrNoKeys means the pool was configured with zero credentials.
	ErrNoKeys = errors.New("keypool: no API keys configured")
	// ErrExhausted means every credential has been tried and rate-limited
	// within one traversal of the ring since the last reset.
	ErrExhausted = errors.New("keypool: all API keys are rate-limited")
)

// Manager owns the PoolState and is the only component that mutates it.
// Every mutation is persisted through the StateStore before the call
// returns. Persistence is last-writer-wins: two processes sharing the same
// store can lose updates; the mutex below only covers this process.
type Manager struct {
	mu            sync.Mutex
	state         *PoolState
	store         StateStore
	resetInterval time.Duration
	now           func() time.Time
}

// NewManager builds the pool from the configured keys, merged with any
// persisted state younger than resetInterval. Persisted counters and flags
// are matched to configured keys by key value, not by position, so keys may
// be reordered externally without corrupting the bookkeeping. A nil clock
// means time.Now.
func NewManager(store StateStore, keys []string, resetInterval time.Duration, clock func() time.Time) (*Manager, error) {
	if len(keys) == 0 {
		return nil, ErrNoKeys
	}
	if clock == nil {
		clock = time.Now
	}

	m := &Manager{store: store, resetInterval: resetInterval, now: clock}

	prev, err := store.LoadPoolState()
	if err != nil {
		log.Printf("keypool: failed to load persisted state, starting fresh: %v", err)
		prev = nil
	}

	now := m.now()
	if prev != nil && now.Sub(prev.LastResetAt) < resetInterval {
		m.state = mergeState(prev, keys)
	} else {
		m.state = freshState(keys, now)
	}

	if err := m.persist(); err != nil {
		return nil, fmt.Errorf("keypool: persisting initial state: %w", err)
	}
	return m, nil
}

func freshState(keys []string, now time.Time) *PoolState {
	creds := make([]Credential, len(keys))
	for i, k := range keys {
		creds[i] = Credential{Key: k, EstimatedRemaining: defaultEstimatedQuota}
	}
	creds[0].IsActive = true
	return &PoolState{Credentials: creds, LastResetAt: now}
}

func mergeState(prev *PoolState, keys []string) *PoolState {
	byKey := make(map[string]Credential, len(prev.Credentials))
	for _, c := range prev.Credentials {
		byKey[c.Key] = c
	}

	creds := make([]Credential, len(keys))
	for i, k := range keys {
		if old, ok := byKey[k]; ok {
			creds[i] = old
		} else {
			creds[i] = Credential{Key: k, EstimatedRemaining: defaultEstimatedQuota}
		}
		creds[i].IsActive = false
	}

	idx := prev.CurrentIndex
	if idx < 0 || idx >= len(creds) {
		idx = 0
	}
	creds[idx].IsActive = true

	return &PoolState{
		CurrentIndex:  idx,
		Credentials:   creds,
		TotalRequests: prev.TotalRequests,
		LastResetAt:   prev.LastResetAt,
		Error:         prev.Error,
	}
}

// ActiveKey returns the currently active credential's key and index.
func (m *Manager) ActiveKey() (string, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Credentials[m.state.CurrentIndex].Key, m.state.CurrentIndex
}

// Size returns the number of credentials in the pool.
func (m *Manager) Size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.state.Credentials)
}

// Snapshot returns a copy of the pool state for telemetry.
func (m *Manager) Snapshot() PoolState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Clone()
}

// RecordSuccess marks one successful request on the credential at idx.
func (m *Manager) RecordSuccess(idx int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c := &m.state.Credentials[idx]
	now := m.now()
	c.LastUsedAt = &now
	c.RequestCount++
	if c.EstimatedRemaining > 0 {
		c.EstimatedRemaining--
	}
	c.LastError = ""
	m.state.TotalRequests++
	return m.persist()
}

// RecordFailure records a failed request on the credential at idx. Only a
// rate-limit failure marks the credential unusable; any other failure keeps
// it in rotation with the cause noted.
func (m *Manager) RecordFailure(idx int, cause string, rateLimited bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c := &m.state.Credentials[idx]
	c.LastError = cause
	if rateLimited {
		c.IsRateLimited = true
	}
	return m.persist()
}

// SwitchToNext advances the active credential to the next ring position.
// When the advance would wrap back to index 0 the full ring has been
// traversed since the last reset: the pool is exhausted, the index stays
// where it is, the pool-level error is set, and ErrExhausted is returned.
func (m *Manager) SwitchToNext() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := (m.state.CurrentIndex + 1) % len(m.state.Credentials)
	if next == 0 {
		m.state.Error = "all API keys are rate-limited; waiting for next reset"
		if err := m.persist(); err != nil {
			return err
		}
		return ErrExhausted
	}

	m.state.Credentials[m.state.CurrentIndex].IsActive = false
	m.state.Credentials[next].IsActive = true
	m.state.CurrentIndex = next
	m.state.Error = ""
	log.Printf("keypool: switched to key %d of %d", next+1, len(m.state.Credentials))
	return m.persist()
}

// ResetAll reactivates the first credential and clears every rate-limit
// flag. Called manually or by the scheduled reset ticker.
func (m *Manager) ResetAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.state.Credentials {
		m.state.Credentials[i].IsActive = false
		m.state.Credentials[i].IsRateLimited = false
		m.state.Credentials[i].LastError = ""
	}
	m.state.Credentials[0].IsActive = true
	m.state.CurrentIndex = 0
	m.state.Error = ""
	m.state.LastResetAt = m.now()
	log.Printf("keypool: reset, key 1 of %d active", len(m.state.Credentials))
	return m.persist()
}

// ResetInterval reports the configured reset period.
func (m *Manager) ResetInterval() time.Duration {
	return m.resetInterval
}

func (m *Manager) persist() error {
	if err := m.store.SavePoolState(m.state); err != nil {
		return fmt.Errorf("keypool: persisting state: %w", err)
	}
	return nil
}
