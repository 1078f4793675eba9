package keypool

import "time"

// Credential is one Gemini API key together with its health bookkeeping.
type Credential struct {
	Key                string     `json:"key"`
	IsActive           bool       `json:"is_active"`
	IsRateLimited      bool       `json:"is_rate_limited"`
	LastUsedAt         *time.Time `json:"last_used_at,omitempty"`
	RequestCount       int        `json:"request_count"`
	EstimatedRemaining int        `json:"estimated_remaining"`
	LastError          string     `json:"last_error,omitempty"`
}

// PoolState is the durable record of the whole key pool. It is owned by
// Manager and serialized after every mutation; exactly one credential is
// active at any time and its index equals CurrentIndex.
type PoolState struct {
	CurrentIndex  int          `json:"current_index"`
	Credentials   []Credential `json:"credentials"`
	TotalRequests int          `json:"total_requests"`
	LastResetAt   time.Time    `json:"last_reset_at"`
	Error         string       `json:"error,omitempty"`
}

// Clone returns a deep copy safe to hand to callers.
func (s *PoolState) Clone() PoolState {
	out := *s
	out.Credentials = make([]Credential, len(s.Credentials))
	copy(out.Credentials, s.Credentials)
	for i, c := range s.Credentials {
		if c.LastUsedAt != nil {
			t := *c.LastUsedAt
			out.Credentials[i].LastUsedAt = &t
		}
	}
	return out
}

// StateStore persists the pool record. Load returns (nil, nil) when no
// record exists yet.
type StateStore interface {
	LoadPoolState() (*PoolState, error)
	SavePoolState(*PoolState) error
}
