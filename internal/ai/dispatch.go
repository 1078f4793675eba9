package ai

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/norahq/nora/internal/keypool"
)

// Dispatcher performs one provider call per attempt with the pool's active
// key and drives bounded failover: a rate-limited key is marked, the pool
// rotates, and the same prompt is retried on the next key. Any other
// failure propagates immediately without rotation.
type Dispatcher struct {
	provider Provider
	pool     *keypool.Manager
}

func NewDispatcher(provider Provider, pool *keypool.Manager) *Dispatcher {
	return &Dispatcher{provider: provider, pool: pool}
}

// Dispatch sends the prompt and returns the answer text. Retries are
// bounded by the pool size: one attempt per key within a single ring
// traversal, so at most N-1 retries after the first attempt.
func (d *Dispatcher) Dispatch(ctx context.Context, pc PromptContext) (string, error) {
	if strings.TrimSpace(pc.UserMessage) == "" {
		return "", ErrEmptyMessage
	}
	n := d.pool.Size()
	if n == 0 {
		return "", keypool.ErrNoKeys
	}

	for attempt := 0; attempt < n; attempt++ {
		key, idx := d.pool.ActiveKey()

		text, err := d.provider.Generate(ctx, key, pc.Contents)
		if err == nil {
			if perr := d.pool.RecordSuccess(idx); perr != nil {
				log.Printf("dispatch: %v", perr)
			}
			return text, nil
		}

		kind := Classify(err)
		if kind != KindRateLimited {
			if perr := d.pool.RecordFailure(idx, err.Error(), false); perr != nil {
				log.Printf("dispatch: %v", perr)
			}
			return "", wrapProvider(kind, err)
		}

		log.Printf("dispatch: key %d rate-limited, rotating (attempt %d/%d)", idx+1, attempt+1, n)
		if perr := d.pool.RecordFailure(idx, err.Error(), true); perr != nil {
			log.Printf("dispatch: %v", perr)
		}
		if swErr := d.pool.SwitchToNext(); swErr != nil {
			if errors.Is(swErr, keypool.ErrExhausted) {
				return "", swErr
			}
			return "", fmt.Errorf("dispatch: rotating key: %w", swErr)
		}
	}

	// The loop only exits this way if every key rate-limited and the last
	// rotation still found a next key, which a single ring traversal rules
	// out; keep the guard anyway.
	return "", keypool.ErrExhausted
}

func wrapProvider(kind ProviderErrorKind, err error) error {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe
	}
	return &ProviderError{Kind: kind, Message: err.Error()}
}
