package mock

import (
	"context"
	"sync"
	"time"

	"github.com/tlsmy/tlsmydns/store"
)

// ChallengeStore is an in-memory store.ChallengeStore. Err, if set, is returned for
// every lookup and Delay makes each lookup block until it expires or the context is
// done, which is how tests exercise store timeouts.
type ChallengeStore struct {
	mu       sync.Mutex
	payloads map[string]string
	lookups  []string // Tokens looked up, in order

	Err   error
	Delay time.Duration
}

func NewChallengeStore() *ChallengeStore {
	return &ChallengeStore{payloads: make(map[string]string)}
}

// Set adds or replaces the payload for token.
func (t *ChallengeStore) Set(token, payload string) {
	t.mu.Lock()
	t.payloads[token] = payload
	t.mu.Unlock()
}

// Lookups returns the tokens passed to Challenge so far.
func (t *ChallengeStore) Lookups() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	return append([]string{}, t.lookups...)
}

func (t *ChallengeStore) Challenge(ctx context.Context, token string) (string, error) {
	t.mu.Lock()
	t.lookups = append(t.lookups, token)
	payload, ok := t.payloads[token]
	delay, err := t.Delay, t.Err
	t.mu.Unlock()

	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if err != nil {
		return "", err
	}
	if !ok {
		return "", store.ErrNotFound
	}

	return payload, nil
}

var _ store.ChallengeStore = (*ChallengeStore)(nil)
