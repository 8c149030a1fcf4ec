package store

import (
	"context"
	"errors"
)

// KeyPrefix is prepended to a token to form the store key.
const KeyPrefix = "acmetxtchal:"

// ErrNotFound is returned by ChallengeStore.Challenge when no payload exists for the
// token. Any other error indicates the store itself could not be consulted.
var ErrNotFound = errors.New("store: challenge not found")

// ChallengeStore returns the TXT payload for a token. Implementations must be safe for
// concurrent use and must honor ctx cancellation and deadlines.
type ChallengeStore interface {
	Challenge(ctx context.Context, token string) (string, error)
}

// Key returns the store key for token.
func Key(token string) string {
	return KeyPrefix + token
}
