package store

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
)

// Coalesced collapses concurrent lookups of the same token into one lookup of the
// wrapped store. Validation servers tend to query all authoritative servers for a name
// at roughly the same moment, so bursts for a single token are the norm.
type Coalesced struct {
	next   ChallengeStore
	group  singleflight.Group
	shared atomic.Int64
}

func NewCoalesced(next ChallengeStore) *Coalesced {
	return &Coalesced{next: next}
}

// Challenge returns when the shared lookup completes or ctx is done. The shared lookup
// inherits the deadline of the caller which started it, but not its cancellation, so a
// caller which gives up early does not fail the others.
func (t *Coalesced) Challenge(ctx context.Context, token string) (string, error) {
	ch := t.group.DoChan(token, func() (interface{}, error) {
		lctx := context.WithoutCancel(ctx)
		if dl, ok := ctx.Deadline(); ok {
			var cancel context.CancelFunc
			lctx, cancel = context.WithDeadline(lctx, dl)
			defer cancel()
		}
		payload, err := t.next.Challenge(lctx, token)
		return payload, err
	})

	select {
	case res := <-ch:
		if res.Shared {
			t.shared.Add(1)
		}
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Shared returns the number of lookups satisfied by a lookup started by another caller.
func (t *Coalesced) Shared() int64 {
	return t.shared.Load()
}
