package store

import (
	"context"
	"errors"
	"sync/atomic"

	"golang.org/x/time/rate"
)

// ErrThrottled is returned by Limited when the lookup budget is exhausted.
var ErrThrottled = errors.New("store: lookup throttled")

// Limited caps the rate of lookups reaching the wrapped store. Tokens are cheap to
// invent so a flood of well-formed challenge queries would otherwise turn directly into
// a flood of store requests. Excess lookups fail immediately rather than queue.
type Limited struct {
	next      ChallengeStore
	limiter   *rate.Limiter
	throttled atomic.Int64
}

// NewLimited allows perSecond lookups with bursts of up to burst. A burst less than one
// is set to perSecond, rounded up.
func NewLimited(next ChallengeStore, perSecond float64, burst int) *Limited {
	if burst < 1 {
		burst = int(perSecond)
		if float64(burst) < perSecond || burst < 1 {
			burst++
		}
	}

	return &Limited{next: next, limiter: rate.NewLimiter(rate.Limit(perSecond), burst)}
}

func (t *Limited) Challenge(ctx context.Context, token string) (string, error) {
	if !t.limiter.Allow() {
		t.throttled.Add(1)
		return "", ErrThrottled
	}

	return t.next.Challenge(ctx, token)
}

// Throttled returns the number of lookups refused so far.
func (t *Limited) Throttled() int64 {
	return t.throttled.Load()
}
