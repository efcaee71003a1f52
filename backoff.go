package previewhl

import (
	"context"
	"math/rand"
	"time"
)

// backoff implements truncated binary exponential backoff with jitter.
// Set min and max before the first call to next.
type backoff struct {
	min     time.Duration
	max     time.Duration
	current time.Duration
}

// next advances the backoff and returns the duration to wait: min on the
// first call, doubling up to max afterwards, plus up to 25% jitter.
func (b *backoff) next() time.Duration {
	if b.current < b.min {
		b.current = b.min
	} else {
		b.current *= 2
		if b.current > b.max {
			b.current = b.max
		}
	}
	jitter := time.Duration(rand.Int63n(int64(b.current)/4 + 1))
	return b.current + jitter
}

// reset restores the backoff to its initial state.
func (b *backoff) reset() {
	b.current = 0
}

// retry calls op until it succeeds, attempts calls have failed, or ctx is
// done, sleeping b.next() between calls.  It returns op's last error.
func retry(ctx context.Context, attempts int, b *backoff, op func() error) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = op(); err == nil {
			b.reset()
			return nil
		}
		if i == attempts-1 {
			break
		}
		t := time.NewTimer(b.next())
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
	return err
}
