package delivery

import (
	"context"
	"time"

	"github.com/goliatone/go-hooks/core"
)

// ExponentialBackoff doubles the delay for each retry, starting at Initial
// and capped at Max.
type ExponentialBackoff struct {
	Initial time.Duration
	Max     time.Duration
}

func (p ExponentialBackoff) Delay(attempt int) time.Duration {
	initial := p.Initial
	if initial <= 0 {
		initial = time.Second
	}
	maximum := p.Max
	if maximum <= 0 {
		maximum = 30 * time.Second
	}
	delay := initial
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= maximum {
			return maximum
		}
	}
	if delay > maximum {
		return maximum
	}
	return delay
}

type ConstantBackoff time.Duration

func (b ConstantBackoff) Delay(int) time.Duration {
	return time.Duration(b)
}

func sleepContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

var (
	_ core.BackoffPolicy = ExponentialBackoff{}
	_ core.BackoffPolicy = ConstantBackoff(0)
)
