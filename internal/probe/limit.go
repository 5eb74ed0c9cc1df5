package probe

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

// Limited wraps a Prober so that concurrent probes of the same host share one
// run, and runs are paced by an optional token bucket. Callers over the rate
// wait for a token; they are never rejected.
type Limited struct {
	next    Prober
	limiter *rate.Limiter
	group   singleflight.Group
}

// NewLimited paces next at perSecond runs with the given burst. perSecond <= 0
// disables pacing.
func NewLimited(next Prober, perSecond float64, burst int) *Limited {
	l := &Limited{next: next}
	if perSecond > 0 {
		if burst < 1 {
			burst = 1
		}
		l.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
	return l
}

func (l *Limited) Probe(ctx context.Context, host string, timeout time.Duration) (time.Duration, error) {
	v, err, _ := l.group.Do(host, func() (interface{}, error) {
		if l.limiter != nil {
			if err := l.limiter.Wait(ctx); err != nil {
				return time.Duration(0), fmt.Errorf("probe %s throttled: %w", host, err)
			}
		}
		return l.next.Probe(ctx, host, timeout)
	})
	if err != nil {
		return 0, err
	}
	return v.(time.Duration), nil
}
