package retry

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Pacer spaces out oracle submissions. The first Wait returns immediately.
type Pacer struct {
	limiter *rate.Limiter
}

// NewPacer allows one submission per interval. A non-positive interval
// disables pacing.
func NewPacer(interval time.Duration) *Pacer {
	if interval <= 0 {
		return &Pacer{}
	}
	return &Pacer{limiter: rate.NewLimiter(rate.Every(interval), 1)}
}

// Wait blocks until the next submission may go out or ctx is done.
func (p *Pacer) Wait(ctx context.Context) error {
	if p == nil || p.limiter == nil {
		return nil
	}
	return p.limiter.Wait(ctx)
}
