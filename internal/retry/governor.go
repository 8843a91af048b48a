// Package retry wraps oracle calls in a bounded retry policy and paces
// successive submissions.
package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/zombor/receipt-classifier/internal/scanning"
)

// ErrExhausted is returned when every allowed attempt has failed.
var ErrExhausted = errors.New("retry attempts exhausted")

// Policy bounds how an operation is retried.
type Policy struct {
	MaxAttempts   int
	RateLimitWait time.Duration
	BaseDelay     time.Duration
}

// DefaultPolicy returns three attempts, a one minute rate limit wait and
// exponential backoff starting at one second.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:   3,
		RateLimitWait: 60 * time.Second,
		BaseDelay:     time.Second,
	}
}

// Governor runs operations under a Policy.
type Governor struct {
	policy Policy
	logger *slog.Logger

	// newTimer is nil in production, letting backoff use a real timer per call.
	newTimer func() backoff.Timer
}

// NewGovernor creates a Governor. A nil logger falls back to slog.Default.
func NewGovernor(policy Policy, logger *slog.Logger) *Governor {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Governor{policy: policy, logger: logger}
}

// WithTimer returns a copy of g whose waits go through timers built by newTimer.
func (g *Governor) WithTimer(newTimer func() backoff.Timer) *Governor {
	c := *g
	c.newTimer = newTimer
	return &c
}

// Policy returns the policy the governor enforces.
func (g *Governor) Policy() Policy {
	return g.policy
}

// Do runs op until it succeeds, fails permanently or runs out of attempts.
// Rate limited failures wait RateLimitWait; other transport failures wait
// BaseDelay doubled per attempt. No wait follows the final attempt. The
// returned count is the number of times op was invoked.
func (g *Governor) Do(ctx context.Context, op func(context.Context) error) (int, error) {
	state := &attemptState{policy: g.policy}

	operation := func() error {
		state.attempts++
		err := op(ctx)
		state.lastErr = err
		if err != nil && scanning.IsPermanent(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	notify := func(err error, wait time.Duration) {
		g.logger.Warn("Oracle call failed, retrying",
			"attempt", state.attempts,
			"max_attempts", g.policy.MaxAttempts,
			"rate_limited", scanning.IsRateLimited(err),
			"wait", wait,
			"error", err,
		)
	}

	var timer backoff.Timer
	if g.newTimer != nil {
		timer = g.newTimer()
	}

	err := backoff.RetryNotifyWithTimer(operation, backoff.WithContext(state, ctx), notify, timer)
	switch {
	case err == nil:
		return state.attempts, nil
	case ctx.Err() != nil:
		return state.attempts, err
	case scanning.IsPermanent(err):
		return state.attempts, err
	case state.attempts >= g.policy.MaxAttempts:
		return state.attempts, fmt.Errorf("%w after %d attempts: %w", ErrExhausted, state.attempts, err)
	default:
		return state.attempts, err
	}
}

// attemptState is the backoff.BackOff for a single Do call. NextBackOff is
// consulted right after a failed attempt, so lastErr describes that attempt.
type attemptState struct {
	policy   Policy
	attempts int
	lastErr  error
}

func (s *attemptState) NextBackOff() time.Duration {
	if s.attempts >= s.policy.MaxAttempts {
		return backoff.Stop
	}
	if scanning.IsRateLimited(s.lastErr) {
		return s.policy.RateLimitWait
	}
	return s.policy.BaseDelay << (s.attempts - 1)
}

func (s *attemptState) Reset() {}
