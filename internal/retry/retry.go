package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/bitop-dev/imagine/internal/provider"
)

// Policy bounds one provider's retry loop. The attempt cap, not the
// transport timeout, is what bounds the whole pipeline.
type Policy struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int

	// WaitBudget caps cumulative sleeping across the loop so a single
	// generation call cannot stall indefinitely.
	WaitBudget time.Duration

	// MaxDelay caps any single provider-suggested delay.
	MaxDelay time.Duration

	// Delays holds per-reason default delays applied when the provider
	// gives no hint. Reasons not listed fall back to BaseDelay.
	Delays    map[string]time.Duration
	BaseDelay time.Duration

	// Sleep is the suspension point; tests inject a recorder here.
	// Nil means a real context-aware sleep.
	Sleep func(ctx context.Context, d time.Duration) error
}

// DefaultPolicy matches the free provider's behavior: a cold model takes
// around 20 seconds to warm, and rate limits want a longer pause.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 4,
		WaitBudget:  3 * time.Minute,
		MaxDelay:    time.Minute,
		Delays: map[string]time.Duration{
			provider.CodeModelLoading: 20 * time.Second,
			provider.CodeRateLimited:  30 * time.Second,
		},
		BaseDelay: 2 * time.Second,
	}
}

// Do runs fn until it returns a terminal outcome: success, a
// non-retryable error, or attempt exhaustion. Exhaustion converts the
// last retryable error into retries_exhausted. The attempt count
// returned covers attempts actually made.
func Do(ctx context.Context, p Policy, name string, fn func(ctx context.Context) (provider.GenerateImageResponse, error)) (provider.GenerateImageResponse, int, error) {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 4
	}
	if p.WaitBudget <= 0 {
		p.WaitBudget = 3 * time.Minute
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = time.Minute
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = 2 * time.Second
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = wait
	}

	var lastErr error
	var slept time.Duration

	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		resp, err := fn(ctx)
		if err == nil {
			return resp, attempt, nil
		}
		lastErr = err

		var pe *provider.Error
		if !errors.As(err, &pe) || !pe.Retryable {
			return provider.GenerateImageResponse{}, attempt, err
		}
		if attempt == p.MaxAttempts {
			return provider.GenerateImageResponse{}, attempt, exhausted(name, attempt, lastErr)
		}

		delay := pe.RetryAfter
		if delay <= 0 {
			if d, ok := p.Delays[pe.Code]; ok {
				delay = d
			} else {
				delay = p.BaseDelay
			}
		}
		if delay > p.MaxDelay {
			delay = p.MaxDelay
		}
		if slept+delay > p.WaitBudget {
			return provider.GenerateImageResponse{}, attempt, exhausted(name, attempt, lastErr)
		}

		log.Debug().
			Str("provider", name).
			Str("reason", pe.Code).
			Int("attempt", attempt).
			Int("max_attempts", p.MaxAttempts).
			Dur("delay", delay).
			Msg("retrying after transient provider failure")

		if err := sleep(ctx, delay); err != nil {
			return provider.GenerateImageResponse{}, attempt, provider.ClassifyNetwork(name, err)
		}
		slept += delay
	}

	// Unreachable: the loop always returns from within.
	return provider.GenerateImageResponse{}, p.MaxAttempts, exhausted(name, p.MaxAttempts, lastErr)
}

func exhausted(name string, attempts int, last error) error {
	return &provider.Error{
		Provider:  name,
		Code:      provider.CodeRetriesExhausted,
		Message:   fmt.Sprintf("giving up after %d attempts: %v", attempts, last),
		Retryable: false,
		Cause:     last,
	}
}

func wait(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
