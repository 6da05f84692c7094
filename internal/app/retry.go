package app

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/bft-labs/sheetshot/internal/domain"
	"github.com/bft-labs/sheetshot/internal/ports"
)

// Backoff strategy names.
const (
	BackoffJitter      = "jitter"
	BackoffLinear      = "linear"
	BackoffExponential = "exponential"
)

// MaxAttemptsLimit caps the tries per export call, retries included.
const MaxAttemptsLimit = 5

// Default retry configuration values.
const (
	DefaultMaxAttempts   = MaxAttemptsLimit
	DefaultBackoffBase   = time.Second
	DefaultBackoffJitter = 2 * time.Second
	DefaultBackoffMax    = 30 * time.Second
)

// BackoffPolicy computes the delay before retry number attempt+1.
type BackoffPolicy struct {
	Strategy string
	Base     time.Duration
	Jitter   time.Duration
	Max      time.Duration
}

// DefaultBackoffPolicy returns the jittered policy.
func DefaultBackoffPolicy() BackoffPolicy {
	return BackoffPolicy{
		Strategy: BackoffJitter,
		Base:     DefaultBackoffBase,
		Jitter:   DefaultBackoffJitter,
		Max:      DefaultBackoffMax,
	}
}

// Validate checks the strategy name and durations.
func (p BackoffPolicy) Validate() error {
	switch strings.ToLower(p.Strategy) {
	case BackoffJitter, BackoffLinear, BackoffExponential:
	default:
		return fmt.Errorf("unknown backoff strategy %q", p.Strategy)
	}
	if p.Base < 0 || p.Jitter < 0 || p.Max < 0 {
		return errors.New("backoff durations must not be negative")
	}
	return nil
}

// Delay returns the wait after failed attempt number attempt (1-based).
// jitter:      base + rand[0, jitter)
// linear:      base * attempt
// exponential: base * 2^(attempt-1), +/-20%
// The result never exceeds Max when Max is set.
func (p BackoffPolicy) Delay(attempt int, rnd func() float64) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	var d time.Duration
	switch strings.ToLower(p.Strategy) {
	case BackoffLinear:
		d = p.Base * time.Duration(attempt)
	case BackoffExponential:
		cur := p.Base << uint(attempt-1)
		// jitter ~ +/-20%
		d = time.Duration(float64(cur) * (0.8 + 0.4*rnd()))
	default:
		d = p.Base
		if p.Jitter > 0 {
			d += time.Duration(rnd() * float64(p.Jitter))
		}
	}
	if p.Max > 0 && d > p.Max {
		d = p.Max
	}
	return d
}

// RetryObserver is notified of every rate-limited attempt.
type RetryObserver interface {
	OnRateLimited(rows domain.RowRange, attempt int, delay time.Duration)
}

// Fetcher wraps one fallible export call with bounded retry on HTTP 429.
// Every other failure is terminal on the first attempt. Concurrent chunks
// each use their own attempt counter; a Fetcher holds no per-call state.
type Fetcher struct {
	maxAttempts int
	policy      BackoffPolicy
	logger      ports.Logger
	observer    RetryObserver

	// sleep waits for d or until ctx is done. Replaced in tests.
	sleep func(ctx context.Context, d time.Duration) error
	rand  func() float64
}

// NewFetcher creates a Fetcher. maxAttempts < 1 means DefaultMaxAttempts;
// values above MaxAttemptsLimit are clamped to it.
func NewFetcher(maxAttempts int, policy BackoffPolicy, logger ports.Logger, observer RetryObserver) *Fetcher {
	if maxAttempts < 1 {
		maxAttempts = DefaultMaxAttempts
	}
	if maxAttempts > MaxAttemptsLimit {
		maxAttempts = MaxAttemptsLimit
	}
	return &Fetcher{
		maxAttempts: maxAttempts,
		policy:      policy,
		logger:      logger,
		observer:    observer,
		sleep:       sleepContext,
		rand:        rand.Float64,
	}
}

// MaxAttempts returns the total number of tries per call.
func (f *Fetcher) MaxAttempts() int { return f.maxAttempts }

// Fetch invokes op until it succeeds, fails with something other than a
// 429, or maxAttempts tries have been made. Terminal failures are returned
// as *domain.FetchError.
func (f *Fetcher) Fetch(ctx context.Context, rows domain.RowRange, op func(ctx context.Context) ([]byte, error)) ([]byte, error) {
	var limited *domain.RateLimitedError

	for attempt := 1; attempt <= f.maxAttempts; attempt++ {
		data, err := op(ctx)
		if err == nil {
			return data, nil
		}

		var herr *domain.HTTPError
		if !errors.As(err, &herr) || !herr.RateLimited() {
			return nil, &domain.FetchError{Rows: rows, Attempts: attempt, Err: err}
		}
		limited = &domain.RateLimitedError{Attempt: attempt, RetryAfter: herr.RetryAfter, Err: err}
		if attempt == f.maxAttempts {
			break
		}

		delay := f.policy.Delay(attempt, f.rand)
		if herr.RetryAfter > delay {
			delay = herr.RetryAfter
			if f.policy.Max > 0 && delay > f.policy.Max {
				delay = f.policy.Max
			}
		}
		f.logger.Warn("export rate limited, backing off",
			ports.String("rows", rows.String()),
			ports.Int("attempt", attempt),
			ports.Duration("delay", delay),
		)
		if f.observer != nil {
			f.observer.OnRateLimited(rows, attempt, delay)
		}
		if err := f.sleep(ctx, delay); err != nil {
			return nil, &domain.FetchError{Rows: rows, Attempts: attempt, Err: err}
		}
	}

	return nil, &domain.FetchError{Rows: rows, Attempts: f.maxAttempts, Err: limited}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
