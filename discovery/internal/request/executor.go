// Package request executes upstream operations under the
// anti-detection and resilience contract: session rotation before the
// call, human-like pacing between calls, error classification with
// session-closing side effects, and bounded retry with exponential
// backoff.
package request

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"time"

	"tokscout/discovery/internal/session"
	"tokscout/upstream"
)

// Config configures an Executor.
type Config struct {
	// MaxRetries is the number of retries after the initial attempt
	// for retryable failures. Default: 2 (three attempts total).
	MaxRetries int

	// MinDelay/MaxDelay bound the uniform pacing delay between
	// consecutive requests. Defaults: 2s–5s.
	MinDelay time.Duration
	MaxDelay time.Duration

	// JitterRange is the half-width of the jitter added to the pacing
	// delay. Default: 500ms.
	JitterRange time.Duration

	// BackoffBase is the first retry backoff, doubled per attempt.
	// Default: 1s.
	BackoffBase time.Duration

	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.MaxRetries <= 0 {
		c.MaxRetries = 2
	}
	if c.MinDelay <= 0 {
		c.MinDelay = 2 * time.Second
	}
	if c.MaxDelay <= c.MinDelay {
		c.MaxDelay = c.MinDelay + 3*time.Second
	}
	if c.JitterRange <= 0 {
		c.JitterRange = 500 * time.Millisecond
	}
	if c.BackoffBase <= 0 {
		c.BackoffBase = time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Executor runs upstream operations through one session manager. Like
// the manager it belongs to a single invocation and is not safe for
// concurrent use.
type Executor struct {
	cfg Config
	mgr *session.Manager

	lastRequest time.Time

	randFloat func() float64
	sleep     func(ctx context.Context, d time.Duration) error
	now       func() time.Time
}

// NewExecutor creates an Executor over the given session manager.
func NewExecutor(mgr *session.Manager, cfg Config) *Executor {
	cfg.defaults()
	return &Executor{
		cfg:       cfg,
		mgr:       mgr,
		randFloat: rand.Float64,
		sleep:     sleepCtx,
		now:       time.Now,
	}
}

// Manager returns the session manager this executor drives.
func (e *Executor) Manager() *session.Manager { return e.mgr }

// Do runs op under the executor's contract. Rotation is checked (and
// performed synchronously) before every attempt; pacing applies to
// every request after the first on this executor. Retryable failures
// close the session and/or sleep a penalty, then retry with
// exponential backoff up to the configured attempt budget; the last
// classified error is returned once the budget is exhausted.
// Unclassified failures are wrapped in a RequestError and returned
// without retry. Session initialization failures abort immediately:
// without a session nothing else can proceed.
func Do[T any](ctx context.Context, e *Executor, op func(ctx context.Context, sess upstream.Session) (T, error)) (T, error) {
	var zero T
	log := e.cfg.Logger

	var lastErr error
	for attempt := 0; attempt <= e.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := e.cfg.BackoffBase << (attempt - 1)
			log.Debug("retrying after backoff", "attempt", attempt, "backoff", backoff)
			if err := e.sleep(ctx, backoff); err != nil {
				return zero, err
			}
		}

		if e.mgr.ShouldRotate() {
			log.Info("rotating session before request")
			if err := e.mgr.Initialize(ctx); err != nil {
				return zero, err
			}
		}

		if err := e.waitBetweenRequests(ctx); err != nil {
			return zero, err
		}

		result, err := op(ctx, e.mgr.Session())
		if err == nil {
			e.lastRequest = e.now()
			return result, nil
		}
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}

		kind, retryable := Classify(err)
		if !retryable {
			log.Error("request failed (won't retry)", "error", err)
			return zero, &RequestError{Err: err}
		}

		log.Info("request failed (will retry)", "kind", kind, "error", err)
		if penaltyErr := e.handleRetryable(ctx, kind); penaltyErr != nil {
			return zero, penaltyErr
		}
		lastErr = err
	}

	return zero, lastErr
}

// handleRetryable applies the per-kind side effects: captcha and
// bot-detection responses force the session closed so the next attempt
// gets a fresh fingerprint and location; bot detection and rate limits
// additionally cost a randomised penalty sleep.
func (e *Executor) handleRetryable(ctx context.Context, kind Kind) error {
	log := e.cfg.Logger

	switch kind {
	case KindCaptcha, KindInvalidResponse:
		log.Info("closing session for rotation", "kind", kind)
		if err := e.mgr.Close(); err != nil {
			log.Error("force-closing session", "error", err)
		}
		if kind == KindInvalidResponse {
			d := e.uniform(5*time.Second, 10*time.Second)
			log.Info("bot detection penalty", "delay", d)
			return e.sleep(ctx, d)
		}
	case KindRateLimited:
		d := e.uniform(10*time.Second, 20*time.Second)
		log.Info("rate limit penalty", "delay", d)
		return e.sleep(ctx, d)
	}
	return nil
}

// waitBetweenRequests enforces the human pacing contract: a uniform
// delay plus jitter, clamped to zero. The first request on a fresh
// executor is not delayed.
func (e *Executor) waitBetweenRequests(ctx context.Context) error {
	if e.lastRequest.IsZero() {
		return nil
	}

	delay := e.uniform(e.cfg.MinDelay, e.cfg.MaxDelay)
	jitter := time.Duration((e.randFloat()*2 - 1) * float64(e.cfg.JitterRange))
	total := delay + jitter
	if total < 0 {
		total = 0
	}

	e.cfg.Logger.Debug("pacing between requests", "delay", total)
	return e.sleep(ctx, total)
}

func (e *Executor) uniform(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(e.randFloat()*float64(max-min))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
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
