package discovery

import (
	"log/slog"
	"time"
)

// Config configures the discovery Service. Zero values take the
// documented defaults.
type Config struct {
	// Token is the upstream auth token. Required.
	Token string

	// Proxy is an optional upstream proxy address.
	Proxy string

	// SessionCooldown is the session age after which rotation is
	// forced. Default: 300s.
	SessionCooldown time.Duration

	// RotateChance is the probability of random rotation per request
	// while within cooldown. Default: 0.10.
	RotateChance float64

	// PerOperationSessions rotates the session before every request,
	// the stricter session-per-operation model.
	PerOperationSessions bool

	// PreCreateDelayMin/Max bound the human-like pause before session
	// creation. Defaults: 3s–6s.
	PreCreateDelayMin time.Duration
	PreCreateDelayMax time.Duration

	// PostCreateDelayMin/Max bound the pause after session creation.
	// Defaults: 2s–4s.
	PostCreateDelayMin time.Duration
	PostCreateDelayMax time.Duration

	// MinDelay/MaxDelay bound the pacing delay between requests.
	// Defaults: 2s–5s.
	MinDelay time.Duration
	MaxDelay time.Duration

	// JitterRange is the half-width of pacing jitter. Default: 500ms.
	JitterRange time.Duration

	// MaxRetries is the retry budget after the initial attempt for
	// retryable failures. Default: 2 (three attempts total).
	MaxRetries int

	// MaxTermLength rejects longer search terms. Default: 100.
	MaxTermLength int

	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.SessionCooldown <= 0 {
		c.SessionCooldown = 300 * time.Second
	}
	if c.RotateChance <= 0 {
		c.RotateChance = 0.10
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
	if c.MaxRetries <= 0 {
		c.MaxRetries = 2
	}
	if c.MaxTermLength <= 0 {
		c.MaxTermLength = 100
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}
