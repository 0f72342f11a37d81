// Package session owns the lifecycle of one upstream automation
// session: creation with a fresh fingerprint and geolocation, rotation
// policy, and teardown. A Manager belongs to a single invocation and
// is not safe for concurrent use.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"tokscout/discovery/internal/antidetect"
	"tokscout/upstream"
)

// InitError reports a failed session creation. Without a session the
// whole invocation is stuck, so callers treat it as fatal rather than
// a per-term failure.
type InitError struct {
	Err error
}

func (e *InitError) Error() string { return fmt.Sprintf("session: create: %v", e.Err) }

func (e *InitError) Unwrap() error { return e.Err }

// IsInitError reports whether err is (or wraps) a session creation
// failure.
func IsInitError(err error) bool {
	var ie *InitError
	return errors.As(err, &ie)
}

// Config configures a session Manager.
type Config struct {
	// Cooldown is the session age after which rotation is forced.
	// Default: 300s. Zero-value configs get the default; set
	// PerOperation to rotate before every request instead.
	Cooldown time.Duration

	// PerOperation forces rotation on every ShouldRotate call, the
	// stricter session-per-operation model.
	PerOperation bool

	// RotateChance is the probability of random rotation per check
	// when the session is still within cooldown. Default: 0.10.
	RotateChance float64

	// PreCreateDelayMin/Max bound the human-like pause before session
	// creation. Defaults: 3s–6s. The spacing is part of the
	// anti-detection contract, not incidental.
	PreCreateDelayMin time.Duration
	PreCreateDelayMax time.Duration

	// PostCreateDelayMin/Max bound the pause after session creation.
	// Defaults: 2s–4s.
	PostCreateDelayMin time.Duration
	PostCreateDelayMax time.Duration

	// Token is the upstream auth token attached to every session.
	Token string

	// Proxy is an optional upstream proxy address.
	Proxy string

	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.Cooldown <= 0 {
		c.Cooldown = 300 * time.Second
	}
	if c.RotateChance <= 0 {
		c.RotateChance = 0.10
	}
	if c.PreCreateDelayMin <= 0 {
		c.PreCreateDelayMin = 3 * time.Second
	}
	if c.PreCreateDelayMax <= c.PreCreateDelayMin {
		c.PreCreateDelayMax = c.PreCreateDelayMin + 3*time.Second
	}
	if c.PostCreateDelayMin <= 0 {
		c.PostCreateDelayMin = 2 * time.Second
	}
	if c.PostCreateDelayMax <= c.PostCreateDelayMin {
		c.PostCreateDelayMax = c.PostCreateDelayMin + 2*time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Manager owns at most one live upstream session at a time.
type Manager struct {
	cfg    Config
	client upstream.Client
	pool   *antidetect.Pool

	sess      upstream.Session
	createdAt time.Time
	location  *antidetect.Location

	randFloat func() float64
	sleep     func(ctx context.Context, d time.Duration) error
}

// NewManager creates a Manager. Sessions are created lazily by
// Initialize, typically driven by the request executor's rotation
// check.
func NewManager(client upstream.Client, pool *antidetect.Pool, cfg Config) *Manager {
	cfg.defaults()
	return &Manager{
		cfg:       cfg,
		client:    client,
		pool:      pool,
		randFloat: rand.Float64,
		sleep:     sleepCtx,
	}
}

// Session returns the current upstream session, or nil if none is live.
func (m *Manager) Session() upstream.Session {
	return m.sess
}

// Initialize creates a fresh session, tearing down any existing one
// first. It applies the next fingerprint and a plausible next location
// from the pool, pauses a randomised human-like delay before and after
// creation, and records the creation timestamp. On creation failure
// any partially created handle is torn down best-effort and the
// original error is returned.
func (m *Manager) Initialize(ctx context.Context) error {
	log := m.cfg.Logger

	if m.sess != nil {
		if err := m.sess.Close(); err != nil {
			log.Error("closing previous session", "error", err)
		}
		m.sess = nil
		m.createdAt = time.Time{}
	}

	if err := m.sleep(ctx, m.uniform(m.cfg.PreCreateDelayMin, m.cfg.PreCreateDelayMax)); err != nil {
		return err
	}

	fp := m.pool.NextFingerprint()
	loc := m.pool.NextLocation(m.location)
	m.location = &loc

	opts := upstream.SessionOptions{
		Browser:        fp.Browser,
		ViewportWidth:  fp.ViewportWidth,
		ViewportHeight: fp.ViewportHeight,
		UserAgent:      fp.UserAgent,
		Geolocation: upstream.Geolocation{
			Latitude:  loc.Latitude,
			Longitude: loc.Longitude,
			Accuracy:  loc.Accuracy,
		},
		Locale:              "en-US",
		TimezoneID:          "America/New_York",
		Permissions:         []string{"geolocation"},
		SuppressedResources: []string{"image", "media", "font", "other"},
		StartURL:            "https://www.tiktok.com/explore",
		Token:               m.cfg.Token,
		Proxy:               m.cfg.Proxy,
	}

	log.Info("creating upstream session", "browser", fp.Browser, "location", loc.Name)
	sess, err := m.client.NewSession(ctx, opts)
	if err != nil {
		if sess != nil {
			if closeErr := sess.Close(); closeErr != nil {
				log.Error("closing partial session", "error", closeErr)
			}
		}
		return &InitError{Err: err}
	}

	if err := m.sleep(ctx, m.uniform(m.cfg.PostCreateDelayMin, m.cfg.PostCreateDelayMax)); err != nil {
		sess.Close()
		return err
	}

	m.sess = sess
	m.createdAt = time.Now()
	return nil
}

// ShouldRotate reports whether the session must be replaced before the
// next request: always when none exists, always once the cooldown has
// elapsed, and with a small random chance otherwise so session
// lifetimes stay unpredictable.
func (m *Manager) ShouldRotate() bool {
	if m.sess == nil {
		return true
	}
	if m.cfg.PerOperation {
		return true
	}
	if time.Since(m.createdAt) >= m.cfg.Cooldown {
		m.cfg.Logger.Info("rotating session due to age")
		return true
	}
	if m.randFloat() < m.cfg.RotateChance {
		m.cfg.Logger.Info("rotating session randomly")
		return true
	}
	return false
}

// Close tears down the session if present and clears the creation
// timestamp, so the next ShouldRotate returns true. Teardown errors
// are returned after the manager state is cleared.
func (m *Manager) Close() error {
	if m.sess == nil {
		return nil
	}
	err := m.sess.Close()
	m.sess = nil
	m.createdAt = time.Time{}
	if err != nil {
		return fmt.Errorf("session: close: %w", err)
	}
	return nil
}

func (m *Manager) uniform(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(m.randFloat()*float64(max-min))
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
