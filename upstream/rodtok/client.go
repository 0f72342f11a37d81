// Package rodtok implements the upstream client over a Chrome
// instance driven by Rod. The browser process is shared; each session
// gets its own stealth page with the requested fingerprint and
// geolocation applied through CDP overrides.
package rodtok

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"tokscout/upstream"
)

// Config configures the rodtok client.
type Config struct {
	// RemoteURL is the WebSocket URL of an external Chrome instance.
	// Empty = launch a local Chrome via launcher.
	RemoteURL string

	// Headless disables the visible window. Default: true.
	Headless *bool

	// NavigateTimeout bounds the initial navigation of a new session.
	// Default: 30s.
	NavigateTimeout time.Duration

	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.Headless == nil {
		headless := true
		c.Headless = &headless
	}
	if c.NavigateTimeout <= 0 {
		c.NavigateTimeout = 30 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Client launches and owns one Chrome process. Safe for concurrent
// use; the browser is started lazily on the first session.
type Client struct {
	cfg Config

	mu      sync.Mutex
	browser *rod.Browser
	lnch    *launcher.Launcher
	closed  bool
}

// New creates a rodtok client. Chrome is launched on first use.
func New(cfg Config) *Client {
	cfg.defaults()
	return &Client{cfg: cfg}
}

// NewSession opens a stealth page configured with the session's
// fingerprint, geolocation and auth token, navigated to its start URL.
func (c *Client) NewSession(ctx context.Context, opts upstream.SessionOptions) (upstream.Session, error) {
	b, err := c.ensureBrowser(opts.Proxy)
	if err != nil {
		return nil, err
	}

	page, err := stealth.Page(b)
	if err != nil {
		return nil, fmt.Errorf("rodtok: create page: %w", err)
	}

	if err := c.configurePage(page, opts); err != nil {
		page.Close()
		return nil, err
	}

	if opts.StartURL != "" {
		navCtx, cancel := context.WithTimeout(ctx, c.cfg.NavigateTimeout)
		defer cancel()

		if err := page.Context(navCtx).Navigate(opts.StartURL); err != nil {
			page.Close()
			return nil, fmt.Errorf("rodtok: navigate %s: %w", opts.StartURL, err)
		}
		if err := page.Context(navCtx).WaitLoad(); err != nil {
			c.cfg.Logger.Warn("rodtok: wait load timeout", "url", opts.StartURL, "error", err)
		}
	}

	return &session{page: page, logger: c.cfg.Logger}, nil
}

// Close shuts down Chrome.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true

	if c.browser != nil {
		c.browser.Close()
		c.browser = nil
	}
	if c.lnch != nil {
		c.lnch.Cleanup()
		c.lnch = nil
	}
	return nil
}

func (c *Client) ensureBrowser(proxy string) (*rod.Browser, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, fmt.Errorf("rodtok: client is closed")
	}
	if c.browser != nil {
		return c.browser, nil
	}

	log := c.cfg.Logger
	var wsURL string

	if c.cfg.RemoteURL != "" {
		wsURL = c.cfg.RemoteURL
		log.Info("rodtok: connecting to remote browser", "url", wsURL)
	} else {
		l := launcher.New().Headless(*c.cfg.Headless)

		// Anti-detection flags.
		l = l.Set("disable-blink-features", "AutomationControlled")

		if proxy != "" {
			l = l.Proxy(proxy)
		}

		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("rodtok: launch: %w", err)
		}
		wsURL = u
		c.lnch = l
		log.Info("rodtok: launched local chrome", "headless", *c.cfg.Headless)
	}

	b := rod.New().ControlURL(wsURL)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("rodtok: connect: %w", err)
	}

	c.browser = b
	return b, nil
}

// configurePage applies the fingerprint and environment overrides to a
// fresh page before navigation.
func (c *Client) configurePage(page *rod.Page, opts upstream.SessionOptions) error {
	if opts.UserAgent != "" {
		ua := proto.NetworkSetUserAgentOverride{UserAgent: opts.UserAgent}
		if opts.Locale != "" {
			ua.AcceptLanguage = opts.Locale
		}
		if err := page.SetUserAgent(&ua); err != nil {
			return fmt.Errorf("rodtok: user agent override: %w", err)
		}
	}

	if opts.ViewportWidth > 0 && opts.ViewportHeight > 0 {
		err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
			Width:             opts.ViewportWidth,
			Height:            opts.ViewportHeight,
			DeviceScaleFactor: 1,
		})
		if err != nil {
			return fmt.Errorf("rodtok: viewport override: %w", err)
		}
	}

	if opts.TimezoneID != "" {
		err := proto.EmulationSetTimezoneOverride{TimezoneID: opts.TimezoneID}.Call(page)
		if err != nil {
			return fmt.Errorf("rodtok: timezone override: %w", err)
		}
	}

	if geo := opts.Geolocation; geo.Latitude != 0 || geo.Longitude != 0 {
		acc := float64(geo.Accuracy)
		err := proto.EmulationSetGeolocationOverride{
			Latitude:  &geo.Latitude,
			Longitude: &geo.Longitude,
			Accuracy:  &acc,
		}.Call(page)
		if err != nil {
			return fmt.Errorf("rodtok: geolocation override: %w", err)
		}
	}

	for _, perm := range opts.Permissions {
		err := proto.BrowserGrantPermissions{
			Permissions: []proto.BrowserPermissionType{proto.BrowserPermissionType(perm)},
		}.Call(page)
		if err != nil {
			c.cfg.Logger.Warn("rodtok: grant permission failed", "permission", perm, "error", err)
		}
	}

	if opts.Token != "" {
		err := page.SetCookies([]*proto.NetworkCookieParam{{
			Name:   "msToken",
			Value:  opts.Token,
			Domain: ".tiktok.com",
			Path:   "/",
		}})
		if err != nil {
			return fmt.Errorf("rodtok: set token cookie: %w", err)
		}
	}

	if len(opts.SuppressedResources) > 0 {
		suppressResources(page, opts.SuppressedResources)
	}

	return nil
}

// suppressResources blocks the given resource types on the page to cut
// bandwidth and speed up loads.
func suppressResources(page *rod.Page, types []string) {
	blocked := make(map[string]bool, len(types))
	for _, t := range types {
		blocked[strings.ToLower(t)] = true
	}

	router := page.HijackRequests()
	router.MustAdd("*", func(ctx *rod.Hijack) {
		if blocked[strings.ToLower(string(ctx.Request.Type()))] {
			ctx.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			return
		}
		ctx.ContinueRequest(&proto.FetchContinueRequest{})
	})
	go router.Run()
}
