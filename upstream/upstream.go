// Package upstream defines the capability set the discovery core needs
// from a TikTok-facing client, plus the error taxonomy those calls
// produce. Implementations live elsewhere (see rodtok); the core is
// written against these interfaces only.
package upstream

import (
	"context"
	"encoding/json"
)

// Geolocation is a simulated device position.
type Geolocation struct {
	Latitude  float64
	Longitude float64
	Accuracy  int // meters
}

// SessionOptions configures a new upstream session. All fields are
// applied at creation time; a session never changes identity afterwards.
type SessionOptions struct {
	// Browser engine family to present ("chromium", "firefox", "webkit").
	Browser string

	ViewportWidth  int
	ViewportHeight int
	UserAgent      string

	Geolocation Geolocation
	Locale      string
	TimezoneID  string

	// Permissions granted to the browsing context (e.g. "geolocation").
	Permissions []string

	// SuppressedResources lists resource types never loaded
	// ("image", "media", "font", "other").
	SuppressedResources []string

	// StartURL is navigated to right after the session is created.
	StartURL string

	// Token is the upstream auth token attached to API calls.
	Token string

	// Proxy is an optional proxy address, empty for a direct connection.
	Proxy string
}

// Session is one live connection to the upstream service. Not safe for
// concurrent use; the owner serialises all calls.
type Session interface {
	// HashtagInfo fetches metadata for a hashtag by name (without "#").
	HashtagInfo(ctx context.Context, name string) (json.RawMessage, error)

	// HashtagVideos pages through a hashtag's videos by hashtag id,
	// returning up to count raw item payloads.
	HashtagVideos(ctx context.Context, hashtagID string, count int) ([]json.RawMessage, error)

	// TrendingVideos returns up to count raw trending item payloads.
	TrendingVideos(ctx context.Context, count int) ([]json.RawMessage, error)

	// VideoInfo fetches the detail payload for a single video id.
	VideoInfo(ctx context.Context, videoID string) (json.RawMessage, error)

	// Close tears down the session and its automation handle.
	Close() error
}

// Client creates upstream sessions.
type Client interface {
	NewSession(ctx context.Context, opts SessionOptions) (Session, error)
}
