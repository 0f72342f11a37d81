package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

// logCapture is a slog.Handler that records formatted lines in memory
// while forwarding every record to a base handler. One capture lives
// for exactly one search invocation; its lines end up in the
// response's "logs" field.
type logCapture struct {
	base  slog.Handler
	attrs []slog.Attr

	mu    *sync.Mutex
	lines *[]string
}

func newLogCapture(base slog.Handler) *logCapture {
	return &logCapture{
		base:  base,
		mu:    &sync.Mutex{},
		lines: &[]string{},
	}
}

// Lines returns the captured lines in arrival order.
func (c *logCapture) Lines() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(*c.lines))
	copy(out, *c.lines)
	return out
}

func (c *logCapture) Enabled(ctx context.Context, level slog.Level) bool {
	// Capture everything from Info up regardless of the base level.
	return level >= slog.LevelInfo || c.base.Enabled(ctx, level)
}

func (c *logCapture) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= slog.LevelInfo {
		var b strings.Builder
		fmt.Fprintf(&b, "%s: %s", r.Level, r.Message)
		for _, a := range c.attrs {
			fmt.Fprintf(&b, " %s=%v", a.Key, a.Value)
		}
		r.Attrs(func(a slog.Attr) bool {
			fmt.Fprintf(&b, " %s=%v", a.Key, a.Value)
			return true
		})
		c.mu.Lock()
		*c.lines = append(*c.lines, b.String())
		c.mu.Unlock()
	}

	if c.base.Enabled(ctx, r.Level) {
		return c.base.Handle(ctx, r)
	}
	return nil
}

func (c *logCapture) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(c.attrs)+len(attrs))
	merged = append(merged, c.attrs...)
	merged = append(merged, attrs...)
	return &logCapture{
		base:  c.base.WithAttrs(attrs),
		attrs: merged,
		mu:    c.mu,
		lines: c.lines,
	}
}

func (c *logCapture) WithGroup(name string) slog.Handler {
	return &logCapture{
		base:  c.base.WithGroup(name),
		attrs: c.attrs,
		mu:    c.mu,
		lines: c.lines,
	}
}
