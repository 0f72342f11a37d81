// Package kit adapts service endpoints to transports. tokscout only
// speaks MCP, so the surface is small: an Endpoint type, middleware
// chaining, and the MCP tool registration glue.
package kit

import (
	"context"
	"log/slog"
	"time"
)

// Endpoint is one logical service operation: typed request in, typed
// response out.
type Endpoint func(ctx context.Context, request any) (any, error)

// Middleware wraps an Endpoint with cross-cutting behaviour.
type Middleware func(Endpoint) Endpoint

// Chain composes middlewares; the first argument is the outermost.
func Chain(mws ...Middleware) Middleware {
	return func(next Endpoint) Endpoint {
		for i := len(mws) - 1; i >= 0; i-- {
			next = mws[i](next)
		}
		return next
	}
}

// Logging returns a middleware that logs each call's duration and
// outcome at debug level, errors at error level.
func Logging(logger *slog.Logger, op string) Middleware {
	return func(next Endpoint) Endpoint {
		return func(ctx context.Context, req any) (any, error) {
			start := time.Now()
			resp, err := next(ctx, req)
			if err != nil {
				logger.Error("endpoint failed", "op", op, "duration", time.Since(start), "error", err)
				return nil, err
			}
			logger.Debug("endpoint ok", "op", op, "duration", time.Since(start))
			return resp, nil
		}
	}
}
