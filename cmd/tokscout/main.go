// Entry point for the tokscout MCP service: TikTok discovery over
// stdio, plus a small HTTP health endpoint.
package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	_ "modernc.org/sqlite"

	"tokscout/dbopen"
	"tokscout/discovery"
	"tokscout/upstream/rodtok"
)

func main() {
	// .env is optional; real env wins.
	_ = godotenv.Load()

	token := os.Getenv("MS_TOKEN")
	proxy := os.Getenv("TIKTOK_PROXY")
	healthPort := env("HEALTH_PORT", "8090")
	searchLogPath := env("SEARCH_LOG_DB", "")
	catalogPath := env("CATALOG_FILE", "")
	logLevel := env("LOG_LEVEL", "info")

	// Logging. MCP owns stdout, so logs go to stderr.
	var lvl slog.Level
	switch logLevel {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)

	if token == "" {
		slog.Error("MS_TOKEN is required")
		os.Exit(1)
	}

	// Signal context.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Upstream browser client.
	client := rodtok.New(rodtok.Config{
		RemoteURL: os.Getenv("BROWSER_REMOTE_URL"),
		Logger:    logger,
	})
	defer client.Close()

	var opts []discovery.Option

	// Optional fingerprint/location catalog override.
	if catalogPath != "" {
		opt, err := discovery.WithCatalogFile(catalogPath)
		if err != nil {
			slog.Error("load catalog", "path", catalogPath, "error", err)
			os.Exit(1)
		}
		opts = append(opts, opt)
	}

	// Optional search log DB.
	if searchLogPath != "" {
		db, err := dbopen.Open(searchLogPath, dbopen.WithMkdirAll(), dbopen.WithSchema(discovery.SearchLogSchema))
		if err != nil {
			slog.Error("search log db", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		opts = append(opts, discovery.WithSearchLog(db))
	}

	svc, err := discovery.New(client, discovery.Config{
		Token:  token,
		Proxy:  proxy,
		Logger: logger,
	}, opts...)
	if err != nil {
		slog.Error("discovery service", "error", err)
		os.Exit(1)
	}

	// Health endpoint.
	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, 200, svc.Health())
	})

	httpSrv := &http.Server{
		Addr:              ":" + healthPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() {
		slog.Info("health server starting", "port", healthPort)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("health server", "error", err)
		}
	}()

	// MCP over stdio.
	mcpSrv := mcp.NewServer(&mcp.Implementation{
		Name:    discovery.ServiceName,
		Version: discovery.ServiceVersion,
	}, nil)
	svc.RegisterMCP(mcpSrv)

	slog.Info("mcp server starting", "transport", "stdio")
	if err := mcpSrv.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
		slog.Error("mcp server", "error", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown", "error", err)
	}
	slog.Info("server stopped")
}

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
