// Package discovery turns caller-supplied search terms into
// aggregated TikTok video, hashtag and user records. It coordinates
// the anti-detection session lifecycle, paces and retries upstream
// calls, and maps raw payloads into domain records.
//
// Each top-level call owns its session/executor pair and a
// request-scoped record cache; the only state shared between
// concurrent calls is the fingerprint pool's read-only catalogs and
// its mutex-guarded cursor.
package discovery

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"tokscout/discovery/internal/antidetect"
	"tokscout/discovery/internal/request"
	"tokscout/discovery/internal/session"
	"tokscout/discovery/internal/store"
	"tokscout/process"
	"tokscout/upstream"
)

// ServiceName, Version and description reported by the health
// resource.
const (
	ServiceName        = "tokscout"
	ServiceVersion     = "0.1.0"
	serviceDescription = "TikTok discovery service: search videos, hashtags and creators over MCP"
)

// DefaultCount is the per-term video count when the caller passes none.
const DefaultCount = 30

// Service is the discovery orchestrator.
type Service struct {
	cfg    Config
	client upstream.Client
	pool   *antidetect.Pool
	logger *slog.Logger
	log    *store.Store
	newID  func() string
}

// SearchLogSchema creates the search log table. Apply it to the
// database passed to WithSearchLog.
const SearchLogSchema = store.Schema

// Option configures a Service during creation.
type Option func(*Service)

// WithCatalog overrides the fingerprint/location catalogs.
func WithCatalog(c antidetect.Catalog) Option {
	return func(svc *Service) {
		svc.pool = antidetect.NewPool(c, svc.logger)
	}
}

// WithCatalogFile loads a catalog override from a YAML file.
func WithCatalogFile(path string) (Option, error) {
	c, err := antidetect.LoadCatalog(path)
	if err != nil {
		return nil, err
	}
	return WithCatalog(c), nil
}

// WithSearchLog enables the SQLite search log on db. The
// SearchLogSchema must already be applied.
func WithSearchLog(db *sql.DB) Option {
	return func(svc *Service) { svc.log = &store.Store{DB: db} }
}

// New creates a discovery Service over the given upstream client.
// A missing auth token is a fatal configuration error.
func New(client upstream.Client, cfg Config, opts ...Option) (*Service, error) {
	if cfg.Token == "" {
		return nil, ErrMissingToken
	}
	cfg.defaults()

	svc := &Service{
		cfg:    cfg,
		client: client,
		logger: cfg.Logger,
		newID:  uuid.NewString,
	}
	svc.pool = antidetect.NewPool(antidetect.DefaultCatalog(), svc.logger)

	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Health reports the service health for the status resource.
func (svc *Service) Health() HealthStatus {
	return HealthStatus{
		Status:         "running",
		APIInitialized: svc.client != nil,
		Service: ServiceInfo{
			Name:        ServiceName,
			Version:     ServiceVersion,
			Description: serviceDescription,
		},
	}
}

// SearchPrompt returns guidance text for a search query.
func (svc *Service) SearchPrompt(query string) string {
	return searchPrompt(query)
}

// RecentSearches returns the newest search log entries, or nil when no
// search log is configured.
func (svc *Service) RecentSearches(ctx context.Context, limit int) ([]*store.Entry, error) {
	if svc.log == nil {
		return nil, nil
	}
	return svc.log.Recent(ctx, limit)
}

// invocation bundles the per-call collaborators: one executor over one
// session manager, a processor logging into the call's capture, and
// the request-scoped record cache.
type invocation struct {
	exec   *request.Executor
	proc   *process.Processor
	cache  *recordCache
	logger *slog.Logger
}

// newInvocation builds the per-call session/executor pair. The
// returned cleanup tears the session down and must run on every exit
// path, including cancellation.
func (svc *Service) newInvocation(logger *slog.Logger) (*invocation, func()) {
	mgr := session.NewManager(svc.client, svc.pool, session.Config{
		Cooldown:           svc.cfg.SessionCooldown,
		PerOperation:       svc.cfg.PerOperationSessions,
		RotateChance:       svc.cfg.RotateChance,
		PreCreateDelayMin:  svc.cfg.PreCreateDelayMin,
		PreCreateDelayMax:  svc.cfg.PreCreateDelayMax,
		PostCreateDelayMin: svc.cfg.PostCreateDelayMin,
		PostCreateDelayMax: svc.cfg.PostCreateDelayMax,
		Token:              svc.cfg.Token,
		Proxy:              svc.cfg.Proxy,
		Logger:             logger,
	})
	exec := request.NewExecutor(mgr, request.Config{
		MaxRetries:  svc.cfg.MaxRetries,
		MinDelay:    svc.cfg.MinDelay,
		MaxDelay:    svc.cfg.MaxDelay,
		JitterRange: svc.cfg.JitterRange,
		Logger:      logger,
	})

	inv := &invocation{
		exec:   exec,
		proc:   process.New(logger),
		cache:  newRecordCache(),
		logger: logger,
	}
	cleanup := func() {
		if err := mgr.Close(); err != nil {
			logger.Error("closing session", "error", err)
		}
	}
	return inv, cleanup
}

// SearchVideos searches every term and aggregates the outcome. A
// failed term is recorded in the error map with an empty result list;
// it never fails the whole batch. Only session initialization failures
// and cancellation propagate as errors.
func (svc *Service) SearchVideos(ctx context.Context, terms []string, count int) (*SearchResponse, error) {
	if count <= 0 {
		count = DefaultCount
	}

	capture := newLogCapture(svc.logger.Handler())
	logger := slog.New(capture)
	invocationID := svc.newID()

	inv, cleanup := svc.newInvocation(logger)
	defer cleanup()

	resp := &SearchResponse{
		Results:         make(map[string][]*process.Video),
		Errors:          make(map[string]*SearchError),
		Transformations: make(map[string][]string),
	}

	for _, term := range terms {
		start := time.Now()
		if err := svc.searchTerm(ctx, inv, resp, term, count); err != nil {
			return nil, err
		}
		svc.logSearch(ctx, invocationID, term, count, resp, start)
	}

	resp.Logs = capture.Lines()
	return resp, nil
}

// searchTerm processes one term into resp. Recoverable failures are
// recorded; fatal ones (cancellation, session creation) are returned.
func (svc *Service) searchTerm(ctx context.Context, inv *invocation, resp *SearchResponse, term string, count int) error {
	if err := validateTerm(term, svc.cfg.MaxTermLength); err != nil {
		inv.logger.Error("invalid search term", "term", term, "error", err)
		resp.Results[term] = []*process.Video{}
		resp.Errors[term] = toSearchError(err)
		return nil
	}

	tokens := splitTerm(term)
	if len(tokens) > 1 {
		inv.logger.Info("split multi-word search", "term", term, "hashtags", tokens)
		resp.Transformations[term] = tokens

		var all []*process.Video
		for _, tok := range tokens {
			videos, err := inv.searchHashtag(ctx, tok, count)
			if err != nil {
				if fatal(err) {
					return err
				}
				inv.logger.Error("hashtag search failed", "hashtag", tok, "error", err)
				resp.Errors[tok] = toSearchError(err)
				continue
			}
			all = append(all, videos...)
		}
		merged := dedupVideos(all)
		resp.Results[term] = merged
		inv.logger.Info("merged unique videos", "term", term, "count", len(merged))
		return nil
	}

	videos, err := inv.searchHashtag(ctx, term, count)
	if err != nil {
		if fatal(err) {
			return err
		}
		inv.logger.Error("term search failed", "term", term, "error", err)
		resp.Results[term] = []*process.Video{}
		resp.Errors[term] = toSearchError(err)
		return nil
	}
	resp.Results[term] = videos
	inv.logger.Info("found videos", "term", term, "count", len(videos))
	return nil
}

// Hashtag resolves metadata for a single hashtag name, with its own
// session.
func (svc *Service) Hashtag(ctx context.Context, name string) (*process.Hashtag, error) {
	inv, cleanup := svc.newInvocation(svc.logger)
	defer cleanup()
	return inv.hashtagInfo(ctx, name)
}

// Trending fetches up to count trending videos, with its own session.
// Items that fail to parse are skipped.
func (svc *Service) Trending(ctx context.Context, count int) ([]*process.Video, error) {
	if count <= 0 {
		count = DefaultCount
	}
	inv, cleanup := svc.newInvocation(svc.logger)
	defer cleanup()

	items, err := request.Do(ctx, inv.exec, func(ctx context.Context, sess upstream.Session) ([]json.RawMessage, error) {
		return sess.TrendingVideos(ctx, count)
	})
	if err != nil {
		return nil, err
	}
	return inv.mapVideos(items, count), nil
}

// searchHashtag resolves a hashtag's metadata then pages through its
// videos up to count.
func (inv *invocation) searchHashtag(ctx context.Context, name string, count int) ([]*process.Video, error) {
	ht, err := inv.hashtagInfo(ctx, name)
	if err != nil {
		return nil, err
	}

	items, err := request.Do(ctx, inv.exec, func(ctx context.Context, sess upstream.Session) ([]json.RawMessage, error) {
		return sess.HashtagVideos(ctx, ht.ID, count)
	})
	if err != nil {
		return nil, err
	}
	return inv.mapVideos(items, count), nil
}

// hashtagInfo fetches and maps one hashtag's metadata, caching the
// record by id.
func (inv *invocation) hashtagInfo(ctx context.Context, name string) (*process.Hashtag, error) {
	clean := cleanHashtag(name)
	inv.logger.Info("getting hashtag info", "hashtag", "#"+clean)

	raw, err := request.Do(ctx, inv.exec, func(ctx context.Context, sess upstream.Session) (json.RawMessage, error) {
		return sess.HashtagInfo(ctx, clean)
	})
	if err != nil {
		return nil, err
	}

	ht, err := inv.proc.Hashtag(raw)
	if err != nil {
		return nil, err
	}
	inv.cache.putHashtag(ht)
	return ht, nil
}

// mapVideos maps raw items into video records, skipping invalid ones,
// and resolves author/hashtag references through the cache.
func (inv *invocation) mapVideos(items []json.RawMessage, count int) []*process.Video {
	videos := make([]*process.Video, 0, len(items))
	for _, item := range items {
		v, err := inv.proc.Video(process.WrapItem(item))
		if err != nil {
			inv.logger.Warn("skipping invalid video", "error", err)
			continue
		}
		inv.attachRefs(v)
		videos = append(videos, v)
		if len(videos) >= count {
			break
		}
	}
	return videos
}

// attachRefs links a video to its author and hashtag records,
// deduplicated through the request-scoped cache.
func (inv *invocation) attachRefs(v *process.Video) {
	if v.AuthorID != "" {
		u := inv.cache.user(v.AuthorID)
		if u == nil {
			u = &process.User{ID: v.AuthorID, Username: v.AuthorUser}
			inv.cache.putUser(u)
		}
		v.Author = u
	}

	for _, ref := range v.HashtagRefs {
		key := ref.ID
		if key == "" {
			key = ref.Name
		}
		h := inv.cache.hashtag(key)
		if h == nil {
			h = &process.Hashtag{
				ID:   ref.ID,
				Name: ref.Name,
				URL:  "https://www.tiktok.com/tag/" + ref.Name,
			}
			inv.cache.hashtags[key] = h
		}
		v.Hashtags = append(v.Hashtags, h)
	}
}

// dedupVideos drops duplicate ids, keeping the first occurrence in
// first-seen order.
func dedupVideos(videos []*process.Video) []*process.Video {
	seen := make(map[string]bool, len(videos))
	out := make([]*process.Video, 0, len(videos))
	for _, v := range videos {
		if seen[v.ID] {
			continue
		}
		seen[v.ID] = true
		out = append(out, v)
	}
	return out
}

// logSearch records one term's outcome in the search log, if enabled.
// Logging failures never fail the search.
func (svc *Service) logSearch(ctx context.Context, invocationID, term string, requested int, resp *SearchResponse, start time.Time) {
	if svc.log == nil {
		return
	}
	e := &store.Entry{
		ID:           svc.newID(),
		InvocationID: invocationID,
		Term:         term,
		Requested:    requested,
		Found:        len(resp.Results[term]),
		Duration:     time.Since(start),
	}
	if serr := resp.Errors[term]; serr != nil {
		e.Error = serr.Message
	}
	if err := svc.log.Insert(ctx, e); err != nil {
		svc.logger.Error("search log insert failed", "term", term, "error", err)
	}
}

// fatal reports errors that must abort the whole invocation: caller
// cancellation and session creation failures.
func fatal(err error) bool {
	return errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) ||
		session.IsInitError(err)
}

// toSearchError converts an error into the response's message +
// classification shape.
func toSearchError(err error) *SearchError {
	kind := "unclassified"
	switch {
	case errors.Is(err, ErrInvalidTerm):
		kind = "invalid_term"
	case errors.Is(err, process.ErrInvalidFormat):
		kind = "invalid_format"
	default:
		if k, retryable := request.Classify(err); retryable {
			kind = string(k)
		}
	}
	return &SearchError{Message: err.Error(), Kind: kind}
}
