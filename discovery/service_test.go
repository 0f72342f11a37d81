package discovery

// WHAT: Tests for the search orchestrator: term validation, multi-word
// splitting, merging and dedup, per-term error isolation, fatal
// session failures, and the captured log trail.
// WHY: A failed hashtag must never take down the batch, and session
// creation failures must, so both paths need explicit coverage.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"
	"time"

	"tokscout/dbopen"
	"tokscout/upstream"

	_ "modernc.org/sqlite"
)

// fakeHashtag is one hashtag's canned upstream behaviour.
type fakeHashtag struct {
	id        string
	videoIDs  []string
	infoErr   error
	videosErr error
}

type fakeUpstream struct {
	hashtags map[string]*fakeHashtag // by clean name
	trending []string                // video ids
	initErr  error
	sessions []*fakeUpstreamSession
}

func (c *fakeUpstream) NewSession(ctx context.Context, opts upstream.SessionOptions) (upstream.Session, error) {
	if c.initErr != nil {
		return nil, c.initErr
	}
	s := &fakeUpstreamSession{client: c}
	c.sessions = append(c.sessions, s)
	return s, nil
}

type fakeUpstreamSession struct {
	client *fakeUpstream
	closed bool
}

func itemPayload(videoID string) json.RawMessage {
	return json.RawMessage(fmt.Sprintf(`{
		"id": %q,
		"desc": "video %s",
		"author": {"id": "author-%s", "uniqueId": "user%s"},
		"music": {"id": "m1", "title": "sound"},
		"stats": {"playCount": 100, "diggCount": 5, "commentCount": 1, "shareCount": 2},
		"video": {"duration": 15, "height": 1024, "width": 576},
		"challenges": [{"id": "77", "hashtagName": "cooking"}]
	}`, videoID, videoID, videoID, videoID))
}

func (s *fakeUpstreamSession) HashtagInfo(ctx context.Context, name string) (json.RawMessage, error) {
	h, ok := s.client.hashtags[name]
	if !ok {
		return nil, fmt.Errorf("%w: hashtag %q", upstream.ErrNotFound, name)
	}
	if h.infoErr != nil {
		return nil, h.infoErr
	}
	payload := fmt.Sprintf(`{
		"challengeInfo": {
			"challenge": {"id": %q, "title": %q, "desc": "about %s", "createTime": 1600000000},
			"stats": {"videoCount": 10, "viewCount": 1000}
		}
	}`, h.id, name, name)
	return json.RawMessage(payload), nil
}

func (s *fakeUpstreamSession) HashtagVideos(ctx context.Context, hashtagID string, count int) ([]json.RawMessage, error) {
	for _, h := range s.client.hashtags {
		if h.id != hashtagID {
			continue
		}
		if h.videosErr != nil {
			return nil, h.videosErr
		}
		var items []json.RawMessage
		for _, id := range h.videoIDs {
			if len(items) >= count {
				break
			}
			items = append(items, itemPayload(id))
		}
		return items, nil
	}
	return nil, fmt.Errorf("%w: hashtag id %q", upstream.ErrNotFound, hashtagID)
}

func (s *fakeUpstreamSession) TrendingVideos(ctx context.Context, count int) ([]json.RawMessage, error) {
	var items []json.RawMessage
	for _, id := range s.client.trending {
		if len(items) >= count {
			break
		}
		items = append(items, itemPayload(id))
	}
	return items, nil
}

func (s *fakeUpstreamSession) VideoInfo(ctx context.Context, videoID string) (json.RawMessage, error) {
	return json.RawMessage(fmt.Sprintf(`{"itemInfo": {"itemStruct": %s}}`, itemPayload(videoID))), nil
}

func (s *fakeUpstreamSession) Close() error {
	s.closed = true
	return nil
}

// fastConfig removes the human-pacing delays so tests run instantly.
func fastConfig() Config {
	return Config{
		Token:              "tok",
		MinDelay:           time.Nanosecond,
		MaxDelay:           2 * time.Nanosecond,
		JitterRange:        time.Nanosecond,
		PreCreateDelayMin:  time.Nanosecond,
		PreCreateDelayMax:  2 * time.Nanosecond,
		PostCreateDelayMin: time.Nanosecond,
		PostCreateDelayMax: 2 * time.Nanosecond,
		Logger:             slog.New(slog.DiscardHandler),
	}
}

func newTestService(t *testing.T, client *fakeUpstream, opts ...Option) *Service {
	t.Helper()
	svc, err := New(client, fastConfig(), opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return svc
}

func TestNew_RequiresToken(t *testing.T) {
	_, err := New(&fakeUpstream{}, Config{})
	if !errors.Is(err, ErrMissingToken) {
		t.Fatalf("err = %v, want ErrMissingToken", err)
	}
}

func TestSearchVideos_SingleHashtag(t *testing.T) {
	client := &fakeUpstream{hashtags: map[string]*fakeHashtag{
		"cooking": {id: "77", videoIDs: []string{"1", "2", "3"}},
	}}
	svc := newTestService(t, client)

	resp, err := svc.SearchVideos(context.Background(), []string{"#cooking"}, 30)
	if err != nil {
		t.Fatalf("SearchVideos: %v", err)
	}

	videos := resp.Results["#cooking"]
	if len(videos) != 3 {
		t.Fatalf("got %d videos, want 3", len(videos))
	}
	if videos[0].ID != "1" || videos[0].URL == "" {
		t.Errorf("video = %+v", videos[0])
	}
	if videos[0].Author == nil || videos[0].Author.ID != "author-1" {
		t.Errorf("author not attached: %+v", videos[0].Author)
	}
	if len(videos[0].Hashtags) == 0 || videos[0].Hashtags[0].Name != "cooking" {
		t.Errorf("hashtags not attached: %+v", videos[0].Hashtags)
	}
	if len(resp.Errors) != 0 {
		t.Errorf("unexpected errors: %+v", resp.Errors)
	}
	if len(resp.Transformations) != 0 {
		t.Errorf("single term transformed: %+v", resp.Transformations)
	}
	if len(resp.Logs) == 0 {
		t.Error("no logs captured")
	}
}

func TestSearchVideos_CountLimits(t *testing.T) {
	client := &fakeUpstream{hashtags: map[string]*fakeHashtag{
		"cooking": {id: "77", videoIDs: []string{"1", "2", "3", "4", "5"}},
	}}
	svc := newTestService(t, client)

	resp, err := svc.SearchVideos(context.Background(), []string{"cooking"}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if got := len(resp.Results["cooking"]); got != 2 {
		t.Errorf("got %d videos, want 2", got)
	}
}

func TestSearchVideos_MultiWordSplitAndDedup(t *testing.T) {
	client := &fakeUpstream{hashtags: map[string]*fakeHashtag{
		"healthy": {id: "h1", videoIDs: []string{"1", "2"}},
		"cooking": {id: "c1", videoIDs: []string{"2", "3"}},
	}}
	svc := newTestService(t, client)

	resp, err := svc.SearchVideos(context.Background(), []string{"Healthy Cooking"}, 30)
	if err != nil {
		t.Fatalf("SearchVideos: %v", err)
	}

	wantTokens := []string{"#healthy", "#cooking"}
	got := resp.Transformations["Healthy Cooking"]
	if len(got) != 2 || got[0] != wantTokens[0] || got[1] != wantTokens[1] {
		t.Errorf("transformations = %v, want %v", got, wantTokens)
	}

	videos := resp.Results["Healthy Cooking"]
	var ids []string
	for _, v := range videos {
		ids = append(ids, v.ID)
	}
	// Duplicate id "2" kept once, first-seen order.
	want := []string{"1", "2", "3"}
	if len(ids) != len(want) {
		t.Fatalf("ids = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("ids[%d] = %q, want %q", i, ids[i], want[i])
		}
	}
}

func TestSearchVideos_PerHashtagErrorIsolation(t *testing.T) {
	client := &fakeUpstream{hashtags: map[string]*fakeHashtag{
		"healthy": {id: "h1", infoErr: errors.New("boom")},
		"cooking": {id: "c1", videoIDs: []string{"3"}},
	}}
	svc := newTestService(t, client)

	resp, err := svc.SearchVideos(context.Background(), []string{"healthy cooking"}, 30)
	if err != nil {
		t.Fatalf("SearchVideos: %v", err)
	}

	// The good hashtag's videos survive.
	if got := len(resp.Results["healthy cooking"]); got != 1 {
		t.Errorf("got %d videos, want 1", got)
	}
	// The failure is keyed by the derived hashtag, not the term.
	serr := resp.Errors["#healthy"]
	if serr == nil {
		t.Fatalf("no error for #healthy: %+v", resp.Errors)
	}
	if !strings.Contains(serr.Message, "boom") {
		t.Errorf("error message = %q", serr.Message)
	}
}

func TestSearchVideos_FailedTermKeepsEmptyResult(t *testing.T) {
	client := &fakeUpstream{hashtags: map[string]*fakeHashtag{}}
	svc := newTestService(t, client)

	resp, err := svc.SearchVideos(context.Background(), []string{"missing"}, 30)
	if err != nil {
		t.Fatalf("SearchVideos: %v", err)
	}
	videos, ok := resp.Results["missing"]
	if !ok {
		t.Fatal("failed term has no results entry")
	}
	if len(videos) != 0 {
		t.Errorf("videos = %v, want empty", videos)
	}
	if resp.Errors["missing"] == nil {
		t.Error("failed term has no error entry")
	}
}

func TestSearchVideos_InvalidTerms(t *testing.T) {
	client := &fakeUpstream{hashtags: map[string]*fakeHashtag{}}
	svc := newTestService(t, client)

	long := strings.Repeat("x", 101)
	resp, err := svc.SearchVideos(context.Background(), []string{"", "   ", long}, 30)
	if err != nil {
		t.Fatalf("SearchVideos: %v", err)
	}
	for _, term := range []string{"", "   ", long} {
		serr := resp.Errors[term]
		if serr == nil {
			t.Errorf("no error for %q", term)
			continue
		}
		if serr.Kind != "invalid_term" {
			t.Errorf("kind for %q = %q, want invalid_term", term, serr.Kind)
		}
	}
	// Nothing reached the upstream.
	if len(client.sessions) != 0 {
		t.Errorf("created %d sessions for invalid terms, want 0", len(client.sessions))
	}
}

func TestSearchVideos_SessionInitFailureIsFatal(t *testing.T) {
	client := &fakeUpstream{initErr: errors.New("no browser")}
	svc := newTestService(t, client)

	_, err := svc.SearchVideos(context.Background(), []string{"cooking"}, 30)
	if err == nil {
		t.Fatal("expected fatal error")
	}
	if !strings.Contains(err.Error(), "no browser") {
		t.Errorf("cause lost: %v", err)
	}
}

func TestSearchVideos_SessionTornDownAfterInvocation(t *testing.T) {
	client := &fakeUpstream{hashtags: map[string]*fakeHashtag{
		"cooking": {id: "77", videoIDs: []string{"1"}},
	}}
	svc := newTestService(t, client)

	if _, err := svc.SearchVideos(context.Background(), []string{"cooking"}, 5); err != nil {
		t.Fatal(err)
	}
	for i, s := range client.sessions {
		if !s.closed {
			t.Errorf("session %d leaked", i)
		}
	}
}

func TestSearchVideos_WritesSearchLog(t *testing.T) {
	client := &fakeUpstream{hashtags: map[string]*fakeHashtag{
		"cooking": {id: "77", videoIDs: []string{"1", "2"}},
	}}
	db := dbopen.OpenMemory(t, dbopen.WithSchema(SearchLogSchema))
	svc := newTestService(t, client, WithSearchLog(db))

	if _, err := svc.SearchVideos(context.Background(), []string{"cooking", "missing"}, 30); err != nil {
		t.Fatal(err)
	}

	entries, err := svc.RecentSearches(context.Background(), 10)
	if err != nil {
		t.Fatalf("RecentSearches: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d log entries, want 2", len(entries))
	}
	byTerm := map[string]int{}
	for _, e := range entries {
		byTerm[e.Term] = e.Found
		if e.InvocationID == "" || e.ID == "" {
			t.Errorf("entry missing ids: %+v", e)
		}
	}
	if byTerm["cooking"] != 2 {
		t.Errorf("cooking found = %d, want 2", byTerm["cooking"])
	}
	if byTerm["missing"] != 0 {
		t.Errorf("missing found = %d, want 0", byTerm["missing"])
	}
}

func TestTrending(t *testing.T) {
	client := &fakeUpstream{trending: []string{"t1", "t2", "t3"}}
	svc := newTestService(t, client)

	videos, err := svc.Trending(context.Background(), 2)
	if err != nil {
		t.Fatalf("Trending: %v", err)
	}
	if len(videos) != 2 {
		t.Fatalf("got %d videos, want 2", len(videos))
	}
	if videos[0].ID != "t1" {
		t.Errorf("first = %q", videos[0].ID)
	}
}

func TestHashtag(t *testing.T) {
	client := &fakeUpstream{hashtags: map[string]*fakeHashtag{
		"cooking": {id: "77"},
	}}
	svc := newTestService(t, client)

	ht, err := svc.Hashtag(context.Background(), "#Cooking")
	if err != nil {
		t.Fatalf("Hashtag: %v", err)
	}
	if ht.ID != "77" || ht.Name != "cooking" {
		t.Errorf("hashtag = %+v", ht)
	}
}

func TestHealth(t *testing.T) {
	svc := newTestService(t, &fakeUpstream{})

	h := svc.Health()
	if h.Status != "running" || !h.APIInitialized {
		t.Errorf("health = %+v", h)
	}
	if h.Service.Name != ServiceName || h.Service.Version != ServiceVersion {
		t.Errorf("service info = %+v", h.Service)
	}
}

func TestValidateTerm(t *testing.T) {
	tests := []struct {
		term string
		ok   bool
	}{
		{"cooking", true},
		{"#cooking", true},
		{"healthy cooking", true},
		{"", false},
		{"   ", false},
		{strings.Repeat("a", 100), true},
		{strings.Repeat("a", 101), false},
	}
	for _, tt := range tests {
		err := validateTerm(tt.term, 100)
		if (err == nil) != tt.ok {
			t.Errorf("validateTerm(%q) = %v, want ok=%v", tt.term, err, tt.ok)
		}
		if err != nil && !errors.Is(err, ErrInvalidTerm) {
			t.Errorf("validateTerm(%q) not wrapping ErrInvalidTerm: %v", tt.term, err)
		}
	}
}

func TestCleanHashtag(t *testing.T) {
	tests := []struct{ in, want string }{
		{"#Cooking", "cooking"},
		{"  #cooking  ", "cooking"},
		{"COOKING", "cooking"},
		{"cooking", "cooking"},
	}
	for _, tt := range tests {
		if got := cleanHashtag(tt.in); got != tt.want {
			t.Errorf("cleanHashtag(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSplitTerm(t *testing.T) {
	got := splitTerm("Healthy  Cooking Tips")
	want := []string{"#healthy", "#cooking", "#tips"}
	if len(got) != len(want) {
		t.Fatalf("splitTerm = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token %d = %q, want %q", i, got[i], want[i])
		}
	}
}
