package rodtok

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-rod/rod"

	"tokscout/upstream"
)

// apiBase is the web API root the page fetches against. Calls run
// inside the page so they carry its cookies, fingerprint and TLS
// profile.
const apiBase = "https://www.tiktok.com/api"

// pageSize is the per-request item count for listing endpoints.
const pageSize = 30

// fetchScript runs one API call inside the page. Returning status and
// body together lets the Go side classify failures without a second
// round trip.
const fetchScript = `async (url) => {
	const res = await fetch(url, {
		method: "GET",
		headers: { "accept": "application/json" },
		credentials: "include",
	});
	return { status: res.status, body: await res.text() };
}`

type session struct {
	page   *rod.Page
	logger *slog.Logger
}

func (s *session) Close() error {
	if s.page == nil {
		return nil
	}
	err := s.page.Close()
	s.page = nil
	return err
}

// HashtagInfo fetches challenge metadata by name. The returned payload
// carries the challengeInfo wrapper.
func (s *session) HashtagInfo(ctx context.Context, name string) (json.RawMessage, error) {
	params := url.Values{}
	params.Set("challengeName", name)
	return s.apiGet(ctx, "challenge/detail", params)
}

// HashtagVideos pages through a challenge's item list until count
// items are collected or the upstream reports no more.
func (s *session) HashtagVideos(ctx context.Context, hashtagID string, count int) ([]json.RawMessage, error) {
	fetch := func(cursor int64, n int) (json.RawMessage, error) {
		params := url.Values{}
		params.Set("challengeID", hashtagID)
		params.Set("count", strconv.Itoa(n))
		params.Set("cursor", strconv.FormatInt(cursor, 10))
		return s.apiGet(ctx, "challenge/item_list", params)
	}
	return s.collectItems(count, fetch)
}

// TrendingVideos pages through the recommendation feed.
func (s *session) TrendingVideos(ctx context.Context, count int) ([]json.RawMessage, error) {
	fetch := func(cursor int64, n int) (json.RawMessage, error) {
		params := url.Values{}
		params.Set("count", strconv.Itoa(n))
		params.Set("cursor", strconv.FormatInt(cursor, 10))
		params.Set("from_page", "fyp")
		return s.apiGet(ctx, "recommend/item_list", params)
	}
	return s.collectItems(count, fetch)
}

// VideoInfo fetches one video's detail payload, carrying the
// itemInfo.itemStruct wrapper.
func (s *session) VideoInfo(ctx context.Context, videoID string) (json.RawMessage, error) {
	params := url.Values{}
	params.Set("itemId", videoID)
	return s.apiGet(ctx, "item/detail", params)
}

// itemPage is the common shape of listing responses.
type itemPage struct {
	ItemList []json.RawMessage `json:"itemList"`
	HasMore  bool              `json:"hasMore"`
	Cursor   json.Number       `json:"cursor"`
}

func (s *session) collectItems(count int, fetch func(cursor int64, n int) (json.RawMessage, error)) ([]json.RawMessage, error) {
	var (
		items  []json.RawMessage
		cursor int64
	)
	for len(items) < count {
		n := count - len(items)
		if n > pageSize {
			n = pageSize
		}

		raw, err := fetch(cursor, n)
		if err != nil {
			return nil, err
		}

		var page itemPage
		if err := json.Unmarshal(raw, &page); err != nil {
			return nil, fmt.Errorf("%w: decode item list: %v", upstream.ErrInvalidResponse, err)
		}
		if len(page.ItemList) == 0 {
			if len(items) == 0 {
				return nil, fmt.Errorf("%w: item list is empty", upstream.ErrEmptyResponse)
			}
			break
		}

		items = append(items, page.ItemList...)
		if !page.HasMore {
			break
		}
		next, err := page.Cursor.Int64()
		if err != nil {
			break
		}
		cursor = next
	}

	if len(items) > count {
		items = items[:count]
	}
	return items, nil
}

// apiGet runs one GET against the web API from inside the page and
// classifies the outcome into the shared sentinel errors.
func (s *session) apiGet(ctx context.Context, path string, params url.Values) (json.RawMessage, error) {
	if s.page == nil {
		return nil, fmt.Errorf("rodtok: session is closed")
	}

	params.Set("aid", "1988")
	params.Set("app_language", "en")
	params.Set("device_platform", "web_pc")

	fullURL := apiBase + "/" + path + "/?" + params.Encode()
	s.logger.Debug("rodtok: api call", "path", path)

	res, err := s.page.Context(ctx).Eval(fetchScript, fullURL)
	if err != nil {
		return nil, fmt.Errorf("rodtok: eval fetch %s: %w", path, err)
	}

	status := res.Value.Get("status").Int()
	body := res.Value.Get("body").Str()

	return classifyBody(path, status, body)
}

// classifyBody maps an HTTP status and response body to either the raw
// payload or a sentinel error.
func classifyBody(path string, status int, body string) (json.RawMessage, error) {
	if status == 429 {
		return nil, fmt.Errorf("%w: %s returned 429", upstream.ErrRateLimited, path)
	}
	if strings.TrimSpace(body) == "" {
		return nil, fmt.Errorf("%w: %s returned no body", upstream.ErrEmptyResponse, path)
	}

	lower := strings.ToLower(body)
	if strings.Contains(lower, "captcha") || strings.Contains(lower, "verify-") {
		return nil, fmt.Errorf("%w: %s triggered verification", upstream.ErrCaptcha, path)
	}

	var envelope struct {
		StatusCode *int `json:"statusCode"`
	}
	if err := json.Unmarshal([]byte(body), &envelope); err != nil {
		return nil, fmt.Errorf("%w: %s returned non-JSON body", upstream.ErrInvalidResponse, path)
	}
	if envelope.StatusCode != nil && *envelope.StatusCode != 0 {
		if *envelope.StatusCode == 10101 {
			return nil, fmt.Errorf("%w: %s status code 10101", upstream.ErrRateLimited, path)
		}
		return nil, fmt.Errorf("%w: %s status code %d", upstream.ErrInvalidResponse, path, *envelope.StatusCode)
	}

	return json.RawMessage(body), nil
}
