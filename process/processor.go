package process

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"
)

// Kind selects which record type a payload maps to.
type Kind string

const (
	KindHashtag Kind = "hashtag"
	KindUser    Kind = "user"
	KindVideo   Kind = "video"
)

// Processor converts raw upstream payloads into domain records.
type Processor struct {
	logger *slog.Logger
}

// New creates a Processor. A nil logger falls back to slog.Default.
func New(logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{logger: logger}
}

// --- raw payload shapes ---

type rawHashtagInfo struct {
	ChallengeInfo *struct {
		Challenge struct {
			ID         string `json:"id"`
			Title      string `json:"title"`
			Desc       string `json:"desc"`
			IsCommerce bool   `json:"isCommerce"`
			CreateTime int64  `json:"createTime"`
		} `json:"challenge"`
		Stats struct {
			VideoCount int64 `json:"videoCount"`
			ViewCount  int64 `json:"viewCount"`
		} `json:"stats"`
	} `json:"challengeInfo"`
}

type rawUserInfo struct {
	UserInfo *struct {
		User struct {
			ID             string `json:"id"`
			UniqueID       string `json:"uniqueId"`
			Nickname       string `json:"nickname"`
			Signature      string `json:"signature"`
			Verified       bool   `json:"verified"`
			PrivateAccount bool   `json:"privateAccount"`
			CreateTime     int64  `json:"createTime"`
		} `json:"user"`
		Stats struct {
			FollowerCount  int64 `json:"followerCount"`
			FollowingCount int64 `json:"followingCount"`
			VideoCount     int64 `json:"videoCount"`
			HeartCount     int64 `json:"heartCount"`
		} `json:"stats"`
	} `json:"userInfo"`
}

type rawItemStruct struct {
	ID         string `json:"id"`
	Desc       string `json:"desc"`
	CreateTime int64  `json:"createTime"`
	Author     struct {
		ID       string `json:"id"`
		UniqueID string `json:"uniqueId"`
	} `json:"author"`
	Music struct {
		ID    string `json:"id"`
		Title string `json:"title"`
	} `json:"music"`
	Stats struct {
		PlayCount    int64 `json:"playCount"`
		DiggCount    int64 `json:"diggCount"`
		CommentCount int64 `json:"commentCount"`
		ShareCount   int64 `json:"shareCount"`
	} `json:"stats"`
	Video struct {
		Duration int64 `json:"duration"`
		Height   int64 `json:"height"`
		Width    int64 `json:"width"`
	} `json:"video"`
	Challenges []struct {
		ID          string `json:"id"`
		HashtagName string `json:"hashtagName"`
	} `json:"challenges"`
}

type rawVideoInfo struct {
	ItemInfo *struct {
		ItemStruct *rawItemStruct `json:"itemStruct"`
	} `json:"itemInfo"`
}

// Hashtag maps a hashtag-info payload. The challengeInfo wrapper is
// required; desc and counters default with a warning.
func (p *Processor) Hashtag(raw json.RawMessage) (*Hashtag, error) {
	var r rawHashtagInfo
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, formatErr(raw, "decode hashtag payload: %v", err)
	}
	if r.ChallengeInfo == nil {
		return nil, formatErr(raw, "missing challengeInfo")
	}

	c := r.ChallengeInfo.Challenge
	s := r.ChallengeInfo.Stats
	if c.Desc == "" {
		p.logger.Warn("hashtag description missing", "hashtag", c.Title)
	}
	if s.VideoCount == 0 {
		p.logger.Warn("hashtag video count missing", "hashtag", c.Title)
	}
	if s.ViewCount == 0 {
		p.logger.Warn("hashtag view count missing", "hashtag", c.Title)
	}

	return &Hashtag{
		ID:         c.ID,
		Name:       c.Title,
		Desc:       c.Desc,
		VideoCount: s.VideoCount,
		ViewCount:  s.ViewCount,
		IsCommerce: c.IsCommerce,
		CreatedAt:  time.Unix(c.CreateTime, 0).UTC(),
		URL:        "https://www.tiktok.com/tag/" + c.Title,
	}, nil
}

// User maps a user-info payload. The userInfo wrapper is required.
func (p *Processor) User(raw json.RawMessage) (*User, error) {
	var r rawUserInfo
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, formatErr(raw, "decode user payload: %v", err)
	}
	if r.UserInfo == nil {
		return nil, formatErr(raw, "missing userInfo")
	}

	u := r.UserInfo.User
	s := r.UserInfo.Stats
	if u.Nickname == "" {
		p.logger.Warn("user nickname missing", "user", u.UniqueID)
	}
	if s.FollowerCount == 0 {
		p.logger.Warn("user follower count missing", "user", u.UniqueID)
	}

	return &User{
		ID:             u.ID,
		Username:       u.UniqueID,
		Nickname:       u.Nickname,
		Bio:            u.Signature,
		FollowerCount:  s.FollowerCount,
		FollowingCount: s.FollowingCount,
		VideoCount:     s.VideoCount,
		HeartCount:     s.HeartCount,
		Verified:       u.Verified,
		Private:        u.PrivateAccount,
		CreatedAt:      time.Unix(u.CreateTime, 0).UTC(),
	}, nil
}

// Video maps a video-info payload. The itemInfo.itemStruct wrapper is
// required; desc, music title and dimensions default with a warning.
func (p *Processor) Video(raw json.RawMessage) (*Video, error) {
	var r rawVideoInfo
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, formatErr(raw, "decode video payload: %v", err)
	}
	if r.ItemInfo == nil || r.ItemInfo.ItemStruct == nil {
		return nil, formatErr(raw, "missing itemInfo.itemStruct")
	}

	item := r.ItemInfo.ItemStruct
	if item.Desc == "" {
		p.logger.Warn("video description missing", "video", item.ID)
	}
	if item.Music.Title == "" {
		p.logger.Warn("video music title missing", "video", item.ID)
	}
	if item.Video.Duration == 0 {
		p.logger.Warn("video duration missing", "video", item.ID)
	}

	refs := make([]HashtagRef, 0, len(item.Challenges))
	for _, c := range item.Challenges {
		if c.HashtagName == "" {
			continue
		}
		refs = append(refs, HashtagRef{ID: c.ID, Name: c.HashtagName})
	}

	url := ""
	if item.ID != "" && item.Author.UniqueID != "" {
		url = fmt.Sprintf("https://www.tiktok.com/@%s/video/%s", item.Author.UniqueID, item.ID)
	}

	return &Video{
		ID:         item.ID,
		Desc:       item.Desc,
		CreatedAt:  time.Unix(item.CreateTime, 0).UTC(),
		AuthorID:   item.Author.ID,
		AuthorUser: item.Author.UniqueID,
		Music:      Music{ID: item.Music.ID, Title: item.Music.Title},
		Stats: VideoStats{
			ViewCount:    item.Stats.PlayCount,
			LikeCount:    item.Stats.DiggCount,
			CommentCount: item.Stats.CommentCount,
			ShareCount:   item.Stats.ShareCount,
		},
		Duration:    item.Video.Duration,
		Height:      item.Video.Height,
		Width:       item.Video.Width,
		HashtagRefs: refs,
		URL:         url,
	}, nil
}

// WrapItem wraps a bare itemStruct payload (as returned by hashtag and
// trending listings) into the itemInfo envelope Video expects.
func WrapItem(item json.RawMessage) json.RawMessage {
	wrapped, _ := json.Marshal(map[string]any{
		"itemInfo": map[string]any{"itemStruct": item},
	})
	return wrapped
}

// Batch maps a list of bare list items of one kind (as returned by
// search and listing endpoints), skipping items that fail to parse.
// The kind selector is validated before any parsing; an unknown kind
// is a programmer error and fails the whole call.
func (p *Processor) Batch(kind Kind, items []json.RawMessage) ([]Record, error) {
	var mapOne func(json.RawMessage) (Record, error)
	switch kind {
	case KindHashtag:
		mapOne = func(raw json.RawMessage) (Record, error) {
			wrapped, _ := json.Marshal(map[string]any{"challengeInfo": raw})
			return p.Hashtag(wrapped)
		}
	case KindUser:
		mapOne = func(raw json.RawMessage) (Record, error) {
			wrapped, _ := json.Marshal(map[string]any{"userInfo": raw})
			return p.User(wrapped)
		}
	case KindVideo:
		mapOne = func(raw json.RawMessage) (Record, error) { return p.Video(WrapItem(raw)) }
	default:
		return nil, fmt.Errorf("process: unknown record kind %q", kind)
	}

	out := make([]Record, 0, len(items))
	for i, raw := range items {
		rec, err := mapOne(raw)
		if err != nil {
			p.logger.Warn("skipping invalid item", "kind", kind, "index", i, "error", err)
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}
