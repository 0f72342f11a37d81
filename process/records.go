// Package process maps raw upstream payloads into validated domain
// records. Mapping is pure and synchronous: required wrappers fail
// fast, optional fields default with a warning.
package process

import "time"

// Hashtag is a TikTok hashtag (challenge) record.
type Hashtag struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Desc       string    `json:"desc"`
	VideoCount int64     `json:"video_count"`
	ViewCount  int64     `json:"view_count"`
	IsCommerce bool      `json:"is_commerce"`
	CreatedAt  time.Time `json:"created_at"`
	URL        string    `json:"url"`
}

// RecordID implements Record.
func (h *Hashtag) RecordID() string { return h.ID }

// User is a TikTok creator record.
type User struct {
	ID             string    `json:"id"`
	Username       string    `json:"username"`
	Nickname       string    `json:"nickname"`
	Bio            string    `json:"bio"`
	FollowerCount  int64     `json:"follower_count"`
	FollowingCount int64     `json:"following_count"`
	VideoCount     int64     `json:"video_count"`
	HeartCount     int64     `json:"heart_count"`
	Verified       bool      `json:"verified"`
	Private        bool      `json:"private"`
	CreatedAt      time.Time `json:"created_at"`
}

// RecordID implements Record.
func (u *User) RecordID() string { return u.ID }

// VideoStats holds a video's engagement counters.
type VideoStats struct {
	ViewCount    int64 `json:"view_count"`
	LikeCount    int64 `json:"like_count"`
	CommentCount int64 `json:"comment_count"`
	ShareCount   int64 `json:"share_count"`
}

// Music describes the sound attached to a video.
type Music struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// HashtagRef is a lightweight hashtag reference embedded in a video
// payload, resolvable to a full Hashtag record.
type HashtagRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Video is a TikTok video record. Author and Hashtags are attached by
// the orchestrator through its request-scoped cache; the processor
// fills AuthorID/AuthorUsername and HashtagRefs from the raw payload.
type Video struct {
	ID          string       `json:"id"`
	Desc        string       `json:"desc"`
	CreatedAt   time.Time    `json:"created_at"`
	AuthorID    string       `json:"author_id"`
	AuthorUser  string       `json:"author_username"`
	Author      *User        `json:"author,omitempty"`
	Music       Music        `json:"music"`
	Stats       VideoStats   `json:"stats"`
	Duration    int64        `json:"duration"`
	Height      int64        `json:"height"`
	Width       int64        `json:"width"`
	HashtagRefs []HashtagRef `json:"hashtag_refs"`
	Hashtags    []*Hashtag   `json:"hashtags,omitempty"`
	URL         string       `json:"url"`
}

// RecordID implements Record.
func (v *Video) RecordID() string { return v.ID }

// Record is any processed domain record.
type Record interface {
	RecordID() string
}
