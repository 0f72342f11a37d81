package process

// WHAT: Tests for mapping raw upstream payloads into domain records.
// WHY: Upstream payloads are hostile input; missing wrappers must fail
// loudly while missing optional fields default quietly.

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

const hashtagPayload = `{
	"challengeInfo": {
		"challenge": {"id": "77", "title": "cooking", "desc": "food things", "isCommerce": true, "createTime": 1600000000},
		"stats": {"videoCount": 1200, "viewCount": 99000}
	}
}`

const userPayload = `{
	"userInfo": {
		"user": {"id": "u1", "uniqueId": "chef", "nickname": "The Chef", "signature": "cooking daily", "verified": true, "privateAccount": false, "createTime": 1500000000},
		"stats": {"followerCount": 5000, "followingCount": 10, "videoCount": 321, "heartCount": 88000}
	}
}`

const itemPayload = `{
	"id": "123",
	"desc": "dinner idea",
	"createTime": 1700000000,
	"author": {"id": "u1", "uniqueId": "chef"},
	"music": {"id": "m1", "title": "original sound"},
	"stats": {"playCount": 10, "diggCount": 2, "commentCount": 1, "shareCount": 0},
	"video": {"duration": 15, "height": 1024, "width": 576},
	"challenges": [
		{"id": "77", "hashtagName": "cooking"},
		{"id": "", "hashtagName": ""}
	]
}`

func TestHashtag(t *testing.T) {
	p := New(nil)

	ht, err := p.Hashtag(json.RawMessage(hashtagPayload))
	if err != nil {
		t.Fatalf("Hashtag: %v", err)
	}
	if ht.ID != "77" || ht.Name != "cooking" {
		t.Errorf("identity = %q/%q", ht.ID, ht.Name)
	}
	if ht.VideoCount != 1200 || ht.ViewCount != 99000 {
		t.Errorf("stats = %d/%d", ht.VideoCount, ht.ViewCount)
	}
	if !ht.IsCommerce {
		t.Error("IsCommerce lost")
	}
	if ht.URL != "https://www.tiktok.com/tag/cooking" {
		t.Errorf("URL = %q", ht.URL)
	}
	if ht.CreatedAt != time.Unix(1600000000, 0).UTC() {
		t.Errorf("CreatedAt = %v", ht.CreatedAt)
	}
}

func TestHashtag_MissingWrapper(t *testing.T) {
	p := New(nil)

	_, err := p.Hashtag(json.RawMessage(`{"statusCode": 0}`))
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, ErrInvalidFormat) {
		t.Errorf("err = %v, want ErrInvalidFormat", err)
	}
	var fe *FormatError
	if !errors.As(err, &fe) {
		t.Fatalf("err = %T, want *FormatError", err)
	}
	if len(fe.Raw) == 0 {
		t.Error("raw payload not preserved for debugging")
	}
}

func TestHashtag_NotJSON(t *testing.T) {
	p := New(nil)

	_, err := p.Hashtag(json.RawMessage(`<html>detected</html>`))
	if !errors.Is(err, ErrInvalidFormat) {
		t.Errorf("err = %v, want ErrInvalidFormat", err)
	}
}

func TestUser(t *testing.T) {
	p := New(nil)

	u, err := p.User(json.RawMessage(userPayload))
	if err != nil {
		t.Fatalf("User: %v", err)
	}
	if u.ID != "u1" || u.Username != "chef" || u.Nickname != "The Chef" {
		t.Errorf("identity = %+v", u)
	}
	if u.FollowerCount != 5000 || u.HeartCount != 88000 {
		t.Errorf("stats = %+v", u)
	}
	if !u.Verified || u.Private {
		t.Errorf("flags = verified %v private %v", u.Verified, u.Private)
	}
}

func TestUser_MissingWrapper(t *testing.T) {
	p := New(nil)
	if _, err := p.User(json.RawMessage(`{}`)); !errors.Is(err, ErrInvalidFormat) {
		t.Errorf("err = %v, want ErrInvalidFormat", err)
	}
}

func TestVideo(t *testing.T) {
	p := New(nil)

	v, err := p.Video(WrapItem(json.RawMessage(itemPayload)))
	if err != nil {
		t.Fatalf("Video: %v", err)
	}
	if v.ID != "123" || v.Desc != "dinner idea" {
		t.Errorf("identity = %q %q", v.ID, v.Desc)
	}
	if v.AuthorID != "u1" || v.AuthorUser != "chef" {
		t.Errorf("author = %q/%q", v.AuthorID, v.AuthorUser)
	}
	if v.Music.Title != "original sound" {
		t.Errorf("music = %+v", v.Music)
	}
	if v.Stats.ViewCount != 10 || v.Stats.LikeCount != 2 {
		t.Errorf("stats = %+v", v.Stats)
	}
	if v.Duration != 15 || v.Height != 1024 || v.Width != 576 {
		t.Errorf("dimensions = %d/%d/%d", v.Duration, v.Height, v.Width)
	}
	// The unnamed challenge entry must be dropped.
	if len(v.HashtagRefs) != 1 || v.HashtagRefs[0].Name != "cooking" {
		t.Errorf("refs = %+v", v.HashtagRefs)
	}
	if v.URL != "https://www.tiktok.com/@chef/video/123" {
		t.Errorf("URL = %q", v.URL)
	}
}

func TestVideo_MissingItemStruct(t *testing.T) {
	p := New(nil)

	for _, raw := range []string{`{}`, `{"itemInfo": {}}`} {
		if _, err := p.Video(json.RawMessage(raw)); !errors.Is(err, ErrInvalidFormat) {
			t.Errorf("Video(%s): err = %v, want ErrInvalidFormat", raw, err)
		}
	}
}

func TestVideo_OptionalFieldsDefault(t *testing.T) {
	p := New(nil)

	// Only the identity present; everything optional missing.
	v, err := p.Video(WrapItem(json.RawMessage(`{"id": "9"}`)))
	if err != nil {
		t.Fatalf("Video: %v", err)
	}
	if v.ID != "9" {
		t.Errorf("ID = %q", v.ID)
	}
	if v.Desc != "" || v.Duration != 0 || len(v.HashtagRefs) != 0 {
		t.Errorf("defaults not applied: %+v", v)
	}
	if v.URL != "" {
		t.Errorf("URL built without author: %q", v.URL)
	}
}

func TestBatch(t *testing.T) {
	p := New(nil)

	items := []json.RawMessage{
		json.RawMessage(itemPayload),
		json.RawMessage(`not json at all`),
		json.RawMessage(`{"id": "456"}`),
	}
	recs, err := p.Batch(KindVideo, items)
	if err != nil {
		t.Fatalf("Batch: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("got %d records, want 2 (invalid item skipped)", len(recs))
	}
	if recs[0].RecordID() != "123" || recs[1].RecordID() != "456" {
		t.Errorf("ids = %q, %q", recs[0].RecordID(), recs[1].RecordID())
	}
}

func TestBatch_HashtagAndUser(t *testing.T) {
	p := New(nil)

	recs, err := p.Batch(KindHashtag, []json.RawMessage{
		json.RawMessage(`{"challenge": {"id": "77", "title": "cooking"}, "stats": {"videoCount": 1}}`),
	})
	if err != nil {
		t.Fatalf("Batch(hashtag): %v", err)
	}
	if len(recs) != 1 || recs[0].RecordID() != "77" {
		t.Errorf("hashtag batch = %+v", recs)
	}

	recs, err = p.Batch(KindUser, []json.RawMessage{
		json.RawMessage(`{"user": {"id": "u1", "uniqueId": "chef"}, "stats": {}}`),
	})
	if err != nil {
		t.Fatalf("Batch(user): %v", err)
	}
	if len(recs) != 1 || recs[0].RecordID() != "u1" {
		t.Errorf("user batch = %+v", recs)
	}
}

func TestBatch_UnknownKind(t *testing.T) {
	p := New(nil)

	if _, err := p.Batch(Kind("playlist"), nil); err == nil {
		t.Fatal("expected error for unknown kind")
	}
}
