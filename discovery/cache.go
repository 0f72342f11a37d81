package discovery

import "tokscout/process"

// recordCache deduplicates User and Hashtag records by id within one
// search invocation. It is created per invocation and discarded with
// it, so no record leaks across independent searches. Invocations are
// single-threaded, so no locking.
type recordCache struct {
	users    map[string]*process.User
	hashtags map[string]*process.Hashtag
}

func newRecordCache() *recordCache {
	return &recordCache{
		users:    make(map[string]*process.User),
		hashtags: make(map[string]*process.Hashtag),
	}
}

func (c *recordCache) user(id string) *process.User       { return c.users[id] }
func (c *recordCache) putUser(u *process.User)            { c.users[u.ID] = u }
func (c *recordCache) hashtag(id string) *process.Hashtag { return c.hashtags[id] }
func (c *recordCache) putHashtag(h *process.Hashtag)      { c.hashtags[h.ID] = h }
