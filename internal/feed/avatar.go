package feed

import (
	"context"
	"strings"
	"sync"

	"github.com/sakif/blogger-web/internal/model"
)

// AvatarCache memoizes userID -> avatar URL for the life of the process.
//
// Entries never expire: avatars change rarely relative to how long anyone
// keeps a session open, so a user who updates their avatar shows the stale
// one until the next restart. An empty cached value is meaningful ("this
// user has no avatar, render the initial badge") and is distinct from "not
// cached yet".
//
// The cache is injected into resolvers rather than being a package-level
// singleton so tests can isolate cache state per case.
type AvatarCache struct {
	mu      sync.Mutex
	entries map[int]string
}

// NewAvatarCache creates an empty cache.
func NewAvatarCache() *AvatarCache {
	return &AvatarCache{entries: make(map[int]string)}
}

func (c *AvatarCache) lookup(id int) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	url, ok := c.entries[id]
	return url, ok
}

func (c *AvatarCache) store(id int, url string) {
	c.mu.Lock()
	c.entries[id] = url
	c.mu.Unlock()
}

// Len reports how many users have a cached entry.
func (c *AvatarCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// AvatarResolver turns a User into a displayable avatar URL, fetching the
// full user record at most once per uncached user.
//
// Concurrent resolutions of the same uncached user are not coalesced; each
// may fetch, and last-writer-wins on the cache. That is fine because every
// writer computes the same value for the same key.
type AvatarResolver struct {
	src     UserSource
	cache   *AvatarCache
	baseURL string
}

// NewAvatarResolver creates a resolver over the given source and cache.
// baseURL is the backend root used to absolutize relative upload paths.
func NewAvatarResolver(src UserSource, cache *AvatarCache, baseURL string) *AvatarResolver {
	return &AvatarResolver{
		src:     src,
		cache:   cache,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Resolve returns the display URL for the user's avatar, or "" when the
// user has none (callers fall back to the initial badge).
//
// An avatar URL already inlined on the user wins and is cached. Otherwise
// the cache is consulted, and only on a miss is the user record fetched.
// Fetch errors are returned without caching, so the next caller retries.
func (r *AvatarResolver) Resolve(ctx context.Context, user model.User) (string, error) {
	if user.ID == 0 {
		return r.DisplayURL(user.AvatarURL), nil
	}

	if user.AvatarURL != "" {
		r.cache.store(user.ID, user.AvatarURL)
		return r.DisplayURL(user.AvatarURL), nil
	}

	if cached, ok := r.cache.lookup(user.ID); ok {
		return r.DisplayURL(cached), nil
	}

	fetched, err := r.src.User(ctx, user.ID)
	if err != nil {
		return "", err
	}
	r.cache.store(user.ID, fetched.AvatarURL)
	return r.DisplayURL(fetched.AvatarURL), nil
}

// DisplayURL absolutizes a stored avatar path. The backend stores either a
// full URL, an absolute path on its own host, or a bare filename under
// /uploads.
func (r *AvatarResolver) DisplayURL(raw string) string {
	switch {
	case raw == "":
		return ""
	case strings.HasPrefix(raw, "http://"), strings.HasPrefix(raw, "https://"):
		return raw
	case strings.HasPrefix(raw, "/"):
		return r.baseURL + raw
	default:
		return r.baseURL + "/uploads/" + raw
	}
}
