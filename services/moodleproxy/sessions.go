package moodleproxy

import (
	"context"
	"log/slog"
	"time"

	"nile-backend/lib/scrapers/moodle/core"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const sessionTTL = time.Minute * 30
const maxSessions = 100

// SessionCache hands out live session cookies keyed by username, logging
// in through the HTML form only on a miss. At most one live session per
// username; expired entries are never returned. Every entry carries the
// same TTL, so the least recently inserted entry is also the soonest to
// expire, which is what capacity eviction removes.
//
// Two near-simultaneous requests for one username can both miss and log
// in twice, each overwriting the other's entry. That race is benign (the
// loser's cookie simply goes unused) and deliberately not locked away.
type SessionCache struct {
	client *core.Client
	cache  *expirable.LRU[string, string]
}

func NewSessionCache(client *core.Client) *SessionCache {
	return &SessionCache{
		client: client,
		cache:  expirable.NewLRU[string, string](maxSessions, nil, sessionTTL),
	}
}

// Get returns a cached cookie for the username without network I/O, or
// performs the form login and caches the result. Network errors
// propagate to the caller untouched; there are no retries here.
func (s *SessionCache) Get(ctx context.Context, username, password string) (string, error) {
	if cookie, hit := s.cache.Get(username); hit {
		return cookie, nil
	}

	cookie, err := s.client.Login(ctx, username, password)
	if err != nil {
		return "", err
	}
	s.cache.Add(username, cookie)
	slog.Debug("new lms session", "username", username)
	return cookie, nil
}

// Drop discards the cached session for a username, used when a session
// turns out to belong to rejected credentials.
func (s *SessionCache) Drop(username string) {
	s.cache.Remove(username)
}

func (s *SessionCache) Len() int {
	return s.cache.Len()
}
