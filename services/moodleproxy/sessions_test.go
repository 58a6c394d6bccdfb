package moodleproxy

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"nile-backend/lib/scrapers/moodle/core"

	"github.com/stretchr/testify/require"
)

// loginCountingLMS serves the minimal login flow and counts form POSTs.
type loginCountingLMS struct {
	logins int
}

func (s *loginCountingLMS) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /login/index.php", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: core.SessionCookieName, Value: "anon"})
		fmt.Fprint(w, `<form id="login"><input name="logintoken" value="t1"></form>`)
	})
	mux.HandleFunc("POST /login/index.php", func(w http.ResponseWriter, r *http.Request) {
		s.logins++
		http.SetCookie(w, &http.Cookie{
			Name:  core.SessionCookieName,
			Value: fmt.Sprintf("session-%d", s.logins),
		})
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

func newSessionCache(t *testing.T, handler http.Handler) (*SessionCache, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := core.NewClient(core.ClientOptions{BaseUrl: server.URL})
	require.NoError(t, err)
	return NewSessionCache(client), server
}

func TestGetReusesLiveSession(t *testing.T) {
	stub := &loginCountingLMS{}
	sessions, _ := newSessionCache(t, stub.handler())

	first, err := sessions.Get(context.Background(), "jane", "pw")
	require.NoError(t, err)
	second, err := sessions.Get(context.Background(), "jane", "pw")
	require.NoError(t, err)

	require.Equal(t, first, second)
	require.Equal(t, 1, stub.logins)
}

func TestDropForcesRelogin(t *testing.T) {
	stub := &loginCountingLMS{}
	sessions, _ := newSessionCache(t, stub.handler())

	_, err := sessions.Get(context.Background(), "jane", "pw")
	require.NoError(t, err)
	sessions.Drop("jane")
	_, err = sessions.Get(context.Background(), "jane", "pw")
	require.NoError(t, err)

	require.Equal(t, 2, stub.logins)
}

// Capacity eviction removes the least recently inserted entry, which
// under a uniform TTL is also the soonest to expire.
func TestCapacityEvictsSoonestExpiring(t *testing.T) {
	stub := &loginCountingLMS{}
	sessions, _ := newSessionCache(t, stub.handler())

	for i := 0; i < maxSessions+1; i++ {
		sessions.cache.Add(fmt.Sprintf("user-%d", i), "cookie")
	}

	require.Equal(t, maxSessions, sessions.Len())
	_, oldestStillThere := sessions.cache.Get("user-0")
	require.False(t, oldestStillThere)
	_, newestThere := sessions.cache.Get(fmt.Sprintf("user-%d", maxSessions))
	require.True(t, newestThere)
}
