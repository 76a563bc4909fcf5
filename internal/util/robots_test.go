package util

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func robotsServer(t *testing.T, status int, body string) (*httptest.Server, *int32) {
	t.Helper()
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			atomic.AddInt32(&hits, 1)
			w.WriteHeader(status)
			_, _ = w.Write([]byte(body))
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)
	return server, &hits
}

func TestRobotsChecker_Rules(t *testing.T) {
	server, hits := robotsServer(t, http.StatusOK, "User-agent: *\nDisallow: /private/\nCrawl-delay: 2\n")
	checker := NewRobotsChecker("contractdiff/1.0", 5*time.Second)

	allowed, delay, err := checker.CanFetch(context.Background(), server.URL+"/contracts/msa.html")
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Equal(t, 2*time.Second, delay)

	allowed, _, err = checker.CanFetch(context.Background(), server.URL+"/private/draft.html")
	require.NoError(t, err)
	assert.False(t, allowed)

	assert.Equal(t, int32(1), atomic.LoadInt32(hits), "robots.txt is fetched once per origin")
}

func TestRobotsChecker_StatusCodes(t *testing.T) {
	t.Run("not found allows", func(t *testing.T) {
		server, _ := robotsServer(t, http.StatusNotFound, "")
		allowed, _, err := NewRobotsChecker("contractdiff/1.0", time.Second).CanFetch(context.Background(), server.URL+"/terms")
		require.NoError(t, err)
		assert.True(t, allowed)
	})

	t.Run("server error disallows", func(t *testing.T) {
		server, _ := robotsServer(t, http.StatusServiceUnavailable, "")
		allowed, _, err := NewRobotsChecker("contractdiff/1.0", time.Second).CanFetch(context.Background(), server.URL+"/terms")
		require.NoError(t, err)
		assert.False(t, allowed)
	})
}

func TestRobotsChecker_UnreachableAllows(t *testing.T) {
	server, _ := robotsServer(t, http.StatusOK, "")
	url := server.URL
	server.Close()

	allowed, delay, err := NewRobotsChecker("contractdiff/1.0", time.Second).CanFetch(context.Background(), url+"/terms")
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Zero(t, delay)
}

func TestNewProxyFunc(t *testing.T) {
	proxy := NewProxyFunc("http://plain-proxy:3128", "http://tls-proxy:3129")

	req := httptest.NewRequest(http.MethodGet, "https://example.com/terms", nil)
	u, err := proxy(req)
	require.NoError(t, err)
	assert.Equal(t, "tls-proxy:3129", u.Host)

	req = httptest.NewRequest(http.MethodGet, "http://example.com/terms", nil)
	u, err = proxy(req)
	require.NoError(t, err)
	assert.Equal(t, "plain-proxy:3128", u.Host)

	// Loopback is never proxied from the environment
	req = httptest.NewRequest(http.MethodGet, "https://127.0.0.1/terms", nil)
	u, err = NewProxyFunc("", "")(req)
	require.NoError(t, err)
	assert.Nil(t, u)
}
