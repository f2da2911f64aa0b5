package geocode

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/routeops-cli/internal/resilience"
)

func newTestServer(t *testing.T, hits *atomic.Int64, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			hits.Add(1)
		}
		assert.Equal(t, "/reverse", r.URL.Path)
		assert.Equal(t, "jsonv2", r.URL.Query().Get("format"))
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestReverseShortAddress(t *testing.T) {
	srv := newTestServer(t, nil, `{
		"display_name": "Olaya Street, Olaya, Riyadh, Riyadh Province, 12211, Saudi Arabia",
		"address": {"road": "Olaya Street", "suburb": "Olaya", "city": "Riyadh"}
	}`)

	c := NewClient(WithBaseURL(srv.URL), WithRateLimit(1000))
	addr, err := c.Reverse(context.Background(), 24.7136, 46.6753)
	require.NoError(t, err)
	assert.Equal(t, "Olaya Street, Olaya, Riyadh", addr)
}

func TestReverseFallsBackToDisplayName(t *testing.T) {
	srv := newTestServer(t, nil, `{"display_name": "Somewhere remote", "address": {}}`)

	c := NewClient(WithBaseURL(srv.URL), WithRateLimit(1000))
	addr, err := c.Reverse(context.Background(), 19.0, 45.0)
	require.NoError(t, err)
	assert.Equal(t, "Somewhere remote", addr)
}

func TestReverseCachesByCoordinate(t *testing.T) {
	var hits atomic.Int64
	srv := newTestServer(t, &hits, `{
		"display_name": "x",
		"address": {"road": "King Fahd Road", "city": "Riyadh"}
	}`)

	c := NewClient(WithBaseURL(srv.URL), WithRateLimit(1000))
	for i := 0; i < 3; i++ {
		addr, err := c.Reverse(context.Background(), 24.7136, 46.6753)
		require.NoError(t, err)
		assert.Equal(t, "King Fahd Road, Riyadh", addr)
	}
	assert.Equal(t, int64(1), hits.Load())

	// A different coordinate is a fresh lookup.
	_, err := c.Reverse(context.Background(), 24.8, 46.7)
	require.NoError(t, err)
	assert.Equal(t, int64(2), hits.Load())
}

func TestReverseRetriesRateLimitResponses(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "over quota", http.StatusTooManyRequests)
	}))
	t.Cleanup(srv.Close)

	c := NewClient(WithBaseURL(srv.URL), WithRateLimit(1000),
		WithRetry(resilience.RetryConfig{Attempts: 2, InitialBackoff: time.Millisecond}))
	_, err := c.Reverse(context.Background(), 24.7, 46.6)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
	assert.Equal(t, int64(2), hits.Load())
}

func TestReverseDoesNotRetryClientErrors(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "bad coordinate", http.StatusBadRequest)
	}))
	t.Cleanup(srv.Close)

	c := NewClient(WithBaseURL(srv.URL), WithRateLimit(1000))
	_, err := c.Reverse(context.Background(), 999, 999)
	require.Error(t, err)
	assert.Equal(t, int64(1), hits.Load())
}

func TestReverseEmptyResponse(t *testing.T) {
	srv := newTestServer(t, nil, `{"display_name": "", "address": {}}`)

	c := NewClient(WithBaseURL(srv.URL), WithRateLimit(1000))
	_, err := c.Reverse(context.Background(), 24.7, 46.6)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no address")
}
