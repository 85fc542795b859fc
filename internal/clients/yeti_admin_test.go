package clients

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"portal-server/internal/models"
)

func TestAdminJSONStrategyNegotiatesAndCachesToken(t *testing.T) {
	var authHits, nodeHits int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth":
			atomic.AddInt64(&authHits, 1)
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

			var body struct {
				Auth struct {
					Username string `json:"username"`
					Password string `json:"password"`
				} `json:"auth"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "ops", body.Auth.Username)
			assert.Equal(t, "adminpass", body.Auth.Password)

			_, _ = w.Write([]byte(`{"jwt":"admin-token"}`))

		case "/nodes":
			atomic.AddInt64(&nodeHits, 1)
			// The admin API wants the raw token, no Bearer prefix.
			assert.Equal(t, "admin-token", r.Header.Get("Authorization"))
			_, _ = w.Write([]byte(`{"data":[{"id":"1","type":"nodes","attributes":{"node-name":"sbc1"}}]}`))

		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)

	c, err := NewYetiAdminClient(srv.URL, AdminAuthJSON, "ops", "adminpass", zap.NewNop())
	require.NoError(t, err)

	res, err := c.Call(context.Background(), "/nodes", http.MethodGet)
	require.NoError(t, err)
	assert.Contains(t, string(res.Data), "node_name")

	// Second call reuses the cached token.
	_, err = c.Call(context.Background(), "/nodes", http.MethodGet)
	require.NoError(t, err)

	assert.Equal(t, int64(1), atomic.LoadInt64(&authHits))
	assert.Equal(t, int64(2), atomic.LoadInt64(&nodeHits))
}

func TestAdminBasicStrategySendsBasicAuth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth":
			user, pass, ok := r.BasicAuth()
			require.True(t, ok)
			assert.Equal(t, "ops", user)
			assert.Equal(t, "adminpass", pass)
			_, _ = w.Write([]byte(`{"jwt":"admin-token"}`))
		case "/nodes":
			assert.Equal(t, "admin-token", r.Header.Get("Authorization"))
			_, _ = w.Write([]byte(`{"data":[]}`))
		}
	}))
	t.Cleanup(srv.Close)

	c, err := NewYetiAdminClient(srv.URL, AdminAuthBasic, "ops", "adminpass", zap.NewNop())
	require.NoError(t, err)

	_, err = c.Call(context.Background(), "/nodes", http.MethodGet)
	require.NoError(t, err)
}

func TestAdminDirectStrategySkipsNegotiation(t *testing.T) {
	var authHits int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth":
			atomic.AddInt64(&authHits, 1)
			w.WriteHeader(http.StatusNotFound)
		case "/nodes":
			assert.Equal(t, "stored-credential", r.Header.Get("Authorization"))
			_, _ = w.Write([]byte(`{"data":[]}`))
		}
	}))
	t.Cleanup(srv.Close)

	c, err := NewYetiAdminClient(srv.URL, AdminAuthDirect, "", "stored-credential", zap.NewNop())
	require.NoError(t, err)

	_, err = c.Call(context.Background(), "/nodes", http.MethodGet)
	require.NoError(t, err)
	assert.Equal(t, int64(0), atomic.LoadInt64(&authHits))
}

func TestAdminUnknownStrategyRejected(t *testing.T) {
	_, err := NewYetiAdminClient("http://localhost", "oauth", "ops", "x", zap.NewNop())
	assert.Error(t, err)
}

func TestAdmin401ClearsCachedToken(t *testing.T) {
	var authHits int64
	var rejectNodes atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth":
			atomic.AddInt64(&authHits, 1)
			_, _ = w.Write([]byte(`{"jwt":"admin-token"}`))
		case "/nodes":
			if rejectNodes.Load() {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			_, _ = w.Write([]byte(`{"data":[]}`))
		}
	}))
	t.Cleanup(srv.Close)

	c, err := NewYetiAdminClient(srv.URL, AdminAuthJSON, "ops", "adminpass", zap.NewNop())
	require.NoError(t, err)

	_, err = c.Call(context.Background(), "/nodes", http.MethodGet)
	require.NoError(t, err)

	rejectNodes.Store(true)
	_, err = c.Call(context.Background(), "/nodes", http.MethodGet)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrUpstreamFailure)

	rejectNodes.Store(false)
	_, err = c.Call(context.Background(), "/nodes", http.MethodGet)
	require.NoError(t, err)

	assert.Equal(t, int64(2), atomic.LoadInt64(&authHits), "a rejected token must be renegotiated")
}
