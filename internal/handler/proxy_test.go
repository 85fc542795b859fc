package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	rateli "github.com/JGLTechnologies/gin-rate-limit"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"portal-server/internal/clients"
	"portal-server/internal/models"
	"portal-server/internal/service"
	"portal-server/internal/session"
)

// scriptedGateway returns canned results and records the last call.
type scriptedGateway struct {
	mu           sync.Mutex
	result       *clients.Result
	err          error
	token        string
	authErr      error
	lastEndpoint string
	lastMethod   string
}

func (g *scriptedGateway) Call(_ context.Context, endpoint, method string, _ interface{}) (*clients.Result, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.lastEndpoint = endpoint
	g.lastMethod = method
	if g.err != nil {
		return nil, g.err
	}
	if g.result != nil {
		return g.result, nil
	}
	return &clients.Result{Data: json.RawMessage(`{"data":[]}`), Status: http.StatusOK}, nil
}

func (g *scriptedGateway) Authenticate(_ context.Context, _, _ string) (string, error) {
	if g.authErr != nil {
		return "", g.authErr
	}
	return g.token, nil
}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"exp": exp.Unix()}).
		SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

func newTestRouter(t *testing.T, gw *scriptedGateway) (*gin.Engine, *service.TokenManager) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	tokens := service.NewTokenManager(gw, session.NewMemoryStore(), service.NewTimerScheduler(), 5*time.Minute, zap.NewNop())
	accounts := service.NewAccountCache(gw, 5*time.Minute, zap.NewNop())
	h := NewPortalHandler(tokens, gw, accounts, nil, nil, nil, nil, zap.NewNop())

	router := gin.New()
	store := rateli.InMemoryStore(&rateli.InMemoryOptions{Rate: time.Minute, Limit: 1000})
	h.RegisterRoutes(router, RateLimitMiddleware(store))
	return router, tokens
}

func doJSON(router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	return w
}

func TestProxyRejectsMissingEndpoint(t *testing.T) {
	router, _ := newTestRouter(t, &scriptedGateway{})

	w := doJSON(router, http.MethodPost, "/api/proxy", map[string]string{"method": "GET"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), models.ErrCodeBadRequest)
}

func TestProxyRejectsInvalidEndpointShape(t *testing.T) {
	router, _ := newTestRouter(t, &scriptedGateway{})

	w := doJSON(router, http.MethodPost, "/api/proxy", map[string]string{"endpoint": "no-slash"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), models.ErrCodeValidation)
}

func TestProxyRejectsInvalidMethod(t *testing.T) {
	router, _ := newTestRouter(t, &scriptedGateway{})

	w := doJSON(router, http.MethodPost, "/api/proxy", map[string]string{"endpoint": "/account", "method": "TRACE"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProxyUnauthenticated(t *testing.T) {
	router, _ := newTestRouter(t, &scriptedGateway{err: models.ErrUnauthenticated})

	w := doJSON(router, http.MethodPost, "/api/proxy", map[string]string{"endpoint": "/account"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), models.ErrCodeUnauthenticated)
}

func TestProxySessionExpired(t *testing.T) {
	router, _ := newTestRouter(t, &scriptedGateway{err: models.ErrSessionExpired})

	w := doJSON(router, http.MethodPost, "/api/proxy", map[string]string{"endpoint": "/account"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), models.ErrCodeSessionExpired)
}

func TestProxyUpstream404BecomesEmptySuccess(t *testing.T) {
	gw := &scriptedGateway{result: &clients.Result{Data: nil, Status: http.StatusNotFound}}
	router, _ := newTestRouter(t, gw)

	w := doJSON(router, http.MethodPost, "/api/proxy", map[string]string{"endpoint": "/rate-plans"})
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data   json.RawMessage `json:"data"`
		Status int             `json:"status"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "null", string(body.Data))
	assert.Equal(t, http.StatusNotFound, body.Status)
}

func TestProxyForwardsEndpointAndMethod(t *testing.T) {
	gw := &scriptedGateway{result: &clients.Result{Data: json.RawMessage(`{"data":{"id":"1"}}`), Status: http.StatusOK}}
	router, _ := newTestRouter(t, gw)

	w := doJSON(router, http.MethodPost, "/api/proxy", map[string]interface{}{
		"endpoint": "/cdrs?page[size]=10",
		"method":   "get",
	})
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, "/cdrs?page[size]=10", gw.lastEndpoint)
	assert.Equal(t, http.MethodGet, gw.lastMethod)
	assert.Contains(t, w.Body.String(), `"id":"1"`)
}

func TestProxyLoginEstablishesSession(t *testing.T) {
	gw := &scriptedGateway{token: signedToken(t, time.Now().Add(time.Hour))}
	router, tokens := newTestRouter(t, gw)

	w := doJSON(router, http.MethodPost, "/api/proxy", map[string]interface{}{
		"endpoint": "/auth",
		"method":   "POST",
		"auth":     map[string]string{"login": "alice", "password": "secret"},
	})
	require.Equal(t, http.StatusOK, w.Code)

	assert.True(t, tokens.Authenticated())
	assert.Contains(t, w.Body.String(), `"identity":"alice"`)
	// The bearer token never reaches the browser.
	assert.NotContains(t, w.Body.String(), gw.token)
}

func TestProxyLoginWithoutCredentials(t *testing.T) {
	router, _ := newTestRouter(t, &scriptedGateway{})

	w := doJSON(router, http.MethodPost, "/api/proxy", map[string]string{
		"endpoint": "/auth",
		"method":   "POST",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProxyLoginWrongCredentials(t *testing.T) {
	gw := &scriptedGateway{authErr: models.ErrInvalidCredentials}
	router, tokens := newTestRouter(t, gw)

	w := doJSON(router, http.MethodPost, "/api/proxy", map[string]interface{}{
		"endpoint": "/auth",
		"method":   "POST",
		"auth":     map[string]string{"login": "alice", "password": "wrong"},
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), models.ErrCodeWrongCredentials)
	assert.False(t, tokens.Authenticated())
}

func TestAuthEndpointsRoundTrip(t *testing.T) {
	gw := &scriptedGateway{token: signedToken(t, time.Now().Add(time.Hour))}
	router, _ := newTestRouter(t, gw)

	w := doJSON(router, http.MethodGet, "/api/auth/session", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"authenticated":false`)

	w = doJSON(router, http.MethodPost, "/api/auth/login", map[string]string{"login": "alice", "password": "secret"})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(router, http.MethodGet, "/api/auth/session", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"authenticated":true`)
	assert.Contains(t, w.Body.String(), `"identity":"alice"`)

	w = doJSON(router, http.MethodPost, "/api/auth/logout", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(router, http.MethodGet, "/api/auth/session", nil)
	assert.Contains(t, w.Body.String(), `"authenticated":false`)
}

func TestAccountSummaryEndpoint(t *testing.T) {
	gw := &scriptedGateway{result: &clients.Result{
		Data:   json.RawMessage(`{"data":{"id":"1","type":"accounts","attributes":{"balance":7.25,"balance_currency":"EUR"}}}`),
		Status: http.StatusOK,
	}}
	router, _ := newTestRouter(t, gw)

	w := doJSON(router, http.MethodGet, "/api/account", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"balance":7.25`)
	assert.Contains(t, w.Body.String(), `"currency":"EUR"`)
}
