package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"portal-server/internal/models"
)

// The admin API's auth contract is unsettled upstream: three different
// negotiation schemes have been observed in the wild. The scheme is
// selected by configuration and must be confirmed against the live
// upstream before a deployment relies on it.
const (
	AdminAuthJSON   = "json"   // POST /auth {"auth":{"username","password"}}, jwt in response
	AdminAuthBasic  = "basic"  // POST /auth with a Basic-Auth header, jwt in response
	AdminAuthDirect = "direct" // stored credential goes straight into Authorization
)

const adminTokenBuffer = 5 * time.Minute

// adminAuthStrategy negotiates the Authorization header value for admin
// calls along with how long it stays valid.
type adminAuthStrategy interface {
	Negotiate(ctx context.Context, c *YetiAdminClient) (authz string, ttl time.Duration, err error)
}

// YetiAdminClient proxies requests to the switch admin REST API using a
// service-level credential. The token cache is an explicit part of this
// object with an Init/Clear lifecycle, owned by the process and injected
// into callers; there is no ambient package-level state.
type YetiAdminClient struct {
	baseURL    string
	username   string
	password   string
	strategy   adminAuthStrategy
	httpClient *http.Client
	logger     *zap.Logger

	mu        sync.Mutex
	authz     string
	expiresAt time.Time
}

// NewYetiAdminClient creates an admin API client. strategyName must be
// one of AdminAuthJSON, AdminAuthBasic, AdminAuthDirect.
func NewYetiAdminClient(baseURL, strategyName, username, password string, logger *zap.Logger) (*YetiAdminClient, error) {
	c := &YetiAdminClient{
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		username: username,
		password: password,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		logger: logger.Named("YetiAdminClient"),
	}
	switch strategyName {
	case AdminAuthJSON:
		c.strategy = jsonBodyAuth{}
	case AdminAuthBasic:
		c.strategy = basicHeaderAuth{}
	case AdminAuthDirect:
		c.strategy = directTokenAuth{}
	default:
		return nil, fmt.Errorf("unknown admin auth strategy %q", strategyName)
	}
	return c, nil
}

// Clear drops the cached token so the next call renegotiates.
func (c *YetiAdminClient) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.authz = ""
	c.expiresAt = time.Time{}
}

// authorization returns a cached Authorization value, renegotiating when
// the cached one is within the expiry buffer.
func (c *YetiAdminClient) authorization(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	if c.authz != "" && c.expiresAt.After(now.Add(adminTokenBuffer)) {
		c.logger.Debug("Using cached admin token")
		return c.authz, nil
	}

	authz, ttl, err := c.strategy.Negotiate(ctx, c)
	if err != nil {
		return "", err
	}
	c.authz = authz
	c.expiresAt = now.Add(ttl)
	c.logger.Info("Admin token obtained", zap.Duration("ttl", ttl))
	return authz, nil
}

// Call forwards a request to the admin API. Unlike the customer gateway
// the upstream status passes through unchanged; attribute keys are still
// canonicalized.
func (c *YetiAdminClient) Call(ctx context.Context, endpoint, method string) (*Result, error) {
	if err := ValidateEndpoint(endpoint); err != nil {
		return nil, err
	}
	m, err := ValidateMethod(method)
	if err != nil {
		return nil, err
	}

	authz, err := c.authorization(ctx)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, m, c.baseURL+endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create admin request: %w", err)
	}
	req.Header.Set("Content-Type", jsonAPIContentType)
	req.Header.Set("Accept", jsonAPIContentType)
	// The admin API expects the token directly, without a Bearer prefix.
	req.Header.Set("Authorization", authz)

	c.logger.Debug("Admin API call", zap.String("method", m), zap.String("endpoint", endpoint))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Admin API call failed", zap.String("endpoint", endpoint), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", models.ErrUpstreamFailure, err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)

	if resp.StatusCode == http.StatusUnauthorized {
		// A stale service token; drop it so the next call renegotiates.
		c.Clear()
		return nil, fmt.Errorf("%w: admin credential rejected", models.ErrUpstreamFailure)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := extractErrorMessage(respBody)
		if msg == "" {
			msg = fmt.Sprintf("admin API returned status %d", resp.StatusCode)
		}
		return nil, fmt.Errorf("%w: %s", models.ErrUpstreamFailure, msg)
	}

	normalized, err := NormalizeKeys(respBody)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid admin API JSON", models.ErrUpstreamFailure)
	}
	return &Result{Data: normalized, Status: resp.StatusCode}, nil
}

// --- Strategies ---

type jsonBodyAuth struct{}

func (jsonBodyAuth) Negotiate(ctx context.Context, c *YetiAdminClient) (string, time.Duration, error) {
	body, err := json.Marshal(map[string]interface{}{
		"auth": map[string]string{
			"username": c.username,
			"password": c.password,
		},
	})
	if err != nil {
		return "", 0, fmt.Errorf("failed to marshal admin auth request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth", bytes.NewReader(body))
	if err != nil {
		return "", 0, fmt.Errorf("failed to create admin auth request: %w", err)
	}
	// The admin auth endpoint speaks plain JSON, not JSON:API.
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	return negotiateToken(c, req)
}

type basicHeaderAuth struct{}

func (basicHeaderAuth) Negotiate(ctx context.Context, c *YetiAdminClient) (string, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth", nil)
	if err != nil {
		return "", 0, fmt.Errorf("failed to create admin auth request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.SetBasicAuth(c.username, c.password)
	return negotiateToken(c, req)
}

type directTokenAuth struct{}

func (directTokenAuth) Negotiate(_ context.Context, c *YetiAdminClient) (string, time.Duration, error) {
	if c.password == "" {
		return "", 0, fmt.Errorf("admin credential not configured")
	}
	// The configured credential is itself the Authorization value.
	// Renegotiation is a no-op, so cache it for a long time.
	return c.password, 24 * time.Hour, nil
}

// negotiateToken executes a prepared auth request and extracts the jwt.
// Observed JWT validity is one hour.
func negotiateToken(c *YetiAdminClient, req *http.Request) (string, time.Duration, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Admin auth request failed", zap.Error(err))
		return "", 0, fmt.Errorf("%w: %v", models.ErrUpstreamFailure, err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	c.logger.Debug("Admin auth response", zap.Int("status", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", 0, fmt.Errorf("%w: admin authentication failed with status %d", models.ErrUpstreamFailure, resp.StatusCode)
	}

	var authData struct {
		JWT string `json:"jwt"`
	}
	if err := json.Unmarshal(respBody, &authData); err != nil || authData.JWT == "" {
		return "", 0, fmt.Errorf("%w: no jwt in admin auth response", models.ErrUpstreamFailure)
	}
	return authData.JWT, time.Hour, nil
}
