package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"portal-server/internal/models"
)

const jsonAPIContentType = "application/vnd.api+json"

// Endpoint paths may contain path segments only; query parameters are
// allowed after '?'. Anything else is rejected before touching the
// network so nothing unsafe can be injected into the upstream URL.
var endpointPathRegex = regexp.MustCompile(`^/[a-zA-Z0-9/_-]*$`)

var allowedMethods = map[string]struct{}{
	http.MethodGet:    {},
	http.MethodPost:   {},
	http.MethodPut:    {},
	http.MethodPatch:  {},
	http.MethodDelete: {},
}

// CredentialSource supplies the bearer token attached to upstream calls
// and receives the 401 notification that forces a logout. Implemented by
// the token manager.
type CredentialSource interface {
	Token() (string, bool)
	OnUnauthorized()
}

// Result is the normalized outcome of an upstream call. On upstream
// 403/404 Data is nil and Status carries the original code so callers
// can render an empty state instead of an error banner.
type Result struct {
	Data   json.RawMessage `json:"data"`
	Status int             `json:"status"`
}

// Gateway is the single choke point for upstream customer-API calls.
type Gateway interface {
	Call(ctx context.Context, endpoint, method string, payload interface{}) (*Result, error)
	Authenticate(ctx context.Context, login, password string) (string, error)
}

// Compile-time check to ensure implementation satisfies the interface.
var _ Gateway = (*YetiClient)(nil)

// YetiClient proxies requests to the Yeti switch customer REST API.
type YetiClient struct {
	baseURL    string
	httpClient *http.Client
	creds      CredentialSource
	logger     *zap.Logger
}

// NewYetiClient creates a client for the customer API. The credential
// source is attached later via SetCredentialSource because the token
// manager itself needs the client to perform logins.
func NewYetiClient(baseURL string, logger *zap.Logger) *YetiClient {
	return &YetiClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		logger: logger.Named("YetiClient"),
	}
}

// SetCredentialSource wires the token manager in after construction.
func (c *YetiClient) SetCredentialSource(src CredentialSource) {
	c.creds = src
}

// ValidateEndpoint checks the endpoint shape without performing a call.
// Shared with the HTTP handler so invalid input is rejected with the
// same rules everywhere.
func ValidateEndpoint(endpoint string) error {
	path := endpoint
	if i := strings.Index(endpoint, "?"); i >= 0 {
		path = endpoint[:i]
	}
	if path == "" || !endpointPathRegex.MatchString(path) {
		return fmt.Errorf("%w: invalid endpoint format", models.ErrInvalidInput)
	}
	return nil
}

// ValidateMethod checks the HTTP verb against the allow-list.
func ValidateMethod(method string) (string, error) {
	m := strings.ToUpper(method)
	if m == "" {
		m = http.MethodGet
	}
	if _, ok := allowedMethods[m]; !ok {
		return "", fmt.Errorf("%w: invalid HTTP method", models.ErrInvalidInput)
	}
	return m, nil
}

// Authenticate exchanges login+password for a bearer token via the
// upstream /auth endpoint. This path never attaches a credential.
func (c *YetiClient) Authenticate(ctx context.Context, login, password string) (string, error) {
	body, err := json.Marshal(map[string]interface{}{
		"auth": map[string]string{
			"login":    login,
			"password": password,
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal auth request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create auth request: %w", err)
	}
	req.Header.Set("Content-Type", jsonAPIContentType)
	req.Header.Set("Accept", jsonAPIContentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Auth request failed", zap.Error(err))
		return "", fmt.Errorf("%w: %v", models.ErrUpstreamFailure, err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	c.logger.Debug("Auth response received", zap.Int("status", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if msg := extractErrorMessage(respBody); msg != "" {
			return "", fmt.Errorf("%w: %s", models.ErrInvalidCredentials, msg)
		}
		return "", models.ErrInvalidCredentials
	}

	var authData struct {
		JWT string `json:"jwt"`
	}
	if err := json.Unmarshal(respBody, &authData); err != nil || authData.JWT == "" {
		c.logger.Error("No JWT in auth response", zap.Int("status", resp.StatusCode))
		return "", fmt.Errorf("%w: no token in auth response", models.ErrUpstreamFailure)
	}

	return authData.JWT, nil
}

// Call forwards a logical (endpoint, method, payload) triple to the
// upstream API with the current bearer credential attached and
// normalizes the response:
//
//   - 401 forces a logout and returns ErrSessionExpired, never retried
//   - 403/404 become a successful Result with nil Data
//   - other non-2xx surface as ErrUpstreamFailure with the upstream
//     message when one is present
//   - 2xx payloads pass through with attribute keys canonicalized
func (c *YetiClient) Call(ctx context.Context, endpoint, method string, payload interface{}) (*Result, error) {
	if err := ValidateEndpoint(endpoint); err != nil {
		return nil, err
	}
	m, err := ValidateMethod(method)
	if err != nil {
		return nil, err
	}

	if c.creds == nil {
		return nil, models.ErrUnauthenticated
	}
	token, ok := c.creds.Token()
	if !ok {
		return nil, models.ErrUnauthenticated
	}

	var bodyReader io.Reader
	if payload != nil && (m == http.MethodPost || m == http.MethodPut || m == http.MethodPatch) {
		body, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("%w: unencodable payload", models.ErrInvalidInput)
		}
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, m, c.baseURL+endpoint, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create upstream request: %w", err)
	}
	req.Header.Set("Content-Type", jsonAPIContentType)
	req.Header.Set("Accept", jsonAPIContentType)
	req.Header.Set("Authorization", "Bearer "+token)

	c.logger.Debug("Proxying upstream call", zap.String("method", m), zap.String("endpoint", endpoint))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Upstream call failed", zap.String("endpoint", endpoint), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", models.ErrUpstreamFailure, err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		c.logger.Warn("Upstream rejected credential, forcing logout", zap.String("endpoint", endpoint))
		c.creds.OnUnauthorized()
		return nil, models.ErrSessionExpired

	case resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusNotFound:
		// Permission denied and absent resources render as empty UI
		// states, not error banners.
		c.logger.Debug("Permission denied or not found", zap.String("endpoint", endpoint), zap.Int("status", resp.StatusCode))
		return &Result{Data: nil, Status: resp.StatusCode}, nil

	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		msg := extractErrorMessage(respBody)
		if msg == "" {
			msg = fmt.Sprintf("upstream returned status %d", resp.StatusCode)
		}
		c.logger.Warn("Upstream error", zap.String("endpoint", endpoint), zap.Int("status", resp.StatusCode), zap.String("message", msg))
		return nil, fmt.Errorf("%w: %s", models.ErrUpstreamFailure, msg)
	}

	normalized, err := NormalizeKeys(respBody)
	if err != nil {
		c.logger.Error("Failed to decode upstream response", zap.String("endpoint", endpoint), zap.Error(err))
		return nil, fmt.Errorf("%w: invalid upstream JSON", models.ErrUpstreamFailure)
	}

	return &Result{Data: normalized, Status: resp.StatusCode}, nil
}

// extractErrorMessage pulls the best available message out of an
// upstream error body: {"error": "..."} or a JSON:API errors array.
func extractErrorMessage(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	var simple struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &simple); err == nil && simple.Error != "" {
		return simple.Error
	}
	var jsonAPI struct {
		Errors []struct {
			Title  string `json:"title"`
			Detail string `json:"detail"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(body, &jsonAPI); err == nil && len(jsonAPI.Errors) > 0 {
		if jsonAPI.Errors[0].Detail != "" {
			return jsonAPI.Errors[0].Detail
		}
		return jsonAPI.Errors[0].Title
	}
	return ""
}
