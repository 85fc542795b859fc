package service

import (
	"context"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"portal-server/internal/clients"
	"portal-server/internal/models"
	"portal-server/internal/session"
)

// Compile-time check: the token manager is the gateway's credential
// source.
var _ clients.CredentialSource = (*TokenManager)(nil)

// TokenManager owns the bearer credential for all upstream calls:
// login exchange, proactive refresh ahead of expiry, forced logout on
// upstream 401, and session restore across process restarts.
//
// Exactly one refresh timer is live at a time; arming a new one cancels
// the previous, and Logout always cancels the outstanding timer so a
// dangling callback can never re-authenticate with a cleared secret.
type TokenManager struct {
	gateway   clients.Gateway
	store     session.Store
	scheduler Scheduler
	buffer    time.Duration
	logger    *zap.Logger
	now       func() time.Time

	mu            sync.Mutex
	cred          *models.Credential
	cancelRefresh CancelFunc
}

// NewTokenManager creates the token lifecycle manager. buffer is how
// long before expiry a silent re-login is attempted.
func NewTokenManager(gateway clients.Gateway, store session.Store, scheduler Scheduler, buffer time.Duration, logger *zap.Logger) *TokenManager {
	return &TokenManager{
		gateway:   gateway,
		store:     store,
		scheduler: scheduler,
		buffer:    buffer,
		logger:    logger.Named("TokenManager"),
		now:       time.Now,
	}
}

// Login exchanges identity+secret for a bearer token. On failure the
// existing credential, if any, is left untouched.
func (m *TokenManager) Login(ctx context.Context, identity, secret string) error {
	token, err := m.gateway.Authenticate(ctx, identity, secret)
	if err != nil {
		m.logger.Warn("Login failed", zap.String("identity", identity), zap.Error(err))
		return err
	}

	expiresAt := decodeExpiry(token)
	if expiresAt.IsZero() {
		// Non-fatal: the token is used as-is, refresh scheduling is
		// simply skipped.
		m.logger.Warn("Could not decode token expiry, refresh disabled", zap.String("identity", identity))
	}

	if err := m.store.Set(ctx, token, identity); err != nil {
		// The session just won't survive a restart.
		m.logger.Warn("Failed to persist session", zap.Error(err))
	}

	m.mu.Lock()
	m.cred = &models.Credential{
		Token:     token,
		ExpiresAt: expiresAt,
		Identity:  identity,
		Secret:    secret,
	}
	m.scheduleRefreshLocked()
	m.mu.Unlock()

	m.logger.Info("Login successful", zap.String("identity", identity), zap.Time("expires_at", expiresAt))
	return nil
}

// Logout cancels any scheduled refresh, clears the credential including
// the in-memory secret and drops the persisted session. Idempotent.
func (m *TokenManager) Logout(ctx context.Context) {
	m.mu.Lock()
	if m.cancelRefresh != nil {
		m.cancelRefresh()
		m.cancelRefresh = nil
	}
	hadCred := m.cred != nil
	m.cred = nil
	m.mu.Unlock()

	if err := m.store.Clear(ctx); err != nil {
		m.logger.Error("Failed to clear persisted session", zap.Error(err))
	}
	if hadCred {
		m.logger.Info("Logged out")
	}
}

// Restore recovers a previously persisted token+identity pair on
// startup. The secret is not recoverable, so no refresh timer is armed;
// an expired persisted pair is discarded.
func (m *TokenManager) Restore(ctx context.Context) error {
	token, identity, err := m.store.Get(ctx)
	if err != nil {
		if err == session.ErrNoSession {
			return nil
		}
		return err
	}

	expiresAt := decodeExpiry(token)
	if !expiresAt.IsZero() && !expiresAt.After(m.now()) {
		m.logger.Info("Persisted session expired, discarding", zap.String("identity", identity))
		return m.store.Clear(ctx)
	}

	m.mu.Lock()
	m.cred = &models.Credential{
		Token:     token,
		ExpiresAt: expiresAt,
		Identity:  identity,
	}
	m.mu.Unlock()

	m.logger.Info("Session restored", zap.String("identity", identity), zap.Time("expires_at", expiresAt))
	return nil
}

// Token implements clients.CredentialSource.
func (m *TokenManager) Token() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.cred.Valid(m.now()) {
		return "", false
	}
	return m.cred.Token, true
}

// Identity returns the login name of the current session, if any.
func (m *TokenManager) Identity() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cred == nil {
		return ""
	}
	return m.cred.Identity
}

// Authenticated reports whether a usable credential is present.
func (m *TokenManager) Authenticated() bool {
	_, ok := m.Token()
	return ok
}

// OnUnauthorized implements clients.CredentialSource: an upstream 401
// unconditionally destroys the session.
func (m *TokenManager) OnUnauthorized() {
	m.logger.Warn("Upstream returned 401, clearing session")
	m.Logout(context.Background())
}

// scheduleRefreshLocked arms the one-shot refresh timer for the current
// credential. Caller holds m.mu. A token already inside the buffer
// window refreshes immediately (delay zero).
func (m *TokenManager) scheduleRefreshLocked() {
	if m.cancelRefresh != nil {
		m.cancelRefresh()
		m.cancelRefresh = nil
	}
	if m.cred == nil || m.cred.ExpiresAt.IsZero() || m.cred.Secret == "" {
		return
	}

	refreshIn := m.cred.ExpiresAt.Sub(m.now()) - m.buffer
	if refreshIn < 0 {
		refreshIn = 0
	}
	m.logger.Debug("Refresh scheduled", zap.Duration("in", refreshIn))
	m.cancelRefresh = m.scheduler.Schedule(refreshIn, m.ensureFresh)
}

// ensureFresh re-authenticates with the retained secret when the
// credential is inside the buffer window. A refresh failure is logged
// and tolerated: the soon-to-expire token stays in place and the user is
// only forced out by the natural 401 path.
func (m *TokenManager) ensureFresh() {
	m.mu.Lock()
	if m.cred == nil || m.cred.Secret == "" {
		// Logged out since the timer was armed.
		m.mu.Unlock()
		return
	}
	identity := m.cred.Identity
	secret := m.cred.Secret
	if !m.cred.ExpiresAt.IsZero() && m.cred.ExpiresAt.Sub(m.now()) > m.buffer {
		// Fired early; re-arm for the real refresh point.
		m.scheduleRefreshLocked()
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	token, err := m.gateway.Authenticate(ctx, identity, secret)
	if err != nil {
		m.logger.Warn("Silent token refresh failed, keeping current token", zap.String("identity", identity), zap.Error(err))
		return
	}

	expiresAt := decodeExpiry(token)
	if err := m.store.Set(ctx, token, identity); err != nil {
		m.logger.Warn("Failed to persist refreshed session", zap.Error(err))
	}

	m.mu.Lock()
	if m.cred == nil || m.cred.Secret == "" || m.cred.Identity != identity {
		// Logout (or a different login) won the race; discard the
		// fresh token.
		m.mu.Unlock()
		return
	}
	m.cred.Token = token
	m.cred.ExpiresAt = expiresAt
	m.scheduleRefreshLocked()
	m.mu.Unlock()

	m.logger.Info("Token refreshed", zap.String("identity", identity), zap.Time("expires_at", expiresAt))
}

// decodeExpiry extracts the exp claim without verifying the signature;
// the upstream holds the signing key and is the only verifier. Returns
// zero time when the claim cannot be decoded.
func decodeExpiry(token string) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}
