package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/EdwinT12/Teachers-Portal-main-sub001/internal/config"
	"github.com/EdwinT12/Teachers-Portal-main-sub001/internal/logger"
	"github.com/EdwinT12/Teachers-Portal-main-sub001/internal/model"
	"github.com/EdwinT12/Teachers-Portal-main-sub001/pkg/errors"
)

// Manager owns the access-credential lifecycle. No caller ever sees a token
// inside the expiry buffer: refresh always precedes use.
type Manager struct {
	cfg    *config.Config
	store  CredentialStore
	client *http.Client
	mu     sync.Mutex
	log    zerolog.Logger
}

func NewManager(cfg *config.Config, store CredentialStore) *Manager {
	return &Manager{
		cfg:   cfg,
		store: store,
		client: &http.Client{
			Timeout: cfg.Identity.Timeout,
		},
		log: logger.Get(),
	}
}

// Token returns a valid access token for the session, refreshing first when
// the remaining lifetime is inside the buffer. Fails with SessionExpiredError
// when no session exists or no refresh path succeeds.
func (m *Manager) Token(ctx context.Context, sessionID string) (string, error) {
	cred, err := m.store.Get(ctx, sessionID)
	if err == errors.ErrNoSession {
		return "", errors.NewSessionExpiredError("no active session")
	}
	if err != nil {
		return "", err
	}

	if time.Until(cred.ExpiresAt) >= m.cfg.Sync.TokenExpiryBuffer {
		return cred.AccessToken, nil
	}

	return m.refresh(ctx, sessionID, false)
}

// ForceRefresh discards the current access token regardless of its expiry,
// preferring the direct refresh-token exchange. Used by the retry wrapper
// after a remote authorization failure.
func (m *Manager) ForceRefresh(ctx context.Context, sessionID string) error {
	_, err := m.refresh(ctx, sessionID, true)
	return err
}

func (m *Manager) refresh(ctx context.Context, sessionID string, preferExchange bool) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Re-read after acquiring the lock: another caller may have refreshed.
	cred, err := m.store.Get(ctx, sessionID)
	if err == errors.ErrNoSession {
		return "", errors.NewSessionExpiredError("no active session")
	}
	if err != nil {
		return "", err
	}
	if !preferExchange && time.Until(cred.ExpiresAt) >= m.cfg.Sync.TokenExpiryBuffer {
		return cred.AccessToken, nil
	}

	m.log.Debug().Str("session", sessionID).Bool("force", preferExchange).Msg("Refreshing access credential")

	if !preferExchange {
		if token, err := m.refreshViaProvider(ctx, sessionID, cred); err == nil && token != "" {
			return token, nil
		} else if err != nil {
			m.log.Warn().Err(err).Msg("Session provider refresh failed, falling back to token exchange")
		}
	}

	if cred.RefreshToken == "" {
		return "", errors.NewSessionExpiredError("no refresh token available")
	}

	token, err := m.exchangeRefreshToken(ctx, sessionID, cred)
	if err != nil {
		return "", errors.NewSessionExpiredError(err.Error())
	}

	return token, nil
}

// refreshViaProvider asks the session provider to refresh its own session,
// the cheaper tier: the provider may already hold a fresh token.
func (m *Manager) refreshViaProvider(ctx context.Context, sessionID string, cred *model.Credential) (string, error) {
	body, err := json.Marshal(map[string]string{"session_id": sessionID})
	if err != nil {
		return "", err
	}

	endpoint := m.cfg.Identity.BaseURL + m.cfg.Identity.SessionRefreshEndpoint
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(body))
	if err != nil {
		return "", fmt.Errorf("failed to create refresh request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("session refresh request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("session refresh returned status %d", resp.StatusCode)
	}

	var refreshResp model.SessionRefreshResponse
	if err := json.NewDecoder(resp.Body).Decode(&refreshResp); err != nil {
		return "", fmt.Errorf("failed to decode refresh response: %w", err)
	}

	if !refreshResp.Refreshed || refreshResp.AccessToken == "" {
		return "", nil
	}

	cred.AccessToken = refreshResp.AccessToken
	cred.ExpiresAt = time.Now().Add(time.Duration(refreshResp.ExpiresIn) * time.Second)
	if err := m.store.Put(ctx, sessionID, cred); err != nil {
		return "", err
	}

	m.log.Debug().Time("expires_at", cred.ExpiresAt).Msg("Credential refreshed via session provider")
	return cred.AccessToken, nil
}

// exchangeRefreshToken performs the direct OAuth refresh-token grant against
// the identity provider's token endpoint.
func (m *Manager) exchangeRefreshToken(ctx context.Context, sessionID string, cred *model.Credential) (string, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", cred.RefreshToken)
	form.Set("client_id", m.cfg.Identity.ClientID)
	form.Set("client_secret", m.cfg.Identity.ClientSecret)

	endpoint := m.cfg.Identity.BaseURL + m.cfg.Identity.TokenEndpoint
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := m.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("token exchange request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token exchange returned status %d", resp.StatusCode)
	}

	var tokenResp model.TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}
	if tokenResp.AccessToken == "" {
		return "", fmt.Errorf("token endpoint returned empty access token")
	}

	cred.AccessToken = tokenResp.AccessToken
	cred.ExpiresAt = time.Now().Add(time.Duration(tokenResp.ExpiresIn) * time.Second)
	// Some providers rotate the refresh token on every exchange.
	if tokenResp.RefreshToken != "" {
		cred.RefreshToken = tokenResp.RefreshToken
	}
	if err := m.store.Put(ctx, sessionID, cred); err != nil {
		return "", err
	}

	m.log.Debug().Time("expires_at", cred.ExpiresAt).Msg("Credential refreshed via token exchange")
	return cred.AccessToken, nil
}
