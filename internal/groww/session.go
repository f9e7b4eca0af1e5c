package groww

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/pquerna/otp/totp"

	"github.com/ShraddheyWamanSatpute/Stock-Pulse/pkg/config"
	"github.com/ShraddheyWamanSatpute/Stock-Pulse/pkg/logger"
)

const (
	// refreshDedupWindow is how long a completed refresh satisfies further
	// refresh requests. Parallel workers that all hit a 401 within this
	// window share one upstream exchange instead of racing.
	refreshDedupWindow = 5 * time.Second

	maxRefreshAttempts = 3

	// tokenExpirySlack is subtracted from the advertised lifetime so a
	// token is refreshed before the upstream actually rejects it.
	tokenExpirySlack = 60 * time.Second
)

// Session owns the upstream credential lifecycle: it exchanges the TOTP seed
// and secret for a short-lived bearer token and refreshes it on expiry.
// Callers never hold the raw token beyond a single request.
type Session struct {
	cfg        config.GrowwConfig
	httpClient *http.Client
	logger     *logger.Logger

	mu          sync.Mutex
	token       string
	expiry      time.Time
	lastRefresh time.Time
	invalid     bool

	// now is replaceable in tests.
	now func() time.Time
}

// NewSession creates a session manager. No exchange happens until the first
// Token call.
func NewSession(cfg config.GrowwConfig, log *logger.Logger) *Session {
	return &Session{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     log.WithField("module", "groww_session"),
		now:        time.Now,
	}
}

// tokenResponse is the shape of the upstream token exchange reply.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// Token returns a non-expired bearer token, refreshing first if the held
// token is expired, absent, or was invalidated. Concurrent callers serialize
// on one lock; a refresh completed inside the dedup window is reused rather
// than repeated, so N simultaneous 401s cause exactly one exchange.
func (s *Session) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if s.token != "" && now.Before(s.expiry) && !s.invalid {
		return s.token, nil
	}

	// A refresh that just completed covers this caller even if it arrived
	// via Invalidate: the 401 that triggered it was answered by the stale
	// token, not the fresh one.
	if s.token != "" && now.Before(s.expiry) && now.Sub(s.lastRefresh) < refreshDedupWindow {
		s.invalid = false
		return s.token, nil
	}

	if err := s.refreshLocked(ctx); err != nil {
		return "", err
	}
	return s.token, nil
}

// Invalidate marks the current token stale after an upstream authorization
// rejection. The next Token call refreshes (or reuses a refresh completed
// inside the dedup window).
func (s *Session) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invalid = true
}

// refreshLocked performs the credential exchange. Caller holds s.mu.
func (s *Session) refreshLocked(ctx context.Context) error {
	var lastErr error

	for attempt := 1; attempt <= maxRefreshAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return &AuthenticationError{Cause: err}
		}

		err := s.exchange(ctx)
		if err == nil {
			s.lastRefresh = s.now()
			s.invalid = false
			s.logger.WithFields(map[string]interface{}{
				"attempt": attempt,
				"expiry":  s.expiry,
			}).Info("Session token refreshed")
			return nil
		}

		lastErr = err
		s.logger.WithError(err).WithField("attempt", attempt).Warn("Token exchange failed")

		if attempt < maxRefreshAttempts {
			select {
			case <-ctx.Done():
				return &AuthenticationError{Cause: ctx.Err()}
			case <-time.After(time.Duration(attempt) * time.Second):
			}
		}
	}

	return &AuthenticationError{Cause: lastErr}
}

// exchange performs one TOTP-seeded credential exchange.
func (s *Session) exchange(ctx context.Context) error {
	code, err := totp.GenerateCode(s.cfg.TOTPSeed, s.now())
	if err != nil {
		return fmt.Errorf("generate one-time code: %w", err)
	}

	payload, err := json.Marshal(map[string]string{
		"totp":      code,
		"secret":    s.cfg.SecretKey,
		"client_id": s.cfg.ClientID,
	})
	if err != nil {
		return fmt.Errorf("marshal token request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.AuthURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("token request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var tok tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return fmt.Errorf("decode token response: %w", err)
	}
	if tok.AccessToken == "" {
		return fmt.Errorf("token response missing access_token")
	}

	lifetime := time.Duration(tok.ExpiresIn) * time.Second
	if lifetime <= tokenExpirySlack {
		lifetime = tokenExpirySlack * 2
	}

	s.token = tok.AccessToken
	s.expiry = s.now().Add(lifetime - tokenExpirySlack)
	return nil
}
