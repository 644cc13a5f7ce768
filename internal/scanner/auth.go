package scanner

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/KJWesthoff/ventiscan/internal/interfaces"
	"github.com/KJWesthoff/ventiscan/internal/model"
	"github.com/KJWesthoff/ventiscan/internal/webclient"
)

// expiryMargin is the safety window before token expiry at which we refresh
// rather than risk a mid-request rejection.
const expiryMargin = 5 * time.Minute

// TokenStore persists the cached token across restarts. It is an explicit,
// injectable side effect; a nil store means no persistence.
type TokenStore interface {
	Load() (token string, expiry time.Time, ok bool)
	Save(token string, expiry time.Time)
	Clear()
}

// refreshCall memoizes one in-flight login so concurrent callers await the
// same result instead of issuing duplicate logins.
type refreshCall struct {
	done   chan struct{}
	token  string
	expiry time.Time
	err    error
}

// AuthSession holds one cached bearer token with its expiry and refreshes
// it via the service login endpoint when absent or near expiry. It is safe
// for concurrent use; at most one login is in flight at a time.
type AuthSession struct {
	wc       webclient.WebClient
	baseURL  string
	username string
	password string

	// fallbackLifetime applies when the token carries no readable exp claim.
	fallbackLifetime time.Duration

	store  TokenStore
	logger interfaces.Logger

	mu       sync.Mutex
	token    string
	expiry   time.Time
	inflight *refreshCall
}

// NewAuthSession builds a session. store may be nil.
func NewAuthSession(wc webclient.WebClient, baseURL, username, password string, fallbackLifetime time.Duration, store TokenStore, logger interfaces.Logger) *AuthSession {
	if fallbackLifetime <= 0 {
		fallbackLifetime = 30 * time.Minute
	}
	s := &AuthSession{
		wc:               wc,
		baseURL:          baseURL,
		username:         username,
		password:         password,
		fallbackLifetime: fallbackLifetime,
		store:            store,
		logger:           logger.With(interfaces.Field{Key: "component", Value: "auth"}),
	}
	if store != nil {
		if tok, exp, ok := store.Load(); ok {
			s.token, s.expiry = tok, exp
		}
	}
	return s
}

// EnsureValid returns a token with more than the safety margin left before
// expiry, logging in first if necessary. Login failure surfaces AuthError
// and is not retried here; request-level retry policy belongs to the client.
func (s *AuthSession) EnsureValid(ctx context.Context) (string, error) {
	s.mu.Lock()
	if s.valid(time.Now()) {
		tok := s.token
		s.mu.Unlock()
		return tok, nil
	}

	if s.inflight != nil {
		call := s.inflight
		s.mu.Unlock()
		select {
		case <-call.done:
			return call.token, call.err
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	call := &refreshCall{done: make(chan struct{})}
	s.inflight = call
	s.mu.Unlock()

	tok, exp, err := s.login(ctx)

	s.mu.Lock()
	s.inflight = nil
	if err == nil {
		s.token, s.expiry = tok, exp
		if s.store != nil {
			s.store.Save(tok, exp)
		}
	}
	s.mu.Unlock()

	call.token, call.expiry, call.err = tok, exp, err
	close(call.done)
	return tok, err
}

// Invalidate drops the cached token so the next EnsureValid performs a
// fresh login. Called by the client on a 401.
func (s *AuthSession) Invalidate() {
	s.mu.Lock()
	s.token = ""
	s.expiry = time.Time{}
	if s.store != nil {
		s.store.Clear()
	}
	s.mu.Unlock()
}

func (s *AuthSession) valid(now time.Time) bool {
	return s.token != "" && s.expiry.After(now.Add(expiryMargin))
}

func (s *AuthSession) login(ctx context.Context) (string, time.Time, error) {
	body, err := json.Marshal(map[string]string{
		"username": s.username,
		"password": s.password,
	})
	if err != nil {
		return "", time.Time{}, &model.AuthError{Reason: "encode login request", Err: err}
	}

	headers := http.Header{}
	headers.Set("Content-Type", "application/json")

	resp, err := s.wc.Do(ctx, &webclient.Request{
		Method:  http.MethodPost,
		URL:     s.baseURL + "/api/auth/login",
		Headers: headers,
		Body:    body,
	})
	if err != nil {
		return "", time.Time{}, &model.AuthError{Reason: "login request failed", Err: fmt.Errorf("%w: %v", model.ErrServiceUnreachable, err)}
	}
	if resp.StatusCode != http.StatusOK {
		return "", time.Time{}, &model.AuthError{Reason: fmt.Sprintf("login rejected with status %d", resp.StatusCode)}
	}

	var out struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return "", time.Time{}, &model.AuthError{Reason: "decode login response", Err: err}
	}
	if out.AccessToken == "" {
		return "", time.Time{}, &model.AuthError{Reason: "login response contained no token"}
	}

	expiry := s.tokenExpiry(out.AccessToken)
	s.logger.Info("obtained bearer token",
		interfaces.Field{Key: "expires_at", Value: expiry.UTC().Format(time.RFC3339)})
	return out.AccessToken, expiry, nil
}

// tokenExpiry reads the exp claim when the token is a JWT; otherwise the
// configured fallback lifetime applies. The signature is the service's
// concern, so the parse is deliberately unverified.
func (s *AuthSession) tokenExpiry(token string) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err == nil {
		if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
			return exp.Time
		}
	}
	return time.Now().Add(s.fallbackLifetime)
}
