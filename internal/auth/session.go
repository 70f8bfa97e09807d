// Package auth holds the signed-in identity and the access credential and
// performs authenticated API calls with a single refresh-then-retry on 401.
package auth

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"storefront/internal/apiclient"
	"storefront/internal/kvstore"
	"storefront/internal/model"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

const refreshKey = "refresh"

type authResponse struct {
	User        *model.User `json:"user"`
	AccessToken string      `json:"accessToken"`
}

type meResponse struct {
	User *model.User `json:"user"`
}

type refreshResponse struct {
	AccessToken string `json:"accessToken"`
}

// Session is the authentication state of one storefront client. It is
// safe for concurrent use.
type Session struct {
	client *apiclient.Client
	store  kvstore.Store
	logger zerolog.Logger
	now    func() time.Time

	refreshes singleflight.Group

	mu    sync.RWMutex
	user  *model.User
	token string
	ready bool
}

// NewSession creates an anonymous session. Call Restore to resume a
// persisted credential.
func NewSession(client *apiclient.Client, store kvstore.Store, logger zerolog.Logger) *Session {
	return &Session{
		client: client,
		store:  store,
		logger: logger.With().Str("component", "auth").Logger(),
		now:    time.Now,
	}
}

// Restore resumes the persisted credential: it loads the user with the
// stored token, falls back to a refresh, and forgets the credential when
// both fail. The session is ready afterwards regardless of the outcome.
func (s *Session) Restore(ctx context.Context) error {
	defer s.markReady()

	stored, ok, err := s.store.Get(ctx, kvstore.AccessTokenKey)
	if err != nil {
		return fmt.Errorf("failed to read access token: %w", err)
	}
	if !ok || stored == "" {
		return nil
	}

	s.mu.Lock()
	s.token = stored
	s.mu.Unlock()

	if !s.tokenExpired(stored) {
		user, err := s.fetchMe(ctx, stored)
		if err == nil {
			s.setUser(user)
			return nil
		}
		s.logger.Debug().Err(err).Msg("stored token rejected, refreshing")
	} else {
		s.logger.Debug().Msg("stored token expired, refreshing")
	}

	if err := s.Refresh(ctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.logger.Info().Err(err).Msg("session could not be restored")
		if err := s.setToken(ctx, ""); err != nil {
			s.logger.Warn().Err(err).Msg("failed to forget access token")
		}
		s.setUser(nil)
	}
	return nil
}

// Login signs in with email and password.
func (s *Session) Login(ctx context.Context, creds model.Credentials) (*model.User, error) {
	return s.authenticate(ctx, "/api/auth/login", creds)
}

// Register creates an account and signs in.
func (s *Session) Register(ctx context.Context, reg model.Registration) (*model.User, error) {
	return s.authenticate(ctx, "/api/auth/register", reg)
}

func (s *Session) authenticate(ctx context.Context, path string, body any) (*model.User, error) {
	var resp authResponse
	err := s.client.Do(ctx, apiclient.Request{
		Method: http.MethodPost,
		Path:   path,
		Body:   body,
	}, &resp)
	if err != nil {
		return nil, err
	}

	if err := s.setToken(ctx, resp.AccessToken); err != nil {
		return nil, err
	}
	s.setUser(resp.User)

	s.logger.Info().Str("path", path).Msg("signed in")
	return resp.User, nil
}

// Logout ends the server session and forgets the local credential. When
// the server call fails the local state is kept.
func (s *Session) Logout(ctx context.Context) error {
	err := s.client.Do(ctx, apiclient.Request{
		Method:      http.MethodPost,
		Path:        "/api/auth/logout",
		Body:        struct{}{},
		AccessToken: s.AccessToken(),
	}, nil)
	if err != nil {
		return err
	}

	if err := s.setToken(ctx, ""); err != nil {
		return err
	}
	s.setUser(nil)
	return nil
}

// Refresh obtains a new access token from the refresh cookie and reloads
// the user. Concurrent callers share one refresh cycle. The shared cycle is
// detached from ctx, so a caller giving up does not fail the others; it is
// bounded by the client timeout.
func (s *Session) Refresh(ctx context.Context) error {
	result := s.refreshes.DoChan(refreshKey, func() (any, error) {
		return nil, s.refresh(context.WithoutCancel(ctx))
	})

	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-result:
		if res.Shared {
			s.logger.Debug().Msg("joined in-flight refresh")
		}
		return res.Err
	}
}

func (s *Session) refresh(ctx context.Context) error {
	var resp refreshResponse
	err := s.client.Do(ctx, apiclient.Request{
		Method: http.MethodPost,
		Path:   "/api/auth/refresh",
		Body:   struct{}{},
	}, &resp)
	if err != nil {
		return err
	}

	if err := s.setToken(ctx, resp.AccessToken); err != nil {
		return err
	}

	user, err := s.fetchMe(ctx, resp.AccessToken)
	if err != nil {
		return err
	}
	s.setUser(user)
	return nil
}

// RefreshMe reloads the user with the current token, refreshing the token
// when it is rejected.
func (s *Session) RefreshMe(ctx context.Context) error {
	token := s.AccessToken()
	if token == "" {
		return model.ErrUnauthenticated
	}

	user, err := s.fetchMe(ctx, token)
	if err == nil {
		s.setUser(user)
		return nil
	}
	return s.Refresh(ctx)
}

// AuthedFetch performs an API call with the current access token. On a 401
// it refreshes once and retries once with the new token; the retry's
// outcome is returned as-is.
func (s *Session) AuthedFetch(ctx context.Context, method, path string, body, out any) error {
	req := apiclient.Request{
		Method:      method,
		Path:        path,
		Body:        body,
		AccessToken: s.AccessToken(),
	}

	err := s.client.Do(ctx, req, out)
	if err == nil || !apiclient.IsUnauthorized(err) {
		return err
	}

	s.logger.Debug().Str("method", method).Str("path", path).Msg("access token rejected, refreshing")
	if err := s.Refresh(ctx); err != nil {
		return err
	}

	req.AccessToken = s.AccessToken()
	return s.client.Do(ctx, req, out)
}

// User returns the signed-in user, or nil.
func (s *Session) User() *model.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

// IsAuthenticated reports whether a user is signed in.
func (s *Session) IsAuthenticated() bool {
	return s.User() != nil
}

// AccessToken returns the current access token, or "".
func (s *Session) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Ready reports whether Restore has completed.
func (s *Session) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready
}

// Claims decodes the current access token. It returns nil when there is no
// token or it is not a JWT.
func (s *Session) Claims() *Claims {
	token := s.AccessToken()
	if token == "" {
		return nil
	}
	claims, err := ParseClaims(token)
	if err != nil {
		return nil
	}
	return claims
}

func (s *Session) fetchMe(ctx context.Context, token string) (*model.User, error) {
	var resp meResponse
	err := s.client.Do(ctx, apiclient.Request{
		Method:      http.MethodGet,
		Path:        "/api/auth/me",
		AccessToken: token,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return resp.User, nil
}

func (s *Session) tokenExpired(token string) bool {
	claims, err := ParseClaims(token)
	if err != nil {
		return false
	}
	return claims.Expired(s.now())
}

// setToken updates and persists the credential; "" removes it.
func (s *Session) setToken(ctx context.Context, token string) error {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()

	if token == "" {
		if err := s.store.Delete(ctx, kvstore.AccessTokenKey); err != nil {
			return fmt.Errorf("failed to remove access token: %w", err)
		}
		return nil
	}
	if err := s.store.Set(ctx, kvstore.AccessTokenKey, token); err != nil {
		return fmt.Errorf("failed to persist access token: %w", err)
	}
	return nil
}

func (s *Session) setUser(user *model.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = user
}

func (s *Session) markReady() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ready = true
}
