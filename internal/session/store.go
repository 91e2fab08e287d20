// Package session holds the authenticated identity and its tokens.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"salonbook/internal/api"
	"salonbook/internal/metrics"
)

// Identity is the signed-in user.
type Identity = api.User

// ErrSuperseded is returned when a logout or expiry happened while a call was in flight.
var ErrSuperseded = errors.New("session changed during request")

// AuthAPI is the subset of the backend the store talks to.
type AuthAPI interface {
	Login(ctx context.Context, email, password string) (*api.AuthResponse, error)
	Register(ctx context.Context, req api.RegisterRequest) (*api.AuthResponse, error)
	Logout(ctx context.Context, refresh string) error
	RefreshToken(ctx context.Context, refresh string) (*api.TokenPair, error)
	Me(ctx context.Context) (*api.User, error)
	UpdateMe(ctx context.Context, upd api.ProfileUpdate) (*api.User, error)
}

// Redirector sends the user to the login entry point.
type Redirector interface {
	RedirectToLogin()
}

// RedirectFunc adapts a function to Redirector.
type RedirectFunc func()

func (f RedirectFunc) RedirectToLogin() { f() }

// Store is the single source of truth for the identity. It implements api.Auth.
//
// Every teardown (logout or 401) bumps the epoch. Responses captured under an
// older epoch are not applied.
type Store struct {
	mu       sync.RWMutex
	api      AuthAPI
	tokens   TokenStore
	redirect Redirector
	logger   zerolog.Logger
	now      func() time.Time

	epoch    uint64
	access   string
	refresh  string
	identity *Identity
	loading  bool

	bootstrapping bool
}

// NewStore creates an anonymous store backed by tokens.
func NewStore(tokens TokenStore, logger *zerolog.Logger) *Store {
	if tokens == nil {
		tokens = NewMemoryTokens()
	}
	l := zerolog.Nop()
	if logger != nil {
		l = logger.With().Str("component", "session").Logger()
	}
	return &Store{tokens: tokens, logger: l, now: time.Now}
}

// UseAPI sets the backend client. It is usually an api.Client bound to this store.
func (s *Store) UseAPI(a AuthAPI) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.api = a
}

// UseRedirector sets where expired sessions are sent.
func (s *Store) UseRedirector(r Redirector) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.redirect = r
}

// AccessToken implements api.Auth.
func (s *Store) AccessToken() (string, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.access, s.epoch
}

// Expire implements api.Auth. Only the first call for a given epoch tears the session down.
func (s *Store) Expire(epoch uint64) {
	s.mu.Lock()
	if epoch != s.epoch {
		s.mu.Unlock()
		return
	}
	if s.bootstrapping {
		// Bootstrap recovers through a refresh and tears down itself.
		s.mu.Unlock()
		return
	}
	s.teardownLocked()
	redirect := s.redirect
	s.mu.Unlock()

	metrics.IncAuthExpired()
	s.logger.Info().Uint64("epoch", epoch).Msg("session expired")
	if redirect != nil {
		redirect.RedirectToLogin()
	}
}

// Identity returns a copy of the current identity, or nil.
func (s *Store) Identity() *Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.identity == nil {
		return nil
	}
	id := *s.identity
	return &id
}

// IsAuthenticated reports whether an identity is present.
func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity != nil
}

// IsLoading reports whether Bootstrap is running.
func (s *Store) IsLoading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Epoch returns the current session generation.
func (s *Store) Epoch() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.epoch
}

// Bootstrap restores the session from persisted tokens.
func (s *Store) Bootstrap(ctx context.Context) error {
	s.mu.Lock()
	if s.api == nil {
		s.mu.Unlock()
		return fmt.Errorf("session: no api configured")
	}
	s.loading = true
	s.bootstrapping = true
	epoch := s.epoch
	a := s.api
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.loading = false
		s.bootstrapping = false
		s.mu.Unlock()
	}()

	t, err := s.tokens.Load(ctx)
	if err != nil {
		return fmt.Errorf("load tokens: %w", err)
	}
	if t.Access == "" && t.Refresh == "" {
		return nil
	}

	s.mu.Lock()
	if s.epoch != epoch {
		s.mu.Unlock()
		return ErrSuperseded
	}
	s.access, s.refresh = t.Access, t.Refresh
	s.mu.Unlock()

	if t.Refresh != "" && (t.Access == "" || tokenExpired(t.Access, s.now())) {
		if err := s.refreshTokens(ctx, epoch); err != nil {
			s.logger.Debug().Err(err).Msg("pre-emptive refresh failed")
		}
	}

	user, err := a.Me(ctx)
	if err != nil && t.Refresh != "" {
		s.logger.Debug().Err(err).Msg("fetch identity failed, refreshing")
		if rerr := s.refreshTokens(ctx, epoch); rerr == nil {
			user, err = a.Me(ctx)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch {
		return ErrSuperseded
	}
	if err != nil {
		s.logger.Info().Err(err).Msg("stored session rejected")
		s.teardownLocked()
		return nil
	}
	s.identity = user
	return nil
}

// Login authenticates and persists the tokens.
func (s *Store) Login(ctx context.Context, email, password string) (*Identity, error) {
	a, epoch := s.begin()
	if a == nil {
		return nil, fmt.Errorf("session: no api configured")
	}
	resp, err := a.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return s.establish(ctx, epoch, resp)
}

// Register creates an account and signs in with it.
func (s *Store) Register(ctx context.Context, req api.RegisterRequest) (*Identity, error) {
	a, epoch := s.begin()
	if a == nil {
		return nil, fmt.Errorf("session: no api configured")
	}
	resp, err := a.Register(ctx, req)
	if err != nil {
		return nil, err
	}
	return s.establish(ctx, epoch, resp)
}

// Logout drops the local session before talking to the server.
// The server-side logout is best effort.
func (s *Store) Logout(ctx context.Context) error {
	s.mu.Lock()
	refresh := s.refresh
	a := s.api
	clearErr := s.teardownLocked()
	s.mu.Unlock()

	if refresh != "" && a != nil {
		if err := a.Logout(ctx, refresh); err != nil {
			s.logger.Warn().Err(err).Msg("server logout failed")
		}
	}
	return clearErr
}

// UpdateProfile patches the profile and replaces the identity.
func (s *Store) UpdateProfile(ctx context.Context, upd api.ProfileUpdate) (*Identity, error) {
	a, epoch := s.begin()
	if a == nil {
		return nil, fmt.Errorf("session: no api configured")
	}
	user, err := a.UpdateMe(ctx, upd)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch {
		return nil, ErrSuperseded
	}
	s.identity = user
	id := *user
	return &id, nil
}

func (s *Store) begin() (AuthAPI, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.api, s.epoch
}

func (s *Store) establish(ctx context.Context, epoch uint64, resp *api.AuthResponse) (*Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch {
		return nil, ErrSuperseded
	}
	t := Tokens{Access: resp.Access, Refresh: resp.Refresh}
	if err := s.tokens.Save(ctx, t); err != nil {
		return nil, fmt.Errorf("save tokens: %w", err)
	}
	s.access, s.refresh = t.Access, t.Refresh
	user := resp.User
	s.identity = &user
	id := user
	return &id, nil
}

func (s *Store) refreshTokens(ctx context.Context, epoch uint64) error {
	s.mu.RLock()
	refresh := s.refresh
	a := s.api
	s.mu.RUnlock()
	if refresh == "" {
		return errors.New("no refresh token")
	}

	pair, err := a.RefreshToken(ctx, refresh)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch {
		return ErrSuperseded
	}
	s.access = pair.Access
	if pair.Refresh != "" {
		s.refresh = pair.Refresh
	}
	return s.tokens.Save(ctx, Tokens{Access: s.access, Refresh: s.refresh})
}

// teardownLocked clears the session and advances the epoch. s.mu must be held.
func (s *Store) teardownLocked() error {
	s.epoch++
	s.access, s.refresh = "", ""
	s.identity = nil
	if err := s.tokens.Clear(context.Background()); err != nil {
		s.logger.Error().Err(err).Msg("clear tokens")
		return fmt.Errorf("clear tokens: %w", err)
	}
	return nil
}

// tokenExpired reports whether a JWT access token carries an exp in the past.
// Tokens that are not JWTs are left for the server to judge.
func tokenExpired(token string, now time.Time) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !now.Before(exp.Time)
}
