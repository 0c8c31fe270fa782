// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package session owns the console's authenticated session.

It keeps the access/refresh token pair in a durable [Store], derives the
signed-in [Principal] from the access token, answers authentication and role
questions for the console, and refreshes expired tokens around outgoing
backend calls.

Architecture:

  - Manager: token persistence, principal, predicates, reset and logout.
  - Transport: an [http.RoundTripper] that attaches the bearer token and
    recovers from 401 responses through the refresh state machine.
  - Refresh: the IDLE/REFRESHING state machine shared by the reactive (401)
    and the proactive (near expiry) triggers. At most one refresh call to the
    backend is in flight; everyone else waits in a FIFO queue.

The store is the single source of truth for tokens. Outgoing requests always
re-read the access token from it.
*/
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/taibuivan/storeconsole/internal/platform/constants"
	"github.com/taibuivan/storeconsole/internal/platform/sec"
)

// # Collaborators

// Redirector performs the "hard redirect" to the sign-in entry point.
//
// In the console it drops every in-memory state and tells the user to sign in
// again. cause is nil for a voluntary logout.
type Redirector interface {
	RedirectToSignIn(ctx context.Context, cause error)
}

// RedirectFunc adapts a function to [Redirector].
type RedirectFunc func(ctx context.Context, cause error)

// RedirectToSignIn implements [Redirector].
func (f RedirectFunc) RedirectToSignIn(ctx context.Context, cause error) {
	f(ctx, cause)
}

// TokenExchanger trades a refresh token for a new token pair.
type TokenExchanger interface {
	Exchange(ctx context.Context, refreshToken string) (TokenPair, error)
}

// # Manager

// Manager is the single owned session instance.
//
// It is safe for concurrent use.
type Manager struct {
	store     Store
	exchanger TokenExchanger
	redirect  Redirector
	logger    *slog.Logger
	metrics   *Metrics
	now       func() time.Time

	// writeMu orders token writes so the principal always matches the stored
	// access token.
	writeMu sync.Mutex

	mu        sync.RWMutex
	principal *Principal

	refresh refreshState
}

// Option configures a [Manager].
type Option func(*Manager)

// WithExchanger sets how refresh tokens are traded for new pairs.
func WithExchanger(exchanger TokenExchanger) Option {
	return func(m *Manager) { m.exchanger = exchanger }
}

// WithRedirector sets the sign-in redirect.
func WithRedirector(redirect Redirector) Option {
	return func(m *Manager) { m.redirect = redirect }
}

// WithLogger sets the logger used for non-fatal session events.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// WithClock replaces [time.Now], for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithMetrics records refresh activity into metrics.
func WithMetrics(metrics *Metrics) Option {
	return func(m *Manager) { m.metrics = metrics }
}

// NewManager creates a session over store and hydrates the principal from the
// stored access token.
//
// The stored profile snapshot only contributes the profile fields, and only
// when it belongs to the same email as the token. Its expiry is never used.
func NewManager(ctx context.Context, store Store, opts ...Option) (*Manager, error) {
	manager := &Manager{
		store:    store,
		redirect: RedirectFunc(func(context.Context, error) {}),
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(manager)
	}

	if err := manager.hydrate(ctx); err != nil {
		return nil, err
	}
	return manager, nil
}

func (m *Manager) hydrate(ctx context.Context) error {
	access, err := m.store.Get(ctx, constants.AccessTokenKey)
	if err != nil {
		return fmt.Errorf("session: read access token: %w", err)
	}
	if access == "" {
		return nil
	}

	claims, err := sec.Decode(access)
	if err != nil {
		m.logger.Error("stored access token could not be decoded", slog.Any("error", err))
		return nil
	}
	principal := principalFromClaims(claims)

	raw, err := m.store.Get(ctx, constants.UserSnapshotKey)
	if err != nil {
		return fmt.Errorf("session: read user snapshot: %w", err)
	}
	if raw != "" {
		var snapshot Principal
		if err := json.Unmarshal([]byte(raw), &snapshot); err != nil {
			m.logger.Warn("stored user snapshot is unreadable", slog.Any("error", err))
		} else if snapshot.Email == principal.Email {
			principal.ID = snapshot.ID
			principal.FirstName = snapshot.FirstName
			principal.LastName = snapshot.LastName
		}
	}

	m.mu.Lock()
	m.principal = &principal
	m.mu.Unlock()
	return nil
}

// # Mutators

/*
SetTokens persists a token pair and re-derives the principal.

The access token is always stored, even when it cannot be decoded. The refresh
token is stored only when non-empty, replacing the previous one.

A malformed access token is logged and leaves the principal unchanged. Only
storage failures are returned. Concurrent calls are serialised.
*/
func (m *Manager) SetTokens(ctx context.Context, accessToken, refreshToken string) error {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	if err := m.store.Set(ctx, constants.AccessTokenKey, accessToken, constants.AccessTokenMaxAge); err != nil {
		return fmt.Errorf("session: store access token: %w", err)
	}
	if refreshToken != "" {
		if err := m.store.Set(ctx, constants.RefreshTokenKey, refreshToken, constants.RefreshTokenMaxAge); err != nil {
			return fmt.Errorf("session: store refresh token: %w", err)
		}
	}

	claims, err := sec.Decode(accessToken)
	if err != nil {
		m.logger.Error("access token could not be decoded", slog.Any("error", err))
		return nil
	}
	next := principalFromClaims(claims)

	m.mu.Lock()
	defer m.mu.Unlock()

	// A refreshed token for the same account keeps the profile loaded from /auth/me.
	if current := m.principal; current != nil && current.Email == next.Email {
		next.ID = current.ID
		next.FirstName = current.FirstName
		next.LastName = current.LastName
	}
	m.principal = &next
	return nil
}

/*
SetUser replaces the principal with a backend profile and persists it as the
user snapshot.

A profile without expiry is valid for one hour. A nil user clears both the
snapshot and the principal.
*/
func (m *Manager) SetUser(ctx context.Context, user *User) error {
	if user == nil {
		if err := m.store.Delete(ctx, constants.UserSnapshotKey); err != nil {
			return fmt.Errorf("session: delete user snapshot: %w", err)
		}
		m.mu.Lock()
		m.principal = nil
		m.mu.Unlock()
		return nil
	}

	principal := Principal{
		ID:        user.ID,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Role:      user.Role,
		ExpiresAt: user.ExpiresAt,
	}
	if principal.ExpiresAt == 0 {
		principal.ExpiresAt = m.now().Add(constants.DefaultPrincipalTTL).Unix()
	}

	raw, err := json.Marshal(principal)
	if err != nil {
		return fmt.Errorf("session: encode user snapshot: %w", err)
	}
	if err := m.store.Set(ctx, constants.UserSnapshotKey, string(raw), constants.UserSnapshotMaxAge); err != nil {
		return fmt.Errorf("session: store user snapshot: %w", err)
	}

	m.mu.Lock()
	m.principal = &principal
	m.mu.Unlock()
	return nil
}

// Reset clears both tokens, the user snapshot and the in-memory principal.
func (m *Manager) Reset(ctx context.Context) error {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	m.mu.Lock()
	m.principal = nil
	m.mu.Unlock()

	var errs []error
	for _, name := range []string{constants.AccessTokenKey, constants.RefreshTokenKey, constants.UserSnapshotKey} {
		if err := m.store.Delete(ctx, name); err != nil {
			errs = append(errs, fmt.Errorf("session: delete %s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// Logout resets the session, clears every other durable entry of the store and
// hard-redirects to sign-in.
func (m *Manager) Logout(ctx context.Context) error {
	resetErr := m.Reset(ctx)

	var clearErr error
	if err := m.store.Clear(ctx); err != nil {
		clearErr = fmt.Errorf("session: clear store: %w", err)
	}

	m.redirect.RedirectToSignIn(ctx, nil)
	return errors.Join(resetErr, clearErr)
}

// # Predicates

// IsAuthenticated reports whether a principal is present and not yet expired.
// The comparison is strict at second resolution.
func (m *Manager) IsAuthenticated() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.principal != nil && m.principal.ValidAt(m.now())
}

// HasRole reports whether the principal holds one of roles.
func (m *Manager) HasRole(roles ...Role) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.principal == nil {
		return false
	}
	return m.principal.Role.In(roles...)
}

// Principal returns a copy of the current principal.
func (m *Manager) Principal() (Principal, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.principal == nil {
		return Principal{}, false
	}
	return *m.principal, true
}

// AccessToken reads the access token from the store.
func (m *Manager) AccessToken(ctx context.Context) (string, error) {
	token, err := m.store.Get(ctx, constants.AccessTokenKey)
	if err != nil {
		return "", fmt.Errorf("session: read access token: %w", err)
	}
	return token, nil
}

// RefreshToken reads the refresh token from the store.
func (m *Manager) RefreshToken(ctx context.Context) (string, error) {
	token, err := m.store.Get(ctx, constants.RefreshTokenKey)
	if err != nil {
		return "", fmt.Errorf("session: read refresh token: %w", err)
	}
	return token, nil
}
