// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/taibuivan/storeconsole/internal/platform/constants"
	"github.com/taibuivan/storeconsole/internal/platform/sec"
)

// # Errors

// ErrNoRefreshToken ends the session when a refresh is needed but no refresh
// token is stored.
var ErrNoRefreshToken = errors.New("session: no refresh token")

// errNoExchanger is the refresh failure of a manager built without a [TokenExchanger].
var errNoExchanger = errors.New("session: no token exchanger configured")

// RefreshError reports that the backend refused to refresh the session.
type RefreshError struct {
	Err error
}

func (e *RefreshError) Error() string {
	return "session: refresh rejected: " + e.Err.Error()
}

func (e *RefreshError) Unwrap() error { return e.Err }

// IsTerminal reports whether err ended the session.
func IsTerminal(err error) bool {
	var refreshErr *RefreshError
	return errors.Is(err, ErrNoRefreshToken) || errors.As(err, &refreshErr)
}

// Trigger names what started a refresh cycle.
type Trigger string

const (
	TriggerUnauthorized Trigger = "unauthorized"
	TriggerProactive    Trigger = "proactive"
)

// # State Machine

// refreshState is the IDLE/REFRESHING machine.
//
// queue is only non-empty while refreshing is true. It is drained and the flag
// cleared under the same lock hold.
type refreshState struct {
	mu         sync.Mutex
	refreshing bool
	queue      []chan error
}

/*
refreshAfter runs one refresh cycle on behalf of a caller whose access token
(sent) is no longer good enough.

  - REFRESHING: the caller is queued and receives the leader's outcome.
  - IDLE, store already holds a different access token: a cycle completed since
    sent was read, nothing to do.
  - IDLE otherwise: the caller leads. It refreshes, then releases every waiter
    in FIFO order and returns to IDLE.

A waiter stops waiting when its ctx ends, but its queue slot stays until the
leader drains it.
*/
func (m *Manager) refreshAfter(ctx context.Context, sent string, trigger Trigger) error {
	state := &m.refresh

	state.mu.Lock()
	if state.refreshing {
		waiter := make(chan error, 1)
		state.queue = append(state.queue, waiter)
		state.mu.Unlock()

		m.metrics.waiterQueued(trigger)

		select {
		case err := <-waiter:
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	current, err := m.store.Get(ctx, constants.AccessTokenKey)
	if err != nil {
		state.mu.Unlock()
		return fmt.Errorf("session: read access token: %w", err)
	}
	if current != "" && current != sent {
		state.mu.Unlock()
		return nil
	}

	state.refreshing = true
	state.mu.Unlock()

	m.metrics.refreshStarted()
	started := m.now()
	err = m.lead(ctx)
	m.metrics.refreshFinished(trigger, err, m.now().Sub(started))

	state.mu.Lock()
	for _, waiter := range state.queue {
		waiter <- err
	}
	state.queue = nil
	state.refreshing = false
	state.mu.Unlock()

	return err
}

// lead performs the single refresh call of a cycle.
//
// It runs detached from ctx cancellation so one caller giving up does not fail
// every waiter. The exchanger's own client timeout bounds it.
func (m *Manager) lead(ctx context.Context) error {
	ctx = context.WithoutCancel(ctx)

	refreshToken, err := m.store.Get(ctx, constants.RefreshTokenKey)
	if err != nil {
		return fmt.Errorf("session: read refresh token: %w", err)
	}
	if refreshToken == "" {
		m.terminate(ctx, ErrNoRefreshToken)
		return ErrNoRefreshToken
	}

	if m.exchanger == nil {
		refreshErr := &RefreshError{Err: errNoExchanger}
		m.terminate(ctx, refreshErr)
		return refreshErr
	}

	pair, err := m.exchanger.Exchange(ctx, refreshToken)
	if err != nil {
		refreshErr := &RefreshError{Err: err}
		m.terminate(ctx, refreshErr)
		return refreshErr
	}

	if err := m.SetTokens(ctx, pair.AccessToken, pair.RefreshToken); err != nil {
		return err
	}

	m.logger.Debug("session refreshed", slog.Bool("rotated", pair.RefreshToken != ""))
	return nil
}

// terminate resets the session and hard-redirects to sign-in.
func (m *Manager) terminate(ctx context.Context, cause error) {
	m.logger.Warn("session ended", slog.Any("cause", cause))

	if err := m.Reset(ctx); err != nil {
		m.logger.Error("session reset failed", slog.Any("error", err))
	}
	m.redirect.RedirectToSignIn(ctx, cause)
}

// # Proactive Refresh

/*
EnsureFresh refreshes the session ahead of time when the stored access token
expires within [constants.RefreshHorizon].

It shares the state machine with the 401 path, so a proactive refresh and a
reactive one never run concurrently. Without an access token, with an
undecodable one, or without a refresh token it does nothing; the next backend
call deals with the consequences.
*/
func (m *Manager) EnsureFresh(ctx context.Context) error {
	access, err := m.AccessToken(ctx)
	if err != nil || access == "" {
		return err
	}

	claims, err := sec.Decode(access)
	if err != nil {
		return nil
	}
	expiresAt := claims.ExpiresAtUnix()
	if expiresAt == 0 || time.Unix(expiresAt, 0).Sub(m.now()) > constants.RefreshHorizon {
		return nil
	}

	refreshToken, err := m.RefreshToken(ctx)
	if err != nil || refreshToken == "" {
		return err
	}

	return m.refreshAfter(ctx, access, TriggerProactive)
}
