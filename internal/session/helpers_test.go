// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package session_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/taibuivan/storeconsole/internal/platform/sec"
	"github.com/taibuivan/storeconsole/internal/session"
)

// epoch has no sub-second part so JWT expiries compare exactly.
var epoch = time.Date(2026, time.October, 18, 9, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *fakeClock { return &fakeClock{now: epoch} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func mint(t *testing.T, email string, role session.Role, issuedAt time.Time, ttl time.Duration) string {
	t.Helper()

	tokens, err := sec.NewTokenService("session-test-secret", "session-test")
	require.NoError(t, err)

	token, err := tokens.GenerateAccessTokenAt("u-1", email, string(role), issuedAt, ttl)
	require.NoError(t, err)
	return token
}

// fakeExchanger hands out pair (or err) after gate closes. A nil gate never blocks.
type fakeExchanger struct {
	calls atomic.Int32
	gate  chan struct{}

	mu   sync.Mutex
	pair session.TokenPair
	err  error
	seen []string
}

func (f *fakeExchanger) Exchange(ctx context.Context, refreshToken string) (session.TokenPair, error) {
	f.calls.Add(1)

	f.mu.Lock()
	f.seen = append(f.seen, refreshToken)
	f.mu.Unlock()

	if f.gate != nil {
		select {
		case <-f.gate:
		case <-time.After(5 * time.Second):
			return session.TokenPair{}, context.DeadlineExceeded
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pair, f.err
}

type redirectRecorder struct {
	count atomic.Int32

	mu     sync.Mutex
	causes []error
}

func (r *redirectRecorder) RedirectToSignIn(_ context.Context, cause error) {
	r.count.Add(1)
	r.mu.Lock()
	r.causes = append(r.causes, cause)
	r.mu.Unlock()
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type harness struct {
	clock     *fakeClock
	store     *session.MemoryStore
	exchanger *fakeExchanger
	redirects *redirectRecorder
	manager   *session.Manager
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	h := &harness{
		clock:     newClock(),
		exchanger: &fakeExchanger{},
		redirects: &redirectRecorder{},
	}
	h.store = session.NewMemoryStore(h.clock.Now)
	h.manager = h.newManager(t)
	return h
}

// newManager builds a manager over the harness store, as a fresh process would.
func (h *harness) newManager(t *testing.T) *session.Manager {
	t.Helper()

	manager, err := session.NewManager(context.Background(), h.store,
		session.WithClock(h.clock.Now),
		session.WithExchanger(h.exchanger),
		session.WithRedirector(h.redirects),
		session.WithLogger(quietLogger()),
	)
	require.NoError(t, err)
	return manager
}

func (h *harness) stored(t *testing.T, name string) string {
	t.Helper()
	value, err := h.store.Get(context.Background(), name)
	require.NoError(t, err)
	return value
}
