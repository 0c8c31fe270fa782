// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package session_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/storeconsole/internal/platform/constants"
	"github.com/taibuivan/storeconsole/internal/session"
)

// protectedAPI accepts only requests bearing the token returned by valid.
type protectedAPI struct {
	valid func() string

	unauthorized atomic.Int32
	accepted     atomic.Int32

	mu     sync.Mutex
	bodies []string
	ids    []string
}

func (api *protectedAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	api.mu.Lock()
	api.bodies = append(api.bodies, string(body))
	api.ids = append(api.ids, r.Header.Get(constants.HeaderXRequestID))
	api.mu.Unlock()

	if r.Header.Get(constants.HeaderAuthorization) != constants.BearerPrefix+api.valid() {
		api.unauthorized.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"title":"Unauthorized"}`)
		return
	}

	api.accepted.Add(1)
	_, _ = io.WriteString(w, r.Header.Get(constants.HeaderAuthorization))
}

func (api *protectedAPI) requestIDs() []string {
	api.mu.Lock()
	defer api.mu.Unlock()
	return append([]string(nil), api.ids...)
}

func (api *protectedAPI) requestBodies() []string {
	api.mu.Lock()
	defer api.mu.Unlock()
	return append([]string(nil), api.bodies...)
}

type refreshFixture struct {
	*harness
	oldToken string
	newToken string
	api      *protectedAPI
	server   *httptest.Server
	client   *http.Client
}

func newRefreshFixture(t *testing.T) *refreshFixture {
	t.Helper()

	h := newHarness(t)
	f := &refreshFixture{
		harness:  h,
		oldToken: mint(t, "owner@store.test", session.RoleOwner, h.clock.Now().Add(-time.Hour), 15*time.Minute),
		newToken: mint(t, "owner@store.test", session.RoleOwner, h.clock.Now(), 15*time.Minute),
	}
	f.api = &protectedAPI{valid: func() string { return f.newToken }}
	f.server = httptest.NewServer(f.api)
	t.Cleanup(f.server.Close)

	f.client = &http.Client{Transport: session.NewTransport(h.manager, nil)}

	require.NoError(t, h.manager.SetTokens(context.Background(), f.oldToken, "r1"))
	h.exchanger.pair = session.TokenPair{AccessToken: f.newToken, RefreshToken: "r2"}
	return f
}

func (f *refreshFixture) get(t *testing.T, path string) (*http.Response, error) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, f.server.URL+path, nil)
	require.NoError(t, err)
	return f.client.Do(req)
}

func TestTransport_AttachesStoredToken(t *testing.T) {
	f := newRefreshFixture(t)
	ctx := context.Background()

	// A token written behind the manager's back is still picked up.
	require.NoError(t, f.store.Set(ctx, constants.AccessTokenKey, f.newToken, time.Minute))

	resp, err := f.get(t, "/api/producto")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Zero(t, f.exchanger.calls.Load())
	assert.NotEmpty(t, f.api.requestIDs()[0], "request id is attached")
}

func TestTransport_WithoutTokenProceedsUnauthenticated(t *testing.T) {
	f := newRefreshFixture(t)
	require.NoError(t, f.manager.Reset(context.Background()))

	seen := make(chan string, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen <- r.Header.Get(constants.HeaderAuthorization)
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	resp, err := f.client.Post(server.URL+"/api/auth/forgot-password", constants.ContentTypeJSON, strings.NewReader(`{}`))
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Empty(t, <-seen)
}

func TestTransport_RefreshesAndRetries(t *testing.T) {
	f := newRefreshFixture(t)

	resp, err := f.get(t, "/api/ventas")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, constants.BearerPrefix+f.newToken, string(body))

	assert.EqualValues(t, 1, f.exchanger.calls.Load())
	assert.Equal(t, []string{"r1"}, f.exchanger.seen, "refresh token is the bearer of the exchange")
	assert.Equal(t, f.newToken, f.stored(t, constants.AccessTokenKey))
	assert.Equal(t, "r2", f.stored(t, constants.RefreshTokenKey))
	assert.True(t, f.manager.IsAuthenticated())
	ids := f.api.requestIDs()
	require.Len(t, ids, 2)
	assert.Equal(t, ids[0], ids[1], "the replay keeps the request id")
}

func TestTransport_SingleRefreshForConcurrentFailures(t *testing.T) {
	f := newRefreshFixture(t)
	f.exchanger.gate = make(chan struct{})

	const burst = 5
	results := make(chan *http.Response, burst)
	failures := make(chan error, burst)

	var wg sync.WaitGroup
	for range burst {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := f.get(t, "/api/compras")
			if err != nil {
				failures <- err
				return
			}
			results <- resp
		}()
	}

	// Every request has been rejected once before the refresh may complete.
	require.Eventually(t, func() bool { return f.api.unauthorized.Load() == burst }, 5*time.Second, time.Millisecond)
	close(f.exchanger.gate)

	wg.Wait()
	close(results)
	close(failures)

	for err := range failures {
		t.Errorf("unexpected failure: %v", err)
	}
	for resp := range results {
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		resp.Body.Close()
	}

	assert.EqualValues(t, 1, f.exchanger.calls.Load())
	assert.EqualValues(t, burst, f.api.accepted.Load())
	assert.EqualValues(t, burst, f.api.unauthorized.Load(), "no request is retried twice")
}

func TestTransport_RefreshFailureCascades(t *testing.T) {
	f := newRefreshFixture(t)
	f.exchanger.gate = make(chan struct{})
	f.exchanger.err = errors.New("refresh token revoked")

	const burst = 5
	failures := make(chan error, burst)

	var wg sync.WaitGroup
	for range burst {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := f.get(t, "/api/compras")
			if resp != nil {
				resp.Body.Close()
			}
			failures <- err
		}()
	}

	require.Eventually(t, func() bool { return f.api.unauthorized.Load() == burst }, 5*time.Second, time.Millisecond)
	close(f.exchanger.gate)

	wg.Wait()
	close(failures)

	for err := range failures {
		require.Error(t, err)
		assert.True(t, session.IsTerminal(err), "got %v", err)
	}

	assert.EqualValues(t, 1, f.exchanger.calls.Load())
	assert.Zero(t, f.api.accepted.Load())
	assert.Empty(t, f.stored(t, constants.AccessTokenKey))
	assert.Empty(t, f.stored(t, constants.RefreshTokenKey))
	assert.False(t, f.manager.IsAuthenticated())
	assert.GreaterOrEqual(t, f.redirects.count.Load(), int32(1))
}

func TestTransport_NoRefreshToken(t *testing.T) {
	f := newRefreshFixture(t)
	require.NoError(t, f.store.Delete(context.Background(), constants.RefreshTokenKey))

	_, err := f.get(t, "/api/ventas")

	require.ErrorIs(t, err, session.ErrNoRefreshToken)
	assert.Zero(t, f.exchanger.calls.Load())
	assert.Empty(t, f.stored(t, constants.AccessTokenKey))
	assert.EqualValues(t, 1, f.redirects.count.Load())
	assert.ErrorIs(t, f.redirects.causes[0], session.ErrNoRefreshToken)
}

func TestTransport_RetriesOnlyOnce(t *testing.T) {
	f := newRefreshFixture(t)
	f.api.valid = func() string { return "never" }

	resp, err := f.get(t, "/api/ventas")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.EqualValues(t, 1, f.exchanger.calls.Load())
	assert.EqualValues(t, 2, f.api.unauthorized.Load())
}

func TestTransport_LoginIsExempt(t *testing.T) {
	f := newRefreshFixture(t)

	resp, err := f.client.Post(f.server.URL+"/api"+constants.PathLogin, constants.ContentTypeJSON, strings.NewReader(`{}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Zero(t, f.exchanger.calls.Load())
	assert.Equal(t, f.oldToken, f.stored(t, constants.AccessTokenKey))
}

func TestTransport_ExplicitAuthorizationIsKept(t *testing.T) {
	f := newRefreshFixture(t)

	req, err := http.NewRequest(http.MethodGet, f.server.URL+"/api/auth/me", nil)
	require.NoError(t, err)
	req.Header.Set(constants.HeaderAuthorization, constants.BearerPrefix+"explicit")

	resp, err := f.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Zero(t, f.exchanger.calls.Load())
}

func TestTransport_ReplaysBody(t *testing.T) {
	f := newRefreshFixture(t)

	// NopCloser hides the reader type, so the request has no GetBody.
	req, err := http.NewRequest(http.MethodPost, f.server.URL+"/api/ventas", io.NopCloser(strings.NewReader(`{"total":42}`)))
	require.NoError(t, err)
	require.Nil(t, req.GetBody)

	resp, err := f.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{`{"total":42}`, `{"total":42}`}, f.api.requestBodies())
}

func TestTransport_StaleTokenRetriesWithoutRefresh(t *testing.T) {
	f := newRefreshFixture(t)

	// The request is sent with the old token; by the time its 401 arrives a
	// refresh has already stored the new one.
	var once sync.Once
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(constants.HeaderAuthorization) == constants.BearerPrefix+f.newToken {
			w.WriteHeader(http.StatusOK)
			return
		}
		once.Do(func() {
			assert.NoError(t, f.store.Set(r.Context(), constants.AccessTokenKey, f.newToken, time.Minute))
		})
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	resp, err := f.client.Get(server.URL + "/api/ventas")
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Zero(t, f.exchanger.calls.Load())
}

func TestManager_EnsureFresh(t *testing.T) {
	t.Run("refreshes inside the horizon", func(t *testing.T) {
		h := newHarness(t)
		ctx := context.Background()

		access := mint(t, "owner@store.test", session.RoleOwner, h.clock.Now().Add(-11*time.Minute), 15*time.Minute)
		require.NoError(t, h.manager.SetTokens(ctx, access, "r1"))
		renewed := mint(t, "owner@store.test", session.RoleOwner, h.clock.Now(), 15*time.Minute)
		h.exchanger.pair = session.TokenPair{AccessToken: renewed}

		require.NoError(t, h.manager.EnsureFresh(ctx))

		assert.EqualValues(t, 1, h.exchanger.calls.Load())
		assert.Equal(t, renewed, h.stored(t, constants.AccessTokenKey))
		assert.Equal(t, "r1", h.stored(t, constants.RefreshTokenKey), "refresh token kept when not rotated")
	})

	t.Run("skips outside the horizon", func(t *testing.T) {
		h := newHarness(t)
		ctx := context.Background()

		access := mint(t, "owner@store.test", session.RoleOwner, h.clock.Now().Add(-9*time.Minute), 15*time.Minute)
		require.NoError(t, h.manager.SetTokens(ctx, access, "r1"))

		require.NoError(t, h.manager.EnsureFresh(ctx))
		assert.Zero(t, h.exchanger.calls.Load())
	})

	t.Run("no refresh token is a no-op", func(t *testing.T) {
		h := newHarness(t)
		ctx := context.Background()

		access := mint(t, "owner@store.test", session.RoleOwner, h.clock.Now(), time.Minute)
		require.NoError(t, h.manager.SetTokens(ctx, access, ""))

		require.NoError(t, h.manager.EnsureFresh(ctx))
		assert.Zero(t, h.exchanger.calls.Load())
		assert.Zero(t, h.redirects.count.Load())
		assert.True(t, h.manager.IsAuthenticated())
	})

	t.Run("rejection ends the session", func(t *testing.T) {
		h := newHarness(t)
		ctx := context.Background()
		h.exchanger.err = errors.New("expired")

		access := mint(t, "owner@store.test", session.RoleOwner, h.clock.Now(), time.Minute)
		require.NoError(t, h.manager.SetTokens(ctx, access, "r1"))

		err := h.manager.EnsureFresh(ctx)

		var refreshErr *session.RefreshError
		require.ErrorAs(t, err, &refreshErr)
		assert.False(t, h.manager.IsAuthenticated())
		assert.EqualValues(t, 1, h.redirects.count.Load())
	})
}

func TestManager_ProactiveAndReactiveShareOneRefresh(t *testing.T) {
	f := newRefreshFixture(t)
	f.exchanger.gate = make(chan struct{})

	// The old token expired 45 minutes ago, well inside the horizon.
	proactive := make(chan error, 1)
	go func() { proactive <- f.manager.EnsureFresh(context.Background()) }()
	require.Eventually(t, func() bool { return f.exchanger.calls.Load() == 1 }, 5*time.Second, time.Millisecond)

	reactive := make(chan error, 1)
	go func() {
		resp, err := f.get(t, "/api/ventas")
		if resp != nil {
			resp.Body.Close()
		}
		reactive <- err
	}()
	require.Eventually(t, func() bool { return f.api.unauthorized.Load() == 1 }, 5*time.Second, time.Millisecond)

	close(f.exchanger.gate)

	require.NoError(t, <-proactive)
	require.NoError(t, <-reactive)
	assert.EqualValues(t, 1, f.exchanger.calls.Load())
	assert.EqualValues(t, 1, f.api.accepted.Load())
}
