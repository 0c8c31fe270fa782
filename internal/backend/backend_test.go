// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package backend_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/taibuivan/storeconsole/internal/backend"
	"github.com/taibuivan/storeconsole/internal/mockapi"
	"github.com/taibuivan/storeconsole/internal/platform/apperr"
	"github.com/taibuivan/storeconsole/internal/platform/sec"
	"github.com/taibuivan/storeconsole/internal/session"
)

const (
	ownerPassword    = "Owner#2026pass"
	employeePassword = "Staff#2026pass"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// stack is a console session talking to an in-process mock backend.
type stack struct {
	clock     *clock
	api       *mockapi.API
	plain     *backend.Client
	client    *backend.Client
	manager   *session.Manager
	redirects atomic.Int32
}

func newStack(t *testing.T) *stack {
	t.Helper()

	s := &stack{clock: &clock{now: time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)}}

	api, err := mockapi.New(mockapi.Options{
		Secret:           "backend-test-secret",
		OwnerPassword:    ownerPassword,
		EmployeePassword: employeePassword,
		Now:              s.clock.Now,
		HashCost:         sec.MinHashCost,
		Logger:           quiet,
	})
	require.NoError(t, err)
	s.api = api

	ctx, cancel := context.WithCancel(context.Background())
	server := httptest.NewServer(api.Handler(ctx))
	t.Cleanup(func() {
		server.Close()
		cancel()
	})

	s.plain, err = backend.New(backend.Options{BaseURL: server.URL + "/api", Timeout: 5 * time.Second, Logger: quiet})
	require.NoError(t, err)

	s.manager, err = session.NewManager(context.Background(), session.NewMemoryStore(s.clock.Now),
		session.WithExchanger(s.plain),
		session.WithClock(s.clock.Now),
		session.WithLogger(quiet),
		session.WithRedirector(session.RedirectFunc(func(context.Context, error) { s.redirects.Add(1) })),
	)
	require.NoError(t, err)

	s.client = s.plain.WithSession(s.manager)
	return s
}

// signIn runs the console's login flow.
func (s *stack) signIn(t *testing.T, email, password string) *backend.AuthResponse {
	t.Helper()
	ctx := context.Background()

	response, err := s.client.Login(ctx, email, password)
	require.NoError(t, err)
	require.NoError(t, s.manager.SetTokens(ctx, response.AccessToken, response.RefreshToken))
	require.NoError(t, s.manager.SetUser(ctx, response.User))
	return response
}

func TestLogin(t *testing.T) {
	s := newStack(t)

	response := s.signIn(t, mockapi.OwnerEmail, ownerPassword)
	require.NotNil(t, response.User)
	assert.Equal(t, "Olivia", response.User.FirstName)
	assert.Equal(t, session.RoleOwner, response.User.Role)
	assert.Equal(t, "1", response.User.ID)

	assert.True(t, s.manager.IsAuthenticated())
	assert.True(t, s.manager.HasRole(session.RoleOwner))

	t.Run("Bad credentials", func(t *testing.T) {
		_, err := s.plain.Login(context.Background(), mockapi.OwnerEmail, "wrong")
		require.Error(t, err)
		assert.Equal(t, http.StatusUnauthorized, apperr.StatusOf(err))
		assert.Equal(t, "Invalid credentials", apperr.Display(err))
	})

	t.Run("Login is not refreshed", func(t *testing.T) {
		_, err := s.client.Login(context.Background(), mockapi.OwnerEmail, "wrong")
		require.Error(t, err)
		assert.False(t, session.IsTerminal(err))
		assert.EqualValues(t, 0, s.api.RefreshCalls())
	})
}

func TestExpiredTokenIsRefreshed(t *testing.T) {
	s := newStack(t)
	s.signIn(t, mockapi.OwnerEmail, ownerPassword)
	before, err := s.manager.AccessToken(context.Background())
	require.NoError(t, err)

	s.clock.Advance(16 * time.Minute)

	me, err := s.client.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, mockapi.OwnerEmail, me.Email)
	assert.EqualValues(t, 1, s.api.RefreshCalls())

	after, err := s.manager.AccessToken(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, before, after)

	principal, ok := s.manager.Principal()
	require.True(t, ok)
	assert.Equal(t, "Olivia", principal.FirstName, "profile survives the refresh")
	assert.Equal(t, s.clock.Now().Add(15*time.Minute).Unix(), principal.ExpiresAt)
	assert.Zero(t, s.redirects.Load())
}

func TestConcurrentExpiryRefreshesOnce(t *testing.T) {
	s := newStack(t)
	s.signIn(t, mockapi.EmployeeEmail, employeePassword)
	s.clock.Advance(16 * time.Minute)

	var group errgroup.Group
	for range 5 {
		group.Go(func() error {
			_, err := s.client.List(context.Background(), backend.Purchases)
			return err
		})
	}
	require.NoError(t, group.Wait())

	assert.EqualValues(t, 1, s.api.RefreshCalls())
	assert.True(t, s.manager.IsAuthenticated())
}

func TestRevokedSessionEnds(t *testing.T) {
	s := newStack(t)
	s.signIn(t, mockapi.EmployeeEmail, employeePassword)
	ctx := context.Background()

	// A password reset revokes every refresh token of the account.
	_, err := s.plain.ForgotPassword(ctx, mockapi.EmployeeEmail)
	require.NoError(t, err)
	token, ok := s.api.ResetTokenFor(mockapi.EmployeeEmail)
	require.True(t, ok)
	_, err = s.plain.ResetPassword(ctx, token, "Fresh#Reset2026x")
	require.NoError(t, err)

	s.clock.Advance(16 * time.Minute)

	_, err = s.client.List(ctx, backend.Sales)
	require.Error(t, err)
	assert.True(t, session.IsTerminal(err))
	assert.Equal(t, http.StatusUnauthorized, apperr.StatusOf(err))

	assert.EqualValues(t, 1, s.redirects.Load())
	assert.False(t, s.manager.IsAuthenticated())
	access, err := s.manager.AccessToken(ctx)
	require.NoError(t, err)
	assert.Empty(t, access)
}

func TestEnsureFreshAgainstBackend(t *testing.T) {
	s := newStack(t)
	s.signIn(t, mockapi.OwnerEmail, ownerPassword)

	s.clock.Advance(11 * time.Minute)
	require.NoError(t, s.manager.EnsureFresh(context.Background()))
	assert.EqualValues(t, 1, s.api.RefreshCalls())

	// The new token is fifteen minutes out again.
	require.NoError(t, s.manager.EnsureFresh(context.Background()))
	assert.EqualValues(t, 1, s.api.RefreshCalls())
}

func TestForbiddenIsNotRefreshed(t *testing.T) {
	s := newStack(t)
	s.signIn(t, mockapi.EmployeeEmail, employeePassword)

	_, err := s.client.List(context.Background(), backend.Lines)
	require.Error(t, err)
	assert.Equal(t, http.StatusForbidden, apperr.StatusOf(err))
	assert.EqualValues(t, 0, s.api.RefreshCalls())
	assert.True(t, s.manager.IsAuthenticated())
}

func TestPasswordReset(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()

	forgot, err := s.plain.ForgotPassword(ctx, mockapi.OwnerEmail)
	require.NoError(t, err)
	assert.True(t, forgot.Success)
	assert.NotEmpty(t, forgot.Message)

	token, ok := s.api.ResetTokenFor(mockapi.OwnerEmail)
	require.True(t, ok)

	_, err = s.plain.ResetPassword(ctx, token, "weak")
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, apperr.StatusOf(err))

	reset, err := s.plain.ResetPassword(ctx, token, "Brand#New2026pw")
	require.NoError(t, err)
	assert.True(t, reset.Success)

	s.signIn(t, mockapi.OwnerEmail, "Brand#New2026pw")
}

func TestRegisterEmployee(t *testing.T) {
	s := newStack(t)
	s.signIn(t, mockapi.OwnerEmail, ownerPassword)

	created, err := s.client.RegisterEmployee(context.Background(), backend.RegisterInput{
		FirstName: "Nora",
		LastName:  "Clerk",
		Email:     "nora@store.local",
		Password:  "Counter#2026z",
	})
	require.NoError(t, err)
	assert.True(t, created)

	_, err = s.client.RegisterEmployee(context.Background(), backend.RegisterInput{
		FirstName: "Nora",
		LastName:  "Clerk",
		Email:     "nora@store.local",
		Password:  "Counter#2026z",
	})
	assert.Equal(t, http.StatusConflict, apperr.StatusOf(err))
}

func TestResources(t *testing.T) {
	s := newStack(t)
	s.signIn(t, mockapi.OwnerEmail, ownerPassword)
	ctx := context.Background()

	_, err := s.client.Create(ctx, backend.Brands, map[string]string{"nombre": "Acme"})
	require.NoError(t, err)
	_, err = s.client.Create(ctx, backend.Lines, map[string]string{"nombre": "Tools"})
	require.NoError(t, err)

	raw, err := s.client.Update(ctx, backend.Brands, "1", map[string]string{"nombre": "Acme Co"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":1,"nombre":"Acme Co"}`, string(raw))

	require.NoError(t, s.client.AssignLine(ctx, "1", "1"))
	raw, err = s.client.BrandLines(ctx, "1")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":1,"nombre":"Tools"}]`, string(raw))
	require.NoError(t, s.client.UnassignLine(ctx, "1", "1"))

	_, err = s.client.Create(ctx, backend.Suppliers, map[string]string{"nombre": "Wholesale"})
	require.NoError(t, err)
	_, err = s.client.Update(ctx, backend.Suppliers, "1", map[string]string{"telefono": "555"})
	require.NoError(t, err, "suppliers are patched")
	_, err = s.client.Create(ctx, backend.Products, map[string]string{"nombre": "Hammer"})
	require.NoError(t, err)

	_, err = s.client.AssignProduct(ctx, backend.SupplierProduct{SupplierID: 1, ProductID: 1, SupplierCode: "HM-1"})
	require.NoError(t, err)
	raw, err = s.client.SupplierProducts(ctx, "1")
	require.NoError(t, err)
	var offered []backend.SupplierProduct
	require.NoError(t, json.Unmarshal(raw, &offered))
	assert.Equal(t, []backend.SupplierProduct{{SupplierID: 1, ProductID: 1, SupplierCode: "HM-1"}}, offered)
	require.NoError(t, s.client.UnassignProduct(ctx, "1"))

	created, err := s.client.Create(ctx, backend.Users, map[string]string{
		"firstName": "Omar", "lastName": "Partner", "email": "omar@store.local",
		"password": "Ledger#2026q", "role": string(session.RoleOwner),
	})
	require.NoError(t, err)
	var user session.User
	require.NoError(t, json.Unmarshal(created, &user))
	assert.Equal(t, session.RoleOwner, user.Role)

	_, err = s.client.Update(ctx, backend.Users, user.ID, map[string]string{"phone": "555-0101"})
	require.NoError(t, err)

	require.NoError(t, s.client.Delete(ctx, backend.Brands, "1"))
	_, err = s.client.Get(ctx, backend.Brands, "1")
	assert.Equal(t, http.StatusNotFound, apperr.StatusOf(err))

	t.Run("Audit", func(t *testing.T) {
		types, err := s.client.AuditEventTypes(ctx)
		require.NoError(t, err)
		assert.Contains(t, types, mockapi.EventDelete)

		raw, err := s.client.AuditLog(ctx, backend.AuditFilter{EventType: mockapi.EventDelete, UserID: 1, From: "2026-10-18"})
		require.NoError(t, err)
		var entries []map[string]any
		require.NoError(t, json.Unmarshal(raw, &entries))
		assert.Len(t, entries, 3, "two unassignments and the brand")
	})
}

func TestParseResource(t *testing.T) {
	resource, err := backend.ParseResource("Brands")
	require.NoError(t, err)
	assert.Equal(t, backend.Brands, resource)

	resource, err = backend.ParseResource("proveedor")
	require.NoError(t, err)
	assert.Equal(t, backend.Suppliers, resource)

	_, err = backend.ParseResource("invoices")
	assert.ErrorContains(t, err, "brands")
}

func TestErrorDecoding(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		switch request.URL.Path {
		case "/api/auth/tokens":
			writer.WriteHeader(http.StatusCreated)
			_, _ = writer.Write([]byte(`{}`))
		case "/api/lineas":
			writer.WriteHeader(http.StatusInternalServerError)
			_, _ = writer.Write([]byte(`{"message":"database unavailable"}`))
		default:
			writer.WriteHeader(http.StatusBadGateway)
			_, _ = writer.Write([]byte(`<html>bad gateway</html>`))
		}
	}))
	t.Cleanup(server.Close)

	client, err := backend.New(backend.Options{BaseURL: server.URL + "/api", Logger: quiet})
	require.NoError(t, err)
	ctx := context.Background()

	_, err = client.List(ctx, backend.Lines)
	var apiError *apperr.APIError
	require.ErrorAs(t, err, &apiError)
	assert.Equal(t, http.StatusInternalServerError, apiError.Status)
	assert.Equal(t, "database unavailable", apiError.Display())
	assert.Equal(t, "/lineas", apiError.Path)

	_, err = client.List(ctx, backend.Sales)
	require.ErrorAs(t, err, &apiError)
	assert.Equal(t, "Something went wrong!", apiError.Display())

	_, err = client.Exchange(ctx, "refresh")
	assert.ErrorIs(t, err, backend.ErrEmptyAccessToken)
}

func TestOptions(t *testing.T) {
	_, err := backend.New(backend.Options{BaseURL: "not a url"})
	assert.Error(t, err)

	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		hits.Add(1)
		_, _ = writer.Write([]byte(`[]`))
	}))
	t.Cleanup(server.Close)

	client, err := backend.New(backend.Options{BaseURL: server.URL, RateLimitRPS: 5, Logger: quiet})
	require.NoError(t, err)
	assert.Equal(t, server.URL, client.BaseURL())

	_, err = client.List(context.Background(), backend.Sales)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = client.List(ctx, backend.Sales)
	assert.ErrorIs(t, err, context.Canceled)
	assert.EqualValues(t, 1, hits.Load())
}
