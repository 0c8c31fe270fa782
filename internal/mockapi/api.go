// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package mockapi is an in-memory implementation of the retail backend's REST
contract, for local development and end-to-end tests of the console.

Architecture:

  - Accounts: bcrypt-hashed users seeded with one owner and one employee.
  - Tokens: HS256 access tokens carrying email, role and exp; opaque refresh
    tokens rotated on every refresh.
  - Catalogue: JSON collections held in memory, guarded by bearer auth and the
    owner-only sections of the console.
  - Audit: every state change is recorded and can be filtered like the real log.

Everything lives in process memory and vanishes on restart.
*/
package mockapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/taibuivan/storeconsole/internal/platform/apperr"
	"github.com/taibuivan/storeconsole/internal/platform/config"
	"github.com/taibuivan/storeconsole/internal/platform/constants"
	"github.com/taibuivan/storeconsole/internal/platform/middleware"
	"github.com/taibuivan/storeconsole/internal/platform/sec"
)

// Seed accounts.
const (
	OwnerEmail    = "owner@store.local"
	EmployeeEmail = "staff@store.local"
)

// Options configures an [API].
type Options struct {
	Secret     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration

	// Seed passwords. An empty password skips that account.
	OwnerPassword    string
	EmployeePassword string

	// Now drives token issuance and expiry. Defaults to [time.Now].
	Now func() time.Time

	// HashCost is the bcrypt work factor. Zero selects the library default.
	HashCost int

	Logger *slog.Logger
}

// OptionsFromConfig maps the mock server configuration to [Options].
func OptionsFromConfig(cfg *config.MockConfig, logger *slog.Logger) Options {
	return Options{
		Secret:           cfg.JWTSecret,
		AccessTTL:        cfg.AccessTTL,
		RefreshTTL:       cfg.RefreshTTL,
		HashCost:         cfg.HashCost,
		OwnerPassword:    cfg.OwnerPassword,
		EmployeePassword: cfg.EmployeePassword,
		Logger:           logger,
	}
}

// API holds the backend state.
type API struct {
	tokens     *sec.TokenService
	hasher     sec.PasswordHasher
	now        func() time.Time
	logger     *slog.Logger
	accessTTL  time.Duration
	refreshTTL time.Duration

	accounts *accountStore

	grantsMu sync.Mutex
	grants   map[string]grant
	resets   map[string]grant

	catalog          map[string]*collection
	brandLines       *linkSet
	supplierProducts *collection
	audit            *auditLog

	refreshCalls atomic.Int64
	registry     *prometheus.Registry
	issued       *prometheus.CounterVec
	refreshes    *prometheus.CounterVec
}

// grant is a refresh or reset token bound to an account.
type grant struct {
	accountID int
	expiresAt time.Time
}

// New creates the backend and seeds its accounts.
func New(opts Options) (*API, error) {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.AccessTTL <= 0 {
		opts.AccessTTL = constants.AccessTokenMaxAge
	}
	if opts.RefreshTTL <= 0 {
		opts.RefreshTTL = constants.RefreshTokenMaxAge
	}

	tokens, err := sec.NewTokenService(opts.Secret, constants.MockIssuer)
	if err != nil {
		return nil, err
	}

	api := &API{
		tokens:     tokens.WithClock(opts.Now),
		hasher:     sec.NewPasswordHasher(opts.HashCost),
		now:        opts.Now,
		logger:     opts.Logger,
		accessTTL:  opts.AccessTTL,
		refreshTTL: opts.RefreshTTL,
		accounts:   newAccountStore(),
		grants:     make(map[string]grant),
		resets:     make(map[string]grant),
		catalog:    make(map[string]*collection),
		brandLines: newLinkSet(),
		audit:      newAuditLog(opts.Now),
		registry:   prometheus.NewRegistry(),
	}

	for _, name := range catalogResources {
		api.catalog[name] = newCollection(name)
	}
	api.supplierProducts = newCollection("producto-proveedor")

	api.issued = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mockapi",
		Name:      "tokens_issued_total",
		Help:      "Tokens issued by kind.",
	}, []string{"kind"})
	api.refreshes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mockapi",
		Name:      "refresh_requests_total",
		Help:      "Refresh requests by result.",
	}, []string{"result"})
	api.registry.MustRegister(api.issued, api.refreshes)

	// Export every series at zero from the first scrape.
	for _, kind := range []string{"access", "refresh"} {
		api.issued.WithLabelValues(kind)
	}
	for _, result := range []string{"rotated", "rejected"} {
		api.refreshes.WithLabelValues(result)
	}

	if err := api.seed(opts.OwnerPassword, opts.EmployeePassword); err != nil {
		return nil, err
	}
	return api, nil
}

func (api *API) seed(ownerPassword, employeePassword string) error {
	seeds := []struct {
		email, first, last, password string
		role                         sec.UserRole
	}{
		{OwnerEmail, "Olivia", "Owner", ownerPassword, sec.RoleOwner},
		{EmployeeEmail, "Sam", "Staff", employeePassword, sec.RoleEmployee},
	}

	for _, seed := range seeds {
		if seed.password == "" {
			continue
		}
		hash, err := api.hasher.Hash(seed.password)
		if err != nil {
			return err
		}
		if _, err := api.accounts.create(account{
			Email: seed.email, FirstName: seed.first, LastName: seed.last, Role: seed.role, PasswordHash: hash,
		}); err != nil {
			return err
		}
	}
	return nil
}

// hashPassword reports an over-long password as a validation failure.
func (api *API) hashPassword(password string) (string, error) {
	hash, err := api.hasher.Hash(password)
	if errors.Is(err, sec.ErrPasswordTooLong) {
		return "", apperr.ValidationError("Validation failed", apperr.FieldError{
			Field:   "password",
			Message: fmt.Sprintf("Must be at most %d bytes", sec.MaxPasswordBytes),
		})
	}
	if err != nil {
		return "", apperr.Internal(err)
	}
	return hash, nil
}

// RefreshCalls returns how many refresh requests reached the backend.
func (api *API) RefreshCalls() int64 {
	return api.refreshCalls.Load()
}

// Registry exposes the backend's collectors.
func (api *API) Registry() *prometheus.Registry {
	return api.registry
}

// # Routing

// Handler builds the router with the full middleware chain. ctx bounds the
// rate limiter's cleanup goroutine.
func (api *API) Handler(ctx context.Context) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID())
	r.Use(middleware.StructuredLogger(api.logger))
	r.Use(chimw.Timeout(constants.GlobalRequestTimeout))
	r.Use(middleware.NewRateLimiter(ctx, constants.DefaultRateLimitRPS, constants.DefaultRateLimitBurst).Handler)
	r.Use(middleware.PanicRecovery)
	r.Use(chimw.CleanPath)

	liveness, readiness := NewHealthHandlers(HealthDependencies{
		CheckAccounts: api.checkAccounts,
	}, api.logger)
	r.Get("/health", liveness)
	r.Get("/ready", readiness)
	r.Handle("/metrics", promhttp.HandlerFor(api.registry, promhttp.HandlerOpts{}))

	r.Route("/api", func(public chi.Router) {
		// Credential endpoints read their own bearer (or none) and are not
		// behind access-token verification.
		public.Post(constants.PathLogin, api.login)
		public.Post(constants.PathRefreshTokens, api.refresh)
		public.Post(constants.PathForgotPassword, api.forgotPassword)
		public.Post(constants.PathResetPassword, api.resetPassword)

		public.Group(func(protected chi.Router) {
			protected.Use(middleware.Authenticate(api.tokens))
			protected.Use(middleware.RequireAuth)

			protected.Get(constants.PathMe, api.me)

			// Purchases and sales are the employee's daily work.
			for _, name := range sharedResources {
				protected.Mount("/"+name, api.collectionRoutes(api.catalog[name]))
			}

			protected.Group(func(owner chi.Router) {
				owner.Use(middleware.RequireRole(sec.RoleOwner))

				owner.Post(constants.PathRegisterUser, api.registerEmployee)
				owner.Post(constants.PathRegisterOwner, api.registerUser)
				owner.Get("/users", api.listUsers)
				owner.Get("/users/{id}", api.getUser)
				owner.Post("/users/{id}", api.updateUser)
				owner.Delete("/users/{id}", api.deleteUser)

				for _, name := range ownerResources {
					owner.Mount("/"+name, api.collectionRoutes(api.catalog[name]))
				}

				owner.Get("/marca/{id}/linea", api.listBrandLines)
				owner.Post("/marca/{id}/linea/{lineId}", api.assignBrandLine)
				owner.Delete("/marca/{id}/linea/{lineId}", api.unassignBrandLine)

				owner.Get("/producto-proveedor/proveedor/{id}", api.listSupplierProducts)
				owner.Post("/producto-proveedor", api.assignSupplierProduct)
				owner.Delete("/producto-proveedor/{id}", api.unassignSupplierProduct)

				owner.Get("/auditoria", api.listAudit)
				owner.Get("/auditoria/enum", api.auditEventTypes)
			})
		})
	})

	return otelhttp.NewHandler(r, constants.AppName+"-mockapi")
}

func (api *API) checkAccounts() error {
	if api.accounts.count() == 0 {
		return errors.New("no accounts seeded")
	}
	return nil
}
