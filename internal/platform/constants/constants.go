// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package constants provides centralized, immutable values for the entire console.

It defines storage keys, token lifetimes, backend endpoint paths and HTTP header
names shared between the session core, the backend client and the mock server.

Categories:

  - Session Storage: Entry names and max-ages of the durable session entries.
  - Token Lifecycle: Proactive refresh horizon and default principal lifetime.
  - Endpoints: REST paths of the retail backend.
  - Server Timing: Timeouts for the mock backend HTTP server.

Using this package ensures Magic Strings and Magic Numbers are eliminated
from the session logic.
*/
package constants

import "time"

// # Metadata

const (
	AppName    = "storeconsole"
	AppVersion = "0.1.0-dev"
)

// # Session Storage

const (
	// AccessTokenKey is the storage entry holding the short-lived access token.
	AccessTokenKey = "access_token"

	// RefreshTokenKey is the storage entry holding the long-lived refresh token.
	RefreshTokenKey = "refresh_token"

	// UserSnapshotKey is the storage entry holding the serialized principal.
	UserSnapshotKey = "auth_user"

	// AccessTokenMaxAge mirrors the backend access token lifetime.
	AccessTokenMaxAge = 15 * time.Minute

	// RefreshTokenMaxAge mirrors the backend refresh token lifetime.
	RefreshTokenMaxAge = 7 * 24 * time.Hour

	// UserSnapshotMaxAge keeps the profile snapshot as long as the refresh token.
	UserSnapshotMaxAge = 7 * 24 * time.Hour

	// DefaultRedisPrefix namespaces session entries in a shared Redis.
	DefaultRedisPrefix = "console:session:"
)

// # Token Lifecycle

const (
	// RefreshHorizon is how close to expiry an access token is refreshed eagerly.
	RefreshHorizon = 5 * time.Minute

	// DefaultPrincipalTTL is the expiry assigned to a profile without its own.
	DefaultPrincipalTTL = time.Hour
)

// # Endpoints

const (
	PathLogin          = "/auth/login"
	PathRefreshTokens  = "/auth/tokens"
	PathMe             = "/auth/me"
	PathForgotPassword = "/auth/forgot-password"
	PathResetPassword  = "/auth/reset-password"
	PathRegisterUser   = "/users/register"
	PathRegisterOwner  = "/users/register-owner"

	// PathSignIn is where a hard redirect lands.
	PathSignIn = "/sign-in"

	// PathForbidden is where a failed role check lands.
	PathForbidden = "/403"
)

// # HTTP

const (
	HeaderAuthorization = "Authorization"
	HeaderXRequestID    = "X-Request-ID"
	HeaderContentType   = "Content-Type"

	ContentTypeJSON = "application/json"
	BearerPrefix    = "Bearer "
)

// # Server Timing

const (
	// DefaultReadTimeout is the maximum duration for reading the entire request.
	DefaultReadTimeout = 5 * time.Second

	// DefaultWriteTimeout is the maximum duration before timing out writes of the response.
	DefaultWriteTimeout = 10 * time.Second

	// DefaultIdleTimeout is the maximum amount of time to wait for the next request.
	DefaultIdleTimeout = 120 * time.Second

	// DefaultReadHeaderTimeout is the amount of time allowed to read request headers.
	DefaultReadHeaderTimeout = 2 * time.Second

	// GlobalRequestTimeout is the deadline for the entire request lifecycle.
	GlobalRequestTimeout = 30 * time.Second

	// ShutdownTimeout is how long we wait for in-flight requests to complete during shutdown.
	ShutdownTimeout = 30 * time.Second
)

// # Rate Limiting

const (
	// DefaultRateLimitRPS is the requests per second allowed per IP by the mock backend.
	DefaultRateLimitRPS = 100.0

	// DefaultRateLimitBurst is the maximum burst allowed for the rate limiter.
	DefaultRateLimitBurst = 150

	// RateLimitCleanupInterval is how often old IP entries are removed from memory.
	RateLimitCleanupInterval = 1 * time.Minute

	// RateLimitClientTTL is how long a client must be idle before its entry is deleted.
	RateLimitClientTTL = 3 * time.Minute
)

// # Mock Backend

const (
	// MockIssuer is the 'iss' claim of tokens minted by the mock backend.
	MockIssuer = "storeconsole.mockapi"

	// ResetTokenTTL bounds how long a password reset token stays usable.
	ResetTokenTTL = 30 * time.Minute
)
