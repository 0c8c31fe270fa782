// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package session

import (
	"strings"
	"time"

	"github.com/taibuivan/storeconsole/internal/platform/sec"
)

// Role aliases the backend role so callers of this package need not import sec.
type Role = sec.UserRole

// Known roles.
const (
	RoleOwner    = sec.RoleOwner
	RoleEmployee = sec.RoleEmployee
)

// Principal is the identity the console acts as.
//
// It is derived from the claims of the stored access token, optionally enriched
// with profile fields from /auth/me.
type Principal struct {
	ID        string `json:"id,omitempty"`
	Email     string `json:"email"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	Role      Role   `json:"role"`

	// ExpiresAt is the token expiry in unix seconds.
	ExpiresAt int64 `json:"exp"`
}

// ValidAt reports whether the principal has not expired at now (strict, seconds).
func (p Principal) ValidAt(now time.Time) bool {
	return p.ExpiresAt > now.Unix()
}

// DisplayName returns "First Last", falling back to the email.
func (p Principal) DisplayName() string {
	name := strings.TrimSpace(p.FirstName + " " + p.LastName)
	if name == "" {
		return p.Email
	}
	return name
}

// User is the profile payload of /auth/me.
type User struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Address   string `json:"address,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Role      Role   `json:"role"`

	// ExpiresAt is optional; zero means the profile carries no expiry.
	ExpiresAt int64 `json:"exp,omitempty"`
}

// TokenPair is what login and refresh return.
//
// RefreshToken is empty when the backend did not rotate it.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

// principalFromClaims maps decoded token claims to a principal.
func principalFromClaims(claims *sec.AuthClaims) Principal {
	return Principal{
		Email:     claims.Email,
		Role:      Role(claims.Role),
		ExpiresAt: claims.ExpiresAtUnix(),
	}
}
