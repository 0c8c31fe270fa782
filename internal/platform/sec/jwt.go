// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package sec provides cryptographic primitives and token handling.
//
// # Architecture
//
// The console never holds the backend's signing key, so it only ever decodes
// access tokens to read their claims ([Decode]). Signature verification lives
// in [TokenService], which the mock backend uses to mint and check tokens.
package sec

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrMalformedToken is returned when a token is not structurally a JWT.
var ErrMalformedToken = errors.New("sec: malformed token")

// AuthClaims represents the payload embedded inside a backend access token.
//
// The backend only embeds the email and role; the rest of the profile is
// fetched from /auth/me.
type AuthClaims struct {
	jwt.RegisteredClaims

	Email string `json:"email"`
	Role  string `json:"role"`
}

// ExpiresAtUnix returns the 'exp' claim in unix seconds, or zero when absent.
func (c *AuthClaims) ExpiresAtUnix() int64 {
	if c.ExpiresAt == nil {
		return 0
	}
	return c.ExpiresAt.Unix()
}

// # Decoding

// Decode extracts the claims of a JWT without verifying its signature.
//
// # Why unverified?
//
// The token was issued to us by the backend over TLS and the backend verifies
// it on every call. The console only needs the claims to drive its own UI
// decisions, never to grant access.
func Decode(token string) (*AuthClaims, error) {
	if !strings.Contains(token, ".") {
		return nil, ErrMalformedToken
	}

	claims := &AuthClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedToken, err)
	}

	return claims, nil
}

// # Signing

// TokenService handles generation and verification of JWT tokens using HS256.
type TokenService struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// NewTokenService creates a new TokenService.
func NewTokenService(secret, issuer string) (*TokenService, error) {
	if secret == "" {
		return nil, errors.New("sec: empty signing secret")
	}
	return &TokenService{secret: []byte(secret), issuer: issuer, now: time.Now}, nil
}

// WithClock returns a copy of the service that issues and validates tokens
// against now instead of the wall clock.
func (service *TokenService) WithClock(now func() time.Time) *TokenService {
	clone := *service
	clone.now = now
	return &clone
}

// GenerateAccessToken creates a new JWT access token for a user.
func (service *TokenService) GenerateAccessToken(userID, email, role string, timeToLive time.Duration) (string, error) {
	return service.GenerateAccessTokenAt(userID, email, role, service.now(), timeToLive)
}

// GenerateAccessTokenAt creates a JWT access token issued at the given instant.
func (service *TokenService) GenerateAccessTokenAt(userID, email, role string, issuedAt time.Time, timeToLive time.Duration) (string, error) {
	claims := AuthClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    service.issuer,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(timeToLive)),
		},
		Email: email,
		Role:  role,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(service.secret)
	if err != nil {
		return "", fmt.Errorf("sec: failed to sign token: %w", err)
	}

	return signedToken, nil
}

// VerifyToken checks the signature and validity of a JWT string.
func (service *TokenService) VerifyToken(tokenString string) (*AuthClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &AuthClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("sec: unexpected signing method: %v", token.Header["alg"])
		}
		return service.secret, nil
	}, jwt.WithIssuer(service.issuer), jwt.WithTimeFunc(service.now))

	if err != nil {
		return nil, fmt.Errorf("sec: invalid token: %w", err)
	}

	claims, ok := token.Claims.(*AuthClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("sec: invalid token claims")
	}

	return claims, nil
}
