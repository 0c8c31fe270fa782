// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/taibuivan/storeconsole/internal/platform/constants"
	"github.com/taibuivan/storeconsole/internal/session"
)

// ErrEmptyAccessToken is returned when a token endpoint answers 2xx without an access token.
var ErrEmptyAccessToken = errors.New("backend: response carried no access token")

// AuthResponse is the outcome of [Client.Login].
type AuthResponse struct {
	session.TokenPair

	// User is nil when the profile could not be fetched.
	User *session.User `json:"user,omitempty"`
}

// MessageResponse is the body of the password endpoints.
type MessageResponse struct {
	Message string `json:"message"`

	// Success is only meaningful for ForgotPassword, where the backend answers 201.
	Success bool `json:"-"`
}

// RegisterInput is the payload of an employee registration.
type RegisterInput struct {
	FirstName string       `json:"firstName"`
	LastName  string       `json:"lastName"`
	Email     string       `json:"email"`
	Password  string       `json:"password"`
	Address   string       `json:"address,omitempty"`
	Phone     string       `json:"phone,omitempty"`
	Role      session.Role `json:"role,omitempty"`
}

/*
Login exchanges credentials for a token pair.

The profile is fetched right after with the new access token as an explicit
bearer, since the session does not hold the token yet. A failing profile call
still returns the tokens.
*/
func (c *Client) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	var pair session.TokenPair
	if _, err := c.do(ctx, call{
		method: http.MethodPost,
		path:   constants.PathLogin,
		body:   map[string]string{"email": email, "password": password},
	}, &pair); err != nil {
		return nil, err
	}
	if pair.AccessToken == "" {
		return nil, ErrEmptyAccessToken
	}

	response := &AuthResponse{TokenPair: pair}

	var user session.User
	if _, err := c.do(ctx, call{
		method: http.MethodGet,
		path:   constants.PathMe,
		bearer: pair.AccessToken,
	}, &user); err != nil {
		c.logger.WarnContext(ctx, "profile fetch after login failed", slog.Any("error", err))
		return response, nil
	}

	response.User = &user
	return response, nil
}

// Me fetches the signed-in user's profile.
func (c *Client) Me(ctx context.Context) (*session.User, error) {
	var user session.User
	if _, err := c.do(ctx, call{method: http.MethodGet, path: constants.PathMe}, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// RefreshTokens trades refreshToken for a new pair. The refresh token is the
// bearer; the body is an empty JSON object.
func (c *Client) RefreshTokens(ctx context.Context, refreshToken string) (*session.TokenPair, error) {
	var pair session.TokenPair
	if _, err := c.do(ctx, call{
		method: http.MethodPost,
		path:   constants.PathRefreshTokens,
		body:   struct{}{},
		bearer: refreshToken,
		plain:  true,
	}, &pair); err != nil {
		return nil, err
	}
	if pair.AccessToken == "" {
		return nil, ErrEmptyAccessToken
	}
	return &pair, nil
}

// Exchange implements [session.TokenExchanger].
func (c *Client) Exchange(ctx context.Context, refreshToken string) (session.TokenPair, error) {
	pair, err := c.RefreshTokens(ctx, refreshToken)
	if err != nil {
		return session.TokenPair{}, err
	}
	return *pair, nil
}

// ForgotPassword asks the backend to mail a reset link. Success reports a 201.
func (c *Client) ForgotPassword(ctx context.Context, email string) (*MessageResponse, error) {
	var response MessageResponse
	status, err := c.do(ctx, call{
		method: http.MethodPost,
		path:   constants.PathForgotPassword,
		body:   map[string]string{"email": email},
	}, &response)
	if err != nil {
		return nil, err
	}

	response.Success = status == http.StatusCreated
	return &response, nil
}

// ResetPassword consumes a reset token.
func (c *Client) ResetPassword(ctx context.Context, token, password string) (*MessageResponse, error) {
	var response MessageResponse
	if _, err := c.do(ctx, call{
		method: http.MethodPost,
		path:   constants.PathResetPassword,
		body:   map[string]string{"token": token, "password": password},
	}, &response); err != nil {
		return nil, err
	}

	response.Success = true
	return &response, nil
}

// RegisterEmployee creates an employee account. It reports whether the backend
// answered with a body.
func (c *Client) RegisterEmployee(ctx context.Context, input RegisterInput) (bool, error) {
	var raw json.RawMessage
	if _, err := c.do(ctx, call{
		method: http.MethodPost,
		path:   constants.PathRegisterUser,
		body:   input,
	}, &raw); err != nil {
		return false, fmt.Errorf("register employee: %w", err)
	}
	return len(raw) > 0 && string(raw) != "null", nil
}
