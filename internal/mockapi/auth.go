// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package mockapi

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/taibuivan/storeconsole/internal/platform/apperr"
	"github.com/taibuivan/storeconsole/internal/platform/constants"
	"github.com/taibuivan/storeconsole/internal/platform/ctxutil"
	requestutil "github.com/taibuivan/storeconsole/internal/platform/request"
	"github.com/taibuivan/storeconsole/internal/platform/respond"
	"github.com/taibuivan/storeconsole/internal/platform/validate"
	"github.com/taibuivan/storeconsole/pkg/uuidv7"
)

type tokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

// issue mints an access token and a fresh refresh token for holder.
func (api *API) issue(holder account) (tokenPair, error) {
	access, err := api.tokens.GenerateAccessToken(strconv.Itoa(holder.ID), holder.Email, string(holder.Role), api.accessTTL)
	if err != nil {
		return tokenPair{}, err
	}

	refresh := uuidv7.New()
	api.grantsMu.Lock()
	api.grants[refresh] = grant{accountID: holder.ID, expiresAt: api.now().Add(api.refreshTTL)}
	api.grantsMu.Unlock()

	api.issued.WithLabelValues("access").Inc()
	api.issued.WithLabelValues("refresh").Inc()
	return tokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// revokeGrants drops every refresh token of an account.
func (api *API) revokeGrants(accountID int) {
	api.grantsMu.Lock()
	defer api.grantsMu.Unlock()

	for token, held := range api.grants {
		if held.accountID == accountID {
			delete(api.grants, token)
		}
	}
}

// # Handlers

// login handles POST /auth/login.
func (api *API) login(writer http.ResponseWriter, request *http.Request) {
	var input struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	validator := &validate.Validator{}
	validator.Required("email", input.Email).Email("email", input.Email).Required("password", input.Password)
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	holder, found := api.accounts.findByEmail(input.Email)
	if !found || !api.hasher.Matches(input.Password, holder.PasswordHash) {
		api.audit.record(0, EventLoginFailed, "usuario", input.Email)
		respond.Error(writer, request, apperr.Unauthorized("Invalid credentials"))
		return
	}

	pair, err := api.issue(holder)
	if err != nil {
		respond.Error(writer, request, apperr.Internal(err))
		return
	}

	api.audit.record(holder.ID, EventLogin, "usuario", holder.Email)
	respond.Created(writer, pair)
}

// refresh handles POST /auth/tokens. The bearer is the refresh token, which is
// rotated on success.
func (api *API) refresh(writer http.ResponseWriter, request *http.Request) {
	api.refreshCalls.Add(1)

	token := requestutil.Bearer(request)

	api.grantsMu.Lock()
	held, ok := api.grants[token]
	if ok {
		delete(api.grants, token)
	}
	api.grantsMu.Unlock()

	if !ok || !api.now().Before(held.expiresAt) {
		api.refreshes.WithLabelValues("rejected").Inc()
		respond.Error(writer, request, apperr.Unauthorized("Invalid refresh token"))
		return
	}

	holder, found := api.accounts.find(held.accountID)
	if !found {
		api.refreshes.WithLabelValues("rejected").Inc()
		respond.Error(writer, request, apperr.Unauthorized("Invalid refresh token"))
		return
	}

	pair, err := api.issue(holder)
	if err != nil {
		respond.Error(writer, request, apperr.Internal(err))
		return
	}

	api.refreshes.WithLabelValues("rotated").Inc()
	api.audit.record(holder.ID, EventTokenRefresh, "usuario", holder.Email)
	respond.Created(writer, pair)
}

// me handles GET /auth/me.
func (api *API) me(writer http.ResponseWriter, request *http.Request) {
	holder, err := api.caller(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, holder.view())
}

// forgotPassword handles POST /auth/forgot-password. It answers 201 whether or
// not the email is known.
func (api *API) forgotPassword(writer http.ResponseWriter, request *http.Request) {
	var input struct {
		Email string `json:"email"`
	}
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}
	if err := (&validate.Validator{}).Required("email", input.Email).Email("email", input.Email).Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if holder, found := api.accounts.findByEmail(input.Email); found {
		token := uuidv7.New()

		api.grantsMu.Lock()
		api.resets[token] = grant{accountID: holder.ID, expiresAt: api.now().Add(constants.ResetTokenTTL)}
		api.grantsMu.Unlock()

		// There is no mailer; the link goes to the log.
		ctxutil.GetLogger(request.Context()).Info("password_reset_link_issued",
			slog.String("email", holder.Email),
			slog.String("link", "/reset-password?token="+token),
		)
		api.audit.record(holder.ID, EventPasswordResetRequest, "usuario", holder.Email)
	}

	respond.Message(writer, http.StatusCreated, "If the email is registered, a reset link has been sent")
}

// resetPassword handles POST /auth/reset-password.
func (api *API) resetPassword(writer http.ResponseWriter, request *http.Request) {
	var input struct {
		Token    string `json:"token"`
		Password string `json:"password"`
	}
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	api.grantsMu.Lock()
	held, ok := api.resets[input.Token]
	api.grantsMu.Unlock()

	if !ok || !api.now().Before(held.expiresAt) {
		respond.Error(writer, request, validate.RequiredError("token", "Reset token is invalid or expired"))
		return
	}

	holder, found := api.accounts.find(held.accountID)
	if !found {
		respond.Error(writer, request, validate.RequiredError("token", "Reset token is invalid or expired"))
		return
	}

	validator := &validate.Validator{}
	validator.Password("password", input.Password, validate.PasswordContext{
		Email: holder.Email, FirstName: holder.FirstName, LastName: holder.LastName,
	})
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	hash, err := api.hashPassword(input.Password)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	if _, err := api.accounts.update(holder.ID, func(target *account) error {
		target.PasswordHash = hash
		return nil
	}); err != nil {
		respond.Error(writer, request, err)
		return
	}

	api.grantsMu.Lock()
	delete(api.resets, input.Token)
	api.grantsMu.Unlock()
	api.revokeGrants(holder.ID)

	api.audit.record(holder.ID, EventPasswordReset, "usuario", holder.Email)
	respond.Message(writer, http.StatusCreated, "Password has been reset")
}

// ResetTokenFor returns an unexpired reset token issued for email, standing in
// for the mailbox in tests.
func (api *API) ResetTokenFor(email string) (string, bool) {
	holder, found := api.accounts.findByEmail(email)
	if !found {
		return "", false
	}

	api.grantsMu.Lock()
	defer api.grantsMu.Unlock()

	for token, held := range api.resets {
		if held.accountID == holder.ID && api.now().Before(held.expiresAt) {
			return token, true
		}
	}
	return "", false
}

// caller resolves the account of the authenticated request.
func (api *API) caller(request *http.Request) (account, error) {
	claims, err := requestutil.RequiredClaims(request)
	if err != nil {
		return account{}, err
	}

	id, err := strconv.Atoi(claims.Subject)
	if err != nil {
		return account{}, apperr.Unauthorized(fmt.Sprintf("Unknown subject %q", claims.Subject))
	}
	holder, found := api.accounts.find(id)
	if !found {
		return account{}, apperr.Unauthorized("Account no longer exists")
	}
	return holder, nil
}
