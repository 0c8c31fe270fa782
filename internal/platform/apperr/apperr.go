// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package apperr defines the centralized error handling framework for the console.

It covers both directions of the REST contract:

  - AppError: produced by the mock backend and rendered as a JSON error body.
  - APIError: produced by the backend client when the backend answers non-2xx.

Every error that leaves the mock backend's handlers should be wrapped as an
[AppError]; every failed backend call surfaces to the console as an [APIError].
*/
package apperr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// AppError is the canonical error type of the mock backend.
//
// It carries an HTTP status code, a machine-readable code, a client-safe
// message, and an optional slice of field-level validation errors.
//
// # Security
//
// The Cause field is for server-side logging only and is never sent to clients
// to avoid leaking internal implementation details (e.g., SQL queries).
type AppError struct {
	// Code is a machine-readable error identifier (e.g. "NOT_FOUND", "CONFLICT").
	Code string `json:"code"`
	// Message is a human-readable description safe to return to the client.
	Message string `json:"title"`
	// HTTPStatus is the HTTP response status code.
	HTTPStatus int `json:"-"`
	// Cause is the underlying error, used for server-side logging only.
	Cause error `json:"-"`
	// Details holds per-field validation errors for VALIDATION_ERROR responses.
	Details []FieldError `json:"details,omitempty"`
}

// FieldError represents a single field-level validation failure.
type FieldError struct {
	// Field is the JSON field name that failed validation.
	Field string `json:"field"`
	// Message is the human-readable description of the failure.
	Message string `json:"message"`
}

// Error implements the error interface. It returns the client-safe message.
func (e *AppError) Error() string { return e.Message }

// Unwrap allows [errors.Is] and [errors.As] to traverse the cause chain.
func (e *AppError) Unwrap() error { return e.Cause }

// # Client Errors (4xx)

// NotFound creates a 404 [AppError] for a named resource.
//
// Example:
//
//	apperr.NotFound("Brand") // Returns "Brand not found"
func NotFound(resource string) *AppError {
	return &AppError{
		Code:       "NOT_FOUND",
		Message:    resource + " not found",
		HTTPStatus: http.StatusNotFound,
	}
}

// Unauthorized creates a 401 [AppError].
func Unauthorized(msg string) *AppError {
	return &AppError{
		Code:       "UNAUTHORIZED",
		Message:    msg,
		HTTPStatus: http.StatusUnauthorized,
	}
}

// Forbidden creates a 403 [AppError].
func Forbidden(msg string) *AppError {
	return &AppError{
		Code:       "FORBIDDEN",
		Message:    msg,
		HTTPStatus: http.StatusForbidden,
	}
}

// Conflict creates a 409 [AppError] for duplicate or unique-constraint violations.
func Conflict(msg string) *AppError {
	return &AppError{
		Code:       "CONFLICT",
		Message:    msg,
		HTTPStatus: http.StatusConflict,
	}
}

// ValidationError creates a 400 [AppError] with optional per-field details.
func ValidationError(msg string, details ...FieldError) *AppError {
	return &AppError{
		Code:       "VALIDATION_ERROR",
		Message:    msg,
		HTTPStatus: http.StatusBadRequest,
		Details:    details,
	}
}

// RateLimited creates a 429 [AppError].
func RateLimited(retryAfterSeconds int) *AppError {
	return &AppError{
		Code:       "RATE_LIMITED",
		Message:    fmt.Sprintf("Too many requests. Try again in %ds.", retryAfterSeconds),
		HTTPStatus: http.StatusTooManyRequests,
	}
}

// # Server Errors (5xx)

// Internal creates a 500 [AppError] wrapping an unexpected server-side error.
// The cause is stored for logging but is never sent to the client.
func Internal(cause error) *AppError {
	return &AppError{
		Code:       "INTERNAL_ERROR",
		Message:    "An unexpected error occurred",
		HTTPStatus: http.StatusInternalServerError,
		Cause:      cause,
	}
}

// # Helpers

// IsAppError reports whether err (or any error in its chain) is an [*AppError].
func IsAppError(err error) bool {
	var ae *AppError
	return errors.As(err, &ae)
}

// As extracts the [*AppError] from err's chain. It returns nil if not found.
func As(err error) *AppError {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae
	}
	return nil
}

// # Client Errors (backend responses)

// APIError describes a non-2xx answer of the REST backend as seen by the console.
//
// The backend reports a human-readable message under "title"; older endpoints
// use "error" or "message". [ParseAPIError] accepts all three.
type APIError struct {
	// Status is the HTTP status code returned by the backend.
	Status int
	// Title is the message to show the user. Empty when the body carried none.
	Title string
	// Code is the machine-readable identifier, when the backend sent one.
	Code string
	// Method and Path identify the failed call for logs.
	Method string
	Path   string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Title != "" {
		return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Status, e.Title)
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Status, http.StatusText(e.Status))
}

// Display returns the text the console prints for this failure.
func (e *APIError) Display() string {
	if e.Status == http.StatusNoContent {
		return "Content not found."
	}
	if e.Title != "" {
		return e.Title
	}
	return "Something went wrong!"
}

// ParseAPIError builds an [APIError] from a backend error body.
// Bodies that are not JSON objects produce an error with only the status set.
func ParseAPIError(method, path string, status int, body []byte) *APIError {
	apiError := &APIError{Status: status, Method: method, Path: path}

	var payload struct {
		Title   string `json:"title"`
		Error   string `json:"error"`
		Message string `json:"message"`
		Code    string `json:"code"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return apiError
	}

	apiError.Code = payload.Code
	for _, candidate := range []string{payload.Title, payload.Error, payload.Message} {
		if strings.TrimSpace(candidate) != "" {
			apiError.Title = candidate
			break
		}
	}

	return apiError
}

// StatusOf returns the HTTP status carried by err, or zero.
func StatusOf(err error) int {
	var apiError *APIError
	if errors.As(err, &apiError) {
		return apiError.Status
	}
	if appError := As(err); appError != nil {
		return appError.HTTPStatus
	}
	return 0
}

// Display returns the user-facing message for any error reaching the console.
func Display(err error) string {
	var apiError *APIError
	if errors.As(err, &apiError) {
		return apiError.Display()
	}
	return "Something went wrong!"
}
