// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package apperr_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/storeconsole/internal/platform/apperr"
)

/*
TestParseAPIError_Title verifies which body field becomes the display title.
*/
func TestParseAPIError_Title(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		title string
		code  string
	}{
		{"title_field", `{"title":"Usuario no encontrado","code":"NOT_FOUND"}`, "Usuario no encontrado", "NOT_FOUND"},
		{"error_field", `{"error":"Invalid login credentials"}`, "Invalid login credentials", ""},
		{"message_field", `{"message":"Duplicated"}`, "Duplicated", ""},
		{"title_wins", `{"title":"A","error":"B","message":"C"}`, "A", ""},
		{"blank_title_falls_back", `{"title":"  ","error":"B"}`, "B", ""},
		{"empty_object", `{}`, "", ""},
		{"not_json", `<html>bad gateway</html>`, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			apiError := apperr.ParseAPIError(http.MethodGet, "/marcas", http.StatusBadRequest, []byte(tt.body))
			assert.Equal(t, tt.title, apiError.Title)
			assert.Equal(t, tt.code, apiError.Code)
			assert.Equal(t, http.StatusBadRequest, apiError.Status)
		})
	}
}

/*
TestAPIError_Display verifies the messages shown to the console user.
*/
func TestAPIError_Display(t *testing.T) {
	assert.Equal(t, "Content not found.", (&apperr.APIError{Status: http.StatusNoContent, Title: "x"}).Display())
	assert.Equal(t, "Acceso denegado", (&apperr.APIError{Status: http.StatusForbidden, Title: "Acceso denegado"}).Display())
	assert.Equal(t, "Something went wrong!", (&apperr.APIError{Status: http.StatusInternalServerError}).Display())

	assert.Equal(t, "Something went wrong!", apperr.Display(errors.New("standard error")))
	assert.Equal(t, "Something went wrong!", apperr.Display(nil))

	wrapped := fmt.Errorf("list brands: %w", &apperr.APIError{Status: http.StatusNotFound, Title: "Recurso no encontrado"})
	assert.Equal(t, "Recurso no encontrado", apperr.Display(wrapped))
}

/*
TestStatusOf verifies status extraction across both error types.
*/
func TestStatusOf(t *testing.T) {
	assert.Equal(t, http.StatusUnauthorized, apperr.StatusOf(fmt.Errorf("wrap: %w", &apperr.APIError{Status: http.StatusUnauthorized})))
	assert.Equal(t, http.StatusConflict, apperr.StatusOf(apperr.Conflict("dup")))
	assert.Zero(t, apperr.StatusOf(errors.New("plain")))
}

/*
TestAppError_Chain verifies Unwrap and As keep the cause reachable.
*/
func TestAppError_Chain(t *testing.T) {
	cause := errors.New("disk full")
	err := fmt.Errorf("handler: %w", apperr.Internal(cause))

	require.True(t, apperr.IsAppError(err))
	assert.ErrorIs(t, err, cause)

	appError := apperr.As(err)
	require.NotNil(t, appError)
	assert.Equal(t, "INTERNAL_ERROR", appError.Code)
	assert.Nil(t, apperr.As(errors.New("plain")))
}
