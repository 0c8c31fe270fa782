// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package uuidv7 wraps google/uuid to generate time-ordered UUIDv7 values.
//
// The mock backend uses them for request IDs and opaque refresh and reset
// tokens, so identifiers issued later sort later.
package uuidv7

import "github.com/google/uuid"

// New generates a new UUIDv7 string.
//
// It panics if the OS random source is unavailable.
func New() string {
	id, err := uuid.NewV7()
	if err != nil {
		panic("uuidv7: failed to generate UUID: " + err.Error())
	}

	return id.String()
}
