// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package validate

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"

	"github.com/taibuivan/storeconsole/internal/platform/apperr"
)

// # Password Strength

// MinPasswordLength mirrors the backend's password strength rule.
const MinPasswordLength = 8

var (
	upperRegex   = regexp.MustCompile(`[A-Z]`)
	lowerRegex   = regexp.MustCompile(`[a-z]`)
	digitRegex   = regexp.MustCompile(`\d`)
	specialRegex = regexp.MustCompile("[!@#$%^&*(),.?\":{}|<>_\\-+=/\\\\\\[\\]~`]")

	defaultWeakPatterns = []string{"password", "123456", "qwerty", "abc123", "letmein", "welcome", "admin"}
)

// PasswordContext carries personal data a password must not contain.
type PasswordContext struct {
	Email     string
	FirstName string
	LastName  string
}

// PasswordIssues returns every strength rule the password breaks, in rule order.
//
// Field identifiers are "length", "uppercase", "lowercase", "number", "special"
// and "weak". Only the first matching weak pattern is reported.
func PasswordIssues(password string, personal PasswordContext) []apperr.FieldError {
	var issues []apperr.FieldError
	add := func(field, message string) {
		issues = append(issues, apperr.FieldError{Field: field, Message: message})
	}

	if utf8.RuneCountInString(password) < MinPasswordLength {
		add("length", fmt.Sprintf("Password must be at least %d characters long", MinPasswordLength))
	}
	if !upperRegex.MatchString(password) {
		add("uppercase", "Password must contain at least one uppercase letter")
	}
	if !lowerRegex.MatchString(password) {
		add("lowercase", "Password must contain at least one lowercase letter")
	}
	if !digitRegex.MatchString(password) {
		add("number", "Password must contain at least one number")
	}
	if !specialRegex.MatchString(password) {
		add("special", "Password must contain at least one special character")
	}

	// Personal data is folded so "ANA" and "ana" collide.
	fold := cases.Fold()
	patterns := append([]string{}, defaultWeakPatterns...)
	for _, personalValue := range []string{personal.Email, personal.FirstName, personal.LastName} {
		if strings.TrimSpace(personalValue) != "" {
			patterns = append(patterns, fold.String(personalValue))
		}
	}

	folded := fold.String(password)
	for _, pattern := range patterns {
		if strings.Contains(folded, pattern) {
			add("weak", fmt.Sprintf("Password must not contain common patterns or personal data (such as %q)", pattern))
			break
		}
	}

	return issues
}

// Password fails once per broken strength rule, all reported under field.
func (v *Validator) Password(field, password string, personal PasswordContext) *Validator {
	for _, issue := range PasswordIssues(password, personal) {
		v.add(field, issue.Message)
	}
	return v
}

// FormatIssues renders issues as the single message shown under a form field.
func FormatIssues(issues []apperr.FieldError) string {
	switch len(issues) {
	case 0:
		return ""
	case 1:
		return issues[0].Message
	}

	lines := make([]string, len(issues))
	for i, issue := range issues {
		lines[i] = fmt.Sprintf("%d. %s", i+1, issue.Message)
	}
	return strings.Join(lines, "\n")
}
