// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package console

import (
	"context"
	"fmt"

	"github.com/taibuivan/storeconsole/internal/platform/constants"
	"github.com/taibuivan/storeconsole/internal/session"
)

// RedirectError tells the caller to leave the requested section.
type RedirectError struct {
	// To is the landing path: sign-in or forbidden.
	To string

	// Redirect is the path to come back to after signing in. Empty for a
	// forbidden redirect.
	Redirect string
}

func (e *RedirectError) Error() string {
	if e.Redirect != "" {
		return fmt.Sprintf("redirect to %s?redirect=%s", e.To, e.Redirect)
	}
	return "redirect to " + e.To
}

// SignInRequired reports whether the redirect goes to sign-in.
func (e *RedirectError) SignInRequired() bool {
	return e.To == constants.PathSignIn
}

/*
Guard runs the authenticated layout's checks before opening path.

 1. A session without a valid principal goes to sign-in, remembering path.
 2. The access token is refreshed when it is about to expire. A refresh that
    ends the session also goes to sign-in.
 3. A principal without one of the section's roles goes to the forbidden page.

Paths outside the navigation only need a signed-in user.
*/
func Guard(ctx context.Context, s Session, path string) error {
	if !s.IsAuthenticated() {
		return &RedirectError{To: constants.PathSignIn, Redirect: path}
	}

	if err := s.EnsureFresh(ctx); err != nil {
		if session.IsTerminal(err) {
			return &RedirectError{To: constants.PathSignIn, Redirect: path}
		}
		return fmt.Errorf("console: refresh before %s: %w", path, err)
	}

	if section, ok := SectionFor(path); ok && !section.allows(s) {
		return &RedirectError{To: constants.PathForbidden}
	}
	return nil
}
