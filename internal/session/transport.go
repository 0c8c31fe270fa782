// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package session

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/taibuivan/storeconsole/internal/platform/constants"
	"github.com/taibuivan/storeconsole/internal/platform/ctxutil"
	"github.com/taibuivan/storeconsole/pkg/uuidv7"
)

// Transport is the session's [http.RoundTripper].
//
// Before sending, it attaches the access token read from the store. On a 401
// it runs the refresh state machine and replays the request once with the new
// token. Requests that carry their own Authorization header are sent as is and
// never refreshed.
type Transport struct {
	manager *Manager
	base    http.RoundTripper
}

// NewTransport wraps base. A nil base means [http.DefaultTransport].
func NewTransport(manager *Manager, base http.RoundTripper) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &Transport{manager: manager, base: base}
}

// RoundTrip implements [http.RoundTripper].
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	out := req.Clone(ctx)
	if err := bufferBody(out); err != nil {
		return nil, err
	}

	if out.Header.Get(constants.HeaderXRequestID) == "" {
		requestID := ctxutil.GetRequestID(ctx)
		if requestID == "" {
			requestID = uuidv7.New()
		}
		out.Header.Set(constants.HeaderXRequestID, requestID)
	}

	explicit := out.Header.Get(constants.HeaderAuthorization) != ""
	var sent string
	if !explicit {
		token, err := t.manager.AccessToken(ctx)
		if err != nil {
			return nil, err
		}
		setBearer(out, token)
		sent = token
	}

	resp, err := t.base.RoundTrip(out)
	if err != nil || resp.StatusCode != http.StatusUnauthorized {
		return resp, err
	}
	if explicit || ctxutil.IsRetried(ctx) || isLogin(out) {
		return resp, nil
	}

	// The 401 body is discarded; the caller only ever sees the replayed response.
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()

	if err := t.manager.refreshAfter(ctx, sent, TriggerUnauthorized); err != nil {
		return nil, err
	}

	return t.replay(out)
}

// replay resends out once with the current access token and the retry marker.
func (t *Transport) replay(out *http.Request) (*http.Response, error) {
	ctx := ctxutil.WithRetried(out.Context())

	retry := out.Clone(ctx)
	if out.GetBody != nil {
		body, err := out.GetBody()
		if err != nil {
			return nil, fmt.Errorf("session: rewind request body: %w", err)
		}
		retry.Body = body
	}

	token, err := t.manager.AccessToken(ctx)
	if err != nil {
		return nil, err
	}
	setBearer(retry, token)

	return t.base.RoundTrip(retry)
}

func setBearer(req *http.Request, token string) {
	if token == "" {
		req.Header.Del(constants.HeaderAuthorization)
		return
	}
	req.Header.Set(constants.HeaderAuthorization, constants.BearerPrefix+token)
}

// isLogin reports whether req is a credentials exchange, whose 401 means
// "wrong password" rather than "expired token".
func isLogin(req *http.Request) bool {
	return req.Method == http.MethodPost && strings.HasSuffix(req.URL.Path, constants.PathLogin)
}

// bufferBody makes req's body replayable.
func bufferBody(req *http.Request) error {
	if req.Body == nil || req.Body == http.NoBody || req.GetBody != nil {
		return nil
	}

	raw, err := io.ReadAll(req.Body)
	_ = req.Body.Close()
	if err != nil {
		return fmt.Errorf("session: buffer request body: %w", err)
	}

	req.Body = io.NopCloser(bytes.NewReader(raw))
	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(raw)), nil
	}
	return nil
}
