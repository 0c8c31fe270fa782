// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package middleware provides the HTTP chain of the mock backend.

Chain order, outermost first:

  - RequestID: adopt the console's X-Request-ID or issue one.
  - StructuredLogger: one slog line per request, plus a request logger in ctx.
  - RateLimiter: per-client token buckets.
  - PanicRecovery: turn a handler panic into a 500 envelope.

Authentication and role checks live in authz.go and are mounted per route group.
*/
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net"
	"net/http"
	"runtime"
	"strconv"
	"sync"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/taibuivan/storeconsole/internal/platform/apperr"
	"github.com/taibuivan/storeconsole/internal/platform/constants"
	"github.com/taibuivan/storeconsole/internal/platform/ctxutil"
	"github.com/taibuivan/storeconsole/internal/platform/respond"
	"github.com/taibuivan/storeconsole/pkg/uuidv7"
)

// # Request Tracing

// RequestID puts a correlation ID on the context and the response.
//
// The console sends a UUIDv7 with every call; anything that does not parse as
// a UUID is replaced so log lines stay joinable.
func RequestID() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			requestID := request.Header.Get(constants.HeaderXRequestID)
			if _, err := uuid.Parse(requestID); err != nil {
				requestID = uuidv7.New()
			}

			writer.Header().Set(constants.HeaderXRequestID, requestID)
			next.ServeHTTP(writer, request.WithContext(ctxutil.WithRequestID(request.Context(), requestID)))
		})
	}
}

// # Activity Logging

// StructuredLogger logs the outcome of every request and stores a request
// scoped logger in the context for handlers.
func StructuredLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			start := time.Now()

			requestLogger := logger.With(
				slog.String("request_id", ctxutil.GetRequestID(request.Context())),
				slog.String("method", request.Method),
				slog.String("path", request.URL.Path),
				slog.String("client", clientKey(request)),
			)
			ctx := ctxutil.WithLogger(request.Context(), requestLogger)

			recorder := chimw.NewWrapResponseWriter(writer, request.ProtoMajor)
			next.ServeHTTP(recorder, request.WithContext(ctx))

			status := recorder.Status()
			if status == 0 {
				status = http.StatusOK
			}

			level := slog.LevelInfo
			switch {
			case status >= 500:
				level = slog.LevelError
			case status >= 400 && status != http.StatusUnauthorized:
				// 401 is the normal end of an access token's life.
				level = slog.LevelWarn
			}

			requestLogger.Log(ctx, level, "http_request_finished",
				slog.Int("status", status),
				slog.Int("bytes", recorder.BytesWritten()),
				slog.Int64("latency_ms", time.Since(start).Milliseconds()),
			)
		})
	}
}

// # Rate Limiting

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per client address.
type RateLimiter struct {
	limit rate.Limit
	burst int

	mu      sync.Mutex
	buckets map[string]*bucket
}

// NewRateLimiter allows rps requests per second per client with the given
// burst. Idle buckets are swept until ctx is done.
func NewRateLimiter(ctx context.Context, rps float64, burst int) *RateLimiter {
	limiter := &RateLimiter{
		limit:   rate.Limit(rps),
		burst:   burst,
		buckets: make(map[string]*bucket),
	}
	go limiter.sweep(ctx)
	return limiter
}

func (l *RateLimiter) sweep(ctx context.Context) {
	ticker := time.NewTicker(constants.RateLimitCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			l.mu.Lock()
			for key, b := range l.buckets {
				if now.Sub(b.lastSeen) > constants.RateLimitClientTTL {
					delete(l.buckets, key)
				}
			}
			l.mu.Unlock()
		}
	}
}

// allow takes one token from key's bucket.
func (l *RateLimiter) allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[key] = b
	}
	b.lastSeen = time.Now()
	return b.limiter.Allow()
}

// retryAfter is the whole number of seconds until one token is back.
func (l *RateLimiter) retryAfter() int {
	if l.limit <= 0 {
		return 1
	}
	return max(1, int(math.Ceil(1/float64(l.limit))))
}

// Handler rejects requests over the limit with 429 and a Retry-After header.
func (l *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if !l.allow(clientKey(request)) {
			seconds := l.retryAfter()
			writer.Header().Set("Retry-After", strconv.Itoa(seconds))
			respond.Error(writer, request, apperr.RateLimited(seconds))
			return
		}
		next.ServeHTTP(writer, request)
	})
}

// clientKey identifies the caller by host. Mount chi's RealIP first when the
// backend sits behind a proxy.
func clientKey(request *http.Request) string {
	host, _, err := net.SplitHostPort(request.RemoteAddr)
	if err != nil {
		return request.RemoteAddr
	}
	return host
}

// # Reliability & Safety

// PanicRecovery answers 500 when a handler panics and logs the stack.
func PanicRecovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		defer func() {
			recovered := recover()
			if recovered == nil {
				return
			}
			if recovered == http.ErrAbortHandler {
				panic(recovered)
			}

			stack := make([]byte, 4096)
			stack = stack[:runtime.Stack(stack, false)]
			ctxutil.GetLogger(request.Context()).ErrorContext(request.Context(), "panic_recovered",
				slog.Any("panic", recovered),
				slog.String("stack", string(stack)),
			)

			respond.Error(writer, request, apperr.Internal(fmt.Errorf("panic: %v", recovered)))
		}()

		next.ServeHTTP(writer, request)
	})
}
