// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package mockapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/taibuivan/storeconsole/internal/platform/constants"
)

// # Server Definitions

// Server wraps the API handler in an [http.Server].
type Server struct {
	httpServer *http.Server
	log        *slog.Logger
}

// NewServer binds api to :port with the standard timeouts.
func NewServer(ctx context.Context, port string, api *API, log *slog.Logger) *Server {
	return &Server{
		log: log,
		httpServer: &http.Server{
			Addr:              ":" + port,
			Handler:           api.Handler(ctx),
			ReadTimeout:       constants.DefaultReadTimeout,
			WriteTimeout:      constants.DefaultWriteTimeout,
			IdleTimeout:       constants.DefaultIdleTimeout,
			ReadHeaderTimeout: constants.DefaultReadHeaderTimeout,
		},
	}
}

// # Server Lifecycle

// ListenAndServe starts the HTTP server.
//
// It blocks until the server is closed or an error occurs.
func (s *Server) ListenAndServe() error {
	s.log.Info("server starting", slog.String("addr", s.httpServer.Addr))
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server, waiting for in-flight requests.
func (s *Server) Shutdown(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}
