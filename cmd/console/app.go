// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/taibuivan/storeconsole/internal/backend"
	"github.com/taibuivan/storeconsole/internal/platform/config"
	"github.com/taibuivan/storeconsole/internal/platform/constants"
	redisstore "github.com/taibuivan/storeconsole/internal/platform/redis"
	"github.com/taibuivan/storeconsole/internal/session"
)

// app is the wiring shared by every command of one invocation.
type app struct {
	cfg    *config.Config
	log    *slog.Logger
	stdout io.Writer
	stderr io.Writer

	manager *session.Manager

	// plain never carries the session; client does.
	plain  *backend.Client
	client *backend.Client

	registry *prometheus.Registry
	closers  []func() error
}

// newApp loads configuration and opens the session.
func newApp(ctx context.Context, stdout, stderr io.Writer) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	level := slog.LevelWarn
	if cfg.Debug {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewJSONHandler(stderr, &slog.HandlerOptions{Level: level})).
		With(slog.String("app", constants.AppName))
	slog.SetDefault(log)

	a := &app{cfg: cfg, log: log, stdout: stdout, stderr: stderr, registry: prometheus.NewRegistry()}

	store, err := a.openStore(ctx)
	if err != nil {
		return nil, err
	}

	a.plain, err = backend.New(backend.Options{
		BaseURL:      cfg.APIURL,
		Timeout:      cfg.HTTPTimeout,
		RateLimitRPS: cfg.RateLimitRPS,
		Logger:       log,
	})
	if err != nil {
		a.close()
		return nil, err
	}

	metrics, err := session.NewMetrics(a.registry)
	if err != nil {
		a.close()
		return nil, err
	}

	a.manager, err = session.NewManager(ctx, store,
		session.WithExchanger(a.plain),
		session.WithRedirector(session.RedirectFunc(a.signedOut)),
		session.WithLogger(log),
		session.WithMetrics(metrics),
	)
	if err != nil {
		a.close()
		return nil, err
	}

	a.client = a.plain.WithSession(a.manager)
	return a, nil
}

func (a *app) openStore(ctx context.Context) (session.Store, error) {
	switch a.cfg.Store {
	case config.StoreRedis:
		client, err := redisstore.NewClient(ctx, a.cfg.RedisURL, a.log)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, client.Close)
		return session.NewRedisStore(client, a.cfg.RedisPrefix), nil
	case config.StoreMemory:
		return session.NewMemoryStore(time.Now), nil
	default:
		return session.NewFileStore(a.cfg.StorePath, time.Now), nil
	}
}

// signedOut is the console's hard redirect.
func (a *app) signedOut(_ context.Context, cause error) {
	if cause == nil {
		fmt.Fprintln(a.stderr, "Signed out.")
		return
	}
	a.log.Warn("session ended", slog.Any("cause", cause))
}

// writeMetrics dumps the session counters in the text exposition format.
func (a *app) writeMetrics(path string) error {
	if path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, a.registry); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}

func (a *app) close() {
	for _, closer := range a.closers {
		if err := closer(); err != nil {
			a.log.Error("close error", slog.Any("error", err))
		}
	}
	a.closers = nil
}
