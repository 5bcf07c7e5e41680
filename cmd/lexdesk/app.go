// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"

	"github.com/taibuivan/lexdesk/internal/article"
	"github.com/taibuivan/lexdesk/internal/identity"
	"github.com/taibuivan/lexdesk/internal/platform/apiclient"
	"github.com/taibuivan/lexdesk/internal/platform/config"
	"github.com/taibuivan/lexdesk/internal/platform/metrics"
	redisstore "github.com/taibuivan/lexdesk/internal/platform/redis"
	"github.com/taibuivan/lexdesk/internal/platform/sec"
	"github.com/taibuivan/lexdesk/internal/profile"
	"github.com/taibuivan/lexdesk/internal/session"
)

// app holds every long-lived component of one process.
type app struct {
	cfg *config.Config
	log *slog.Logger

	cache    *session.Cache
	provider *identity.RESTProvider
	store    *session.Store
	profiles *profile.Client
	articles *article.Client

	registry *prometheus.Registry
	metrics  *metrics.Collector

	closers []func() error
}

// bootstrap loads configuration and wires the session stack.
//
// The caller must call close when done.
func bootstrap(ctx context.Context, opts *options) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	log := newLogger(opts.debug || cfg.Debug)
	log.Debug("configuration_loaded",
		slog.String("environment", cfg.Environment),
		slog.String("cache_driver", cfg.CacheDriver),
	)

	a := &app{cfg: cfg, log: log, registry: prometheus.NewRegistry()}
	a.metrics = metrics.NewCollector(a.registry)

	kv, err := a.openKV(ctx)
	if err != nil {
		return nil, err
	}
	a.cache = session.NewCache(kv, log)

	verifier, err := newVerifier(cfg)
	if err != nil {
		a.close()
		return nil, err
	}

	a.provider, err = identity.NewRESTProvider(identity.RESTConfig{
		BaseURL:     cfg.IdentityBaseURL,
		APIKey:      cfg.IdentityAPIKey,
		Verifier:    verifier,
		Logger:      log,
		Persistence: kv,
	})
	if err != nil {
		a.close()
		return nil, err
	}

	if err := a.provider.Resume(ctx); err != nil {
		log.Warn("identity_resume_failed", slog.Any("error", err))
	}

	// The token source reads the store lazily; the store is built below.
	api := apiclient.New(cfg.APIBaseURL, nil, func() string { return a.store.Token() })
	a.profiles = profile.NewClient(api)
	a.articles = article.NewClient(api, log)

	a.store, err = session.Create(ctx, session.Options{
		Provider:    a.provider,
		Profiles:    a.profiles,
		Cache:       a.cache,
		SyncTimeout: cfg.SyncTimeout,
		Logger:      log,
		Recorder:    a.metrics,
	})
	if err != nil {
		a.close()
		return nil, err
	}
	a.closers = append(a.closers, func() error { a.store.Dispose(); return nil })

	if err := a.store.Start(); err != nil {
		a.close()
		return nil, err
	}

	return a, nil
}

// openKV selects the session cache backend.
func (a *app) openKV(ctx context.Context) (session.KV, error) {
	switch a.cfg.CacheDriver {
	case config.CacheDriverMemory:
		return session.NewMemoryKV(0), nil

	case config.CacheDriverRedis:
		client, err := redisstore.NewClient(ctx, a.cfg.RedisURL, a.log)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, client.Close)
		return session.NewRedisKV(client, a.cfg.CachePrefix, 0), nil

	default:
		path, err := a.cfg.SessionFile()
		if err != nil {
			return nil, err
		}

		var sealer *sec.Sealer
		if a.cfg.CacheSecret != "" {
			if sealer, err = sec.NewSealer(a.cfg.CacheSecret); err != nil {
				return nil, err
			}
		}
		return session.NewFileKV(path, sealer), nil
	}
}

// pingCache probes the session cache backend for readiness.
func (a *app) pingCache(ctx context.Context) error {
	return a.cache.Ping(ctx)
}

// close releases resources in reverse order of acquisition.
func (a *app) close() {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && !errors.Is(err, goredis.ErrClosed) {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		a.log.Error("shutdown_cleanup_failed", slog.Any("error", err))
	}
}

// newVerifier prefers an RSA public key over a shared secret.
func newVerifier(cfg *config.Config) (*sec.TokenVerifier, error) {
	var options []sec.VerifierOption
	if cfg.IdentityIssuer != "" {
		options = append(options, sec.WithIssuer(cfg.IdentityIssuer))
	}
	if cfg.IdentityAudience != "" {
		options = append(options, sec.WithAudience(cfg.IdentityAudience))
	}

	if cfg.IdentityPublicKeyPath != "" {
		verifier, err := sec.NewRSAVerifier(cfg.IdentityPublicKeyPath, options...)
		if err != nil {
			return nil, fmt.Errorf("load identity public key: %w", err)
		}
		return verifier, nil
	}
	return sec.NewHMACVerifier([]byte(cfg.IdentityJWTSecret), options...)
}
