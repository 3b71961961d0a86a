package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/example/study-scheduler/internal/adapters"
	"github.com/example/study-scheduler/internal/application"
	"github.com/example/study-scheduler/internal/config"
	httptransport "github.com/example/study-scheduler/internal/http"
	"github.com/example/study-scheduler/internal/metrics"
	"github.com/example/study-scheduler/internal/persistence/memory"
	"github.com/example/study-scheduler/internal/persistence/sqlite"
)

type appOptions struct {
	hashPassword application.PasswordHasher
}

// app owns the in-memory store, the services over it and the optional
// snapshot database.
type app struct {
	cfg      config.Config
	logger   *slog.Logger
	store    *memory.Store
	registry *prometheus.Registry

	auth     *application.AuthService
	profiles *application.ProfileService
	sessions *application.SessionService
	matches  *application.MatchService

	db        *sqlite.DB
	snapshots *sqlite.SnapshotStore
}

func newApp(ctx context.Context, cfg config.Config, logger *slog.Logger, opts appOptions) (*app, error) {
	a := &app{
		cfg:      cfg,
		logger:   logger,
		store:    memory.New(),
		registry: prometheus.NewRegistry(),
	}

	if cfg.SnapshotDSN != "" {
		db, err := sqlite.Open(ctx, cfg.SnapshotDSN, logger)
		if err != nil {
			return nil, fmt.Errorf("open snapshot database: %w", err)
		}
		a.db = db
		a.snapshots = sqlite.NewSnapshotStore(db)

		snapshot, err := a.snapshots.Load(ctx)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("load snapshot: %w", err)
		}
		a.store.Restore(snapshot)
	}

	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	recorder := metrics.NewRecorder(a.registry)

	repos := adapters.NewRepositories(a.store)
	a.auth = application.NewAuthServiceWithLogger(repos.Credentials, repos.Tokens, opts.hashPassword, nil, nil, time.Now, cfg.TokenTTL, logger)
	a.profiles = application.NewProfileServiceWithLogger(repos.Profiles, logger)
	a.sessions = application.NewSessionServiceWithLogger(repos.Sessions, repos.Directory, recorder, time.Now, logger)
	a.matches = application.NewMatchServiceWithLogger(repos.Profiles, recorder, logger)
	return a, nil
}

func (a *app) handler() http.Handler {
	return httptransport.NewRouter(httptransport.RouterConfig{
		Auth:       httptransport.NewAuthHandler(a.auth, a.logger),
		Users:      httptransport.NewUserHandler(a.auth, a.profiles, a.logger),
		Profiles:   httptransport.NewProfileHandler(a.profiles, a.matches, a.logger),
		Sessions:   httptransport.NewSessionHandler(a.sessions, a.logger),
		Tokens:     a.auth,
		Metrics:    promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}),
		Logger:     a.logger,
		Middleware: []func(http.Handler) http.Handler{httptransport.RequestLogger(a.logger)},
	})
}

// Close saves a final snapshot when a snapshot database is configured.
func (a *app) Close() error {
	if a.db == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout())
	defer cancel()

	saveErr := a.snapshots.Save(ctx, a.store.Snapshot())
	closeErr := a.db.Close()
	a.db = nil
	return errors.Join(saveErr, closeErr)
}

func (a *app) shutdownTimeout() time.Duration {
	if a.cfg.ShutdownTimeout <= 0 {
		return 10 * time.Second
	}
	return a.cfg.ShutdownTimeout
}

// runServe serves HTTP until ctx is cancelled, then drains connections for
// at most the configured shutdown timeout.
func runServe(ctx context.Context, a *app) error {
	server := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           a.handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.logger.Info("study scheduler API listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout())
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		a.logger.Info("study scheduler API stopped")
		return nil
	})
	return g.Wait()
}
