package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	amqpadapter "timetrack/internal/adapter/amqp"
	msql "timetrack/internal/adapter/mysql"
	"timetrack/internal/adapter/postgres"
	"timetrack/internal/adapter/sqlite"
	"timetrack/internal/auth"
	"timetrack/internal/config"
	"timetrack/internal/ports"
	"timetrack/internal/usecase"
)

// Store is what the app needs from a database adapter.
type Store interface {
	ports.Store
	ports.LegacyProjectSource
	Migrate(ctx context.Context) error
}

// App wires adapters and use cases.
type App struct {
	log    *slog.Logger
	store  Store
	tokens ports.TokenIssuer
	closer func() error

	Ledger    *usecase.Ledger
	Access    *usecase.Access
	Dashboard *usecase.Dashboard
	Exporter  *usecase.Exporter

	// ElapsedInterval paces the websocket elapsed stream.
	ElapsedInterval time.Duration
}

// New opens the configured database, applies migrations and connects the
// optional event publisher.
func New(ctx context.Context, log *slog.Logger, cfg config.Config) (*App, error) {
	store, err := openStore(ctx, log, cfg)
	if err != nil {
		return nil, err
	}
	// Run migrations before the store is used.
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	tokens, err := auth.NewTokenIssuer(cfg.Token.Secret, cfg.Token.TTL)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	var (
		events ports.EventPublisher
		pub    *amqpadapter.Publisher
	)
	if cfg.AMQP.URL != "" {
		pub, err = amqpadapter.NewPublisher(ctx, cfg.AMQP.URL, cfg.AMQP.Exchange, log)
		if err != nil {
			// Events are best effort; the ledger works without them.
			log.Warn("event publishing disabled", slog.String("error", err.Error()))
		} else {
			events = pub
		}
	}

	a := NewWithStore(log, store, tokens, events, cfg.Location)
	a.closer = func() error {
		var errs []error
		if pub != nil {
			errs = append(errs, pub.Close())
		}
		errs = append(errs, store.Close())
		return errors.Join(errs...)
	}
	return a, nil
}

// NewWithStore builds the use cases over an already migrated store.
func NewWithStore(log *slog.Logger, store Store, tokens ports.TokenIssuer, events ports.EventPublisher, loc *time.Location) *App {
	if loc == nil {
		loc = time.Local
	}
	return &App{
		log:    log,
		store:  store,
		tokens: tokens,
		closer: store.Close,
		Ledger: &usecase.Ledger{
			Log:     log,
			Workers: store,
			Entries: store,
			Events:  events,
		},
		Access: &usecase.Access{
			Log:      log,
			Projects: store,
			Workers:  store,
			Hasher:   auth.NewBcryptHasher(),
		},
		Dashboard: &usecase.Dashboard{
			Projects: store,
			Workers:  store,
			Entries:  store,
			Location: loc,
		},
		Exporter: &usecase.Exporter{
			Log:      log,
			Workers:  store,
			Entries:  store,
			Location: loc,
		},
		ElapsedInterval: time.Second,
	}
}

func openStore(ctx context.Context, log *slog.Logger, cfg config.Config) (Store, error) {
	switch cfg.DB.Driver {
	case "mysql":
		return msql.NewClient(ctx, cfg.DB.DSN, log)
	case "postgres":
		return postgres.NewPool(ctx, cfg.DB.DSN, log)
	case "sqlite":
		return sqlite.NewClient(ctx, cfg.DB.DSN, log)
	}
	return nil, fmt.Errorf("unsupported db driver %q", cfg.DB.Driver)
}

// Tokens signs and verifies session tokens.
func (a *App) Tokens() ports.TokenIssuer { return a.tokens }

// ImportLegacy copies projects from the legacy_projects table.
func (a *App) ImportLegacy(ctx context.Context) (int, error) {
	return a.Access.ImportLegacyProjects(ctx, a.store)
}

func (a *App) Close() error { return a.closer() }
