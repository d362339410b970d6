// Package runtime boots the server process: configuration, stores, services
// and the HTTP listener.
package runtime

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	_ "github.com/lib/pq"

	app "github.com/quest4deals/quest4deals/internal/app"
	"github.com/quest4deals/quest4deals/internal/app/httpapi"
	"github.com/quest4deals/quest4deals/internal/app/metrics"
	"github.com/quest4deals/quest4deals/internal/app/services/users"
	"github.com/quest4deals/quest4deals/internal/app/storage/postgres"
	"github.com/quest4deals/quest4deals/internal/cache"
	"github.com/quest4deals/quest4deals/internal/config"
	"github.com/quest4deals/quest4deals/internal/email"
	"github.com/quest4deals/quest4deals/internal/nexarda"
	"github.com/quest4deals/quest4deals/pkg/logger"
)

// Application wires core dependencies and manages the HTTP server lifecycle.
type Application struct {
	cfg        *config.Config
	log        *logger.Logger
	app        *app.Application
	httpServer *http.Server
	db         *sql.DB
}

// NewApplication constructs an application instance with default wiring.
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log := logger.New(logger.LoggingConfig{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		FilePrefix: cfg.Logging.FilePrefix,
	})

	var stores app.Stores
	var db *sql.DB
	if cfg.Database.DSN != "" {
		db, err = openDatabase(cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		pg := postgres.New(db)
		stores = app.Stores{Games: pg, Prices: pg, Watchlist: pg, Users: pg}
		log.Info("using postgres storage")
	} else {
		log.Info("no database configured, using in-memory storage")
	}

	var sender email.Sender
	if cfg.SMTP.Host != "" {
		sender = email.NewSMTPSender(cfg.SMTP, log.WithField("component", "email"))
	} else {
		log.Warn("SMTP not configured, alerts will not be delivered")
	}

	responseCache := cache.New()
	client, err := nexarda.NewClient(nexarda.Config{
		BaseURL:       cfg.Nexarda.BaseURL,
		Timeout:       cfg.Nexarda.Timeout,
		Cache:         responseCache,
		SearchTTL:     cfg.Nexarda.SearchTTL,
		ProductTTL:    cfg.Nexarda.ProductTTL,
		PricesTTL:     cfg.Nexarda.PricesTTL,
		AllowedStores: cfg.Nexarda.AllowedStores,
		Logger:        log.WithField("component", "nexarda"),
	})
	if err != nil {
		return nil, fmt.Errorf("configure aggregator client: %w", err)
	}

	application, err := app.New(app.Options{
		Logger:          log,
		Stores:          stores,
		Sender:          sender,
		Nexarda:         client,
		RefreshInterval: cfg.Refresh.Interval,
		Auth: users.Config{
			JWTSecret:     cfg.Auth.JWTSecret,
			TokenTTL:      cfg.Auth.TokenTTL,
			ResetTokenTTL: cfg.Auth.ResetTokenTTL,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("wire application: %w", err)
	}

	janitor := cache.NewJanitor(responseCache, time.Minute, log.WithField("component", "cache"))
	if err := application.RegisterService(janitor); err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.Handle("/", httpapi.NewHandler(application))

	httpSrv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      metrics.InstrumentHandler(httpapi.WithCORS(mux)),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return &Application{
		cfg:        cfg,
		log:        log,
		app:        application,
		httpServer: httpSrv,
		db:         db,
	}, nil
}

// Run starts lifecycle services and the HTTP server, blocking until the
// context is cancelled or the server fails.
func (a *Application) Run(ctx context.Context) error {
	if err := a.app.Start(ctx); err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Infof("HTTP server listening on %s", a.httpServer.Addr)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

// Shutdown stops the HTTP server, lifecycle services and the database.
func (a *Application) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := a.app.Stop(shutdownCtx); err != nil {
		a.log.WithError(err).Warn("error stopping services")
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.WithError(err).Warn("error closing database connection")
		}
	}
	return nil
}

func openDatabase(cfg config.DatabaseConfig) (*sql.DB, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = "postgres"
	}

	db, err := sql.Open(driver, cfg.DSN)
	if err != nil {
		return nil, err
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Second)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}
