// Package app wires stores, services and lifecycle components into one
// application object.
package app

import (
	"context"
	"time"

	"github.com/quest4deals/quest4deals/internal/app/services/games"
	"github.com/quest4deals/quest4deals/internal/app/services/notify"
	"github.com/quest4deals/quest4deals/internal/app/services/pricing"
	"github.com/quest4deals/quest4deals/internal/app/services/tracker"
	"github.com/quest4deals/quest4deals/internal/app/services/users"
	watchlistsvc "github.com/quest4deals/quest4deals/internal/app/services/watchlist"
	"github.com/quest4deals/quest4deals/internal/app/storage"
	"github.com/quest4deals/quest4deals/internal/app/storage/memory"
	"github.com/quest4deals/quest4deals/internal/app/system"
	"github.com/quest4deals/quest4deals/internal/email"
	"github.com/quest4deals/quest4deals/internal/nexarda"
	"github.com/quest4deals/quest4deals/pkg/logger"
)

// Stores carries the persistence backends. Nil fields fall back to a shared
// in-memory store.
type Stores struct {
	Games     storage.GameStore
	Prices    storage.PriceHistoryStore
	Watchlist storage.WatchlistStore
	Users     storage.UserStore
}

// Options configures application construction.
type Options struct {
	Logger  *logger.Logger
	Stores  Stores
	Sender  email.Sender
	Nexarda *nexarda.Client
	Auth    users.Config

	// RefreshInterval enables the background price refresher when positive.
	RefreshInterval time.Duration
}

// Application aggregates the services behind the HTTP API.
type Application struct {
	Games     *games.Service
	Pricing   *pricing.Service
	Watchlist *watchlistsvc.Service
	Notify    *notify.Service
	Users     *users.Service
	Tracker   *tracker.Service
	Nexarda   *nexarda.Client

	manager *system.Manager
	log     *logger.Logger
}

// New builds an application from options.
func New(opts Options) (*Application, error) {
	log := opts.Logger
	if log == nil {
		log = logger.NewDefault("app")
	}

	stores := opts.Stores
	if stores.Games == nil || stores.Prices == nil || stores.Watchlist == nil || stores.Users == nil {
		mem := memory.New()
		if stores.Games == nil {
			stores.Games = mem
		}
		if stores.Prices == nil {
			stores.Prices = mem
		}
		if stores.Watchlist == nil {
			stores.Watchlist = mem
		}
		if stores.Users == nil {
			stores.Users = mem
		}
	}

	gamesSvc := games.New(stores.Games, log.WithField("component", "games"))
	pricingSvc := pricing.New(stores.Prices, log.WithField("component", "pricing"))
	watchlistSvc := watchlistsvc.New(stores.Watchlist, stores.Games, log.WithField("component", "watchlist"))
	notifySvc := notify.New(stores.Watchlist, stores.Users, opts.Sender, log.WithField("component", "notify"))

	usersSvc, err := users.New(stores.Users, opts.Sender, opts.Auth, log.WithField("component", "users"))
	if err != nil {
		return nil, err
	}

	var source tracker.Source
	if opts.Nexarda != nil {
		source = opts.Nexarda
	}
	trackerSvc := tracker.New(gamesSvc, pricingSvc, notifySvc, source, log.WithField("component", "tracker"))

	application := &Application{
		Games:     gamesSvc,
		Pricing:   pricingSvc,
		Watchlist: watchlistSvc,
		Notify:    notifySvc,
		Users:     usersSvc,
		Tracker:   trackerSvc,
		Nexarda:   opts.Nexarda,
		manager:   system.NewManager(),
		log:       log,
	}

	if opts.RefreshInterval > 0 && source != nil {
		refresher := tracker.NewRefresher(trackerSvc, opts.RefreshInterval, log.WithField("component", "refresher"))
		if err := application.RegisterService(refresher); err != nil {
			return nil, err
		}
	}

	return application, nil
}

// RegisterService adds a lifecycle component managed by Start and Stop.
func (a *Application) RegisterService(svc system.Service) error {
	return a.manager.Register(svc)
}

// Start launches registered lifecycle components.
func (a *Application) Start(ctx context.Context) error {
	return a.manager.Start(ctx)
}

// Stop shuts down registered lifecycle components in reverse order.
func (a *Application) Stop(ctx context.Context) error {
	return a.manager.Stop(ctx)
}
