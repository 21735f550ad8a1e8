// Package app assembles the services of the ATM from their dependencies.
package app

import (
	"log/slog"

	"github.com/amirasaad/vatm/pkg/cache"
	"github.com/amirasaad/vatm/pkg/config"
	"github.com/amirasaad/vatm/pkg/credential"
	"github.com/amirasaad/vatm/pkg/eventbus"
	"github.com/amirasaad/vatm/pkg/repository"
	"github.com/amirasaad/vatm/pkg/service/auth"
	"github.com/amirasaad/vatm/pkg/service/ledger"
)

// Deps contains everything the services need from infrastructure.
type Deps struct {
	Uow           repository.UnitOfWork
	EventBus      eventbus.Bus
	ResponseCache cache.ResponseCache
	Credentials   credential.Verifier
	Logger        *slog.Logger
	// Closers run in reverse order on shutdown.
	Closers []func() error
}

type App struct {
	Deps        *Deps
	Config      *config.App
	Ledger      *ledger.Service
	AuthService *auth.Service
}

func New(deps *Deps, cfg *config.App) *App {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Credentials == nil {
		deps.Credentials = credential.NewBcrypt(cfg.Credential.BcryptCost, cfg.Credential.Length)
	}
	a := &App{
		Deps:   deps,
		Config: cfg,
	}
	a.Ledger = ledger.New(
		deps.Uow,
		deps.Credentials,
		deps.EventBus,
		deps.Logger,
		ledger.WithHistoryLimits(cfg.Ledger.HistoryDefaultLimit, cfg.Ledger.HistoryMaxLimit),
	)
	a.AuthService = auth.New(a.Ledger, cfg.Auth.Jwt, deps.Logger)
	if deps.EventBus != nil {
		a.setupEventBus()
	}
	return a
}

// Close releases infrastructure in reverse acquisition order.
func (a *App) Close() {
	for i := len(a.Deps.Closers) - 1; i >= 0; i-- {
		if err := a.Deps.Closers[i](); err != nil {
			a.Deps.Logger.Warn("Shutdown step failed", "error", err)
		}
	}
}
