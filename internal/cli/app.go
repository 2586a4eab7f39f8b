package cli

import (
	"log/slog"
	"net/http"

	"github.com/fieldcert/fieldcert/internal/anchor"
	"github.com/fieldcert/fieldcert/internal/cert"
	"github.com/fieldcert/fieldcert/internal/config"
	"github.com/fieldcert/fieldcert/internal/lifecycle"
	"github.com/fieldcert/fieldcert/internal/store"
)

// app is the wired-up core a command operates on: config, store, and all
// components built over them.
type app struct {
	cfg       config.Config
	store     *store.Store
	notifier  *lifecycle.Notifier
	machine   *lifecycle.Machine
	arbiter   *lifecycle.Arbiter
	issuer    *lifecycle.Issuer
	registrar *lifecycle.Registrar
	anchors   *anchor.Service
	logger    *slog.Logger
}

// openApp loads configuration, opens the database, and wires the core.
// Callers must Close().
func openApp(opts *RootOptions) (*app, error) {
	cfg, err := config.Load(opts.Config)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "loading config", err)
	}

	logger := slog.Default()
	logger.Debug("opening database", "path", cfg.Database)

	s, err := store.Open(cfg.Database)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "opening database", err)
	}

	var ledger anchor.LedgerClient
	if cfg.LedgerConfigured() {
		client := anchor.NewHTTPLedger(cfg.Ledger.Endpoint, cfg.Ledger.APIKey, cfg.Ledger.ContractRef)
		client.Client = &http.Client{Timeout: cfg.LedgerTimeout()}
		ledger = client
		logger.Debug("ledger configured", "endpoint", cfg.Ledger.Endpoint)
	} else {
		logger.Debug("ledger unconfigured, anchoring in mock mode")
	}

	ids := cert.UUIDv7Generator{}
	notifier := lifecycle.NewNotifier()
	machine := lifecycle.NewMachine(s, notifier, logger)

	return &app{
		cfg:       cfg,
		store:     s,
		notifier:  notifier,
		machine:   machine,
		arbiter:   lifecycle.NewArbiter(s, machine, ids, nil, logger),
		issuer:    lifecycle.NewIssuer(s, machine, ids, nil, logger),
		registrar: lifecycle.NewRegistrar(s, machine, ids, nil, logger),
		anchors:   anchor.NewService(s, ledger, cfg.Ledger.Network, nil, logger),
		logger:    logger,
	}, nil
}

// Close releases the database.
func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.logger.Error("error closing database", "error", err)
	}
}
