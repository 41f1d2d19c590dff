package app

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/stripd/internal/config"
	"github.com/dokzlo13/stripd/internal/db"
	"github.com/dokzlo13/stripd/internal/eventbus"
	"github.com/dokzlo13/stripd/internal/ledger"
	"github.com/dokzlo13/stripd/internal/state"
	"github.com/dokzlo13/stripd/internal/strip"
)

// Services is a container for all application services.
// It manages service initialization order and dependencies.
type Services struct {
	cfg *config.Config

	// Core infrastructure
	DB     *db.DB
	Ledger *ledger.Ledger
	Bus    *eventbus.Bus

	// State store (generic JSON store) and the persisted default pattern
	Store    *state.Store
	Defaults *state.TypedStore[config.PatternConfig]

	// High-level services
	Sources   *SourceService
	Hue       *HueService
	Scheduler *SchedulerService
	Control   *ControlService
}

// NewServices creates all services with proper dependency injection.
func NewServices(cfg *config.Config, configPath string) (*Services, error) {
	s := &Services{cfg: cfg}

	// Initialize database
	database, err := db.Open(cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	s.DB = database

	s.Ledger = ledger.New(database.DB)
	s.Store = state.NewStore(database.DB)
	s.Defaults = state.NewTypedStore[config.PatternConfig](s.Store, state.KindPattern)

	// Pattern lifecycle events land in the ledger
	s.Bus = eventbus.NewWithConfig(cfg.EventBus.Workers, cfg.EventBus.QueueSize)
	s.Ledger.Subscribe(s.Bus)

	s.Sources, err = NewSourceService(cfg)
	if err != nil {
		s.Close()
		return nil, err
	}

	s.Hue = NewHueService(cfg)

	outputs := strip.MultiOutput{}
	if cfg.HasOutput(config.OutputLog) {
		outputs = append(outputs, strip.LogOutput{})
	}
	if s.Hue.Mirror != nil {
		outputs = append(outputs, s.Hue.Mirror)
	}

	s.Scheduler = NewSchedulerService(cfg, configPath, outputs, s.Bus, s.Sources.Catalog, s.Defaults)

	s.Control = NewControlService(cfg, s.Scheduler.Scheduler, s.Sources, s.Defaults, s.Ledger)

	return s, nil
}

// Start starts all services in the correct order.
// The onFatalError callback is called when a fatal error occurs (e.g. an
// unimplemented pattern stops the scheduler).
func (s *Services) Start(ctx context.Context, onFatalError func(error)) error {
	s.Sources.Start(ctx)

	if err := s.Scheduler.Start(ctx, onFatalError); err != nil {
		return err
	}

	go s.Ledger.RunCleanup(ctx, s.cfg.Ledger.CleanupInterval.Duration(), s.cfg.Ledger.Retention.Duration())

	s.Control.Start(ctx)
	return nil
}

// ClearState drops every persisted record, including the API-set default.
func (s *Services) ClearState() error {
	n, err := s.Store.Reset()
	if err != nil {
		return err
	}
	log.Info().Int64("records", n).Msg("Persisted state cleared")
	return nil
}

// Stop gracefully stops all services.
func (s *Services) Stop() error {
	var errs []error
	if s.Scheduler != nil {
		errs = append(errs, s.Scheduler.Stop())
	}
	s.Close()
	return errors.Join(errs...)
}

// Close releases all resources.
func (s *Services) Close() {
	if s.Bus != nil {
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout.Duration())
		s.Bus.Close(ctx)
		cancel()
	}
	if s.Sources != nil {
		s.Sources.Close()
	}
	if s.DB != nil {
		if err := s.DB.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close database")
		}
	}
}
