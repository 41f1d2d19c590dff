package app

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/stripd/internal/config"
)

// App runs the stripd services as one unit: it starts them, waits for a
// shutdown signal or a fatal scheduler error, and stops them again.
type App struct {
	cfg      *config.Config
	services *Services
	fatal    chan error
}

// New builds every service without starting anything. configPath is watched
// for default pattern changes when watch_config is set.
func New(cfg *config.Config, configPath string) (*App, error) {
	services, err := NewServices(cfg, configPath)
	if err != nil {
		return nil, err
	}
	return &App{
		cfg:      cfg,
		services: services,
		fatal:    make(chan error, 1),
	}, nil
}

// ResetState drops the persisted default pattern so the config default is
// used. Call it before Run.
func (a *App) ResetState() error {
	return a.services.ClearState()
}

// Run blocks until ctx is cancelled or the scheduler stops on a fatal pattern
// error. Services are always stopped before Run returns. The fatal error, if
// any, is returned.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := a.services.Start(ctx, a.reportFatal); err != nil {
		cancel()
		a.stop()
		return fmt.Errorf("start services: %w", err)
	}
	log.Info().
		Int("pixels", a.cfg.Strip.Length).
		Strs("outputs", a.cfg.Strip.Outputs).
		Dur("tick_interval", a.cfg.Strip.TickInterval.Duration()).
		Msg("stripd started")

	var fatalErr error
	select {
	case <-ctx.Done():
	case fatalErr = <-a.fatal:
		log.Error().Err(fatalErr).Msg("Fatal error, shutting down")
	}

	cancel()
	a.stop()
	return fatalErr
}

// reportFatal keeps the first fatal error; later ones only get logged.
func (a *App) reportFatal(err error) {
	select {
	case a.fatal <- err:
	default:
		log.Error().Err(err).Msg("Additional fatal error during shutdown")
	}
}

func (a *App) stop() {
	log.Info().Msg("Shutting down...")
	if err := a.services.Stop(); err != nil {
		log.Error().Err(err).Msg("Error during shutdown")
	}
}

// SignalContext is cancelled on SIGINT or SIGTERM. After the first signal the
// default handling is restored, so a second one kills the process.
func SignalContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ctx.Done()
		if parent.Err() == nil {
			log.Warn().Msg("Received shutdown signal")
		}
		stop()
	}()
	return ctx, stop
}
