package app

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/stripd/internal/config"
	"github.com/dokzlo13/stripd/internal/control"
	"github.com/dokzlo13/stripd/internal/ledger"
	"github.com/dokzlo13/stripd/internal/scheduler"
	"github.com/dokzlo13/stripd/internal/state"
)

// ControlService wraps the control HTTP server.
type ControlService struct {
	cfg    *config.Config
	server *control.Server
}

// NewControlService creates a new ControlService.
func NewControlService(
	cfg *config.Config,
	sched *scheduler.Scheduler,
	sources *SourceService,
	defaults *state.TypedStore[config.PatternConfig],
	l *ledger.Ledger,
) *ControlService {
	server := control.NewServer(cfg.Control.Host, cfg.Control.Port, cfg.Control.RateLimitRPS, control.Deps{
		Scheduler: sched,
		Builder:   sources.Catalog,
		Defaults:  defaults,
		History:   l,
		Sources:   sources.API,
	})
	return &ControlService{
		cfg:    cfg,
		server: server,
	}
}

// Start begins the control server if enabled.
func (s *ControlService) Start(ctx context.Context) {
	if !s.cfg.Control.Enabled {
		log.Debug().Msg("Control server disabled")
		return
	}

	s.server.SetReady(true)
	go func() {
		if err := s.server.Run(ctx, s.cfg.ShutdownTimeout.Duration()); err != nil {
			log.Error().Err(err).Msg("Control server error")
		}
	}()
}
