package app

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/stripd/internal/catalog"
	"github.com/dokzlo13/stripd/internal/config"
	"github.com/dokzlo13/stripd/internal/eventbus"
	"github.com/dokzlo13/stripd/internal/pattern"
	"github.com/dokzlo13/stripd/internal/scheduler"
	"github.com/dokzlo13/stripd/internal/state"
	"github.com/dokzlo13/stripd/internal/strip"
)

// SchedulerService owns the strip buffer and the pattern scheduler driving it,
// and keeps the default pattern in sync with the state store and config file.
type SchedulerService struct {
	cfg        *config.Config
	configPath string

	Buffer    *strip.Buffer
	Scheduler *scheduler.Scheduler

	catalog  *catalog.Catalog
	defaults *state.TypedStore[config.PatternConfig]

	mu      sync.Mutex
	applied *config.PatternConfig // config default currently installed
}

// NewSchedulerService creates the buffer and scheduler. Nothing runs until Start.
func NewSchedulerService(
	cfg *config.Config,
	configPath string,
	out strip.Output,
	bus *eventbus.Bus,
	cat *catalog.Catalog,
	defaults *state.TypedStore[config.PatternConfig],
) *SchedulerService {
	buffer := strip.NewBuffer(cfg.Strip.Length, out)
	sched := scheduler.New(buffer, cfg.Strip.TickInterval.Duration(), scheduler.WithPublisher(bus))

	return &SchedulerService{
		cfg:        cfg,
		configPath: configPath,
		Buffer:     buffer,
		Scheduler:  sched,
		catalog:    cat,
		defaults:   defaults,
	}
}

// Start installs the default pattern, starts the tick loop and, if enabled,
// the config watcher. A fatal scheduler error is reported via onFatalError.
func (s *SchedulerService) Start(ctx context.Context, onFatalError func(error)) error {
	s.installDefault()

	s.Scheduler.Start(ctx)
	go func() {
		if err := s.Scheduler.Wait(); err != nil && onFatalError != nil {
			onFatalError(err)
		}
	}()

	if s.cfg.WatchConfig && s.configPath != "" {
		w := config.NewWatcher(s.configPath, config.Load)
		w.OnReload(s.reloadDefault)
		if err := w.Start(ctx); err != nil {
			log.Warn().Err(err).Str("path", s.configPath).Msg("Failed to watch config file")
		}
	}
	return nil
}

// installDefault prefers a default persisted through the control API over the
// one in the config file.
func (s *SchedulerService) installDefault() {
	saved, ok, err := s.defaults.Load(state.IDDefaultPattern)
	def := saved.Value
	switch {
	case err != nil:
		log.Warn().Err(err).Msg("Failed to read persisted default pattern")
	case ok && catalog.RunsScript(def):
		log.Warn().Str("pattern", def.DisplayName()).Msg("Persisted default pattern runs a script, ignoring it")
	case ok:
		p, err := s.catalog.Build(def)
		if err == nil {
			err = s.Scheduler.SetDefaultPattern(p)
		}
		if err == nil {
			log.Info().
				Str("pattern", p.Name()).
				Int64("version", saved.Version).
				Time("saved_at", saved.UpdatedAt).
				Msg("Restored persisted default pattern")
			return
		}
		log.Warn().Err(err).Str("pattern", def.DisplayName()).Msg("Persisted default pattern is unusable, falling back to config")
	}

	if s.cfg.DefaultPattern == nil {
		log.Info().Msg("No default pattern configured, strip stays dark until a pattern is set")
		return
	}
	s.applyConfigDefault(*s.cfg.DefaultPattern, s.Scheduler.SetDefaultPattern)
}

// reloadDefault handles config file changes. A persisted default wins.
func (s *SchedulerService) reloadDefault(cfg *config.Config) {
	if def, ok, err := s.defaults.Get(state.IDDefaultPattern); err == nil && ok && !catalog.RunsScript(def) {
		log.Debug().Msg("Config changed but a persisted default pattern is set, ignoring")
		return
	}
	if cfg.DefaultPattern == nil {
		log.Debug().Msg("Config changed without a default pattern, keeping the current one")
		return
	}

	s.mu.Lock()
	unchanged := s.applied != nil && *s.applied == *cfg.DefaultPattern
	s.mu.Unlock()
	if unchanged {
		return
	}

	// The old default may be running forever; ReplaceDefault shows the new
	// one right away in that case.
	s.applyConfigDefault(*cfg.DefaultPattern, s.Scheduler.ReplaceDefault)
}

func (s *SchedulerService) applyConfigDefault(def config.PatternConfig, install func(pattern.Pattern) error) {
	built, err := s.catalog.Build(def)
	if err == nil {
		err = install(built)
	}
	if err != nil {
		log.Error().Err(err).Str("pattern", def.DisplayName()).Msg("Failed to install default pattern")
		return
	}

	s.mu.Lock()
	s.applied = &def
	s.mu.Unlock()

	log.Info().Str("pattern", built.Name()).Msg("Default pattern installed from config")
}

// Stop ends the tick loop, blanks the strip and closes its outputs.
func (s *SchedulerService) Stop() error {
	s.Scheduler.Stop()
	if err := s.Scheduler.Wait(); err != nil {
		log.Debug().Err(err).Msg("Scheduler exited with error")
	}

	if err := s.Buffer.Suppress(); err != nil {
		log.Warn().Err(err).Msg("Failed to blank strip")
	}
	return s.Buffer.Close()
}
