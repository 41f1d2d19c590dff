package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/stripd/internal/catalog"
	"github.com/dokzlo13/stripd/internal/color"
	"github.com/dokzlo13/stripd/internal/config"
	"github.com/dokzlo13/stripd/internal/control"
	"github.com/dokzlo13/stripd/internal/supplier"
)

// poller is a supplier that refreshes itself in the background.
type poller interface {
	Key() string
	Run(ctx context.Context) error
}

// SourceService owns the named suppliers patterns read from: Redis-polled
// keys and slots fed through the control API. It also owns the catalog that
// resolves them by name.
type SourceService struct {
	cfg *config.Config

	Redis   *redis.Client
	API     control.Sources
	Catalog *catalog.Catalog

	pollers []poller
	wg      sync.WaitGroup
}

// NewSourceService registers every configured supplier. A name may be fed by
// Redis or by the API, not both.
func NewSourceService(cfg *config.Config) (*SourceService, error) {
	s := &SourceService{
		cfg: cfg,
		API: control.Sources{
			Colors:   make(map[string]*supplier.Value[color.Color]),
			Headings: make(map[string]*supplier.Value[float64]),
		},
		Catalog: &catalog.Catalog{
			Length:        cfg.Strip.Length,
			Colors:        make(map[string]supplier.Supplier[color.Color]),
			Headings:      make(map[string]supplier.Supplier[float64]),
			ScriptTimeout: cfg.Strip.TickInterval.Duration(),
		},
	}

	if cfg.Redis.Enabled() {
		s.Redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		interval := cfg.Redis.PollInterval.Duration()

		for name, key := range cfg.Redis.Colors {
			p := supplier.NewRedisPoller(s.Redis, key, interval, color.Parse)
			s.Catalog.Colors[name] = p
			s.pollers = append(s.pollers, p)
		}
		for name, key := range cfg.Redis.Headings {
			p := supplier.NewRedisPoller(s.Redis, key, interval, supplier.ParseFloat)
			s.Catalog.Headings[name] = p
			s.pollers = append(s.pollers, p)
		}
	}

	for _, name := range cfg.Control.Colors {
		if _, ok := s.Catalog.Colors[name]; ok {
			s.Close()
			return nil, fmt.Errorf("color source %q is defined twice", name)
		}
		v := &supplier.Value[color.Color]{}
		s.API.Colors[name] = v
		s.Catalog.Colors[name] = v
	}
	for _, name := range cfg.Control.Headings {
		if _, ok := s.Catalog.Headings[name]; ok {
			s.Close()
			return nil, fmt.Errorf("heading source %q is defined twice", name)
		}
		v := &supplier.Value[float64]{}
		s.API.Headings[name] = v
		s.Catalog.Headings[name] = v
	}

	log.Debug().
		Int("colors", len(s.Catalog.Colors)).
		Int("headings", len(s.Catalog.Headings)).
		Msg("Sources registered")

	return s, nil
}

// Start launches one goroutine per Redis poller.
func (s *SourceService) Start(ctx context.Context) {
	if s.Redis == nil {
		return
	}

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	if err := s.Redis.Ping(pingCtx).Err(); err != nil {
		log.Warn().Err(err).Str("addr", s.cfg.Redis.Addr).Msg("Redis is not reachable yet, pollers will keep retrying")
	}
	cancel()

	for _, p := range s.pollers {
		s.wg.Add(1)
		go func(p poller) {
			defer s.wg.Done()
			if err := p.Run(ctx); err != nil {
				log.Error().Err(err).Str("key", p.Key()).Msg("Redis poller error")
			}
		}(p)
	}
}

// Close waits for pollers to exit and closes the Redis client.
// The application context must already be cancelled.
func (s *SourceService) Close() {
	s.wg.Wait()
	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close Redis client")
		}
	}
}
