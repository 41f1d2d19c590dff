package supplier

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// RedisPoller mirrors a Redis string key into memory on a fixed interval.
// Supply never touches the network; it returns the last decoded value.
type RedisPoller[T any] struct {
	client   redis.Cmdable
	key      string
	interval time.Duration
	decode   func(string) (T, error)

	value Value[T]
}

// NewRedisPoller creates a poller for key. decode turns the raw string into T.
func NewRedisPoller[T any](client redis.Cmdable, key string, interval time.Duration, decode func(string) (T, error)) *RedisPoller[T] {
	if interval <= 0 {
		interval = time.Second
	}
	return &RedisPoller[T]{
		client:   client,
		key:      key,
		interval: interval,
		decode:   decode,
	}
}

// Key returns the polled key.
func (p *RedisPoller[T]) Key() string {
	return p.key
}

// Supply returns the cached value, or ErrNoValue before the first successful poll.
func (p *RedisPoller[T]) Supply() (T, error) {
	return p.value.Supply()
}

// Poll fetches and decodes the key once. A missing key keeps the cached value.
func (p *RedisPoller[T]) Poll(ctx context.Context) error {
	raw, err := p.client.Get(ctx, p.key).Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("redis get %s: %w", p.key, err)
	}

	v, err := p.decode(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("decode %s: %w", p.key, err)
	}
	p.value.Set(v)
	return nil
}

// Run polls until ctx is cancelled. Poll errors are logged and retried on the
// next interval.
func (p *RedisPoller[T]) Run(ctx context.Context) error {
	log.Info().Str("key", p.key).Dur("interval", p.interval).Msg("Redis poller started")

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		if err := p.Poll(ctx); err != nil && ctx.Err() == nil {
			log.Warn().Err(err).Str("key", p.key).Msg("Redis poll failed")
		}

		select {
		case <-ctx.Done():
			log.Info().Str("key", p.key).Msg("Redis poller stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// ParseFloat decodes a plain decimal number.
func ParseFloat(s string) (float64, error) {
	return strconv.ParseFloat(s, 64)
}
