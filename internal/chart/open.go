package chart

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/roach88/chartkeep/internal/audit"
	"github.com/roach88/chartkeep/internal/config"
	"github.com/roach88/chartkeep/internal/kv"
)

// OpenStore opens the key-value backend cfg names.
func OpenStore(ctx context.Context, cfg *config.Config) (kv.Store, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		return kv.NewMemory(), nil
	case config.BackendSQLite:
		s, err := kv.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.BackendRedis:
		r, err := kv.OpenRedis(ctx, kv.RedisOptions{
			Addr:      cfg.RedisAddr,
			Password:  cfg.RedisPassword,
			DB:        cfg.RedisDB,
			Namespace: cfg.RedisPrefix,
		})
		if err != nil {
			return nil, err
		}
		return r, nil
	default:
		return nil, fmt.Errorf("%w: unknown backend %q", config.ErrInvalid, cfg.Backend)
	}
}

// Open opens the configured backend and returns a Manager over it with the
// configured actor as current user.
func Open(ctx context.Context, cfg *config.Config, logger zerolog.Logger, opts ...Option) (*Manager, error) {
	store, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Backend, err)
	}

	opts = append([]Option{WithQuietPeriod(cfg.AutosaveQuiet), WithLogger(logger)}, opts...)
	m := New(ctx, store, opts...)
	if cfg.ActorID != "" {
		m.SetCurrentUser(audit.User{ID: cfg.ActorID, Label: cfg.ActorLabel})
	}

	logger.Debug().Str("backend", cfg.Backend).Msg("store opened")
	return m, nil
}
