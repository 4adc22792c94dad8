package repository

import (
	"context"
	"sync/atomic"
	"time"

	"reservas/internal/domain"

	"github.com/rs/zerolog"
)

// FailoverListingCache serves from the primary cache until it fails, then
// switches to the fallback and probes the primary again after a minute.
type FailoverListingCache struct {
	primary   domain.ListingCache
	fallback  domain.ListingCache
	logger    *zerolog.Logger
	isDown    atomic.Bool
	lastCheck time.Time
}

func NewFailoverListingCache(primary, fallback domain.ListingCache, logger *zerolog.Logger) *FailoverListingCache {
	return &FailoverListingCache{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

func (r *FailoverListingCache) markDown(err error) {
	r.logger.Error().Err(err).Msg("Primary listing cache failed, falling back to memory")
	r.isDown.Store(true)
	r.lastCheck = time.Now()
}

func (r *FailoverListingCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if !r.isDown.Load() {
		data, ok, err := r.primary.Get(ctx, key)
		if err == nil {
			return data, ok, nil
		}
		r.markDown(err)
	}

	// Try to recover after 1 minute
	if r.isDown.Load() && time.Since(r.lastCheck) > time.Minute {
		data, ok, err := r.primary.Get(ctx, key)
		if err == nil {
			r.isDown.Store(false)
			return data, ok, nil
		}
		r.lastCheck = time.Now()
	}

	return r.fallback.Get(ctx, key)
}

func (r *FailoverListingCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	if !r.isDown.Load() {
		err := r.primary.Set(ctx, key, data, ttl)
		if err == nil {
			return nil
		}
		r.markDown(err)
	}

	return r.fallback.Set(ctx, key, data, ttl)
}

func (r *FailoverListingCache) Invalidate(ctx context.Context) error {
	if !r.isDown.Load() {
		err := r.primary.Invalidate(ctx)
		if err == nil {
			// Clear the fallback too so a later switch does not serve
			// stale listings.
			return r.fallback.Invalidate(ctx)
		}
		r.markDown(err)
	}

	return r.fallback.Invalidate(ctx)
}

func (r *FailoverListingCache) CheckRateLimit(ctx context.Context, clientID string, limit int, window time.Duration) (bool, error) {
	if !r.isDown.Load() {
		allowed, err := r.primary.CheckRateLimit(ctx, clientID, limit, window)
		if err == nil {
			return allowed, nil
		}
		r.markDown(err)
	}

	return r.fallback.CheckRateLimit(ctx, clientID, limit, window)
}
