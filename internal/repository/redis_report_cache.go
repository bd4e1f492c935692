package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"VolTune/internal/domain/models"
	"VolTune/internal/domain/repository"
	"VolTune/pkg/cache"
)

// ErrRunNotFound reports an unknown run ID.
var ErrRunNotFound = errors.New("repository: run not found")

// RedisReportCache persists finished run state so API reads survive restarts.
type RedisReportCache struct {
	cache cache.Service
	ttl   time.Duration
}

// NewRedisReportCache creates the report cache.
func NewRedisReportCache(c cache.Service, ttl time.Duration) repository.ReportCache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisReportCache{cache: c, ttl: ttl}
}

func runKey(runID string) string { return cache.GenerateKey("run", runID) }

func (r *RedisReportCache) SaveRun(ctx context.Context, state *models.RunState) error {
	if state == nil || state.RunID == "" {
		return fmt.Errorf("repository: invalid run state")
	}
	return r.cache.Set(ctx, runKey(state.RunID), state, r.ttl)
}

func (r *RedisReportCache) GetRun(ctx context.Context, runID string) (*models.RunState, error) {
	var state models.RunState
	if err := r.cache.Get(ctx, runKey(runID), &state); err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return nil, ErrRunNotFound
		}
		return nil, err
	}
	return &state, nil
}

func (r *RedisReportCache) Health(ctx context.Context) error {
	_, err := r.cache.Exists(ctx, "health")
	return err
}
