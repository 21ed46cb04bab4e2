// Package cache stores computed summaries in Redis together with a bounded
// recency index. Cache I/O is best-effort: failures are logged here and
// degrade to a miss or a no-op, never to a pipeline failure.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/compresso/core/internal/models"
	redisc "github.com/compresso/core/internal/pkg/redis"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	keyPrefix = "summary:"
	// recentKey is the ZSET mapping cache keys to insertion time. Only
	// writes that opt in (id-keyed permalink entries) are members; plain
	// fingerprint writes stay out of it.
	recentKey = "summary:recent"
)

// Service is the Redis-backed result cache.
type Service struct {
	rc       *redisc.Client
	logger   *zap.Logger
	capacity int
}

func NewService(rc *redisc.Client, logger *zap.Logger, capacity int) *Service {
	return &Service{rc: rc, logger: logger, capacity: capacity}
}

// Capacity returns the configured recency-index bound.
func (s *Service) Capacity() int { return s.capacity }

func (s *Service) valueKey(key string) string { return keyPrefix + key }

// Get returns the cached result for key, or nil when absent. A Redis or
// decode failure is logged and reported as a miss.
func (s *Service) Get(ctx context.Context, key string) *models.SummaryResult {
	data, err := s.rc.Get(ctx, s.valueKey(key))
	if err != nil {
		s.logger.Error("cache get failed", zap.String("key", key), zap.Error(err))
		return nil
	}
	if data == "" {
		return nil
	}
	var result models.SummaryResult
	if err := json.Unmarshal([]byte(data), &result); err != nil {
		s.logger.Error("cache entry decode failed", zap.String("key", key), zap.Error(err))
		return nil
	}
	return &result
}

// Put stores a result under key with no expiry. When addToRecency is set the
// key also enters the recency index at the current timestamp and the index
// is immediately trimmed to capacity.
func (s *Service) Put(ctx context.Context, key string, result *models.SummaryResult, addToRecency bool) {
	data, err := json.Marshal(result)
	if err != nil {
		s.logger.Error("cache entry encode failed", zap.String("key", key), zap.Error(err))
		return
	}
	if err := s.rc.Set(ctx, s.valueKey(key), data, 0); err != nil {
		s.logger.Error("cache set failed", zap.String("key", key), zap.Error(err))
		return
	}

	if addToRecency {
		score := float64(time.Now().UTC().UnixNano()) / float64(time.Second)
		if err := s.rc.ZAdd(ctx, recentKey, key, score); err != nil {
			s.logger.Error("recency index add failed", zap.String("key", key), zap.Error(err))
			return
		}
		s.TrimToLimit(ctx, s.capacity)
	}

	s.logger.Info("cached summary",
		zap.String("key", key),
		zap.Bool("recency", addToRecency),
	)
}

// ListRecent returns up to limit results, newest first. Index entries whose
// value has vanished are skipped silently.
func (s *Service) ListRecent(ctx context.Context, limit int) []*models.SummaryResult {
	if limit <= 0 {
		return nil
	}
	keys, err := s.rc.ZRevRange(ctx, recentKey, 0, int64(limit)-1)
	if err != nil {
		s.logger.Error("recency index read failed", zap.Error(err))
		return nil
	}

	results := make([]*models.SummaryResult, 0, len(keys))
	for _, key := range keys {
		if result := s.Get(ctx, key); result != nil {
			results = append(results, result)
		}
	}
	return results
}

// TrimToLimit evicts the oldest entries beyond limit, removing the index
// member and the value entry together so no orphans remain.
func (s *Service) TrimToLimit(ctx context.Context, limit int) {
	count, err := s.rc.ZCard(ctx, recentKey)
	if err != nil {
		s.logger.Error("recency index card failed", zap.Error(err))
		return
	}
	if count <= int64(limit) {
		return
	}

	toRemove, err := s.rc.ZRange(ctx, recentKey, 0, count-int64(limit)-1)
	if err != nil {
		s.logger.Error("recency index range failed", zap.Error(err))
		return
	}
	if len(toRemove) == 0 {
		return
	}

	pipe := s.rc.Raw().TxPipeline()
	members := make([]interface{}, 0, len(toRemove))
	valueKeys := make([]string, 0, len(toRemove))
	for _, key := range toRemove {
		members = append(members, key)
		valueKeys = append(valueKeys, s.valueKey(key))
	}
	pipe.ZRem(ctx, recentKey, members...)
	pipe.Del(ctx, valueKeys...)
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		s.logger.Error("cache trim failed", zap.Error(err))
		return
	}
	s.logger.Info("trimmed cache entries", zap.Int("count", len(toRemove)))
}

// Delete removes a key from both the recency index and the value map.
func (s *Service) Delete(ctx context.Context, key string) {
	if err := s.rc.ZRem(ctx, recentKey, key); err != nil {
		s.logger.Error("recency index remove failed", zap.String("key", key), zap.Error(err))
	}
	if err := s.rc.Del(ctx, s.valueKey(key)); err != nil {
		s.logger.Error("cache delete failed", zap.String("key", key), zap.Error(err))
	}
}
