package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/buildertrades/internal/domain"
)

// SummaryCache implements domain.SummaryCache using JSON-serialized summaries
// under a shared key prefix, so a sync run can drop every cached variant at
// once.
//
// Key schema:
//
//	summary:{key} - JSON-encoded TradeSummary for one filter combination
type SummaryCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewSummaryCache creates a SummaryCache backed by the given Client. Entries
// expire after ttl.
func NewSummaryCache(c *Client, ttl time.Duration) *SummaryCache {
	return &SummaryCache{rdb: c.rdb, ttl: ttl}
}

func summaryKey(key string) string { return "summary:" + key }

// Get retrieves a cached summary. The second return value reports whether the
// key was present.
func (sc *SummaryCache) Get(ctx context.Context, key string) (domain.TradeSummary, bool, error) {
	data, err := sc.rdb.Get(ctx, summaryKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.TradeSummary{}, false, nil
		}
		return domain.TradeSummary{}, false, fmt.Errorf("redis: get summary %s: %w", key, err)
	}

	var summary domain.TradeSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		return domain.TradeSummary{}, false, fmt.Errorf("redis: unmarshal summary %s: %w", key, err)
	}
	return summary, true, nil
}

// Set stores a summary under the given key with the configured TTL.
func (sc *SummaryCache) Set(ctx context.Context, key string, summary domain.TradeSummary) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("redis: marshal summary %s: %w", key, err)
	}
	if err := sc.rdb.Set(ctx, summaryKey(key), data, sc.ttl).Err(); err != nil {
		return fmt.Errorf("redis: set summary %s: %w", key, err)
	}
	return nil
}

// Invalidate removes every cached summary. Called after each successful sync
// so the dashboard never serves pre-sync aggregates.
func (sc *SummaryCache) Invalidate(ctx context.Context) error {
	iter := sc.rdb.Scan(ctx, 0, summaryKey("*"), 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis: scan summaries: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := sc.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis: invalidate summaries: %w", err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.SummaryCache = (*SummaryCache)(nil)
