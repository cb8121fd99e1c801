// Package redis keeps the recent round history in a capped redis list.
package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/frankieli/roulette_table/internal/modules/roulette/domain"
	"github.com/frankieli/roulette_table/pkg/logger"
)

const defaultHistoryKey = "roulette:history"

// HistoryRepository implements domain.HistoryRepository on a redis list,
// newest round first.
type HistoryRepository struct {
	rdb    *redis.Client
	key    string
	maxLen int64
}

// NewHistoryRepository creates a redis history keeping at most maxLen
// rounds.
func NewHistoryRepository(rdb *redis.Client, maxLen int64) *HistoryRepository {
	if maxLen <= 0 {
		maxLen = 1000
	}
	return &HistoryRepository{
		rdb:    rdb,
		key:    defaultHistoryKey,
		maxLen: maxLen,
	}
}

func (r *HistoryRepository) Append(ctx context.Context, record *domain.RoundRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}

	pipe := r.rdb.TxPipeline()
	pipe.LPush(ctx, r.key, data)
	pipe.LTrim(ctx, r.key, 0, r.maxLen-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to append round %s: %w", record.RoundID, err)
	}
	return nil
}

func (r *HistoryRepository) Recent(ctx context.Context, limit int) ([]*domain.RoundRecord, error) {
	if limit <= 0 {
		return []*domain.RoundRecord{}, nil
	}
	items, err := r.rdb.LRange(ctx, r.key, 0, int64(limit)-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}

	records := make([]*domain.RoundRecord, 0, len(items))
	for _, item := range items {
		var rec domain.RoundRecord
		if err := json.Unmarshal([]byte(item), &rec); err != nil {
			logger.Warn(ctx).Err(err).Str("key", r.key).Str("entry", item).Msg("skipping corrupt history entry")
			continue
		}
		records = append(records, &rec)
	}
	return records, nil
}
