package db

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/frankieli/roulette_table/internal/modules/roulette/domain"
)

type HistoryRepository struct {
	db *gorm.DB
}

func NewHistoryRepository(db *gorm.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// Append stores the round and its bets together.
func (r *HistoryRepository) Append(ctx context.Context, record *domain.RoundRecord) error {
	model := toRoundModel(record)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(model).Error
	})
	if err != nil {
		return fmt.Errorf("failed to append round %s: %w", record.RoundID, err)
	}
	return nil
}

func (r *HistoryRepository) Recent(ctx context.Context, limit int) ([]*domain.RoundRecord, error) {
	var rows []RoundModel
	err := r.db.WithContext(ctx).
		Preload("Bets", func(db *gorm.DB) *gorm.DB { return db.Order("placed_at") }).
		Order("drawn_at desc").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}

	records := make([]*domain.RoundRecord, 0, len(rows))
	for i := range rows {
		rec, err := rows[i].toRecord()
		if err != nil {
			return nil, fmt.Errorf("corrupt round %s: %w", rows[i].RoundID, err)
		}
		records = append(records, rec)
	}
	return records, nil
}
