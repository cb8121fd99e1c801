package db

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/frankieli/roulette_table/internal/modules/roulette/domain"
)

type RosterRepository struct {
	db *gorm.DB
}

func NewRosterRepository(db *gorm.DB) *RosterRepository {
	return &RosterRepository{db: db}
}

func (r *RosterRepository) Load(ctx context.Context) ([]domain.PlayerRecord, error) {
	var rows []PlayerModel
	if err := r.db.WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load roster: %w", err)
	}

	records := make([]domain.PlayerRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, domain.PlayerRecord{ID: row.ID, Balance: row.Balance})
	}
	return records, nil
}

// Save upserts every record in one transaction.
func (r *RosterRepository) Save(ctx context.Context, records []domain.PlayerRecord) error {
	if len(records) == 0 {
		return nil
	}

	now := time.Now()
	rows := make([]PlayerModel, 0, len(records))
	for _, rec := range records {
		rows = append(rows, PlayerModel{ID: rec.ID, Balance: rec.Balance, UpdatedAt: now})
	}

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"balance", "updated_at"}),
		}).
		CreateInBatches(&rows, 200).Error
	if err != nil {
		return fmt.Errorf("failed to save roster: %w", err)
	}
	return nil
}
