package db

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/frankieli/roulette_table/internal/modules/roulette/domain"
)

// PlayerModel is a roster row
type PlayerModel struct {
	ID        string          `gorm:"primaryKey;type:varchar(64)"`
	Balance   decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	UpdatedAt time.Time       `gorm:"autoUpdateTime:false"`
}

// TableName overrides the table name
func (PlayerModel) TableName() string {
	return "players"
}

// RoundModel is a settled round
type RoundModel struct {
	RoundID     string          `gorm:"primaryKey;type:varchar(64)"`
	DrawnAt     time.Time       `gorm:"index;not null"`
	Pocket      int             `gorm:"not null"`
	Color       string          `gorm:"type:varchar(16);not null"`
	Dozen       int             `gorm:"not null"`
	TotalStake  decimal.Decimal `gorm:"type:decimal(18,2);default:0"`
	TotalPayout decimal.Decimal `gorm:"type:decimal(18,2);default:0"`
	Bets        []BetModel      `gorm:"foreignKey:RoundID;references:RoundID"`
}

// TableName overrides the table name
func (RoundModel) TableName() string {
	return "rounds"
}

// BetModel is one settled bet of a round
type BetModel struct {
	BetID    string          `gorm:"primaryKey;type:varchar(64)"`
	RoundID  string          `gorm:"index;type:varchar(64);not null"`
	PlayerID string          `gorm:"index;type:varchar(64);not null"`
	Kind     string          `gorm:"type:varchar(16);not null"`
	Target   string          `gorm:"type:varchar(16);not null"`
	Stake    decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Payout   decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	PlacedAt time.Time
}

// TableName overrides the table name
func (BetModel) TableName() string {
	return "round_bets"
}

func toRoundModel(r *domain.RoundRecord) *RoundModel {
	m := &RoundModel{
		RoundID:     r.RoundID,
		DrawnAt:     r.DrawnAt,
		Pocket:      r.Pocket.Number,
		Color:       string(r.Pocket.Color),
		Dozen:       r.Pocket.Dozen,
		TotalStake:  r.TotalStake,
		TotalPayout: r.TotalPayout,
		Bets:        make([]BetModel, 0, len(r.Bets)),
	}
	for _, b := range r.Bets {
		m.Bets = append(m.Bets, BetModel{
			BetID:    b.BetID,
			RoundID:  r.RoundID,
			PlayerID: b.PlayerID,
			Kind:     string(b.Kind),
			Target:   b.Target,
			Stake:    b.Stake,
			Payout:   b.Payout,
			PlacedAt: b.PlacedAt,
		})
	}
	return m
}

func (m *RoundModel) toRecord() (*domain.RoundRecord, error) {
	pocket, err := domain.NewPocket(m.Pocket)
	if err != nil {
		return nil, err
	}
	r := &domain.RoundRecord{
		RoundID:     m.RoundID,
		DrawnAt:     m.DrawnAt,
		Pocket:      pocket,
		TotalStake:  m.TotalStake,
		TotalPayout: m.TotalPayout,
		Bets:        make([]domain.BetRecord, 0, len(m.Bets)),
	}
	for _, b := range m.Bets {
		r.Bets = append(r.Bets, domain.BetRecord{
			BetID:    b.BetID,
			PlayerID: b.PlayerID,
			Kind:     domain.BetKind(b.Kind),
			Target:   b.Target,
			Stake:    b.Stake,
			Payout:   b.Payout,
			PlacedAt: b.PlacedAt,
		})
	}
	return r, nil
}
