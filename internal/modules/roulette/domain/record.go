package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// PlayerRecord is a roster row; session state is not persisted.
type PlayerRecord struct {
	ID      string          `json:"id"`
	Balance decimal.Decimal `json:"balance"`
}

// BetRecord is one settled bet inside a RoundRecord.
type BetRecord struct {
	BetID    string          `json:"bet_id"`
	PlayerID string          `json:"player_id"`
	Kind     BetKind         `json:"kind"`
	Target   string          `json:"target"`
	Stake    decimal.Decimal `json:"stake"`
	Payout   decimal.Decimal `json:"payout"`
	PlacedAt time.Time       `json:"placed_at"`
}

// RoundRecord is the history entry appended once per settled round.
type RoundRecord struct {
	RoundID     string          `json:"round_id"`
	DrawnAt     time.Time       `json:"drawn_at"`
	Pocket      Pocket          `json:"pocket"`
	TotalStake  decimal.Decimal `json:"total_stake"`
	TotalPayout decimal.Decimal `json:"total_payout"`
	Bets        []BetRecord     `json:"bets"`
}

// RosterRepository stores player balances.
type RosterRepository interface {
	Load(ctx context.Context) ([]PlayerRecord, error)
	// Save overwrites the stored balances of the given players.
	Save(ctx context.Context, records []PlayerRecord) error
}

// HistoryRepository stores settled rounds.
type HistoryRepository interface {
	Append(ctx context.Context, record *RoundRecord) error
	// Recent returns up to limit rounds, newest first.
	Recent(ctx context.Context, limit int) ([]*RoundRecord, error)
}
