// Package memory provides in-process roster and history stores.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/frankieli/roulette_table/internal/modules/roulette/domain"
)

// RosterRepository implements domain.RosterRepository using memory
type RosterRepository struct {
	mu       sync.RWMutex
	balances map[string]domain.PlayerRecord
}

// NewRosterRepository creates an empty roster
func NewRosterRepository() *RosterRepository {
	return &RosterRepository{balances: make(map[string]domain.PlayerRecord)}
}

func (r *RosterRepository) Load(ctx context.Context) ([]domain.PlayerRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	records := make([]domain.PlayerRecord, 0, len(r.balances))
	for _, rec := range r.balances {
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
	return records, nil
}

func (r *RosterRepository) Save(ctx context.Context, records []domain.PlayerRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, rec := range records {
		r.balances[rec.ID] = rec
	}
	return nil
}

// HistoryRepository implements domain.HistoryRepository using memory,
// keeping the last maxLen rounds.
type HistoryRepository struct {
	mu     sync.RWMutex
	rounds []*domain.RoundRecord
	maxLen int
}

// NewHistoryRepository creates an empty history
func NewHistoryRepository(maxLen int) *HistoryRepository {
	if maxLen <= 0 {
		maxLen = 1000
	}
	return &HistoryRepository{maxLen: maxLen}
}

func (r *HistoryRepository) Append(ctx context.Context, record *domain.RoundRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.rounds = append(r.rounds, record)
	if len(r.rounds) > r.maxLen {
		r.rounds = r.rounds[len(r.rounds)-r.maxLen:]
	}
	return nil
}

func (r *HistoryRepository) Recent(ctx context.Context, limit int) ([]*domain.RoundRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if limit > len(r.rounds) {
		limit = len(r.rounds)
	}
	out := make([]*domain.RoundRecord, 0, limit)
	for i := len(r.rounds) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, r.rounds[i])
	}
	return out, nil
}
