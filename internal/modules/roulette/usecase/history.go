package usecase

import (
	"context"
	"time"

	"github.com/frankieli/roulette_table/internal/modules/roulette/domain"
	"github.com/frankieli/roulette_table/internal/modules/roulette/machine"
	"github.com/frankieli/roulette_table/pkg/logger"
)

// HistoryRecorder appends every settled round to the history store.
type HistoryRecorder struct {
	repo    domain.HistoryRepository
	timeout time.Duration
}

// NewHistoryRecorder creates a recorder and registers it with the driver.
func NewHistoryRecorder(repo domain.HistoryRepository, sm *machine.StateMachine) *HistoryRecorder {
	h := &HistoryRecorder{repo: repo, timeout: 5 * time.Second}
	sm.RegisterEventHandler(h.handleGameEvent)
	return h
}

func (h *HistoryRecorder) handleGameEvent(event machine.GameEvent) {
	if event.Type != domain.EventResult || event.Record == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()
	ctx = logger.WithRound(ctx, event.RoundID)

	if err := h.repo.Append(ctx, event.Record); err != nil {
		logger.Error(ctx).Err(err).Msg("failed to record round")
		return
	}
	logger.Debug(ctx).Int("bets", len(event.Record.Bets)).Msg("round recorded")
}
