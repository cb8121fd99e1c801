package payout

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/frankieli/roulette_table/internal/modules/roulette/domain"
	"github.com/frankieli/roulette_table/pkg/logger"
)

// Sessions resolves the live channels of connected players.
type Sessions interface {
	Channel(id string) (domain.Channel, bool)
	Online() map[string]domain.Channel
}

// Submitter runs a task on a worker pool.
type Submitter interface {
	Submit(ctx context.Context, task func()) error
}

// Engine settles closed rounds: one pool task per participant credits the
// payout and notifies the player, and Settle returns only when every task
// has finished.
type Engine struct {
	sessions      Sessions
	pool          Submitter
	notifyTimeout time.Duration
}

// NewEngine creates a payout engine. notifyTimeout bounds each send to a
// player's channel.
func NewEngine(sessions Sessions, pool Submitter, notifyTimeout time.Duration) *Engine {
	if notifyTimeout <= 0 {
		notifyTimeout = 2 * time.Second
	}
	return &Engine{
		sessions:      sessions,
		pool:          pool,
		notifyTimeout: notifyTimeout,
	}
}

type playerResult struct {
	playerID string
	payout   decimal.Decimal
	bets     []domain.BetRecord
}

// Settle credits every bettor and sends the outcome to every participant:
// the bettors plus whoever else is connected. Balances are credited even
// when notification fails.
func (e *Engine) Settle(ctx context.Context, roundID string, pocket domain.Pocket, bets []domain.PlayerBets) *domain.RoundRecord {
	ctx = logger.WithRound(ctx, roundID)

	participants := make(map[string]domain.PlayerBets, len(bets))
	for _, pb := range bets {
		participants[pb.Player.ID()] = pb
	}
	var spectators []string
	for id := range e.sessions.Online() {
		if _, ok := participants[id]; !ok {
			spectators = append(spectators, id)
		}
	}

	results := make([]playerResult, len(bets))
	var wg sync.WaitGroup

	run := func(task func()) {
		wg.Add(1)
		wrapped := func() {
			defer wg.Done()
			task()
		}
		if err := e.pool.Submit(ctx, wrapped); err != nil {
			// the balance must still be credited
			logger.Warn(ctx).Err(err).Msg("worker pool unavailable, settling inline")
			wrapped()
		}
	}

	for i, pb := range bets {
		i, pb := i, pb
		run(func() { results[i] = e.settlePlayer(ctx, roundID, pocket, pb) })
	}
	for _, id := range spectators {
		id := id
		run(func() {
			e.notify(logger.WithPlayer(ctx, id), id, domain.Event{Type: domain.EventResult, RoundID: roundID, Pocket: &pocket})
		})
	}
	wg.Wait()

	record := &domain.RoundRecord{
		RoundID:     roundID,
		DrawnAt:     time.Now(),
		Pocket:      pocket,
		TotalStake:  decimal.Zero,
		TotalPayout: decimal.Zero,
	}
	for _, r := range results {
		record.TotalPayout = record.TotalPayout.Add(r.payout)
		for _, b := range r.bets {
			record.TotalStake = record.TotalStake.Add(b.Stake)
			record.Bets = append(record.Bets, b)
		}
	}
	sort.SliceStable(record.Bets, func(i, j int) bool { return record.Bets[i].PlacedAt.Before(record.Bets[j].PlacedAt) })

	logger.Info(ctx).
		Int("players", len(bets)).
		Int("spectators", len(spectators)).
		Int("bets", len(record.Bets)).
		Str("pocket", pocket.String()).
		Str("total_stake", record.TotalStake.String()).
		Str("total_payout", record.TotalPayout.String()).
		Msg("round settled")

	return record
}

func (e *Engine) settlePlayer(ctx context.Context, roundID string, pocket domain.Pocket, pb domain.PlayerBets) playerResult {
	player := pb.Player
	ctx = logger.WithPlayer(ctx, player.ID())

	result := playerResult{
		playerID: player.ID(),
		payout:   decimal.Zero,
		bets:     make([]domain.BetRecord, 0, len(pb.Bets)),
	}
	for _, bet := range pb.Bets {
		won, err := Payout(pocket, bet)
		if err != nil {
			logger.Warn(ctx).Err(err).Str("bet_id", bet.ID).Msg("malformed bet settled as a loss")
		}
		result.payout = result.payout.Add(won)
		result.bets = append(result.bets, domain.BetRecord{
			BetID:    bet.ID,
			PlayerID: player.ID(),
			Kind:     bet.Kind,
			Target:   bet.Target,
			Stake:    bet.Stake,
			Payout:   won,
			PlacedAt: bet.PlacedAt,
		})
	}

	balance := player.Balance()
	if result.payout.IsPositive() {
		var err error
		balance, err = player.Credit(result.payout)
		if err != nil {
			logger.Error(ctx).Err(err).Msg("failed to credit payout")
		}
	}

	e.notify(ctx, player.ID(),
		domain.Event{Type: domain.EventResult, RoundID: roundID, Pocket: &pocket},
		domain.Event{
			Type:    domain.EventPayout,
			RoundID: roundID,
			Amount:  domain.Amounts(result.payout),
			Balance: domain.Amounts(balance),
		},
	)
	return result
}

// notify is best-effort: a missing or failing channel is logged. ctx is
// expected to carry the player id.
func (e *Engine) notify(ctx context.Context, playerID string, events ...domain.Event) {
	ch, ok := e.sessions.Channel(playerID)
	if !ok {
		logger.Debug(ctx).Msg("player offline, outcome not delivered")
		return
	}

	sendCtx, cancel := context.WithTimeout(ctx, e.notifyTimeout)
	defer cancel()

	for _, ev := range events {
		if err := ch.Send(sendCtx, ev); err != nil {
			event := logger.Warn(ctx)
			if errors.Is(err, context.DeadlineExceeded) {
				event = event.Bool("timeout", true)
			}
			event.Err(err).Str("event", string(ev.Type)).Msg("failed to notify player")
			return
		}
	}
}
