// Package usecase implements the session-facing table operations of the
// roulette module.
package usecase

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"github.com/frankieli/roulette_table/internal/modules/roulette/domain"
	"github.com/frankieli/roulette_table/internal/modules/roulette/machine"
	"github.com/frankieli/roulette_table/internal/modules/roulette/registry"
	"github.com/frankieli/roulette_table/pkg/logger"
)

// TableConfig holds the table limits
type TableConfig struct {
	MaxStake      decimal.Decimal
	MaxDeposit    decimal.Decimal
	MaxOpeningBal decimal.Decimal
}

// Snapshotter persists the roster in the background.
type Snapshotter interface {
	Trigger()
}

// TableUseCase handles player actions at the table
type TableUseCase struct {
	registry *registry.Registry
	coord    *machine.Coordinator
	history  domain.HistoryRepository
	roster   Snapshotter
	cfg      TableConfig

	historyGroup singleflight.Group
}

// NewTableUseCase creates a new table use case. history and roster may be
// nil.
func NewTableUseCase(reg *registry.Registry, coord *machine.Coordinator, history domain.HistoryRepository, roster Snapshotter, cfg TableConfig) *TableUseCase {
	return &TableUseCase{
		registry: reg,
		coord:    coord,
		history:  history,
		roster:   roster,
		cfg:      cfg,
	}
}

// PlayerState is what a player sees of the table
type PlayerState struct {
	RoundID string
	Phase   machine.Phase
	Balance decimal.Decimal
	Bets    []*domain.Bet
}

// TableState is the public view of the table
type TableState struct {
	RoundID   string        `json:"round_id"`
	Phase     machine.Phase `json:"phase"`
	TotalBets int           `json:"total_bets"`
	Online    int           `json:"online"`
	Players   int           `json:"players"`
}

// PlayerInfo is the public view of one player
type PlayerInfo struct {
	ID      string          `json:"id"`
	Balance decimal.Decimal `json:"balance"`
	Online  bool            `json:"online"`
}

func normalizeID(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", fmt.Errorf("%w: empty id", domain.ErrInvalidPlayer)
	}
	return id, nil
}

// Login connects an existing player to ch.
func (uc *TableUseCase) Login(ctx context.Context, id string, ch domain.Channel) (*domain.Player, error) {
	id, err := normalizeID(id)
	if err != nil {
		return nil, err
	}

	player, err := uc.registry.Login(id, ch)
	if err != nil {
		logger.Info(ctx).Err(err).Str("player_id", id).Msg("login rejected")
		return nil, err
	}

	logger.Info(ctx).
		Str("player_id", id).
		Str("session_id", ch.SessionID()).
		Str("balance", player.Balance().String()).
		Msg("player logged in")
	return player, nil
}

// Register creates a player with an opening balance and connects it to ch.
func (uc *TableUseCase) Register(ctx context.Context, id string, balance decimal.Decimal, ch domain.Channel) (*domain.Player, error) {
	id, err := normalizeID(id)
	if err != nil {
		return nil, err
	}
	if balance.IsNegative() {
		return nil, fmt.Errorf("%w: negative opening balance", domain.ErrInvalidAmount)
	}
	if uc.cfg.MaxOpeningBal.IsPositive() && balance.GreaterThan(uc.cfg.MaxOpeningBal) {
		return nil, fmt.Errorf("%w: opening balance above %s", domain.ErrInvalidAmount, uc.cfg.MaxOpeningBal)
	}

	player, err := uc.registry.RegisterAndConnect(id, balance, ch)
	if err != nil {
		logger.Info(ctx).Err(err).Str("player_id", id).Msg("registration rejected")
		return nil, err
	}

	logger.Info(ctx).
		Str("player_id", id).
		Str("balance", balance.String()).
		Msg("player registered")
	return player, nil
}

// PlaceBet validates the bet and places it on the round in progress.
// Returns the bet and the balance after the stake was reserved.
func (uc *TableUseCase) PlaceBet(ctx context.Context, player *domain.Player, kind, target string, stake decimal.Decimal) (*domain.Bet, decimal.Decimal, error) {
	betKind, ok := domain.ParseBetKind(kind)
	if !ok {
		return nil, player.Balance(), fmt.Errorf("%w: unknown kind %q", domain.ErrInvalidBet, kind)
	}
	if err := domain.ValidateTarget(betKind, target); err != nil {
		return nil, player.Balance(), err
	}

	view := uc.coord.Current()
	if view.Phase != machine.PhaseOpen {
		return nil, player.Balance(), domain.ErrTableClosed
	}

	bet, err := domain.NewBet(view.RoundID, player, betKind, strings.ToUpper(strings.TrimSpace(target)), stake, uc.cfg.MaxStake)
	if err != nil {
		return nil, player.Balance(), err
	}

	balance, err := uc.coord.PlaceBet(player, bet)
	if err != nil {
		logger.Debug(ctx).Err(err).Str("kind", string(betKind)).Str("target", bet.Target).Msg("bet rejected")
		return nil, balance, err
	}

	logger.Info(ctx).
		Str("round_id", bet.RoundID).
		Str("bet_id", bet.ID).
		Str("kind", string(bet.Kind)).
		Str("target", bet.Target).
		Str("stake", stake.String()).
		Msg("bet accepted")
	return bet, balance, nil
}

// AddFunds credits a deposit to the player.
func (uc *TableUseCase) AddFunds(ctx context.Context, player *domain.Player, amount decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return player.Balance(), fmt.Errorf("%w: deposit must be positive", domain.ErrInvalidAmount)
	}
	if uc.cfg.MaxDeposit.IsPositive() && amount.GreaterThan(uc.cfg.MaxDeposit) {
		return player.Balance(), fmt.Errorf("%w: deposit above %s", domain.ErrInvalidAmount, uc.cfg.MaxDeposit)
	}

	balance, err := player.Credit(amount)
	if err != nil {
		return balance, err
	}
	logger.Info(ctx).Str("amount", amount.String()).Str("balance", balance.String()).Msg("funds added")
	return balance, nil
}

// Leave ends the player's session on ch and schedules a roster snapshot.
// A stale ch never evicts a newer session.
func (uc *TableUseCase) Leave(ctx context.Context, player *domain.Player, ch domain.Channel) {
	if player == nil {
		return
	}
	if uc.registry.DisconnectSession(player, ch) {
		logger.Info(ctx).Str("balance", player.Balance().String()).Msg("player left")
	}
	if uc.roster != nil {
		uc.roster.Trigger()
	}
}

// State returns the player's view of the current round.
func (uc *TableUseCase) State(player *domain.Player) PlayerState {
	view := uc.coord.Current()
	return PlayerState{
		RoundID: view.RoundID,
		Phase:   view.Phase,
		Balance: player.Balance(),
		Bets:    uc.coord.BetsOf(player.ID()),
	}
}

// Table returns the public table view.
func (uc *TableUseCase) Table() TableState {
	view := uc.coord.Current()
	return TableState{
		RoundID:   view.RoundID,
		Phase:     view.Phase,
		TotalBets: view.TotalBets,
		Online:    len(uc.registry.Online()),
		Players:   uc.registry.Len(),
	}
}

// Player returns the public view of one player.
func (uc *TableUseCase) Player(id string) (PlayerInfo, error) {
	p, ok := uc.registry.FindByID(id)
	if !ok {
		return PlayerInfo{}, domain.ErrPlayerNotFound
	}
	return PlayerInfo{ID: p.ID(), Balance: p.Balance(), Online: uc.registry.IsOnline(id)}, nil
}

// RecentRounds returns up to limit settled rounds, newest first.
func (uc *TableUseCase) RecentRounds(ctx context.Context, limit int) ([]*domain.RoundRecord, error) {
	if uc.history == nil {
		return []*domain.RoundRecord{}, nil
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	// concurrent readers of the same page share one store query
	val, err, _ := uc.historyGroup.Do(strconv.Itoa(limit), func() (interface{}, error) {
		return uc.history.Recent(ctx, limit)
	})
	if err != nil {
		return nil, err
	}
	return val.([]*domain.RoundRecord), nil
}

// Coordinator exposes the round gates to session loops.
func (uc *TableUseCase) Coordinator() *machine.Coordinator {
	return uc.coord
}
