package machine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/frankieli/roulette_table/internal/modules/roulette/domain"
	"github.com/frankieli/roulette_table/internal/modules/roulette/ledger"
)

// Phase is the table state.
type Phase string

const (
	PhaseOpen   Phase = "OPEN"
	PhaseClosed Phase = "CLOSED"
)

// ErrNoOutcome is returned by AwaitResult when a round was reopened
// without a drawn pocket (the driver was stopped mid-round).
var ErrNoOutcome = errors.New("round reopened without an outcome")

// round carries the single-shot gates of one betting round. closed fires
// on Close, settled fires on the Reopen that follows. Neither is reused.
type round struct {
	id       string
	openedAt time.Time
	closedAt time.Time
	closed   chan struct{}
	settled  chan struct{}
	pocket   *domain.Pocket
}

func newRound() *round {
	return &round{
		id:       domain.NextID(),
		openedAt: time.Now(),
		closed:   make(chan struct{}),
		settled:  make(chan struct{}),
	}
}

// RoundView is a read-only snapshot of the current round
type RoundView struct {
	RoundID   string
	Phase     Phase
	OpenedAt  time.Time
	ClosedAt  time.Time
	TotalBets int
	Pocket    *domain.Pocket
}

// Coordinator owns the table phase, the bet ledger and the gates sessions
// block on.
//
// Bet acceptance holds mu shared, so players never serialize on each
// other; Close and Reopen take it exclusively, which drains in-flight
// acceptances before the phase flips.
type Coordinator struct {
	mu       sync.RWMutex
	phase    Phase
	current  *round
	previous *round
	// opened fires on the next Reopen. While the table is OPEN it is
	// already closed.
	opened chan struct{}
	ledger *ledger.Ledger
}

// NewCoordinator creates a coordinator that is OPEN with its first round
// armed, so a session's first wait never depends on a transition.
func NewCoordinator() *Coordinator {
	opened := make(chan struct{})
	close(opened)
	return &Coordinator{
		phase:   PhaseOpen,
		current: newRound(),
		opened:  opened,
		ledger:  ledger.New(),
	}
}

// Close flips OPEN -> CLOSED and releases everyone waiting on the round's
// close gate. Returns false if the table was already closed.
func (c *Coordinator) Close() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase != PhaseOpen {
		return "", false
	}
	c.phase = PhaseClosed
	c.current.closedAt = time.Now()
	c.opened = make(chan struct{})
	close(c.current.closed)
	return c.current.id, true
}

// SetOutcome records the drawn pocket on the closed round. It has no
// effect while the table is OPEN.
func (c *Coordinator) SetOutcome(pocket domain.Pocket) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase != PhaseClosed {
		return false
	}
	c.current.pocket = &pocket
	return true
}

// Reopen flips CLOSED -> OPEN: the ledger is cleared, result waiters of the
// closed round and open waiters are released, and a new round is armed.
// Returns the new round id, or false if the table was not closed.
func (c *Coordinator) Reopen() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase != PhaseClosed {
		return "", false
	}
	c.ledger.Clear()
	c.phase = PhaseOpen

	settled := c.current
	c.previous = settled
	c.current = newRound()

	close(settled.settled)
	close(c.opened)
	return c.current.id, true
}

// PlaceBet reserves the stake and records the bet if the table is OPEN and
// the bet belongs to the round in progress. Returns the player's balance
// after the reservation.
func (c *Coordinator) PlaceBet(player *domain.Player, bet *domain.Bet) (decimal.Decimal, error) {
	if player == nil || bet == nil || bet.Player != player {
		return decimal.Zero, fmt.Errorf("%w: bet does not belong to player", domain.ErrInvalidBet)
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.phase != PhaseOpen || bet.RoundID != c.current.id {
		return player.Balance(), domain.ErrTableClosed
	}
	return c.ledger.Place(bet)
}

// AwaitOpen returns as soon as the table is OPEN.
func (c *Coordinator) AwaitOpen(ctx context.Context) (RoundView, error) {
	for {
		c.mu.RLock()
		if c.phase == PhaseOpen {
			view := c.viewLocked()
			c.mu.RUnlock()
			return view, nil
		}
		gate := c.opened
		c.mu.RUnlock()

		select {
		case <-gate:
			// re-read: the table may have closed again already
		case <-ctx.Done():
			return RoundView{}, ctx.Err()
		}
	}
}

// AwaitClose blocks until the given round has closed.
func (c *Coordinator) AwaitClose(ctx context.Context, roundID string) error {
	r, err := c.lookup(roundID)
	if err != nil {
		return err
	}
	select {
	case <-r.closed:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// AwaitResult blocks until the given round has been settled and the table
// reopened, then returns the drawn pocket.
func (c *Coordinator) AwaitResult(ctx context.Context, roundID string) (domain.Pocket, error) {
	r, err := c.lookup(roundID)
	if err != nil {
		return domain.Pocket{}, err
	}
	select {
	case <-r.settled:
	case <-ctx.Done():
		return domain.Pocket{}, ctx.Err()
	}

	// pocket is written before settled is closed and never after
	if r.pocket == nil {
		return domain.Pocket{}, ErrNoOutcome
	}
	return *r.pocket, nil
}

func (c *Coordinator) lookup(roundID string) (*round, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	switch {
	case c.current != nil && c.current.id == roundID:
		return c.current, nil
	case c.previous != nil && c.previous.id == roundID:
		return c.previous, nil
	}
	return nil, fmt.Errorf("%w: %s", domain.ErrUnknownRound, roundID)
}

// Snapshot returns an independent copy of the round's bets.
func (c *Coordinator) Snapshot() []domain.PlayerBets {
	return c.ledger.Snapshot()
}

// BetsOf returns the bets a player placed in the current round.
func (c *Coordinator) BetsOf(playerID string) []*domain.Bet {
	return c.ledger.BetsOf(playerID)
}

// Phase returns the table phase.
func (c *Coordinator) Phase() Phase {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.phase
}

// Current returns a snapshot of the round in progress.
func (c *Coordinator) Current() RoundView {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.viewLocked()
}

func (c *Coordinator) viewLocked() RoundView {
	return RoundView{
		RoundID:   c.current.id,
		Phase:     c.phase,
		OpenedAt:  c.current.openedAt,
		ClosedAt:  c.current.closedAt,
		TotalBets: c.ledger.Len(),
		Pocket:    c.current.pocket,
	}
}
