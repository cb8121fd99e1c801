package machine

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/frankieli/roulette_table/internal/modules/roulette/domain"
	"github.com/frankieli/roulette_table/pkg/logger"
)

// GameEvent is emitted at every round transition
type GameEvent struct {
	Type    domain.EventType
	RoundID string
	Pocket  *domain.Pocket
	// Record is set on EventResult
	Record *domain.RoundRecord
}

// EventHandler handles game events
type EventHandler func(event GameEvent)

// Settler pays out a closed round. Settle must return only after every
// participant has been credited and notified (or notification gave up).
type Settler interface {
	Settle(ctx context.Context, roundID string, pocket domain.Pocket, bets []domain.PlayerBets) *domain.RoundRecord
}

// StateMachine drives the coordinator round after round:
// betting window -> close -> grace -> draw -> settle -> read -> reopen.
type StateMachine struct {
	coord   *Coordinator
	settler Settler

	mu            sync.RWMutex
	eventHandlers []EventHandler
	stopping      bool
	roundCounter  int

	rnd  *rand.Rand
	draw func() int

	// durations for each phase
	BettingDuration time.Duration
	GraceDuration   time.Duration // after close, lets late bets drain before the draw
	ReadDuration    time.Duration // after the result, before the table reopens
	SettleTimeout   time.Duration // bounds settlement once the driver is cancelled
}

// NewStateMachine creates a new state machine
func NewStateMachine(coord *Coordinator, settler Settler) *StateMachine {
	sm := &StateMachine{
		coord:           coord,
		settler:         settler,
		eventHandlers:   make([]EventHandler, 0),
		rnd:             rand.New(rand.NewSource(time.Now().UnixNano())),
		BettingDuration: 20 * time.Second,
		GraceDuration:   1 * time.Second,
		ReadDuration:    3 * time.Second,
		SettleTimeout:   10 * time.Second,
	}
	sm.draw = func() int { return sm.rnd.Intn(domain.MaxPocket + 1) }
	return sm
}

// SetDrawFunc replaces the uniform draw, for tests and replays.
func (sm *StateMachine) SetDrawFunc(draw func() int) {
	sm.draw = draw
}

// RegisterEventHandler registers an event handler
func (sm *StateMachine) RegisterEventHandler(handler EventHandler) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.eventHandlers = append(sm.eventHandlers, handler)
}

// emitEvent emits an event to all handlers
func (sm *StateMachine) emitEvent(event GameEvent) {
	sm.mu.RLock()
	handlers := make([]EventHandler, len(sm.eventHandlers))
	copy(handlers, sm.eventHandlers)
	sm.mu.RUnlock()

	for _, handler := range handlers {
		go handler(event)
	}
}

// Stop signals the state machine to stop after the current round
func (sm *StateMachine) Stop() {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.stopping = true
}

// Start runs rounds until Stop is called or ctx is cancelled. The table is
// left OPEN on return.
func (sm *StateMachine) Start(ctx context.Context) {
	logger.Info(ctx).Dur("betting", sm.BettingDuration).Msg("round driver started")
	for {
		sm.mu.RLock()
		stopping := sm.stopping
		sm.mu.RUnlock()

		if stopping || ctx.Err() != nil {
			logger.Info(ctx).Msg("round driver stopped")
			return
		}

		sm.runRound(ctx)
	}
}

// runRound executes a single round. Once the table has been closed the
// round always runs to the reopen, with pacing delays cut short if ctx is
// cancelled.
func (sm *StateMachine) runRound(ctx context.Context) {
	view := sm.coord.Current()

	sm.mu.Lock()
	sm.roundCounter++
	counter := sm.roundCounter
	sm.mu.Unlock()

	roundCtx := logger.WithRound(ctx, view.RoundID)
	logger.Debug(roundCtx).Int("round_counter", counter).Msg("betting window open")

	if !sleep(ctx, sm.BettingDuration) {
		// still OPEN: nothing to unwind
		return
	}

	//--------------------------------------------
	// Close
	//--------------------------------------------
	roundID, ok := sm.coord.Close()
	if !ok {
		logger.Warn(roundCtx).Msg("table already closed, skipping round")
		sm.reopen(roundCtx)
		return
	}
	defer sm.reopen(roundCtx)

	logger.Info(roundCtx).Int("bets", sm.coord.Current().TotalBets).Msg("table closed")
	sm.emitEvent(GameEvent{Type: domain.EventTableClosed, RoundID: roundID})

	sleep(ctx, sm.GraceDuration)

	//--------------------------------------------
	// Draw and settle
	//--------------------------------------------
	pocket := domain.MustPocket(sm.draw())

	settleCtx := ctx
	if ctx.Err() != nil {
		var cancel context.CancelFunc
		settleCtx, cancel = context.WithTimeout(context.WithoutCancel(ctx), sm.SettleTimeout)
		defer cancel()
	}

	bets := sm.coord.Snapshot()
	record := sm.settler.Settle(settleCtx, roundID, pocket, bets)
	sm.coord.SetOutcome(pocket)

	logger.Info(roundCtx).
		Str("pocket", pocket.String()).
		Int("players", len(bets)).
		Msg("result drawn")

	sm.emitEvent(GameEvent{Type: domain.EventResult, RoundID: roundID, Pocket: &pocket, Record: record})

	sleep(ctx, sm.ReadDuration)
}

func (sm *StateMachine) reopen(ctx context.Context) {
	next, ok := sm.coord.Reopen()
	if !ok {
		return
	}
	logger.Info(ctx).Str("next_round_id", next).Msg("table open")
	sm.emitEvent(GameEvent{Type: domain.EventTableOpen, RoundID: next})
}

// sleep waits d or until ctx is done; it reports whether the full delay
// elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
