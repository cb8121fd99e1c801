package machine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frankieli/roulette_table/internal/modules/roulette/domain"
)

type fakeSettler struct {
	coord *Coordinator

	mu      sync.Mutex
	rounds  []string
	bets    int
	phaseAt []Phase
}

func (s *fakeSettler) Settle(_ context.Context, roundID string, pocket domain.Pocket, bets []domain.PlayerBets) *domain.RoundRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rounds = append(s.rounds, roundID)
	s.phaseAt = append(s.phaseAt, s.coord.Phase())
	for _, pb := range bets {
		s.bets += len(pb.Bets)
	}
	return &domain.RoundRecord{RoundID: roundID, Pocket: pocket}
}

func fastMachine(settler *fakeSettler, coord *Coordinator) *StateMachine {
	sm := NewStateMachine(coord, settler)
	sm.BettingDuration = 30 * time.Millisecond
	sm.GraceDuration = 5 * time.Millisecond
	sm.ReadDuration = 5 * time.Millisecond
	sm.SetDrawFunc(func() int { return 17 })
	return sm
}

func TestStateMachineRunsRounds(t *testing.T) {
	coord := NewCoordinator()
	settler := &fakeSettler{coord: coord}
	sm := fastMachine(settler, coord)

	events := make(chan GameEvent, 64)
	sm.RegisterEventHandler(func(e GameEvent) { events <- e })

	alice, _ := domain.NewPlayer("alice", decimal.NewFromInt(100))
	first := coord.Current().RoundID
	b, err := domain.NewBet(first, alice, domain.BetNumber, "17", decimal.NewFromInt(10), decimal.Zero)
	require.NoError(t, err)
	_, err = coord.PlaceBet(alice, b)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sm.Start(ctx)

	pocket, err := coord.AwaitResult(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, 17, pocket.Number)

	view, err := coord.AwaitOpen(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, first, view.RoundID)

	settler.mu.Lock()
	assert.Equal(t, first, settler.rounds[0])
	assert.Equal(t, PhaseClosed, settler.phaseAt[0], "settle runs while the table is closed")
	assert.Equal(t, 1, settler.bets)
	settler.mu.Unlock()

	seen := map[domain.EventType]bool{}
	deadline := time.After(time.Second)
	for !(seen[domain.EventTableClosed] && seen[domain.EventResult] && seen[domain.EventTableOpen]) {
		select {
		case e := <-events:
			seen[e.Type] = true
			if e.Type == domain.EventResult {
				require.NotNil(t, e.Record)
			}
		case <-deadline:
			t.Fatalf("missing events, saw %v", seen)
		}
	}
}

func TestStateMachineReopensOnCancel(t *testing.T) {
	coord := NewCoordinator()
	settler := &fakeSettler{coord: coord}
	sm := fastMachine(settler, coord)
	sm.GraceDuration = time.Hour
	sm.ReadDuration = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sm.Start(ctx)
		close(done)
	}()

	first := coord.Current().RoundID
	require.NoError(t, coord.AwaitClose(context.Background(), first))
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("driver did not stop")
	}

	assert.Equal(t, PhaseOpen, coord.Phase(), "table must not be left closed")
	pocket, err := coord.AwaitResult(context.Background(), first)
	require.NoError(t, err, "closed round is still settled")
	assert.Equal(t, 17, pocket.Number)
}

func TestStateMachineStop(t *testing.T) {
	coord := NewCoordinator()
	sm := fastMachine(&fakeSettler{coord: coord}, coord)
	sm.Stop()

	done := make(chan struct{})
	go func() {
		sm.Start(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("stopped driver kept running")
	}
	assert.Equal(t, PhaseOpen, coord.Phase())
}
