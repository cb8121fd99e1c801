package machine

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frankieli/roulette_table/internal/modules/roulette/domain"
)

func newPlayer(t *testing.T, id string, balance int64) *domain.Player {
	t.Helper()
	p, err := domain.NewPlayer(id, decimal.NewFromInt(balance))
	require.NoError(t, err)
	return p
}

func betFor(t *testing.T, c *Coordinator, p *domain.Player, stake int64) *domain.Bet {
	t.Helper()
	b, err := domain.NewBet(c.Current().RoundID, p, domain.BetNumber, "17", decimal.NewFromInt(stake), decimal.Zero)
	require.NoError(t, err)
	return b
}

func TestCoordinatorStartsOpen(t *testing.T) {
	c := NewCoordinator()
	assert.Equal(t, PhaseOpen, c.Phase())

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	view, err := c.AwaitOpen(ctx)
	require.NoError(t, err, "first wait must not depend on a transition")
	assert.NotEmpty(t, view.RoundID)
}

func TestNoBetAfterClose(t *testing.T) {
	c := NewCoordinator()
	alice := newPlayer(t, "alice", 100)

	bal, err := c.PlaceBet(alice, betFor(t, c, alice, 10))
	require.NoError(t, err)
	assert.True(t, bal.Equal(decimal.NewFromInt(90)))

	b := betFor(t, c, alice, 10)
	_, ok := c.Close()
	require.True(t, ok)

	_, err = c.PlaceBet(alice, b)
	assert.ErrorIs(t, err, domain.ErrTableClosed)
	assert.True(t, alice.Balance().Equal(decimal.NewFromInt(90)), "rejected bet must not reserve")
	assert.Len(t, c.Snapshot(), 1)
}

func TestBetForStaleRoundRejected(t *testing.T) {
	c := NewCoordinator()
	alice := newPlayer(t, "alice", 100)
	stale := betFor(t, c, alice, 10)

	c.Close()
	c.Reopen()

	_, err := c.PlaceBet(alice, stale)
	assert.ErrorIs(t, err, domain.ErrTableClosed)
}

func TestPlaceBetRejectsForeignBet(t *testing.T) {
	c := NewCoordinator()
	alice := newPlayer(t, "alice", 100)
	bob := newPlayer(t, "bob", 100)

	_, err := c.PlaceBet(bob, betFor(t, c, alice, 10))
	assert.ErrorIs(t, err, domain.ErrInvalidBet)
}

func TestInsufficientFunds(t *testing.T) {
	c := NewCoordinator()
	alice := newPlayer(t, "alice", 5)

	_, err := c.PlaceBet(alice, betFor(t, c, alice, 10))
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)
	assert.Zero(t, c.Current().TotalBets)
}

func TestTransitionsAreIdempotent(t *testing.T) {
	c := NewCoordinator()
	alice := newPlayer(t, "alice", 100)
	_, err := c.PlaceBet(alice, betFor(t, c, alice, 10))
	require.NoError(t, err)

	_, ok := c.Reopen()
	assert.False(t, ok, "reopen without close is a no-op")
	assert.Equal(t, 1, c.Current().TotalBets, "ledger untouched")

	first, ok := c.Close()
	require.True(t, ok)
	_, ok = c.Close()
	assert.False(t, ok)

	next, ok := c.Reopen()
	require.True(t, ok)
	assert.NotEqual(t, first, next)
	assert.Zero(t, c.Current().TotalBets, "ledger cleared on reopen")

	_, ok = c.Reopen()
	assert.False(t, ok)
}

func TestAwaitOpenReleasedByReopen(t *testing.T) {
	c := NewCoordinator()
	c.Close()

	const waiters = 50
	var released int64
	var wg sync.WaitGroup
	for i := 0; i < waiters; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.AwaitOpen(context.Background()); err == nil {
				atomic.AddInt64(&released, 1)
			}
		}()
	}

	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, atomic.LoadInt64(&released))

	c.Reopen()
	wg.Wait()
	assert.Equal(t, int64(waiters), atomic.LoadInt64(&released))
}

func TestAwaitCloseAndResult(t *testing.T) {
	c := NewCoordinator()
	alice := newPlayer(t, "alice", 100)
	roundID := c.Current().RoundID
	_, err := c.PlaceBet(alice, betFor(t, c, alice, 10))
	require.NoError(t, err)

	closed := make(chan error, 1)
	go func() { closed <- c.AwaitClose(context.Background(), roundID) }()

	type result struct {
		pocket domain.Pocket
		err    error
	}
	results := make(chan result, 1)
	go func() {
		p, err := c.AwaitResult(context.Background(), roundID)
		results <- result{p, err}
	}()

	select {
	case <-closed:
		t.Fatal("AwaitClose returned before close")
	case <-time.After(20 * time.Millisecond):
	}

	c.Close()
	require.NoError(t, <-closed)

	select {
	case <-results:
		t.Fatal("AwaitResult returned before reopen")
	case <-time.After(20 * time.Millisecond):
	}

	c.SetOutcome(domain.MustPocket(17))
	c.Reopen()

	r := <-results
	require.NoError(t, r.err)
	assert.Equal(t, 17, r.pocket.Number)

	// late callers for the settled round return immediately
	require.NoError(t, c.AwaitClose(context.Background(), roundID))
	p, err := c.AwaitResult(context.Background(), roundID)
	require.NoError(t, err)
	assert.Equal(t, domain.ColorRed, p.Color)
}

func TestAwaitResultWithoutOutcome(t *testing.T) {
	c := NewCoordinator()
	roundID := c.Current().RoundID
	c.Close()
	c.Reopen()

	_, err := c.AwaitResult(context.Background(), roundID)
	assert.ErrorIs(t, err, ErrNoOutcome)
}

func TestAwaitUnknownRound(t *testing.T) {
	c := NewCoordinator()
	assert.ErrorIs(t, c.AwaitClose(context.Background(), "nope"), domain.ErrUnknownRound)
	_, err := c.AwaitResult(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrUnknownRound)
}

func TestAwaitHonoursContext(t *testing.T) {
	c := NewCoordinator()
	roundID := c.Current().RoundID

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, c.AwaitClose(ctx, roundID), context.DeadlineExceeded)

	c.Close()
	ctx2, cancel2 := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel2()
	_, err := c.AwaitOpen(ctx2)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

// Bets racing a close are either in the snapshot with their stake reserved,
// or rejected with the balance untouched.
func TestConcurrentBetsRacingClose(t *testing.T) {
	c := NewCoordinator()
	players := make([]*domain.Player, 40)
	for i := range players {
		players[i] = newPlayer(t, string(rune('A'+i)), 100)
	}

	var wg sync.WaitGroup
	start := make(chan struct{})
	for _, p := range players {
		for j := 0; j < 5; j++ {
			wg.Add(1)
			go func(p *domain.Player) {
				defer wg.Done()
				b := betFor(t, c, p, 10)
				<-start
				_, _ = c.PlaceBet(p, b)
			}(p)
		}
	}

	close(start)
	time.Sleep(time.Millisecond)
	c.Close()
	wg.Wait()

	accepted := map[string]decimal.Decimal{}
	for _, pb := range c.Snapshot() {
		accepted[pb.Player.ID()] = pb.TotalStake()
	}
	for _, p := range players {
		stake, ok := accepted[p.ID()]
		if !ok {
			stake = decimal.Zero
		}
		assert.True(t, p.Balance().Add(stake).Equal(decimal.NewFromInt(100)), "player %s", p.ID())
	}

	_, err := c.PlaceBet(players[0], betFor(t, c, players[0], 10))
	assert.ErrorIs(t, err, domain.ErrTableClosed)
}
