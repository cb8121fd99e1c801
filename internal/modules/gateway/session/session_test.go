package session

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gatewayDomain "github.com/frankieli/roulette_table/internal/modules/gateway/domain"
	"github.com/frankieli/roulette_table/internal/modules/gateway/usecase"
	"github.com/frankieli/roulette_table/internal/modules/roulette/domain"
	"github.com/frankieli/roulette_table/internal/modules/roulette/machine"
	"github.com/frankieli/roulette_table/internal/modules/roulette/registry"
	rouletteUseCase "github.com/frankieli/roulette_table/internal/modules/roulette/usecase"
)

// stallingConn records outgoing events. The first bet prompt is held until
// release is closed, which lets a test move the table on underneath it.
type stallingConn struct {
	inbox   chan []byte
	events  chan domain.Event
	release chan struct{}
	stalled atomic.Bool
}

func newStallingConn() *stallingConn {
	return &stallingConn{
		inbox:   make(chan []byte, 8),
		events:  make(chan domain.Event, 32),
		release: make(chan struct{}),
	}
}

func (c *stallingConn) SessionID() string    { return "s1" }
func (c *stallingConn) Inbox() <-chan []byte { return c.inbox }

func (c *stallingConn) Send(ctx context.Context, ev domain.Event) error {
	if ev.Type == domain.EventPrompt && ev.Expect == gatewayDomain.ExpectBet && c.stalled.CompareAndSwap(false, true) {
		select {
		case <-c.release:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	select {
	case c.events <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *stallingConn) next(t *testing.T) domain.Event {
	t.Helper()
	select {
	case ev := <-c.events:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("no event from session")
		return domain.Event{}
	}
}

func TestSessionResyncsAfterFallingBehind(t *testing.T) {
	coord := machine.NewCoordinator()
	table := rouletteUseCase.NewTableUseCase(registry.New(), coord, nil, nil, rouletteUseCase.TableConfig{
		MaxStake: decimal.NewFromInt(100),
	})
	conn := newStallingConn()
	s := New(conn, usecase.NewGatewayUseCase(table), Config{IdleTimeout: 5 * time.Second})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	assert.Equal(t, domain.EventPrompt, conn.next(t).Type)
	register, err := gatewayDomain.EncodeCommand(gatewayDomain.CmdRegister, gatewayDomain.RegisterPayload{ID: "amy", Balance: decimal.NewFromInt(50)})
	require.NoError(t, err)
	conn.inbox <- register
	assert.Equal(t, domain.EventLoginOK, conn.next(t).Type)

	first := conn.next(t)
	require.Equal(t, domain.EventTableOpen, first.Type)

	// two full rounds pass while the session is stuck on the prompt, so
	// the coordinator no longer knows the round it is waiting on
	for i := 0; i < 2; i++ {
		_, ok := coord.Close()
		require.True(t, ok)
		_, ok = coord.Reopen()
		require.True(t, ok)
	}
	current := coord.Current().RoundID
	require.NotEqual(t, first.RoundID, current)
	close(conn.release)

	assert.Equal(t, domain.EventPrompt, conn.next(t).Type)
	reopened := conn.next(t)
	assert.Equal(t, domain.EventTableOpen, reopened.Type)
	assert.Equal(t, current, reopened.RoundID)

	select {
	case err := <-done:
		t.Fatalf("session ended early: %v", err)
	default:
	}

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("session did not stop")
	}
}
