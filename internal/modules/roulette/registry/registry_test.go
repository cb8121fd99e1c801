package registry

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frankieli/roulette_table/internal/modules/roulette/domain"
)

type fakeChannel struct {
	id string
}

func (c *fakeChannel) Send(ctx context.Context, event domain.Event) error { return nil }
func (c *fakeChannel) SessionID() string                                  { return c.id }

func TestRegisterIfAbsentConcurrent(t *testing.T) {
	r := New()

	var wg sync.WaitGroup
	var ok, exists int32
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.RegisterIfAbsent("bob", decimal.NewFromInt(10))
			switch err {
			case nil:
				atomic.AddInt32(&ok, 1)
			case domain.ErrPlayerExists:
				atomic.AddInt32(&exists, 1)
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, ok)
	assert.EqualValues(t, 31, exists)
	assert.Equal(t, 1, r.Len())
}

func TestFindByIDReturnsSharedPlayer(t *testing.T) {
	r := New()
	p, err := r.RegisterIfAbsent("alice", decimal.NewFromInt(50))
	require.NoError(t, err)

	got, ok := r.FindByID("alice")
	require.True(t, ok)
	assert.Same(t, p, got)

	_, ok = r.FindByID("nobody")
	assert.False(t, ok)
}

func TestConnectRejectsSecondSession(t *testing.T) {
	r := New()
	p, err := r.RegisterIfAbsent("alice", decimal.NewFromInt(50))
	require.NoError(t, err)

	first := &fakeChannel{id: "s1"}
	second := &fakeChannel{id: "s2"}

	require.NoError(t, r.Connect(p, first))
	assert.ErrorIs(t, r.Connect(p, second), domain.ErrSessionActive)

	ch, ok := r.Channel("alice")
	require.True(t, ok)
	assert.Equal(t, "s1", ch.SessionID(), "rejected login must not replace the live session")

	// the rejected session cleaning up after itself must not evict the first
	assert.False(t, r.DisconnectSession(p, second))
	assert.True(t, r.IsOnline("alice"))
}

func TestConcurrentLoginOnlyOneWins(t *testing.T) {
	r := New()
	_, err := r.RegisterIfAbsent("carol", decimal.NewFromInt(5))
	require.NoError(t, err)

	var wg sync.WaitGroup
	var wins int32
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := r.Login("carol", &fakeChannel{id: string(rune('a' + i))}); err == nil {
				atomic.AddInt32(&wins, 1)
			}
		}(i)
	}
	wg.Wait()

	assert.EqualValues(t, 1, wins)
}

func TestLoginUnknownPlayer(t *testing.T) {
	r := New()
	_, err := r.Login("ghost", &fakeChannel{id: "s"})
	assert.ErrorIs(t, err, domain.ErrPlayerNotFound)
}

func TestRegisterAndConnect(t *testing.T) {
	r := New()
	p, err := r.RegisterAndConnect("dave", decimal.NewFromInt(100), &fakeChannel{id: "s1"})
	require.NoError(t, err)
	assert.True(t, r.IsOnline("dave"))
	assert.True(t, p.Balance().Equal(decimal.NewFromInt(100)))

	_, err = r.RegisterAndConnect("dave", decimal.NewFromInt(100), &fakeChannel{id: "s2"})
	assert.ErrorIs(t, err, domain.ErrPlayerExists)

	_, err = r.RegisterAndConnect("erin", decimal.NewFromInt(-1), &fakeChannel{id: "s3"})
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
	assert.False(t, r.IsOnline("erin"))
}

func TestDisconnectIdempotent(t *testing.T) {
	r := New()
	p, err := r.RegisterAndConnect("alice", decimal.NewFromInt(1), &fakeChannel{id: "s1"})
	require.NoError(t, err)

	r.Disconnect(p)
	assert.False(t, r.IsOnline("alice"))
	r.Disconnect(p)
	assert.False(t, r.IsOnline("alice"))

	// player survives disconnect and can log in again
	_, err = r.Login("alice", &fakeChannel{id: "s2"})
	assert.NoError(t, err)
}

func TestRecordsAndLoad(t *testing.T) {
	r := New()
	added, err := r.Load([]domain.PlayerRecord{
		{ID: "zed", Balance: decimal.NewFromInt(3)},
		{ID: "amy", Balance: decimal.RequireFromString("12.50")},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, added)

	added, err = r.Load([]domain.PlayerRecord{{ID: "amy", Balance: decimal.NewFromInt(99)}})
	require.NoError(t, err)
	assert.Equal(t, 0, added, "known players are not overwritten")

	recs := r.Records()
	require.Len(t, recs, 2)
	assert.Equal(t, "amy", recs[0].ID)
	assert.True(t, recs[0].Balance.Equal(decimal.RequireFromString("12.5")))
	assert.Equal(t, "zed", recs[1].ID)
}
