package usecase

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gatewayDomain "github.com/frankieli/roulette_table/internal/modules/gateway/domain"
	"github.com/frankieli/roulette_table/internal/modules/roulette/domain"
	"github.com/frankieli/roulette_table/internal/modules/roulette/machine"
	"github.com/frankieli/roulette_table/internal/modules/roulette/registry"
	rouletteUseCase "github.com/frankieli/roulette_table/internal/modules/roulette/usecase"
)

type nopChannel struct{ id string }

func (c nopChannel) Send(context.Context, domain.Event) error { return nil }
func (c nopChannel) SessionID() string                        { return c.id }

func frame(t *testing.T, cmd gatewayDomain.Command, payload interface{}) []byte {
	t.Helper()
	msg, err := gatewayDomain.EncodeCommand(cmd, payload)
	require.NoError(t, err)
	return msg
}

func newGateway() (*GatewayUseCase, *machine.Coordinator) {
	coord := machine.NewCoordinator()
	table := rouletteUseCase.NewTableUseCase(registry.New(), coord, nil, nil, rouletteUseCase.TableConfig{
		MaxStake: decimal.NewFromInt(100),
	})
	return NewGatewayUseCase(table), coord
}

func TestAuthenticate(t *testing.T) {
	gw, _ := newGateway()
	ctx := context.Background()

	player, ev := gw.Authenticate(ctx, frame(t, gatewayDomain.CmdLogin, gatewayDomain.LoginPayload{ID: "alice"}), nopChannel{"s1"})
	assert.Nil(t, player)
	assert.Equal(t, domain.EventLoginFailed, ev.Type)
	assert.Equal(t, domain.ReasonPlayerNotFound, ev.Reason)

	player, ev = gw.Authenticate(ctx, frame(t, gatewayDomain.CmdRegister, gatewayDomain.RegisterPayload{ID: "alice", Balance: decimal.NewFromInt(40)}), nopChannel{"s1"})
	require.NotNil(t, player)
	assert.Equal(t, domain.EventLoginOK, ev.Type)
	assert.Equal(t, "alice", ev.PlayerID)
	assert.True(t, ev.Balance.Equal(decimal.NewFromInt(40)))

	player, ev = gw.Authenticate(ctx, frame(t, gatewayDomain.CmdLogin, gatewayDomain.LoginPayload{ID: "alice"}), nopChannel{"s2"})
	assert.Nil(t, player)
	assert.Equal(t, domain.ReasonSessionActive, ev.Reason)

	player, ev = gw.Authenticate(ctx, frame(t, gatewayDomain.CmdBet, gatewayDomain.BetPayload{}), nopChannel{"s3"})
	assert.Nil(t, player)
	assert.Equal(t, domain.EventError, ev.Type)
	assert.Equal(t, gatewayDomain.ExpectLogin, ev.Expect)

	player, ev = gw.Authenticate(ctx, []byte("{"), nopChannel{"s3"})
	assert.Nil(t, player)
	assert.Equal(t, domain.EventError, ev.Type)
}

func TestHandleMessage(t *testing.T) {
	gw, coord := newGateway()
	ctx := context.Background()

	player, _ := gw.Authenticate(ctx, frame(t, gatewayDomain.CmdRegister, gatewayDomain.RegisterPayload{ID: "bob", Balance: decimal.NewFromInt(100)}), nopChannel{"s1"})
	require.NotNil(t, player)

	tests := []struct {
		name   string
		msg    []byte
		want   domain.EventType
		reason domain.Reason
	}{
		{"number bet", frame(t, gatewayDomain.CmdBet, gatewayDomain.BetPayload{Kind: "number", Value: "7", Stake: decimal.NewFromInt(10)}), domain.EventBetAccepted, ""},
		{"lowercase color", frame(t, gatewayDomain.CmdBet, gatewayDomain.BetPayload{Kind: "COLOR", Value: "rojo", Stake: decimal.NewFromInt(5)}), domain.EventBetAccepted, ""},
		{"green is not a color bet", frame(t, gatewayDomain.CmdBet, gatewayDomain.BetPayload{Kind: "COLOR", Value: "VERDE", Stake: decimal.NewFromInt(5)}), domain.EventBetRejected, domain.ReasonInvalidBet},
		{"above max stake", frame(t, gatewayDomain.CmdBet, gatewayDomain.BetPayload{Kind: "PARITY", Value: "PAR", Stake: decimal.NewFromInt(101)}), domain.EventBetRejected, domain.ReasonInvalidAmount},
		{"missing payload", frame(t, gatewayDomain.CmdBet, nil), domain.EventBetRejected, domain.ReasonInvalidBet},
		{"add funds", frame(t, gatewayDomain.CmdAddFunds, gatewayDomain.FundsPayload{Amount: decimal.NewFromInt(5)}), domain.EventBalance, ""},
		{"negative funds", frame(t, gatewayDomain.CmdAddFunds, gatewayDomain.FundsPayload{Amount: decimal.NewFromInt(-5)}), domain.EventError, domain.ReasonInvalidAmount},
		{"second login", frame(t, gatewayDomain.CmdLogin, gatewayDomain.LoginPayload{ID: "bob"}), domain.EventError, domain.ReasonSessionActive},
		{"unknown command", frame(t, "SPIN", nil), domain.EventError, domain.ReasonInvalidBet},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := gw.HandleMessage(ctx, player, tt.msg)
			require.Len(t, out.Events, 1)
			assert.Equal(t, tt.want, out.Events[0].Type)
			assert.Equal(t, tt.reason, out.Events[0].Reason)
			assert.False(t, out.Leave)
		})
	}

	out := gw.HandleMessage(ctx, player, frame(t, gatewayDomain.CmdState, nil))
	require.Len(t, out.Events, 1)
	state := out.Events[0]
	assert.Equal(t, domain.EventState, state.Type)
	assert.Equal(t, coord.Current().RoundID, state.RoundID)
	assert.Len(t, state.Bets, 2)
	assert.True(t, state.Amount.Equal(decimal.NewFromInt(15)))
	assert.True(t, state.Balance.Equal(decimal.NewFromInt(90)))

	coord.Close()
	out = gw.HandleMessage(ctx, player, frame(t, gatewayDomain.CmdBet, gatewayDomain.BetPayload{Kind: "DOZEN", Value: "2", Stake: decimal.NewFromInt(1)}))
	assert.Equal(t, domain.ReasonTableClosed, out.Events[0].Reason)

	out = gw.HandleMessage(ctx, player, frame(t, gatewayDomain.CmdLeave, nil))
	assert.True(t, out.Leave)
	assert.Equal(t, domain.EventGoodbye, out.Events[0].Type)
}
