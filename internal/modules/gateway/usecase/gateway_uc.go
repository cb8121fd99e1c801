// Package usecase implements the business logic for the gateway module.
package usecase

import (
	"context"
	"errors"

	gatewayDomain "github.com/frankieli/roulette_table/internal/modules/gateway/domain"
	"github.com/frankieli/roulette_table/internal/modules/roulette/domain"
	rouletteUseCase "github.com/frankieli/roulette_table/internal/modules/roulette/usecase"
	"github.com/frankieli/roulette_table/pkg/logger"
)

// GatewayUseCase translates client commands into table operations and
// their results into server events.
type GatewayUseCase struct {
	table *rouletteUseCase.TableUseCase
}

// NewGatewayUseCase creates a new gateway use case
func NewGatewayUseCase(table *rouletteUseCase.TableUseCase) *GatewayUseCase {
	return &GatewayUseCase{table: table}
}

// Table returns the table use case
func (uc *GatewayUseCase) Table() *rouletteUseCase.TableUseCase {
	return uc.table
}

// Outcome is the result of one handled command.
type Outcome struct {
	Events []domain.Event
	// Leave is set when the player asked to leave the table.
	Leave bool
}

func errorEvent(err error) domain.Event {
	reason := domain.ReasonOf(err)
	if errors.Is(err, gatewayDomain.ErrBadRequest) {
		reason = domain.ReasonInvalidBet
	}
	return domain.Event{Type: domain.EventError, Reason: reason, Message: err.Error()}
}

// Authenticate handles a LOGIN or REGISTER frame. On success the player is
// connected to ch and LOGIN_OK is returned; otherwise the event explains
// the failure.
func (uc *GatewayUseCase) Authenticate(ctx context.Context, message []byte, ch domain.Channel) (*domain.Player, domain.Event) {
	req, err := gatewayDomain.DecodeRequest(message)
	if err != nil {
		return nil, errorEvent(err)
	}

	var player *domain.Player
	switch req.Command {
	case gatewayDomain.CmdLogin:
		var p gatewayDomain.LoginPayload
		if err := req.Decode(&p); err != nil {
			return nil, errorEvent(err)
		}
		player, err = uc.table.Login(ctx, p.ID, ch)

	case gatewayDomain.CmdRegister:
		var p gatewayDomain.RegisterPayload
		if err := req.Decode(&p); err != nil {
			return nil, errorEvent(err)
		}
		player, err = uc.table.Register(ctx, p.ID, p.Balance, ch)

	default:
		return nil, domain.Event{
			Type:    domain.EventError,
			Reason:  domain.ReasonInvalidBet,
			Expect:  gatewayDomain.ExpectLogin,
			Message: "log in first",
		}
	}

	if err != nil {
		return nil, domain.Event{
			Type:    domain.EventLoginFailed,
			Reason:  domain.ReasonOf(err),
			Message: err.Error(),
		}
	}
	return player, domain.Event{
		Type:     domain.EventLoginOK,
		PlayerID: player.ID(),
		Balance:  domain.Amounts(player.Balance()),
	}
}

// HandleMessage handles one frame of a logged-in player. Protocol errors
// produce ERROR or BET_REJECTED events, never an error return.
func (uc *GatewayUseCase) HandleMessage(ctx context.Context, player *domain.Player, message []byte) Outcome {
	req, err := gatewayDomain.DecodeRequest(message)
	if err != nil {
		logger.Debug(ctx).Err(err).Msg("bad frame")
		return Outcome{Events: []domain.Event{errorEvent(err)}}
	}

	switch req.Command {
	case gatewayDomain.CmdBet:
		var p gatewayDomain.BetPayload
		if err := req.Decode(&p); err != nil {
			return Outcome{Events: []domain.Event{{
				Type:    domain.EventBetRejected,
				Reason:  domain.ReasonInvalidBet,
				Message: err.Error(),
			}}}
		}
		bet, balance, err := uc.table.PlaceBet(ctx, player, p.Kind, p.Value, p.Stake)
		if err != nil {
			return Outcome{Events: []domain.Event{{
				Type:    domain.EventBetRejected,
				Reason:  domain.ReasonOf(err),
				Balance: domain.Amounts(balance),
				Message: err.Error(),
			}}}
		}
		return Outcome{Events: []domain.Event{{
			Type:    domain.EventBetAccepted,
			RoundID: bet.RoundID,
			BetID:   bet.ID,
			Amount:  domain.Amounts(bet.Stake),
			Balance: domain.Amounts(balance),
		}}}

	case gatewayDomain.CmdAddFunds:
		var p gatewayDomain.FundsPayload
		if err := req.Decode(&p); err != nil {
			return Outcome{Events: []domain.Event{errorEvent(err)}}
		}
		balance, err := uc.table.AddFunds(ctx, player, p.Amount)
		if err != nil {
			return Outcome{Events: []domain.Event{errorEvent(err)}}
		}
		return Outcome{Events: []domain.Event{{Type: domain.EventBalance, Balance: domain.Amounts(balance)}}}

	case gatewayDomain.CmdState:
		state := uc.table.State(player)
		return Outcome{Events: []domain.Event{{
			Type:    domain.EventState,
			RoundID: state.RoundID,
			Phase:   string(state.Phase),
			Balance: domain.Amounts(state.Balance),
			Amount:  domain.Amounts(domain.PlayerBets{Player: player, Bets: state.Bets}.TotalStake()),
			Bets:    domain.Summarize(state.Bets),
		}}}

	case gatewayDomain.CmdLeave:
		return Outcome{
			Events: []domain.Event{{Type: domain.EventGoodbye, Balance: domain.Amounts(player.Balance())}},
			Leave:  true,
		}

	case gatewayDomain.CmdLogin, gatewayDomain.CmdRegister:
		return Outcome{Events: []domain.Event{{
			Type:    domain.EventError,
			Reason:  domain.ReasonSessionActive,
			Message: "already logged in",
		}}}

	default:
		logger.Debug(ctx).Str("command", string(req.Command)).Msg("unknown command")
		return Outcome{Events: []domain.Event{{
			Type:    domain.EventError,
			Reason:  domain.ReasonInvalidBet,
			Message: "unknown command " + string(req.Command),
		}}}
	}
}
