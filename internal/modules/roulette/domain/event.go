package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

// EventType names a server-to-client message.
type EventType string

const (
	EventPrompt      EventType = "PROMPT"
	EventLoginOK     EventType = "LOGIN_OK"
	EventLoginFailed EventType = "LOGIN_FAILED"
	EventTableOpen   EventType = "TABLE_OPEN"
	EventTableClosed EventType = "TABLE_CLOSED"
	EventBetAccepted EventType = "BET_ACCEPTED"
	EventBetRejected EventType = "BET_REJECTED"
	EventResult      EventType = "RESULT"
	EventPayout      EventType = "PAYOUT"
	EventBalance     EventType = "BALANCE"
	EventState       EventType = "STATE"
	EventError       EventType = "ERROR"
	EventGoodbye     EventType = "GOODBYE"
)

// Event is one message pushed to a player's session. Only the fields
// relevant to Type are set.
type Event struct {
	Type     EventType        `json:"-"`
	RoundID  string           `json:"round_id,omitempty"`
	PlayerID string           `json:"player,omitempty"`
	Pocket   *Pocket          `json:"pocket,omitempty"`
	Amount   *decimal.Decimal `json:"amount,omitempty"`
	Balance  *decimal.Decimal `json:"balance,omitempty"`
	BetID    string           `json:"bet_id,omitempty"`
	Reason   Reason           `json:"reason,omitempty"`
	Expect   string           `json:"expect,omitempty"`
	Phase    string           `json:"phase,omitempty"`
	Message  string           `json:"message,omitempty"`
	Bets     []BetSummary     `json:"bets,omitempty"`
}

// BetSummary is the wire view of an accepted bet.
type BetSummary struct {
	BetID  string          `json:"bet_id"`
	Kind   BetKind         `json:"kind"`
	Target string          `json:"target"`
	Stake  decimal.Decimal `json:"stake"`
}

// Summarize converts bets to their wire view.
func Summarize(bets []*Bet) []BetSummary {
	out := make([]BetSummary, 0, len(bets))
	for _, b := range bets {
		out = append(out, BetSummary{BetID: b.ID, Kind: b.Kind, Target: b.Target, Stake: b.Stake})
	}
	return out
}

// Amounts returns pointers for Event's optional decimal fields.
func Amounts(v decimal.Decimal) *decimal.Decimal {
	return &v
}

// Channel is the output side of a live session.
type Channel interface {
	// Send delivers an event or fails; it must not block indefinitely.
	Send(ctx context.Context, event Event) error
	// SessionID identifies the connection behind the channel.
	SessionID() string
}
