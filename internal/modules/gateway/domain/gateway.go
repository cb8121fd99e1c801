// Package domain defines the wire protocol spoken by the roulette gateway.
//
// Every frame, in both directions, is a JSON envelope
// {"command": "...", "data": {...}}.
package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	roulette "github.com/frankieli/roulette_table/internal/modules/roulette/domain"
)

// ErrBadRequest marks frames that cannot be decoded.
var ErrBadRequest = errors.New("bad request")

// Command is a client-to-server command
type Command string

const (
	CmdLogin    Command = "LOGIN"
	CmdRegister Command = "REGISTER"
	CmdBet      Command = "BET"
	CmdAddFunds Command = "ADD_FUNDS"
	CmdState    Command = "STATE"
	CmdLeave    Command = "LEAVE"
)

// Prompt expectations sent with PROMPT
const (
	ExpectLogin = "LOGIN|REGISTER"
	ExpectBet   = "BET"
)

// Envelope is the frame format
type Envelope struct {
	Command string          `json:"command"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Request is a decoded client frame
type Request struct {
	Command Command
	Data    json.RawMessage
}

type LoginPayload struct {
	ID string `json:"id"`
}

type RegisterPayload struct {
	ID      string          `json:"id"`
	Balance decimal.Decimal `json:"balance"`
}

type BetPayload struct {
	Kind  string          `json:"kind"`
	Value string          `json:"value"`
	Stake decimal.Decimal `json:"stake"`
}

type FundsPayload struct {
	Amount decimal.Decimal `json:"amount"`
}

// DecodeRequest parses a client frame. The command is matched
// case-insensitively.
func DecodeRequest(message []byte) (Request, error) {
	var env Envelope
	if err := json.Unmarshal(message, &env); err != nil {
		return Request{}, fmt.Errorf("%w: invalid message format: %v", ErrBadRequest, err)
	}
	cmd := strings.ToUpper(strings.TrimSpace(env.Command))
	if cmd == "" {
		return Request{}, fmt.Errorf("%w: missing command", ErrBadRequest)
	}
	return Request{Command: Command(cmd), Data: env.Data}, nil
}

// Decode unmarshals the request payload into v.
func (r Request) Decode(v interface{}) error {
	if len(r.Data) == 0 {
		return fmt.Errorf("%w: %s needs a payload", ErrBadRequest, r.Command)
	}
	if err := json.Unmarshal(r.Data, v); err != nil {
		return fmt.Errorf("%w: invalid %s payload: %v", ErrBadRequest, r.Command, err)
	}
	return nil
}

// EncodeEvent builds the frame for a server event.
func EncodeEvent(event roulette.Event) ([]byte, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Command: string(event.Type), Data: data})
}

// EncodeCommand builds a client frame; used by the test robot.
func EncodeCommand(cmd Command, payload interface{}) ([]byte, error) {
	env := Envelope{Command: string(cmd)}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		env.Data = data
	}
	return json.Marshal(env)
}
