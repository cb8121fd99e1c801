package domain

import (
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
)

// Player is a registered identity and its balance. Players are shared by
// pointer; the registry guarantees one *Player per id.
type Player struct {
	id string

	mu      sync.Mutex
	balance decimal.Decimal
}

// NewPlayer creates a player with a non-negative opening balance.
func NewPlayer(id string, balance decimal.Decimal) (*Player, error) {
	if id == "" {
		return nil, ErrInvalidPlayer
	}
	if balance.IsNegative() {
		return nil, fmt.Errorf("%w: negative opening balance %s", ErrInvalidAmount, balance)
	}
	return &Player{id: id, balance: balance}, nil
}

func (p *Player) ID() string {
	return p.id
}

// Balance returns the last committed balance.
func (p *Player) Balance() decimal.Decimal {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.balance
}

// Reserve debits stake if the balance covers it.
func (p *Player) Reserve(stake decimal.Decimal) (decimal.Decimal, error) {
	if !stake.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: stake %s", ErrInvalidAmount, stake)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.balance.LessThan(stake) {
		return p.balance, ErrInsufficientFunds
	}
	p.balance = p.balance.Sub(stake)
	return p.balance, nil
}

// Credit adds a non-negative amount and returns the new balance.
func (p *Player) Credit(amount decimal.Decimal) (decimal.Decimal, error) {
	if amount.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: credit %s", ErrInvalidAmount, amount)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.balance = p.balance.Add(amount)
	return p.balance, nil
}

func (p *Player) String() string {
	return p.id
}
