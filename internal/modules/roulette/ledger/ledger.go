// Package ledger holds the bets of the round in progress.
package ledger

import (
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/frankieli/roulette_table/internal/modules/roulette/domain"
)

type entry struct {
	mu     sync.Mutex
	player *domain.Player
	bets   []*domain.Bet
}

// Ledger maps player id -> bets of the current round. The top-level map
// has its own short lock; each player's list has another, so appends from
// different players never contend.
//
// Place and Clear must not run concurrently: the round coordinator only
// clears a CLOSED table and only places bets on an OPEN one.
type Ledger struct {
	mu      sync.Mutex
	entries map[string]*entry
	count   int
}

// New creates an empty ledger
func New() *Ledger {
	return &Ledger{entries: make(map[string]*entry)}
}

func (l *Ledger) entryFor(p *domain.Player) *entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[p.ID()]
	if !ok {
		e = &entry{player: p}
		l.entries[p.ID()] = e
	}
	return e
}

// Place reserves the bet's stake on its player and appends the bet. Both
// happen under the player's entry lock, so Snapshot sees either neither or
// both. Returns the balance after the reservation.
func (l *Ledger) Place(bet *domain.Bet) (decimal.Decimal, error) {
	e := l.entryFor(bet.Player)

	e.mu.Lock()
	defer e.mu.Unlock()

	balance, err := bet.Player.Reserve(bet.Stake)
	if err != nil {
		return balance, err
	}
	e.bets = append(e.bets, bet)

	l.mu.Lock()
	l.count++
	l.mu.Unlock()

	return balance, nil
}

// Snapshot returns an independent copy of every player's bets, sorted by
// player id. Players without bets are omitted.
func (l *Ledger) Snapshot() []domain.PlayerBets {
	l.mu.Lock()
	entries := make([]*entry, 0, len(l.entries))
	for _, e := range l.entries {
		entries = append(entries, e)
	}
	l.mu.Unlock()

	out := make([]domain.PlayerBets, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		bets := make([]*domain.Bet, len(e.bets))
		copy(bets, e.bets)
		e.mu.Unlock()

		if len(bets) > 0 {
			out = append(out, domain.PlayerBets{Player: e.player, Bets: bets})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Player.ID() < out[j].Player.ID() })
	return out
}

// BetsOf returns a copy of one player's bets.
func (l *Ledger) BetsOf(playerID string) []*domain.Bet {
	l.mu.Lock()
	e, ok := l.entries[playerID]
	l.mu.Unlock()
	if !ok {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	bets := make([]*domain.Bet, len(e.bets))
	copy(bets, e.bets)
	return bets
}

// Len returns the number of bets placed this round.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.count
}

// Clear drops every bet. Clearing an empty ledger is a no-op.
func (l *Ledger) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.count == 0 && len(l.entries) == 0 {
		return
	}
	l.entries = make(map[string]*entry)
	l.count = 0
}
