// Package registry keeps the set of known players and their live sessions.
package registry

import (
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/frankieli/roulette_table/internal/modules/roulette/domain"
)

// Registry maps player ids to the one shared *domain.Player for that id,
// plus a session table id -> live channel. A player has at most one
// session; players are never removed.
type Registry struct {
	mu       sync.RWMutex
	players  map[string]*domain.Player
	sessions map[string]domain.Channel
}

// New creates an empty registry
func New() *Registry {
	return &Registry{
		players:  make(map[string]*domain.Player),
		sessions: make(map[string]domain.Channel),
	}
}

// FindByID returns the shared player for id.
func (r *Registry) FindByID(id string) (*domain.Player, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.players[id]
	return p, ok
}

// RegisterIfAbsent creates a player unless id is already known.
func (r *Registry) RegisterIfAbsent(id string, initialBalance decimal.Decimal) (*domain.Player, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.registerLocked(id, initialBalance)
}

func (r *Registry) registerLocked(id string, initialBalance decimal.Decimal) (*domain.Player, error) {
	if _, ok := r.players[id]; ok {
		return nil, domain.ErrPlayerExists
	}
	p, err := domain.NewPlayer(id, initialBalance)
	if err != nil {
		return nil, err
	}
	r.players[id] = p
	return p, nil
}

// Connect attaches channel as the player's live session. An existing
// session is left untouched and ErrSessionActive is returned; closing the
// rejected channel is the caller's job.
func (r *Registry) Connect(player *domain.Player, channel domain.Channel) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.connectLocked(player.ID(), channel)
}

func (r *Registry) connectLocked(id string, channel domain.Channel) error {
	if _, active := r.sessions[id]; active {
		return domain.ErrSessionActive
	}
	r.sessions[id] = channel
	return nil
}

// Login resolves id and connects channel in one critical section, so two
// concurrent logins for the same id cannot both succeed.
func (r *Registry) Login(id string, channel domain.Channel) (*domain.Player, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.players[id]
	if !ok {
		return nil, domain.ErrPlayerNotFound
	}
	if err := r.connectLocked(id, channel); err != nil {
		return nil, err
	}
	return p, nil
}

// RegisterAndConnect registers a new player and opens its session
// atomically.
func (r *Registry) RegisterAndConnect(id string, initialBalance decimal.Decimal, channel domain.Channel) (*domain.Player, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, err := r.registerLocked(id, initialBalance)
	if err != nil {
		return nil, err
	}
	r.sessions[id] = channel
	return p, nil
}

// Disconnect clears the player's session. Calling it again is a no-op.
func (r *Registry) Disconnect(player *domain.Player) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, player.ID())
}

// DisconnectSession clears the player's session only if it is still the
// given channel. It reports whether a session was removed.
func (r *Registry) DisconnectSession(player *domain.Player, channel domain.Channel) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.sessions[player.ID()]
	if !ok || current.SessionID() != channel.SessionID() {
		return false
	}
	delete(r.sessions, player.ID())
	return true
}

// Channel returns the player's live channel, if any.
func (r *Registry) Channel(id string) (domain.Channel, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ch, ok := r.sessions[id]
	return ch, ok
}

// IsOnline reports whether id has a live session.
func (r *Registry) IsOnline(id string) bool {
	_, ok := r.Channel(id)
	return ok
}

// Online returns the live sessions keyed by player id.
func (r *Registry) Online() map[string]domain.Channel {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]domain.Channel, len(r.sessions))
	for id, ch := range r.sessions {
		out[id] = ch
	}
	return out
}

// Len returns the number of known players.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.players)
}

// Records snapshots every player's id and balance, sorted by id.
func (r *Registry) Records() []domain.PlayerRecord {
	r.mu.RLock()
	players := make([]*domain.Player, 0, len(r.players))
	for _, p := range r.players {
		players = append(players, p)
	}
	r.mu.RUnlock()

	// balances are read outside the registry lock
	records := make([]domain.PlayerRecord, 0, len(players))
	for _, p := range players {
		records = append(records, domain.PlayerRecord{ID: p.ID(), Balance: p.Balance()})
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
	return records
}

// Load registers every record not yet known. It returns how many were
// added.
func (r *Registry) Load(records []domain.PlayerRecord) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	added := 0
	for _, rec := range records {
		if _, ok := r.players[rec.ID]; ok {
			continue
		}
		if _, err := r.registerLocked(rec.ID, rec.Balance); err != nil {
			return added, err
		}
		added++
	}
	return added, nil
}
