package domain

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// BetKind is what a bet wagers on.
type BetKind string

const (
	BetNumber BetKind = "NUMBER"
	BetColor  BetKind = "COLOR"
	BetParity BetKind = "PARITY"
	BetDozen  BetKind = "DOZEN"
)

// ParseBetKind accepts the kind case-insensitively.
func ParseBetKind(s string) (BetKind, bool) {
	switch k := BetKind(strings.ToUpper(strings.TrimSpace(s))); k {
	case BetNumber, BetColor, BetParity, BetDozen:
		return k, true
	}
	return "", false
}

// Parity targets.
const (
	ParityEven = "PAR"
	ParityOdd  = "IMPAR"
)

// Bet is an immutable wager placed by a player in one round.
type Bet struct {
	ID       string
	RoundID  string
	Player   *Player
	Kind     BetKind
	Target   string
	Stake    decimal.Decimal
	PlacedAt time.Time
}

// NewBet validates and builds a bet. maxStake <= 0 disables the upper
// bound.
func NewBet(roundID string, player *Player, kind BetKind, target string, stake, maxStake decimal.Decimal) (*Bet, error) {
	if player == nil {
		return nil, fmt.Errorf("%w: missing player", ErrInvalidBet)
	}
	if _, ok := ParseBetKind(string(kind)); !ok {
		return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalidBet, kind)
	}
	target = strings.TrimSpace(target)
	if target == "" {
		return nil, fmt.Errorf("%w: empty target", ErrInvalidBet)
	}
	if !stake.IsPositive() {
		return nil, fmt.Errorf("%w: stake must be positive, got %s", ErrInvalidAmount, stake)
	}
	if maxStake.IsPositive() && stake.GreaterThan(maxStake) {
		return nil, fmt.Errorf("%w: stake %s above table maximum %s", ErrInvalidAmount, stake, maxStake)
	}

	return &Bet{
		ID:       NextID(),
		RoundID:  roundID,
		Player:   player,
		Kind:     kind,
		Target:   target,
		Stake:    stake,
		PlacedAt: time.Now(),
	}, nil
}

// ValidateTarget checks that target is in the domain of kind. Session
// handlers use it to reject malformed input before a stake is reserved.
func ValidateTarget(kind BetKind, target string) error {
	target = strings.TrimSpace(target)
	switch kind {
	case BetNumber:
		n, err := strconv.Atoi(target)
		if err != nil || n < 0 || n > MaxPocket {
			return fmt.Errorf("%w: number %q", ErrInvalidTarget, target)
		}
	case BetColor:
		if _, ok := ParseColor(target); !ok {
			return fmt.Errorf("%w: color %q", ErrInvalidTarget, target)
		}
	case BetParity:
		if _, ok := ParseParity(target); !ok {
			return fmt.Errorf("%w: parity %q", ErrInvalidTarget, target)
		}
	case BetDozen:
		n, err := strconv.Atoi(target)
		if err != nil || n < 1 || n > 3 {
			return fmt.Errorf("%w: dozen %q", ErrInvalidTarget, target)
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidBet, kind)
	}
	return nil
}

// ParseParity returns true for even and false for odd targets.
func ParseParity(s string) (even bool, ok bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case ParityEven, "EVEN":
		return true, true
	case ParityOdd, "ODD":
		return false, true
	}
	return false, false
}

// PlayerBets is one player's bets for a round.
type PlayerBets struct {
	Player *Player
	Bets   []*Bet
}

// TotalStake sums the stakes.
func (pb PlayerBets) TotalStake() decimal.Decimal {
	total := decimal.Zero
	for _, b := range pb.Bets {
		total = total.Add(b.Stake)
	}
	return total
}

var (
	node     *snowflake.Node
	nodeOnce sync.Once
	nodeID   int64 = 1
)

// SetNodeID selects the snowflake node; call before the first NextID.
func SetNodeID(id int64) {
	nodeID = id
}

// NextID returns a process-unique, time-ordered id for rounds and bets.
func NextID() string {
	nodeOnce.Do(func() {
		var err error
		node, err = snowflake.NewNode(nodeID)
		if err != nil {
			panic(err)
		}
	})
	return node.Generate().String()
}
