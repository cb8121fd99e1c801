// Package payout computes roulette payouts and settles closed rounds.
package payout

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/frankieli/roulette_table/internal/modules/roulette/domain"
)

// Payout multipliers, stake included.
var (
	NumberMultiplier = decimal.NewFromInt(36)
	ColorMultiplier  = decimal.NewFromInt(2)
	ParityMultiplier = decimal.NewFromInt(2)
	DozenMultiplier  = decimal.NewFromInt(3)
)

// Payout returns what bet pays for pocket: zero for a loss. A malformed
// target or unknown kind pays zero and returns domain.ErrInvalidTarget.
func Payout(pocket domain.Pocket, bet *domain.Bet) (decimal.Decimal, error) {
	target := strings.TrimSpace(bet.Target)

	switch bet.Kind {
	case domain.BetNumber:
		n, err := strconv.Atoi(target)
		if err != nil || n < 0 || n > domain.MaxPocket {
			return decimal.Zero, fmt.Errorf("%w: number %q", domain.ErrInvalidTarget, bet.Target)
		}
		if n == pocket.Number {
			return bet.Stake.Mul(NumberMultiplier), nil
		}

	case domain.BetColor:
		color, ok := domain.ParseColor(target)
		if !ok {
			return decimal.Zero, fmt.Errorf("%w: color %q", domain.ErrInvalidTarget, bet.Target)
		}
		if !pocket.IsGreen() && color == pocket.Color {
			return bet.Stake.Mul(ColorMultiplier), nil
		}

	case domain.BetParity:
		even, ok := domain.ParseParity(target)
		if !ok {
			return decimal.Zero, fmt.Errorf("%w: parity %q", domain.ErrInvalidTarget, bet.Target)
		}
		if !pocket.IsGreen() && even == (pocket.Number%2 == 0) {
			return bet.Stake.Mul(ParityMultiplier), nil
		}

	case domain.BetDozen:
		d, err := strconv.Atoi(target)
		if err != nil || d < 1 || d > 3 {
			return decimal.Zero, fmt.Errorf("%w: dozen %q", domain.ErrInvalidTarget, bet.Target)
		}
		if d == pocket.Dozen {
			return bet.Stake.Mul(DozenMultiplier), nil
		}

	default:
		return decimal.Zero, fmt.Errorf("%w: unknown kind %q", domain.ErrInvalidTarget, bet.Kind)
	}

	return decimal.Zero, nil
}
