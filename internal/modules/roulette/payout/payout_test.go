package payout

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frankieli/roulette_table/internal/modules/roulette/domain"
)

func bet(t *testing.T, kind domain.BetKind, target string, stake int64) *domain.Bet {
	t.Helper()
	p, err := domain.NewPlayer("p", decimal.NewFromInt(1000))
	require.NoError(t, err)
	b, err := domain.NewBet("r", p, kind, target, decimal.NewFromInt(stake), decimal.Zero)
	require.NoError(t, err)
	return b
}

func TestPayout(t *testing.T) {
	tests := []struct {
		name   string
		pocket int
		kind   domain.BetKind
		target string
		want   int64
	}{
		{"number hit", 17, domain.BetNumber, "17", 360},
		{"number miss", 17, domain.BetNumber, "18", 0},
		{"zero as number", 0, domain.BetNumber, "0", 360},
		{"color hit", 17, domain.BetColor, "rojo", 20},
		{"color alias", 24, domain.BetColor, "Black", 20},
		{"color miss", 24, domain.BetColor, "ROJO", 0},
		{"color on green", 0, domain.BetColor, "NEGRO", 0},
		{"parity even", 24, domain.BetParity, "PAR", 20},
		{"parity odd", 17, domain.BetParity, "odd", 20},
		{"parity miss", 17, domain.BetParity, "EVEN", 0},
		{"parity on green", 0, domain.BetParity, "PAR", 0},
		{"dozen hit", 24, domain.BetDozen, "2", 30},
		{"dozen miss", 25, domain.BetDozen, "2", 0},
		{"dozen on green", 0, domain.BetDozen, "1", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Payout(domain.MustPocket(tt.pocket), bet(t, tt.kind, tt.target, 10))
			require.NoError(t, err)
			assert.True(t, got.Equal(decimal.NewFromInt(tt.want)), "got %s, want %d", got, tt.want)
		})
	}
}

func TestPayoutMalformedTarget(t *testing.T) {
	tests := []struct {
		kind   domain.BetKind
		target string
	}{
		{domain.BetNumber, "seventeen"},
		{domain.BetNumber, "37"},
		{domain.BetColor, "VERDE"},
		{domain.BetParity, "maybe"},
		{domain.BetDozen, "4"},
	}

	for _, tt := range tests {
		got, err := Payout(domain.MustPocket(17), bet(t, tt.kind, tt.target, 10))
		assert.ErrorIs(t, err, domain.ErrInvalidTarget, "%s %s", tt.kind, tt.target)
		assert.True(t, got.IsZero())
	}

	b := bet(t, domain.BetNumber, "17", 10)
	b.Kind = "SPLIT"
	got, err := Payout(domain.MustPocket(17), b)
	assert.ErrorIs(t, err, domain.ErrInvalidTarget)
	assert.True(t, got.IsZero())
}
