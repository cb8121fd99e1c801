package domain

import (
	"fmt"
	"strings"
)

// MaxPocket is the highest number on a single-zero wheel.
const MaxPocket = 36

// Color is the color of a pocket
type Color string

const (
	ColorGreen Color = "VERDE"
	ColorRed   Color = "ROJO"
	ColorBlack Color = "NEGRO"
)

// colorAliases maps accepted bet spellings to pocket colors.
var colorAliases = map[string]Color{
	"ROJO":  ColorRed,
	"RED":   ColorRed,
	"NEGRO": ColorBlack,
	"BLACK": ColorBlack,
}

// ParseColor resolves a COLOR bet target, case-insensitively. Green is not
// a valid target.
func ParseColor(s string) (Color, bool) {
	c, ok := colorAliases[strings.ToUpper(strings.TrimSpace(s))]
	return c, ok
}

// Pocket is one drawn slot of the wheel.
type Pocket struct {
	Number int   `json:"number"`
	Color  Color `json:"color"`
	Dozen  int   `json:"dozen"`
}

// NewPocket derives color and dozen for number.
func NewPocket(number int) (Pocket, error) {
	if number < 0 || number > MaxPocket {
		return Pocket{}, fmt.Errorf("pocket %d out of range 0..%d", number, MaxPocket)
	}
	return Pocket{
		Number: number,
		Color:  colorOf(number),
		Dozen:  dozenOf(number),
	}, nil
}

// MustPocket is NewPocket for numbers known to be valid.
func MustPocket(number int) Pocket {
	p, err := NewPocket(number)
	if err != nil {
		panic(err)
	}
	return p
}

// IsGreen reports whether the pocket is the zero.
func (p Pocket) IsGreen() bool {
	return p.Number == 0
}

func (p Pocket) String() string {
	return fmt.Sprintf("%d %s", p.Number, p.Color)
}

// Odd numbers are red and even numbers black on this table's cloth, which
// gives 17 → ROJO and 24 → NEGRO.
func colorOf(n int) Color {
	switch {
	case n == 0:
		return ColorGreen
	case n%2 == 1:
		return ColorRed
	default:
		return ColorBlack
	}
}

func dozenOf(n int) int {
	if n == 0 {
		return 0
	}
	return (n-1)/12 + 1
}
