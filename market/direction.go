package market

import (
	"fmt"
	"strings"
)

// Direction is the side of a simulated position.
type Direction string

const (
	Buy  Direction = "buy"
	Sell Direction = "sell"
)

func (d Direction) String() string { return string(d) }

// Valid reports whether d is Buy or Sell.
func (d Direction) Valid() bool { return d == Buy || d == Sell }

// Sign is +1 for Buy and -1 for Sell.
func (d Direction) Sign() float64 {
	if d == Sell {
		return -1
	}
	return 1
}

// ParseDirection accepts buy/sell/long/short in any case.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "buy", "long":
		return Buy, nil
	case "sell", "short":
		return Sell, nil
	default:
		return "", fmt.Errorf("unknown direction %q", s)
	}
}
