package head

import (
	"fmt"
	"strings"
)

// Strategy selects how a sequence's token embeddings collapse into one vector.
type Strategy int

const (
	// Cls takes the class-token row (row 0).
	Cls Strategy = iota
	// Mean averages the real-token rows.
	Mean
	// FirstLastAvg is declared for config compatibility but not implemented.
	FirstLastAvg
	// LastAvg is declared for config compatibility but not implemented.
	LastAvg
	// Pooler is declared for config compatibility but not implemented.
	Pooler
)

var strategyNames = [...]string{
	Cls:          "cls",
	Mean:         "mean",
	FirstLastAvg: "first-last-avg",
	LastAvg:      "last-avg",
	Pooler:       "pooler",
}

// String returns the config name of the strategy.
func (s Strategy) String() string {
	if s < 0 || int(s) >= len(strategyNames) {
		return fmt.Sprintf("Strategy(%d)", int(s))
	}
	return strategyNames[s]
}

// Implemented reports whether Pool supports s.
func (s Strategy) Implemented() bool {
	return s == Cls || s == Mean
}

// ParseStrategy maps a config name to a Strategy. Names are case-insensitive.
func ParseStrategy(name string) (Strategy, error) {
	for i, n := range strategyNames {
		if strings.EqualFold(name, n) {
			return Strategy(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidPoolMode, name)
}

// MarshalText implements encoding.TextMarshaler.
func (s Strategy) MarshalText() ([]byte, error) {
	if s < 0 || int(s) >= len(strategyNames) {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPoolMode, int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Strategy) UnmarshalText(text []byte) error {
	parsed, err := ParseStrategy(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
