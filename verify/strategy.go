package verify

import (
	"fmt"
	"strings"
)

// Strategy names the split regime of a trial.
type Strategy string

const (
	BottomUp  Strategy = "bottom_up"
	TopDown   Strategy = "top_down"
	Sublinear Strategy = "sublinear"
)

// Strategies lists every strategy in display order.
var Strategies = []Strategy{BottomUp, TopDown, Sublinear}

// StrategySplit returns the split that selects strategy for n data qubits.
// Sublinear returns nil, leaving the choice to the preparer.
func StrategySplit(strategy Strategy, n int) (*int, error) {
	switch strategy {
	case BottomUp:
		s := 1
		return &s, nil
	case TopDown:
		s := n
		return &s, nil
	case Sublinear:
		return nil, nil
	}
	return nil, fmt.Errorf("unknown strategy %q", strategy)
}

// ParseStrategy accepts a strategy label, case-insensitively, with either
// '_' or '-' as separator.
func ParseStrategy(s string) (Strategy, error) {
	label := Strategy(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_"))
	for _, known := range Strategies {
		if label == known {
			return known, nil
		}
	}
	return "", fmt.Errorf("unknown strategy %q", s)
}

// StrategyOf labels a split for a vector of the given length. A nil split is
// sublinear; a split equal to 1 is bottom-up even when n is 1.
func StrategyOf(split *int, length int) Strategy {
	if split == nil {
		return Sublinear
	}
	if *split == 1 {
		return BottomUp
	}
	n := 0
	for 1<<(n+1) <= length {
		n++
	}
	if *split == n {
		return TopDown
	}
	return Strategy(fmt.Sprintf("split_%d", *split))
}

// Next cycles through Strategies.
func (s Strategy) Next() Strategy {
	for i, known := range Strategies {
		if known == s {
			return Strategies[(i+1)%len(Strategies)]
		}
	}
	return Strategies[0]
}
