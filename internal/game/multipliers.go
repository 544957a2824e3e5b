package game

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

var (
	ErrUnsupportedTable = errors.New("unsupported rows/risk combination")
	ErrUnknownRisk      = errors.New("unknown risk tier")
)

// Risk selects which multiplier row a drop pays from.
type Risk int

const (
	RiskLow Risk = iota
	RiskMedium
	RiskHigh
)

func (r Risk) String() string {
	switch r {
	case RiskLow:
		return "low"
	case RiskMedium:
		return "medium"
	case RiskHigh:
		return "high"
	}
	return "risk(" + strconv.Itoa(int(r)) + ")"
}

func (r Risk) Valid() bool {
	return r >= RiskLow && r <= RiskHigh
}

func (r Risk) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownRisk, int(r))
	}
	return []byte(r.String()), nil
}

func (r *Risk) UnmarshalText(text []byte) error {
	parsed, err := ParseRisk(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// ParseRisk accepts a tier name ("low", "medium", "high") or its index ("0".."2").
func ParseRisk(s string) (Risk, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low", "0":
		return RiskLow, nil
	case "medium", "1":
		return RiskMedium, nil
	case "high", "2":
		return RiskHigh, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownRisk, s)
}

// MultiplierRow is the payout multiplier for every slot, left to right.
type MultiplierRow []float64

// Multipliers are symmetric, largest at the edges and smallest in the center.
// Each row is authored so that under a binomial landing distribution the
// expected return is about 0.97.
var multiplierTable = map[int]map[Risk]MultiplierRow{
	8: {
		RiskLow:    {5.6, 2.1, 1, 1, 0.5, 1, 1, 2.1, 5.6},
		RiskMedium: {12, 2.9, 1.3, 0.7, 0.4, 0.7, 1.3, 2.9, 12},
		RiskHigh:   {28, 3.8, 1.5, 0.3, 0.2, 0.3, 1.5, 3.8, 28},
	},
	10: {
		RiskLow:    {8.9, 3, 1.4, 1, 1, 0.5, 1, 1, 1.4, 3, 8.9},
		RiskMedium: {21, 5, 1.8, 1.4, 0.6, 0.4, 0.6, 1.4, 1.8, 5, 21},
		RiskHigh:   {73, 10, 2.8, 0.9, 0.3, 0.2, 0.3, 0.9, 2.8, 10, 73},
	},
	12: {
		RiskLow:    {10, 3, 1.6, 1.4, 1, 1, 0.5, 1, 1, 1.4, 1.6, 3, 10},
		RiskMedium: {32, 11, 4, 1.8, 1.1, 0.6, 0.3, 0.6, 1.1, 1.8, 4, 11, 32},
		RiskHigh:   {75, 30, 9, 2.3, 0.4, 0.2, 0.2, 0.2, 0.4, 2.3, 9, 30, 75},
	},
	14: {
		RiskLow:    {7.1, 4, 1.9, 1.4, 1.3, 1, 1, 0.5, 1, 1, 1.3, 1.4, 1.9, 4, 7.1},
		RiskMedium: {56, 15, 7, 3.9, 1.8, 1, 0.5, 0.2, 0.5, 1, 1.8, 3.9, 7, 15, 56},
		RiskHigh:   {138, 42, 19, 5.3, 2, 0.3, 0.2, 0.2, 0.2, 0.3, 2, 5.3, 19, 42, 138},
	},
	16: {
		RiskLow:    {16, 9, 2, 1.4, 1.4, 1.2, 1, 1, 0.5, 1, 1, 1.2, 1.4, 1.4, 2, 9, 16},
		RiskMedium: {106, 40, 10, 5, 2.9, 1.4, 1, 0.5, 0.3, 0.5, 1, 1.4, 2.9, 5, 10, 40, 106},
		RiskHigh:   {975, 127, 25, 9, 4, 1.9, 0.2, 0.2, 0.2, 0.2, 0.2, 1.9, 4, 9, 25, 127, 975},
	},
}

// Multipliers returns a copy of the payout row for (rows, risk). Unsupported
// combinations fail closed.
func Multipliers(rows int, risk Risk) (MultiplierRow, error) {
	byRisk, ok := multiplierTable[rows]
	if !ok {
		return nil, fmt.Errorf("%w: rows=%d risk=%s", ErrUnsupportedTable, rows, risk)
	}
	row, ok := byRisk[risk]
	if !ok {
		return nil, fmt.Errorf("%w: rows=%d risk=%s", ErrUnsupportedTable, rows, risk)
	}
	return append(MultiplierRow(nil), row...), nil
}

// Multiplier looks up the payout for a single slot.
func Multiplier(rows int, risk Risk, slot int) (float64, error) {
	row, err := Multipliers(rows, risk)
	if err != nil {
		return 0, err
	}
	if slot < 0 || slot >= len(row) {
		return 0, fmt.Errorf("%w: slot %d for rows %d", ErrInvalidSlot, slot, rows)
	}
	return row[slot], nil
}

// SupportedRows lists the row counts that have a multiplier table.
func SupportedRows() []int {
	rows := make([]int, 0, len(multiplierTable))
	for r := range multiplierTable {
		rows = append(rows, r)
	}
	sort.Ints(rows)
	return rows
}
