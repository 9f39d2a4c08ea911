package domain

import (
	"github.com/shopspring/decimal"
)

// ComparisonEntry is one row of the rate comparison table
type ComparisonEntry struct {
	Code      string          `json:"code"`
	Rate      decimal.Decimal `json:"rate"`
	ChangePct decimal.Decimal `json:"change_pct"` // Distance from parity in %
}

// NewComparisonEntry computes the change against parity: (rate - 1) * 100
func NewComparisonEntry(code string, rate decimal.Decimal) ComparisonEntry {
	return ComparisonEntry{
		Code:      code,
		Rate:      rate,
		ChangePct: rate.Sub(decimal.NewFromInt(1)).Mul(decimal.NewFromInt(100)),
	}
}

// Direction returns "up" when the currency quotes above parity, else "down"
func (e ComparisonEntry) Direction() string {
	if e.Rate.GreaterThan(decimal.NewFromInt(1)) {
		return "up"
	}
	return "down"
}

// Comparison is the rate table of one base currency
type Comparison struct {
	Base    string            `json:"base"`
	Source  string            `json:"source"`
	Entries []ComparisonEntry `json:"entries"`
}

// HistoricalSeries maps an ISO date to a per-currency rate
type HistoricalSeries struct {
	Base   string                                `json:"base_code"`
	Target string                                `json:"target_code"`
	Rates  map[string]map[string]decimal.Decimal `json:"rates"`
}
