package domain

import (
	"github.com/shopspring/decimal"
)

// FavoriteEntry is a user-bookmarked conversion
type FavoriteEntry struct {
	ID     int64           `json:"id"` // Creation time in ms, bumped to stay unique
	Amount decimal.Decimal `json:"amount"`
	From   string          `json:"from"`
	To     string          `json:"to"`
	Rate   decimal.Decimal `json:"rate"`
}

// WellFormed reports whether a rehydrated entry is usable
func (f FavoriteEntry) WellFormed() bool {
	return f.ID > 0 &&
		f.Amount.IsPositive() &&
		f.Rate.IsPositive() &&
		NormalizeCode(f.From) != "" &&
		NormalizeCode(f.To) != ""
}

// Converted returns the bookmarked amount at the bookmarked rate
func (f FavoriteEntry) Converted() decimal.Decimal {
	return Convert(f.Amount, f.Rate)
}
