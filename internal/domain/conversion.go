package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	// AmountPlaces is the display precision of a converted amount
	AmountPlaces = 2
	// RatePlaces is the display precision of a unit rate
	RatePlaces = 4
)

// ConversionResult is derived from an amount and a resolved rate. Never persisted.
type ConversionResult struct {
	Amount         decimal.Decimal `json:"amount"`
	From           string          `json:"from"`
	To             string          `json:"to"`
	Rate           decimal.Decimal `json:"rate"`
	Converted      decimal.Decimal `json:"converted"`
	QuoteTimestamp time.Time       `json:"quote_timestamp"`
	Source         string          `json:"source"`
}

// Convert multiplies amount by rate without rounding
func Convert(amount, rate decimal.Decimal) decimal.Decimal {
	return amount.Mul(rate)
}

// NewConversionResult derives a result from its inputs
func NewConversionResult(amount decimal.Decimal, from, to string, rate decimal.Decimal, ts time.Time, source string) *ConversionResult {
	return &ConversionResult{
		Amount:         amount,
		From:           from,
		To:             to,
		Rate:           rate,
		Converted:      Convert(amount, rate),
		QuoteTimestamp: ts,
		Source:         source,
	}
}

// Valid reports whether the result may be displayed
func (r *ConversionResult) Valid() bool {
	return r != nil && r.Rate.IsPositive()
}

// FormatAmount renders an amount for display (2 decimals)
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(AmountPlaces)
}

// FormatRate renders a unit rate for display (4 decimals)
func FormatRate(d decimal.Decimal) string {
	return d.StringFixed(RatePlaces)
}

// ConversionView is the presentation-ready form of a ConversionResult
type ConversionView struct {
	Amount         string    `json:"amount"`
	From           string    `json:"from"`
	To             string    `json:"to"`
	Converted      string    `json:"converted"`
	UnitRate       string    `json:"unit_rate"`
	QuoteTimestamp time.Time `json:"quote_timestamp"`
	Source         string    `json:"source"`
}

// View applies display rounding. The result itself is left untouched.
func (r *ConversionResult) View() ConversionView {
	return ConversionView{
		Amount:         r.Amount.String(),
		From:           r.From,
		To:             r.To,
		Converted:      FormatAmount(r.Converted),
		UnitRate:       FormatRate(r.Rate),
		QuoteTimestamp: r.QuoteTimestamp,
		Source:         r.Source,
	}
}

// ParseAmount parses user input. Anything that is not a positive number
// yields ok=false, mirroring an empty form field.
func ParseAmount(raw string) (decimal.Decimal, bool) {
	raw = strings.ReplaceAll(strings.TrimSpace(raw), ",", ".")
	d, err := decimal.NewFromString(raw)
	if err != nil || !d.IsPositive() {
		return decimal.Zero, false
	}
	return d, true
}
