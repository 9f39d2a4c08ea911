package domain

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// RateQuote is one provider answer normalised to a single shape.
// 1 unit of Base = Rates[code] units of code.
type RateQuote struct {
	Base        string                     `json:"base"`
	Rates       map[string]decimal.Decimal `json:"rates"`
	RetrievedAt time.Time                  `json:"retrieved_at"`
	Source      string                     `json:"source"`
}

// Rate returns the usable rate for code. The base currency always quotes 1.
func (q *RateQuote) Rate(code string) (decimal.Decimal, bool) {
	if q == nil {
		return decimal.Zero, false
	}
	code = NormalizeCode(code)
	if code == q.Base {
		return decimal.NewFromInt(1), true
	}
	r, ok := q.Rates[code]
	if !ok || !r.IsPositive() {
		return decimal.Zero, false
	}
	return r, true
}

// Has reports whether every code has a usable rate
func (q *RateQuote) Has(codes ...string) bool {
	for _, code := range codes {
		if _, ok := q.Rate(code); !ok {
			return false
		}
	}
	return true
}

// CrossRate reinterprets the quote with from as the new base: rate(to)/rate(from).
// Both figures must be relative to q.Base.
func (q *RateQuote) CrossRate(from, to string) (decimal.Decimal, bool) {
	rf, ok := q.Rate(from)
	if !ok {
		return decimal.Zero, false
	}
	rt, ok := q.Rate(to)
	if !ok {
		return decimal.Zero, false
	}
	return rt.DivRound(rf, 16), true
}

// ValidRate reports whether a raw provider number is finite and positive.
// decimal.NewFromFloat panics on NaN/Inf, so callers check this first.
func ValidRate(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v > 0
}
