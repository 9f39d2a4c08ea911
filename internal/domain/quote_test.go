package domain

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
)

func TestRateQuote_Rate(t *testing.T) {
	q := &RateQuote{
		Base: "USD",
		Rates: map[string]decimal.Decimal{
			"EUR": decimal.RequireFromString("0.92"),
			"XOF": decimal.RequireFromString("603.45"),
			"BAD": decimal.Zero,
		},
	}

	t.Run("base quotes one", func(t *testing.T) {
		r, ok := q.Rate("usd")
		if !ok || !r.Equal(decimal.NewFromInt(1)) {
			t.Errorf("Expected 1 for base, got %s (%v)", r, ok)
		}
	})

	t.Run("non positive is unusable", func(t *testing.T) {
		if _, ok := q.Rate("BAD"); ok {
			t.Error("Zero rate must not be usable")
		}
	})

	t.Run("missing", func(t *testing.T) {
		if q.Has("EUR", "GBP") {
			t.Error("GBP is missing, Has should be false")
		}
	})

	t.Run("nil quote", func(t *testing.T) {
		var nq *RateQuote
		if _, ok := nq.Rate("EUR"); ok {
			t.Error("nil quote has no rates")
		}
	})
}

func TestRateQuote_CrossRate(t *testing.T) {
	q := &RateQuote{
		Base: "USD",
		Rates: map[string]decimal.Decimal{
			"EUR": decimal.RequireFromString("0.5"),
			"XOF": decimal.RequireFromString("300"),
		},
	}

	r, ok := q.CrossRate("EUR", "XOF")
	if !ok {
		t.Fatal("Expected cross rate")
	}
	if !r.Equal(decimal.NewFromInt(600)) {
		t.Errorf("Expected 600, got %s", r)
	}

	r, ok = q.CrossRate("USD", "XOF")
	if !ok || !r.Equal(decimal.NewFromInt(300)) {
		t.Errorf("Base as from should reduce to direct rate, got %s", r)
	}

	if _, ok := q.CrossRate("GBP", "XOF"); ok {
		t.Error("Missing from rate should not yield a cross rate")
	}
}

func TestValidRate(t *testing.T) {
	tests := []struct {
		v    float64
		want bool
	}{
		{655.957, true},
		{0, false},
		{-1, false},
		{math.NaN(), false},
		{math.Inf(1), false},
	}
	for _, tt := range tests {
		if got := ValidRate(tt.v); got != tt.want {
			t.Errorf("ValidRate(%v) = %v, want %v", tt.v, got, tt.want)
		}
	}
}
