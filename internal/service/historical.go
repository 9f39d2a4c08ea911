package service

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"xof_converter/internal/domain"

	"github.com/shopspring/decimal"
)

const (
	// DateLayout is the ISO date used for series keys and the startDate parameter
	DateLayout = "2006-01-02"

	// MaxHistoricalYears bounds how far back a generated series may start
	MaxHistoricalYears = 1

	historicalPlaces = 6
)

// Timeframes offered by the trend chart
const (
	Timeframe1W = "1W"
	Timeframe1M = "1M"
	Timeframe3M = "3M"
	Timeframe1Y = "1Y"
)

// HistoricalService produces an illustrative daily series around the current
// rate. The values are simulated: each day is the current rate perturbed by
// up to ±1%.
type HistoricalService struct {
	resolver *RateResolver
	rand     func() float64
	now      func() time.Time
}

// NewHistoricalService creates a series generator backed by the resolver
func NewHistoricalService(resolver *RateResolver) *HistoricalService {
	return &HistoricalService{
		resolver: resolver,
		rand:     rand.Float64,
		now:      time.Now,
	}
}

// Series resolves the current from→to rate and fills one value per day from
// start up to today (both inclusive).
func (s *HistoricalService) Series(ctx context.Context, from, to string, start time.Time) (*domain.HistoricalSeries, error) {
	from = domain.NormalizeCode(from)
	to = domain.NormalizeCode(to)
	if from == "" || to == "" {
		return nil, &domain.ValidationError{Field: "currency", Reason: "fromCurrency and toCurrency are required"}
	}

	today := truncateDay(s.now())
	start = truncateDay(start)
	if start.After(today) {
		return nil, &domain.ValidationError{Field: "startDate", Reason: "must not be in the future"}
	}
	if start.Before(today.AddDate(-MaxHistoricalYears, 0, 0)) {
		return nil, &domain.ValidationError{Field: "startDate", Reason: fmt.Sprintf("range exceeds %d year", MaxHistoricalYears)}
	}

	current, err := s.resolver.ResolveRate(ctx, from, to)
	if err != nil {
		return nil, err
	}

	series := &domain.HistoricalSeries{
		Base:   from,
		Target: to,
		Rates:  make(map[string]map[string]decimal.Decimal),
	}
	for d := start; !d.After(today); d = d.AddDate(0, 0, 1) {
		series.Rates[d.Format(DateLayout)] = map[string]decimal.Decimal{
			to: s.perturb(current.Rate),
		}
	}
	return series, nil
}

// perturb applies a uniform variation in [-1%, +1%)
func (s *HistoricalService) perturb(rate decimal.Decimal) decimal.Decimal {
	variation := decimal.NewFromFloat((s.rand() - 0.5) * 0.02)
	return rate.Mul(decimal.NewFromInt(1).Add(variation)).Round(historicalPlaces)
}

// ParseStartDate reads a YYYY-MM-DD date
func ParseStartDate(raw string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, &domain.ValidationError{Field: "startDate", Reason: "expected YYYY-MM-DD"}
	}
	return t, nil
}

// StartDateFor maps a chart timeframe to its first day. Unknown values fall
// back to one month.
func StartDateFor(timeframe string, now time.Time) time.Time {
	day := truncateDay(now)
	switch strings.ToUpper(timeframe) {
	case Timeframe1W:
		return day.AddDate(0, 0, -7)
	case Timeframe3M:
		return day.AddDate(0, -3, 0)
	case Timeframe1Y:
		return day.AddDate(-1, 0, 0)
	default:
		return day.AddDate(0, -1, 0)
	}
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
