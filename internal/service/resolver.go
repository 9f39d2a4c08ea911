package service

import (
	"context"
	"log/slog"
	"time"

	"xof_converter/internal/domain"
	"xof_converter/internal/infra"

	"github.com/shopspring/decimal"
)

// IdentitySource marks results that needed no provider (from == to)
const IdentitySource = "identity"

// RateResolver is the resolution policy: it asks each source in priority
// order and stops at the first usable rate. It never retries a source within
// one invocation.
type RateResolver struct {
	sources []domain.RateSource
	metrics *infra.Metrics
	logger  *slog.Logger
	now     func() time.Time
}

// NewRateResolver creates a resolver over sources, highest priority first
func NewRateResolver(metrics *infra.Metrics, sources ...domain.RateSource) *RateResolver {
	if metrics == nil {
		metrics = infra.GlobalMetrics
	}
	return &RateResolver{
		sources: sources,
		metrics: metrics,
		logger:  slog.Default().With("module", "resolver"),
		now:     time.Now,
	}
}

// ResolvedRate is a single pair rate with its provenance
type ResolvedRate struct {
	From        string
	To          string
	Rate        decimal.Decimal
	RetrievedAt time.Time
	Source      string
}

// Resolve converts amount from one currency to another.
// A non-positive amount short-circuits: nil result, nil error, no network.
func (r *RateResolver) Resolve(ctx context.Context, amount decimal.Decimal, from, to string) (*domain.ConversionResult, error) {
	if !amount.IsPositive() {
		return nil, nil
	}

	rate, err := r.ResolveRate(ctx, from, to)
	if err != nil {
		return nil, err
	}

	return domain.NewConversionResult(amount, rate.From, rate.To, rate.Rate, rate.RetrievedAt, rate.Source), nil
}

// ResolveRate finds the unit rate between two currencies
func (r *RateResolver) ResolveRate(ctx context.Context, from, to string) (*ResolvedRate, error) {
	from = domain.NormalizeCode(from)
	to = domain.NormalizeCode(to)

	if from == to {
		return &ResolvedRate{
			From:        from,
			To:          to,
			Rate:        decimal.NewFromInt(1),
			RetrievedAt: r.now(),
			Source:      IdentitySource,
		}, nil
	}

	start := time.Now()
	var errs []error

	for i, src := range r.sources {
		quote, err := src.Quote(ctx, from, to)
		if err != nil {
			errs = append(errs, err)
			r.metrics.RecordProviderError()
			r.logger.Warn("Rate source failed",
				slog.String("source", src.Name()),
				slog.String("from", from),
				slog.String("to", to),
				slog.Bool("retriable", domain.IsRetriable(err)),
				slog.Any("error", err),
			)
			continue
		}

		rate, ok := pairRate(quote, from, to)
		if !ok {
			err := domain.NewBadResponse(src.Name(), "no usable %s/%s rate in %s-based quote", from, to, quote.Base)
			errs = append(errs, err)
			r.metrics.RecordProviderError()
			r.logger.Warn("Rate source unusable", slog.String("source", src.Name()), slog.Any("error", err))
			continue
		}

		r.metrics.RecordResolution(time.Since(start), i > 0)
		return &ResolvedRate{
			From:        from,
			To:          to,
			Rate:        rate,
			RetrievedAt: quote.RetrievedAt,
			Source:      quote.Source,
		}, nil
	}

	r.metrics.RecordAllSourcesFailed()
	return nil, &domain.AllSourcesFailedError{From: from, To: to, Errors: errs}
}

// ResolveTable returns base-relative rates for every target the first usable
// source can quote. Targets the source cannot quote are left out.
func (r *RateResolver) ResolveTable(ctx context.Context, base string, targets []string) (map[string]decimal.Decimal, string, error) {
	base = domain.NormalizeCode(base)
	var errs []error

	for _, src := range r.sources {
		quote, err := src.Quote(ctx, base)
		if err != nil {
			errs = append(errs, err)
			r.metrics.RecordProviderError()
			r.logger.Warn("Rate source failed for table", slog.String("source", src.Name()), slog.Any("error", err))
			continue
		}

		table := make(map[string]decimal.Decimal, len(targets))
		for _, t := range targets {
			t = domain.NormalizeCode(t)
			if rate, ok := pairRate(quote, base, t); ok {
				table[t] = rate
			}
		}
		if len(table) == 0 {
			errs = append(errs, domain.NewBadResponse(src.Name(), "no usable rate for base %s", base))
			continue
		}
		return table, quote.Source, nil
	}

	r.metrics.RecordAllSourcesFailed()
	return nil, "", &domain.AllSourcesFailedError{From: base, To: "*", Errors: errs}
}

// pairRate reads from→to out of a quote. A quote based on from is used
// directly; any other base is re-expressed as rate(to)/rate(from), which is
// only correct because both figures share the quote's base.
func pairRate(q *domain.RateQuote, from, to string) (decimal.Decimal, bool) {
	if q.Base == from {
		return q.Rate(to)
	}
	return q.CrossRate(from, to)
}
