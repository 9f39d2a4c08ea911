package service

import (
	"context"
	"fmt"

	"xof_converter/internal/domain"
)

// ComparisonService builds the rate table of one base currency against the
// rest of the catalog.
type ComparisonService struct {
	resolver *RateResolver
	catalog  *domain.Catalog
}

// NewComparisonService creates a comparison service over the catalog
func NewComparisonService(resolver *RateResolver, catalog *domain.Catalog) *ComparisonService {
	return &ComparisonService{resolver: resolver, catalog: catalog}
}

// Compare returns one entry per catalog currency other than base, in catalog
// order. Currencies the answering source cannot quote are omitted.
func (s *ComparisonService) Compare(ctx context.Context, base string) (*domain.Comparison, error) {
	base = domain.NormalizeCode(base)
	if !s.catalog.Contains(base) {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownCurrency, base)
	}

	targets := make([]string, 0, len(s.catalog.Codes()))
	for _, code := range s.catalog.Codes() {
		if code != base {
			targets = append(targets, code)
		}
	}

	table, source, err := s.resolver.ResolveTable(ctx, base, targets)
	if err != nil {
		return nil, err
	}

	cmp := &domain.Comparison{Base: base, Source: source}
	for _, code := range targets {
		rate, ok := table[code]
		if !ok {
			continue
		}
		cmp.Entries = append(cmp.Entries, domain.NewComparisonEntry(code, rate))
	}
	return cmp, nil
}
