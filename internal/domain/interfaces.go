package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

// RateSource defines the interface for an external rate-quote provider.
// Quote fails with *NetworkError, *BadResponseError or *ProviderError.
type RateSource interface {
	Name() string
	Quote(ctx context.Context, base string, targets ...string) (*RateQuote, error)
}

// Resolver turns user input into a conversion
type Resolver interface {
	Resolve(ctx context.Context, amount decimal.Decimal, from, to string) (*ConversionResult, error)
}

// LocalStore is the device-local key/value persistence boundary.
// A missing key is reported with ok=false, not an error.
type LocalStore interface {
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
	Delete(key string) error
}
