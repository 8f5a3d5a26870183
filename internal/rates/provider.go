// Package rates provides exchange-rate conversion between currencies.
//
// The planning engine consumes the Provider interface only; the HTTP client
// and the caching layer behind it are interchangeable. Conversion failures
// surface as ErrUnavailable and callers are expected to degrade to face
// value rather than fail their whole computation.
package rates

import (
	"context"
	"errors"
)

// ErrUnavailable is returned when no rate could be obtained, not even a
// cached one.
var ErrUnavailable = errors.New("exchange rate unavailable")

// Provider converts an amount from one currency to another. Implementations
// may return cached or stale values.
type Provider interface {
	Convert(ctx context.Context, amount float64, from, to string) (float64, error)
}

// ProviderFunc adapts a function to the Provider interface.
type ProviderFunc func(ctx context.Context, amount float64, from, to string) (float64, error)

// Convert implements Provider.
func (f ProviderFunc) Convert(ctx context.Context, amount float64, from, to string) (float64, error) {
	return f(ctx, amount, from, to)
}
