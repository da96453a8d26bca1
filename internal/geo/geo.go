// Package geo resolves client addresses: postal code to street address,
// street address to coordinates, and coordinates to the UTM grid.
//
// Lookups are convenience enrichments. Callers treat every error from this
// package as "no data" and leave the record unchanged.
package geo

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// AddressLookup resolves a Brazilian postal code (CEP).
type AddressLookup interface {
	LookupPostalCode(ctx context.Context, postalCode string) (*Address, error)
}

// Geocoder resolves a free-text address to coordinates.
type Geocoder interface {
	Geocode(ctx context.Context, query string) (*Coordinates, error)
}

// Provider bundles both lookups.
type Provider interface {
	AddressLookup
	Geocoder
}

// Address is the result of a postal code lookup.
type Address struct {
	PostalCode   string `json:"postal_code"`
	Street       string `json:"street"`
	Complement   string `json:"complement"`
	Neighborhood string `json:"neighborhood"`
	City         string `json:"city"`
	State        string `json:"state"`
}

// Coordinates is a WGS84 position in degrees.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// ProviderConfig contains common configuration for live providers.
type ProviderConfig struct {
	MaxRetries     int           // Maximum attempts for transient errors
	RetryBaseDelay time.Duration // Base delay for exponential backoff
	RequestTimeout time.Duration // Timeout for individual requests
	UserAgent      string        // Sent with every request
}

// WithDefaults fills zero values.
func (c ProviderConfig) WithDefaults() ProviderConfig {
	if c.MaxRetries <= 0 {
		c.MaxRetries = 2
	}
	if c.RetryBaseDelay <= 0 {
		c.RetryBaseDelay = 500 * time.Millisecond
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 10 * time.Second
	}
	if c.UserAgent == "" {
		c.UserAgent = "solartek/1.0"
	}
	return c
}

// Error values for lookup operations
var (
	// ErrNotFound indicates the provider has no match for the query
	ErrNotFound = errors.New("geo: no match")

	// ErrInvalidQuery indicates the query was rejected before any request
	ErrInvalidQuery = errors.New("geo: invalid query")

	// ErrRateLimit indicates the provider throttled the request
	ErrRateLimit = errors.New("geo: rate limit exceeded")

	// ErrUnavailable indicates the provider could not be reached
	ErrUnavailable = errors.New("geo: provider unavailable")
)

// IsRetryable returns true if the error is a transient error that can be retried
func IsRetryable(err error) bool {
	return errors.Is(err, ErrRateLimit) || errors.Is(err, ErrUnavailable)
}

// WrapError wraps an error with context about the lookup operation
func WrapError(operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("geo %s: %w", operation, err)
}

// Location is the outcome of resolving an address all the way to the grid.
type Location struct {
	Coordinates Coordinates
	UTM         UTM
}

// Locate geocodes query and projects the result onto the UTM grid. ok is
// false when the coordinates fall outside the grid's latitude range.
func Locate(ctx context.Context, g Geocoder, query string) (loc Location, ok bool, err error) {
	coords, err := g.Geocode(ctx, query)
	if err != nil {
		return Location{}, false, err
	}
	u, ok := ToUTM(coords.Latitude, coords.Longitude)
	return Location{Coordinates: *coords, UTM: u}, ok, nil
}

// Combine pairs an address lookup and a geocoder served by different
// backends into one Provider.
func Combine(lookup AddressLookup, geocoder Geocoder) Provider {
	return combined{AddressLookup: lookup, Geocoder: geocoder}
}

type combined struct {
	AddressLookup
	Geocoder
}
