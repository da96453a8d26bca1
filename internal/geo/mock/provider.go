// Package mock provides an in-process geo.Provider for development and tests.
package mock

import (
	"context"
	"log/slog"
	"sync"

	"github.com/DukeRupert/solartek/internal/domain"
	"github.com/DukeRupert/solartek/internal/geo"
)

// Provider is a mock geo provider with canned answers
type Provider struct {
	logger *slog.Logger

	mu sync.Mutex

	// Configurable responses for testing
	Addresses        map[string]geo.Address // keyed by 8 digit CEP
	LookupError      error
	GeocodeResponse  *geo.Coordinates
	GeocodeError     error
	LookupCalls      int
	GeocodeCalls     int
	LastGeocodeQuery string
}

// New creates a new mock provider that knows a single postal code in
// Curitiba and geocodes every address to the city centre.
func New(logger *slog.Logger) *Provider {
	return &Provider{
		logger: logger,
		Addresses: map[string]geo.Address{
			"80010000": {
				PostalCode:   "80010-000",
				Street:       "Rua XV de Novembro",
				Neighborhood: "Centro",
				City:         "Curitiba",
				State:        "PR",
			},
		},
		GeocodeResponse: &geo.Coordinates{Latitude: -25.4284, Longitude: -49.2733},
	}
}

// LookupPostalCode returns the configured address for the code.
func (p *Provider) LookupPostalCode(ctx context.Context, postalCode string) (*geo.Address, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.LookupCalls++

	if p.LookupError != nil {
		return nil, p.LookupError
	}
	addr, ok := p.Addresses[domain.Digits(postalCode)]
	if !ok {
		return nil, geo.WrapError("lookup postal code", geo.ErrNotFound)
	}
	p.logger.Debug("mock postal code lookup", "postal_code", postalCode)
	return &addr, nil
}

// Geocode returns the configured coordinates.
func (p *Provider) Geocode(ctx context.Context, query string) (*geo.Coordinates, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.GeocodeCalls++
	p.LastGeocodeQuery = query

	if p.GeocodeError != nil {
		return nil, p.GeocodeError
	}
	if p.GeocodeResponse == nil {
		return nil, geo.WrapError("geocode", geo.ErrNotFound)
	}
	c := *p.GeocodeResponse
	return &c, nil
}

// Calls returns the number of lookups and geocodes served so far.
func (p *Provider) Calls() (lookups, geocodes int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.LookupCalls, p.GeocodeCalls
}
