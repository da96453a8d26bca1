// Package service contains the business logic layer.
//
// This file implements address lookup and location enrichment. Both are
// conveniences: failures degrade to "nothing found" and never block a save.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/DukeRupert/solartek/internal/app"
	"github.com/DukeRupert/solartek/internal/domain"
	"github.com/DukeRupert/solartek/internal/geo"
	"github.com/DukeRupert/solartek/internal/metrics"
)

// =============================================================================
// Interface Definition
// =============================================================================

// LocationService defines the interface for address lookups.
type LocationService interface {
	// LookupPostalCode resolves a postal code to an address. Any provider
	// failure is logged and reported as Found=false.
	LookupPostalCode(ctx context.Context, postalCode string) PostalCodeResult

	// Enrich fills a client's missing address fields from its postal code
	// and derives its UTM coordinates from the resolved address. Only the
	// derived fields are written, onto the latest version of the client,
	// and only if its address did not change in the meantime.
	// Returns domain.ENOTFOUND if the client does not exist and
	// domain.EUNAVAILABLE if the geocoder failed.
	Enrich(ctx context.Context, clientID string) (*EnrichResult, error)
}

// PostalCodeResult is the outcome of a postal code lookup.
type PostalCodeResult struct {
	Found        bool   `json:"found"`
	PostalCode   string `json:"postal_code,omitempty"`
	Street       string `json:"street,omitempty"`
	Complement   string `json:"complement,omitempty"`
	Neighborhood string `json:"neighborhood,omitempty"`
	City         string `json:"city,omitempty"`
	State        string `json:"state,omitempty"`
}

// EnrichResult reports what enrichment changed.
type EnrichResult struct {
	AddressFilled bool
	UTM           *geo.UTM
	Skipped       string
}

// =============================================================================
// Implementation
// =============================================================================

type locationService struct {
	session  *app.Session
	provider geo.Provider
	logger   *slog.Logger
}

// NewLocationService creates a new LocationService.
func NewLocationService(session *app.Session, provider geo.Provider, logger *slog.Logger) LocationService {
	return &locationService{
		session:  session,
		provider: provider,
		logger:   logger,
	}
}

// LookupPostalCode resolves a postal code.
func (s *locationService) LookupPostalCode(ctx context.Context, postalCode string) PostalCodeResult {
	addr, err := s.provider.LookupPostalCode(ctx, postalCode)
	metrics.GeoLookup("postal_code", err)
	if err != nil {
		if !errors.Is(err, geo.ErrNotFound) && !errors.Is(err, geo.ErrInvalidQuery) {
			s.logger.Warn("postal code lookup failed", "postal_code", postalCode, "error", err)
		}
		return PostalCodeResult{Found: false}
	}

	return PostalCodeResult{
		Found:        true,
		PostalCode:   domain.FormatPostalCode(addr.PostalCode),
		Street:       addr.Street,
		Complement:   addr.Complement,
		Neighborhood: addr.Neighborhood,
		City:         addr.City,
		State:        addr.State,
	}
}

// Enrich fills address and UTM fields of one client.
func (s *locationService) Enrich(ctx context.Context, clientID string) (*EnrichResult, error) {
	const op = "client.enrich"

	c, ok := s.session.Client(clientID)
	if !ok {
		return nil, domain.NotFound(op, "client", clientID)
	}
	if c.HasUTM() {
		return &EnrichResult{Skipped: "client already has coordinates"}, nil
	}
	if !c.HasAddress() {
		return &EnrichResult{Skipped: "client has no address"}, nil
	}

	result := &EnrichResult{}
	enriched := c

	if len(domain.Digits(c.PostalCode)) == 8 {
		found := s.LookupPostalCode(ctx, c.PostalCode)
		if found.Found {
			result.AddressFilled = fillAddress(&enriched, found)
		}
	}

	query := geocodeQuery(&enriched)
	loc, inGrid, err := geo.Locate(ctx, s.provider, query)
	metrics.GeoLookup("geocode", err)
	if err != nil {
		return nil, domain.Wrap(err, domain.EUNAVAILABLE, op, "address could not be geocoded")
	}
	if inGrid {
		u := loc.UTM
		result.UTM = &u
	} else {
		s.logger.Info("client location outside the UTM grid", "client_id", clientID, "latitude", loc.Coordinates.Latitude)
	}

	if !result.AddressFilled && result.UTM == nil {
		return result, nil
	}

	_, err = s.session.UpdateClient(ctx, clientID, func(latest *domain.Client) error {
		if latest.FullAddress() != c.FullAddress() {
			result.AddressFilled, result.UTM = false, nil
			result.Skipped = "address changed during enrichment"
			return errSkipEnrichment
		}
		if result.AddressFilled {
			latest.Street = enriched.Street
			latest.Complement = enriched.Complement
			latest.Neighborhood = enriched.Neighborhood
			latest.City = enriched.City
		}
		if result.UTM != nil {
			latest.UTMZone = result.UTM.ZoneLabel()
			latest.UTMEasting = result.UTM.EastingLabel()
			latest.UTMNorthing = result.UTM.NorthingLabel()
		}
		return nil
	})
	if errors.Is(err, errSkipEnrichment) {
		return result, nil
	}
	if err != nil {
		return nil, observeStoreError(err)
	}

	s.logger.Info("client location enriched",
		"client_id", clientID,
		"address_filled", result.AddressFilled,
		"utm", result.UTM != nil,
	)
	return result, nil
}

var errSkipEnrichment = errors.New("enrichment skipped")

// fillAddress copies looked-up fields the user left blank. The complement
// is only ever filled when empty, since it usually carries the unit number.
func fillAddress(c *domain.Client, found PostalCodeResult) bool {
	filled := false
	for _, f := range []struct {
		dst *string
		src string
	}{
		{&c.Street, found.Street},
		{&c.Complement, found.Complement},
		{&c.Neighborhood, found.Neighborhood},
		{&c.City, found.City},
	} {
		if *f.dst == "" && f.src != "" {
			*f.dst = f.src
			filled = true
		}
	}
	return filled
}

// geocodeQuery builds the free-text query sent to the geocoder.
func geocodeQuery(c *domain.Client) string {
	parts := []string{c.FullAddress()}
	if c.City != "" {
		parts = append(parts, "Brasil")
	}
	return strings.Join(parts, ", ")
}
