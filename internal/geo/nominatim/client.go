// Package nominatim implements geo.Geocoder against an OpenStreetMap
// Nominatim server.
package nominatim

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/DukeRupert/solartek/internal/geo"
)

// DefaultBaseURL is the public OpenStreetMap instance. Its usage policy
// requires an identifying User-Agent and at most one request per second.
const DefaultBaseURL = "https://nominatim.openstreetmap.org"

// Config contains configuration for the Nominatim client
type Config struct {
	BaseURL string
	// CountryCodes restricts matches, e.g. "br". Empty searches worldwide.
	CountryCodes   string
	ProviderConfig geo.ProviderConfig
}

// Client geocodes free-text addresses.
type Client struct {
	config Config
	client *http.Client
	logger *slog.Logger
}

// New creates a new Nominatim client
func New(config Config, logger *slog.Logger) *Client {
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	config.ProviderConfig = config.ProviderConfig.WithDefaults()

	return &Client{
		config: config,
		client: &http.Client{Timeout: config.ProviderConfig.RequestTimeout},
		logger: logger,
	}
}

type place struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// Geocode returns the best match for query.
func (c *Client) Geocode(ctx context.Context, query string) (*geo.Coordinates, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, geo.WrapError("geocode", geo.ErrInvalidQuery)
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "jsonv2")
	params.Set("limit", "1")
	if c.config.CountryCodes != "" {
		params.Set("countrycodes", c.config.CountryCodes)
	}

	var places []place
	if err := geo.GetJSON(ctx, c.client, c.config.ProviderConfig, c.logger, c.config.BaseURL+"/search?"+params.Encode(), &places); err != nil {
		return nil, geo.WrapError("geocode", err)
	}
	if len(places) == 0 {
		return nil, geo.WrapError("geocode", geo.ErrNotFound)
	}

	lat, err := strconv.ParseFloat(places[0].Lat, 64)
	if err != nil {
		return nil, geo.WrapError("geocode", err)
	}
	lon, err := strconv.ParseFloat(places[0].Lon, 64)
	if err != nil {
		return nil, geo.WrapError("geocode", err)
	}

	c.logger.Debug("geocoded address", "query", query, "match", places[0].DisplayName)
	return &geo.Coordinates{Latitude: lat, Longitude: lon}, nil
}
