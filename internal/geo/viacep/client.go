// Package viacep implements geo.AddressLookup against the ViaCEP web service.
package viacep

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/DukeRupert/solartek/internal/domain"
	"github.com/DukeRupert/solartek/internal/geo"
)

// DefaultBaseURL is the public ViaCEP endpoint.
const DefaultBaseURL = "https://viacep.com.br/ws"

// Config contains configuration for the ViaCEP client
type Config struct {
	BaseURL        string
	ProviderConfig geo.ProviderConfig
}

// Client looks up Brazilian postal codes.
type Client struct {
	config Config
	client *http.Client
	logger *slog.Logger
}

// New creates a new ViaCEP client
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

// response is the ViaCEP payload. "erro" has been sent both as a boolean and
// as the string "true".
type response struct {
	CEP         string          `json:"cep"`
	Logradouro  string          `json:"logradouro"`
	Complemento string          `json:"complemento"`
	Bairro      string          `json:"bairro"`
	Localidade  string          `json:"localidade"`
	UF          string          `json:"uf"`
	Erro        json.RawMessage `json:"erro"`
}

func (r response) notFound() bool {
	v := strings.Trim(string(r.Erro), `"`)
	return v == "true"
}

// LookupPostalCode resolves an 8 digit CEP. Punctuation is ignored.
func (c *Client) LookupPostalCode(ctx context.Context, postalCode string) (*geo.Address, error) {
	cep := domain.Digits(postalCode)
	if len(cep) != 8 {
		return nil, geo.WrapError("lookup postal code", geo.ErrInvalidQuery)
	}

	var resp response
	url := c.config.BaseURL + "/" + cep + "/json/"
	if err := geo.GetJSON(ctx, c.client, c.config.ProviderConfig, c.logger, url, &resp); err != nil {
		return nil, geo.WrapError("lookup postal code", err)
	}
	if resp.notFound() {
		return nil, geo.WrapError("lookup postal code", geo.ErrNotFound)
	}

	return &geo.Address{
		PostalCode:   domain.FormatPostalCode(cep),
		Street:       resp.Logradouro,
		Complement:   resp.Complemento,
		Neighborhood: resp.Bairro,
		City:         resp.Localidade,
		State:        resp.UF,
	}, nil
}
