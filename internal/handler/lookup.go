package handler

import (
	"log/slog"
	"net/http"

	"github.com/DukeRupert/solartek/internal/service"
)

// LookupHandler serves address lookups for the client form.
type LookupHandler struct {
	locations service.LocationService
	logger    *slog.Logger
}

// NewLookupHandler creates a new LookupHandler.
func NewLookupHandler(locations service.LocationService, logger *slog.Logger) *LookupHandler {
	return &LookupHandler{
		locations: locations,
		logger:    logger,
	}
}

// RegisterRoutes registers the lookup routes on mux.
func (h *LookupHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/lookup/postal-code/{code}", h.PostalCode)
}

// PostalCode resolves a CEP. A miss or provider failure is still a 200 with
// found=false; the form just keeps what the user typed.
func (h *LookupHandler) PostalCode(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.locations.LookupPostalCode(r.Context(), r.PathValue("code")))
}
