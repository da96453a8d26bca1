// Package jobs contains the background job handlers run by the worker.
package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/DukeRupert/solartek/internal/domain"
	"github.com/DukeRupert/solartek/internal/service"
	"github.com/DukeRupert/solartek/internal/worker"
)

// EnrichLocationHandler processes jobs that fill a client's address and UTM
// coordinates from external lookups. Enrichment is best effort: every
// failure is permanent, so the job is never retried and nothing surfaces to
// the user.
type EnrichLocationHandler struct {
	locations service.LocationService
	logger    *slog.Logger
}

// NewEnrichLocationHandler creates a new handler for location enrichment jobs.
func NewEnrichLocationHandler(locations service.LocationService, logger *slog.Logger) *EnrichLocationHandler {
	return &EnrichLocationHandler{
		locations: locations,
		logger:    logger,
	}
}

// Type returns the job type identifier.
func (h *EnrichLocationHandler) Type() string {
	return worker.JobTypeEnrichLocation
}

// Handle executes the enrichment job.
func (h *EnrichLocationHandler) Handle(ctx context.Context, payload []byte) error {
	var p worker.EnrichLocationPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return worker.NewPermanentError(fmt.Errorf("invalid payload: %w", err))
	}
	if p.ClientID == "" {
		return worker.NewPermanentError(fmt.Errorf("invalid payload: missing client_id"))
	}

	result, err := h.locations.Enrich(ctx, p.ClientID)
	if err != nil {
		if domain.ErrorCode(err) == domain.ENOTFOUND {
			h.logger.Info("client deleted before enrichment", "client_id", p.ClientID)
			return nil
		}
		h.logger.Warn("location enrichment failed", "client_id", p.ClientID, "error", err)
		return worker.NewPermanentError(err)
	}

	if result.Skipped != "" {
		h.logger.Debug("location enrichment skipped", "client_id", p.ClientID, "reason", result.Skipped)
	}
	return nil
}
