package handler

import (
	"log/slog"
	"net/http"

	"github.com/DukeRupert/solartek/internal/service"
)

// Services are the dependencies the API is served from.
type Services struct {
	Clients     service.ClientService
	Attachments service.AttachmentService
	Finance     service.FinanceService
	Backups     service.BackupService
	Locations   service.LocationService
	Store       Pinger
}

// NewRouter registers every API route on a new mux. Unmatched /api/ paths
// answer with a JSON 404.
func NewRouter(svc Services, logger *slog.Logger) *http.ServeMux {
	mux := http.NewServeMux()

	NewHealthHandler(svc.Store, logger).RegisterRoutes(mux)
	NewClientHandler(svc.Clients, logger).RegisterRoutes(mux)
	NewAttachmentHandler(svc.Attachments, logger).RegisterRoutes(mux)
	NewFinanceHandler(svc.Finance, logger).RegisterRoutes(mux)
	NewBackupHandler(svc.Backups, logger).RegisterRoutes(mux)
	NewLookupHandler(svc.Locations, logger).RegisterRoutes(mux)

	mux.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		NotFoundResponse(w, r, logger)
	})

	return mux
}
