// Package handler exposes the back office over a JSON HTTP API.
package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/DukeRupert/solartek/internal/domain"
	"github.com/DukeRupert/solartek/internal/service"
)

// ClientHandler handles client-related HTTP requests.
type ClientHandler struct {
	clients service.ClientService
	logger  *slog.Logger
}

// NewClientHandler creates a new ClientHandler.
func NewClientHandler(clients service.ClientService, logger *slog.Logger) *ClientHandler {
	return &ClientHandler{
		clients: clients,
		logger:  logger,
	}
}

// RegisterRoutes registers the client routes on mux.
func (h *ClientHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/clients", h.List)
	mux.HandleFunc("POST /api/clients", h.Create)
	mux.HandleFunc("GET /api/clients/{id}", h.Show)
	mux.HandleFunc("PUT /api/clients/{id}", h.Update)
	mux.HandleFunc("PUT /api/clients/{id}/status", h.SetStatus)
	mux.HandleFunc("DELETE /api/clients/{id}", h.Delete)
	mux.HandleFunc("GET /api/clients/{id}/sheet", h.Sheet)
}

// =============================================================================
// GET /api/clients
// =============================================================================

// List returns every client.
func (h *ClientHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.clients.List(r.Context()))
}

// =============================================================================
// POST /api/clients
// =============================================================================

// Create adds a client.
func (h *ClientHandler) Create(w http.ResponseWriter, r *http.Request) {
	var params domain.ClientInput
	if err := decodeJSON(w, r, &params); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	client, err := h.clients.Create(r.Context(), params)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	w.Header().Set("Location", "/api/clients/"+client.ID)
	writeJSON(w, http.StatusCreated, client)
}

// =============================================================================
// GET /api/clients/{id}
// =============================================================================

// Show returns a client with its timeline and services.
func (h *ClientHandler) Show(w http.ResponseWriter, r *http.Request) {
	detail, err := h.clients.Detail(r.Context(), r.PathValue("id"))
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// =============================================================================
// PUT /api/clients/{id}
// =============================================================================

// Update replaces the editable fields of a client.
func (h *ClientHandler) Update(w http.ResponseWriter, r *http.Request) {
	var params domain.ClientInput
	if err := decodeJSON(w, r, &params); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	client, err := h.clients.Update(r.Context(), r.PathValue("id"), params)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, client)
}

// =============================================================================
// PUT /api/clients/{id}/status
// =============================================================================

type setStatusRequest struct {
	Status domain.Stage `json:"status"`
}

// SetStatus moves a client to another project stage.
func (h *ClientHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	var req setStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	client, err := h.clients.SetStatus(r.Context(), r.PathValue("id"), req.Status)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, client)
}

// =============================================================================
// DELETE /api/clients/{id}
// =============================================================================

// Delete removes a client.
func (h *ClientHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.clients.Delete(r.Context(), r.PathValue("id")); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// GET /api/clients/{id}/sheet
// =============================================================================

// Sheet returns the plain-text client sheet. With ?download=1 it is served
// as a file.
func (h *ClientHandler) Sheet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	sheet, err := h.clients.Sheet(r.Context(), id)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if r.URL.Query().Get("download") != "" {
		w.Header().Set("Content-Disposition", contentDisposition(false, sheetFilename(id)))
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(sheet))
}

func sheetFilename(id string) string {
	return "ficha_" + strings.ReplaceAll(id, "/", "_") + ".txt"
}
